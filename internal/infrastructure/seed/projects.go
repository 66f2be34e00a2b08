// Package seed lee el catálogo de proyectos exportado por el CRM.
//
// Formato:
//
//	<proyectos>
//	  <proyecto id="..." nombre="..." precio="1500.00">
//	    <cliente id="..." nombre="..." ruc="80012345-6" email="..."/>
//	  </proyecto>
//	</proyectos>
//
// El CRM exporta en ISO-8859-1; también se acepta UTF-8.
package seed

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/sifen"
)

type catalog struct {
	Proyectos []proyecto `xml:"proyecto"`
}

type proyecto struct {
	ID      string `xml:"id,attr"`
	Nombre  string `xml:"nombre,attr"`
	Precio  string `xml:"precio,attr"`
	Cliente struct {
		ID     string `xml:"id,attr"`
		Nombre string `xml:"nombre,attr"`
		RUC    string `xml:"ruc,attr"`
		Email  string `xml:"email,attr"`
	} `xml:"cliente"`
}

// LoadProjectsFile abre y decodifica el archivo.
func LoadProjectsFile(path string) ([]*entity.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: abrir %s: %w", path, err)
	}
	defer f.Close()
	return LoadProjects(f)
}

// LoadProjects decodifica el catálogo. Un RUC con formato NNNNNNN-D se valida con su
// dígito verificador; un documento sin guion se toma como cédula y se conserva tal cual.
func LoadProjects(r io.Reader) ([]*entity.Project, error) {
	var c catalog
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("seed: decodificar XML: %w", err)
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(c.Proyectos))
	out := make([]*entity.Project, 0, len(c.Proyectos))
	for i, p := range c.Proyectos {
		id := strings.TrimSpace(p.ID)
		if id == "" || strings.TrimSpace(p.Nombre) == "" || strings.TrimSpace(p.Cliente.ID) == "" {
			return nil, fmt.Errorf("seed: proyecto %d: id, nombre y cliente son obligatorios", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("seed: proyecto %s duplicado", id)
		}
		seen[id] = true

		price := decimal.Zero
		if s := strings.TrimSpace(p.Precio); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("seed: proyecto %s: precio %q: %w", id, s, err)
			}
			price = d
		}
		ruc := strings.TrimSpace(p.Cliente.RUC)
		if strings.Contains(ruc, "-") {
			if err := sifen.ValidateRUC(ruc); err != nil {
				return nil, fmt.Errorf("seed: proyecto %s: %w", id, err)
			}
		}
		out = append(out, &entity.Project{
			ID:             id,
			Name:           strings.TrimSpace(p.Nombre),
			ClientID:       strings.TrimSpace(p.Cliente.ID),
			ClientName:     strings.TrimSpace(p.Cliente.Nombre),
			ClientRUC:      ruc,
			ClientEmail:    strings.TrimSpace(p.Cliente.Email),
			ReferencePrice: price,
			CreatedAt:      now,
		})
	}
	return out, nil
}
