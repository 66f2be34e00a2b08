package billing

import (
	"net/url"
	"path"
	"strings"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// Tipos de comprobante que la vista sabe mostrar.
const (
	ProofKindPDF   = "pdf"
	ProofKindImage = "image"
)

// ProofDescription comprobante resuelto para la revisión.
type ProofDescription struct {
	URL  string
	Kind string
}

// ProofVerifier resuelve el comprobante de una factura a algo que la vista pueda mostrar.
// Solo lectura: la regla "sin comprobante no hay aprobación" vive en InvoiceLifecycleManager.
type ProofVerifier struct{}

// NewProofVerifier construye el verificador.
func NewProofVerifier() *ProofVerifier { return &ProofVerifier{} }

// Describe devuelve la URL y el tipo (pdf si la referencia termina en .pdf, image en otro caso).
// Retorna domain.ErrMissingProof si la factura no tiene comprobante.
func (v *ProofVerifier) Describe(inv *entity.Invoice) (*ProofDescription, error) {
	if inv == nil || !inv.HasProof() {
		return nil, domain.ErrMissingProof
	}
	return &ProofDescription{URL: inv.ProofFileURL, Kind: proofKind(inv.ProofFileURL)}, nil
}

func proofKind(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	if strings.EqualFold(path.Ext(p), ".pdf") {
		return ProofKindPDF
	}
	return ProofKindImage
}
