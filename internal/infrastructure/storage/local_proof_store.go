// Package storage guarda los comprobantes de pago en el sistema de archivos local.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// MaxProofSize tamaño máximo aceptado para un comprobante (10 MiB).
const MaxProofSize = 10 << 20

var allowedTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/webp", "image/gif"}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalProofStore implementa billing.ProofStore sobre un directorio.
// Los archivos quedan en <root>/<invoiceID>/<nombre> y se publican bajo baseURL.
type LocalProofStore struct {
	root    string
	baseURL string
	log     zerolog.Logger
}

var _ billing.ProofStore = (*LocalProofStore)(nil)

// NewLocalProofStore crea el directorio raíz si no existe.
func NewLocalProofStore(root, baseURL string, log zerolog.Logger) (*LocalProofStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: directorio de comprobantes vacío")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: crear %s: %w", abs, err)
	}
	return &LocalProofStore{root: abs, baseURL: strings.TrimRight(baseURL, "/"), log: log}, nil
}

// Save valida tipo y tamaño del archivo y lo escribe. El content type se detecta por los
// bytes, no por la extensión declarada.
func (s *LocalProofStore) Save(ctx context.Context, invoiceID, filename string, content io.Reader) (*billing.StoredProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirName := sanitize(invoiceID)
	if dirName == "" || dirName != invoiceID {
		return nil, fmt.Errorf("%w: identificador de factura inválido", domain.ErrInvalidInput)
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxProofSize+1))
	if err != nil {
		return nil, fmt.Errorf("storage: leer comprobante: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: comprobante vacío", domain.ErrInvalidInput)
	}
	if len(data) > MaxProofSize {
		return nil, fmt.Errorf("%w: el comprobante supera %d bytes", domain.ErrInvalidInput, MaxProofSize)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return nil, fmt.Errorf("%w: tipo de archivo no permitido (%s)", domain.ErrInvalidInput, mt.String())
	}

	name := storedName(filename, mt)
	dir := filepath.Join(s.root, dirName)
	target := filepath.Join(dir, name)
	if !strings.HasPrefix(target, s.root+string(os.PathSeparator)) {
		return nil, fmt.Errorf("%w: ruta de comprobante inválida", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := writeFile(target, data); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_id", invoiceID).
		Str("file", name).
		Str("content_type", mt.String()).
		Int("size", len(data)).
		Msg("comprobante guardado")

	return &billing.StoredProof{
		URL:         s.publicURL(dirName, name),
		ContentType: mt.String(),
	}, nil
}

func (s *LocalProofStore) publicURL(dir, name string) string {
	return s.baseURL + "/" + url.PathEscape(dir) + "/" + url.PathEscape(name)
}

// storedName conserva el nombre base saneado y fuerza la extensión del tipo detectado,
// de modo que ProofVerifier clasifique por sufijo lo mismo que se validó por contenido.
func storedName(filename string, mt *mimetype.MIME) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Trim(sanitize(base), ".")
	if base == "" {
		base = "comprobante"
	}
	return base + mt.Extension()
}

func sanitize(s string) string {
	return unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
}

func writeFile(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: escribir: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}
