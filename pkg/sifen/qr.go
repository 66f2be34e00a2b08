package sifen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// QRVersion versión del formato de la URL de consulta.
const QRVersion = "150"

// QRParams datos del DE que viajan en la URL de verificación.
type QRParams struct {
	CDC         string
	IssuedAt    time.Time
	ReceiverRUC string // sin DV; vacío si el receptor no es contribuyente
	Total       string // dTotGralOpe
	Items       int
	DigestValue string // DigestValue de la firma en base64; vacío si el DE no se firmó
	CSCID       string // identificador del CSC ("0001")
}

// BuildQRURL arma la URL del QR del KuDE. cHashQR es el SHA-256 (hex) de los parámetros
// concatenados con el CSC, que nunca viaja en la URL.
func BuildQRURL(baseURL string, p QRParams, csc string) (string, error) {
	if err := ValidateCDC(p.CDC); err != nil {
		return "", err
	}
	if strings.TrimSpace(csc) == "" {
		return "", fmt.Errorf("sifen: CSC requerido para el QR")
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("sifen: URL base de QR inválida: %q", baseURL)
	}

	receiver := p.ReceiverRUC
	if receiver == "" {
		receiver = "0"
	}
	// El orden de los parámetros forma parte del hash.
	params := []string{
		"nVersion=" + QRVersion,
		"Id=" + p.CDC,
		"dFeEmiDE=" + hex.EncodeToString([]byte(p.IssuedAt.Format("2006-01-02T15:04:05"))),
		"dRucRec=" + receiver,
		"dTotGralOpe=" + p.Total,
		"dTotIVA=0",
		fmt.Sprintf("cItems=%d", p.Items),
		"DigestValue=" + hex.EncodeToString([]byte(p.DigestValue)),
		"IdCSC=" + p.CSCID,
	}
	query := strings.Join(params, "&")
	sum := sha256.Sum256([]byte(query + csc))

	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
		if strings.HasSuffix(baseURL, "?") || strings.HasSuffix(baseURL, "&") {
			sep = ""
		}
	}
	return baseURL + sep + query + "&cHashQR=" + hex.EncodeToString(sum[:]), nil
}
