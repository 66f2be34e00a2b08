// Package sifen reglas del Sistema Integrado de Facturación Electrónica Nacional (Paraguay, SET)
// que no dependen de infraestructura: dígito verificador módulo 11 y formato del CDC.
package sifen

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// CDCLength longitud fija del Código de Control del documento electrónico.
const CDCLength = 44

// baseMax peso máximo del algoritmo módulo 11 de la SET.
const baseMax = 11

// ComputeCheckDigit calcula el dígito verificador módulo 11 (pesos 2..11 de derecha a izquierda).
// Se usa tanto para el RUC como para el CDC.
func ComputeCheckDigit(number string) (int, error) {
	digits := extractDigits(number)
	if len(digits) == 0 {
		return 0, fmt.Errorf("sifen: número vacío para calcular el dígito verificador")
	}
	if len(digits) != len(strings.TrimSpace(number)) {
		return 0, fmt.Errorf("sifen: %q contiene caracteres no numéricos", number)
	}
	k := 2
	total := 0
	for i := len(digits) - 1; i >= 0; i-- {
		if k > baseMax {
			k = 2
		}
		total += int(digits[i]-'0') * k
		k++
	}
	remainder := total % 11
	if remainder > 1 {
		return 11 - remainder, nil
	}
	return 0, nil
}

// ValidateCDC verifica longitud, que sea numérico y el dígito verificador final.
func ValidateCDC(cdc string) error {
	if len(cdc) != CDCLength {
		return fmt.Errorf("sifen: el CDC debe tener %d dígitos, se recibieron %d", CDCLength, len(cdc))
	}
	if len(extractDigits(cdc)) != CDCLength {
		return fmt.Errorf("sifen: el CDC solo admite dígitos")
	}
	dv, err := ComputeCheckDigit(cdc[:CDCLength-1])
	if err != nil {
		return err
	}
	if got := int(cdc[CDCLength-1] - '0'); got != dv {
		return fmt.Errorf("sifen: dígito verificador del CDC inválido: esperado %d, recibido %d", dv, got)
	}
	return nil
}

// ValidateRUC valida un RUC con guion y dígito verificador ("80069563-1").
func ValidateRUC(ruc string) error {
	base, dv, found := strings.Cut(strings.TrimSpace(ruc), "-")
	if !found || base == "" || len(dv) != 1 {
		return fmt.Errorf("sifen: RUC %q debe tener el formato NNNNNNN-D", ruc)
	}
	expected, err := ComputeCheckDigit(base)
	if err != nil {
		return err
	}
	if int(dv[0]-'0') != expected {
		return fmt.Errorf("sifen: dígito verificador del RUC inválido: esperado %d, recibido %s", expected, dv)
	}
	return nil
}

// CDCParams campos que componen el CDC, en el orden del Manual Técnico.
type CDCParams struct {
	DocumentType    int       // iTiDE: 1 = factura electrónica
	IssuerRUC       string    // RUC del emisor con DV ("80069563-1")
	Establishment   string    // 3 dígitos
	ExpeditionPoint string    // 3 dígitos
	DocumentNumber  string    // 7 dígitos
	TaxpayerType    int       // 1 = persona física, 2 = jurídica
	IssueDate       time.Time
	EmissionType    int       // 1 = normal, 2 = contingencia
	SecurityCode    string    // 9 dígitos
}

// BuildCDC compone el CDC de 44 dígitos a partir de los parámetros.
func BuildCDC(p CDCParams) (string, error) {
	base, dv, found := strings.Cut(strings.TrimSpace(p.IssuerRUC), "-")
	if !found {
		return "", fmt.Errorf("sifen: RUC del emisor sin dígito verificador")
	}
	parts := []struct {
		name  string
		value string
		size  int
	}{
		{"tipo de documento", fmt.Sprintf("%02d", p.DocumentType), 2},
		{"RUC", leftPad(base, 8), 8},
		{"DV del RUC", dv, 1},
		{"establecimiento", leftPad(p.Establishment, 3), 3},
		{"punto de expedición", leftPad(p.ExpeditionPoint, 3), 3},
		{"número", leftPad(p.DocumentNumber, 7), 7},
		{"tipo de contribuyente", fmt.Sprintf("%d", p.TaxpayerType), 1},
		{"fecha de emisión", p.IssueDate.Format("20060102"), 8},
		{"tipo de emisión", fmt.Sprintf("%d", p.EmissionType), 1},
		{"código de seguridad", leftPad(p.SecurityCode, 9), 9},
	}
	var sb strings.Builder
	for _, part := range parts {
		if len(part.value) != part.size || len(extractDigits(part.value)) != part.size {
			return "", fmt.Errorf("sifen: %s inválido para el CDC: %q", part.name, part.value)
		}
		sb.WriteString(part.value)
	}
	checkDigit, err := ComputeCheckDigit(sb.String())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "%d", checkDigit)
	return sb.String(), nil
}

func leftPad(s string, size int) string {
	s = strings.TrimSpace(s)
	if len(s) >= size {
		return s
	}
	return strings.Repeat("0", size-len(s)) + s
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
