package sifen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	pkgsifen "github.com/jhoicas/Facturacion-api/pkg/sifen"
)

// SimulatedGateway emite documentos localmente (ambiente dev): calcula el CDC y el QR igual
// que el cliente real pero no hace llamadas de red.
type SimulatedGateway struct {
	issuer    Issuer
	qrBaseURL string
	latency   time.Duration
	log       zerolog.Logger
}

var _ billing.FiscalGateway = (*SimulatedGateway)(nil)

// NewSimulatedGateway construye el gateway simulado. latency emula la demora de SIFEN.
func NewSimulatedGateway(issuer Issuer, latency time.Duration, log zerolog.Logger) (*SimulatedGateway, error) {
	if err := pkgsifen.ValidateRUC(issuer.RUC); err != nil {
		return nil, fmt.Errorf("sifen: RUC del emisor: %w", err)
	}
	if issuer.CSC == "" {
		issuer.CSC = "ABCD0000000000000000000000000000" // CSC genérico del ambiente de pruebas
	}
	if issuer.CSCID == "" {
		issuer.CSCID = "0001"
	}
	return &SimulatedGateway{
		issuer:    issuer,
		qrBaseURL: DefaultQRBaseURL(EnvTest),
		latency:   latency,
		log:       log.With().Str("component", "sifen_simulated").Logger(),
	}, nil
}

// Issue respeta la cancelación del contexto durante la latencia simulada.
func (g *SimulatedGateway) Issue(ctx context.Context, req billing.FiscalRequest) (*billing.FiscalDocument, error) {
	if g.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, domain.NewFiscalGatewayError(domain.GatewayTimeout, "simulación interrumpida", ctx.Err())
		case <-time.After(g.latency):
		}
	}
	req.IssuedAt = issueTime(req.IssuedAt)

	cdc, err := buildCDC(g.issuer, req)
	if err != nil {
		return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, "datos del documento inválidos", err)
	}
	qr, err := pkgsifen.BuildQRURL(g.qrBaseURL, qrParams(req, cdc, "", g.issuer.CSCID), g.issuer.CSC)
	if err != nil {
		return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, "no se pudo generar el QR", err)
	}
	g.log.Info().Str("invoice_id", req.InvoiceID).Str("cdc", cdc).Msg("DE simulado emitido")
	return &billing.FiscalDocument{CDC: cdc, QR: qr}, nil
}
