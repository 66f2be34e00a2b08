package sifen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	pkgsifen "github.com/jhoicas/Facturacion-api/pkg/sifen"
)

// Config parámetros del cliente SIFEN.
type Config struct {
	Env       string
	BaseURL   string // vacío: URL por defecto del ambiente
	QRBaseURL string // vacío: URL por defecto del ambiente
	Timeout   time.Duration
	Issuer    Issuer
}

// Client implementa billing.FiscalGateway contra el servicio síncrono de recepción de SIFEN.
// Usa net/http; el timeout efectivo es el menor entre el del contexto y Config.Timeout.
type Client struct {
	cfg        Config
	httpClient *http.Client
	signer     *Signer // nil: se envía sin firmar (solo ambiente de pruebas)
	log        zerolog.Logger
}

var _ billing.FiscalGateway = (*Client)(nil)

// NewClient construye el cliente. signer puede ser nil en pruebas.
func NewClient(cfg Config, signer *Signer, log zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL(cfg.Env)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sifen: URL del servicio no configurada para el ambiente %q", cfg.Env)
	}
	if cfg.QRBaseURL == "" {
		cfg.QRBaseURL = DefaultQRBaseURL(cfg.Env)
	}
	if err := pkgsifen.ValidateRUC(cfg.Issuer.RUC); err != nil {
		return nil, fmt.Errorf("sifen: RUC del emisor: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if signer == nil && cfg.Env == EnvProd {
		return nil, fmt.Errorf("sifen: producción requiere certificado de firma")
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		signer:     signer,
		log:        log.With().Str("component", "sifen_client").Str("env", cfg.Env).Logger(),
	}, nil
}

// Issue arma, firma y envía el DE. Los errores devueltos son siempre *domain.FiscalGatewayError.
func (c *Client) Issue(ctx context.Context, req billing.FiscalRequest) (*billing.FiscalDocument, error) {
	req.IssuedAt = issueTime(req.IssuedAt)

	cdc, err := buildCDC(c.cfg.Issuer, req)
	if err != nil {
		return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, "datos del documento inválidos", err)
	}
	rde, err := buildRDE(c.cfg.Issuer, req, cdc)
	if err != nil {
		return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, "datos del documento inválidos", err)
	}

	digest := ""
	if c.signer != nil {
		if digest, err = c.signer.Sign(rde); err != nil {
			return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, "no se pudo firmar el documento", err)
		}
	}
	qr, err := pkgsifen.BuildQRURL(c.cfg.QRBaseURL, qrParams(req, cdc, digest, c.cfg.Issuer.CSCID), c.cfg.Issuer.CSC)
	if err != nil {
		return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, "no se pudo generar el QR", err)
	}
	appendQR(rde, qr)

	payload, err := buildEnvelope(req.InvoiceNumber, rde)
	if err != nil {
		return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, "serializar documento", err)
	}

	log := c.log.With().Str("invoice_id", req.InvoiceID).Str("cdc", cdc).Logger()
	log.Debug().Int("bytes", len(payload)).Msg("enviando DE a SIFEN")

	status, body, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	result, err := parseResponse(status, body)
	if err != nil {
		log.Warn().Err(err).Int("http_status", status).Msg("SIFEN no aprobó el DE")
		return nil, err
	}
	if result.CDC != cdc {
		return nil, domain.NewFiscalGatewayError(domain.GatewayMalformed,
			fmt.Sprintf("CDC de la respuesta %q no coincide con el enviado", result.CDC), nil)
	}

	log.Info().Str("code", result.Code).Msg("DE aprobado por SIFEN")
	return &billing.FiscalDocument{CDC: cdc, QR: qr}, nil
}

// ── helpers privados ──────────────────────────────────────────────────────────

func (c *Client) post(ctx context.Context, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+recibePath, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, domain.NewFiscalGatewayError(domain.GatewayUnavailable, "crear request", err)
	}
	httpReq.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return 0, nil, domain.NewFiscalGatewayError(domain.GatewayTimeout, "SIFEN no respondió a tiempo", err)
		}
		return 0, nil, domain.NewFiscalGatewayError(domain.GatewayUnavailable, "SIFEN no disponible", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, nil, domain.NewFiscalGatewayError(domain.GatewayTimeout, "respuesta incompleta de SIFEN", err)
		}
		return 0, nil, domain.NewFiscalGatewayError(domain.GatewayUnavailable, "leer respuesta de SIFEN", err)
	}
	return resp.StatusCode, body, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// buildEnvelope envuelve el rDE en rEnviDe dentro de un sobre SOAP 1.2.
func buildEnvelope(id string, rde *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("env:Envelope")
	env.CreateAttr("xmlns:env", NamespaceSOAP)
	env.CreateElement("env:Header")
	body := env.CreateElement("env:Body")
	envi := body.CreateElement("rEnviDe")
	envi.CreateAttr("xmlns", NamespaceSIFEN)
	envi.CreateElement("dId").SetText(strings.ReplaceAll(id, "-", ""))
	envi.CreateElement("xDE").AddChild(rde)
	return doc.WriteToBytes()
}

type responseResult struct {
	CDC     string
	Code    string
	Message string
}

// parseResponse clasifica la respuesta:
//   - HTTP 5xx                       → unavailable
//   - HTTP 4xx o dEstRes=Rechazado   → rejected
//   - cuerpo ilegible o sin Id       → malformed
func parseResponse(status int, body []byte) (*responseResult, error) {
	if status >= 500 {
		return nil, domain.NewFiscalGatewayError(domain.GatewayUnavailable,
			fmt.Sprintf("SIFEN respondió HTTP %d", status), nil)
	}

	doc := etree.NewDocument()
	parseErr := doc.ReadFromBytes(body)

	if status >= 400 {
		reason := fmt.Sprintf("SIFEN respondió HTTP %d", status)
		if parseErr == nil {
			if msg := findText(doc, "//dMsgRes", "//Reason/Text", "//faultstring"); msg != "" {
				reason += ": " + msg
			}
		}
		return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, reason, nil)
	}
	if parseErr != nil || doc.Root() == nil {
		return nil, domain.NewFiscalGatewayError(domain.GatewayMalformed, "respuesta no es XML", parseErr)
	}

	prot := doc.FindElement("//rProtDe")
	if prot == nil {
		if fault := findText(doc, "//Reason/Text", "//faultstring"); fault != "" {
			return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, fault, nil)
		}
		return nil, domain.NewFiscalGatewayError(domain.GatewayMalformed, "respuesta sin rProtDe", nil)
	}

	res := &responseResult{
		CDC:     strings.TrimSpace(childText(prot, "Id")),
		Code:    findText(doc, "//rProtDe/gResProc/dCodRes"),
		Message: findText(doc, "//rProtDe/gResProc/dMsgRes"),
	}
	estado := strings.TrimSpace(childText(prot, "dEstRes"))
	switch {
	case strings.EqualFold(estado, estadoRechazado):
		reason := "documento rechazado"
		if res.Message != "" {
			reason = fmt.Sprintf("%s (%s)", res.Message, res.Code)
		}
		return nil, domain.NewFiscalGatewayError(domain.GatewayRejected, reason, nil)
	case !strings.HasPrefix(estado, estadoAprobado):
		// "Aprobado" y "Aprobado con observación" son éxito; cualquier otro valor es inesperado.
		return nil, domain.NewFiscalGatewayError(domain.GatewayMalformed,
			fmt.Sprintf("estado de respuesta desconocido %q", estado), nil)
	}
	if err := pkgsifen.ValidateCDC(res.CDC); err != nil {
		return nil, domain.NewFiscalGatewayError(domain.GatewayMalformed, "CDC inválido en la respuesta", err)
	}
	return res, nil
}

func childText(el *etree.Element, tag string) string {
	if child := el.SelectElement(tag); child != nil {
		return child.Text()
	}
	return ""
}

func findText(doc *etree.Document, paths ...string) string {
	for _, p := range paths {
		if el := doc.FindElement(p); el != nil {
			if txt := strings.TrimSpace(el.Text()); txt != "" {
				return txt
			}
		}
	}
	return ""
}
