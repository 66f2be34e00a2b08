package sifen

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	pkgsifen "github.com/jhoicas/Facturacion-api/pkg/sifen"
)

var testIssuer = Issuer{RUC: "80069563-1", Name: "Estudio Digital S.A.", CSCID: "0001", CSC: "ABCD0000000000000000000000000000"}

func testRequest() billing.FiscalRequest {
	return billing.FiscalRequest{
		InvoiceID:     "inv-1",
		InvoiceNumber: "001-001-0000042",
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "USD",
		TotalAmount:   decimal.NewFromInt(730000),
		DueDate:       time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC),
		IssuedAt:      time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		Description:   "Desarrollo etapa 1",
		Client:        billing.FiscalClient{ID: "c1", Name: "Acme S.A.", RUC: "80069563-1", Email: "pagos@acme.com.py"},
	}
}

func protResponse(cdc, estado, code, msg string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope"><env:Body>
<ns2:rRetEnviDe xmlns:ns2="http://ekuatia.set.gov.py/sifen/xsd"><ns2:rProtDe>
<ns2:Id>%s</ns2:Id><ns2:dFecProc>2026-10-17T09:30:05</ns2:dFecProc><ns2:dEstRes>%s</ns2:dEstRes>
<ns2:gResProc><ns2:dCodRes>%s</ns2:dCodRes><ns2:dMsgRes>%s</ns2:dMsgRes></ns2:gResProc>
</ns2:rProtDe></ns2:rRetEnviDe></env:Body></env:Envelope>`, cdc, estado, code, msg)
}

// echoServer responde con el CDC del DE recibido y el estado indicado.
func echoServer(t *testing.T, estado string, inspect func(*etree.Document)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, recibePath, r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromBytes(body))
		if inspect != nil {
			inspect(doc)
		}
		de := doc.FindElement("//DE")
		require.NotNil(t, de)
		_, _ = io.WriteString(w, protResponse(de.SelectAttrValue("Id", ""), estado, "0260", "Autorización del DE satisfactoria"))
	}))
}

func newTestClient(t *testing.T, baseURL string, timeout time.Duration, signer *Signer) *Client {
	t.Helper()
	c, err := NewClient(Config{Env: EnvTest, BaseURL: baseURL, Timeout: timeout, Issuer: testIssuer}, signer, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Estudio Digital S.A."},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func assertGatewayKind(t *testing.T, err error, kind string) {
	t.Helper()
	gwErr, ok := domain.AsFiscalGatewayError(err)
	require.True(t, ok, "se esperaba FiscalGatewayError, llegó %v", err)
	assert.Equal(t, kind, gwErr.Kind)
}

func TestClient_Aprobado(t *testing.T) {
	var received *etree.Document
	srv := echoServer(t, "Aprobado", func(doc *etree.Document) { received = doc })
	defer srv.Close()

	doc, err := newTestClient(t, srv.URL, time.Second, nil).Issue(context.Background(), testRequest())
	require.NoError(t, err)

	assert.NoError(t, pkgsifen.ValidateCDC(doc.CDC))
	assert.Equal(t, "800695631", doc.CDC[2:11])
	assert.Equal(t, "0010010000042", doc.CDC[11:24], "establecimiento, punto y número")
	assert.Contains(t, doc.QR, "Id="+doc.CDC)

	require.NotNil(t, received)
	assert.Equal(t, "730000", received.FindElement("//dTotalGs").Text())
	assert.Equal(t, "USD", received.FindElement("//cMoneOpe").Text())
	assert.Equal(t, "7300", received.FindElement("//dTiCam").Text())
	assert.Equal(t, "Acme S.A.", received.FindElement("//dNomRec").Text())
	assert.Equal(t, doc.QR, received.FindElement("//gCamFuFD/dCarQR").Text())
}

func TestClient_FirmaElDE(t *testing.T) {
	signer, err := NewSigner(selfSignedCert(t))
	require.NoError(t, err)

	srv := echoServer(t, "Aprobado", func(doc *etree.Document) {
		rde := doc.FindElement("//rDE")
		require.NotNil(t, rde)
		require.NotNil(t, rde.SelectElement("Signature"))
		assert.NoError(t, VerifyDigest(rde))
	})
	defer srv.Close()

	_, err = newTestClient(t, srv.URL, time.Second, signer).Issue(context.Background(), testRequest())
	require.NoError(t, err)
}

func TestClient_Rechazado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, protResponse("", "Rechazado", "1264", "RUC del receptor inexistente"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second, nil).Issue(context.Background(), testRequest())

	assertGatewayKind(t, err, domain.GatewayRejected)
	assert.Contains(t, err.Error(), "RUC del receptor inexistente")
}

func TestClient_ClasificaRespuestasHTTP(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   string
	}{
		{"error interno", http.StatusInternalServerError, "", domain.GatewayUnavailable},
		{"servicio caído", http.StatusServiceUnavailable, "mantenimiento", domain.GatewayUnavailable},
		{"solicitud inválida", http.StatusBadRequest, "<x><dMsgRes>XML mal formado</dMsgRes></x>", domain.GatewayRejected},
		{"cuerpo no XML", http.StatusOK, "no soy xml", domain.GatewayMalformed},
		{"sin protocolo", http.StatusOK, "<env:Envelope xmlns:env=\"x\"><env:Body/></env:Envelope>", domain.GatewayMalformed},
		{"estado desconocido", http.StatusOK, protResponse("", "Pendiente", "", ""), domain.GatewayMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, time.Second, nil).Issue(context.Background(), testRequest())
			assertGatewayKind(t, err, tt.kind)
		})
	}
}

func TestClient_CDCDistintoAlEnviado(t *testing.T) {
	other, err := pkgsifen.BuildCDC(pkgsifen.CDCParams{
		DocumentType: 1, IssuerRUC: "80069563-1", Establishment: "1", ExpeditionPoint: "1",
		DocumentNumber: "999", TaxpayerType: 2, IssueDate: time.Now(), EmissionType: 1, SecurityCode: "1",
	})
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, protResponse(other, "Aprobado", "0260", "ok"))
	}))
	defer srv.Close()

	_, err = newTestClient(t, srv.URL, time.Second, nil).Issue(context.Background(), testRequest())
	assertGatewayKind(t, err, domain.GatewayMalformed)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(t, srv.URL, 50*time.Millisecond, nil).Issue(context.Background(), testRequest())

	assertGatewayKind(t, err, domain.GatewayTimeout)
}

func TestClient_ServidorInalcanzable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, time.Second, nil).Issue(context.Background(), testRequest())

	assertGatewayKind(t, err, domain.GatewayUnavailable)
}

func TestClient_NumeroDeFacturaInvalido(t *testing.T) {
	req := testRequest()
	req.InvoiceNumber = "42"

	_, err := newTestClient(t, "http://127.0.0.1:1", time.Second, nil).Issue(context.Background(), req)

	assertGatewayKind(t, err, domain.GatewayRejected)
}

func TestNewClient_ProduccionExigeCertificado(t *testing.T) {
	_, err := NewClient(Config{Env: EnvProd, Issuer: testIssuer}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewClient(Config{Env: EnvTest, Issuer: Issuer{RUC: "123"}}, nil, zerolog.Nop())
	assert.Error(t, err, "RUC sin DV")
}

func TestSimulatedGateway_EmiteCDCValido(t *testing.T) {
	gw, err := NewSimulatedGateway(testIssuer, 0, zerolog.Nop())
	require.NoError(t, err)

	doc, err := gw.Issue(context.Background(), testRequest())
	require.NoError(t, err)
	assert.NoError(t, pkgsifen.ValidateCDC(doc.CDC))
	assert.Contains(t, doc.QR, qrURLTest)
}

func TestSimulatedGateway_RespetaElContexto(t *testing.T) {
	gw, err := NewSimulatedGateway(testIssuer, time.Second, zerolog.Nop())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = gw.Issue(ctx, testRequest())
	assertGatewayKind(t, err, domain.GatewayTimeout)
}
