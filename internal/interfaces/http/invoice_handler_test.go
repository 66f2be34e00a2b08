package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/excel"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/internal/mocks"
	pkgjwt "github.com/jhoicas/Facturacion-api/pkg/jwt"
	"github.com/jhoicas/Facturacion-api/pkg/sifen"
)

type apiFixture struct {
	app      *fiber.App
	gateway  *mocks.MockFiscalGateway
	store    *mocks.MockProofStore
	invoices *memory.InvoiceRepository
	token    string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	projects := memory.NewProjectRepository(&entity.Project{
		ID: "proj-1", Name: "Sitio corporativo", ClientID: "cli-1", ClientName: "Acme S.A.", ClientRUC: "80012345-6",
	})
	invoices := memory.NewInvoiceRepository(projects)
	gateway := mocks.NewMockFiscalGateway(ctrl)
	store := mocks.NewMockProofStore(ctrl)

	rate, err := billing.NewFixedRatePolicy(decimal.NewFromInt(7300))
	require.NoError(t, err)
	lifecycle := billing.NewInvoiceLifecycleManager(invoices, projects, gateway, rate,
		billing.LifecycleConfig{GatewayTimeout: time.Second}, zerolog.Nop())
	query := billing.NewInvoiceQueryUseCase(invoices, projects, billing.NewProofVerifier(), excel.NewInvoiceExporter())
	kude := billing.NewKuDEUseCase(invoices, projects, pdf.NewKuDEGenerator(pdf.Issuer{Name: "Emisor", RUC: "80069563-1"}))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Lifecycle:   lifecycle,
		Query:       query,
		ProofUpload: billing.NewProofUploadUseCase(invoices, store, lifecycle),
		KuDE:        kude,
		JWTSecret:   testJWTSecret,
		JWTIssuer:   testIssuer,
	})
	return &apiFixture{app: app, gateway: gateway, store: store, invoices: invoices, token: tokenForRole(t, pkgjwt.RoleAdmin)}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", f.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.send(t, req)
}

func (f *apiFixture) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (f *apiFixture) create(t *testing.T, amount string) dto.InvoiceResponse {
	t.Helper()
	resp, raw := f.do(t, http.MethodPost, "/admin/invoices", map[string]any{
		"projectId":   "proj-1",
		"description": "Desarrollo octubre",
		"amount":      amount,
		"dueDate":     time.Now().AddDate(0, 0, 10).Format(dto.DateLayout),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var inv dto.InvoiceResponse
	require.NoError(t, json.Unmarshal(raw, &inv))
	return inv
}

func (f *apiFixture) attachProof(t *testing.T, id string) {
	t.Helper()
	url := "https://files.example.com/" + id + "/comprobante.pdf"
	_, err := f.invoices.Patch(context.Background(), id, entity.InvoicePatch{ProofFileURL: &url}, []string{entity.InvoiceStatusPending})
	require.NoError(t, err)
}

func decodeError(t *testing.T, raw []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &e), string(raw))
	return e
}

func sifenDocument(t *testing.T) *billing.FiscalDocument {
	t.Helper()
	cdc, err := sifen.BuildCDC(sifen.CDCParams{
		DocumentType:    1,
		IssuerRUC:       "80069563-1",
		Establishment:   "1",
		ExpeditionPoint: "1",
		DocumentNumber:  "1",
		TaxpayerType:    2,
		IssueDate:       time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		EmissionType:    1,
		SecurityCode:    "123456789",
	})
	require.NoError(t, err)
	return &billing.FiscalDocument{CDC: cdc, QR: "https://ekuatia.set.gov.py/consultas/qr?Id=" + cdc}
}

func TestInvoiceAPI_SinToken(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/invoices", nil)
	resp, _ := f.send(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInvoiceAPI_CrearYListar(t *testing.T) {
	f := newAPIFixture(t)
	inv := f.create(t, "100.00")

	assert.Equal(t, "pending", inv.Status)
	assert.Equal(t, "001-001-0000001", inv.InvoiceNumber)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(730000)))
	assert.Equal(t, "Acme S.A.", inv.ClientName)

	resp, raw := f.do(t, http.MethodGet, "/admin/invoices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []dto.InvoiceResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, inv.ID, list[0].ID)

	resp, _ = f.do(t, http.MethodGet, "/admin/invoices/"+inv.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvoiceAPI_CrearValidaciones(t *testing.T) {
	f := newAPIFixture(t)
	tomorrow := time.Now().AddDate(0, 0, 1).Format(dto.DateLayout)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"monto cero", map[string]any{"projectId": "proj-1", "amount": "0", "dueDate": tomorrow}, 400, "VALIDATION"},
		{"monto negativo", map[string]any{"projectId": "proj-1", "amount": "-5", "dueDate": tomorrow}, 400, "VALIDATION"},
		{"monto bajo el centavo", map[string]any{"projectId": "proj-1", "amount": "0.001", "dueDate": tomorrow}, 400, "VALIDATION"},
		{"monto con tres decimales", map[string]any{"projectId": "proj-1", "amount": "100.005", "dueDate": tomorrow}, 400, "VALIDATION"},
		{"sin proyecto", map[string]any{"amount": "10", "dueDate": tomorrow}, 400, "VALIDATION"},
		{"fecha mal formada", map[string]any{"projectId": "proj-1", "amount": "10", "dueDate": "17/10/2026"}, 400, "VALIDATION"},
		{"fecha pasada", map[string]any{"projectId": "proj-1", "amount": "10", "dueDate": "2020-01-01"}, 400, "VALIDATION"},
		{"proyecto inexistente", map[string]any{"projectId": "nope", "amount": "10", "dueDate": tomorrow}, 404, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := f.do(t, http.MethodPost, "/admin/invoices", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(raw))
			assert.Equal(t, tt.code, decodeError(t, raw).Code)
		})
	}
}

func TestInvoiceAPI_Aprobar(t *testing.T) {
	f := newAPIFixture(t)
	inv := f.create(t, "100.00")
	f.attachProof(t, inv.ID)
	doc := sifenDocument(t)
	f.gateway.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(doc, nil)

	resp, raw := f.do(t, http.MethodPost, "/admin/invoices/"+inv.ID+"/approve", map[string]any{"paymentMethod": "transferencia"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var paid dto.InvoiceResponse
	require.NoError(t, json.Unmarshal(raw, &paid))
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, doc.CDC, paid.SifenCDC)
	assert.Equal(t, "transferencia", paid.PaymentMethod)
	assert.NotNil(t, paid.PaidDate)

	// Ya pagada: 409 sin segunda llamada al gateway.
	resp, raw = f.do(t, http.MethodPost, "/admin/invoices/"+inv.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_STATE", decodeError(t, raw).Code)

	resp, raw = f.do(t, http.MethodGet, "/admin/invoices/"+inv.ID+"/kude", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestInvoiceAPI_AprobarErrores(t *testing.T) {
	tests := []struct {
		name      string
		withProof bool
		gwErr     error
		status    int
		code      string
		retryable bool
	}{
		{"sin comprobante", false, nil, http.StatusUnprocessableEntity, "MISSING_PROOF", false},
		{"rechazada", true, domain.NewFiscalGatewayError(domain.GatewayRejected, "RUC inválido", nil), http.StatusBadGateway, "FISCAL_GATEWAY_REJECTED", false},
		{"no disponible", true, domain.NewFiscalGatewayError(domain.GatewayUnavailable, "503", nil), http.StatusServiceUnavailable, "FISCAL_GATEWAY_UNAVAILABLE", true},
		{"timeout", true, domain.NewFiscalGatewayError(domain.GatewayTimeout, "", nil), http.StatusServiceUnavailable, "FISCAL_GATEWAY_TIMEOUT", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			inv := f.create(t, "10")
			if tt.withProof {
				f.attachProof(t, inv.ID)
				f.gateway.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, tt.gwErr)
			}

			resp, raw := f.do(t, http.MethodPost, "/admin/invoices/"+inv.ID+"/approve", nil)
			assert.Equal(t, tt.status, resp.StatusCode, string(raw))
			e := decodeError(t, raw)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.retryable, e.Retryable)

			// La factura vuelve a pending.
			_, raw = f.do(t, http.MethodGet, "/admin/invoices/"+inv.ID, nil)
			var got dto.InvoiceResponse
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, "pending", got.Status)
		})
	}
}

func TestInvoiceAPI_ActualizarYCancelar(t *testing.T) {
	f := newAPIFixture(t)
	inv := f.create(t, "10")

	resp, raw := f.do(t, http.MethodPatch, "/admin/invoices/"+inv.ID, map[string]any{"amount": "20", "description": "Ajuste"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var updated dto.InvoiceResponse
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(146000)))
	assert.Equal(t, "Ajuste", updated.Description)

	resp, _ = f.do(t, http.MethodPatch, "/admin/invoices/"+inv.ID, map[string]any{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = f.do(t, http.MethodPatch, "/admin/invoices/"+inv.ID, map[string]any{"amount": "20.125"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, raw).Message, "decimales")

	resp, raw = f.do(t, http.MethodPost, "/admin/invoices/"+inv.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = f.do(t, http.MethodPatch, "/admin/invoices/"+inv.ID, map[string]any{"description": "otra"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, decodeError(t, raw).Message, "cancelled")

	resp, _ = f.do(t, http.MethodPost, "/admin/invoices/nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvoiceAPI_Comprobante(t *testing.T) {
	f := newAPIFixture(t)
	inv := f.create(t, "10")

	resp, raw := f.do(t, http.MethodGet, "/admin/invoices/"+inv.ID+"/proof", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(raw))

	url := fmt.Sprintf("https://files.example.com/%s/transfer.png", inv.ID)
	f.store.EXPECT().
		Save(gomock.Any(), inv.ID, "transfer.png", gomock.Any()).
		Return(&billing.StoredProof{URL: url, ContentType: "image/png"}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "transfer.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("paymentMethod", "transferencia"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/invoices/"+inv.ID+"/proof", &body)
	req.Header.Set("Authorization", f.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, raw = f.send(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var updated dto.InvoiceResponse
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, url, updated.ProofFileURL)
	assert.Equal(t, "transferencia", updated.PaymentMethod)

	resp, raw = f.do(t, http.MethodGet, "/admin/invoices/"+inv.ID+"/proof", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var proof dto.ProofResponse
	require.NoError(t, json.Unmarshal(raw, &proof))
	assert.Equal(t, "image", proof.Kind)
}

func TestInvoiceAPI_StatsExportYProyectos(t *testing.T) {
	f := newAPIFixture(t)
	f.create(t, "10")
	f.create(t, "20")

	resp, raw := f.do(t, http.MethodGet, "/admin/invoices/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats dto.InvoiceStatsResponse
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.True(t, stats.Revenue.IsZero())

	resp, raw = f.do(t, http.MethodGet, "/admin/invoices/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "xlsx es un zip")

	resp, raw = f.do(t, http.MethodGet, "/admin/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var projects []dto.ProjectResponse
	require.NoError(t, json.Unmarshal(raw, &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "Acme S.A.", projects[0].ClientName)

	resp, raw = f.do(t, http.MethodGet, "/admin/invoices/nope/kude", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, string(raw))
}
