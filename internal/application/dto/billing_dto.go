package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// DateLayout formato de fechas de calendario en la API.
const DateLayout = "2006-01-02"

// CreateInvoiceRequest body para POST /admin/invoices.
type CreateInvoiceRequest struct {
	ProjectID   string          `json:"projectId" validate:"required"`
	Description string          `json:"description" validate:"max=500"`
	Amount      decimal.Decimal `json:"amount" validate:"dgt0,dcents"`
	DueDate     string          `json:"dueDate" validate:"required,datetime=2006-01-02"`
}

// UpdateInvoiceRequest body para PATCH /admin/invoices/:id. Los campos ausentes no cambian.
type UpdateInvoiceRequest struct {
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	DueDate       *string          `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Amount        *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,dgt0,dcents"`
	ProofFileURL  *string          `json:"proofFileUrl,omitempty" validate:"omitempty,max=1024"`
	PaymentMethod *string          `json:"paymentMethod,omitempty" validate:"omitempty,max=100"`
}

// ApprovePaymentRequest body opcional para POST /admin/invoices/:id/approve.
type ApprovePaymentRequest struct {
	PaymentMethod string `json:"paymentMethod,omitempty" validate:"max=100"`
}

// InvoiceResponse factura para el dashboard (desnormalizada con cliente y proyecto).
type InvoiceResponse struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	ProjectID     string          `json:"projectId"`
	ProjectName   string          `json:"projectName,omitempty"`
	ClientID      string          `json:"clientId"`
	ClientName    string          `json:"clientName,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        string          `json:"status"`
	DueDate       string          `json:"dueDate"`
	PaidDate      *string         `json:"paidDate,omitempty"`
	ProofFileURL  string          `json:"proofFileUrl,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	SifenCDC      string          `json:"sifenCDC,omitempty"`
	SifenQR       string          `json:"sifenQR,omitempty"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ProjectResponse proyecto para GET /admin/projects.
type ProjectResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ClientID       string          `json:"clientId"`
	ClientName     string          `json:"clientName"`
	ReferencePrice decimal.Decimal `json:"price"`
}

// InvoiceStatsResponse respuesta de GET /admin/invoices/stats.
type InvoiceStatsResponse struct {
	Total   int             `json:"total"`
	Pending int             `json:"pending"`
	Paid    int             `json:"paid"`
	Revenue decimal.Decimal `json:"revenue"`
}

// ProofResponse comprobante resuelto para la vista de revisión.
type ProofResponse struct {
	URL  string `json:"url"`
	Kind string `json:"kind"` // pdf | image
}

// NewInvoiceResponse mapea la entidad a la respuesta HTTP.
func NewInvoiceResponse(inv *entity.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ProjectID:     inv.ProjectID,
		ProjectName:   inv.ProjectName,
		ClientID:      inv.ClientID,
		ClientName:    inv.ClientName,
		Amount:        inv.Amount,
		TotalAmount:   inv.TotalAmount,
		Status:        inv.PublicStatus(),
		DueDate:       inv.DueDate.Format(DateLayout),
		ProofFileURL:  inv.ProofFileURL,
		PaymentMethod: inv.PaymentMethod,
		SifenCDC:      inv.SifenCDC,
		SifenQR:       inv.SifenQR,
		Description:   inv.Description,
		CreatedAt:     inv.CreatedAt,
	}
	if inv.PaidDate != nil {
		paid := inv.PaidDate.Format(time.RFC3339)
		resp.PaidDate = &paid
	}
	return resp
}

// NewInvoiceListResponse mapea un listado de facturas.
func NewInvoiceListResponse(list []*entity.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, NewInvoiceResponse(inv))
	}
	return out
}

// NewProjectResponse mapea la entidad a la respuesta HTTP.
func NewProjectResponse(p *entity.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		ClientID:       p.ClientID,
		ClientName:     p.ClientName,
		ReferencePrice: p.ReferencePrice,
	}
}
