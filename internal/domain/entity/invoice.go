package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// Estados de la factura de proyecto.
const (
	InvoiceStatusPending   = "pending"   // emitida, a la espera del pago
	InvoiceStatusOverdue   = "overdue"   // vencida (la marca el barrido periódico)
	InvoiceStatusPaid      = "paid"      // pago aprobado y documento SIFEN emitido
	InvoiceStatusCancelled = "cancelled" // anulada por un administrador

	// InvoiceStatusApproving es la marca intermedia mientras se llama a SIFEN.
	// Nunca se expone como estado final: la aprobación termina en paid o revierte.
	InvoiceStatusApproving = "approving"
)

// Invoice representa una factura emitida contra un proyecto de un cliente.
type Invoice struct {
	ID            string
	InvoiceNumber string // 001-001-0000001, asignado por el repositorio
	ProjectID     string
	ClientID      string
	Amount        decimal.Decimal // monto en USD
	TotalAmount   decimal.Decimal // monto en PYG, derivado de Amount al crear
	Status        string
	DueDate       time.Time
	PaidDate      *time.Time
	ProofFileURL  string
	PaymentMethod string
	SifenCDC      string // Código de Control del DE (44 dígitos)
	SifenQR       string // URL de verificación del DE
	Description   string

	// Control de la aprobación en curso (no se exponen por la API).
	StatusBeforeApproval string
	ApprovalStartedAt    *time.Time

	// Campos desnormalizados de solo lectura (join con projects).
	ProjectName string
	ClientName  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal indica si la factura ya no admite transiciones ni cambios.
func (i *Invoice) IsTerminal() bool {
	return IsTerminalStatus(i.Status)
}

// IsApprovable indica si el estado permite aprobar el pago (pending y overdue se tratan igual).
func (i *Invoice) IsApprovable() bool {
	return i.Status == InvoiceStatusPending || i.Status == InvoiceStatusOverdue
}

// HasProof indica si hay comprobante de pago cargado.
func (i *Invoice) HasProof() bool {
	return i.ProofFileURL != ""
}

// PublicStatus estado visible fuera del núcleo: durante una aprobación en curso se informa
// el estado previo, approving no es un estado de la API.
func (i *Invoice) PublicStatus() string {
	if i.Status == InvoiceStatusApproving && i.StatusBeforeApproval != "" {
		return i.StatusBeforeApproval
	}
	return i.Status
}

// StateError error de estado para la factura tal como se ve fuera del núcleo.
func (i *Invoice) StateError() error {
	if i.Status == InvoiceStatusApproving {
		return domain.NewApprovalInProgressError(i.PublicStatus())
	}
	return domain.NewInvalidStateError(i.Status)
}

// IsTerminalStatus paid y cancelled son terminales.
func IsTerminalStatus(status string) bool {
	return status == InvoiceStatusPaid || status == InvoiceStatusCancelled
}

// InvoicePatch cambios parciales permitidos sobre una factura no terminal.
// Un campo nil no se modifica. TotalAmount solo viaja junto con Amount.
type InvoicePatch struct {
	Description   *string
	DueDate       *time.Time
	Amount        *decimal.Decimal
	TotalAmount   *decimal.Decimal
	ProofFileURL  *string
	PaymentMethod *string
}

// IsEmpty indica si el patch no modifica nada.
func (p InvoicePatch) IsEmpty() bool {
	return p.Description == nil && p.DueDate == nil && p.Amount == nil &&
		p.TotalAmount == nil && p.ProofFileURL == nil && p.PaymentMethod == nil
}

// Apply copia los campos presentes del patch sobre la factura.
func (p InvoicePatch) Apply(inv *Invoice) {
	if p.Description != nil {
		inv.Description = *p.Description
	}
	if p.DueDate != nil {
		inv.DueDate = *p.DueDate
	}
	if p.Amount != nil {
		inv.Amount = *p.Amount
	}
	if p.TotalAmount != nil {
		inv.TotalAmount = *p.TotalAmount
	}
	if p.ProofFileURL != nil {
		inv.ProofFileURL = *p.ProofFileURL
	}
	if p.PaymentMethod != nil {
		inv.PaymentMethod = *p.PaymentMethod
	}
}

// ApprovalResult campos que se confirman juntos al aprobar el pago.
type ApprovalResult struct {
	PaidDate      time.Time
	SifenCDC      string
	SifenQR       string
	PaymentMethod string // opcional; vacío conserva el actual
}
