package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrDuplicate     = errors.New("recurso duplicado")
	ErrUnauthorized  = errors.New("no autorizado")
	ErrForbidden     = errors.New("acceso denegado")
	ErrConflict      = errors.New("conflicto con el estado actual")
	ErrInvalidState  = errors.New("operación no permitida en el estado actual de la factura")
	ErrMissingProof  = errors.New("la factura no tiene comprobante de pago")
	ErrFiscalGateway = errors.New("error del servicio de facturación electrónica")
)

// InvalidStateError informa el estado actual de la factura que impidió la operación.
// Con ApprovalInProgress la factura tiene una aprobación en curso y Current es el estado
// previo a esa aprobación.
type InvalidStateError struct {
	Current            string
	ApprovalInProgress bool
}

func (e *InvalidStateError) Error() string {
	if e.ApprovalInProgress {
		return fmt.Sprintf("%s: aprobación de pago en curso", ErrInvalidState.Error())
	}
	return fmt.Sprintf("%s: estado actual %q", ErrInvalidState.Error(), e.Current)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NewInvalidStateError construye el error para el estado indicado.
func NewInvalidStateError(current string) error {
	return &InvalidStateError{Current: current}
}

// NewApprovalInProgressError la factura está siendo aprobada; previous es su estado visible.
func NewApprovalInProgressError(previous string) error {
	return &InvalidStateError{Current: previous, ApprovalInProgress: true}
}

// Tipos de falla del gateway fiscal.
const (
	GatewayRejected    = "rejected"    // validación rechazada por SIFEN, permanente
	GatewayTimeout     = "timeout"     // sin respuesta dentro del plazo
	GatewayUnavailable = "unavailable" // red caída o 5xx
	GatewayMalformed   = "malformed"   // respuesta ilegible o incompleta
)

// FiscalGatewayError envuelve la falla del gateway fiscal con su motivo upstream.
type FiscalGatewayError struct {
	Kind   string
	Reason string
	Err    error
}

func (e *FiscalGatewayError) Error() string {
	msg := fmt.Sprintf("%s (%s)", ErrFiscalGateway.Error(), e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap permite errors.Is(err, ErrFiscalGateway) y también llegar a la causa original.
func (e *FiscalGatewayError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFiscalGateway, e.Err}
	}
	return []error{ErrFiscalGateway}
}

// Retryable indica si el llamador puede reintentar más tarde (timeout / no disponible).
func (e *FiscalGatewayError) Retryable() bool {
	return e.Kind == GatewayTimeout || e.Kind == GatewayUnavailable
}

// NewFiscalGatewayError construye el error con su tipo y motivo.
func NewFiscalGatewayError(kind, reason string, cause error) *FiscalGatewayError {
	return &FiscalGatewayError{Kind: kind, Reason: reason, Err: cause}
}

// AsFiscalGatewayError extrae el FiscalGatewayError de una cadena de errores.
func AsFiscalGatewayError(err error) (*FiscalGatewayError, bool) {
	var gwErr *FiscalGatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}
