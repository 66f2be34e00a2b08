package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice.
// Las transiciones de estado son escrituras condicionales (compare-and-swap sobre status):
// devuelven ok=false cuando el estado almacenado no coincide, sin modificar nada.
type InvoiceRepository interface {
	// Create persiste la factura y asigna ID (si viene vacío) e InvoiceNumber secuencial.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve (nil, nil) si la factura no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// List devuelve todas las facturas desnormalizadas con cliente y proyecto, más recientes primero.
	List(ctx context.Context) ([]*entity.Invoice, error)

	// Patch aplica los cambios solo si el estado actual está en allowed.
	// Retorna domain.ErrNotFound si no existe o *domain.InvalidStateError si el estado no lo permite.
	Patch(ctx context.Context, id string, patch entity.InvoicePatch, allowed []string) (*entity.Invoice, error)

	// BeginApproval mueve la factura de pending/overdue a approving y recuerda el estado previo.
	BeginApproval(ctx context.Context, id string, at time.Time) (previous string, ok bool, err error)
	// CompleteApproval confirma paid + paidDate + CDC + QR solo si sigue en approving.
	CompleteApproval(ctx context.Context, id string, result entity.ApprovalResult) (bool, error)
	// AbortApproval revierte approving al estado previo a la aprobación.
	AbortApproval(ctx context.Context, id string) (bool, error)

	// TransitionStatus cambia el estado solo si el actual está en from.
	TransitionStatus(ctx context.Context, id string, from []string, to string) (bool, error)

	// MarkOverdue pasa a overdue las facturas pending con vencimiento anterior a today.
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	// ReleaseStaleApprovals revierte las marcas approving iniciadas antes de olderThan.
	ReleaseStaleApprovals(ctx context.Context, olderThan time.Time) (int64, error)
}
