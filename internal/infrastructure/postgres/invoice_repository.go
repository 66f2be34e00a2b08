package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Todas las transiciones son UPDATE ... WHERE status = ...: la fila es el único árbitro
// entre procesos que aprueban la misma factura.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceSelect = `
	SELECT i.id, i.invoice_number, i.project_id, i.client_id, i.amount, i.total_amount,
	       i.status, i.due_date, i.paid_date, i.proof_file_url, i.payment_method,
	       i.sifen_cdc, i.sifen_qr, i.description, i.status_before_approval, i.approval_started_at,
	       i.created_at, i.updated_at,
	       COALESCE(p.name, ''), COALESCE(p.client_name, '')
	FROM invoices i
	LEFT JOIN projects p ON p.id = i.project_id`

// Create persiste la factura; el número sale de invoice_number_seq.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (id, invoice_number, project_id, client_id, amount, total_amount, status,
		                      due_date, proof_file_url, payment_method, description, created_at, updated_at)
		VALUES ($1, '001-001-' || lpad(nextval('invoice_number_seq')::text, 7, '0'),
		        $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING invoice_number, created_at, updated_at`
	createdAt := invoice.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	err := r.q.QueryRow(ctx, query,
		invoice.ID, invoice.ProjectID, invoice.ClientID, invoice.Amount, invoice.TotalAmount, invoice.Status,
		invoice.DueDate, nullIfEmpty(invoice.ProofFileURL), nullIfEmpty(invoice.PaymentMethod),
		invoice.Description, createdAt,
	).Scan(&invoice.InvoiceNumber, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: factura %s: %v", domain.ErrDuplicate, invoice.ID, err)
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: factura %s: %v", domain.ErrInvalidInput, invoice.ID, err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtiene la factura con nombres de proyecto y cliente; (nil, nil) si no existe
// o si id no es un UUID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	if !isInvoiceID(id) {
		return nil, nil
	}
	inv, err := scanInvoice(r.q.QueryRow(ctx, invoiceSelect+` WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// List todas las facturas, más recientes primero.
func (r *InvoiceRepo) List(ctx context.Context) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, invoiceSelect+` ORDER BY i.created_at DESC, i.invoice_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// Patch actualiza los campos presentes solo si el estado está en allowed.
func (r *InvoiceRepo) Patch(ctx context.Context, id string, patch entity.InvoicePatch, allowed []string) (*entity.Invoice, error) {
	if !isInvoiceID(id) {
		return nil, domain.ErrNotFound
	}
	query := `
		UPDATE invoices
		SET description    = COALESCE($3, description),
		    due_date       = COALESCE($4, due_date),
		    amount         = COALESCE($5, amount),
		    total_amount   = COALESCE($6, total_amount),
		    proof_file_url = COALESCE($7, proof_file_url),
		    payment_method = COALESCE($8, payment_method),
		    updated_at     = now()
		WHERE id = $1 AND status = ANY($2)`
	tag, err := r.q.Exec(ctx, query, id, allowed,
		patch.Description, patch.DueDate, patch.Amount, patch.TotalAmount,
		patch.ProofFileURL, patch.PaymentMethod,
	)
	if err != nil {
		if isCheckViolation(err) {
			return nil, fmt.Errorf("%w: factura %s: %v", domain.ErrInvalidInput, id, err)
		}
		return nil, fmt.Errorf("patch invoice: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	if tag.RowsAffected() == 0 {
		return nil, current.StateError()
	}
	return current, nil
}

// BeginApproval pending/overdue → approving, recordando el estado previo en la misma fila.
func (r *InvoiceRepo) BeginApproval(ctx context.Context, id string, at time.Time) (string, bool, error) {
	if !isInvoiceID(id) {
		return "", false, nil
	}
	query := `
		UPDATE invoices
		SET status_before_approval = status,
		    status                 = 'approving',
		    approval_started_at    = $2,
		    updated_at             = now()
		WHERE id = $1 AND status IN ('pending', 'overdue')
		RETURNING status_before_approval`
	var previous string
	err := r.q.QueryRow(ctx, query, id, at).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("begin approval: %w", err)
	}
	return previous, true, nil
}

// CompleteApproval approving → paid con CDC, QR y fecha de pago en una sola escritura.
func (r *InvoiceRepo) CompleteApproval(ctx context.Context, id string, result entity.ApprovalResult) (bool, error) {
	if !isInvoiceID(id) {
		return false, nil
	}
	query := `
		UPDATE invoices
		SET status                 = 'paid',
		    paid_date              = $2,
		    sifen_cdc              = $3,
		    sifen_qr               = $4,
		    payment_method         = COALESCE($5, payment_method),
		    status_before_approval = NULL,
		    approval_started_at    = NULL,
		    updated_at             = now()
		WHERE id = $1 AND status = 'approving'`
	tag, err := r.q.Exec(ctx, query, id, result.PaidDate, result.SifenCDC, result.SifenQR,
		nullIfEmpty(result.PaymentMethod))
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("%w: CDC %s ya registrado: %v", domain.ErrConflict, result.SifenCDC, err)
		}
		return false, fmt.Errorf("complete approval: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AbortApproval approving → estado previo.
func (r *InvoiceRepo) AbortApproval(ctx context.Context, id string) (bool, error) {
	if !isInvoiceID(id) {
		return false, nil
	}
	query := `
		UPDATE invoices
		SET status                 = status_before_approval,
		    status_before_approval = NULL,
		    approval_started_at    = NULL,
		    updated_at             = now()
		WHERE id = $1 AND status = 'approving'`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("abort approval: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TransitionStatus cambia el estado solo si el actual está en from.
func (r *InvoiceRepo) TransitionStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	if !isInvoiceID(id) {
		return false, nil
	}
	query := `UPDATE invoices SET status = $3, updated_at = now() WHERE id = $1 AND status = ANY($2)`
	tag, err := r.q.Exec(ctx, query, id, from, to)
	if err != nil {
		if isCheckViolation(err) {
			return false, fmt.Errorf("%w: transición a %s", domain.ErrInvalidInput, to)
		}
		return false, fmt.Errorf("transition invoice: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkOverdue pasa a overdue las facturas pending con due_date < today.
func (r *InvoiceRepo) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	query := `
		UPDATE invoices
		SET status = 'overdue', updated_at = now()
		WHERE status = 'pending' AND due_date < $1::date`
	tag, err := r.q.Exec(ctx, query, today.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ReleaseStaleApprovals revierte las marcas approving anteriores a olderThan.
func (r *InvoiceRepo) ReleaseStaleApprovals(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		UPDATE invoices
		SET status                 = status_before_approval,
		    status_before_approval = NULL,
		    approval_started_at    = NULL,
		    updated_at             = now()
		WHERE status = 'approving' AND approval_started_at < $1`
	tag, err := r.q.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("release stale approvals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ── helpers privados ──────────────────────────────────────────────────────────

// isInvoiceID la columna id es UUID: otro texto no puede identificar una factura.
func isInvoiceID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var proof, method, cdc, qr, before *string
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.ProjectID, &inv.ClientID, &inv.Amount, &inv.TotalAmount,
		&inv.Status, &inv.DueDate, &inv.PaidDate, &proof, &method,
		&cdc, &qr, &inv.Description, &before, &inv.ApprovalStartedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
		&inv.ProjectName, &inv.ClientName,
	)
	if err != nil {
		return nil, err
	}
	inv.ProofFileURL = derefStr(proof)
	inv.PaymentMethod = derefStr(method)
	inv.SifenCDC = derefStr(cdc)
	inv.SifenQR = derefStr(qr)
	inv.StatusBeforeApproval = derefStr(before)
	return &inv, nil
}
