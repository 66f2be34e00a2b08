// Package memory repositorios en memoria para desarrollo local y pruebas.
// Cada operación condicional se ejecuta bajo el mismo mutex, lo que la vuelve atómica
// igual que el UPDATE ... WHERE status = ... de Postgres.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// InvoiceNumberFormat establecimiento-punto-secuencia.
const InvoiceNumberFormat = "001-001-%07d"

// InvoiceRepository implementación en memoria de repository.InvoiceRepository.
type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[string]*entity.Invoice
	seq      atomic.Int64
	projects *ProjectRepository
	now      func() time.Time
}

// NewInvoiceRepository crea el repositorio. projects (opcional) desnormaliza nombres en List.
func NewInvoiceRepository(projects *ProjectRepository) *InvoiceRepository {
	return &InvoiceRepository{
		invoices: make(map[string]*entity.Invoice),
		projects: projects,
		now:      time.Now,
	}
}

// Create persiste una copia de la factura.
func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if _, exists := r.invoices[inv.ID]; exists {
		return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, inv.ID)
	}
	inv.InvoiceNumber = fmt.Sprintf(InvoiceNumberFormat, r.seq.Add(1))
	now := r.now()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now

	r.invoices[inv.ID] = clone(inv)
	return nil
}

// GetByID devuelve una copia; (nil, nil) si no existe.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	return r.denormalize(clone(inv)), nil
}

// List todas las facturas, más recientes primero.
func (r *InvoiceRepository) List(ctx context.Context) ([]*entity.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*entity.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, r.denormalize(clone(inv)))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].InvoiceNumber > out[j].InvoiceNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InvoiceRepository) Patch(ctx context.Context, id string, patch entity.InvoicePatch, allowed []string) (*entity.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !slices.Contains(allowed, inv.Status) {
		return nil, inv.StateError()
	}
	patch.Apply(inv)
	inv.UpdatedAt = r.now()
	return r.denormalize(clone(inv)), nil
}

func (r *InvoiceRepository) BeginApproval(ctx context.Context, id string, at time.Time) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || !inv.IsApprovable() {
		return "", false, nil
	}
	previous := inv.Status
	started := at
	inv.StatusBeforeApproval = previous
	inv.ApprovalStartedAt = &started
	inv.Status = entity.InvoiceStatusApproving
	inv.UpdatedAt = r.now()
	return previous, true, nil
}

func (r *InvoiceRepository) CompleteApproval(ctx context.Context, id string, result entity.ApprovalResult) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.Status != entity.InvoiceStatusApproving {
		return false, nil
	}
	paid := result.PaidDate
	inv.Status = entity.InvoiceStatusPaid
	inv.PaidDate = &paid
	inv.SifenCDC = result.SifenCDC
	inv.SifenQR = result.SifenQR
	if result.PaymentMethod != "" {
		inv.PaymentMethod = result.PaymentMethod
	}
	inv.StatusBeforeApproval = ""
	inv.ApprovalStartedAt = nil
	inv.UpdatedAt = r.now()
	return true, nil
}

func (r *InvoiceRepository) AbortApproval(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.Status != entity.InvoiceStatusApproving {
		return false, nil
	}
	r.revert(inv)
	return true, nil
}

func (r *InvoiceRepository) TransitionStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || !slices.Contains(from, inv.Status) {
		return false, nil
	}
	inv.Status = to
	inv.UpdatedAt = r.now()
	return true, nil
}

func (r *InvoiceRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invoices {
		if inv.Status == entity.InvoiceStatusPending && inv.DueDate.Before(today) {
			inv.Status = entity.InvoiceStatusOverdue
			inv.UpdatedAt = r.now()
			n++
		}
	}
	return n, nil
}

func (r *InvoiceRepository) ReleaseStaleApprovals(ctx context.Context, olderThan time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invoices {
		if inv.Status == entity.InvoiceStatusApproving &&
			inv.ApprovalStartedAt != nil && inv.ApprovalStartedAt.Before(olderThan) {
			r.revert(inv)
			n++
		}
	}
	return n, nil
}

// ── helpers privados ──────────────────────────────────────────────────────────

// revert requiere r.mu tomado.
func (r *InvoiceRepository) revert(inv *entity.Invoice) {
	previous := inv.StatusBeforeApproval
	if previous == "" {
		previous = entity.InvoiceStatusPending
	}
	inv.Status = previous
	inv.StatusBeforeApproval = ""
	inv.ApprovalStartedAt = nil
	inv.UpdatedAt = r.now()
}

func (r *InvoiceRepository) denormalize(inv *entity.Invoice) *entity.Invoice {
	if r.projects == nil {
		return inv
	}
	if p := r.projects.lookup(inv.ProjectID); p != nil {
		inv.ProjectName = p.Name
		inv.ClientName = p.ClientName
	}
	return inv
}

func clone(inv *entity.Invoice) *entity.Invoice {
	c := *inv
	if inv.PaidDate != nil {
		t := *inv.PaidDate
		c.PaidDate = &t
	}
	if inv.ApprovalStartedAt != nil {
		t := *inv.ApprovalStartedAt
		c.ApprovalStartedAt = &t
	}
	return &c
}
