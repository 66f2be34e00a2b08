package billing

import (
	"context"
	"fmt"
	"io"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// InvoiceQueryUseCase lecturas del dashboard: listados, estadísticas, comprobante y exportación.
// No modifica facturas.
type InvoiceQueryUseCase struct {
	invoiceRepo repository.InvoiceRepository
	projectRepo repository.ProjectRepository
	verifier    *ProofVerifier
	exporter    InvoiceExporter
}

// NewInvoiceQueryUseCase construye el caso de uso.
func NewInvoiceQueryUseCase(
	invoiceRepo repository.InvoiceRepository,
	projectRepo repository.ProjectRepository,
	verifier *ProofVerifier,
	exporter InvoiceExporter,
) *InvoiceQueryUseCase {
	return &InvoiceQueryUseCase{
		invoiceRepo: invoiceRepo,
		projectRepo: projectRepo,
		verifier:    verifier,
		exporter:    exporter,
	}
}

// ListInvoices todas las facturas, desnormalizadas con cliente y proyecto.
func (uc *InvoiceQueryUseCase) ListInvoices(ctx context.Context) ([]*entity.Invoice, error) {
	list, err := uc.invoiceRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar facturas: %w", err)
	}
	return list, nil
}

// GetInvoice obtiene una factura por ID.
func (uc *InvoiceQueryUseCase) GetInvoice(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

// ListProjects proyectos disponibles para facturar.
func (uc *InvoiceQueryUseCase) ListProjects(ctx context.Context) ([]*entity.Project, error) {
	list, err := uc.projectRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar proyectos: %w", err)
	}
	return list, nil
}

// Stats recalcula los agregados sobre el listado actual.
func (uc *InvoiceQueryUseCase) Stats(ctx context.Context) (InvoiceStats, error) {
	list, err := uc.ListInvoices(ctx)
	if err != nil {
		return InvoiceStats{}, err
	}
	return AggregateStats(list), nil
}

// DescribeProof resuelve el comprobante de la factura.
func (uc *InvoiceQueryUseCase) DescribeProof(ctx context.Context, id string) (*ProofDescription, error) {
	inv, err := uc.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.verifier.Describe(inv)
}

// Export escribe la planilla con todas las facturas.
func (uc *InvoiceQueryUseCase) Export(ctx context.Context, w io.Writer) error {
	list, err := uc.ListInvoices(ctx)
	if err != nil {
		return err
	}
	if err := uc.exporter.Export(ctx, list, w); err != nil {
		return fmt.Errorf("exportar facturas: %w", err)
	}
	return nil
}
