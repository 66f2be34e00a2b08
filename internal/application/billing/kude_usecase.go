package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// KuDEUseCase genera la representación gráfica (KuDE) del documento electrónico.
// Solo existe para facturas pagadas: antes de la aprobación no hay CDC ni QR.
type KuDEUseCase struct {
	invoiceRepo repository.InvoiceRepository
	projectRepo repository.ProjectRepository
	generator   InvoicePDFGenerator
}

// NewKuDEUseCase construye el caso de uso inyectando todas sus dependencias.
func NewKuDEUseCase(
	invoiceRepo repository.InvoiceRepository,
	projectRepo repository.ProjectRepository,
	generator InvoicePDFGenerator,
) *KuDEUseCase {
	return &KuDEUseCase{invoiceRepo: invoiceRepo, projectRepo: projectRepo, generator: generator}
}

// DownloadKuDE devuelve el PDF y el nombre sugerido del archivo.
//
// Retorna:
//   - domain.ErrNotFound            si la factura o su proyecto no existen.
//   - *domain.InvalidStateError     si la factura no está pagada.
func (uc *KuDEUseCase) DownloadKuDE(ctx context.Context, invoiceID string) (pdfBytes []byte, filename string, err error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("kude: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	if inv.Status != entity.InvoiceStatusPaid || inv.SifenCDC == "" {
		return nil, "", domain.NewInvalidStateError(inv.PublicStatus())
	}

	project, err := uc.projectRepo.GetByID(ctx, inv.ProjectID)
	if err != nil {
		return nil, "", fmt.Errorf("kude: obtener proyecto: %w", err)
	}
	if project == nil {
		return nil, "", domain.ErrNotFound
	}

	pdfBytes, err = uc.generator.GenerateKuDE(ctx, inv, project)
	if err != nil {
		return nil, "", fmt.Errorf("kude: generar PDF: %w", err)
	}
	return pdfBytes, fmt.Sprintf("KuDE_%s.pdf", inv.InvoiceNumber), nil
}
