package billing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// ProofUploadUseCase guarda el archivo del comprobante y lo asocia a la factura vía Update.
type ProofUploadUseCase struct {
	invoiceRepo repository.InvoiceRepository
	store       ProofStore
	lifecycle   *InvoiceLifecycleManager
}

// NewProofUploadUseCase construye el caso de uso.
func NewProofUploadUseCase(invoiceRepo repository.InvoiceRepository, store ProofStore, lifecycle *InvoiceLifecycleManager) *ProofUploadUseCase {
	return &ProofUploadUseCase{invoiceRepo: invoiceRepo, store: store, lifecycle: lifecycle}
}

// Upload valida que la factura acepte cambios antes de escribir el archivo, para no dejar
// archivos huérfanos de facturas pagadas o anuladas. paymentMethod vacío no se modifica.
func (uc *ProofUploadUseCase) Upload(ctx context.Context, invoiceID, filename string, content io.Reader, paymentMethod string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("subir comprobante: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.IsTerminal() {
		return nil, inv.StateError()
	}

	stored, err := uc.store.Save(ctx, invoiceID, filename, content)
	if err != nil {
		return nil, err
	}

	req := dto.UpdateInvoiceRequest{ProofFileURL: &stored.URL}
	if method := strings.TrimSpace(paymentMethod); method != "" {
		req.PaymentMethod = &method
	}
	return uc.lifecycle.Update(ctx, invoiceID, req)
}
