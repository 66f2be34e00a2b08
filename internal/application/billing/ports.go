package billing

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// FiscalGateway puerto de salida hacia SIFEN (SET Paraguay).
// Issue es síncrono para el llamador: termina con el documento emitido o con error
// antes de retornar. Los errores deberían ser *domain.FiscalGatewayError; cualquier
// otro error se clasifica como timeout o no disponible.
type FiscalGateway interface {
	Issue(ctx context.Context, req FiscalRequest) (*FiscalDocument, error)
}

// FiscalRequest datos del documento electrónico a emitir.
type FiscalRequest struct {
	InvoiceID     string
	InvoiceNumber string
	Amount        decimal.Decimal // monto en la moneda de referencia
	Currency      string          // "USD"
	TotalAmount   decimal.Decimal // monto en guaraníes
	DueDate       time.Time
	IssuedAt      time.Time
	Description   string
	Client        FiscalClient
}

// FiscalClient identidad del receptor del documento.
type FiscalClient struct {
	ID    string
	Name  string
	RUC   string
	Email string
}

// FiscalDocument respuesta de SIFEN: CDC de 44 dígitos y URL del QR de verificación.
type FiscalDocument struct {
	CDC string
	QR  string
}

// ExchangeRatePolicy convierte el monto en USD al monto en moneda local.
// Se inyecta para que un cambio de fuente de cotización o de redondeo no toque la máquina de estados.
type ExchangeRatePolicy interface {
	Convert(amount decimal.Decimal) (decimal.Decimal, error)
}

// ProofStore almacén externo de comprobantes de pago.
type ProofStore interface {
	// Save guarda el archivo y devuelve la referencia recuperable y el content type detectado.
	Save(ctx context.Context, invoiceID, filename string, content io.Reader) (*StoredProof, error)
}

// StoredProof referencia devuelta por el ProofStore.
type StoredProof struct {
	URL         string
	ContentType string
}

// InvoicePDFGenerator genera la representación gráfica (KuDE) de una factura pagada.
type InvoicePDFGenerator interface {
	GenerateKuDE(ctx context.Context, invoice *entity.Invoice, project *entity.Project) ([]byte, error)
}

// InvoiceExporter escribe el listado de facturas en una planilla.
type InvoiceExporter interface {
	Export(ctx context.Context, invoices []*entity.Invoice, w io.Writer) error
}
