package billing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// InvoiceStats agregados del dashboard de facturas.
type InvoiceStats struct {
	Total   int
	Pending int
	Paid    int
	Revenue decimal.Decimal // suma de TotalAmount de las facturas pagadas
}

// AggregateStats función pura sobre un lote de facturas; se recalcula en cada llamada.
// Una colección vacía devuelve todo en cero.
func AggregateStats(invoices []*entity.Invoice) InvoiceStats {
	stats := InvoiceStats{Revenue: decimal.Zero}
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		stats.Total++
		switch inv.PublicStatus() {
		case entity.InvoiceStatusPending:
			stats.Pending++
		case entity.InvoiceStatusPaid:
			stats.Paid++
			stats.Revenue = stats.Revenue.Add(inv.TotalAmount)
		}
	}
	return stats
}
