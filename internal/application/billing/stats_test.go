package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

func TestAggregateStats_SumaSoloPagadas(t *testing.T) {
	invoices := []*entity.Invoice{
		{Status: entity.InvoiceStatusPaid, TotalAmount: decimal.NewFromInt(1000)},
		{Status: entity.InvoiceStatusPending, TotalAmount: decimal.NewFromInt(500)},
		{Status: entity.InvoiceStatusPaid, TotalAmount: decimal.NewFromInt(2000)},
	}

	stats := billing.AggregateStats(invoices)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 2, stats.Paid)
	assert.True(t, decimal.NewFromInt(3000).Equal(stats.Revenue), "revenue: %s", stats.Revenue)
}

func TestAggregateStats_ColeccionVacia(t *testing.T) {
	stats := billing.AggregateStats(nil)

	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.Paid)
	assert.True(t, stats.Revenue.IsZero())
}

func TestAggregateStats_VencidasYAnuladasNoCuentanComoPendientes(t *testing.T) {
	invoices := []*entity.Invoice{
		{Status: entity.InvoiceStatusOverdue, TotalAmount: decimal.NewFromInt(10)},
		{Status: entity.InvoiceStatusCancelled, TotalAmount: decimal.NewFromInt(10)},
		{Status: entity.InvoiceStatusApproving, StatusBeforeApproval: entity.InvoiceStatusPending},
	}

	stats := billing.AggregateStats(invoices)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending, "approving se informa con su estado previo")
	assert.Zero(t, stats.Paid)
}
