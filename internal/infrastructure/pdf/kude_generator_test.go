package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

func TestGenerateKuDE_GeneraPDF(t *testing.T) {
	paid := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	inv := &entity.Invoice{
		InvoiceNumber: "001-001-0000042",
		Amount:        decimal.RequireFromString("100.00"),
		TotalAmount:   decimal.NewFromInt(730000),
		Status:        entity.InvoiceStatusPaid,
		DueDate:       paid.AddDate(0, 0, 10),
		PaidDate:      &paid,
		SifenCDC:      "01800695631001001000004222026101711234567890",
		SifenQR:       "https://ekuatia.set.gov.py/consultas/qr?nVersion=150",
		Description:   "Desarrollo etapa 1",
	}
	project := &entity.Project{Name: "Sitio corporativo", ClientName: "Acme S.A.", ClientRUC: "80069563-1"}

	out, err := NewKuDEGenerator(Issuer{Name: "Estudio Digital S.A.", RUC: "80069563-1"}).
		GenerateKuDE(context.Background(), inv, project)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateKuDE_SinCDC(t *testing.T) {
	_, err := NewKuDEGenerator(Issuer{}).GenerateKuDE(context.Background(), &entity.Invoice{}, &entity.Project{})
	assert.Error(t, err)
}

func TestSplitEvery(t *testing.T) {
	assert.Equal(t, []string{"0180", "0695", "63"}, splitEvery("0180069563", 4))
	assert.Empty(t, splitEvery("", 4))
	assert.Equal(t, []string{"añ", "o"}, splitEvery("año", 2))
}
