// Package excel exporta el listado de facturas a una planilla .xlsx.
package excel

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// SheetName hoja única de la exportación.
const SheetName = "Facturas"

var headers = []any{
	"Número", "Proyecto", "Cliente", "Estado", "Monto USD", "Total Gs.",
	"Vencimiento", "Fecha de pago", "Forma de pago", "CDC", "Descripción",
}

// InvoiceExporter implementa billing.InvoiceExporter con excelize.
type InvoiceExporter struct{}

var _ appbilling.InvoiceExporter = (*InvoiceExporter)(nil)

// NewInvoiceExporter construye el exportador.
func NewInvoiceExporter() *InvoiceExporter { return &InvoiceExporter{} }

// Export escribe una fila por factura. Los montos se guardan como números para que la
// planilla pueda sumarlos; el formato visual lo da el estilo de la columna.
func (e *InvoiceExporter) Export(ctx context.Context, invoices []*entity.Invoice, w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("renombrar hoja: %w", err)
	}
	if err := file.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("escribir encabezado: %w", err)
	}
	headerStyle, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("estilo encabezado: %w", err)
	}
	if err := file.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("aplicar estilo: %w", err)
	}

	for i, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := invoiceRow(inv)
		if err := file.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("escribir fila %d: %w", i+2, err)
		}
	}

	if len(invoices) > 0 {
		usd, err := file.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
		if err != nil {
			return err
		}
		pyg, err := file.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
		if err != nil {
			return err
		}
		last := len(invoices) + 1
		if err := file.SetCellStyle(SheetName, "E2", fmt.Sprintf("E%d", last), usd); err != nil {
			return err
		}
		if err := file.SetCellStyle(SheetName, "F2", fmt.Sprintf("F%d", last), pyg); err != nil {
			return err
		}
	}
	if err := file.SetColWidth(SheetName, "J", "J", 48); err != nil {
		return err
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("escribir planilla: %w", err)
	}
	return nil
}

func invoiceRow(inv *entity.Invoice) []any {
	usd, _ := inv.Amount.Float64()
	pyg := inv.TotalAmount.Round(0).IntPart()
	paid := ""
	if inv.PaidDate != nil {
		paid = inv.PaidDate.Format("2006-01-02")
	}
	return []any{
		inv.InvoiceNumber,
		inv.ProjectName,
		inv.ClientName,
		inv.PublicStatus(),
		usd,
		pyg,
		inv.DueDate.Format("2006-01-02"),
		paid,
		inv.PaymentMethod,
		inv.SifenCDC,
		inv.Description,
	}
}
