// Package pdf genera el KuDE (representación gráfica del Documento Electrónico SIFEN) de una
// factura pagada.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RUC   │  N° Factura + Fecha pago    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECEPTOR: Cliente + RUC + email                            │
//	│  PROYECTO: nombre + vencimiento + forma de pago             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DETALLE: Descripción | Monto USD                           │
//	│  TOTALES: Total USD / Total Gs.                             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER SIFEN: CDC + QR + leyenda                           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/money"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// Issuer datos del emisor impresos en la cabecera.
type Issuer struct {
	Name string
	RUC  string
}

// KuDEGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type KuDEGenerator struct {
	issuer Issuer
}

var _ appbilling.InvoicePDFGenerator = (*KuDEGenerator)(nil)

// NewKuDEGenerator construye el generador.
func NewKuDEGenerator(issuer Issuer) *KuDEGenerator { return &KuDEGenerator{issuer: issuer} }

// GenerateKuDE genera el PDF y devuelve sus bytes.
func (g *KuDEGenerator) GenerateKuDE(_ context.Context, invoice *entity.Invoice, project *entity.Project) ([]byte, error) {
	if invoice.SifenCDC == "" {
		return nil, fmt.Errorf("pdf: la factura %s no tiene CDC", invoice.InvoiceNumber)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("KuDE "+invoice.InvoiceNumber, true).
		WithAuthor(g.issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(receptorRow(project))
	m.AddRows(projectRow(invoice, project))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(detailRows(invoice)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(invoice))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(sifenFooterRows(invoice)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *KuDEGenerator) headerRow(invoice *entity.Invoice) core.Row {
	fecha := "—"
	if invoice.PaidDate != nil {
		fecha = invoice.PaidDate.Format("02/01/2006")
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RUC: "+g.issuer.RUC, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FACTURA ELECTRÓNICA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.InvoiceNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha de pago: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func receptorRow(project *entity.Project) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(project.ClientName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("RUC: %s   |   Email: %s",
				nonEmpty(project.ClientRUC, "—"),
				nonEmpty(project.ClientEmail, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func projectRow(invoice *entity.Invoice, project *entity.Project) core.Row {
	return row.New(10).Add(
		col.New(6).Add(text.New("Proyecto: "+project.Name, props.Text{Size: 8, Top: 2})),
		col.New(3).Add(text.New("Vence: "+invoice.DueDate.Format("02/01/2006"), props.Text{Size: 8, Top: 2})),
		col.New(3).Add(text.New("Pago: "+nonEmpty(invoice.PaymentMethod, "—"), props.Text{
			Size: 8, Top: 2, Align: align.Right,
		})),
	)
}

func detailRows(invoice *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(7).Add(
			col.New(9).Add(text.New("Descripción", props.Text{Style: fontstyle.Bold, Size: 8, Top: 1})),
			col.New(3).Add(text.New("Monto", props.Text{Style: fontstyle.Bold, Size: 8, Top: 1, Align: align.Right})),
		),
	}
	desc := nonEmpty(invoice.Description, "Servicios del proyecto")
	for i, chunk := range splitEvery(desc, 90) {
		amount := ""
		if i == 0 {
			amount = money.FormatUSD(invoice.Amount)
		}
		rows = append(rows, row.New(6).Add(
			col.New(9).Add(text.New(chunk, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(3).Add(text.New(amount, props.Text{Size: 8, Top: 1, Align: align.Right, Right: 1})),
		))
	}
	return rows
}

func totalsRow(invoice *entity.Invoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(16).Add(
		col.New(6),
		col.New(3).Add(
			label("Total USD:"),
			text.New("TOTAL A PAGAR:", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 6,
			}),
		),
		col.New(3).Add(
			value(money.FormatUSD(invoice.Amount)),
			text.New(money.FormatPYG(invoice.TotalAmount), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 6,
			}),
		),
	)
}

// sifenFooterRows CDC agrupado de a 4 dígitos + QR + leyenda.
func sifenFooterRows(invoice *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("CDC (Código de Control):", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New(strings.Join(splitEvery(invoice.SifenCDC, 4), " "), props.Text{
				Size: 8, Color: colorGray, Top: 0.5, Left: 2,
			}),
		)),
		row.New(3),
	}

	if invoice.SifenQR != "" {
		rows = append(rows, row.New(50).Add(
			col.New(4).Add(code.NewQr(invoice.SifenQR, props.Rect{Percent: 95, Center: true})),
			col.New(8).Add(
				text.New("Consulte la validez de esta factura electrónica\nescaneando el código QR en e-Kuatia.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("KuDE de FACTURA ELECTRÓNICA", props.Text{
					Style: fontstyle.Bold, Size: 10, Top: 22, Left: 3, Color: colorPrimary,
				}),
			),
		))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Este documento es una representación gráfica de un Documento Electrónico (XML) "+
				"aprobado por SIFEN. Conserve este documento como soporte fiscal.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// splitEvery divide s en trozos de max n runas.
func splitEvery(s string, n int) []string {
	r := []rune(s)
	var parts []string
	for len(r) > n {
		parts = append(parts, string(r[:n]))
		r = r[n:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}
