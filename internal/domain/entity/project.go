package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project proyecto de un cliente contra el que se emiten facturas.
// Es de solo lectura para el ciclo de vida de la factura.
type Project struct {
	ID             string
	Name           string
	ClientID       string
	ClientName     string
	ClientRUC      string // RUC o cédula del receptor del DE
	ClientEmail    string
	ReferencePrice decimal.Decimal // precio de referencia en USD
	CreatedAt      time.Time
}
