package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FixedRatePolicy convierte USD → PYG con una cotización fija tomada de la configuración
// al arrancar el proceso. El guaraní no tiene decimales: el resultado se redondea a Places
// (0 por defecto) con redondeo half-away-from-zero.
type FixedRatePolicy struct {
	Rate   decimal.Decimal
	Places int32
}

var _ ExchangeRatePolicy = FixedRatePolicy{}

// NewFixedRatePolicy construye la política; la cotización debe ser positiva.
func NewFixedRatePolicy(rate decimal.Decimal) (FixedRatePolicy, error) {
	if !rate.IsPositive() {
		return FixedRatePolicy{}, fmt.Errorf("cotización inválida: %s", rate.String())
	}
	return FixedRatePolicy{Rate: rate}, nil
}

// Convert implementa ExchangeRatePolicy.
func (p FixedRatePolicy) Convert(amount decimal.Decimal) (decimal.Decimal, error) {
	if !p.Rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("cotización no configurada")
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("el monto debe ser positivo")
	}
	total := amount.Mul(p.Rate).Round(p.Places)
	if !total.IsPositive() {
		return decimal.Zero, fmt.Errorf("el monto convertido %s no es positivo", total.String())
	}
	return total, nil
}
