package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
)

// Converter turns an amount in a settlement currency into US dollars.
type Converter interface {
	ConvertToUSD(currency string, amount decimal.Decimal) (decimal.Decimal, error)
}

// StaticConverter converts with a fixed rate table loaded from configuration.
// Rates are expressed as USD per unit of the source currency.
type StaticConverter struct {
	rates map[string]decimal.Decimal
}

func NewStaticConverter(rates map[string]float64) *StaticConverter {
	c := &StaticConverter{rates: make(map[string]decimal.Decimal, len(rates))}
	for code, rate := range rates {
		c.rates[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}
	return c
}

func (c *StaticConverter) ConvertToUSD(currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	code := strings.ToUpper(currency)
	if code == "USD" {
		return amount, nil
	}
	rate, ok := c.rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domainErrors.ErrUnknownRate, currency)
	}
	return amount.Mul(rate).Round(2), nil
}
