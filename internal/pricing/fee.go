package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goldshop/checkout/internal/currency"
)

// Product cost adjustments per unit, applied on top of the sell price.
var productMarkup = map[int64]decimal.Decimal{
	1: decimal.RequireFromString("0.02"),
	2: decimal.RequireFromString("0.01"),
}

// exoticSurchargeRate is deducted from the payment sum for currencies the
// shop cannot settle directly.
var exoticSurchargeRate = decimal.RequireFromString("0.03")

var directCurrencies = map[string]struct{}{
	"USD": {},
	"GBP": {},
	"EUR": {},
}

// ProfitInput carries everything needed to settle an order's margin.
type ProfitInput struct {
	PaymentSum decimal.Decimal
	Fee        decimal.Decimal
	SellPrice  decimal.Decimal
	Quantity   decimal.Decimal
	Currency   string
	ProductID  int64
}

// Calculator settles the shop's profit on a completed order in USD.
type Calculator struct {
	converter currency.Converter
}

func NewCalculator(converter currency.Converter) *Calculator {
	return &Calculator{converter: converter}
}

// Profit converts the payment sum and gateway fee to USD, then subtracts the
// fee and the unit cost of the goods sold. The unit cost is the sell price
// plus a per-product markup. Currencies outside the direct settlement set
// carry an extra conversion surcharge on the whole sum.
func (c *Calculator) Profit(in ProfitInput) (decimal.Decimal, error) {
	unitCost := in.SellPrice
	if markup, ok := productMarkup[in.ProductID]; ok {
		unitCost = unitCost.Add(markup)
	}

	code := strings.ToUpper(in.Currency)
	sum, fee := in.PaymentSum, in.Fee
	if code != "USD" {
		var err error
		if sum, err = c.converter.ConvertToUSD(code, sum); err != nil {
			return decimal.Zero, fmt.Errorf("convert payment sum: %w", err)
		}
		if fee, err = c.converter.ConvertToUSD(code, fee); err != nil {
			return decimal.Zero, fmt.Errorf("convert fee: %w", err)
		}
	}

	profit := sum.Sub(fee).Sub(in.Quantity.Mul(unitCost))
	if _, ok := directCurrencies[code]; !ok {
		profit = profit.Sub(sum.Mul(exoticSurchargeRate))
	}
	return profit.Round(2), nil
}
