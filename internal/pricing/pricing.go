// Package pricing computes per-block tax breakdowns, totals and service-cycle
// validity for contract line items. All functions are pure.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxInclusion says whether a block's selling price already embeds tax.
type TaxInclusion string

const (
	TaxInclusive TaxInclusion = "inclusive"
	TaxExclusive TaxInclusion = "exclusive"
)

// Valid reports whether the value is one of the known inclusion modes.
func (t TaxInclusion) Valid() bool {
	return t == TaxInclusive || t == TaxExclusive
}

// Tax is one tax line applied to a block (rate in percent, e.g. 18 for 18%).
type Tax struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

// TaxLine is the share of a block's per-unit tax attributed to one Tax.
type TaxLine struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Input carries everything needed to price one line item.
type Input struct {
	Price            float64
	CustomPrice      *float64
	Quantity         int
	Unlimited        bool
	Taxes            []Tax
	Inclusion        TaxInclusion
	ServiceCycleDays int
}

// Result is the derived pricing of a line item. Amounts are rounded to the
// minor currency unit.
type Result struct {
	EffectivePrice   float64   `json:"effective_price"`
	TaxRate          float64   `json:"tax_rate"`
	BasePrice        float64   `json:"base_price"`
	TaxAmount        float64   `json:"tax_amount"`
	UnitTotalWithTax float64   `json:"unit_total_with_tax"`
	BillableQuantity int       `json:"billable_quantity"`
	TotalPrice       float64   `json:"total_price"`
	TaxLines         []TaxLine `json:"tax_lines,omitempty"`

	SpanDays       int    `json:"span_days,omitempty"`
	CycleExceeds   bool   `json:"cycle_exceeds,omitempty"`
	CycleViolation string `json:"cycle_violation,omitempty"`
}

const minorUnits = 2

var hundred = decimal.NewFromInt(100)

// EffectivePrice returns the custom selling price when present, else the catalog price.
func EffectivePrice(price float64, custom *float64) float64 {
	if custom != nil {
		return *custom
	}
	return price
}

// CombinedRate sums the rates of all tax lines. Negative rates count as zero.
func CombinedRate(taxes []Tax) float64 {
	return combinedRate(taxes).InexactFloat64()
}

func combinedRate(taxes []Tax) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range taxes {
		sum = sum.Add(rateOf(t))
	}
	return sum
}

func rateOf(t Tax) decimal.Decimal {
	if t.Rate < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(t.Rate)
}

// Compute prices one line item against a contract duration. A zero duration
// disables the service-cycle span check.
func Compute(in Input, contract Duration) Result {
	eff := decimal.NewFromFloat(EffectivePrice(in.Price, in.CustomPrice))
	rate := combinedRate(in.Taxes)

	var base, tax, unitTotal decimal.Decimal
	switch in.Inclusion {
	case TaxInclusive:
		base = eff.Div(decimal.NewFromInt(1).Add(rate.Div(hundred)))
		tax = eff.Sub(base).Round(minorUnits)
		base = eff.Sub(tax)
		unitTotal = eff
	default:
		base = eff
		tax = eff.Mul(rate).Div(hundred).Round(minorUnits)
		unitTotal = eff.Add(tax)
	}

	qty := BillableQuantity(in.Quantity, in.Unlimited)
	res := Result{
		EffectivePrice:   eff.Round(minorUnits).InexactFloat64(),
		TaxRate:          rate.InexactFloat64(),
		BasePrice:        base.Round(minorUnits).InexactFloat64(),
		TaxAmount:        tax.InexactFloat64(),
		UnitTotalWithTax: unitTotal.Round(minorUnits).InexactFloat64(),
		BillableQuantity: qty,
		TotalPrice:       unitTotal.Mul(decimal.NewFromInt(int64(qty))).Round(minorUnits).InexactFloat64(),
		TaxLines:         apportion(in.Taxes, rate, tax),
	}

	span, exceeds, reason := CheckServiceCycle(in.Quantity, in.Unlimited, in.ServiceCycleDays, contract)
	res.SpanDays = span
	res.CycleExceeds = exceeds
	res.CycleViolation = reason
	return res
}

// BillableQuantity is the quantity used for invoicing. Unlimited items bill as
// one nominal unit and quantities below one are treated as one.
func BillableQuantity(quantity int, unlimited bool) int {
	if unlimited || quantity < 1 {
		return 1
	}
	return quantity
}

// apportion splits the per-unit tax across lines proportionally to their own
// rate. The last non-zero line absorbs the rounding remainder so the lines
// always add up to the aggregate.
func apportion(taxes []Tax, rate, total decimal.Decimal) []TaxLine {
	if len(taxes) == 0 {
		return nil
	}
	lines := make([]TaxLine, len(taxes))
	last := -1
	allocated := decimal.Zero
	for i, t := range taxes {
		lines[i] = TaxLine{ID: t.ID, Name: t.Name, Rate: t.Rate}
		r := rateOf(t)
		if rate.IsZero() || r.IsZero() {
			continue
		}
		amt := total.Mul(r).Div(rate).Round(minorUnits)
		lines[i].Amount = amt.InexactFloat64()
		allocated = allocated.Add(amt)
		last = i
	}
	if last >= 0 {
		diff := total.Sub(allocated)
		if !diff.IsZero() {
			lines[last].Amount = decimal.NewFromFloat(lines[last].Amount).Add(diff).InexactFloat64()
		}
	}
	return lines
}

// CheckServiceCycle computes the day span covered by a repeating block and
// whether it exceeds the contract duration. It only applies to finite items
// with more than one occurrence and a cycle interval.
func CheckServiceCycle(quantity int, unlimited bool, cycleDays int, contract Duration) (span int, exceeds bool, reason string) {
	if unlimited || cycleDays < 1 || quantity <= 1 {
		return 0, false, ""
	}
	span = (quantity - 1) * cycleDays
	limit := contract.Days()
	if limit > 0 && span > limit {
		reason = fmt.Sprintf("%d occurrences every %d days span %d days, exceeding the contract duration of %d days",
			quantity, cycleDays, span, limit)
		return span, true, reason
	}
	return span, false, ""
}

// Sum adds totals with decimal precision.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(minorUnits).InexactFloat64()
}
