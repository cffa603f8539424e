package mapper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/pricing"
)

const dateLayout = "2006-01-02"

// WireAcceptance translates the wizard's acceptance vocabulary to the API's.
// The mapping is fixed: payment becomes manual, signoff becomes
// digital_signature and auto stays auto.
func WireAcceptance(m contract.AcceptanceMethod) (string, bool) {
	switch m {
	case contract.AcceptancePayment:
		return "manual", true
	case contract.AcceptanceSignoff:
		return "digital_signature", true
	case contract.AcceptanceAuto:
		return "auto", true
	}
	return "", false
}

// Build maps a wizard state to the creation payload. It never fails: the
// wizard guards ensure the state is complete before the final step.
func Build(s contract.State, ct contract.Type) Payload {
	d := s.Details
	p := Payload{
		RecordType:    string(s.Mode),
		Name:          strings.TrimSpace(d.Name),
		Title:         strings.TrimSpace(d.Name),
		Status:        d.Status,
		Description:   d.Description,
		Currency:      d.Currency,
		TemplateID:    s.TemplateID,
		DurationValue: d.Duration.Value,
		DurationUnit:  string(d.Duration.Unit),
	}
	if !d.StartDate.IsZero() {
		p.StartDate = d.StartDate.Format(dateLayout)
	}
	if d.GracePeriod.Value > 0 {
		p.GracePeriodValue = d.GracePeriod.Value
		p.GracePeriodUnit = string(d.GracePeriod.Unit)
	}

	switch s.Mode {
	case contract.ModeRFQ:
		p.Vendors = make([]Vendor, 0, len(s.Counterparties))
		for _, c := range s.Counterparties {
			p.Vendors = append(p.Vendors, Vendor{
				VendorID:              c.ID,
				ContactID:             c.ID,
				ContactClassification: string(contract.TypeVendor),
				VendorName:            c.Name,
			})
		}
	default:
		if m, ok := WireAcceptance(s.Acceptance); ok {
			p.AcceptanceMethod = m
		}
		if len(s.Counterparties) > 0 {
			p.ContactID = s.Counterparties[0].ID
			p.BuyerID = s.Counterparties[0].ID
		}
		if ct.Valid() {
			p.ContactClassification = string(ct)
		}
		p.BillingCycleType = string(s.BillingCycleType)
		p.SelectedTaxRateIDs = s.Billing.TaxRateIDs
		p.PaymentMode = string(s.Billing.PaymentMode)
		if s.Billing.PaymentMode == contract.PaymentEMI {
			p.EMIMonths = s.Billing.EMIMonths
		}
		p.PerBlockPaymentType = encodeMap(s.Billing.PerBlockPaymentType)
	}

	p.Blocks = make([]Block, 0, len(s.Blocks))
	totals := make([]float64, 0, len(s.Blocks))
	for i, li := range s.Blocks {
		b := BuildBlock(i, li, d.Currency, d.Duration)
		p.Blocks = append(p.Blocks, b)
		totals = append(totals, b.TotalPrice)
	}
	p.TotalValue = pricing.Sum(totals...)
	return p
}

// BuildBlock flattens one line item. Totals are recomputed from the item's
// inputs rather than trusted from the stored derived fields.
func BuildBlock(position int, li contract.LineItem, currency string, d pricing.Duration) Block {
	li = li.Normalize()
	q := li.Quote(d)

	b := Block{
		Position:         position,
		Name:             li.Name,
		Description:      li.Description,
		CategoryID:       li.CategoryID,
		CategoryName:     li.CategoryName,
		Quantity:         li.Quantity,
		BillingCycle:     string(li.Cycle),
		CustomCycleDays:  li.CustomCycleDays,
		ServiceCycleDays: li.ServiceCycleDays,
		UnitPrice:        li.Price,
		SellingPrice:     li.SellingPrice(),
		TaxInclusion:     string(li.TaxInclusion),
		TaxAmount:        q.TaxAmount,
		TotalPrice:       q.TotalPrice,
		CustomFields: map[string]any{
			FieldCurrency:  currency,
			FieldUnlimited: li.Unlimited,
		},
	}
	for _, l := range q.TaxLines {
		b.Taxes = append(b.Taxes, BlockTax{ID: l.ID, Name: l.Name, Rate: l.Rate, Amount: l.Amount})
	}
	if len(li.Config) > 0 {
		b.CustomFields[FieldConfig] = li.Config
	}

	switch li.ResolvedSource() {
	case contract.SourceCatalog:
		b.SourceType = string(contract.SourceCatalog)
		b.SourceBlockID = li.ID
	default:
		b.SourceType = string(contract.SourceFlyBy)
		b.FlyByType = li.FlyByType
		if b.FlyByType == "" {
			b.FlyByType = contract.DefaultFlyByType
		}
		b.CustomFields[FieldClientBlockID] = li.ID
	}
	return b
}

// Warnings lists non-fatal inconsistencies worth surfacing before submit.
func Warnings(s contract.State) []string {
	var out []string
	for i, li := range s.Blocks {
		if li.Source == contract.SourceCatalog && !contract.IsUUIDShaped(li.ID) {
			out = append(out, fmt.Sprintf("block %d (%s): catalog block id %q is not a UUID", i, li.Name, li.ID))
		}
		if li.Warning != "" {
			out = append(out, fmt.Sprintf("block %d (%s): %s", i, li.Name, li.Warning))
		}
	}
	return out
}

// encodeMap serializes the per-block payment map as a JSON string (keys
// sorted by encoding/json), or "" when empty.
func encodeMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(raw)
}
