package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/pricing"
)

func contractState() contract.State {
	s := contract.NewState(contract.ModeContract)
	s.Path = contract.PathScratch
	s.Acceptance = contract.AcceptanceAuto
	s.Counterparties = []contract.Counterparty{{ID: "c1", Name: "Acme"}}
	s.Details.Name = "MSA-2025"
	s.Details.Duration = pricing.Duration{Value: 12, Unit: pricing.UnitMonths}
	s.BillingCycleType = contract.CycleMonthly
	s.Blocks = []contract.LineItem{{
		ID:           "flyby-1",
		Name:         "Support",
		Price:        1000,
		Quantity:     2,
		Taxes:        []pricing.Tax{{ID: "gst", Name: "GST", Rate: 18}},
		TaxInclusion: pricing.TaxExclusive,
		Cycle:        contract.CycleMonthly,
	}}
	return s
}

func decode(t *testing.T, p Payload) map[string]any {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestWireAcceptance(t *testing.T) {
	tests := []struct {
		in   contract.AcceptanceMethod
		want string
		ok   bool
	}{
		{contract.AcceptancePayment, "manual", true},
		{contract.AcceptanceSignoff, "digital_signature", true},
		{contract.AcceptanceAuto, "auto", true},
		{contract.AcceptanceUnset, "", false},
		{"email", "", false},
	}
	for _, tt := range tests {
		got, ok := WireAcceptance(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.ok, ok)
	}
}

func TestBuildContract(t *testing.T) {
	s := contractState()
	p := Build(s, contract.TypeClient)

	want := Payload{
		RecordType:            "contract",
		Name:                  "MSA-2025",
		Title:                 "MSA-2025",
		Currency:              "INR",
		DurationValue:         12,
		DurationUnit:          "months",
		AcceptanceMethod:      "auto",
		ContactID:             "c1",
		BuyerID:               "c1",
		ContactClassification: "client",
		BillingCycleType:      "monthly",
		Blocks: []Block{{
			Position:     0,
			SourceType:   "flyby",
			FlyByType:    contract.DefaultFlyByType,
			Name:         "Support",
			Quantity:     2,
			BillingCycle: "monthly",
			UnitPrice:    1000,
			SellingPrice: 1000,
			TaxInclusion: "exclusive",
			Taxes:        []BlockTax{{ID: "gst", Name: "GST", Rate: 18, Amount: 180}},
			TaxAmount:    180,
			TotalPrice:   2360,
			CustomFields: map[string]any{
				FieldCurrency:      "INR",
				FieldUnlimited:     false,
				FieldClientBlockID: "flyby-1",
			},
		}},
		TotalValue: 2360,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOmitsInapplicableFieldsForRFQ(t *testing.T) {
	s := contractState()
	s.Mode = contract.ModeRFQ
	s.Acceptance = contract.AcceptancePayment
	s.Counterparties = []contract.Counterparty{{ID: "v1", Name: "Vendor One"}, {ID: "v2", Name: "Vendor Two"}}
	s.Billing = contract.BillingView{PaymentMode: contract.PaymentEMI, EMIMonths: 6}

	m := decode(t, Build(s, contract.TypeClient))
	for _, key := range []string{"acceptance_method", "billing_cycle_type", "contact_id", "buyer_id", "contact_classification", "payment_mode", "emi_months"} {
		_, present := m[key]
		assert.False(t, present, "key %q must be omitted for rfq", key)
	}
	assert.Equal(t, "rfq", m["record_type"])
	vendors, ok := m["vendors"].([]any)
	require.True(t, ok)
	require.Len(t, vendors, 2)
	first := vendors[0].(map[string]any)
	assert.Equal(t, "v1", first["vendor_id"])
	assert.Equal(t, "v1", first["contact_id"])
	assert.Equal(t, "vendor", first["contact_classification"])
	assert.Equal(t, "Vendor One", first["vendor_name"])
}

func TestBuildAcceptanceMappingInPayload(t *testing.T) {
	for in, want := range map[contract.AcceptanceMethod]string{
		contract.AcceptancePayment: "manual",
		contract.AcceptanceSignoff: "digital_signature",
		contract.AcceptanceAuto:    "auto",
	} {
		s := contractState()
		s.Acceptance = in
		assert.Equal(t, want, Build(s, contract.TypeVendor).AcceptanceMethod)
	}
}

func TestBuildCatalogBlock(t *testing.T) {
	id := uuid.NewString()
	s := contractState()
	s.Details.Currency = "EUR"
	s.Blocks = []contract.LineItem{{ID: id, Name: "Audit", Price: 50, Quantity: 1, Unlimited: true, Config: map[string]any{"sla": "gold"}}}

	b := Build(s, contract.TypeClient).Blocks[0]
	assert.Equal(t, "catalog", b.SourceType)
	assert.Equal(t, id, b.SourceBlockID)
	assert.Empty(t, b.FlyByType)
	assert.NotContains(t, b.CustomFields, FieldClientBlockID)
	assert.Equal(t, "EUR", b.CustomFields[FieldCurrency])
	assert.True(t, b.Unlimited())
	assert.Equal(t, map[string]any{"sla": "gold"}, b.CustomFields[FieldConfig])
}

func TestBuildFlyByOmitsSourceBlockID(t *testing.T) {
	s := contractState()
	m := decode(t, Build(s, contract.TypeClient))
	block := m["blocks"].([]any)[0].(map[string]any)
	_, present := block["source_block_id"]
	assert.False(t, present)
	assert.Equal(t, "flyby-1", block["custom_fields"].(map[string]any)[FieldClientBlockID])
}

func TestBuildBillingFields(t *testing.T) {
	s := contractState()
	s.Details.StartDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	s.Details.GracePeriod = pricing.Duration{Value: 15, Unit: pricing.UnitDays}
	s.Billing = contract.BillingView{
		TaxRateIDs:          []string{"gst"},
		PaymentMode:         contract.PaymentEMI,
		EMIMonths:           3,
		PerBlockPaymentType: map[string]string{"flyby-1": "emi", "b0": "prepaid"},
	}
	p := Build(s, contract.TypePartner)
	assert.Equal(t, "2025-04-01", p.StartDate)
	assert.Equal(t, 15, p.GracePeriodValue)
	assert.Equal(t, "days", p.GracePeriodUnit)
	assert.Equal(t, []string{"gst"}, p.SelectedTaxRateIDs)
	assert.Equal(t, "emi", p.PaymentMode)
	assert.Equal(t, 3, p.EMIMonths)
	assert.Equal(t, `{"b0":"prepaid","flyby-1":"emi"}`, p.PerBlockPaymentType)
	assert.Equal(t, "partner", p.ContactClassification)

	s.Billing.PaymentMode = contract.PaymentPrepaid
	assert.Zero(t, Build(s, contract.TypePartner).EMIMonths)
}

func TestBuildRecomputesTotals(t *testing.T) {
	s := contractState()
	s.Blocks[0].TotalPrice = 1 // stale derived value
	s.TotalValue = 1
	p := Build(s, contract.TypeClient)
	assert.Equal(t, 2360.0, p.Blocks[0].TotalPrice)
	assert.Equal(t, 2360.0, p.TotalValue)
}

func TestWarnings(t *testing.T) {
	s := contractState()
	s.Blocks = append(s.Blocks,
		contract.LineItem{ID: "SKU-1", Name: "Legacy", Source: contract.SourceCatalog},
		contract.LineItem{ID: uuid.NewString(), Name: "Visits", Warning: "too long"},
	)
	w := Warnings(s)
	require.Len(t, w, 2)
	assert.Contains(t, w[0], "is not a UUID")
	assert.Contains(t, w[1], "too long")
}
