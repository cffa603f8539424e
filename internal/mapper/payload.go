// Package mapper turns a finished wizard state into the JSON payload accepted
// by the contract creation endpoint.
package mapper

// Payload is the creation request body. Fields that do not apply to the
// record type are omitted, never sent as null.
type Payload struct {
	RecordType  string `json:"record_type"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency"`
	StartDate   string `json:"start_date,omitempty"`
	TemplateID  string `json:"template_id,omitempty"`

	DurationValue    int    `json:"duration_value"`
	DurationUnit     string `json:"duration_unit"`
	GracePeriodValue int    `json:"grace_period_value,omitempty"`
	GracePeriodUnit  string `json:"grace_period_unit,omitempty"`

	AcceptanceMethod      string   `json:"acceptance_method,omitempty"`
	ContactID             string   `json:"contact_id,omitempty"`
	BuyerID               string   `json:"buyer_id,omitempty"`
	ContactClassification string   `json:"contact_classification,omitempty"`
	Vendors               []Vendor `json:"vendors,omitempty"`
	BillingCycleType      string   `json:"billing_cycle_type,omitempty"`

	Blocks []Block `json:"blocks"`

	TotalValue          float64  `json:"total_value"`
	SelectedTaxRateIDs  []string `json:"selected_tax_rate_ids,omitempty"`
	PaymentMode         string   `json:"payment_mode,omitempty"`
	EMIMonths           int      `json:"emi_months,omitempty"`
	PerBlockPaymentType string   `json:"per_block_payment_type,omitempty"`
}

// Vendor is one RFQ recipient.
type Vendor struct {
	VendorID              string `json:"vendor_id"`
	ContactID             string `json:"contact_id"`
	ContactClassification string `json:"contact_classification"`
	VendorName            string `json:"vendor_name"`
}

// Block is a flattened, position-indexed line item.
type Block struct {
	Position      int    `json:"position"`
	SourceType    string `json:"source_type"`
	SourceBlockID string `json:"source_block_id,omitempty"`
	FlyByType     string `json:"flyby_type,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	CategoryID    string `json:"category_id,omitempty"`
	CategoryName  string `json:"category_name,omitempty"`

	Quantity         int    `json:"quantity"`
	BillingCycle     string `json:"billing_cycle"`
	CustomCycleDays  int    `json:"custom_cycle_days,omitempty"`
	ServiceCycleDays int    `json:"service_cycle_days,omitempty"`

	UnitPrice    float64    `json:"unit_price"`
	SellingPrice float64    `json:"selling_price"`
	TaxInclusion string     `json:"tax_inclusion"`
	Taxes        []BlockTax `json:"taxes,omitempty"`
	TaxAmount    float64    `json:"tax_amount"`
	TotalPrice   float64    `json:"total_price"`

	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// BlockTax is a tax line with its per-unit amount.
type BlockTax struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Receipt is what the creation endpoint returns on success.
type Receipt struct {
	ID         string  `json:"id"`
	RecordType string  `json:"record_type"`
	TotalValue float64 `json:"total_value"`
}

// Custom field keys.
const (
	FieldClientBlockID = "client_block_id"
	FieldCurrency      = "currency"
	FieldUnlimited     = "unlimited"
	FieldConfig        = "config"
)

// Unlimited reads the unlimited flag back out of the custom fields bag.
func (b Block) Unlimited() bool {
	v, _ := b.CustomFields[FieldUnlimited].(bool)
	return v
}
