package models

import (
	"time"

	"gorm.io/datatypes"
)

// Contract is a persisted contract or RFQ.
type Contract struct {
	Base
	TenantID              uint             `gorm:"index;not null" json:"tenant_id"`
	RecordType            string           `gorm:"size:20;not null" json:"record_type"`
	Name                  string           `gorm:"size:255;not null" json:"name"`
	Status                string           `gorm:"size:50;default:draft" json:"status"`
	Description           string           `gorm:"type:text" json:"description,omitempty"`
	Currency              string           `gorm:"size:3" json:"currency"`
	StartDate             *time.Time       `json:"start_date,omitempty"`
	TemplateID            string           `gorm:"size:36" json:"template_id,omitempty"`
	DurationValue         int              `json:"duration_value"`
	DurationUnit          string           `gorm:"size:10" json:"duration_unit"`
	GracePeriodValue      int              `json:"grace_period_value,omitempty"`
	GracePeriodUnit       string           `gorm:"size:10" json:"grace_period_unit,omitempty"`
	AcceptanceMethod      string           `gorm:"size:30" json:"acceptance_method,omitempty"`
	ContactID             string           `gorm:"size:64" json:"contact_id,omitempty"`
	ContactClassification string           `gorm:"size:20" json:"contact_classification,omitempty"`
	BillingCycleType      string           `gorm:"size:20" json:"billing_cycle_type,omitempty"`
	PaymentMode           string           `gorm:"size:20" json:"payment_mode,omitempty"`
	EMIMonths             int              `json:"emi_months,omitempty"`
	SelectedTaxRateIDs    datatypes.JSON   `json:"selected_tax_rate_ids,omitempty"`
	PerBlockPaymentType   datatypes.JSON   `json:"per_block_payment_type,omitempty"`
	TotalValue            float64          `gorm:"not null" json:"total_value"`
	Blocks                []ContractBlock  `gorm:"constraint:OnDelete:CASCADE" json:"blocks,omitempty"`
	Vendors               []ContractVendor `gorm:"constraint:OnDelete:CASCADE" json:"vendors,omitempty"`
}

func (c *Contract) GetTenantID() uint { return c.TenantID }

// ContractBlock is one flattened line item of a contract.
type ContractBlock struct {
	Base
	ContractID       string            `gorm:"size:36;index;not null" json:"contract_id"`
	Position         int               `gorm:"not null" json:"position"`
	SourceType       string            `gorm:"size:10;not null" json:"source_type"`
	SourceBlockID    string            `gorm:"size:36" json:"source_block_id,omitempty"`
	FlyByType        string            `gorm:"size:50" json:"flyby_type,omitempty"`
	Name             string            `gorm:"size:255;not null" json:"name"`
	Description      string            `gorm:"type:text" json:"description,omitempty"`
	CategoryID       string            `gorm:"size:36" json:"category_id,omitempty"`
	CategoryName     string            `gorm:"size:255" json:"category_name,omitempty"`
	Quantity         int               `gorm:"not null" json:"quantity"`
	Unlimited        bool              `json:"unlimited"`
	BillingCycle     string            `gorm:"size:20" json:"billing_cycle"`
	CustomCycleDays  int               `json:"custom_cycle_days,omitempty"`
	ServiceCycleDays int               `json:"service_cycle_days,omitempty"`
	UnitPrice        float64           `json:"unit_price"`
	SellingPrice     float64           `json:"selling_price"`
	TaxInclusion     string            `gorm:"size:10" json:"tax_inclusion"`
	Taxes            datatypes.JSON    `json:"taxes,omitempty"`
	TaxAmount        float64           `json:"tax_amount"`
	TotalPrice       float64           `json:"total_price"`
	CustomFields     datatypes.JSONMap `json:"custom_fields,omitempty"`
}

// ContractVendor is one vendor an RFQ was sent to.
type ContractVendor struct {
	Base
	ContractID            string `gorm:"size:36;index;not null" json:"contract_id"`
	VendorID              string `gorm:"size:64;not null" json:"vendor_id"`
	ContactID             string `gorm:"size:64" json:"contact_id"`
	ContactClassification string `gorm:"size:20" json:"contact_classification"`
	VendorName            string `gorm:"size:255" json:"vendor_name,omitempty"`
}
