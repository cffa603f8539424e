// Package contract holds the domain vocabulary shared by the wizard, the
// request mapper and the API client: wizard state, line items and the closed
// enumerations they are built from.
package contract

import (
	"time"

	"github.com/diewo77/go-contracts/internal/pricing"
)

// Path is how the user chose to start a contract.
type Path string

const (
	PathUnset    Path = ""
	PathTemplate Path = "template"
	PathScratch  Path = "scratch"
)

// Mode selects the flow: an ordinary contract with one buyer, or an RFQ sent to several vendors.
type Mode string

const (
	ModeContract Mode = "contract"
	ModeRFQ      Mode = "rfq"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeContract || m == ModeRFQ }

// AcceptanceMethod is how the counterparty accepts a contract.
type AcceptanceMethod string

const (
	AcceptanceUnset   AcceptanceMethod = ""
	AcceptancePayment AcceptanceMethod = "payment"
	AcceptanceSignoff AcceptanceMethod = "signoff"
	AcceptanceAuto    AcceptanceMethod = "auto"
)

// Valid reports whether a is a set, known method.
func (a AcceptanceMethod) Valid() bool {
	switch a {
	case AcceptancePayment, AcceptanceSignoff, AcceptanceAuto:
		return true
	}
	return false
}

// Cycle is a billing cycle, used both per block and for the contract as a whole.
type Cycle string

const (
	CyclePrepaid     Cycle = "prepaid"
	CyclePostpaid    Cycle = "postpaid"
	CycleMonthly     Cycle = "monthly"
	CycleFortnightly Cycle = "fortnightly"
	CycleQuarterly   Cycle = "quarterly"
	CycleCustom      Cycle = "custom"
)

// Valid reports whether c is a known cycle.
func (c Cycle) Valid() bool {
	switch c {
	case CyclePrepaid, CyclePostpaid, CycleMonthly, CycleFortnightly, CycleQuarterly, CycleCustom:
		return true
	}
	return false
}

// Type is the classification of the counterparty for ordinary contracts.
type Type string

const (
	TypeClient  Type = "client"
	TypeVendor  Type = "vendor"
	TypePartner Type = "partner"
)

// Valid reports whether t is a known contract type.
func (t Type) Valid() bool {
	return t == TypeClient || t == TypeVendor || t == TypePartner
}

// PaymentMode is how the contract total is collected.
type PaymentMode string

const (
	PaymentPrepaid PaymentMode = "prepaid"
	PaymentEMI     PaymentMode = "emi"
)

// Counterparty is a selected contact.
type Counterparty struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Details are the descriptive fields of the contract.
type Details struct {
	Name        string           `json:"name" yaml:"name"`
	Status      string           `json:"status,omitempty" yaml:"status"`
	Currency    string           `json:"currency" yaml:"currency"`
	Description string           `json:"description,omitempty" yaml:"description"`
	StartDate   time.Time        `json:"start_date,omitzero" yaml:"start_date"`
	Duration    pricing.Duration `json:"duration" yaml:"duration"`
	GracePeriod pricing.Duration `json:"grace_period,omitempty" yaml:"grace_period"`
}

// BillingView holds the billing-step selections.
type BillingView struct {
	TaxRateIDs          []string          `json:"tax_rate_ids,omitempty" yaml:"tax_rate_ids"`
	PaymentMode         PaymentMode       `json:"payment_mode,omitempty" yaml:"payment_mode"`
	EMIMonths           int               `json:"emi_months,omitempty" yaml:"emi_months"`
	PerBlockPaymentType map[string]string `json:"per_block_payment_type,omitempty" yaml:"per_block_payment_type"`
}

// State is the accumulated wizard input. It is owned by a single wizard
// controller; TotalValue and each block's derived fields are recomputed by
// that controller and never set directly.
type State struct {
	Path             Path             `json:"path"`
	Mode             Mode             `json:"mode"`
	TemplateID       string           `json:"template_id,omitempty"`
	Counterparties   []Counterparty   `json:"counterparties,omitempty"`
	Acceptance       AcceptanceMethod `json:"acceptance_method,omitempty"`
	Details          Details          `json:"details"`
	BillingCycleType Cycle            `json:"billing_cycle_type,omitempty"`
	Blocks           []LineItem       `json:"blocks"`
	TotalValue       float64          `json:"total_value"`
	Billing          BillingView      `json:"billing"`
}

// NewState returns an empty state for the given mode.
func NewState(mode Mode) State {
	if !mode.Valid() {
		mode = ModeContract
	}
	return State{Mode: mode, Details: Details{Currency: "INR"}}
}

// Clone returns a deep copy so callers can read state without aliasing the owner's slices.
func (s State) Clone() State {
	out := s
	out.Counterparties = append([]Counterparty(nil), s.Counterparties...)
	out.Blocks = make([]LineItem, len(s.Blocks))
	for i, b := range s.Blocks {
		out.Blocks[i] = b.Clone()
	}
	out.Billing.TaxRateIDs = append([]string(nil), s.Billing.TaxRateIDs...)
	if s.Billing.PerBlockPaymentType != nil {
		out.Billing.PerBlockPaymentType = make(map[string]string, len(s.Billing.PerBlockPaymentType))
		for k, v := range s.Billing.PerBlockPaymentType {
			out.Billing.PerBlockPaymentType[k] = v
		}
	}
	return out
}

// Block returns the block with the given id.
func (s State) Block(id string) (LineItem, bool) {
	for _, b := range s.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return LineItem{}, false
}

// Category is an asset/service category from master data.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Template is a reusable contract starting point.
type Template struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Blocks      []LineItem `json:"blocks,omitempty"`
}
