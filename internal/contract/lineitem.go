package contract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/diewo77/go-contracts/internal/pricing"
)

// Source records where a block came from.
type Source string

const (
	SourceUnknown Source = ""
	SourceCatalog Source = "catalog"
	SourceFlyBy   Source = "flyby"
)

// DefaultFlyByType is used for ad-hoc blocks that do not name a type.
const DefaultFlyByType = "service"

// LineItem is one block of a contract.
type LineItem struct {
	ID           string `json:"id" yaml:"id"`
	Source       Source `json:"source,omitempty" yaml:"source"`
	FlyByType    string `json:"flyby_type,omitempty" yaml:"flyby_type"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description"`
	CategoryID   string `json:"category_id,omitempty" yaml:"category_id"`
	CategoryName string `json:"category_name,omitempty" yaml:"category_name"`

	Quantity         int   `json:"quantity" yaml:"quantity"`
	Unlimited        bool  `json:"unlimited,omitempty" yaml:"unlimited"`
	Cycle            Cycle `json:"cycle" yaml:"cycle"`
	CustomCycleDays  int   `json:"custom_cycle_days,omitempty" yaml:"custom_cycle_days"`
	ServiceCycleDays int   `json:"service_cycle_days,omitempty" yaml:"service_cycle_days"`

	Price        float64              `json:"price" yaml:"price"`
	CustomPrice  *float64             `json:"custom_price,omitempty" yaml:"custom_price"`
	Taxes        []pricing.Tax        `json:"taxes,omitempty" yaml:"taxes"`
	TaxInclusion pricing.TaxInclusion `json:"tax_inclusion" yaml:"tax_inclusion"`

	Config map[string]any `json:"config,omitempty" yaml:"config"`

	// Derived by the owning controller.
	TotalPrice float64 `json:"total_price" yaml:"-"`
	Warning    string  `json:"warning,omitempty" yaml:"-"`
}

var flyBySeq atomic.Uint64

// NewCatalogItem creates a block selected from the catalog.
func NewCatalogItem(id, name string, price float64) LineItem {
	return LineItem{
		ID:           id,
		Source:       SourceCatalog,
		Name:         name,
		Quantity:     1,
		Cycle:        CyclePrepaid,
		Price:        price,
		TaxInclusion: pricing.TaxExclusive,
	}
}

// NewFlyByItem creates an ad-hoc block. Its id is never UUID-shaped.
func NewFlyByItem(flyByType, name string, price float64) LineItem {
	if strings.TrimSpace(flyByType) == "" {
		flyByType = DefaultFlyByType
	}
	return LineItem{
		ID:           "flyby-" + strconv.FormatUint(flyBySeq.Add(1), 10),
		Source:       SourceFlyBy,
		FlyByType:    flyByType,
		Name:         name,
		Quantity:     1,
		Cycle:        CyclePrepaid,
		Price:        price,
		TaxInclusion: pricing.TaxExclusive,
	}
}

var uuidShape = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsUUIDShaped reports whether id has the canonical 8-4-4-4-12 hex layout.
func IsUUIDShaped(id string) bool { return uuidShape.MatchString(id) }

// ResolvedSource returns the explicit source tag, or derives it from the id
// shape for blocks created without one.
func (li LineItem) ResolvedSource() Source {
	if li.Source != SourceUnknown {
		return li.Source
	}
	if IsUUIDShaped(li.ID) {
		return SourceCatalog
	}
	return SourceFlyBy
}

// PricingInput adapts the block to the pricing engine.
func (li LineItem) PricingInput() pricing.Input {
	return pricing.Input{
		Price:            li.Price,
		CustomPrice:      li.CustomPrice,
		Quantity:         li.Quantity,
		Unlimited:        li.Unlimited,
		Taxes:            li.Taxes,
		Inclusion:        li.TaxInclusion,
		ServiceCycleDays: li.ServiceCycleDays,
	}
}

// Quote prices the block against a contract duration.
func (li LineItem) Quote(d pricing.Duration) pricing.Result {
	return pricing.Compute(li.PricingInput(), d)
}

// SellingPrice is the custom price if set, otherwise the catalog price.
func (li LineItem) SellingPrice() float64 {
	return pricing.EffectivePrice(li.Price, li.CustomPrice)
}

// Normalize enforces the block invariants: quantity of at least one, no
// service cycle on unlimited blocks, custom cycle days only for custom cycles,
// and unique tax ids (first occurrence wins).
func (li LineItem) Normalize() LineItem {
	if li.Quantity < 1 {
		li.Quantity = 1
	}
	if li.Unlimited || li.ServiceCycleDays < 0 {
		li.ServiceCycleDays = 0
	}
	if li.Cycle != CycleCustom {
		li.CustomCycleDays = 0
	} else if li.CustomCycleDays < 1 {
		li.CustomCycleDays = 1
	}
	if li.TaxInclusion == "" {
		li.TaxInclusion = pricing.TaxExclusive
	}
	li.Taxes = dedupeTaxes(li.Taxes)
	return li
}

func dedupeTaxes(taxes []pricing.Tax) []pricing.Tax {
	if len(taxes) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(taxes))
	out := make([]pricing.Tax, 0, len(taxes))
	for _, t := range taxes {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

// Clone deep-copies the block.
func (li LineItem) Clone() LineItem {
	out := li
	out.Taxes = append([]pricing.Tax(nil), li.Taxes...)
	if li.CustomPrice != nil {
		p := *li.CustomPrice
		out.CustomPrice = &p
	}
	if li.Config != nil {
		out.Config = make(map[string]any, len(li.Config))
		for k, v := range li.Config {
			out.Config[k] = v
		}
	}
	return out
}

// ParseCycleDays coerces user-entered interval text at the input boundary.
// Empty text clears the interval; anything numeric is clamped to at least one;
// non-numeric text is rejected.
func ParseCycleDays(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, true
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
			return 0, false
		}
		if f < 1 {
			return 1, true
		}
		n = int(f)
	}
	if n < 1 {
		n = 1
	}
	return n, true
}
