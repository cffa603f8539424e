package models

import (
	"gorm.io/datatypes"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/pricing"
)

// TaxRate is a named percentage, e.g. GST 18.
type TaxRate struct {
	Base
	TenantID uint    `gorm:"index;not null" json:"-"`
	Name     string  `gorm:"size:100;not null" json:"name"`
	Rate     float64 `gorm:"not null" json:"rate"`
}

func (t TaxRate) Tax() pricing.Tax {
	return pricing.Tax{ID: t.ID, Name: t.Name, Rate: t.Rate}
}

// Category is an asset or service category.
type Category struct {
	Base
	TenantID uint   `gorm:"index;not null" json:"-"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

// CatalogBlock is a predefined service or product that can be added to a contract.
type CatalogBlock struct {
	Base
	TenantID    uint           `gorm:"index;not null" json:"-"`
	CategoryID  string         `gorm:"size:36" json:"category_id,omitempty"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Price       float64        `gorm:"not null" json:"price"`
	Cycle       string         `gorm:"size:20;default:prepaid" json:"cycle"`
	TaxRateIDs  datatypes.JSON `json:"tax_rate_ids,omitempty"`
}

// LineItem converts the catalog entry into a wizard block. Taxes are
// resolved from rates by id; unknown ids are skipped.
func (b CatalogBlock) LineItem(rates map[string]TaxRate) contract.LineItem {
	li := contract.NewCatalogItem(b.ID, b.Name, b.Price)
	li.Description = b.Description
	li.CategoryID = b.CategoryID
	if b.Cycle != "" {
		li.Cycle = contract.Cycle(b.Cycle)
	}
	var ids []string
	_ = FromJSON(b.TaxRateIDs, &ids)
	for _, id := range ids {
		if r, ok := rates[id]; ok {
			li.Taxes = append(li.Taxes, r.Tax())
		}
	}
	return li
}

// ContractTemplate stores a snapshot of blocks to start contracts from.
type ContractTemplate struct {
	Base
	TenantID    uint           `gorm:"index;not null" json:"-"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Currency    string         `gorm:"size:3" json:"currency,omitempty"`
	Blocks      datatypes.JSON `json:"blocks,omitempty"`
}

func (t ContractTemplate) Template() (contract.Template, error) {
	out := contract.Template{ID: t.ID, Name: t.Name, Description: t.Description, Currency: t.Currency}
	if err := FromJSON(t.Blocks, &out.Blocks); err != nil {
		return contract.Template{}, err
	}
	return out, nil
}
