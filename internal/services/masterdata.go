package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/models"
	"github.com/diewo77/go-contracts/internal/pricing"
)

// MasterDataService serves the reference lists used by the wizard pickers.
type MasterDataService struct {
	db *gorm.DB
}

func NewMasterDataService(db *gorm.DB) *MasterDataService {
	return &MasterDataService{db: db}
}

func (s *MasterDataService) TaxRates(ctx context.Context, tenantID uint) ([]pricing.Tax, error) {
	var rows []models.TaxRate
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]pricing.Tax, len(rows))
	for i, r := range rows {
		out[i] = r.Tax()
	}
	return out, nil
}

func (s *MasterDataService) Categories(ctx context.Context, tenantID uint) ([]contract.Category, error) {
	var rows []models.Category
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]contract.Category, len(rows))
	for i, r := range rows {
		out[i] = contract.Category{ID: r.ID, Name: r.Name}
	}
	return out, nil
}

// Templates returns every template with its block snapshot. A template whose
// snapshot cannot be decoded is returned without blocks.
func (s *MasterDataService) Templates(ctx context.Context, tenantID uint) ([]contract.Template, error) {
	var rows []models.ContractTemplate
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]contract.Template, 0, len(rows))
	for _, r := range rows {
		t, err := r.Template()
		if err != nil {
			t = contract.Template{ID: r.ID, Name: r.Name, Description: r.Description, Currency: r.Currency}
		}
		out = append(out, t)
	}
	return out, nil
}

// Catalog returns the catalog blocks with their taxes resolved.
func (s *MasterDataService) Catalog(ctx context.Context, tenantID uint) ([]contract.LineItem, error) {
	db := s.db.WithContext(ctx)
	var rates []models.TaxRate
	if err := db.Where("tenant_id = ?", tenantID).Find(&rates).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.TaxRate, len(rates))
	for _, r := range rates {
		byID[r.ID] = r
	}
	var rows []models.CatalogBlock
	if err := db.Where("tenant_id = ?", tenantID).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]contract.LineItem, len(rows))
	for i, r := range rows {
		out[i] = r.LineItem(byID)
	}
	return out, nil
}
