package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/mapper"
	"github.com/diewo77/go-contracts/internal/models"
	"github.com/diewo77/go-contracts/internal/pricing"
	"github.com/diewo77/go-contracts/validation"
)

const dateLayout = "2006-01-02"

var (
	recordTypes     = []string{string(contract.ModeContract), string(contract.ModeRFQ)}
	durationUnits   = []string{string(pricing.UnitDays), string(pricing.UnitMonths), string(pricing.UnitYears)}
	wireAcceptance  = []string{"manual", "digital_signature", "auto"}
	classifications = []string{string(contract.TypeClient), string(contract.TypeVendor), string(contract.TypePartner)}
	sourceTypes     = []string{string(contract.SourceCatalog), string(contract.SourceFlyBy)}
	inclusions      = []string{string(pricing.TaxInclusive), string(pricing.TaxExclusive)}
	cycles          = []string{
		string(contract.CyclePrepaid), string(contract.CyclePostpaid), string(contract.CycleMonthly),
		string(contract.CycleFortnightly), string(contract.CycleQuarterly), string(contract.CycleCustom),
	}
)

type ContractService struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewContractService(db *gorm.DB, logger *log.Logger) *ContractService {
	return &ContractService{db: db, logger: logger}
}

// ValidatePayload checks field presence and vocabulary for the payload's
// record type. Contract-only fields must be absent on RFQs and vice versa.
func ValidatePayload(p mapper.Payload) validation.Violations {
	v := validation.Violations{}
	validation.Required("record_type", p.RecordType, v)
	validation.OneOf("record_type", p.RecordType, recordTypes, v)
	validation.Required("name", p.Name, v)
	validation.Required("currency", p.Currency, v)
	validation.PositiveInt("duration_value", p.DurationValue, v)
	validation.Required("duration_unit", p.DurationUnit, v)
	validation.OneOf("duration_unit", p.DurationUnit, durationUnits, v)
	if p.GracePeriodValue > 0 {
		validation.OneOf("grace_period_unit", p.GracePeriodUnit, durationUnits, v)
	}
	if p.StartDate != "" {
		if _, err := time.Parse(dateLayout, p.StartDate); err != nil {
			v.Add("start_date", "invalid_date")
		}
	}

	switch contract.Mode(p.RecordType) {
	case contract.ModeContract:
		validation.Required("contact_id", p.ContactID, v)
		validation.Required("acceptance_method", p.AcceptanceMethod, v)
		validation.OneOf("acceptance_method", p.AcceptanceMethod, wireAcceptance, v)
		validation.OneOf("contact_classification", p.ContactClassification, classifications, v)
		validation.OneOf("billing_cycle_type", p.BillingCycleType, cycles, v)
		validation.Absent("vendors", len(p.Vendors) > 0, v)
		if p.PaymentMode == string(contract.PaymentEMI) {
			validation.PositiveInt("emi_months", p.EMIMonths, v)
		}
		if p.PerBlockPaymentType != "" && !json.Valid([]byte(p.PerBlockPaymentType)) {
			v.Add("per_block_payment_type", "invalid_json")
		}
	case contract.ModeRFQ:
		if len(p.Vendors) == 0 {
			v.Add("vendors", "required")
		}
		for i, vd := range p.Vendors {
			validation.Required(fmt.Sprintf("vendors[%d].vendor_id", i), vd.VendorID, v)
		}
		validation.Absent("acceptance_method", p.AcceptanceMethod != "", v)
		validation.Absent("contact_id", p.ContactID != "", v)
		validation.Absent("payment_mode", p.PaymentMode != "", v)
	}

	if len(p.Blocks) == 0 {
		v.Add("blocks", "required")
	}
	for i, b := range p.Blocks {
		f := func(name string) string { return fmt.Sprintf("blocks[%d].%s", i, name) }
		validation.Required(f("name"), b.Name, v)
		validation.PositiveInt(f("quantity"), b.Quantity, v)
		validation.Required(f("source_type"), b.SourceType, v)
		validation.OneOf(f("source_type"), b.SourceType, sourceTypes, v)
		validation.OneOf(f("billing_cycle"), b.BillingCycle, cycles, v)
		validation.OneOf(f("tax_inclusion"), b.TaxInclusion, inclusions, v)
		validation.NonNegativeFloat(f("selling_price"), b.SellingPrice, v)
		switch contract.Source(b.SourceType) {
		case contract.SourceCatalog:
			validation.Required(f("source_block_id"), b.SourceBlockID, v)
			validation.UUID(f("source_block_id"), b.SourceBlockID, v)
		case contract.SourceFlyBy:
			validation.Required(f("flyby_type"), b.FlyByType, v)
		}
		if b.BillingCycle == string(contract.CycleCustom) {
			validation.PositiveInt(f("custom_cycle_days"), b.CustomCycleDays, v)
		}
		for j, t := range b.Taxes {
			validation.RangeFloat(fmt.Sprintf("blocks[%d].taxes[%d].rate", i, j), t.Rate, 0, 100, v)
		}
	}
	return v
}

// QuoteBlock reprices a submitted block from its inputs.
func QuoteBlock(b mapper.Block, d pricing.Duration) pricing.Result {
	taxes := make([]pricing.Tax, len(b.Taxes))
	for i, t := range b.Taxes {
		taxes[i] = pricing.Tax{ID: t.ID, Name: t.Name, Rate: t.Rate}
	}
	return pricing.Compute(pricing.Input{
		Price:            b.SellingPrice,
		Quantity:         b.Quantity,
		Unlimited:        b.Unlimited(),
		Taxes:            taxes,
		Inclusion:        pricing.TaxInclusion(b.TaxInclusion),
		ServiceCycleDays: b.ServiceCycleDays,
	}, d)
}

// Create validates p, reprices every block and persists the record with
// its blocks and vendors in one transaction. Client totals are never trusted.
func (s *ContractService) Create(ctx context.Context, tenantID uint, p mapper.Payload) (mapper.Receipt, error) {
	if v := ValidatePayload(p); !v.Empty() {
		return mapper.Receipt{}, &ValidationError{Violations: v}
	}

	d := pricing.Duration{Value: p.DurationValue, Unit: pricing.DurationUnit(p.DurationUnit)}
	c := models.Contract{
		TenantID:              tenantID,
		RecordType:            p.RecordType,
		Name:                  strings.TrimSpace(p.Name),
		Status:                p.Status,
		Description:           p.Description,
		Currency:              p.Currency,
		TemplateID:            p.TemplateID,
		DurationValue:         p.DurationValue,
		DurationUnit:          p.DurationUnit,
		GracePeriodValue:      p.GracePeriodValue,
		GracePeriodUnit:       p.GracePeriodUnit,
		AcceptanceMethod:      p.AcceptanceMethod,
		ContactID:             p.ContactID,
		ContactClassification: p.ContactClassification,
		BillingCycleType:      p.BillingCycleType,
		PaymentMode:           p.PaymentMode,
		EMIMonths:             p.EMIMonths,
	}
	if c.Status == "" {
		c.Status = "draft"
	}
	if p.StartDate != "" {
		sd, _ := time.Parse(dateLayout, p.StartDate)
		c.StartDate = &sd
	}
	if len(p.SelectedTaxRateIDs) > 0 {
		c.SelectedTaxRateIDs = models.ToJSON(p.SelectedTaxRateIDs)
	}
	if p.PerBlockPaymentType != "" {
		c.PerBlockPaymentType = datatypes.JSON(p.PerBlockPaymentType)
	}

	totals := make([]float64, 0, len(p.Blocks))
	for i, b := range p.Blocks {
		q := QuoteBlock(b, d)
		if q.CycleExceeds {
			s.logf("contract block cycle warning block=%d name=%q reason=%q", i, b.Name, q.CycleViolation)
		}
		lines := make([]mapper.BlockTax, len(q.TaxLines))
		for j, l := range q.TaxLines {
			lines[j] = mapper.BlockTax{ID: l.ID, Name: l.Name, Rate: l.Rate, Amount: l.Amount}
		}
		c.Blocks = append(c.Blocks, models.ContractBlock{
			Position:         i,
			SourceType:       b.SourceType,
			SourceBlockID:    b.SourceBlockID,
			FlyByType:        b.FlyByType,
			Name:             b.Name,
			Description:      b.Description,
			CategoryID:       b.CategoryID,
			CategoryName:     b.CategoryName,
			Quantity:         b.Quantity,
			Unlimited:        b.Unlimited(),
			BillingCycle:     b.BillingCycle,
			CustomCycleDays:  b.CustomCycleDays,
			ServiceCycleDays: b.ServiceCycleDays,
			UnitPrice:        b.UnitPrice,
			SellingPrice:     b.SellingPrice,
			TaxInclusion:     b.TaxInclusion,
			Taxes:            models.ToJSON(lines),
			TaxAmount:        q.TaxAmount,
			TotalPrice:       q.TotalPrice,
			CustomFields:     datatypes.JSONMap(b.CustomFields),
		})
		totals = append(totals, q.TotalPrice)
	}
	c.TotalValue = pricing.Sum(totals...)
	if math.Abs(c.TotalValue-p.TotalValue) >= 0.01 {
		s.logf("contract total differs from client total client=%.2f server=%.2f", p.TotalValue, c.TotalValue)
	}
	for _, vd := range p.Vendors {
		c.Vendors = append(c.Vendors, models.ContractVendor{
			VendorID:              vd.VendorID,
			ContactID:             vd.ContactID,
			ContactClassification: vd.ContactClassification,
			VendorName:            vd.VendorName,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&c).Error
	})
	if err != nil {
		return mapper.Receipt{}, fmt.Errorf("create %s: %w", p.RecordType, err)
	}
	s.logf("contract created id=%s tenant=%d record_type=%s blocks=%d total=%.2f", c.ID, tenantID, c.RecordType, len(c.Blocks), c.TotalValue)
	return mapper.Receipt{ID: c.ID, RecordType: c.RecordType, TotalValue: c.TotalValue}, nil
}

// List returns one page of the tenant's contracts, newest first. Page is 1-based.
func (s *ContractService) List(ctx context.Context, tenantID uint, page, limit int) ([]models.Contract, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	var out []models.Contract
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&out).Error
	return out, err
}

// Get loads one contract with its blocks and vendors.
func (s *ContractService) Get(ctx context.Context, tenantID uint, id string) (*models.Contract, error) {
	var c models.Contract
	err := s.db.WithContext(ctx).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Vendors").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ContractService) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
