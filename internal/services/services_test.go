package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/internal/execution"
	"github.com/diewo77/go-contracts/internal/mapper"
	"github.com/diewo77/go-contracts/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func contractPayload() mapper.Payload {
	return mapper.Payload{
		RecordType:            "contract",
		Name:                  "Facility MSA",
		Title:                 "Facility MSA",
		Currency:              "INR",
		DurationValue:         12,
		DurationUnit:          "months",
		AcceptanceMethod:      "auto",
		ContactID:             "c1",
		BuyerID:               "c1",
		ContactClassification: "client",
		TotalValue:            1,
		Blocks: []mapper.Block{{
			Position:      0,
			SourceType:    "catalog",
			SourceBlockID: uuid.NewString(),
			Name:          "Deep cleaning",
			Quantity:      2,
			BillingCycle:  "prepaid",
			UnitPrice:     1000,
			SellingPrice:  1000,
			TaxInclusion:  "exclusive",
			Taxes:         []mapper.BlockTax{{ID: "gst", Name: "GST", Rate: 18}},
			CustomFields:  map[string]any{mapper.FieldCurrency: "INR", mapper.FieldUnlimited: false},
		}},
	}
}

func TestContractCreateReprices(t *testing.T) {
	db := setupDB(t)
	svc := NewContractService(db, nil)
	ctx := context.Background()

	r, err := svc.Create(ctx, 1, contractPayload())
	require.NoError(t, err)
	assert.Equal(t, "contract", r.RecordType)
	assert.Equal(t, 2360.0, r.TotalValue)

	c, err := svc.Get(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", c.Status)
	require.Len(t, c.Blocks, 1)
	b := c.Blocks[0]
	assert.Equal(t, 180.0, b.TaxAmount)
	assert.Equal(t, 2360.0, b.TotalPrice)
	var taxes []mapper.BlockTax
	require.NoError(t, models.FromJSON(b.Taxes, &taxes))
	assert.Equal(t, []mapper.BlockTax{{ID: "gst", Name: "GST", Rate: 18, Amount: 180}}, taxes)
	assert.Equal(t, "INR", b.CustomFields[mapper.FieldCurrency])

	_, err = svc.Get(ctx, 2, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.List(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = svc.List(ctx, 1, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestContractCreateRFQ(t *testing.T) {
	db := setupDB(t)
	svc := NewContractService(db, nil)
	p := contractPayload()
	p.RecordType = "rfq"
	p.AcceptanceMethod, p.ContactID, p.BuyerID, p.ContactClassification = "", "", "", ""
	p.Vendors = []mapper.Vendor{
		{VendorID: "v1", ContactID: "v1", ContactClassification: "vendor", VendorName: "Acme"},
		{VendorID: "v2", ContactID: "v2", ContactClassification: "vendor", VendorName: "Globex"},
	}

	r, err := svc.Create(context.Background(), 1, p)
	require.NoError(t, err)
	c, err := svc.Get(context.Background(), 1, r.ID)
	require.NoError(t, err)
	assert.Len(t, c.Vendors, 2)
}

func TestValidatePayload(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *mapper.Payload)
		want   map[string]string
	}{
		{"valid", func(*mapper.Payload) {}, map[string]string{}},
		{"contract without contact", func(p *mapper.Payload) { p.ContactID = "" }, map[string]string{"contact_id": "required"}},
		{"bad acceptance", func(p *mapper.Payload) { p.AcceptanceMethod = "payment" }, map[string]string{"acceptance_method": "invalid_choice"}},
		{"rfq with contract fields", func(p *mapper.Payload) {
			p.RecordType = "rfq"
			p.Vendors = []mapper.Vendor{{VendorID: "v1"}}
		}, map[string]string{"acceptance_method": "not_applicable", "contact_id": "not_applicable"}},
		{"rfq without vendors", func(p *mapper.Payload) {
			p.RecordType = "rfq"
			p.AcceptanceMethod, p.ContactID = "", ""
		}, map[string]string{"vendors": "required"}},
		{"catalog id not uuid", func(p *mapper.Payload) { p.Blocks[0].SourceBlockID = "cat-1" }, map[string]string{"blocks[0].source_block_id": "invalid_uuid"}},
		{"flyby without type", func(p *mapper.Payload) {
			p.Blocks[0].SourceType, p.Blocks[0].SourceBlockID = "flyby", ""
		}, map[string]string{"blocks[0].flyby_type": "required"}},
		{"no blocks", func(p *mapper.Payload) { p.Blocks = nil }, map[string]string{"blocks": "required"}},
		{"duration", func(p *mapper.Payload) { p.DurationValue, p.DurationUnit = 0, "weeks" }, map[string]string{"duration_value": "must_be_positive", "duration_unit": "invalid_choice"}},
		{"start date", func(p *mapper.Payload) { p.StartDate = "01/02/2026" }, map[string]string{"start_date": "invalid_date"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := contractPayload()
			tc.mutate(&p)
			assert.Equal(t, tc.want, map[string]string(ValidatePayload(p)))
		})
	}
}

func TestContractCreateRejectsInvalid(t *testing.T) {
	svc := NewContractService(setupDB(t), nil)
	p := contractPayload()
	p.Name = " "
	_, err := svc.Create(context.Background(), 1, p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Violations["name"])
	assert.Contains(t, err.Error(), "name=required")
}

func scheduleOne(t *testing.T, db *gorm.DB, svc *EventService, eventType string, at time.Time) *models.ServiceEvent {
	t.Helper()
	r, err := NewContractService(db, nil).Create(context.Background(), 1, contractPayload())
	require.NoError(t, err)
	ev, err := svc.Schedule(context.Background(), 1, ScheduleInput{ContractID: r.ID, EventType: eventType, ScheduledAt: at})
	require.NoError(t, err)
	return ev
}

func TestEventTransition(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil)
	ctx := context.Background()
	ev := scheduleOne(t, db, svc, "visit", time.Now().Add(time.Hour))
	assert.Equal(t, "scheduled", ev.Status)
	assert.Equal(t, 1, ev.Version)

	got, err := svc.Transition(ctx, 1, ev.ID, execution.StatusInProgress, 1)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)
	assert.Equal(t, 2, got.Version)

	_, err = svc.Transition(ctx, 1, ev.ID, execution.StatusCompleted, 1)
	assert.ErrorIs(t, err, execution.ErrVersionConflict)

	_, err = svc.Transition(ctx, 1, ev.ID, execution.StatusScheduled, 2)
	assert.ErrorIs(t, err, execution.ErrInvalidTransition)

	got, err = svc.Transition(ctx, 1, ev.ID, execution.StatusCompleted, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.NotNil(t, got.CompletedAt)

	_, err = svc.Transition(ctx, 1, ev.ID, execution.StatusInProgress, 3)
	assert.ErrorIs(t, err, execution.ErrTerminal)

	_, err = svc.Transition(ctx, 2, ev.ID, execution.StatusInProgress, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventStoreRejectsStaleVersion(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil)
	ev := scheduleOne(t, db, svc, "visit", time.Now())
	st := &eventStore{db: db, tenantID: 1, now: time.Now}

	_, err := st.TransitionStatus(context.Background(), ev.ID, execution.StatusInProgress, 1)
	require.NoError(t, err)
	_, err = st.TransitionStatus(context.Background(), ev.ID, execution.StatusCompleted, 1)
	assert.ErrorIs(t, err, execution.ErrVersionConflict)
}

func TestEventRulesFromRows(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil)
	ctx := context.Background()
	require.NoError(t, db.Create(&[]models.TransitionRule{
		{TenantID: 1, EventType: "inspection", FromStatus: "scheduled", ToStatus: "cancelled"},
		{TenantID: 1, EventType: "inspection", FromStatus: "scheduled", ToStatus: "in_progress"},
		{TenantID: 2, EventType: "inspection", FromStatus: "scheduled", ToStatus: "completed"},
	}).Error)

	rules, err := svc.Rules(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []execution.Status{"cancelled", "in_progress"}, rules.For("inspection").Allowed("scheduled"))
	assert.Equal(t, execution.DefaultTransitions, rules.For("visit"))

	ev := scheduleOne(t, db, svc, "inspection", time.Now())
	got, err := svc.Transition(ctx, 1, ev.ID, execution.StatusCancelled, 1)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
}

func TestScheduleValidation(t *testing.T) {
	svc := NewEventService(setupDB(t), nil)
	_, err := svc.Schedule(context.Background(), 1, ScheduleInput{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 3)

	_, err = svc.Schedule(context.Background(), 1, ScheduleInput{ContractID: "nope", EventType: "visit", ScheduledAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	past := scheduleOne(t, db, svc, "visit", now.Add(-time.Hour))
	future := scheduleOne(t, db, svc, "visit", now.Add(time.Hour))

	n, err := svc.MarkOverdue(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.Get(context.Background(), 1, past.ID)
	require.NoError(t, err)
	assert.Equal(t, "overdue", got.Status)
	assert.Equal(t, 2, got.Version)
	got, err = svc.Get(context.Background(), 1, future.ID)
	require.NoError(t, err)
	assert.Equal(t, "scheduled", got.Status)

	got, err = svc.Transition(context.Background(), 1, past.ID, execution.StatusInProgress, 2)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)
}

func TestMasterData(t *testing.T) {
	db := setupDB(t)
	svc := NewMasterDataService(db)
	ctx := context.Background()
	gst := models.TaxRate{TenantID: 1, Name: "GST", Rate: 18}
	require.NoError(t, db.Create(&gst).Error)
	require.NoError(t, db.Create(&models.Category{TenantID: 1, Name: "Cleaning"}).Error)
	require.NoError(t, db.Create(&models.CatalogBlock{TenantID: 1, Name: "Audit", Price: 50, Cycle: "monthly", TaxRateIDs: models.ToJSON([]string{gst.ID})}).Error)
	require.NoError(t, db.Create(&models.ContractTemplate{TenantID: 1, Name: "Broken", Blocks: []byte("{")}).Error)
	require.NoError(t, db.Create(&models.TaxRate{TenantID: 2, Name: "VAT", Rate: 20}).Error)

	rates, err := svc.TaxRates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "GST", rates[0].Name)

	cats, err := svc.Categories(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	items, err := svc.Catalog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "catalog", string(items[0].Source))
	require.Len(t, items[0].Taxes, 1)
	assert.Equal(t, 18.0, items[0].Taxes[0].Rate)

	tpls, err := svc.Templates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tpls, 1)
	assert.Equal(t, "Broken", tpls[0].Name)
	assert.Empty(t, tpls[0].Blocks)
}
