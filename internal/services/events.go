package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/internal/execution"
	"github.com/diewo77/go-contracts/internal/models"
	"github.com/diewo77/go-contracts/validation"
)

// DefaultRuleType marks transition rows that replace the default table.
const DefaultRuleType = "*"

type EventService struct {
	db     *gorm.DB
	logger *log.Logger
	now    func() time.Time
}

func NewEventService(db *gorm.DB, logger *log.Logger) *EventService {
	return &EventService{db: db, logger: logger, now: time.Now}
}

// ScheduleInput is the body of a schedule request.
type ScheduleInput struct {
	ContractID  string    `json:"contract_id"`
	BlockID     string    `json:"block_id,omitempty"`
	EventType   string    `json:"event_type"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Schedule creates a scheduled event at version 1 for one of the tenant's contracts.
func (s *EventService) Schedule(ctx context.Context, tenantID uint, in ScheduleInput) (*models.ServiceEvent, error) {
	v := validation.Violations{}
	validation.Required("contract_id", in.ContractID, v)
	validation.Required("event_type", in.EventType, v)
	if in.ScheduledAt.IsZero() {
		v.Add("scheduled_at", "required")
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Contract{}).Where("id = ? AND tenant_id = ?", in.ContractID, tenantID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("contract %s: %w", in.ContractID, ErrNotFound)
	}
	if in.BlockID != "" {
		if err := db.Model(&models.ContractBlock{}).Where("id = ? AND contract_id = ?", in.BlockID, in.ContractID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("block %s: %w", in.BlockID, ErrNotFound)
		}
	}

	ev := models.ServiceEvent{
		TenantID:    tenantID,
		ContractID:  in.ContractID,
		BlockID:     in.BlockID,
		EventType:   strings.TrimSpace(in.EventType),
		Status:      string(execution.StatusScheduled),
		Version:     1,
		ScheduledAt: in.ScheduledAt.UTC(),
	}
	if err := db.Create(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// List returns a contract's events ordered by schedule.
func (s *EventService) List(ctx context.Context, tenantID uint, contractID string) ([]models.ServiceEvent, error) {
	var out []models.ServiceEvent
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND contract_id = ?", tenantID, contractID).
		Order("scheduled_at").
		Find(&out).Error
	return out, err
}

func (s *EventService) Get(ctx context.Context, tenantID uint, id string) (*models.ServiceEvent, error) {
	var ev models.ServiceEvent
	err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Rules builds the tenant's transition tables from its rule rows. Rows with
// event type "*" replace the default table.
func (s *EventService) Rules(ctx context.Context, tenantID uint) (execution.Rules, error) {
	var rows []models.TransitionRule
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("id").Find(&rows).Error; err != nil {
		return execution.Rules{}, err
	}
	overrides := map[string]execution.Table{}
	for _, r := range rows {
		t, ok := overrides[r.EventType]
		if !ok {
			t = execution.Table{}
			overrides[r.EventType] = t
		}
		from := execution.Status(r.FromStatus)
		t[from] = append(t[from], execution.Status(r.ToStatus))
	}
	rules := execution.DefaultRules()
	if def, ok := overrides[DefaultRuleType]; ok {
		rules.Default = def
		delete(overrides, DefaultRuleType)
	}
	if len(overrides) > 0 {
		rules = rules.WithOverrides(overrides)
	}
	return rules, nil
}

// Transition moves an event to a new status. version must match the stored
// version; the update itself is guarded by the version so two concurrent
// writers cannot both win.
func (s *EventService) Transition(ctx context.Context, tenantID uint, id string, to execution.Status, version int) (*models.ServiceEvent, error) {
	ev, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if ev.Version != version {
		return nil, fmt.Errorf("%w: have version %d, stored %d", execution.ErrVersionConflict, version, ev.Version)
	}
	rules, err := s.Rules(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	m := execution.NewMachine(&eventStore{db: s.db, tenantID: tenantID, now: s.now}, execution.MachineOptions{Rules: rules, Logger: s.logger})
	if _, err := m.Transition(ctx, ev.Event(), to); err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, id)
}

// MarkOverdue moves the tenant's scheduled events whose time has passed to
// overdue and returns how many changed. It bypasses the transition tables.
func (s *EventService) MarkOverdue(ctx context.Context, tenantID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.ServiceEvent{}).
		Where("tenant_id = ? AND status = ? AND scheduled_at < ?", tenantID, execution.StatusScheduled, s.now().UTC()).
		Updates(map[string]any{
			"status":  string(execution.StatusOverdue),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 && s.logger != nil {
		s.logger.Printf("service events marked overdue tenant=%d count=%d", tenantID, res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// eventStore applies confirmed transitions with a version-guarded UPDATE.
type eventStore struct {
	db       *gorm.DB
	tenantID uint
	now      func() time.Time
}

func (st *eventStore) TransitionStatus(ctx context.Context, id string, to execution.Status, version int) (execution.Event, error) {
	updates := map[string]any{
		"status":  string(to),
		"version": gorm.Expr("version + 1"),
	}
	if to == execution.StatusCompleted {
		updates["completed_at"] = st.now().UTC()
	}
	res := st.db.WithContext(ctx).Model(&models.ServiceEvent{}).
		Where("id = ? AND tenant_id = ? AND version = ?", id, st.tenantID, version).
		Updates(updates)
	if res.Error != nil {
		return execution.Event{}, res.Error
	}
	if res.RowsAffected == 0 {
		return execution.Event{}, execution.ErrVersionConflict
	}
	var ev models.ServiceEvent
	if err := st.db.WithContext(ctx).Where("id = ?", id).First(&ev).Error; err != nil {
		return execution.Event{}, err
	}
	return ev.Event(), nil
}
