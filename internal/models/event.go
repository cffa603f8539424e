package models

import (
	"time"

	"github.com/diewo77/go-contracts/internal/execution"
)

// ServiceEvent is one scheduled occurrence of a contract block. Version is
// bumped on every status change and guards concurrent updates.
type ServiceEvent struct {
	Base
	TenantID    uint       `gorm:"index;not null" json:"-"`
	ContractID  string     `gorm:"size:36;index;not null" json:"contract_id"`
	BlockID     string     `gorm:"size:36" json:"block_id,omitempty"`
	EventType   string     `gorm:"size:50;not null" json:"event_type"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	Version     int        `gorm:"not null;default:1" json:"version"`
	ScheduledAt time.Time  `gorm:"index" json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (e *ServiceEvent) GetTenantID() uint { return e.TenantID }

func (e ServiceEvent) Event() execution.Event {
	return execution.Event{
		ID:          e.ID,
		ContractID:  e.ContractID,
		BlockID:     e.BlockID,
		Type:        e.EventType,
		Status:      execution.Status(e.Status),
		Version:     e.Version,
		ScheduledAt: e.ScheduledAt,
	}
}

// TransitionRule is one allowed status change for an event type. Event
// types without rules use the default transition table.
type TransitionRule struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TenantID   uint   `gorm:"uniqueIndex:idx_rule;not null" json:"-"`
	EventType  string `gorm:"size:50;uniqueIndex:idx_rule;not null" json:"event_type"`
	FromStatus string `gorm:"size:20;uniqueIndex:idx_rule;not null" json:"from_status"`
	ToStatus   string `gorm:"size:20;uniqueIndex:idx_rule;not null" json:"to_status"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&Tenant{}, &Permission{}, &Profile{}, &User{},
		&TaxRate{}, &Category{}, &CatalogBlock{}, &ContractTemplate{},
		&Contract{}, &ContractBlock{}, &ContractVendor{},
		&ServiceEvent{}, &TransitionRule{},
	}
}
