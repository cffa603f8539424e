package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base gives a record a UUID primary key assigned on insert.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// ToJSON marshals v for a datatypes.JSON column. A nil value stores null.
func ToJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}

// FromJSON unmarshals a datatypes.JSON column into v. Empty columns leave v untouched.
func FromJSON(j datatypes.JSON, v any) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, v)
}
