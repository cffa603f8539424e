package validation

import (
	"strings"

	"github.com/google/uuid"
)

// Violations maps a field name to a machine-readable reason.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records reason for field unless the field already has one.
func (v Violations) Add(field, reason string) {
	if _, ok := v[field]; !ok {
		v[field] = reason
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v.Add(field, "must_not_be_negative")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}

// OneOf requires value to be one of allowed. Empty values are left to Required.
func OneOf(field, value string, allowed []string, v Violations) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, "invalid_choice")
}

// UUID requires a parseable UUID. Empty values are left to Required.
func UUID(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := uuid.Parse(value); err != nil {
		v.Add(field, "invalid_uuid")
	}
}

// Absent requires a field to be unset for the current record type.
func Absent(field string, set bool, v Violations) {
	if set {
		v.Add(field, "not_applicable")
	}
}
