package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	Required("name", "", v)
	PositiveInt("duration_value", 0, v)
	NonNegativeFloat("unit_price", -1, v)
	RangeFloat("rate", 101, 0, 100, v)
	OneOf("acceptance_method", "email", []string{"manual", "auto"}, v)
	OneOf("billing_cycle_type", "", []string{"monthly"}, v)
	UUID("source_block_id", "flyby-1", v)
	UUID("template_id", "", v)
	Absent("vendors", true, v)

	assert.Equal(t, Violations{
		"name":              "required",
		"duration_value":    "must_be_positive",
		"unit_price":        "must_not_be_negative",
		"rate":              "out_of_range",
		"acceptance_method": "invalid_choice",
		"source_block_id":   "invalid_uuid",
		"vendors":           "not_applicable",
	}, v)
	assert.False(t, v.Empty())
	assert.True(t, Violations{}.Empty())
}
