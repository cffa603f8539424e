package pricing

// DurationUnit is the unit of a contract duration or grace period.
type DurationUnit string

const (
	UnitDays   DurationUnit = "days"
	UnitMonths DurationUnit = "months"
	UnitYears  DurationUnit = "years"
)

// Valid reports whether u is a known unit.
func (u DurationUnit) Valid() bool {
	switch u {
	case UnitDays, UnitMonths, UnitYears:
		return true
	}
	return false
}

// Duration is a value with a unit, e.g. 12 months.
type Duration struct {
	Value int          `json:"value" yaml:"value"`
	Unit  DurationUnit `json:"unit" yaml:"unit"`
}

// Days converts the duration to days using 30-day months and 365-day years.
// Unknown units and non-positive values yield 0.
func (d Duration) Days() int {
	if d.Value <= 0 {
		return 0
	}
	switch d.Unit {
	case UnitDays:
		return d.Value
	case UnitMonths:
		return d.Value * 30
	case UnitYears:
		return d.Value * 365
	}
	return 0
}
