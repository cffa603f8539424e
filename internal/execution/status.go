// Package execution tracks the lifecycle of scheduled service events and
// moves them between statuses only after the backend confirms each change.
package execution

// Status is the lifecycle state of one service event.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusOverdue    Status = "overdue"
)

// Statuses lists every known status.
var Statuses = []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusOverdue}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Table maps a status to the statuses it may move to.
type Table map[Status][]Status

// DefaultTransitions applies to event types without a table of their own.
var DefaultTransitions = Table{
	StatusScheduled:  {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	StatusOverdue:    {StatusInProgress},
}

// Allowed returns the targets reachable from from. Terminal statuses have
// none whatever the table says.
func (t Table) Allowed(from Status) []Status {
	if from.IsTerminal() {
		return nil
	}
	return append([]Status(nil), t[from]...)
}

// Can reports whether from may move to to.
func (t Table) Can(from, to Status) bool {
	for _, s := range t.Allowed(from) {
		if s == to {
			return true
		}
	}
	return false
}

// Rules resolves the transition table for an event type.
type Rules struct {
	Default Table            `json:"default"`
	ByType  map[string]Table `json:"by_type,omitempty"`
}

// DefaultRules uses DefaultTransitions for every event type.
func DefaultRules() Rules {
	return Rules{Default: DefaultTransitions}
}

// For returns the table for eventType, falling back to the default table.
func (r Rules) For(eventType string) Table {
	if t, ok := r.ByType[eventType]; ok && len(t) > 0 {
		return t
	}
	if r.Default != nil {
		return r.Default
	}
	return DefaultTransitions
}

// WithOverrides returns a copy of r with the per-type tables replaced by overrides.
func (r Rules) WithOverrides(overrides map[string]Table) Rules {
	out := Rules{Default: r.Default, ByType: make(map[string]Table, len(r.ByType)+len(overrides))}
	for k, v := range r.ByType {
		out.ByType[k] = v
	}
	for k, v := range overrides {
		out.ByType[k] = v
	}
	return out
}
