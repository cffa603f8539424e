package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrTerminal          = errors.New("event is in a terminal status")
	ErrInvalidTransition = errors.New("transition not allowed")
	ErrVersionConflict   = errors.New("event was modified concurrently; refresh and retry")
	ErrInFlight          = errors.New("a transition for this event is already in flight")
)

// Event is one scheduled occurrence of a service block.
type Event struct {
	ID          string    `json:"id"`
	ContractID  string    `json:"contract_id,omitempty"`
	BlockID     string    `json:"block_id,omitempty"`
	Type        string    `json:"event_type"`
	Status      Status    `json:"status"`
	Version     int       `json:"version"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

// Transitioner persists a status change. It must reject a stale version with
// an error wrapping ErrVersionConflict and return the stored event on success.
type Transitioner interface {
	TransitionStatus(ctx context.Context, id string, to Status, version int) (Event, error)
}

// Machine validates transitions locally and applies them only once the
// backend has confirmed them.
type Machine struct {
	backend Transitioner
	rules   Rules
	logger  *log.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// MachineOptions configure a Machine.
type MachineOptions struct {
	Rules  Rules
	Logger *log.Logger
}

// NewMachine returns a Machine backed by t.
func NewMachine(t Transitioner, opts MachineOptions) *Machine {
	if opts.Rules.Default == nil && opts.Rules.ByType == nil {
		opts.Rules = DefaultRules()
	}
	return &Machine{backend: t, rules: opts.Rules, logger: opts.Logger, inFlight: map[string]bool{}}
}

// Rules returns the rules the machine validates against.
func (m *Machine) Rules() Rules { return m.rules }

// Allowed lists the statuses ev may move to.
func (m *Machine) Allowed(ev Event) []Status {
	return m.rules.For(ev.Type).Allowed(ev.Status)
}

// Check validates a transition without contacting the backend.
func (m *Machine) Check(ev Event, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if ev.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, ev.Status)
	}
	if !m.rules.For(ev.Type).Can(ev.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ev.Status, to)
	}
	return nil
}

// Transition asks the backend to move ev to to. On success it returns the
// confirmed event; on any failure ev is returned unchanged along with the
// error. Only one transition per event id may be in flight.
func (m *Machine) Transition(ctx context.Context, ev Event, to Status) (Event, error) {
	if err := m.Check(ev, to); err != nil {
		return ev, err
	}

	m.mu.Lock()
	if m.inFlight[ev.ID] {
		m.mu.Unlock()
		return ev, ErrInFlight
	}
	m.inFlight[ev.ID] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inFlight, ev.ID)
		m.mu.Unlock()
	}()

	confirmed, err := m.backend.TransitionStatus(ctx, ev.ID, to, ev.Version)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			m.logf("event transition conflict id=%s version=%d to=%s", ev.ID, ev.Version, to)
		} else {
			m.logf("event transition failed id=%s to=%s err=%v", ev.ID, to, err)
		}
		return ev, err
	}
	m.logf("event transitioned id=%s from=%s to=%s version=%d", ev.ID, ev.Status, confirmed.Status, confirmed.Version)
	return confirmed, nil
}

func (m *Machine) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
