package wizard

import (
	"strings"

	"github.com/diewo77/go-contracts/internal/contract"
)

// GuardResult is the outcome of a forward-navigation check.
type GuardResult struct {
	Allowed bool
	Reason  string
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(reason string) GuardResult { return GuardResult{Reason: reason} }

// CanAdvance reports whether the user may move forward from step given the
// current state. It has no side effects.
func CanAdvance(step StepID, s contract.State) GuardResult {
	switch step {
	case StepPath:
		if s.Path == contract.PathUnset {
			return deny("choose how to start")
		}
	case StepTemplate:
		if s.TemplateID == "" {
			return deny("select a template")
		}
	case StepCounterparty:
		if s.Mode == contract.ModeRFQ {
			if len(s.Counterparties) == 0 {
				return deny("select at least one vendor")
			}
		} else if len(s.Counterparties) != 1 || s.Counterparties[0].ID == "" {
			return deny("select exactly one counterparty")
		}
	case StepAcceptance:
		if !s.Acceptance.Valid() {
			return deny("choose an acceptance method")
		}
	case StepDetails:
		if strings.TrimSpace(s.Details.Name) == "" {
			return deny("name is required")
		}
		if s.Details.Duration.Value <= 0 {
			return deny("duration must be greater than zero")
		}
	case StepBillingCycle:
		if !s.BillingCycleType.Valid() {
			return deny("choose a billing cycle")
		}
	case StepBlocks:
		if len(s.Blocks) == 0 {
			return deny("add at least one block")
		}
	case StepBillingView, StepReview:
	}
	return allow()
}
