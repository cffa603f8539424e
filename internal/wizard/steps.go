// Package wizard implements the contract/RFQ creation flow: the step graphs,
// the per-step navigation guards and the controller that owns wizard state.
package wizard

import "github.com/diewo77/go-contracts/internal/contract"

// StepID identifies a wizard step.
type StepID string

const (
	StepPath         StepID = "path"
	StepTemplate     StepID = "template"
	StepAcceptance   StepID = "acceptance"
	StepCounterparty StepID = "counterparty"
	StepDetails      StepID = "details"
	StepBillingCycle StepID = "billing_cycle"
	StepBlocks       StepID = "blocks"
	StepBillingView  StepID = "billing_view"
	StepReview       StepID = "review"
)

// Step describes one screen of the flow.
type Step struct {
	ID    StepID
	Title string
}

var contractSteps = []Step{
	{StepPath, "How do you want to start?"},
	{StepAcceptance, "Acceptance method"},
	{StepCounterparty, "Select buyer"},
	{StepDetails, "Contract details"},
	{StepBillingCycle, "Billing cycle"},
	{StepBlocks, "Service blocks"},
	{StepBillingView, "Billing"},
	{StepReview, "Review & create"},
}

var rfqSteps = []Step{
	{StepPath, "How do you want to start?"},
	{StepCounterparty, "Select vendors"},
	{StepDetails, "RFQ details"},
	{StepBlocks, "Requested blocks"},
	{StepReview, "Review & send"},
}

// templateStep is spliced in after the path step when the template path is chosen.
var templateStep = Step{StepTemplate, "Choose a template"}

// Steps returns the ordered step sequence for a mode.
func Steps(mode contract.Mode) []Step {
	src := contractSteps
	if mode == contract.ModeRFQ {
		src = rfqSteps
	}
	return append([]Step(nil), src...)
}

// TemplateStep returns the template-selection sub-step.
func TemplateStep() Step { return templateStep }

// IndexOf returns the position of id in the mode's sequence, or -1.
func IndexOf(mode contract.Mode, id StepID) int {
	for i, s := range Steps(mode) {
		if s.ID == id {
			return i
		}
	}
	return -1
}
