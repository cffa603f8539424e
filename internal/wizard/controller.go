package wizard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/mapper"
	"github.com/diewo77/go-contracts/internal/pricing"
)

var (
	ErrSubmitInFlight = errors.New("submission already in progress")
	ErrSubmitted      = errors.New("wizard already submitted")
	ErrDiscarded      = errors.New("wizard was reset while the submission was in flight")
	ErrNoSubmitter    = errors.New("no submitter configured")
	ErrJumpForward    = errors.New("can only jump back to a completed step")
	ErrBlockNotFound  = errors.New("block not found")
	ErrDuplicateBlock = errors.New("block already added")
)

// Submitter persists the final payload. It is the external create operation.
type Submitter interface {
	CreateContract(ctx context.Context, p mapper.Payload) (mapper.Receipt, error)
}

// Options configure a Controller. Everything the controller needs is passed
// here; it reads no ambient state.
type Options struct {
	Mode         contract.Mode
	ContractType contract.Type
	Submitter    Submitter
	Logger       *log.Logger
}

// Controller owns one wizard session: the state, the active step sequence,
// the current index and the template sub-step flag. It is safe for use from
// multiple goroutines, though a UI normally drives it from one.
type Controller struct {
	mu sync.Mutex

	ctype     contract.Type
	submitter Submitter
	logger    *log.Logger

	state      contract.State
	steps      []Step
	index      int
	inTemplate bool

	busy    bool
	session uint64
	receipt *mapper.Receipt
	lastErr error
}

// New opens a wizard session.
func New(opts Options) *Controller {
	c := &Controller{
		ctype:     opts.ContractType,
		submitter: opts.Submitter,
		logger:    opts.Logger,
	}
	if !c.ctype.Valid() {
		c.ctype = contract.TypeClient
	}
	c.state = contract.NewState(opts.Mode)
	c.steps = Steps(c.state.Mode)
	return c
}

func (c *Controller) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// State returns a copy of the current wizard state.
func (c *Controller) State() contract.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Mode returns the active mode.
func (c *Controller) Mode() contract.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode
}

// Steps returns the active step sequence.
func (c *Controller) Steps() []Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Step(nil), c.steps...)
}

// Index returns the current index into Steps.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// InTemplateSubStep reports whether the template selection sub-step is showing.
func (c *Controller) InTemplateSubStep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inTemplate
}

// Current returns the step on screen.
func (c *Controller) Current() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Controller) currentLocked() Step {
	if c.inTemplate {
		return templateStep
	}
	return c.steps[c.index]
}

// Guard evaluates the forward guard for the step on screen.
func (c *Controller) Guard() GuardResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CanAdvance(c.currentLocked().ID, c.state)
}

// Busy reports whether a submission is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Receipt returns the creation receipt once the wizard has been submitted.
func (c *Controller) Receipt() (mapper.Receipt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.receipt == nil {
		return mapper.Receipt{}, false
	}
	return *c.receipt, true
}

// Submitted reports whether the session ended with a successful submission.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipt != nil
}

// LastError returns the error of the most recent failed submission.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Payload previews the request that submitting now would send.
func (c *Controller) Payload() mapper.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mapper.Build(c.state, c.ctype)
}

// Warnings lists advisory problems such as service cycles longer than the contract.
func (c *Controller) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mapper.Warnings(c.state)
}

// SelectPath records how the user wants to start. Choosing anything but the
// template path leaves the template sub-step and forgets a chosen template.
func (c *Controller) SelectPath(p contract.Path) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Path = p
	if p != contract.PathTemplate {
		c.inTemplate = false
		c.state.TemplateID = ""
	}
}

// SelectTemplate records the chosen template id.
func (c *Controller) SelectTemplate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.TemplateID = id
}

// ApplyTemplate selects a template and seeds blocks and currency from it when
// the wizard has none yet.
func (c *Controller) ApplyTemplate(t contract.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Path = contract.PathTemplate
	c.state.TemplateID = t.ID
	if t.Currency != "" {
		c.state.Details.Currency = t.Currency
	}
	if len(c.state.Blocks) == 0 {
		for _, b := range t.Blocks {
			c.state.Blocks = append(c.state.Blocks, b.Clone())
		}
	}
	c.recomputeLocked()
}

// Next moves forward when the guard for the step on screen allows it. It
// returns false with a nil error when the guard blocks. On the final step it
// submits; a failed submission keeps the wizard on that step with its state
// intact so the call can simply be retried.
func (c *Controller) Next(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return false, ErrSubmitInFlight
	}
	if c.receipt != nil {
		c.mu.Unlock()
		return false, ErrSubmitted
	}
	step := c.currentLocked()
	if !CanAdvance(step.ID, c.state).Allowed {
		c.mu.Unlock()
		return false, nil
	}
	switch {
	case c.inTemplate:
		c.inTemplate = false
		c.index = 1
	case step.ID == StepPath && c.state.Path == contract.PathTemplate:
		c.inTemplate = true
	case c.index == len(c.steps)-1:
		if i, ok := c.firstBlockedLocked(); ok {
			c.index = i
			c.mu.Unlock()
			return false, nil
		}
		return c.submit(ctx)
	default:
		c.index++
	}
	c.mu.Unlock()
	return true, nil
}

// firstBlockedLocked finds the earliest completed step whose guard no longer
// passes, e.g. after the last block was removed on the review step.
func (c *Controller) firstBlockedLocked() (int, bool) {
	for i := 0; i < c.index; i++ {
		if !CanAdvance(c.steps[i].ID, c.state).Allowed {
			return i, true
		}
	}
	if c.state.Path == contract.PathTemplate && !CanAdvance(StepTemplate, c.state).Allowed {
		return 0, true
	}
	return 0, false
}

// submit is entered with c.mu held and releases it.
func (c *Controller) submit(ctx context.Context) (bool, error) {
	if c.submitter == nil {
		c.mu.Unlock()
		return false, ErrNoSubmitter
	}
	payload := mapper.Build(c.state, c.ctype)
	session := c.session
	c.busy = true
	c.lastErr = nil
	c.mu.Unlock()

	c.logf("wizard submit record_type=%s blocks=%d total=%.2f", payload.RecordType, len(payload.Blocks), payload.TotalValue)
	receipt, err := c.submitter.CreateContract(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session {
		c.logf("wizard submit result ignored: session reset")
		return false, ErrDiscarded
	}
	c.busy = false
	if err != nil {
		c.lastErr = err
		c.logf("wizard submit failed record_type=%s err=%v", payload.RecordType, err)
		return false, fmt.Errorf("create %s: %w", payload.RecordType, err)
	}
	c.logf("wizard submitted id=%s record_type=%s", receipt.ID, receipt.RecordType)
	mode := c.state.Mode
	c.clearLocked(mode)
	c.receipt = &receipt
	return true, nil
}

// Back moves to the previous step. Leaving the template sub-step returns to
// path selection and forgets the chosen template.
func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.receipt != nil {
		return
	}
	if c.inTemplate {
		c.inTemplate = false
		c.state.TemplateID = ""
		return
	}
	if c.index > 0 {
		c.index--
	}
}

// JumpTo revisits a completed step. Skipping ahead is not allowed.
func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrSubmitInFlight
	}
	if index < 0 || index >= c.index {
		return fmt.Errorf("%w: %d (current %d)", ErrJumpForward, index, c.index)
	}
	c.index = index
	c.inTemplate = false
	return nil
}

// SwitchMode swaps the step sequence and restarts at the first step. Values
// already entered are kept. It is refused while a submission is in flight
// or after one succeeded.
func (c *Controller) SwitchMode(m contract.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrSubmitInFlight
	}
	if c.receipt != nil {
		return ErrSubmitted
	}
	if !m.Valid() || m == c.state.Mode {
		return nil
	}
	c.state.Mode = m
	c.steps = Steps(m)
	c.index = 0
	c.inTemplate = false
	return nil
}

// Reset discards the session and starts a fresh one in the same mode. A
// submission still in flight will have its result ignored.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(c.state.Mode)
}

func (c *Controller) clearLocked(mode contract.Mode) {
	c.session++
	c.state = contract.NewState(mode)
	c.steps = Steps(mode)
	c.index = 0
	c.inTemplate = false
	c.busy = false
	c.receipt = nil
	c.lastErr = nil
}

// SetCounterparty selects a single counterparty, replacing any selection.
func (c *Controller) SetCounterparty(cp contract.Counterparty) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Counterparties = []contract.Counterparty{cp}
}

// AddCounterparty adds a vendor to an RFQ selection. In contract mode it
// replaces the single selection.
func (c *Controller) AddCounterparty(cp contract.Counterparty) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != contract.ModeRFQ {
		c.state.Counterparties = []contract.Counterparty{cp}
		return
	}
	for _, existing := range c.state.Counterparties {
		if existing.ID == cp.ID {
			return
		}
	}
	c.state.Counterparties = append(c.state.Counterparties, cp)
}

// RemoveCounterparty drops a selected counterparty.
func (c *Controller) RemoveCounterparty(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.state.Counterparties[:0]
	for _, cp := range c.state.Counterparties {
		if cp.ID != id {
			out = append(out, cp)
		}
	}
	c.state.Counterparties = out
}

// SetAcceptanceMethod records the acceptance method.
func (c *Controller) SetAcceptanceMethod(m contract.AcceptanceMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Acceptance = m
}

// SetContractDetails replaces the contract details. Block validity is re-evaluated
// because it depends on the duration.
func (c *Controller) SetContractDetails(d contract.Details) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Details = d
	c.recomputeLocked()
}

// SetDuration changes only the contract duration.
func (c *Controller) SetDuration(d pricing.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Details.Duration = d
	c.recomputeLocked()
}

// SetBillingCycleType records the contract billing cycle.
func (c *Controller) SetBillingCycleType(cy contract.Cycle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.BillingCycleType = cy
}

// SetBillingView records the billing-step selections.
func (c *Controller) SetBillingView(b contract.BillingView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Billing = b
}

// AddBlock appends a block and returns its id. Blocks without an id are
// treated as fly-by entries and get a generated one.
func (c *Controller) AddBlock(li contract.LineItem) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if li.ID == "" {
		generated := contract.NewFlyByItem(li.FlyByType, li.Name, li.Price)
		li.ID = generated.ID
		li.Source = contract.SourceFlyBy
		li.FlyByType = generated.FlyByType
	}
	if c.blockIndexLocked(li.ID) >= 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicateBlock, li.ID)
	}
	c.state.Blocks = append(c.state.Blocks, li.Clone())
	c.recomputeLocked()
	return li.ID, nil
}

// UpdateBlock swaps the block with the same id for li.
func (c *Controller) UpdateBlock(li contract.LineItem) error {
	return c.updateBlock(li.ID, func(b *contract.LineItem) { *b = li.Clone() })
}

// RemoveBlock deletes a block.
func (c *Controller) RemoveBlock(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.blockIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	c.state.Blocks = append(c.state.Blocks[:i], c.state.Blocks[i+1:]...)
	delete(c.state.Billing.PerBlockPaymentType, id)
	c.recomputeLocked()
	return nil
}

// SetQuantity sets a block's quantity, clamped to at least one.
func (c *Controller) SetQuantity(id string, q int) error {
	return c.updateBlock(id, func(b *contract.LineItem) {
		if q < 1 {
			q = 1
		}
		b.Quantity = q
	})
}

// SetUnlimited toggles unlimited quantity. Turning it on clears the service cycle.
func (c *Controller) SetUnlimited(id string, unlimited bool) error {
	return c.updateBlock(id, func(b *contract.LineItem) {
		b.Unlimited = unlimited
		if unlimited {
			b.ServiceCycleDays = 0
		}
	})
}

// SetServiceCycleDays sets the interval between occurrences; zero clears it.
// Negative values are clamped to one. Unlimited blocks keep no interval.
func (c *Controller) SetServiceCycleDays(id string, days int) error {
	return c.updateBlock(id, func(b *contract.LineItem) {
		if days < 0 {
			days = 1
		}
		b.ServiceCycleDays = days
	})
}

// SetCycle sets a block's billing cycle; customDays only applies to custom cycles.
func (c *Controller) SetCycle(id string, cy contract.Cycle, customDays int) error {
	return c.updateBlock(id, func(b *contract.LineItem) {
		b.Cycle = cy
		b.CustomCycleDays = customDays
	})
}

// SetCustomPrice overrides the selling price; nil restores the catalog price.
func (c *Controller) SetCustomPrice(id string, price *float64) error {
	return c.updateBlock(id, func(b *contract.LineItem) {
		if price == nil {
			b.CustomPrice = nil
			return
		}
		p := *price
		b.CustomPrice = &p
	})
}

// SetTaxInclusion switches between tax-inclusive and tax-exclusive pricing.
func (c *Controller) SetTaxInclusion(id string, inc pricing.TaxInclusion) error {
	return c.updateBlock(id, func(b *contract.LineItem) { b.TaxInclusion = inc })
}

// AddTax applies a tax to a block. A tax id already present is left as is.
func (c *Controller) AddTax(id string, tax pricing.Tax) error {
	return c.updateBlock(id, func(b *contract.LineItem) {
		for _, t := range b.Taxes {
			if t.ID == tax.ID {
				return
			}
		}
		b.Taxes = append(b.Taxes, tax)
	})
}

// RemoveTax removes a tax from a block.
func (c *Controller) RemoveTax(id, taxID string) error {
	return c.updateBlock(id, func(b *contract.LineItem) {
		out := b.Taxes[:0]
		for _, t := range b.Taxes {
			if t.ID != taxID {
				out = append(out, t)
			}
		}
		b.Taxes = out
	})
}

// updateBlock edits a copy of the block and stores it back whole.
func (c *Controller) updateBlock(id string, edit func(*contract.LineItem)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.blockIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	b := c.state.Blocks[i].Clone()
	edit(&b)
	b.ID = id
	c.state.Blocks[i] = b
	c.recomputeLocked()
	return nil
}

func (c *Controller) blockIndexLocked(id string) int {
	for i, b := range c.state.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// recomputeLocked normalizes every block and refreshes the derived totals
// and warnings.
func (c *Controller) recomputeLocked() {
	d := c.state.Details.Duration
	totals := make([]float64, len(c.state.Blocks))
	for i := range c.state.Blocks {
		b := c.state.Blocks[i].Normalize()
		q := b.Quote(d)
		b.TotalPrice = q.TotalPrice
		b.Warning = q.CycleViolation
		c.state.Blocks[i] = b
		totals[i] = q.TotalPrice
	}
	c.state.TotalValue = pricing.Sum(totals...)
}
