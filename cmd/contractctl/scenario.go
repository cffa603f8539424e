package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/wizard"
)

// Scenario is the scripted input for one wizard run. Each field feeds the
// step that collects it.
type Scenario struct {
	Mode           contract.Mode             `yaml:"mode"`
	ContractType   contract.Type             `yaml:"contract_type"`
	Path           contract.Path             `yaml:"path"`
	Template       *contract.Template        `yaml:"template"`
	Acceptance     contract.AcceptanceMethod `yaml:"acceptance"`
	Counterparties []contract.Counterparty   `yaml:"counterparties"`
	Details        contract.Details          `yaml:"details"`
	BillingCycle   contract.Cycle            `yaml:"billing_cycle"`
	Blocks         []contract.LineItem       `yaml:"blocks"`
	Billing        contract.BillingView      `yaml:"billing"`
}

func loadScenario(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	var sc Scenario
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Mode == "" {
		sc.Mode = contract.ModeContract
	}
	if !sc.Mode.Valid() {
		return Scenario{}, fmt.Errorf("scenario %s: unknown mode %q", path, sc.Mode)
	}
	if sc.Path == contract.PathUnset {
		sc.Path = contract.PathScratch
		if sc.Template != nil {
			sc.Path = contract.PathTemplate
		}
	}
	if sc.Path == contract.PathTemplate && sc.Template == nil {
		return Scenario{}, fmt.Errorf("scenario %s: template path needs a template", path)
	}
	return sc, nil
}

// TemplateLookup resolves a template referenced by id only.
type TemplateLookup func(ctx context.Context, id string) (contract.Template, error)

var errBlocked = errors.New("wizard step blocked")

// runScenario walks the wizard from the first step, feeding each step from
// sc, and prints the review summary. With submit set the review step is
// confirmed and the receipt printed; otherwise the payload is printed.
func runScenario(ctx context.Context, c *wizard.Controller, sc Scenario, lookup TemplateLookup, submit bool, out io.Writer) error {
	for {
		step := c.Current()
		if err := applyStep(ctx, c, step.ID, sc, lookup); err != nil {
			return fmt.Errorf("%s: %w", step.ID, err)
		}
		if step.ID == wizard.StepReview {
			if err := printSummary(out, c.State(), c.Warnings()); err != nil {
				return err
			}
			if !submit {
				return printJSON(out, c.Payload())
			}
		}

		ok, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w at %q: %s", errBlocked, step.ID, c.Guard().Reason)
		}
		if receipt, done := c.Receipt(); done {
			_, err := fmt.Fprintf(out, "created %s %s (total %.2f)\n", receipt.RecordType, receipt.ID, receipt.TotalValue)
			return err
		}
	}
}

func applyStep(ctx context.Context, c *wizard.Controller, step wizard.StepID, sc Scenario, lookup TemplateLookup) error {
	switch step {
	case wizard.StepPath:
		c.SelectPath(sc.Path)
	case wizard.StepTemplate:
		tpl := *sc.Template
		if len(tpl.Blocks) == 0 && lookup != nil {
			found, err := lookup(ctx, tpl.ID)
			if err != nil {
				return err
			}
			tpl = found
		}
		c.ApplyTemplate(tpl)
	case wizard.StepAcceptance:
		c.SetAcceptanceMethod(sc.Acceptance)
	case wizard.StepCounterparty:
		if sc.Mode == contract.ModeRFQ {
			for _, cp := range sc.Counterparties {
				c.AddCounterparty(cp)
			}
		} else if len(sc.Counterparties) > 0 {
			c.SetCounterparty(sc.Counterparties[0])
		}
	case wizard.StepDetails:
		d := sc.Details
		if d.Currency == "" {
			d.Currency = c.State().Details.Currency
		}
		c.SetContractDetails(d)
	case wizard.StepBillingCycle:
		c.SetBillingCycleType(sc.BillingCycle)
	case wizard.StepBlocks:
		for _, b := range sc.Blocks {
			if _, err := c.AddBlock(b); err != nil {
				return err
			}
		}
	case wizard.StepBillingView:
		c.SetBillingView(sc.Billing)
	}
	return nil
}

func printSummary(out io.Writer, s contract.State, warnings []string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", s.Mode, s.Details.Name)
	fmt.Fprintln(tw, "BLOCK\tQTY\tCYCLE\tTOTAL")
	for _, b := range s.Blocks {
		qty := fmt.Sprint(b.Quantity)
		if b.Unlimited {
			qty = "unlimited"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", b.Name, qty, b.Cycle, b.TotalPrice)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%s\t%.2f\n", s.Details.Currency, s.TotalValue)
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, w := range warnings {
		if _, err := fmt.Fprintf(out, "warning: %s\n", w); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
