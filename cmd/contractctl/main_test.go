package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/execution"
	"github.com/diewo77/go-contracts/internal/mapper"
	"github.com/diewo77/go-contracts/internal/wizard"
)

const scratchScenario = `
mode: contract
contract_type: client
acceptance: signoff
counterparties:
  - id: c-42
    name: Acme Towers
details:
  name: Tower A upkeep
  currency: INR
  start_date: 2025-04-01T00:00:00Z
  duration: {value: 12, unit: months}
billing_cycle: monthly
blocks:
  - id: 4b7c7f4e-0a0e-4c55-9f1e-3a7a3c2d1e00
    source: catalog
    name: Deep cleaning
    quantity: 2
    cycle: monthly
    price: 1000
    taxes:
      - {id: gst, name: GST, rate: 18}
  - name: Window audit
    flyby_type: inspection
    price: 500
billing:
  payment_mode: prepaid
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

type recordingSubmitter struct {
	mu       sync.Mutex
	payloads []mapper.Payload
}

func (r *recordingSubmitter) CreateContract(_ context.Context, p mapper.Payload) (mapper.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return mapper.Receipt{ID: "ctr-9", RecordType: p.RecordType, TotalValue: p.TotalValue}, nil
}

func TestLoadScenarioDefaults(t *testing.T) {
	sc, err := loadScenario(writeScenario(t, "template: {id: tpl-1}\n"))
	require.NoError(t, err)
	assert.Equal(t, contract.ModeContract, sc.Mode)
	assert.Equal(t, contract.PathTemplate, sc.Path)

	sc, err = loadScenario(writeScenario(t, "mode: rfq\n"))
	require.NoError(t, err)
	assert.Equal(t, contract.PathScratch, sc.Path)

	_, err = loadScenario(writeScenario(t, "mode: lease\n"))
	assert.ErrorContains(t, err, "unknown mode")

	_, err = loadScenario(writeScenario(t, "path: template\n"))
	assert.ErrorContains(t, err, "needs a template")

	_, err = loadScenario(writeScenario(t, "colour: blue\n"))
	assert.Error(t, err)

	_, err = loadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunScenarioDryRunPrintsPayload(t *testing.T) {
	sc, err := loadScenario(writeScenario(t, scratchScenario))
	require.NoError(t, err)

	var out bytes.Buffer
	c := wizard.New(wizard.Options{Mode: sc.Mode, ContractType: sc.ContractType})
	require.NoError(t, runScenario(context.Background(), c, sc, nil, false, &out))
	assert.Equal(t, wizard.StepReview, c.Current().ID)

	text := out.String()
	assert.Contains(t, text, "Tower A upkeep")
	assert.Contains(t, text, "2360.00")
	assert.Contains(t, text, "2860.00")

	var p mapper.Payload
	require.NoError(t, json.Unmarshal([]byte(text[strings.Index(text, "{"):]), &p))
	want := mapper.Payload{
		RecordType:            "contract",
		Name:                  "Tower A upkeep",
		Title:                 "Tower A upkeep",
		Currency:              "INR",
		StartDate:             "2025-04-01",
		DurationValue:         12,
		DurationUnit:          "months",
		AcceptanceMethod:      "digital_signature",
		ContactID:             "c-42",
		BuyerID:               "c-42",
		ContactClassification: "client",
		BillingCycleType:      "monthly",
		PaymentMode:           "prepaid",
		TotalValue:            2860,
	}
	if diff := cmp.Diff(want, p, cmpopts.IgnoreFields(mapper.Payload{}, "Blocks")); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, p.Blocks, 2)
	assert.Equal(t, "catalog", p.Blocks[0].SourceType)
	assert.Equal(t, "4b7c7f4e-0a0e-4c55-9f1e-3a7a3c2d1e00", p.Blocks[0].SourceBlockID)
	assert.Equal(t, "flyby", p.Blocks[1].SourceType)
	assert.Equal(t, "inspection", p.Blocks[1].FlyByType)
}

func TestRunScenarioStopsAtBlockedStep(t *testing.T) {
	sc, err := loadScenario(writeScenario(t, "counterparties: [{id: c1}]\n"))
	require.NoError(t, err)

	c := wizard.New(wizard.Options{Mode: sc.Mode})
	err = runScenario(context.Background(), c, sc, nil, false, &bytes.Buffer{})
	require.ErrorIs(t, err, errBlocked)
	assert.Contains(t, err.Error(), "acceptance")
	assert.Equal(t, wizard.StepAcceptance, c.Current().ID)
}

func TestRunScenarioTemplateLookupAndSubmit(t *testing.T) {
	body := `
template: {id: tpl-1}
acceptance: auto
counterparties: [{id: c1, name: Acme}]
details:
  name: From template
  duration: {value: 1, unit: years}
billing_cycle: quarterly
`
	sc, err := loadScenario(writeScenario(t, body))
	require.NoError(t, err)

	var looked []string
	lookup := func(_ context.Context, id string) (contract.Template, error) {
		looked = append(looked, id)
		return contract.Template{ID: id, Currency: "EUR", Blocks: []contract.LineItem{
			contract.NewCatalogItem("4b7c7f4e-0a0e-4c55-9f1e-3a7a3c2d1e01", "Visit", 100),
		}}, nil
	}
	sub := &recordingSubmitter{}
	var out bytes.Buffer
	c := wizard.New(wizard.Options{Mode: sc.Mode, Submitter: sub})
	require.NoError(t, runScenario(context.Background(), c, sc, lookup, true, &out))

	assert.Equal(t, []string{"tpl-1"}, looked)
	require.Len(t, sub.payloads, 1)
	p := sub.payloads[0]
	assert.Equal(t, "tpl-1", p.TemplateID)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, 100.0, p.TotalValue)
	assert.Contains(t, out.String(), "created contract ctr-9 (total 100.00)")
	assert.True(t, c.Submitted())
}

func TestRunScenarioLookupFailure(t *testing.T) {
	sc, err := loadScenario(writeScenario(t, "template: {id: gone}\n"))
	require.NoError(t, err)
	boom := errors.New("not found")
	c := wizard.New(wizard.Options{Mode: sc.Mode})
	err = runScenario(context.Background(), c, sc, func(context.Context, string) (contract.Template, error) {
		return contract.Template{}, boom
	}, false, &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
}

func TestWizardRunCommandDryRun(t *testing.T) {
	path := writeScenario(t, scratchScenario)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"wizard", "run", "--dry-run", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"record_type": "contract"`)
}

type staleBackend struct{ current int }

func (b *staleBackend) TransitionStatus(_ context.Context, id string, to execution.Status, version int) (execution.Event, error) {
	if version != b.current {
		return execution.Event{}, execution.ErrVersionConflict
	}
	b.current++
	return execution.Event{ID: id, Status: to, Version: b.current}, nil
}

func TestTransitionEvent(t *testing.T) {
	m := execution.NewMachine(&staleBackend{current: 3}, execution.MachineOptions{})
	ev := execution.Event{ID: "ev-1", Type: "inspection", Status: execution.StatusScheduled, Version: 3}

	var out bytes.Buffer
	require.NoError(t, transitionEvent(context.Background(), m, ev, execution.StatusInProgress, 0, &out))
	assert.Equal(t, "ev-1: scheduled -> in_progress (version 4)\n", out.String())

	err := transitionEvent(context.Background(), m, ev, execution.StatusInProgress, 2, &bytes.Buffer{})
	require.ErrorIs(t, err, execution.ErrVersionConflict)
	assert.Contains(t, err.Error(), "refresh and retry")

	err = transitionEvent(context.Background(), m, ev, execution.StatusCompleted, 0, &bytes.Buffer{})
	require.ErrorIs(t, err, execution.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "allowed from scheduled")
}
