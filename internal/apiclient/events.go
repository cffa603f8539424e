package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/diewo77/go-contracts/internal/execution"
)

// TransitionStatus asks the server to move an event to a new status. A stale
// version comes back as an error matching execution.ErrVersionConflict.
func (c *Client) TransitionStatus(ctx context.Context, id string, to execution.Status, version int) (execution.Event, error) {
	in := struct {
		Status  execution.Status `json:"status"`
		Version int              `json:"version"`
	}{to, version}
	var ev execution.Event
	err := c.Patch(ctx, "/service-events/status?id="+url.QueryEscape(id), in, &ev)
	if errors.Is(err, ErrConflict) {
		return execution.Event{}, fmt.Errorf("%w: %w", execution.ErrVersionConflict, err)
	}
	if err != nil {
		return execution.Event{}, err
	}
	return ev, nil
}

// TransitionRules fetches the server's per-event-type transition tables.
func (c *Client) TransitionRules(ctx context.Context) (execution.Rules, error) {
	var r execution.Rules
	if err := c.Get(ctx, "/service-events/transitions", &r); err != nil {
		return execution.Rules{}, fmt.Errorf("transition rules: %w", err)
	}
	if r.Default == nil {
		r.Default = execution.DefaultTransitions
	}
	return r, nil
}

// Event fetches one service event.
func (c *Client) Event(ctx context.Context, id string) (execution.Event, error) {
	var ev execution.Event
	if err := c.Get(ctx, "/service-events/show?id="+url.QueryEscape(id), &ev); err != nil {
		return execution.Event{}, err
	}
	return ev, nil
}

// Events lists the service events of a contract.
func (c *Client) Events(ctx context.Context, contractID string) ([]execution.Event, error) {
	var out []execution.Event
	if err := c.Get(ctx, "/service-events?contract_id="+url.QueryEscape(contractID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
