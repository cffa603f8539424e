package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/diewo77/go-contracts/internal/execution"
)

var eventsFlags struct {
	version int
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect and move service events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list <contract-id>",
	Short: "List the service events of a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		events, err := client.Events(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tVERSION\tSCHEDULED")
		for _, ev := range events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", ev.ID, ev.Type, ev.Status, ev.Version, ev.ScheduledAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var eventsTransitionCmd = &cobra.Command{
	Use:   "transition <event-id> <status>",
	Short: "Move a service event to a new status",
	Long: `Move a service event to a new status. The change is checked against the
server's transition rules first. Pass --version to fail when the event has
changed since you last looked at it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		ev, err := client.Event(ctx, args[0])
		if err != nil {
			return err
		}
		rules, err := client.TransitionRules(ctx)
		if err != nil {
			return err
		}
		m := execution.NewMachine(client, execution.MachineOptions{
			Rules:  rules,
			Logger: log.New(os.Stderr, "events: ", log.LstdFlags),
		})
		return transitionEvent(ctx, m, ev, execution.Status(args[1]), eventsFlags.version, cmd.OutOrStdout())
	},
}

func init() {
	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsTransitionCmd)
	eventsTransitionCmd.Flags().IntVar(&eventsFlags.version, "version", 0, "Expected event version (default: the version just fetched)")
}

func transitionEvent(ctx context.Context, m *execution.Machine, ev execution.Event, to execution.Status, version int, out io.Writer) error {
	if version > 0 {
		ev.Version = version
	}
	moved, err := m.Transition(ctx, ev, to)
	switch {
	case errors.Is(err, execution.ErrVersionConflict):
		return fmt.Errorf("event %s changed on the server, refresh and retry: %w", ev.ID, err)
	case errors.Is(err, execution.ErrInvalidTransition):
		return fmt.Errorf("%w (allowed from %s: %v)", err, ev.Status, m.Allowed(ev))
	case err != nil:
		return err
	}
	_, err = fmt.Fprintf(out, "%s: %s -> %s (version %d)\n", moved.ID, ev.Status, moved.Status, moved.Version)
	return err
}
