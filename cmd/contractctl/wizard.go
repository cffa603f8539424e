package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/diewo77/go-contracts/internal/apiclient"
	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/wizard"
)

var wizardFlags struct {
	dryRun bool
}

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Run the contract creation wizard",
}

var wizardRunCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Walk the wizard with input from a scenario file and submit it",
	Long: `Walk every wizard step with the input from a scenario file. The same
navigation guards as the interactive flow apply, so an incomplete scenario
stops at the first step it cannot pass. With --dry-run the request payload
is printed instead of being submitted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadScenario(args[0])
		if err != nil {
			return err
		}
		opts := wizard.Options{
			Mode:         sc.Mode,
			ContractType: sc.ContractType,
			Logger:       log.New(os.Stderr, "wizard: ", log.LstdFlags),
		}
		var lookup TemplateLookup
		if !wizardFlags.dryRun {
			client, err := newClient()
			if err != nil {
				return err
			}
			opts.Submitter = client
			lookup = templateLookup(client)
		}
		return runScenario(cmd.Context(), wizard.New(opts), sc, lookup, !wizardFlags.dryRun, cmd.OutOrStdout())
	},
}

func init() {
	wizardCmd.AddCommand(wizardRunCmd)
	wizardRunCmd.Flags().BoolVar(&wizardFlags.dryRun, "dry-run", false, "Print the payload instead of submitting it")
}

func templateLookup(client *apiclient.Client) TemplateLookup {
	return func(ctx context.Context, id string) (contract.Template, error) {
		md, err := client.FetchMasterData(ctx)
		if err != nil {
			return contract.Template{}, err
		}
		for _, t := range md.Templates {
			if t.ID == id {
				return t, nil
			}
		}
		return contract.Template{}, fmt.Errorf("template %q not found", id)
	}
}
