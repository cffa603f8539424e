package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var contractsFlags struct {
	page  int
	limit int
}

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "List contracts and RFQs",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		rows, err := client.ListContracts(cmd.Context(), contractsFlags.page, contractsFlags.limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tNAME\tSTATUS\tTOTAL")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %.2f\n", r.ID, r.RecordType, r.Name, r.Status, r.Currency, r.TotalValue)
		}
		return tw.Flush()
	},
}

func init() {
	contractsCmd.Flags().IntVar(&contractsFlags.page, "page", 1, "Page number")
	contractsCmd.Flags().IntVar(&contractsFlags.limit, "limit", 20, "Page size (max 100)")
}
