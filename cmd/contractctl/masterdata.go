package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diewo77/go-contracts/internal/apiclient"
)

var masterDataFlags struct {
	json bool
}

var masterDataCmd = &cobra.Command{
	Use:   "masterdata",
	Short: "Show tax rates, categories, templates and catalog blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		md, err := client.FetchMasterData(cmd.Context())
		if err != nil {
			return err
		}
		if masterDataFlags.json {
			return printJSON(cmd.OutOrStdout(), md)
		}
		return printMasterData(cmd.OutOrStdout(), md)
	},
}

func init() {
	masterDataCmd.Flags().BoolVar(&masterDataFlags.json, "json", false, "Print as JSON")
}

func printMasterData(out io.Writer, md apiclient.MasterData) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAX RATES")
	for _, t := range md.TaxRates {
		fmt.Fprintf(tw, "  %s\t%s\t%g%%\n", t.ID, t.Name, t.Rate)
	}
	fmt.Fprintln(tw, "CATEGORIES")
	for _, c := range md.Categories {
		fmt.Fprintf(tw, "  %s\t%s\n", c.ID, c.Name)
	}
	fmt.Fprintln(tw, "TEMPLATES")
	for _, t := range md.Templates {
		fmt.Fprintf(tw, "  %s\t%s\t%d blocks\n", t.ID, t.Name, len(t.Blocks))
	}
	fmt.Fprintln(tw, "CATALOG")
	for _, b := range md.Catalog {
		taxes := make([]string, 0, len(b.Taxes))
		for _, t := range b.Taxes {
			taxes = append(taxes, t.Name)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%.2f\t%s\t%s\n", b.ID, b.Name, b.Price, b.Cycle, strings.Join(taxes, "+"))
	}
	return tw.Flush()
}
