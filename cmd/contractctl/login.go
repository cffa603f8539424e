package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginFlags struct {
	email    string
	password string
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange credentials for an API token",
	Long: `Log in and print a bearer token. Export it as CONTRACTS_API_TOKEN or pass
it with --token to the other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		token, err := client.Login(cmd.Context(), loginFlags.email, loginFlags.password)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginFlags.email, "email", "", "Account email (required)")
	loginCmd.Flags().StringVar(&loginFlags.password, "password", "", "Account password (required)")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")
}
