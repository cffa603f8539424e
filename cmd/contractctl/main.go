package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/diewo77/go-contracts/internal/apiclient"
	"github.com/diewo77/go-contracts/internal/config"
)

// Version set via ldflags during build
var version = "dev"

var rootFlags struct {
	config string
	apiURL string
	token  string
}

var rootCmd = &cobra.Command{
	Use:           "contractctl",
	Short:         "Create contracts and RFQs and move service events from the command line",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.config, "config", "", "Path to a contracts.yaml config file")
	rootCmd.PersistentFlags().StringVar(&rootFlags.apiURL, "api-url", "", "API base URL (default: api_url from config)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.token, "token", "", "Bearer token (default: api_token from config)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(contractsCmd)
	rootCmd.AddCommand(masterDataCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("contractctl: %v", err)
		stop()
		os.Exit(1)
	}
}

// newClient builds an API client from the config file and environment;
// flags win over both.
func newClient() (*apiclient.Client, error) {
	cfg, err := config.Load(rootFlags.config)
	if err != nil {
		return nil, err
	}
	opts := apiclient.Options{BaseURL: cfg.APIURL, Token: cfg.APIToken, Timeout: cfg.HTTPTimeout}
	if rootFlags.apiURL != "" {
		opts.BaseURL = rootFlags.apiURL
	}
	if rootFlags.token != "" {
		opts.Token = rootFlags.token
	}
	return apiclient.New(opts), nil
}
