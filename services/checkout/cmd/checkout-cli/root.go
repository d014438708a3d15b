package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformlogging "github.com/riseup/payments/platform/logging"
	"github.com/riseup/payments/services/checkout/internal/client/checkout"
)

const defaultAddr = "http://127.0.0.1:8080"

// cliOptions are the persistent flags shared by every command
type cliOptions struct {
	addr     string
	timeout  time.Duration
	logLevel string
}

func (o *cliOptions) client() *checkout.Client {
	return checkout.NewClient(o.addr, o.timeout)
}

func (o *cliOptions) logger() (*zap.Logger, error) {
	return platformlogging.New(platformlogging.Config{
		ServiceName: "checkout-cli",
		Env:         "local",
		Level:       o.logLevel,
		Format:      "console",
	})
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	addr := os.Getenv("CHECKOUT_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	rootCmd := &cobra.Command{
		Use:           "checkout-cli",
		Short:         "Create, watch and settle RiseUp payments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.addr, "addr", addr, "checkout service base URL (env CHECKOUT_ADDR)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(chargeCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(watchCmd(opts))
	rootCmd.AddCommand(confirmCmd(opts))
	rootCmd.AddCommand(cancelCmd(opts))
	rootCmd.AddCommand(eventsCmd(opts))

	return rootCmd
}
