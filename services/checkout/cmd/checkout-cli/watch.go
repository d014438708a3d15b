package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	platformlogging "github.com/riseup/payments/platform/logging"
	"github.com/riseup/payments/services/checkout/internal/poller"
)

func watchCmd(opts *cliOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Poll a payment until it is confirmed or cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			defer platformlogging.Sync(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			p := poller.New(opts.client(), logger,
				poller.WithInterval(interval),
				poller.WithOnUpdate(func(u poller.Update) {
					switch u.State {
					case poller.StatePending:
						if u.Fetches == 1 && u.Payment.ScannableCode != "" {
							fmt.Fprintf(out, "scan to pay: %s\n", u.Payment.ScannableCode)
						}
						fmt.Fprintf(out, "[%d] pending\n", u.Fetches)
					case poller.StateTransient:
						fmt.Fprintf(out, "[%d] fetch failed, retrying: %v\n", u.Fetches, u.Err)
					case poller.StateConfirmed:
						if u.Payment.SettledAt != nil {
							fmt.Fprintf(out, "[%d] confirmed at %s\n", u.Fetches, u.Payment.SettledAt.Format(time.RFC3339))
							return
						}
						fmt.Fprintf(out, "[%d] confirmed\n", u.Fetches)
					case poller.StateCancelled:
						fmt.Fprintf(out, "[%d] cancelled\n", u.Fetches)
					}
				}),
			)

			h := p.Start(ctx, args[0])
			<-h.Done()
			return watchResult(h.Result())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "pause between status fetches")
	return cmd
}

func watchResult(u poller.Update) error {
	switch u.State {
	case poller.StateConfirmed, poller.StateCancelled:
		return nil
	case poller.StateStopped:
		if u.Err != nil && !errors.Is(u.Err, context.Canceled) {
			return u.Err
		}
		return nil
	case poller.StateNotFound:
		return fmt.Errorf("payment not found: %w", u.Err)
	default:
		return fmt.Errorf("watch failed: %w", u.Err)
	}
}
