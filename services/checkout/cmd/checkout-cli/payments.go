package main

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/riseup/payments/services/checkout/internal/repository"
)

func chargeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "charge <amount>",
		Short: "Create a charge and print its payment id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}

			id, err := opts.client().CreateCharge(cmd.Context(), amount)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func statusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Print the current state of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payment, err := opts.client().FetchPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printPayment(cmd.OutOrStdout(), payment)
			return nil
		},
	}
}

func confirmCmd(opts *cliOptions) *cobra.Command {
	var settledAt string

	cmd := &cobra.Command{
		Use:   "confirm <externalReference>",
		Short: "Send a settlement notification the way the gateway does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var at *time.Time
			if settledAt != "" {
				t, err := time.Parse(time.RFC3339, settledAt)
				if err != nil {
					return fmt.Errorf("invalid --settled-at: %w", err)
				}
				at = &t
			}

			res, err := opts.client().Confirm(cmd.Context(), args[0], at)
			if err != nil {
				return err
			}
			if res.AlreadySettled {
				fmt.Fprintln(cmd.OutOrStdout(), "already settled")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "confirmed")
			return nil
		},
	}
	cmd.Flags().StringVar(&settledAt, "settled-at", "", "settlement time in RFC3339, defaults to now on the server")
	return cmd
}

func cancelCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := opts.client().Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printPayment(w io.Writer, p repository.Payment) {
	fmt.Fprintf(w, "id:        %s\n", p.ID)
	fmt.Fprintf(w, "amount:    %s\n", p.Amount.StringFixed(2))
	fmt.Fprintf(w, "status:    %s\n", p.Status)
	fmt.Fprintf(w, "created:   %s\n", p.CreatedAt.Format(time.RFC3339))
	if p.ScannableCode != "" {
		fmt.Fprintf(w, "code:      %s\n", p.ScannableCode)
	}
	if p.SettledAt != nil {
		fmt.Fprintf(w, "settled:   %s\n", p.SettledAt.Format(time.RFC3339))
	}
	if p.CancelledAt != nil {
		fmt.Fprintf(w, "cancelled: %s\n", p.CancelledAt.Format(time.RFC3339))
	}
}
