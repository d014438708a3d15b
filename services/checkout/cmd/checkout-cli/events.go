package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformkafka "github.com/riseup/payments/platform/kafka"
	platformlogging "github.com/riseup/payments/platform/logging"
	kafkaevent "github.com/riseup/payments/services/checkout/internal/event/kafka"
)

func eventsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and feed the payment Kafka topics (KAFKA_BROKERS)",
	}
	cmd.AddCommand(eventsTailCmd(opts))
	cmd.AddCommand(eventsPublishConfirmationCmd(opts))
	return cmd
}

func kafkaConfig() (platformkafka.Config, error) {
	cfg := platformkafka.DefaultConfig()
	if err := platformkafka.LoadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load kafka config: %w", err)
	}
	return cfg, nil
}

func eventsTailCmd(opts *cliOptions) *cobra.Command {
	var (
		topic string
		group string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the messages of a topic until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			defer platformlogging.Sync(logger)

			cfg, err := kafkaConfig()
			if err != nil {
				return err
			}
			logger.Info("kafka config loaded", zap.Strings("brokers", cfg.Brokers), zap.String("topic", topic))

			reader := platformkafka.NewReader(cfg, group, topic)
			defer func() {
				if err := reader.Close(); err != nil {
					logger.Error("failed to close kafka reader", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			for {
				m, err := reader.ReadMessage(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) || ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("read message: %w", err)
				}
				fmt.Fprintf(out, "%s/%d@%d key=%s %s\n", m.Topic, m.Partition, m.Offset, m.Key, m.Value)
			}
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "checkout.payments", "topic to read")
	cmd.Flags().StringVar(&group, "group", "checkout-cli-tail", "consumer group id")
	return cmd
}

func eventsPublishConfirmationCmd(opts *cliOptions) *cobra.Command {
	var (
		topic     string
		settledAt string
	)

	cmd := &cobra.Command{
		Use:   "publish-confirmation <externalReference>",
		Short: "Publish a gateway.payment.confirmed event for the checkout consumer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			defer platformlogging.Sync(logger)

			cfg, err := kafkaConfig()
			if err != nil {
				return err
			}

			event := kafkaevent.GatewayEventMessage{
				EventID:           uuid.NewString(),
				EventType:         kafkaevent.EventGatewayPaymentConfirmed,
				OccurredAt:        time.Now().UTC(),
				ExternalReference: args[0],
			}
			if settledAt != "" {
				t, err := time.Parse(time.RFC3339, settledAt)
				if err != nil {
					return fmt.Errorf("invalid --settled-at: %w", err)
				}
				event.SettledAt = &t
			}

			value, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}

			writer := platformkafka.NewWriter(cfg, topic)
			defer func() {
				if err := writer.Close(); err != nil {
					logger.Error("failed to close kafka writer", zap.Error(err))
				}
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			logger.Info("sending message to kafka",
				zap.String("topic", topic),
				zap.String("event_id", event.EventID),
				zap.String("external_reference", event.ExternalReference),
			)
			if err := writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.ExternalReference), Value: value}); err != nil {
				return fmt.Errorf("write message: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), event.EventID)
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "gateway.payments", "gateway events topic")
	cmd.Flags().StringVar(&settledAt, "settled-at", "", "settlement time in RFC3339")
	return cmd
}
