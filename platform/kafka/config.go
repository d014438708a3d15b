package kafka

import (
	"github.com/segmentio/kafka-go"
)

// Config holds the Kafka connection settings shared by the services
type Config struct {
	// Enabled switches event publishing/consuming on; with false the services use noop publishers
	Enabled bool `env:"KAFKA_ENABLED" envDefault:"false"`
	// Brokers depends on where the service runs:
	//   - local (go run): localhost:19092
	//   - docker: kafka:9092
	// Several brokers are comma separated: "broker1:9092,broker2:9092"
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
}

// DefaultConfig returns local development defaults
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Brokers: []string{"localhost:19092"},
	}
}

// NewWriter creates a writer bound to topic.
// Messages with the same key land on the same partition.
func NewWriter(cfg Config, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// NewReader creates a consumer-group reader for topic.
// Offsets are committed explicitly by the caller after handling a message.
func NewReader(cfg Config, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}
