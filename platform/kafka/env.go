package kafka

import (
	"github.com/riseup/payments/platform/envconfig"
)

// LoadEnv overrides cfg with KAFKA_* environment variables
func LoadEnv(cfg *Config) error {
	return envconfig.Parse(cfg)
}
