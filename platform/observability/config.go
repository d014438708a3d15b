package observability

import (
	"errors"
	"fmt"
	"time"
)

const defaultMetricInterval = 10 * time.Second

// Config holds the OpenTelemetry settings of one service
type Config struct {
	Enabled bool
	// OTLPEndpoint is the collector's gRPC address, host:port
	OTLPEndpoint string
	// SamplingRatio applies to root spans; children follow their parent
	SamplingRatio float64
	ServiceName   string
	// DeploymentEnvironment is the APP_ENV of the service
	DeploymentEnvironment string
	ServiceVersion        string
	// MetricInterval is the export period of the periodic reader, 10s when zero
	MetricInterval time.Duration
}

// Validate reports settings Init cannot export with.
// A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return errors.New("observability: service name is required")
	}
	if c.OTLPEndpoint == "" {
		return errors.New("observability: OTLP endpoint is required")
	}
	if c.SamplingRatio < 0 || c.SamplingRatio > 1 {
		return fmt.Errorf("observability: sampling ratio %v is outside [0, 1]", c.SamplingRatio)
	}
	if c.MetricInterval < 0 {
		return fmt.Errorf("observability: negative metric interval %s", c.MetricInterval)
	}
	return nil
}

func (c Config) metricInterval() time.Duration {
	if c.MetricInterval == 0 {
		return defaultMetricInterval
	}
	return c.MetricInterval
}
