package telemetry

import "time"

// Fallbacks for unset Config fields.
const (
	DefaultServiceName     = "contactpic"
	DefaultEndpoint        = "localhost:4317"
	DefaultShutdownTimeout = 5 * time.Second
)

// Config selects where spans go and how many are kept.
type Config struct {
	Enabled bool

	ServiceName    string
	ServiceVersion string

	// Endpoint is the collector's OTLP gRPC address, host:port.
	Endpoint string
	Insecure bool

	// SampleRate is clamped to [0, 1]. Child spans follow their parent's
	// decision.
	SampleRate float64

	// ShutdownTimeout bounds the final span flush.
	ShutdownTimeout time.Duration
}

// withDefaults fills unset fields and clamps the sample rate.
func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	c.SampleRate = min(max(c.SampleRate, 0), 1)
	return c
}
