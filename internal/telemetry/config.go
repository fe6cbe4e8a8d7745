package telemetry

// Config configures span export over OTLP/gRPC.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the collector address, e.g. localhost:4317.
	Endpoint string

	// Insecure talks to the collector without TLS.
	Insecure bool

	// SampleRate is the share of sessions traced, from 0 to 1. Commands
	// follow the decision of their session.
	SampleRate float64
}

// DefaultConfig returns tracing disabled, pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:    defaultServiceName,
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
