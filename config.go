package fbgo

import "github.com/TimurManjosov/fbgo-sdk/internal/config"

// Config is the validated, clamped set of tunables a Client is built
// from. Build one with NewConfig or LoadConfigFromEnv.
type Config = config.Config

// Option mutates a Config under construction.
type Option = config.Option

// HTTPTransport configures the event sender's connect/read timeouts,
// proxy and TLS settings.
type HTTPTransport = config.HTTPTransport

// WSTransport configures the streaming dialer's socket timeout, proxy and
// TLS settings.
type WSTransport = config.WSTransport

// NewConfig applies opts over the SDK's defaults, validating and clamping
// the result the same way the Coordinator itself needs it validated.
func NewConfig(opts ...Option) (*Config, error) { return config.New(opts...) }

// LoadConfigFromEnv builds a Config purely from environment variables (and
// an optional .env file), with opts layered on top as explicit overrides.
func LoadConfigFromEnv(opts ...Option) (*Config, error) { return config.LoadFromEnv(opts...) }

var (
	WithEnvSecret                = config.WithEnvSecret
	WithEventURL                 = config.WithEventURL
	WithStreamingURL             = config.WithStreamingURL
	WithOffline                  = config.WithOffline
	WithLogger                   = config.WithLogger
	WithStreamingFirstRetryDelay = config.WithStreamingFirstRetryDelay
	WithEventsMaxInQueue         = config.WithEventsMaxInQueue
	WithEventsFlushInterval      = config.WithEventsFlushInterval
	WithEventsRetryInterval      = config.WithEventsRetryInterval
	WithEventsMaxRetries         = config.WithEventsMaxRetries
	WithHTTPTimeout              = config.WithHTTPTimeout
	WithDataStorage              = config.WithDataStorage
	WithEventProcessor           = config.WithEventProcessor
	WithUpdateProcessor          = config.WithUpdateProcessor
	WithMetricsRegistry          = config.WithMetricsRegistry
	WithHTTPTransport            = config.WithHTTPTransport
	WithWSTransport              = config.WithWSTransport
	WithDefaults                 = config.WithDefaults
)
