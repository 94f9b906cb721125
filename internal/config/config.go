// Package config builds the validated, clamped Config the Coordinator
// wires its subcomponents from. It follows the teacher's layered
// defaults-then-validate shape (internal/config/config.go), adapted from
// viper-bound env vars to functional options since this SDK is an embedded
// library rather than a standalone daemon; LoadFromEnv restores the
// env-var surface for callers that want it.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TimurManjosov/fbgo-sdk/internal/event"
	"github.com/TimurManjosov/fbgo-sdk/internal/store"
	"github.com/TimurManjosov/fbgo-sdk/internal/streaming"
)

const (
	defaultStreamingFirstRetryDelay = time.Second
	maxStreamingFirstRetryDelay     = 60 * time.Second

	defaultEventsFlushInterval = time.Second
	maxEventsFlushInterval     = 3 * time.Second

	defaultEventsRetryInterval = 100 * time.Millisecond
	maxEventsRetryInterval     = time.Second

	defaultEventsMaxRetries = 1
	minEventsMaxRetries     = 1
	maxEventsMaxRetries     = 3

	defaultHTTPTimeout = 10 * time.Second
)

// Config bundles every tunable the Coordinator needs to construct its
// subcomponents, plus optional pre-built overrides for the data store,
// event processor and update processor (the original SDK's
// data_storage/update_processor_imp/event_processor_imp injection
// points).
type Config struct {
	EnvSecret    string
	EventURL     string
	StreamingURL string
	Offline      bool

	StreamingFirstRetryDelay time.Duration
	EventsMaxInQueue         int
	EventsFlushInterval      time.Duration
	EventsRetryInterval      time.Duration
	EventsMaxRetries         int
	HTTPTimeout              time.Duration

	Logger *log.Logger

	DataStorage        store.Store
	EventProcessorImp   event.EventProcessor
	UpdateProcessorImp  streaming.UpdateProcessor

	// MetricsRegistry, when set, turns on the optional Prometheus
	// collectors. Left nil, the Coordinator runs with no metrics at all.
	MetricsRegistry *prometheus.Registry

	// HTTP and WS carry the connect/read-timeout, proxy and TLS overrides
	// for the event sender and streaming dialer respectively.
	HTTP HTTPTransport
	WS   WSTransport

	// Defaults maps a flag key to the fallback value VariationDetail uses
	// instead of the caller's own default, for keys present in the map.
	// Lets an application pin per-flag fallbacks once at config time
	// rather than repeating them at every call site.
	Defaults map[string]any
}

// Option mutates a Config under construction.
type Option func(*Config)

func WithEnvSecret(secret string) Option { return func(c *Config) { c.EnvSecret = secret } }
func WithEventURL(u string) Option       { return func(c *Config) { c.EventURL = u } }
func WithStreamingURL(u string) Option    { return func(c *Config) { c.StreamingURL = u } }
func WithOffline(offline bool) Option     { return func(c *Config) { c.Offline = offline } }
func WithLogger(l *log.Logger) Option     { return func(c *Config) { c.Logger = l } }

func WithStreamingFirstRetryDelay(d time.Duration) Option {
	return func(c *Config) { c.StreamingFirstRetryDelay = d }
}
func WithEventsMaxInQueue(n int) Option { return func(c *Config) { c.EventsMaxInQueue = n } }
func WithEventsFlushInterval(d time.Duration) Option {
	return func(c *Config) { c.EventsFlushInterval = d }
}
func WithEventsRetryInterval(d time.Duration) Option {
	return func(c *Config) { c.EventsRetryInterval = d }
}
func WithEventsMaxRetries(n int) Option { return func(c *Config) { c.EventsMaxRetries = n } }
func WithHTTPTimeout(d time.Duration) Option { return func(c *Config) { c.HTTPTimeout = d } }

// WithDataStorage overrides the default in-memory store.
func WithDataStorage(s store.Store) Option { return func(c *Config) { c.DataStorage = s } }

// WithEventProcessor overrides the default HTTP-shipping event processor.
func WithEventProcessor(p event.EventProcessor) Option {
	return func(c *Config) { c.EventProcessorImp = p }
}

// WithUpdateProcessor overrides the default websocket update processor.
func WithUpdateProcessor(p streaming.UpdateProcessor) Option {
	return func(c *Config) { c.UpdateProcessorImp = p }
}

// WithMetricsRegistry turns on the optional Prometheus collectors,
// registering them into reg.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(c *Config) { c.MetricsRegistry = reg }
}

// WithHTTPTransport overrides the event sender's connect/read timeouts,
// proxy and TLS settings.
func WithHTTPTransport(t HTTPTransport) Option {
	return func(c *Config) { c.HTTP = t }
}

// WithWSTransport overrides the streaming dialer's socket timeout, proxy
// and TLS settings.
func WithWSTransport(t WSTransport) Option {
	return func(c *Config) { c.WS = t }
}

// WithDefaults sets the flag-key-to-fallback-value map VariationDetail
// consults ahead of the caller's own default.
func WithDefaults(defaults map[string]any) Option {
	return func(c *Config) { c.Defaults = defaults }
}

func defaults() *Config {
	return &Config{
		StreamingFirstRetryDelay: defaultStreamingFirstRetryDelay,
		EventsMaxInQueue:         event.MinInboxCapacity,
		EventsFlushInterval:      defaultEventsFlushInterval,
		EventsRetryInterval:      defaultEventsRetryInterval,
		EventsMaxRetries:         defaultEventsMaxRetries,
		HTTPTimeout:              defaultHTTPTimeout,
		Logger:                   log.New(os.Stderr, "[sdkconfig] ", log.LstdFlags),
	}
}

// New builds a Config from opts, bringing out-of-range tunables back into
// range (non-positive durations fall back to their defaults, values past an
// upper bound are capped at it, a retry count below 1 becomes 1; a warning
// is logged only for the first-retry-delay, event-queue-floor and
// upper-bound cases) and rejecting structurally invalid input (a malformed
// env secret or URL) outright.
func New(opts ...Option) (*Config, error) {
	cfg := defaults()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	clamp(cfg)

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Offline {
		return nil
	}

	if cfg.EnvSecret == "" {
		return fmt.Errorf("%w: env secret must not be empty", ErrInvalidEnvSecret)
	}
	for i := 0; i < len(cfg.EnvSecret); i++ {
		if cfg.EnvSecret[i] > 127 {
			return fmt.Errorf("%w: env secret must be ASCII", ErrInvalidEnvSecret)
		}
	}

	eventURL, err := validateAbsoluteURL(cfg.EventURL)
	if err != nil {
		return fmt.Errorf("%w: event url: %v", ErrInvalidURL, err)
	}
	cfg.EventURL = eventURL

	streamingURL, err := validateAbsoluteURL(cfg.StreamingURL)
	if err != nil {
		return fmt.Errorf("%w: streaming url: %v", ErrInvalidURL, err)
	}
	cfg.StreamingURL = streamingURL

	return nil
}

func validateAbsoluteURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("must be an absolute URL, got %q", raw)
	}
	return trimmed, nil
}

func clamp(cfg *Config) {
	if cfg.StreamingFirstRetryDelay <= 0 {
		cfg.Logger.Printf("[config] streaming first retry delay %v invalid, using default %v", cfg.StreamingFirstRetryDelay, defaultStreamingFirstRetryDelay)
		cfg.StreamingFirstRetryDelay = defaultStreamingFirstRetryDelay
	} else if cfg.StreamingFirstRetryDelay > maxStreamingFirstRetryDelay {
		cfg.Logger.Printf("[config] streaming first retry delay %v exceeds max, clamping to %v", cfg.StreamingFirstRetryDelay, maxStreamingFirstRetryDelay)
		cfg.StreamingFirstRetryDelay = maxStreamingFirstRetryDelay
	}

	if cfg.EventsMaxInQueue < event.MinInboxCapacity {
		cfg.Logger.Printf("[config] events max in queue %d below floor, using %d", cfg.EventsMaxInQueue, event.MinInboxCapacity)
		cfg.EventsMaxInQueue = event.MinInboxCapacity
	}

	if cfg.EventsFlushInterval <= 0 {
		cfg.EventsFlushInterval = defaultEventsFlushInterval
	} else if cfg.EventsFlushInterval > maxEventsFlushInterval {
		cfg.Logger.Printf("[config] events flush interval %v exceeds max, clamping to %v", cfg.EventsFlushInterval, maxEventsFlushInterval)
		cfg.EventsFlushInterval = maxEventsFlushInterval
	}

	if cfg.EventsRetryInterval <= 0 {
		cfg.EventsRetryInterval = defaultEventsRetryInterval
	} else if cfg.EventsRetryInterval > maxEventsRetryInterval {
		cfg.Logger.Printf("[config] events retry interval %v exceeds max, clamping to %v", cfg.EventsRetryInterval, maxEventsRetryInterval)
		cfg.EventsRetryInterval = maxEventsRetryInterval
	}

	if cfg.EventsMaxRetries < minEventsMaxRetries {
		cfg.EventsMaxRetries = minEventsMaxRetries
	} else if cfg.EventsMaxRetries > maxEventsMaxRetries {
		cfg.Logger.Printf("[config] events max retries %d exceeds max, clamping to %d", cfg.EventsMaxRetries, maxEventsMaxRetries)
		cfg.EventsMaxRetries = maxEventsMaxRetries
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	if cfg.WS.SocketTimeout > maxWSSocketTimeout {
		cfg.Logger.Printf("[config] ws socket timeout %v exceeds max, clamping to %v", cfg.WS.SocketTimeout, maxWSSocketTimeout)
		cfg.WS.SocketTimeout = maxWSSocketTimeout
	}
}
