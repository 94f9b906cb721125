package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadFromEnv builds a Config purely from environment variables (and an
// optional .env file), mirroring the teacher's own config.Load(): viper
// reads the environment with defaults pre-seeded, then the result is
// validated and clamped exactly as New does. Any opts supplied override
// whatever LoadFromEnv would otherwise have read, so callers can layer
// explicit overrides on top of an environment-driven baseline.
func LoadFromEnv(opts ...Option) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	setEnvDefaults(v)

	envOpts := []Option{
		WithEnvSecret(strings.TrimSpace(v.GetString("ENV_SECRET"))),
		WithEventURL(strings.TrimSpace(v.GetString("EVENT_URL"))),
		WithStreamingURL(strings.TrimSpace(v.GetString("STREAMING_URL"))),
		WithOffline(v.GetBool("OFFLINE")),
		WithStreamingFirstRetryDelay(time.Duration(v.GetInt("STREAMING_FIRST_RETRY_DELAY_MS")) * time.Millisecond),
		WithEventsMaxInQueue(v.GetInt("EVENTS_MAX_IN_QUEUE")),
		WithEventsFlushInterval(time.Duration(v.GetInt("EVENTS_FLUSH_INTERVAL_MS")) * time.Millisecond),
		WithEventsRetryInterval(time.Duration(v.GetInt("EVENTS_RETRY_INTERVAL_MS")) * time.Millisecond),
		WithEventsMaxRetries(v.GetInt("EVENTS_MAX_RETRIES")),
		WithHTTPTimeout(time.Duration(v.GetInt("HTTP_TIMEOUT_MS")) * time.Millisecond),
	}

	return New(append(envOpts, opts...)...)
}

func setEnvDefaults(v *viper.Viper) {
	v.SetDefault("OFFLINE", false)
	v.SetDefault("STREAMING_FIRST_RETRY_DELAY_MS", int(defaultStreamingFirstRetryDelay/time.Millisecond))
	v.SetDefault("EVENTS_MAX_IN_QUEUE", 10000)
	v.SetDefault("EVENTS_FLUSH_INTERVAL_MS", int(defaultEventsFlushInterval/time.Millisecond))
	v.SetDefault("EVENTS_RETRY_INTERVAL_MS", int(defaultEventsRetryInterval/time.Millisecond))
	v.SetDefault("EVENTS_MAX_RETRIES", defaultEventsMaxRetries)
	v.SetDefault("HTTP_TIMEOUT_MS", int(defaultHTTPTimeout/time.Millisecond))
}
