package config

import (
	"testing"
	"time"
)

func TestNewRejectsNonASCIIEnvSecret(t *testing.T) {
	_, err := New(
		WithEnvSecret("sécret"),
		WithEventURL("https://example.com/events"),
		WithStreamingURL("https://example.com"),
	)
	if err == nil {
		t.Fatalf("expected an error for a non-ASCII env secret")
	}
}

func TestNewRejectsRelativeURLs(t *testing.T) {
	_, err := New(
		WithEnvSecret("secret"),
		WithEventURL("/events"),
		WithStreamingURL("https://example.com"),
	)
	if err == nil {
		t.Fatalf("expected an error for a relative event url")
	}
}

func TestNewStripsTrailingSlashFromURLs(t *testing.T) {
	cfg, err := New(
		WithEnvSecret("secret"),
		WithEventURL("https://example.com/events/"),
		WithStreamingURL("https://example.com/"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EventURL != "https://example.com/events" {
		t.Fatalf("expected trailing slash stripped, got %q", cfg.EventURL)
	}
	if cfg.StreamingURL != "https://example.com" {
		t.Fatalf("expected trailing slash stripped, got %q", cfg.StreamingURL)
	}
}

func TestOfflineSkipsURLAndSecretValidation(t *testing.T) {
	cfg, err := New(WithOffline(true))
	if err != nil {
		t.Fatalf("unexpected error for offline config: %v", err)
	}
	if !cfg.Offline {
		t.Fatalf("expected Offline to be true")
	}
}

func TestClampEnforcesBounds(t *testing.T) {
	cfg, err := New(
		WithEnvSecret("secret"),
		WithEventURL("https://example.com/events"),
		WithStreamingURL("https://example.com"),
		WithStreamingFirstRetryDelay(time.Hour),
		WithEventsMaxInQueue(1),
		WithEventsFlushInterval(time.Hour),
		WithEventsRetryInterval(time.Hour),
		WithEventsMaxRetries(99),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StreamingFirstRetryDelay != maxStreamingFirstRetryDelay {
		t.Errorf("expected streaming first retry delay clamped to %v, got %v", maxStreamingFirstRetryDelay, cfg.StreamingFirstRetryDelay)
	}
	if cfg.EventsMaxInQueue != 10000 {
		t.Errorf("expected events max in queue floored to 10000, got %d", cfg.EventsMaxInQueue)
	}
	if cfg.EventsFlushInterval != maxEventsFlushInterval {
		t.Errorf("expected flush interval clamped to %v, got %v", maxEventsFlushInterval, cfg.EventsFlushInterval)
	}
	if cfg.EventsRetryInterval != maxEventsRetryInterval {
		t.Errorf("expected retry interval clamped to %v, got %v", maxEventsRetryInterval, cfg.EventsRetryInterval)
	}
	if cfg.EventsMaxRetries != maxEventsMaxRetries {
		t.Errorf("expected max retries clamped to %d, got %d", maxEventsMaxRetries, cfg.EventsMaxRetries)
	}
}

func TestClampCapsWSSocketTimeout(t *testing.T) {
	cfg, err := New(WithOffline(true), WithWSTransport(WSTransport{SocketTimeout: time.Minute}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WS.SocketTimeout != maxWSSocketTimeout {
		t.Errorf("expected ws socket timeout clamped to %v, got %v", maxWSSocketTimeout, cfg.WS.SocketTimeout)
	}
}

func TestWithDefaultsIsStoredVerbatim(t *testing.T) {
	defaults := map[string]any{"flag-a": true}
	cfg, err := New(WithOffline(true), WithDefaults(defaults))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults["flag-a"] != true {
		t.Fatalf("expected defaults map to be stored as-is, got %+v", cfg.Defaults)
	}
}

func TestHTTPTransportBuildAppliesProxyAndTLS(t *testing.T) {
	transport, err := HTTPTransport{
		ProxyURL:           "http://proxy.example.com:8080",
		InsecureSkipVerify: true,
	}.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.Proxy == nil {
		t.Fatalf("expected a proxy func to be set")
	}
	if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected InsecureSkipVerify to propagate into the tls.Config")
	}
}

func TestHTTPTransportBuildRejectsInvalidProxyURL(t *testing.T) {
	_, err := HTTPTransport{ProxyURL: "://not-a-url"}.Build()
	if err == nil {
		t.Fatalf("expected an error for a malformed proxy url")
	}
}

func TestWSTransportBuildCapsSocketTimeout(t *testing.T) {
	dialer, err := WSTransport{SocketTimeout: time.Minute}.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dialer.HandshakeTimeout != maxWSSocketTimeout {
		t.Fatalf("expected handshake timeout capped to %v, got %v", maxWSSocketTimeout, dialer.HandshakeTimeout)
	}
}
