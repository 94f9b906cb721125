package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 10 * time.Second

	defaultWSSocketTimeout = 5 * time.Second
	maxWSSocketTimeout     = 10 * time.Second
)

// HTTPTransport configures the event-shipping HTTP client per spec.md's
// HTTP sub-config: split connect/read timeouts, proxy, CA bundle, client
// cert and insecure-skip-verify. The zero value builds a plain transport
// with the package's default timeouts and no TLS overrides.
type HTTPTransport struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	ProxyURL string

	CABundlePEM        []byte
	ClientCertPEM      []byte
	ClientKeyPEM       []byte
	InsecureSkipVerify bool
}

func (t HTTPTransport) withDefaults() HTTPTransport {
	if t.ConnectTimeout <= 0 {
		t.ConnectTimeout = defaultConnectTimeout
	}
	if t.ReadTimeout <= 0 {
		t.ReadTimeout = defaultReadTimeout
	}
	return t
}

// Build turns t into an *http.Transport, parsing the proxy URL and
// building a tls.Config from the CA bundle / client cert pair when
// supplied. The returned transport has no response-header timeout of its
// own; ReadTimeout is applied by the caller as the owning http.Client's
// overall Timeout, matching the teacher's single-Timeout http.Client
// rather than a transport-level deadline.
func (t HTTPTransport) Build() (*http.Transport, error) {
	t = t.withDefaults()

	tlsConfig, err := t.tlsConfig()
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
		DialContext: (&net.Dialer{
			Timeout: t.ConnectTimeout,
		}).DialContext,
	}

	if t.ProxyURL != "" {
		proxyURL, err := url.Parse(t.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("%w: http proxy url: %v", ErrInvalidURL, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return transport, nil
}

func (t HTTPTransport) tlsConfig() (*tls.Config, error) {
	if !t.InsecureSkipVerify && len(t.CABundlePEM) == 0 && len(t.ClientCertPEM) == 0 {
		return nil, nil
	}

	cfg := &tls.Config{InsecureSkipVerify: t.InsecureSkipVerify}

	if len(t.CABundlePEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(t.CABundlePEM) {
			return nil, fmt.Errorf("config: ca bundle contains no usable certificates")
		}
		cfg.RootCAs = pool
	}

	if len(t.ClientCertPEM) > 0 {
		cert, err := tls.X509KeyPair(t.ClientCertPEM, t.ClientKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("config: client cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// WSTransport configures the streaming dialer per spec.md's WebSocket
// sub-config: socket timeout (capped to 10s), TLS and proxy. The zero
// value builds a dialer with the package's default socket timeout and no
// TLS overrides.
type WSTransport struct {
	SocketTimeout      time.Duration
	InsecureSkipVerify bool
	ProxyURL           string
}

func (t WSTransport) withDefaults() WSTransport {
	if t.SocketTimeout <= 0 {
		t.SocketTimeout = defaultWSSocketTimeout
	} else if t.SocketTimeout > maxWSSocketTimeout {
		t.SocketTimeout = maxWSSocketTimeout
	}
	return t
}

// Build turns t into a *websocket.Dialer.
func (t WSTransport) Build() (*websocket.Dialer, error) {
	t = t.withDefaults()

	dialer := &websocket.Dialer{
		HandshakeTimeout: t.SocketTimeout,
	}
	if t.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if t.ProxyURL != "" {
		proxyURL, err := url.Parse(t.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("%w: websocket proxy url: %v", ErrInvalidURL, err)
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
	}
	return dialer, nil
}
