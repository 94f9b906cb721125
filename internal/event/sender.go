package event

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Sender ships a pre-serialized JSON payload to url and reports whether it
// was accepted.
type Sender interface {
	PostJSON(url string, body []byte, fetchResponse bool) ([]byte, bool)
	Close()
}

// DefaultSender is a synchronous POSTer with manual retry-and-sleep,
// matching the teacher's webhook dispatcher: an explicit http.Client with a
// timeout, a plain for-loop retrying on failure, response body drained
// before close.
type DefaultSender struct {
	client        *http.Client
	retryInterval time.Duration
	maxRetries    int
	logger        *log.Logger
}

// NewDefaultSender builds a sender that retries up to maxRetries times
// (clamped to [0,3]), sleeping retryInterval between attempts. transport
// is optional (nil uses http.DefaultTransport) and carries any
// proxy/TLS overrides the caller configured.
func NewDefaultSender(timeout, retryInterval time.Duration, maxRetries int, logger *log.Logger, transport http.RoundTripper) *DefaultSender {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > 3 {
		maxRetries = 3
	}
	return &DefaultSender{
		client:        &http.Client{Timeout: timeout, Transport: transport},
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
		logger:        logger,
	}
}

// PostJSON POSTs body to url, retrying on any non-200 response or transport
// error. Only HTTP 200 counts as success; fetchResponse controls whether
// the response body is read and returned.
func (s *DefaultSender) PostJSON(url string, body []byte, fetchResponse bool) ([]byte, bool) {
	deliveryID := uuid.New().String()

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.retryInterval)
		}

		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			s.logger.Printf("[event] failed to build request: %v", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Delivery-Id", deliveryID)

		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.Printf("[event] sending error delivery_id=%s (attempt %d/%d): %v", deliveryID, attempt+1, s.maxRetries+1, err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var respBody []byte
			if fetchResponse {
				respBody, _ = io.ReadAll(resp.Body)
			} else {
				_, _ = io.Copy(io.Discard, resp.Body)
			}
			resp.Body.Close()
			return respBody, true
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		s.logger.Printf("[event] sending rejected delivery_id=%s (attempt %d/%d): status=%d", deliveryID, attempt+1, s.maxRetries+1, resp.StatusCode)
	}
	return nil, false
}

// Close releases the sender's idle connections.
func (s *DefaultSender) Close() {
	s.client.CloseIdleConnections()
}
