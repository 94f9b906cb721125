// Package streaming implements the WebSocket update pipeline: it dials the
// streaming endpoint with a signed handshake token, exchanges data-sync
// envelopes with the server, keeps the connection alive with a heartbeat,
// and reconnects with jittered exponential backoff on any disruption.
package streaming

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TimurManjosov/fbgo-sdk/internal/backoff"
	"github.com/TimurManjosov/fbgo-sdk/internal/category"
	"github.com/TimurManjosov/fbgo-sdk/internal/model"
	"github.com/TimurManjosov/fbgo-sdk/internal/notice"
	"github.com/TimurManjosov/fbgo-sdk/internal/status"
	"github.com/TimurManjosov/fbgo-sdk/internal/store"
	"github.com/TimurManjosov/fbgo-sdk/internal/task"
)

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / float64(time.Second) }

func okStateNow() model.UpdateState { return model.OKState(nowSeconds()) }

func interruptedState(errType, message string) model.UpdateState {
	return model.InterruptedState(nowSeconds(), errType, message)
}

func offState(errType, message string) model.UpdateState {
	return model.OffState(nowSeconds(), errType, message)
}

const (
	heartbeatInterval = 10 * time.Second
	handshakeTimeout  = 10 * time.Second

	closeCodeInvalidRequest = 4003
)

// Config configures a Processor.
type Config struct {
	StreamingURL    string
	EnvSecret       string
	Provider        *status.Provider
	Registry        *store.Registry
	Notices         *notice.Broadcaster
	Logger          *log.Logger
	FirstRetryDelay time.Duration

	// Dialer overrides the socket used to connect: the Coordinator builds
	// one from the configured proxy/TLS/socket-timeout settings, and
	// tests substitute a fake one. Nil uses websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Processor is the default, online UpdateProcessor: it owns the socket
// lifecycle described in the design (connect, sync, heartbeat, reconnect).
type Processor struct {
	cfg      Config
	provider *status.Provider
	registry *store.Registry
	notices  *notice.Broadcaster
	logger   *log.Logger
	backoff  *backoff.Strategy
	dialer   *websocket.Dialer
	rng      *rand.Rand

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewProcessor constructs a Processor from cfg. It does not connect until
// Start is called.
func NewProcessor(cfg Config) *Processor {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Processor{
		cfg:      cfg,
		provider: cfg.Provider,
		registry: cfg.Registry,
		notices:  cfg.Notices,
		logger:   cfg.Logger,
		backoff:  backoff.NewStrategy(cfg.FirstRetryDelay),
		dialer:   dialer,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the connect/reconnect loop in the background.
func (p *Processor) Start() {
	p.wg.Add(1)
	go p.run()
}

// Close stops the processor, closing any live connection and waiting for
// the background loop to exit. Safe to call more than once.
func (p *Processor) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closing = true
		conn := p.conn
		p.mu.Unlock()

		close(p.stopCh)
		if conn != nil {
			_ = conn.Close()
		}
	})
	p.wg.Wait()
}

func (p *Processor) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		fatal := p.connectAndServe()
		if fatal {
			return
		}

		select {
		case <-p.stopCh:
			return
		case <-time.After(p.backoff.NextDelay(false)):
		}
	}
}

// connectAndServe dials once, runs the sync+read loop until the connection
// ends, and reports whether the failure is fatal (no further reconnects).
func (p *Processor) connectAndServe() (fatal bool) {
	started := time.Now()
	conn, closeCode, err := p.dial()
	if err != nil {
		p.provider.UpdateState(stateForDialError(err))
		return false
	}

	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		_ = conn.Close()
		return true
	}
	p.conn = conn
	p.mu.Unlock()

	pingTask := task.Start(heartbeatInterval, func() { p.sendPing() })
	defer pingTask.Stop()

	if err := p.requestInitialSync(conn); err != nil {
		p.provider.UpdateState(stateForDialError(err))
		p.teardownConn(conn)
		return false
	}

	readErr := p.readLoop(conn)
	p.teardownConn(conn)

	if time.Since(started) > 60*time.Second {
		p.backoff.Reset()
	}

	p.mu.Lock()
	closing := p.closing
	p.mu.Unlock()
	if closing {
		return true
	}

	return p.classifyDisconnect(closeCode, readErr)
}

func (p *Processor) teardownConn(conn *websocket.Conn) {
	p.mu.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.mu.Unlock()
	_ = conn.Close()
}

func (p *Processor) dial() (*websocket.Conn, int, error) {
	wsURL, err := buildWebsocketURL(p.cfg.StreamingURL, p.cfg.EnvSecret, time.Now(), p.rng)
	if err != nil {
		return nil, 0, err
	}

	dialer := *p.dialer
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = handshakeTimeout
	}

	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		code := 0
		if resp != nil {
			code = resp.StatusCode
		}
		return nil, code, err
	}
	return conn, 0, nil
}

func buildWebsocketURL(streamingURL, envSecret string, now time.Time, rng *rand.Rand) (string, error) {
	u, err := url.Parse(strings.TrimRight(streamingURL, "/") + "/streaming")
	if err != nil {
		return "", fmt.Errorf("invalid streaming url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported streaming url scheme %q", u.Scheme)
	}

	q := u.Query()
	q.Set("token", BuildToken(envSecret, now, rng))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// requestInitialSync sends the client-initiated data-sync request that
// kicks off either a full or patch sync from the server.
func (p *Processor) requestInitialSync(conn *websocket.Conn) error {
	req := map[string]any{
		"messageType": "data-sync",
		"data": map[string]any{
			"timestamp": p.provider.Store().LatestVersion(),
		},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (p *Processor) sendPing() {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return
	}
	deadline := time.Now().Add(heartbeatInterval / 2)
	if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		p.logger.Printf("[streaming] heartbeat ping failed: %v", err)
	}
}

// readLoop consumes server messages until the connection closes or errors.
func (p *Processor) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := p.handleMessage(raw); err != nil {
			p.logger.Printf("[streaming] malformed data-sync payload: %v", err)
		}
	}
}

func (p *Processor) handleMessage(raw []byte) error {
	env, err := parseEnvelope(raw)
	if err != nil {
		return err
	}

	switch env.MessageType {
	case "data-sync":
		return p.applySync(env.Data)
	case "ping", "pong":
		return nil
	default:
		return nil
	}
}

func (p *Processor) applySync(data syncData) error {
	decodedData, err := decodePayload(data)
	if err != nil {
		p.provider.UpdateState(interruptedState(model.ErrDataStorageUpdate, err.Error()))
		return err
	}

	switch data.EventType {
	case "full":
		ok := p.provider.Init(decodedData.entities, data.Timestamp)
		if !ok {
			p.logger.Printf("[streaming] full sync at version=%d ignored (stale)", data.Timestamp)
			decodedData.flags = nil
		} else if p.registry != nil {
			p.registry.ReplaceAll(decodedData.flags, decodedData.segments)
		}
	case "patch":
		p.applyPatch(data, decodedData)
	default:
		return fmt.Errorf("unrecognized eventType %q", data.EventType)
	}

	p.provider.UpdateState(okStateNow())
	p.notifyFlagChanges(decodedData)
	return nil
}

func (p *Processor) applyPatch(data syncData, decodedData decoded) {
	for _, w := range sortedFlagKeysByTimestamp(data.FeatureFlags) {
		entity := decodedData.entities[category.FeatureFlags][w.ID]
		if !p.provider.Upsert(category.FeatureFlags, w.ID, entity, entity.Timestamp) {
			delete(decodedData.flags, w.ID)
			continue
		}
		if p.registry == nil {
			continue
		}
		if entity.IsArchived {
			p.registry.DeleteFlag(w.ID)
		} else {
			p.registry.SetFlag(w.ID, decodedData.flags[w.ID])
		}
	}
	for _, w := range sortedSegmentKeysByTimestamp(data.Segments) {
		entity := decodedData.entities[category.Segments][w.ID]
		if !p.provider.Upsert(category.Segments, w.ID, entity, entity.Timestamp) {
			continue
		}
		if p.registry == nil {
			continue
		}
		if entity.IsArchived {
			p.registry.DeleteSegment(w.ID)
		} else {
			p.registry.SetSegment(w.ID, decodedData.segments[w.ID])
		}
	}
}

func (p *Processor) notifyFlagChanges(decodedData decoded) {
	if p.notices == nil {
		return
	}
	for key := range decodedData.flags {
		p.notices.Broadcast(notice.FlagChangedNotice{FlagKey: key})
	}
}

// classifyDisconnect maps a closed/broken connection to an INTERRUPTED or
// OFF transition, and reports whether reconnecting should even be
// attempted.
func (p *Processor) classifyDisconnect(closeCode int, err error) (fatal bool) {
	if closeCode == closeCodeInvalidRequest {
		p.provider.UpdateState(offState(model.ErrRequestInvalid, "streaming handshake rejected"))
		return true
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch ce.Code {
		case closeCodeInvalidRequest:
			p.provider.UpdateState(offState(model.ErrRequestInvalid, ce.Text))
			return true
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			p.provider.UpdateState(interruptedState(model.ErrNetwork, "connection closed"))
			return false
		default:
			p.provider.UpdateState(interruptedState(model.ErrUnknownCloseCode, fmt.Sprintf("close code %d", ce.Code)))
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		p.provider.UpdateState(interruptedState(model.ErrNetwork, netErr.Error()))
		return false
	}

	if err != nil {
		p.provider.UpdateState(interruptedState(model.ErrWebsocket, err.Error()))
		return false
	}

	return false
}

// stateForDialError classifies a failed dial attempt: network-level errors
// (DNS, refused connection, timeout) are INTERRUPTED/NETWORK_ERROR; anything
// else from the dialer (including a non-websocket handshake response) is
// INTERRUPTED/WEBSOCKET_ERROR. A dial failure is never fatal on its own —
// the reconnect loop keeps retrying with backoff.
func stateForDialError(err error) model.UpdateState {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return interruptedState(model.ErrNetwork, netErr.Error())
	}
	return interruptedState(model.ErrWebsocket, err.Error())
}
