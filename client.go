package fbgo

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TimurManjosov/fbgo-sdk/internal/evaluator"
	"github.com/TimurManjosov/fbgo-sdk/internal/event"
	"github.com/TimurManjosov/fbgo-sdk/internal/metrics"
	"github.com/TimurManjosov/fbgo-sdk/internal/model"
	"github.com/TimurManjosov/fbgo-sdk/internal/notice"
	"github.com/TimurManjosov/fbgo-sdk/internal/status"
	"github.com/TimurManjosov/fbgo-sdk/internal/store"
	"github.com/TimurManjosov/fbgo-sdk/internal/streaming"
	"github.com/TimurManjosov/fbgo-sdk/internal/task"
)

// metricsTickInterval is how often the Coordinator refreshes its optional
// Prometheus gauges from the store/registry/event processor.
const metricsTickInterval = 5 * time.Second

// allUpdateStates lists every model.StateType string, for the update-state
// gauge vector.
var allUpdateStates = []string{
	string(model.StateInitializing),
	string(model.StateOK),
	string(model.StateInterrupted),
	string(model.StateOff),
}

// Client is the Coordinator: it owns one instance each of the event
// processor, data store, registry, update-status provider, update
// processor and notice broadcaster, and is the SDK's single public entry
// point for flag evaluation and event tracking.
type Client struct {
	logger *log.Logger

	eventProcessor  event.EventProcessor
	dataStore       store.Store
	registry        *store.Registry
	provider        *status.Provider
	evaluator       *evaluator.Evaluator
	updateProcessor streaming.UpdateProcessor
	notices         *notice.Broadcaster
	metrics         *metrics.Collectors
	defaults        map[string]any

	metricsTask *task.Repeatable
	closeOnce   sync.Once
}

// New builds every subcomponent in dependency order — event processor,
// data store, registry, update-status provider, notice broadcaster,
// evaluator, update processor — starts the update processor, and, if
// startWait > 0, blocks until the provider reaches OK or OFF or startWait
// elapses. startWait <= 0 returns immediately without waiting; the
// Coordinator still becomes usable the moment the update processor
// catches up, and Initialized reports that.
func New(cfg *Config, startWait time.Duration) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("fbgo: config must not be nil")
	}

	logger := cfg.Logger
	if logger == nil {
		return nil, fmt.Errorf("fbgo: config logger must not be nil")
	}

	eventProcessor := cfg.EventProcessorImp
	if eventProcessor == nil {
		if cfg.Offline {
			eventProcessor = event.NewNullProcessor()
		} else {
			httpTransport, err := cfg.HTTP.Build()
			if err != nil {
				return nil, fmt.Errorf("fbgo: building http transport: %w", err)
			}
			timeout := cfg.HTTPTimeout
			if cfg.HTTP.ReadTimeout > 0 {
				timeout = cfg.HTTP.ReadTimeout
			}
			eventProcessor = event.NewProcessor(event.Config{
				EventURL:      cfg.EventURL,
				MaxInQueue:    cfg.EventsMaxInQueue,
				FlushInterval: cfg.EventsFlushInterval,
				Sender:        event.NewDefaultSender(timeout, cfg.EventsRetryInterval, cfg.EventsMaxRetries, logger, httpTransport),
				Logger:        logger,
			})
		}
	}

	// The data store is always a real MemoryStore unless the caller
	// injects its own: offline mode only swaps the update and event
	// processors for null variants (spec.md §9's
	// initializeFromExternalJson scenario still has to have somewhere
	// real to land the bootstrapped flags).
	dataStore := cfg.DataStorage
	if dataStore == nil {
		dataStore = store.NewMemoryStore()
	}

	registry := store.NewRegistry()
	provider := status.NewProvider(dataStore, logger)
	notices := notice.New(logger)

	getSegment := func(key string) (model.SegmentDefinition, bool) {
		seg, ok := registry.GetSegment(key)
		if !ok {
			return model.SegmentDefinition{}, false
		}
		return *seg, true
	}
	eval := evaluator.New(getSegment)

	updateProcessor := cfg.UpdateProcessorImp
	if updateProcessor == nil {
		if cfg.Offline {
			updateProcessor = streaming.NewNullProcessor(provider)
		} else {
			wsDialer, err := cfg.WS.Build()
			if err != nil {
				return nil, fmt.Errorf("fbgo: building websocket dialer: %w", err)
			}
			updateProcessor = streaming.NewProcessor(streaming.Config{
				StreamingURL:    cfg.StreamingURL,
				EnvSecret:       cfg.EnvSecret,
				Provider:        provider,
				Registry:        registry,
				Notices:         notices,
				Logger:          logger,
				FirstRetryDelay: cfg.StreamingFirstRetryDelay,
				Dialer:          wsDialer,
			})
		}
	}

	c := &Client{
		logger:          logger,
		eventProcessor:  eventProcessor,
		dataStore:       dataStore,
		registry:        registry,
		provider:        provider,
		evaluator:       eval,
		updateProcessor: updateProcessor,
		notices:         notices,
		metrics:         metrics.New(cfg.MetricsRegistry),
		defaults:        cfg.Defaults,
	}

	if c.metrics != nil {
		c.metricsTask = task.Start(metricsTickInterval, c.refreshMetrics)
	}

	c.updateProcessor.Start()
	if startWait > 0 {
		if !c.provider.WaitForOK(startWait) {
			logger.Printf("[fbgo] did not reach OK within %v, continuing in the background", startWait)
		}
	}

	return c, nil
}

// Initialized reports whether the data store has ever successfully
// received a full sync or upsert.
func (c *Client) Initialized() bool {
	return c.dataStore.Initialized()
}

// Identify sends a bare user-identification event, with no evaluation
// attached.
func (c *Client) Identify(user User) {
	c.eventProcessor.SendUser(user)
}

// TrackMetric enqueues a single named metric for user.
func (c *Client) TrackMetric(user User, eventName string, value float64) {
	c.eventProcessor.SendMetricEvent(event.MetricEvent{
		User:    user,
		Metrics: []event.Metric{event.NewMetric(eventName, value)},
	})
}

// TrackMetrics enqueues a batch of named metrics for user in one event.
func (c *Client) TrackMetrics(user User, metrics map[string]float64) {
	if len(metrics) == 0 {
		return
	}
	batch := make([]event.Metric, 0, len(metrics))
	for name, value := range metrics {
		batch = append(batch, event.NewMetric(name, value))
	}
	c.eventProcessor.SendMetricEvent(event.MetricEvent{User: user, Metrics: batch})
}

// Flush requests an out-of-band flush of whatever events are currently
// buffered.
func (c *Client) Flush() {
	c.eventProcessor.Flush()
}

// InitializeFromExternalJSON bootstraps the data store and registry
// directly from a pre-fetched data-sync payload, bypassing the streaming
// connection entirely. It is meant for offline Clients (WithOffline) that
// still want real flag data to evaluate against. Reports whether the
// payload was applied (a malformed payload, or one older than what the
// store already holds, is rejected).
func (c *Client) InitializeFromExternalJSON(raw []byte) bool {
	entities, flags, segments, timestamp, err := streaming.DecodeFullSyncJSON(raw)
	if err != nil {
		c.logger.Printf("[fbgo] rejected external data-sync json: %v", err)
		return false
	}
	if !c.provider.Init(entities, timestamp) {
		return false
	}
	c.registry.ReplaceAll(flags, segments)
	c.provider.UpdateState(model.OKState(nowSecondsFBGO()))
	return true
}

// Close shuts down every subcomponent and is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.metricsTask != nil {
			c.metricsTask.Stop()
		}
		c.updateProcessor.Close()
		c.eventProcessor.Close()
		c.notices.Stop()
		c.dataStore.Stop()
	})
	return nil
}

func nowSecondsFBGO() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

func (c *Client) refreshMetrics() {
	c.metrics.SetFlagCount(len(c.registry.AllFlags()))
	c.metrics.SetSegmentCount(len(c.registry.AllSegments()))
	if qd, ok := c.eventProcessor.(interface{ QueueDepth() int }); ok {
		c.metrics.SetEventQueueDepth(qd.QueueDepth())
	}
	c.metrics.SetUpdateState(string(c.provider.CurrentState().StateType), allUpdateStates)
}
