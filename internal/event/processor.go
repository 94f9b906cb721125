// Package event implements the bounded, batched, multi-worker asynchronous
// event shipper: an inbox queue, a single dispatcher goroutine, and a
// fixed-size worker pool that flushes buffered events over an HTTP Sender.
package event

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/TimurManjosov/fbgo-sdk/internal/model"
	"github.com/TimurManjosov/fbgo-sdk/internal/task"
)

const (
	// MinInboxCapacity is the floor on events_max_in_queue.
	MinInboxCapacity = 10000
	// drainBatchSize is how many inbox messages the dispatcher drains per
	// wakeup before looping back to a blocking receive.
	drainBatchSize = 50
	// flushBatchSize is the maximum number of events per HTTP POST.
	flushBatchSize = 50
	// maxFlushWorkers bounds concurrent FlushPayloadRunner executions.
	maxFlushWorkers = 5
)

// Processor is the default, online EventProcessor: events flow
// producer -> inbox -> dispatcher -> buffer -> flush worker pool -> Sender.
type Processor struct {
	logger *log.Logger
	sender Sender
	url    string

	inbox chan message

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	flushTask *task.Repeatable

	closeOnce sync.Once
	closed    chan struct{}
	dispatchDone chan struct{}
}

// Config bundles the tunables the Coordinator validates and clamps before
// constructing a Processor.
type Config struct {
	EventURL      string
	MaxInQueue    int
	FlushInterval time.Duration
	Sender        Sender
	Logger        *log.Logger
}

// NewProcessor starts the dispatcher goroutine and the periodic flush task.
func NewProcessor(cfg Config) *Processor {
	capacity := cfg.MaxInQueue
	if capacity < MinInboxCapacity {
		capacity = MinInboxCapacity
	}

	p := &Processor{
		logger:       cfg.Logger,
		sender:       cfg.Sender,
		url:          cfg.EventURL,
		inbox:        make(chan message, capacity),
		sem:          semaphore.NewWeighted(maxFlushWorkers),
		closed:       make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}

	go p.dispatch()
	p.flushTask = task.Start(cfg.FlushInterval, p.requestFlush)

	return p
}

// SendUser enqueues a bare user-identification event.
func (p *Processor) SendUser(u model.User) {
	p.enqueue(message{kind: msgUser, event: UserEvent{User: u}})
}

// SendFlagEvent enqueues a flag-evaluation telemetry event. Unshippable
// events (no variations) are still enqueued; the dispatcher filters them.
func (p *Processor) SendFlagEvent(e FlagEvent) {
	p.enqueue(message{kind: msgFlags, event: e})
}

// SendMetricEvent enqueues a custom-metrics event.
func (p *Processor) SendMetricEvent(e MetricEvent) {
	p.enqueue(message{kind: msgMetrics, event: e})
}

// Flush requests an out-of-band flush of whatever is currently buffered.
func (p *Processor) Flush() {
	p.enqueue(message{kind: msgFlush})
}

// QueueDepth reports how many messages are currently buffered in the
// inbox, for the optional metrics collector.
func (p *Processor) QueueDepth() int {
	return len(p.inbox)
}

func (p *Processor) requestFlush() {
	p.Flush()
}

// enqueue is the non-blocking producer path: on a full inbox, the message
// is dropped and logged rather than blocking the caller.
func (p *Processor) enqueue(m message) {
	select {
	case <-p.closed:
		return
	default:
	}
	select {
	case p.inbox <- m:
	default:
		p.logger.Printf("[event] inbox full, dropping message kind=%d", m.kind)
	}
}

// Close flushes and shuts down the processor. A SHUTDOWN message is
// enqueued with blocking semantics (unlike every other message kind) and
// Close waits for the dispatcher to acknowledge it via completion before
// returning, matching the original SDK's synchronous shutdown rendezvous.
func (p *Processor) Close() {
	p.closeOnce.Do(func() {
		done := make(chan struct{})
		p.inbox <- message{kind: msgShutdown, completion: done}
		<-done
		close(p.closed)
		<-p.dispatchDone
		p.flushTask.Stop()
		p.sender.Close()
	})
}

// dispatch is the single Dispatcher goroutine: it blocks for the first
// message of a wakeup, then drains up to drainBatchSize-1 more
// non-blockingly before acting on everything it collected.
func (p *Processor) dispatch() {
	defer close(p.dispatchDone)

	var buffer []fbEvent

	for {
		first, ok := <-p.inbox
		if !ok {
			return
		}

		batch := []message{first}
	drain:
		for len(batch) < drainBatchSize {
			select {
			case m, ok := <-p.inbox:
				if !ok {
					break drain
				}
				batch = append(batch, m)
			default:
				break drain
			}
		}

		for _, m := range batch {
			switch m.kind {
			case msgShutdown:
				p.flushBuffer(&buffer, true)
				close(m.completion)
				return
			case msgFlush:
				p.flushBuffer(&buffer, false)
			case msgFlags, msgMetrics, msgUser:
				if m.event != nil && m.event.isSendEvent() {
					buffer = append(buffer, m.event)
				}
			}
		}
	}
}

// flushBuffer hands the buffer to a FlushPayloadRunner on a worker-pool
// slot. When wait is true (shutdown), it blocks for a slot and for every
// outstanding flush to finish before returning; otherwise a busy pool just
// retains the buffer for the next flush request.
func (p *Processor) flushBuffer(buffer *[]fbEvent, wait bool) {
	if len(*buffer) == 0 {
		if wait {
			p.wg.Wait()
		}
		return
	}

	if wait {
		p.sem.Acquire(context.Background(), 1)
	} else if !p.sem.TryAcquire(1) {
		return
	}

	payload := *buffer
	*buffer = nil

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		runFlushPayload(p.url, payload, p.sender, p.logger)
	}()

	if wait {
		p.wg.Wait()
	}
}

// runFlushPayload is the FlushPayloadRunner: it partitions payload into
// batches of flushBatchSize, JSON-serializes each, and ships it. A failed
// batch is logged and dropped — telemetry delivery is fire-and-forget.
func runFlushPayload(url string, payload []fbEvent, sender Sender, logger *log.Logger) {
	for start := 0; start < len(payload); start += flushBatchSize {
		end := start + flushBatchSize
		if end > len(payload) {
			end = len(payload)
		}
		batch := payload[start:end]

		dicts := make([]map[string]any, 0, len(batch))
		for _, e := range batch {
			dicts = append(dicts, e.toJSONDict())
		}

		body, err := json.Marshal(dicts)
		if err != nil {
			logger.Printf("[event] failed to marshal batch of %d events: %v", len(batch), err)
			continue
		}

		if _, ok := sender.PostJSON(url, body, false); !ok {
			logger.Printf("[event] failed to ship batch of %d events, dropping", len(batch))
		}
	}
}
