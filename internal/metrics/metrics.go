// Package metrics provides optional Prometheus collectors for the SDK's
// internal state: store size, event queue depth and update state. It is
// adapted from the teacher's HTTP-request-centric telemetry package
// (internal/telemetry/metrics.go), trading its global prometheus.MustRegister
// for an explicit, caller-supplied *prometheus.Registry, since more than one
// Client may be constructed in the same process.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles every gauge/counter the Coordinator updates as it
// runs. A nil *Collectors is valid and every method on it is a no-op, so
// metrics stay entirely optional.
type Collectors struct {
	flagCount     prometheus.Gauge
	segmentCount  prometheus.Gauge
	eventQueueLen prometheus.Gauge
	updateState   *prometheus.GaugeVec
}

// New builds a Collectors instance and registers it into reg. Passing a
// nil reg returns nil, so callers that don't want metrics can simply skip
// wiring them.
func New(reg *prometheus.Registry) *Collectors {
	if reg == nil {
		return nil
	}

	c := &Collectors{
		flagCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fbgo_store_flags",
			Help: "Number of feature flags currently held in the data store.",
		}),
		segmentCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fbgo_store_segments",
			Help: "Number of segments currently held in the data store.",
		}),
		eventQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fbgo_event_queue_depth",
			Help: "Approximate number of events buffered in the event processor inbox.",
		}),
		updateState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fbgo_update_state",
			Help: "1 for the update-status provider's current lifecycle state, 0 otherwise.",
		}, []string{"state"}),
	}

	reg.MustRegister(c.flagCount, c.segmentCount, c.eventQueueLen, c.updateState)
	return c
}

func (c *Collectors) SetFlagCount(n int) {
	if c == nil {
		return
	}
	c.flagCount.Set(float64(n))
}

func (c *Collectors) SetSegmentCount(n int) {
	if c == nil {
		return
	}
	c.segmentCount.Set(float64(n))
}

func (c *Collectors) SetEventQueueDepth(n int) {
	if c == nil {
		return
	}
	c.eventQueueLen.Set(float64(n))
}

// SetUpdateState flips the gauge for state to 1 and every other known
// state to 0.
func (c *Collectors) SetUpdateState(state string, allStates []string) {
	if c == nil {
		return
	}
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		c.updateState.WithLabelValues(s).Set(v)
	}
}
