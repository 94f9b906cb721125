package event

import (
	"time"

	"github.com/TimurManjosov/fbgo-sdk/internal/model"
)

// messageType classifies an inbox message. FLAGS/METRICS/USER carry
// telemetry; FLUSH and SHUTDOWN are control messages consumed by the
// dispatcher but never shipped.
type messageType int

const (
	msgFlags messageType = iota
	msgMetrics
	msgUser
	msgFlush
	msgShutdown
)

// message is the inbox's unit of work. completion, when non-nil, is closed
// by the dispatcher once the message has been fully processed — used by
// SHUTDOWN to rendezvous with the caller.
type message struct {
	kind       messageType
	event      fbEvent
	completion chan struct{}
}

// fbEvent is anything the dispatcher can decide to ship: it knows whether
// it is shippable at all and how to render itself onto the wire.
type fbEvent interface {
	isSendEvent() bool
	toJSONDict() map[string]any
}

// FlagEventVariation is the per-evaluation detail reported inside a
// FlagEvent.
type FlagEventVariation struct {
	FeatureFlagKey   string
	SendToExperiment bool
	Timestamp        int64
	VariationID      string
	VariationValue   string
	Reason           string
}

// FlagEvent ships one user's evaluation results for one or more flags.
type FlagEvent struct {
	User       model.User
	Variations []FlagEventVariation
}

func (e FlagEvent) isSendEvent() bool { return len(e.Variations) > 0 }

func (e FlagEvent) toJSONDict() map[string]any {
	variations := make([]map[string]any, 0, len(e.Variations))
	for _, v := range e.Variations {
		variations = append(variations, map[string]any{
			"featureFlagKey":   v.FeatureFlagKey,
			"sendToExperiment": v.SendToExperiment,
			"timestamp":        v.Timestamp,
			"variation": map[string]any{
				"id":     v.VariationID,
				"value":  v.VariationValue,
				"reason": v.Reason,
			},
		})
	}
	return map[string]any{
		"user":       e.User.ToJSONDict(),
		"variations": variations,
	}
}

// Metric is one named numeric measurement inside a MetricEvent, shaped to
// match the insight-tracking wire format the original SDK ships.
type Metric struct {
	EventName   string
	NumericValue float64
	Route       string
	Type        string
	AppType     string
	Timestamp   int64
}

// NewMetric builds a Metric with the fixed routing fields the insight
// endpoint expects and the current time as its timestamp.
func NewMetric(eventName string, value float64) Metric {
	return newMetric(eventName, value)
}

func newMetric(eventName string, value float64) Metric {
	return Metric{
		EventName:    eventName,
		NumericValue: value,
		Route:        "index/metric",
		Type:         "CustomEvent",
		AppType:      "server",
		Timestamp:    time.Now().UnixMilli(),
	}
}

// MetricEvent ships one user's custom metrics batch.
type MetricEvent struct {
	User    model.User
	Metrics []Metric
}

func (e MetricEvent) isSendEvent() bool { return len(e.Metrics) > 0 }

func (e MetricEvent) toJSONDict() map[string]any {
	metrics := make([]map[string]any, 0, len(e.Metrics))
	for _, m := range e.Metrics {
		metrics = append(metrics, map[string]any{
			"eventName":    m.EventName,
			"numericValue": m.NumericValue,
			"route":        m.Route,
			"type":         m.Type,
			"appType":      m.AppType,
			"timestamp":    m.Timestamp,
		})
	}
	return map[string]any{
		"user":    e.User.ToJSONDict(),
		"metrics": metrics,
	}
}

// UserEvent ships a bare user identification, with no flag or metric
// payload attached.
type UserEvent struct {
	User model.User
}

func (UserEvent) isSendEvent() bool { return true }

func (e UserEvent) toJSONDict() map[string]any {
	return map[string]any{"user": e.User.ToJSONDict()}
}
