package event

import "github.com/TimurManjosov/fbgo-sdk/internal/model"

// EventProcessor is the interface the Coordinator depends on, satisfied by
// both Processor (online) and NullProcessor (offline mode).
type EventProcessor interface {
	SendUser(model.User)
	SendFlagEvent(FlagEvent)
	SendMetricEvent(MetricEvent)
	Flush()
	Close()
}

var (
	_ EventProcessor = (*Processor)(nil)
	_ EventProcessor = (*NullProcessor)(nil)
)
