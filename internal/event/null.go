package event

import "github.com/TimurManjosov/fbgo-sdk/internal/model"

// NullProcessor is used in offline mode: every call is a no-op.
type NullProcessor struct{}

// NewNullProcessor returns a Processor-shaped no-op.
func NewNullProcessor() *NullProcessor { return &NullProcessor{} }

func (*NullProcessor) SendUser(model.User)       {}
func (*NullProcessor) SendFlagEvent(FlagEvent)   {}
func (*NullProcessor) SendMetricEvent(MetricEvent) {}
func (*NullProcessor) Flush()                    {}
func (*NullProcessor) Close()                    {}

// QueueDepth is always zero; the null processor never buffers anything.
func (*NullProcessor) QueueDepth() int { return 0 }
