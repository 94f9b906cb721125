package streaming

import "github.com/TimurManjosov/fbgo-sdk/internal/status"

// NullProcessor is the offline UpdateProcessor: it never dials out and
// immediately reports the provider as ready, so evaluation falls through
// to whatever the store already holds (empty, unless pre-populated via
// InitializeFromExternalJSON).
type NullProcessor struct {
	provider *status.Provider
}

// NewNullProcessor returns an UpdateProcessor that only signals readiness.
func NewNullProcessor(provider *status.Provider) *NullProcessor {
	return &NullProcessor{provider: provider}
}

// Start immediately transitions the provider to OK.
func (n *NullProcessor) Start() {
	n.provider.UpdateState(okStateNow())
}

// Close is a no-op; the null processor holds no resources.
func (n *NullProcessor) Close() {}
