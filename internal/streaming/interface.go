package streaming

// UpdateProcessor is the interface the Coordinator drives: start the
// update pipeline, and stop it on Close. Both the websocket-backed
// Processor and the offline NullProcessor satisfy it.
type UpdateProcessor interface {
	Start()
	Close()
}

var (
	_ UpdateProcessor = (*Processor)(nil)
	_ UpdateProcessor = (*NullProcessor)(nil)
)
