package pipeline

import "context"

// Sink persists one batch. Sinks run in order and the first error ends the
// run.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch Batch) (int, error)
}
