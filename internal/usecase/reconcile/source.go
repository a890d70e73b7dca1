package reconcile

import (
	"context"
	"errors"

	"startup-radar/internal/usecase/normalize"
)

// ErrEndOfRecords is returned by RecordIterator.Next when the source has
// yielded its last record.
var ErrEndOfRecords = errors.New("no more records")

// FetchOptions restrict what a source adapter yields for one pass.
type FetchOptions struct {
	// Year filters records by the year derived from their batch label.
	// Zero means all years.
	Year int
	// Limit caps how many records the adapter needs to produce. Zero means
	// unlimited. Adapters may use it to stop paginating early; the pass
	// enforces the cap either way.
	Limit int
}

// RecordSource produces raw company records from one accelerator directory.
// Implementations live in internal/infra/source and are selected by name
// from the source catalog.
type RecordSource interface {
	// Name returns the source identifier used in identity keys and run
	// records ("yc", "techstars").
	Name() string
	// Open starts a fetch and returns an iterator over raw records.
	// An error here means nothing was yielded and fails the whole pass.
	Open(ctx context.Context, opts FetchOptions) (RecordIterator, error)
}

// RecordIterator yields raw records one at a time, imposing natural
// backpressure: the pass never holds more than one record in flight.
type RecordIterator interface {
	// Next returns the next record, or ErrEndOfRecords when the sequence is
	// exhausted. Any other error aborts the pass, keeping the work already
	// committed.
	Next(ctx context.Context) (*normalize.RawRecord, error)
	// Close releases resources held by the iterator.
	Close() error
}
