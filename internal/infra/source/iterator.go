package source

import (
	"context"

	"startup-radar/internal/usecase/normalize"
	"startup-radar/internal/usecase/reconcile"
)

// sliceIterator yields records from an in-memory slice. Used by adapters
// that fetch their whole record set up front.
type sliceIterator struct {
	records []*normalize.RawRecord
	pos     int
}

func newSliceIterator(records []*normalize.RawRecord) *sliceIterator {
	return &sliceIterator{records: records}
}

func (it *sliceIterator) Next(ctx context.Context) (*normalize.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.records) {
		return nil, reconcile.ErrEndOfRecords
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, nil
}

func (it *sliceIterator) Close() error {
	it.records = nil
	return nil
}
