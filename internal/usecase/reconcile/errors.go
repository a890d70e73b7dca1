package reconcile

import "errors"

// Errors returned before a pass starts. Once a pass has opened its run
// record, failures are reported through the run's terminal status instead.
var (
	// ErrUnknownSource indicates the requested source is not in the catalog.
	ErrUnknownSource = errors.New("unknown source")

	// ErrPassInProgress indicates a run for the source is still in status
	// running. Two concurrent passes over the same source would race on
	// identity keys, so the second one is refused.
	ErrPassInProgress = errors.New("a pass for this source is already running")
)
