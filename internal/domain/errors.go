package domain

import "errors"

// Error taxonomy per the error handling design: transient errors are
// retried at the next poll tick, batch-fatal errors roll back the whole
// batch, event-fatal errors are isolated to a single savepoint, decode
// errors skip a single log, and configuration errors abort process start.
var (
	// ErrChainUnavailable signals a transient RPC failure (transport error,
	// timeout). The caller should log and retry at the next poll tick.
	ErrChainUnavailable = errors.New("chain: unavailable")

	// ErrRangeTooLarge signals the requested block range exceeded what the
	// RPC endpoint is willing to serve in one call.
	ErrRangeTooLarge = errors.New("chain: range too large")

	// ErrOrphanedEvent signals a referential-integrity violation: an
	// on-chain event referencing an agreement id with no matching row.
	// Isolated to the event's savepoint; never surfaces past the batch.
	ErrOrphanedEvent = errors.New("projector: orphaned event")

	// ErrInvariantBreach signals the projector was asked to move a
	// terminal-status agreement or a resolved dispute to a different
	// state. Logged, never fatal; the authoritative terminal state wins.
	ErrInvariantBreach = errors.New("projector: invariant breach")

	// ErrConfiguration signals a missing or invalid configuration value.
	// Returned from process start before any worker runs.
	ErrConfiguration = errors.New("config: invalid")
)
