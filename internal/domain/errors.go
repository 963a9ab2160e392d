package domain

import "errors"

// Fatal error classes. Only these cross the orchestrator boundary; connector
// and matcher failures are absorbed into the run record instead.
var (
	// ErrMissingCredentials aborts a run before any fetch happens.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrPersistence marks a failed batch write. The run stops; partially
	// written batches for the period are safe to overwrite on retry.
	ErrPersistence = errors.New("persistence failure")
)
