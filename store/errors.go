package store

import "errors"

var (
	// ErrNotFound is returned when an item does not exist. Designed absence:
	// callers translate it into a "not found" result, never retry it.
	ErrNotFound = errors.New("store: item not found")

	// ErrRejected is returned when the store permanently refuses an operation
	// (cancelled transaction, malformed request, size or item-count limits).
	ErrRejected = errors.New("store: request rejected")

	// ErrUnavailable is returned on transient transport or throughput
	// failures. Eligible for caller-driven retry with backoff.
	ErrUnavailable = errors.New("store: temporarily unavailable")
)
