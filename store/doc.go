// Package store issues every DynamoDB operation for the report table.
//
// It exposes exactly the primitives the access layer needs — an atomic
// multi-item put and delete, a conditional single-item update, a point read,
// a partition drain and a single-page index query — and maps every SDK
// failure onto a three-value taxonomy:
//
//   - [ErrNotFound]    designed absence, surfaced to callers as "no such item"
//   - [ErrRejected]    permanent refusal, not worth retrying
//   - [ErrUnavailable] transient failure, retryable by the caller with backoff
//
// The store never retries internally and never lets raw SDK error types
// escape the package. The client is shared, read-only configuration: one
// instance serves all concurrent requests.
package store
