package report

import (
	"errors"

	"github.com/PrettySolution/driver-infrastructure/store"
)

// ErrInvalidInput is returned when a required argument is missing or an
// identifier contains a key separator character. Rejected before any store
// call is made.
var ErrInvalidInput = errors.New("report: invalid input")

// ErrNotFound aliases the store's designed-absence error so callers can
// match it without importing the storage layer.
var ErrNotFound = store.ErrNotFound
