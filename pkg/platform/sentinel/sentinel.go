// Package sentinel holds the storage-level facts that record stores report.
// Services translate them into coded domain errors before they reach a handler.
package sentinel

import "errors"

var (
	// ErrNotFound means no record exists for the requested key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a record with the same identity is already stored.
	ErrConflict = errors.New("conflict")
)
