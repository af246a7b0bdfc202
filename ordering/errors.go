package ordering

import "errors"

var (
	// ErrNotFound is returned when an item or its parent does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation covers negative targets, status/index mismatches
	// and relocations of removed items.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrConflictDuringReindex means a sibling's stored index changed between
	// planning a reindex and writing it.
	ErrConflictDuringReindex = errors.New("conflict during reindex")
)
