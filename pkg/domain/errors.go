package domain

import "errors"

// ErrNotFound is returned when a record or template lookup misses.
var ErrNotFound = errors.New("not found")

// ErrUnknownSide is returned when an operation names a side outside the
// canonical yard layout.
var ErrUnknownSide = errors.New("unknown side")
