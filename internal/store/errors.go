package store

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("store: not found")

// ErrConflict indicates a uniqueness violation, such as a duplicate app name.
var ErrConflict = errors.New("store: conflict")

// IOError wraps a failure to persist the catalog snapshot. It is fatal to the
// mutation that triggered it and must always propagate to the caller.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
