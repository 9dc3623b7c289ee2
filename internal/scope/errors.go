package scope

import (
	"errors"
	"fmt"
)

var (
	// ErrLookup wraps a failed activity-name resolution.
	ErrLookup = errors.New("activity lookup failed")
	// ErrCycleDetected is returned when branch reconstruction revisits a node.
	ErrCycleDetected = errors.New("cycle detected in edge table")
	// ErrUnknownRow is returned for an override that names no table row.
	ErrUnknownRow = errors.New("no row with that UID")
)

// CycleError reports the partial branch walked before a node repeated.
type CycleError struct {
	Start    int   // node the walk started from
	Repeated int   // node reached a second time
	Path     []int // nodes walked so far, root-most first
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("tracing branch of node %d: node %d revisited (path %v)", e.Start, e.Repeated, e.Path)
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }
