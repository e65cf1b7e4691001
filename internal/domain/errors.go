package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned when a network has nothing to solve
	ErrNoData = errors.New("network has no nodes")
	// ErrCycleDetected is returned when direction resolution finds a loop
	ErrCycleDetected = errors.New("cycle detected in network topology")
	// ErrInvalidCatalog is returned for malformed diameter sets
	ErrInvalidCatalog = errors.New("invalid diameter catalog")
	// ErrNotFound is returned when a stored design run does not exist
	ErrNotFound = errors.New("not found")
)

// CycleError lists the links that closed a loop during direction resolution.
// Those links were left without a direction.
type CycleError struct {
	Links []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %d link(s) close a loop: %s",
		ErrCycleDetected, len(e.Links), strings.Join(e.Links, ", "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}
