package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource to be inserted already exists.
	// Soft-deleted resources still exist.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrIntegrity indicates that the store holds data violating a uniqueness assumption.
	// It is never recoverable.
	ErrIntegrity = errors.New("store integrity violation")

	// ErrTransient wraps a store timeout that persisted after all retries.
	ErrTransient = errors.New("store did not respond in time")

	// ErrBlank is returned when a resource without uri is written.
	ErrBlank = errors.New("resource has no uri")

	ErrInvalidRelation   = errors.New("invalid relation")
	ErrRelationCycle     = errors.New("relation creates a cycle")
	ErrDuplicateRelation = errors.New("relation already exists")

	// ErrNoPatterns is returned by DeleteBy when called without patterns.
	ErrNoPatterns = errors.New("refusing to delete without patterns")

	// ErrNoBaseURI is returned when a uri should be generated without a base uri.
	ErrNoBaseURI = errors.New("no base uri to generate uri from")
)

// IntegrityError is returned when a lookup expected to match at most one resource matched several.
type IntegrityError struct {
	Property string // property used for lookup
	Value    string // value looked up
	Count    int    // number of resources found
}

func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("resource with %s %q was found %d times", ie.Property, ie.Value, ie.Count)
}

func (ie *IntegrityError) Unwrap() error {
	return ErrIntegrity
}
