// Package paramstore implements the parameter store (C2): validity
// checks backed by the mission control table, and get/set backed by the
// shared publication region's parameter array.
package paramstore

import (
	"errors"
	"fmt"

	"github.com/flightos/mcpd/internal/publication"
)

// ErrInvalidParam is returned by Set/Get for an id the MCT doesn't
// recognize.
var ErrInvalidParam = errors.New("paramstore: invalid parameter id")

// Validator answers whether a parameter id names a declared parameter.
// internal/mct.Queries satisfies this via ParamValid.
type Validator interface {
	ParamValid(id uint32) (bool, error)
}

// Store is the parameter store (C2). Its mutex *is* the publication
// region's mutex (C8's semaphore stand-in): there is no separate lock
// here, matching spec.md §5's lock-ordering note that the param array's
// guard is the publication region's own lock.
type Store struct {
	region    *publication.Region
	validator Validator
}

// New builds a Store over region, validating ids against validator.
func New(region *publication.Region, validator Validator) *Store {
	return &Store{region: region, validator: validator}
}

// Valid reports whether id names a declared parameter.
func (s *Store) Valid(id uint32) (bool, error) {
	ok, err := s.validator.ParamValid(id)
	if err != nil {
		return false, fmt.Errorf("paramstore: validate %d: %w", id, err)
	}
	return ok, nil
}

// Get reads the parameter's current value, implementing
// internal/expr.ParamReader for the rule engine's compiled equations.
// Evaluation is total (spec.md §4.1): an out-of-range read (which can
// only happen for an id the compiler should already have rejected)
// returns 0 rather than panicking or erroring.
func (s *Store) Get(id uint32) float64 {
	v, err := s.region.GetParam(int(id) - 1)
	if err != nil {
		return 0
	}
	return v
}

// GetChecked is the symmetric-to-Set read surface (spec.md §4.2) for
// callers that need to distinguish a genuine zero value from an invalid
// or out-of-range id, e.g. introspection tooling.
func (s *Store) GetChecked(id uint32) (float64, error) {
	ok, err := s.Valid(id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInvalidParam
	}
	v, err := s.region.GetParam(int(id) - 1)
	if err != nil {
		return 0, fmt.Errorf("paramstore: get %d: %w", id, err)
	}
	return v, nil
}

// Set validates id against the MCT and, if valid, writes value into the
// publication region.
func (s *Store) Set(id uint32, value float64) error {
	ok, err := s.Valid(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidParam
	}
	if err := s.region.SetParam(int(id)-1, value); err != nil {
		return fmt.Errorf("paramstore: set %d: %w", id, err)
	}
	return nil
}
