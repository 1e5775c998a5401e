// SPDX-License-Identifier: MIT

package prune

import (
	"errors"
	"fmt"
)

var (
	// ErrNumericUnderflow matches every *UnderflowError.
	ErrNumericUnderflow = errors.New("prune: numeric underflow")

	// ErrInvalidInput is returned for engine inputs whose shapes disagree
	// with the tree, state space or observation layout.
	ErrInvalidInput = errors.New("prune: invalid input")
)

// UnderflowError reports a site whose likelihood cannot be logged.
type UnderflowError struct {
	Site   int
	Values []int
	Scalar float64
}

// Error implements error.
func (e *UnderflowError) Error() string {
	return fmt.Sprintf("prune: site %d (observed %v): likelihood %g: numeric underflow", e.Site, e.Values, e.Scalar)
}

// Unwrap exposes ErrNumericUnderflow to errors.Is.
func (e *UnderflowError) Unwrap() error { return ErrNumericUnderflow }
