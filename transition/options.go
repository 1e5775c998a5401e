// SPDX-License-Identifier: MIT

// Package transition: functional configuration for the operator cache.
// This file defines:
//   - documented defaults (constants),
//   - WithX constructors that panic on nonsensical values (programmer error),
//   - the Observer hook interface used by metrics collectors.

package transition

import (
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/katalvlaran/ctmctree/matrix"
)

// Defaults (single source of truth).
const (
	// DefaultConditionThreshold is the largest cond₁(V) accepted on the
	// eigen path; above it the process is evaluated with Padé instead.
	DefaultConditionThreshold = 1e6

	// DefaultImagTolerance bounds the relative imaginary part of an
	// eigenvalue still treated as real.
	DefaultImagTolerance = matrix.DefaultImagTolerance

	// DefaultForcePade disables the eigen path entirely when true.
	DefaultForcePade = false
)

const (
	panicConditionInvalid = "transition: WithConditionThreshold: threshold must be finite and ≥ 1"
	panicImagTolInvalid   = "transition: WithImagTolerance: tolerance must be finite and ≥ 0"
)

// Observer receives cache events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// CacheHit is called when an operator is served from the cache.
	CacheHit(kind Kind)
	// CacheMiss is called once per computed operator.
	CacheMiss(kind Kind)
	// Fallback is called once per process that leaves the eigen path.
	Fallback(proc int, reason error)
}

// Option mutates Options.
type Option func(*Options)

// Options stores the effective cache configuration.
type Options struct {
	condThreshold float64
	imagTol       float64
	forcePade     bool
	observer      Observer
	logger        *log.Logger
}

func defaultOptions() Options {
	return Options{
		condThreshold: DefaultConditionThreshold,
		imagTol:       DefaultImagTolerance,
		forcePade:     DefaultForcePade,
		logger:        log.New(io.Discard),
	}
}

// WithConditionThreshold sets the cond₁(V) limit of the eigen path.
// Panics if threshold is not finite or below 1.
func WithConditionThreshold(threshold float64) Option {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 1 {
		panic(panicConditionInvalid)
	}

	return func(o *Options) { o.condThreshold = threshold }
}

// WithImagTolerance sets the relative imaginary-part tolerance for
// eigenvalues. Panics if tol is negative or not finite.
func WithImagTolerance(tol float64) Option {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol < 0 {
		panic(panicImagTolInvalid)
	}

	return func(o *Options) { o.imagTol = tol }
}

// WithForcePade routes every process through scaling-and-squaring.
func WithForcePade() Option {
	return func(o *Options) { o.forcePade = true }
}

// WithObserver installs cache event hooks. nil is ignored.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger sets the debug logger. nil is ignored.
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}
