// SPDX-License-Identifier: MIT

package transition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/katalvlaran/ctmctree/matrix"
	"github.com/katalvlaran/ctmctree/process"
)

// Sentinel errors.
var (
	// ErrNumericInstability is returned when neither the eigen path nor the
	// Padé fallback yields a finite operator for a process.
	ErrNumericInstability = errors.New("transition: numeric instability")

	// ErrInvalidScale is returned for a negative or non-finite scale.
	ErrInvalidScale = errors.New("transition: invalid scale")

	// ErrUnknownProcess is returned for a process index outside the cache.
	ErrUnknownProcess = errors.New("transition: unknown process")

	// ErrUnlabeled is returned when expectations are requested for a
	// process built without expect weights.
	ErrUnlabeled = errors.New("transition: process has no labeled rates")
)

// Kind selects the cached operator.
type Kind uint8

const (
	// KindTransition is P(r) = exp(rQ).
	KindTransition Kind = iota
	// KindDerivative is dP/d(log r) = r·dP/dr.
	KindDerivative
	// KindExpectation is the Fréchet derivative L(rQ, rE) for the labeled
	// rates E.
	KindExpectation
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindDerivative:
		return "derivative"
	case KindExpectation:
		return "expectation"
	default:
		return "transition"
	}
}

// Method reports how a process's operators are evaluated.
type Method uint8

const (
	// MethodEigen evaluates through the eigendecomposition of Q.
	MethodEigen Method = iota
	// MethodPade evaluates through scaling-and-squaring Padé.
	MethodPade
)

// String implements fmt.Stringer.
func (m Method) String() string {
	if m == MethodPade {
		return "pade"
	}

	return "eigen"
}

type opKey struct {
	proc int
	bits uint64 // math.Float64bits(scale)
	kind Kind
}

func (k opKey) String() string {
	return strconv.Itoa(k.proc) + "/" + strconv.FormatUint(k.bits, 16) + "/" + strconv.Itoa(int(k.kind))
}

type opEntry struct {
	m   *matrix.Dense
	err error
}

// decomposition is the per-process factorization state.
type decomposition struct {
	once   sync.Once
	q      *matrix.Dense
	e      *matrix.Dense // labeled rates, nil when unlabeled
	method Method
	vals   []float64
	v      *matrix.Dense
	vinv   *matrix.Dense
	reason error // why the eigen path was rejected
}

// Cache memoizes transition operators for a fixed set of processes.
type Cache struct {
	procs  []*process.Process
	decomp []*decomposition
	opts   Options

	mu     sync.RWMutex
	ops    map[opKey]opEntry
	flight singleflight.Group

	computed atomic.Int64
}

// NewCache returns an empty cache over procs; process i is addressed by i.
func NewCache(procs []*process.Process, opts ...Option) *Cache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache{
		procs:  procs,
		decomp: make([]*decomposition, len(procs)),
		opts:   o,
		ops:    make(map[opKey]opEntry),
	}
	for i := range c.decomp {
		c.decomp[i] = &decomposition{}
	}

	return c
}

// Transition returns P = exp(scale·Q_proc).
func (c *Cache) Transition(proc int, scale float64) (*matrix.Dense, error) {
	return c.get(opKey{proc: proc, bits: math.Float64bits(scale), kind: KindTransition}, scale)
}

// Derivative returns dP/d(log scale) = scale·dP/dscale.
func (c *Cache) Derivative(proc int, scale float64) (*matrix.Dense, error) {
	return c.get(opKey{proc: proc, bits: math.Float64bits(scale), kind: KindDerivative}, scale)
}

// Expectation returns K = L(scale·Q, scale·E), the Fréchet derivative of
// the matrix exponential in the direction of the labeled rates E. K[i][j]
// divided by P[i][j] is the expected weighted count of labeled transitions
// along the edge given its endpoint states i and j.
//
// Errors: as Transition, plus ErrUnlabeled.
func (c *Cache) Expectation(proc int, scale float64) (*matrix.Dense, error) {
	return c.get(opKey{proc: proc, bits: math.Float64bits(scale), kind: KindExpectation}, scale)
}

// Method reports the evaluation path chosen for proc, factorizing it if
// that has not happened yet.
func (c *Cache) Method(proc int) (Method, error) {
	d, err := c.decomposition(proc)
	if err != nil {
		return MethodPade, err
	}

	return d.method, nil
}

// Computed returns the number of operators computed so far.
func (c *Cache) Computed() int { return int(c.computed.Load()) }

// get implements the double-checked, singleflight-collapsed lookup.
func (c *Cache) get(k opKey, scale float64) (*matrix.Dense, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale < 0 {
		return nil, fmt.Errorf("transition: process %d scale %v: %w", k.proc, scale, ErrInvalidScale)
	}
	if e, ok := c.lookup(k); ok {
		c.hit(k.kind)
		return e.m, e.err
	}

	leader := false
	v, _, _ := c.flight.Do(k.String(), func() (interface{}, error) {
		if e, ok := c.lookup(k); ok {
			return e, nil
		}
		leader = true
		if c.opts.observer != nil {
			c.opts.observer.CacheMiss(k.kind)
		}
		c.computed.Add(1)
		m, err := c.compute(k, scale)
		e := opEntry{m: m, err: err}
		c.mu.Lock()
		c.ops[k] = e
		c.mu.Unlock()

		return e, nil
	})
	if !leader {
		c.hit(k.kind)
	}
	e := v.(opEntry)

	return e.m, e.err
}

func (c *Cache) lookup(k opKey) (opEntry, bool) {
	c.mu.RLock()
	e, ok := c.ops[k]
	c.mu.RUnlock()

	return e, ok
}

func (c *Cache) hit(kind Kind) {
	if c.opts.observer != nil {
		c.opts.observer.CacheHit(kind)
	}
}

// compute evaluates one operator along the process's chosen path. A
// non-finite eigen result is retried with Padé before giving up.
func (c *Cache) compute(k opKey, scale float64) (*matrix.Dense, error) {
	d, err := c.decomposition(k.proc)
	if err != nil {
		return nil, err
	}
	if k.kind == KindExpectation && d.e == nil {
		return nil, fmt.Errorf("transition: process %d: %w", k.proc, ErrUnlabeled)
	}
	method := d.method
	var m *matrix.Dense
	if method == MethodEigen {
		if k.kind == KindExpectation {
			m, err = finite(eigenFrechet(d, scale))
		} else {
			m, err = finite(eigenOperator(d, scale, k.kind))
		}
		if err != nil {
			c.opts.logger.Debug("transition: eigen operator rejected", "process", k.proc, "scale", scale, "err", err)
			method = MethodPade
		}
	}
	if method == MethodPade {
		m, err = finite(padeOperator(d, scale, k.kind))
	}
	if err != nil {
		return nil, fmt.Errorf("transition: process %d scale %v %s via %s: %w",
			k.proc, scale, k.kind, method, errors.Join(ErrNumericInstability, err))
	}

	return m, nil
}

func finite(m *matrix.Dense, err error) (*matrix.Dense, error) {
	if err != nil {
		return nil, err
	}
	if !m.IsFinite() {
		return nil, matrix.ErrNaNInf
	}

	return m, nil
}

// decomposition factorizes proc once and decides its evaluation path.
func (c *Cache) decomposition(proc int) (*decomposition, error) {
	if proc < 0 || proc >= len(c.procs) || c.procs[proc] == nil {
		return nil, fmt.Errorf("transition: process %d of %d: %w", proc, len(c.procs), ErrUnknownProcess)
	}
	d := c.decomp[proc]
	d.once.Do(func() {
		d.q = c.procs[proc].Generator()
		d.e = c.procs[proc].Labeled()
		d.method = MethodPade
		if c.opts.forcePade {
			d.reason = errors.New("eigen path disabled")
		} else {
			d.reason = c.factorize(d)
			if d.reason == nil {
				d.method = MethodEigen
			}
		}
		if d.method == MethodPade {
			c.opts.logger.Debug("transition: padé fallback", "process", proc, "reason", d.reason)
			if c.opts.observer != nil {
				c.opts.observer.Fallback(proc, d.reason)
			}
		}
	})

	return d, nil
}

// factorize fills vals, v and vinv, or explains why the eigen path is unusable.
func (c *Cache) factorize(d *decomposition) error {
	vals, v, err := matrix.EigenReal(d.q, c.opts.imagTol)
	if err != nil {
		return err
	}
	cond, vinv, err := matrix.Cond1(v)
	if err != nil {
		return err
	}
	if cond > c.opts.condThreshold {
		return fmt.Errorf("cond₁(V) = %.3g exceeds %.3g", cond, c.opts.condThreshold)
	}
	d.vals, d.v, d.vinv = vals, v, vinv

	return nil
}

// eigenOperator returns V·diag(f(λ))·V⁻¹ with f = e^{rλ} or rλe^{rλ}.
func eigenOperator(d *decomposition, scale float64, kind Kind) (*matrix.Dense, error) {
	f := make([]float64, len(d.vals))
	for i, lambda := range d.vals {
		f[i] = math.Exp(scale * lambda)
		if kind == KindDerivative {
			f[i] *= scale * lambda
		}
	}
	vd, err := matrix.ScaleColumns(d.v, f)
	if err != nil {
		return nil, err
	}

	return matrix.Mul(vd, d.vinv)
}

// eigenFrechet returns L(rQ, rE) = V·(Φ ⊙ V⁻¹·rE·V)·V⁻¹ where Φ holds the
// divided differences of exp over the scaled eigenvalues.
func eigenFrechet(d *decomposition, scale float64) (*matrix.Dense, error) {
	n := len(d.vals)
	re, err := matrix.Scale(d.e, scale)
	if err != nil {
		return nil, err
	}
	inner, err := matrix.Mul(d.vinv, re)
	if err != nil {
		return nil, err
	}
	if inner, err = matrix.Mul(inner, d.v); err != nil {
		return nil, err
	}
	phi, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if err = phi.Set(i, j, dividedExp(scale*d.vals[i], scale*d.vals[j])); err != nil {
				return nil, err
			}
		}
	}
	if inner, err = matrix.Hadamard(phi, inner); err != nil {
		return nil, err
	}
	out, err := matrix.Mul(d.v, inner)
	if err != nil {
		return nil, err
	}

	return matrix.Mul(out, d.vinv)
}

// dividedExp returns (e^a − e^b)/(a − b), or e^a when a == b.
func dividedExp(a, b float64) float64 {
	h := a - b
	if h == 0 {
		return math.Exp(a)
	}

	return math.Exp(b) * math.Expm1(h) / h
}

// padeOperator returns expm(rQ), its log-scale derivative L(rQ, rQ) or the
// labeled Fréchet derivative L(rQ, rE).
func padeOperator(d *decomposition, scale float64, kind Kind) (*matrix.Dense, error) {
	rq, err := matrix.Scale(d.q, scale)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindTransition:
		return matrix.Expm(rq)
	case KindExpectation:
		re, err := matrix.Scale(d.e, scale)
		if err != nil {
			return nil, err
		}
		_, l, err := matrix.ExpmFrechet(rq, re)

		return l, err
	default:
		_, l, err := matrix.ExpmFrechet(rq, rq)

		return l, err
	}
}
