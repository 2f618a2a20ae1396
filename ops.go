package lazyarr

import (
	"fmt"
	"math"
)

// ElementwiseOp is a pure pointwise function over one or more operand
// arrays. Implementations must be stateless and safe for concurrent use;
// Name must be stable, since it identifies the operation in the structural
// hash used by the persisted-result cache.
type ElementwiseOp interface {
	Name() string
	// Apply writes the pointwise result into dst. All slices have equal
	// length; operands must not be mutated.
	Apply(dst []float64, operands [][]float64)
}

// Built-in elementwise operations.
var (
	OpAdd   ElementwiseOp = addOp{}
	OpSub   ElementwiseOp = subOp{}
	OpMul   ElementwiseOp = mulOp{}
	OpDiv   ElementwiseOp = divOp{}
	OpSqrt  ElementwiseOp = sqrtOp{}
	OpHypot ElementwiseOp = hypotOp{}
)

type addOp struct{}

func (addOp) Name() string { return "add" }
func (addOp) Apply(dst []float64, operands [][]float64) {
	a, b := operands[0], operands[1]
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

type subOp struct{}

func (subOp) Name() string { return "sub" }
func (subOp) Apply(dst []float64, operands [][]float64) {
	a, b := operands[0], operands[1]
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

type mulOp struct{}

func (mulOp) Name() string { return "mul" }
func (mulOp) Apply(dst []float64, operands [][]float64) {
	a, b := operands[0], operands[1]
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}

type divOp struct{}

func (divOp) Name() string { return "div" }
func (divOp) Apply(dst []float64, operands [][]float64) {
	a, b := operands[0], operands[1]
	for i := range dst {
		dst[i] = a[i] / b[i]
	}
}

type sqrtOp struct{}

func (sqrtOp) Name() string { return "sqrt" }
func (sqrtOp) Apply(dst []float64, operands [][]float64) {
	a := operands[0]
	for i := range dst {
		dst[i] = math.Sqrt(a[i])
	}
}

type hypotOp struct{}

func (hypotOp) Name() string { return "hypot" }
func (hypotOp) Apply(dst []float64, operands [][]float64) {
	a, b := operands[0], operands[1]
	for i := range dst {
		dst[i] = math.Hypot(a[i], b[i])
	}
}

// OpPow returns the unary operation x^p.
func OpPow(p float64) ElementwiseOp {
	return powOp{p: p}
}

type powOp struct{ p float64 }

func (o powOp) Name() string { return fmt.Sprintf("pow(%g)", o.p) }
func (o powOp) Apply(dst []float64, operands [][]float64) {
	a := operands[0]
	for i := range dst {
		dst[i] = math.Pow(a[i], o.p)
	}
}

// OpScale returns the unary operation c*x.
func OpScale(c float64) ElementwiseOp {
	return scaleOp{c: c}
}

type scaleOp struct{ c float64 }

func (o scaleOp) Name() string { return fmt.Sprintf("scale(%g)", o.c) }
func (o scaleOp) Apply(dst []float64, operands [][]float64) {
	a := operands[0]
	for i := range dst {
		dst[i] = o.c * a[i]
	}
}

// NewElementwiseOp wraps a pointwise function as an ElementwiseOp.
//
// name must uniquely identify the function: two ops with the same name are
// treated as structurally equal by the persisted-result cache.
func NewElementwiseOp(name string, fn func(args []float64) float64) ElementwiseOp {
	return funcOp{name: name, fn: fn}
}

type funcOp struct {
	name string
	fn   func(args []float64) float64
}

func (o funcOp) Name() string { return o.name }
func (o funcOp) Apply(dst []float64, operands [][]float64) {
	args := make([]float64, len(operands))
	for i := range dst {
		for j, op := range operands {
			args[j] = op[i]
		}
		dst[i] = o.fn(args)
	}
}

// ReduceOp is an associative, commutative reduction over array elements.
//
// Chunks are fetched and folded in no guaranteed order, so step must produce
// the same final value for any permutation of the inputs. The accumulator
// carries two slots so count-dependent reductions like mean fit the same
// shape.
type ReduceOp struct {
	name     string
	identity [2]float64
	step     func(acc [2]float64, v float64) [2]float64
	finish   func(acc [2]float64) float64
}

// Name returns the stable reduction id.
func (op ReduceOp) Name() string { return op.name }

func (op ReduceOp) valid() bool { return op.step != nil && op.finish != nil }

// NewReduceOp builds a custom reduction. The caller is responsible for the
// associativity and commutativity of step; see the type comment.
func NewReduceOp(name string, identity [2]float64, step func(acc [2]float64, v float64) [2]float64, finish func(acc [2]float64) float64) ReduceOp {
	return ReduceOp{name: name, identity: identity, step: step, finish: finish}
}

// Built-in reductions. NaN values propagate, matching IEEE semantics of the
// underlying fold.
var (
	OpMax = ReduceOp{
		name:     "max",
		identity: [2]float64{math.Inf(-1), 0},
		step: func(acc [2]float64, v float64) [2]float64 {
			if v > acc[0] || math.IsNaN(v) {
				acc[0] = v
			}
			return acc
		},
		finish: func(acc [2]float64) float64 { return acc[0] },
	}

	OpMin = ReduceOp{
		name:     "min",
		identity: [2]float64{math.Inf(1), 0},
		step: func(acc [2]float64, v float64) [2]float64 {
			if v < acc[0] || math.IsNaN(v) {
				acc[0] = v
			}
			return acc
		},
		finish: func(acc [2]float64) float64 { return acc[0] },
	}

	OpSum = ReduceOp{
		name:     "sum",
		identity: [2]float64{0, 0},
		step: func(acc [2]float64, v float64) [2]float64 {
			acc[0] += v
			return acc
		},
		finish: func(acc [2]float64) float64 { return acc[0] },
	}

	OpMean = ReduceOp{
		name:     "mean",
		identity: [2]float64{0, 0},
		step: func(acc [2]float64, v float64) [2]float64 {
			acc[0] += v
			acc[1]++
			return acc
		},
		finish: func(acc [2]float64) float64 { return acc[0] / acc[1] },
	}
)
