package lazyarr

import "fmt"

// LazyArray is a chunk-partitioned multi-dimensional array value described
// by a computation graph instead of materialized data. Operations return new
// LazyArrays and never touch chunk storage; use Executor.Materialize to
// force a value.
//
// LazyArrays are immutable and safe for concurrent use.
type LazyArray struct {
	node *node
}

// Shape returns the dimension sizes.
func (a *LazyArray) Shape() []int {
	return append([]int(nil), a.node.shape...)
}

// Dims returns the dimension names.
func (a *LazyArray) Dims() []string {
	return append([]string(nil), a.node.dims...)
}

// ChunkShape returns the per-dimension chunk sizes.
func (a *LazyArray) ChunkShape() []int {
	return append([]int(nil), a.node.chunks...)
}

// SizeBytes returns the uncompressed size of the materialized value,
// computed from shape and element type alone. Leaves report their storage
// element type; derived arrays compute in float64.
func (a *LazyArray) SizeBytes() int64 {
	return a.node.numElems() * int64(a.node.elemSize)
}

// Elementwise applies a pointwise operation to this array and any further
// operands. All operands must have identical shape; the result keeps the
// shape and chunk shape of the receiver (no rechunking). Fails with
// ErrShapeMismatch; performs no evaluation.
func (a *LazyArray) Elementwise(op ElementwiseOp, operands ...*LazyArray) (*LazyArray, error) {
	nodes := make([]*node, 0, len(operands)+1)
	nodes = append(nodes, a.node)
	for _, o := range operands {
		if !equalInts(o.node.shape, a.node.shape) {
			return nil, &ErrShapeMismatch{Op: op.Name(), Want: a.Shape(), Got: o.Shape()}
		}
		nodes = append(nodes, o.node)
	}
	return &LazyArray{node: newElementwiseNode(op, nodes)}, nil
}

// Reduce collapses the named dimension with an associative, commutative
// reduction. Fails with ErrDimensionNotFound; performs no evaluation.
func (a *LazyArray) Reduce(op ReduceOp, dim string) (*LazyArray, error) {
	if !op.valid() {
		return nil, fmt.Errorf("reduce: zero-value ReduceOp")
	}
	axis, ok := a.axisOf(dim)
	if !ok {
		return nil, &ErrDimensionNotFound{Dim: dim, Available: a.Dims()}
	}
	return &LazyArray{node: newReduceNode(op, axis, a.node)}, nil
}

// ISel selects the half-open index range [start, stop) along the named
// dimension as a lazy view. Materializing the view fetches only the chunks
// intersecting the selection. Fails with ErrDimensionNotFound or on an
// invalid range; performs no evaluation.
func (a *LazyArray) ISel(dim string, start, stop int) (*LazyArray, error) {
	axis, ok := a.axisOf(dim)
	if !ok {
		return nil, &ErrDimensionNotFound{Dim: dim, Available: a.Dims()}
	}
	if start < 0 || stop > a.node.shape[axis] || start >= stop {
		return nil, fmt.Errorf("isel: invalid range [%d,%d) along %q (size %d)", start, stop, dim, a.node.shape[axis])
	}
	return &LazyArray{node: newSelNode(axis, start, stop, a.node)}, nil
}

// Add returns a + b.
func (a *LazyArray) Add(b *LazyArray) (*LazyArray, error) { return a.Elementwise(OpAdd, b) }

// Sub returns a - b.
func (a *LazyArray) Sub(b *LazyArray) (*LazyArray, error) { return a.Elementwise(OpSub, b) }

// Mul returns a * b pointwise.
func (a *LazyArray) Mul(b *LazyArray) (*LazyArray, error) { return a.Elementwise(OpMul, b) }

// Div returns a / b pointwise.
func (a *LazyArray) Div(b *LazyArray) (*LazyArray, error) { return a.Elementwise(OpDiv, b) }

// Sqrt returns the pointwise square root.
func (a *LazyArray) Sqrt() (*LazyArray, error) { return a.Elementwise(OpSqrt) }

// Pow returns the pointwise power a^p.
func (a *LazyArray) Pow(p float64) (*LazyArray, error) { return a.Elementwise(OpPow(p)) }

// Scale returns the pointwise product c*a.
func (a *LazyArray) Scale(c float64) (*LazyArray, error) { return a.Elementwise(OpScale(c)) }

// Max reduces the named dimension to its maximum.
func (a *LazyArray) Max(dim string) (*LazyArray, error) { return a.Reduce(OpMax, dim) }

// Min reduces the named dimension to its minimum.
func (a *LazyArray) Min(dim string) (*LazyArray, error) { return a.Reduce(OpMin, dim) }

// Sum reduces the named dimension to its sum.
func (a *LazyArray) Sum(dim string) (*LazyArray, error) { return a.Reduce(OpSum, dim) }

// Mean reduces the named dimension to its arithmetic mean.
func (a *LazyArray) Mean(dim string) (*LazyArray, error) { return a.Reduce(OpMean, dim) }

// Hypot returns sqrt(a² + b²) pointwise, the magnitude of a two-component
// vector field such as wind speed from u/v components.
func Hypot(a, b *LazyArray) (*LazyArray, error) {
	return a.Elementwise(OpHypot, b)
}

func (a *LazyArray) axisOf(dim string) (int, bool) {
	for i, d := range a.node.dims {
		if d == dim {
			return i, true
		}
	}
	return 0, false
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
