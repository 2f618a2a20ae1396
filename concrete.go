package lazyarr

import "fmt"

// ConcreteArray is a fully materialized, in-memory array: the output of
// Executor.Materialize and the input to rendering collaborators.
//
// A ConcreteArray handed out by a persisted-mode materialization may be
// shared between callers; treat it as read-only.
type ConcreteArray struct {
	dims  []string
	shape []int
	data  []float64
}

// Dims returns the dimension names.
func (a *ConcreteArray) Dims() []string {
	return append([]string(nil), a.dims...)
}

// Shape returns the dimension sizes.
func (a *ConcreteArray) Shape() []int {
	return append([]int(nil), a.shape...)
}

// Rank returns the number of dimensions.
func (a *ConcreteArray) Rank() int {
	return len(a.shape)
}

// Len returns the total element count.
func (a *ConcreteArray) Len() int {
	return len(a.data)
}

// At returns the element at the given indices.
// Panics when the index count or any index is out of range.
func (a *ConcreteArray) At(indices ...int) float64 {
	if len(indices) != len(a.shape) {
		panic(fmt.Sprintf("lazyarr: At called with %d indices on a rank-%d array", len(indices), len(a.shape)))
	}
	idx := 0
	for i, ix := range indices {
		if ix < 0 || ix >= a.shape[i] {
			panic(fmt.Sprintf("lazyarr: index %d out of range [0,%d) on dimension %q", ix, a.shape[i], a.dims[i]))
		}
		idx = idx*a.shape[i] + ix
	}
	return a.data[idx]
}

// Float64s returns the underlying row-major data. The slice must be treated
// as read-only.
func (a *ConcreteArray) Float64s() []float64 {
	return a.data
}
