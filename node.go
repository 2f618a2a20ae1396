package lazyarr

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/hupe1980/lazyarr/manifest"
)

type nodeKind uint8

const (
	kindLeaf nodeKind = iota + 1
	kindElementwise
	kindReduce
	kindSel
)

// node is one vertex of the computation graph. Nodes are immutable after
// construction and may be shared as operands by multiple descendants;
// evaluation never mutates a node.
type node struct {
	kind nodeKind

	shape    []int
	chunks   []int
	dims     []string
	elemSize int // bytes per element of the materialized value

	// kindLeaf
	ds       *Dataset
	variable *manifest.Variable

	// kindElementwise, kindReduce, kindSel
	operands []*node
	ew       ElementwiseOp
	red      ReduceOp
	axis     int
	// kindSel
	start, stop int

	// hash is a structural fingerprint: two independently built graphs
	// describing the same computation share it. Computed once here so the
	// persisted-result cache never walks the graph again.
	hash uint64
}

func newLeafNode(ds *Dataset, v *manifest.Variable) *node {
	n := &node{
		kind:     kindLeaf,
		shape:    v.Shape,
		chunks:   v.Chunks,
		dims:     v.Dims,
		elemSize: v.DType.Size,
		ds:       ds,
		variable: v,
	}
	n.hash = hashNode(n)
	return n
}

func newElementwiseNode(op ElementwiseOp, operands []*node) *node {
	first := operands[0]
	n := &node{
		kind:     kindElementwise,
		shape:    first.shape,
		chunks:   first.chunks,
		dims:     first.dims,
		elemSize: 8, // arithmetic is carried out in float64
		operands: operands,
		ew:       op,
	}
	n.hash = hashNode(n)
	return n
}

func newReduceNode(op ReduceOp, axis int, operand *node) *node {
	n := &node{
		kind:     kindReduce,
		shape:    dropAt(operand.shape, axis),
		chunks:   dropAt(operand.chunks, axis),
		dims:     dropAt(operand.dims, axis),
		elemSize: 8,
		operands: []*node{operand},
		red:      op,
		axis:     axis,
	}
	n.hash = hashNode(n)
	return n
}

func newSelNode(axis, start, stop int, operand *node) *node {
	shape := append([]int(nil), operand.shape...)
	shape[axis] = stop - start

	chunks := append([]int(nil), operand.chunks...)
	if chunks[axis] > shape[axis] {
		chunks[axis] = shape[axis]
	}

	n := &node{
		kind:     kindSel,
		shape:    shape,
		chunks:   chunks,
		dims:     operand.dims,
		elemSize: operand.elemSize,
		operands: []*node{operand},
		axis:     axis,
		start:    start,
		stop:     stop,
	}
	n.hash = hashNode(n)
	return n
}

// hashNode fingerprints a node structurally. Leaf identity is the dataset
// path plus variable name; internal nodes mix in their operation name and
// operand hashes.
func hashNode(n *node) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	writeStr := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}

	writeInt(int(n.kind))
	switch n.kind {
	case kindLeaf:
		writeStr(n.ds.path)
		writeStr(n.variable.Name)
	case kindElementwise:
		writeStr(n.ew.Name())
	case kindReduce:
		writeStr(n.red.Name())
		writeInt(n.axis)
	case kindSel:
		writeInt(n.axis)
		writeInt(n.start)
		writeInt(n.stop)
	}
	for _, op := range n.operands {
		binary.LittleEndian.PutUint64(buf[:], op.hash)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// numElems returns the element count of the materialized node.
func (n *node) numElems() int64 {
	total := int64(1)
	for _, s := range n.shape {
		total *= int64(s)
	}
	return total
}

func dropAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
