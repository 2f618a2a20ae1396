package lazyarr

// region is an axis-aligned box within an array, in element coordinates.
type region struct {
	off  []int
	size []int
}

func (r region) numel() int {
	n := 1
	for _, s := range r.size {
		n *= s
	}
	return n
}

func prodInts(s []int) int {
	n := 1
	for _, v := range s {
		n *= v
	}
	return n
}

// strides returns row-major strides for shape.
func strides(shape []int) []int {
	str := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		str[i] = acc
		acc *= shape[i]
	}
	return str
}

// gridShape returns the number of chunks along each dimension.
func gridShape(shape, chunks []int) []int {
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// chunkRegion returns the element box covered by the chunk at the given grid
// coordinate, clipped to the array bounds.
func chunkRegion(shape, chunks, coord []int) region {
	off := make([]int, len(shape))
	size := make([]int, len(shape))
	for i := range shape {
		off[i] = coord[i] * chunks[i]
		size[i] = chunks[i]
		if off[i]+size[i] > shape[i] {
			size[i] = shape[i] - off[i]
		}
	}
	return region{off: off, size: size}
}

// enumCoords enumerates all coordinates of a grid in row-major order.
// A zero-rank grid has exactly one (empty) coordinate.
func enumCoords(grid []int) [][]int {
	total := prodInts(grid)
	if total == 0 {
		return nil
	}

	coords := make([][]int, 0, total)
	cur := make([]int, len(grid))
	for {
		coords = append(coords, append([]int(nil), cur...))
		i := len(grid) - 1
		for ; i >= 0; i-- {
			cur[i]++
			if cur[i] < grid[i] {
				break
			}
			cur[i] = 0
		}
		if i < 0 {
			return coords
		}
	}
}

// copyBox copies a box of extent sz from src (shape srcShape, origin srcOff)
// into dst (shape dstShape, origin dstOff). Both arrays are row-major; the
// innermost dimension is copied as contiguous runs.
func copyBox(dst []float64, dstShape, dstOff []int, src []float64, srcShape, srcOff, sz []int) {
	r := len(sz)
	if r == 0 {
		dst[0] = src[0]
		return
	}

	dstStr := strides(dstShape)
	srcStr := strides(srcShape)
	run := sz[r-1]

	outer := 1
	for _, s := range sz[:r-1] {
		outer *= s
	}

	ix := make([]int, r-1)
	for c := 0; c < outer; c++ {
		do := dstOff[r-1]
		so := srcOff[r-1]
		for i, v := range ix {
			do += (dstOff[i] + v) * dstStr[i]
			so += (srcOff[i] + v) * srcStr[i]
		}
		copy(dst[do:do+run], src[so:so+run])

		for i := r - 2; i >= 0; i-- {
			ix[i]++
			if ix[i] < sz[i] {
				break
			}
			ix[i] = 0
		}
	}
}

func insertAt(s []int, i, v int) []int {
	out := make([]int, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	return append(out, s[i:]...)
}

func zeros(n int) []int {
	return make([]int, n)
}
