package kernels

import "github.com/fxnlabs/gpuprim/internal/gpu"

func compareSwap(a *gpu.HostBuffer, n, lo, hi int) {
	if hi >= n {
		return
	}
	if a.Elem.LessBits(a.Words[hi], a.Words[lo]) {
		a.Words[lo], a.Words[hi] = a.Words[hi], a.Words[lo]
	}
}

func localCompareSwap(elem gpu.ElemType, s []uint32, lo, hi int) {
	if elem.LessBits(s[hi], s[lo]) {
		s[lo], s[hi] = s[hi], s[lo]
	}
}

// loadSegment copies the 2*L elements owned by the group into local memory.
func loadSegment(g *gpu.Group, a *gpu.HostBuffer, n int) (s []uint32, base int) {
	L := g.Local.X
	base = g.ID.X * 2 * L
	s = make([]uint32, 2*L)
	for i := range s {
		if base+i < n {
			s[i] = a.Words[base+i]
		}
	}
	return s, base
}

func storeSegment(a *gpu.HostBuffer, n int, s []uint32, base int) {
	for i, v := range s {
		if base+i < n {
			a.Words[base+i] = v
		}
	}
}

// mergeKey extracts the sub-field a merge pass orders by.
func mergeKey(x, shift, mask uint32) uint32 {
	return (x >> shift) & mask
}

var sortKernels = map[string]gpu.HostKernelFunc{
	BitonicFlip: func(g *gpu.Group) {
		a, n, half := g.Buffer(0), g.Int(1), g.Int(2)
		g.Items(func(_, t int) {
			blk, off := t/half, t%half
			compareSwap(a, n, blk*2*half+off, blk*2*half+2*half-1-off)
		})
	},
	BitonicHalf: func(g *gpu.Group) {
		a, n, stride := g.Buffer(0), g.Int(1), g.Int(2)
		g.Items(func(_, t int) {
			lo := (t/stride)*2*stride + t%stride
			compareSwap(a, n, lo, lo+stride)
		})
	},
	BitonicLocalPresort: func(g *gpu.Group) {
		a, n := g.Buffer(0), g.Int(1)
		L := g.Local.X
		s, base := loadSegment(g, a, n)
		for half := 1; half <= L; half *= 2 {
			for lid := 0; lid < L; lid++ {
				blk, off := lid/half, lid%half
				localCompareSwap(a.Elem, s, blk*2*half+off, blk*2*half+2*half-1-off)
			}
			for j := half / 2; j >= 1; j /= 2 {
				for lid := 0; lid < L; lid++ {
					lo := (lid/j)*2*j + lid%j
					localCompareSwap(a.Elem, s, lo, lo+j)
				}
			}
		}
		storeSegment(a, n, s, base)
	},
	BitonicLocalMerge: func(g *gpu.Group) {
		a, n := g.Buffer(0), g.Int(1)
		L := g.Local.X
		s, base := loadSegment(g, a, n)
		for j := L; j >= 1; j /= 2 {
			for lid := 0; lid < L; lid++ {
				lo := (lid/j)*2*j + lid%j
				localCompareSwap(a.Elem, s, lo, lo+j)
			}
		}
		storeSegment(a, n, s, base)
	},
	MergePass: func(g *gpu.Group) {
		src, dst, n, width := g.Buffer(0), g.Buffer(1), g.Int(2), g.Int(3)
		shift, mask := g.Uint(4), g.Uint(5)
		isFloat := g.Define(DefineElemFloat, 0) != 0
		less := func(x, y uint32) bool {
			if isFloat {
				return src.Elem.LessBits(x, y)
			}
			return mergeKey(x, shift, mask) < mergeKey(y, shift, mask)
		}
		g.Items(func(_, i int) {
			if i >= n {
				return
			}
			run := i / width
			left := run%2 == 0
			pair := (run &^ 1) * width
			pos := i - run*width
			x := src.Words[i]

			var pstart, pend int
			if left {
				pstart = (run + 1) * width
				pend = min(pstart+width, n)
			} else {
				pstart = (run - 1) * width
				pend = run * width
			}
			if pstart >= n {
				dst.Words[i] = x
				return
			}

			lo, hi := pstart, pend
			for lo < hi {
				mid := (lo + hi) / 2
				var before bool
				if left {
					before = less(src.Words[mid], x)
				} else {
					before = !less(x, src.Words[mid])
				}
				if before {
					lo = mid + 1
				} else {
					hi = mid
				}
			}
			dst.Words[pair+pos+lo-pstart] = x
		})
	},
}
