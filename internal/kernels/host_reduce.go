package kernels

import "github.com/fxnlabs/gpuprim/internal/gpu"

// groupSum folds the elements at indices produced by each work-item.
func groupSum(g *gpu.Group, elem gpu.ElemType, item func(gid int) (uint32, bool)) uint32 {
	var sum uint32
	g.Items(func(_, gid int) {
		if v, ok := item(gid); ok {
			sum = elem.AddBits(sum, v)
		}
	})
	return sum
}

var reduceKernels = map[string]gpu.HostKernelFunc{
	ReduceAtomic: func(g *gpu.Group) {
		src, result, n := g.Buffer(0), g.Buffer(1), g.Int(2)
		g.Items(func(_, gid int) {
			if gid < n {
				result.AtomicAdd(0, src.Words[gid])
			}
		})
	},
	ReduceStrided: func(g *gpu.Group) {
		src, result, n := g.Buffer(0), g.Buffer(1), g.Int(2)
		k := g.Define(DefineItemsPerThread, DefaultItemsPerThread)
		g.Items(func(_, gid int) {
			start := gid * k
			if start >= n {
				return
			}
			var sum uint32
			for i := start; i < min(start+k, n); i++ {
				sum = src.Elem.AddBits(sum, src.Words[i])
			}
			result.AtomicAdd(0, sum)
		})
	},
	ReduceCoalesced: func(g *gpu.Group) {
		src, result, n := g.Buffer(0), g.Buffer(1), g.Int(2)
		k := g.Define(DefineItemsPerThread, DefaultItemsPerThread)
		threads := (n + k - 1) / k
		g.Items(func(_, t int) {
			if t >= threads {
				return
			}
			var sum uint32
			for j := 0; j < k; j++ {
				if i := t + j*threads; i < n {
					sum = src.Elem.AddBits(sum, src.Words[i])
				}
			}
			result.AtomicAdd(0, sum)
		})
	},
	ReduceLocal: func(g *gpu.Group) {
		src, result, n := g.Buffer(0), g.Buffer(1), g.Int(2)
		sum := groupSum(g, src.Elem, func(gid int) (uint32, bool) {
			if gid < n {
				return src.Words[gid], true
			}
			return 0, false
		})
		result.AtomicAdd(0, sum)
	},
	ReduceTreePartial: func(g *gpu.Group) {
		src, dst, n := g.Buffer(0), g.Buffer(1), g.Int(2)
		L := g.Local.X
		base := g.ID.X * 2 * L
		var sum uint32
		for lid := 0; lid < L; lid++ {
			for _, i := range [2]int{base + lid, base + lid + L} {
				if i < n {
					sum = src.Elem.AddBits(sum, src.Words[i])
				}
			}
		}
		dst.Words[g.Linear()] = sum
	},
	ReduceTreeFinal: func(g *gpu.Group) {
		src, result, n := g.Buffer(0), g.Buffer(1), g.Int(2)
		sum := groupSum(g, src.Elem, func(gid int) (uint32, bool) {
			if gid < n {
				return src.Words[gid], true
			}
			return 0, false
		})
		result.AtomicAdd(0, sum)
	},
}
