package kernels

import "github.com/fxnlabs/gpuprim/internal/gpu"

var radixKernels = map[string]gpu.HostKernelFunc{
	RadixCount: func(g *gpu.Group) {
		src, hist, n, shift := g.Buffer(0), g.Buffer(1), g.Int(2), g.Uint(3)
		bins := 1 << g.Define(DefineRadixBits, DefaultRadixBits)
		counts := make([]uint32, bins)
		g.Items(func(_, gid int) {
			if gid < n {
				counts[(src.Words[gid]>>shift)&uint32(bins-1)]++
			}
		})
		copy(hist.Words[g.Linear()*bins:], counts)
	},
	RadixScatter: func(g *gpu.Group) {
		src, dst, offsets := g.Buffer(0), g.Buffer(1), g.Buffer(2)
		n, shift := g.Int(3), g.Uint(4)
		bins := 1 << g.Define(DefineRadixBits, DefaultRadixBits)
		chunks := g.Groups.X
		// items run in order, so the running count is the stable rank
		rank := make([]uint32, bins)
		g.Items(func(_, gid int) {
			if gid >= n {
				return
			}
			x := src.Words[gid]
			d := (x >> shift) & uint32(bins-1)
			dst.Words[offsets.Words[int(d)*chunks+g.Linear()]+rank[d]] = x
			rank[d]++
		})
	},
}
