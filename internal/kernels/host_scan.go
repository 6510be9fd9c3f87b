package kernels

import "github.com/fxnlabs/gpuprim/internal/gpu"

var scanKernels = map[string]gpu.HostKernelFunc{
	ScanUpSweep: func(g *gpu.Group) {
		a, n, d := g.Buffer(0), g.Int(1), g.Int(2)
		g.Items(func(_, i int) {
			if k := (i+1)*2*d - 1; k < n {
				a.Words[k] = a.Elem.AddBits(a.Words[k], a.Words[k-d])
			}
		})
	},
	ScanDownSweep: func(g *gpu.Group) {
		a, n, d := g.Buffer(0), g.Int(1), g.Int(2)
		g.Items(func(_, i int) {
			if k := (i+1)*2*d - 1; k+d < n {
				a.Words[k+d] = a.Elem.AddBits(a.Words[k+d], a.Words[k])
			}
		})
	},
	ScanDoubling: func(g *gpu.Group) {
		src, dst, n, offset := g.Buffer(0), g.Buffer(1), g.Int(2), g.Int(3)
		g.Items(func(_, i int) {
			switch {
			case i >= n:
			case i >= offset:
				dst.Words[i] = src.Elem.AddBits(src.Words[i], src.Words[i-offset])
			default:
				dst.Words[i] = src.Words[i]
			}
		})
	},
	ScanShift: func(g *gpu.Group) {
		src, dst, n := g.Buffer(0), g.Buffer(1), g.Int(2)
		g.Items(func(_, i int) {
			switch {
			case i >= n:
			case i == 0:
				dst.Words[0] = 0 // zero bits are 0 and 0.0
			default:
				dst.Words[i] = src.Words[i-1]
			}
		})
	},
}
