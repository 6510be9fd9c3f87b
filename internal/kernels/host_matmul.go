package kernels

import "github.com/fxnlabs/gpuprim/internal/gpu"

var matmulKernels = map[string]gpu.HostKernelFunc{
	MatMulTiled: func(g *gpu.Group) {
		a, b, c := g.Buffer(0), g.Buffer(1), g.Buffer(2)
		m, k, n := g.Int(3), g.Int(4), g.Int(5)
		g.Items2D(func(col, row int) {
			if row >= m || col >= n {
				return
			}
			var acc float32
			for i := 0; i < k; i++ {
				acc += a.Float(row*k+i) * b.Float(i*n+col)
			}
			c.SetFloat(row*n+col, acc)
		})
	},
}
