package kernels

import "github.com/fxnlabs/gpuprim/internal/gpu"

var transposeKernels = map[string]gpu.HostKernelFunc{
	// Two phases like the device kernel: load the tile row-major, then write
	// it out with the linear thread id re-mapped onto the transposed tile.
	TransposeTiled: func(g *gpu.Group) {
		src, dst, rows, cols := g.Buffer(0), g.Buffer(1), g.Int(2), g.Int(3)
		lxSize, lySize := g.Local.X, g.Local.Y
		bx, by := g.ID.X*lxSize, g.ID.Y*lySize
		tile := g.LocalWords(4)

		for ly := 0; ly < lySize; ly++ {
			for lx := 0; lx < lxSize; lx++ {
				if x, y := bx+lx, by+ly; x < cols && y < rows {
					tile[ly*lxSize+lx] = src.Words[y*cols+x]
				}
			}
		}

		for t := 0; t < lxSize*lySize; t++ {
			orow, ocol := t/lySize, t%lySize
			if bx+orow < cols && by+ocol < rows {
				dst.Words[(bx+orow)*rows+by+ocol] = tile[ocol*lxSize+orow]
			}
		}
	},
}
