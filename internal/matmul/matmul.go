// Package matmul multiplies row-major float32 matrices on the device with a
// tiled kernel.
package matmul

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/dispatch"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

type Engine struct {
	cache  *gpu.KernelCache
	logger *zap.Logger
	tile   int
}

func NewEngine(cache *gpu.KernelCache, logger *zap.Logger, tile int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cache: cache, logger: logger.Named("matmul"), tile: tile}
}

// Multiply computes c = a·b for an m×k matrix a and a k×n matrix b.
func (e *Engine) Multiply(ctx context.Context, m, k, n int, a, b, c gpu.Array) error {
	start := time.Now()
	if err := e.validate(m, k, n, a, b, c); err != nil {
		return fmt.Errorf("matmul: %w", err)
	}
	if m == 0 || n == 0 {
		return nil
	}

	kernel, err := e.cache.Get(kernels.MatMul, kernels.MatMulTiled,
		gpu.ElemDefines(gpu.Float32).With(kernels.DefineTile, e.tile))
	if err != nil {
		return fmt.Errorf("matmul: %w", err)
	}
	l := dispatch.NewLauncher(e.logger)
	if err := l.Launch2D(kernel, n, m, e.tile, e.tile, a, b, c, int32(m), int32(k), int32(n)); err != nil {
		return fmt.Errorf("matmul: %w", err)
	}
	if err := e.cache.Device().Finish(ctx); err != nil {
		return fmt.Errorf("matmul: %w", err)
	}
	l.Record("matmul", "tiled", start)
	return nil
}

func (e *Engine) validate(m, k, n int, a, b, c gpu.Array) error {
	if e.tile <= 0 {
		return gpu.NewConfigError("matmul", fmt.Sprintf("invalid tile size %d", e.tile), nil)
	}
	if a == nil || b == nil || c == nil {
		return gpu.NewConfigError("matmul", "nil array", nil)
	}
	if m < 0 || k < 0 || n < 0 || max(m, k, n) > gpu.MaxLength {
		return gpu.NewConfigError("matmul", fmt.Sprintf("invalid shape %dx%dx%d", m, k, n), nil)
	}
	for _, arr := range []gpu.Array{a, b, c} {
		if arr.Elem() != gpu.Float32 {
			return gpu.NewConfigError("matmul", fmt.Sprintf("matrices must be float32, got %s", arr.Elem()), nil)
		}
	}
	switch {
	case !gpu.ShapeFits(m, k, a.Len()):
		return gpu.NewConfigError("matmul", fmt.Sprintf("a holds %d elements, need %dx%d", a.Len(), m, k), nil)
	case !gpu.ShapeFits(k, n, b.Len()):
		return gpu.NewConfigError("matmul", fmt.Sprintf("b holds %d elements, need %dx%d", b.Len(), k, n), nil)
	case !gpu.ShapeFits(m, n, c.Len()):
		return gpu.NewConfigError("matmul", fmt.Sprintf("c holds %d elements, need %dx%d", c.Len(), m, n), nil)
	}
	return nil
}
