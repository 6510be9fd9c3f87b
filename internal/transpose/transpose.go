// Package transpose transposes row-major matrices held in device arrays.
package transpose

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/dispatch"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

// Engine transposes with square tiles of the configured edge; narrow
// matrices shrink the tile per axis.
type Engine struct {
	cache  *gpu.KernelCache
	logger *zap.Logger
	tile   int
}

func NewEngine(cache *gpu.KernelCache, logger *zap.Logger, tile int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cache: cache, logger: logger.Named("transpose"), tile: tile}
}

// Transpose writes the cols×rows transpose of the rows×cols matrix in src to dst.
func (e *Engine) Transpose(ctx context.Context, rows, cols int, src, dst gpu.Array) error {
	start := time.Now()
	l := dispatch.NewLauncher(e.logger)
	if err := e.Enqueue(l, rows, cols, src, dst); err != nil {
		return fmt.Errorf("transpose: %w", err)
	}
	if err := e.cache.Device().Finish(ctx); err != nil {
		return fmt.Errorf("transpose: %w", err)
	}
	l.Record("transpose", "tiled", start)
	return nil
}

// InPlace transposes arr through a scratch array; arr holds the result.
func (e *Engine) InPlace(ctx context.Context, rows, cols int, arr gpu.Array) error {
	start := time.Now()
	if arr == nil {
		return gpu.NewConfigError("transpose.inplace", "nil array", nil)
	}
	scratch, err := e.cache.Device().NewArray(arr.Elem(), arr.Len())
	if err != nil {
		return fmt.Errorf("transpose.inplace: %w", err)
	}
	defer scratch.Release()

	l := dispatch.NewLauncher(e.logger)
	pp := dispatch.NewPingPong(arr, scratch)
	if err := e.Enqueue(l, rows, cols, pp.Current(), pp.Scratch()); err != nil {
		return fmt.Errorf("transpose.inplace: %w", err)
	}
	if err := pp.Swap(); err != nil {
		return err
	}
	if err := pp.Settle(); err != nil {
		return fmt.Errorf("transpose.inplace: %w", err)
	}
	if err := e.cache.Device().Finish(ctx); err != nil {
		return fmt.Errorf("transpose.inplace: %w", err)
	}
	l.Record("transpose", "inplace", start)
	return nil
}

// Enqueue issues the transpose launch on l without waiting for it. Axis 0 of
// the launch walks columns, axis 1 rows.
func (e *Engine) Enqueue(l *dispatch.Launcher, rows, cols int, src, dst gpu.Array) error {
	if e.tile <= 0 {
		return gpu.NewConfigError("transpose", fmt.Sprintf("invalid tile size %d", e.tile), nil)
	}
	if src == nil || dst == nil {
		return gpu.NewConfigError("transpose", "nil array", nil)
	}
	if src.Elem() != dst.Elem() {
		return gpu.NewConfigError("transpose",
			fmt.Sprintf("element types differ: %s and %s", src.Elem(), dst.Elem()), nil)
	}
	if err := gpu.CheckShape("transpose", rows, cols, min(src.Len(), dst.Len())); err != nil {
		return err
	}
	if rows == 0 || cols == 0 {
		return nil
	}

	k, err := e.cache.Get(kernels.Transpose, kernels.TransposeTiled,
		gpu.ElemDefines(src.Elem()).With(kernels.DefineTile, e.tile))
	if err != nil {
		return err
	}
	tileBytes := min(e.tile, cols) * min(e.tile, rows) * src.Elem().Size()
	return l.Launch2D(k, cols, rows, e.tile, e.tile, src, dst, int32(rows), int32(cols), gpu.LocalMem(tileBytes))
}
