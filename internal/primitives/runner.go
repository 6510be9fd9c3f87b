// Package primitives is the driver-facing surface: one Runner per device
// bundling every engine over a shared kernel cache, plus host transfer
// helpers.
package primitives

import (
	"context"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/config"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/matmul"
	"github.com/fxnlabs/gpuprim/internal/reduce"
	"github.com/fxnlabs/gpuprim/internal/scan"
	"github.com/fxnlabs/gpuprim/internal/sorting"
	"github.com/fxnlabs/gpuprim/internal/transpose"
)

type Runner struct {
	device    gpu.Device
	cache     *gpu.KernelCache
	logger    *zap.Logger
	scan      *scan.Engine
	sort      *sorting.Engine
	transpose *transpose.Engine
	reduce    *reduce.Engine
	matmul    *matmul.Engine
}

// NewRunner builds every engine for device. The device must be initialized.
func NewRunner(device gpu.Device, logger *zap.Logger, k config.Kernels) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := gpu.NewKernelCache(device)
	return &Runner{
		device: device,
		cache:  cache,
		logger: logger,
		scan:   scan.NewEngine(cache, logger, k.WorkgroupSize),
		sort: sorting.NewEngine(cache, logger, sorting.Options{
			WorkgroupSize: k.WorkgroupSize,
			RadixBits:     k.RadixBits,
			TransposeTile: k.TransposeWorkgroupSize,
			WithLocalSort: k.WithLocalSort,
		}),
		transpose: transpose.NewEngine(cache, logger, k.TransposeWorkgroupSize),
		reduce:    reduce.NewEngine(cache, logger, k.WorkgroupSize, k.ItemsPerThread),
		matmul:    matmul.NewEngine(cache, logger, k.MatmulTile),
	}
}

func (r *Runner) Device() gpu.Device {
	return r.device
}

// CompiledKernels returns how many kernel variants have been compiled so far.
func (r *Runner) CompiledKernels() int {
	return r.cache.Len()
}

// Scan replaces arr[0:n] with its inclusive prefix sum.
func (r *Runner) Scan(ctx context.Context, n int, arr gpu.Array, alg scan.Algorithm) error {
	return r.scan.Inclusive(ctx, n, arr, alg)
}

// PrefixSum replaces arr[0:n] with its exclusive prefix sum.
func (r *Runner) PrefixSum(ctx context.Context, n int, arr gpu.Array, alg scan.Algorithm) error {
	return r.scan.Exclusive(ctx, n, arr, alg)
}

func (r *Runner) Sort(ctx context.Context, n int, arr gpu.Array, strategy sorting.Strategy) error {
	return r.sort.Sort(ctx, n, arr, strategy)
}

func (r *Runner) RadixSort(ctx context.Context, n int, arr gpu.Array) error {
	return r.sort.Sort(ctx, n, arr, sorting.Radix)
}

// SortByKey stably sorts arr[0:n] by (x >> shift) & mask.
func (r *Runner) SortByKey(ctx context.Context, n int, arr gpu.Array, shift, mask uint32) error {
	return r.sort.SortByKey(ctx, n, arr, shift, mask)
}

// Transpose replaces the rows×cols matrix in arr with its transpose.
func (r *Runner) Transpose(ctx context.Context, rows, cols int, arr gpu.Array) error {
	return r.transpose.InPlace(ctx, rows, cols, arr)
}

func (r *Runner) Sum(ctx context.Context, strategy reduce.Strategy, n int, arr gpu.Array) (reduce.Scalar, error) {
	return r.reduce.Sum(ctx, strategy, n, arr)
}

// MatMul computes c = a·b for row-major float32 matrices.
func (r *Runner) MatMul(ctx context.Context, m, k, n int, a, b, c gpu.Array) error {
	return r.matmul.Multiply(ctx, m, k, n, a, b, c)
}
