package sorting

import (
	"context"
	"fmt"

	"github.com/fxnlabs/gpuprim/internal/dispatch"
	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

// bitonic runs one launch per network step over the next power of two.
// Comparators reaching past n are skipped, as if the tail held +Inf.
func (e *Engine) bitonic(ctx context.Context, l *dispatch.Launcher, n int, arr gpu.Array) error {
	if n < 2 {
		return nil
	}
	defines := e.defines(arr.Elem())
	flip, err := e.cache.Get(kernels.Sort, kernels.BitonicFlip, defines)
	if err != nil {
		return err
	}
	half, err := e.cache.Get(kernels.Sort, kernels.BitonicHalf, defines)
	if err != nil {
		return err
	}

	padded := geometry.NextPowerOfTwo(n)
	items := padded / 2
	for step := range geometry.BitonicSteps(padded) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if step.Flip() {
			err = l.Launch(flip, items, e.opts.WorkgroupSize, step.Half, arr, int32(n), int32(step.Half))
		} else {
			err = l.Launch(half, items, e.opts.WorkgroupSize, step.Stride, arr, int32(n), int32(step.Stride))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// bitonicFused sorts segments of 2L elements in local memory first, then
// folds every run of half-cleaners with stride <= L into one local launch.
func (e *Engine) bitonicFused(ctx context.Context, l *dispatch.Launcher, n int, arr gpu.Array) error {
	if n < 2 {
		return nil
	}
	if geometry.FloorPowerOfTwo(n) != n {
		return gpu.NewConfigError("sort.bitonic", fmt.Sprintf("fused bitonic sort of %d elements", n), ErrNotPowerOfTwo)
	}
	defines := e.defines(arr.Elem())
	kernel := func(entry string) (gpu.Kernel, error) { return e.cache.Get(kernels.Sort, entry, defines) }
	presort, err := kernel(kernels.BitonicLocalPresort)
	if err != nil {
		return err
	}
	localMerge, err := kernel(kernels.BitonicLocalMerge)
	if err != nil {
		return err
	}
	flip, err := kernel(kernels.BitonicFlip)
	if err != nil {
		return err
	}
	half, err := kernel(kernels.BitonicHalf)
	if err != nil {
		return err
	}

	// segments of 2L must tile n exactly
	items := n / 2
	local := min(geometry.FloorPowerOfTwo(e.opts.WorkgroupSize), items)
	segment := gpu.LocalMem(2 * local * arr.Elem().Size())

	if err := l.Launch(presort, items, local, 0, arr, int32(n), segment); err != nil {
		return err
	}
	for i := 2 * local; i < n; i *= 2 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Launch(flip, items, local, i, arr, int32(n), int32(i)); err != nil {
			return err
		}
		for j := i / 2; j > local; j /= 2 {
			if err := l.Launch(half, items, local, j, arr, int32(n), int32(j)); err != nil {
				return err
			}
		}
		if err := l.Launch(localMerge, items, local, local, arr, int32(n), segment); err != nil {
			return err
		}
	}
	return nil
}
