package sorting

import (
	"context"

	"github.com/fxnlabs/gpuprim/internal/dispatch"
	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

// merge doubles the run width from 1 until a single run covers n, merging
// pairs of runs into the scratch array each round. Float arrays ignore shift
// and mask.
func (e *Engine) merge(ctx context.Context, l *dispatch.Launcher, n int, arr gpu.Array, shift, mask uint32) error {
	if n < 2 {
		return nil
	}
	k, err := e.cache.Get(kernels.Sort, kernels.MergePass, e.defines(arr.Elem()))
	if err != nil {
		return err
	}
	scratch, err := e.cache.Device().NewArray(arr.Elem(), arr.Len())
	if err != nil {
		return err
	}
	defer scratch.Release()

	pp := dispatch.NewPingPong(arr, scratch)
	if err := l.Run(ctx, geometry.Doubling(1, n), dispatch.Rounds{
		Kernel: k,
		Local:  e.opts.WorkgroupSize,
		Items:  func(int) int { return n },
		Args: func(width int) []any {
			return []any{pp.Current(), pp.Scratch(), int32(n), int32(width), shift, mask}
		},
		After: pp.Swap,
	}); err != nil {
		return err
	}
	return pp.Settle()
}
