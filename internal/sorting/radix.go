package sorting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/dispatch"
	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
	"github.com/fxnlabs/gpuprim/internal/scan"
)

const maxRadixBits = 8

// RadixState is the phase of an LSD radix sort. Each digit pass walks
// Counting, Transposing, Scanning and Scattering; Done follows the last pass.
type RadixState int

const (
	RadixIdle RadixState = iota
	RadixCounting
	RadixTransposing
	RadixScanning
	RadixScattering
	RadixDone
)

func (s RadixState) String() string {
	switch s {
	case RadixIdle:
		return "idle"
	case RadixCounting:
		return "counting"
	case RadixTransposing:
		return "transposing"
	case RadixScanning:
		return "scanning"
	case RadixScattering:
		return "scattering"
	case RadixDone:
		return "done"
	default:
		return fmt.Sprintf("radix_state(%d)", int(s))
	}
}

// radixPlan fixes the buffer shapes of one radix sort. The histogram is a
// chunks×bins matrix as counted and a bins×chunks matrix once transposed;
// scan and scatter only see the transposed form.
type radixPlan struct {
	n, local, chunks, bins int
}

func (e *Engine) planRadix(n int) radixPlan {
	local := min(e.opts.WorkgroupSize, n)
	return radixPlan{
		n:      n,
		local:  local,
		chunks: geometry.CeilDiv(n, local),
		bins:   1 << e.opts.RadixBits,
	}
}

func (p radixPlan) histLen() int {
	return p.chunks * p.bins
}

func (e *Engine) radix(ctx context.Context, l *dispatch.Launcher, n int, arr gpu.Array) error {
	if arr.Elem() != gpu.Uint32 {
		return gpu.NewConfigError("sort.radix", fmt.Sprintf("radix sort needs uint32 elements, got %s", arr.Elem()), ErrUnsupportedElem)
	}
	if e.opts.RadixBits <= 0 || e.opts.RadixBits > maxRadixBits {
		return gpu.NewConfigError("sort.radix", fmt.Sprintf("radix bits %d outside 1..%d", e.opts.RadixBits, maxRadixBits), nil)
	}
	e.setState(RadixIdle, 0)
	if n < 2 {
		e.setState(RadixDone, 0)
		return nil
	}

	defines := gpu.ElemDefines(gpu.Uint32).
		With(kernels.DefineWorkgroupSize, e.opts.WorkgroupSize).
		With(kernels.DefineRadixBits, e.opts.RadixBits)
	count, err := e.cache.Get(kernels.Radix, kernels.RadixCount, defines)
	if err != nil {
		return err
	}
	scatter, err := e.cache.Get(kernels.Radix, kernels.RadixScatter, defines)
	if err != nil {
		return err
	}

	plan := e.planRadix(n)
	dev := e.cache.Device()
	hist, err := dev.NewArray(gpu.Uint32, plan.histLen())
	if err != nil {
		return err
	}
	defer hist.Release()
	offsets, err := dev.NewArray(gpu.Uint32, plan.histLen())
	if err != nil {
		return err
	}
	defer offsets.Release()
	scratch, err := dev.NewArray(gpu.Uint32, arr.Len())
	if err != nil {
		return err
	}
	defer scratch.Release()

	e.logger.Debug("Radix sort plan",
		zap.Int("n", n),
		zap.Int("chunks", plan.chunks),
		zap.Int("bins", plan.bins),
		zap.Int("passes", geometry.Count(geometry.DigitPasses(e.opts.RadixBits))))

	pp := dispatch.NewPingPong(arr, scratch)
	pass := 0
	for shift := range geometry.DigitPasses(e.opts.RadixBits) {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.setState(RadixCounting, pass)
		if err := l.Launch(count, n, plan.local, shift,
			pp.Current(), hist, int32(n), uint32(shift), gpu.LocalMem(plan.bins*4)); err != nil {
			return err
		}

		e.setState(RadixTransposing, pass)
		if err := e.transpose.Enqueue(l, plan.chunks, plan.bins, hist, offsets); err != nil {
			return err
		}

		e.setState(RadixScanning, pass)
		if err := e.scan.Enqueue(ctx, l, plan.histLen(), offsets, scan.Blelloch, true); err != nil {
			return err
		}

		e.setState(RadixScattering, pass)
		if err := l.Launch(scatter, n, plan.local, shift,
			pp.Current(), pp.Scratch(), offsets, int32(n), uint32(shift), gpu.LocalMem(plan.local*4)); err != nil {
			return err
		}
		if err := pp.Swap(); err != nil {
			return err
		}
		pass++
	}
	if err := pp.Settle(); err != nil {
		return err
	}
	e.setState(RadixDone, pass)
	return nil
}

func (e *Engine) setState(state RadixState, pass int) {
	if ce := e.logger.Check(zap.DebugLevel, "Radix state"); ce != nil {
		ce.Write(zap.Stringer("state", state), zap.Int("pass", pass))
	}
	if e.opts.OnRadixState != nil {
		e.opts.OnRadixState(state, pass)
	}
}
