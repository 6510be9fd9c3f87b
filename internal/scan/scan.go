// Package scan computes prefix sums of device arrays.
package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/dispatch"
	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

// Algorithm selects how the scan is computed.
type Algorithm int

const (
	// Blelloch is the work-efficient in-place up-sweep/down-sweep scan.
	Blelloch Algorithm = iota
	// Doubling is the Hillis-Steele scan: fewer rounds, O(n log n) work,
	// double-buffered.
	Doubling
)

func (a Algorithm) String() string {
	switch a {
	case Blelloch:
		return "blelloch"
	case Doubling:
		return "doubling"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm parses "blelloch" or "doubling".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "blelloch", "":
		return Blelloch, nil
	case "doubling", "hillis-steele":
		return Doubling, nil
	default:
		return 0, gpu.NewConfigError("scan.parse", fmt.Sprintf("unknown scan algorithm %q", s), nil)
	}
}

// Engine runs scans on the device behind its kernel cache.
type Engine struct {
	cache         *gpu.KernelCache
	logger        *zap.Logger
	workgroupSize int
}

func NewEngine(cache *gpu.KernelCache, logger *zap.Logger, workgroupSize int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cache:         cache,
		logger:        logger.Named("scan"),
		workgroupSize: workgroupSize,
	}
}

// Inclusive replaces arr[0:n] with its running sum: arr[i] = sum(arr[0..i]).
// Integer sums wrap.
func (e *Engine) Inclusive(ctx context.Context, n int, arr gpu.Array, alg Algorithm) error {
	return e.run(ctx, "scan.inclusive", n, arr, alg, false)
}

// Exclusive replaces arr[0:n] with arr[i] = sum(arr[0..i-1]) and arr[0] = 0.
func (e *Engine) Exclusive(ctx context.Context, n int, arr gpu.Array, alg Algorithm) error {
	return e.run(ctx, "scan.exclusive", n, arr, alg, true)
}

func (e *Engine) run(ctx context.Context, op string, n int, arr gpu.Array, alg Algorithm, exclusive bool) error {
	start := time.Now()
	l := dispatch.NewLauncher(e.logger)
	if err := e.Enqueue(ctx, l, n, arr, alg, exclusive); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := e.cache.Device().Finish(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	l.Record(op, alg.String(), start)
	return nil
}

// Enqueue issues the launches of a scan on l without waiting for them.
// Double-buffered runs use a scratch array of arr's length; elements at index
// n and above are not preserved by them.
func (e *Engine) Enqueue(ctx context.Context, l *dispatch.Launcher, n int, arr gpu.Array, alg Algorithm, exclusive bool) error {
	if err := e.validate(n, arr); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	defines := gpu.ElemDefines(arr.Elem()).With(kernels.DefineWorkgroupSize, e.workgroupSize)
	var scratch gpu.Array
	if alg == Doubling || exclusive {
		var err error
		scratch, err = e.cache.Device().NewArray(arr.Elem(), arr.Len())
		if err != nil {
			return err
		}
		defer scratch.Release()
	}

	switch alg {
	case Blelloch:
		if err := e.blelloch(ctx, l, n, arr, defines); err != nil {
			return err
		}
	case Doubling:
		if err := e.doubling(ctx, l, n, arr, scratch, defines); err != nil {
			return err
		}
	default:
		return gpu.NewConfigError("scan", fmt.Sprintf("unknown scan algorithm %d", int(alg)), nil)
	}

	if exclusive {
		return e.shift(l, n, arr, scratch, defines)
	}
	return nil
}

func (e *Engine) validate(n int, arr gpu.Array) error {
	if e.workgroupSize <= 0 {
		return gpu.NewConfigError("scan", "invalid work-group size", geometry.ErrInvalidLocalSize)
	}
	if arr == nil {
		return gpu.NewConfigError("scan", "nil array", nil)
	}
	if err := gpu.CheckLength("scan", n, arr.Len()); err != nil {
		return err
	}
	return nil
}

func (e *Engine) blelloch(ctx context.Context, l *dispatch.Launcher, n int, arr gpu.Array, defines gpu.Defines) error {
	up, err := e.cache.Get(kernels.Scan, kernels.ScanUpSweep, defines)
	if err != nil {
		return err
	}
	down, err := e.cache.Get(kernels.Scan, kernels.ScanDownSweep, defines)
	if err != nil {
		return err
	}

	args := func(d int) []any { return []any{arr, int32(n), int32(d)} }
	if err := l.Run(ctx, geometry.UpSweep(n), dispatch.Rounds{
		Kernel: up,
		Local:  e.workgroupSize,
		Items:  func(d int) int { return n / (2 * d) },
		Args:   args,
	}); err != nil {
		return err
	}
	return l.Run(ctx, geometry.DownSweep(n), dispatch.Rounds{
		Kernel: down,
		Local:  e.workgroupSize,
		Items:  func(d int) int { return (n - d) / (2 * d) },
		Args:   args,
	})
}

func (e *Engine) doubling(ctx context.Context, l *dispatch.Launcher, n int, arr, scratch gpu.Array, defines gpu.Defines) error {
	k, err := e.cache.Get(kernels.Scan, kernels.ScanDoubling, defines)
	if err != nil {
		return err
	}
	pp := dispatch.NewPingPong(arr, scratch)
	if err := l.Run(ctx, geometry.Doubling(1, n), dispatch.Rounds{
		Kernel: k,
		Local:  e.workgroupSize,
		Items:  func(int) int { return n },
		Args: func(offset int) []any {
			return []any{pp.Current(), pp.Scratch(), int32(n), int32(offset)}
		},
		After: pp.Swap,
	}); err != nil {
		return err
	}
	return pp.Settle()
}

func (e *Engine) shift(l *dispatch.Launcher, n int, arr, scratch gpu.Array, defines gpu.Defines) error {
	k, err := e.cache.Get(kernels.Scan, kernels.ScanShift, defines)
	if err != nil {
		return err
	}
	pp := dispatch.NewPingPong(arr, scratch)
	if err := l.Launch(k, n, e.workgroupSize, 1, pp.Current(), pp.Scratch(), int32(n)); err != nil {
		return err
	}
	if err := pp.Swap(); err != nil {
		return err
	}
	return pp.Settle()
}
