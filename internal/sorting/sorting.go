// Package sorting sorts device arrays in ascending order with bitonic,
// merge and LSD radix strategies.
package sorting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/dispatch"
	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
	"github.com/fxnlabs/gpuprim/internal/scan"
	"github.com/fxnlabs/gpuprim/internal/transpose"
)

var (
	// ErrNotPowerOfTwo is returned when the fused bitonic sort gets a length
	// that is not a power of two.
	ErrNotPowerOfTwo = errors.New("length is not a power of two")
	// ErrUnsupportedElem is returned when a strategy cannot order the array's
	// element type.
	ErrUnsupportedElem = errors.New("unsupported element type")
)

type Strategy int

const (
	Bitonic Strategy = iota + 1
	Merge
	Radix
)

func (s Strategy) String() string {
	switch s {
	case Bitonic:
		return "bitonic"
	case Merge:
		return "merge"
	case Radix:
		return "radix"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses "bitonic", "merge" or "radix".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "bitonic":
		return Bitonic, nil
	case "merge":
		return Merge, nil
	case "radix", "radix-lsd":
		return Radix, nil
	default:
		return 0, gpu.NewConfigError("sort.parse", fmt.Sprintf("unknown sort strategy %q", s), nil)
	}
}

type Options struct {
	WorkgroupSize int
	RadixBits     int
	// TransposeTile is the tile edge of the histogram transpose in radix sort.
	TransposeTile int
	// WithLocalSort selects the fused bitonic variant.
	WithLocalSort bool
	// OnRadixState, if set, observes every radix state transition.
	OnRadixState func(state RadixState, pass int)
}

func DefaultOptions() Options {
	return Options{
		WorkgroupSize: kernels.DefaultWorkgroupSize,
		RadixBits:     kernels.DefaultRadixBits,
		TransposeTile: kernels.DefaultTile,
	}
}

type Engine struct {
	cache     *gpu.KernelCache
	logger    *zap.Logger
	opts      Options
	scan      *scan.Engine
	transpose *transpose.Engine
}

// NewEngine builds a sort engine. Radix sort scans and transposes through
// engines sharing the same kernel cache, so their kernels compile once.
func NewEngine(cache *gpu.KernelCache, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TransposeTile == 0 {
		opts.TransposeTile = kernels.DefaultTile
	}
	logger = logger.Named("sort")
	return &Engine{
		cache:     cache,
		logger:    logger,
		opts:      opts,
		scan:      scan.NewEngine(cache, logger, opts.WorkgroupSize),
		transpose: transpose.NewEngine(cache, logger, opts.TransposeTile),
	}
}

// Sort orders arr[0:n] ascending. Float32 arrays are supported by Bitonic and
// Merge; Radix needs Uint32.
func (e *Engine) Sort(ctx context.Context, n int, arr gpu.Array, strategy Strategy) error {
	start := time.Now()
	l := dispatch.NewLauncher(e.logger)
	if err := e.Enqueue(ctx, l, n, arr, strategy); err != nil {
		return fmt.Errorf("sort.%s: %w", strategy, err)
	}
	if err := e.cache.Device().Finish(ctx); err != nil {
		return fmt.Errorf("sort.%s: %w", strategy, err)
	}
	l.Record("sort", e.strategyLabel(strategy), start)
	return nil
}

// SortByKey merge-sorts arr[0:n] by the key (x >> shift) & mask. Equal keys
// keep their input order.
func (e *Engine) SortByKey(ctx context.Context, n int, arr gpu.Array, shift, mask uint32) error {
	start := time.Now()
	if err := e.validate(n, arr); err != nil {
		return fmt.Errorf("sort.bykey: %w", err)
	}
	if arr.Elem() != gpu.Uint32 {
		return fmt.Errorf("sort.bykey: %w",
			gpu.NewConfigError("sort", fmt.Sprintf("keys need uint32 elements, got %s", arr.Elem()), ErrUnsupportedElem))
	}
	if shift >= 32 {
		return fmt.Errorf("sort.bykey: %w", gpu.NewConfigError("sort", fmt.Sprintf("shift %d out of range", shift), nil))
	}
	l := dispatch.NewLauncher(e.logger)
	if err := e.merge(ctx, l, n, arr, shift, mask); err != nil {
		return fmt.Errorf("sort.bykey: %w", err)
	}
	if err := e.cache.Device().Finish(ctx); err != nil {
		return fmt.Errorf("sort.bykey: %w", err)
	}
	l.Record("sort", "merge-key", start)
	return nil
}

// Enqueue issues the launches of a sort on l without waiting for them.
func (e *Engine) Enqueue(ctx context.Context, l *dispatch.Launcher, n int, arr gpu.Array, strategy Strategy) error {
	if err := e.validate(n, arr); err != nil {
		return err
	}
	switch strategy {
	case Bitonic:
		if e.opts.WithLocalSort {
			return e.bitonicFused(ctx, l, n, arr)
		}
		return e.bitonic(ctx, l, n, arr)
	case Merge:
		return e.merge(ctx, l, n, arr, 0, ^uint32(0))
	case Radix:
		return e.radix(ctx, l, n, arr)
	default:
		return gpu.NewConfigError("sort", fmt.Sprintf("unknown sort strategy %d", int(strategy)), nil)
	}
}

func (e *Engine) strategyLabel(s Strategy) string {
	if s == Bitonic && e.opts.WithLocalSort {
		return "bitonic-fused"
	}
	return s.String()
}

func (e *Engine) validate(n int, arr gpu.Array) error {
	if e.opts.WorkgroupSize <= 0 {
		return gpu.NewConfigError("sort", "invalid work-group size", geometry.ErrInvalidLocalSize)
	}
	if arr == nil {
		return gpu.NewConfigError("sort", "nil array", nil)
	}
	if err := gpu.CheckLength("sort", n, arr.Len()); err != nil {
		return err
	}
	return nil
}

func (e *Engine) defines(elem gpu.ElemType) gpu.Defines {
	return gpu.ElemDefines(elem).With(kernels.DefineWorkgroupSize, e.opts.WorkgroupSize)
}
