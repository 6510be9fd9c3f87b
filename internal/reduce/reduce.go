// Package reduce sums device arrays.
package reduce

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/dispatch"
	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

type Strategy int

const (
	// Atomic adds every element to the result with one atomic each.
	Atomic Strategy = iota
	// Strided gives each thread ITEMS_PER_THREAD neighbouring elements.
	Strided
	// Coalesced gives each thread ITEMS_PER_THREAD elements spaced one
	// thread count apart.
	Coalesced
	// Local reduces each work-group in local memory, then adds once per group.
	Local
	// Tree folds partial sums over several rounds.
	Tree
)

var strategyNames = map[Strategy]string{
	Atomic:    "atomic",
	Strided:   "strided",
	Coalesced: "coalesced",
	Local:     "local",
	Tree:      "tree",
}

// Strategies lists every strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{Atomic, Strided, Coalesced, Local, Tree}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func ParseStrategy(s string) (Strategy, error) {
	for strategy, name := range strategyNames {
		if strings.EqualFold(s, name) {
			return strategy, nil
		}
	}
	return 0, gpu.NewConfigError("reduce.parse", fmt.Sprintf("unknown reduce strategy %q", s), nil)
}

// Scalar is a sum read back from the device, kept as raw element bits.
type Scalar struct {
	Elem gpu.ElemType
	Bits uint32
}

func (s Scalar) Uint32() uint32 {
	return s.Bits
}

func (s Scalar) Float32() float32 {
	return math.Float32frombits(s.Bits)
}

func (s Scalar) String() string {
	if s.Elem == gpu.Float32 {
		return fmt.Sprintf("%g", s.Float32())
	}
	return fmt.Sprintf("%d", s.Bits)
}

type Engine struct {
	cache          *gpu.KernelCache
	logger         *zap.Logger
	workgroupSize  int
	itemsPerThread int
}

func NewEngine(cache *gpu.KernelCache, logger *zap.Logger, workgroupSize, itemsPerThread int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cache:          cache,
		logger:         logger.Named("reduce"),
		workgroupSize:  workgroupSize,
		itemsPerThread: itemsPerThread,
	}
}

// Sum adds arr[0:n]. The result array is zeroed, every launch of the strategy
// is issued, and the one-element result is read back. arr is not modified.
func (e *Engine) Sum(ctx context.Context, strategy Strategy, n int, arr gpu.Array) (Scalar, error) {
	start := time.Now()
	if err := e.validate(n, arr); err != nil {
		return Scalar{}, fmt.Errorf("reduce.%s: %w", strategy, err)
	}
	elem := arr.Elem()
	result, err := e.cache.Device().NewArray(elem, 1)
	if err != nil {
		return Scalar{}, fmt.Errorf("reduce.%s: %w", strategy, err)
	}
	defer result.Release()
	var zero any = []uint32{0}
	if elem == gpu.Float32 {
		zero = []float32{0}
	}
	if err := result.Write(zero); err != nil {
		return Scalar{}, fmt.Errorf("reduce.%s: %w", strategy, err)
	}

	l := dispatch.NewLauncher(e.logger)
	if err := e.enqueue(ctx, l, strategy, n, arr, result); err != nil {
		return Scalar{}, fmt.Errorf("reduce.%s: %w", strategy, err)
	}
	if err := e.cache.Device().Finish(ctx); err != nil {
		return Scalar{}, fmt.Errorf("reduce.%s: %w", strategy, err)
	}

	out := Scalar{Elem: elem}
	if elem == gpu.Float32 {
		var v [1]float32
		if err := result.Read(v[:], 0); err != nil {
			return Scalar{}, fmt.Errorf("reduce.%s: %w", strategy, err)
		}
		out.Bits = math.Float32bits(v[0])
	} else {
		var v [1]uint32
		if err := result.Read(v[:], 0); err != nil {
			return Scalar{}, fmt.Errorf("reduce.%s: %w", strategy, err)
		}
		out.Bits = v[0]
	}
	l.Record("reduce", strategy.String(), start)
	return out, nil
}

func (e *Engine) validate(n int, arr gpu.Array) error {
	if e.workgroupSize <= 0 {
		return gpu.NewConfigError("reduce", "invalid work-group size", geometry.ErrInvalidLocalSize)
	}
	if e.itemsPerThread <= 0 {
		return gpu.NewConfigError("reduce", fmt.Sprintf("invalid items per thread %d", e.itemsPerThread), nil)
	}
	if arr == nil {
		return gpu.NewConfigError("reduce", "nil array", nil)
	}
	if err := gpu.CheckLength("reduce", n, arr.Len()); err != nil {
		return err
	}
	return nil
}

func (e *Engine) enqueue(ctx context.Context, l *dispatch.Launcher, strategy Strategy, n int, arr, result gpu.Array) error {
	defines := gpu.ElemDefines(arr.Elem()).
		With(kernels.DefineWorkgroupSize, e.workgroupSize).
		With(kernels.DefineItemsPerThread, e.itemsPerThread)
	kernel := func(entry string) (gpu.Kernel, error) {
		return e.cache.Get(kernels.Reduce, entry, defines)
	}
	threads := geometry.CeilDiv(n, e.itemsPerThread)

	switch strategy {
	case Atomic:
		k, err := kernel(kernels.ReduceAtomic)
		if err != nil {
			return err
		}
		return l.Launch(k, n, e.workgroupSize, 1, arr, result, int32(n))
	case Strided, Coalesced:
		entry := kernels.ReduceStrided
		if strategy == Coalesced {
			entry = kernels.ReduceCoalesced
		}
		k, err := kernel(entry)
		if err != nil {
			return err
		}
		return l.Launch(k, threads, e.workgroupSize, e.itemsPerThread, arr, result, int32(n))
	case Local:
		k, err := kernel(kernels.ReduceLocal)
		if err != nil {
			return err
		}
		local := min(e.workgroupSize, max(n, 1))
		return l.Launch(k, n, local, 1, arr, result, int32(n), gpu.LocalMem(local*arr.Elem().Size()))
	case Tree:
		return e.tree(ctx, l, n, arr, result, kernel)
	default:
		return gpu.NewConfigError("reduce", fmt.Sprintf("unknown reduce strategy %d", int(strategy)), nil)
	}
}

// tree folds 2*L items per work-group into one partial per round until a
// single partial remains, then adds it to the result. Partials live in
// a scratch pair so the input is left alone.
func (e *Engine) tree(ctx context.Context, l *dispatch.Launcher, n int, arr, result gpu.Array, kernel func(string) (gpu.Kernel, error)) error {
	if n == 0 {
		return nil
	}
	partial, err := kernel(kernels.ReduceTreePartial)
	if err != nil {
		return err
	}
	final, err := kernel(kernels.ReduceTreeFinal)
	if err != nil {
		return err
	}

	first := geometry.TreeGroups(n, e.workgroupSize)
	dev := e.cache.Device()
	a, err := dev.NewArray(arr.Elem(), first)
	if err != nil {
		return err
	}
	defer a.Release()
	b, err := dev.NewArray(arr.Elem(), first)
	if err != nil {
		return err
	}
	defer b.Release()

	pp := dispatch.NewPingPong(a, b)
	src, count := arr, n
	for live := range geometry.TreeRounds(n, e.workgroupSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		groups := geometry.TreeGroups(live, e.workgroupSize)
		local := min(e.workgroupSize, geometry.CeilDiv(live, 2))
		if err := l.Launch(partial, groups*local, local, live, src, pp.Scratch(), int32(live),
			gpu.LocalMem(local*arr.Elem().Size())); err != nil {
			return err
		}
		if err := pp.Swap(); err != nil {
			return err
		}
		src, count = pp.Current(), groups
	}
	return l.Launch(final, count, e.workgroupSize, 1, src, result, int32(count))
}
