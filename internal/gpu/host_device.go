package gpu

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"

	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/metrics"
)

const (
	hostMaxWorkGroupSize = 1024
	hostQueueDepth       = 256
)

// HostDevice emulates a GPU on the CPU. Work-groups of a launch are spread
// over a bounded set of goroutines; the work-items of one group run
// sequentially on a single goroutine.
type HostDevice struct {
	logger  *zap.Logger
	library HostLibrary
	workers int

	mu          sync.Mutex
	queue       *hostQueue
	initialized bool
	allocated   atomic.Int64
}

// NewHostDevice creates a host device executing kernels from library.
// workers <= 0 uses one worker per CPU.
func NewHostDevice(logger *zap.Logger, library HostLibrary, workers int) *HostDevice {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &HostDevice{
		logger:  logger.Named("host"),
		library: library,
		workers: workers,
	}
}

// Initialize starts the command queue
func (d *HostDevice) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	d.queue = newHostQueue(hostQueueDepth)
	d.initialized = true
	d.logger.Info("Host device initialized",
		zap.Int("workers", d.workers),
		zap.Int("kernels", len(d.library)))
	return nil
}

// Cleanup drains and stops the command queue
func (d *HostDevice) Cleanup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil
	}
	d.queue.Close()
	d.initialized = false
	return nil
}

// IsAvailable checks if the device is available (always true on the host)
func (d *HostDevice) IsAvailable() bool {
	return true
}

func (d *HostDevice) GetDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Name:             fmt.Sprintf("Host (%s/%s)", runtime.GOOS, runtime.GOARCH),
		Backend:          "host",
		DriverVersion:    runtime.Version(),
		ComputeUnits:     d.workers,
		MaxWorkGroupSize: hostMaxWorkGroupSize,
		AllocatedMemory:  d.allocated.Load(),
		Features:         hostFeatures(),
	}
}

func hostFeatures() []string {
	var features []string
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE41 || cpu.X86.HasSSE42 {
			features = append(features, "sse4")
		}
		if cpu.X86.HasAVX2 {
			features = append(features, "avx2")
		}
		if cpu.X86.HasFMA {
			features = append(features, "fma")
		}
		if cpu.X86.HasAVX512F {
			features = append(features, "avx512f")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			features = append(features, "neon")
		}
		if cpu.ARM64.HasFPHP && cpu.ARM64.HasASIMDHP {
			features = append(features, "fp16")
		}
	}
	return features
}

func (d *HostDevice) NewArray(elem ElemType, n int) (Array, error) {
	if err := d.ready("device.alloc"); err != nil {
		return nil, err
	}
	if elem != Uint32 && elem != Float32 {
		return nil, NewAllocError("device.alloc", fmt.Sprintf("unsupported element type %d", elem), nil)
	}
	if n < 0 {
		return nil, NewAllocError("device.alloc", fmt.Sprintf("negative length %d", n), nil)
	}
	d.account(int64(n) * int64(elem.Size()))
	return &hostArray{
		dev:  d,
		buf:  &HostBuffer{Elem: elem, Words: make([]uint32, n)},
		n:    n,
		elem: elem,
	}, nil
}

// Compile resolves an entry point in the host library. The program source
// is not used; defines are handed to the kernel at run time.
func (d *HostDevice) Compile(program Program, entry string, defines Defines) (Kernel, error) {
	if err := d.ready("device.compile"); err != nil {
		return nil, err
	}
	fn, ok := d.library[HostKey(program.Name, entry)]
	if !ok {
		return nil, NewCompileError("device.compile",
			fmt.Sprintf("entry point %q not found in program %q", entry, program.Name),
			fmt.Sprintf("host library has no kernel %s", HostKey(program.Name, entry)), nil)
	}
	d.logger.Debug("Kernel compiled",
		zap.String("program", program.Name),
		zap.String("entry", entry),
		zap.String("options", defines.Options()))
	return &hostKernel{dev: d, name: entry, fn: fn, defines: defines}, nil
}

func (d *HostDevice) Finish(ctx context.Context) error {
	if err := d.ready("device.finish"); err != nil {
		return err
	}
	return d.queue.Barrier(ctx, true)
}

func (d *HostDevice) ready(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return NewConfigError(op, "host device not initialized", nil)
	}
	return nil
}

func (d *HostDevice) account(delta int64) {
	total := d.allocated.Add(delta)
	metrics.DeviceAllocatedBytes.Set(float64(total))
}

type hostKernel struct {
	dev     *HostDevice
	name    string
	fn      HostKernelFunc
	defines Defines
}

func (k *hostKernel) Name() string {
	return k.name
}

func (k *hostKernel) Launch(g geometry.Geometry, args ...any) error {
	op := "kernel." + k.name
	if err := k.dev.ready(op); err != nil {
		return err
	}
	if err := validateGeometry(g); err != nil {
		return NewConfigError(op, err.Error(), nil)
	}
	resolved, err := resolveArgs(args)
	if err != nil {
		return NewConfigError(op, err.Error(), nil)
	}
	return k.dev.queue.Enqueue(func() error {
		return k.dev.execute(op, k.fn, g, k.defines, resolved)
	})
}

func validateGeometry(g geometry.Geometry) error {
	if g.Local.X <= 0 || g.Local.Y <= 0 {
		return fmt.Errorf("invalid local size %dx%d", g.Local.X, g.Local.Y)
	}
	if g.Global.X <= 0 || g.Global.Y <= 0 {
		return fmt.Errorf("invalid global size %dx%d", g.Global.X, g.Global.Y)
	}
	if g.Global.X%g.Local.X != 0 || g.Global.Y%g.Local.Y != 0 {
		return fmt.Errorf("global size %dx%d is not a multiple of local size %dx%d",
			g.Global.X, g.Global.Y, g.Local.X, g.Local.Y)
	}
	if g.Local.Size() > hostMaxWorkGroupSize {
		return fmt.Errorf("local size %d exceeds the maximum work-group size %d", g.Local.Size(), hostMaxWorkGroupSize)
	}
	return nil
}

// resolveArgs binds arrays to their current storage, so a later Swap does not
// affect a launch that is already enqueued.
func resolveArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case *hostArray:
			if v.buf == nil {
				return nil, fmt.Errorf("argument %d: array released", i)
			}
			out[i] = v.buf
		case Array:
			return nil, fmt.Errorf("argument %d: array %T does not belong to the host device", i, arg)
		case uint32, int32, float32, LocalMem:
			out[i] = v
		default:
			return nil, fmt.Errorf("argument %d: unsupported type %T", i, arg)
		}
	}
	return out, nil
}

// execute runs every work-group of a launch. Contiguous blocks of groups are
// handed to each worker.
func (d *HostDevice) execute(op string, fn HostKernelFunc, g geometry.Geometry, defines Defines, args []any) error {
	groups := g.Groups()
	total := groups.Size()
	workers := min(d.workers, total)
	perWorker := geometry.CeilDiv(total, workers)

	var eg errgroup.Group
	eg.SetLimit(workers)
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := min(start+perWorker, total)
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = NewLaunchError(op, fmt.Sprintf("kernel panicked: %v", r), nil)
				}
			}()
			for id := start; id < end; id++ {
				fn(&Group{
					ID:      geometry.Dim2{X: id % groups.X, Y: id / groups.X},
					Local:   g.Local,
					Global:  g.Global,
					Groups:  groups,
					Defines: defines,
					args:    args,
				})
			}
			return nil
		})
	}
	return eg.Wait()
}
