//go:build opencl

package gpu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/metrics"
)

// OpenCLDevice runs kernels on the first device of an OpenCL platform through
// a single in-order command queue.
type OpenCLDevice struct {
	logger   *zap.Logger
	platform int

	mu          sync.Mutex // serializes SetArg+Enqueue pairs
	device      *cl.Device
	context     *cl.Context
	queue       *cl.CommandQueue
	programs    map[string]*cl.Program
	initialized bool
	allocated   atomic.Int64
}

// NewOpenCLDevice creates a device bound to the given platform index.
func NewOpenCLDevice(logger *zap.Logger, platform int) *OpenCLDevice {
	return &OpenCLDevice{
		logger:   logger.Named("opencl"),
		platform: platform,
		programs: make(map[string]*cl.Program),
	}
}

func (d *OpenCLDevice) IsAvailable() bool {
	platforms, err := cl.GetPlatforms()
	if err != nil || len(platforms) <= d.platform {
		return false
	}
	devices, err := platforms[d.platform].GetDevices(cl.DeviceTypeAll)
	return err == nil && len(devices) > 0
}

func (d *OpenCLDevice) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}

	platforms, err := cl.GetPlatforms()
	if err != nil {
		return fmt.Errorf("get platforms: %w", err)
	}
	if len(platforms) <= d.platform {
		return fmt.Errorf("platform %d not found (%d available)", d.platform, len(platforms))
	}
	devices, err := platforms[d.platform].GetDevices(cl.DeviceTypeAll)
	if err != nil {
		return fmt.Errorf("get devices: %w", err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("platform %d has no devices", d.platform)
	}
	d.device = devices[0]

	d.context, err = cl.CreateContext([]*cl.Device{d.device})
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	d.queue, err = d.context.CreateCommandQueue(d.device, 0)
	if err != nil {
		d.context.Release()
		return fmt.Errorf("create command queue: %w", err)
	}

	d.initialized = true
	d.logger.Info("OpenCL device initialized",
		zap.String("device", d.device.Name()),
		zap.String("vendor", d.device.Vendor()))
	return nil
}

func (d *OpenCLDevice) Cleanup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil
	}
	for name, p := range d.programs {
		p.Release()
		delete(d.programs, name)
	}
	d.queue.Release()
	d.context.Release()
	d.initialized = false
	return nil
}

func (d *OpenCLDevice) GetDeviceInfo() DeviceInfo {
	if d.device == nil {
		return DeviceInfo{Name: "OpenCL (uninitialized)", Backend: "opencl"}
	}
	return DeviceInfo{
		Name:             d.device.Name(),
		Backend:          "opencl",
		Vendor:           d.device.Vendor(),
		DriverVersion:    d.device.DriverVersion(),
		ComputeUnits:     d.device.MaxComputeUnits(),
		MaxWorkGroupSize: d.device.MaxWorkGroupSize(),
		GlobalMemory:     d.device.GlobalMemSize(),
		AllocatedMemory:  d.allocated.Load(),
	}
}

func (d *OpenCLDevice) NewArray(elem ElemType, n int) (Array, error) {
	a := &clArray{dev: d, elem: elem}
	if err := a.alloc(n); err != nil {
		return nil, err
	}
	return a, nil
}

// Compile builds a program once per distinct define set and creates the
// requested entry point from it.
func (d *OpenCLDevice) Compile(program Program, entry string, defines Defines) (Kernel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, NewConfigError("device.compile", "OpenCL device not initialized", nil)
	}

	options := defines.Options()
	key := program.Name + " " + options
	p, ok := d.programs[key]
	if !ok {
		var err error
		p, err = d.context.CreateProgramWithSource([]string{program.Source})
		if err != nil {
			return nil, NewCompileError("device.compile", "create program "+program.Name, "", err)
		}
		if err := p.BuildProgram([]*cl.Device{d.device}, options); err != nil {
			p.Release()
			return nil, NewCompileError("device.compile", "build program "+program.Name, err.Error(), err)
		}
		d.programs[key] = p
		d.logger.Debug("Program built", zap.String("program", program.Name), zap.String("options", options))
	}

	k, err := p.CreateKernel(entry)
	if err != nil {
		return nil, NewCompileError("device.compile",
			fmt.Sprintf("entry point %q not found in program %q", entry, program.Name), "", err)
	}
	return &clKernel{dev: d, name: entry, kernel: k}, nil
}

func (d *OpenCLDevice) Finish(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- d.queue.Finish()
	}()
	select {
	case err := <-done:
		if err != nil {
			return NewLaunchError("device.finish", "queue finish failed", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *OpenCLDevice) account(delta int64) {
	metrics.DeviceAllocatedBytes.Set(float64(d.allocated.Add(delta)))
}

type clKernel struct {
	dev    *OpenCLDevice
	name   string
	kernel *cl.Kernel
}

func (k *clKernel) Name() string {
	return k.name
}

func (k *clKernel) Launch(g geometry.Geometry, args ...any) error {
	op := "kernel." + k.name
	k.dev.mu.Lock()
	defer k.dev.mu.Unlock()

	for i, arg := range args {
		var value any
		switch v := arg.(type) {
		case *clArray:
			value = v.mem
		case LocalMem:
			value = cl.LocalBuffer(int(v))
		case uint32, int32, float32:
			value = v
		default:
			return NewConfigError(op, fmt.Sprintf("argument %d: unsupported type %T", i, arg), nil)
		}
		if err := k.kernel.SetArg(i, value); err != nil {
			return NewLaunchError(op, fmt.Sprintf("set argument %d", i), err)
		}
	}

	global := []int{g.Global.X}
	local := []int{g.Local.X}
	if g.Dims() == 2 {
		global = append(global, g.Global.Y)
		local = append(local, g.Local.Y)
	}
	if _, err := k.dev.queue.EnqueueNDRangeKernel(k.kernel, nil, global, local, nil); err != nil {
		return NewLaunchError(op, "enqueue kernel", err)
	}
	return nil
}

type clArray struct {
	dev  *OpenCLDevice
	mem  *cl.MemObject
	n    int
	cap  int
	elem ElemType
}

func (a *clArray) alloc(n int) error {
	size := max(n, 1) * a.elem.Size()
	mem, err := a.dev.context.CreateEmptyBuffer(cl.MemReadWrite, size)
	if err != nil {
		return NewAllocError("array.alloc", fmt.Sprintf("%d bytes", size), err)
	}
	if a.mem != nil {
		a.mem.Release()
		a.dev.account(-int64(a.cap * a.elem.Size()))
	}
	a.mem, a.n, a.cap = mem, n, n
	a.dev.account(int64(n * a.elem.Size()))
	return nil
}

func (a *clArray) Len() int       { return a.n }
func (a *clArray) Cap() int       { return a.cap }
func (a *clArray) Elem() ElemType { return a.elem }

func (a *clArray) Resize(n int) error {
	if n < 0 {
		return NewConfigError("array.resize", fmt.Sprintf("negative length %d", n), nil)
	}
	if n <= a.cap {
		a.n = n
		return nil
	}
	return a.alloc(n)
}

func (a *clArray) Write(src any) error {
	words, err := toWords(a.elem, src)
	if err != nil {
		return NewTransferError("array.write", err.Error(), nil)
	}
	if len(words) > a.n {
		return NewTransferError("array.write",
			fmt.Sprintf("%d elements do not fit an array of length %d", len(words), a.n), nil)
	}
	if len(words) == 0 {
		return nil
	}
	a.dev.mu.Lock()
	defer a.dev.mu.Unlock()
	if _, err := a.dev.queue.EnqueueWriteBuffer(a.mem, true, 0, len(words)*4, unsafe.Pointer(&words[0]), nil); err != nil {
		return NewTransferError("array.write", "enqueue write", err)
	}
	return nil
}

func (a *clArray) Read(dst any, offset int) error {
	count, err := hostLen(a.elem, dst)
	if err != nil {
		return NewTransferError("array.read", err.Error(), nil)
	}
	if offset < 0 || offset+count > a.n {
		return NewTransferError("array.read",
			fmt.Sprintf("range [%d, %d) outside array of length %d", offset, offset+count, a.n), nil)
	}
	if count == 0 {
		return nil
	}
	words := make([]uint32, count)
	a.dev.mu.Lock()
	_, err = a.dev.queue.EnqueueReadBuffer(a.mem, true, offset*4, count*4, unsafe.Pointer(&words[0]), nil)
	a.dev.mu.Unlock()
	if err != nil {
		return NewTransferError("array.read", "enqueue read", err)
	}
	fromWords(words, dst)
	return nil
}

func (a *clArray) Swap(other Array) error {
	b, ok := other.(*clArray)
	if !ok {
		return NewConfigError("array.swap", fmt.Sprintf("cannot swap with %T", other), nil)
	}
	if a.elem != b.elem {
		return NewConfigError("array.swap",
			fmt.Sprintf("element types differ: %s and %s", a.elem, b.elem), nil)
	}
	a.mem, b.mem = b.mem, a.mem
	a.n, b.n = b.n, a.n
	a.cap, b.cap = b.cap, a.cap
	return nil
}

func (a *clArray) Release() error {
	if a.mem == nil {
		return nil
	}
	a.mem.Release()
	a.dev.account(-int64(a.cap * a.elem.Size()))
	a.mem = nil
	a.n, a.cap = 0, 0
	return nil
}
