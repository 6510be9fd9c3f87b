package gpu

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/fxnlabs/gpuprim/internal/geometry"
)

// DeviceInfo contains information about the compute device
type DeviceInfo struct {
	Name             string   `json:"name"`
	Backend          string   `json:"backend"`
	Vendor           string   `json:"vendor,omitempty"`
	DriverVersion    string   `json:"driverVersion"`
	ComputeUnits     int      `json:"computeUnits"`
	MaxWorkGroupSize int      `json:"maxWorkGroupSize"`
	GlobalMemory     int64    `json:"globalMemory"`    // in bytes
	AllocatedMemory  int64    `json:"allocatedMemory"` // in bytes, arrays currently alive
	Features         []string `json:"features,omitempty"`
}

// ElemType is the element type of a device array.
type ElemType uint8

const (
	Uint32 ElemType = iota + 1
	Float32
)

func (e ElemType) String() string {
	switch e {
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	default:
		return "unknown"
	}
}

// Size returns the element size in bytes.
func (e ElemType) Size() int {
	return 4
}

// Device defines the binding layer the orchestration engines run on.
// Implementations own exactly one in-order command queue: every launch, write
// and read is executed in submission order, so a round always observes the
// writes of the rounds enqueued before it.
//
// Implementation notes:
//   - Automatic fallback to the host device is handled by the Manager, not the device
//   - A failed command poisons the queue until the next Finish, which reports it
//   - Resource cleanup is critical to prevent device memory leaks
type Device interface {
	// GetDeviceInfo returns information about the device
	GetDeviceInfo() DeviceInfo

	// IsAvailable checks if the device can be used without heavy initialization
	IsAvailable() bool

	// Initialize prepares the device (contexts, queues). Called once before first use.
	Initialize() error

	// Cleanup releases the queue and any device resources
	Cleanup() error

	// NewArray allocates a device array of n elements
	NewArray(elem ElemType, n int) (Array, error)

	// Compile builds the named entry point of a program with the given
	// preprocessor defines. Compile failures carry the compiler log.
	Compile(program Program, entry string, defines Defines) (Kernel, error)

	// Finish blocks until every enqueued command has executed and returns the
	// first error the queue hit since the previous Finish.
	Finish(ctx context.Context) error
}

// Array is a device-resident typed buffer.
//
// Cap() >= Len() always holds. Resize within capacity only changes the logical
// length; growing reallocates and leaves the contents undefined, so callers
// must write again after a growing resize.
type Array interface {
	Len() int
	Cap() int
	Elem() ElemType

	Resize(n int) error

	// Write copies a host slice ([]uint32 or []float32, matching Elem) into
	// the start of the array.
	Write(src any) error

	// Read copies len(dst) elements starting at offset into dst. It blocks
	// until every command enqueued before it has executed.
	Read(dst any, offset int) error

	// Swap exchanges the storage of two arrays of the same element type
	// without copying data. Launches already enqueued keep the storage they
	// were bound to.
	Swap(other Array) error

	Release() error
}

// Kernel is a compiled, named entry point.
type Kernel interface {
	Name() string

	// Launch binds args positionally and enqueues the kernel over g.
	// Supported args are Array, uint32, int32, float32 and LocalMem.
	Launch(g geometry.Geometry, args ...any) error
}

// LocalMem requests a work-group local buffer of the given size in bytes.
type LocalMem int

// Program is kernel source identified by name. Device backends that compile
// source text use Source; the host device resolves entry points by Name.
type Program struct {
	Name   string
	Source string
}

// Defines are preprocessor defines passed to the kernel compiler.
type Defines map[string]int

// With returns a copy of d with name set to value.
func (d Defines) With(name string, value int) Defines {
	out := make(Defines, len(d)+1)
	maps.Copy(out, d)
	out[name] = value
	return out
}

// Get returns the value of name, or def if it is not defined.
func (d Defines) Get(name string, def int) int {
	if v, ok := d[name]; ok {
		return v
	}
	return def
}

// Options renders the defines as compiler options in a stable order.
func (d Defines) Options() string {
	keys := slices.Sorted(maps.Keys(d))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("-D %s=%d", k, d[k]))
	}
	return strings.Join(parts, " ")
}

// ElemDefines returns the defines selecting the element type of a program.
func ElemDefines(elem ElemType) Defines {
	if elem == Float32 {
		return Defines{"ELEM_FLOAT": 1}
	}
	return Defines{"ELEM_FLOAT": 0}
}
