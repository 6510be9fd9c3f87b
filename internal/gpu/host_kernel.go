package gpu

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/fxnlabs/gpuprim/internal/geometry"
)

// HostKernelFunc runs one work-group of a kernel on the host. Work-items of a
// group execute sequentially inside the function, so a barrier is simply the
// boundary between two loops over the group's items.
type HostKernelFunc func(g *Group)

// HostLibrary maps "program/entry" to host implementations.
type HostLibrary map[string]HostKernelFunc

// HostKey returns the library key of an entry point.
func HostKey(program, entry string) string {
	return program + "/" + entry
}

// HostBuffer is the storage behind a host array. Elements are kept as raw
// 32-bit words; float arrays hold IEEE-754 bits.
type HostBuffer struct {
	Elem  ElemType
	Words []uint32
}

func (b *HostBuffer) Float(i int) float32 {
	return math.Float32frombits(b.Words[i])
}

func (b *HostBuffer) SetFloat(i int, v float32) {
	b.Words[i] = math.Float32bits(v)
}

// AtomicAdd adds v (as bits of the buffer's element type) to element i.
func (b *HostBuffer) AtomicAdd(i int, v uint32) {
	p := &b.Words[i]
	if b.Elem != Float32 {
		atomic.AddUint32(p, v)
		return
	}
	for {
		old := atomic.LoadUint32(p)
		if atomic.CompareAndSwapUint32(p, old, Float32.AddBits(old, v)) {
			return
		}
	}
}

// AddBits adds two elements given as raw bits. Integer addition wraps.
func (e ElemType) AddBits(a, b uint32) uint32 {
	if e == Float32 {
		return math.Float32bits(math.Float32frombits(a) + math.Float32frombits(b))
	}
	return a + b
}

// LessBits compares two elements given as raw bits.
func (e ElemType) LessBits(a, b uint32) bool {
	if e == Float32 {
		return math.Float32frombits(a) < math.Float32frombits(b)
	}
	return a < b
}

// Group is the execution context of one work-group on the host device.
type Group struct {
	ID      geometry.Dim2
	Local   geometry.Dim2
	Global  geometry.Dim2
	Groups  geometry.Dim2
	Defines Defines

	args []any
}

// Linear returns the row-major index of the group.
func (g *Group) Linear() int {
	return g.ID.Y*g.Groups.X + g.ID.X
}

// Items calls fn for every work-item of a 1-D group with its local and global id.
func (g *Group) Items(fn func(lid, gid int)) {
	base := g.ID.X * g.Local.X
	for lid := 0; lid < g.Local.X; lid++ {
		fn(lid, base+lid)
	}
}

// Items2D calls fn for every work-item of a 2-D group with its global coordinates.
func (g *Group) Items2D(fn func(x, y int)) {
	baseX, baseY := g.ID.X*g.Local.X, g.ID.Y*g.Local.Y
	for ly := 0; ly < g.Local.Y; ly++ {
		for lx := 0; lx < g.Local.X; lx++ {
			fn(baseX+lx, baseY+ly)
		}
	}
}

// Buffer returns argument i as a buffer.
func (g *Group) Buffer(i int) *HostBuffer {
	b, ok := g.args[i].(*HostBuffer)
	if !ok {
		panic(fmt.Sprintf("argument %d is %T, not a buffer", i, g.args[i]))
	}
	return b
}

// Uint returns scalar argument i as uint32.
func (g *Group) Uint(i int) uint32 {
	switch v := g.args[i].(type) {
	case uint32:
		return v
	case int32:
		return uint32(v)
	default:
		panic(fmt.Sprintf("argument %d is %T, not an integer scalar", i, g.args[i]))
	}
}

// Int returns scalar argument i as int.
func (g *Group) Int(i int) int {
	return int(g.Uint(i))
}

// Float returns scalar argument i as float32.
func (g *Group) Float(i int) float32 {
	v, ok := g.args[i].(float32)
	if !ok {
		panic(fmt.Sprintf("argument %d is %T, not a float scalar", i, g.args[i]))
	}
	return v
}

// Define returns the compile-time define name, or def.
func (g *Group) Define(name string, def int) int {
	return g.Defines.Get(name, def)
}

// LocalWords allocates the work-group local buffer requested by argument i.
// Every group gets its own zeroed buffer.
func (g *Group) LocalWords(i int) []uint32 {
	size, ok := g.args[i].(LocalMem)
	if !ok {
		panic(fmt.Sprintf("argument %d is %T, not local memory", i, g.args[i]))
	}
	return make([]uint32, int(size)/4)
}
