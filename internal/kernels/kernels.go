// Package kernels holds the device programs used by the engines: the OpenCL C
// source compiled by real devices, and a Go implementation of every entry
// point for the host device.
package kernels

import (
	_ "embed"

	"github.com/fxnlabs/gpuprim/internal/gpu"
)

var (
	//go:embed cl/common.h.cl
	commonSource string
	//go:embed cl/scan.cl
	scanSource string
	//go:embed cl/sort.cl
	sortSource string
	//go:embed cl/radix.cl
	radixSource string
	//go:embed cl/transpose.cl
	transposeSource string
	//go:embed cl/reduce.cl
	reduceSource string
	//go:embed cl/matmul.cl
	matmulSource string
)

// Programs. Each one is prefixed with the shared element-type header.
var (
	Scan      = gpu.Program{Name: "scan", Source: commonSource + scanSource}
	Sort      = gpu.Program{Name: "sort", Source: commonSource + sortSource}
	Radix     = gpu.Program{Name: "radix", Source: commonSource + radixSource}
	Transpose = gpu.Program{Name: "transpose", Source: commonSource + transposeSource}
	Reduce    = gpu.Program{Name: "reduce", Source: commonSource + reduceSource}
	MatMul    = gpu.Program{Name: "matmul", Source: commonSource + matmulSource}
)

// Entry points.
const (
	ScanUpSweep   = "scan_upsweep"
	ScanDownSweep = "scan_downsweep"
	ScanDoubling  = "scan_doubling"
	ScanShift     = "scan_shift"

	BitonicFlip         = "bitonic_flip"
	BitonicHalf         = "bitonic_half"
	BitonicLocalPresort = "bitonic_local_presort"
	BitonicLocalMerge   = "bitonic_local_merge"
	MergePass           = "merge_pass"

	RadixCount   = "radix_count"
	RadixScatter = "radix_scatter"

	TransposeTiled = "transpose"

	ReduceAtomic      = "reduce_atomic"
	ReduceStrided     = "reduce_strided"
	ReduceCoalesced   = "reduce_coalesced"
	ReduceLocal       = "reduce_local"
	ReduceTreePartial = "reduce_tree_partial"
	ReduceTreeFinal   = "reduce_tree_final"

	MatMulTiled = "matmul_tiled"
)

// Compile-time defines understood by the programs.
const (
	DefineElemFloat      = "ELEM_FLOAT"
	DefineWorkgroupSize  = "WORKGROUP_SIZE"
	DefineRadixBits      = "RADIX_BITS"
	DefineItemsPerThread = "ITEMS_PER_THREAD"
	DefineTile           = "TILE"
)

// Defaults for the defines above.
const (
	DefaultWorkgroupSize  = 128
	DefaultRadixBits      = 4
	DefaultItemsPerThread = 8
	DefaultTile           = 16
)

// HostLibrary returns the host implementation of every entry point.
func HostLibrary() gpu.HostLibrary {
	lib := gpu.HostLibrary{}
	register := func(p gpu.Program, entries map[string]gpu.HostKernelFunc) {
		for entry, fn := range entries {
			lib[gpu.HostKey(p.Name, entry)] = fn
		}
	}
	register(Scan, scanKernels)
	register(Sort, sortKernels)
	register(Radix, radixKernels)
	register(Transpose, transposeKernels)
	register(Reduce, reduceKernels)
	register(MatMul, matmulKernels)
	return lib
}
