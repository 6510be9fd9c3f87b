package scan

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/geometry"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
	gpumocks "github.com/fxnlabs/gpuprim/mocks/gpu"
)

func newEngine(t testing.TB, workgroupSize int) (*Engine, gpu.Device) {
	t.Helper()
	dev := gpu.NewHostDevice(zap.NewNop(), kernels.HostLibrary(), 4)
	require.NoError(t, dev.Initialize())
	t.Cleanup(func() { _ = dev.Cleanup() })
	return NewEngine(gpu.NewKernelCache(dev), zap.NewNop(), workgroupSize), dev
}

func uploadUint(t testing.TB, dev gpu.Device, data []uint32) gpu.Array {
	t.Helper()
	arr, err := dev.NewArray(gpu.Uint32, len(data))
	require.NoError(t, err)
	require.NoError(t, arr.Write(data))
	return arr
}

func runningSum(data []uint32, exclusive bool) []uint32 {
	out := make([]uint32, len(data))
	var sum uint32
	for i, v := range data {
		if exclusive {
			out[i] = sum
			sum += v
		} else {
			sum += v
			out[i] = sum
		}
	}
	return out
}

func TestScan_MatchesHostRunningSum(t *testing.T) {
	sizes := []int{1, 2, 3, 5, 8, 100, 255, 256, 257, 1000, 4096, 10007}
	rng := rand.New(rand.NewSource(42))

	for _, alg := range []Algorithm{Blelloch, Doubling} {
		for _, exclusive := range []bool{false, true} {
			for _, n := range sizes {
				name := fmt.Sprintf("%s/exclusive=%t/n=%d", alg, exclusive, n)
				t.Run(name, func(t *testing.T) {
					engine, dev := newEngine(t, 64)
					data := make([]uint32, n)
					for i := range data {
						data[i] = uint32(rng.Intn(1024))
					}
					arr := uploadUint(t, dev, data)

					var err error
					if exclusive {
						err = engine.Exclusive(context.Background(), n, arr, alg)
					} else {
						err = engine.Inclusive(context.Background(), n, arr, alg)
					}
					require.NoError(t, err)

					got := make([]uint32, n)
					require.NoError(t, arr.Read(got, 0))
					assert.Equal(t, runningSum(data, exclusive), got)
				})
			}
		}
	}
}

// 4096 values in [0, 1023] with the default work-group size.
func TestScan_4096Scenario(t *testing.T) {
	engine, dev := newEngine(t, 256)
	rng := rand.New(rand.NewSource(7))
	data := make([]uint32, 4096)
	for i := range data {
		data[i] = uint32(rng.Intn(1024))
	}
	arr := uploadUint(t, dev, data)
	require.NoError(t, engine.Inclusive(context.Background(), len(data), arr, Blelloch))

	got := make([]uint32, len(data))
	require.NoError(t, arr.Read(got, 0))
	assert.Equal(t, runningSum(data, false), got)
}

func TestScan_WrapsAndFloats(t *testing.T) {
	engine, dev := newEngine(t, 4)

	t.Run("uint32 wraps", func(t *testing.T) {
		data := []uint32{0xFFFFFFFF, 1, 2}
		arr := uploadUint(t, dev, data)
		require.NoError(t, engine.Inclusive(context.Background(), 3, arr, Blelloch))
		got := make([]uint32, 3)
		require.NoError(t, arr.Read(got, 0))
		assert.Equal(t, []uint32{0xFFFFFFFF, 0, 2}, got)
	})

	for _, alg := range []Algorithm{Blelloch, Doubling} {
		t.Run("float32 "+alg.String(), func(t *testing.T) {
			data := []float32{0.5, 1.25, -2, 4, 8.5, 0.25, 1, 3}
			arr, err := dev.NewArray(gpu.Float32, len(data))
			require.NoError(t, err)
			require.NoError(t, arr.Write(data))
			require.NoError(t, engine.Exclusive(context.Background(), len(data), arr, alg))

			got := make([]float32, len(data))
			require.NoError(t, arr.Read(got, 0))
			var sum float32
			for i, v := range data {
				assert.InDelta(t, sum, got[i], 1e-5, "index %d", i)
				sum += v
			}
		})
	}
}

func TestScan_PartialRangeAndEmpty(t *testing.T) {
	engine, dev := newEngine(t, 8)
	data := []uint32{1, 1, 1, 1, 9, 9}
	arr := uploadUint(t, dev, data)

	require.NoError(t, engine.Inclusive(context.Background(), 0, arr, Blelloch))
	require.NoError(t, engine.Inclusive(context.Background(), 4, arr, Blelloch))

	got := make([]uint32, len(data))
	require.NoError(t, arr.Read(got, 0))
	assert.Equal(t, []uint32{1, 2, 3, 4, 9, 9}, got, "in-place scan leaves the tail alone")
}

func TestScan_ConfigErrors(t *testing.T) {
	engine, dev := newEngine(t, 8)
	arr := uploadUint(t, dev, []uint32{1, 2, 3})
	huge := &gpumocks.MockArray{}
	huge.On("Len").Return(gpu.MaxLength + 1)

	tests := []struct {
		name string
		err  error
	}{
		{"n too large", engine.Inclusive(context.Background(), 4, arr, Blelloch)},
		{"negative n", engine.Inclusive(context.Background(), -1, arr, Doubling)},
		{"nil array", engine.Exclusive(context.Background(), 1, nil, Blelloch)},
		{"unknown algorithm", engine.Inclusive(context.Background(), 3, arr, Algorithm(9))},
		{"n beyond int32", engine.Inclusive(context.Background(), gpu.MaxLength+1, huge, Blelloch)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, gpu.IsConfigError(tt.err), "%v", tt.err)
		})
	}

	bad, _ := newEngine(t, 0)
	err := bad.Inclusive(context.Background(), 3, arr, Blelloch)
	assert.ErrorIs(t, err, geometry.ErrInvalidLocalSize)
}

func TestScan_CompileErrorPropagates(t *testing.T) {
	dev := gpumocks.NewMockDevice(t)
	arr := gpumocks.NewMockArray(t)
	arr.EXPECT().Len().Return(16)
	arr.EXPECT().Elem().Return(gpu.Uint32)
	compileErr := gpu.NewCompileError("device.compile", "build program scan", "error: expected ';'", nil)
	dev.EXPECT().Compile(kernels.Scan, kernels.ScanUpSweep, gpu.ElemDefines(gpu.Uint32).With(kernels.DefineWorkgroupSize, 8)).
		Return(nil, compileErr)

	engine := NewEngine(gpu.NewKernelCache(dev), nil, 8)
	err := engine.Inclusive(context.Background(), 16, arr, Blelloch)
	require.Error(t, err)
	assert.Equal(t, gpu.KindCompile, gpu.KindOf(err))
	assert.Contains(t, err.Error(), "scan.inclusive")
}

func TestScan_RoundCounts(t *testing.T) {
	tests := []struct {
		n, up, down int
	}{
		{1, 0, 0},
		{2, 1, 1},
		{8, 3, 3},
		{1000, 9, 9},
		{4096, 12, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.up, geometry.Count(geometry.UpSweep(tt.n)), "up n=%d", tt.n)
		assert.Equal(t, tt.down, geometry.Count(geometry.DownSweep(tt.n)), "down n=%d", tt.n)
	}
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("Doubling")
	require.NoError(t, err)
	assert.Equal(t, Doubling, alg)

	alg, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, Blelloch, alg)

	_, err = ParseAlgorithm("kogge-stone")
	assert.True(t, gpu.IsConfigError(err))
}

func BenchmarkScan(b *testing.B) {
	for _, alg := range []Algorithm{Blelloch, Doubling} {
		for _, n := range []int{1 << 12, 1 << 16} {
			b.Run(fmt.Sprintf("%s/n=%d", alg, n), func(b *testing.B) {
				engine, dev := newEngine(b, 256)
				data := make([]uint32, n)
				arr := uploadUint(b, dev, data)
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := engine.Inclusive(context.Background(), n, arr, alg); err != nil {
						b.Fatal(err)
					}
				}
				b.ReportMetric(float64(n)*float64(b.N)/b.Elapsed().Seconds()/1e6, "Melems/s")
			})
		}
	}
}
