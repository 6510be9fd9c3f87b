package reduce

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
)

func newEngine(t testing.TB, workgroupSize, itemsPerThread int) (*Engine, gpu.Device) {
	t.Helper()
	dev := gpu.NewHostDevice(zap.NewNop(), kernels.HostLibrary(), 4)
	require.NoError(t, dev.Initialize())
	t.Cleanup(func() { _ = dev.Cleanup() })
	return NewEngine(gpu.NewKernelCache(dev), zap.NewNop(), workgroupSize, itemsPerThread), dev
}

func TestSum_StrategiesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	for _, n := range []int{0, 1, 2, 7, 64, 100, 1000, 4097, 100000} {
		data := make([]uint32, n)
		var want uint32
		for i := range data {
			data[i] = rng.Uint32()
			want += data[i]
		}
		for _, strategy := range Strategies() {
			t.Run(fmt.Sprintf("%s/n=%d", strategy, n), func(t *testing.T) {
				engine, dev := newEngine(t, 32, 8)
				arr, err := dev.NewArray(gpu.Uint32, max(n, 1))
				require.NoError(t, err)
				if n > 0 {
					require.NoError(t, arr.Write(data))
				}

				got, err := engine.Sum(context.Background(), strategy, n, arr)
				require.NoError(t, err)
				assert.Equal(t, want, got.Uint32(), "wrapping 32-bit sum")

				if n > 0 {
					after := make([]uint32, n)
					require.NoError(t, arr.Read(after, 0))
					assert.Equal(t, data, after, "input is untouched")
				}
			})
		}
	}
}

func TestSum_Float32(t *testing.T) {
	data := make([]float32, 1000)
	for i := range data {
		data[i] = 0.5
	}
	for _, strategy := range Strategies() {
		t.Run(strategy.String(), func(t *testing.T) {
			engine, dev := newEngine(t, 64, 4)
			arr, err := dev.NewArray(gpu.Float32, len(data))
			require.NoError(t, err)
			require.NoError(t, arr.Write(data))

			got, err := engine.Sum(context.Background(), strategy, len(data), arr)
			require.NoError(t, err)
			assert.Equal(t, gpu.Float32, got.Elem)
			assert.InDelta(t, 500, got.Float32(), 1e-3)
			assert.Equal(t, "500", got.String())
		})
	}
}

func TestSum_TreeRounds(t *testing.T) {
	tests := []struct {
		n, local, rounds int
	}{
		{1, 32, 1},
		{64, 32, 1},
		{65, 32, 2},
		{100000, 256, 2},
		{1 << 20, 32, 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/local=%d", tt.n, tt.local), func(t *testing.T) {
			assert.Equal(t, tt.rounds, geometry.Count(geometry.TreeRounds(tt.n, tt.local)))
		})
	}
}

func TestSum_Errors(t *testing.T) {
	engine, dev := newEngine(t, 32, 8)
	arr, err := dev.NewArray(gpu.Uint32, 4)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Sum(ctx, Atomic, 5, arr)
	assert.True(t, gpu.IsConfigError(err))
	_, err = engine.Sum(ctx, Strategy(17), 4, arr)
	assert.True(t, gpu.IsConfigError(err))
	_, err = engine.Sum(ctx, Tree, 4, nil)
	assert.True(t, gpu.IsConfigError(err))

	noItems, _ := newEngine(t, 32, 0)
	_, err = noItems.Sum(ctx, Strided, 4, arr)
	assert.True(t, gpu.IsConfigError(err))

	noGroup, _ := newEngine(t, 0, 8)
	_, err = noGroup.Sum(ctx, Local, 4, arr)
	assert.ErrorIs(t, err, geometry.ErrInvalidLocalSize)
}

func TestParseStrategy(t *testing.T) {
	for _, strategy := range Strategies() {
		got, err := ParseStrategy(strategy.String())
		require.NoError(t, err)
		assert.Equal(t, strategy, got)
	}
	got, err := ParseStrategy("TREE")
	require.NoError(t, err)
	assert.Equal(t, Tree, got)

	_, err = ParseStrategy("warp-shuffle")
	assert.True(t, gpu.IsConfigError(err))
}

func BenchmarkSum(b *testing.B) {
	const n = 1 << 18
	for _, strategy := range Strategies() {
		b.Run(strategy.String(), func(b *testing.B) {
			engine, dev := newEngine(b, 256, 8)
			arr, err := dev.NewArray(gpu.Uint32, n)
			require.NoError(b, err)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := engine.Sum(context.Background(), strategy, n, arr); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(n)*float64(b.N)/b.Elapsed().Seconds()/1e6, "Melems/s")
		})
	}
}
