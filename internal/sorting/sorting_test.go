package sorting

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

func newEngine(t testing.TB, opts Options) (*Engine, gpu.Device) {
	t.Helper()
	dev := gpu.NewHostDevice(zap.NewNop(), kernels.HostLibrary(), 4)
	require.NoError(t, dev.Initialize())
	t.Cleanup(func() { _ = dev.Cleanup() })
	return NewEngine(gpu.NewKernelCache(dev), zap.NewNop(), opts), dev
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.WorkgroupSize = 16
	opts.TransposeTile = 4
	return opts
}

func randomUint(rng *rand.Rand, n, bound int) []uint32 {
	data := make([]uint32, n)
	for i := range data {
		data[i] = uint32(rng.Intn(bound))
	}
	return data
}

func sortOnDevice(t *testing.T, engine *Engine, dev gpu.Device, data []uint32, strategy Strategy) []uint32 {
	t.Helper()
	arr, err := dev.NewArray(gpu.Uint32, len(data))
	require.NoError(t, err)
	require.NoError(t, arr.Write(data))
	require.NoError(t, engine.Sort(context.Background(), len(data), arr, strategy))
	got := make([]uint32, len(data))
	require.NoError(t, arr.Read(got, 0))
	return got
}

func TestSort_AllStrategies(t *testing.T) {
	sizes := []int{0, 1, 2, 3, 7, 16, 33, 100, 256, 1000, 1025}
	rng := rand.New(rand.NewSource(1))

	for _, strategy := range []Strategy{Bitonic, Merge, Radix} {
		for _, n := range sizes {
			t.Run(fmt.Sprintf("%s/n=%d", strategy, n), func(t *testing.T) {
				engine, dev := newEngine(t, smallOptions())
				data := randomUint(rng, n, 1<<30)
				want := slices.Clone(data)
				slices.Sort(want)
				if n == 0 {
					arr, err := dev.NewArray(gpu.Uint32, 4)
					require.NoError(t, err)
					require.NoError(t, engine.Sort(context.Background(), 0, arr, strategy))
					return
				}
				assert.Equal(t, want, sortOnDevice(t, engine, dev, data, strategy))
			})
		}
	}
}

func TestSort_FusedBitonic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{2, 4, 32, 64, 512, 4096} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			opts := smallOptions()
			opts.WithLocalSort = true
			engine, dev := newEngine(t, opts)
			data := randomUint(rng, n, 1000)
			want := slices.Clone(data)
			slices.Sort(want)
			assert.Equal(t, want, sortOnDevice(t, engine, dev, data, Bitonic))
		})
	}

	t.Run("rejects non power of two", func(t *testing.T) {
		opts := smallOptions()
		opts.WithLocalSort = true
		engine, dev := newEngine(t, opts)
		arr, err := dev.NewArray(gpu.Uint32, 100)
		require.NoError(t, err)
		err = engine.Sort(context.Background(), 100, arr, Bitonic)
		assert.ErrorIs(t, err, ErrNotPowerOfTwo)
		assert.True(t, gpu.IsConfigError(err))
	})
}

// 32 random floats sort to exactly the host order.
func TestSort_BitonicFloat32(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	data := make([]float32, 32)
	for i := range data {
		data[i] = rng.Float32()*200 - 100
	}
	want := slices.Clone(data)
	slices.Sort(want)

	for _, fused := range []bool{false, true} {
		for _, strategy := range []Strategy{Bitonic, Merge} {
			t.Run(fmt.Sprintf("%s/fused=%t", strategy, fused), func(t *testing.T) {
				opts := smallOptions()
				opts.WithLocalSort = fused
				engine, dev := newEngine(t, opts)
				arr, err := dev.NewArray(gpu.Float32, len(data))
				require.NoError(t, err)
				require.NoError(t, arr.Write(data))
				require.NoError(t, engine.Sort(context.Background(), len(data), arr, strategy))

				got := make([]float32, len(data))
				require.NoError(t, arr.Read(got, 0))
				assert.Equal(t, want, got)
			})
		}
	}
}

// 4096 values in [0, 1023], 4-bit digits, 8 passes.
func TestSort_Radix4096Scenario(t *testing.T) {
	var states []RadixState
	passes := 0
	opts := DefaultOptions()
	opts.OnRadixState = func(state RadixState, pass int) {
		states = append(states, state)
		if state == RadixDone {
			passes = pass
		}
	}
	engine, dev := newEngine(t, opts)
	data := randomUint(rand.New(rand.NewSource(7)), 4096, 1024)
	want := slices.Clone(data)
	slices.Sort(want)

	assert.Equal(t, want, sortOnDevice(t, engine, dev, data, Radix))
	assert.Equal(t, 8, passes)
	require.Len(t, states, 2+8*4)
	assert.Equal(t, RadixIdle, states[0])
	assert.Equal(t, []RadixState{RadixCounting, RadixTransposing, RadixScanning, RadixScattering}, states[1:5])
	assert.Equal(t, RadixDone, states[len(states)-1])
}

func TestSort_RadixBitWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, bits := range []int{1, 3, 5, 8} {
		t.Run(fmt.Sprintf("bits=%d", bits), func(t *testing.T) {
			opts := smallOptions()
			opts.RadixBits = bits
			engine, dev := newEngine(t, opts)
			data := make([]uint32, 777)
			for i := range data {
				data[i] = rng.Uint32()
			}
			want := slices.Clone(data)
			slices.Sort(want)
			assert.Equal(t, want, sortOnDevice(t, engine, dev, data, Radix))
		})
	}
}

// Values carry the key in the high bits and the input index in the low bits,
// so the sorted output exposes any reordering of equal keys.
func TestSort_Stability(t *testing.T) {
	const n = 600
	rng := rand.New(rand.NewSource(9))
	data := make([]uint32, n)
	for i := range data {
		data[i] = uint32(rng.Intn(8))<<16 | uint32(i)
	}
	byKey := func(x uint32) uint32 { return x >> 16 }
	want := slices.Clone(data)
	slices.SortStableFunc(want, func(a, b uint32) int { return int(byKey(a)) - int(byKey(b)) })

	t.Run("merge by key", func(t *testing.T) {
		engine, dev := newEngine(t, smallOptions())
		arr, err := dev.NewArray(gpu.Uint32, n)
		require.NoError(t, err)
		require.NoError(t, arr.Write(data))
		require.NoError(t, engine.SortByKey(context.Background(), n, arr, 16, 0xFFFF))
		got := make([]uint32, n)
		require.NoError(t, arr.Read(got, 0))
		assert.Equal(t, want, got)
	})

	t.Run("radix", func(t *testing.T) {
		engine, dev := newEngine(t, smallOptions())
		got := sortOnDevice(t, engine, dev, data, Radix)
		assert.Equal(t, want, got, "index bits are unique, so stable order equals full order")
	})
}

func TestSort_Errors(t *testing.T) {
	engine, dev := newEngine(t, smallOptions())
	f, err := dev.NewArray(gpu.Float32, 8)
	require.NoError(t, err)
	u, err := dev.NewArray(gpu.Uint32, 8)
	require.NoError(t, err)
	ctx := context.Background()

	err = engine.Sort(ctx, 8, f, Radix)
	assert.ErrorIs(t, err, ErrUnsupportedElem)
	err = engine.SortByKey(ctx, 8, f, 0, 1)
	assert.ErrorIs(t, err, ErrUnsupportedElem)

	assert.True(t, gpu.IsConfigError(engine.Sort(ctx, 9, u, Merge)))
	assert.True(t, gpu.IsConfigError(engine.Sort(ctx, 8, nil, Merge)))
	assert.True(t, gpu.IsConfigError(engine.Sort(ctx, 8, u, Strategy(42))))
	assert.True(t, gpu.IsConfigError(engine.SortByKey(ctx, 8, u, 32, 1)))

	opts := smallOptions()
	opts.RadixBits = 12
	wide, _ := newEngine(t, opts)
	assert.True(t, gpu.IsConfigError(wide.Sort(ctx, 8, u, Radix)))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, engine.Sort(cancelled, 8, u, Bitonic), context.Canceled)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"bitonic", Bitonic},
		{"Merge", Merge},
		{"radix-lsd", Radix},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := ParseStrategy("quick")
	assert.True(t, gpu.IsConfigError(err))
}

func BenchmarkSort(b *testing.B) {
	for _, strategy := range []Strategy{Bitonic, Merge, Radix} {
		b.Run(strategy.String(), func(b *testing.B) {
			engine, dev := newEngine(b, DefaultOptions())
			data := randomUint(rand.New(rand.NewSource(1)), 1<<14, 1<<30)
			arr, err := dev.NewArray(gpu.Uint32, len(data))
			require.NoError(b, err)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				require.NoError(b, arr.Write(data))
				b.StartTimer()
				if err := engine.Sort(context.Background(), len(data), arr, strategy); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(len(data))*float64(b.N)/b.Elapsed().Seconds()/1e6, "Melems/s")
		})
	}
}
