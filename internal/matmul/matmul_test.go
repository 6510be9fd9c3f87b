package matmul

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
)

func newEngine(t testing.TB, tile int) (*Engine, gpu.Device) {
	t.Helper()
	dev := gpu.NewHostDevice(zap.NewNop(), kernels.HostLibrary(), 4)
	require.NoError(t, dev.Initialize())
	t.Cleanup(func() { _ = dev.Cleanup() })
	return NewEngine(gpu.NewKernelCache(dev), zap.NewNop(), tile), dev
}

func upload(t testing.TB, dev gpu.Device, data []float32) gpu.Array {
	t.Helper()
	arr, err := dev.NewArray(gpu.Float32, max(len(data), 1))
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, arr.Write(data))
	}
	return arr
}

func randomMatrix(rng *rand.Rand, rows, cols int) []float32 {
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return data
}

func toDense(data []float32, rows, cols int) *mat.Dense {
	return mat.NewDense(rows, cols, gpu.Float32ToFloat64(data))
}

func TestMultiply_MatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	shapes := []struct{ m, k, n int }{
		{1, 1, 1}, {2, 3, 4}, {16, 16, 16}, {17, 5, 33}, {64, 100, 7}, {128, 64, 128},
	}
	for _, tile := range []int{4, 16} {
		for _, s := range shapes {
			t.Run(fmt.Sprintf("tile=%d/%dx%dx%d", tile, s.m, s.k, s.n), func(t *testing.T) {
				engine, dev := newEngine(t, tile)
				a := randomMatrix(rng, s.m, s.k)
				b := randomMatrix(rng, s.k, s.n)
				c := upload(t, dev, make([]float32, s.m*s.n))
				require.NoError(t, engine.Multiply(context.Background(), s.m, s.k, s.n,
					upload(t, dev, a), upload(t, dev, b), c))

				got := make([]float32, s.m*s.n)
				require.NoError(t, c.Read(got, 0))

				var want mat.Dense
				want.Mul(toDense(a, s.m, s.k), toDense(b, s.k, s.n))
				assert.True(t, mat.EqualApprox(&want, toDense(got, s.m, s.n), 1e-4))
			})
		}
	}
}

func TestMultiply_Errors(t *testing.T) {
	engine, dev := newEngine(t, 16)
	f := upload(t, dev, make([]float32, 6))
	u, err := dev.NewArray(gpu.Uint32, 6)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name    string
		m, k, n int
		a, b, c gpu.Array
	}{
		{"uint32 operand", 2, 3, 2, u, f, f},
		{"a too small", 3, 3, 2, f, f, f},
		{"negative", -1, 3, 2, f, f, f},
		{"nil", 2, 3, 2, f, nil, f},
		{"products wrap", 1 << 32, 1 << 32, 1 << 32, f, f, f},
		{"inner extent beyond int32", 0, 1 << 32, 0, f, f, f},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, gpu.IsConfigError(engine.Multiply(ctx, tt.m, tt.k, tt.n, tt.a, tt.b, tt.c)))
		})
	}

	assert.NoError(t, engine.Multiply(ctx, 0, 3, 2, f, f, f))
	bad, _ := newEngine(t, 0)
	assert.True(t, gpu.IsConfigError(bad.Multiply(ctx, 2, 3, 2, f, f, f)))
}

func BenchmarkMultiply(b *testing.B) {
	const size = 128
	engine, dev := newEngine(b, 16)
	rng := rand.New(rand.NewSource(1))
	a := upload(b, dev, randomMatrix(rng, size, size))
	m := upload(b, dev, randomMatrix(rng, size, size))
	c := upload(b, dev, make([]float32, size*size))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := engine.Multiply(context.Background(), size, size, size, a, m, c); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(2*size*size*size*float64(b.N)/b.Elapsed().Seconds()/1e9, "GFLOPS")
}
