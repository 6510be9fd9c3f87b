package executors

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fxnlabs/gpuprim/internal/config"
	"github.com/fxnlabs/gpuprim/internal/gpu"
	"github.com/fxnlabs/gpuprim/internal/kernels"
	"github.com/fxnlabs/gpuprim/internal/primitives"
)

func newEnv(t *testing.T, maxElements int) Env {
	t.Helper()
	dev := gpu.NewHostDevice(zap.NewNop(), kernels.HostLibrary(), 4)
	require.NoError(t, dev.Initialize())
	t.Cleanup(func() { _ = dev.Cleanup() })
	return Env{
		Runner:      primitives.NewRunner(dev, zap.NewNop(), config.Default().Kernels),
		MaxElements: maxElements,
	}
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestScanExecutor(t *testing.T) {
	env := newEnv(t, 0)
	ctx := context.Background()

	testCases := []struct {
		name      string
		exclusive bool
		payload   ScanPayload
		expected  []uint32
	}{
		{"inclusive default", false, ScanPayload{Data: []uint32{1, 2, 3, 4}}, []uint32{1, 3, 6, 10}},
		{"inclusive hillis-steele", false, ScanPayload{Data: []uint32{5, 5, 5}, Algorithm: "hillis-steele"}, []uint32{5, 10, 15}},
		{"exclusive", true, ScanPayload{Data: []uint32{1, 2, 3, 4}}, []uint32{0, 1, 3, 6}},
		{"empty", false, ScanPayload{Data: []uint32{}}, []uint32{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := &ScanExecutor{Env: env, Exclusive: tc.exclusive}
			out, err := e.Execute(ctx, raw(t, tc.payload), zap.NewNop())
			require.NoError(t, err)
			res, ok := out.(ScanResult)
			require.True(t, ok)
			assert.Equal(t, tc.expected, res.Result)
			assert.Equal(t, "host", res.Backend)
			assert.NotEmpty(t, res.Digest)
		})
	}
}

func TestSortExecutor(t *testing.T) {
	env := newEnv(t, 0)
	ctx := context.Background()
	e := &SortExecutor{Env: env}

	t.Run("uint defaults to radix", func(t *testing.T) {
		out, err := e.Execute(ctx, raw(t, SortPayload{Data: []uint32{9, 3, 7, 1, 3}}), zap.NewNop())
		require.NoError(t, err)
		res := out.(SortResult)
		assert.Equal(t, []uint32{1, 3, 3, 7, 9}, res.Data)
		assert.Equal(t, "radix", res.Strategy)
	})

	t.Run("floats default to merge", func(t *testing.T) {
		out, err := e.Execute(ctx, raw(t, SortPayload{Floats: []float32{2.5, -1, 0, 1.25}}), zap.NewNop())
		require.NoError(t, err)
		res := out.(SortResult)
		assert.Equal(t, []float32{-1, 0, 1.25, 2.5}, res.Floats)
		assert.Equal(t, "merge", res.Strategy)
	})

	t.Run("bitonic", func(t *testing.T) {
		out, err := e.Execute(ctx, raw(t, SortPayload{Data: []uint32{4, 2, 8, 6, 1, 5, 3}, Strategy: "bitonic"}), zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, []uint32{1, 2, 3, 4, 5, 6, 8}, out.(SortResult).Data)
	})

	t.Run("both inputs", func(t *testing.T) {
		_, err := e.Execute(ctx, raw(t, SortPayload{Data: []uint32{1}, Floats: []float32{1}}), zap.NewNop())
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := e.Execute(ctx, raw(t, SortPayload{Data: []uint32{1}, Strategy: "bogo"}), zap.NewNop())
		require.Error(t, err)
		assert.True(t, gpu.IsConfigError(err))
	})
}

func TestTransposeExecutor(t *testing.T) {
	e := &TransposeExecutor{Env: newEnv(t, 0)}
	ctx := context.Background()

	out, err := e.Execute(ctx, raw(t, TransposePayload{Rows: 2, Cols: 3, Data: []float32{1, 2, 3, 4, 5, 6}}), zap.NewNop())
	require.NoError(t, err)
	res := out.(TransposeResult)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 2, res.Cols)
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, res.Data)

	testCases := []struct {
		name    string
		payload string
	}{
		{"short data", `{"rows":2,"cols":2,"data":[1,2,3]}`},
		{"negative rows", `{"rows":-2,"cols":-3,"data":[1,2,3,4,5,6]}`},
		{"product wraps to zero", `{"rows":4294967296,"cols":4294967296,"data":[]}`},
		{"extent beyond int32", `{"rows":4294967296,"cols":0,"data":[]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_, err := e.Execute(ctx, json.RawMessage(tc.payload), zap.NewNop())
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestSumExecutor(t *testing.T) {
	e := &SumExecutor{Env: newEnv(t, 0)}
	ctx := context.Background()
	data := make([]uint32, 1000)
	for i := range data {
		data[i] = uint32(i)
	}

	t.Run("every strategy", func(t *testing.T) {
		out, err := e.Execute(ctx, raw(t, SumPayload{Data: data}), zap.NewNop())
		require.NoError(t, err)
		res := out.(SumResult)
		assert.Equal(t, "499500", res.Sum)
		assert.Len(t, res.Strategies, 5)
		for name, sum := range res.Strategies {
			assert.Equal(t, "499500", sum, name)
		}
	})

	t.Run("single strategy", func(t *testing.T) {
		out, err := e.Execute(ctx, raw(t, SumPayload{Data: data, Strategy: "coalesced"}), zap.NewNop())
		require.NoError(t, err)
		res := out.(SumResult)
		assert.Equal(t, "499500", res.Sum)
		assert.Len(t, res.Strategies, 1)
	})

	t.Run("floats", func(t *testing.T) {
		out, err := e.Execute(ctx, raw(t, SumPayload{Floats: []float32{0.5, 0.25, 0.25}, Strategy: "tree"}), zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "1", out.(SumResult).Sum)
	})
}

func TestMatrixMultiplicationExecutor(t *testing.T) {
	e := &MatrixMultiplicationExecutor{Env: newEnv(t, 4096)}
	ctx := context.Background()

	t.Run("explicit matrices", func(t *testing.T) {
		payload := MatrixPayload{
			A: [][]float64{{1, 2}, {3, 4}},
			B: [][]float64{{5, 6}, {7, 8}},
		}
		out, err := e.Execute(ctx, raw(t, payload), zap.NewNop())
		require.NoError(t, err)
		res := out.(MatrixResult)
		assert.Equal(t, [][]float64{{19, 22}, {43, 50}}, res.C)
		assert.True(t, res.Verified)
		assert.Equal(t, 16.0, res.Flops)
		assert.Equal(t, 2, res.MatrixSize)
	})

	t.Run("random matrices", func(t *testing.T) {
		out, err := e.Execute(ctx, raw(t, MatrixPayload{Size: 48, Seed: 7}), zap.NewNop())
		require.NoError(t, err)
		res := out.(MatrixResult)
		assert.Len(t, res.C, 48)
		assert.True(t, res.Verified)
	})

	testCases := []struct {
		name    string
		payload MatrixPayload
	}{
		{"empty", MatrixPayload{}},
		{"incompatible", MatrixPayload{A: [][]float64{{1, 2}}, B: [][]float64{{1, 2}}}},
		{"ragged", MatrixPayload{A: [][]float64{{1, 2}, {3}}, B: [][]float64{{1}, {2}}}},
		{"too large", MatrixPayload{Size: 128}},
		{"size squared wraps", MatrixPayload{Size: 1 << 32}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Execute(ctx, raw(t, tc.payload), zap.NewNop())
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestDeviceInfoExecutor(t *testing.T) {
	e := &DeviceInfoExecutor{Env: newEnv(t, 1024)}
	out, err := e.Execute(context.Background(), nil, zap.NewNop())
	require.NoError(t, err)
	res := out.(DeviceInfoResult)
	assert.Equal(t, "host", res.Backend)
	assert.Equal(t, 1024, res.MaxElements)
}

func TestDecode(t *testing.T) {
	var p ScanPayload
	assert.ErrorIs(t, decode(nil, &p), ErrInvalidPayload)
	assert.ErrorIs(t, decode(json.RawMessage(`{"data":"nope"}`), &p), ErrInvalidPayload)

	env := Env{MaxElements: 2}
	assert.NoError(t, env.checkSize(2))
	assert.ErrorIs(t, env.checkSize(3), ErrInvalidPayload)

	assert.NoError(t, env.checkShape(1, 2))
	assert.NoError(t, env.checkShape(0, 5))
	assert.ErrorIs(t, env.checkShape(2, 2), ErrInvalidPayload)
	assert.ErrorIs(t, env.checkShape(-1, 1), ErrInvalidPayload)
	assert.ErrorIs(t, env.checkShape(1<<32, 1<<32), ErrInvalidPayload)
	assert.ErrorIs(t, Env{}.checkShape(1<<32, 0), ErrInvalidPayload)
}
