package verify

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFreivaldsVerify(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	b := mat.NewDense(2, 3, []float64{7, 8, 9, 10, 11, 12})
	var c mat.Dense
	c.Mul(a, b)

	t.Run("correct product", func(t *testing.T) {
		assert.True(t, FreivaldsVerify(a, b, &c, 10, rng, 1e-9))
	})

	t.Run("wrong product", func(t *testing.T) {
		wrong := mat.DenseCopyOf(&c)
		wrong.Set(1, 1, wrong.At(1, 1)+1)
		assert.False(t, FreivaldsVerify(a, b, wrong, 20, rng, 1e-9))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		assert.False(t, FreivaldsVerify(a, a, &c, 1, rng, 1e-9))
	})
}

func TestRunningSumAndScan(t *testing.T) {
	in := []uint32{3, 1, 4, 1, 5}
	assert.Equal(t, []uint32{3, 4, 8, 9, 14}, RunningSum(in, false))
	assert.Equal(t, []uint32{0, 3, 4, 8, 9}, RunningSum(in, true))

	require.NoError(t, Scan(in, []uint32{0, 3, 4, 8, 9}, true))
	err := Scan(in, []uint32{3, 4, 8, 10, 14}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 3")
}

func TestSortedPermutation(t *testing.T) {
	tests := []struct {
		name    string
		in, got []uint32
		wantErr string
	}{
		{"sorted", []uint32{3, 1, 2}, []uint32{1, 2, 3}, ""},
		{"empty", nil, []uint32{}, ""},
		{"unsorted", []uint32{3, 1, 2}, []uint32{1, 3, 2}, "out of order"},
		{"lost element", []uint32{3, 1, 2}, []uint32{1, 1, 3}, "index 1"},
		{"short", []uint32{3, 1, 2}, []uint32{1, 2}, "length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SortedPermutation(tt.in, tt.got)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, SortedPermutation([]float32{0.5, -1}, []float32{-1, 0.5}))
}

func TestTranspose(t *testing.T) {
	in := []float32{1, 2, 3, 4, 5, 6}
	require.NoError(t, Transpose(in, []float32{1, 4, 2, 5, 3, 6}, 2, 3))
	assert.Error(t, Transpose(in, []float32{1, 2, 3, 4, 5, 6}, 2, 3))
	assert.Error(t, Transpose(in, in[:4], 2, 3))
}

func TestSums(t *testing.T) {
	assert.Equal(t, uint32(1), SumUint32([]uint32{0xFFFFFFFF, 2}))

	sum, tol := SumFloat32([]float32{0.5, 0.25, -1})
	assert.InDelta(t, -0.25, sum, 1e-12)
	assert.Greater(t, tol, 0.0)
}

func TestDigestAndSamples(t *testing.T) {
	a := Digest([]uint32{1, 2, 3})
	assert.Equal(t, a, Digest([]uint32{1, 2, 3}))
	assert.NotEqual(t, a, Digest([]uint32{1, 2, 4}))
	assert.Len(t, a, 2+64)

	data := []uint32{10, 11, 12, 13, 14, 15, 16, 17}
	samples := Samples(data, 3)
	assert.Equal(t, []Sample[uint32]{{0, 10}, {4, 14}, {7, 17}}, samples)
	assert.Len(t, Samples(data, 10), 5)
	assert.Empty(t, Samples([]uint32{}, 3))
}
