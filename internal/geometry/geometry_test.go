package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	testCases := []struct {
		name           string
		n, local       int
		expectedLocal  int
		expectedGlobal int
	}{
		{name: "exact multiple", n: 256, local: 128, expectedLocal: 128, expectedGlobal: 256},
		{name: "rounds up", n: 300, local: 128, expectedLocal: 128, expectedGlobal: 384},
		{name: "smaller than work-group", n: 5, local: 128, expectedLocal: 5, expectedGlobal: 5},
		{name: "single item", n: 1, local: 16, expectedLocal: 1, expectedGlobal: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Compute(tc.n, tc.local)
			require.NoError(t, err)
			assert.Equal(t, Dim2{X: tc.expectedLocal, Y: 1}, g.Local)
			assert.Equal(t, Dim2{X: tc.expectedGlobal, Y: 1}, g.Global)
			assert.Equal(t, 1, g.Dims())
		})
	}

	t.Run("zero local size", func(t *testing.T) {
		_, err := Compute(10, 0)
		assert.ErrorIs(t, err, ErrInvalidLocalSize)
	})

	t.Run("empty range", func(t *testing.T) {
		_, err := Compute(0, 128)
		assert.ErrorIs(t, err, ErrEmptyRange)
	})
}

func TestComputeProperties(t *testing.T) {
	for n := 1; n <= 600; n++ {
		for _, local := range []int{1, 2, 3, 7, 16, 64, 128, 256} {
			g, err := Compute(n, local)
			require.NoError(t, err)
			assert.Zero(t, g.Global.X%g.Local.X, "n=%d local=%d", n, local)
			assert.GreaterOrEqual(t, g.Global.X, n)
			assert.Less(t, g.Global.X, n+g.Local.X)
		}
	}
}

func TestCompute2D(t *testing.T) {
	g, err := Compute2D(1000, 7, 16, 16)
	require.NoError(t, err)
	assert.Equal(t, Dim2{X: 16, Y: 7}, g.Local)
	assert.Equal(t, Dim2{X: 1008, Y: 7}, g.Global)
	assert.Equal(t, Dim2{X: 63, Y: 1}, g.Groups())
	assert.Equal(t, 2, g.Dims())

	_, err = Compute2D(10, 10, 16, 0)
	assert.ErrorIs(t, err, ErrInvalidLocalSize)
}

func TestAt(t *testing.T) {
	g, err := Compute(64, 32)
	require.NoError(t, err)
	r := g.At(3, 8)
	assert.Equal(t, 3, r.Round)
	assert.Equal(t, 8, r.Stride)
	assert.Zero(t, g.Round, "At must not mutate the receiver")
	assert.Contains(t, r.String(), "stride=8")
}

func TestPowersOfTwo(t *testing.T) {
	assert.True(t, IsPowerOfTwo(1))
	assert.True(t, IsPowerOfTwo(1024))
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(96))

	assert.Equal(t, 0, FloorPowerOfTwo(0))
	assert.Equal(t, 64, FloorPowerOfTwo(100))
	assert.Equal(t, 128, FloorPowerOfTwo(128))

	assert.Equal(t, 1, NextPowerOfTwo(0))
	assert.Equal(t, 128, NextPowerOfTwo(100))
	assert.Equal(t, 128, NextPowerOfTwo(128))
}
