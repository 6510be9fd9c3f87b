// Package verify checks device results against host references.
package verify

import (
	"cmp"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Number is an element type the engines operate on.
type Number interface {
	~uint32 | ~float32
}

// FreivaldsVerify probabilistically checks that c = a·b. Each iteration
// multiplies by a random 0/1 vector; a wrong product survives one iteration
// with probability at most 1/2.
func FreivaldsVerify(a, b, c mat.Matrix, iterations int, rng *rand.Rand, tolerance float64) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	cr, cc := c.Dims()
	if ac != br || cr != ar || cc != bc {
		return false
	}
	if ar == 0 || bc == 0 {
		return true
	}

	r := mat.NewVecDense(bc, nil)
	var br1, abr, crv mat.VecDense
	for i := 0; i < iterations; i++ {
		for j := 0; j < bc; j++ {
			r.SetVec(j, float64(rng.Intn(2)))
		}
		br1.MulVec(b, r)
		abr.MulVec(a, &br1)
		crv.MulVec(c, r)
		if !mat.EqualApprox(&abr, &crv, tolerance) {
			return false
		}
	}
	return true
}

// RunningSum returns the inclusive or exclusive prefix sum of data with
// wrapping arithmetic.
func RunningSum(data []uint32, exclusive bool) []uint32 {
	out := make([]uint32, len(data))
	var sum uint32
	for i, v := range data {
		if exclusive {
			out[i] = sum
		}
		sum += v
		if !exclusive {
			out[i] = sum
		}
	}
	return out
}

// Scan reports the first index where got differs from the prefix sum of in.
func Scan(in, got []uint32, exclusive bool) error {
	return Equal(RunningSum(in, exclusive), got)
}

// SortedPermutation checks that got is in ascending order and holds the
// same multiset as in.
func SortedPermutation[T Number](in, got []T) error {
	if len(in) != len(got) {
		return fmt.Errorf("length %d, want %d", len(got), len(in))
	}
	for i := 1; i < len(got); i++ {
		if cmp.Less(got[i], got[i-1]) {
			return fmt.Errorf("out of order at index %d: %v after %v", i, got[i], got[i-1])
		}
	}
	want := slices.Clone(in)
	slices.Sort(want)
	return Equal(want, got)
}

// Transpose checks that got is the cols×rows transpose of the rows×cols in.
func Transpose[T Number](in, got []T, rows, cols int) error {
	if len(in) != rows*cols || len(got) != rows*cols {
		return fmt.Errorf("%dx%d matrix with %d and %d elements", rows, cols, len(in), len(got))
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if got[c*rows+r] != in[r*cols+c] {
				return fmt.Errorf("element (%d,%d) of the transpose is %v, want %v", c, r, got[c*rows+r], in[r*cols+c])
			}
		}
	}
	return nil
}

// SumUint32 returns the wrapping sum of data.
func SumUint32(data []uint32) uint32 {
	var sum uint32
	for _, v := range data {
		sum += v
	}
	return sum
}

// SumFloat32 returns the sum of data in float64, and the tolerance a float32
// reduction in any order stays within.
func SumFloat32(data []float32) (sum, tolerance float64) {
	var abs float64
	for _, v := range data {
		sum += float64(v)
		abs += math.Abs(float64(v))
	}
	return sum, abs * float64(len(data)+1) * 0x1p-24
}

// Equal reports the first index where got differs from want.
func Equal[T Number](want, got []T) error {
	if len(want) != len(got) {
		return fmt.Errorf("length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("index %d is %v, want %v", i, got[i], want[i])
		}
	}
	return nil
}

// Digest is a hex SHA-256 over the little-endian bytes of data.
func Digest[T Number](data []T) string {
	h := sha256.New()
	_ = binary.Write(h, binary.LittleEndian, data)
	return fmt.Sprintf("0x%x", h.Sum(nil))
}

// Sample is one element of a result, reported back to the requester.
type Sample[T Number] struct {
	Index int `json:"index"`
	Value T   `json:"value"`
}

// Samples picks up to count elements at the start, quarter points, middle
// and end of data.
func Samples[T Number](data []T, count int) []Sample[T] {
	n := len(data)
	if n == 0 {
		return []Sample[T]{}
	}
	positions := []int{0, n / 2, n - 1, n / 4, 3 * n / 4}
	out := make([]Sample[T], 0, min(count, len(positions)))
	for i := 0; i < count && i < len(positions); i++ {
		out = append(out, Sample[T]{Index: positions[i], Value: data[positions[i]]})
	}
	return out
}
