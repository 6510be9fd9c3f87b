package geometry

import "iter"

// Round sequences are the control structure of every multi-round algorithm.
// Each sequence is finite and can be ranged over any number of times with the
// same result for the same inputs.

// Doubling yields start, 2*start, 4*start, ... while the value is below bound.
func Doubling(start, bound int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if start <= 0 {
			return
		}
		for v := start; v < bound; v *= 2 {
			if !yield(v) {
				return
			}
		}
	}
}

// UpSweep yields the reduce-phase offsets of a Blelloch scan over n items:
// 1, 2, 4, ... while 2*offset <= n.
func UpSweep(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for d := 1; 2*d <= n; d *= 2 {
			if !yield(d) {
				return
			}
		}
	}
}

// DownSweep yields the UpSweep offsets in reverse order, ending at 1.
func DownSweep(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		top := FloorPowerOfTwo(n) / 2
		for d := top; d >= 1; d /= 2 {
			if !yield(d) {
				return
			}
		}
	}
}

// BitonicStep is one compare-and-swap round of a bitonic network. Half is the
// outer stride i (blocks of 2*i elements), Stride the inner stride j. The first
// step of every block (Stride == Half) compares mirrored pairs.
type BitonicStep struct {
	Half   int
	Stride int
}

// Flip reports whether the step is the mirrored comparator of its block.
func (s BitonicStep) Flip() bool {
	return s.Half == s.Stride
}

// BitonicSteps yields every (i, j) pair of a bitonic network over n items:
// i doubles from 1 while i < n, j halves from i down to 1. n is expected to be
// a power of two; callers round up.
func BitonicSteps(n int) iter.Seq[BitonicStep] {
	return func(yield func(BitonicStep) bool) {
		for i := 1; i < n; i *= 2 {
			for j := i; j >= 1; j /= 2 {
				if !yield(BitonicStep{Half: i, Stride: j}) {
					return
				}
			}
		}
	}
}

// DigitPasses yields the bit shift of each radix digit over a 32-bit key.
func DigitPasses(bits int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if bits <= 0 {
			return
		}
		for shift := 0; shift < 32; shift += bits {
			if !yield(shift) {
				return
			}
		}
	}
}

// TreeRounds yields the number of live items at the start of each round of a
// tree reduction in which every work-group of up to local threads folds two
// items per thread into one partial. The last value yielded fits in a single
// work-group.
func TreeRounds(n, local int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if n <= 0 || local <= 0 {
			return
		}
		for count := n; ; {
			if !yield(count) {
				return
			}
			groups := TreeGroups(count, local)
			if groups <= 1 {
				return
			}
			count = groups
		}
	}
}

// TreeGroups returns how many work-groups one tree-reduction round over count
// items launches.
func TreeGroups(count, local int) int {
	threads := CeilDiv(count, 2)
	return CeilDiv(threads, min(local, threads))
}

// Count returns how many values seq yields.
func Count[T any](seq iter.Seq[T]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}
