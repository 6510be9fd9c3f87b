package gpu

import (
	"fmt"
	"math"
)

// MaxLength bounds element counts and matrix extents. Kernels receive them
// as int32 arguments.
const MaxLength = math.MaxInt32

// ShapeFits reports whether a rows×cols matrix fits in length elements
// without forming the product.
func ShapeFits(rows, cols, length int) bool {
	switch {
	case rows < 0 || cols < 0 || length < 0:
		return false
	case rows == 0 || cols == 0:
		return true
	}
	return rows <= length/cols
}

// CheckShape validates a rows×cols matrix against arrays of length elements.
func CheckShape(op string, rows, cols, length int) error {
	if rows < 0 || cols < 0 || rows > MaxLength || cols > MaxLength {
		return NewConfigError(op, fmt.Sprintf("invalid shape %dx%d", rows, cols), nil)
	}
	if !ShapeFits(rows, cols, length) {
		return NewConfigError(op, fmt.Sprintf("%dx%d matrix does not fit %d elements", rows, cols, length), nil)
	}
	return nil
}

// CheckLength validates an element count against an array of length elements.
func CheckLength(op string, n, length int) error {
	if n < 0 || n > length {
		return NewConfigError(op, fmt.Sprintf("length %d outside array of length %d", n, length), nil)
	}
	if n > MaxLength {
		return NewConfigError(op, fmt.Sprintf("length %d exceeds %d", n, MaxLength), nil)
	}
	return nil
}

// Float64ToFloat32 converts a slice of float64 to float32
func Float64ToFloat32(input []float64) []float32 {
	output := make([]float32, len(input))
	for i, v := range input {
		output[i] = float32(v)
	}
	return output
}

// Float32ToFloat64 converts a slice of float32 to float64
func Float32ToFloat64(input []float32) []float64 {
	output := make([]float64, len(input))
	for i, v := range input {
		output[i] = float64(v)
	}
	return output
}

// FlattenMatrix converts a 2D float64 matrix to a flat float32 array in
// row-major order. Ragged rows are rejected.
func FlattenMatrix(matrix [][]float64) (data []float32, rows, cols int, err error) {
	if len(matrix) == 0 {
		return []float32{}, 0, 0, nil
	}
	rows, cols = len(matrix), len(matrix[0])
	data = make([]float32, 0, rows*cols)
	for i, row := range matrix {
		if len(row) != cols {
			return nil, 0, 0, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		data = append(data, Float64ToFloat32(row)...)
	}
	return data, rows, cols, nil
}

// UnflattenMatrix converts a flat row-major float32 array to a 2D float64 matrix
func UnflattenMatrix(array []float32, rows, cols int) [][]float64 {
	if !ShapeFits(rows, cols, len(array)) || len(array) != rows*cols {
		return nil
	}
	matrix := make([][]float64, rows)
	for i := range matrix {
		matrix[i] = Float32ToFloat64(array[i*cols : (i+1)*cols])
	}
	return matrix
}

// HostTranspose returns the transpose of a rows×cols row-major matrix.
func HostTranspose[T any](src []T, rows, cols int) []T {
	dst := make([]T, len(src))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst[c*rows+r] = src[r*cols+c]
		}
	}
	return dst
}
