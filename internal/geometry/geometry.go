// Package geometry computes work-group geometry for kernel dispatches and the
// stride sequences that drive multi-round algorithms. Nothing in here touches
// a device.
package geometry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLocalSize is returned when the requested work-group size is not positive.
	ErrInvalidLocalSize = errors.New("geometry: work-group size must be positive")

	// ErrEmptyRange is returned for a zero-length range. Empty input is never dispatched.
	ErrEmptyRange = errors.New("geometry: empty range")
)

// Dim2 is a two-axis extent. One-dimensional geometry keeps Y at 1.
type Dim2 struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size returns X*Y.
func (d Dim2) Size() int {
	return d.X * d.Y
}

// Geometry describes a single dispatch: the work-group (local) size, the total
// (global) size, and the round it belongs to within a multi-round algorithm.
//
// Per axis, Global is a multiple of Local, Global >= n and Global < n+Local.
type Geometry struct {
	Local  Dim2 `json:"local"`
	Global Dim2 `json:"global"`
	Round  int  `json:"round"`
	Stride int  `json:"stride"`
}

// Compute returns the 1-D geometry covering n items with work-groups of at most
// desiredLocal items.
func Compute(n, desiredLocal int) (Geometry, error) {
	local, global, err := axis(n, desiredLocal)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		Local:  Dim2{X: local, Y: 1},
		Global: Dim2{X: global, Y: 1},
	}, nil
}

// Compute2D applies the 1-D rule independently to each axis.
func Compute2D(x, y, desiredX, desiredY int) (Geometry, error) {
	localX, globalX, err := axis(x, desiredX)
	if err != nil {
		return Geometry{}, fmt.Errorf("x axis: %w", err)
	}
	localY, globalY, err := axis(y, desiredY)
	if err != nil {
		return Geometry{}, fmt.Errorf("y axis: %w", err)
	}
	return Geometry{
		Local:  Dim2{X: localX, Y: localY},
		Global: Dim2{X: globalX, Y: globalY},
	}, nil
}

func axis(n, desiredLocal int) (local, global int, err error) {
	if desiredLocal <= 0 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidLocalSize, desiredLocal)
	}
	if n <= 0 {
		return 0, 0, ErrEmptyRange
	}
	local = min(desiredLocal, n)
	return local, CeilDiv(n, local) * local, nil
}

// At returns a copy of g tagged with a round index and stride.
func (g Geometry) At(round, stride int) Geometry {
	g.Round = round
	g.Stride = stride
	return g
}

// Groups returns the number of work-groups along each axis.
func (g Geometry) Groups() Dim2 {
	if g.Local.X == 0 || g.Local.Y == 0 {
		return Dim2{}
	}
	return Dim2{X: g.Global.X / g.Local.X, Y: g.Global.Y / g.Local.Y}
}

// Dims reports whether the geometry is one- or two-dimensional.
func (g Geometry) Dims() int {
	if g.Global.Y > 1 || g.Local.Y > 1 {
		return 2
	}
	return 1
}

func (g Geometry) String() string {
	if g.Dims() == 1 {
		return fmt.Sprintf("round=%d stride=%d local=%d global=%d", g.Round, g.Stride, g.Local.X, g.Global.X)
	}
	return fmt.Sprintf("round=%d stride=%d local=%dx%d global=%dx%d",
		g.Round, g.Stride, g.Local.X, g.Local.Y, g.Global.X, g.Global.Y)
}

// CeilDiv returns ceil(a/b) for positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// FloorPowerOfTwo returns the largest power of two <= n, or 0 for n < 1.
func FloorPowerOfTwo(n int) int {
	if n < 1 {
		return 0
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// NextPowerOfTwo returns the smallest power of two >= n, or 1 for n < 1.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
