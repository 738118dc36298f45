// Package tensor provides the dense 3-D volume that flows between layers.
package tensor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// ErrShape reports tensor dimensions that do not fit what an operation expects.
var ErrShape = errors.New("shape mismatch")

// Shape describes the spatial size and channel count of a tensor.
type Shape struct {
	SX    int
	SY    int
	Depth int
}

// Size returns the number of elements of a tensor with this shape.
func (s Shape) Size() int {
	return s.SX * s.SY * s.Depth
}

// Validate reports whether every dimension is positive.
func (s Shape) Validate() error {
	if s.SX <= 0 || s.SY <= 0 || s.Depth <= 0 {
		return fmt.Errorf("%w: non-positive dimensions %s", ErrShape, s)
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.SX, s.SY, s.Depth)
}

// Tensor holds values and their gradients addressed by (x, y, channel).
// Element (x, y, c) lives at ((SX*y)+x)*Depth + c in both slices.
type Tensor struct {
	SX    int
	SY    int
	Depth int

	Values []float64
	Grads  []float64
}

// New creates a tensor with every value set to fill and zero gradients.
func New(sx, sy, depth int, fill float64) *Tensor {
	t := alloc(sx, sy, depth)
	if fill != 0 {
		t.SetConst(fill)
	}
	return t
}

// NewRandom creates a tensor whose values are drawn uniformly from
// [0, sqrt(1/n)), n being the element count.
func NewRandom(sx, sy, depth int, rng *rand.Rand) *Tensor {
	t := alloc(sx, sy, depth)
	scale := math.Sqrt(1.0 / float64(len(t.Values)))
	for i := range t.Values {
		t.Values[i] = rng.Float64() * scale
	}
	return t
}

// FromShape creates a zero tensor of the given shape.
func FromShape(s Shape) *Tensor {
	return alloc(s.SX, s.SY, s.Depth)
}

func alloc(sx, sy, depth int) *Tensor {
	if sx <= 0 || sy <= 0 || depth <= 0 {
		panic(fmt.Sprintf("tensor: invalid dimensions %dx%dx%d", sx, sy, depth))
	}
	n := sx * sy * depth
	return &Tensor{
		SX:     sx,
		SY:     sy,
		Depth:  depth,
		Values: make([]float64, n),
		Grads:  make([]float64, n),
	}
}

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() Shape {
	return Shape{SX: t.SX, SY: t.SY, Depth: t.Depth}
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Values)
}

// Index returns the flat offset of (x, y, c). It panics when out of range.
func (t *Tensor) Index(x, y, c int) int {
	if x < 0 || x >= t.SX || y < 0 || y >= t.SY || c < 0 || c >= t.Depth {
		panic(fmt.Sprintf("tensor: index (%d,%d,%d) out of range for %dx%dx%d", x, y, c, t.SX, t.SY, t.Depth))
	}
	return ((t.SX*y)+x)*t.Depth + c
}

// Get returns the value at (x, y, c).
func (t *Tensor) Get(x, y, c int) float64 {
	return t.Values[t.Index(x, y, c)]
}

// Set stores v at (x, y, c).
func (t *Tensor) Set(x, y, c int, v float64) {
	t.Values[t.Index(x, y, c)] = v
}

// Add adds v to the value at (x, y, c).
func (t *Tensor) Add(x, y, c int, v float64) {
	t.Values[t.Index(x, y, c)] += v
}

// Grad returns the gradient at (x, y, c).
func (t *Tensor) Grad(x, y, c int) float64 {
	return t.Grads[t.Index(x, y, c)]
}

// SetGrad stores g as the gradient at (x, y, c).
func (t *Tensor) SetGrad(x, y, c int, g float64) {
	t.Grads[t.Index(x, y, c)] = g
}

// AddGrad accumulates g into the gradient at (x, y, c).
func (t *Tensor) AddGrad(x, y, c int, g float64) {
	t.Grads[t.Index(x, y, c)] += g
}

// CloneAndZero returns a tensor of the same shape with zero values and gradients.
func (t *Tensor) CloneAndZero() *Tensor {
	return alloc(t.SX, t.SY, t.Depth)
}

// Clone returns a deep copy of the values. Gradients of the copy are zero.
func (t *Tensor) Clone() *Tensor {
	c := alloc(t.SX, t.SY, t.Depth)
	copy(c.Values, t.Values)
	return c
}

// ClearGrad zeroes the gradients in place.
func (t *Tensor) ClearGrad() {
	for i := range t.Grads {
		t.Grads[i] = 0
	}
}

// SetConst sets every value to a.
func (t *Tensor) SetConst(a float64) {
	for i := range t.Values {
		t.Values[i] = a
	}
}

// CopyFrom overwrites the values with the values of src.
func (t *Tensor) CopyFrom(src *Tensor) {
	t.mustMatch(src)
	copy(t.Values, src.Values)
}

// CopyFromScaled overwrites the values with a times the values of src.
func (t *Tensor) CopyFromScaled(src *Tensor, a float64) {
	t.mustMatch(src)
	floats.ScaleTo(t.Values, a, src.Values)
}

// AddFrom adds the values of src element-wise.
func (t *Tensor) AddFrom(src *Tensor) {
	t.mustMatch(src)
	floats.Add(t.Values, src.Values)
}

// AddFromScaled adds a times the values of src element-wise.
func (t *Tensor) AddFromScaled(src *Tensor, a float64) {
	t.mustMatch(src)
	floats.AddScaled(t.Values, a, src.Values)
}

// ArgMax returns the flat index of the largest value, the first one on ties.
func (t *Tensor) ArgMax() int {
	return floats.MaxIdx(t.Values)
}

// SameShape reports whether o has the same dimensions as t.
func (t *Tensor) SameShape(o *Tensor) bool {
	return t.SX == o.SX && t.SY == o.SY && t.Depth == o.Depth
}

func (t *Tensor) mustMatch(o *Tensor) {
	if !t.SameShape(o) {
		panic(fmt.Errorf("%w: %s vs %s", ErrShape, t.Shape(), o.Shape()))
	}
}
