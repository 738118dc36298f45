package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// FullyConnectedLayer connects every input element to every output unit.
// Weights are one 1×1×(units*inSize) tensor stored row-major by unit, so the
// weight of unit j for input i is at j*inSize + i. The matrix views share the
// tensor storage.
type FullyConnectedLayer struct {
	in    tensor.Shape
	units int

	weights *tensor.Tensor
	biases  *tensor.Tensor

	w  *mat.Dense // units × inSize over weights.Values
	dw *mat.Dense // units × inSize over weights.Grads

	name string
}

// NewFullyConnected creates a dense layer over the flattened input.
func NewFullyConnected(name string, in tensor.Shape, units int, rng *rand.Rand) *FullyConnectedLayer {
	inSize := in.Size()
	weights := tensor.NewRandom(1, 1, units*inSize, rng)
	return &FullyConnectedLayer{
		in:      in,
		units:   units,
		weights: weights,
		biases:  tensor.NewRandom(1, 1, units, rng),
		w:       mat.NewDense(units, inSize, weights.Values),
		dw:      mat.NewDense(units, inSize, weights.Grads),
		name:    name,
	}
}

func (l *FullyConnectedLayer) Kind() Kind            { return KindFullyConnected }
func (l *FullyConnectedLayer) InShape() tensor.Shape { return l.in }
func (l *FullyConnectedLayer) OutShape() tensor.Shape {
	return tensor.Shape{SX: 1, SY: 1, Depth: l.units}
}

// Weights returns the flattened units×inSize weight tensor.
func (l *FullyConnectedLayer) Weights() *tensor.Tensor { return l.weights }

// Biases returns the 1×1×units bias tensor.
func (l *FullyConnectedLayer) Biases() *tensor.Tensor { return l.biases }

// Forward computes W·x + b over the flattened input.
func (l *FullyConnectedLayer) Forward(st *State, in *tensor.Tensor, training bool) *tensor.Tensor {
	checkInput(KindFullyConnected, l.in, in)
	out := tensor.New(1, 1, l.units, 0)

	x := mat.NewVecDense(in.Len(), in.Values)
	y := mat.NewVecDense(l.units, out.Values)
	y.MulVec(l.w, x)
	y.AddVec(y, mat.NewVecDense(l.units, l.biases.Values))

	st.In = in
	st.Out = out
	return out
}

// Backward accumulates dW += g·xᵀ and db += g, and sets dx = Wᵀ·g.
func (l *FullyConnectedLayer) Backward(st *State) {
	checkForward(KindFullyConnected, st)
	in, out := st.In, st.Out
	in.ClearGrad()

	g := mat.NewVecDense(l.units, out.Grads)
	x := mat.NewVecDense(in.Len(), in.Values)

	l.dw.RankOne(l.dw, 1, g, x)

	db := mat.NewVecDense(l.units, l.biases.Grads)
	db.AddVec(db, g)

	// the input gradient was just cleared, so writing it is accumulating into zero
	dx := mat.NewVecDense(in.Len(), in.Grads)
	dx.MulVec(l.w.T(), g)
}

// Params returns the weights followed by the biases.
func (l *FullyConnectedLayer) Params() []Param {
	return []Param{
		{Name: l.name + ".weights", Tensor: l.weights},
		{Name: l.name + ".bias", Tensor: l.biases},
	}
}
