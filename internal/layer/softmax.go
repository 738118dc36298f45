package layer

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// SoftMaxLayer turns its flattened input into class probabilities and is the
// place where the cross-entropy loss enters the backward pass.
type SoftMaxLayer struct {
	in      tensor.Shape
	classes int
}

// NewSoftMax creates the classifier head; the class count is the input size.
func NewSoftMax(in tensor.Shape) *SoftMaxLayer {
	return &SoftMaxLayer{in: in, classes: in.Size()}
}

func (l *SoftMaxLayer) Kind() Kind            { return KindSoftMax }
func (l *SoftMaxLayer) InShape() tensor.Shape { return l.in }
func (l *SoftMaxLayer) OutShape() tensor.Shape {
	return tensor.Shape{SX: 1, SY: 1, Depth: l.classes}
}
func (l *SoftMaxLayer) Params() []Param { return nil }

// Classes returns the number of output classes.
func (l *SoftMaxLayer) Classes() int { return l.classes }

// Forward exponentiates the max-shifted logits and normalizes them.
func (l *SoftMaxLayer) Forward(st *State, in *tensor.Tensor, training bool) *tensor.Tensor {
	checkInput(KindSoftMax, l.in, in)
	out := tensor.New(1, 1, l.classes, 0)

	amax := floats.Max(in.Values)
	sum := 0.0
	for i, v := range in.Values {
		e := math.Exp(v - amax)
		out.Values[i] = e
		sum += e
	}
	for i := range out.Values {
		out.Values[i] /= sum
	}

	st.In = in
	st.Out = out
	return out
}

// Loss seeds the output gradient with p - onehot(label) and returns -ln p[label].
func (l *SoftMaxLayer) Loss(st *State, label int) float64 {
	checkForward(KindSoftMax, st)
	if label < 0 || label >= l.classes {
		panic(fmt.Errorf("%w: %d not in [0,%d)", ErrLabel, label, l.classes))
	}
	out := st.Out
	for i, p := range out.Values {
		indicator := 0.0
		if i == label {
			indicator = 1
		}
		out.Grads[i] = p - indicator
	}
	return -math.Log(out.Values[label])
}

// Backward hands the seeded gradient, already dLoss/dlogit, to the input.
func (l *SoftMaxLayer) Backward(st *State) {
	checkForward(KindSoftMax, st)
	st.In.ClearGrad()
	floats.Add(st.In.Grads, st.Out.Grads)
}

// Prediction returns the most probable class of the last forward on st.
func (l *SoftMaxLayer) Prediction(st *State) int {
	if st == nil || st.Out == nil {
		panic(fmt.Errorf("%s: %w", KindSoftMax, ErrNoForward))
	}
	return st.Out.ArgMax()
}
