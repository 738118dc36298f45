package layer

import "github.com/FlavioCFOliveira/GoCNN/internal/tensor"

// InputLayer passes the example through unchanged and fixes the pipeline's
// input shape.
type InputLayer struct {
	shape tensor.Shape
}

// NewInput creates the entry layer for tensors of the given shape.
func NewInput(shape tensor.Shape) *InputLayer {
	return &InputLayer{shape: shape}
}

func (l *InputLayer) Kind() Kind             { return KindInput }
func (l *InputLayer) InShape() tensor.Shape  { return l.shape }
func (l *InputLayer) OutShape() tensor.Shape { return l.shape }
func (l *InputLayer) Params() []Param        { return nil }

// Forward records in as both input and output.
func (l *InputLayer) Forward(st *State, in *tensor.Tensor, training bool) *tensor.Tensor {
	checkInput(KindInput, l.shape, in)
	st.In = in
	st.Out = in
	return in
}

// Backward has nothing upstream to propagate to.
func (l *InputLayer) Backward(st *State) {
	checkForward(KindInput, st)
}
