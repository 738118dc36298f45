// Package layer provides the differentiable layers of a convolutional pipeline.
package layer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
)

var (
	// ErrShape reports a tensor whose dimensions do not fit a layer.
	ErrShape = tensor.ErrShape
	// ErrPipeline reports an ordering problem in a list of layer definitions.
	ErrPipeline = errors.New("invalid pipeline")
	// ErrConfig reports an invalid layer hyper-parameter.
	ErrConfig = errors.New("invalid layer configuration")
	// ErrNoForward reports a backward call without a matching forward.
	ErrNoForward = errors.New("backward called before forward")
	// ErrLabel reports a class label outside the softmax range.
	ErrLabel = errors.New("label out of range")
)

var logger = slog.Default()

// SetLogger replaces the logger used for configuration warnings.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	logger = l
}

// Layer is one stage of a pipeline. Layers keep configuration and trainable
// parameters only; everything produced while processing an example lives in
// the State passed to Forward and Backward.
type Layer interface {
	Kind() Kind
	InShape() tensor.Shape
	OutShape() tensor.Shape

	// Forward computes the output for in and records what Backward needs in st.
	Forward(st *State, in *tensor.Tensor, training bool) *tensor.Tensor

	// Backward reads the gradient on st.Out, clears and fills the gradient of
	// st.In and accumulates into the parameter gradients.
	Backward(st *State)

	// Params returns the trainable tensors, gradients included, in a fixed order.
	Params() []Param
}

// State is the per-example context of one layer.
type State struct {
	In  *tensor.Tensor
	Out *tensor.Tensor

	// S caches the normalization denominators of an LRN layer.
	S *tensor.Tensor
	// Argmax holds, per pooled output element, the flat input index that won.
	Argmax []int
}

// Reset drops everything recorded by the last forward pass.
func (st *State) Reset() {
	st.In = nil
	st.Out = nil
	st.S = nil
	st.Argmax = st.Argmax[:0]
}

// Param is a trainable tensor. Its gradient lives in the same tensor.
type Param struct {
	Name   string
	Tensor *tensor.Tensor
}

func checkInput(k Kind, want tensor.Shape, in *tensor.Tensor) {
	if in == nil {
		panic(fmt.Errorf("%s: nil input", k))
	}
	if in.Shape() != want {
		panic(fmt.Errorf("%s: %w: got %s, want %s", k, ErrShape, in.Shape(), want))
	}
}

func checkForward(k Kind, st *State) {
	if st == nil || st.In == nil || st.Out == nil {
		panic(fmt.Errorf("%s: %w", k, ErrNoForward))
	}
}
