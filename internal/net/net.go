// Package net provides the layer pipeline that turns an input tensor into
// class probabilities and drives the backward pass.
package net

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/GoCNN/internal/layer"
	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
)

// DefaultSeed initializes parameters when no seed or generator is given.
const DefaultSeed = 42

// Network is an ordered pipeline of layers starting with an input layer and
// ending with a softmax layer.
// A Network is not safe for concurrent use through its default pass; use
// NewPass for independent examples.
type Network struct {
	defs   []layer.Def
	layers []layer.Layer
	head   *layer.SoftMaxLayer

	// default per-example context used by Forward/Backward/Prediction
	pass *Pass
}

// Option configures New.
type Option func(*options)

type options struct {
	rng *rand.Rand
}

// WithSeed initializes parameters from a generator seeded with seed.
func WithSeed(seed int64) Option {
	return func(o *options) { o.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand initializes parameters from rng.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// New resolves the shapes of defs and builds the network.
func New(defs []layer.Def, opts ...Option) (*Network, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(DefaultSeed))
	}

	layers, err := layer.Build(defs, o.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build network: %w", err)
	}

	n := &Network{
		defs:   append([]layer.Def(nil), defs...),
		layers: layers,
		head:   layers[len(layers)-1].(*layer.SoftMaxLayer),
	}
	n.pass = n.NewPass()
	return n, nil
}

// Forward runs in through every layer in order and returns the class probabilities.
func (n *Network) Forward(in *tensor.Tensor, training bool) *tensor.Tensor {
	return n.pass.Forward(in, training)
}

// Backward seeds the softmax gradient for label, runs every layer backward in
// reverse order and returns the cross-entropy loss. It must follow Forward.
func (n *Network) Backward(label int) float64 {
	return n.pass.Backward(label)
}

// Prediction returns the most probable class of the last Forward.
func (n *Network) Prediction() int {
	return n.pass.Prediction()
}

// Params returns every trainable tensor, layer by layer. The order never
// changes after construction.
func (n *Network) Params() []layer.Param {
	var params []layer.Param
	for _, l := range n.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// ClearGradients zeroes the gradients of every parameter.
func (n *Network) ClearGradients() {
	for _, p := range n.Params() {
		p.Tensor.ClearGrad()
	}
}

// Layers returns the network's layers.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// Defs returns a copy of the definitions the network was built from.
func (n *Network) Defs() []layer.Def {
	return append([]layer.Def(nil), n.defs...)
}

// InShape returns the shape expected by Forward.
func (n *Network) InShape() tensor.Shape {
	return n.layers[0].InShape()
}

// Classes returns the number of output classes.
func (n *Network) Classes() int {
	return n.head.Classes()
}
