package net

import (
	"github.com/FlavioCFOliveira/GoCNN/internal/layer"
	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
)

// Pass holds the per-example state of every layer for one forward+backward
// cycle. Passes from the same Network may evaluate different examples
// concurrently as long as none of them runs Backward, which writes the shared
// parameter gradients.
type Pass struct {
	net    *Network
	states []layer.State
}

// NewPass creates an empty per-example context.
func (n *Network) NewPass() *Pass {
	return &Pass{net: n, states: make([]layer.State, len(n.layers))}
}

// Forward runs in through the pipeline and returns the softmax output.
func (p *Pass) Forward(in *tensor.Tensor, training bool) *tensor.Tensor {
	curr := in
	for i, l := range p.net.layers {
		curr = l.Forward(&p.states[i], curr, training)
	}
	return curr
}

// Backward seeds the loss gradient for label and propagates it in reverse.
func (p *Pass) Backward(label int) float64 {
	last := len(p.net.layers) - 1
	loss := p.net.head.Loss(&p.states[last], label)
	for i := last; i >= 0; i-- {
		p.net.layers[i].Backward(&p.states[i])
	}
	return loss
}

// Prediction returns the argmax of the last forward output.
func (p *Pass) Prediction() int {
	return p.net.head.Prediction(&p.states[len(p.states)-1])
}

// Output returns the probabilities of the last forward, or nil.
func (p *Pass) Output() *tensor.Tensor {
	return p.states[len(p.states)-1].Out
}

// Reset forgets the last example.
func (p *Pass) Reset() {
	for i := range p.states {
		p.states[i].Reset()
	}
}
