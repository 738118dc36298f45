// Package train runs per-example training steps over a network.
package train

import (
	"time"

	"github.com/FlavioCFOliveira/GoCNN/internal/net"
	"github.com/FlavioCFOliveira/GoCNN/internal/opt"
	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
)

// Config holds trainer settings.
type Config struct {
	// BatchSize is the number of examples whose gradients are accumulated
	// before one optimizer step. Default 1 updates after every example.
	BatchSize int
}

// Result reports one training step.
type Result struct {
	// Loss is the cross-entropy loss of the example before the update.
	Loss float64
	// DecayLoss is the weight decay penalty, set on steps that updated.
	DecayLoss float64
	// Updated reports whether the optimizer stepped after this example.
	Updated bool
	// Elapsed is the wall time of the step.
	Elapsed time.Duration
}

// Trainer owns a network and an optimizer and runs forward, backward and
// update for one labelled example at a time.
type Trainer struct {
	net       *net.Network
	optimizer opt.Optimizer
	batchSize int
	seen      int
}

// New creates a trainer.
func New(n *net.Network, optimizer opt.Optimizer, cfg Config) *Trainer {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Trainer{net: n, optimizer: optimizer, batchSize: cfg.BatchSize}
}

// NewAdaGrad creates a trainer stepping with AdaGrad after every batchSize
// examples, with the given L2 decay. The per-parameter caches are allocated
// on the first update rather than here.
func NewAdaGrad(n *net.Network, batchSize int, l2Decay float64) *Trainer {
	return New(n, opt.NewAdaGrad(opt.AdaGradConfig{Decay: opt.Decay{L2: l2Decay}}), Config{BatchSize: batchSize})
}

// Train runs one example with its label through forward and backward and
// updates the parameters when a batch is complete.
func (t *Trainer) Train(in *tensor.Tensor, label int) Result {
	start := time.Now()

	t.net.Forward(in, true)
	res := Result{Loss: t.net.Backward(label)}

	t.seen++
	if t.seen%t.batchSize == 0 {
		res.DecayLoss = t.optimizer.Step(t.net.Params(), t.batchSize)
		res.Updated = true
	}

	res.Elapsed = time.Since(start)
	return res
}

// Network returns the trained network.
func (t *Trainer) Network() *net.Network {
	return t.net
}

// Optimizer returns the update rule in use.
func (t *Trainer) Optimizer() opt.Optimizer {
	return t.optimizer
}
