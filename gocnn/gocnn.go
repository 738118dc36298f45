// Package gocnn is the public entry point for building and training small
// convolutional classifiers.
package gocnn

import (
	"log/slog"
	"math/rand"

	"github.com/FlavioCFOliveira/GoCNN/internal/layer"
	"github.com/FlavioCFOliveira/GoCNN/internal/net"
	"github.com/FlavioCFOliveira/GoCNN/internal/opt"
	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
	"github.com/FlavioCFOliveira/GoCNN/internal/train"
)

// Re-export common types and functions for easier access
type (
	Tensor    = tensor.Tensor
	Shape     = tensor.Shape
	Def       = layer.Def
	Layer     = layer.Layer
	Param     = layer.Param
	Network   = net.Network
	Pass      = net.Pass
	Option    = net.Option
	Optimizer = opt.Optimizer
	Scheduler = opt.Scheduler
	Decay     = opt.Decay
	Trainer   = train.Trainer
	Result    = train.Result
)

// Errors
var (
	ErrShape    = tensor.ErrShape
	ErrPipeline = layer.ErrPipeline
	ErrConfig   = layer.ErrConfig
	ErrFormat   = net.ErrFormat
)

// Tensors
func NewTensor(sx, sy, depth int, fill float64) *Tensor {
	return tensor.New(sx, sy, depth, fill)
}

func NewRandomTensor(sx, sy, depth int, rng *rand.Rand) *Tensor {
	return tensor.NewRandom(sx, sy, depth, rng)
}

// Layer definitions
func Input(sx, sy, depth int) Def { return layer.Input(sx, sy, depth) }

func Conv(size, filters, stride, pad int) Def { return layer.Conv(size, filters, stride, pad) }

func Pool(size, stride, pad int) Def { return layer.Pool(size, stride, pad) }

func LRN(k float64, n int, alpha, beta float64) Def { return layer.LRN(k, n, alpha, beta) }

func DefaultLRN() Def { return layer.DefaultLRN() }

func FullyConnected(units int) Def { return layer.FullyConnected(units) }

func SoftMax(classes int) Def { return layer.SoftMax(classes) }

// Infer resolves the output shape of every definition without allocating layers.
func Infer(defs []Def) ([]Shape, error) {
	return layer.Infer(defs)
}

// Network creation
func NewNetwork(defs []Def, opts ...Option) (*Network, error) {
	return net.New(defs, opts...)
}

func WithSeed(seed int64) Option { return net.WithSeed(seed) }

func WithRand(rng *rand.Rand) Option { return net.WithRand(rng) }

func Load(path string) (*Network, error) {
	return net.Load(path)
}

// Optimizers
func SGD(lr, momentum float64, decay Decay) Optimizer {
	return opt.NewSGD(opt.SGDConfig{LearningRate: lr, Momentum: momentum, Decay: decay})
}

func AdaGrad(lr float64, decay Decay) Optimizer {
	return opt.NewAdaGrad(opt.AdaGradConfig{LearningRate: lr, Decay: decay})
}

func Adam(lr float64, decay Decay) Optimizer {
	return opt.NewAdam(opt.AdamConfig{LearningRate: lr, Decay: decay})
}

// Learning rate schedules
func StepLR(o Optimizer, stepSize int, gamma float64) Scheduler {
	return opt.NewStepLR(o, stepSize, gamma)
}

func ExponentialLR(o Optimizer, gamma float64) Scheduler {
	return opt.NewExponentialLR(o, gamma)
}

func ReduceLROnPlateau(o Optimizer, factor float64, patience int, threshold, minLR float64) Scheduler {
	return opt.NewReduceLROnPlateau(o, factor, patience, threshold, minLR)
}

// Training
func NewTrainer(n *Network, o Optimizer, batchSize int) *Trainer {
	return train.New(n, o, train.Config{BatchSize: batchSize})
}

// NewAdaGradTrainer updates with AdaGrad at the default learning rate.
func NewAdaGradTrainer(n *Network, batchSize int, l2Decay float64) *Trainer {
	return train.NewAdaGrad(n, batchSize, l2Decay)
}

// SetLogger replaces the logger used for construction warnings.
func SetLogger(l *slog.Logger) {
	layer.SetLogger(l)
}
