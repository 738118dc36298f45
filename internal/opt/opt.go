// Package opt provides the parameter update rules used by the trainer.
package opt

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/GoCNN/internal/layer"
	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Optimizer updates parameters from the gradients stored alongside them.
type Optimizer interface {
	// Step applies one update to every parameter using its gradient averaged
	// over batchSize examples, clears the gradients and returns the decay
	// loss of the parameters before the update.
	Step(params []layer.Param, batchSize int) float64

	// LearningRate returns the current step size.
	LearningRate() float64
	// SetLearningRate changes the step size for the following steps.
	SetLearningRate(lr float64)
}

// Decay holds the weight decay coefficients shared by every optimizer.
type Decay struct {
	L1 float64
	L2 float64
}

// grad returns the decayed, batch-averaged gradient of element j of p.
func (d Decay) grad(p *tensor.Tensor, j int, batchSize float64) float64 {
	w := p.Values[j]
	l1grad := 0.0
	if d.L1 != 0 {
		switch {
		case w > 0:
			l1grad = d.L1
		case w < 0:
			l1grad = -d.L1
		}
	}
	l2grad := d.L2 * w
	return (l2grad + l1grad + p.Grads[j]) / batchSize
}

// Loss returns l1*|w| + l2*w²/2 summed over params.
func (d Decay) Loss(params []layer.Param) float64 {
	if d.L1 == 0 && d.L2 == 0 {
		return 0
	}
	loss := 0.0
	for _, p := range params {
		v := p.Tensor.Values
		loss += d.L1*floats.Norm(v, 1) + d.L2*floats.Dot(v, v)/2
	}
	return loss
}

// slots keeps one state tensor per parameter, matched by position.
type slots struct {
	name    string
	tensors [][]*tensor.Tensor
}

// get returns the k state tensors of params, allocating them on first use.
// A parameter list that no longer lines up with the state is a programming
// error and panics.
func (s *slots) get(params []layer.Param, k int) [][]*tensor.Tensor {
	if s.tensors == nil {
		s.tensors = make([][]*tensor.Tensor, len(params))
		for i, p := range params {
			s.tensors[i] = make([]*tensor.Tensor, k)
			for j := range s.tensors[i] {
				s.tensors[i][j] = p.Tensor.CloneAndZero()
			}
		}
		return s.tensors
	}
	if len(params) != len(s.tensors) {
		panic(fmt.Errorf("%s: %w: %d params, state for %d", s.name, tensor.ErrShape, len(params), len(s.tensors)))
	}
	for i, p := range params {
		if !p.Tensor.SameShape(s.tensors[i][0]) {
			panic(fmt.Errorf("%s: %w: param %d (%s) is %s, state is %s", s.name, tensor.ErrShape, i, p.Name, p.Tensor.Shape(), s.tensors[i][0].Shape()))
		}
	}
	return s.tensors
}

func batch(batchSize int) float64 {
	if batchSize < 1 {
		return 1
	}
	return float64(batchSize)
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LearningRate float64 // default 0.01
	Momentum     float64 // 0 disables momentum
	Decay
}

// SGD is stochastic gradient descent with optional momentum.
type SGD struct {
	cfg   SGDConfig
	state slots
}

// NewSGD creates an SGD optimizer.
func NewSGD(cfg SGDConfig) *SGD {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.01
	}
	return &SGD{cfg: cfg, state: slots{name: "sgd"}}
}

func (s *SGD) LearningRate() float64       { return s.cfg.LearningRate }
func (s *SGD) SetLearningRate(lr float64) { s.cfg.LearningRate = lr }

// Step applies w -= lr*g, or with momentum v = m*v - lr*g; w += v.
func (s *SGD) Step(params []layer.Param, batchSize int) float64 {
	decayLoss := s.cfg.Decay.Loss(params)
	bs := batch(batchSize)

	var velocity [][]*tensor.Tensor
	if s.cfg.Momentum > 0 {
		velocity = s.state.get(params, 1)
	}
	for i, p := range params {
		t := p.Tensor
		for j := range t.Values {
			g := s.cfg.Decay.grad(t, j, bs)
			if velocity != nil {
				v := velocity[i][0].Values
				dx := s.cfg.Momentum*v[j] - s.cfg.LearningRate*g
				v[j] = dx
				t.Values[j] += dx
			} else {
				t.Values[j] += -s.cfg.LearningRate * g
			}
		}
		t.ClearGrad()
	}
	return decayLoss
}

// AdaGradConfig holds configuration for AdaGrad.
type AdaGradConfig struct {
	LearningRate float64 // default 0.01
	Eps          float64 // default 1e-8
	Decay
}

// AdaGrad scales every element's step by the root of its accumulated squared
// gradients.
type AdaGrad struct {
	cfg   AdaGradConfig
	state slots
}

// NewAdaGrad creates an AdaGrad optimizer. The accumulator tensors are
// allocated lazily on the first Step, so Cache is nil until then; the result
// matches allocating them up front because they start at zero. They stay
// matched to the parameters by position.
func NewAdaGrad(cfg AdaGradConfig) *AdaGrad {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-8
	}
	return &AdaGrad{cfg: cfg, state: slots{name: "adagrad"}}
}

func (a *AdaGrad) LearningRate() float64       { return a.cfg.LearningRate }
func (a *AdaGrad) SetLearningRate(lr float64) { a.cfg.LearningRate = lr }

// Cache returns the accumulated squared gradients, nil before the first Step.
func (a *AdaGrad) Cache() []*tensor.Tensor {
	if a.state.tensors == nil {
		return nil
	}
	cache := make([]*tensor.Tensor, len(a.state.tensors))
	for i, s := range a.state.tensors {
		cache[i] = s[0]
	}
	return cache
}

// Step applies cache += g², w -= lr*g/sqrt(cache+eps).
func (a *AdaGrad) Step(params []layer.Param, batchSize int) float64 {
	decayLoss := a.cfg.Decay.Loss(params)
	bs := batch(batchSize)

	state := a.state.get(params, 1)
	for i, p := range params {
		t := p.Tensor
		sum := state[i][0].Values
		for j := range t.Values {
			g := a.cfg.Decay.grad(t, j, bs)
			sum[j] = sum[j] + g*g
			dx := -a.cfg.LearningRate / math.Sqrt(sum[j]+a.cfg.Eps) * g
			t.Values[j] += dx
		}
		t.ClearGrad()
	}
	return decayLoss
}

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LearningRate float64 // default 0.001
	Beta1        float64 // default 0.9
	Beta2        float64 // default 0.999
	Eps          float64 // default 1e-8
	Decay
}

// Adam keeps bias-corrected running averages of the gradient and its square.
type Adam struct {
	cfg   AdamConfig
	state slots
	steps int
}

// NewAdam creates an Adam optimizer.
func NewAdam(cfg AdamConfig) *Adam {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.001
	}
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-8
	}
	return &Adam{cfg: cfg, state: slots{name: "adam"}}
}

func (a *Adam) LearningRate() float64       { return a.cfg.LearningRate }
func (a *Adam) SetLearningRate(lr float64) { a.cfg.LearningRate = lr }

// Step applies one bias-corrected Adam update.
func (a *Adam) Step(params []layer.Param, batchSize int) float64 {
	decayLoss := a.cfg.Decay.Loss(params)
	bs := batch(batchSize)

	a.steps++
	c1 := 1 - math.Pow(a.cfg.Beta1, float64(a.steps))
	c2 := 1 - math.Pow(a.cfg.Beta2, float64(a.steps))

	state := a.state.get(params, 2)
	for i, p := range params {
		t := p.Tensor
		m, v := state[i][0].Values, state[i][1].Values
		for j := range t.Values {
			g := a.cfg.Decay.grad(t, j, bs)
			m[j] = a.cfg.Beta1*m[j] + (1-a.cfg.Beta1)*g
			v[j] = a.cfg.Beta2*v[j] + (1-a.cfg.Beta2)*g*g
			t.Values[j] += -a.cfg.LearningRate * (m[j] / c1) / (math.Sqrt(v[j]/c2) + a.cfg.Eps)
		}
		t.ClearGrad()
	}
	return decayLoss
}
