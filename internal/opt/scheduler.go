package opt

import "math"

// Scheduler adjusts an optimizer's learning rate between epochs.
type Scheduler interface {
	// Step is called once at the end of every epoch with that epoch's mean loss.
	Step(loss float64)
	LearningRate() float64
}

// StepLR multiplies the learning rate by gamma every stepSize epochs.
type StepLR struct {
	optimizer Optimizer
	stepSize  int
	gamma     float64
	epoch     int
}

func NewStepLR(optimizer Optimizer, stepSize int, gamma float64) *StepLR {
	if stepSize < 1 {
		stepSize = 1
	}
	return &StepLR{optimizer: optimizer, stepSize: stepSize, gamma: gamma}
}

func (s *StepLR) Step(float64) {
	s.epoch++
	if s.epoch%s.stepSize == 0 {
		s.optimizer.SetLearningRate(s.optimizer.LearningRate() * s.gamma)
	}
}

func (s *StepLR) LearningRate() float64 { return s.optimizer.LearningRate() }

// ExponentialLR multiplies the learning rate by gamma every epoch.
type ExponentialLR struct {
	optimizer Optimizer
	gamma     float64
}

func NewExponentialLR(optimizer Optimizer, gamma float64) *ExponentialLR {
	return &ExponentialLR{optimizer: optimizer, gamma: gamma}
}

func (s *ExponentialLR) Step(float64) {
	s.optimizer.SetLearningRate(s.optimizer.LearningRate() * s.gamma)
}

func (s *ExponentialLR) LearningRate() float64 { return s.optimizer.LearningRate() }

// ReduceLROnPlateau multiplies the learning rate by factor once the loss has
// not improved by more than threshold for patience epochs, never going below
// minLR.
type ReduceLROnPlateau struct {
	optimizer Optimizer
	factor    float64
	patience  int
	threshold float64
	cooldown  int
	minLR     float64

	best float64
	bad  int
	wait int
}

func NewReduceLROnPlateau(optimizer Optimizer, factor float64, patience int, threshold, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		optimizer: optimizer,
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		best:      math.Inf(1),
	}
}

// WithCooldown sets the number of epochs to wait after a reduction before
// counting bad epochs again.
func (s *ReduceLROnPlateau) WithCooldown(epochs int) *ReduceLROnPlateau {
	s.cooldown = epochs
	return s
}

func (s *ReduceLROnPlateau) Step(loss float64) {
	if s.wait > 0 {
		s.wait--
		return
	}

	if loss < s.best-s.threshold {
		s.best = loss
		s.bad = 0
	} else {
		s.bad++
	}

	if s.bad >= s.patience {
		s.optimizer.SetLearningRate(math.Max(s.optimizer.LearningRate()*s.factor, s.minLR))
		s.bad = 0
		s.wait = s.cooldown
	}
}

func (s *ReduceLROnPlateau) LearningRate() float64 { return s.optimizer.LearningRate() }
