package layer

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
)

// Kind tags the closed set of layer variants.
type Kind int

const (
	KindInput Kind = iota
	KindConv
	KindPool
	KindLRN
	KindFullyConnected
	KindSoftMax
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConv:
		return "conv"
	case KindPool:
		return "pool"
	case KindLRN:
		return "lrn"
	case KindFullyConnected:
		return "fc"
	case KindSoftMax:
		return "softmax"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Def is the configuration of one layer. Only the fields of its Kind are read.
type Def struct {
	Kind Kind

	// Input
	SX, SY, Depth int

	// Convolution and pooling window geometry
	Size    int
	Filters int
	Stride  int
	Pad     int

	// Local response normalization
	K     float64
	N     int
	Alpha float64
	Beta  float64

	// Fully connected and softmax
	Units int
}

// Input defines the entry layer receiving sx×sy×depth tensors.
func Input(sx, sy, depth int) Def {
	return Def{Kind: KindInput, SX: sx, SY: sy, Depth: depth}
}

// Conv defines a convolution with size×size kernels.
func Conv(size, filters, stride, pad int) Def {
	return Def{Kind: KindConv, Size: size, Filters: filters, Stride: stride, Pad: pad}
}

// Pool defines a max pooling layer.
func Pool(size, stride, pad int) Def {
	return Def{Kind: KindPool, Size: size, Stride: stride, Pad: pad}
}

// LRN defines a cross-channel local response normalization.
func LRN(k float64, n int, alpha, beta float64) Def {
	return Def{Kind: KindLRN, K: k, N: n, Alpha: alpha, Beta: beta}
}

// DefaultLRN uses k=1, n=3, alpha=0.1, beta=0.75.
func DefaultLRN() Def {
	return LRN(1, 3, 0.1, 0.75)
}

// FullyConnected defines a dense layer with units outputs.
func FullyConnected(units int) Def {
	return Def{Kind: KindFullyConnected, Units: units}
}

// SoftMax defines the terminal classifier over classes inputs.
func SoftMax(classes int) Def {
	return Def{Kind: KindSoftMax, Units: classes}
}

// windowOut computes floor((in + 2*pad - size)/stride) + 1.
func windowOut(in, size, stride, pad int) int {
	return (in+2*pad-size)/stride + 1
}

// Infer resolves the output shape of every definition in order. Entry i is
// the output of layer i and the input of layer i+1. Nothing is allocated.
func Infer(defs []Def) ([]tensor.Shape, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrPipeline)
	}
	if defs[0].Kind != KindInput {
		return nil, fmt.Errorf("%w: first layer is %s, want input", ErrPipeline, defs[0].Kind)
	}
	if last := defs[len(defs)-1].Kind; last != KindSoftMax {
		return nil, fmt.Errorf("%w: last layer is %s, want softmax", ErrPipeline, last)
	}

	shapes := make([]tensor.Shape, len(defs))
	for i, d := range defs {
		var in tensor.Shape
		if i > 0 {
			in = shapes[i-1]
			if d.Kind == KindInput {
				return nil, fmt.Errorf("%w: input layer at position %d", ErrPipeline, i)
			}
		}
		out, err := inferOne(d, in)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, d.Kind, err)
		}
		shapes[i] = out
	}
	return shapes, nil
}

func inferOne(d Def, in tensor.Shape) (tensor.Shape, error) {
	switch d.Kind {
	case KindInput:
		out := tensor.Shape{SX: d.SX, SY: d.SY, Depth: d.Depth}
		return out, out.Validate()

	case KindConv, KindPool:
		if d.Size <= 0 || d.Stride <= 0 || d.Pad < 0 {
			return tensor.Shape{}, fmt.Errorf("%w: size %d stride %d pad %d", ErrConfig, d.Size, d.Stride, d.Pad)
		}
		depth := in.Depth
		if d.Kind == KindConv {
			if d.Filters <= 0 {
				return tensor.Shape{}, fmt.Errorf("%w: %d filters", ErrConfig, d.Filters)
			}
			depth = d.Filters
		}
		if in.SX+2*d.Pad < d.Size || in.SY+2*d.Pad < d.Size {
			return tensor.Shape{}, fmt.Errorf("%w: window %d does not fit padded input %s", ErrShape, d.Size, in)
		}
		out := tensor.Shape{
			SX:    windowOut(in.SX, d.Size, d.Stride, d.Pad),
			SY:    windowOut(in.SY, d.Size, d.Stride, d.Pad),
			Depth: depth,
		}
		return out, out.Validate()

	case KindLRN:
		if d.N <= 0 || d.K <= 0 {
			return tensor.Shape{}, fmt.Errorf("%w: k %g n %d", ErrConfig, d.K, d.N)
		}
		return in, nil

	case KindFullyConnected:
		if d.Units <= 0 {
			return tensor.Shape{}, fmt.Errorf("%w: %d units", ErrConfig, d.Units)
		}
		return tensor.Shape{SX: 1, SY: 1, Depth: d.Units}, nil

	case KindSoftMax:
		if d.Units <= 0 {
			return tensor.Shape{}, fmt.Errorf("%w: %d classes", ErrConfig, d.Units)
		}
		if in.Size() != d.Units {
			return tensor.Shape{}, fmt.Errorf("%w: %d classes over input %s", ErrShape, d.Units, in)
		}
		return tensor.Shape{SX: 1, SY: 1, Depth: d.Units}, nil
	}
	return tensor.Shape{}, fmt.Errorf("%w: unknown kind %s", ErrConfig, d.Kind)
}

// Build resolves the shapes of defs and constructs the layers. Parameters are
// initialized from rng, so the same seed yields the same network.
func Build(defs []Def, rng *rand.Rand) ([]Layer, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrConfig)
	}
	shapes, err := Infer(defs)
	if err != nil {
		return nil, err
	}

	layers := make([]Layer, len(defs))
	for i, d := range defs {
		in := shapes[i]
		if i > 0 {
			in = shapes[i-1]
		}
		out := shapes[i]
		name := fmt.Sprintf("%d.%s", i, d.Kind)

		switch d.Kind {
		case KindInput:
			layers[i] = NewInput(out)
		case KindConv:
			layers[i] = NewConv(name, in, out, d.Size, d.Stride, d.Pad, rng)
		case KindPool:
			layers[i] = NewPool(in, out, d.Size, d.Stride, d.Pad)
		case KindLRN:
			layers[i] = NewLRN(in, d.K, d.N, d.Alpha, d.Beta)
		case KindFullyConnected:
			layers[i] = NewFullyConnected(name, in, d.Units, rng)
		case KindSoftMax:
			layers[i] = NewSoftMax(in)
		}
	}
	return layers, nil
}
