package layer

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// ConvLayer is a 2D convolution over zero-padded input.
// Each filter is a size×size×inDepth tensor; because tensors are channel-minor,
// one filter row at (fx, fy) and the input column at (ix, iy) are both
// contiguous runs of inDepth values.
type ConvLayer struct {
	in  tensor.Shape
	out tensor.Shape

	size   int
	stride int
	pad    int

	filters []*tensor.Tensor
	biases  *tensor.Tensor

	name string
}

// NewConv creates a convolution from resolved shapes. out.Depth is the filter count.
func NewConv(name string, in, out tensor.Shape, size, stride, pad int, rng *rand.Rand) *ConvLayer {
	filters := make([]*tensor.Tensor, out.Depth)
	for i := range filters {
		filters[i] = tensor.NewRandom(size, size, in.Depth, rng)
	}
	return &ConvLayer{
		in:      in,
		out:     out,
		size:    size,
		stride:  stride,
		pad:     pad,
		filters: filters,
		biases:  tensor.NewRandom(1, 1, out.Depth, rng),
		name:    name,
	}
}

func (c *ConvLayer) Kind() Kind             { return KindConv }
func (c *ConvLayer) InShape() tensor.Shape  { return c.in }
func (c *ConvLayer) OutShape() tensor.Shape { return c.out }

// Filters returns the filter tensors in output channel order.
func (c *ConvLayer) Filters() []*tensor.Tensor { return c.filters }

// Biases returns the 1×1×filters bias tensor.
func (c *ConvLayer) Biases() *tensor.Tensor { return c.biases }

// Forward computes, for every output position and filter, the dot product of
// the filter with its receptive field plus the bias.
func (c *ConvLayer) Forward(st *State, in *tensor.Tensor, training bool) *tensor.Tensor {
	checkInput(KindConv, c.in, in)
	out := tensor.FromShape(c.out)

	depth := c.in.Depth
	for f, filter := range c.filters {
		y := -c.pad
		for ay := 0; ay < c.out.SY; ay, y = ay+1, y+c.stride {
			x := -c.pad
			for ax := 0; ax < c.out.SX; ax, x = ax+1, x+c.stride {
				a := 0.0
				for fy := 0; fy < c.size; fy++ {
					oy := y + fy
					if oy < 0 || oy >= c.in.SY {
						continue
					}
					for fx := 0; fx < c.size; fx++ {
						ox := x + fx
						if ox < 0 || ox >= c.in.SX {
							continue
						}
						fi := ((c.size*fy)+fx)*depth
						ii := ((c.in.SX*oy)+ox)*depth
						a += floats.Dot(filter.Values[fi:fi+depth], in.Values[ii:ii+depth])
					}
				}
				a += c.biases.Values[f]
				out.Set(ax, ay, f, a)
			}
		}
	}

	st.In = in
	st.Out = out
	return out
}

// Backward spreads each output gradient over the receptive field it came from.
// Padded positions are skipped, so no gradient lands outside the input.
func (c *ConvLayer) Backward(st *State) {
	checkForward(KindConv, st)
	in, out := st.In, st.Out
	in.ClearGrad()

	depth := c.in.Depth
	for f, filter := range c.filters {
		y := -c.pad
		for ay := 0; ay < c.out.SY; ay, y = ay+1, y+c.stride {
			x := -c.pad
			for ax := 0; ax < c.out.SX; ax, x = ax+1, x+c.stride {
				g := out.Grad(ax, ay, f)
				for fy := 0; fy < c.size; fy++ {
					oy := y + fy
					if oy < 0 || oy >= c.in.SY {
						continue
					}
					for fx := 0; fx < c.size; fx++ {
						ox := x + fx
						if ox < 0 || ox >= c.in.SX {
							continue
						}
						fi := ((c.size*fy)+fx)*depth
						ii := ((c.in.SX*oy)+ox)*depth
						floats.AddScaled(filter.Grads[fi:fi+depth], g, in.Values[ii:ii+depth])
						floats.AddScaled(in.Grads[ii:ii+depth], g, filter.Values[fi:fi+depth])
					}
				}
				c.biases.Grads[f] += g
			}
		}
	}
}

// Params returns every filter followed by the bias tensor.
func (c *ConvLayer) Params() []Param {
	params := make([]Param, 0, len(c.filters)+1)
	for i, f := range c.filters {
		params = append(params, Param{Name: fmt.Sprintf("%s.filter%d", c.name, i), Tensor: f})
	}
	return append(params, Param{Name: c.name + ".bias", Tensor: c.biases})
}
