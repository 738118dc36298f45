package layer

import "github.com/FlavioCFOliveira/GoCNN/internal/tensor"

// PoolLayer is a per-channel max pooling layer.
// Window cells that fall in the padding are never read, so they never win.
type PoolLayer struct {
	in  tensor.Shape
	out tensor.Shape

	size   int
	stride int
	pad    int
}

// NewPool creates a pooling layer from resolved shapes.
func NewPool(in, out tensor.Shape, size, stride, pad int) *PoolLayer {
	return &PoolLayer{in: in, out: out, size: size, stride: stride, pad: pad}
}

func (p *PoolLayer) Kind() Kind             { return KindPool }
func (p *PoolLayer) InShape() tensor.Shape  { return p.in }
func (p *PoolLayer) OutShape() tensor.Shape { return p.out }
func (p *PoolLayer) Params() []Param        { return nil }

// Forward takes the window maximum per channel and records the winning input
// index in st.Argmax. Windows are scanned row by row; the first in-bounds cell
// seeds the winner and only a strictly larger value replaces it.
func (p *PoolLayer) Forward(st *State, in *tensor.Tensor, training bool) *tensor.Tensor {
	checkInput(KindPool, p.in, in)
	out := tensor.FromShape(p.out)

	n := out.Len()
	if cap(st.Argmax) < n {
		st.Argmax = make([]int, n)
	}
	argmax := st.Argmax[:n]

	for d := 0; d < p.out.Depth; d++ {
		y := -p.pad
		for ay := 0; ay < p.out.SY; ay, y = ay+1, y+p.stride {
			x := -p.pad
			for ax := 0; ax < p.out.SX; ax, x = ax+1, x+p.stride {
				best := 0.0
				win := -1
				for fy := 0; fy < p.size; fy++ {
					oy := y + fy
					if oy < 0 || oy >= p.in.SY {
						continue
					}
					for fx := 0; fx < p.size; fx++ {
						ox := x + fx
						if ox < 0 || ox >= p.in.SX {
							continue
						}
						idx := in.Index(ox, oy, d)
						if v := in.Values[idx]; win < 0 || v > best {
							best = v
							win = idx
						}
					}
				}

				oi := out.Index(ax, ay, d)
				argmax[oi] = win
				if win >= 0 {
					out.Values[oi] = best
				}
			}
		}
	}

	st.In = in
	st.Out = out
	st.Argmax = argmax
	return out
}

// Backward routes each output gradient to the input cell that won its window.
func (p *PoolLayer) Backward(st *State) {
	checkForward(KindPool, st)
	in, out := st.In, st.Out
	in.ClearGrad()

	for oi, win := range st.Argmax[:out.Len()] {
		if win >= 0 {
			in.Grads[win] += out.Grads[oi]
		}
	}
}
