package layer

import (
	"math"

	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
)

// LRNLayer normalizes each activation by the energy of its neighbouring channels:
//
//	S = k + alpha/n * sum(a_j^2) over j in [i-n/2, i+n/2]
//	out = a_i / S^beta
//
// The backward window term is a_i*a_j, the exact derivative, and not the
// a_j*a_j form of the reference formula, which fails finite-difference checks
// once n > 1.
type LRNLayer struct {
	shape tensor.Shape

	k     float64
	n     int
	alpha float64
	beta  float64
}

// NewLRN creates a normalization layer. An even window is accepted with a warning.
func NewLRN(shape tensor.Shape, k float64, n int, alpha, beta float64) *LRNLayer {
	if n%2 == 0 {
		logger.Warn("lrn window size should be odd", "n", n)
	}
	return &LRNLayer{shape: shape, k: k, n: n, alpha: alpha, beta: beta}
}

func (l *LRNLayer) Kind() Kind             { return KindLRN }
func (l *LRNLayer) InShape() tensor.Shape  { return l.shape }
func (l *LRNLayer) OutShape() tensor.Shape { return l.shape }
func (l *LRNLayer) Params() []Param        { return nil }

// window returns the inclusive channel range around i, clipped to the depth.
func (l *LRNLayer) window(i int) (lo, hi int) {
	half := l.n / 2
	lo = max(0, i-half)
	hi = min(l.shape.Depth-1, i+half)
	return lo, hi
}

// Forward normalizes in and caches S per element in st.S.
func (l *LRNLayer) Forward(st *State, in *tensor.Tensor, training bool) *tensor.Tensor {
	checkInput(KindLRN, l.shape, in)
	out := in.CloneAndZero()
	cache := in.CloneAndZero()

	depth := l.shape.Depth
	for base := 0; base < in.Len(); base += depth {
		column := in.Values[base : base+depth]
		for i := 0; i < depth; i++ {
			lo, hi := l.window(i)
			den := 0.0
			for j := lo; j <= hi; j++ {
				den += column[j] * column[j]
			}
			den *= l.alpha / float64(l.n)
			den += l.k
			cache.Values[base+i] = den
			out.Values[base+i] = column[i] / math.Pow(den, l.beta)
		}
	}

	st.In = in
	st.Out = out
	st.S = cache
	return out
}

// Backward applies the exact derivative: each input affects its own output
// directly and every output in its window through the denominator.
func (l *LRNLayer) Backward(st *State) {
	checkForward(KindLRN, st)
	if st.S == nil {
		panic(ErrNoForward)
	}
	in, out := st.In, st.Out
	in.ClearGrad()

	depth := l.shape.Depth
	nf := float64(l.n)
	for base := 0; base < in.Len(); base += depth {
		for i := 0; i < depth; i++ {
			g := out.Grads[base+i]
			ai := in.Values[base+i]
			s := st.S.Values[base+i]
			sb := math.Pow(s, l.beta)
			sb2 := sb * sb
			sbm1 := math.Pow(s, l.beta-1)

			lo, hi := l.window(i)
			for j := lo; j <= hi; j++ {
				aj := in.Values[base+j]
				d := -ai * l.beta * sbm1 * l.alpha / nf * 2 * aj
				if j == i {
					d += sb
				}
				in.Grads[base+j] += g * d / sb2
			}
		}
	}
}
