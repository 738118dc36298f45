package layer

import (
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onesConv(t *testing.T, in tensor.Shape, size, filters, stride, pad int) *ConvLayer {
	t.Helper()
	layers := mustBuild(t, Input(in.SX, in.SY, in.Depth), Conv(size, filters, stride, pad))
	conv := layers[1].(*ConvLayer)
	for _, f := range conv.Filters() {
		f.SetConst(1)
	}
	conv.Biases().SetConst(0)
	return conv
}

func TestConvOutputShape(t *testing.T) {
	shapes, err := Infer([]Def{Input(24, 24, 1), Conv(5, 8, 1, 2), SoftMax(24 * 24 * 8)})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{SX: 24, SY: 24, Depth: 8}, shapes[1])

	shapes, err = Infer([]Def{Input(7, 9, 3), Conv(3, 4, 2, 0), SoftMax(3 * 4 * 4)})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{SX: 3, SY: 4, Depth: 4}, shapes[1])
}

func TestConvForward(t *testing.T) {
	// 1 2 3
	// 4 5 6
	// 7 8 9
	in := sequentialInput(3, 3)
	conv := onesConv(t, in.Shape(), 2, 1, 1, 0)

	var st State
	out := conv.Forward(&st, in, false)
	assert.Equal(t, []float64{12, 16, 24, 28}, out.Values)
}

func TestConvForwardPaddingAndBias(t *testing.T) {
	in := sequentialInput(3, 3)
	conv := onesConv(t, in.Shape(), 3, 2, 1, 1)
	conv.Biases().Values[1] = 0.5

	var st State
	out := conv.Forward(&st, in, false)
	require.Equal(t, tensor.Shape{SX: 3, SY: 3, Depth: 2}, out.Shape())

	assert.Equal(t, 12.0, out.Get(0, 0, 0))
	assert.Equal(t, 45.0, out.Get(1, 1, 0))
	assert.Equal(t, 28.0, out.Get(2, 2, 0))
	assert.Equal(t, 45.5, out.Get(1, 1, 1))
}

func TestConvForwardSumsOverDepth(t *testing.T) {
	in := tensor.New(1, 1, 3, 0)
	in.Values = []float64{1, 2, 3}
	conv := onesConv(t, in.Shape(), 1, 1, 1, 0)
	conv.Filters()[0].Values = []float64{1, 10, 100}

	var st State
	out := conv.Forward(&st, in, false)
	assert.Equal(t, 321.0, out.Values[0])
}

func TestConvBackwardKnownValues(t *testing.T) {
	in := sequentialInput(3, 3)
	conv := onesConv(t, in.Shape(), 2, 1, 1, 0)

	var st State
	out := conv.Forward(&st, in, true)
	for i := range out.Grads {
		out.Grads[i] = 1
	}
	conv.Backward(&st)

	// each input cell receives one unit per window covering it
	assert.Equal(t, []float64{1, 2, 1, 2, 4, 2, 1, 2, 1}, in.Grads)
	// dW(fx,fy) = sum of the inputs under that tap
	assert.Equal(t, []float64{12, 16, 24, 28}, conv.Filters()[0].Grads)
	assert.Equal(t, 4.0, conv.Biases().Grads[0])
}

func TestConvBackwardNoGradientOutsideInput(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	in := randomInput(tensor.Shape{SX: 3, SY: 3, Depth: 2}, rng)
	layers := mustBuild(t, Input(3, 3, 2), Conv(3, 2, 1, 2))
	conv := layers[1]

	var st State
	out := conv.Forward(&st, in, true)
	require.Equal(t, tensor.Shape{SX: 5, SY: 5, Depth: 2}, out.Shape())
	for i := range out.Grads {
		out.Grads[i] = 1
	}
	assert.NotPanics(t, func() { conv.Backward(&st) })
	assert.Len(t, in.Grads, 18)
}

func TestConvBackwardParamGradientsAccumulate(t *testing.T) {
	in := sequentialInput(3, 3)
	conv := onesConv(t, in.Shape(), 2, 1, 1, 0)

	for pass := 0; pass < 2; pass++ {
		var st State
		out := conv.Forward(&st, in, true)
		for i := range out.Grads {
			out.Grads[i] = 1
		}
		conv.Backward(&st)
		// the input gradient is cleared every pass
		assert.Equal(t, 4.0, in.Grads[4])
	}
	assert.Equal(t, 8.0, conv.Biases().Grads[0])
}

func TestConvParams(t *testing.T) {
	layers := mustBuild(t, Input(5, 5, 3), Conv(3, 4, 1, 0))
	params := layers[1].Params()
	require.Len(t, params, 5)
	for i := 0; i < 4; i++ {
		assert.Equal(t, tensor.Shape{SX: 3, SY: 3, Depth: 3}, params[i].Tensor.Shape())
	}
	assert.Equal(t, tensor.Shape{SX: 1, SY: 1, Depth: 4}, params[4].Tensor.Shape())
	assert.Equal(t, "1.conv.filter0", params[0].Name)
	assert.Equal(t, "1.conv.bias", params[4].Name)
}

func TestConvRejectsWrongInputShape(t *testing.T) {
	layers := mustBuild(t, Input(4, 4, 1), Conv(3, 1, 1, 0))
	var st State
	assert.PanicsWithError(t, "conv: shape mismatch: got 4x4x2, want 4x4x1", func() {
		layers[1].Forward(&st, tensor.New(4, 4, 2, 0), false)
	})
}

func TestConvBackwardWithoutForwardPanics(t *testing.T) {
	layers := mustBuild(t, Input(4, 4, 1), Conv(3, 1, 1, 0))
	assert.Panics(t, func() { layers[1].Backward(&State{}) })
}
