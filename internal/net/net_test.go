// Package net provides unit tests for the layer pipeline.
package net

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/FlavioCFOliveira/GoCNN/internal/layer"
	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func smallDefs() []layer.Def {
	return []layer.Def{
		layer.Input(6, 6, 2),
		layer.Conv(3, 4, 1, 1),
		layer.DefaultLRN(),
		layer.Pool(2, 2, 0),
		layer.FullyConnected(3),
		layer.SoftMax(3),
	}
}

func randomImage(s tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	in := tensor.FromShape(s)
	for i := range in.Values {
		in.Values[i] = rng.Float64()
	}
	return in
}

func mustNew(t *testing.T, defs []layer.Def, opts ...Option) *Network {
	t.Helper()
	n, err := New(defs, opts...)
	require.NoError(t, err)
	return n
}

// TestNetworkForward tests forward pass through network.
func TestNetworkForward(t *testing.T) {
	n := mustNew(t, smallDefs())
	in := randomImage(n.InShape(), rand.New(rand.NewSource(1)))

	out := n.Forward(in, false)
	require.Equal(t, 3, out.Len())
	assert.InDelta(t, 1.0, floats.Sum(out.Values), 1e-12)
	assert.Equal(t, out.ArgMax(), n.Prediction())
	assert.Equal(t, 3, n.Classes())
}

// TestNetworkBackward tests that backward reaches every parameter.
func TestNetworkBackward(t *testing.T) {
	n := mustNew(t, smallDefs())
	in := randomImage(n.InShape(), rand.New(rand.NewSource(2)))

	n.Forward(in, true)
	loss := n.Backward(1)
	assert.Greater(t, loss, 0.0)

	for _, p := range n.Params() {
		assert.Greater(t, floats.Norm(p.Tensor.Grads, 2), 0.0, p.Name)
	}
	// the input tensor receives the gradient too
	assert.Greater(t, floats.Norm(in.Grads, 2), 0.0)
}

func TestNetworkBackwardWithoutForwardPanics(t *testing.T) {
	n := mustNew(t, smallDefs())
	assert.Panics(t, func() { n.Backward(0) })
	assert.Panics(t, func() { n.Prediction() })
}

func TestNetworkRejectsWrongInputShape(t *testing.T) {
	n := mustNew(t, smallDefs())
	assert.Panics(t, func() { n.Forward(tensor.New(6, 6, 1, 0), false) })
}

func TestNewRejectsInvalidPipeline(t *testing.T) {
	_, err := New([]layer.Def{layer.Input(2, 2, 1), layer.FullyConnected(2)})
	assert.ErrorIs(t, err, layer.ErrPipeline)
}

func TestParamsOrderIsStable(t *testing.T) {
	n := mustNew(t, smallDefs())
	first := n.Params()
	second := n.Params()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Same(t, first[i].Tensor, second[i].Tensor)
		assert.Equal(t, first[i].Name, second[i].Name)
	}
	// 4 filters + bias, then fc weights + bias
	assert.Len(t, first, 7)
}

func TestSeedsAreReproducible(t *testing.T) {
	a := mustNew(t, smallDefs(), WithSeed(7))
	b := mustNew(t, smallDefs(), WithSeed(7))
	c := mustNew(t, smallDefs(), WithSeed(8))

	pa, pb, pc := a.Params(), b.Params(), c.Params()
	assert.Equal(t, pa[0].Tensor.Values, pb[0].Tensor.Values)
	assert.NotEqual(t, pa[0].Tensor.Values, pc[0].Tensor.Values)
}

func TestClearGradients(t *testing.T) {
	n := mustNew(t, smallDefs())
	n.Forward(randomImage(n.InShape(), rand.New(rand.NewSource(3))), true)
	n.Backward(0)
	n.ClearGradients()
	for _, p := range n.Params() {
		assert.Zero(t, floats.Norm(p.Tensor.Grads, 1), p.Name)
	}
}

func TestPassesAreIndependent(t *testing.T) {
	n := mustNew(t, smallDefs())
	rng := rand.New(rand.NewSource(4))
	inputs := make([]*tensor.Tensor, 8)
	want := make([][]float64, len(inputs))
	for i := range inputs {
		inputs[i] = randomImage(n.InShape(), rng)
		want[i] = append([]float64(nil), n.Forward(inputs[i], false).Values...)
	}

	var wg sync.WaitGroup
	got := make([][]float64, len(inputs))
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := n.NewPass()
			got[i] = p.Forward(inputs[i], false).Values
		}(i)
	}
	wg.Wait()

	assert.Equal(t, want, got)
}

func TestPassReset(t *testing.T) {
	n := mustNew(t, smallDefs())
	p := n.NewPass()
	p.Forward(randomImage(n.InShape(), rand.New(rand.NewSource(5))), false)
	require.NotNil(t, p.Output())
	p.Reset()
	assert.Nil(t, p.Output())
	assert.Panics(t, func() { p.Backward(0) })
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	n := mustNew(t, smallDefs(), WithSeed(99))
	in := randomImage(n.InShape(), rand.New(rand.NewSource(6)))
	want := append([]float64(nil), n.Forward(in, false).Values...)

	var buf bytes.Buffer
	require.NoError(t, n.Encode(&buf))

	loaded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, n.Defs(), loaded.Defs())

	pa, pb := n.Params(), loaded.Params()
	require.Len(t, pb, len(pa))
	for i := range pa {
		assert.Equal(t, pa[i].Tensor.Shape(), pb[i].Tensor.Shape())
		assert.Equal(t, pa[i].Tensor.Values, pb[i].Tensor.Values)
	}
	assert.Equal(t, want, loaded.Forward(in, false).Values)
}

func TestSaveLoad(t *testing.T) {
	n := mustNew(t, smallDefs(), WithSeed(5))
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, n.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, n.Params()[0].Tensor.Values, loaded.Params()[0].Tensor.Values)

	_, err = Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a model")))
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	n := mustNew(t, smallDefs())
	var buf bytes.Buffer
	require.NoError(t, n.Summary(&buf))

	out := buf.String()
	assert.Contains(t, out, "conv_1")
	assert.Contains(t, out, "6x6x4")
	assert.Contains(t, out, "softmax_5")
	// conv 4*18+4, fc over 3x3x4: 36*3+3
	assert.Contains(t, out, "Total params: 187")
}
