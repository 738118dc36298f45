package gocnn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacadePipeline(t *testing.T) {
	defs := []Def{Input(8, 8, 1), Conv(3, 2, 1, 0), DefaultLRN(), Pool(2, 2, 0), FullyConnected(2), SoftMax(2)}

	shapes, err := Infer(defs)
	require.NoError(t, err)
	assert.Equal(t, Shape{SX: 6, SY: 6, Depth: 2}, shapes[1])
	assert.Equal(t, Shape{SX: 3, SY: 3, Depth: 2}, shapes[3])

	n, err := NewNetwork(defs, WithSeed(1))
	require.NoError(t, err)

	tr := NewTrainer(n, AdaGrad(0.05, Decay{L2: 1e-4}), 1)
	res := tr.Train(NewTensor(8, 8, 1, 0.5), 1)
	assert.True(t, res.Updated)
	assert.Greater(t, res.Loss, 0.0)
}

func TestFacadeErrors(t *testing.T) {
	_, err := NewNetwork([]Def{Input(4, 4, 1), Conv(5, 1, 1, 0), FullyConnected(2), SoftMax(2)})
	assert.ErrorIs(t, err, ErrShape)

	_, err = NewNetwork([]Def{Input(4, 4, 1), FullyConnected(2)})
	assert.ErrorIs(t, err, ErrPipeline)
}
