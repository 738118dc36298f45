package net

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/FlavioCFOliveira/GoCNN/internal/layer"
	"github.com/FlavioCFOliveira/GoCNN/internal/tensor"
)

// ErrFormat reports a model stream that cannot be decoded into a network.
var ErrFormat = errors.New("invalid model format")

const formatVersion = 1

// paramRecord is one parameter tensor: its shape and values in tensor order.
type paramRecord struct {
	Name   string
	Shape  tensor.Shape
	Values []float64
}

// Save writes the network to a file using gob encoding.
func (n *Network) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := n.Encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Load reads a network saved with Save.
func Load(filename string) (*Network, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Encode writes the layer definitions followed by every parameter tensor.
// Gradients and optimizer state are not written.
func (n *Network) Encode(w io.Writer) error {
	encoder := gob.NewEncoder(w)

	if err := encoder.Encode(formatVersion); err != nil {
		return fmt.Errorf("failed to encode version: %w", err)
	}
	if err := encoder.Encode(n.defs); err != nil {
		return fmt.Errorf("failed to encode layers: %w", err)
	}

	params := n.Params()
	records := make([]paramRecord, len(params))
	for i, p := range params {
		records[i] = paramRecord{Name: p.Name, Shape: p.Tensor.Shape(), Values: p.Tensor.Values}
	}
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	return nil
}

// Decode reads a network written by Encode. The layers are rebuilt from their
// definitions and every parameter must match the rebuilt shape exactly.
func Decode(r io.Reader) (*Network, error) {
	decoder := gob.NewDecoder(r)

	var version int
	if err := decoder.Decode(&version); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrFormat, version)
	}

	var defs []layer.Def
	if err := decoder.Decode(&defs); err != nil {
		return nil, fmt.Errorf("failed to read layers: %w", err)
	}

	var records []paramRecord
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to read params: %w", err)
	}

	// values are overwritten below, the generator only has to exist
	n, err := New(defs, WithRand(rand.New(rand.NewSource(0))))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	params := n.Params()
	if len(params) != len(records) {
		return nil, fmt.Errorf("%w: %d params, network has %d", ErrFormat, len(records), len(params))
	}
	for i, p := range params {
		rec := records[i]
		if rec.Shape != p.Tensor.Shape() || len(rec.Values) != p.Tensor.Len() {
			return nil, fmt.Errorf("%w: param %d (%s) is %s, want %s", ErrFormat, i, rec.Name, rec.Shape, p.Tensor.Shape())
		}
		copy(p.Tensor.Values, rec.Values)
	}
	return n, nil
}
