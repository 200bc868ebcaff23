// Package nn implements the small set of float32 inference layers the
// bundled emotion and risk models need. Weights are stored as msgpack maps
// from parameter name to Tensor.
package nn

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Tensor is a dense row-major array.
type Tensor struct {
	Shape []int     `msgpack:"shape"`
	Data  []float32 `msgpack:"data"`
}

func (t Tensor) Size() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Weights maps parameter names such as "conv1.weight" to tensors.
type Weights map[string]Tensor

func LoadWeights(path string) (Weights, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weights: %w", err)
	}
	defer f.Close()
	return DecodeWeights(bufio.NewReader(f))
}

func DecodeWeights(r io.Reader) (Weights, error) {
	var w Weights
	if err := msgpack.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	return w, nil
}

// Tensor returns the named parameter after checking its shape.
func (w Weights) Tensor(name string, shape ...int) (Tensor, error) {
	t, ok := w[name]
	if !ok {
		return Tensor{}, fmt.Errorf("missing parameter %q", name)
	}
	if len(t.Shape) != len(shape) {
		return Tensor{}, fmt.Errorf("parameter %q: rank %d, want %d", name, len(t.Shape), len(shape))
	}
	for i := range shape {
		if t.Shape[i] != shape[i] {
			return Tensor{}, fmt.Errorf("parameter %q: shape %v, want %v", name, t.Shape, shape)
		}
	}
	if len(t.Data) != t.Size() {
		return Tensor{}, fmt.Errorf("parameter %q: %d values for shape %v", name, len(t.Data), t.Shape)
	}
	return t, nil
}
