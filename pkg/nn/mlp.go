package nn

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

type Activation string

const (
	Linear     Activation = "linear"
	ActReLU    Activation = "relu"
	ActSigmoid Activation = "sigmoid"
)

type layerSpec struct {
	Weight     Tensor     `msgpack:"weight"`
	Bias       Tensor     `msgpack:"bias"`
	Activation Activation `msgpack:"activation"`
}

type mlpFile struct {
	Layers []layerSpec `msgpack:"layers"`
}

type mlpLayer struct {
	dense *Dense
	act   Activation
}

// MLP is a stack of dense layers, each followed by its activation.
type MLP struct {
	layers []mlpLayer
}

func LoadMLP(path string) (*MLP, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return DecodeMLP(bufio.NewReader(f))
}

func DecodeMLP(r io.Reader) (*MLP, error) {
	var file mlpFile
	if err := msgpack.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(file.Layers) == 0 {
		return nil, fmt.Errorf("model has no layers")
	}

	m := &MLP{}
	prevOut := -1
	for i, spec := range file.Layers {
		if len(spec.Weight.Shape) != 2 {
			return nil, fmt.Errorf("layer %d: weight must be 2-D, got %v", i, spec.Weight.Shape)
		}
		out, in := spec.Weight.Shape[0], spec.Weight.Shape[1]
		if prevOut >= 0 && in != prevOut {
			return nil, fmt.Errorf("layer %d: input %d does not match previous output %d", i, in, prevOut)
		}
		w := Weights{"w.weight": spec.Weight, "w.bias": spec.Bias}
		d, err := LoadDense(w, "w", in, out)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		switch spec.Activation {
		case "", Linear, ActReLU, ActSigmoid:
		default:
			return nil, fmt.Errorf("layer %d: unknown activation %q", i, spec.Activation)
		}
		m.layers = append(m.layers, mlpLayer{dense: d, act: spec.Activation})
		prevOut = out
	}
	return m, nil
}

func (m *MLP) InputSize() int  { return m.layers[0].dense.In }
func (m *MLP) OutputSize() int { return m.layers[len(m.layers)-1].dense.Out }

func (m *MLP) Forward(x []float32) ([]float32, error) {
	var err error
	for i, l := range m.layers {
		x, err = l.dense.Forward(x)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		switch l.act {
		case ActReLU:
			ReLU(x)
		case ActSigmoid:
			for j, v := range x {
				x[j] = float32(Sigmoid(float64(v)))
			}
		}
	}
	return x, nil
}
