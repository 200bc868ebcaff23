package nn

import (
	"fmt"
	"math"
)

// Volume is a C x H x W activation map.
type Volume struct {
	C, H, W int
	Data    []float32
}

func NewVolume(c, h, w int) Volume {
	return Volume{C: c, H: h, W: w, Data: make([]float32, c*h*w)}
}

func (v Volume) At(c, y, x int) float32 {
	return v.Data[(c*v.H+y)*v.W+x]
}

// Conv2D is a stride-1 convolution with symmetric zero padding. Weight is
// laid out [out][in][k][k].
type Conv2D struct {
	In, Out, Kernel, Pad int
	Weight               []float32
	Bias                 []float32
}

func LoadConv2D(w Weights, prefix string, in, out, kernel, pad int) (*Conv2D, error) {
	weight, err := w.Tensor(prefix+".weight", out, in, kernel, kernel)
	if err != nil {
		return nil, err
	}
	bias, err := w.Tensor(prefix+".bias", out)
	if err != nil {
		return nil, err
	}
	return &Conv2D{In: in, Out: out, Kernel: kernel, Pad: pad, Weight: weight.Data, Bias: bias.Data}, nil
}

func (c *Conv2D) Forward(in Volume) (Volume, error) {
	if in.C != c.In {
		return Volume{}, fmt.Errorf("conv2d: input has %d channels, want %d", in.C, c.In)
	}
	outH := in.H + 2*c.Pad - c.Kernel + 1
	outW := in.W + 2*c.Pad - c.Kernel + 1
	if outH <= 0 || outW <= 0 {
		return Volume{}, fmt.Errorf("conv2d: input %dx%d too small", in.H, in.W)
	}

	out := NewVolume(c.Out, outH, outW)
	k := c.Kernel
	for o := 0; o < c.Out; o++ {
		bias := c.Bias[o]
		for y := 0; y < outH; y++ {
			for x := 0; x < outW; x++ {
				sum := bias
				for i := 0; i < c.In; i++ {
					wBase := ((o*c.In + i) * k) * k
					for ky := 0; ky < k; ky++ {
						iy := y + ky - c.Pad
						if iy < 0 || iy >= in.H {
							continue
						}
						row := (i*in.H + iy) * in.W
						for kx := 0; kx < k; kx++ {
							ix := x + kx - c.Pad
							if ix < 0 || ix >= in.W {
								continue
							}
							sum += c.Weight[wBase+ky*k+kx] * in.Data[row+ix]
						}
					}
				}
				out.Data[(o*outH+y)*outW+x] = sum
			}
		}
	}
	return out, nil
}

// MaxPool2D applies a size x size pool with matching stride. Trailing rows
// and columns that do not fill a window are dropped.
func MaxPool2D(in Volume, size int) Volume {
	outH, outW := in.H/size, in.W/size
	out := NewVolume(in.C, outH, outW)
	for c := 0; c < in.C; c++ {
		for y := 0; y < outH; y++ {
			for x := 0; x < outW; x++ {
				m := float32(math.Inf(-1))
				for dy := 0; dy < size; dy++ {
					for dx := 0; dx < size; dx++ {
						if v := in.At(c, y*size+dy, x*size+dx); v > m {
							m = v
						}
					}
				}
				out.Data[(c*outH+y)*outW+x] = m
			}
		}
	}
	return out
}

// Dense is a fully connected layer with Weight laid out [out][in].
type Dense struct {
	In, Out int
	Weight  []float32
	Bias    []float32
}

func LoadDense(w Weights, prefix string, in, out int) (*Dense, error) {
	weight, err := w.Tensor(prefix+".weight", out, in)
	if err != nil {
		return nil, err
	}
	bias, err := w.Tensor(prefix+".bias", out)
	if err != nil {
		return nil, err
	}
	return &Dense{In: in, Out: out, Weight: weight.Data, Bias: bias.Data}, nil
}

func (d *Dense) Forward(x []float32) ([]float32, error) {
	if len(x) != d.In {
		return nil, fmt.Errorf("dense: input has %d values, want %d", len(x), d.In)
	}
	out := make([]float32, d.Out)
	for o := 0; o < d.Out; o++ {
		sum := d.Bias[o]
		row := d.Weight[o*d.In : (o+1)*d.In]
		for i, v := range x {
			sum += row[i] * v
		}
		out[o] = sum
	}
	return out, nil
}

// ReLU clamps negatives to zero in place.
func ReLU(x []float32) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

// Softmax returns a numerically stable probability distribution over x.
func Softmax(x []float32) []float64 {
	if len(x) == 0 {
		return nil
	}
	m := float64(x[0])
	for _, v := range x[1:] {
		m = math.Max(m, float64(v))
	}
	out := make([]float64, len(x))
	sum := 0.0
	for i, v := range x {
		out[i] = math.Exp(float64(v) - m)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Argmax returns the index of the largest value. Ties resolve to the lowest
// index. It returns -1 for an empty slice.
func Argmax(x []float64) int {
	best := -1
	for i, v := range x {
		if best < 0 || v > x[best] {
			best = i
		}
	}
	return best
}
