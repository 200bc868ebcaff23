package voice

import (
	"fmt"

	"emotion-backend/pkg/audio"
	"emotion-backend/pkg/models"
	"emotion-backend/pkg/nn"

	"github.com/rs/zerolog/log"
)

const (
	NumClasses = 8

	conv1Channels = 16
	conv2Channels = 32
	hiddenUnits   = 128
	flatFeatures  = conv2Channels * (audio.NumCoefficients / 4) * (audio.NumFrames / 4)
)

// Model maps an MFCC matrix to one logit per label.
type Model interface {
	Logits(fm *audio.FeatureMatrix) ([]float32, error)
}

// CNN is conv(1->16) relu pool, conv(16->32) relu pool, fc(13760->128) relu,
// fc(128->8). Parameter names follow the PyTorch state dict of the trained
// network.
type CNN struct {
	conv1 *nn.Conv2D
	conv2 *nn.Conv2D
	fc1   *nn.Dense
	fc2   *nn.Dense
}

func NewCNN(w nn.Weights) (*CNN, error) {
	conv1, err := nn.LoadConv2D(w, "conv1", 1, conv1Channels, 3, 1)
	if err != nil {
		return nil, err
	}
	conv2, err := nn.LoadConv2D(w, "conv2", conv1Channels, conv2Channels, 3, 1)
	if err != nil {
		return nil, err
	}
	fc1, err := nn.LoadDense(w, "fc1", flatFeatures, hiddenUnits)
	if err != nil {
		return nil, err
	}
	fc2, err := nn.LoadDense(w, "fc2", hiddenUnits, NumClasses)
	if err != nil {
		return nil, err
	}
	return &CNN{conv1: conv1, conv2: conv2, fc1: fc1, fc2: fc2}, nil
}

func (m *CNN) Logits(fm *audio.FeatureMatrix) ([]float32, error) {
	in := nn.NewVolume(1, audio.NumCoefficients, audio.NumFrames)
	for k := 0; k < audio.NumCoefficients; k++ {
		copy(in.Data[k*audio.NumFrames:(k+1)*audio.NumFrames], fm[k][:])
	}

	x, err := m.conv1.Forward(in)
	if err != nil {
		return nil, err
	}
	nn.ReLU(x.Data)
	x = nn.MaxPool2D(x, 2)

	x, err = m.conv2.Forward(x)
	if err != nil {
		return nil, err
	}
	nn.ReLU(x.Data)
	x = nn.MaxPool2D(x, 2)

	h, err := m.fc1.Forward(x.Data)
	if err != nil {
		return nil, err
	}
	nn.ReLU(h)
	return m.fc2.Forward(h)
}

type unavailable struct {
	cause error
}

func (u unavailable) Logits(*audio.FeatureMatrix) ([]float32, error) {
	return nil, fmt.Errorf("%w: %w", models.ErrModelUnavailable, u.cause)
}

// Load reads the CNN weights at path. When the artifact is missing or
// malformed the returned Model fails every call with
// models.ErrModelUnavailable, and the error is also returned so callers can
// log it at startup.
func Load(path string) (Model, error) {
	w, err := nn.LoadWeights(path)
	if err == nil {
		var m *CNN
		if m, err = NewCNN(w); err == nil {
			log.Info().Str("path", path).Msg("voice emotion model loaded")
			return m, nil
		}
	}
	return unavailable{cause: err}, fmt.Errorf("load voice model %s: %w", path, err)
}
