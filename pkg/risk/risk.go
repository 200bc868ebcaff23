// Package risk estimates depression risk from a short lifestyle
// questionnaire.
package risk

import (
	"fmt"
	"math"
	"time"

	"emotion-backend/pkg/metrics"
	"emotion-backend/pkg/models"
	"emotion-backend/pkg/nn"

	"github.com/rs/zerolog/log"
)

// Predictor is immutable after construction and safe for concurrent use.
type Predictor struct {
	pre   *Preprocessor
	model *nn.MLP
	cause error
}

func NewPredictor(pre *Preprocessor, model *nn.MLP) (*Predictor, error) {
	if model.InputSize() != NumFeatures || model.OutputSize() != 1 {
		return nil, fmt.Errorf("risk model must map %d features to 1 output, got %d -> %d", NumFeatures, model.InputSize(), model.OutputSize())
	}
	return &Predictor{pre: pre, model: model}, nil
}

// Load reads both artifacts. On failure it still returns a Predictor whose
// every call fails with models.ErrModelUnavailable, along with the error.
func Load(modelPath, preprocessorPath string) (*Predictor, error) {
	p, err := load(modelPath, preprocessorPath)
	if err != nil {
		return &Predictor{cause: err}, err
	}
	log.Info().Str("path", modelPath).Msg("depression risk model loaded")
	return p, nil
}

func load(modelPath, preprocessorPath string) (*Predictor, error) {
	pre, err := LoadPreprocessor(preprocessorPath)
	if err != nil {
		return nil, err
	}
	m, err := nn.LoadMLP(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load risk model %s: %w", modelPath, err)
	}
	return NewPredictor(pre, m)
}

func (p *Predictor) Predict(req *models.DepressionRequest) (*models.DepressionResponse, error) {
	if p == nil || p.model == nil {
		if p == nil || p.cause == nil {
			return nil, models.ErrModelUnavailable
		}
		return nil, fmt.Errorf("%w: %w", models.ErrModelUnavailable, p.cause)
	}

	x, err := p.pre.Transform(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := p.model.Forward(x)
	metrics.InferenceLatency.WithLabelValues("risk").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("risk inference: %w", err)
	}

	prob := math.Min(math.Max(float64(out[0]), 0), 1)
	pct := math.Round(prob*100*100) / 100

	return &models.DepressionResponse{
		DepressionProbability: pct,
		PredictionMessage:     fmt.Sprintf("You have %.2f%% chance of experiencing depression.", pct),
		Recommendations:       Recommend(pct),
	}, nil
}
