// Package voice classifies the emotion in a spoken clip.
package voice

import (
	"context"
	"math"
	"sort"
	"time"

	"emotion-backend/pkg/audio"
	"emotion-backend/pkg/metrics"
	"emotion-backend/pkg/models"
	"emotion-backend/pkg/nn"

	"github.com/rs/zerolog/log"
)

const topEmotions = 3

// FeatureExtractor turns an uploaded clip into the model input.
type FeatureExtractor interface {
	Extract(ctx context.Context, raw []byte, format string) (*audio.FeatureMatrix, error)
}

type Predictor struct {
	extractor FeatureExtractor
	model     Model
}

func NewPredictor(extractor FeatureExtractor, model Model) *Predictor {
	return &Predictor{extractor: extractor, model: model}
}

// Predict extracts features from raw and classifies them. Extraction
// failures wrap models.ErrInvalidAudio and a missing model wraps
// models.ErrModelUnavailable.
func (p *Predictor) Predict(ctx context.Context, raw []byte, format string) (*models.VoiceEmotionResponse, error) {
	fm, err := p.extractor.Extract(ctx, raw, format)
	if err != nil {
		return nil, err
	}
	return p.Classify(fm)
}

func (p *Predictor) Classify(fm *audio.FeatureMatrix) (*models.VoiceEmotionResponse, error) {
	if p.model == nil {
		return nil, models.ErrModelUnavailable
	}
	start := time.Now()
	logits, err := p.model.Logits(fm)
	metrics.InferenceLatency.WithLabelValues("voice").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	resp := BuildResponse(nn.Softmax(logits))
	metrics.VoicePredictions.WithLabelValues(resp.Emotion).Inc()
	log.Info().
		Str("emotion", resp.Emotion).
		Float64("confidence", resp.Confidence).
		Msg("predicted voice emotion")
	return resp, nil
}

// BuildResponse turns class probabilities into the API payload. Percentages
// in AllProbabilities are unrounded, the rest are rounded to two decimals.
func BuildResponse(probs []float64) *models.VoiceEmotionResponse {
	best := nn.Argmax(probs)
	label := Labels[best]

	all := make(map[string]float64, NumClasses)
	ranked := make([]models.EmotionProbability, 0, NumClasses)
	for i, name := range Labels {
		pct := probs[i] * 100
		all[name] = pct
		ranked = append(ranked, models.EmotionProbability{Emotion: name, Emoji: Emoji(name), Probability: pct})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	top := ranked[:topEmotions]
	for i := range top {
		top[i].Probability = round2(top[i].Probability)
	}

	return &models.VoiceEmotionResponse{
		Emotion:          label,
		Emoji:            Emoji(label),
		Description:      Description(label),
		Confidence:       round2(probs[best] * 100),
		AllProbabilities: all,
		TopEmotions:      top,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
