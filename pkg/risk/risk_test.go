package risk

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"emotion-backend/pkg/models"
	"emotion-backend/pkg/nn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

const preprocessorYAML = `
scaler:
  mean: [20, 3, 3, 6, 3]
  scale: [2, 1, 1, 2, 1]
encoders:
  sleep_duration: ["5-6 hours", "7-8 hours", "Less than 5 hours", "More than 8 hours"]
  dietary_habits: ["Healthy", "Moderate", "Unhealthy"]
  suicidal_thoughts: ["No", "Yes"]
`

type testLayer struct {
	Weight     nn.Tensor `msgpack:"weight"`
	Bias       nn.Tensor `msgpack:"bias"`
	Activation string    `msgpack:"activation"`
}

type testModel struct {
	Layers []testLayer `msgpack:"layers"`
}

func encodeModel(t *testing.T, weights []float32, bias float32, act string) []byte {
	t.Helper()
	b, err := msgpack.Marshal(testModel{Layers: []testLayer{{
		Weight:     nn.Tensor{Shape: []int{1, len(weights)}, Data: weights},
		Bias:       nn.Tensor{Shape: []int{1}, Data: []float32{bias}},
		Activation: act,
	}}})
	require.NoError(t, err)
	return b
}

func constantPredictor(t *testing.T, p float32) *Predictor {
	t.Helper()
	m, err := nn.DecodeMLP(bytes.NewReader(encodeModel(t, make([]float32, NumFeatures), p, "linear")))
	require.NoError(t, err)

	var pre Preprocessor
	require.NoError(t, yamlUnmarshal(preprocessorYAML, &pre))

	pred, err := NewPredictor(&pre, m)
	require.NoError(t, err)
	return pred
}

func sampleRequest() *models.DepressionRequest {
	return &models.DepressionRequest{
		Age:               22,
		AcademicPressure:  4,
		StudySatisfaction: 2,
		WorkStudyHours:    8,
		FinancialStress:   5,
		SleepDuration:     "Less than 5 hours",
		DietaryHabits:     "Unhealthy",
		SuicidalThoughts:  "Yes",
	}
}

func TestTransform(t *testing.T) {
	var pre Preprocessor
	require.NoError(t, yamlUnmarshal(preprocessorYAML, &pre))

	x, err := pre.Transform(sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, -1, 1, 2, 2, 2, 1}, x)
}

func TestTransformUnknownCategory(t *testing.T) {
	var pre Preprocessor
	require.NoError(t, yamlUnmarshal(preprocessorYAML, &pre))

	req := sampleRequest()
	req.DietaryHabits = "Keto"
	_, err := pre.Transform(req)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestBandBoundaries(t *testing.T) {
	cases := []struct {
		p     float32
		pct   float64
		level string
	}{
		{0, 0, "low"},
		{0.2, 20, "low"},
		{0.2001, 20.01, "mild"},
		{0.4, 40, "mild"},
		{0.6, 60, "moderate"},
		{0.8, 80, "high"},
		{0.8001, 80.01, "critical"},
		{1, 100, "critical"},
	}
	for _, tc := range cases {
		resp, err := constantPredictor(t, tc.p).Predict(sampleRequest())
		require.NoError(t, err)
		assert.Equal(t, tc.pct, resp.DepressionProbability, "p=%v", tc.p)
		assert.Equal(t, tc.level, resp.Recommendations.Level, "p=%v", tc.p)
	}
}

func TestPredictMessage(t *testing.T) {
	resp, err := constantPredictor(t, 0.4567).Predict(sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 45.67, resp.DepressionProbability)
	assert.Equal(t, "You have 45.67% chance of experiencing depression.", resp.PredictionMessage)
	assert.Equal(t, "⚠️ Status: Signs of distress are increasing. Take proactive steps.", resp.Recommendations.Message)
	assert.Len(t, resp.Recommendations.Resources, 4)
}

func TestPredictClampsOutput(t *testing.T) {
	resp, err := constantPredictor(t, 1.7).Predict(sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 100.0, resp.DepressionProbability)
}

func TestRecommendResourcesAreCopies(t *testing.T) {
	r := Recommend(90)
	r.Resources[0] = "changed"
	assert.Equal(t, "Contact a psychologist or counselor immediately.", Recommend(90).Resources[0])
	assert.Len(t, Recommend(70).Resources, 5)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.msgpack")
	prePath := filepath.Join(dir, "pre.yaml")

	weights := []float32{0, 0, 0, 0, 0, 0, 0, 10}
	require.NoError(t, os.WriteFile(modelPath, encodeModel(t, weights, -5, "sigmoid"), 0o644))
	require.NoError(t, os.WriteFile(prePath, []byte(preprocessorYAML), 0o644))

	pred, err := Load(modelPath, prePath)
	require.NoError(t, err)

	resp, err := pred.Predict(sampleRequest())
	require.NoError(t, err)
	// sigmoid(10*1 - 5)
	assert.Equal(t, 99.33, resp.DepressionProbability)
	assert.Equal(t, "critical", resp.Recommendations.Level)

	req := sampleRequest()
	req.SuicidalThoughts = "No"
	resp, err = pred.Predict(req)
	require.NoError(t, err)
	// sigmoid(-5)
	assert.Equal(t, 0.67, resp.DepressionProbability)
	assert.Equal(t, "low", resp.Recommendations.Level)
}

func TestLoadFailureIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	pred, err := Load(filepath.Join(dir, "missing.msgpack"), filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	require.NotNil(t, pred)

	_, err = pred.Predict(sampleRequest())
	assert.ErrorIs(t, err, models.ErrModelUnavailable)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewPredictorRejectsWrongShape(t *testing.T) {
	m, err := nn.DecodeMLP(bytes.NewReader(encodeModel(t, make([]float32, 5), 0, "linear")))
	require.NoError(t, err)
	_, err = NewPredictor(&Preprocessor{}, m)
	assert.Error(t, err)
}

func TestPreprocessorValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pre.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scaler:\n  mean: [1]\n  scale: [1]\n"), 0o644))
	_, err := LoadPreprocessor(path)
	assert.Error(t, err)
}

func yamlUnmarshal(s string, v any) error {
	return yaml.Unmarshal([]byte(s), v)
}
