package risk

import (
	"fmt"
	"os"

	"emotion-backend/pkg/models"

	"gopkg.in/yaml.v3"
)

// NumFeatures is the model input width: five scaled numeric features
// followed by three label-encoded categorical ones.
const NumFeatures = 8

// Preprocessor holds the fitted standard scaler and label encoders exported
// from training.
//
//	scaler:
//	  mean:  [age, academic_pressure, study_satisfaction, work_study_hours, financial_stress]
//	  scale: [...]
//	encoders:
//	  sleep_duration:    ["5-6 hours", "7-8 hours", ...]
//	  dietary_habits:    ["Healthy", "Moderate", "Unhealthy"]
//	  suicidal_thoughts: ["No", "Yes"]
type Preprocessor struct {
	Scaler   Scaler   `yaml:"scaler"`
	Encoders Encoders `yaml:"encoders"`
}

type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// Encoders list each categorical column's classes; a value encodes to its
// index.
type Encoders struct {
	SleepDuration    []string `yaml:"sleep_duration"`
	DietaryHabits    []string `yaml:"dietary_habits"`
	SuicidalThoughts []string `yaml:"suicidal_thoughts"`
}

func LoadPreprocessor(path string) (*Preprocessor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preprocessor: %w", err)
	}
	var p Preprocessor
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preprocessor: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Preprocessor) validate() error {
	if len(p.Scaler.Mean) != 5 || len(p.Scaler.Scale) != 5 {
		return fmt.Errorf("preprocessor: scaler needs 5 means and 5 scales, got %d and %d", len(p.Scaler.Mean), len(p.Scaler.Scale))
	}
	for i, s := range p.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("preprocessor: scale %d is zero", i)
		}
	}
	if len(p.Encoders.SleepDuration) == 0 || len(p.Encoders.DietaryHabits) == 0 || len(p.Encoders.SuicidalThoughts) == 0 {
		return fmt.Errorf("preprocessor: every categorical column needs classes")
	}
	return nil
}

// Transform builds the model input for req. Unknown categories wrap
// models.ErrInvalidInput.
func (p *Preprocessor) Transform(req *models.DepressionRequest) ([]float32, error) {
	numeric := []float64{
		float64(req.Age),
		float64(req.AcademicPressure),
		float64(req.StudySatisfaction),
		float64(req.WorkStudyHours),
		float64(req.FinancialStress),
	}

	x := make([]float32, 0, NumFeatures)
	for i, v := range numeric {
		x = append(x, float32((v-p.Scaler.Mean[i])/p.Scaler.Scale[i]))
	}

	for _, col := range []struct {
		name    string
		value   string
		classes []string
	}{
		{"Sleep_Duration", req.SleepDuration, p.Encoders.SleepDuration},
		{"Dietary_Habits", req.DietaryHabits, p.Encoders.DietaryHabits},
		{"Suicidal_Thoughts", req.SuicidalThoughts, p.Encoders.SuicidalThoughts},
	} {
		code := indexOf(col.classes, col.value)
		if code < 0 {
			return nil, fmt.Errorf("%w: %s has unseen label %q", models.ErrInvalidInput, col.name, col.value)
		}
		x = append(x, float32(code))
	}
	return x, nil
}

func indexOf(classes []string, v string) int {
	for i, c := range classes {
		if c == v {
			return i
		}
	}
	return -1
}
