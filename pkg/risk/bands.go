package risk

import "emotion-backend/pkg/models"

type band struct {
	upper     float64
	level     string
	message   string
	resources []string
}

// bands are checked in order against the rounded percentage; the last band
// catches everything above 80.
var bands = []band{
	{
		upper:   20,
		level:   "low",
		message: "✅ Status: You seem to be in a good mental state!",
		resources: []string{
			"Keep up your positive mindset.",
			"Maintain social connections and a balanced lifestyle.",
			"Exercise regularly and engage in hobbies.",
			"Continue practicing mindfulness and self-care.",
		},
	},
	{
		upper:   40,
		level:   "mild",
		message: "⚠️ Status: Some early signs of stress or emotional exhaustion.",
		resources: []string{
			"Identify stress triggers and find ways to manage them.",
			"Engage in healthy conversations with friends or mentors.",
			"Try meditation, yoga, or deep breathing exercises.",
			"Maintain a proper sleep schedule and avoid excessive screen time.",
		},
	},
	{
		upper:   60,
		level:   "moderate",
		message: "⚠️ Status: Signs of distress are increasing. Take proactive steps.",
		resources: []string{
			"Reach out to a trusted friend, family member, or counselor.",
			"Reduce academic pressure with time management techniques.",
			"Engage in regular physical activities like walking or sports.",
			"Consider seeking professional help if feelings persist.",
		},
	},
	{
		upper:   80,
		level:   "high",
		message: "🚨 Status: You may be experiencing significant mental distress.",
		resources: []string{
			"Seek guidance from a mental health professional.",
			"Avoid isolation—talk to someone you trust.",
			"Reduce workload and focus on self-care.",
			"Engage in activities that bring relaxation and peace.",
			"Avoid alcohol, smoking, or other unhealthy coping mechanisms.",
		},
	},
	{
		level:   "critical",
		message: "🛑 Status: You are at a high risk of depression. Immediate action is needed!",
		resources: []string{
			"Contact a psychologist or counselor immediately.",
			"Do not hesitate to seek help from a mental health helpline.",
			"Stay close to supportive friends or family members.",
			"Avoid self-harm or negative thoughts—help is available.",
			"Professional therapy and intervention are strongly recommended.",
		},
	},
}

// Recommend returns the band guidance for a percentage in [0, 100].
func Recommend(pct float64) models.RiskRecommendation {
	b := bands[len(bands)-1]
	for _, candidate := range bands[:len(bands)-1] {
		if pct <= candidate.upper {
			b = candidate
			break
		}
	}
	return models.RiskRecommendation{
		Message:   b.message,
		Level:     b.level,
		Resources: append([]string(nil), b.resources...),
	}
}
