package voice

// Labels in model output order.
var Labels = [NumClasses]string{
	"neutral",
	"calm",
	"happy",
	"sad",
	"angry",
	"fearful",
	"disgust",
	"surprised",
}

var emojis = map[string]string{
	"neutral":   "😐",
	"calm":      "😌",
	"happy":     "😊",
	"sad":       "😢",
	"angry":     "😠",
	"fearful":   "😨",
	"disgust":   "🤢",
	"surprised": "😲",
}

var descriptions = map[string]string{
	"neutral":   "You sound balanced and composed",
	"calm":      "Your voice reflects tranquility and peace",
	"happy":     "Your voice radiates joy and positivity",
	"sad":       "Your voice carries a sense of sadness",
	"angry":     "Your voice shows signs of frustration",
	"fearful":   "Your voice indicates worry or anxiety",
	"disgust":   "Your voice expresses displeasure",
	"surprised": "Your voice shows amazement or shock",
}

func Emoji(label string) string       { return emojis[label] }
func Description(label string) string { return descriptions[label] }
