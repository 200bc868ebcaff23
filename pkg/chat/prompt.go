package chat

import (
	"fmt"
	"strings"

	"emotion-backend/pkg/emotion"
	"emotion-backend/pkg/models"
)

// Apology is returned in place of a generated reply when generation fails.
const Apology = "I'm here to listen and support you. Could you tell me more about what's on your mind?"

var toneMap = map[string]string{
	emotion.Sadness:  "soft, comforting, and deeply empathetic. Show understanding and provide gentle encouragement.",
	emotion.Joy:      "warm, enthusiastic, and celebratory. Share in their happiness with positive energy.",
	emotion.Anger:    "calming, grounding, and patient. Help them process feelings constructively without judgment.",
	emotion.Fear:     "gentle, reassuring, and supportive. Provide comfort and help them feel safe and understood.",
	emotion.Love:     "kind, warm, and genuinely supportive. Reflect their positive emotions with care.",
	emotion.Surprise: "bright, energetic, and engaging. Match their excitement and curiosity.",
	emotion.Neutral:  "friendly, balanced, and conversational. Be helpful and naturally engaging.",
}

const systemPromptTemplate = `You are an emotionally intelligent AI assistant. The user is currently feeling %s.

Your communication style should be %s

Guidelines:
- Respond naturally and conversationally
- Keep responses concise but meaningful (2-4 sentences)
- Show emotional awareness without being overly clinical
- Be authentic and human-like in your responses
- Adapt your language to match the emotional context

Remember: You're here to be helpful and supportive while respecting the user's emotional state.`

// Tone returns the communication style for label, falling back to neutral.
func Tone(label string) string {
	if t, ok := toneMap[label]; ok {
		return t
	}
	return toneMap[emotion.Neutral]
}

func SystemPrompt(label string) string {
	return fmt.Sprintf(systemPromptTemplate, label, Tone(label))
}

// BuildPrompt renders the full generation prompt: system instruction, the
// given recent turns and the new user message.
func BuildPrompt(label string, recent []models.Turn, message string) string {
	var sb strings.Builder
	sb.WriteString(SystemPrompt(label))
	sb.WriteString("\n\n")
	if len(recent) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, t := range recent {
			fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", t.User, t.Assistant)
		}
	}
	fmt.Fprintf(&sb, "\nUser: %s\nAssistant:", message)
	return sb.String()
}
