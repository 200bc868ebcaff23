// Package emotion decides when a conversation's text emotion is
// recomputed and which label each turn uses.
package emotion

import (
	"context"
	"strings"
)

// Text emotion labels produced by the classifier.
const (
	Sadness  = "sadness"
	Joy      = "joy"
	Anger    = "anger"
	Fear     = "fear"
	Love     = "love"
	Surprise = "surprise"
	Neutral  = "neutral"
)

var Labels = []string{Sadness, Joy, Anger, Fear, Love, Surprise, Neutral}

// Classifier labels a message with one of Labels.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Normalize lowercases a label and maps anything unknown to Neutral.
func Normalize(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, known := range Labels {
		if l == known {
			return l
		}
	}
	return Neutral
}
