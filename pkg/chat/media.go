package chat

import (
	"emotion-backend/pkg/emotion"
	"emotion-backend/pkg/models"
)

const fallbackVideoID = "dQw4w9WgXcQ"

var videoQueries = map[string]string{
	emotion.Sadness:  "motivational video for sadness",
	emotion.Joy:      "happy uplifting videos",
	emotion.Anger:    "calming relaxing videos",
	emotion.Fear:     "soothing meditation videos",
	emotion.Love:     "heartwarming videos",
	emotion.Surprise: "interesting surprising facts videos",
	emotion.Neutral:  "inspirational videos",
}

// VideoQuery maps a text emotion to a media search query.
func VideoQuery(label string) string {
	if q, ok := videoQueries[label]; ok {
		return q
	}
	return videoQueries[emotion.Neutral]
}

// FallbackVideos is served whenever the media search fails.
func FallbackVideos() []models.VideoRecommendation {
	return []models.VideoRecommendation{{
		Title:     "Recommended Video",
		VideoID:   fallbackVideoID,
		Thumbnail: "https://img.youtube.com/vi/" + fallbackVideoID + "/mqdefault.jpg",
		URL:       "https://www.youtube.com/watch?v=" + fallbackVideoID,
	}}
}
