package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultEmotion is the label every session starts with and the label used
// whenever text emotion detection fails.
const DefaultEmotion = "neutral"

type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Emotion   string    `json:"emotion"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the per-conversation state. It is not safe for concurrent use;
// the session store serializes access per id.
type Session struct {
	ID                      string    `json:"session_id"`
	LastEmotion             string    `json:"current_emotion"`
	TurnsSinceLastDetection int       `json:"message_count"`
	History                 []Turn    `json:"history"`
	CreatedAt               time.Time `json:"created_at"`

	// MaxHistory bounds retained turns. Zero keeps every turn.
	MaxHistory int `json:"-"`
}

func NewSession(maxHistory int) *Session {
	return &Session{
		ID:          uuid.New().String(),
		LastEmotion: DefaultEmotion,
		History:     []Turn{},
		CreatedAt:   time.Now(),
		MaxHistory:  maxHistory,
	}
}

// AppendTurn records a completed exchange, dropping the oldest turns when a
// retention window is configured.
func (s *Session) AppendTurn(t Turn) {
	s.History = append(s.History, t)
	if s.MaxHistory > 0 && len(s.History) > s.MaxHistory {
		drop := len(s.History) - s.MaxHistory
		s.History = append([]Turn(nil), s.History[drop:]...)
	}
}

// RecentTurns returns up to n of the most recent turns, oldest first.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Snapshot returns a deep copy safe to hand out after the session lock is
// released.
func (s *Session) Snapshot() Session {
	cp := *s
	cp.History = append([]Turn(nil), s.History...)
	return cp
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type VideoRecommendation struct {
	Title     string `json:"title"`
	VideoID   string `json:"video_id"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
}

type ChatResponse struct {
	Response             string                `json:"response"`
	Emotion              string                `json:"emotion"`
	VideoRecommendations []VideoRecommendation `json:"video_recommendations"`
	MessageCount         int                   `json:"message_count"`
	SessionID            string                `json:"session_id"`
	EmotionUpdated       bool                  `json:"emotion_updated"`
}

type HistoryResponse struct {
	SessionID      string `json:"session_id"`
	CurrentEmotion string `json:"current_emotion"`
	MessageCount   int    `json:"message_count"`
	History        []Turn `json:"history"`
}

type ScrapeRequest struct {
	Query          string `json:"query"`
	RetrievalQuery string `json:"retrieval_query,omitempty"`
}

type ScrapeResult struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type ScrapeResponse struct {
	Query           string         `json:"query"`
	TotalLinksFound int            `json:"total_links_found"`
	PagesScraped    int            `json:"pages_scraped"`
	TotalChunks     int            `json:"total_chunks"`
	Results         []ScrapeResult `json:"results"`
	Error           string         `json:"error,omitempty"`
}

// ScrapedChunk is one token-bounded piece of a scraped page. Source records
// provenance only.
type ScrapedChunk struct {
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

type DepressionRequest struct {
	Age               int    `json:"Age"`
	AcademicPressure  int    `json:"Academic_Pressure"`
	StudySatisfaction int    `json:"Study_Satisfaction"`
	WorkStudyHours    int    `json:"Work_Study_Hours"`
	FinancialStress   int    `json:"Financial_Stress"`
	SleepDuration     string `json:"Sleep_Duration"`
	DietaryHabits     string `json:"Dietary_Habits"`
	SuicidalThoughts  string `json:"Suicidal_Thoughts"`
}

type RiskRecommendation struct {
	Message   string   `json:"message"`
	Level     string   `json:"level"`
	Resources []string `json:"resources"`
}

type DepressionResponse struct {
	DepressionProbability float64            `json:"depression_probability"`
	PredictionMessage     string             `json:"prediction_message"`
	Recommendations       RiskRecommendation `json:"recommendations"`
}

type EmotionProbability struct {
	Emotion     string  `json:"emotion"`
	Emoji       string  `json:"emoji"`
	Probability float64 `json:"probability"`
}

type VoiceEmotionResponse struct {
	Emotion          string               `json:"emotion"`
	Emoji            string               `json:"emoji"`
	Description      string               `json:"description"`
	Confidence       float64              `json:"confidence"`
	AllProbabilities map[string]float64   `json:"all_probabilities"`
	TopEmotions      []EmotionProbability `json:"top_emotions"`
}
