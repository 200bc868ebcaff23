// Package chat runs a single conversational turn: emotion cadence, reply
// generation, media recommendation and history bookkeeping.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"emotion-backend/pkg/emotion"
	"emotion-backend/pkg/logging"
	"emotion-backend/pkg/metrics"
	"emotion-backend/pkg/models"
	"emotion-backend/pkg/storage"

	"github.com/rs/zerolog"
)

// Generator produces a reply for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recommender finds videos for a search query.
type Recommender interface {
	Search(ctx context.Context, query string, n int) ([]models.VideoRecommendation, error)
}

type Options struct {
	// HistoryWindow is the number of most recent turns included in the prompt.
	HistoryWindow    int
	MaxVideos        int
	GenerateTimeout  time.Duration
	RecommendTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		HistoryWindow:    3,
		MaxVideos:        3,
		GenerateTimeout:  30 * time.Second,
		RecommendTimeout: 10 * time.Second,
	}
}

type Service struct {
	store       storage.SessionStore
	controller  *emotion.Controller
	generator   Generator
	recommender Recommender
	opts        Options
	log         zerolog.Logger
}

// NewService wires a chat service. A nil generator or recommender behaves
// like a failing one.
func NewService(store storage.SessionStore, controller *emotion.Controller, generator Generator, recommender Recommender, opts Options) *Service {
	return &Service{
		store:       store,
		controller:  controller,
		generator:   generator,
		recommender: recommender,
		opts:        opts,
		log:         logging.Component("chat"),
	}
}

// Turn processes one user message. The session lock is held for the whole
// turn so concurrent messages on one session are applied in sequence.
func (s *Service) Turn(ctx context.Context, sessionID, message string) (*models.ChatResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", models.ErrInvalidInput)
	}

	var resp *models.ChatResponse
	id, err := s.store.WithSession(sessionID, func(sess *models.Session) error {
		label, updated := s.controller.Resolve(ctx, sess, message)

		prompt := BuildPrompt(label, sess.RecentTurns(s.opts.HistoryWindow), message)
		reply := s.generate(ctx, prompt)
		videos := s.recommend(ctx, label)

		sess.AppendTurn(models.Turn{
			User:      message,
			Assistant: reply,
			Emotion:   label,
			Timestamp: time.Now(),
		})
		sess.TurnsSinceLastDetection++

		resp = &models.ChatResponse{
			Response:             reply,
			Emotion:              label,
			VideoRecommendations: videos,
			MessageCount:         sess.TurnsSinceLastDetection,
			SessionID:            sess.ID,
			EmotionUpdated:       updated,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ActiveSessions.Set(float64(s.store.Len()))
	s.log.Debug().Str("session_id", id).Str("emotion", resp.Emotion).Bool("emotion_updated", resp.EmotionUpdated).Msg("turn complete")
	return resp, nil
}

func (s *Service) generate(ctx context.Context, prompt string) string {
	if s.generator == nil {
		return Apology
	}
	ctx, cancel := withTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()

	reply, err := s.generator.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("response generation failed")
		metrics.ExternalFailures.WithLabelValues("generator").Inc()
		return Apology
	}
	return strings.TrimSpace(reply)
}

func (s *Service) recommend(ctx context.Context, label string) []models.VideoRecommendation {
	if s.recommender == nil {
		return FallbackVideos()
	}
	ctx, cancel := withTimeout(ctx, s.opts.RecommendTimeout)
	defer cancel()

	videos, err := s.recommender.Search(ctx, VideoQuery(label), s.opts.MaxVideos)
	if err != nil {
		s.log.Warn().Err(err).Str("emotion", label).Msg("video search failed")
		metrics.ExternalFailures.WithLabelValues("media").Inc()
		return FallbackVideos()
	}
	if videos == nil {
		videos = []models.VideoRecommendation{}
	}
	return videos
}

// History returns a copy of the session's state.
func (s *Service) History(id string) (*models.HistoryResponse, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &models.HistoryResponse{
		SessionID:      sess.ID,
		CurrentEmotion: sess.LastEmotion,
		MessageCount:   sess.TurnsSinceLastDetection,
		History:        sess.History,
	}, nil
}

func (s *Service) Delete(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	metrics.ActiveSessions.Set(float64(s.store.Len()))
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
