package emotion

import (
	"context"
	"time"

	"emotion-backend/pkg/logging"
	"emotion-backend/pkg/metrics"
	"emotion-backend/pkg/models"

	"github.com/rs/zerolog"
)

// DefaultThreshold is the pre-turn counter value at which detection reruns.
// With the counter incremented after every turn this detects on turns 3, 6,
// 9 and so on.
const DefaultThreshold = 2

// Controller throttles text emotion detection per session.
type Controller struct {
	classifier Classifier
	threshold  int
	timeout    time.Duration
	log        zerolog.Logger
}

func NewController(classifier Classifier, threshold int, timeout time.Duration) *Controller {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Controller{
		classifier: classifier,
		threshold:  threshold,
		timeout:    timeout,
		log:        logging.Component("emotion"),
	}
}

// Resolve returns the emotion for the current turn and whether it was
// recomputed. When the session's counter has reached the threshold the
// classifier runs, the label is stored and the counter resets to zero.
// Otherwise the stored label is reused untouched. A classifier failure
// yields models.DefaultEmotion; it is never returned to the caller.
//
// The caller must hold the session lock and increment
// TurnsSinceLastDetection once the turn completes.
func (c *Controller) Resolve(ctx context.Context, s *models.Session, text string) (string, bool) {
	if s.TurnsSinceLastDetection < c.threshold {
		return s.LastEmotion, false
	}

	label := c.detect(ctx, text)
	s.LastEmotion = label
	s.TurnsSinceLastDetection = 0
	metrics.EmotionDetections.WithLabelValues(label).Inc()
	return label, true
}

func (c *Controller) detect(ctx context.Context, text string) string {
	if c.classifier == nil {
		return models.DefaultEmotion
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	label, err := c.classifier.Classify(ctx, text)
	if err != nil {
		c.log.Warn().Err(err).Msg("emotion detection failed, using neutral")
		metrics.ExternalFailures.WithLabelValues("emotion").Inc()
		return models.DefaultEmotion
	}
	return Normalize(label)
}
