package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"emotion-backend/pkg/emotion"
	"emotion-backend/pkg/models"
	"emotion-backend/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	label string
	err   error
}

func (s stubClassifier) Classify(context.Context, string) (string, error) {
	return s.label, s.err
}

type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

type stubRecommender struct {
	queries []string
	videos  []models.VideoRecommendation
	err     error
}

func (r *stubRecommender) Search(_ context.Context, query string, n int) ([]models.VideoRecommendation, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	if len(r.videos) > n {
		return r.videos[:n], nil
	}
	return r.videos, nil
}

func newService(cls emotion.Classifier, gen Generator, rec Recommender) *Service {
	return NewService(
		storage.NewMemoryStore(0),
		emotion.NewController(cls, emotion.DefaultThreshold, 0),
		gen, rec, DefaultOptions(),
	)
}

func TestBuildPrompt(t *testing.T) {
	recent := []models.Turn{
		{User: "hi", Assistant: "hello"},
		{User: "rough day", Assistant: "I'm sorry"},
	}
	p := BuildPrompt("sadness", recent, "it got worse")

	assert.True(t, strings.HasPrefix(p, "You are an emotionally intelligent AI assistant. The user is currently feeling sadness.\n\nYour communication style should be soft, comforting"))
	assert.True(t, strings.HasSuffix(p, "emotional state.\n\nRecent conversation:\nUser: hi\nAssistant: hello\nUser: rough day\nAssistant: I'm sorry\n\nUser: it got worse\nAssistant:"))
}

func TestBuildPromptWithoutHistory(t *testing.T) {
	p := BuildPrompt("neutral", nil, "hey")
	assert.NotContains(t, p, "Recent conversation")
	assert.True(t, strings.HasSuffix(p, "emotional state.\n\n\nUser: hey\nAssistant:"))
}

func TestToneAndQueryFallbacks(t *testing.T) {
	assert.Equal(t, Tone("neutral"), Tone("boredom"))
	assert.Equal(t, "calming relaxing videos", VideoQuery("anger"))
	assert.Equal(t, "inspirational videos", VideoQuery("boredom"))
}

func TestTurnCadenceAndCounters(t *testing.T) {
	gen := &recordingGenerator{reply: "  sure thing  "}
	rec := &stubRecommender{videos: []models.VideoRecommendation{{VideoID: "a"}, {VideoID: "b"}, {VideoID: "c"}, {VideoID: "d"}}}
	svc := newService(stubClassifier{label: "joy"}, gen, rec)
	ctx := context.Background()

	first, err := svc.Turn(ctx, "", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "neutral", first.Emotion)
	assert.False(t, first.EmotionUpdated)
	assert.Equal(t, 1, first.MessageCount)
	assert.Equal(t, "sure thing", first.Response)
	assert.Len(t, first.VideoRecommendations, 3)

	second, err := svc.Turn(ctx, first.SessionID, "still here")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 2, second.MessageCount)
	assert.False(t, second.EmotionUpdated)

	third, err := svc.Turn(ctx, first.SessionID, "great news!")
	require.NoError(t, err)
	assert.Equal(t, "joy", third.Emotion)
	assert.True(t, third.EmotionUpdated)
	assert.Equal(t, 1, third.MessageCount)

	assert.Equal(t, []string{"inspirational videos", "inspirational videos", "happy uplifting videos"}, rec.queries)

	// the third prompt carries both earlier turns
	require.Len(t, gen.prompts, 3)
	assert.Contains(t, gen.prompts[2], "User: hello\nAssistant: sure thing\nUser: still here\nAssistant: sure thing\n")
	assert.Contains(t, gen.prompts[2], "currently feeling joy")

	hist, err := svc.History(first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "joy", hist.CurrentEmotion)
	assert.Equal(t, 1, hist.MessageCount)
	require.Len(t, hist.History, 3)
	assert.Equal(t, "neutral", hist.History[0].Emotion)
	assert.Equal(t, "joy", hist.History[2].Emotion)
}

func TestTurnPromptUsesLastThreeTurns(t *testing.T) {
	gen := &recordingGenerator{reply: "ok"}
	svc := newService(stubClassifier{label: "joy"}, gen, &stubRecommender{})
	ctx := context.Background()

	resp, err := svc.Turn(ctx, "", "m1")
	require.NoError(t, err)
	for _, m := range []string{"m2", "m3", "m4", "m5"} {
		_, err := svc.Turn(ctx, resp.SessionID, m)
		require.NoError(t, err)
	}

	last := gen.prompts[len(gen.prompts)-1]
	assert.NotContains(t, last, "User: m1\n")
	assert.Contains(t, last, "User: m2\nAssistant: ok\nUser: m3\nAssistant: ok\nUser: m4\nAssistant: ok\n\nUser: m5\nAssistant:")
}

func TestTurnFallbacks(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("quota")}
	rec := &stubRecommender{err: errors.New("forbidden")}
	svc := newService(stubClassifier{err: errors.New("down")}, gen, rec)

	resp, err := svc.Turn(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, Apology, resp.Response)
	assert.Equal(t, FallbackVideos(), resp.VideoRecommendations)
	assert.Equal(t, "dQw4w9WgXcQ", resp.VideoRecommendations[0].VideoID)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/mqdefault.jpg", resp.VideoRecommendations[0].Thumbnail)
}

func TestTurnEmptyReplyUsesApology(t *testing.T) {
	svc := newService(nil, &recordingGenerator{reply: "   "}, nil)

	resp, err := svc.Turn(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, Apology, resp.Response)
	assert.Len(t, resp.VideoRecommendations, 1)
}

func TestTurnRejectsBlankMessage(t *testing.T) {
	svc := newService(nil, nil, nil)
	_, err := svc.Turn(context.Background(), "", "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestHistoryAndDeleteNotFound(t *testing.T) {
	svc := newService(nil, nil, nil)

	_, err := svc.History("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete("missing"), models.ErrNotFound)

	resp, err := svc.Turn(context.Background(), "", "hi")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(resp.SessionID))
	_, err = svc.History(resp.SessionID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConcurrentTurnsSameSession(t *testing.T) {
	gen := &recordingGenerator{reply: "ok"}
	svc := newService(stubClassifier{label: "fear"}, gen, &stubRecommender{})
	ctx := context.Background()

	first, err := svc.Turn(ctx, "", "start")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Turn(ctx, first.SessionID, "again")
		}()
	}
	wg.Wait()

	hist, err := svc.History(first.SessionID)
	require.NoError(t, err)
	assert.Len(t, hist.History, n+1)
	// 51 turns: detections on turns 3, 6, ..., 51, leaving the counter at 1
	assert.Equal(t, 1, hist.MessageCount)
}
