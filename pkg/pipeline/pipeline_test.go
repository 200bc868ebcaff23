package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"emotion-backend/pkg/embed"
	"emotion-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	links []string
	err   error
	gotN  int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, n int) ([]string, error) {
	f.gotN = n
	return f.links, f.err
}

// querySearcher returns the query itself as the only link.
type querySearcher struct{}

func (querySearcher) Search(_ context.Context, query string, _ int) ([]string, error) {
	return []string{query}, nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	failing map[string]bool
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.failing[url] {
		return "", errors.New("connection refused")
	}
	return f.pages[url], nil
}

// byteTokenizer treats every byte as a token so chunk sizes are easy to
// reason about.
type byteTokenizer struct{}

func (byteTokenizer) Encode(text string) []int {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out
}

func (byteTokenizer) Decode(tokens []int) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = byte(t)
	}
	return string(b)
}

// flakyEmbedder fails for any text containing "FAIL".
type flakyEmbedder struct {
	inner embed.Embedder
	all   bool
}

func (f flakyEmbedder) Dimension() int { return f.inner.Dimension() }

func (f flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.all || strings.Contains(text, "FAIL") {
		return nil, errors.New("embedding backend down")
	}
	return f.inner.Embed(ctx, text)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MaxTokensPerChunk = 64
	return opts
}

func newTestPipeline(s LinkSearcher, f PageFetcher, e embed.Embedder) *Pipeline {
	return New(s, f, byteTokenizer{}, e, testOptions())
}

func TestRunNoSearchResults(t *testing.T) {
	for name, s := range map[string]*fakeSearcher{
		"empty":  {},
		"failed": {err: errors.New("quota exceeded")},
	} {
		t.Run(name, func(t *testing.T) {
			p := newTestPipeline(s, &fakeFetcher{}, embed.NewHashing(32))
			resp, err := p.Run(context.Background(), "anxiety tips", "")
			require.ErrorIs(t, err, models.ErrPipelineExhausted)
			assert.Equal(t, MsgNoSearchResults, resp.Error)
			assert.Empty(t, resp.Results)
			assert.NotNil(t, resp.Results)
			assert.Zero(t, resp.TotalLinksFound)
		})
	}
}

func TestRunNoReadablePages(t *testing.T) {
	s := &fakeSearcher{links: []string{"a", "b", "c"}}
	f := &fakeFetcher{
		pages:   map[string]string{"b": "   "},
		failing: map[string]bool{"a": true},
	}
	p := newTestPipeline(s, f, embed.NewHashing(32))

	resp, err := p.Run(context.Background(), "q", "")
	require.ErrorIs(t, err, models.ErrPipelineExhausted)
	assert.Equal(t, MsgNoPages, resp.Error)
	assert.Zero(t, resp.PagesScraped)
	assert.Zero(t, resp.TotalLinksFound)
	assert.Empty(t, resp.Results)
}

func TestRunHappyPath(t *testing.T) {
	links := []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7"}
	s := &fakeSearcher{links: links}
	f := &fakeFetcher{
		pages: map[string]string{
			"l1": "Breathing exercises help calm anxiety before exams.",
			"l2": "Sleep hygiene matters: keep a regular sleep schedule every night and rest well.",
			"l3": "",
			"l5": "Quarterly earnings beat analyst expectations in the tech sector.",
			"l6": "never fetched",
		},
		failing: map[string]bool{"l4": true},
	}
	p := newTestPipeline(s, f, embed.NewHashing(128))

	resp, err := p.Run(context.Background(), "how to calm anxiety", "")
	require.NoError(t, err)

	assert.Equal(t, 10, s.gotN)
	assert.ElementsMatch(t, links[:5], f.calls)
	assert.Equal(t, "how to calm anxiety", resp.Query)
	assert.Equal(t, 7, resp.TotalLinksFound)
	assert.Equal(t, 3, resp.PagesScraped)
	assert.Equal(t, 4, resp.TotalChunks) // l2 spans two chunks
	assert.Empty(t, resp.Error)

	require.Len(t, resp.Results, 4)
	assert.Equal(t, "l1", resp.Results[0].Source)
	for _, r := range resp.Results {
		assert.NotEqual(t, "l6", r.Source)
	}
}

func TestRunRetrievalQueryOverridesSearchQuery(t *testing.T) {
	s := &fakeSearcher{links: []string{"a", "b"}}
	f := &fakeFetcher{pages: map[string]string{
		"a": "tips for better sleep at night",
		"b": "ways to calm anxiety quickly",
	}}
	p := newTestPipeline(s, f, embed.NewHashing(128))

	resp, err := p.Run(context.Background(), "mental health", "calm anxiety quickly")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "b", resp.Results[0].Source)
	assert.Equal(t, "mental health", resp.Query)
}

func TestRunTopKLimitsResults(t *testing.T) {
	s := &fakeSearcher{links: []string{"a"}}
	f := &fakeFetcher{pages: map[string]string{"a": strings.Repeat("word ", 100)}}
	p := newTestPipeline(s, f, embed.NewHashing(32))

	resp, err := p.Run(context.Background(), "word", "")
	require.NoError(t, err)
	assert.Equal(t, 8, resp.TotalChunks)
	assert.Len(t, resp.Results, 5)
}

func TestRunDropsFailedEmbeddings(t *testing.T) {
	s := &fakeSearcher{links: []string{"a", "b"}}
	f := &fakeFetcher{pages: map[string]string{
		"a": "FAIL this chunk",
		"b": "keep this chunk",
	}}
	p := newTestPipeline(s, f, flakyEmbedder{inner: embed.NewHashing(32)})

	resp, err := p.Run(context.Background(), "chunk", "")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.PagesScraped)
	assert.Equal(t, 1, resp.TotalChunks)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "b", resp.Results[0].Source)
}

func TestRunNoEmbeddingsYieldsEmptyResults(t *testing.T) {
	s := &fakeSearcher{links: []string{"a"}}
	f := &fakeFetcher{pages: map[string]string{"a": "some text"}}
	p := newTestPipeline(s, f, flakyEmbedder{inner: embed.NewHashing(32), all: true})

	resp, err := p.Run(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PagesScraped)
	assert.Zero(t, resp.TotalChunks)
	assert.Empty(t, resp.Results)
	assert.Empty(t, resp.Error)
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"red":  "all about red",
		"blue": "all about blue",
	}}
	p := newTestPipeline(querySearcher{}, f, embed.NewHashing(32))

	var wg sync.WaitGroup
	errs := make(chan error, 2*10*6)

	for i := 0; i < 10; i++ {
		for _, topic := range []string{"red", "blue"} {
			wg.Add(1)
			go func(topic string) {
				defer wg.Done()
				resp, err := p.Run(context.Background(), topic, "")
				if err != nil {
					errs <- err
					return
				}
				if len(resp.Results) == 0 {
					errs <- fmt.Errorf("run for %s returned no results", topic)
				}
				for _, r := range resp.Results {
					if r.Source != topic {
						errs <- fmt.Errorf("run for %s saw result from %s", topic, r.Source)
					}
				}
			}(topic)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRunIndexedKeepsOrder(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	out := runIndexed(context.Background(), 4, items, func(_ context.Context, v int) int { return v * v })
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}

	assert.Empty(t, runIndexed(context.Background(), 4, []int{}, func(context.Context, int) int { return 0 }))
}

func TestRunIndexedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := runIndexed(ctx, 2, make([]int, 100), func(context.Context, int) int { return 1 })
	assert.Len(t, out, 100)
}
