// Package pipeline implements the scrape-and-retrieve flow behind /scrape:
// search for links, extract page text, chunk it, embed the chunks, build a
// request-scoped vector index and query it.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emotion-backend/pkg/embed"
	"emotion-backend/pkg/logging"
	"emotion-backend/pkg/metrics"
	"emotion-backend/pkg/models"
	"emotion-backend/pkg/textproc"

	"github.com/rs/zerolog"
)

// Stage names the last step a run completed.
type Stage string

const (
	StageLinksRetrieved Stage = "links_retrieved"
	StagePagesExtracted Stage = "pages_extracted"
	StageChunked        Stage = "chunked"
	StageEmbedded       Stage = "embedded"
	StageIndexed        Stage = "indexed"
	StageQueried        Stage = "queried"
)

const (
	MsgNoSearchResults = "No search results found"
	MsgNoPages         = "Could not extract data from any links"
)

type Options struct {
	SearchResultCount  int
	MaxResultsToScrape int
	MaxTokensPerChunk  int
	TopK               int
	Workers            int
}

func DefaultOptions() Options {
	return Options{
		SearchResultCount:  10,
		MaxResultsToScrape: 5,
		MaxTokensPerChunk:  textproc.DefaultMaxTokens,
		TopK:               5,
		Workers:            5,
	}
}

type Pipeline struct {
	searcher  LinkSearcher
	fetcher   PageFetcher
	tokenizer textproc.Tokenizer
	embedder  embed.Embedder
	opts      Options
	log       zerolog.Logger
}

func New(searcher LinkSearcher, fetcher PageFetcher, tokenizer textproc.Tokenizer, embedder embed.Embedder, opts Options) *Pipeline {
	return &Pipeline{
		searcher:  searcher,
		fetcher:   fetcher,
		tokenizer: tokenizer,
		embedder:  embedder,
		opts:      opts,
		log:       logging.Component("pipeline"),
	}
}

// Run executes every stage for one request. Per-item failures are logged and
// skipped. When no links or no readable pages are found the returned
// response carries the reason in Error with zero counts, and the error wraps
// models.ErrPipelineExhausted.
func (p *Pipeline) Run(ctx context.Context, query, retrievalQuery string) (*models.ScrapeResponse, error) {
	resp := &models.ScrapeResponse{Query: query, Results: []models.ScrapeResult{}}
	log := p.log.With().Str("query", query).Logger()

	var links []string
	p.timed(StageLinksRetrieved, func() { links = p.retrieveLinks(ctx, query) })
	log.Info().Int("links", len(links)).Msg("links retrieved")
	if len(links) == 0 {
		resp.Error = MsgNoSearchResults
		return resp, fmt.Errorf("%w: %s", models.ErrPipelineExhausted, MsgNoSearchResults)
	}

	var pages []page
	p.timed(StagePagesExtracted, func() { pages = p.extractPages(ctx, links) })
	log.Info().Int("pages", len(pages)).Msg("pages extracted")
	if len(pages) == 0 {
		resp.Error = MsgNoPages
		return resp, fmt.Errorf("%w: %s", models.ErrPipelineExhausted, MsgNoPages)
	}

	var chunks []models.ScrapedChunk
	p.timed(StageChunked, func() { chunks = p.chunkPages(pages) })

	var embedded []models.ScrapedChunk
	p.timed(StageEmbedded, func() { embedded = p.embedChunks(ctx, chunks) })
	log.Info().Int("chunks", len(chunks)).Int("embedded", len(embedded)).Msg("chunks embedded")

	var store *chunkStore
	var err error
	p.timed(StageIndexed, func() { store, err = newChunkStore(embedded) })
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	if strings.TrimSpace(retrievalQuery) == "" {
		retrievalQuery = query
	}
	var results []models.ScrapeResult
	p.timed(StageQueried, func() { results = p.queryStore(ctx, store, retrievalQuery) })

	resp.TotalLinksFound = len(links)
	resp.PagesScraped = len(pages)
	resp.TotalChunks = len(embedded)
	resp.Results = results
	return resp, nil
}

func (p *Pipeline) timed(stage Stage, fn func()) {
	start := time.Now()
	fn()
	metrics.PipelineStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}
