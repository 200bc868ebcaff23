package pipeline

import (
	"context"
	"strings"

	"emotion-backend/pkg/metrics"
	"emotion-backend/pkg/models"
	"emotion-backend/pkg/textproc"
	"emotion-backend/pkg/vecindex"
)

type page struct {
	link string
	text string
}

func (p *Pipeline) retrieveLinks(ctx context.Context, query string) []string {
	links, err := p.searcher.Search(ctx, query, p.opts.SearchResultCount)
	if err != nil {
		p.log.Error().Err(err).Msg("link search failed")
		metrics.ExternalFailures.WithLabelValues("search").Inc()
		return nil
	}
	return links
}

func (p *Pipeline) extractPages(ctx context.Context, links []string) []page {
	if len(links) > p.opts.MaxResultsToScrape {
		links = links[:p.opts.MaxResultsToScrape]
	}

	fetched := runIndexed(ctx, p.opts.Workers, links, func(ctx context.Context, link string) page {
		p.log.Debug().Str("url", link).Msg("scraping")
		text, err := p.fetcher.Fetch(ctx, link)
		if err != nil {
			p.log.Warn().Err(err).Str("url", link).Msg("page fetch failed")
			return page{link: link}
		}
		return page{link: link, text: strings.TrimSpace(text)}
	})

	pages := make([]page, 0, len(fetched))
	for _, pg := range fetched {
		if pg.text == "" {
			metrics.PipelineItemsDropped.WithLabelValues(string(StagePagesExtracted)).Inc()
			continue
		}
		pages = append(pages, pg)
	}
	return pages
}

func (p *Pipeline) chunkPages(pages []page) []models.ScrapedChunk {
	var chunks []models.ScrapedChunk
	for _, pg := range pages {
		for _, text := range textproc.Chunk(p.tokenizer, pg.text, p.opts.MaxTokensPerChunk) {
			if strings.TrimSpace(text) == "" {
				metrics.PipelineItemsDropped.WithLabelValues(string(StageChunked)).Inc()
				continue
			}
			chunks = append(chunks, models.ScrapedChunk{Source: pg.link, Text: text})
		}
	}
	return chunks
}

// embedChunks embeds each chunk on its own so one failure drops only that
// chunk.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []models.ScrapedChunk) []models.ScrapedChunk {
	vectors := runIndexed(ctx, p.opts.Workers, chunks, func(ctx context.Context, c models.ScrapedChunk) []float32 {
		vec, err := p.embedder.Embed(ctx, c.Text)
		if err != nil {
			p.log.Warn().Err(err).Str("source", c.Source).Msg("chunk embedding failed")
			return nil
		}
		return vec
	})

	out := make([]models.ScrapedChunk, 0, len(chunks))
	for i, vec := range vectors {
		if vec == nil {
			metrics.PipelineItemsDropped.WithLabelValues(string(StageEmbedded)).Inc()
			continue
		}
		c := chunks[i]
		c.Embedding = vec
		out = append(out, c)
	}
	return out
}

// chunkStore pairs a flat index with the chunks it was built from. It lives
// only for the request that built it.
type chunkStore struct {
	index  *vecindex.Flat
	chunks []models.ScrapedChunk
}

func newChunkStore(chunks []models.ScrapedChunk) (*chunkStore, error) {
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i] = c.Embedding
	}
	idx, err := vecindex.Build(vectors)
	if err != nil {
		return nil, err
	}
	return &chunkStore{index: idx, chunks: chunks}, nil
}

func (p *Pipeline) queryStore(ctx context.Context, store *chunkStore, query string) []models.ScrapeResult {
	results := []models.ScrapeResult{}
	if store.index.Len() == 0 {
		return results
	}

	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		p.log.Error().Err(err).Msg("query embedding failed")
		return results
	}

	matches, err := store.index.Query(vec, p.opts.TopK)
	if err != nil {
		p.log.Error().Err(err).Msg("index query failed")
		return results
	}
	for _, m := range matches {
		c := store.chunks[m.Ref]
		results = append(results, models.ScrapeResult{Text: c.Text, Source: c.Source})
	}
	return results
}
