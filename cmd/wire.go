package main

import (
	"context"
	"net/http"

	"emotion-backend/pkg/audio"
	"emotion-backend/pkg/chat"
	"emotion-backend/pkg/clients"
	"emotion-backend/pkg/config"
	"emotion-backend/pkg/embed"
	"emotion-backend/pkg/emotion"
	"emotion-backend/pkg/pipeline"
	"emotion-backend/pkg/risk"
	"emotion-backend/pkg/storage"
	"emotion-backend/pkg/textproc"
	"emotion-backend/pkg/voice"

	"github.com/rs/zerolog/log"
)

func openCache(cfg *config.Config) (storage.EmbeddingCache, error) {
	return storage.NewEmbeddingCache(cfg.StoragePath)
}

// buildChat wires the chat service. Missing credentials leave the matching
// collaborator unset so turns fall back to the canned reply or video.
func buildChat(ctx context.Context, cfg *config.Config) *chat.Service {
	var classifier emotion.Classifier
	if cfg.Emotion.URL != "" {
		classifier = clients.NewHFEmotion(cfg.Emotion.URL, cfg.Emotion.Token, cfg.Emotion.Timeout)
	}

	var generator chat.Generator
	if g, err := clients.NewGemini(ctx, cfg.Generator.APIKey, cfg.Generator.Model, ""); err != nil {
		log.Warn().Err(err).Msg("response generation disabled")
	} else {
		generator = g
	}

	var recommender chat.Recommender
	if y, err := clients.NewYouTube(ctx, cfg.Media.APIKey, ""); err != nil {
		log.Warn().Err(err).Msg("video recommendations disabled")
	} else {
		recommender = y
	}

	opts := chat.DefaultOptions()
	opts.HistoryWindow = cfg.Session.HistoryWindow
	opts.MaxVideos = cfg.Media.MaxResults
	opts.GenerateTimeout = cfg.Generator.Timeout
	opts.RecommendTimeout = cfg.Media.Timeout

	return chat.NewService(
		storage.NewMemoryStore(cfg.Session.MaxHistory),
		emotion.NewController(classifier, cfg.Session.DetectionThreshold, cfg.Emotion.Timeout),
		generator,
		recommender,
		opts,
	)
}

func buildEmbedder(cfg *config.Config, cache storage.EmbeddingCache) embed.Embedder {
	var inner embed.Embedder
	model := cfg.Embedding.Model
	if cfg.Embedding.APIKey != "" {
		opts := []embed.Option{
			embed.WithModel(cfg.Embedding.Model),
			embed.WithDimension(cfg.Embedding.Dimension),
			embed.WithHTTPClient(&http.Client{Timeout: cfg.Embedding.Timeout}),
		}
		if cfg.Embedding.BaseURL != "" {
			opts = append(opts, embed.WithBaseURL(cfg.Embedding.BaseURL))
		}
		inner = embed.NewOpenAI(cfg.Embedding.APIKey, opts...)
	} else {
		log.Warn().Msg("no embedding api key, using local hashing embedder")
		inner = embed.NewHashing(cfg.Embedding.Dimension)
		model = "hashing"
	}
	return embed.NewCached(inner, cache, model)
}

func buildPipeline(cfg *config.Config, cache storage.EmbeddingCache) (*pipeline.Pipeline, error) {
	tok, err := textproc.NewTiktoken(cfg.Scrape.Encoding)
	if err != nil {
		return nil, err
	}
	if cfg.Scrape.SerpAPIKey == "" {
		log.Warn().Msg("SERPAPI_KEY not set, every scrape will find no results")
	}

	opts := pipeline.Options{
		SearchResultCount:  cfg.Scrape.SearchResultCount,
		MaxResultsToScrape: cfg.Scrape.MaxResultsToScrape,
		MaxTokensPerChunk:  cfg.Scrape.MaxTokensPerChunk,
		TopK:               cfg.Scrape.TopK,
		Workers:            cfg.Scrape.FetchWorkers,
	}
	return pipeline.New(
		pipeline.NewSerpAPI(cfg.Scrape.SerpAPIKey, cfg.Scrape.SearchURL, cfg.Scrape.SearchTimeout),
		pipeline.NewHTTPFetcher(cfg.Scrape.FetchTimeout, cfg.Scrape.PageCacheSize, cfg.Scrape.PageCacheTTL),
		tok,
		buildEmbedder(cfg, cache),
		opts,
	), nil
}

// buildVoice loads the voice model once. A missing model is logged and the
// predictor answers every call with models.ErrModelUnavailable.
func buildVoice(cfg *config.Config) (*voice.Predictor, error) {
	extractor, err := audio.NewExtractor(audio.NewFFmpeg(cfg.Voice.FFmpegPath, cfg.Voice.TranscodeTimeout), cfg.Voice.TempDir)
	if err != nil {
		return nil, err
	}
	model, err := voice.Load(cfg.Voice.ModelPath)
	if err != nil {
		log.Error().Err(err).Msg("voice emotion model unavailable")
	}
	return voice.NewPredictor(extractor, model), nil
}

func buildRisk(cfg *config.Config) *risk.Predictor {
	p, err := risk.Load(cfg.Risk.ModelPath, cfg.Risk.PreprocessorPath)
	if err != nil {
		log.Error().Err(err).Msg("depression risk model unavailable")
	}
	return p
}
