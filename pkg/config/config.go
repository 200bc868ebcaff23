package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Log         LogConfig       `yaml:"log"`
	Session     SessionConfig   `yaml:"session"`
	Emotion     EmotionConfig   `yaml:"emotion"`
	Generator   GeneratorConfig `yaml:"generator"`
	Media       MediaConfig     `yaml:"media"`
	Scrape      ScrapeConfig    `yaml:"scrape"`
	Embedding   EmbeddingConfig `yaml:"embedding"`
	Voice       VoiceConfig     `yaml:"voice"`
	Risk        RiskConfig      `yaml:"risk"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`

	// StoragePath is the badger directory for the embedding cache. Empty keeps
	// the cache in memory.
	StoragePath string `yaml:"storage_path"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type SessionConfig struct {
	// DetectionThreshold is the pre-turn counter value at which text emotion
	// detection runs again.
	DetectionThreshold int `yaml:"detection_threshold"`
	HistoryWindow      int `yaml:"history_window"`
	MaxHistory         int `yaml:"max_history"`
}

type EmotionConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
}

type GeneratorConfig struct {
	APIKey  string        `yaml:"-"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type MediaConfig struct {
	APIKey     string        `yaml:"-"`
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ScrapeConfig struct {
	SerpAPIKey         string        `yaml:"-"`
	SearchURL          string        `yaml:"search_url"`
	SearchResultCount  int           `yaml:"search_result_count"`
	MaxResultsToScrape int           `yaml:"max_results_to_scrape"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
	SearchTimeout      time.Duration `yaml:"search_timeout"`
	FetchWorkers       int           `yaml:"fetch_workers"`
	MaxTokensPerChunk  int           `yaml:"max_tokens_per_chunk"`
	TopK               int           `yaml:"top_k"`
	Encoding           string        `yaml:"encoding"`
	PageCacheSize      int           `yaml:"page_cache_size"`
	PageCacheTTL       time.Duration `yaml:"page_cache_ttl"`
}

type EmbeddingConfig struct {
	APIKey    string        `yaml:"-"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

type VoiceConfig struct {
	ModelPath        string        `yaml:"model_path"`
	TempDir          string        `yaml:"temp_dir"`
	FFmpegPath       string        `yaml:"ffmpeg_path"`
	TranscodeTimeout time.Duration `yaml:"transcode_timeout"`
}

type RiskConfig struct {
	ModelPath        string `yaml:"model_path"`
	PreprocessorPath string `yaml:"preprocessor_path"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`

	// TrustedProxies are CIDRs or addresses allowed to set X-Forwarded-For.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Log: LogConfig{Level: "info"},
		Session: SessionConfig{
			DetectionThreshold: 2,
			HistoryWindow:      3,
		},
		Emotion: EmotionConfig{
			URL:     "https://api-inference.huggingface.co/models/bhadresh-savani/distilbert-base-uncased-emotion",
			Timeout: 15 * time.Second,
		},
		Generator: GeneratorConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 30 * time.Second,
		},
		Media: MediaConfig{
			MaxResults: 3,
			Timeout:    10 * time.Second,
		},
		Scrape: ScrapeConfig{
			SearchURL:          "https://serpapi.com/search.json",
			SearchResultCount:  10,
			MaxResultsToScrape: 5,
			FetchTimeout:       10 * time.Second,
			SearchTimeout:      20 * time.Second,
			FetchWorkers:       5,
			MaxTokensPerChunk:  512,
			TopK:               5,
			Encoding:           "cl100k_base",
			PageCacheSize:      128,
			PageCacheTTL:       15 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 384,
			Timeout:   30 * time.Second,
		},
		Voice: VoiceConfig{
			ModelPath:        "voice_cnn.msgpack",
			FFmpegPath:       "ffmpeg",
			TranscodeTimeout: 30 * time.Second,
		},
		Risk: RiskConfig{
			ModelPath:        "depression_model.msgpack",
			PreprocessorPath: "depression_preprocessor.yaml",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			Burst:             20,
		},
		StoragePath: "",
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and the process environment, in that order.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Address, "SERVER_ADDRESS")
	setString(&c.Log.Level, "LOG_LEVEL")
	setBool(&c.Log.Pretty, "LOG_PRETTY")
	setString(&c.Emotion.URL, "EMOTION_API_URL")
	setString(&c.Emotion.Token, "EMOTION_API_TOKEN")
	setString(&c.Generator.APIKey, "GEMINI_API_KEY")
	setString(&c.Generator.Model, "GEMINI_MODEL")
	setString(&c.Media.APIKey, "YOUTUBE_API_KEY")
	setString(&c.Scrape.SerpAPIKey, "SERPAPI_KEY")
	setInt(&c.Scrape.MaxResultsToScrape, "MAX_RESULTS_TO_SCRAPE")
	setInt(&c.Scrape.MaxTokensPerChunk, "MAX_TOKENS_PER_CHUNK")
	setString(&c.Embedding.APIKey, "EMBEDDING_API_KEY")
	setString(&c.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.Voice.ModelPath, "VOICE_MODEL_PATH")
	setString(&c.Voice.TempDir, "VOICE_TEMP_DIR")
	setString(&c.Voice.FFmpegPath, "FFMPEG_PATH")
	setString(&c.Risk.ModelPath, "RISK_MODEL_PATH")
	setString(&c.Risk.PreprocessorPath, "RISK_PREPROCESSOR_PATH")
	setInt(&c.Session.MaxHistory, "SESSION_MAX_HISTORY")
	setString(&c.StoragePath, "STORAGE_PATH")
	setList(&c.RateLimit.TrustedProxies, "TRUSTED_PROXIES")
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Address == "":
		return errors.New("config: server.address is required")
	case c.Session.DetectionThreshold < 0:
		return errors.New("config: session.detection_threshold must not be negative")
	case c.Session.HistoryWindow < 0:
		return errors.New("config: session.history_window must not be negative")
	case c.Session.MaxHistory < 0:
		return errors.New("config: session.max_history must not be negative")
	case c.Scrape.SearchResultCount <= 0:
		return errors.New("config: scrape.search_result_count must be positive")
	case c.Scrape.MaxResultsToScrape <= 0:
		return errors.New("config: scrape.max_results_to_scrape must be positive")
	case c.Scrape.MaxTokensPerChunk <= 0:
		return errors.New("config: scrape.max_tokens_per_chunk must be positive")
	case c.Scrape.TopK <= 0:
		return errors.New("config: scrape.top_k must be positive")
	case c.Scrape.FetchWorkers <= 0:
		return errors.New("config: scrape.fetch_workers must be positive")
	case c.Embedding.Dimension <= 0:
		return errors.New("config: embedding.dimension must be positive")
	case c.Media.MaxResults <= 0:
		return errors.New("config: media.max_results must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setList(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = strings.Split(v, ",")
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
