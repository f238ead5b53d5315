package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Environment variable names.
const (
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvOpenAIBaseURL    = "OPENAI_BASE_URL"
	EnvAnthropicKey     = "ANTHROPIC_API_KEY"
	EnvVectorStore      = "VECTOR_STORE"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvSupabaseDBURL    = "SUPABASE_DB_URL"
	EnvQdrantAddr       = "QDRANT_ADDR"
	EnvQdrantCollection = "QDRANT_COLLECTION"
	EnvTargetName       = "TARGET_GITBOOK_NAME"
	EnvHistoryFile      = "CHAT_HISTORY_FILE"
	EnvUserAgent        = "USER_AGENT"
	EnvChatModel        = "CHAT_MODEL"
	EnvEmbeddingModel   = "EMBEDDING_MODEL"
)

// TOML tuning keys.
const (
	KeyBaseURL        = "ingest.base_url"
	KeySitemapURL     = "ingest.sitemap_url"
	KeySelector       = "ingest.selector"
	KeyChunkSize      = "ingest.chunk_size"
	KeyChunkOverlap   = "ingest.chunk_overlap"
	KeyRequestDelayMS = "ingest.request_delay_ms"
	KeyMinLength      = "ingest.min_length"
	KeyChatModel      = "chat.model"
	KeyTemperature    = "chat.temperature"
	KeyRetrievalK     = "retrieval.k"
	KeyThreshold      = "retrieval.threshold"
	KeyKeywords       = "suggest.keywords"
)

// DefaultTargetName is shown when TARGET_GITBOOK_NAME is unset.
const DefaultTargetName = "the documentation"

// Lookup reads one environment value. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// Config is the resolved runtime configuration.
type Config struct {
	LLM       domain.LLMSettings
	Secondary domain.LLMSettings
	Embedding domain.EmbeddingSettings
	Retrieval domain.RetrievalSettings

	VectorStore      domain.VectorStoreKind
	DatabaseURL      string
	QdrantAddr       string
	QdrantCollection string

	TargetName  string
	HistoryFile string
	UserAgent   string

	// Ingest holds defaults for the ingest command's flags.
	Ingest domain.IngestOptions

	SuggestKeywords []string
}

// Load reads envFile (if present) into the process environment, then
// resolves the configuration from the environment and store.
// store may be nil.
func Load(envFile string, store driven.ConfigStore) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv, store), nil
}

// FromEnv resolves configuration from lookup and store without validating it.
func FromEnv(lookup Lookup, store driven.ConfigStore) *Config {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	t := tuning{store: store}

	cfg := &Config{
		VectorStore:      domain.VectorStoreKind(strings.ToLower(get(EnvVectorStore))),
		DatabaseURL:      firstNonEmpty(get(EnvDatabaseURL), get(EnvSupabaseDBURL)),
		QdrantAddr:       get(EnvQdrantAddr),
		QdrantCollection: firstNonEmpty(get(EnvQdrantCollection), domain.DefaultQdrantCollection),
		TargetName:       firstNonEmpty(get(EnvTargetName), DefaultTargetName),
		HistoryFile:      firstNonEmpty(get(EnvHistoryFile), domain.DefaultHistoryFile),
		UserAgent:        firstNonEmpty(get(EnvUserAgent), domain.DefaultUserAgent),
		SuggestKeywords:  t.list(KeyKeywords, domain.DefaultTopicKeywords),
	}
	if cfg.VectorStore == "" {
		cfg.VectorStore = domain.VectorStorePostgres
	}

	cfg.LLM = domain.LLMSettings{
		Provider:    domain.AIProviderOpenAI,
		Model:       firstNonEmpty(get(EnvChatModel), t.str(KeyChatModel), domain.DefaultChatModel),
		BaseURL:     get(EnvOpenAIBaseURL),
		APIKey:      get(EnvOpenAIKey),
		Temperature: float32(t.number(KeyTemperature, domain.DefaultTemperature)),
	}
	if key := get(EnvAnthropicKey); key != "" {
		cfg.Secondary = domain.LLMSettings{
			Provider:    domain.AIProviderAnthropic,
			Model:       domain.DefaultAnthropicModel,
			APIKey:      key,
			Temperature: cfg.LLM.Temperature,
		}
	}
	cfg.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    firstNonEmpty(get(EnvEmbeddingModel), domain.DefaultEmbeddingModel),
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	}
	cfg.Retrieval = domain.RetrievalSettings{
		K:         t.integer(KeyRetrievalK, domain.DefaultRetrievalK),
		Threshold: t.number(KeyThreshold, domain.DefaultRetrievalThreshold),
	}.WithDefaults()

	cfg.Ingest = domain.IngestOptions{
		BaseURL:           t.str(KeyBaseURL),
		SitemapURL:        t.str(KeySitemapURL),
		Selector:          t.str(KeySelector),
		ChunkSize:         t.integer(KeyChunkSize, domain.DefaultChunkSize),
		ChunkOverlap:      t.integer(KeyChunkOverlap, domain.DefaultChunkOverlap),
		RequestDelay:      time.Duration(t.integer(KeyRequestDelayMS, int(domain.DefaultRequestDelay/time.Millisecond))) * time.Millisecond,
		MinDocumentLength: t.integer(KeyMinLength, domain.DefaultMinDocumentLength),
	}.WithDefaults()

	return cfg
}

// Validate checks everything needed to ingest or chat.
// All missing names are reported together.
func (c *Config) Validate() error {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, EnvOpenAIKey)
	}
	if err := c.validateStore(&missing); err != nil {
		return err
	}
	if len(missing) > 0 {
		return &MissingError{Names: missing}
	}
	return nil
}

// ValidateDatabase checks only what the schema command needs.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return &MissingError{Names: []string{EnvDatabaseURL}}
	}
	return nil
}

func (c *Config) validateStore(missing *[]string) error {
	switch c.VectorStore {
	case domain.VectorStorePostgres:
		if c.DatabaseURL == "" {
			*missing = append(*missing, EnvDatabaseURL)
		}
	case domain.VectorStoreQdrant:
		if c.QdrantAddr == "" {
			*missing = append(*missing, EnvQdrantAddr)
		}
	case domain.VectorStoreMemory:
	default:
		return fmt.Errorf("%w: %s=%q (expected postgres, qdrant or memory)",
			domain.ErrInvalidInput, EnvVectorStore, c.VectorStore)
	}
	return nil
}

// MissingError lists every required configuration value that is absent.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s (see `gitbook-qa init-env`)",
		strings.Join(e.Names, ", "))
}

func (e *MissingError) Unwrap() error {
	return domain.ErrMissingConfig
}

// tuning reads TOML values with fallbacks; a nil store yields fallbacks.
type tuning struct {
	store driven.ConfigStore
}

func (t tuning) has(key string) bool {
	if t.store == nil {
		return false
	}
	_, ok := t.store.Get(key)
	return ok
}

func (t tuning) str(key string) string {
	if t.store == nil {
		return ""
	}
	return t.store.GetString(key)
}

func (t tuning) integer(key string, fallback int) int {
	if !t.has(key) {
		return fallback
	}
	return t.store.GetInt(key)
}

func (t tuning) number(key string, fallback float64) float64 {
	if !t.has(key) {
		return fallback
	}
	return t.store.GetFloat(key)
}

func (t tuning) list(key string, fallback []string) []string {
	if !t.has(key) {
		return fallback
	}
	if v := t.store.GetStringSlice(key); len(v) > 0 {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
