package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or chat.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is the OpenAI API or any compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic Messages API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorStoreKind selects the vector store backend.
type VectorStoreKind string

// Available vector store backends.
const (
	VectorStorePostgres VectorStoreKind = "postgres"
	VectorStoreQdrant   VectorStoreKind = "qdrant"
	VectorStoreMemory   VectorStoreKind = "memory"
)

// IsValid returns true if the backend is recognised.
func (k VectorStoreKind) IsValid() bool {
	switch k {
	case VectorStorePostgres, VectorStoreQdrant, VectorStoreMemory:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (k VectorStoreKind) Description() string {
	switch k {
	case VectorStorePostgres:
		return "PostgreSQL + pgvector"
	case VectorStoreQdrant:
		return "Qdrant"
	case VectorStoreMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// Chat and retrieval defaults.
const (
	DefaultChatModel           = "gpt-3.5-turbo"
	DefaultEmbeddingModel      = "text-embedding-ada-002"
	DefaultAnthropicModel      = "claude-3-5-haiku-latest"
	DefaultEmbeddingDimensions = 1536
	DefaultTemperature         = 0.1
	DefaultRetrievalK          = 5
	DefaultRetrievalThreshold  = 0.5
	DefaultQdrantCollection    = "documents"
	DefaultHistoryFile         = "chat_history.json"
	DefaultUserAgent           = "gitbook-qa/1.0 (+documentation ingestion)"
)

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.IsValid() && e.APIKey != ""
}

// LLMSettings holds chat model configuration.
type LLMSettings struct {
	Provider    AIProvider
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.IsValid() && l.APIKey != ""
}

// RetrievalSettings controls similarity search at question time.
type RetrievalSettings struct {
	K         int
	Threshold float64
}

// WithDefaults fills zero values.
func (r RetrievalSettings) WithDefaults() RetrievalSettings {
	if r.K <= 0 {
		r.K = DefaultRetrievalK
	}
	if r.Threshold <= 0 {
		r.Threshold = DefaultRetrievalThreshold
	}
	return r
}
