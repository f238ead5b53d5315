package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// ErrEnvExists is returned when the target .env file exists and force is off.
var ErrEnvExists = errors.New(".env file already exists")

type envSection struct {
	comment string
	values  map[string]string
}

// envTemplate lists the sections written by WriteEnvTemplate, in order.
// Required secrets are left empty so validation reports them.
func envTemplate() []envSection {
	return []envSection{
		{"Chat and embedding provider (required)", map[string]string{
			EnvOpenAIKey:      "",
			EnvOpenAIBaseURL:  "",
			EnvChatModel:      domain.DefaultChatModel,
			EnvEmbeddingModel: domain.DefaultEmbeddingModel,
		}},
		{"Secondary chat provider used when the primary fails (optional)", map[string]string{
			EnvAnthropicKey: "",
		}},
		{"Vector store: postgres (Supabase or any pgvector database), qdrant or memory", map[string]string{
			EnvVectorStore:      string(domain.VectorStorePostgres),
			EnvDatabaseURL:      "",
			EnvQdrantAddr:       "localhost:6334",
			EnvQdrantCollection: domain.DefaultQdrantCollection,
		}},
		{"Target GitBook shown in the chat header (optional)", map[string]string{
			EnvTargetName: "",
		}},
		{"Local conversation history; a .db suffix selects SQLite", map[string]string{
			EnvHistoryFile: domain.DefaultHistoryFile,
		}},
		{"User-Agent sent with every page request", map[string]string{
			EnvUserAgent: domain.DefaultUserAgent,
		}},
	}
}

// RenderEnvTemplate returns the .env template contents.
func RenderEnvTemplate() (string, error) {
	var b strings.Builder
	for i, section := range envTemplate() {
		if i > 0 {
			b.WriteString("\n")
		}
		body, err := godotenv.Marshal(section.values)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "# %s\n%s\n", section.comment, body)
	}
	return b.String(), nil
}

// WriteEnvTemplate writes the template to path. An existing file is only
// replaced when force is set.
func WriteEnvTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrEnvExists, path)
		}
	}
	content, err := RenderEnvTemplate()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0600)
}
