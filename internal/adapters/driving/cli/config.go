package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitbook-qa/gitbook-qa/internal/config"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// tuningKeys lists the keys accepted by config set.
var tuningKeys = []string{
	config.KeyBaseURL,
	config.KeySitemapURL,
	config.KeySelector,
	config.KeyChunkSize,
	config.KeyChunkOverlap,
	config.KeyRequestDelayMS,
	config.KeyMinLength,
	config.KeyChatModel,
	config.KeyTemperature,
	config.KeyRetrievalK,
	config.KeyThreshold,
	config.KeyKeywords,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change settings",
	Long: `Shows the resolved configuration and edits the tuning file
(~/.gitbook-qa/config.toml).

Secrets and connection strings come from the environment or the .env
file; run "gitbook-qa init-env" to create one.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List values stored in the tuning file",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one tuning value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store one tuning value",
	Long: `Stores a value in the tuning file. Accepted keys:

  ` + strings.Join(tuningKeys, "\n  ") + `

suggest.keywords takes a comma-separated list.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Chat]")
	cmd.Printf("  Provider: %s\n", cfg.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", cfg.LLM.Model)
	if cfg.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", cfg.LLM.BaseURL)
	}
	cmd.Printf("  API Key: %s\n", keyStatus(cfg.LLM.APIKey))
	cmd.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
	if cfg.Secondary.IsConfigured() {
		cmd.Printf("  Fallback: %s (%s)\n", cfg.Secondary.Provider.Description(), cfg.Secondary.Model)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Model: %s\n", cfg.Embedding.Model)
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Kind: %s\n", cfg.VectorStore.Description())
	switch cfg.VectorStore {
	case domain.VectorStoreQdrant:
		cmd.Printf("  Address: %s\n", valueOrUnset(cfg.QdrantAddr))
		cmd.Printf("  Collection: %s\n", cfg.QdrantCollection)
	case domain.VectorStorePostgres:
		cmd.Printf("  Database URL: %s\n", keyStatus(cfg.DatabaseURL))
	case domain.VectorStoreMemory:
	}
	cmd.Printf("  Top K: %d\n", cfg.Retrieval.K)
	cmd.Printf("  Threshold: %.2f\n", cfg.Retrieval.Threshold)
	cmd.Println()

	cmd.Println("[Ingestion]")
	cmd.Printf("  Base URL: %s\n", valueOrUnset(cfg.Ingest.BaseURL))
	cmd.Printf("  Selector: %s\n", cfg.Ingest.Selector)
	cmd.Printf("  Chunk size: %d (overlap %d)\n", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	cmd.Printf("  Request delay: %s\n", cfg.Ingest.RequestDelay)
	cmd.Println()

	cmd.Println("[Chat UI]")
	cmd.Printf("  Target: %s\n", cfg.TargetName)
	cmd.Printf("  History file: %s\n", cfg.HistoryFile)

	if err := cfg.Validate(); err != nil {
		cmd.Println()
		cmd.Printf("Status: %v\n", err)
	}
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}

	keys := store.Keys()
	if len(keys) == 0 {
		cmd.Printf("No values set in %s\n", store.Path())
		return nil
	}
	for _, key := range keys {
		v, _ := store.Get(key)
		cmd.Printf("%s = %v\n", key, v)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}

	v, ok := store.Get(args[0])
	if !ok {
		return fmt.Errorf("%w: %s is not set", domain.ErrNotFound, args[0])
	}
	cmd.Printf("%v\n", v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if !isTuningKey(key) {
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidInput, key)
	}

	value, err := parseTuningValue(key, raw)
	if err != nil {
		return err
	}

	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	if err := store.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	cmd.Printf("%s = %v\n", key, value)
	return nil
}

func isTuningKey(key string) bool {
	return slices.Contains(tuningKeys, key)
}

// parseTuningValue converts raw to the type the key is read as.
func parseTuningValue(key, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch key {
	case config.KeyChunkSize, config.KeyChunkOverlap, config.KeyRequestDelayMS,
		config.KeyMinLength, config.KeyRetrievalK:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		return int64(n), nil
	case config.KeyTemperature, config.KeyThreshold:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		return f, nil
	case config.KeyKeywords:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: %s needs at least one keyword", domain.ErrInvalidInput, key)
		}
		return out, nil
	default:
		return raw, nil
	}
}

func keyStatus(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return maskAPIKey(secret)
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
