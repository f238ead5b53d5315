// Package cli provides the command-line interface for gitbook-qa.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/config/file"
	"github.com/gitbook-qa/gitbook-qa/internal/app"
	"github.com/gitbook-qa/gitbook-qa/internal/config"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose   bool
	envFile   string
	configDir string
)

var (
	// appInstance is the application shared by every command.
	appInstance *app.App

	// ownsApp is true when appInstance was built here and must be closed.
	ownsApp bool

	// configStore holds the TOML tuning file once opened.
	configStore driven.ConfigStore

	// newApp builds the application on first use.
	newApp = func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return app.New(ctx, cfg)
	}
)

var rootCmd = &cobra.Command{
	Use:   "gitbook-qa",
	Short: "Ask questions about a GitBook documentation site",
	Long: `gitbook-qa crawls a GitBook documentation site into a vector store and
answers questions about it with a chat model, citing the pages it used.

Start with:
  gitbook-qa init-env                       # write a .env template
  gitbook-qa schema --apply                 # prepare the vector store
  gitbook-qa ingest --base-url https://docs.example.com
  gitbook-qa chat                           # interactive chat`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"Directory holding config.toml (default ~/"+file.ConfigDirName+")")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetApp injects a prebuilt application. The caller keeps ownership.
func SetApp(a *app.App) {
	appInstance = a
	ownsApp = false
}

// Execute runs the root command and releases the application afterwards.
func Execute(ctx context.Context) error {
	defer closeApp()
	return rootCmd.ExecuteContext(ctx)
}

func closeApp() {
	if historyClose != nil {
		if err := historyClose(); err != nil {
			logger.Warn("closing history: %v", err)
		}
		historyClose = nil
		historyService = nil
	}
	if appInstance != nil && ownsApp {
		if err := appInstance.Close(); err != nil {
			logger.Warn("closing: %v", err)
		}
		appInstance = nil
		ownsApp = false
	}
}

// openConfigStore opens the TOML tuning file, creating its directory.
func openConfigStore() (driven.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	configStore = store
	return store, nil
}

// loadConfig resolves the configuration from the env file, the environment
// and the tuning file. An unreadable tuning file is only a warning.
func loadConfig() (*config.Config, error) {
	if appInstance != nil && appInstance.Config != nil {
		return appInstance.Config, nil
	}
	store, err := openConfigStore()
	if err != nil {
		logger.Warn("config file unavailable: %v", err)
		store = nil
	}
	return config.Load(envFile, store)
}

// requireApp returns the shared application, building it on first use.
func requireApp(cmd *cobra.Command) (*app.App, error) {
	if appInstance != nil {
		return appInstance, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return nil, explain(err)
	}
	for _, w := range a.Warnings {
		cmd.PrintErrf("warning: %s\n", w)
	}
	appInstance = a
	ownsApp = true
	return a, nil
}

// explain prefixes startup failures with the area that failed.
func explain(err error) error {
	var storageErr *domain.StorageError
	switch {
	case errors.As(err, &storageErr):
		return err
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrLLMUnavailable):
		return fmt.Errorf("AI provider check failed: %w", err)
	default:
		return err
	}
}
