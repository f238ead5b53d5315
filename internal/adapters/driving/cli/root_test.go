package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/storage/jsonfile"
	"github.com/gitbook-qa/gitbook-qa/internal/app"
	"github.com/gitbook-qa/gitbook-qa/internal/config"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
	"github.com/gitbook-qa/gitbook-qa/internal/core/services"
)

// MockChatService records questions and replies with a fixed answer.
type MockChatService struct {
	Answer    *domain.Answer
	Err       error
	Questions []string
}

func (m *MockChatService) Ask(_ context.Context, question string, memory *domain.ConversationMemory) (*domain.Answer, error) {
	m.Questions = append(m.Questions, question)
	if m.Err != nil {
		return &domain.Answer{Text: domain.ApologyUnavailable}, m.Err
	}
	answer := m.Answer
	if answer == nil {
		answer = &domain.Answer{Text: "answer to " + question}
	}
	if memory != nil {
		memory.AddExchange(question, answer.Text)
	}
	return answer, nil
}

// MockSuggestionService returns the static questions.
type MockSuggestionService struct {
	LastAnswer string
}

func (m *MockSuggestionService) Initial(_ context.Context, n int) []string {
	return domain.DefaultQuestions[:min(n, len(domain.DefaultQuestions))]
}

func (m *MockSuggestionService) AfterAnswer(_ context.Context, answer string, n int) []string {
	m.LastAnswer = answer
	return []string{"How do I configure it?", "Where are the logs?", "Can I automate this?"}[:min(n, 3)]
}

// MockIngestService records the options it was called with.
type MockIngestService struct {
	Opts   *domain.IngestOptions
	Report *domain.IngestReport
	Err    error
}

func (m *MockIngestService) Ingest(_ context.Context, opts domain.IngestOptions, progress domain.IngestProgress) (*domain.IngestReport, error) {
	m.Opts = &opts
	if progress != nil {
		progress(domain.IngestEvent{Stage: domain.StageResolve, Total: 1})
		progress(domain.IngestEvent{Stage: domain.StageExtract, URL: opts.BaseURL + "/intro", Current: 1, Total: 1})
	}
	return m.Report, m.Err
}

type testEnv struct {
	chat    *MockChatService
	suggest *MockSuggestionService
	ingest  *MockIngestService
	history driving.HistoryService
	cfg     *config.Config
}

// resetCLIState clears flag values and package state left by earlier runs.
func resetCLIState(t *testing.T) {
	t.Helper()
	resetFlags(rootCmd)
	appInstance = nil
	ownsApp = false
	configStore = nil
	historyService = nil
	historyClose = nil
	configDir = t.TempDir()
	envFile = filepath.Join(t.TempDir(), ".env")

	t.Cleanup(func() {
		closeApp()
		appInstance = nil
		ownsApp = false
		configStore = nil
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setupTestApp injects an application backed by mocks and a JSON history file.
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	resetCLIState(t)

	cfg := config.FromEnv(func(string) (string, bool) { return "", false }, nil)
	cfg.VectorStore = domain.VectorStoreMemory
	cfg.HistoryFile = filepath.Join(t.TempDir(), "history.json")

	env := &testEnv{
		chat:    &MockChatService{},
		suggest: &MockSuggestionService{},
		ingest:  &MockIngestService{Report: &domain.IngestReport{URLs: 3, Fetched: 3, Chunks: 7, Stored: 7}},
		history: services.NewHistoryService(jsonfile.New(cfg.HistoryFile)),
		cfg:     cfg,
	}
	SetApp(&app.App{
		Config:  cfg,
		Chat:    env.chat,
		Suggest: env.suggest,
		Ingest:  env.ingest,
		History: env.history,
	})
	return env
}

// execute runs the root command with args and returns its combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "gitbook-qa", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)

	flag = rootCmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, flag)
	assert.Equal(t, ".env", flag.DefValue)

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ask", "chat", "config", "history", "ingest", "init-env", "mcp", "schema", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestSetVersion(t *testing.T) {
	old := version
	defer func() { version = old }()

	SetVersion("")
	assert.Equal(t, old, version)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}

func TestRequireApp_PrintsWarningsAndClosesOwnedApp(t *testing.T) {
	resetCLIState(t)
	t.Setenv(config.EnvOpenAIKey, "sk-test")
	t.Setenv(config.EnvVectorStore, string(domain.VectorStoreMemory))

	chat := &MockChatService{}
	oldNewApp := newApp
	newApp = func(_ context.Context, cfg *config.Config) (*app.App, error) {
		return &app.App{Config: cfg, Chat: chat, Warnings: []string{"fallback chat model unreachable"}}, nil
	}
	defer func() { newApp = oldNewApp }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "What is a space?"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "warning: fallback chat model unreachable")
	assert.Contains(t, buf.String(), "answer to What is a space?")
	assert.Nil(t, appInstance)
	assert.False(t, ownsApp)
}

func TestRequireApp_MissingConfiguration(t *testing.T) {
	resetCLIState(t)
	t.Setenv(config.EnvOpenAIKey, "")
	t.Setenv(config.EnvVectorStore, string(domain.VectorStoreMemory))

	_, err := execute("ask", "What is a space?")

	var missing *config.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Names, config.EnvOpenAIKey)
}

func TestExplain(t *testing.T) {
	err := explain(domain.ErrLLMUnavailable)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.True(t, strings.HasPrefix(err.Error(), "AI provider check failed"))

	err = explain(domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "AI provider check failed")

	plain := errors.New("boom")
	assert.Equal(t, plain, explain(plain))
}
