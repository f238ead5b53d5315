package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gitbook-qa/gitbook-qa/internal/connectors/gitbook"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// errNotConfirmed is returned when a destructive run is declined.
var errNotConfirmed = errors.New("ingestion cancelled")

// isTerminal reports whether stdin is interactive.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Crawl a documentation site into the vector store",
	Long: `Reads the site's sitemap, extracts the main content of every page,
splits it into overlapping chunks and stores their embeddings.

Pages that fail to load or parse are skipped and counted. Chunks whose
content is already stored are not embedded again.

Examples:
  gitbook-qa ingest --base-url https://docs.example.com
  gitbook-qa ingest --base-url https://docs.example.com --clear --yes
  gitbook-qa ingest --sitemap https://docs.example.com/sitemap-pages.xml --selector article`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	flags := ingestCmd.Flags()
	flags.String("base-url", "", "Documentation site root")
	flags.String("sitemap", "", "Sitemap URL (default <base-url>/sitemap.xml)")
	flags.String("selector", domain.DefaultSelector, "Preferred CSS selector for page content")
	flags.String("strategy", string(domain.StrategySelectors), "Selector strategy: selectors or preferred-only")
	flags.Int("chunk-size", domain.DefaultChunkSize, "Maximum chunk length in characters")
	flags.Int("chunk-overlap", domain.DefaultChunkOverlap, "Characters shared by neighbouring chunks")
	flags.Duration("delay", domain.DefaultRequestDelay, "Minimum time between page requests")
	flags.Int("min-length", domain.DefaultMinDocumentLength, "Skip pages with less text than this")
	flags.Bool("clear", false, "Delete every stored document before writing")
	flags.Bool("sitemap-only", false, "Fail when the sitemap yields no pages")
	flags.BoolP("yes", "y", false, "Do not ask before clearing")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := ingestOptions(cmd, cfg.Ingest)
	if err != nil {
		return err
	}

	if opts.Clear {
		yes, _ := cmd.Flags().GetBool("yes")
		if err := confirmClear(cmd, yes); err != nil {
			return err
		}
	}

	a, err := requireApp(cmd)
	if err != nil {
		return err
	}
	if a.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	cmd.Printf("Ingesting %s\n", opts.SitemapURL)
	report, err := a.Ingest.Ingest(cmd.Context(), opts, ingestProgress(cmd))
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

// ingestOptions merges flags over the configured defaults. A flag only
// overrides the configuration when it was set explicitly.
//
//nolint:gocyclo // One branch per flag.
func ingestOptions(cmd *cobra.Command, defaults domain.IngestOptions) (domain.IngestOptions, error) {
	flags := cmd.Flags()
	opts := defaults

	if flags.Changed("base-url") {
		opts.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("sitemap") {
		opts.SitemapURL, _ = flags.GetString("sitemap")
	}
	if flags.Changed("selector") || opts.Selector == "" {
		opts.Selector, _ = flags.GetString("selector")
	}
	if flags.Changed("strategy") || opts.Strategy == "" {
		s, _ := flags.GetString("strategy")
		opts.Strategy = domain.ExtractionStrategy(s)
	}
	if flags.Changed("chunk-size") {
		opts.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("chunk-overlap") {
		opts.ChunkOverlap, _ = flags.GetInt("chunk-overlap")
	}
	if flags.Changed("delay") {
		opts.RequestDelay, _ = flags.GetDuration("delay")
	}
	if flags.Changed("min-length") {
		opts.MinDocumentLength, _ = flags.GetInt("min-length")
	}
	opts.Clear, _ = flags.GetBool("clear")
	opts.SitemapOnly, _ = flags.GetBool("sitemap-only")

	if !opts.Strategy.IsValid() {
		return opts, fmt.Errorf("%w: unknown strategy %q (expected selectors or preferred-only)",
			domain.ErrInvalidInput, opts.Strategy)
	}
	if opts.ChunkSize <= 0 {
		return opts, fmt.Errorf("%w: --chunk-size must be positive", domain.ErrInvalidInput)
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		return opts, fmt.Errorf("%w: --chunk-overlap must be between 0 and the chunk size", domain.ErrInvalidInput)
	}

	opts.BaseURL = strings.TrimSpace(opts.BaseURL)
	if opts.SitemapURL == "" {
		opts.SitemapURL = gitbook.DefaultSitemapURL(opts.BaseURL)
	}
	if opts.SitemapURL == "" {
		return opts, fmt.Errorf("%w: --base-url or --sitemap is required", domain.ErrInvalidInput)
	}
	return opts, nil
}

// confirmClear asks before deleting stored documents. Without a terminal
// the run is refused unless --yes was given.
func confirmClear(cmd *cobra.Command, yes bool) error {
	if yes {
		return nil
	}
	if !isTerminal() {
		return fmt.Errorf("%w: --clear deletes every stored document; pass --yes to confirm", errNotConfirmed)
	}
	cmd.Print("This deletes every document in the vector store. Continue? [y/N] ")
	answer := readLine(bufio.NewReader(cmd.InOrStdin()))
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	default:
		return errNotConfirmed
	}
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// ingestProgress prints one line per stage change and a running page count.
func ingestProgress(cmd *cobra.Command) domain.IngestProgress {
	return func(ev domain.IngestEvent) {
		switch ev.Stage {
		case domain.StageResolve:
			if ev.Err != nil {
				cmd.Printf("Sitemap: %v\n", ev.Err)
			}
			cmd.Printf("Found %d pages\n", ev.Total)
		case domain.StageExtract:
			status := "ok"
			if ev.Err != nil {
				status = "failed"
			}
			cmd.Printf("[%d/%d] %s %s\n", ev.Current, ev.Total, ev.URL, status)
		case domain.StageStore:
			cmd.Printf("Embedded %d/%d chunks\n", ev.Current, ev.Total)
		case domain.StageChunk, domain.StageDone:
		}
	}
}

func printReport(cmd *cobra.Command, r *domain.IngestReport) {
	cmd.Println()
	cmd.Println("Ingestion summary")
	cmd.Println("=================")
	cmd.Printf("  Pages found:     %d\n", r.URLs)
	cmd.Printf("  Pages loaded:    %d\n", r.Fetched)
	cmd.Printf("  Pages failed:    %d\n", r.Failed)
	cmd.Printf("  Pages too short: %d\n", r.Filtered)
	cmd.Printf("  Chunks:          %d\n", r.Chunks)
	cmd.Printf("  Stored:          %d\n", r.Stored)
	cmd.Printf("  Already stored:  %d\n", r.Skipped)
	if r.Cleared {
		cmd.Println("  Store cleared before writing")
	}
	if r.Duration > 0 {
		cmd.Printf("  Took:            %s\n", r.Duration.Round(time.Millisecond))
	}
	for _, u := range r.FailedURLs {
		cmd.Printf("  failed: %s\n", u)
	}
}
