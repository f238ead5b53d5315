package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// Ensure SuggestionService implements the interface.
var _ driving.SuggestionService = (*SuggestionService)(nil)

// Corpus sampling sizes.
const (
	perKeywordMatches = 2
	keywordThreshold  = 0.1
	recentSamples     = 3
	backupSamples     = 5
)

var errAnswerTooShort = errors.New("answer too short for follow-ups")

// SuggestionService proposes questions from answers, the indexed corpus,
// or a static list, in that order of preference.
type SuggestionService struct {
	llm        driven.LLMService
	embedder   driven.EmbeddingService
	store      driven.VectorStore
	keywords   []string
	targetName string

	mu  sync.Mutex
	rnd *rand.Rand
}

// SuggestionOption configures a SuggestionService.
type SuggestionOption func(*SuggestionService)

// WithKeywords biases corpus sampling toward these topics.
func WithKeywords(keywords ...string) SuggestionOption {
	return func(s *SuggestionService) {
		if len(keywords) > 0 {
			s.keywords = keywords
		}
	}
}

// WithSuggestionTarget names the documentation in prompts.
func WithSuggestionTarget(name string) SuggestionOption {
	return func(s *SuggestionService) {
		if name != "" {
			s.targetName = name
		}
	}
}

// WithSeed makes the static fallback deterministic.
func WithSeed(seed uint64) SuggestionOption {
	return func(s *SuggestionService) {
		s.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewSuggestionService creates a suggestion service. Any dependency may be
// nil; the static list is always available.
func NewSuggestionService(
	llm driven.LLMService,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	opts ...SuggestionOption,
) *SuggestionService {
	s := &SuggestionService{
		llm:        llm,
		embedder:   embedder,
		store:      store,
		keywords:   domain.DefaultTopicKeywords,
		targetName: "the documentation",
		rnd:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initial tries corpus-driven questions, then a random corpus sample,
// then the static list.
func (s *SuggestionService) Initial(ctx context.Context, n int) []string {
	if n <= 0 {
		n = domain.InitialSuggestionCount
	}
	return s.run(ctx, n,
		FallbackStep[[]string]{Name: "corpus", Run: func(ctx context.Context) ([]string, error) { return s.FromCorpus(ctx, n) }},
		FallbackStep[[]string]{Name: "sample", Run: func(ctx context.Context) ([]string, error) { return s.FromSample(ctx, n) }},
	)
}

// AfterAnswer tries follow-ups for the answer, then the static list.
func (s *SuggestionService) AfterAnswer(ctx context.Context, answer string, n int) []string {
	if n <= 0 {
		n = domain.AfterAnswerSuggestionCount
	}
	return s.run(ctx, n,
		FallbackStep[[]string]{Name: "answer", Run: func(ctx context.Context) ([]string, error) { return s.FromAnswer(ctx, answer) }},
	)
}

func (s *SuggestionService) run(ctx context.Context, n int, steps ...FallbackStep[[]string]) []string {
	steps = append(steps, FallbackStep[[]string]{
		Name: "static",
		Run:  func(context.Context) ([]string, error) { return s.Static(n), nil },
	})
	chain := NewFallbackChain(func(qs []string) bool { return len(qs) > 0 }, steps...)

	qs, source, err := chain.Run(ctx)
	if err != nil {
		// Only a cancelled context gets here.
		return s.Static(n)
	}
	logger.Debug("Suggestions from %s", source)
	if len(qs) > n {
		qs = qs[:n]
	}
	return qs
}

// FromAnswer asks the chat model for follow-up questions to an answer.
func (s *SuggestionService) FromAnswer(ctx context.Context, answer string) ([]string, error) {
	answer = strings.TrimSpace(answer)
	if len([]rune(answer)) < minAnswerLength {
		return nil, errAnswerTooShort
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	resp, err := s.llm.Generate(ctx, followUpPrompt(answer), driven.GenerateOptions{Temperature: 0.7})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	qs := parseQuestions(resp, maxFollowUps)
	if len(qs) == 0 {
		return nil, domain.ErrEmptyResponse
	}
	return qs, nil
}

// FromCorpus samples records near the topic keywords plus the newest
// records and asks the chat model for n questions they answer.
func (s *SuggestionService) FromCorpus(ctx context.Context, n int) ([]string, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	var records []domain.StoredRecord
	if s.embedder != nil {
		for _, kw := range s.keywords {
			vec, err := s.embedder.Embed(ctx, kw)
			if err != nil {
				return nil, fmt.Errorf("%w: embed keyword %q: %w", domain.ErrProvider, kw, err)
			}
			hits, err := s.store.Match(ctx, vec, perKeywordMatches, keywordThreshold)
			if err != nil {
				return nil, fmt.Errorf("match keyword %q: %w", kw, err)
			}
			records = append(records, hits...)
		}
	}

	recent, err := s.store.Recent(ctx, recentSamples)
	if err != nil {
		return nil, fmt.Errorf("recent records: %w", err)
	}
	records = append(records, recent...)

	return s.fromRecords(ctx, records, n)
}

// FromSample asks for questions about a random sample of the corpus.
func (s *SuggestionService) FromSample(ctx context.Context, n int) ([]string, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	records, err := s.store.Sample(ctx, backupSamples)
	if err != nil {
		return nil, fmt.Errorf("sample records: %w", err)
	}
	return s.fromRecords(ctx, records, n)
}

func (s *SuggestionService) fromRecords(ctx context.Context, records []domain.StoredRecord, n int) ([]string, error) {
	excerpts := distinctExcerpts(records)
	if len(excerpts) == 0 {
		return nil, fmt.Errorf("%w: no stored records to sample", domain.ErrNotFound)
	}

	resp, err := s.llm.Generate(ctx, corpusPrompt(s.targetName, excerpts, n), driven.GenerateOptions{Temperature: 0.7})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	qs := parseQuestions(resp, n)
	if len(qs) == 0 {
		return nil, domain.ErrEmptyResponse
	}
	return s.pad(qs, n), nil
}

// Static samples up to n questions from the default list without replacement.
func (s *SuggestionService) Static(n int) []string {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	idx := s.rnd.Perm(len(domain.DefaultQuestions))
	s.mu.Unlock()

	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, domain.DefaultQuestions[i])
	}
	return out
}

// pad fills qs up to n with static questions it does not already contain.
func (s *SuggestionService) pad(qs []string, n int) []string {
	if len(qs) >= n {
		return qs
	}
	have := make(map[string]bool, len(qs))
	for _, q := range qs {
		have[strings.ToLower(q)] = true
	}
	for _, q := range s.Static(len(domain.DefaultQuestions)) {
		if len(qs) == n {
			break
		}
		if !have[strings.ToLower(q)] {
			qs = append(qs, q)
		}
	}
	return qs
}

// distinctExcerpts drops records whose first characters repeat an earlier
// record and trims each excerpt.
func distinctExcerpts(records []domain.StoredRecord) []string {
	seen := make(map[string]bool, len(records))
	var out []string
	for i := range records {
		content := strings.TrimSpace(records[i].Content)
		if content == "" {
			continue
		}
		r := []rune(content)
		key := string(r[:min(len(r), contentPrefixLength)])
		if seen[key] {
			continue
		}
		seen[key] = true
		if len(r) > excerptLength {
			content = string(r[:excerptLength])
		}
		out = append(out, content)
	}
	return out
}
