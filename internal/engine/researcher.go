package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/reportbot/internal/engine/fetch"
	"github.com/mohammad-safakhou/reportbot/internal/engine/search"
	"github.com/mohammad-safakhou/reportbot/internal/helpers"
	"github.com/mohammad-safakhou/reportbot/internal/llm"
	"github.com/mohammad-safakhou/reportbot/internal/logging"
)

// Config tunes how much research a session performs.
type Config struct {
	MaxSubqueries    int
	MaxSources       int
	ResultsPerQuery  int
	FetchConcurrency int
	MaxContextChars  int
	MaxSubtopics     int
}

func (c Config) withDefaults() Config {
	if c.MaxSubqueries <= 0 {
		c.MaxSubqueries = 3
	}
	if c.MaxSources <= 0 {
		c.MaxSources = 8
	}
	if c.ResultsPerQuery <= 0 {
		c.ResultsPerQuery = 5
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = 60000
	}
	if c.MaxSubtopics <= 0 {
		c.MaxSubtopics = 5
	}
	return c
}

// Service is the built-in research engine: it plans search queries with the
// LLM, searches the web, extracts readable page text and writes the report.
type Service struct {
	llm      llm.Client
	searcher search.Searcher
	fetcher  fetch.Fetcher
	cfg      Config
	logger   *zap.Logger
}

func NewService(client llm.Client, searcher search.Searcher, fetcher fetch.Fetcher, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		llm:      client,
		searcher: searcher,
		fetcher:  fetcher,
		cfg:      cfg.withDefaults(),
		logger:   logging.OrNop(logger),
	}
}

// NewResearcher satisfies Factory.
func (s *Service) NewResearcher(query, reportType string) (Researcher, error) {
	tmpl, ok := reportTemplates[reportType]
	if !ok {
		return nil, fmt.Errorf("unsupported report type %q", reportType)
	}
	return &session{
		svc:        s,
		query:      query,
		reportType: reportType,
		tmpl:       tmpl,
		logger:     s.logger.With(zap.String("report_type", reportType)),
	}, nil
}

type session struct {
	svc        *Service
	query      string
	reportType string
	tmpl       reportTemplate
	logger     *zap.Logger

	mu         sync.Mutex
	cost       float64
	sources    []string
	chunks     []string
	subtopics  []string
	researched bool
}

type candidate struct {
	url     string
	title   string
	snippet string
}

func (s *session) ConductResearch(ctx context.Context) error {
	queries := s.planQueries(ctx)

	var (
		candidates []candidate
		seen       = map[string]struct{}{}
		failures   int
		lastErr    error
	)
	for _, q := range queries {
		results, err := s.svc.searcher.Discover(ctx, q, s.svc.cfg.ResultsPerQuery)
		if err != nil {
			failures++
			lastErr = err
			s.logger.Warn("search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		for _, r := range results {
			canonical, err := helpers.CanonicalURL(r.URL)
			if err != nil {
				continue
			}
			if _, dup := seen[canonical]; dup {
				continue
			}
			seen[canonical] = struct{}{}
			candidates = append(candidates, candidate{url: r.URL, title: r.Title, snippet: helpers.PlainText(r.Snippet)})
		}
	}
	if failures == len(queries) && lastErr != nil {
		return fmt.Errorf("search: %w", lastErr)
	}
	if len(candidates) > s.svc.cfg.MaxSources {
		candidates = candidates[:s.svc.cfg.MaxSources]
	}

	chunks := make([]string, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.svc.cfg.FetchConcurrency)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			page, err := s.svc.fetcher.Fetch(gctx, c.url)
			text := strings.TrimSpace(page.Text)
			title := c.title
			if page.Title != "" {
				title = page.Title
			}
			if err != nil || text == "" {
				s.logger.Debug("fetch fell back to snippet", zap.String("url", c.url), zap.Error(err))
				text = strings.TrimSpace(c.snippet)
			}
			if text == "" {
				return nil
			}
			chunks[i] = fmt.Sprintf("Source: %s\nTitle: %s\nContent: %s\n", c.url, title, text)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, chunk := range chunks {
		if chunk == "" {
			continue
		}
		s.sources = append(s.sources, candidates[i].url)
		s.chunks = append(s.chunks, chunk)
	}
	if len(s.chunks) == 0 {
		return fmt.Errorf("no research context gathered for %q", s.query)
	}
	s.researched = true
	s.logger.Info("research conducted",
		zap.Int("queries", len(queries)),
		zap.Int("sources", len(s.sources)))
	return nil
}

// planQueries asks the LLM for search queries. The original query always
// comes first; a planning failure degrades to searching the query alone.
func (s *session) planQueries(ctx context.Context) []string {
	queries := []string{s.query}
	out, err := s.complete(ctx, planPrompt(s.query, s.svc.cfg.MaxSubqueries))
	if err != nil {
		s.logger.Warn("query planning failed", zap.Error(err))
		return queries
	}
	planned, err := parseStringArray(out)
	if err != nil {
		s.logger.Warn("query planning returned unusable output", zap.Error(err))
		return queries
	}
	seen := map[string]struct{}{strings.ToLower(s.query): {}}
	for _, q := range planned {
		key := strings.ToLower(strings.TrimSpace(q))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, strings.TrimSpace(q))
		if len(queries) > s.svc.cfg.MaxSubqueries {
			break
		}
	}
	return queries
}

func (s *session) WriteReport(ctx context.Context) (string, error) {
	s.mu.Lock()
	researched := s.researched
	s.mu.Unlock()
	if !researched {
		return "", fmt.Errorf("research not conducted")
	}
	out, err := s.complete(ctx, reportPrompt(s.query, s.tmpl, s.contextText()))
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	out = helpers.StripFence(out)
	if out == "" {
		return "", fmt.Errorf("write report: empty report")
	}
	return out, nil
}

func (s *session) Cost() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cost
}

func (s *session) SourceURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sources...)
}

func (s *session) ResearchContext() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chunks...)
}

// Subtopics asks the LLM for the sub-topics of the query. The first
// successful answer is cached.
func (s *session) Subtopics(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if s.subtopics != nil {
		out := append([]string(nil), s.subtopics...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	out, err := s.complete(ctx, subtopicsPrompt(s.query, s.contextText(), s.svc.cfg.MaxSubtopics))
	if err != nil {
		return nil, fmt.Errorf("subtopics: %w", err)
	}
	topics, err := parseStringArray(out)
	if err != nil {
		return nil, fmt.Errorf("subtopics: %w", err)
	}
	var cleaned []string
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
		if len(cleaned) == s.svc.cfg.MaxSubtopics {
			break
		}
	}
	if cleaned == nil {
		cleaned = []string{}
	}

	s.mu.Lock()
	s.subtopics = cleaned
	s.mu.Unlock()
	return append([]string(nil), cleaned...), nil
}

func (s *session) complete(ctx context.Context, prompt string) (string, error) {
	res, err := s.svc.llm.Complete(ctx, []llm.Message{llm.System(systemPrompt), llm.User(prompt)})
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.cost += res.Cost
	s.mu.Unlock()
	return res.Content, nil
}

func (s *session) contextText() string {
	s.mu.Lock()
	text := strings.Join(s.chunks, "\n")
	s.mu.Unlock()
	if r := []rune(text); len(r) > s.svc.cfg.MaxContextChars {
		text = string(r[:s.svc.cfg.MaxContextChars])
	}
	return text
}

func parseStringArray(raw string) ([]string, error) {
	js, err := helpers.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal([]byte(js), &out); err != nil {
		return nil, fmt.Errorf("decode string array: %w", err)
	}
	return out, nil
}
