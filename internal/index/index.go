// Package index keeps an in-memory full-text index of published reports.
package index

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
)

type document struct {
	Query      string `json:"query"`
	ReportKind string `json:"report_kind"`
	Body       string `json:"body"`
}

// Hit is one search result.
type Hit struct {
	JobID      string  `json:"job_id"`
	ReportKind string  `json:"report_kind"`
	Query      string  `json:"query"`
	HTMLURL    string  `json:"html_url"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// Index is lost on restart like the statistics.
type Index struct {
	bleve bleve.Index

	mu   sync.RWMutex
	meta map[string]Hit
}

func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{bleve: idx, meta: map[string]Hit{}}, nil
}

func (i *Index) Close() error { return i.bleve.Close() }

// ReportPublished indexes the primary document of res.
func (i *Index) ReportPublished(ctx context.Context, job pipeline.Job, res pipeline.ReportKindResult) error {
	id := res.JobID + "/" + res.ReportKind
	if err := i.bleve.Index(id, document{Query: res.Query, ReportKind: res.ReportKind, Body: res.PrimaryMarkdown}); err != nil {
		return fmt.Errorf("index %s: %w", id, err)
	}
	i.mu.Lock()
	i.meta[id] = Hit{
		JobID:      res.JobID,
		ReportKind: res.ReportKind,
		Query:      res.Query,
		HTMLURL:    res.HTMLURL,
		Snippet:    snippet(res.PrimaryMarkdown),
	}
	i.mu.Unlock()
	return nil
}

// Search runs a query-string query and returns at most k hits.
func (i *Index) Search(q string, k int) ([]Hit, error) {
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if k <= 0 {
		k = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), k, 0, false)
	res, err := i.bleve.Search(req)
	if err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Hit, 0, len(res.Hits))
	for n, h := range res.Hits {
		hit, ok := i.meta[h.ID]
		if !ok {
			continue
		}
		hit.Score = h.Score
		hit.Rank = n + 1
		out = append(out, hit)
	}
	return out, nil
}

// Count is the number of indexed reports.
func (i *Index) Count() (uint64, error) { return i.bleve.DocCount() }

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > 200 {
		return string(r[:200]) + "…"
	}
	return text
}

var _ pipeline.Observer = (*Index)(nil)
