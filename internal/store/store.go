// Package store keeps the history of published reports in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
)

type Store struct {
	DB *sql.DB
}

// ReportRecord is one published report kind.
type ReportRecord struct {
	ID                       int64     `json:"id"`
	JobID                    string    `json:"job_id"`
	Query                    string    `json:"query"`
	ReportKind               string    `json:"report_kind"`
	Requester                string    `json:"requester,omitempty"`
	Cost                     float64   `json:"cost"`
	ElapsedSeconds           float64   `json:"elapsed_seconds"`
	MarkdownURL              string    `json:"markdown_url"`
	HTMLURL                  string    `json:"html_url"`
	SupplementaryMarkdownURL string    `json:"supplementary_markdown_url"`
	SupplementaryHTMLURL     string    `json:"supplementary_html_url"`
	Sources                  []string  `json:"sources"`
	CreatedAt                time.Time `json:"created_at"`
}

// DefaultListLimit bounds ListReports when no limit is given.
const DefaultListLimit = 50

// NewWithDSN opens and pings the database behind dsn.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// InsertReport stores rec. A later run of the same job and kind replaces the
// earlier row, since its artifacts were rewritten under new names.
func (s *Store) InsertReport(ctx context.Context, rec ReportRecord) error {
	sources := rec.Sources
	if sources == nil {
		sources = []string{}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO reports (job_id, query, report_kind, requester, cost, elapsed_seconds,
	markdown_url, html_url, supplementary_markdown_url, supplementary_html_url, sources, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (job_id, report_kind) DO UPDATE SET
	query = EXCLUDED.query,
	requester = EXCLUDED.requester,
	cost = EXCLUDED.cost,
	elapsed_seconds = EXCLUDED.elapsed_seconds,
	markdown_url = EXCLUDED.markdown_url,
	html_url = EXCLUDED.html_url,
	supplementary_markdown_url = EXCLUDED.supplementary_markdown_url,
	supplementary_html_url = EXCLUDED.supplementary_html_url,
	sources = EXCLUDED.sources,
	created_at = EXCLUDED.created_at`,
		rec.JobID, rec.Query, rec.ReportKind, rec.Requester, rec.Cost, rec.ElapsedSeconds,
		rec.MarkdownURL, rec.HTMLURL, rec.SupplementaryMarkdownURL, rec.SupplementaryHTMLURL,
		pq.Array(sources), createdAt)
	if err != nil {
		return fmt.Errorf("insert report %s/%s: %w", rec.JobID, rec.ReportKind, err)
	}
	return nil
}

// ListReports returns the most recent reports, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]ReportRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, job_id, query, report_kind, requester, cost, elapsed_seconds,
	markdown_url, html_url, supplementary_markdown_url, supplementary_html_url, sources, created_at
FROM reports
ORDER BY created_at DESC, id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		var rec ReportRecord
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.Query, &rec.ReportKind, &rec.Requester,
			&rec.Cost, &rec.ElapsedSeconds, &rec.MarkdownURL, &rec.HTMLURL,
			&rec.SupplementaryMarkdownURL, &rec.SupplementaryHTMLURL,
			pq.Array(&rec.Sources), &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ReportPublished records a pipeline result.
func (s *Store) ReportPublished(ctx context.Context, job pipeline.Job, res pipeline.ReportKindResult) error {
	return s.InsertReport(ctx, RecordFromResult(job, res))
}

func RecordFromResult(job pipeline.Job, res pipeline.ReportKindResult) ReportRecord {
	return ReportRecord{
		JobID:                    res.JobID,
		Query:                    res.Query,
		ReportKind:               res.ReportKind,
		Requester:                job.Requester,
		Cost:                     res.Cost,
		ElapsedSeconds:           res.ElapsedSeconds,
		MarkdownURL:              res.MarkdownURL,
		HTMLURL:                  res.HTMLURL,
		SupplementaryMarkdownURL: res.SupplementaryMarkdownURL,
		SupplementaryHTMLURL:     res.SupplementaryHTMLURL,
		Sources:                  res.Sources,
		CreatedAt:                res.CreatedAt,
	}
}

var _ pipeline.Observer = (*Store)(nil)
