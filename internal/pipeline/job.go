// Package pipeline runs research jobs: for each requested report kind it
// researches, assembles, persists and publishes the report artifacts.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/reportbot/internal/publish"
)

// DefaultReportKind is used when a job names no kinds.
const DefaultReportKind = "research"

// Job is one research request.
type Job struct {
	ID          string
	Query       string
	ReportKinds []string
	OutputDir   string
	Storage     publish.Config
	// Requester is informational only; it is not validated.
	Requester string
}

// NewJob builds a job with a fresh identifier.
func NewJob(query string, kinds []string, outputDir string, storage publish.Config) Job {
	return Job{
		ID:          uuid.NewString(),
		Query:       query,
		ReportKinds: kinds,
		OutputDir:   outputDir,
		Storage:     storage,
	}
}

func (j Job) normalize() (Job, error) {
	j.Query = strings.TrimSpace(j.Query)
	if j.Query == "" {
		return j, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	var kinds []string
	for _, k := range j.ReportKinds {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		kinds = []string{DefaultReportKind}
	}
	j.ReportKinds = kinds
	if j.OutputDir == "" {
		j.OutputDir = "."
	}
	return j, nil
}

// ReportKindResult is the outcome of one report kind within a job.
type ReportKindResult struct {
	JobID                    string        `json:"job_id"`
	Query                    string        `json:"query"`
	ReportKind               string        `json:"report_kind"`
	PrimaryPath              string        `json:"primary_path"`
	PrimaryHTMLPath          string        `json:"primary_html_path"`
	SupplementaryPath        string        `json:"supplementary_path"`
	SupplementaryHTMLPath    string        `json:"supplementary_html_path"`
	Cost                     float64       `json:"cost"`
	Elapsed                  time.Duration `json:"-"`
	ElapsedSeconds           float64       `json:"elapsed_seconds"`
	MarkdownURL              string        `json:"markdown_url"`
	HTMLURL                  string        `json:"html_url"`
	SupplementaryMarkdownURL string        `json:"supplementary_markdown_url"`
	SupplementaryHTMLURL     string        `json:"supplementary_html_url"`
	Sources                  []string      `json:"sources,omitempty"`
	CreatedAt                time.Time     `json:"created_at"`
	// PrimaryMarkdown is the full primary document, kept for in-channel delivery.
	PrimaryMarkdown string `json:"-"`
}
