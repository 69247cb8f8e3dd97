package streams

import (
	"context"

	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
)

// ReportPublishedEvent is the payload of report.published.
type ReportPublishedEvent struct {
	JobID          string     `json:"job_id"`
	Query          string     `json:"query"`
	ReportKind     string     `json:"report_kind"`
	Requester      string     `json:"requester,omitempty"`
	Cost           float64    `json:"cost"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	URLs           ReportURLs `json:"urls"`
	Sources        []string   `json:"sources,omitempty"`
}

type ReportURLs struct {
	Markdown              string `json:"markdown"`
	HTML                  string `json:"html"`
	SupplementaryMarkdown string `json:"supplementary_markdown"`
	SupplementaryHTML     string `json:"supplementary_html"`
}

// ReportEvents announces published reports on a stream.
type ReportEvents struct {
	publisher *Publisher
	stream    string
}

func NewReportEvents(p *Publisher, stream string) *ReportEvents {
	return &ReportEvents{publisher: p, stream: stream}
}

func (r *ReportEvents) ReportPublished(ctx context.Context, job pipeline.Job, res pipeline.ReportKindResult) error {
	_, err := r.publisher.PublishRaw(ctx, r.stream, EventReportPublished, VersionV1, ReportPublishedEvent{
		JobID:          res.JobID,
		Query:          res.Query,
		ReportKind:     res.ReportKind,
		Requester:      job.Requester,
		Cost:           res.Cost,
		ElapsedSeconds: res.ElapsedSeconds,
		URLs: ReportURLs{
			Markdown:              res.MarkdownURL,
			HTML:                  res.HTMLURL,
			SupplementaryMarkdown: res.SupplementaryMarkdownURL,
			SupplementaryHTML:     res.SupplementaryHTMLURL,
		},
		Sources: res.Sources,
	})
	return err
}

var _ pipeline.Observer = (*ReportEvents)(nil)
