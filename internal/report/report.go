// Package report assembles the primary and supplementary documents of one
// research run, in Markdown and rendered HTML.
package report

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/mohammad-safakhou/reportbot/internal/engine"
	"github.com/mohammad-safakhou/reportbot/internal/helpers"
)

// Input is one finished research run.
type Input struct {
	Query      string
	ReportKind string
	Body       string
	Handle     engine.Handle
	Elapsed    time.Duration
}

// ArtifactSet holds the four in-memory documents of a report kind.
type ArtifactSet struct {
	PrimaryMarkdown       string
	PrimaryHTML           string
	SupplementaryMarkdown string
	SupplementaryHTML     string
}

// Renderer converts Markdown into sanitized HTML.
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// HTML renders src. Rendering is pure: the same input always yields the same
// output.
func (r *Renderer) HTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return helpers.SanitizeReportHTML(buf.String()), nil
}

// Assembler builds ArtifactSets.
type Assembler struct {
	Renderer *Renderer
}

func NewAssembler() *Assembler { return &Assembler{Renderer: NewRenderer()} }

// Assemble builds the documents for in. The sub-topics call may run further
// engine work and is bounded only by ctx.
func (a *Assembler) Assemble(ctx context.Context, in Input) (ArtifactSet, error) {
	var set ArtifactSet
	set.PrimaryMarkdown = header(in, false) + in.Body

	subtopics, err := in.Handle.Subtopics(ctx)
	if err != nil {
		return ArtifactSet{}, err
	}
	set.SupplementaryMarkdown = supplementary(in, subtopics)

	if set.PrimaryHTML, err = a.Renderer.HTML(set.PrimaryMarkdown); err != nil {
		return ArtifactSet{}, err
	}
	if set.SupplementaryHTML, err = a.Renderer.HTML(set.SupplementaryMarkdown); err != nil {
		return ArtifactSet{}, err
	}
	return set, nil
}

func header(in Input, withKind bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", in.Query)
	fmt.Fprintf(&b, "- Query: %s\n", in.Query)
	if withKind {
		fmt.Fprintf(&b, "- Report type: %s\n", in.ReportKind)
	}
	fmt.Fprintf(&b, "- Elapsed: %s\n\n---\n\n", FormatSeconds(in.Elapsed))
	return b.String()
}

func supplementary(in Input, subtopics []string) string {
	var b strings.Builder
	b.WriteString(header(in, true))

	fmt.Fprintf(&b, "## Costs\n\n%s\n\n", FormatCost(in.Handle.Cost()))

	b.WriteString("## Visited URLs\n\n")
	for _, u := range in.Handle.SourceURLs() {
		b.WriteString(u)
		b.WriteString("\n\n")
	}

	b.WriteString("## Sub-topics\n\n")
	for _, t := range subtopics {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("## Full context\n\n")
	for _, c := range in.Handle.ResearchContext() {
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSeconds renders d as seconds with two decimals.
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// FormatCost renders a cost without trailing zeros.
func FormatCost(c float64) string {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return fmt.Sprint(c)
	}
	return fmt.Sprintf("%g", c)
}
