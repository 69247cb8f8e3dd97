// Package engine drives the research capability that turns a query into a
// report body and its by-products (cost, sources, sub-topics, raw context).
package engine

import (
	"context"
	"fmt"
)

// Handle exposes the by-products of one finished research run.
type Handle interface {
	Cost() float64
	SourceURLs() []string
	// Subtopics may trigger additional engine work and has no implicit timeout.
	Subtopics(ctx context.Context) ([]string, error)
	ResearchContext() []string
}

// Researcher is one research session: constructed for a query and report
// type, it conducts research and then writes the report.
type Researcher interface {
	Handle
	ConductResearch(ctx context.Context) error
	WriteReport(ctx context.Context) (string, error)
}

// Factory constructs a Researcher for (query, reportType).
type Factory func(query, reportType string) (Researcher, error)

// Adapter runs a Factory-built researcher end to end. It performs no label
// validation, retries or timing; errors from the engine are returned as is.
type Adapter struct {
	New Factory
}

// NewAdapter wraps factory.
func NewAdapter(factory Factory) *Adapter { return &Adapter{New: factory} }

// Run researches query for the given report kind label and returns the report
// body together with the handle of the finished session.
func (a *Adapter) Run(ctx context.Context, query, kind string) (string, Handle, error) {
	if query == "" {
		return "", nil, fmt.Errorf("empty query")
	}
	r, err := a.New(query, ReportType(kind))
	if err != nil {
		return "", nil, err
	}
	if err := r.ConductResearch(ctx); err != nil {
		return "", nil, err
	}
	body, err := r.WriteReport(ctx)
	if err != nil {
		return "", nil, err
	}
	return body, r, nil
}

// ReportType maps a report kind label (research, outline, ...) to the
// engine's report type name.
func ReportType(kind string) string { return kind + "_report" }
