// Package stats aggregates process-wide report counters. Counters only grow and
// are lost on restart.
package stats

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is a point-in-time copy of the aggregated counters.
type Snapshot struct {
	Queries        int64            `json:"queries"`
	Costs          float64          `json:"costs"`
	ProcessingTime float64          `json:"processingTime"`
	ReportTypes    map[string]int64 `json:"reportTypes"`
	Uptime         float64          `json:"uptime"`
}

// Lines renders the snapshot as indented JSON without the enclosing braces,
// one field per line, ready for line-oriented delivery.
func (s Snapshot) Lines() ([]string, error) {
	if s.ReportTypes == nil {
		s.ReportTypes = map[string]int64{}
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(raw), "\n")
	if len(lines) < 2 {
		return nil, nil
	}
	return lines[1 : len(lines)-1], nil
}

// Aggregator is safe for concurrent use; each Record is applied atomically.
type Aggregator struct {
	mu          sync.Mutex
	queries     int64
	cost        float64
	processing  time.Duration
	reportTypes map[string]int64

	started time.Time
	now     func() time.Time
	metrics *metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the wall clock used for uptime.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRegisterer mirrors every Record into Prometheus collectors registered on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *Aggregator) {
		if reg != nil {
			a.metrics = newMetrics(reg)
		}
	}
}

// New returns an Aggregator whose uptime starts now.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		reportTypes: make(map[string]int64),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.started = a.now()
	return a
}

// Record accounts one completed report.
func (a *Aggregator) Record(reportType string, cost float64, elapsed time.Duration) {
	a.mu.Lock()
	a.queries++
	a.cost += cost
	a.processing += elapsed
	a.reportTypes[reportType]++
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.observe(reportType, cost, elapsed)
	}
}

// Snapshot returns a copy of the counters with the uptime at the moment of the call.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	types := make(map[string]int64, len(a.reportTypes))
	for k, v := range a.reportTypes {
		types[k] = v
	}
	uptime := a.now().Sub(a.started).Seconds()
	if uptime < 0 {
		uptime = 0
	}
	return Snapshot{
		Queries:        a.queries,
		Costs:          a.cost,
		ProcessingTime: a.processing.Seconds(),
		ReportTypes:    types,
		Uptime:         uptime,
	}
}
