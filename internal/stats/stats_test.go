package stats

import (
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRecordAccumulates(t *testing.T) {
	a := New()
	a.Record("research", 0.25, 30*time.Second)
	a.Record("outline", 0.5, 10*time.Second)
	a.Record("research", 0.25, 20*time.Second)

	s := a.Snapshot()
	if s.Queries != 3 {
		t.Fatalf("expected 3 queries, got %d", s.Queries)
	}
	if s.Costs != 1.0 {
		t.Fatalf("expected cost 1.0, got %v", s.Costs)
	}
	if s.ProcessingTime != 60 {
		t.Fatalf("expected 60s processing, got %v", s.ProcessingTime)
	}
	want := map[string]int64{"research": 2, "outline": 1}
	if !reflect.DeepEqual(s.ReportTypes, want) {
		t.Fatalf("report types = %v, want %v", s.ReportTypes, want)
	}
}

func TestRecordOrderIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	ab := New(WithClock(clock.Now))
	ab.Record("research", 0.125, 3*time.Second)
	ab.Record("outline", 0.75, 7*time.Second)

	ba := New(WithClock(clock.Now))
	ba.Record("outline", 0.75, 7*time.Second)
	ba.Record("research", 0.125, 3*time.Second)

	if !reflect.DeepEqual(ab.Snapshot(), ba.Snapshot()) {
		t.Fatalf("snapshots differ: %+v vs %+v", ab.Snapshot(), ba.Snapshot())
	}
}

func TestConcurrentRecordsAreNotLost(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Record("research", 1, time.Second)
		}()
	}
	wg.Wait()
	s := a.Snapshot()
	if s.Queries != 50 || s.Costs != 50 || s.ReportTypes["research"] != 50 {
		t.Fatalf("lost updates: %+v", s)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	a := New()
	a.Record("research", 1, time.Second)
	s := a.Snapshot()
	s.ReportTypes["research"] = 99
	if got := a.Snapshot().ReportTypes["research"]; got != 1 {
		t.Fatalf("snapshot mutation leaked into aggregator: %d", got)
	}
}

func TestSnapshotUptime(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	a := New(WithClock(clock.Now))
	if up := a.Snapshot().Uptime; up != 0 {
		t.Fatalf("expected zero uptime, got %v", up)
	}
	clock.Advance(90 * time.Second)
	if up := a.Snapshot().Uptime; up != 90 {
		t.Fatalf("expected 90s uptime, got %v", up)
	}
}

func TestSnapshotLines(t *testing.T) {
	a := New()
	a.Record("research", 0.5, 2*time.Second)
	lines, err := a.Snapshot().Lines()
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	joined := strings.Join(lines, "\n")
	for _, field := range []string{`"queries": 1`, `"costs": 0.5`, `"processingTime": 2`, `"research": 1`, `"uptime":`} {
		if !strings.Contains(joined, field) {
			t.Fatalf("missing %s in %q", field, joined)
		}
	}
	if lines[0] != `  "queries": 1,` {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if last := lines[len(lines)-1]; !strings.HasPrefix(last, `  "uptime":`) {
		t.Fatalf("unexpected last line %q", last)
	}
}

func TestRecordUpdatesPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(WithRegisterer(reg))
	a.Record("outline", 0.5, 4*time.Second)
	a.Record("outline", 0.25, time.Second)

	if got := testutil.ToFloat64(a.metrics.queries); got != 2 {
		t.Fatalf("queries counter = %v", got)
	}
	if got := testutil.ToFloat64(a.metrics.cost); got != 0.75 {
		t.Fatalf("cost counter = %v", got)
	}
	if got := testutil.ToFloat64(a.metrics.reports.WithLabelValues("outline")); got != 2 {
		t.Fatalf("outline counter = %v", got)
	}
}
