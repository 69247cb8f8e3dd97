package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/mohammad-safakhou/reportbot/internal/artifact"
	"github.com/mohammad-safakhou/reportbot/internal/delivery"
	"github.com/mohammad-safakhou/reportbot/internal/engine"
	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
	"github.com/mohammad-safakhou/reportbot/internal/publish"
	"github.com/mohammad-safakhou/reportbot/internal/report"
	"github.com/mohammad-safakhou/reportbot/internal/stats"
)

// sink records sends and the sleep requested before each of them.
type sink struct {
	mu     sync.Mutex
	lines  []string
	sleeps []time.Duration
	fail   error
}

func (s *sink) send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.lines = append(s.lines, text)
	return nil
}

func (s *sink) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func (s *sink) channel() *delivery.Channel {
	return delivery.New(delivery.SenderFunc(s.send), delivery.WithSleep(s.sleep))
}

type handle struct{}

func (handle) Cost() float64                               { return 0.25 }
func (handle) SourceURLs() []string                        { return []string{"https://a.example"} }
func (handle) Subtopics(context.Context) ([]string, error) { return []string{"t"}, nil }
func (handle) ResearchContext() []string                   { return []string{"c"} }

type researcher struct {
	body string
	err  error
	kind string
}

func (r *researcher) Run(ctx context.Context, query, kind string) (string, engine.Handle, error) {
	r.kind = kind
	if r.err != nil {
		return "", nil, r.err
	}
	return r.body, handle{}, nil
}

type publisher struct{}

func (publisher) Publish(ctx context.Context, localPath string, cfg publish.Config) (string, error) {
	return publish.ObjectURL(cfg.Domain, publish.ObjectName(localPath)), nil
}

type fixture struct {
	sink   *sink
	stats  *stats.Aggregator
	res    *researcher
	router *Router
}

func newFixture(t *testing.T, reportInChannel bool, body string) *fixture {
	t.Helper()
	f := &fixture{sink: &sink{}, stats: stats.New(), res: &researcher{body: body}}
	orch := pipeline.NewOrchestrator(f.res, report.NewAssembler(), artifact.NewWriter(afero.NewMemMapFs()), publisher{},
		pipeline.WithRecorder(f.stats))
	f.router = NewRouter(Config{
		Trigger:         "research!",
		OutputDir:       "/bot.out",
		Storage:         publish.Config{Bucket: "b", Domain: "https://files.example"},
		ReportInChannel: reportInChannel,
	}, pipeline.NewPool(orch, 1), f.sink.channel(), f.stats, nil)
	return f
}

func (f *fixture) handle(text string) {
	f.router.Handle(context.Background(), Message{Text: text, Sender: "alice", Channel: "#research"})
}

func TestResearchDefaultKindInChannel(t *testing.T) {
	long := strings.Repeat("x", 950)
	f := newFixture(t, true, "intro\n"+long)
	f.handle("research! climate change policy")

	if f.res.kind != "research" {
		t.Fatalf("kind = %q", f.res.kind)
	}
	lines := f.sink.lines
	if len(lines) < 2 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.Contains(lines[0], `"climate change policy"`) || !strings.HasPrefix(lines[0], "Generating research report for user alice") {
		t.Fatalf("status line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "cost 0.25") || !strings.Contains(lines[1], "https://files.example/") {
		t.Fatalf("completion line = %q", lines[1])
	}
	var joined strings.Builder
	for _, l := range lines[2:] {
		if len([]rune(l)) > delivery.DefaultLineLimit {
			t.Fatalf("segment of %d chars", len([]rune(l)))
		}
		joined.WriteString(l)
	}
	if !strings.Contains(joined.String(), long) {
		t.Fatal("report text not delivered in full")
	}
	if len(f.sink.sleeps) != len(lines) {
		t.Fatalf("%d sleeps for %d sends", len(f.sink.sleeps), len(lines))
	}
	for _, d := range f.sink.sleeps {
		if d < time.Second {
			t.Fatalf("sleep %v below one second", d)
		}
	}
	snap := f.stats.Snapshot()
	if snap.Queries != 1 || snap.ReportTypes["research"] != 1 || snap.Costs != 0.25 {
		t.Fatalf("stats = %+v", snap)
	}
}

func TestResearchOutlineLoud(t *testing.T) {
	f := newFixture(t, false, "# outline")
	f.handle("research!type=outline!loud impact of AI on education")

	if f.res.kind != "outline" {
		t.Fatalf("kind = %q", f.res.kind)
	}
	lines := f.sink.lines
	if len(lines) != 3 {
		t.Fatalf("lines = %v", lines)
	}
	last := lines[2]
	if !strings.HasPrefix(last, "Markdown available at https://files.example/") ||
		!strings.Contains(last, ".supplementary.txt or https://files.example/") ||
		!strings.HasSuffix(last, ".supplementary.html; cost 0.25") {
		t.Fatalf("loud line = %q", last)
	}
}

func TestPing(t *testing.T) {
	f := newFixture(t, true, "")
	f.handle("research!ping")
	if len(f.sink.lines) != 1 || f.sink.lines[0] != "Pong!" {
		t.Fatalf("lines = %v", f.sink.lines)
	}
	if f.stats.Snapshot().Queries != 0 || f.res.kind != "" {
		t.Fatal("ping must not create a job")
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, false, "body")
	f.stats.Record("research", 1.5, 2*time.Second)
	f.handle("research!stats")

	out := strings.Join(f.sink.lines, "\n")
	for _, field := range []string{`"queries": 1`, `"costs": 1.5`, `"processingTime": 2`, `"research": 1`, `"uptime": `} {
		if !strings.Contains(out, field) {
			t.Fatalf("stats output missing %s:\n%s", field, out)
		}
	}
	if strings.HasPrefix(strings.TrimSpace(f.sink.lines[0]), "{") {
		t.Fatalf("enclosing brace delivered: %q", f.sink.lines[0])
	}
}

func TestIgnoredMessages(t *testing.T) {
	f := newFixture(t, false, "body")
	f.router.Handle(context.Background(), Message{Text: "research!ping", Sender: ""})
	f.router.Handle(context.Background(), Message{Text: "", Sender: "bob"})
	f.handle("just chatting")
	f.handle("research!unknown")
	if len(f.sink.lines) != 0 {
		t.Fatalf("lines = %v", f.sink.lines)
	}
}

func TestEngineErrorIsReported(t *testing.T) {
	f := newFixture(t, false, "")
	f.res.err = errors.New(`unsupported report type "weird_report"`)
	f.handle("research!type=weird some query")

	lines := f.sink.lines
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.HasPrefix(lines[1], "BOT ERROR: ") || !strings.Contains(lines[1], "weird_report") {
		t.Fatalf("error line = %q", lines[1])
	}
	if f.stats.Snapshot().Queries != 0 {
		t.Fatal("failed job recorded in stats")
	}
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, pipeline.Job) ([]pipeline.ReportKindResult, error) {
	panic("boom")
}

func TestPanicIsReported(t *testing.T) {
	s := &sink{}
	r := NewRouter(Config{}, panicRunner{}, s.channel(), stats.New(), nil)
	r.Handle(context.Background(), Message{Text: "research! q", Sender: "bob"})
	if len(s.lines) != 2 || s.lines[1] != "BOT ERROR: panic: boom" {
		t.Fatalf("lines = %v", s.lines)
	}
}

func TestReady(t *testing.T) {
	f := newFixture(t, false, "")
	if err := f.router.Ready(context.Background(), "reportbot", "#research"); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(f.sink.lines) != 1 || f.sink.lines[0] != "Ready to research!" {
		t.Fatalf("lines = %v", f.sink.lines)
	}
}

func TestResearchUsesConfiguredDefaultKind(t *testing.T) {
	f := newFixture(t, false, "# body")
	f.router.cfg.DefaultReportKind = "outline"
	f.handle("research! quantum error correction")

	if f.res.kind != "outline" {
		t.Fatalf("kind = %q, want outline", f.res.kind)
	}
	if len(f.sink.lines) == 0 || !strings.HasPrefix(f.sink.lines[0], "Generating outline report for user alice") {
		t.Fatalf("lines = %v", f.sink.lines)
	}
}
