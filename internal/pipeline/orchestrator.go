package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/artifact"
	"github.com/mohammad-safakhou/reportbot/internal/engine"
	"github.com/mohammad-safakhou/reportbot/internal/logging"
	"github.com/mohammad-safakhou/reportbot/internal/publish"
	"github.com/mohammad-safakhou/reportbot/internal/report"
)

// Researcher runs the research engine for one report kind.
type Researcher interface {
	Run(ctx context.Context, query, kind string) (string, engine.Handle, error)
}

// Assembler builds the documents of a research run.
type Assembler interface {
	Assemble(ctx context.Context, in report.Input) (report.ArtifactSet, error)
}

// Persister writes documents to local storage.
type Persister interface {
	Persist(outputDir, jobID, kind string, set report.ArtifactSet) (artifact.Paths, error)
}

// Publisher uploads one local file and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, localPath string, cfg publish.Config) (string, error)
}

// Recorder receives usage of every successfully produced report kind.
type Recorder interface {
	Record(kind string, cost float64, elapsed time.Duration)
}

// Observer is notified of each result of a successful job.
type Observer interface {
	ReportPublished(ctx context.Context, job Job, res ReportKindResult) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, job Job, res ReportKindResult) error

func (f ObserverFunc) ReportPublished(ctx context.Context, job Job, res ReportKindResult) error {
	return f(ctx, job, res)
}

// Orchestrator runs jobs kind by kind. It holds no per-job state and may run
// distinct jobs concurrently.
type Orchestrator struct {
	research  Researcher
	assemble  Assembler
	persist   Persister
	publisher Publisher

	recorder  Recorder
	observers []Observer
	tracer    trace.Tracer
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithRecorder(r Recorder) Option { return func(o *Orchestrator) { o.recorder = r } }

func WithObservers(obs ...Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs...) }
}

func WithTracer(t trace.Tracer) Option { return func(o *Orchestrator) { o.tracer = t } }

func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.logger = logging.OrNop(l) } }

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

func NewOrchestrator(r Researcher, a Assembler, p Persister, pub Publisher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		research:  r,
		assemble:  a,
		persist:   p,
		publisher: pub,
		tracer:    otel.Tracer("reportbot/pipeline"),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes every report kind of job in order. The first failing kind
// stops the job; results of earlier kinds are discarded and only the error is
// returned. Artifacts already written or uploaded are left in place.
func (o *Orchestrator) Run(ctx context.Context, job Job) ([]ReportKindResult, error) {
	job, err := job.normalize()
	if err != nil {
		return nil, err
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.job", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.StringSlice("job.report_kinds", job.ReportKinds),
	))
	defer span.End()

	logger := o.logger.With(zap.String("job_id", job.ID))
	logger.Info("job started", zap.String("query", job.Query), zap.Strings("report_kinds", job.ReportKinds))

	results := make([]ReportKindResult, 0, len(job.ReportKinds))
	for _, kind := range job.ReportKinds {
		res, err := o.runKind(ctx, job, kind)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("job failed", zap.String("report_kind", kind), zap.Error(err))
			return nil, err
		}
		results = append(results, res)
	}

	for _, res := range results {
		if o.recorder != nil {
			o.recorder.Record(res.ReportKind, res.Cost, res.Elapsed)
		}
		for _, obs := range o.observers {
			if err := obs.ReportPublished(ctx, job, res); err != nil {
				logger.Warn("report observer failed", zap.String("report_kind", res.ReportKind), zap.Error(err))
			}
		}
	}
	logger.Info("job finished", zap.Int("reports", len(results)))
	return results, nil
}

func (o *Orchestrator) runKind(ctx context.Context, job Job, kind string) (ReportKindResult, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.report_kind", trace.WithAttributes(attribute.String("report.kind", kind)))
	defer span.End()

	started := o.now()
	body, handle, err := o.research.Run(ctx, job.Query, kind)
	elapsed := o.now().Sub(started)
	if err != nil {
		return ReportKindResult{}, &Error{Kind: KindEngine, ReportKind: kind, Err: err}
	}

	set, err := o.assemble.Assemble(ctx, report.Input{
		Query:      job.Query,
		ReportKind: kind,
		Body:       body,
		Handle:     handle,
		Elapsed:    elapsed,
	})
	if err != nil {
		return ReportKindResult{}, &Error{Kind: KindEngine, ReportKind: kind, Err: err}
	}

	paths, err := o.persist.Persist(job.OutputDir, job.ID, kind, set)
	if err != nil {
		return ReportKindResult{}, &Error{Kind: KindPersistence, ReportKind: kind, Err: err}
	}

	urls := make([]string, 0, 4)
	for _, p := range paths.All() {
		u, err := o.publisher.Publish(ctx, p, job.Storage)
		if err != nil {
			return ReportKindResult{}, &Error{Kind: KindPublish, ReportKind: kind, Err: err}
		}
		urls = append(urls, u)
	}

	cost := handle.Cost()
	span.SetAttributes(attribute.Float64("report.cost", cost), attribute.Float64("report.elapsed_seconds", elapsed.Seconds()))
	return ReportKindResult{
		JobID:                    job.ID,
		Query:                    job.Query,
		ReportKind:               kind,
		PrimaryPath:              paths.PrimaryMarkdown,
		PrimaryHTMLPath:          paths.PrimaryHTML,
		SupplementaryPath:        paths.SupplementaryMarkdown,
		SupplementaryHTMLPath:    paths.SupplementaryHTML,
		Cost:                     cost,
		Elapsed:                  elapsed,
		ElapsedSeconds:           elapsed.Seconds(),
		MarkdownURL:              urls[0],
		HTMLURL:                  urls[1],
		SupplementaryMarkdownURL: urls[2],
		SupplementaryHTMLURL:     urls[3],
		Sources:                  handle.SourceURLs(),
		CreatedAt:                o.now(),
		PrimaryMarkdown:          set.PrimaryMarkdown,
	}, nil
}
