// Package bot turns chat lines into pings, statistics and research jobs and
// reports their outcome back to the channel.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/logging"
	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
	"github.com/mohammad-safakhou/reportbot/internal/publish"
	"github.com/mohammad-safakhou/reportbot/internal/stats"
)

// Message is one inbound chat line.
type Message struct {
	Text    string
	Sender  string
	Channel string
}

// Output is the throttled channel the router writes to.
type Output interface {
	Send(ctx context.Context, text string) error
	Deliver(ctx context.Context, lines []string) error
	DeliverText(ctx context.Context, text string) error
}

// StatsSource provides the statistics snapshot.
type StatsSource interface {
	Snapshot() stats.Snapshot
}

type Config struct {
	Trigger string
	// DefaultReportKind applies to research commands without type=.
	DefaultReportKind string
	OutputDir         string
	Storage           publish.Config
	ReportInChannel   bool
}

type Router struct {
	cfg    Config
	jobs   pipeline.JobRunner
	out    Output
	stats  StatsSource
	logger *zap.Logger
	newJob func(query string, kinds []string, outputDir string, storage publish.Config) pipeline.Job
}

func NewRouter(cfg Config, jobs pipeline.JobRunner, out Output, st StatsSource, logger *zap.Logger) *Router {
	if cfg.Trigger == "" {
		cfg.Trigger = "research!"
	}
	return &Router{
		cfg:    cfg,
		jobs:   jobs,
		out:    out,
		stats:  st,
		logger: logging.OrNop(logger),
		newJob: pipeline.NewJob,
	}
}

// Ready announces the bot once the channel is joined.
func (r *Router) Ready(ctx context.Context, nickname, channel string) error {
	r.logger.Info("logged in",
		zap.String("nickname", nickname),
		zap.String("channel", channel),
		zap.Bool("report_in_channel", r.cfg.ReportInChannel))
	return r.out.Send(ctx, "Ready to research!")
}

// Handle processes one message. Every failure, panics included, ends as a
// single "BOT ERROR" line; Handle itself never fails.
func (r *Router) Handle(ctx context.Context, msg Message) {
	if msg.Text == "" || msg.Sender == "" {
		return
	}
	cmd := Parse(r.cfg.Trigger, r.cfg.DefaultReportKind, msg.Text)
	if cmd.Kind == CommandNone {
		return
	}
	logger := r.logger.With(zap.String("user", msg.Sender), zap.Stringer("command", cmd.Kind))

	err := r.safeDispatch(ctx, cmd, msg)
	if err == nil || errors.Is(err, pipeline.ErrInvalidInput) {
		return
	}
	logger.Error("command failed", zap.String("error_kind", string(pipeline.KindOf(err))), zap.Error(err))
	if sendErr := r.out.Send(ctx, "BOT ERROR: "+err.Error()); sendErr != nil {
		logger.Error("error report failed", zap.Error(sendErr))
	}
}

func (r *Router) safeDispatch(ctx context.Context, cmd Command, msg Message) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	switch cmd.Kind {
	case CommandPing:
		return r.out.Send(ctx, "Pong!")
	case CommandStats:
		return r.sendStats(ctx)
	case CommandResearch:
		return r.research(ctx, cmd, msg.Sender)
	}
	return nil
}

func (r *Router) sendStats(ctx context.Context) error {
	lines, err := r.stats.Snapshot().Lines()
	if err != nil {
		return err
	}
	return r.out.Deliver(ctx, lines)
}

func (r *Router) research(ctx context.Context, cmd Command, user string) error {
	status := fmt.Sprintf("Generating %s report for user %s with query \"%s\"...", cmd.ReportKind, user, cmd.Query)
	r.logger.Info(status)
	if err := r.out.Send(ctx, status); err != nil {
		return deliveryError(err)
	}

	job := r.newJob(cmd.Query, []string{cmd.ReportKind}, r.cfg.OutputDir, r.cfg.Storage)
	job.Requester = user
	results, err := r.jobs.Run(ctx, job)
	if err != nil {
		return err
	}

	for _, res := range results {
		line := fmt.Sprintf("Report for %s's query \"%s\" (~%.0fs, cost %s): %s",
			user, cmd.Query, math.Round(res.ElapsedSeconds), formatCost(res.Cost), res.HTMLURL)
		if err := r.out.Send(ctx, line); err != nil {
			return deliveryError(err)
		}
		if r.cfg.ReportInChannel {
			if err := r.out.DeliverText(ctx, res.PrimaryMarkdown); err != nil {
				return deliveryError(err)
			}
		}
		if cmd.Loud {
			line := fmt.Sprintf("Markdown available at %s; supplementary available at %s or %s; cost %s",
				res.MarkdownURL, res.SupplementaryMarkdownURL, res.SupplementaryHTMLURL, formatCost(res.Cost))
			if err := r.out.Send(ctx, line); err != nil {
				return deliveryError(err)
			}
		}
	}
	return nil
}

func deliveryError(err error) error {
	return &pipeline.Error{Kind: pipeline.KindDelivery, Err: err}
}

func formatCost(c float64) string { return fmt.Sprintf("%g", c) }
