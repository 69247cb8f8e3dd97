package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/logging"
)

// Digest posts the statistics snapshot to the channel on a cron schedule.
type Digest struct {
	expr   *cronexpr.Expression
	stats  StatsSource
	out    Output
	logger *zap.Logger
	now    func() time.Time
	tick   time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewDigest parses spec (5/6/7 field cron or @hourly, @daily, ...).
func NewDigest(spec string, st StatsSource, out Output, logger *zap.Logger) (*Digest, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse stats schedule %q: %w", spec, err)
	}
	return &Digest{
		expr:   expr,
		stats:  st,
		out:    out,
		logger: logging.OrNop(logger),
		now:    time.Now,
		tick:   30 * time.Second,
	}, nil
}

// Start runs the schedule until ctx ends.
func (d *Digest) Start(ctx context.Context) {
	d.mu.Lock()
	d.last = d.now()
	d.mu.Unlock()

	ticker := time.NewTicker(d.tick)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := d.runIfDue(ctx); err != nil {
					d.logger.Warn("stats digest failed", zap.Error(err))
				}
			}
		}
	}()
}

// runIfDue posts the digest when the next scheduled time after the previous
// run has passed.
func (d *Digest) runIfDue(ctx context.Context) error {
	d.mu.Lock()
	now := d.now()
	next := d.expr.Next(d.last)
	if next.IsZero() || next.After(now) {
		d.mu.Unlock()
		return nil
	}
	d.last = now
	d.mu.Unlock()

	lines, err := d.stats.Snapshot().Lines()
	if err != nil {
		return err
	}
	return d.out.Deliver(ctx, append([]string{"Stats digest:"}, lines...))
}
