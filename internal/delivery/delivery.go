// Package delivery sends text to a chat channel under a fixed per-message rate
// limit, splitting long lines into fixed-size segments.
package delivery

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/logging"
)

const (
	DefaultLineLimit = 400
	DefaultInterval  = time.Second
)

// Sender is the raw, unthrottled chat send primitive.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, text string) error

func (f SenderFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// Channel serialises deliveries onto one Sender. A Deliver call holds the
// channel for its whole duration so lines from concurrent callers never
// interleave.
type Channel struct {
	mu       sync.Mutex
	sender   Sender
	limit    int
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithLineLimit sets the maximum segment length in characters.
func WithLineLimit(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithInterval sets the delay observed before every send.
func WithInterval(d time.Duration) Option {
	return func(c *Channel) {
		if d >= 0 {
			c.interval = d
		}
	}
}

// WithSleep replaces the context-aware sleep, mostly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Channel) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) { c.logger = logging.OrNop(l) }
}

func New(sender Sender, opts ...Option) *Channel {
	c := &Channel{
		sender:   sender,
		limit:    DefaultLineLimit,
		interval: DefaultInterval,
		sleep:    sleepContext,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver emits every segment of every line in order, waiting the configured
// interval before each send, the first included.
func (c *Channel) Deliver(ctx context.Context, lines []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sent := 0
	for _, line := range lines {
		for _, segment := range Split(line, c.limit) {
			if err := c.sleep(ctx, c.interval); err != nil {
				return err
			}
			if err := c.sender.Send(ctx, segment); err != nil {
				c.logger.Warn("send failed", zap.Int("sent", sent), zap.Error(err))
				return err
			}
			sent++
		}
	}
	c.logger.Debug("delivered", zap.Int("lines", len(lines)), zap.Int("segments", sent))
	return nil
}

// Send delivers a single status line.
func (c *Channel) Send(ctx context.Context, text string) error {
	return c.Deliver(ctx, []string{text})
}

// DeliverText delivers a whole document line by line.
func (c *Channel) DeliverText(ctx context.Context, text string) error {
	return c.Deliver(ctx, Lines(text))
}

// Lines splits a document on newlines, dropping the terminator of the final line.
func Lines(text string) []string {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Split cuts line into segments of at most limit characters. Concatenating
// the segments reproduces line exactly. Lengths count runes so multi-byte
// characters are never cut in half.
func Split(line string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLineLimit
	}
	if !utf8.ValidString(line) {
		return splitBytes(line, limit)
	}
	runes := []rune(line)
	if len(runes) <= limit {
		return []string{line}
	}
	segments := make([]string, 0, (len(runes)+limit-1)/limit)
	for len(runes) > limit {
		segments = append(segments, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(segments, string(runes))
}

func splitBytes(line string, limit int) []string {
	if len(line) <= limit {
		return []string{line}
	}
	var segments []string
	for len(line) > limit {
		segments = append(segments, line[:limit])
		line = line[limit:]
	}
	return append(segments, line)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
