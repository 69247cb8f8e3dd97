// Package irc connects the bot to an IRC channel.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/logging"
)

type Config struct {
	Server   string
	Port     int
	TLS      bool
	Nickname string
	Channel  string
}

// Handlers receive channel events. Message handlers run on their own
// goroutine so long jobs never block the connection.
type Handlers struct {
	Ready   func(ctx context.Context, nickname, channel string)
	Message func(ctx context.Context, text, sender, channel string)
}

type Client struct {
	cfg      Config
	conn     *ircevent.Connection
	handlers Handlers
	logger   *zap.Logger
	privmsg  func(target, text string) error

	ctx      context.Context
	inflight sync.WaitGroup
}

func New(cfg Config, handlers Handlers, logger *zap.Logger) *Client {
	port := cfg.Port
	if port == 0 {
		port = 6667
		if cfg.TLS {
			port = 6697
		}
	}
	conn := &ircevent.Connection{
		Server:   fmt.Sprintf("%s:%d", cfg.Server, port),
		Nick:     cfg.Nickname,
		User:     cfg.Nickname,
		RealName: cfg.Nickname,
		UseTLS:   cfg.TLS,
	}
	if cfg.TLS {
		conn.TLSConfig = &tls.Config{ServerName: cfg.Server, MinVersion: tls.VersionTLS12}
	}
	c := &Client{
		cfg:      cfg,
		conn:     conn,
		handlers: handlers,
		logger:   logging.OrNop(logger),
		ctx:      context.Background(),
	}
	c.privmsg = conn.Privmsg
	conn.AddConnectCallback(func(ircmsg.Message) {
		c.logger.Info("connected", zap.String("server", conn.Server))
		if err := conn.Join(cfg.Channel); err != nil {
			c.logger.Error("join failed", zap.String("channel", cfg.Channel), zap.Error(err))
		}
	})
	conn.AddCallback("JOIN", c.onJoin)
	conn.AddCallback("PRIVMSG", c.onPrivmsg)
	return c
}

// Run connects and processes events until ctx ends, then quits and waits
// for in-flight message handlers.
func (c *Client) Run(ctx context.Context) error {
	c.ctx = ctx
	if err := c.conn.Connect(); err != nil {
		return fmt.Errorf("irc connect %s: %w", c.conn.Server, err)
	}
	stop := context.AfterFunc(ctx, c.conn.Quit)
	defer stop()
	c.conn.Loop()
	c.inflight.Wait()
	return ctx.Err()
}

// Send writes one line to the channel. IRC cannot carry empty messages, so
// blank lines are sent as a single space.
func (c *Client) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		text = " "
	}
	for _, piece := range fitLine(text, c.bodyLimit()) {
		if err := c.privmsg(c.cfg.Channel, piece); err != nil {
			return err
		}
	}
	return nil
}

// bodyLimit is the number of message bytes that fit in one PRIVMSG line
// to the channel, CRLF included.
func (c *Client) bodyLimit() int {
	maxLen := c.conn.MaxLineLen
	if maxLen <= 0 {
		maxLen = defaultMaxLineLen
	}
	return maxLen - len("PRIVMSG "+c.cfg.Channel+" :\r\n")
}

const defaultMaxLineLen = 512

// fitLine cuts text into pieces of at most limit bytes without splitting a
// rune. Multi-byte text can exceed the wire limit well before it reaches
// the character limit applied upstream.
func fitLine(text string, limit int) []string {
	if limit < utf8.UTFMax {
		limit = utf8.UTFMax
	}
	var pieces []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		pieces = append(pieces, text[:cut])
		text = text[cut:]
	}
	return append(pieces, text)
}

func (c *Client) onJoin(e ircmsg.Message) {
	if len(e.Params) == 0 || e.Nick() != c.conn.CurrentNick() {
		return
	}
	channel := e.Params[0]
	if !strings.EqualFold(channel, c.cfg.Channel) || c.handlers.Ready == nil {
		return
	}
	c.dispatch(func(ctx context.Context) { c.handlers.Ready(ctx, c.conn.CurrentNick(), channel) })
}

func (c *Client) onPrivmsg(e ircmsg.Message) {
	if len(e.Params) < 2 || c.handlers.Message == nil {
		return
	}
	target, text, sender := e.Params[0], e.Params[1], e.Nick()
	if !strings.EqualFold(target, c.cfg.Channel) {
		return
	}
	c.dispatch(func(ctx context.Context) { c.handlers.Message(ctx, text, sender, target) })
}

func (c *Client) dispatch(fn func(ctx context.Context)) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn(c.ctx)
	}()
}
