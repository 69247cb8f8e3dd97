package irc

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/ergochat/irc-go/ircmsg"
)

func TestPrivmsgDispatch(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	c := New(Config{Server: "irc.example", Nickname: "reportbot", Channel: "#research"}, Handlers{
		Message: func(ctx context.Context, text, sender, channel string) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, sender+"|"+channel+"|"+text)
		},
	}, nil)

	c.onPrivmsg(ircmsg.MakeMessage(nil, "alice!a@host", "PRIVMSG", "#research", "research!ping"))
	c.onPrivmsg(ircmsg.MakeMessage(nil, "bob!b@host", "PRIVMSG", "reportbot", "private"))
	c.onPrivmsg(ircmsg.MakeMessage(nil, "bob!b@host", "PRIVMSG", "#research"))
	c.inflight.Wait()

	if len(got) != 1 || got[0] != "alice|#research|research!ping" {
		t.Fatalf("got = %v", got)
	}
}

func TestDefaultPort(t *testing.T) {
	if s := New(Config{Server: "irc.example"}, Handlers{}, nil).conn.Server; s != "irc.example:6667" {
		t.Fatalf("server = %s", s)
	}
	if s := New(Config{Server: "irc.example", TLS: true}, Handlers{}, nil).conn.Server; s != "irc.example:6697" {
		t.Fatalf("server = %s", s)
	}
}

func TestSendSplitsLinesOverWireLimit(t *testing.T) {
	c := New(Config{Server: "irc.example", Nickname: "reportbot", Channel: "#research"}, Handlers{}, nil)
	var sent []string
	c.privmsg = func(target, text string) error {
		if target != "#research" {
			t.Errorf("target = %s", target)
		}
		sent = append(sent, text)
		return nil
	}

	segment := strings.Repeat("é", 400)
	if err := c.Send(context.Background(), segment); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("expected 2 lines for an 800 byte segment, got %d", len(sent))
	}
	for i, line := range sent {
		if !utf8.ValidString(line) {
			t.Fatalf("line %d cut inside a rune", i)
		}
		msg := ircmsg.MakeMessage(nil, "", "PRIVMSG", "#research", line)
		if _, err := msg.LineBytesStrict(true, 512); err != nil {
			t.Fatalf("line %d (%d bytes) rejected: %v", i, len(line), err)
		}
	}
	if strings.Join(sent, "") != segment {
		t.Fatalf("lines do not reassemble the segment")
	}
}

func TestSendKeepsShortLinesWhole(t *testing.T) {
	c := New(Config{Server: "irc.example", Channel: "#research"}, Handlers{}, nil)
	var sent []string
	c.privmsg = func(_, text string) error { sent = append(sent, text); return nil }

	for _, text := range []string{strings.Repeat("a", 400), "", "日本語のレポート"} {
		sent = nil
		if err := c.Send(context.Background(), text); err != nil {
			t.Fatalf("Send: %v", err)
		}
		want := text
		if want == "" {
			want = " "
		}
		if len(sent) != 1 || sent[0] != want {
			t.Fatalf("Send(%q) sent %q", text, sent)
		}
	}
}

func TestFitLine(t *testing.T) {
	pieces := fitLine(strings.Repeat("漢", 10), 7)
	for _, p := range pieces {
		if len(p) > 7 || !utf8.ValidString(p) {
			t.Fatalf("bad piece %q", p)
		}
	}
	if strings.Join(pieces, "") != strings.Repeat("漢", 10) {
		t.Fatalf("pieces do not reassemble: %q", pieces)
	}
}
