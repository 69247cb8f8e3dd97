package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!doctype html>
<html><head><title>Carbon pricing explained</title></head>
<body>
<nav>Home | About</nav>
<article>
<h1>Carbon pricing explained</h1>
<p>Carbon pricing puts a cost on greenhouse gas emissions so that polluters pay for the damage they cause.
Economists broadly agree that a price on carbon is the most efficient way to cut emissions at scale.</p>
<p>There are two main approaches: a carbon tax, which sets the price directly, and cap-and-trade, which sets
the quantity of emissions and lets the market discover the price through tradable permits.</p>
<p>Both approaches have been deployed around the world with varying levels of ambition and coverage.</p>
</article>
</body></html>`

func TestHTTPFetchExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f, err := NewFetcher(HTTPFetcherType, time.Second, 0)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Status != http.StatusOK {
		t.Fatalf("unexpected status %d", page.Status)
	}
	if !strings.Contains(page.Text, "cap-and-trade") {
		t.Fatalf("expected article text, got %q", page.Text)
	}
}

func TestHTTPFetchTruncatesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := &HTTP{Timeout: time.Second, MaxChars: 40}
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n := len([]rune(page.Text)); n > 40 {
		t.Fatalf("expected at most 40 chars, got %d", n)
	}
}

func TestHTTPFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := &HTTP{Timeout: time.Second}
	page, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if page.Status != http.StatusNotFound {
		t.Fatalf("unexpected status %d", page.Status)
	}
}

func TestNewFetcherRejectsUnknownType(t *testing.T) {
	if _, err := NewFetcher("curl", 0, 0); err == nil {
		t.Fatalf("expected error")
	}
}
