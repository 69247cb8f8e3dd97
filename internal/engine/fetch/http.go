package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "reportbot/1.0 (+https://github.com/mohammad-safakhou/reportbot)"

// HTTP fetches pages with a plain GET request.
type HTTP struct {
	Timeout  time.Duration
	MaxChars int
	Client   *http.Client
}

func (f *HTTP) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Page{}, errors.New("invalid url")
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{URL: rawURL}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Page{URL: rawURL, Status: 599}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Page{URL: rawURL, Status: resp.StatusCode}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Page{URL: rawURL, Status: resp.StatusCode}, err
	}
	page, err := extract(string(body), rawURL, f.MaxChars)
	page.Status = resp.StatusCode
	page.RenderMS = int(time.Since(t0) / time.Millisecond)
	return page, err
}
