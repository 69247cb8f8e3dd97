package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBraveDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "climate policy" {
			t.Errorf("unexpected query %q", got)
		}
		if r.Header.Get("X-Subscription-Token") != "key" {
			t.Errorf("missing subscription token")
		}
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"A","url":"https://a.example","description":"first"},
			{"title":"B","url":"https://b.example","description":"second"},
			{"title":"C","url":"https://c.example","description":"third"}]}}`))
	}))
	defer srv.Close()

	got, err := Brave{APIKey: "key", Endpoint: srv.URL}.Discover(context.Background(), "climate policy", 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 2 || got[0].URL != "https://a.example" || got[1].Snippet != "second" {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestSerperDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["q"] != "ai in education" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"organic":[{"title":"A","link":"https://a.example","snippet":"s"}]}`))
	}))
	defer srv.Close()

	got, err := Serper{APIKey: "key", Endpoint: srv.URL}.Discover(context.Background(), "ai in education", 5)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://a.example" {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestDiscoverNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	if _, err := (Brave{APIKey: "bad", Endpoint: srv.URL}).Discover(context.Background(), "q", 3); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestNewSearcher(t *testing.T) {
	if _, err := NewSearcher(BraveProvider, ""); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewSearcher("altavista", "k"); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	s, err := NewSearcher(SerperProvider, "k")
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}
	if _, ok := s.(Serper); !ok {
		t.Fatalf("expected Serper, got %T", s)
	}
}
