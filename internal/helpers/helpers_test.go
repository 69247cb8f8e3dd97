package helpers

import (
	"testing"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"defaults https and cleans path", "Example.com/news/../tech/latest", "https://example.com/tech/latest"},
		{"drops default port tracking and fragment", "http://news.example.com:80/article?id=123&utm_source=rss#section", "http://news.example.com/article?id=123"},
		{"sorts query and keeps trailing slash", "https://example.com/path/?b=2&a=1&fbclid=xyz", "https://example.com/path/?a=1&b=2"},
		{"schemeless double slash", "//blog.example.com/post/42?utm_medium=email", "https://blog.example.com/post/42"},
		{"repeated slashes", "https://example.com//a//b///c", "https://example.com/a/b/c"},
		{"bare host", "https://Example.com", "https://example.com/"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := CanonicalURL(tc.in)
			if err != nil {
				t.Fatalf("CanonicalURL(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("CanonicalURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalURLRejectsEmpty(t *testing.T) {
	if _, err := CanonicalURL("  "); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestSanitizeReportHTML(t *testing.T) {
	in := `<p onclick="evil()">Hi <strong>there</strong> <a href="javascript:alert(1)">click</a></p><script>x()</script>`
	if got, want := SanitizeReportHTML(in), `<p>Hi <strong>there</strong> click</p>`; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPlainText(t *testing.T) {
	if got, want := PlainText("Go <strong>1.24</strong> released"), "Go 1.24 released"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStripFence(t *testing.T) {
	tests := map[string]string{
		"```markdown\n# Title\n\nbody\n```": "# Title\n\nbody",
		"~~~\nplain\n~~~":                   "plain",
		"# Not fenced":                      "# Not fenced",
	}
	for in, want := range tests {
		if got := StripFence(in); got != want {
			t.Errorf("StripFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`["a", "b"]`, `["a", "b"]`},
		{"```json\n{\"queries\": [\"x\"]}\n```", `{"queries": ["x"]}`},
		{`Sure! Here you go: ["brace } in string", "y"] thanks`, `["brace } in string", "y"]`},
	}
	for _, tc := range tests {
		got, err := ExtractJSON(tc.in)
		if err != nil {
			t.Fatalf("ExtractJSON(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := ExtractJSON("no json here"); err == nil {
		t.Fatal("expected error")
	}
}
