package helpers

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	reportPolicy = sync.OnceValue(func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").OnElements("code", "pre")
		p.AllowURLSchemes("http", "https", "mailto")
		p.RequireParseableURLs(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		return p
	})
	textPolicy = sync.OnceValue(bluemonday.StrictPolicy)
)

// SanitizeReportHTML keeps the formatting a rendered report needs and drops
// scripts, event handlers and javascript: links.
func SanitizeReportHTML(s string) string {
	return strings.TrimSpace(reportPolicy().Sanitize(s))
}

// PlainText strips every tag from s. Search providers highlight matches with
// inline markup which has no place in research context.
func PlainText(s string) string {
	return strings.TrimSpace(textPolicy().Sanitize(s))
}
