package dom

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Excerpt runs the Mozilla Readability algorithm on rawHTML and returns the
// article excerpt (meta description or first paragraph).
//
// It reports false when the URL is invalid, readability fails, or the
// excerpt is empty; the harvest must never fail because readability choked.
func Excerpt(rawHTML string, sourceURL string) (string, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return "", false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return "", false
	}

	excerpt := CollapseSpace(article.Excerpt)
	if excerpt == "" {
		return "", false
	}
	return excerpt, true
}
