package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Text returns the concatenated text content of the first node of sel and
// its descendants, trimmed of surrounding whitespace. It reports false when
// sel holds no node.
func Text(sel *goquery.Selection) (string, bool) {
	if sel == nil || sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.First().Text()), true
}

// Attr returns the trimmed value of attribute name on the first node of sel.
func Attr(sel *goquery.Selection, name string) (string, bool) {
	if sel == nil || sel.Length() == 0 {
		return "", false
	}
	v, ok := sel.First().Attr(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// CollapseSpace replaces every run of whitespace in s with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
