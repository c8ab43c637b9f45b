package dom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Selector is a compiled CSS selector usable as a goquery matcher.
// The zero value matches nothing.
type Selector struct {
	raw string
	sel cascadia.Selector
}

// Compile parses a CSS selector. Comma-separated groups are accepted.
func Compile(css string) (Selector, error) {
	css = strings.TrimSpace(css)
	if css == "" {
		return Selector{}, fmt.Errorf("dom: empty selector")
	}
	sel, err := cascadia.Compile(css)
	if err != nil {
		return Selector{}, fmt.Errorf("dom: invalid selector %q: %w", css, err)
	}
	return Selector{raw: css, sel: sel}, nil
}

// CompileOptional is Compile that maps an empty string to the zero Selector.
func CompileOptional(css string) (Selector, error) {
	if strings.TrimSpace(css) == "" {
		return Selector{}, nil
	}
	return Compile(css)
}

// MustCompile is Compile that panics on error. Use it for literals only.
func MustCompile(css string) Selector {
	s, err := Compile(css)
	if err != nil {
		panic(err)
	}
	return s
}

// FromPair builds a selector from a tag name and an attribute filter.
// The "class" attribute matches every whitespace-separated class it lists;
// other attributes must match exactly. An empty tag matches any element.
func FromPair(tag string, attrs map[string]string) (Selector, error) {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(tag))

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := attrs[k]
		if k == "class" {
			for _, c := range strings.Fields(v) {
				b.WriteByte('.')
				b.WriteString(cssEscape(c))
			}
			continue
		}
		fmt.Fprintf(&b, "[%s=%q]", k, v)
	}

	if b.Len() == 0 {
		b.WriteByte('*')
	}
	return Compile(b.String())
}

// IsZero reports whether the selector was never compiled.
func (s Selector) IsZero() bool {
	return s.sel == nil
}

// String returns the CSS source of the selector.
func (s Selector) String() string {
	return s.raw
}

// Find returns all descendants of sel matching s, in document order.
// It returns an empty selection (not an error) when nothing matches.
func (s Selector) Find(sel *goquery.Selection) *goquery.Selection {
	if s.sel == nil || sel == nil {
		return emptySelection(sel)
	}
	return sel.FindMatcher(s.sel)
}

// First returns the first descendant of sel matching s.
func (s Selector) First(sel *goquery.Selection) (*goquery.Selection, bool) {
	found := s.Find(sel)
	if found.Length() == 0 {
		return found, false
	}
	return found.First(), true
}

// Children returns the direct children of sel matching s.
func (s Selector) Children(sel *goquery.Selection) *goquery.Selection {
	if s.sel == nil || sel == nil {
		return emptySelection(sel)
	}
	return sel.ChildrenMatcher(s.sel)
}

// Match reports whether the first node of sel matches s.
func (s Selector) Match(sel *goquery.Selection) bool {
	if s.sel == nil || sel == nil || sel.Length() == 0 {
		return false
	}
	return s.sel.Match(sel.Get(0))
}

func emptySelection(sel *goquery.Selection) *goquery.Selection {
	if sel == nil {
		return &goquery.Selection{}
	}
	return sel.Slice(0, 0)
}

func cssEscape(ident string) string {
	var b strings.Builder
	for _, r := range ident {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r > 0x7f:
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
