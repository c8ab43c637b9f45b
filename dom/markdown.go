package dom

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
)

// Markdown renders table cells as Markdown. It is safe for concurrent use.
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown creates a Markdown renderer:
//
//   - base plugin: strips script, style, iframe, noscript and comments.
//   - commonmark plugin: links, lists and emphasis inside cells.
//   - table plugin: nested tables with minimal padding.
func NewMarkdown() *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Inner converts the inner HTML of the first node of sel to Markdown.
// pageURL resolves relative links so values stay self-contained.
func (m *Markdown) Inner(sel *goquery.Selection, pageURL string) (string, error) {
	inner, err := sel.First().Html()
	if err != nil {
		return "", err
	}
	out, err := m.conv.ConvertString(inner, converter.WithDomain(pageURL))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
