package harvest

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/harvester/dom"
	"github.com/use-agent/harvester/models"
)

// RecordStats describes how one info table was read.
type RecordStats struct {
	// TableFound is false when the page had no matching info table.
	TableFound bool

	// Rows is the number of rows enumerated in the table.
	Rows int

	// Skipped is the number of rows that contributed no field.
	Skipped int
}

// RecordExtractor turns target pages into partial records. It is
// immutable after construction and safe for concurrent use.
type RecordExtractor struct {
	table    dom.Selector
	row      dom.Selector
	label    dom.Selector
	value    dom.Selector
	seed     string
	summary  string
	markdown *dom.Markdown
}

// NewRecordExtractor compiles rules. Rules must be complete; merge them
// with defaults first.
func NewRecordExtractor(rules models.RecordRules) (*RecordExtractor, error) {
	x := &RecordExtractor{seed: rules.SeedField, summary: rules.SummaryField}
	if x.seed == "" {
		return nil, models.NewHarvestError(models.ErrCodeInvalidInput, "seed field name is empty", nil)
	}

	var err error
	if x.table, err = dom.Compile(rules.Table); err != nil {
		return nil, invalidRule("table", err)
	}
	if x.row, err = dom.Compile(rules.Row); err != nil {
		return nil, invalidRule("row", err)
	}
	if x.label, err = dom.Compile(rules.Label); err != nil {
		return nil, invalidRule("label", err)
	}
	if x.value, err = dom.Compile(rules.Value); err != nil {
		return nil, invalidRule("value", err)
	}

	switch rules.ValueFormat {
	case "", "text":
	case "markdown":
		x.markdown = dom.NewMarkdown()
	default:
		return nil, models.NewHarvestError(models.ErrCodeInvalidInput,
			"unknown value format "+rules.ValueFormat, nil)
	}
	return x, nil
}

// ExtractRecord builds the partial record of one target page. It is a
// one-shot form of NewRecordExtractor followed by Extract.
func ExtractRecord(doc *goquery.Document, seed models.Locator, rules models.RecordRules) (*models.Record, RecordStats, error) {
	x, err := NewRecordExtractor(rules)
	if err != nil {
		return nil, RecordStats{}, err
	}
	rec, stats := x.Extract(doc, seed)
	return rec, stats, nil
}

// Extract builds the partial record of one target page.
//
// The record always starts with the seed field holding seed.Title. When the
// page has no info table that is the only field. Otherwise each table row
// adds one field unless its label or value cell is missing or its label is
// empty; such rows are skipped and the remaining rows are still read. A row
// labelled like the seed field never replaces the seed.
func (x *RecordExtractor) Extract(doc *goquery.Document, seed models.Locator) (*models.Record, RecordStats) {
	var stats RecordStats
	fields := []models.Field{{Name: x.seed, Value: seed.Title}}

	if table, ok := x.table.First(doc.Selection); ok {
		stats.TableFound = true
		x.row.Find(table).Each(func(i int, row *goquery.Selection) {
			stats.Rows++
			f, ok := x.extractRow(row, seed.URL)
			if !ok || f.Name == x.seed {
				stats.Skipped++
				slog.Debug("skipping info table row", "url", seed.URL, "row", i)
				return
			}
			fields = append(fields, f)
		})
	}

	if x.summary != "" && x.summary != x.seed {
		if markup, err := doc.Html(); err == nil {
			if excerpt, ok := dom.Excerpt(markup, seed.URL); ok {
				fields = append(fields, models.Field{Name: x.summary, Value: excerpt})
			}
		}
	}

	return models.NewRecord(fields...), stats
}

// extractRow reads the label and value cells of one row. The two cell
// lookups are the only fallible steps; either missing, or an empty label,
// yields false.
func (x *RecordExtractor) extractRow(row *goquery.Selection, pageURL string) (models.Field, bool) {
	labelCell, ok := x.label.First(row)
	if !ok {
		return models.Field{}, false
	}
	label, _ := dom.Text(labelCell)
	if label == "" {
		return models.Field{}, false
	}

	valueCell, ok := x.value.First(row)
	if !ok {
		return models.Field{}, false
	}

	return models.Field{Name: label, Value: x.cellValue(valueCell, pageURL)}, true
}

func (x *RecordExtractor) cellValue(cell *goquery.Selection, pageURL string) string {
	if x.markdown != nil {
		md, err := x.markdown.Inner(cell, pageURL)
		if err == nil {
			return md
		}
		slog.Debug("markdown conversion failed, using text", "error", err)
	}
	text, _ := dom.Text(cell)
	return text
}
