package output

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/use-agent/harvester/harvest"
)

// WriteTable renders the table with rounded box drawing for terminals.
func WriteTable(w io.Writer, t harvest.Table) error {
	return render(w, newWriter(t).Render())
}

// WriteMarkdown renders the table as a GitHub-flavoured Markdown table.
func WriteMarkdown(w io.Writer, t harvest.Table) error {
	return render(w, newWriter(t).RenderMarkdown())
}

func newWriter(t harvest.Table) table.Writer {
	tw := table.NewWriter()

	header := make(table.Row, len(t.Schema))
	for i, name := range t.Schema {
		header[i] = name
	}
	tw.AppendHeader(header)

	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	style := table.StyleRounded
	// Field names are data; keep their case.
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw
}

func render(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s+"\n"); err != nil {
		return fmt.Errorf("output: render: %w", err)
	}
	return nil
}
