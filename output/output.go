// Package output renders harvested tables.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/use-agent/harvester/harvest"
)

// Format names a rendering of a table.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
)

// Options tunes the writers.
type Options struct {
	// CRLF terminates CSV lines with \r\n.
	CRLF bool
}

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatTable, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("output: unknown format %q", s)
}

// ContentType returns the MIME type of a format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write renders t to w in format f. Equal tables always produce identical
// bytes.
func Write(w io.Writer, f Format, t harvest.Table, opts Options) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t, opts.CRLF)
	case FormatJSON:
		return WriteJSON(w, t)
	case FormatTable:
		return WriteTable(w, t)
	case FormatMarkdown:
		return WriteMarkdown(w, t)
	}
	return fmt.Errorf("output: unknown format %q", f)
}
