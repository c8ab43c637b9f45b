package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/use-agent/harvester/harvest"
)

// WriteCSV writes a header row with the schema followed by one row per
// record. Fields are quoted only when they hold a separator, a quote or a
// line break.
func WriteCSV(w io.Writer, t harvest.Table, crlf bool) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = crlf

	if err := cw.Write(t.Schema); err != nil {
		return fmt.Errorf("output: csv header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("output: csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("output: csv flush: %w", err)
	}
	return nil
}
