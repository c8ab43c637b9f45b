package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/models"
)

// WriteJSON writes the table as an indented array of objects. Every object
// carries every schema key, in schema order, with "" for absent fields.
func WriteJSON(w io.Writer, t harvest.Table) error {
	objects := make([]*models.Record, len(t.Rows))
	for i, row := range t.Rows {
		fields := make([]models.Field, len(t.Schema))
		for j, name := range t.Schema {
			if j < len(row) {
				fields[j] = models.Field{Name: name, Value: row[j]}
			} else {
				fields[j] = models.Field{Name: name}
			}
		}
		objects[i] = models.NewRecord(fields...)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(objects); err != nil {
		return fmt.Errorf("output: json: %w", err)
	}
	return nil
}
