package harvest

import (
	"sort"

	"github.com/use-agent/harvester/models"
)

// Table is a batch aligned to its unified schema. Every row has exactly
// len(Schema) cells; absent fields are empty strings.
type Table struct {
	Schema []string
	Rows   [][]string
}

// UnifySchema returns the sorted union of every field name in batch.
// Names are compared byte-wise; no normalization is applied.
func UnifySchema(batch models.Batch) []string {
	seen := make(map[string]struct{})
	for _, rec := range batch {
		if rec == nil {
			continue
		}
		for _, name := range rec.Names() {
			seen[name] = struct{}{}
		}
	}

	schema := make([]string, 0, len(seen))
	for name := range seen {
		schema = append(schema, name)
	}
	sort.Strings(schema)
	return schema
}

// Tabulate aligns every record of batch to the unified schema. The output
// has one row per record in batch order, a nil record giving an empty row.
func Tabulate(batch models.Batch) Table {
	schema := UnifySchema(batch)
	rows := make([][]string, len(batch))
	for i, rec := range batch {
		row := make([]string, len(schema))
		if rec != nil {
			for j, name := range schema {
				row[j], _ = rec.Get(name)
			}
		}
		rows[i] = row
	}
	return Table{Schema: schema, Rows: rows}
}
