package harvest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/models"
)

var acme = models.Locator{URL: "https://en.wikipedia.org/wiki/Acme", Href: "/wiki/Acme", Title: "Acme Corp"}

func TestExtractRecord_SkipsUnreadableRows(t *testing.T) {
	doc := mustParse(t, `<table class="infobox">
		<tr><th>Type</th><td>Subsidiary</td></tr>
		<tr><td>X</td></tr>
		<tr><th>Founded</th><td>1999</td></tr>
	</table>`)

	rec, stats, err := ExtractRecord(doc, acme, config.DefaultRecordRules)
	require.NoError(t, err)

	want := []models.Field{
		{Name: "Company_name", Value: "Acme Corp"},
		{Name: "Type", Value: "Subsidiary"},
		{Name: "Founded", Value: "1999"},
	}
	if diff := cmp.Diff(want, rec.Fields()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, RecordStats{TableFound: true, Rows: 3, Skipped: 1}, stats)
}

func TestExtractRecord_NoTable(t *testing.T) {
	rec, stats, err := ExtractRecord(mustParse(t, plainPage), acme, config.DefaultRecordRules)
	require.NoError(t, err)

	assert.Equal(t, []string{"Company_name"}, rec.Names())
	v, _ := rec.Get("Company_name")
	assert.Equal(t, "Acme Corp", v)
	assert.False(t, stats.TableFound)
}

func TestExtractRecord_RowEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want []models.Field
	}{
		{
			name: "header row without value",
			row:  `<tr><th colspan="2">Acme Corp</th></tr>`,
		},
		{
			name: "blank label",
			row:  `<tr><th>   </th><td>value</td></tr>`,
		},
		{
			name: "empty value kept",
			row:  `<tr><th>Website</th><td></td></tr>`,
			want: []models.Field{{Name: "Website", Value: ""}},
		},
		{
			name: "nested markup flattened and trimmed",
			row:  "<tr><th> Key <span>people</span> </th><td>\n<a href=\"/wiki/J\">Jane</a> (CEO)\n</td></tr>",
			want: []models.Field{{Name: "Key people", Value: "Jane (CEO)"}},
		},
		{
			name: "label equal to seed never replaces it",
			row:  `<tr><th>Company_name</th><td>Impostor</td></tr>`,
		},
		{
			name: "case variants stay distinct",
			row:  `<tr><th>Type</th><td>a</td></tr><tr><th>type</th><td>b</td></tr>`,
			want: []models.Field{{Name: "Type", Value: "a"}, {Name: "type", Value: "b"}},
		},
		{
			name: "repeated label keeps first position",
			row:  `<tr><th>Type</th><td>a</td></tr><tr><th>HQ</th><td>x</td></tr><tr><th>Type</th><td>b</td></tr>`,
			want: []models.Field{{Name: "Type", Value: "b"}, {Name: "HQ", Value: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, `<table class="infobox">`+tt.row+`</table>`)
			rec, _, err := ExtractRecord(doc, acme, config.DefaultRecordRules)
			require.NoError(t, err)

			want := append([]models.Field{{Name: "Company_name", Value: "Acme Corp"}}, tt.want...)
			if diff := cmp.Diff(want, rec.Fields()); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractRecord_FirstTableOnly(t *testing.T) {
	doc := mustParse(t, `
		<table class="infobox"><tr><th>A</th><td>1</td></tr></table>
		<table class="infobox"><tr><th>B</th><td>2</td></tr></table>`)

	rec, _, err := ExtractRecord(doc, acme, config.DefaultRecordRules)
	require.NoError(t, err)
	assert.Equal(t, []string{"Company_name", "A"}, rec.Names())
}

func TestExtractRecord_Markdown(t *testing.T) {
	doc := mustParse(t, `<table class="infobox"><tr><th>Parent</th><td><a href="/wiki/Globex">Globex</a></td></tr></table>`)

	rules := config.DefaultRecordRules
	rules.ValueFormat = "markdown"

	rec, _, err := ExtractRecord(doc, acme, rules)
	require.NoError(t, err)

	v, ok := rec.Get("Parent")
	require.True(t, ok)
	assert.Contains(t, v, "[Globex](")
	assert.Contains(t, v, "/wiki/Globex)")
}

func TestExtractRecord_CustomSeedField(t *testing.T) {
	rules := config.DefaultRecordRules
	rules.SeedField = "Name"

	rec, _, err := ExtractRecord(mustParse(t, apexPage), acme, rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Headquarters"}, rec.Names())
}

func TestNewRecordExtractor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RecordRules)
	}{
		{"bad table selector", func(r *models.RecordRules) { r.Table = "table[" }},
		{"empty row selector", func(r *models.RecordRules) { r.Row = "" }},
		{"empty seed", func(r *models.RecordRules) { r.SeedField = "" }},
		{"unknown format", func(r *models.RecordRules) { r.ValueFormat = "html" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := config.DefaultRecordRules
			tt.mutate(&rules)
			_, err := NewRecordExtractor(rules)
			require.Error(t, err)
			assert.Equal(t, models.ErrCodeInvalidInput, models.AsHarvestError(err).Code)
		})
	}
}
