package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/models"
)

func sampleTable() harvest.Table {
	return harvest.Tabulate(models.Batch{
		models.NewRecord(
			models.Field{Name: "Company_name", Value: "A"},
			models.Field{Name: "Type", Value: "X"},
		),
		models.NewRecord(
			models.Field{Name: "Company_name", Value: "B, Inc."},
			models.Field{Name: "HQ", Value: "Y \"north\""},
		),
	})
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(), false))

	want := "Company_name,HQ,Type\n" +
		"A,,X\n" +
		"\"B, Inc.\",\"Y \"\"north\"\"\",\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_CRLF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(), true))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "Company_name,HQ,Type", lines[0])
}

func TestWriteCSV_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, harvest.Tabulate(nil), false))
	assert.Equal(t, "\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleTable()))

	want := `[
  {
    "Company_name": "A",
    "HQ": "",
    "Type": "X"
  },
  {
    "Company_name": "B, Inc.",
    "HQ": "Y \"north\"",
    "Type": ""
  }
]
`
	assert.Equal(t, want, buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleTable()))

	out := buf.String()
	assert.Contains(t, out, "Company_name", "header case is preserved")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "B, Inc.")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleTable()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "| Company_name | HQ | Type |"), out)
	assert.Contains(t, out, "| --- |")
}

func TestWrite_Deterministic(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSON, FormatTable, FormatMarkdown} {
		t.Run(string(f), func(t *testing.T) {
			var a, b bytes.Buffer
			require.NoError(t, Write(&a, f, sampleTable(), Options{}))
			require.NoError(t, Write(&b, f, sampleTable(), Options{}))
			assert.Equal(t, a.Bytes(), b.Bytes())
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, "text/csv; charset=utf-8", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)

	assert.Error(t, Write(&bytes.Buffer{}, Format("xlsx"), sampleTable(), Options{}))
}
