package harvest

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/use-agent/harvester/models"
)

func rec(kv ...string) *models.Record {
	fields := make([]models.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, models.Field{Name: kv[i], Value: kv[i+1]})
	}
	return models.NewRecord(fields...)
}

func TestTabulate_UnionAndAlignment(t *testing.T) {
	batch := models.Batch{
		rec("Company_name", "A", "Type", "X"),
		rec("Company_name", "B", "HQ", "Y"),
	}

	got := Tabulate(batch)

	want := Table{
		Schema: []string{"Company_name", "HQ", "Type"},
		Rows: [][]string{
			{"A", "", "X"},
			{"B", "Y", ""},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestTabulate_RowCountPreserved(t *testing.T) {
	batch := models.Batch{
		rec("Company_name", "A"),
		rec("Company_name", "B", "f1", "1", "f2", "2", "f3", "3"),
		nil,
		rec(),
	}

	got := Tabulate(batch)
	assert.Len(t, got.Rows, len(batch))
	for _, row := range got.Rows {
		assert.Len(t, row, len(got.Schema))
	}
}

func TestUnifySchema_ByteOrderAndDistinctKeys(t *testing.T) {
	batch := models.Batch{
		rec("type", "1", "Type", "2"),
		rec("Type ", "3", "Ärger", "4", "Zeta", "5"),
	}

	assert.Equal(t, []string{"Type", "Type ", "Zeta", "type", "Ärger"}, UnifySchema(batch))
}

func TestTabulate_IndependentOfFieldOrder(t *testing.T) {
	a := models.Batch{rec("Company_name", "A", "Type", "X", "HQ", "Y")}
	b := models.Batch{rec("HQ", "Y", "Type", "X", "Company_name", "A")}
	assert.Equal(t, Tabulate(a), Tabulate(b))

	// Shuffled record order changes row order only.
	batch := models.Batch{
		rec("Company_name", "A", "Type", "X"),
		rec("Company_name", "B", "HQ", "Y"),
		rec("Company_name", "C", "Founded", "1999"),
	}
	shuffled := append(models.Batch(nil), batch...)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	assert.Equal(t, UnifySchema(batch), UnifySchema(shuffled))
}

func TestTabulate_Empty(t *testing.T) {
	got := Tabulate(nil)
	assert.Empty(t, got.Schema)
	assert.Empty(t, got.Rows)
}
