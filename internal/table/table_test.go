package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRowsInfersKinds(t *testing.T) {
	tb, err := FromRows(
		[]string{"store", "sales", "holiday", "note"},
		[][]string{
			{"1", "100.5", "true", "ok"},
			{"2", "", "False", " fine "},
			{"3", "7"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 4}, tb.Shape())

	store, _ := tb.Column("store")
	assert.Equal(t, KindNumeric, store.Kind)
	sales, _ := tb.Column("sales")
	assert.Equal(t, KindNumeric, sales.Kind)
	assert.True(t, sales.IsNull(1))
	holiday, _ := tb.Column("holiday")
	assert.Equal(t, KindBool, holiday.Kind)
	assert.True(t, holiday.IsNull(2))
	note, _ := tb.Column("note")
	assert.Equal(t, KindText, note.Kind)
	assert.Equal(t, " fine ", note.Value(1))

	assert.Equal(t, 3, tb.NullCount())
	assert.Equal(t, map[string]int{"store": 0, "sales": 1, "holiday": 1, "note": 1}, tb.MissingByColumn())
}

func TestRowKeyAndSelect(t *testing.T) {
	tb, err := New(
		NewNumeric("a", []float64{1, 1, 2}, nil),
		NewText("b", []string{"x", "x", "x"}, []bool{false, false, true}),
	)
	require.NoError(t, err)
	assert.Equal(t, tb.RowKey(0), tb.RowKey(1))
	assert.NotEqual(t, tb.RowKey(0), tb.RowKey(2))
	assert.True(t, tb.RowHasNull(2))

	sub := tb.SelectRows([]int{2, 0})
	assert.Equal(t, 2, sub.NumRows())
	a, _ := sub.Column("a")
	assert.Equal(t, []float64{2, 1}, a.Nums)
	assert.Nil(t, sub.Record(0)["b"])
}

func TestSignedZeroSharesKey(t *testing.T) {
	c := NewNumeric("a", []float64{0, math.Copysign(0, -1), 1}, nil)
	assert.Equal(t, c.Key(0), c.Key(1))
	assert.NotEqual(t, c.Key(0), c.Key(2))
}

func TestNewNumericTreatsInfinityAsMissing(t *testing.T) {
	c := NewNumeric("a", []float64{math.Inf(1), 2, math.Inf(-1), math.NaN()}, nil)
	assert.Equal(t, []bool{true, false, true, true}, c.Nulls)
	assert.Equal(t, 3, c.NullCount())
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New(
		NewNumeric("a", []float64{1, 2}, nil),
		NewNumeric("b", []float64{1}, nil),
	)
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	v, ok := ParseNumber(" 12.5 ")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)
	_, ok = ParseNumber("1,234")
	assert.False(t, ok)
	_, ok = ParseNumber("NaN")
	assert.False(t, ok)
	assert.True(t, IsNullToken(" N/A "))
}
