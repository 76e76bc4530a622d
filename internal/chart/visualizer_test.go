package chart

import (
	"encoding/json"
	"testing"

	"github.com/KaramelBytes/intellidash-cli/internal/errs"
	"github.com/KaramelBytes/intellidash-cli/internal/table"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func mustTable(t *testing.T, cols ...*table.Column) *table.Table {
	t.Helper()
	tb, err := table.New(cols...)
	require.NoError(t, err)
	return tb
}

func TestFormatLargeNumber(t *testing.T) {
	cases := map[float64]string{
		0:              "0.0",
		999:            "999.0",
		1234:           "1.2K",
		1500:           "1.5K",
		1234567:        "1.2M",
		-2500000:       "-2.5M",
		3.2e9:          "3.2B",
		7.7e12:         "7.7T",
		4.2e15:         "4.2P",
		123456789012e6: "123.5P",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatLargeNumber(in), "input %v", in)
	}
}

func TestParseUnit(t *testing.T) {
	u, p := ParseUnit("$-")
	assert.Equal(t, "$", u)
	assert.Equal(t, PositionPrefix, p)
	u, p = ParseUnit("-€")
	assert.Equal(t, "€", u)
	assert.Equal(t, PositionPrefix, p)
	u, p = ParseUnit("°F")
	assert.Equal(t, "°F", u)
	assert.Equal(t, PositionSuffix, p)
}

func salesTable(t *testing.T, n int) *table.Table {
	sales := make([]float64, n)
	for i := range sales {
		sales[i] = 150
	}
	return mustTable(t, table.NewNumeric("sales", sales, nil))
}

func TestSingleValueSum(t *testing.T) {
	v := NewVisualizer(Options{})
	got, err := v.Compute(salesTable(t, 10), Spec{Type: TypeSingleValue, Y: ptr("sales"), Aggregation: AggSum})
	require.NoError(t, err)
	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value": "1.5K"}`, string(b))
}

func TestSingleValueRoundsBeforeFormatting(t *testing.T) {
	tb := mustTable(t, table.NewNumeric("price", []float64{1.114, 2.0}, nil))
	v := NewVisualizer(Options{Units: map[string]string{"price": "$-"}})
	got, err := v.Compute(tb, Spec{Type: TypeSingleValue, Y: ptr("price"), Aggregation: AggSum})
	require.NoError(t, err)
	assert.Equal(t, "3.1", got.Value)
	assert.Equal(t, "$", got.Unit)
	assert.Equal(t, PositionPrefix, got.Position)
	assert.Equal(t, 3.11, round2(1.114+2.0))

	got, err = v.Compute(tb, Spec{Type: TypeSingleValue, Y: ptr("price"), Aggregation: AggCount})
	require.NoError(t, err)
	assert.Equal(t, "2.0", got.Value)
}

func TestSingleValueSuffixUnit(t *testing.T) {
	v := NewVisualizer(Options{Units: map[string]string{"sales": "USD"}})
	got, err := v.Compute(salesTable(t, 10), Spec{Type: TypeSingleValue, Y: ptr("sales"), Aggregation: AggMean})
	require.NoError(t, err)
	b, _ := json.Marshal(got)
	assert.JSONEq(t, `{"value": "150.0", "unit": "USD", "position": "suffix"}`, string(b))
}

func TestSingleValueUnsupportedAggregation(t *testing.T) {
	v := NewVisualizer(Options{})
	_, err := v.Compute(salesTable(t, 3), Spec{Type: TypeSingleValue, Y: ptr("sales"), Aggregation: "median"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAggregation)
	assert.Equal(t, errs.KindSpec, errs.KindOf(err))
}

func TestMissingAxis(t *testing.T) {
	v := NewVisualizer(Options{})
	_, err := v.Compute(salesTable(t, 3), Spec{Type: TypeBar, Y: ptr("sales"), Aggregation: AggSum})
	assert.ErrorIs(t, err, ErrMissingAxis)
}

func TestRawSeriesAndScatterDownsampling(t *testing.T) {
	n := 1000
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = float64(i * 2)
	}
	tb := mustTable(t, table.NewNumeric("a", xs, nil), table.NewNumeric("b", ys, nil))
	v := NewVisualizer(Options{MaxDensity: 200})

	got, err := v.Compute(tb, Spec{Type: TypeScatter, X: ptr("a"), Y: ptr("b")})
	require.NoError(t, err)
	require.LessOrEqual(t, len(got.X), 200)
	require.Len(t, got.Y, len(got.X))
	assert.Equal(t, 0.0, got.X[0])
	for i := 1; i < len(got.X); i++ {
		assert.Equal(t, 5.0, got.X[i].(float64)-got.X[i-1].(float64))
	}

	// raw line charts are not reduced
	got, err = v.Compute(tb, Spec{Type: TypeLine, X: ptr("a"), Y: ptr("b")})
	require.NoError(t, err)
	assert.Len(t, got.X, n)
}

func TestGroupedAggregations(t *testing.T) {
	tb := mustTable(t,
		table.NewText("store", []string{"b", "a", "b", "a", "c"}, nil),
		table.NewNumeric("sales", []float64{1.25, 2, 3, 0, 10}, []bool{false, false, false, true, false}),
	)
	v := NewVisualizer(Options{})

	got, err := v.Compute(tb, Spec{Type: TypeBar, X: ptr("store"), Y: ptr("sales"), Aggregation: AggSum})
	require.NoError(t, err)
	if diff := cmp.Diff([]any{"b", "a", "c"}, got.X); diff != "" {
		t.Fatalf("x mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{4.25, 2.0, 10.0}, got.Y); diff != "" {
		t.Fatalf("sum mismatch (-want +got):\n%s", diff)
	}

	got, err = v.Compute(tb, Spec{Type: TypeBar, X: ptr("store"), Y: ptr("sales"), Aggregation: AggMean})
	require.NoError(t, err)
	if diff := cmp.Diff([]any{2.13, 2.0, 10.0}, got.Y); diff != "" {
		t.Fatalf("mean mismatch (-want +got):\n%s", diff)
	}

	got, err = v.Compute(tb, Spec{Type: TypePie, X: ptr("store"), Y: ptr("sales"), Aggregation: AggCount})
	require.NoError(t, err)
	if diff := cmp.Diff([]any{2, 1, 1}, got.Y); diff != "" {
		t.Fatalf("count mismatch (-want +got):\n%s", diff)
	}

	_, err = v.Compute(tb, Spec{Type: TypeBar, X: ptr("store"), Y: ptr("sales"), Aggregation: "median"})
	assert.ErrorIs(t, err, ErrUnsupportedAggregation)

	_, err = v.Compute(tb, Spec{Type: TypeBar, X: ptr("sales"), Y: ptr("store"), Aggregation: AggSum})
	assert.ErrorIs(t, err, ErrNonNumeric)
}

func TestLineDownsamplingAfterGrouping(t *testing.T) {
	n := 450
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	tb := mustTable(t, table.NewNumeric("day", xs, nil), table.NewNumeric("v", xs, nil))
	v := NewVisualizer(Options{MaxDensity: 200})
	got, err := v.Compute(tb, Spec{Type: TypeLine, X: ptr("day"), Y: ptr("v"), Aggregation: AggMean})
	require.NoError(t, err)
	// step = 450/199 + 1 = 3
	assert.Len(t, got.X, 150)
	assert.Equal(t, 3.0, got.X[1])
}

func TestRenderSkipsBadSpecs(t *testing.T) {
	tb := mustTable(t,
		table.NewText("store", []string{"a", "b"}, nil),
		table.NewNumeric("sales", []float64{1, 2}, nil),
	)
	specs := DecodePlan(map[string]any{"charts": []any{
		map[string]any{"id": "1", "type": "single_value", "x": nil, "y": "sales", "aggregation": "sum"},
		map[string]any{"id": "2", "type": "bar", "x": "store", "y": "sales", "aggregation": "median"},
		"not an object",
		map[string]any{"id": "3", "type": "bar", "x": "store", "y": "sales", "aggregation": "null"},
		map[string]any{"id": "4", "type": "bar", "x": "region", "y": "sales", "aggregation": "sum"},
	}})
	require.Len(t, specs, 4)

	out, err := NewVisualizer(Options{}).Render(tb, specs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].Chart["id"])
	assert.Equal(t, "3", out[1].Chart["id"])
	assert.Equal(t, []any{"a", "b"}, out[1].Values.X)

	_, err = NewVisualizer(Options{}).Render(nil, specs)
	require.Error(t, err)
	assert.Equal(t, errs.KindData, errs.KindOf(err))
}

func TestDecodePlanMissingCharts(t *testing.T) {
	assert.Empty(t, DecodePlan(map[string]any{}))
	assert.Empty(t, DecodePlan(map[string]any{"charts": "nope"}))
	s := SpecFromMap(map[string]any{"type": "Bar", "x": "null", "priority": "0.7"})
	assert.Equal(t, TypeBar, s.Type)
	assert.Nil(t, s.X)
	assert.Equal(t, 0.7, s.Priority)
}
