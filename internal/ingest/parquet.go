package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/intellidash-cli/internal/table"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

type parquetLoader struct{}

func (parquetLoader) CanLoad(path string) bool { return hasExt(path, ".parquet") }

func (parquetLoader) Load(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	rdr, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("read parquet footer: %w", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("open arrow reader: %w", err)
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read parquet table: %w", err)
	}
	defer tbl.Release()

	cols := make([]*table.Column, 0, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		c, err := arrowColumn(col)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return table.New(cols...)
}

func arrowColumn(col *arrow.Column) (*table.Column, error) {
	name := col.Name()
	n := col.Len()
	nulls := make([]bool, 0, n)

	switch kindOf(col.DataType()) {
	case table.KindNumeric:
		vals := make([]float64, 0, n)
		for _, chunk := range col.Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				v, ok := arrowFloat(chunk, i)
				vals = append(vals, v)
				nulls = append(nulls, !ok)
			}
		}
		return table.NewNumeric(name, vals, nulls), nil
	case table.KindBool:
		vals := make([]bool, 0, n)
		for _, chunk := range col.Data().Chunks() {
			b, ok := chunk.(*array.Boolean)
			if !ok {
				return nil, fmt.Errorf("column %q: unexpected array %T", name, chunk)
			}
			for i := 0; i < b.Len(); i++ {
				vals = append(vals, !b.IsNull(i) && b.Value(i))
				nulls = append(nulls, b.IsNull(i))
			}
		}
		return table.NewBool(name, vals, nulls), nil
	default:
		vals := make([]string, 0, n)
		for _, chunk := range col.Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				if chunk.IsNull(i) {
					vals = append(vals, "")
					nulls = append(nulls, true)
					continue
				}
				vals = append(vals, arrowString(chunk, i))
				nulls = append(nulls, false)
			}
		}
		return table.NewText(name, vals, nulls), nil
	}
}

func kindOf(dt arrow.DataType) table.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64,
		arrow.DECIMAL128, arrow.DECIMAL256:
		return table.KindNumeric
	case arrow.BOOL:
		return table.KindBool
	}
	return table.KindText
}

func arrowFloat(a arrow.Array, i int) (float64, bool) {
	if a.IsNull(i) {
		return 0, false
	}
	switch x := a.(type) {
	case *array.Float64:
		return x.Value(i), true
	case *array.Float32:
		return float64(x.Value(i)), true
	case *array.Int64:
		return float64(x.Value(i)), true
	case *array.Int32:
		return float64(x.Value(i)), true
	case *array.Int16:
		return float64(x.Value(i)), true
	case *array.Int8:
		return float64(x.Value(i)), true
	case *array.Uint64:
		return float64(x.Value(i)), true
	case *array.Uint32:
		return float64(x.Value(i)), true
	case *array.Uint16:
		return float64(x.Value(i)), true
	case *array.Uint8:
		return float64(x.Value(i)), true
	case *array.Decimal128:
		return x.Value(i).ToFloat64(x.DataType().(*arrow.Decimal128Type).Scale), true
	case *array.Decimal256:
		return x.Value(i).ToFloat64(x.DataType().(*arrow.Decimal256Type).Scale), true
	}
	return 0, false
}

func arrowString(a arrow.Array, i int) string {
	switch x := a.(type) {
	case *array.String:
		return x.Value(i)
	case *array.LargeString:
		return x.Value(i)
	case *array.Timestamp:
		unit := x.DataType().(*arrow.TimestampType).Unit
		return x.Value(i).ToTime(unit).UTC().Format(time.RFC3339)
	case *array.Date32:
		return x.Value(i).ToTime().Format(time.DateOnly)
	case *array.Date64:
		return x.Value(i).ToTime().Format(time.DateOnly)
	}
	return a.ValueStr(i)
}
