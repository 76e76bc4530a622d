package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/KaramelBytes/intellidash-cli/internal/table"
)

type jsonLoader struct{}

func (jsonLoader) CanLoad(path string) bool { return hasExt(path, ".json") }

func (jsonLoader) Load(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	switch tok {
	case json.Delim('['):
		return readRecords(ctx, dec)
	case json.Delim('{'):
		return readColumns(dec)
	}
	return nil, errors.New("json must be an array of records or an object of columns")
}

// orderedObject keeps an object's keys in document order.
type orderedObject struct {
	keys []string
	vals map[string]any
}

// readObject consumes an object whose opening brace was already read.
func readObject(dec *json.Decoder) (*orderedObject, error) {
	obj := &orderedObject{vals: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		if _, seen := obj.vals[key]; !seen {
			obj.keys = append(obj.keys, key)
		}
		obj.vals[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func readRecords(ctx context.Context, dec *json.Decoder) (*table.Table, error) {
	var names []string
	seen := map[string]bool{}
	var recs []map[string]any
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(recs), err)
		}
		if tok != json.Delim('{') {
			return nil, fmt.Errorf("record %d is not an object", len(recs))
		}
		obj, err := readObject(dec)
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(recs), err)
		}
		for _, k := range obj.keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
		recs = append(recs, obj.vals)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	cols := make([]*table.Column, len(names))
	for j, name := range names {
		vals := make([]any, len(recs))
		for i, r := range recs {
			vals[i] = r[name]
		}
		cols[j] = columnFromValues(name, vals)
	}
	return table.New(cols...)
}

// readColumns accepts {"col": [v...]} and {"col": {"0": v, "1": v}}.
func readColumns(dec *json.Decoder) (*table.Table, error) {
	obj, err := readObject(dec)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	cols := make([]*table.Column, 0, len(obj.keys))
	for _, name := range obj.keys {
		switch v := obj.vals[name].(type) {
		case []any:
			cols = append(cols, columnFromValues(name, v))
		case map[string]any:
			cols = append(cols, columnFromValues(name, indexedValues(v)))
		default:
			return nil, fmt.Errorf("column %q is neither an array nor an object", name)
		}
	}
	return table.New(cols...)
}

func indexedValues(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

// columnFromValues types a column from decoded JSON values. Mixed kinds
// degrade to text.
func columnFromValues(name string, vals []any) *table.Column {
	nulls := make([]bool, len(vals))
	allNum, allBool := true, true
	for i, v := range vals {
		switch v.(type) {
		case nil:
			nulls[i] = true
		case json.Number:
			allBool = false
		case bool:
			allNum = false
		default:
			allNum, allBool = false, false
		}
	}
	switch {
	case allNum:
		out := make([]float64, len(vals))
		for i, v := range vals {
			if n, ok := v.(json.Number); ok {
				f, err := n.Float64()
				if err != nil {
					nulls[i] = true
					continue
				}
				out[i] = f
			}
		}
		return table.NewNumeric(name, out, nulls)
	case allBool:
		out := make([]bool, len(vals))
		for i, v := range vals {
			if b, ok := v.(bool); ok {
				out[i] = b
			}
		}
		return table.NewBool(name, out, nulls)
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case nil:
		case string:
			out[i] = x
		case json.Number:
			out[i] = x.String()
		case bool:
			out[i] = strconv.FormatBool(x)
		default:
			b, _ := json.Marshal(x)
			out[i] = string(b)
		}
	}
	return table.NewText(name, out, nulls)
}
