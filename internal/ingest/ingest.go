// Package ingest loads tabular files into a table.Table.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/intellidash-cli/internal/errs"
	"github.com/KaramelBytes/intellidash-cli/internal/table"
)

// Loader reads one file format.
type Loader interface {
	CanLoad(path string) bool
	Load(ctx context.Context, path string) (*table.Table, error)
}

var registry []Loader

// Register adds a loader to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(jsonLoader{})
	Register(parquetLoader{})
}

// SupportedFormats is the extension whitelist.
var SupportedFormats = []string{".csv", ".xlsx", ".json", ".parquet"}

var (
	// ErrUnsupportedFormat indicates a path whose extension is not whitelisted.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNotFound indicates a path that does not exist.
	ErrNotFound = errors.New("file not found")
)

// Metadata describes a freshly loaded table.
type Metadata struct {
	Path          string            `json:"path"`
	Shape         [2]int            `json:"shape"`
	Columns       []string          `json:"columns"`
	Dtypes        map[string]string `json:"dtypes"`
	MissingValues map[string]int    `json:"missing_values"`
}

// Summary is the short description printed after a load.
type Summary struct {
	TotalRows    int               `json:"total_rows"`
	TotalColumns int               `json:"total_columns"`
	Columns      []string          `json:"columns"`
	DataTypes    map[string]string `json:"data_types"`
	FirstRows    []map[string]any  `json:"first_rows"`
}

// Validate reports whether path exists and has a whitelisted extension.
func Validate(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errs.Input("ingest", ErrNotFound, "file not found or format not supported: %s", path)
		}
		return errs.Input("ingest", err, "stat %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedFormats {
		if ext == s {
			return nil
		}
	}
	return errs.Input("ingest", ErrUnsupportedFormat, "file not found or format not supported: %s", path)
}

// Options tunes format-specific loading.
type Options struct {
	// Sheet names the XLSX worksheet to read; empty means the first one.
	Sheet string
}

// Load validates path, selects a loader by extension and returns the table
// with its metadata.
func Load(ctx context.Context, path string) (*table.Table, Metadata, error) {
	return LoadWith(ctx, path, Options{})
}

// LoadWith is Load with format options applied.
func LoadWith(ctx context.Context, path string, opts Options) (*table.Table, Metadata, error) {
	if err := Validate(path); err != nil {
		return nil, Metadata{}, err
	}
	for _, l := range registry {
		if !l.CanLoad(path) {
			continue
		}
		if x, ok := l.(xlsxLoader); ok && opts.Sheet != "" {
			x.Sheet = opts.Sheet
			l = x
		}
		t, err := l.Load(ctx, path)
		if err != nil {
			return nil, Metadata{}, errs.Input("ingest", err, "error loading data")
		}
		return t, Describe(path, t), nil
	}
	return nil, Metadata{}, errs.Input("ingest", ErrUnsupportedFormat, "no loader for %s", path)
}

// Describe builds metadata for a table.
func Describe(path string, t *table.Table) Metadata {
	return Metadata{
		Path:          path,
		Shape:         t.Shape(),
		Columns:       t.Names(),
		Dtypes:        t.Dtypes(),
		MissingValues: t.MissingByColumn(),
	}
}

// Summarize returns row/column counts and the first three rows.
func Summarize(t *table.Table) Summary {
	return Summary{
		TotalRows:    t.NumRows(),
		TotalColumns: t.NumCols(),
		Columns:      t.Names(),
		DataTypes:    t.Dtypes(),
		FirstRows:    t.Head(3),
	}
}

func hasExt(path string, exts ...string) bool {
	name := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

// headerNames fills blank header cells the same way spreadsheet tools do.
func headerNames(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		out[i] = h
	}
	return out
}
