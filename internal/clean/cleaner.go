// Package clean normalizes a raw table before analysis.
package clean

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/intellidash-cli/internal/errs"
	"github.com/KaramelBytes/intellidash-cli/internal/table"
	"go.uber.org/zap"
)

// Strategy selects how missing values are handled.
type Strategy string

const (
	StrategyDrop        Strategy = "drop"
	StrategyFillMean    Strategy = "fill_mean"
	StrategyFillForward Strategy = "fill_forward"
)

// ParseStrategy accepts a strategy name; empty means drop.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyDrop:
		return StrategyDrop, nil
	case StrategyFillMean:
		return StrategyFillMean, nil
	case StrategyFillForward:
		return StrategyFillForward, nil
	}
	return "", fmt.Errorf("unknown missing-value strategy %q (use drop|fill_mean|fill_forward)", s)
}

// Options configures a Cleaner.
type Options struct {
	Strategy Strategy
	// CoerceThreshold is the parsed fraction a text column must exceed to
	// become numeric.
	CoerceThreshold float64
	Logger          *zap.Logger
}

// DefaultOptions drops incomplete rows and coerces above 80%.
func DefaultOptions() Options {
	return Options{Strategy: StrategyDrop, CoerceThreshold: 0.8}
}

// Report summarizes one cleaning pass.
type Report struct {
	Strategy            Strategy          `json:"strategy"`
	DuplicatesRemoved   int               `json:"duplicates_removed"`
	MissingValuesBefore int               `json:"missing_values_before"`
	MissingValuesAfter  int               `json:"missing_values_after"`
	DataTypeConversions map[string]string `json:"data_type_conversions"`
	InitialShape        [2]int            `json:"initial_shape"`
	FinalShape          [2]int            `json:"final_shape"`
	RowsRemoved         int               `json:"rows_removed"`
}

// Summary describes the cleaned table alongside its report.
type Summary struct {
	Report    Report            `json:"cleaning_report"`
	DataShape [2]int            `json:"data_shape"`
	Columns   []string          `json:"columns"`
	Dtypes    map[string]string `json:"dtypes"`
}

// Cleaner runs the cleaning steps in a fixed order.
type Cleaner struct {
	opts Options
	log  *zap.Logger
}

// New returns a Cleaner. Zero option fields take their defaults.
func New(opts Options) *Cleaner {
	def := DefaultOptions()
	if opts.Strategy == "" {
		opts.Strategy = def.Strategy
	}
	if opts.CoerceThreshold <= 0 {
		opts.CoerceThreshold = def.CoerceThreshold
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{opts: opts, log: log}
}

// Clean returns a cleaned copy of raw and its report. raw is not modified.
func (c *Cleaner) Clean(raw *table.Table) (*table.Table, Report, error) {
	if raw == nil || raw.NumCols() == 0 {
		return nil, Report{}, errs.Data("cleaning", nil, "no raw data provided")
	}
	t := raw.Clone()
	rep := Report{Strategy: c.opts.Strategy, InitialShape: t.Shape()}

	NormalizeColumns(t)

	t, rep.DuplicatesRemoved = RemoveDuplicates(t)

	rep.MissingValuesBefore = t.NullCount()
	t, err := HandleMissing(t, c.opts.Strategy)
	if err != nil {
		return nil, Report{}, errs.Data("cleaning", err, "error during cleaning")
	}
	rep.MissingValuesAfter = t.NullCount()

	rep.DataTypeConversions = CoerceNumeric(t, c.opts.CoerceThreshold)

	TrimText(t)

	rep.FinalShape = t.Shape()
	rep.RowsRemoved = rep.InitialShape[0] - rep.FinalShape[0]

	c.log.Debug("cleaned table",
		zap.Int("duplicates_removed", rep.DuplicatesRemoved),
		zap.Int("rows_removed", rep.RowsRemoved),
		zap.Int("conversions", len(rep.DataTypeConversions)),
		zap.String("strategy", string(rep.Strategy)),
	)
	return t, rep, nil
}

// Summarize pairs a report with the cleaned table's shape and types.
func Summarize(t *table.Table, rep Report) Summary {
	return Summary{Report: rep, DataShape: t.Shape(), Columns: t.Names(), Dtypes: t.Dtypes()}
}

// NormalizeName lower-cases, trims and replaces spaces with underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToLower(name)), " ", "_")
}

// NormalizeColumns renames every column in place.
func NormalizeColumns(t *table.Table) {
	for _, c := range t.Columns() {
		c.Name = NormalizeName(c.Name)
	}
}

// RemoveDuplicates keeps the first occurrence of each distinct row.
func RemoveDuplicates(t *table.Table) (*table.Table, int) {
	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		k := t.RowKey(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	removed := t.NumRows() - len(keep)
	if removed == 0 {
		return t, 0
	}
	return t.SelectRows(keep), removed
}
