package chart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KaramelBytes/intellidash-cli/internal/errs"
	"github.com/KaramelBytes/intellidash-cli/internal/table"
	"go.uber.org/zap"
)

var (
	ErrMissingAxis            = errors.New("both x and y must be specified")
	ErrUnsupportedAggregation = errors.New("unsupported aggregation")
	ErrUnknownColumn          = errors.New("unknown column")
	ErrNonNumeric             = errors.New("column is not numeric")
	ErrNoValues               = errors.New("no values to aggregate")
)

// Values is the computed payload of one chart: a formatted scalar or
// parallel x/y series.
type Values struct {
	Single   bool
	Value    string
	Unit     string
	Position string
	X        []any
	Y        []any
}

func (v Values) MarshalJSON() ([]byte, error) {
	if v.Single {
		out := map[string]any{"value": v.Value}
		if v.Unit != "" {
			out["unit"] = v.Unit
			out["position"] = v.Position
		}
		return json.Marshal(out)
	}
	x, y := v.X, v.Y
	if x == nil {
		x = []any{}
	}
	if y == nil {
		y = []any{}
	}
	return json.Marshal(map[string]any{"x": x, "y": y})
}

// Rendered pairs the planned chart, as received, with its values.
type Rendered struct {
	Chart  map[string]any `json:"chart"`
	Values Values         `json:"values"`
}

// Options configures a Visualizer.
type Options struct {
	// MaxDensity caps the points of scatter, line and bar series.
	MaxDensity int
	// Units maps column names to display units; see ParseUnit.
	Units  map[string]string
	Logger *zap.Logger
}

// Visualizer computes chart values from a cleaned table.
type Visualizer struct {
	opts Options
	log  *zap.Logger
}

// NewVisualizer returns a Visualizer; MaxDensity defaults to 200.
func NewVisualizer(opts Options) *Visualizer {
	if opts.MaxDensity <= 0 {
		opts.MaxDensity = 200
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Visualizer{opts: opts, log: log}
}

// Render computes values for every spec. A spec that cannot be rendered is
// logged and left out; only a missing table fails the batch.
func (v *Visualizer) Render(t *table.Table, specs []Spec) ([]Rendered, error) {
	if t == nil {
		return nil, errs.Data("visualization", nil, "no cleaned data provided")
	}
	out := make([]Rendered, 0, len(specs))
	for _, s := range specs {
		vals, err := v.Compute(t, s)
		if err != nil {
			v.log.Warn("skipping chart",
				zap.String("id", s.ID),
				zap.String("type", s.Type),
				zap.Error(err),
			)
			continue
		}
		out = append(out, Rendered{Chart: s.Raw, Values: vals})
	}
	return out, nil
}

// Compute returns the values of one chart.
func (v *Visualizer) Compute(t *table.Table, s Spec) (Values, error) {
	if s.Type == TypeSingleValue {
		return v.singleValue(t, s)
	}
	if s.X == nil || s.Y == nil {
		return Values{}, errs.Spec("chart "+s.ID, ErrMissingAxis, "%s chart", s.Type)
	}
	xc, err := column(t, s, *s.X)
	if err != nil {
		return Values{}, err
	}
	yc, err := column(t, s, *s.Y)
	if err != nil {
		return Values{}, err
	}

	var x, y []any
	switch s.Aggregation {
	case AggNone:
		x, y = raw(xc), raw(yc)
		if s.Type == TypeScatter && len(x) > v.opts.MaxDensity {
			step := len(x) / v.opts.MaxDensity
			x, y = stride(x, step), stride(y, step)
		}
		return Values{X: x, Y: y}, nil
	case AggMean, AggSum, AggCount:
		x, y, err = groupBy(xc, yc, s.Aggregation)
		if err != nil {
			return Values{}, errs.Spec("chart "+s.ID, err, "aggregate %s", yc.Name)
		}
	default:
		return Values{}, errs.Spec("chart "+s.ID, ErrUnsupportedAggregation, "%q", s.Aggregation)
	}

	if (s.Type == TypeLine || s.Type == TypeBar) && len(x) > v.opts.MaxDensity {
		step := len(x)
		if v.opts.MaxDensity > 1 {
			step = len(x)/(v.opts.MaxDensity-1) + 1
		}
		x, y = stride(x, step), stride(y, step)
	}
	return Values{X: x, Y: y}, nil
}

func (v *Visualizer) singleValue(t *table.Table, s Spec) (Values, error) {
	op := "chart " + s.ID
	switch s.Aggregation {
	case AggMean, AggSum, AggCount:
	default:
		return Values{}, errs.Spec(op, ErrUnsupportedAggregation, "%q for single_value", s.Aggregation)
	}
	if s.Y == nil {
		return Values{}, errs.Spec(op, ErrMissingAxis, "single_value needs y")
	}
	yc, err := column(t, s, *s.Y)
	if err != nil {
		return Values{}, err
	}

	var value float64
	if s.Aggregation == AggCount {
		value = float64(yc.Len() - yc.NullCount())
	} else {
		sum, n, err := total(yc, allRows(yc.Len()))
		if err != nil {
			return Values{}, errs.Spec(op, err, "aggregate %s", yc.Name)
		}
		if s.Aggregation == AggMean {
			if n == 0 {
				return Values{}, errs.Spec(op, ErrNoValues, "mean of %s", yc.Name)
			}
			sum /= float64(n)
		}
		value = round2(sum)
	}

	out := Values{Single: true, Value: FormatLargeNumber(value)}
	if raw, ok := v.opts.Units[yc.Name]; ok {
		out.Unit, out.Position = ParseUnit(raw)
	}
	return out, nil
}

func column(t *table.Table, s Spec, name string) (*table.Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errs.Spec("chart "+s.ID, ErrUnknownColumn, "%q", name)
	}
	return c, nil
}

func raw(c *table.Column) []any {
	out := make([]any, c.Len())
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// total sums the present cells at rows. Text columns cannot be summed.
func total(c *table.Column, rows []int) (float64, int, error) {
	if c.Kind == table.KindText {
		return 0, 0, fmt.Errorf("%w: %s", ErrNonNumeric, c.Name)
	}
	sum, n := 0.0, 0
	for _, i := range rows {
		if f, ok := c.Float(i); ok {
			sum += f
			n++
		}
	}
	return sum, n, nil
}

// groupBy reduces y per distinct x in first-appearance order. Rows with a
// missing x are ignored; a group without values has a nil mean.
func groupBy(xc, yc *table.Column, agg string) ([]any, []any, error) {
	if agg != AggCount && yc.Kind == table.KindText {
		return nil, nil, fmt.Errorf("%w: %s", ErrNonNumeric, yc.Name)
	}
	index := map[string]int{}
	var keys []any
	var groups [][]int
	for i := 0; i < xc.Len(); i++ {
		if xc.IsNull(i) {
			continue
		}
		k := xc.Key(i)
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			keys = append(keys, xc.Value(i))
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}

	ys := make([]any, len(groups))
	for g, rows := range groups {
		if agg == AggCount {
			n := 0
			for _, i := range rows {
				if !yc.IsNull(i) {
					n++
				}
			}
			ys[g] = n
			continue
		}
		sum, n, err := total(yc, rows)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case agg == AggSum:
			ys[g] = round2(sum)
		case n == 0:
			ys[g] = nil
		default:
			ys[g] = round2(sum / float64(n))
		}
	}
	return keys, ys, nil
}

// stride keeps every step-th element starting with the first.
func stride(vals []any, step int) []any {
	if step <= 1 {
		return vals
	}
	out := make([]any, 0, len(vals)/step+1)
	for i := 0; i < len(vals); i += step {
		out = append(out, vals[i])
	}
	return out
}
