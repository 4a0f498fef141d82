package charts

import (
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
)

// ColumnKind is the classification that drives chart selection.
type ColumnKind int

const (
	// KindUnplottable columns get no chart.
	KindUnplottable ColumnKind = iota
	// KindCategorical columns get a frequency bar chart.
	KindCategorical
	// KindNumeric columns get a histogram with a density overlay.
	KindNumeric
)

// DefaultMaxCategories is the distinct-value threshold below which a
// column is treated as categorical.
const DefaultMaxCategories = 7

// missing markers as they appear in dataframe records. Empty cells
// stay empty, failed float parses round-trip as "NaN".
func isMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NA", "NaN", "nan", "null", "<nil>":
		return true
	}
	return false
}

// Classifier decides whether a column is categorical, numeric or not
// worth plotting at all.
type Classifier struct {
	// MaxCategories is the distinct non-missing value threshold for
	// categorical detection.
	MaxCategories int
}

// NewClassifier creates a Classifier; maxCategories <= 0 selects the
// default threshold.
func NewClassifier(maxCategories int) Classifier {
	if maxCategories <= 0 {
		maxCategories = DefaultMaxCategories
	}
	return Classifier{MaxCategories: maxCategories}
}

// Classify inspects one column's raw record values plus the type the
// dataframe inferred for it.
//
// The categorical check runs first and wins ties: a numeric column
// with few distinct values is charted as categories, not as a
// histogram. Columns that are neither categorical nor cleanly
// numeric, and numeric columns with more than half their values
// missing, are unplottable.
func (c Classifier) Classify(values []string, t series.Type) ColumnKind {
	if t == series.Bool {
		return KindCategorical
	}

	distinct := make(map[string]struct{})
	present := 0
	for _, v := range values {
		if isMissing(v) {
			continue
		}
		present++
		distinct[v] = struct{}{}
	}

	if present > 0 && len(distinct) <= c.MaxCategories {
		return KindCategorical
	}

	// Every present value must coerce to a number; a single
	// non-numeric present value disqualifies the column.
	for _, v := range values {
		if isMissing(v) {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return KindUnplottable
		}
	}

	if present == 0 || present*2 < len(values) {
		// More than half the values are missing: not worth charting.
		return KindUnplottable
	}

	return KindNumeric
}

// NumericValues extracts the coerced non-missing values of a column.
func NumericValues(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isMissing(v) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
