package charts

import (
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(7)

	tests := []struct {
		name   string
		values []string
		typ    series.Type
		want   ColumnKind
	}{
		{
			name:   "bool column is categorical",
			values: []string{"true", "false", "true"},
			typ:    series.Bool,
			want:   KindCategorical,
		},
		{
			name:   "few distinct strings are categorical",
			values: []string{"red", "green", "blue", "red", "red"},
			typ:    series.String,
			want:   KindCategorical,
		},
		{
			name:   "numeric with few distinct values is categorical not numeric",
			values: []string{"1", "2", "3", "1", "2", "3", "1"},
			typ:    series.Int,
			want:   KindCategorical,
		},
		{
			name:   "many distinct numbers are numeric",
			values: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
			typ:    series.Int,
			want:   KindNumeric,
		},
		{
			name:   "floats with missing values stay numeric below threshold",
			values: []string{"1.5", "2.5", "", "4.5", "5.5", "6.5", "7.5", "8.5", "9.5", "10.5"},
			typ:    series.Float,
			want:   KindNumeric,
		},
		{
			name: "present non-numeric value disqualifies the column",
			values: []string{
				"1", "2", "3", "4", "5", "6", "7", "8", "9", "oops",
			},
			typ:  series.String,
			want: KindUnplottable,
		},
		{
			name: "mostly missing numeric column is unplottable",
			values: []string{
				"1", "2", "3", "4", "", "", "", "", "", "",
				"", "NaN", "5", "6", "7", "8", "", "", "", "",
			},
			typ:  series.Float,
			want: KindUnplottable,
		},
		{
			name:   "all missing is unplottable",
			values: []string{"", "NA", "NaN"},
			typ:    series.String,
			want:   KindUnplottable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.values, tt.typ))
		})
	}
}

func TestClassifyThresholdBoundary(t *testing.T) {
	c := NewClassifier(3)

	// Exactly at the threshold: categorical.
	atThreshold := []string{"a", "b", "c", "a", "b", "c"}
	assert.Equal(t, KindCategorical, c.Classify(atThreshold, series.String))

	// One distinct value past the threshold and non-numeric: unplottable.
	pastThreshold := []string{"a", "b", "c", "d"}
	assert.Equal(t, KindUnplottable, c.Classify(pastThreshold, series.String))
}

func TestNumericValues(t *testing.T) {
	values := []string{"1.5", "", "2.5", "NaN", "bad", "3.5"}
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, NumericValues(values))
}
