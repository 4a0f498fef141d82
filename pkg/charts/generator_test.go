package charts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
)

func newTestGenerator(limits Limits) *Generator {
	return NewGenerator(limits, zap.NewNop())
}

func TestGenerateMixedColumns(t *testing.T) {
	// color: categorical; value: numeric; comment: free text, skipped.
	csv := strings.Join([]string{
		"color,value,comment",
		"red,1,hello world",
		"green,2,foo",
		"blue,3,bar",
		"red,4,baz",
		"green,5,qux",
		"blue,6,quux",
		"red,7,corge",
		"green,8,grault",
		"blue,9,garply",
		"red,10,waldo",
	}, "\n")

	g := newTestGenerator(DefaultLimits())
	graphs, err := g.Generate([]byte(csv))
	require.NoError(t, err)

	require.Len(t, graphs, 2)
	assert.Equal(t, "0", graphs[0].Name)
	assert.Equal(t, "1", graphs[1].Name)
	for _, graph := range graphs {
		assert.Contains(t, string(graph.Image), "<svg")
	}
}

func TestGenerateNamesAreColumnIndexes(t *testing.T) {
	csv := strings.Join([]string{
		"a,b",
		"x,1",
		"y,2",
		"x,3",
	}, "\n")

	g := newTestGenerator(DefaultLimits())
	graphs, err := g.Generate([]byte(csv))
	require.NoError(t, err)

	names := make([]string, 0, len(graphs))
	for _, graph := range graphs {
		names = append(names, graph.Name)
	}
	assert.Equal(t, []string{"0", "1"}, names)
}

func TestGenerateRespectsColumnCap(t *testing.T) {
	csv := strings.Join([]string{
		"a,b,c,d",
		"1,2,3,4",
		"5,6,7,8",
		"9,10,11,12",
	}, "\n")

	g := newTestGenerator(Limits{MaxColumns: 2, MaxRows: 1000, MaxCategories: 7})
	graphs, err := g.Generate([]byte(csv))
	require.NoError(t, err)

	for _, graph := range graphs {
		assert.NotEqual(t, "2", graph.Name)
		assert.NotEqual(t, "3", graph.Name)
	}
	assert.LessOrEqual(t, len(graphs), 2)
}

func TestGenerateMostlyMissingColumnSkipped(t *testing.T) {
	// 8 distinct present values (too many for categorical) but more
	// than half the rows missing.
	rows := []string{"sparse,full"}
	for i := 0; i < 20; i++ {
		if i < 8 {
			rows = append(rows, fmt.Sprintf("%d.5,1", i))
		} else {
			rows = append(rows, ",1")
		}
	}

	g := newTestGenerator(DefaultLimits())
	graphs, err := g.Generate([]byte(strings.Join(rows, "\n")))
	require.NoError(t, err)

	for _, graph := range graphs {
		assert.NotEqual(t, "0", graph.Name, "sparse column should have been skipped")
	}
}

func TestGenerateInvalidInput(t *testing.T) {
	g := newTestGenerator(DefaultLimits())

	_, err := g.Generate([]byte("header-only"))
	assert.ErrorIs(t, err, apperrors.ErrEmptyDataset)
}
