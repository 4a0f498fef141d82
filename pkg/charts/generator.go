package charts

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/moevm/nosql1h25-mldata/pkg/apperrors"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
)

// Chart canvas size in points. Kept small: the images are inlined
// into dataset pages.
var (
	chartWidth  = vg.Points(360)
	chartHeight = vg.Points(240)
)

var errSkipColumn = fmt.Errorf("column skipped")

// Limits bound the work done per uploaded file.
type Limits struct {
	// MaxColumns is how many leading columns are considered.
	MaxColumns int
	// MaxRows is how many rows are sampled per column.
	MaxRows int
	// MaxCategories is the categorical-detection threshold.
	MaxCategories int
}

// DefaultLimits match the documented configuration defaults.
func DefaultLimits() Limits {
	return Limits{MaxColumns: 30, MaxRows: 100000, MaxCategories: DefaultMaxCategories}
}

// Generator renders one SVG chart per visualizable column of a CSV
// file: a frequency bar chart for categorical columns, a histogram
// with a density overlay for numeric ones.
type Generator struct {
	limits     Limits
	classifier Classifier
	logger     *zap.Logger
}

// NewGenerator creates a Generator with the given limits.
func NewGenerator(limits Limits, logger *zap.Logger) *Generator {
	if limits.MaxColumns <= 0 {
		limits.MaxColumns = DefaultLimits().MaxColumns
	}
	if limits.MaxRows <= 0 {
		limits.MaxRows = DefaultLimits().MaxRows
	}
	return &Generator{
		limits:     limits,
		classifier: NewClassifier(limits.MaxCategories),
		logger:     logger,
	}
}

// Generate parses raw CSV content and renders charts for every
// eligible column. Chart generation is best effort: a column that
// fails to classify or render is skipped and the rest still produce
// output. Graph names are zero-based column indexes as strings.
func (g *Generator) Generate(data []byte) ([]models.Graph, error) {
	df := dataframe.ReadCSV(bytes.NewReader(data))
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidCSV, df.Err)
	}

	records := df.Records()
	if len(records) < 2 {
		return nil, apperrors.ErrEmptyDataset
	}

	ncols := df.Ncol()
	if ncols > g.limits.MaxColumns {
		ncols = g.limits.MaxColumns
	}
	nrows := df.Nrow()
	if nrows > g.limits.MaxRows {
		nrows = g.limits.MaxRows
	}

	types := df.Types()

	var graphs []models.Graph
	for i := 0; i < ncols; i++ {
		values := make([]string, 0, nrows)
		for r := 1; r <= nrows; r++ {
			values = append(values, records[r][i])
		}

		img, err := g.renderColumn(values, types[i])
		if err != nil {
			if err != errSkipColumn {
				g.logger.Debug("Skipping column after chart failure",
					zap.Int("column", i),
					zap.Error(err))
			}
			continue
		}

		graphs = append(graphs, models.Graph{
			Name:  strconv.Itoa(i),
			Image: img,
		})
	}

	return graphs, nil
}

// renderColumn classifies one column and renders its chart. Panics
// from the plotting layer are converted to errors so a single bad
// column cannot abort the whole pipeline.
func (g *Generator) renderColumn(values []string, t series.Type) (img []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart rendering panicked: %v", r)
		}
	}()

	switch g.classifier.Classify(values, t) {
	case KindCategorical:
		return renderCategorical(values)
	case KindNumeric:
		return renderNumeric(NumericValues(values))
	default:
		return nil, errSkipColumn
	}
}

// renderCategorical draws a frequency bar chart over the distinct
// non-missing values.
func renderCategorical(values []string) ([]byte, error) {
	counts := make(map[string]float64)
	for _, v := range values {
		if isMissing(v) {
			continue
		}
		counts[v]++
	}
	if len(counts) == 0 {
		return nil, errSkipColumn
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	heights := make(plotter.Values, 0, len(labels))
	for _, label := range labels {
		heights = append(heights, counts[label])
	}

	p := plot.New()
	p.HideAxes()

	bars, err := plotter.NewBarChart(heights, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)

	return renderSVG(p)
}

// renderNumeric draws a histogram over the coerced values with a
// Gaussian kernel density estimate on top. Both are normalized to
// unit area so they share a scale.
func renderNumeric(values []float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, errSkipColumn
	}

	p := plot.New()
	p.HideAxes()

	bins := int(math.Ceil(math.Sqrt(float64(len(values)))))
	hist, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, fmt.Errorf("failed to build histogram: %w", err)
	}
	hist.Normalize(1)
	p.Add(hist)

	if line := densityLine(values); line != nil {
		p.Add(line)
	}

	return renderSVG(p)
}

// densityLine builds a Gaussian KDE curve over the values using
// Silverman's rule-of-thumb bandwidth. Constant columns get no curve.
func densityLine(values []float64) *plotter.Line {
	const points = 128

	n := float64(len(values))
	sigma := stat.StdDev(values, nil)
	if sigma == 0 || math.IsNaN(sigma) {
		return nil
	}
	bandwidth := 1.06 * sigma * math.Pow(n, -0.2)

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo -= 3 * bandwidth
	hi += 3 * bandwidth

	xys := make(plotter.XYs, points)
	step := (hi - lo) / (points - 1)
	for i := range xys {
		x := lo + float64(i)*step
		var density float64
		for _, v := range values {
			z := (x - v) / bandwidth
			density += math.Exp(-0.5 * z * z)
		}
		density /= n * bandwidth * math.Sqrt(2*math.Pi)
		xys[i].X = x
		xys[i].Y = density
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil
	}
	line.LineStyle.Width = vg.Points(1.5)
	return line
}

func renderSVG(p *plot.Plot) ([]byte, error) {
	canvas := vgsvg.New(chartWidth, chartHeight)
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := canvas.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode SVG: %w", err)
	}
	return buf.Bytes(), nil
}
