// Package report renders survey analysis into downloadable artifacts:
// a PDF report and CSV/XLSX score exports.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/talentai/insights-server/analysis"
	"github.com/talentai/insights-server/survey"
)

var (
	fontOnce sync.Once
	cjkFont  *truetype.Font
)

// chartFont loads a CJK-capable TTF for chart labels. Candidates live under
// FONTS_DIR (or ./fonts). Without one the charts fall back to the built-in
// font and CJK labels degrade, which matches running without the font pack.
func chartFont() *truetype.Font {
	fontOnce.Do(func() {
		dir := os.Getenv("FONTS_DIR")
		if dir == "" {
			dir = "fonts"
		}
		for _, name := range []string{"NotoSansSC-Regular.ttf", "font.ttf"} {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			f, err := truetype.Parse(data)
			if err != nil {
				continue
			}
			cjkFont = f
			return
		}
	})
	return cjkFont
}

func colorFromHex(hex string) drawing.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	return drawing.ColorFromHex(hex)
}

// DimensionBarPNG draws the cohort dimension means as a bar chart. The
// highest bar is green, the lowest orange, the rest blue.
func DimensionBarPNG(dims []analysis.DimensionSummary) ([]byte, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("no dimension data")
	}
	bars := make([]chart.Value, 0, len(dims))
	for _, d := range dims {
		color := colorFromHex("#3498db")
		if d.Highest {
			color = colorFromHex("#10b981")
		} else if d.Lowest {
			color = colorFromHex("#f59e0b")
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s %.2f", d.Dimension, d.Mean),
			Value: d.Mean,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	graph := chart.BarChart{
		Width:    720,
		Height:   480,
		BarWidth: 80,
		Font:     chartFont(),
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 5.5},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PiePNG draws a categorical distribution as a pie chart.
func PiePNG(buckets []analysis.Bucket) ([]byte, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("no distribution data")
	}
	values := make([]chart.Value, 0, len(buckets))
	for i, b := range buckets {
		color := colorFromHex(survey.BarPalette[i%len(survey.BarPalette)])
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s(%d)", b.Label, b.Count),
			Value: float64(b.Count),
			Style: chart.Style{FillColor: color, StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
		})
	}

	graph := chart.PieChart{
		Width:  520,
		Height: 500,
		Font:   chartFont(),
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BehaviorLinePNG draws the cohort behavior means in question-bank order.
func BehaviorLinePNG(means []analysis.BehaviorMean) ([]byte, error) {
	if len(means) == 0 {
		return nil, fmt.Errorf("no behavior data")
	}
	xs := make([]float64, len(means))
	ys := make([]float64, len(means))
	for i, m := range means {
		xs[i] = float64(i + 1)
		ys[i] = m.Mean
	}

	graph := chart.Chart{
		Width:  1120,
		Height: 560,
		Font:   chartFont(),
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(means)) + 0.5},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 5.5},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "全员平均",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: colorFromHex("#2980b9"),
					StrokeWidth: 2,
					DotColor:    colorFromHex("#2980b9"),
					DotWidth:    3,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PersonLinePNG overlays one respondent's behavior scores on the cohort
// means. Unanswered questions break the personal series.
func PersonLinePNG(person []*float64, cohort []analysis.BehaviorMean) ([]byte, error) {
	if len(cohort) == 0 {
		return nil, fmt.Errorf("no behavior data")
	}
	cx := make([]float64, len(cohort))
	cy := make([]float64, len(cohort))
	var px, py []float64
	for i, m := range cohort {
		cx[i] = float64(i + 1)
		cy[i] = m.Mean
		if m.QuestionIdx < len(person) && person[m.QuestionIdx] != nil {
			px = append(px, float64(i+1))
			py = append(py, *person[m.QuestionIdx])
		}
	}
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "全员平均",
			XValues: cx,
			YValues: cy,
			Style: chart.Style{
				StrokeColor:     colorFromHex("#94a3b8"),
				StrokeWidth:     2,
				StrokeDashArray: []float64{4, 4},
			},
		},
	}
	if len(px) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "个人",
			XValues: px,
			YValues: py,
			Style: chart.Style{
				StrokeColor: colorFromHex("#e67e22"),
				StrokeWidth: 2,
				DotColor:    colorFromHex("#e67e22"),
				DotWidth:    3,
			},
		})
	}

	graph := chart.Chart{
		Width:  1050,
		Height: 600,
		Font:   chartFont(),
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(cohort)) + 0.5},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 5.5},
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
