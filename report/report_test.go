package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/talentai/insights-server/analysis"
	"github.com/talentai/insights-server/survey"
)

func ptr(v float64) *float64 { return &v }

func testSnapshot() *analysis.Snapshot {
	mk := func(id uint, seq int, name string, score float64) analysis.Person {
		p := analysis.Person{
			ID: id, Seq: seq, Name: name,
			Dept: "教学部", Tenure: "1-3年", TeamSize: "5-10人",
			LearningModules: "辅导、沟通",
			Scores:          make([]*float64, len(survey.Questions)),
		}
		for i := range p.Scores {
			p.Scores[i] = ptr(score)
		}
		return p
	}
	a := mk(1, 1, "张三", 4)
	a.Scores[0] = ptr(5)
	a.Scores[5] = nil
	b := mk(2, 2, "李四", 3) // uniform answers, shows up in the anomaly section
	return &analysis.Snapshot{DatasetID: 1, People: []analysis.Person{a, b}}
}

func TestBuildTeamPDF(t *testing.T) {
	data, err := BuildTeamPDF(testSnapshot())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output must be a PDF")
	assert.Greater(t, len(data), 2000)
}

func TestBuildTeamPDFWithoutCJKFont(t *testing.T) {
	// deployments without a bundled TTF fall back to the core font; the
	// report must still render rather than panic on CJK measurement
	t.Setenv("FONTS_DIR", t.TempDir())

	data, err := BuildTeamPDF(testSnapshot())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestSplitLinesCoreFontFallback(t *testing.T) {
	t.Setenv("FONTS_DIR", t.TempDir())
	b := newPDFBuilder()
	require.Equal(t, "Helvetica", b.font)

	b.pdf.AddPage()
	b.setFont(9)
	text := strings.Repeat("带人与管人都需要方法。", 8)
	lines := b.splitLines(text, 98)
	require.NotEmpty(t, lines)
	assert.Greater(t, len(lines), 1)
	assert.Equal(t, text, strings.Join(lines, ""))
}

func TestBuildCSV(t *testing.T) {
	data, err := BuildCSV(testSnapshot())
	require.NoError(t, err)

	text := string(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF")))
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 3, "header + two respondents")

	assert.Contains(t, lines[0], "姓名")
	assert.Contains(t, lines[0], "总分")
	assert.Contains(t, lines[1], "张三")
	assert.Contains(t, lines[2], "李四")
	// uniform 3s: total is 3.00
	assert.Contains(t, lines[2], "3.00")
}

func TestBuildXLSX(t *testing.T) {
	data, err := BuildXLSX(testSnapshot())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "序号", rows[0][0])
	assert.Equal(t, "张三", rows[1][1])
}

func TestChartsRender(t *testing.T) {
	snap := testSnapshot()

	png, err := DimensionBarPNG(snap.BuildOverview().Dimensions)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	png, err = PiePNG(snap.BuildDistributions().LearningModules)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	means := snap.BehaviorMeans()
	png, err = BehaviorLinePNG(means)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	png, err = PersonLinePNG(snap.People[0].Scores, means)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestLightenRGB(t *testing.T) {
	r, g, b := lightenRGB("#000000", 0.78)
	assert.Equal(t, 198, r)
	assert.Equal(t, 198, g)
	assert.Equal(t, 198, b)

	// garbage input falls back to a neutral light gray
	r, g, b = lightenRGB("oops", 0.78)
	assert.Equal(t, 248, r)
	assert.Equal(t, 248, g)
	assert.Equal(t, 248, b)
}
