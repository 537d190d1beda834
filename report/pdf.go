package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/talentai/insights-server/analysis"
	"github.com/talentai/insights-server/survey"
)

const (
	headerLeft = "Talent AI Insights"

	prefaceRedTitle = "！！！很重要！！！在您阅读报告之前，我们希望您能知悉"
	prefaceRedLine  = "这不是一份领导力评估报告"
	prefaceTip      = "【温馨提示】本报告结果是根据员工的自陈得出，请结合具体情况，根据员工日常表现以及360评价对各项数据进行理性的阐释，而不是单纯以分数论事，绝不能作为给员工贴标签的依据。"

	pageWidth  = 210.0
	marginLR   = 20.0
	frameWidth = pageWidth - 2*marginLR
)

type pdfBuilder struct {
	pdf      *fpdf.Fpdf
	font     string
	imgCount int
}

func pdfFontPath() string {
	dir := os.Getenv("FONTS_DIR")
	if dir == "" {
		dir = "fonts"
	}
	for _, name := range []string{"NotoSansSC-Regular.ttf", "font.ttf"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func newPDFBuilder() *pdfBuilder {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLR, 22, marginLR)
	pdf.SetAutoPageBreak(true, 15)

	font := "Helvetica"
	if path := pdfFontPath(); path != "" {
		pdf.AddUTF8Font("noto", "", path)
		if pdf.Err() {
			pdf.ClearError()
		} else {
			font = "noto"
		}
	}

	date := time.Now().Format("2006-01-02 15:04")
	pdf.SetHeaderFuncMode(func() {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(marginLR, 12, headerLeft)
		pdf.Text(pageWidth-marginLR-pdf.GetStringWidth(date), 12, date)
	}, true)

	return &pdfBuilder{pdf: pdf, font: font}
}

func hexToRGB(hex string) (int, int, int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 248, 248, 248
	}
	r, err1 := strconv.ParseInt(hex[0:2], 16, 0)
	g, err2 := strconv.ParseInt(hex[2:4], 16, 0)
	b, err3 := strconv.ParseInt(hex[4:6], 16, 0)
	if err1 != nil || err2 != nil || err3 != nil {
		return 248, 248, 248
	}
	return int(r), int(g), int(b)
}

// lightenRGB blends a color toward white so dark text stays readable on it.
func lightenRGB(hex string, blendWhite float64) (int, int, int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 248, 248, 248
	}
	r, g, b := hexToRGB(hex)
	r = r + int(float64(255-r)*blendWhite)
	g = g + int(float64(255-g)*blendWhite)
	b = b + int(float64(255-b)*blendWhite)
	return r, g, b
}

func (b *pdfBuilder) setFont(size float64) {
	b.pdf.SetFont(b.font, "", size)
}

// splitLines wraps text for row-height math. SplitText indexes the core
// fonts' 256-entry width table by rune and blows up on CJK, so the
// Helvetica fallback wraps by rune count instead.
func (b *pdfBuilder) splitLines(text string, width float64) []string {
	if b.font == "noto" {
		return b.pdf.SplitText(text, width)
	}
	_, unit := b.pdf.GetFontSize()
	perLine := int(width / unit)
	if perLine < 1 {
		perLine = 1
	}
	r := []rune(text)
	var out []string
	for len(r) > perLine {
		out = append(out, string(r[:perLine]))
		r = r[perLine:]
	}
	return append(out, string(r))
}

func (b *pdfBuilder) para(text string, size float64) {
	b.setFont(size)
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.MultiCell(frameWidth, 5, text, "", "L", false)
	b.pdf.Ln(1.5)
}

func (b *pdfBuilder) redPara(text string) {
	b.setFont(10)
	b.pdf.SetTextColor(192, 0, 0)
	b.pdf.MultiCell(frameWidth, 5, text, "", "L", false)
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.Ln(1)
}

func (b *pdfBuilder) heading(text string, size float64) {
	b.setFont(size)
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.Ln(2)
	b.pdf.MultiCell(frameWidth, 7, text, "", "L", false)
	b.pdf.Ln(1)
}

// image registers PNG bytes and places them flowing at the current Y.
func (b *pdfBuilder) image(png []byte, x, w, h float64) {
	if len(png) == 0 {
		return
	}
	b.imgCount++
	name := fmt.Sprintf("chart%d", b.imgCount)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	b.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	y := b.pdf.GetY()
	b.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	b.pdf.SetY(y + h + 3)
}

func (b *pdfBuilder) coverPage() {
	pdf := b.pdf
	pdf.AddPage()

	b.setFont(18)
	pdf.CellFormat(frameWidth, 10, "好未来新灵秀报告", "", 1, "C", false, 0, "")
	pdf.Ln(3)
	b.setFont(14)
	pdf.CellFormat(frameWidth, 8, "团队报告", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	b.redPara(prefaceRedTitle)
	b.redPara(prefaceRedLine)
	pdf.Ln(1)
	b.para("本报告旨在呈现新灵秀课程的学员在不同管理动作上的自我评估结果，我们在设计本期课程的重点强调内容时将进行参考。把调研结果同步给您是希望：", 10)
	b.para("1. 为您提供一个视角，即：学员们眼中的自己在团队中是否充分展现了各方面管理动作，以便您在帮助学员校准自我认知时能有的放矢", 10)
	b.para("2. 帮助学员打开乔哈里窗盲区，结合您对学员们的了解，帮助大家看见一些他们自己没有察觉的优劣势，未来期待着您的点拨和指导", 10)
	b.para("3. 请您知悉这些优秀的伙伴们踏上了成长为更优秀管理者的旅途，一路上期待有您的关注和陪伴", 10)

	// tip box, pale yellow
	pdf.SetFillColor(255, 250, 205)
	b.setFont(10)
	pdf.MultiCell(frameWidth, 5, prefaceTip, "", "L", true)
	pdf.Ln(4)

	b.heading("第二部分  调研题本设计说明", 12)
	b.para("本次调研在凯洛格（KeyLogic Group）金牌培养项目<新经理成长地图>的设计逻辑之上，融合好未来的集团特色，分别从管理角色认知、辅导、任务分配、激励和沟通 5 个维度对新任管理者的管理动作呈现情况进行调研。", 10)
	b.heading("赋分标准", 12)
	b.para("每个行为项的评分范围为 1～5 分，分数越高则表示参调者们出现该类行为的频率越高，报告中【均分】代表多位参调者自我描述的平均。自评分数换算逻辑：", 10)

	rules := [][2]string{
		{"分数", "含义"},
		{"5", "总是如此"},
		{"4", "经常如此"},
		{"3", "有时如此"},
		{"2", "很少如此"},
		{"1", "从未展现"},
	}
	b.setFont(10)
	pdf.SetDrawColor(128, 128, 128)
	for i, row := range rules {
		fill := i == 0
		if fill {
			pdf.SetFillColor(240, 240, 240)
		}
		pdf.CellFormat(40, 7, row[0], "1", 0, "C", fill, 0, "")
		pdf.CellFormat(80, 7, row[1], "1", 1, "L", fill, 0, "")
	}
}

func (b *pdfBuilder) questionPage() {
	pdf := b.pdf
	pdf.AddPage()
	b.heading("调研题目设置", 14)

	b.setFont(9)
	pdf.SetDrawColor(128, 128, 128)
	pdf.SetFillColor(224, 224, 224)
	pdf.CellFormat(30, 7, "模块", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "行为项", "1", 0, "C", true, 0, "")
	pdf.CellFormat(100, 7, "具体行为描述", "1", 1, "C", true, 0, "")

	for _, q := range survey.Questions {
		r, g, bl := lightenRGB(survey.DimensionColor[q.Dimension], 0.78)
		pdf.SetFillColor(r, g, bl)

		// row height follows the wrapped description
		lines := b.splitLines(q.Description, 98)
		rowH := math.Max(8, float64(len(lines))*4.2)

		x, y := pdf.GetXY()
		pdf.Rect(x, y, 30, rowH, "FD")
		pdf.Rect(x+30, y, 30, rowH, "FD")
		pdf.Rect(x+60, y, 100, rowH, "FD")

		pdf.SetXY(x, y+(rowH-4.2)/2)
		pdf.CellFormat(30, 4.2, q.Dimension, "", 0, "C", false, 0, "")
		pdf.CellFormat(30, 4.2, q.Behavior, "", 0, "C", false, 0, "")
		pdf.SetXY(x+61, y+(rowH-float64(len(lines))*4.2)/2)
		pdf.MultiCell(98, 4.2, q.Description, "", "L", false)
		pdf.SetXY(x, y+rowH)
	}
}

func (b *pdfBuilder) summaryPage(snap *analysis.Snapshot, ov *analysis.Overview, dist *analysis.Distributions) {
	pdf := b.pdf
	pdf.AddPage()
	b.heading("一、报告摘要", 14)

	if len(ov.Dimensions) > 0 {
		minMean, maxMean := math.Inf(1), math.Inf(-1)
		for _, d := range ov.Dimensions {
			if d.Mean < minMean {
				minMean = d.Mean
			}
			if d.Mean > maxMean {
				maxMean = d.Mean
			}
		}
		lowLabel := survey.ScoreLabel(minMean)
		highLabel := survey.ScoreLabel(maxMean)
		if lowLabel == highLabel {
			b.para(fmt.Sprintf("管理者们（指受测人员）在 5 个维度上的自评行为展现基本都在<%s>水平。", lowLabel), 10)
		} else {
			b.para(fmt.Sprintf("管理者们（指受测人员）在 5 个维度上的自评行为展现基本都在<%s>和<%s>之间。", lowLabel, highLabel), 10)
		}
		b.para(fmt.Sprintf(
			"横向比较来看，管理者们自我评价在【%s】维度展现的行为稍显不足，在大家看来自己在这部分的管理动作展现不是特别的充分，而在【%s】的运用上相对优于其他部分。",
			ov.WorstDim, ov.BestDim), 10)
		pdf.Ln(2)

		// dimension table on the left, bar chart on the right
		tableTop := pdf.GetY()
		b.setFont(9)
		pdf.SetDrawColor(128, 128, 128)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(22, 8, "维度", "1", 0, "L", true, 0, "")
		pdf.CellFormat(22, 8, "全员平均分", "1", 0, "L", true, 0, "")
		pdf.CellFormat(18, 8, "备注", "1", 1, "L", true, 0, "")
		for _, d := range ov.Dimensions {
			note := ""
			if d.Highest {
				note = "最高"
			} else if d.Lowest {
				note = "最低"
			}
			pdf.CellFormat(22, 8, d.Dimension, "1", 0, "L", false, 0, "")
			pdf.CellFormat(22, 8, fmt.Sprintf("%.2f", d.Mean), "1", 0, "L", false, 0, "")
			pdf.CellFormat(18, 8, note, "1", 1, "L", false, 0, "")
		}
		tableBottom := pdf.GetY()

		if png, err := DimensionBarPNG(ov.Dimensions); err == nil {
			b.imgCount++
			name := fmt.Sprintf("chart%d", b.imgCount)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
			pdf.ImageOptions(name, marginLR+70, tableTop, 72, 48, false, opts, 0, "")
		}
		if y := tableTop + 48; y > tableBottom {
			pdf.SetY(y)
		}
		pdf.Ln(4)
	}

	b.heading("希望深入学习的技能模块", 12)
	if len(dist.LearningModules) > 0 {
		top := dist.LearningModules[0]
		text := fmt.Sprintf("管理者们主要希望在【%s】（%d 票）进行深入的学习和研讨。", top.Label, top.Count)
		if len(dist.LearningModules) > 1 {
			text += "其他选项："
			for i, v := range dist.LearningModules[1:] {
				if i > 0 {
					text += " "
				}
				text += fmt.Sprintf("【%s】（%d 票）", v.Label, v.Count)
			}
			text += "。"
		}
		b.para(text, 10)
		if png, err := PiePNG(dist.LearningModules); err == nil {
			b.image(png, marginLR+55, 55, 52)
		}
	} else {
		b.para("（本期调研未采集「希望重点学习的模块」相关选项数据。）", 10)
	}

	if len(dist.Tenure) > 0 {
		b.para(backgroundNarrative("管理年限方面", dist.Tenure), 10)
	}
	if len(dist.TeamSize) > 0 {
		b.para(backgroundNarrative("团队规模方面", dist.TeamSize), 10)
	}

	// tenure and team-size pies side by side
	y := pdf.GetY()
	if y > 215 {
		pdf.AddPage()
		y = pdf.GetY()
	}
	if png, err := PiePNG(dist.Tenure); err == nil {
		b.imgCount++
		name := fmt.Sprintf("chart%d", b.imgCount)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, marginLR, y, 55, 52, false, opts, 0, "")
	}
	if png, err := PiePNG(dist.TeamSize); err == nil {
		b.imgCount++
		name := fmt.Sprintf("chart%d", b.imgCount)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, marginLR+85, y, 55, 52, false, opts, 0, "")
	}
	pdf.SetY(y + 55)
}

func backgroundNarrative(prefix string, buckets []analysis.Bucket) string {
	text := fmt.Sprintf("%s，多数伙伴为【%s】（%d 人）。", prefix, buckets[0].Label, buckets[0].Count)
	if len(buckets) > 1 {
		text += "其次："
		end := len(buckets)
		if end > 3 {
			end = 3
		}
		for i, v := range buckets[1:end] {
			if i > 0 {
				text += "、"
			}
			text += fmt.Sprintf("【%s】（%d 人）", v.Label, v.Count)
		}
		text += "。"
	}
	return text
}

func (b *pdfBuilder) behaviorPage(means []analysis.BehaviorMean) {
	pdf := b.pdf
	pdf.AddPage()
	b.heading("三、各维度行为项平均分", 14)

	b.setFont(9)
	pdf.SetDrawColor(128, 128, 128)
	pdf.SetFillColor(232, 244, 252)
	pdf.CellFormat(35, 6, "模块", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 6, "行为项", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 6, "平均分", "1", 1, "L", true, 0, "")

	byQuestion := make(map[int]analysis.BehaviorMean, len(means))
	for _, m := range means {
		byQuestion[m.QuestionIdx] = m
	}
	for qi, q := range survey.Questions {
		score := "-"
		if m, ok := byQuestion[qi]; ok {
			score = fmt.Sprintf("%.2f", m.Mean)
		}
		pdf.CellFormat(35, 6, q.Dimension, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, q.Behavior, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, score, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if png, err := BehaviorLinePNG(means); err == nil {
		if pdf.GetY() > 200 {
			pdf.AddPage()
		}
		b.image(png, marginLR, 140, 70)
	}
}

// radar draws a five-axis radar: the person filled, the cohort dashed grid
// rings at each score step.
func (b *pdfBuilder) radar(cx, cy, radius float64, person, cohort map[string]float64) {
	pdf := b.pdf
	n := len(survey.DimensionOrder)

	point := func(axis int, value float64) (float64, float64) {
		angle := -math.Pi/2 + 2*math.Pi*float64(axis)/float64(n)
		r := radius * value / 5.0
		return cx + r*math.Cos(angle), cy + r*math.Sin(angle)
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.15)
	for step := 1; step <= 5; step++ {
		ring := make([]fpdf.PointType, 0, n)
		for i := 0; i < n; i++ {
			x, y := point(i, float64(step))
			ring = append(ring, fpdf.PointType{X: x, Y: y})
		}
		pdf.Polygon(ring, "D")
	}
	for i := 0; i < n; i++ {
		x, y := point(i, 5)
		pdf.Line(cx, cy, x, y)
	}

	// axis labels
	b.setFont(7)
	pdf.SetTextColor(60, 60, 60)
	for i, dim := range survey.DimensionOrder {
		x, y := point(i, 5.9)
		w := pdf.GetStringWidth(dim)
		pdf.Text(x-w/2, y+1, dim)
	}

	poly := func(values map[string]float64) []fpdf.PointType {
		pts := make([]fpdf.PointType, 0, n)
		for i, dim := range survey.DimensionOrder {
			x, y := point(i, values[dim])
			pts = append(pts, fpdf.PointType{X: x, Y: y})
		}
		return pts
	}

	if len(cohort) > 0 {
		pdf.SetDrawColor(148, 163, 184)
		pdf.SetLineWidth(0.3)
		pdf.Polygon(poly(cohort), "D")
	}
	if len(person) > 0 {
		pdf.SetDrawColor(230, 126, 34)
		pdf.SetFillColor(230, 126, 34)
		pdf.SetLineWidth(0.4)
		pdf.SetAlpha(0.25, "Normal")
		pdf.Polygon(poly(person), "F")
		pdf.SetAlpha(1, "Normal")
		pdf.Polygon(poly(person), "D")
	}
	pdf.SetTextColor(0, 0, 0)
}

func (b *pdfBuilder) appendixPages(snap *analysis.Snapshot, behaviorMeans []analysis.BehaviorMean) {
	pdf := b.pdf
	pdf.AddPage()
	b.heading("附录：学员自陈结果细则", 14)
	b.redPara("这一部分，我们主要关注每个学员自身数据横向对比，看\"跟自己比\"的高分项和低分项。")
	pdf.Ln(2)

	cohortDims := snap.DimensionMeans()

	const blockH = 62.0
	for i := range snap.People {
		p := &snap.People[i]
		if pdf.GetY()+blockH > 275 {
			pdf.AddPage()
		}

		b.setFont(12)
		pdf.CellFormat(frameWidth, 7, p.Name, "", 1, "L", false, 0, "")
		top := pdf.GetY()

		b.radar(marginLR+27, top+26, 20, analysis.PersonDimensions(p), cohortDims)

		if png, err := PersonLinePNG(p.Scores, behaviorMeans); err == nil {
			b.imgCount++
			name := fmt.Sprintf("chart%d", b.imgCount)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
			pdf.ImageOptions(name, marginLR+60, top, 105, 52, false, opts, 0, "")
		}
		pdf.SetY(top + blockH - 7)
	}
}

func (b *pdfBuilder) anomalyPage(anomalies []analysis.Anomaly) {
	pdf := b.pdf
	pdf.AddPage()
	b.heading("四、异常提醒", 14)
	b.para("单选题若全部为同一分值，则视为异常，建议管理者关注。", 10)

	if len(anomalies) == 0 {
		b.para("当前无异常：未发现「全部题目同一分值」的填答。", 10)
		return
	}

	b.setFont(9)
	pdf.SetDrawColor(128, 128, 128)
	pdf.SetFillColor(255, 240, 240)
	pdf.CellFormat(30, 7, "姓名", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "部门", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "统一分值", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 7, "说明", "1", 1, "C", true, 0, "")
	for _, a := range anomalies {
		dept := a.Dept
		if dept == "" {
			dept = "-"
		}
		x, y := pdf.GetXY()
		lines := b.splitLines(a.Note, 58)
		rowH := math.Max(7, float64(len(lines))*4.5)
		pdf.Rect(x, y, 30, rowH, "D")
		pdf.Rect(x+30, y, 30, rowH, "D")
		pdf.Rect(x+60, y, 25, rowH, "D")
		pdf.Rect(x+85, y, 60, rowH, "D")
		pdf.CellFormat(30, rowH, a.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(30, rowH, dept, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, rowH, fmt.Sprintf("%.2f", a.Score), "", 0, "C", false, 0, "")
		pdf.SetXY(x+86, y+1)
		pdf.MultiCell(58, 4.5, a.Note, "", "L", false)
		pdf.SetXY(x, y+rowH)
	}
}

// BuildTeamPDF renders the whole cohort report into PDF bytes.
func BuildTeamPDF(snap *analysis.Snapshot) ([]byte, error) {
	b := newPDFBuilder()

	ov := snap.BuildOverview()
	dist := snap.BuildDistributions()
	behaviorMeans := snap.BehaviorMeans()

	b.coverPage()
	b.questionPage()
	b.summaryPage(snap, ov, dist)
	b.behaviorPage(behaviorMeans)
	b.appendixPages(snap, behaviorMeans)
	b.anomalyPage(snap.Anomalies())

	var buf bytes.Buffer
	if err := b.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
