// Package survey holds the built-in questionnaire definition: the five
// management dimensions, their behavior items, the Likert score map and the
// meta columns recognized in uploaded workbooks. Datasets are scored against
// this fixed bank; there is no question authoring.
package survey

import "strings"

// Dimension names, in the fixed display order used everywhere (overview,
// charts, PDF sections).
const (
	DimRole     = "管理角色认知"
	DimCoach    = "辅导"
	DimTask     = "任务分配"
	DimMotivate = "激励"
	DimComm     = "沟通"
)

var DimensionOrder = []string{DimRole, DimCoach, DimTask, DimMotivate, DimComm}

// Question is one behavior item of the questionnaire. Keyword is a
// distinctive fragment of the question text used to locate the matching
// column in an uploaded workbook header.
type Question struct {
	Dimension   string `json:"dimension"`
	Behavior    string `json:"behavior"`
	Description string `json:"description"`
	Keyword     string `json:"-"`
}

// Questions is the full bank in canonical order. Behavior series and the PDF
// behavior table follow this order exactly.
var Questions = []Question{
	{DimRole, "工作理念", "比起亲力亲为，花了更多时间帮助下属推动工作，相信只有伙伴们完成任务自己才能取得成功。", "亲力亲为"},
	{DimRole, "时间管理", "担任管理者后，将更多时间放在目标规划、任务分配、团队协作和教练辅导等相关的工作上。", "目标规划"},
	{DimRole, "言行合一", "作为团队管理者，保证自己的所言即所行，从而促进团队伙伴间的互信。", "所言即所行"},
	{DimRole, "接受反馈", "作为团队管理者，能以谦虚的态度倾听下属反馈，并能以开放的心态接纳待改善的反馈。", "谦虚的态度"},
	{DimCoach, "主动辅导", "当发现下属的产出成果低于预期或工作状态不佳时，会主动关心并予以辅导。", "低于预期"},
	{DimCoach, "及时反馈", "当观察到下属好或不好的表现时，都会进行及时的、充分的反馈，这也是我工作的一部分。", "及时的、充分的反馈"},
	{DimCoach, "确定方向", "辅导下属前，搜集多方信息并结合下属实际工作表现进行分析和推断，从而确定辅导方向。", "搜集多方信息"},
	{DimCoach, "预先思考", "辅导下属前，事先思考在帮助下属解决问题的过程中所需要的方法与资源。", "事先思考"},
	{DimCoach, "巧妙提问", "在辅导下属时，通过提问引导下属进行思考，与下属共同讨论现状和解决方案。", "提问引导"},
	{DimCoach, "跟踪结果", "辅导下属后，定期考察下属的表现是否有变化，并根据数据去衡量结果。", "定期考察"},
	{DimTask, "综合评估", "选择任务的分配对象时，综合评估任务难度和下属的能力、意愿和信心。", "综合评估任务难度"},
	{DimTask, "授权下属", "相信下属有完成任务的能力，授权下属让他们自己做决策，在必要时提供适当帮助。", "自己做决策"},
	{DimTask, "清楚委任", "分配任务时，清晰说明为什么要做这个任务和期望的成果等，并提供必要的支持。", "清晰说明"},
	{DimTask, "跟踪进度", "分配任务时，与下属确认后续的追踪方式以及衡量标准，定期跟踪计划进度。", "追踪方式"},
	{DimMotivate, "激发热情", "主动了解下属的兴趣和能力，安排工作时考虑下属的兴趣以及个人发展诉求。", "个人发展诉求"},
	{DimMotivate, "认可价值", "通过沟通帮助下属了解其工作对团队目标的贡献，理解其工作的价值和重要性，并在日常的工作中给予认可。", "对团队目标的贡献"},
	{DimMotivate, "营造氛围", "营造开放的、安全的、彼此依靠的团队氛围，鼓励下属进一步学习和展现新的技能。", "彼此依靠"},
	{DimMotivate, "规划发展", "定期与下属就优势和待发展项进行开放的讨论，提供建设性的反馈并形成后续的发展计划。", "待发展项"},
	{DimComm, "认真倾听", "在工作中，让伙伴们多表达，耐心的让对方充分表达观点，理解对方的动机和顾虑。", "充分表达观点"},
	{DimComm, "积极回应", "与伙伴沟通时，通过眼神交流、点头或不断提出有启发性的问题等方式，表现出对话题的兴趣。", "眼神交流"},
	{DimComm, "坦诚表达", "开放地跟伙伴们分享自己的想法、理由和感受。", "想法、理由和感受"},
	{DimComm, "提问澄清", "在沟通中遇到不确定的信息，会通过耐心提问来确认自己对其他伙伴观点的理解是否准确。", "耐心提问"},
}

// ScoreMap converts Likert option text to a 1–5 score. Options not in the
// map become NULL at ingest and are excluded from every mean.
var ScoreMap = map[string]float64{
	"总是如此": 5,
	"经常如此": 4,
	"有时如此": 3,
	"很少如此": 2,
	"从未展现": 1,
}

// ScoreLabel maps a rounded mean back to its option text, for narrative
// sentences in the PDF summary.
func ScoreLabel(mean float64) string {
	s := int(mean + 0.5)
	if s < 1 {
		s = 1
	}
	if s > 5 {
		s = 5
	}
	for label, v := range ScoreMap {
		if int(v) == s {
			return label
		}
	}
	return "有时如此"
}

// DimensionColor is the fixed color per dimension (hex), shared by API
// payloads and the PDF charts.
var DimensionColor = map[string]string{
	DimRole:     "#E67E22",
	DimCoach:    "#F39C12",
	DimTask:     "#3498DB",
	DimMotivate: "#2980B9",
	DimComm:     "#1ABC9C",
}

// BarPalette colors categorical distributions that have no dimension color
// (tenure, team size).
var BarPalette = []string{
	"#3498DB", "#E67E22", "#2ECC71", "#9B59B6", "#F1C40F",
	"#1ABC9C", "#E74C3C", "#34495E", "#95A5A6", "#D35400",
}

// Meta columns recognized in uploaded workbooks.
var (
	// NameColumns in priority order.
	NameColumns     = []string{"填写人", "姓名", "学员姓名"}
	DeptColumn      = "部门"
	EmployeeColumn  = "工号"
	LearningColumn  = "您希望在以下哪个技能模块进行深入的学习和研讨？"
	TenureColumn    = "您开始带团队有多久啦？"
	TeamSizeColumn  = "向您直接汇报的伙伴有多少？"
	FeedbackColumns = []string{"您对这次培训还有哪些期待？"}
)

// MatchLearningColumn reports whether a header is the learning-module
// multi-select even when punctuation differs from LearningColumn.
func MatchLearningColumn(header string) bool {
	return header == LearningColumn ||
		(strings.Contains(header, "技能模块") && strings.Contains(header, "深入"))
}

func MatchTenureColumn(header string) bool {
	return header == TenureColumn ||
		(strings.Contains(header, "带团队") && strings.Contains(header, "多久"))
}

func MatchTeamSizeColumn(header string) bool {
	return header == TeamSizeColumn ||
		(strings.Contains(header, "汇报") && strings.Contains(header, "伙伴"))
}

// MatchFeedbackColumn covers full/half-width punctuation drift in the open
// question header.
func MatchFeedbackColumn(header string) bool {
	for _, c := range FeedbackColumns {
		if header == c {
			return true
		}
	}
	return (strings.Contains(header, "培训") && strings.Contains(header, "期待")) ||
		strings.Contains(header, "开放") || strings.Contains(header, "反馈")
}

// MatchQuestion returns the bank index of the question whose keyword occurs
// in the header, or -1.
func MatchQuestion(header string) int {
	h := strings.TrimSpace(header)
	for i, q := range Questions {
		if strings.Contains(h, q.Keyword) {
			return i
		}
	}
	return -1
}

// DimensionQuestions returns bank indexes for one dimension, in bank order.
func DimensionQuestions(dim string) []int {
	var out []int
	for i, q := range Questions {
		if q.Dimension == dim {
			out = append(out, i)
		}
	}
	return out
}
