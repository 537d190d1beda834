package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/talentai/insights-server/survey"
)

func mean(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PersonDimensions returns one mean per dimension for a single respondent,
// skipping unanswered questions. Dimensions with no valid answer are absent.
func PersonDimensions(p *Person) map[string]float64 {
	out := make(map[string]float64, len(survey.DimensionOrder))
	for _, dim := range survey.DimensionOrder {
		var vals []float64
		for _, qi := range survey.DimensionQuestions(dim) {
			if p.Scores[qi] != nil {
				vals = append(vals, *p.Scores[qi])
			}
		}
		if m, ok := mean(vals); ok {
			out[dim] = m
		}
	}
	return out
}

// PersonTotal is the mean over every answered question of one respondent.
func PersonTotal(p *Person) (float64, bool) {
	var vals []float64
	for _, s := range p.Scores {
		if s != nil {
			vals = append(vals, *s)
		}
	}
	return mean(vals)
}

// DimensionMeans averages the per-person dimension scores across the cohort.
// A person missing a dimension entirely does not drag its mean down.
func (s *Snapshot) DimensionMeans() map[string]float64 {
	acc := make(map[string][]float64)
	for i := range s.People {
		for dim, v := range PersonDimensions(&s.People[i]) {
			acc[dim] = append(acc[dim], v)
		}
	}
	out := make(map[string]float64, len(acc))
	for dim, vals := range acc {
		if m, ok := mean(vals); ok {
			out[dim] = m
		}
	}
	return out
}

// BehaviorMean is the cohort average for one question of the bank.
type BehaviorMean struct {
	QuestionIdx int     `json:"question_idx"`
	Dimension   string  `json:"dimension"`
	Behavior    string  `json:"behavior"`
	Mean        float64 `json:"mean"`
	Answered    int     `json:"answered"`
}

// BehaviorMeans averages each question column over all respondents, in bank
// order. Questions nobody answered are skipped.
func (s *Snapshot) BehaviorMeans() []BehaviorMean {
	out := make([]BehaviorMean, 0, len(survey.Questions))
	for qi, q := range survey.Questions {
		var vals []float64
		for i := range s.People {
			if v := s.People[i].Scores[qi]; v != nil {
				vals = append(vals, *v)
			}
		}
		if m, ok := mean(vals); ok {
			out = append(out, BehaviorMean{
				QuestionIdx: qi,
				Dimension:   q.Dimension,
				Behavior:    q.Behavior,
				Mean:        round2(m),
				Answered:    len(vals),
			})
		}
	}
	return out
}

// DimensionDetail is the deep-dive view of one dimension: its behavior
// means plus a focused y-range hint for client charts.
type DimensionDetail struct {
	Dimension string         `json:"dimension"`
	Mean      float64        `json:"mean"`
	Behaviors []BehaviorMean `json:"behaviors"`
	Strongest string         `json:"strongest"`
	Weakest   string         `json:"weakest"`
	YMin      float64        `json:"y_min"`
	YMax      float64        `json:"y_max"`
}

// DimensionDetails breaks every dimension into its behavior means. Ties for
// strongest or weakest go to the first behavior in bank order.
func (s *Snapshot) DimensionDetails() []DimensionDetail {
	all := s.BehaviorMeans()
	dims := s.DimensionMeans()

	var out []DimensionDetail
	for _, dim := range survey.DimensionOrder {
		var behaviors []BehaviorMean
		for _, m := range all {
			if m.Dimension == dim {
				behaviors = append(behaviors, m)
			}
		}
		if len(behaviors) == 0 {
			continue
		}
		d := DimensionDetail{
			Dimension: dim,
			Mean:      round2(dims[dim]),
			Behaviors: behaviors,
			Strongest: behaviors[0].Behavior,
			Weakest:   behaviors[0].Behavior,
		}
		maxV, minV := behaviors[0].Mean, behaviors[0].Mean
		for _, m := range behaviors[1:] {
			if m.Mean > maxV {
				maxV = m.Mean
				d.Strongest = m.Behavior
			}
			if m.Mean < minV {
				minV = m.Mean
				d.Weakest = m.Behavior
			}
		}
		// focus the chart range around the data, keep at least one unit
		d.YMin = math.Max(0, minV-0.25)
		d.YMax = math.Min(5.5, maxV+0.25)
		if d.YMax-d.YMin < 1 {
			d.YMin = math.Max(0, d.YMax-1)
		}
		out = append(out, d)
	}
	return out
}

// DimensionSummary is one row of the cohort overview.
type DimensionSummary struct {
	Dimension string  `json:"dimension"`
	Mean      float64 `json:"mean"`
	Highest   bool    `json:"highest"`
	Lowest    bool    `json:"lowest"`
}

// Overview is the headline view of a dataset.
type Overview struct {
	Respondents int                `json:"respondents"`
	Questions   int                `json:"questions"`
	Dimensions  []DimensionSummary `json:"dimensions"`
	OverallMean float64            `json:"overall_mean"`
	BestDim     string             `json:"best_dimension"`
	WorstDim    string             `json:"worst_dimension"`
	Insight     string             `json:"insight"`
}

// BuildOverview computes the headline numbers and the narrative line shown
// at the top of a report.
func (s *Snapshot) BuildOverview() *Overview {
	dims := s.DimensionMeans()
	o := &Overview{
		Respondents: len(s.People),
		Questions:   len(survey.Questions),
	}

	var present []string
	for _, dim := range survey.DimensionOrder {
		if _, ok := dims[dim]; ok {
			present = append(present, dim)
		}
	}
	if len(present) == 0 {
		o.Insight = "暂无有效得分数据。"
		return o
	}

	maxS, minS := math.Inf(-1), math.Inf(1)
	var sum float64
	for _, dim := range present {
		v := dims[dim]
		sum += v
		if v > maxS {
			maxS = v
			o.BestDim = dim
		}
		if v < minS {
			minS = v
			o.WorstDim = dim
		}
	}
	o.OverallMean = round2(sum / float64(len(present)))

	for _, dim := range present {
		v := round2(dims[dim])
		o.Dimensions = append(o.Dimensions, DimensionSummary{
			Dimension: dim,
			Mean:      v,
			Highest:   dim == o.BestDim,
			Lowest:    dim == o.WorstDim,
		})
	}

	spread := maxS - minS
	tail := " 各维度相对均衡。"
	if spread >= 0.5 {
		tail = fmt.Sprintf(" 最高与最低相差 %.2f 分，可重点补足短板。", spread)
	}
	o.Insight = fmt.Sprintf(
		"表现最佳：%s（%.2f 分），可总结经验、固化做法。最需关注：%s（%.2f 分），建议在培训中优先加强。五维度全员平均 %.2f 分。%s",
		o.BestDim, maxS, o.WorstDim, minS, o.OverallMean, tail,
	)
	return o
}

// Anomaly marks a respondent whose answered questions all carry the same
// score, a pattern that usually means the form was filled without reading.
type Anomaly struct {
	RespondentID uint    `json:"respondent_id"`
	Name         string  `json:"name"`
	Dept         string  `json:"dept,omitempty"`
	Score        float64 `json:"score"`
	Answered     int     `json:"answered"`
	Note         string  `json:"note"`
}

// Anomalies lists uniform-answer respondents in dataset order.
func (s *Snapshot) Anomalies() []Anomaly {
	var out []Anomaly
	for i := range s.People {
		p := &s.People[i]
		var vals []float64
		for _, v := range p.Scores {
			if v != nil {
				vals = append(vals, *v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		uniform := true
		for _, v := range vals[1:] {
			if v != vals[0] {
				uniform = false
				break
			}
		}
		if !uniform {
			continue
		}
		out = append(out, Anomaly{
			RespondentID: p.ID,
			Name:         p.Name,
			Dept:         p.Dept,
			Score:        vals[0],
			Answered:     len(vals),
			Note:         fmt.Sprintf("该伙伴所有题目均为 %.1f 分，建议管理者关注。", vals[0]),
		})
	}
	return out
}

// Bucket is one label of a categorical distribution.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Distributions groups cohort background answers.
type Distributions struct {
	LearningModules []Bucket `json:"learning_modules"`
	Tenure          []Bucket `json:"tenure"`
	TeamSize        []Bucket `json:"team_size"`
}

var learningSeparators = []rune{'，', '、', '；', ';', ',', '\n'}

// SplitLearningModules breaks a multi-select answer into tokens. Only tokens
// naming a dimension count, free text is ignored.
func SplitLearningModules(raw string) []string {
	field := strings.Map(func(r rune) rune {
		for _, sep := range learningSeparators {
			if r == sep {
				return '\t'
			}
		}
		return r
	}, raw)
	var out []string
	for _, part := range strings.Split(field, "\t") {
		token := strings.TrimSpace(part)
		if isDimension(token) {
			out = append(out, token)
		}
	}
	return out
}

func isDimension(token string) bool {
	for _, d := range survey.DimensionOrder {
		if token == d {
			return true
		}
	}
	return false
}

func sortedBuckets(counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for label, n := range counts {
		out = append(out, Bucket{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// BuildDistributions counts learning-module votes and the tenure / team-size
// backgrounds. Blank background answers show up as 未填写.
func (s *Snapshot) BuildDistributions() *Distributions {
	learning := make(map[string]int)
	tenure := make(map[string]int)
	teamSize := make(map[string]int)

	for i := range s.People {
		p := &s.People[i]
		for _, token := range SplitLearningModules(p.LearningModules) {
			learning[token]++
		}
		tenure[labelOrBlank(p.Tenure)]++
		teamSize[labelOrBlank(p.TeamSize)]++
	}

	return &Distributions{
		LearningModules: sortedBuckets(learning),
		Tenure:          sortedBuckets(tenure),
		TeamSize:        sortedBuckets(teamSize),
	}
}

func labelOrBlank(v string) string {
	if strings.TrimSpace(v) == "" {
		return "未填写"
	}
	return strings.TrimSpace(v)
}
