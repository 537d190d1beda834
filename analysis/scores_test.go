package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentai/insights-server/survey"
)

func ptr(v float64) *float64 { return &v }

// person with every question answered at the given score
func uniformPerson(id uint, seq int, name string, score float64) Person {
	p := Person{ID: id, Seq: seq, Name: name, Scores: make([]*float64, len(survey.Questions))}
	for i := range p.Scores {
		p.Scores[i] = ptr(score)
	}
	return p
}

func TestPersonTotalAndDimensions(t *testing.T) {
	p := uniformPerson(1, 1, "张三", 4)
	// one question unanswered, total is the mean over the rest
	p.Scores[0] = nil

	total, ok := PersonTotal(&p)
	require.True(t, ok)
	assert.InDelta(t, 4.0, total, 1e-9)

	dims := PersonDimensions(&p)
	require.Len(t, dims, len(survey.DimensionOrder))
	for _, dim := range survey.DimensionOrder {
		assert.InDelta(t, 4.0, dims[dim], 1e-9)
	}
}

func TestPersonTotalAllUnanswered(t *testing.T) {
	p := Person{Scores: make([]*float64, len(survey.Questions))}
	_, ok := PersonTotal(&p)
	assert.False(t, ok)
	assert.Empty(t, PersonDimensions(&p))
}

func TestDimensionMeansSkipNulls(t *testing.T) {
	a := uniformPerson(1, 1, "张三", 5)
	b := uniformPerson(2, 2, "李四", 3)
	// b never answered the first dimension's questions
	for _, qi := range survey.DimensionQuestions(survey.DimRole) {
		b.Scores[qi] = nil
	}
	snap := &Snapshot{People: []Person{a, b}}

	dims := snap.DimensionMeans()
	assert.InDelta(t, 5.0, dims[survey.DimRole], 1e-9, "missing dimension must not drag the mean")
	assert.InDelta(t, 4.0, dims[survey.DimCoach], 1e-9)
}

func TestBehaviorMeansBankOrder(t *testing.T) {
	snap := &Snapshot{People: []Person{
		uniformPerson(1, 1, "张三", 5),
		uniformPerson(2, 2, "李四", 3),
	}}
	means := snap.BehaviorMeans()
	require.Len(t, means, len(survey.Questions))
	for i, m := range means {
		assert.Equal(t, i, m.QuestionIdx)
		assert.Equal(t, survey.Questions[i].Behavior, m.Behavior)
		assert.InDelta(t, 4.0, m.Mean, 1e-9)
		assert.Equal(t, 2, m.Answered)
	}
}

func TestBuildOverviewBalanced(t *testing.T) {
	snap := &Snapshot{People: []Person{uniformPerson(1, 1, "张三", 4)}}
	ov := snap.BuildOverview()

	assert.Equal(t, 1, ov.Respondents)
	assert.Equal(t, len(survey.Questions), ov.Questions)
	assert.InDelta(t, 4.0, ov.OverallMean, 1e-9)
	assert.Contains(t, ov.Insight, "各维度相对均衡")
	require.Len(t, ov.Dimensions, len(survey.DimensionOrder))
	assert.Equal(t, survey.DimRole, ov.Dimensions[0].Dimension)
}

func TestBuildOverviewGap(t *testing.T) {
	p := uniformPerson(1, 1, "张三", 4)
	for _, qi := range survey.DimensionQuestions(survey.DimComm) {
		p.Scores[qi] = ptr(2)
	}
	snap := &Snapshot{People: []Person{p}}
	ov := snap.BuildOverview()

	assert.Equal(t, survey.DimComm, ov.WorstDim)
	assert.Contains(t, ov.Insight, "可重点补足短板")
	assert.Contains(t, ov.Insight, "沟通")
}

func TestAnomalies(t *testing.T) {
	uniform := uniformPerson(1, 1, "张三", 3)
	uniform.Dept = "教学部"
	varied := uniformPerson(2, 2, "李四", 3)
	varied.Scores[0] = ptr(5)
	empty := Person{ID: 3, Seq: 3, Name: "王五", Scores: make([]*float64, len(survey.Questions))}

	snap := &Snapshot{People: []Person{uniform, varied, empty}}
	anomalies := snap.Anomalies()
	require.Len(t, anomalies, 1)
	assert.Equal(t, uint(1), anomalies[0].RespondentID)
	assert.Equal(t, 3.0, anomalies[0].Score)
	assert.Contains(t, anomalies[0].Note, "3.0 分")
}

func TestSplitLearningModules(t *testing.T) {
	tokens := SplitLearningModules("辅导、沟通，任务分配;其他想法\n激励")
	assert.Equal(t, []string{"辅导", "沟通", "任务分配", "激励"}, tokens)

	assert.Empty(t, SplitLearningModules("随便写点什么"))
	assert.Empty(t, SplitLearningModules(""))
}

func TestBuildDistributions(t *testing.T) {
	a := uniformPerson(1, 1, "张三", 4)
	a.LearningModules = "辅导、沟通"
	a.Tenure = "1-3年"
	a.TeamSize = "5-10人"
	b := uniformPerson(2, 2, "李四", 4)
	b.LearningModules = "辅导"
	b.Tenure = ""
	b.TeamSize = "5-10人"

	snap := &Snapshot{People: []Person{a, b}}
	dist := snap.BuildDistributions()

	require.NotEmpty(t, dist.LearningModules)
	assert.Equal(t, Bucket{Label: "辅导", Count: 2}, dist.LearningModules[0])

	assert.Contains(t, dist.Tenure, Bucket{Label: "未填写", Count: 1})
	assert.Equal(t, Bucket{Label: "5-10人", Count: 2}, dist.TeamSize[0])
}
