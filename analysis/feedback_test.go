package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPainPhrases(t *testing.T) {
	text := "希望有更多关于辅导的实战练习。今天天气不错。时间不够用，很难平衡业务和管理！短。"
	phrases := ExtractPainPhrases(text, 30)
	require.Len(t, phrases, 2)
	assert.Contains(t, phrases[0], "辅导")
	assert.Contains(t, phrases[1], "时间")
}

func TestExtractPainPhrasesDedupe(t *testing.T) {
	s := "希望有更多关于辅导的实战练习"
	text := s + "。" + s + "。"
	phrases := ExtractPainPhrases(text, 30)
	assert.Len(t, phrases, 1)
}

func TestExtractPainPhrasesBounds(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("希望加强第")
		b.WriteRune(rune('一' + i))
		b.WriteString("项的培训。")
	}
	phrases := ExtractPainPhrases(b.String(), 10)
	assert.Len(t, phrases, 10)

	assert.Empty(t, ExtractPainPhrases("", 10))
	assert.Empty(t, ExtractPainPhrases("你好。", 10))
}

func TestSummarizeThemes(t *testing.T) {
	phrases := []string{
		"时间不够用，很难平衡业务和管理",
		"精力分配是个大问题",
		"希望有更多关于辅导的实战练习",
	}
	themes := SummarizeThemes(phrases)
	require.NotEmpty(t, themes)

	// 时间 and 精力 merge into one display theme, which leads by count.
	// The first phrase also contains 不够 and 难, but 时间 appears first.
	assert.Equal(t, "时间与精力分配", themes[0].Theme)
	assert.Equal(t, 2, themes[0].Count)
	assert.NotEmpty(t, themes[0].Representatives)
	assert.LessOrEqual(t, len(themes[0].Representatives), 2)
}

func TestSummarizeThemesEarliestTriggerWins(t *testing.T) {
	// 不知道 opens the phrase, 辅导 shows up later: the earlier trigger
	// decides the theme
	themes := SummarizeThemes([]string{"不知道该怎么辅导新人"})
	require.Len(t, themes, 1)
	assert.Equal(t, "问题与挑战", themes[0].Theme)
}

func TestPrimaryTriggerPosition(t *testing.T) {
	assert.Equal(t, "时间", primaryTrigger("时间不够用，很难平衡业务和管理"))
	assert.Equal(t, "不够", primaryTrigger("不够用的是时间"))
	assert.Equal(t, "", primaryTrigger("今天天气不错"))
}

func TestDedupeSimilar(t *testing.T) {
	kept := dedupeSimilar([]string{
		"时间不够用，很难平衡业务和管理",
		"时间不够用",
		"完全不同的另一条反馈内容",
	}, 2, 0.55)
	require.Len(t, kept, 2)
	// the longer phrase wins, the contained one is dropped
	assert.Equal(t, "时间不够用，很难平衡业务和管理", kept[0])
}

func TestExtractKeywords(t *testing.T) {
	phrases := []string{
		"希望加强时间管理的培训",
		"时间管理很难，希望有方法",
	}
	keywords, err := ExtractKeywords(phrases, 20)
	require.NoError(t, err)
	require.NotEmpty(t, keywords)
	for _, k := range keywords {
		assert.NotEmpty(t, k.Word)
		assert.GreaterOrEqual(t, k.Count, 1)
	}
}

func TestBuildFeedbackReport(t *testing.T) {
	a := Person{ID: 1, Seq: 1, Name: "张三", Dept: "教学部", Feedback: map[string]string{
		"您对这次培训还有哪些期待？": "希望有更多关于辅导的实战练习。",
	}}
	b := Person{ID: 2, Seq: 2, Name: "李四", Feedback: map[string]string{}}
	snap := &Snapshot{People: []Person{a, b}}

	report, err := snap.BuildFeedbackReport()
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "张三", report.Entries[0].Name)
	assert.NotEmpty(t, report.Phrases)
	assert.NotEmpty(t, report.Themes)
}
