package analysis

import (
	"sort"
	"strings"
	"sync"

	"github.com/go-ego/gse"
)

// Trigger words that mark a feedback segment as describing a management
// pain point, problem or expectation.
var painTriggers = []string{
	"难", "不足", "缺乏", "希望", "需要", "问题", "挑战", "压力", "不够", "改善", "提升",
	"困惑", "不知道", "平衡", "时间", "精力", "带人", "管人", "辅导", "反馈", "授权",
	"激励", "任务", "沟通", "下属", "团队", "学习", "成长", "期待", "担心", "焦虑",
	"协调", "冲突", "效率", "方法", "技巧", "经验", "能力", "加强", "更多", "管理",
	"改进", "完善", "支持", "帮助", "指导", "培养", "发展", "角色", "转型",
}

// triggerOrder sorts triggers longest first; primaryTrigger scans in this
// order so the longer of two triggers starting at the same rune wins
// (不知道 over 难 when a segment carries both from the same position).
var triggerOrder = func() []string {
	out := make([]string, len(painTriggers))
	copy(out, painTriggers)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}()

// triggerTheme maps each trigger to the theme name shown in summaries.
var triggerTheme = map[string]string{
	"时间": "时间与精力分配", "精力": "时间与精力分配", "平衡": "时间与精力分配",
	"压力": "压力与心态", "焦虑": "压力与心态", "担心": "压力与心态",
	"辅导": "辅导与反馈", "反馈": "辅导与反馈",
	"沟通": "沟通与协作", "协调": "沟通与协作", "冲突": "沟通与协作",
	"授权": "授权与任务分配", "任务": "授权与任务分配",
	"激励": "激励与团队", "团队": "激励与团队", "下属": "激励与团队",
	"带人": "带人与管人", "管人": "带人与管人",
	"管理": "管理角色与转型", "角色": "管理角色与转型", "转型": "管理角色与转型",
	"学习": "学习与成长", "成长": "学习与成长",
	"能力": "能力与方法", "方法": "能力与方法", "技巧": "能力与方法", "经验": "能力与方法",
	"效率": "效率与改进", "改善": "效率与改进", "改进": "效率与改进",
	"提升": "提升与完善", "完善": "提升与完善",
	"希望": "期待与需求", "需要": "期待与需求", "期待": "期待与需求",
	"支持": "支持与指导", "帮助": "支持与指导", "指导": "支持与指导",
	"培养": "支持与指导", "发展": "支持与指导",
	"问题": "问题与挑战", "挑战": "问题与挑战", "困惑": "问题与挑战",
	"不知道": "问题与挑战", "难": "问题与挑战",
	"不足": "不足与缺乏", "缺乏": "不足与缺乏", "不够": "不足与缺乏",
	"更多": "更多诉求", "加强": "更多诉求",
}

var stopwords = map[string]bool{
	"的": true, "了": true, "是": true, "在": true, "我": true, "有": true,
	"和": true, "就": true, "不": true, "人": true, "都": true, "一": true,
	"一个": true, "上": true, "也": true, "很": true, "到": true, "说": true,
	"要": true, "去": true, "你": true, "会": true, "着": true, "没有": true,
	"看": true, "好": true, "自己": true, "这": true, "那": true, "等": true,
	"能": true, "与": true, "及": true, "或": true, "而": true, "把": true,
	"被": true, "让": true, "给": true, "无": true, "可以": true, "能够": true,
	"一些": true, "什么": true, "怎么": true, "如何": true, "为什么": true,
}

var singleCharStop = map[string]bool{
	"的": true, "了": true, "是": true, "在": true, "我": true, "有": true,
	"和": true, "就": true, "不": true, "人": true, "都": true, "一": true,
	"上": true, "也": true, "很": true, "到": true, "说": true, "要": true,
	"去": true, "你": true, "会": true, "着": true, "没": true, "看": true,
	"好": true, "自": true, "这": true, "那": true, "等": true, "能": true,
	"与": true, "及": true, "或": true, "而": true, "把": true, "被": true,
	"让": true, "给": true, "无": true, "可": true, "以": true, "够": true,
	"些": true, "什": true, "么": true, "怎": true, "如": true, "为": true,
}

var (
	segOnce sync.Once
	segErr  error
	seg     gse.Segmenter
)

func segmenter() (*gse.Segmenter, error) {
	segOnce.Do(func() {
		segErr = seg.LoadDict()
	})
	if segErr != nil {
		return nil, segErr
	}
	return &seg, nil
}

// primaryTrigger picks the trigger that appears earliest in the phrase, so
// "时间不够用" themes as 时间 rather than the later 不够. Ties at the same
// position go to the longer trigger via triggerOrder.
func primaryTrigger(phrase string) string {
	best := ""
	bestPos := -1
	for _, t := range triggerOrder {
		pos := strings.Index(phrase, t)
		if pos < 0 {
			continue
		}
		if bestPos == -1 || pos < bestPos {
			best, bestPos = t, pos
		}
	}
	return best
}

// ExtractPainPhrases splits feedback text into sentence segments and keeps
// those that mention a pain-point trigger. Segments are deduplicated by
// their first 50 runes.
func ExtractPainPhrases(text string, maxPhrases int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case '。', '！', '？', '；':
			return '\n'
		}
		return r
	}, text)

	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(normalized, "\n") {
		if len(out) >= maxPhrases {
			break
		}
		s := strings.TrimSpace(line)
		if len([]rune(s)) < 4 {
			continue
		}
		if primaryTrigger(s) == "" {
			continue
		}
		key := s
		if r := []rune(s); len(r) > 50 {
			key = string(r[:50])
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// dedupeSimilar keeps at most maxRepr representative phrases, preferring the
// longer ones. Two phrases count as duplicates when one contains the other
// or their character sets overlap past the threshold.
func dedupeSimilar(phrases []string, maxRepr int, simThreshold float64) []string {
	if len(phrases) == 0 {
		return nil
	}
	sorted := make([]string, len(phrases))
	copy(sorted, phrases)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})

	var kept []string
	for _, p := range sorted {
		p = strings.TrimSpace(p)
		if len([]rune(p)) < 3 {
			continue
		}
		dup := false
		for _, k := range kept {
			if strings.Contains(k, p) || strings.Contains(p, k) {
				dup = true
				break
			}
			if charOverlap(p, k) >= simThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, p)
		}
		if len(kept) >= maxRepr {
			break
		}
	}
	return kept
}

func charOverlap(a, b string) float64 {
	setA := make(map[rune]bool)
	for _, r := range a {
		setA[r] = true
	}
	setB := make(map[rune]bool)
	for _, r := range b {
		setB[r] = true
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	shared := 0
	for r := range setA {
		if setB[r] {
			shared++
		}
	}
	denom := len(setA)
	if len(setB) > denom {
		denom = len(setB)
	}
	return float64(shared) / float64(denom)
}

// ThemeSummary groups pain phrases under a display theme.
type ThemeSummary struct {
	Theme           string   `json:"theme"`
	Count           int      `json:"count"`
	Representatives []string `json:"representatives"`
}

// SummarizeThemes groups phrases by their primary trigger, merges triggers
// into display themes and keeps up to two representatives per theme.
func SummarizeThemes(phrases []string) []ThemeSummary {
	if len(phrases) == 0 {
		return nil
	}
	byTheme := make(map[string][]string)
	for _, p := range phrases {
		t := primaryTrigger(p)
		if t == "" {
			continue
		}
		theme := triggerTheme[t]
		if theme == "" {
			theme = t
		}
		byTheme[theme] = append(byTheme[theme], p)
	}

	out := make([]ThemeSummary, 0, len(byTheme))
	for theme, list := range byTheme {
		out = append(out, ThemeSummary{
			Theme:           theme,
			Count:           len(list),
			Representatives: dedupeSimilar(list, 2, 0.55),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Theme < out[j].Theme
	})
	return out
}

// Keyword is a segmented word with its frequency in the pain phrases.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ExtractKeywords segments the pain phrases and counts word frequencies,
// dropping stopwords. Single characters survive only off the short stoplist.
func ExtractKeywords(phrases []string, topN int) ([]Keyword, error) {
	if len(phrases) == 0 {
		return nil, nil
	}
	sg, err := segmenter()
	if err != nil {
		return nil, err
	}
	combined := strings.Join(phrases, " ")

	counts := make(map[string]int)
	for _, w := range sg.Cut(combined, true) {
		w = strings.TrimSpace(w)
		if w == "" || stopwords[w] {
			continue
		}
		if len([]rune(w)) == 1 && singleCharStop[w] {
			continue
		}
		counts[w]++
	}

	out := make([]Keyword, 0, len(counts))
	for w, n := range counts {
		out = append(out, Keyword{Word: w, Count: n})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// FeedbackReport is the feedback endpoint payload.
type FeedbackReport struct {
	Entries  []FeedbackEntry `json:"entries"`
	Themes   []ThemeSummary  `json:"themes"`
	Keywords []Keyword       `json:"keywords"`
	Phrases  []string        `json:"phrases"`
}

// FeedbackEntry pairs a respondent with one open-text answer.
type FeedbackEntry struct {
	RespondentID uint   `json:"respondent_id"`
	Name         string `json:"name"`
	Dept         string `json:"dept,omitempty"`
	Column       string `json:"column"`
	Content      string `json:"content"`
}

// BuildFeedbackReport mines every open-text answer of the snapshot.
func (s *Snapshot) BuildFeedbackReport() (*FeedbackReport, error) {
	report := &FeedbackReport{}
	var parts []string
	for i := range s.People {
		p := &s.People[i]
		cols := make([]string, 0, len(p.Feedback))
		for col := range p.Feedback {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			report.Entries = append(report.Entries, FeedbackEntry{
				RespondentID: p.ID,
				Name:         p.Name,
				Dept:         p.Dept,
				Column:       col,
				Content:      p.Feedback[col],
			})
			parts = append(parts, p.Feedback[col])
		}
	}

	report.Phrases = ExtractPainPhrases(strings.Join(parts, "\n"), 50)
	report.Themes = SummarizeThemes(report.Phrases)
	keywords, err := ExtractKeywords(report.Phrases, 20)
	if err != nil {
		return nil, err
	}
	report.Keywords = keywords
	return report, nil
}
