package controllers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/talentai/insights-server/analysis"
	"github.com/talentai/insights-server/config"
	"github.com/talentai/insights-server/survey"
	"github.com/talentai/insights-server/utils"
)

// GetDefinition exposes the built-in question bank: GET /api/definition.
func GetDefinition(c *gin.Context) {
	questions := make([]gin.H, 0, len(survey.Questions))
	for i, q := range survey.Questions {
		questions = append(questions, gin.H{
			"idx":         i,
			"dimension":   q.Dimension,
			"behavior":    q.Behavior,
			"description": q.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"dimensions": survey.DimensionOrder,
		"questions":  questions,
		"score_map":  survey.ScoreMap,
		"colors":     survey.DimensionColor,
	})
}

func loadSnapshot(c *gin.Context) (*analysis.Snapshot, bool) {
	d, ok := contextDataset(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集"})
		return nil, false
	}
	snap, err := analysis.Load(config.DB, d.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取问卷数据"})
		return nil, false
	}
	return snap, true
}

// anonymize hides respondent names for share-token viewers when the dataset
// settings ask for it.
func anonymize(c *gin.Context) bool {
	d, ok := contextDataset(c)
	if !ok {
		return false
	}
	// only the owner and admins are exempt; the reader middleware also lets
	// logged-in non-owners through on a share token
	if u, authed := currentUser(c); authed {
		if u.IsAdmin || (d.OwnerID != nil && *d.OwnerID == u.ID) {
			return false
		}
	}
	s, err := utils.ParseSettings([]byte(d.SettingsJSON))
	if err != nil {
		return false
	}
	return s.Anonymize != nil && *s.Anonymize
}

func displayName(name string, seq int, hide bool) string {
	if hide {
		return fmt.Sprintf("学员%d", seq)
	}
	return name
}

// GetOverview: GET /api/datasets/:id/overview.
func GetOverview(c *gin.Context) {
	snap, ok := loadSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": snap.BuildOverview()})
}

// GetDimensions: GET /api/datasets/:id/dimensions.
func GetDimensions(c *gin.Context) {
	snap, ok := loadSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"dimensions": snap.DimensionDetails()})
}

type respondentRow struct {
	ID         uint               `json:"id"`
	Seq        int                `json:"seq"`
	Name       string             `json:"name"`
	Dept       string             `json:"dept,omitempty"`
	Total      *float64           `json:"total"`
	Dimensions map[string]float64 `json:"dimensions"`
}

// GetRespondents: GET /api/datasets/:id/respondents?page=&limit=&sort=.
func GetRespondents(c *gin.Context) {
	snap, ok := loadSnapshot(c)
	if !ok {
		return
	}
	hide := anonymize(c)

	rows := make([]respondentRow, 0, len(snap.People))
	for i := range snap.People {
		p := &snap.People[i]
		row := respondentRow{
			ID:         p.ID,
			Seq:        p.Seq,
			Name:       displayName(p.Name, p.Seq, hide),
			Dept:       p.Dept,
			Dimensions: roundMap(analysis.PersonDimensions(p)),
		}
		if total, ok := analysis.PersonTotal(p); ok {
			t := round2(total)
			row.Total = &t
		}
		rows = append(rows, row)
	}

	switch c.Query("sort") {
	case "total_desc":
		sort.SliceStable(rows, func(i, j int) bool {
			return derefScore(rows[i].Total) > derefScore(rows[j].Total)
		})
	case "total_asc":
		sort.SliceStable(rows, func(i, j int) bool {
			return derefScore(rows[i].Total) < derefScore(rows[j].Total)
		})
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	total := len(rows)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"respondents": rows[start:end],
		"page":        page,
		"limit":       limit,
		"total":       total,
	})
}

func derefScore(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func roundMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = round2(v)
	}
	return out
}

// GetRespondentDetail: GET /api/datasets/:id/respondents/:rid.
func GetRespondentDetail(c *gin.Context) {
	snap, ok := loadSnapshot(c)
	if !ok {
		return
	}
	rid, err := strconv.Atoi(c.Param("rid"))
	if err != nil || rid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "学员 ID 无效"})
		return
	}

	var person *analysis.Person
	for i := range snap.People {
		if snap.People[i].ID == uint(rid) {
			person = &snap.People[i]
			break
		}
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "学员不存在"})
		return
	}
	hide := anonymize(c)

	personDims := analysis.PersonDimensions(person)
	cohortDims := snap.DimensionMeans()

	dims := make([]gin.H, 0, len(survey.DimensionOrder))
	var above, below []string
	for _, dim := range survey.DimensionOrder {
		pv, pok := personDims[dim]
		cv, cok := cohortDims[dim]
		if !pok || !cok {
			continue
		}
		dims = append(dims, gin.H{
			"dimension": dim,
			"score":     round2(pv),
			"cohort":    round2(cv),
		})
		if pv >= cv {
			above = append(above, dim)
		} else {
			below = append(below, dim)
		}
	}

	// behavior series in bank order; nil entries mean unanswered
	behaviors := make([]gin.H, 0, len(survey.Questions))
	for qi, q := range survey.Questions {
		item := gin.H{
			"label":     fmt.Sprintf("%s-%s", q.Dimension, q.Behavior),
			"dimension": q.Dimension,
			"behavior":  q.Behavior,
			"score":     person.Scores[qi],
		}
		behaviors = append(behaviors, item)
	}

	body := gin.H{
		"id":               person.ID,
		"name":             displayName(person.Name, person.Seq, hide),
		"dept":             person.Dept,
		"employee_no":      person.Employee,
		"tenure":           person.Tenure,
		"team_size":        person.TeamSize,
		"learning_modules": analysis.SplitLearningModules(person.LearningModules),
		"dimensions":       dims,
		"above_cohort":     above,
		"below_cohort":     below,
		"behaviors":        behaviors,
	}
	if total, ok := analysis.PersonTotal(person); ok {
		body["total"] = round2(total)
	}
	c.JSON(http.StatusOK, gin.H{"respondent": body})
}

// GetDistributions: GET /api/datasets/:id/distributions.
func GetDistributions(c *gin.Context) {
	snap, ok := loadSnapshot(c)
	if !ok {
		return
	}
	dist := snap.BuildDistributions()

	// settings may suppress tiny buckets in shared views
	d, _ := contextDataset(c)
	if s, err := utils.ParseSettings([]byte(d.SettingsJSON)); err == nil &&
		s.MinGroupSize.Set && s.MinGroupSize.Value != nil {
		min := *s.MinGroupSize.Value
		dist.Tenure = filterBuckets(dist.Tenure, min)
		dist.TeamSize = filterBuckets(dist.TeamSize, min)
	}
	c.JSON(http.StatusOK, gin.H{"distributions": dist})
}

func filterBuckets(in []analysis.Bucket, min int) []analysis.Bucket {
	out := in[:0]
	for _, b := range in {
		if b.Count >= min {
			out = append(out, b)
		}
	}
	return out
}

// GetAnomalies: GET /api/datasets/:id/anomalies.
func GetAnomalies(c *gin.Context) {
	snap, ok := loadSnapshot(c)
	if !ok {
		return
	}
	hide := anonymize(c)
	anomalies := snap.Anomalies()
	if hide {
		for i := range anomalies {
			for j := range snap.People {
				if snap.People[j].ID == anomalies[i].RespondentID {
					anomalies[i].Name = displayName("", snap.People[j].Seq, true)
					break
				}
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"anomalies": anomalies})
}
