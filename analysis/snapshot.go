// Package analysis computes cohort and per-person survey statistics.
//
// All aggregation happens in memory on a Snapshot so the same code path
// serves the API, report generation and tests regardless of the database
// behind gorm.
package analysis

import (
	"gorm.io/gorm"

	"github.com/talentai/insights-server/models"
	"github.com/talentai/insights-server/survey"
)

// Person is one respondent with scores aligned to survey.Questions.
// Scores[i] is nil when the answer was missing or not recognized.
type Person struct {
	ID              uint
	Seq             int
	Name            string
	Dept            string
	Employee        string
	Tenure          string
	TeamSize        string
	LearningModules string
	Scores          []*float64
	Feedback        map[string]string
}

// Snapshot is a fully loaded dataset ready for aggregation.
type Snapshot struct {
	DatasetID uint
	People    []Person
}

// Load pulls every respondent of a dataset with scores and feedback.
func Load(db *gorm.DB, datasetID uint) (*Snapshot, error) {
	var respondents []models.Respondent
	if err := db.Where("dataset_id = ?", datasetID).
		Preload("Scores").
		Preload("Feedback").
		Order("seq ASC").
		Find(&respondents).Error; err != nil {
		return nil, err
	}

	snap := &Snapshot{DatasetID: datasetID}
	for _, r := range respondents {
		p := Person{
			ID:              r.ID,
			Seq:             r.Seq,
			Name:            r.Name,
			Dept:            r.Dept,
			Employee:        r.Employee,
			Tenure:          r.Tenure,
			TeamSize:        r.TeamSize,
			LearningModules: r.LearningModules,
			Scores:          make([]*float64, len(survey.Questions)),
			Feedback:        make(map[string]string),
		}
		for _, s := range r.Scores {
			if s.QuestionIdx >= 0 && s.QuestionIdx < len(p.Scores) && s.Score != nil {
				v := *s.Score
				p.Scores[s.QuestionIdx] = &v
			}
		}
		for _, f := range r.Feedback {
			if f.Content != "" {
				p.Feedback[f.Column] = f.Content
			}
		}
		snap.People = append(snap.People, p)
	}
	return snap, nil
}
