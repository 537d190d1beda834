package models

// AnswerScore is one scored Likert answer. QuestionIdx refers to the
// built-in question bank; Score is nil when the answer text did not map to
// the score scale (the row still counts as a respondent).
type AnswerScore struct {
	ID           uint     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DatasetID    uint     `gorm:"column:dataset_id;not null;index" json:"dataset_id"`
	RespondentID uint     `gorm:"column:respondent_id;not null;index" json:"respondent_id"`
	QuestionIdx  int      `gorm:"column:question_idx;not null" json:"question_idx"`
	Dimension    string   `gorm:"column:dimension;size:50;not null" json:"dimension"`
	Behavior     string   `gorm:"column:behavior;size:50;not null" json:"behavior"`
	Score        *float64 `gorm:"column:score" json:"score"`

	Respondent Respondent `gorm:"foreignKey:RespondentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AnswerScore) TableName() string {
	return "answer_scores"
}
