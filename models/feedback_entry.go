package models

// FeedbackEntry keeps one open-question answer verbatim. Cells that only
// said 无 / - / — are not stored.
type FeedbackEntry struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DatasetID    uint   `gorm:"column:dataset_id;not null;index" json:"dataset_id"`
	RespondentID uint   `gorm:"column:respondent_id;not null;index" json:"respondent_id"`
	Column       string `gorm:"column:question_column;size:255" json:"question_column"`
	Content      string `gorm:"column:content;type:text;not null" json:"content"`

	Respondent Respondent `gorm:"foreignKey:RespondentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (FeedbackEntry) TableName() string {
	return "feedback_entries"
}
