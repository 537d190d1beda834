package models

import "time"

// Dataset is one uploaded survey workbook after scoring. Raw answer text is
// not kept apart from feedback entries; scores live in AnswerScore rows.
type Dataset struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title           string    `gorm:"column:title;size:255;not null" json:"title"`
	Description     string    `gorm:"column:description;type:text" json:"description"`
	Status          string    `gorm:"column:status;size:20;default:'active'" json:"status"` // active | archived | deleted
	OwnerID         *uint     `gorm:"column:owner_id" json:"owner_id"`
	SettingsJSON    string    `gorm:"column:settings_json;type:text" json:"-"`
	ColumnMapJSON   string    `gorm:"column:column_map_json;type:text" json:"-"` // matched source header per bank question
	ShareSlug       *string   `gorm:"column:share_slug;size:64;index" json:"share_slug,omitempty"`
	ShareTokenHash  string    `gorm:"column:share_token_hash;type:text" json:"-"`
	SourceFile      string    `gorm:"column:source_file;size:255" json:"source_file"`
	SourceURL       *string   `gorm:"column:source_url;size:512" json:"source_url,omitempty"`
	RespondentCount int       `gorm:"column:respondent_count" json:"respondent_count"`
	QuestionCount   int       `gorm:"column:question_count" json:"question_count"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Owner       *User        `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	Respondents []Respondent `gorm:"foreignKey:DatasetID" json:"-"`
}

func (Dataset) TableName() string {
	return "datasets"
}
