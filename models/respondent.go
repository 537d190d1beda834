package models

// Respondent is one row of the uploaded workbook: the learner who filled in
// the questionnaire, with the meta columns the report surfaces.
type Respondent struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DatasetID uint   `gorm:"column:dataset_id;not null;index" json:"dataset_id"`
	Seq       int    `gorm:"column:seq;default:0" json:"seq"` // original row order
	Name      string `gorm:"column:name;size:100;not null" json:"name"`
	Dept      string `gorm:"column:dept;size:100" json:"dept"`
	Employee  string `gorm:"column:employee_no;size:50" json:"employee_no"`
	Tenure    string `gorm:"column:tenure;size:100" json:"tenure"`
	TeamSize  string `gorm:"column:team_size;size:100" json:"team_size"`
	// LearningModules keeps the raw multi-select cell; vote counting splits
	// it on the separators the survey platform emits.
	LearningModules string `gorm:"column:learning_modules;type:text" json:"learning_modules"`

	Dataset  Dataset         `gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE" json:"-"`
	Scores   []AnswerScore   `gorm:"foreignKey:RespondentID" json:"-"`
	Feedback []FeedbackEntry `gorm:"foreignKey:RespondentID" json:"-"`
}

func (Respondent) TableName() string {
	return "respondents"
}
