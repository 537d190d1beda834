package models

import "time"

// ReportJob tracks one asynchronous export. Status moves
// queued → processing → done | failed; the worker goroutine owns the row
// after creation.
type ReportJob struct {
	JobID     string     `gorm:"column:job_id;primaryKey;size:36" json:"job_id"`
	DatasetID uint       `gorm:"column:dataset_id;index" json:"dataset_id"`
	Format    string     `gorm:"column:format;size:10" json:"format"` // pdf, csv, xlsx
	RangeFrom *time.Time `gorm:"column:range_from" json:"range_from,omitempty"`
	RangeTo   *time.Time `gorm:"column:range_to" json:"range_to,omitempty"`
	Status    string     `gorm:"column:status;size:20;default:'queued'" json:"status"`
	FilePath  *string    `gorm:"column:file_path;type:text" json:"file_path,omitempty"`
	ErrorMsg  *string    `gorm:"column:error_msg;type:text" json:"error_msg,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ReportJob) TableName() string {
	return "report_jobs"
}
