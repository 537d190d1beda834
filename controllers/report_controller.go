package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/talentai/insights-server/analysis"
	"github.com/talentai/insights-server/config"
	"github.com/talentai/insights-server/models"
	"github.com/talentai/insights-server/report"
)

type CreateReportReq struct {
	Format    string  `json:"format"`
	RangeFrom *string `json:"range_from,omitempty"`
	RangeTo   *string `json:"range_to,omitempty"`
}

// CreateReport queues a report job: POST /api/datasets/:id/reports.
// The response returns immediately; a goroutine renders the file.
func CreateReport(c *gin.Context) {
	d, ok := contextDataset(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集"})
		return
	}

	var req CreateReportReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "请求体无效"})
		return
	}
	if req.Format == "" {
		req.Format = "pdf"
	}
	switch req.Format {
	case "pdf", "csv", "xlsx":
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "format 仅支持 pdf / csv / xlsx"})
		return
	}

	var fromPtr, toPtr *time.Time
	if req.RangeFrom != nil {
		if t, err := time.Parse(time.RFC3339, *req.RangeFrom); err == nil {
			fromPtr = &t
		}
	}
	if req.RangeTo != nil {
		if t, err := time.Parse(time.RFC3339, *req.RangeTo); err == nil {
			toPtr = &t
		}
	}

	jobID := uuid.New().String()
	job := models.ReportJob{
		JobID:     jobID,
		DatasetID: d.ID,
		Format:    req.Format,
		RangeFrom: fromPtr,
		RangeTo:   toPtr,
		Status:    "queued",
	}
	if err := config.DB.Create(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法创建报告任务"})
		return
	}

	go processReportJob(jobID)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": "queued",
	})
}

// GetReport fetches a job: GET /api/reports/:job_id. Done jobs stream the
// file, otherwise the status row comes back as JSON.
func GetReport(c *gin.Context) {
	jobID := c.Param("job_id")
	var job models.ReportJob
	if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "报告任务不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取报告任务"})
		return
	}

	u, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "未登录"})
		return
	}
	var ds models.Dataset
	if err := config.DB.First(&ds, job.DatasetID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集"})
		return
	}
	if !u.IsAdmin && (ds.OwnerID == nil || *ds.OwnerID != u.ID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "没有访问该报告的权限"})
		return
	}

	if job.Status == "done" && job.FilePath != nil {
		c.FileAttachment(*job.FilePath, path.Base(*job.FilePath))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
		"error":  job.ErrorMsg,
	})
}

func failJob(job *models.ReportJob, err error) {
	msg := err.Error()
	log.Error().Err(err).Str("job_id", job.JobID).Msg("report job failed")
	config.DB.Model(job).Updates(map[string]interface{}{
		"status":    "failed",
		"error_msg": msg,
	})
}

func processReportJob(jobID string) {
	var job models.ReportJob
	if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
		return
	}
	// a rendering panic must land on the job row, not kill the process
	defer func() {
		if r := recover(); r != nil {
			failJob(&job, fmt.Errorf("report rendering panic: %v", r))
		}
	}()
	config.DB.Model(&job).Update("status", "processing")

	snap, err := analysis.Load(config.DB, job.DatasetID)
	if err != nil {
		failJob(&job, err)
		return
	}

	var data []byte
	switch job.Format {
	case "pdf":
		data, err = report.BuildTeamPDF(snap)
	case "csv":
		data, err = report.BuildCSV(snap)
	case "xlsx":
		data, err = report.BuildXLSX(snap)
	default:
		err = fmt.Errorf("unknown format %q", job.Format)
	}
	if err != nil {
		failJob(&job, err)
		return
	}

	outDir := os.Getenv("REPORTS_DIR")
	if outDir == "" {
		outDir = "./reports"
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		failJob(&job, err)
		return
	}
	outPath := path.Join(outDir, fmt.Sprintf("report_%s.%s", job.JobID, job.Format))
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		failJob(&job, err)
		return
	}

	config.DB.Model(&job).Updates(map[string]interface{}{
		"status":    "done",
		"file_path": outPath,
	})
	log.Info().Str("job_id", job.JobID).Str("format", job.Format).Msg("report ready")
}
