package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/talentai/insights-server/config"
	"github.com/talentai/insights-server/ingest"
	"github.com/talentai/insights-server/middleware"
	"github.com/talentai/insights-server/models"
	"github.com/talentai/insights-server/survey"
	"github.com/talentai/insights-server/utils"
)

const maxUploadBytes = 20 << 20 // 20 MB

func currentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(middleware.CtxUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

func contextDataset(c *gin.Context) (models.Dataset, bool) {
	v, ok := c.Get(middleware.CtxDataset)
	if !ok {
		return models.Dataset{}, false
	}
	d, ok := v.(models.Dataset)
	return d, ok
}

func datasetJSON(d *models.Dataset) gin.H {
	return gin.H{
		"id":               d.ID,
		"title":            d.Title,
		"description":      d.Description,
		"status":           d.Status,
		"owner_id":         d.OwnerID,
		"source_file":      d.SourceFile,
		"source_url":       d.SourceURL,
		"respondent_count": d.RespondentCount,
		"question_count":   d.QuestionCount,
		"shared":           d.ShareTokenHash != "",
		"share_slug":       d.ShareSlug,
		"created_at":       d.CreatedAt,
		"updated_at":       d.UpdatedAt,
	}
}

// CreateDataset ingests a survey workbook: POST /api/datasets (multipart).
// Fields: file (xlsx/csv), title, description, settings (optional JSON).
func CreateDataset(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "未登录"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "缺少上传文件"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "文件过大，限制 20MB"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取上传文件"})
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取上传文件"})
		return
	}

	parsed, err := ingest.Parse(bytes.NewReader(raw), fh.Filename)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	settingsJSON := "{}"
	if rawSettings := c.PostForm("settings"); rawSettings != "" {
		s, err := utils.ParseSettings([]byte(rawSettings))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		if settingsJSON, err = utils.SettingsJSON(s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "设置序列化失败"})
			return
		}
	}

	title := c.PostForm("title")
	if title == "" {
		title = fh.Filename
	}

	columnMap, err := json.Marshal(parsed.QuestionColumns)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "列映射序列化失败"})
		return
	}

	ownerID := u.ID
	ds := models.Dataset{
		Title:           title,
		Description:     c.PostForm("description"),
		Status:          "active",
		OwnerID:         &ownerID,
		SettingsJSON:    settingsJSON,
		ColumnMapJSON:   string(columnMap),
		SourceFile:      fh.Filename,
		RespondentCount: len(parsed.Respondents),
		QuestionCount:   parsed.QuestionCount,
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ds).Error; err != nil {
			return err
		}
		for _, pr := range parsed.Respondents {
			r := models.Respondent{
				DatasetID:       ds.ID,
				Seq:             pr.Seq,
				Name:            pr.Name,
				Dept:            pr.Dept,
				Employee:        pr.Employee,
				Tenure:          pr.Tenure,
				TeamSize:        pr.TeamSize,
				LearningModules: pr.LearningModules,
			}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
			var scores []models.AnswerScore
			for qi, s := range pr.Scores {
				q := survey.Questions[qi]
				scores = append(scores, models.AnswerScore{
					DatasetID:    ds.ID,
					RespondentID: r.ID,
					QuestionIdx:  qi,
					Dimension:    q.Dimension,
					Behavior:     q.Behavior,
					Score:        s,
				})
			}
			if len(scores) > 0 {
				if err := tx.Create(&scores).Error; err != nil {
					return err
				}
			}
			for col, content := range pr.Feedback {
				fe := models.FeedbackEntry{
					DatasetID:    ds.ID,
					RespondentID: r.ID,
					Column:       col,
					Content:      content,
				}
				if err := tx.Create(&fe).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("dataset ingest failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "数据入库失败"})
		return
	}

	// best-effort raw workbook archive
	if url, err := utils.ArchiveWorkbook(raw, fh.Filename); err == nil && url != "" {
		config.DB.Model(&ds).Update("source_url", url)
		ds.SourceURL = &url
	}

	log.Info().Uint("dataset_id", ds.ID).
		Int("respondents", ds.RespondentCount).
		Int("questions", ds.QuestionCount).
		Msg("dataset ingested")

	c.JSON(http.StatusCreated, gin.H{"dataset": datasetJSON(&ds)})
}

// GetMyDatasets lists the caller's datasets: GET /api/datasets/my.
func GetMyDatasets(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "未登录"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	base := config.DB.Model(&models.Dataset{}).
		Where("owner_id = ? AND status <> 'deleted'", u.ID)

	var total int64
	base.Count(&total)

	var datasets []models.Dataset
	if err := base.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&datasets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集列表"})
		return
	}

	items := make([]gin.H, 0, len(datasets))
	for i := range datasets {
		items = append(items, datasetJSON(&datasets[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"datasets": items,
		"page":     page,
		"limit":    limit,
		"total":    total,
	})
}

// GetDataset returns detail incl. parsed settings: GET /api/datasets/:id.
func GetDataset(c *gin.Context) {
	d, ok := contextDataset(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集"})
		return
	}

	settings, err := utils.ParseSettings([]byte(d.SettingsJSON))
	if err != nil {
		settings = &utils.DatasetSettings{}
	}

	var feedbackCols []string
	if err := config.DB.Model(&models.FeedbackEntry{}).
		Where("dataset_id = ?", d.ID).
		Distinct("question_column").
		Order("question_column ASC").
		Pluck("question_column", &feedbackCols).Error; err != nil {
		feedbackCols = nil
	}

	var questionCols []string
	if d.ColumnMapJSON != "" {
		if err := json.Unmarshal([]byte(d.ColumnMapJSON), &questionCols); err != nil {
			questionCols = nil
		}
	}

	body := datasetJSON(&d)
	body["settings"] = settings
	body["question_columns"] = questionCols
	body["feedback_columns"] = feedbackCols
	c.JSON(http.StatusOK, gin.H{"dataset": body})
}

// UpdateSettings merges a settings patch: PUT /api/datasets/:id/settings.
func UpdateSettings(c *gin.Context) {
	d, ok := contextDataset(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集"})
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "请求体为空"})
		return
	}
	patch, err := utils.ParseSettings(raw)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	base, err := utils.ParseSettings([]byte(d.SettingsJSON))
	if err != nil {
		base = &utils.DatasetSettings{}
	}
	merged := utils.MergeSettings(base, patch)
	mergedJSON, err := utils.SettingsJSON(merged)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "设置序列化失败"})
		return
	}

	if err := config.DB.Model(&models.Dataset{}).
		Where("id = ?", d.ID).
		Update("settings_json", mergedJSON).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "设置保存失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": merged})
}

func setDatasetStatus(c *gin.Context, status string) {
	d, ok := contextDataset(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集"})
		return
	}
	if err := config.DB.Model(&models.Dataset{}).
		Where("id = ?", d.ID).
		Update("status", status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "状态更新失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": d.ID, "status": status})
}

// DeleteDataset soft-deletes: DELETE /api/datasets/:id.
func DeleteDataset(c *gin.Context) { setDatasetStatus(c, "deleted") }

// ArchiveDataset: PUT /api/datasets/:id/archive.
func ArchiveDataset(c *gin.Context) { setDatasetStatus(c, "archived") }

// RestoreDataset: PUT /api/datasets/:id/restore.
func RestoreDataset(c *gin.Context) { setDatasetStatus(c, "active") }

// ShareDataset issues a report token: POST /api/datasets/:id/share.
// The plaintext token appears only in this response.
func ShareDataset(c *gin.Context) {
	d, ok := contextDataset(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集"})
		return
	}

	token, err := utils.GenerateShareToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法生成访问令牌"})
		return
	}
	hash, err := utils.HashShareToken(token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法生成访问令牌"})
		return
	}
	slug, err := utils.GenerateShareSlug()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "无法生成访问令牌"})
		return
	}

	if err := config.DB.Model(&models.Dataset{}).
		Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"share_token_hash": hash,
			"share_slug":       slug,
		}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "共享设置保存失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"share_slug":   slug,
		"report_token": token,
		"hint":         "令牌仅此一次返回，请妥善保存。",
	})
}
