package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/talentai/insights-server/config"
	"github.com/talentai/insights-server/models"
	"github.com/talentai/insights-server/routes"
	"github.com/talentai/insights-server/survey"
)

var dbSeq atomic.Int64

func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REPORTS_DIR", t.TempDir())
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	config.DB = db

	r := gin.New()
	routes.SetupRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func registerAndLogin(t *testing.T, r *gin.Engine, email string) (uint, string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "测试用户", "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user := body["user"].(map[string]interface{})
	return uint(user["id"].(float64)), token
}

// seedDataset inserts a scored dataset directly, bypassing the rate-limited
// upload endpoint.
func seedDataset(t *testing.T, ownerID uint) uint {
	t.Helper()
	ds := models.Dataset{
		Title:           "新灵秀调研",
		Status:          "active",
		OwnerID:         &ownerID,
		SettingsJSON:    "{}",
		SourceFile:      "survey.xlsx",
		RespondentCount: 2,
		QuestionCount:   len(survey.Questions),
	}
	require.NoError(t, config.DB.Create(&ds).Error)

	add := func(seq int, name string, score float64, uniform bool) {
		r := models.Respondent{
			DatasetID: ds.ID, Seq: seq, Name: name,
			Dept: "教学部", Tenure: "1-3年", TeamSize: "5-10人",
			LearningModules: "辅导、沟通",
		}
		require.NoError(t, config.DB.Create(&r).Error)
		for qi, q := range survey.Questions {
			v := score
			if !uniform && qi == 0 {
				v = 5
			}
			s := v
			require.NoError(t, config.DB.Create(&models.AnswerScore{
				DatasetID: ds.ID, RespondentID: r.ID,
				QuestionIdx: qi, Dimension: q.Dimension, Behavior: q.Behavior,
				Score: &s,
			}).Error)
		}
		require.NoError(t, config.DB.Create(&models.FeedbackEntry{
			DatasetID: ds.ID, RespondentID: r.ID,
			Column:  "您对这次培训还有哪些期待？",
			Content: "希望有更多关于辅导的实战练习。",
		}).Error)
	}
	add(1, "张三", 4, false)
	add(2, "李四", 3, true)
	return ds.ID
}

func TestRegisterLoginMe(t *testing.T) {
	r := setupAPI(t)
	_, token := registerAndLogin(t, r, "a@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@example.com")

	// duplicate email is rejected
	w = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "x", "email": "a@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// wrong password
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "a@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// no token
	w = doJSON(t, r, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func uploadCSV(t *testing.T, r *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	header := []string{"填写人", "部门"}
	for _, q := range survey.Questions {
		header = append(header, q.Description)
	}
	answers := make([]string, len(survey.Questions))
	for i := range answers {
		answers[i] = "经常如此"
	}
	csvBody := strings.Join(header, ",") + "\n" +
		"张三,教学部," + strings.Join(answers, ",") + "\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "survey.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("title", "问卷一期"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadDataset(t *testing.T) {
	r := setupAPI(t)
	_, token := registerAndLogin(t, r, "up@example.com")

	w := uploadCSV(t, r, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	ds := body["dataset"].(map[string]interface{})
	assert.Equal(t, "问卷一期", ds["title"])
	assert.Equal(t, float64(1), ds["respondent_count"])
	assert.Equal(t, float64(len(survey.Questions)), ds["question_count"])

	// rows actually landed
	var scores int64
	config.DB.Model(&models.AnswerScore{}).Count(&scores)
	assert.Equal(t, int64(len(survey.Questions)), scores)

	// the detail endpoint surfaces which source header fed each question
	dsID := int(ds["id"].(float64))
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/datasets/%d", dsID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)["dataset"].(map[string]interface{})
	qcols, ok := detail["question_columns"].([]interface{})
	require.True(t, ok, "body: %s", w.Body.String())
	require.Len(t, qcols, len(survey.Questions))
	assert.Equal(t, survey.Questions[0].Description, qcols[0])

	w = doJSON(t, r, http.MethodGet, "/api/datasets/my", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "问卷一期")
}

func TestAnalysisEndpoints(t *testing.T) {
	r := setupAPI(t)
	uid, token := registerAndLogin(t, r, "an@example.com")
	dsID := seedDataset(t, uid)
	base := fmt.Sprintf("/api/datasets/%d", dsID)

	w := doJSON(t, r, http.MethodGet, base+"/overview", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	ov := body["overview"].(map[string]interface{})
	assert.Equal(t, float64(2), ov["respondents"])
	assert.Len(t, ov["dimensions"], len(survey.DimensionOrder))
	assert.NotEmpty(t, ov["insight"])

	w = doJSON(t, r, http.MethodGet, base+"/dimensions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "strongest")

	w = doJSON(t, r, http.MethodGet, base+"/respondents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "张三")

	w = doJSON(t, r, http.MethodGet, base+"/distributions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "辅导")
	assert.Contains(t, w.Body.String(), "1-3年")

	// only 李四 answered uniformly
	w = doJSON(t, r, http.MethodGet, base+"/anomalies", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "李四")
	assert.NotContains(t, w.Body.String(), "张三")

	w = doJSON(t, r, http.MethodGet, base+"/feedback", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "辅导")

	// respondent detail
	var resp models.Respondent
	require.NoError(t, config.DB.Where("dataset_id = ? AND name = ?", dsID, "张三").First(&resp).Error)
	w = doJSON(t, r, http.MethodGet, base+"/respondents/"+strconv.Itoa(int(resp.ID)), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "above_cohort")
}

func TestShareTokenAccess(t *testing.T) {
	r := setupAPI(t)
	uid, token := registerAndLogin(t, r, "share@example.com")
	dsID := seedDataset(t, uid)
	base := fmt.Sprintf("/api/datasets/%d", dsID)

	// no credentials at all
	w := doJSON(t, r, http.MethodGet, base+"/overview", "", nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, base+"/share", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	reportToken, _ := body["report_token"].(string)
	require.NotEmpty(t, reportToken)

	req := httptest.NewRequest(http.MethodGet, base+"/overview", nil)
	req.Header.Set("X-Report-Token", reportToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, base+"/overview", nil)
	req.Header.Set("X-Report-Token", "forged")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShareAnonymize(t *testing.T) {
	r := setupAPI(t)
	uid, token := registerAndLogin(t, r, "anon@example.com")
	dsID := seedDataset(t, uid)
	base := fmt.Sprintf("/api/datasets/%d", dsID)

	w := doJSON(t, r, http.MethodPut, base+"/settings", token, gin.H{"anonymize": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, base+"/share", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reportToken := decode(t, w)["report_token"].(string)

	req := httptest.NewRequest(http.MethodGet, base+"/respondents", nil)
	req.Header.Set("X-Report-Token", reportToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "张三")
	assert.Contains(t, rec.Body.String(), "学员1")

	// a logged-in non-owner riding the share token is still anonymized
	_, otherToken := registerAndLogin(t, r, "anon2@example.com")
	req = httptest.NewRequest(http.MethodGet, base+"/respondents", nil)
	req.Header.Set("Authorization", "Bearer "+otherToken)
	req.Header.Set("X-Report-Token", reportToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "张三")
	assert.Contains(t, rec.Body.String(), "学员1")

	// the owner still sees real names
	w = doJSON(t, r, http.MethodGet, base+"/respondents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "张三")
}

func TestDatasetLifecycle(t *testing.T) {
	r := setupAPI(t)
	uid, token := registerAndLogin(t, r, "life@example.com")
	dsID := seedDataset(t, uid)
	base := fmt.Sprintf("/api/datasets/%d", dsID)

	w := doJSON(t, r, http.MethodPut, base+"/archive", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "archived")

	w = doJSON(t, r, http.MethodPut, base+"/restore", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "active")

	// another user may not touch it
	_, intruder := registerAndLogin(t, r, "other@example.com")
	w = doJSON(t, r, http.MethodDelete, base, intruder, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, base, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// soft-deleted datasets disappear from reads
	w = doJSON(t, r, http.MethodGet, base+"/overview", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportJobCSV(t *testing.T) {
	r := setupAPI(t)
	uid, token := registerAndLogin(t, r, "rep@example.com")
	dsID := seedDataset(t, uid)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/datasets/%d/reports", dsID), token, gin.H{"format": "csv"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	jobID := decode(t, w)["job_id"].(string)
	require.NotEmpty(t, jobID)

	// the worker goroutine owns the job row; wait for it to finish
	var job models.ReportJob
	require.Eventually(t, func() bool {
		if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
			return false
		}
		return job.Status == "done" || job.Status == "failed"
	}, 10*time.Second, 50*time.Millisecond)
	if job.ErrorMsg != nil {
		t.Logf("job error: %s", *job.ErrorMsg)
	}
	require.Equal(t, "done", job.Status)

	w = doJSON(t, r, http.MethodGet, "/api/reports/"+jobID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "张三")
}

func TestReportJobPDF(t *testing.T) {
	r := setupAPI(t)
	uid, token := registerAndLogin(t, r, "pdf@example.com")
	dsID := seedDataset(t, uid)

	// no FONTS_DIR in the test environment: rendering must fall back to the
	// core font and still finish instead of killing the worker
	t.Setenv("FONTS_DIR", t.TempDir())

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/datasets/%d/reports", dsID), token, gin.H{"format": "pdf"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	jobID := decode(t, w)["job_id"].(string)

	var job models.ReportJob
	require.Eventually(t, func() bool {
		if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
			return false
		}
		return job.Status == "done" || job.Status == "failed"
	}, 20*time.Second, 50*time.Millisecond)
	if job.ErrorMsg != nil {
		t.Logf("job error: %s", *job.ErrorMsg)
	}
	require.Equal(t, "done", job.Status)

	w = doJSON(t, r, http.MethodGet, "/api/reports/"+jobID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestReportJobRejectsBadFormat(t *testing.T) {
	r := setupAPI(t)
	uid, token := registerAndLogin(t, r, "bad@example.com")
	dsID := seedDataset(t, uid)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/datasets/%d/reports", dsID), token, gin.H{"format": "docx"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealthAndPing(t *testing.T) {
	r := setupAPI(t)

	w := doJSON(t, r, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")

	w = doJSON(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/definition", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "管理角色认知")
}
