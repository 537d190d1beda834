package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GetFeedback mines the open-text answers: GET /api/datasets/:id/feedback.
// Optional ?dept= filters entries before the pain-point pipeline runs.
func GetFeedback(c *gin.Context) {
	snap, ok := loadSnapshot(c)
	if !ok {
		return
	}

	if dept := c.Query("dept"); dept != "" {
		filtered := snap.People[:0]
		for _, p := range snap.People {
			if p.Dept == dept {
				filtered = append(filtered, p)
			}
		}
		snap.People = filtered
	}

	report, err := snap.BuildFeedbackReport()
	if err != nil {
		log.Error().Err(err).Msg("feedback mining failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "反馈分析失败"})
		return
	}

	if anonymize(c) {
		bySeq := make(map[uint]int, len(snap.People))
		for i := range snap.People {
			bySeq[snap.People[i].ID] = snap.People[i].Seq
		}
		for i := range report.Entries {
			report.Entries[i].Name = displayName("", bySeq[report.Entries[i].RespondentID], true)
		}
	}

	c.JSON(http.StatusOK, gin.H{"feedback": report})
}
