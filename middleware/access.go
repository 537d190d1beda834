package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/talentai/insights-server/config"
	"github.com/talentai/insights-server/models"
	"github.com/talentai/insights-server/utils"
)

const (
	HeaderReportToken = "X-Report-Token"
	CtxDataset        = "datasetObj"
)

func isOwner(u models.User, d *models.Dataset) bool {
	return d.OwnerID != nil && *d.OwnerID == u.ID
}

func loadDataset(c *gin.Context) (*models.Dataset, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "数据集 ID 无效"})
		return nil, false
	}

	var d models.Dataset
	if e := config.DB.Where("id = ? AND status <> 'deleted'", id).First(&d).Error; e != nil {
		if errors.Is(e, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "数据集不存在"})
			return nil, false
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "无法读取数据集"})
		return nil, false
	}
	return &d, true
}

// CheckDatasetOwner allows only the dataset owner (or an admin) through.
func CheckDatasetOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := loadDataset(c)
		if !ok {
			return
		}

		v, ok := c.Get(CtxUser)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "未登录"})
			return
		}
		u, ok2 := v.(models.User)
		if !ok2 || (!isOwner(u, d) && !u.IsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "没有访问该数据集的权限"})
			return
		}

		c.Set(CtxDataset, *d)
		c.Next()
	}
}

// CheckDatasetReader allows (1) the owner or an admin via JWT, or
// (2) anyone holding a valid report token for the dataset.
func CheckDatasetReader() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := loadDataset(c)
		if !ok {
			return
		}

		if v, ok := c.Get(CtxUser); ok {
			if u, ok2 := v.(models.User); ok2 && (isOwner(u, d) || u.IsAdmin) {
				c.Set(CtxDataset, *d)
				c.Next()
				return
			}
		}

		token := c.GetHeader(HeaderReportToken)
		if token != "" && utils.VerifyShareToken(d.ShareTokenHash, token) {
			c.Set(CtxDataset, *d)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "缺少或无效的报告访问令牌"})
	}
}
