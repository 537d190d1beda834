package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/talentai/insights-server/config"
	"github.com/talentai/insights-server/models"
	"github.com/talentai/insights-server/utils"
)

const (
	CtxUser       = "user"
	CtxUserPublic = "userPublic"
)

// AuthJWT validates Authorization: Bearer <token>, loads the user and
// injects it into the request context.
func AuthJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "缺少或无效的 Authorization 头"})
			return
		}
		rawToken := strings.TrimSpace(authHeader[7:])

		claims, err := utils.VerifyToken(rawToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "令牌无效或已过期"})
			return
		}

		// UserID in claims is a string, parse it for the primary-key lookup
		uid, err := strconv.ParseUint(claims.UserID, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "令牌主体无效"})
			return
		}

		var user models.User
		if err := config.DB.First(&user, uid).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "用户不存在"})
			return
		}

		c.Set(CtxUser, user)
		c.Set(CtxUserPublic, gin.H{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"is_admin":   user.IsAdmin,
			"created_at": user.CreatedAt,
		})

		c.Next()
	}
}

// OptionalAuth injects the user when a valid Bearer token is present but
// never rejects the request. Used on routes that also accept a report token.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			c.Next()
			return
		}
		claims, err := utils.VerifyToken(strings.TrimSpace(authHeader[7:]))
		if err != nil {
			c.Next()
			return
		}
		uid, err := strconv.ParseUint(claims.UserID, 10, 64)
		if err != nil {
			c.Next()
			return
		}
		var user models.User
		if err := config.DB.First(&user, uid).Error; err == nil {
			c.Set(CtxUser, user)
		}
		c.Next()
	}
}

// RequireAdmin blocks routes reserved for administrators.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUser)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "未登录"})
			return
		}
		u := v.(models.User)
		if !u.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "没有权限"})
			return
		}
		c.Next()
	}
}
