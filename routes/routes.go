package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/talentai/insights-server/controllers"
	"github.com/talentai/insights-server/middleware"
)

func SetupRoutes(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
		}
		protected := api.Group("/")
		protected.Use(middleware.AuthJWT())
		{
			protected.GET("/me", controllers.Me)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/only", func(c *gin.Context) {
				c.JSON(200, gin.H{"ok": true})
			})
		}

		api.GET("/definition", controllers.GetDefinition)

		datasets := api.Group("/datasets")
		{
			datasets.POST("", middleware.AuthJWT(), middleware.RateLimitUpload(), controllers.CreateDataset)
			datasets.GET("/my", middleware.AuthJWT(), controllers.GetMyDatasets)

			// owner-only writes
			owner := datasets.Group("/")
			owner.Use(middleware.AuthJWT(), middleware.CheckDatasetOwner())
			{
				owner.DELETE("/:id", controllers.DeleteDataset)
				owner.PUT("/:id/archive", controllers.ArchiveDataset)
				owner.PUT("/:id/restore", controllers.RestoreDataset)
				owner.PUT("/:id/settings", controllers.UpdateSettings)
				owner.POST("/:id/share", controllers.ShareDataset)
				owner.POST("/:id/reports", middleware.RateLimitReport(), controllers.CreateReport)
			}

			// reads: owner JWT or X-Report-Token
			reader := datasets.Group("/")
			reader.Use(middleware.OptionalAuth(), middleware.CheckDatasetReader())
			{
				reader.GET("/:id", controllers.GetDataset)
				reader.GET("/:id/overview", controllers.GetOverview)
				reader.GET("/:id/dimensions", controllers.GetDimensions)
				reader.GET("/:id/respondents", controllers.GetRespondents)
				reader.GET("/:id/respondents/:rid", controllers.GetRespondentDetail)
				reader.GET("/:id/distributions", controllers.GetDistributions)
				reader.GET("/:id/anomalies", controllers.GetAnomalies)
				reader.GET("/:id/feedback", controllers.GetFeedback)
			}
		}

		api.GET("/reports/:job_id", middleware.AuthJWT(), controllers.GetReport)
	}
}
