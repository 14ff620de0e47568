package app

import (
	"reading_edu_backend/docs"
	"reading_edu_backend/internal/config"
	"reading_edu_backend/internal/middleware"
	"reading_edu_backend/internal/model"
	"reading_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		// 阅读进度引擎
		reading := authGroup.Group("/reading")
		{
			reading.GET("/progress", c.reading.GetProgress)
			reading.POST("/answers", c.reading.SubmitAnswer)
			reading.POST("/questions/check", c.reading.CheckAnswer)
			reading.GET("/round-score", c.reading.GetRoundScore)
			reading.GET("/article", c.reading.GetCurrentArticle)
			reading.GET("/articles/:id/questions", c.reading.GetArticleQuestions)
		}

		// 机器人聊天
		chat := authGroup.Group("/chat")
		{
			chat.POST("/messages", c.chat.SendMessage)
			chat.GET("/bot", c.chat.GetCurrentBot)
		}

		authGroup.GET("/articles/:id", c.article.GetArticle)

		// 课件导入（教师/管理员）
		articles := authGroup.Group("/articles")
		articles.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
		{
			articles.POST("/upload", c.article.Upload)
			articles.POST("/upload/batch", c.article.UploadBatch)
		}
	}
}
