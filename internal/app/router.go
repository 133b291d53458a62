package app

import (
	"exam_portal_backend/docs"
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/middleware"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	router.Use(middleware.RequestIDMiddleware())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		// 学生接口
		student := authGroup.Group("/")
		student.Use(middleware.RoleMiddleware(model.Student))
		{
			student.GET("/exams/:id/questions", c.response.ListExamQuestions)
			student.POST("/exams/:id/responses", c.response.SubmitResponse)
			student.GET("/exams/:id/result", c.result.GetMyResult)
		}

		// 教师接口：判分、发布、成绩
		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.GET("/exams/:id/responses", c.grading.ListResponses)
			teacher.GET("/responses/:id/history", c.grading.GetGradingHistory)
			teacher.POST("/responses/:id/grade", c.grading.GradeSingle)
			teacher.POST("/responses/:id/regrade", c.grading.Regrade)
			teacher.POST("/exams/:id/grade-batch", c.grading.GradeBatch)

			teacher.GET("/exams/:id/grading-progress", c.publication.GetGradingProgress)
			teacher.GET("/exams/:id/publication", c.publication.GetPublicationStatus)
			teacher.POST("/exams/:id/publish", c.publication.Publish)
			teacher.POST("/exams/:id/unpublish", c.publication.Unpublish)

			teacher.GET("/exams/:id/results", c.result.ListExamResults)
			teacher.GET("/exams/:id/results/export", c.result.ExportResults)
		}
	}
}
