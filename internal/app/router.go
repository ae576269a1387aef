package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 学员接口
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 讲师和管理员接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Instructor))
	{
		a.registerAdminRoutes(admin, c)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/contents", c.content.ListMine)

	player := group.Group("/player/:id")
	{
		player.GET("", c.player.View)
		player.POST("/answer", c.player.Answer)
		player.POST("/upload", c.player.Upload)
		player.POST("/next", c.player.Next)
		player.POST("/previous", c.player.Previous)
		player.GET("/exit", c.player.Exit)
	}

	group.GET("/certificates", c.certificate.List)
	group.GET("/profile", c.user.GetProfile)
	group.GET("/users/:id/profile", c.user.GetUserProfile)
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	templates := group.Group("/templates")
	{
		templates.GET("", c.template.List)
		templates.GET("/:id", c.template.Get)
		templates.POST("", c.template.Create)
		templates.PUT("/:id", c.template.Update)
	}

	contents := group.Group("/contents")
	{
		contents.POST("", c.content.Create)
		contents.GET("/:id", c.content.Get)
		contents.PUT("/:id", c.content.Update)
		contents.GET("/:id/tracking", c.grade.Tracking)
		contents.POST("/:id/grade", c.grade.Grade)
		contents.POST("/:id/users/:userId/reset", c.grade.Reset)
	}

	certificates := group.Group("/certificates")
	{
		certificates.POST("/preview", c.certificate.Preview)
		certificates.POST("", c.certificate.Create)
		certificates.PUT("/:id", c.certificate.Update)
	}
}
