package app

import (
	"focusmath_backend/docs"
	"focusmath_backend/internal/config"
	"focusmath_backend/internal/middleware"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/util"
	"focusmath_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.NoRoute(util.NotFound)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)

		// 3. 管理员接口
		admin := authGroup.Group("")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		admin.POST("/questions/seed", c.question.SeedQuestions)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	// 答题与自适应难度
	rg.POST("/submit-result", c.submission.SubmitResult)
	rg.GET("/history", c.submission.History)
	rg.GET("/questions", c.question.NextQuestions)

	// 游戏进度与奖励
	rg.GET("/games", c.game.ListGames)
	rg.POST("/update-game-progress", c.game.UpdateGameProgress)

	// 统计
	rg.GET("/stats", c.stats.GetStats)
	rg.GET("/stats/:subject", c.stats.GetSubjectStats)
	rg.GET("/leaderboard", c.stats.Leaderboard)
	rg.GET("/rewards", c.stats.ListRewards)
}
