package app

import (
	"context"
	"errors"
	"focusmath_backend/internal/config"
	"focusmath_backend/internal/controller"
	"focusmath_backend/internal/middleware"
	"focusmath_backend/internal/repository"
	"focusmath_backend/internal/service"
	"focusmath_backend/pkg/configwatcher"
	"focusmath_backend/pkg/database"
	"focusmath_backend/pkg/logger"
	"focusmath_backend/pkg/monitoring"
	"focusmath_backend/pkg/security"
	"focusmath_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	performance   *repository.PerformanceRepository
	sessionResult *repository.SessionResultRepository
	game          *repository.GameRepository
	gameProgress  *repository.GameProgressRepository
	reward        *repository.RewardRepository
	question      *repository.QuestionRepository
	leaderboard   repository.Leaderboard
}

type services struct {
	auth       *service.AuthService
	stats      *service.StatsService
	submission *service.SubmissionService
	progress   *service.ProgressService
	question   *service.QuestionService
}

type controllers struct {
	auth       *controller.AuthController
	submission *controller.SubmissionController
	game       *controller.GameController
	question   *controller.QuestionController
	stats      *controller.StatsController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	repos := &repositories{
		user:          repository.NewUserRepository(db),
		performance:   repository.NewPerformanceRepository(db),
		sessionResult: repository.NewSessionResultRepository(db),
		game:          repository.NewGameRepository(db),
		gameProgress:  repository.NewGameProgressRepository(db),
		reward:        repository.NewRewardRepository(db),
		question:      repository.NewQuestionRepository(db),
	}

	// 未启用 Redis 时排行榜直接查库
	if rdb != nil {
		repos.leaderboard = repository.NewRedisLeaderboard(rdb)
	} else {
		repos.leaderboard = repository.NewDBLeaderboard(repos.performance, repos.reward)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.stats = service.NewStatsService(repos.performance, repos.reward, repos.gameProgress, repos.user, repos.leaderboard)
	s.submission = service.NewSubmissionService(db, repos.performance, repos.sessionResult, s.stats, cfg.Adaptive)
	s.progress = service.NewProgressService(db, repos.game, repos.gameProgress, repos.reward, s.stats, cfg.Rewards)

	// 接口变量不能直接接收 nil 指针
	var generator service.TextGenerator
	if ai := service.NewAIService(cfg.AI); ai != nil {
		generator = ai
	} else {
		logger.Log.Warn("AI api_key not set, question generation disabled")
	}
	s.question = service.NewQuestionService(repos.question, repos.performance, generator, cfg.AI.MaxQuestions, cfg.Adaptive.DefaultDifficulty)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		submission: controller.NewSubmissionController(s.submission),
		game:       controller.NewGameController(s.progress),
		question:   controller.NewQuestionController(s.question),
		stats:      controller.NewStatsController(s.stats),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if cfg.RateLimit.MaxRequests > 0 && window > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerReloadHandlers 阈值与奖励额度随配置文件热更新
func (a *App) registerReloadHandlers() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.services.submission.SetParams(cfg.Adaptive)
		a.services.progress.SetRewardValues(cfg.Rewards)
		a.services.question.SetDefaultLevel(cfg.Adaptive.DefaultDifficulty)
		logger.Log.Info("adaptive thresholds updated",
			zap.Float64("promoteAccuracy", cfg.Adaptive.PromoteAccuracy),
			zap.Float64("demoteAccuracy", cfg.Adaptive.DemoteAccuracy),
			zap.Int("correctTokens", cfg.Adaptive.CorrectTokens),
		)
	})
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			// 排行榜退回数据库聚合
			logger.Log.Warn("Failed to initialize redis, leaderboard falls back to database", zap.Error(err))
			rdb = nil
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	if cfg.MigrateOnly {
		return app, nil
	}

	repos := app.initRepositories(db, rdb)
	app.services = app.initServices(repos, cfg, db)
	controllers := app.initControllers(app.services, db, rdb)
	app.registerReloadHandlers()

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	router := gin.New()
	app.Router = router
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app, nil
}

func (a *App) Run() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if a.Config.ConfigFile != "" {
		if err := configwatcher.WatchConfig(ctx, a.Config.ConfigFile, a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)

	logger.Log.Info("Server exiting")
}

// Close 释放数据库、Redis 和追踪资源
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Error("Failed to close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Log.Error("Failed to close database", zap.Error(err))
		}
	}
}
