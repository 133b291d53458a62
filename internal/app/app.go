package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/controller"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/pkg/configwatcher"
	"exam_portal_backend/pkg/database"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"
	"exam_portal_backend/pkg/security"
	"exam_portal_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *gorm.DB
	Redis   *redis.Client
	liveCfg atomic.Pointer[config.Config]
}

type repositories struct {
	user        *repository.UserRepository
	exam        *repository.ExamRepository
	question    *repository.QuestionRepository
	response    *repository.ResponseRepository
	grading     *repository.GradingRepository
	result      *repository.ResultRepository
	publication *repository.PublicationRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	response    *service.ResponseService
	result      *service.ResultService
	grading     *service.GradingService
	publication *service.PublicationService
	export      *service.ExportService
}

type controllers struct {
	auth        *controller.AuthController
	response    *controller.ResponseController
	grading     *controller.GradingController
	publication *controller.PublicationController
	result      *controller.ResultController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		exam:        repository.NewExamRepository(db),
		question:    repository.NewQuestionRepository(db),
		response:    repository.NewResponseRepository(db),
		grading:     repository.NewGradingRepository(db),
		result:      repository.NewResultRepository(db),
		publication: repository.NewPublicationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	s.auth = service.NewAuthService(repos.user, cfg)
	s.response = service.NewResponseService(repos.exam, repos.question, repos.response, repos.result, db)
	s.result = service.NewResultService(repos.exam, repos.question, repos.response, repos.grading, repos.result, db)
	s.grading = service.NewGradingService(repos.exam, repos.question, repos.response, repos.grading, repos.publication, s.result, db, rdb)
	s.publication = service.NewPublicationService(repos.exam, repos.response, repos.grading, repos.result, repos.publication, s.result, cfg, db, rdb)
	s.export = service.NewExportService(repos.exam, repos.result, repos.publication, s.storage)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		response:    controller.NewResponseController(s.response),
		grading:     controller.NewGradingController(s.grading),
		publication: controller.NewPublicationController(s.publication),
		result:      controller.NewResultController(s.result, s.publication, s.export),
		health:      controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	windowMinutes := cfg.RateLimit.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	router.Use(security.RateLimiter(maxRequests, time.Duration(windowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}
	app.liveCfg.Store(cfg)

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("exam-portal", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 配置热更新：只替换运行时可安全变更的部分
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		a.liveCfg.Store(newCfg)
		logger.Log.Info("Config reloaded")
	})

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
