package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/configwatcher"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/security"
	"lms_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultConfigFile = "configs/config.yaml"

type App struct {
	Config          *config.Config
	ConfigFile      string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
}

type repositories struct {
	user        *repository.UserRepository
	template    *repository.CachedTemplateStore
	content     *repository.ContentRepository
	certificate *repository.CertificateRepository
	session     *repository.PlayerSessionRepository
}

type services struct {
	storage     *service.StorageService
	issuer      *service.CertificateIssuer
	player      *service.PlayerService
	content     *service.ContentService
	grading     *service.GradingService
	template    *service.TemplateService
	certificate *service.CertificateService
	profile     *service.ProfileService
}

type controllers struct {
	player      *controller.PlayerController
	content     *controller.ContentController
	grade       *controller.GradeController
	template    *controller.TemplateController
	certificate *controller.CertificateController
	user        *controller.UserController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		template:    repository.NewCachedTemplateStore(repository.NewTemplateRepository(db), rdb, cfg.Player.TemplateCacheTTL()),
		content:     repository.NewContentRepository(db),
		certificate: repository.NewCertificateRepository(db),
		session:     repository.NewPlayerSessionRepository(rdb, cfg.Player.CursorTTL()),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.issuer = service.NewCertificateIssuer(repos.user, time.Now)

	sequencer := service.NewSequencer(repos.template, cfg.Player.Concurrency())
	s.player = service.NewPlayerService(
		repos.content,
		repos.user,
		sequencer,
		repos.session,
		s.storage,
		service.DefaultActivityRegistry(),
		s.issuer,
	)

	s.content = service.NewContentService(repos.content, repos.template, repos.user)
	s.grading = service.NewGradingService(repos.content, repos.user, s.issuer)
	s.template = service.NewTemplateService(repos.template, repos.template)
	s.certificate = service.NewCertificateService(repos.certificate, time.Now)
	s.profile = service.NewProfileService(repos.user, repos.certificate)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		player:      controller.NewPlayerController(s.player),
		content:     controller.NewContentController(s.content),
		grade:       controller.NewGradeController(s.grading),
		template:    controller.NewTemplateController(s.template),
		certificate: controller.NewCertificateController(s.certificate),
		user:        controller.NewUserController(s.profile),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit))

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
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	// 缓存不可用时模板直接读库，游标不保存
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, running without cache", zap.Error(err))
		rdb = nil
	}

	app := newApp(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

// newApp 组装依赖和路由，测试时直接传入 sqlite
func newApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	gin.SetMode(cfg.Server.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:     cfg,
		ConfigFile: defaultConfigFile,
		DB:         db,
		Redis:      rdb,
		ctx:        ctx,
		cancel:     cancel,
	}

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
	})

	return app
}

func (a *App) applyConfig(cfg *config.Config) {
	logger.Log.Info("config reloaded", zap.String("mode", cfg.Server.Mode))
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	if a.ConfigFile != "" {
		go func() {
			if err := configwatcher.WatchConfig(a.ctx, filepath.Clean(a.ConfigFile), a.applyConfig); err != nil {
				logger.Log.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

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

	a.Close()
	log.Println("Server exiting")
}

// Close 停止后台协程并释放外部连接
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
