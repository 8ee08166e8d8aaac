package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"public-clipboard/internal/domain"
	httpHandler "public-clipboard/internal/handler/http"
	wsHandler "public-clipboard/internal/handler/websocket"
	"public-clipboard/internal/hub"
	gormpersist "public-clipboard/internal/infra/persistence/gorm"
	"public-clipboard/internal/infra/setup"
	redisstate "public-clipboard/internal/infra/state/redis"
	"public-clipboard/internal/limiter"
	"public-clipboard/internal/middleware"
	"public-clipboard/internal/repository"
	"public-clipboard/internal/service"
	"public-clipboard/internal/store"
	"public-clipboard/internal/tasks"
	"public-clipboard/internal/worker"
)

// App 聚合应用的全部组件，统一启动和关闭。
type App struct {
	Config      *setup.Config
	Log         *logrus.Logger
	DB          *gorm.DB // 归档未开启时为 nil
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server

	redisClientOpt asynq.RedisClientOpt
}

// NewApp 创建并初始化应用的所有组件。
func NewApp() (*App, error) {
	// 优先加载 .env 文件（如果存在），允许只用环境变量
	_ = godotenv.Load()

	cfg, err := setup.LoadConfig()
	if err != nil {
		return nil, err
	}

	// 初始化 Logger
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Info("Configuration loaded successfully")

	// 基础设施
	redisClient, err := setup.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	var archiveRepo repository.EventArchiveRepository
	if cfg.ArchiveDBEnabled {
		db, err = setup.NewDB()
		if err != nil {
			return nil, err
		}
		gormRepo := gormpersist.NewEventArchiveRepository(db)
		if err := gormRepo.AutoMigrate(); err != nil {
			return nil, err
		}
		archiveRepo = gormRepo
		log.Info("Event archive database ready")
	} else {
		log.Info("Event archive database disabled")
	}

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	// 仓库
	boardRepo := redisstate.NewBoardRepository(redisClient, cfg.RedisKeyPrefix)
	banRepo := redisstate.NewBanRepository(redisClient, cfg.RedisKeyPrefix)
	eventRepo := redisstate.NewEventRepository(redisClient, cfg.RedisKeyPrefix, cfg.EventsLimit)
	log.Info("Repositories initialized")

	// 服务
	boardStore := store.NewBoardStore(boardRepo, log)
	var enqueuer service.EventEnqueuer
	if cfg.ArchiveDBEnabled {
		enqueuer = tasks.NewEnqueuer(asynqClient, log)
	}
	boardService := service.NewBoardService(
		boardStore,
		banRepo,
		eventRepo,
		enqueuer,
		domain.Canvas{Width: cfg.CanvasWidth, Height: cfg.CanvasHeight},
		service.BoardLimits{
			MinBoardID:         cfg.MinBoardID,
			MaxBoardID:         cfg.MaxBoardID,
			MaxContentLength:   cfg.MaxContentLength,
			HistoryLimit:       cfg.HistoryLimit,
			DefaultBanDuration: cfg.DefaultBanDuration,
		},
		cfg.IPHashSalt,
		log,
	)
	log.Info("Services initialized")

	// 限流器：WebSocket 写路径和 HTTP 变更接口共用同一个实例
	var rateLimiter *limiter.SlidingWindow
	if cfg.RateLimitEnabled {
		rateLimiter = limiter.NewSlidingWindow(cfg.RateLimitWindow, cfg.RateLimitMax)
		log.Info("Rate limiting enabled")
	}

	hubInstance := hub.NewHub(boardService, rateLimiter, log)
	boardHandler := httpHandler.NewBoardHandler(boardService, hubInstance)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance)
	workerServer := worker.NewWorkerServer(redisClientOpt, archiveRepo, boardService, cfg.BoardIdleTTL, log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(cfg.CORSAllowedOrigin))

	router.GET("/health", boardHandler.Health)
	router.GET("/ws", websocketHandler.HandleConnection)

	api := router.Group("/api")
	boards := api.Group("/boards")
	{
		boards.GET("/:id", boardHandler.GetBoard)
		boards.GET("/:id/history", boardHandler.GetHistory)
		if rateLimiter != nil {
			boards.POST("/:id/actions", middleware.RateLimit(rateLimiter), boardHandler.PostAction)
		} else {
			boards.POST("/:id/actions", boardHandler.PostAction)
		}
	}
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	app := &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}
	return app, nil
}

// Start 启动后台 goroutine 和 HTTP 服务器。
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.Log.Info("Worker server routine started")

	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
}

// registerPeriodicTasks 注册周期性的空闲画板清理任务。
func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	payload, err := tasks.NewBoardSweepPayload()
	if err != nil {
		a.Log.Errorf("Failed to create board sweep task payload: %v", err)
		return
	}
	task := asynq.NewTask(tasks.TypeBoardSweep, payload)

	schedule := "@every 5m"
	entryID, err := scheduler.Register(schedule, task, asynq.Queue("default"))
	if err != nil {
		a.Log.Errorf("Could not register periodic board sweep task: %v", err)
	} else {
		a.Log.Infof("Periodic board sweep registered with schedule '%s' (EntryID: %s)", schedule, entryID)
	}

	go func() {
		if err := scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
		}
	}()
}

// Shutdown 优雅地关闭应用。
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// corsMiddleware 设置跨域响应头，画板接口面向浏览器客户端。
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware 记录每个 HTTP 请求的结构化访问日志。
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
