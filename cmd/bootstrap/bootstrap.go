package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-dashboard/config"
	"clinic-dashboard/internal/converter"
	deliveryHttp "clinic-dashboard/internal/delivery/http"
	"clinic-dashboard/internal/delivery/http/handler"
	"clinic-dashboard/internal/delivery/http/middleware"
	domainRepo "clinic-dashboard/internal/domain/repository"
	"clinic-dashboard/internal/infrastructure/cache"
	"clinic-dashboard/internal/infrastructure/database"
	"clinic-dashboard/internal/infrastructure/metrics"
	"clinic-dashboard/internal/repository"
	"clinic-dashboard/internal/service"
	"clinic-dashboard/internal/usecase"
	"clinic-dashboard/pkg/jwt"
	"clinic-dashboard/pkg/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	RedisClient  *redis.Client
	DatasetCache *service.DatasetCache
	Server       *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	log := setupLogger(cfg.App.LogLevel)
	log.Info("Configuration loaded successfully")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dashboardMetrics := metrics.NewDashboardMetrics(registry)

	// Initialize appointment source
	repo, err := app.initializeSource(cfg, log)
	if err != nil {
		return nil, err
	}

	datasetCache := service.NewDatasetCache(repo, log, dashboardMetrics)
	app.DatasetCache = datasetCache
	if cfg.Source.Kind == config.SourceKindCSV && cfg.Source.Watch {
		if err := datasetCache.Watch(cfg.Source.Path); err != nil {
			log.Warnf("Source file watching disabled: %+v", err)
		}
	}

	// Preload so an unreadable source is reported at startup
	if _, err := datasetCache.Get(context.Background()); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	// Initialize all layers
	app.Server = initializeServer(cfg, log, datasetCache, redisClient, dashboardMetrics, registry)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) *logrus.Logger {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)

	return logrus.StandardLogger()
}

// initializeSource builds the repository for the configured SOURCE_KIND
func (app *App) initializeSource(cfg *config.Config, log *logrus.Logger) (domainRepo.AppointmentRepository, error) {
	if cfg.Source.Kind != config.SourceKindPostgres {
		return repository.NewAppointmentCSVRepository(afero.NewOsFs(), cfg.Source.Path, cfg.Source.DayFirst, log), nil
	}

	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(cfg.DB); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	return repository.NewAppointmentPostgresRepository(db, log), nil
}

// initializeServer creates and configures the HTTP server
func initializeServer(
	cfg *config.Config,
	log *logrus.Logger,
	datasetCache *service.DatasetCache,
	redisClient *redis.Client,
	dashboardMetrics *metrics.DashboardMetrics,
	gatherer prometheus.Gatherer,
) *http.Server {
	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()

	// Initialize services
	resultCache := service.NewDashboardCacheService(redisClient, cfg.Redis.TTL, log)

	// Initialize usecases
	dashboardUsecase := usecase.NewDashboardUsecase(
		log,
		datasetCache,
		resultCache,
		dashboardMetrics,
		converter.NewDisplayFormatter(cfg.App.Locale),
		cfg.Export.Filename,
	)

	// Initialize handlers
	dashboardHandler := handler.NewDashboardHandler(dashboardUsecase, customValidator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	corsMiddleware := middleware.NewCORSMiddleware()
	loggingMiddleware := middleware.NewLoggingMiddleware(log)

	if !jwtService.Enabled() {
		log.Warn("JWT_SECRET not set, dashboard API is unauthenticated")
	}

	// Initialize router
	router := deliveryHttp.NewRouter(dashboardHandler, authMiddleware, corsMiddleware, loggingMiddleware, gatherer)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close releases the watcher and any open connections
func (app *App) Close() {
	if app.DatasetCache != nil {
		app.DatasetCache.Stop()
	}

	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
