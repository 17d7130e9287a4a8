package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poem/docs"
	"poem/internal/auth"
	"poem/internal/cache"
	"poem/internal/config"
	"poem/internal/database"
	"poem/internal/handler"
	"poem/internal/logging"
	"poem/internal/metrics"
	"poem/internal/middleware"
	"poem/internal/repository"
	"poem/internal/service"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/ristretto"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps is everything the HTTP layer needs; Init builds it from config.
type Deps struct {
	Poetry  handler.PoetryService
	Tokens  *auth.TokenManager
	Metrics *metrics.Metrics
	Limiter *rate.Limiter
	DB      Pinger
	Logger  *log.Logger
}

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config

	sqlDB  *sql.DB
	cache  *ristretto.Cache
	logger *log.Logger
}

func Init(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Server, error) {
	if cfg.MigrateOnStart {
		changed, err := database.Migrate(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		logger.Info("✅ Migrations applied", "changed", changed)
	}

	sqlDB, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	logger.Info("✅ Connected to database")

	db, err := database.Gorm(sqlDB, logging.Gorm(logger))
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	client, err := cache.NewRistretto(cfg.CacheMaxItems)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	m := metrics.New("poem")

	// Repositories, services and handlers
	poetryRepo := repository.NewPoetryRepository(db)
	pages := cache.New[service.PoetryPage](client, cfg.CacheTTL, m)
	poetryService := service.NewPoetryService(poetryRepo, pages, logger)

	engine := NewEngine(Deps{
		Poetry:  poetryService,
		Tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry),
		Metrics: m,
		Limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		DB:      sqlDB,
		Logger:  logger,
	})

	return &Server{
		Engine: engine,
		DB:     db,
		Config: cfg,
		sqlDB:  sqlDB,
		cache:  client,
		logger: logger,
	}, nil
}

// NewEngine builds the router. Only Poetry, Tokens, Limiter and Logger are
// required.
func NewEngine(d Deps) *gin.Engine {
	docs.Register()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/health", health(d.DB))

	// Docs
	r.GET("/v3/api-docs", serveDoc(docs.JSON, "application/json"))
	r.GET("/v3/api-docs.yaml", serveDoc(docs.YAML, "application/yaml"))
	r.GET("/swagger-ui/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.InstanceName(docs.InstanceName),
	))

	poetryHandler := handler.NewPoetryHandler(d.Poetry, d.Logger)

	// Public routes
	public := r.Group("/api/poetry")
	public.Use(middleware.RateLimit(d.Limiter))

	// Protected routes - require an admin token
	admin := public.Group("")
	admin.Use(middleware.JWTAuthMiddleware(d.Tokens, auth.RoleAdmin))

	poetryHandler.Register(public, admin)

	return r
}

func serveDoc(render func() ([]byte, error), contentType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := render()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build API documentation"})
			return
		}
		c.Data(http.StatusOK, contentType, body)
	}
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "UP"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              s.Config.Addr(),
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("🚀 Server running on port %s", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		s.close()
		return fmt.Errorf("❌ Failed to listen: %w", err)
	case <-quit:
	}
	s.logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	s.close()
	if err != nil {
		return fmt.Errorf("❌ Server forced to shutdown: %w", err)
	}

	s.logger.Info("✅ Server exited properly")
	return nil
}

func (s *Server) close() {
	s.cache.Close()
	if err := s.sqlDB.Close(); err != nil {
		s.logger.Warn("failed to close database", "err", err)
	}
}
