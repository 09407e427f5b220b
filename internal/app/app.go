package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pixelspace/views-core/internal/config"
	"github.com/pixelspace/views-core/internal/database"
	"github.com/pixelspace/views-core/internal/middleware"
	"github.com/pixelspace/views-core/internal/modules/tracking/record"
	"github.com/pixelspace/views-core/internal/modules/tracking/rollup"
	"github.com/pixelspace/views-core/internal/modules/tracking/stats"
	"github.com/pixelspace/views-core/internal/modules/tracking/store"
	pkgcron "github.com/pixelspace/views-core/internal/pkg/cron"
	"github.com/pixelspace/views-core/internal/pkg/jwt"
	"github.com/pixelspace/views-core/internal/pkg/privacy"
	pkgredis "github.com/pixelspace/views-core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
	recorder *record.Service
}

// New initializes the application: config → DB → Redis → services → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	jwt.SetSecret(cfg.JWTSecret)

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.Redis.URLValue())
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())

	// Stores
	eventStore := store.NewEventStore(db)
	aggStore := store.NewAggregateStore(db)
	cacheStore := store.NewCacheStore(db)
	artworkStore := store.NewArtworkStore(db)

	// Services
	hasher := privacy.NewHasher(cfg.Tracking.HashSalt)
	recorder := record.NewService(eventStore, artworkStore, rc, hasher, cfg.Tracking, logger)
	recorder.Start(ctx)

	rollupSvc := rollup.NewService(eventStore, aggStore, rc, cfg.Tracking, logger)
	statsCache := stats.NewCache(rc, cacheStore, cfg.Tracking.StatsCacheTTL(), logger)
	statsSvc := stats.NewService(eventStore, aggStore, artworkStore, statsCache, cfg.Tracking, logger)

	sched := pkgcron.New()
	registerCronJobs(sched, rollupSvc, statsSvc, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		logger:   logger,
		cancel:   cancel,
		sched:    sched,
		recorder: recorder,
	}
	app.registerRoutes(rc, recorder, statsSvc)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background work and waits for the recorder to drain its
// queue, so accepted views are not lost on a clean exit.
func (a *App) Shutdown() {
	a.cancel()
	a.recorder.Wait()
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		c.AllowOrigins = cfg.AllowedOrigins
	} else {
		c.AllowOriginFunc = func(origin string) bool { return true }
	}
	return c
}
