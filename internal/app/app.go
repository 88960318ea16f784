package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/daybook-app/core/internal/config"
	"github.com/daybook-app/core/internal/database"
	"github.com/daybook-app/core/internal/middleware"
	"github.com/daybook-app/core/internal/modules/ai"
	"github.com/daybook-app/core/internal/modules/blobstore"
	"github.com/daybook-app/core/internal/modules/entry"
	"github.com/daybook-app/core/internal/modules/summary"
	"github.com/daybook-app/core/internal/modules/user"
	pkgcron "github.com/daybook-app/core/internal/pkg/cron"
	"github.com/daybook-app/core/internal/pkg/keyring"
	pkgredis "github.com/daybook-app/core/internal/pkg/redis"
	"github.com/daybook-app/core/internal/pkg/taskqueue"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	entries   *entry.Service
	summaries *summary.Service
	users     *user.Service
	tasks     *taskqueue.Service
}

// New initializes the application: config → DB → Redis → keyring →
// services → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
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
	router.Use(middleware.RateLimit(rc.Raw()))
	router.Use(middleware.Idempotence(rc.Raw()))

	ctx, cancel := context.WithCancel(context.Background())

	keys := keyring.New(cfg.KeystoreDir, logger)
	codec := entry.NewCodec(keys, logger)

	entryOpts := []entry.Option{
		entry.WithStagingDir(cfg.StagingDir),
		entry.WithLogger(logger),
	}
	if cfg.S3.Enable {
		blobs, err := blobstore.New(ctx, cfg.S3, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("blob store: %w", err)
		}
		entryOpts = append(entryOpts, entry.WithUploader(blobs))
	} else {
		logger.Info("S3 disabled, local attachments will not be uploaded")
	}

	entrySvc := entry.NewService(db, codec, entryOpts...)
	taskSvc := taskqueue.NewService(rc)

	summarySvc := summary.NewService(db, entrySvc,
		summary.WithAnalyzer(ai.NewClient(cfg.AI, logger)),
		summary.WithTaskQueue(taskSvc),
		summary.WithLogger(logger),
	)
	entrySvc.SetNotifier(summarySvc)

	sched := pkgcron.New()
	registerCronJobs(sched, summarySvc, taskSvc, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:       cfg,
		router:    router,
		db:        db,
		logger:    logger,
		cancel:    cancel,
		sched:     sched,
		entries:   entrySvc,
		summaries: summarySvc,
		users:     user.NewService(db),
		tasks:     taskSvc,
	}
	app.registerRoutes()
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }
