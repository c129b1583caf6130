package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/config"
	"github.com/brimstore/recsys/internal/database"
	"github.com/brimstore/recsys/internal/handlers"
	"github.com/brimstore/recsys/internal/middleware"
	"github.com/brimstore/recsys/internal/recommend"
	"github.com/brimstore/recsys/internal/scheduler"
	"github.com/brimstore/recsys/internal/store"
)

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	hub       *recommend.DataHub
	blender   *recommend.HybridBlender
	cache     *recommend.CachedRecommender
	retrainer *scheduler.Retrainer
	handlers  *handlers.Handlers
	router    *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	interactions := store.NewInteractionRepository(db.PG, app.logger)
	products := store.NewProductRepository(db.PG, app.logger)
	app.hub = recommend.NewDataHub(interactions, products, app.logger)

	recCfg := &cfg.Recommendation
	cf := recommend.NewUserCFEngine(&recCfg.CF, app.logger)
	content := recommend.NewContentSimilarityEngine(&recCfg.Content, app.logger)
	mf := recommend.NewMatrixFactorizationEngine(app.logger)

	rules, err := recommend.LoadContextRules(recCfg.ContextRules)
	if err != nil {
		return nil, fmt.Errorf("failed to load context rules: %w", err)
	}
	adjuster := recommend.NewContextualAdjuster(rules)

	app.blender = recommend.NewHybridBlender(app.hub, cf, content, mf, adjuster, recCfg, app.logger)
	app.cache = recommend.NewCachedRecommender(
		app.blender,
		recommend.NewRedisResultStore(db.Redis),
		recCfg,
		app.logger,
	)
	app.retrainer = scheduler.NewRetrainer(app.hub, mf, app.cache, recCfg, app.logger)

	app.handlers = handlers.New(app.logger, db, app.cache, app.blender, app.hub)
	app.setupRouter()

	return app, nil
}

// Bootstrap loads the first snapshot and fits the initial latent factor
// model, then starts the retrain loop. The server should not accept
// traffic before this returns.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := a.retrainer.RunOnce(ctx); err != nil {
		return fmt.Errorf("initial model fit: %w", err)
	}
	go a.retrainer.Start(ctx)
	return nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Both the bare paths and the versioned group serve the same handlers;
	// older clients call the former.
	for _, group := range []*gin.RouterGroup{&router.RouterGroup, router.Group("/api/v1")} {
		recommendations := group.Group("/recommendations")
		recommendations.GET("/:userId", a.handlers.Recommendation.Get)
		recommendations.GET("/:userId/explain/:productId", a.handlers.Recommendation.Explain)
	}

	a.router = router
}
