// Package main is the entry point for the decision engine API server. It
// initializes storage, hydrates the in-memory contribution graph, starts the
// periodic collusion sweep and serves the HTTP surface.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	"poolguard/internal/config"
	"poolguard/internal/graph"
	"poolguard/internal/handlers"
	"poolguard/internal/middleware"
	"poolguard/internal/repositories"
	"poolguard/internal/routes"
	"poolguard/internal/scheduler"
	"poolguard/internal/services/alerts"
	"poolguard/internal/services/auth"
	"poolguard/internal/services/collusion"
	"poolguard/internal/services/credibility"
	"poolguard/internal/services/escrow"
	"poolguard/internal/services/feedback"
)

func main() {
	config.LoadEnv()

	zapLogger := newLogger()
	defer zapLogger.Sync()

	cfg, err := config.EngineFromEnv()
	if err != nil {
		zapLogger.Fatal("invalid engine configuration", zap.Error(err))
	}

	if err := repositories.InitDB(); err != nil {
		zapLogger.Fatal("failed to initialize storage", zap.Error(err))
	}

	userRepo := repositories.NewUserRepository(repositories.DB)
	fundRepo := repositories.NewFundRepository(repositories.DB)
	feedbackRepo := repositories.NewFeedbackRepository(repositories.DB)
	clusterRepo := repositories.NewClusterRepository(repositories.DB)
	moderatorRepo := repositories.NewModeratorRepository(repositories.DB)
	cache := repositories.Cache

	// Rebuild the in-memory contribution graph from durable state so the
	// first sweep sees the full history.
	store := graph.NewStore()
	hydrateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := repositories.HydrateGraph(hydrateCtx, userRepo, fundRepo, store); err != nil {
		cancel()
		zapLogger.Fatal("failed to hydrate contribution graph", zap.Error(err))
	}
	cancel()

	credSvc, err := credibility.NewService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to start credibility service", zap.Error(err))
	}
	detector := collusion.NewDetector(cfg.MinConnections, zapLogger)
	escrowSvc := escrow.NewService(fundRepo, userRepo, store, cache, zapLogger)
	feedbackSvc := feedback.NewService(feedbackRepo, cfg.RetrainThreshold, zapLogger)
	authSvc := auth.NewService(moderatorRepo, zapLogger)

	rules, err := alerts.LoadRules(cfg.RulesPath)
	if err != nil {
		zapLogger.Warn("rule table unavailable, using built-in defaults",
			zap.String("path", cfg.RulesPath), zap.Error(err))
		rules = alerts.DefaultRules()
	}
	engine := alerts.NewEngine(rules, zapLogger)

	sched := scheduler.New(store, detector, clusterRepo, cache, &cfg, zapLogger)
	if err := sched.Start(); err != nil {
		zapLogger.Fatal("failed to schedule collusion sweep", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New()
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(limiter.New(limiter.Config{
		Max:        config.GetIntEnv("RATE_LIMIT_MAX", 300),
		Expiration: time.Minute,
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Auth:         handlers.NewAuthHandler(authSvc, zapLogger),
		User:         handlers.NewUserHandler(userRepo, store, zapLogger),
		Score:        handlers.NewScoreHandler(credSvc, engine, userRepo, cache, zapLogger),
		Contribution: handlers.NewContributionHandler(escrowSvc, zapLogger),
		Fund:         handlers.NewFundHandler(escrowSvc, engine, cache, zapLogger),
		Feedback:     handlers.NewFeedbackHandler(feedbackSvc, zapLogger),
		Admin:        handlers.NewAdminHandler(credSvc, engine, sched, clusterRepo, cfg, zapLogger),
		AuthMW:       middleware.NewAuthMiddleware(authSvc, zapLogger),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		zapLogger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			zapLogger.Error("shutdown error", zap.Error(err))
		}
	}()

	addr := ":" + config.GetEnv("PORT", "8080")
	zapLogger.Info("decision engine listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if config.IsProduction() {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return l
}
