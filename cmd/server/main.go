package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kdimtricp/budgetmanager/internal/ai"
	"github.com/kdimtricp/budgetmanager/internal/api"
	"github.com/kdimtricp/budgetmanager/internal/budgetsync"
	"github.com/kdimtricp/budgetmanager/internal/config"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/logger"
	"github.com/kdimtricp/budgetmanager/internal/metrics"
	"github.com/kdimtricp/budgetmanager/internal/patterns"
	"github.com/kdimtricp/budgetmanager/internal/processing"
	"github.com/kdimtricp/budgetmanager/internal/review"
	"github.com/kdimtricp/budgetmanager/internal/storage"
	"github.com/kdimtricp/budgetmanager/internal/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("BUDGET_CONFIG"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Must(false).Fatal("failed to load config", zap.Error(err))
	}

	log := logger.Must(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	localStorage, err := storage.NewLocalStorage(cfg.Server.UploadDir)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.DatabaseConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.NewMigrator(db, log).Run(ctx)
	if err != nil {
		return err
	}
	log.Info("database ready",
		zap.String("type", db.Type()),
		zap.Int("migrations_applied", applied))

	ledger := database.NewLedgerRepo(db)
	patternService := patterns.NewService(database.NewPatternRepo(db), patterns.Config{CacheSize: cfg.Patterns.CacheSize}, log)
	budgets := budgetsync.NewService(ledger, cfg.BudgetSync.TouchedTTL, m, log)
	reviews := review.NewService(db, patternService, budgets, review.Config{
		Duplicates: review.DuplicateConfig{
			Lookback:            cfg.Review.DuplicateLookback,
			SimilarityThreshold: cfg.Review.SimilarityThreshold,
			AmountTolerance:     cfg.Review.AmountTolerance,
		},
	}, m, log)

	app := &api.App{
		Storage:       localStorage,
		Reviews:       reviews,
		Patterns:      patternService,
		Ledger:        ledger,
		Budgets:       budgets,
		Gatherer:      registry,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		TempMaxAge:    cfg.Rasterizer.TempMaxAge,
		Logger:        log,
	}

	rasterizer, rasterErr := ai.NewMagickRasterizer(cfg.RasterizerConfig(), log)
	if rasterErr != nil {
		log.Warn("PDF rasterizer unavailable, uploads are disabled", zap.Error(rasterErr))
	} else {
		app.TempCleaner = rasterizer
	}

	var pipeline *processing.Pipeline
	provider, err := ai.NewProvider(cfg.AIConfig(), log)
	if err != nil {
		log.Warn("AI provider not configured, uploads are disabled", zap.Error(err))
	}
	if rasterErr == nil && err == nil {
		pipeline = processing.NewPipeline(rasterizer, provider, patternService, database.NewOCRRepo(db), m, log)
		app.Pipeline = pipeline
	}

	done := make(chan struct{})
	var background int

	if cfg.BudgetSync.EnabledOrDefault() {
		background++
		go func() {
			defer func() { done <- struct{}{} }()
			budgets.Run(ctx, cfg.BudgetSync.Interval)
		}()
	}

	if cfg.Watch.Directory != "" && pipeline != nil {
		inbox := watch.NewInbox(cfg.Watch.Directory, cfg.Watch.Extensions, cfg.Watch.Debounce,
			watch.PipelineHandler(localStorage, pipeline), m, log)
		background++
		go func() {
			defer func() { done <- struct{}{} }()
			if err := inbox.Run(ctx); err != nil {
				log.Error("inbox watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: api.NewRouter(app),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("upload_dir", cfg.Server.UploadDir),
			zap.Int64("max_upload_size", cfg.Server.MaxUploadSize))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("grace", cfg.Server.ShutdownGrace))
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancelShutdown()
	err = srv.Shutdown(shutdownCtx)

	cancel()
	for ; background > 0; background-- {
		<-done
	}
	return err
}
