package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/moevm/nosql1h25-mldata/pkg/charts"
	"github.com/moevm/nosql1h25-mldata/pkg/config"
	"github.com/moevm/nosql1h25-mldata/pkg/database"
	"github.com/moevm/nosql1h25-mldata/pkg/handlers"
	"github.com/moevm/nosql1h25-mldata/pkg/logging"
	"github.com/moevm/nosql1h25-mldata/pkg/middleware"
	"github.com/moevm/nosql1h25-mldata/pkg/repositories"
	"github.com/moevm/nosql1h25-mldata/pkg/services"
	"github.com/moevm/nosql1h25-mldata/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Migrations failed", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	files, err := storage.NewFileStore(cfg.Upload.Dir)
	if err != nil {
		logger.Fatal("Failed to open file store", zap.Error(err))
	}

	generator := charts.NewGenerator(charts.Limits{
		MaxColumns:    cfg.Charts.MaxColumns,
		MaxRows:       cfg.Charts.MaxRows,
		MaxCategories: cfg.Charts.MaxCategories,
	}, logger)

	datasetRepo := repositories.NewDatasetRepository(db)
	activityRepo := repositories.NewActivityRepository(db)
	graphsRepo := repositories.NewGraphsRepository(db)
	archiveRepo := repositories.NewArchiveRepository(db)

	datasetService := services.NewDatasetService(
		datasetRepo, activityRepo, graphsRepo, files, generator,
		services.PreviewLimits{
			MaxRows:    cfg.Preview.MaxRows,
			MaxColumns: cfg.Preview.MaxColumns,
		},
		logger,
	)
	activityService := services.NewActivityService(activityRepo, logger)
	archiveService := services.NewArchiveService(archiveRepo, files, logger)

	scheduler, err := services.NewScheduler(cfg.RollForwardSchedule, activityService, logger)
	if err != nil {
		logger.Fatal("Failed to build scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDatasetHandler(datasetService, activityService, logger).RegisterRoutes(mux)
	handlers.NewArchiveHandler(archiveService, logger).RegisterRoutes(mux)

	session := middleware.NewSessionActor(cfg.SessionKey)
	handler := session.Handler(middleware.RequestLogger(logger)(mux))

	srv := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("Starting mldata server",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

// runMigrations applies pending schema migrations over a short-lived
// database/sql connection.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}
