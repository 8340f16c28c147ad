package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/tallyhq/approvals/internal/application/service"
	"github.com/tallyhq/approvals/internal/config"
	"github.com/tallyhq/approvals/internal/infrastructure/persistence/repository"
	txsqlite "github.com/tallyhq/approvals/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/tallyhq/approvals/internal/interfaces/http"
	"github.com/tallyhq/approvals/internal/notification"
	"github.com/tallyhq/approvals/internal/worker"
	"github.com/tallyhq/approvals/pkg/database"
	"github.com/tallyhq/approvals/pkg/utils"
)

func main() {
	// Local overrides from .env, ignored when absent.
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting approvals service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories and transaction manager
	reportRepo := repository.NewReportRepository(db.DB, logger)
	lineRepo := repository.NewLineItemRepository(db.DB, logger)
	employeeRepo := repository.NewEmployeeRepository(db.DB, logger)
	outboxRepo := repository.NewOutboxRepository(db.DB, logger)
	txManager := txsqlite.NewDB(db.DB, logger)

	// Initialize services
	serviceLogger := utils.NewSugarAdapter(logger)
	reportService := service.NewReportService(
		reportRepo, lineRepo, employeeRepo, txManager, serviceLogger, cfg.Database.QueryTimeout)
	transitionService := service.NewTransitionService(
		reportRepo, lineRepo, employeeRepo, outboxRepo, txManager, serviceLogger, cfg.Database.QueryTimeout)
	exportService := service.NewExportService(reportService, serviceLogger)

	// Initialize notification pipeline
	mailer, err := notification.NewMailer(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	dispatcher := notification.NewDispatcher(mailer, cfg.Notify.BaseURL, logger)

	// Initialize background workers
	notifyWorker := worker.NewNotifyWorker(
		outboxRepo,
		reportRepo,
		employeeRepo,
		dispatcher,
		worker.NewRetryStrategy(),
		cfg.Notify.Interval,
		cfg.Notify.BatchSize,
		logger,
	)

	workerManager := worker.NewManager(logger)
	workerManager.Register(notifyWorker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, reportService, transitionService, exportService, employeeRepo, serviceLogger)

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server terminated", zap.Error(err))
	}

	logger.Info("Shutting down workers")
	workerManager.StopAll()

	logger.Info("Server exited successfully")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.yaml"
}
