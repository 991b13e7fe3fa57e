package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Dan9191/finance-service/internal/config"
	"github.com/Dan9191/finance-service/internal/handler"
	"github.com/Dan9191/finance-service/internal/integrations/asaas"
	"github.com/Dan9191/finance-service/internal/integrations/bcb"
	"github.com/Dan9191/finance-service/internal/middleware"
	"github.com/Dan9191/finance-service/internal/pkg/grpcserver"
	"github.com/Dan9191/finance-service/internal/pwa"
	"github.com/Dan9191/finance-service/internal/repository"
	"github.com/Dan9191/finance-service/internal/scheduler"
	"github.com/Dan9191/finance-service/internal/service"
	"github.com/Dan9191/finance-service/internal/storage"
	"github.com/Dan9191/finance-service/internal/utils/email"
	"github.com/Dan9191/finance-service/internal/web"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	if err := repository.Migrate(context.Background(), db); err != nil {
		logger.Fatalf("Failed to apply migrations: %v", err)
	}

	deps := service.Deps{
		Payments: asaas.NewClient(cfg, logger),
		Rates:    bcb.NewClient(cfg, logger),
		Mailer:   email.NewSender(logger),
	}
	if cfg.S3Bucket != "" {
		deps.Icons = storage.NewPresigner(cfg)
	}

	// Cart tracking is optional, checkout works without MongoDB
	var mongoClient *mongo.Client
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoClient, err = storage.ConnectToMongoDB(ctx, cfg.MongoURI, logger)
		cancel()
		if err != nil {
			logger.Warnf("Cart tracking disabled: %v", err)
			mongoClient = nil
		} else {
			deps.Carts = storage.NewCartRepository(storage.NewMongoProvider(mongoClient, cfg.MongoDB))
		}
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	svc := service.NewService(repo, deps, logger, cfg)
	h := handler.NewHandler(svc, logger, repo.Ping, strings.HasPrefix(cfg.PublicURL, "https://"))

	shell, err := web.NewShell(svc, logger)
	if err != nil {
		logger.Fatalf("Failed to load web shell: %v", err)
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	h.Register(r)
	pwa.NewHandler(svc, cfg.AppVersion, logger).Register(r)
	shell.Register(r)

	jobs, err := scheduler.New(svc, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to configure scheduler: %v", err)
	}
	jobs.Start()

	health := grpcserver.New(cfg.GRPCHealthAddr)
	go func() {
		logger.Infof("gRPC health server listening on %s", cfg.GRPCHealthAddr)
		if err := health.Start(); err != nil {
			logger.Errorf("gRPC health server failed: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()
	health.SetServing(true)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info("Shutting down...")
	health.SetServing(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	select {
	case <-jobs.Stop().Done():
	case <-ctx.Done():
		logger.Warn("Scheduled jobs still running at shutdown")
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP shutdown failed: %v", err)
	}
	health.Stop()

	svc.Carts().Wait()
	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Errorf("Failed to disconnect from MongoDB: %v", err)
		}
	}
	logger.Info("Server stopped")
}
