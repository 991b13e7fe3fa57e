package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/Dan9191/finance-service/internal/cli"
	"github.com/Dan9191/finance-service/internal/config"
	"github.com/Dan9191/finance-service/internal/repository"
	"github.com/Dan9191/finance-service/internal/service"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func open(ctx context.Context) (*cli.App, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Service logs are noise on a terminal; errors are printed by main
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := service.NewService(repository.NewRepository(db), service.Deps{}, logger, cfg)
	return &cli.App{
		Ops:     svc,
		Migrate: func(ctx context.Context) error { return repository.Migrate(ctx, db) },
		Close:   func() { db.Close() },
	}, nil
}

func main() {
	if err := cli.NewRootCommand(open).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
