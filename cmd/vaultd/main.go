package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"code-vault-go/config"
	"code-vault-go/internal/auth"
	"code-vault-go/internal/game"
	awsinfra "code-vault-go/internal/infrastructure/aws"
	"code-vault-go/internal/infrastructure/aws/dynamodb"
	"code-vault-go/internal/infrastructure/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("vaultd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.Kitchen,
		NoColor:    !cfg.IsDevelopment(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openOutcomeStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	service := game.NewGameService(cfg.GameSettings(), store, logger, cfg.ServiceOptions()...)
	defer service.Close()

	handler := game.NewHandler(service, auth.NewService([]byte(cfg.JWTSecret), cfg.JWTExpiration), logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting vaultd",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"outcome_backend", cfg.OutcomeBackend,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openOutcomeStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (game.OutcomeStore, func(), error) {
	switch cfg.OutcomeBackend {
	case config.BackendPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("outcome log ready", "backend", "postgres")
		return postgres.NewOutcomeStore(db), func() { db.Close() }, nil

	case config.BackendDynamoDB:
		awsCfg, err := awsinfra.NewAWSConfig(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		store := dynamodb.NewOutcomeStore(awsCfg.DynamoDB, cfg.DynamoDBTable)
		if err := store.EnsureTable(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("outcome log ready", "backend", "dynamodb", "table", cfg.DynamoDBTable)
		return store, func() {}, nil

	default:
		logger.Info("outcome log ready", "backend", "memory")
		return game.NewMemoryStore(), func() {}, nil
	}
}
