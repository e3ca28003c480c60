package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"userAuthService/internal/auth"
	"userAuthService/internal/config"
	"userAuthService/internal/db"
	grpcserver "userAuthService/internal/grpc"
	"userAuthService/internal/httpapi"
	"userAuthService/internal/logging"
	"userAuthService/internal/service"
	"userAuthService/internal/telemetry"
	"userAuthService/repository"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(os.Stderr, cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger.Info("configuration loaded", "config", cfg.String())

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	d, err := db.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("close db", "error", err)
		}
	}()

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	svc := service.NewAuthService(repository.NewUserRepository(d), tokens, logger)

	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(httpapi.NewRouter(svc, tokens, logger), cfg.HTTP.AllowedOrigins)
	stopHTTP, err := httpapi.StartHTTP(cfg, handler, logger)
	if err != nil {
		return fmt.Errorf("start http: %w", err)
	}
	logger.Info("http server listening", "address", cfg.HTTP.Address)

	stopGRPC := func(context.Context) error { return nil }
	if cfg.GRPC.Address != "" {
		stopGRPC, err = grpcserver.StartGRPC(cfg, svc, tokens, logger)
		if err != nil {
			_ = stopHTTP(context.Background())
			return fmt.Errorf("start grpc: %w", err)
		}
		logger.Info("grpc server listening", "address", cfg.GRPC.Address)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	logger.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stopHTTP(sctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := stopGRPC(sctx); err != nil {
		logger.Error("grpc shutdown", "error", err)
	}
	return nil
}
