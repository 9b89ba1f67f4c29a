package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal-gateway/internal/api"
	"portal-gateway/internal/database"
	"portal-gateway/internal/metrics"
	"portal-gateway/pkg/config"
	"portal-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.NewFromConfig(cfg.Logging)
	log.WithField("config", cfg.SanitizeForLogging()).Info("Starting portal gateway")

	opts := []api.Option{}

	if cfg.Database.Enabled {
		db, driver, err := database.NewConnection(cfg)
		if err != nil {
			return err
		}
		if err := database.RunMigrations(db, driver); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Auth event store ready", "driver", driver)
		opts = append(opts, api.WithDatabase(db, driver))
	}

	if cfg.Metrics.Enabled {
		opts = append(opts, api.WithMetrics(metrics.New()))
	}

	services := api.NewServices(cfg, log, opts...)
	defer services.Close()

	switch cfg.Server.Mode {
	case gin.ReleaseMode, "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	gin.DefaultWriter = log.WithComponent("gin").Writer()
	gin.DefaultErrorWriter = log.WithComponent("gin").Writer()

	router := gin.New()
	if err := api.SetupRoutes(router, services); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Gateway listening", "address", srv.Addr, "tls", cfg.Server.TLS.Enabled)
		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down gateway...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Gateway stopped")
	return nil
}
