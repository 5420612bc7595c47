// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/anmicius0/euvat-checker/internal/client"
	"github.com/anmicius0/euvat-checker/internal/config"
	"github.com/anmicius0/euvat-checker/internal/metrics"
	"github.com/anmicius0/euvat-checker/internal/server"
	"github.com/anmicius0/euvat-checker/internal/service"
	"github.com/anmicius0/euvat-checker/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Configuration decides the log level, so it is loaded before logging
	appConfig, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := utils.Init(appConfig.LogFile, appConfig.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = utils.Sync() }()
	utils.Logger.Info("Configuration loaded successfully",
		zap.String("vies_url", appConfig.ViesURL),
		zap.Duration("time_unit", appConfig.TimeUnit),
		zap.Int("max_retries", appConfig.MaxRetries))

	m := metrics.New()
	registry := client.NewViesClient(appConfig.ViesURL, appConfig.RequestTimeout, m)
	defer func() { _ = registry.Close() }()
	scheduler := service.NewScheduler(registry, service.SchedulerConfig{
		TimeUnit:    appConfig.TimeUnit,
		PacingUnits: appConfig.PacingUnits,
		MaxRetries:  appConfig.MaxRetries,
	}, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobStore := config.NewJobStore()
	batchManager := server.NewBatchManager(ctx, jobStore, scheduler, &service.BatchLock{})

	router := server.NewRouter(appConfig, jobStore, batchManager, m)
	if err := run(ctx, router, appConfig); err != nil {
		utils.Logger.Error("Server failed", zap.Error(err))
	}

	// Cancelling ctx aborts the running batch between registry calls
	stop()
	batchManager.Wait()
	utils.Logger.Info("Server stopped")
}

// run serves HTTP until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, router http.Handler, appConfig *config.Config) error {
	portStr := strconv.Itoa(appConfig.Port)
	addr := fmt.Sprintf("%s:%s", appConfig.APIHost, portStr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: config.DefaultWriteTimeout,
		IdleTimeout:  config.DefaultIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Logger.Info("Server starting",
			zap.String(utils.FieldHost, appConfig.APIHost),
			zap.String(utils.FieldPort, portStr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		utils.Logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
