package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gwi.com/voice-calorie-log/internal/api"
	"gwi.com/voice-calorie-log/internal/app"
	"gwi.com/voice-calorie-log/internal/config"
	"gwi.com/voice-calorie-log/internal/logging"
)

func main() {
	// Command line flag for seeding the food table
	importFoods := flag.String("import-foods", "", "Import a markdown table of foods (name | kcal per 100g) and exit")
	flag.Parse()

	cfg, foundDotEnv := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if !foundDotEnv {
		logger.Debug("No .env file found, using environment variables")
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	if *importFoods != "" {
		logger.Info("Starting food import", zap.String("file", *importFoods))
		report, err := a.Store.ImportFoodsFromFile(*importFoods)
		if err != nil {
			logger.Fatal("Food import failed", zap.Error(err))
		}
		logger.Info("Food import complete",
			zap.Int("imported", report.Imported),
			zap.Int("existing", report.Existing),
			zap.Strings("skipped", report.Skipped))
		return
	}

	capture := a.GeminiCapture()
	defer capture.Close()

	apiHandler := api.NewAPIHandler(a.FoodLog, capture, logger)
	router := api.NewRouter(apiHandler, logger)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second, // audio uploads
		WriteTimeout: cfg.ExtractionTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		capture.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server exiting gracefully")
}
