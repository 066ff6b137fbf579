package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashdean/property-comb/app/api"
	"github.com/ashdean/property-comb/app/areas"
	"github.com/ashdean/property-comb/app/cfg"
	"github.com/ashdean/property-comb/app/database"
	"github.com/ashdean/property-comb/app/enrich"
	"github.com/ashdean/property-comb/app/export"
	"github.com/ashdean/property-comb/app/notifier"
	"github.com/ashdean/property-comb/app/scraper"
	"github.com/ashdean/property-comb/app/tasks"
	"github.com/ashdean/property-comb/app/tracker"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Property Comb", "version", cfg.GetVersion())

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	areaLoader := areas.NewLoader(appCfg.AreasDir)
	areaConfigs, err := areaLoader.LoadAll()
	if err != nil {
		slog.Error("Failed to load area configurations", "dir", appCfg.AreasDir, "error", err)
		os.Exit(1)
	}
	enabledCount := 0
	for _, ac := range areaConfigs {
		if ac.IsEnabled() {
			enabledCount++
		}
	}
	slog.Info("Loaded area configurations", "total", len(areaConfigs), "enabled", enabledCount)

	listingRepo := database.NewListingRepository(db)

	listingScraper := scraper.NewScraper(scraper.Options{
		UserAgent:       appCfg.UserAgent,
		RequestTimeout:  time.Duration(appCfg.RequestTimeout) * time.Second,
		DelayMin:        time.Duration(appCfg.RequestDelayMin) * time.Second,
		DelayMax:        time.Duration(appCfg.RequestDelayMax) * time.Second,
		MaxPagesPerArea: appCfg.MaxPagesPerArea,
	})

	changeTracker := tracker.NewTracker(listingRepo,
		appCfg.PriceDropThreshold, appCfg.PriceRiseThreshold, appCfg.StaleListingDays)

	changeNotifier := notifier.NewNotifier(appCfg.NotificationBackend, appCfg.NtfyURL)
	exporter := export.NewExporter(listingRepo, appCfg.ExportDir, appCfg.ExtraCSVPath)
	reporter := export.NewDiscordReporter(appCfg.DiscordWebhookURL)
	tflClient := enrich.NewTfLClient(appCfg.TfLAppKey, appCfg.CommuteDest, appCfg.TfLArriveTime)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_minutes", appCfg.PollInterval)
	scheduler := tasks.NewScheduler(areaConfigs, listingScraper, changeTracker,
		changeNotifier, exporter, reporter, tflClient, listingRepo)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(listingRepo, scheduler, listingScraper,
		time.Duration(appCfg.PollInterval)*time.Minute)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey, cfg.GetVersion(), appCfg.Debug)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
