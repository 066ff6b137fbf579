package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashdean/property-comb/app/areas"
	"github.com/ashdean/property-comb/app/database"
	"github.com/ashdean/property-comb/app/export"
	"github.com/ashdean/property-comb/app/notifier"
	"github.com/ashdean/property-comb/app/scraper"
	"github.com/ashdean/property-comb/app/tracker"
)

// PollCycleTask runs one full poll: scrape every enabled area, classify the
// changes against the store, notify, and refresh the CSV snapshot. The guard
// channel ensures only one cycle runs at a time; an overlapping cycle is
// skipped rather than queued up.
type PollCycleTask struct {
	Task
	areaConfigs map[string]*areas.AreaConfig
	scraper     *scraper.Scraper
	tracker     *tracker.Tracker
	notifier    *notifier.Notifier
	exporter    *export.Exporter
	reporter    *export.DiscordReporter
	repo        database.ListingRepository
	guard       chan struct{}
}

func NewPollCycleTask(areaConfigs map[string]*areas.AreaConfig, sc *scraper.Scraper,
	tr *tracker.Tracker, nt *notifier.Notifier, ex *export.Exporter,
	reporter *export.DiscordReporter, repo database.ListingRepository,
	guard chan struct{}) *PollCycleTask {
	return &PollCycleTask{
		Task:        NewTask(TaskTypePollCycle),
		areaConfigs: areaConfigs,
		scraper:     sc,
		tracker:     tr,
		notifier:    nt,
		exporter:    ex,
		reporter:    reporter,
		repo:        repo,
		guard:       guard,
	}
}

func (t *PollCycleTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case t.guard <- struct{}{}:
		defer func() { <-t.guard }()
	default:
		slog.Warn("Poll cycle already in progress, skipping", "id", t.ID)
		return nil
	}

	enabledCount := 0
	for _, cfg := range t.areaConfigs {
		if cfg.IsEnabled() {
			enabledCount++
		}
	}
	if enabledCount == 0 {
		slog.Warn("No enabled areas configured, skipping poll cycle")
		return nil
	}

	records := t.scraper.ScrapeAll(ctx, t.areaConfigs)

	// An empty result across all enabled areas means the site blocked or
	// broke us. Running the removal sweep on it would mark every listing
	// removed, so bail out instead.
	if len(records) == 0 {
		return fmt.Errorf("scrape returned no listings for %d enabled areas", enabledCount)
	}

	report, err := t.tracker.Process(records)
	if err != nil {
		return fmt.Errorf("failed to process scraped listings: %w", err)
	}

	t.notifier.NotifyReport(report)

	if _, err := t.exporter.WriteCSV(); err != nil {
		slog.Error("CSV export failed", "error", err)
	}

	if t.reporter.Enabled() {
		stats, err := t.repo.GetStats()
		if err != nil {
			slog.Error("Failed to load stats for run report", "error", err)
		} else if err := t.reporter.SendRunReport(ctx, report, stats); err != nil {
			slog.Error("Failed to send run report", "error", err)
		}
	}

	slog.Info("Task completed",
		"type", "PollCycle",
		"duration", t.GetDuration(),
		"seen", report.TotalSeen,
		"new", len(report.New),
		"price_drops", len(report.PriceDrops),
		"price_rises", len(report.PriceRises),
		"removed", len(report.Removed),
		"newly_stale", len(report.NewlyStale))

	return nil
}
