package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashdean/property-comb/app/database"
	"github.com/ashdean/property-comb/app/enrich"
)

// EnrichJourneyTask backfills commute times for active listings that have
// coordinates but no journey time yet, a bounded batch per run.
type EnrichJourneyTask struct {
	Task
	tfl       *enrich.TfLClient
	repo      database.ListingRepository
	maxPerRun int
}

func NewEnrichJourneyTask(tfl *enrich.TfLClient, repo database.ListingRepository, maxPerRun int) *EnrichJourneyTask {
	return &EnrichJourneyTask{
		Task:      NewTask(TaskTypeEnrichJourney),
		tfl:       tfl,
		repo:      repo,
		maxPerRun: maxPerRun,
	}
}

func (t *EnrichJourneyTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.tfl.Enabled() {
		slog.Debug("Journey enrichment disabled, skipping")
		return nil
	}

	listings, err := t.repo.GetListingsNeedingJourney(t.maxPerRun)
	if err != nil {
		return fmt.Errorf("failed to load listings needing journey times: %w", err)
	}
	if len(listings) == 0 {
		return nil
	}

	enriched := 0
	for _, l := range listings {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if l.Latitude == nil || l.Longitude == nil {
			continue
		}

		mins := t.tfl.GetJourneyMins(ctx, *l.Latitude, *l.Longitude)
		if mins == nil {
			slog.Warn("No journey time found", "listing_id", l.ListingID, "address", l.Address)
			continue
		}

		if err := t.repo.SetJourneyMins(l.ListingID, *mins); err != nil {
			slog.Error("Failed to store journey time", "listing_id", l.ListingID, "error", err)
			continue
		}
		enriched++
	}

	slog.Info("Task completed",
		"type", "EnrichJourney",
		"duration", t.GetDuration(),
		"candidates", len(listings),
		"enriched", enriched)

	return nil
}
