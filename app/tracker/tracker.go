package tracker

import (
	"fmt"
	"log/slog"

	"github.com/ashdean/property-comb/app/database"
)

// Tracker drives a batch of observed listings through the store and
// classifies what changed
type Tracker struct {
	repo          database.ListingRepository
	dropThreshold int
	riseThreshold int
	staleDays     int
}

// NewTracker creates a tracker. Thresholds are in whole currency units;
// zero means any movement qualifies.
func NewTracker(repo database.ListingRepository, dropThreshold, riseThreshold, staleDays int) *Tracker {
	return &Tracker{
		repo:          repo,
		dropThreshold: dropThreshold,
		riseThreshold: riseThreshold,
		staleDays:     staleDays,
	}
}

// Process persists one cycle's batch and returns the aggregated
// classification.
//
// Per-record upsert failures are logged and skipped; only a failure of the
// removal sweep or the stale query aborts, since those are whole-batch
// operations with no partial-failure interpretation. The sweep is fed every
// id observed in the batch whether or not its upsert succeeded: presence in
// the scrape is a fact about the market, not about the database write, and
// a transient write error must never masquerade as a de-listing.
func (t *Tracker) Process(batch []database.ListingRecord) (*ChangeReport, error) {
	report := &ChangeReport{}

	// One polling cycle can observe the same listing through overlapping
	// search scopes; the last record in batch order wins, which also
	// relabels the listing's area to the later scope.
	seen := make(map[string]struct{}, len(batch))
	order := make([]string, 0, len(batch))
	dedup := make(map[string]database.ListingRecord, len(batch))
	for _, rec := range batch {
		if _, ok := dedup[rec.ListingID]; !ok {
			order = append(order, rec.ListingID)
		}
		dedup[rec.ListingID] = rec
		seen[rec.ListingID] = struct{}{}
	}
	report.TotalSeen = len(dedup)

	for _, id := range order {
		rec := dedup[id]

		result, err := t.repo.Upsert(rec)
		if err != nil {
			slog.Error("Failed to upsert listing", "listing_id", id, "error", err)
			continue
		}

		switch {
		case result.IsNew:
			report.New = append(report.New, rec)
			slog.Info("New listing", "address", rec.Address, "price", rec.Price,
				"area", rec.Area)

		case result.PriceDrop != nil:
			reduction := result.PriceDrop.OldPrice - result.PriceDrop.NewPrice
			if reduction >= t.dropThreshold {
				report.PriceDrops = append(report.PriceDrops, PriceMovement{
					Record:   rec,
					OldPrice: result.PriceDrop.OldPrice,
					NewPrice: result.PriceDrop.NewPrice,
				})
				slog.Info("Price drop", "address", rec.Address,
					"old", result.PriceDrop.OldPrice, "new", result.PriceDrop.NewPrice)
			}

		case result.PriceRise != nil:
			increase := result.PriceRise.NewPrice - result.PriceRise.OldPrice
			if increase >= t.riseThreshold {
				report.PriceRises = append(report.PriceRises, PriceMovement{
					Record:   rec,
					OldPrice: result.PriceRise.OldPrice,
					NewPrice: result.PriceRise.NewPrice,
				})
				slog.Info("Price rise", "address", rec.Address,
					"old", result.PriceRise.OldPrice, "new", result.PriceRise.NewPrice)
			}
		}
	}

	removed, err := t.repo.MarkRemoved(seen)
	if err != nil {
		return nil, fmt.Errorf("removal sweep failed: %w", err)
	}
	report.Removed = removed

	stale, err := t.repo.GetStaleListings(t.staleDays)
	if err != nil {
		return nil, fmt.Errorf("stale listing detection failed: %w", err)
	}
	report.Stale = stale
	for _, l := range stale {
		if l.DaysOnMarket != nil &&
			*l.DaysOnMarket >= t.staleDays && *l.DaysOnMarket < t.staleDays+2 {
			report.NewlyStale = append(report.NewlyStale, l)
		}
	}

	slog.Info("Tracker cycle complete",
		"new", len(report.New),
		"drops", len(report.PriceDrops),
		"rises", len(report.PriceRises),
		"removed", len(report.Removed),
		"stale", len(report.Stale),
		"total_seen", report.TotalSeen)

	return report, nil
}
