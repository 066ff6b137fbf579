package tracker

import (
	"github.com/ashdean/property-comb/app/database"
)

// PriceMovement pairs a listing observation with its old and new price
type PriceMovement struct {
	Record   database.ListingRecord
	OldPrice int
	NewPrice int
}

// ChangeReport aggregates everything one poll cycle changed.
//
// New, PriceDrops and PriceRises are mutually exclusive per listing within a
// cycle; Removed comes from the post-batch sweep; Stale lists every active
// listing past the configured age with an unchanged price, and NewlyStale
// the subset that crossed the threshold within the last two days (so a
// notifier fires once, not every cycle).
type ChangeReport struct {
	New        []database.ListingRecord
	PriceDrops []PriceMovement
	PriceRises []PriceMovement
	Removed    []database.RemovedListing
	Stale      []database.Listing
	NewlyStale []database.Listing
	TotalSeen  int
}

// HasChanges reports whether the cycle produced anything worth notifying
func (r *ChangeReport) HasChanges() bool {
	return len(r.New) > 0 || len(r.PriceDrops) > 0 || len(r.PriceRises) > 0 ||
		len(r.Removed) > 0 || len(r.NewlyStale) > 0
}
