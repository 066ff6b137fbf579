package database

import "time"

// ListingRepository is the sole owner of persisted listing state and the
// per-listing price ledger. Nothing else mutates listings.
type ListingRepository interface {
	Upsert(rec ListingRecord) (UpsertResult, error)
	MarkRemoved(seen map[string]struct{}) ([]RemovedListing, error)
	GetStaleListings(minDays int) ([]Listing, error)

	GetAllListings(includeRemoved bool) ([]Listing, error)
	GetListing(listingID string) (*Listing, error)
	GetPriceHistory(listingID string) ([]PricePoint, error)

	SetWatchlist(listingID string, on bool) (bool, error)
	GetWatchlistListings() ([]Listing, error)

	GetListingsNeedingJourney(limit int) ([]Listing, error)
	SetJourneyMins(listingID string, mins int) error
	SetSquareFootage(listingID string, sqft int) error

	GetStats() (StatsSnapshot, error)
	GetLastObservedAt() (*time.Time, error)
}
