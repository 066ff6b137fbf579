package database

import (
	"time"
)

const (
	StatusActive  = "active"
	StatusRemoved = "removed"
)

const (
	TenureFreehold        = "freehold"
	TenureLeasehold       = "leasehold"
	TenureShareOfFreehold = "share_of_freehold"
	TenureUnknown         = "unknown"
)

// Listing represents one row of the listings table, optionally augmented
// with derived columns (initial price, ledger size, days on market)
// depending on which query produced it.
type Listing struct {
	ListingID    string    `json:"listing_id"`
	Address      string    `json:"address"`
	Price        int       `json:"price"`
	Bedrooms     *int      `json:"bedrooms"`
	Bathrooms    *int      `json:"bathrooms"`
	PropertyType string    `json:"property_type"`
	Tenure       string    `json:"tenure"`
	Area         string    `json:"area"`
	ListingURL   string    `json:"listing_url"`
	ListingDate  string    `json:"listing_date"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	Status       string    `json:"status"`
	Watchlist    bool      `json:"watchlist"`

	// Enrichment fields, present only once backfilled
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	SqFootage   *int     `json:"sq_footage,omitempty"`
	JourneyMins *int     `json:"journey_mins,omitempty"`

	// Derived
	InitialPrice      *int `json:"initial_price,omitempty"`
	PriceHistoryCount int  `json:"price_history_count"`
	DaysOnMarket      *int `json:"days_on_market,omitempty"`
}

// PricePoint is one entry of a listing's price ledger
type PricePoint struct {
	Price      int       `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RemovedListing is a pre-removal snapshot of a listing returned by the
// removal sweep, for reporting. DaysOnMarket is nil when the stored
// first_seen timestamp cannot be parsed.
type RemovedListing struct {
	Listing
}

// StatsSnapshot holds aggregate counts for the stats endpoint
type StatsSnapshot struct {
	Active       int
	Removed      int
	Watchlist    int
	PriceChanges int
}
