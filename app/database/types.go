package database

import (
	"fmt"
	"strings"
	"time"
)

// ListingRecord is one normalized observation of a listing, as delivered by
// the scrape layer. The store owns first_seen / last_seen / status and never
// accepts them from callers.
type ListingRecord struct {
	ListingID    string
	Address      string
	Price        int
	Bedrooms     *int
	Bathrooms    *int
	PropertyType string
	Tenure       string
	Area         string
	ListingURL   string
	ListingDate  string

	// Optional enrichment inputs; a present stored value is never
	// clobbered by an absent incoming one.
	Latitude  *float64
	Longitude *float64
	SqFootage *int
}

// Validate reports whether the record carries the minimum required fields
func (r *ListingRecord) Validate() error {
	if strings.TrimSpace(r.ListingID) == "" {
		return fmt.Errorf("listing_id is required")
	}
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("address is required (listing %s)", r.ListingID)
	}
	if r.Price <= 0 {
		return fmt.Errorf("price must be positive, got %d (listing %s)", r.Price, r.ListingID)
	}
	return nil
}

// NormalizeTenure maps source tenure strings onto the known set,
// defaulting to unknown.
func NormalizeTenure(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "freehold":
		return TenureFreehold
	case "leasehold":
		return TenureLeasehold
	case "share of freehold", "share_of_freehold":
		return TenureShareOfFreehold
	default:
		return TenureUnknown
	}
}

// PriceChange holds the before/after prices of a single price movement
type PriceChange struct {
	OldPrice int
	NewPrice int
}

// UpsertResult classifies the effect of a single upsert. At most one of
// PriceDrop / PriceRise is non-nil, and both are nil for new listings.
type UpsertResult struct {
	IsNew     bool
	PriceDrop *PriceChange
	PriceRise *PriceChange
}

// Timestamps are stored as UTC RFC3339 text with millisecond precision,
// a form both time.Parse and SQLite's date functions understand.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
