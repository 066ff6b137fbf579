package api

import (
	"context"
	"time"

	"github.com/ashdean/property-comb/app/database"
	"github.com/ashdean/property-comb/app/scraper"
	"github.com/ashdean/property-comb/app/tasks"
)

// LocationLookup resolves place names to listing source identifiers
type LocationLookup interface {
	LookupLocation(ctx context.Context, query string) ([]scraper.LocationSuggestion, error)
}

var _ LocationLookup = (*scraper.Scraper)(nil)

type Handler struct {
	repo         database.ListingRepository
	scheduler    tasks.TaskSchedulerInterface
	lookup       LocationLookup
	pollInterval time.Duration
	startedAt    time.Time
}

type setSqFootageRequest struct {
	SqFootage int `json:"sq_footage" binding:"required,gt=0"`
}
