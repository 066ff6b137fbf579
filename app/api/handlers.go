package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashdean/property-comb/app/database"
	"github.com/ashdean/property-comb/app/tasks"
)

func NewHandler(repo database.ListingRepository, scheduler tasks.TaskSchedulerInterface,
	lookup LocationLookup, pollInterval time.Duration) *Handler {
	return &Handler{
		repo:         repo,
		scheduler:    scheduler,
		lookup:       lookup,
		pollInterval: pollInterval,
		startedAt:    time.Now(),
	}
}

// GetHealth reports service health. The poll cycle acts as a watchdog: when
// nothing has been observed for more than two poll intervals the status
// degrades to "stale" with a 503, so an external monitor can alert on it.
func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	}

	status := "ok"
	code := http.StatusOK

	if stats, err := h.repo.GetStats(); err == nil {
		health["active_listings"] = stats.Active
		health["removed_listings"] = stats.Removed
	}

	lastObserved, err := h.repo.GetLastObservedAt()
	if err != nil {
		slog.Error("Database error", "operation", "get_last_observed", "error", err)
		status = "error"
		code = http.StatusServiceUnavailable
	} else if lastObserved != nil {
		age := time.Since(*lastObserved)
		health["last_observed_at"] = lastObserved.UTC().Format(time.RFC3339)
		health["last_observed_age"] = age.Round(time.Second).String()
		if age > 2*h.pollInterval {
			status = "stale"
			code = http.StatusServiceUnavailable
		}
	}

	health["status"] = status
	c.JSON(code, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":        stats.Active,
		"removed":       stats.Removed,
		"watchlist":     stats.Watchlist,
		"price_changes": stats.PriceChanges,
	})
}

func (h *Handler) ListListings(c *gin.Context) {
	includeRemoved := c.Query("include_removed") == "true"

	listings, err := h.repo.GetAllListings(includeRemoved)
	if err != nil {
		slog.Error("Database error", "operation", "get_all_listings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": listings,
		"total":    len(listings),
	})
}

func (h *Handler) GetListing(c *gin.Context) {
	id := c.Param("id")

	listing, err := h.repo.GetListing(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_listing", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listing"})
		return
	}
	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *Handler) GetPriceHistory(c *gin.Context) {
	id := c.Param("id")

	listing, err := h.repo.GetListing(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_listing", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listing"})
		return
	}
	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	history, err := h.repo.GetPriceHistory(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_price_history", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load price history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing_id": id,
		"address":    listing.Address,
		"history":    history,
	})
}

func (h *Handler) APIGetWatchlist(c *gin.Context) {
	listings, err := h.repo.GetWatchlistListings()
	if err != nil {
		slog.Error("Database error", "operation", "get_watchlist", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": listings,
		"total":    len(listings),
	})
}

func (h *Handler) APIAddToWatchlist(c *gin.Context) {
	h.setWatchlist(c, true)
}

func (h *Handler) APIRemoveFromWatchlist(c *gin.Context) {
	h.setWatchlist(c, false)
}

func (h *Handler) setWatchlist(c *gin.Context, watchlisted bool) {
	id := c.Param("id")

	found, err := h.repo.SetWatchlist(id, watchlisted)
	if err != nil {
		slog.Error("Database error", "operation", "set_watchlist", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update watchlist"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing_id":  id,
		"watchlisted": watchlisted,
	})
}

func (h *Handler) APISetSqFootage(c *gin.Context) {
	id := c.Param("id")

	var req setSqFootageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sq_footage must be a positive integer"})
		return
	}

	listing, err := h.repo.GetListing(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_listing", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listing"})
		return
	}
	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	if err := h.repo.SetSquareFootage(id, req.SqFootage); err != nil {
		slog.Error("Database error", "operation", "set_sq_footage", "listing_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update square footage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing_id": id,
		"sq_footage": req.SqFootage,
	})
}

// APILookupLocation resolves a place name to location identifiers suitable
// for area configuration files.
func (h *Handler) APILookupLocation(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter required"})
		return
	}

	suggestions, err := h.lookup.LookupLocation(c.Request.Context(), query)
	if err != nil {
		slog.Error("Location lookup failed", "query", query, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Location lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":       query,
		"suggestions": suggestions,
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if err := h.scheduler.TriggerPollCycle(); err != nil {
		slog.Error("Failed to enqueue poll cycle", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue poll cycle"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "poll cycle enqueued"})
}

func (h *Handler) APITriggerExport(c *gin.Context) {
	if err := h.scheduler.TriggerExportReport(); err != nil {
		slog.Error("Failed to enqueue report export", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue report export"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "report export enqueued"})
}
