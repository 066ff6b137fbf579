package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashdean/property-comb/app/areas"
	"github.com/ashdean/property-comb/app/database"
)

const (
	baseURL       = "https://www.rightmove.co.uk"
	searchPath    = "/property-for-sale/find.html"
	typeaheadURL  = "https://api.rightmove.co.uk/api/typeAhead/uknoauth"
	pageSize      = 24
	rateLimitWait = 60 * time.Second
)

// userAgentPool holds realistic browser identities; one is chosen per
// request to reduce pattern-based blocking.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.6261.112 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.6261.112 Safari/537.36",
}

// Scraper fetches search-result pages from the listing source and converts
// them into normalized listing records
type Scraper struct {
	client          *http.Client
	userAgent       string
	delayMin        time.Duration
	delayMax        time.Duration
	maxPagesPerArea int
}

// Options configure a Scraper; zero values fall back to conservative
// defaults.
type Options struct {
	UserAgent       string
	RequestTimeout  time.Duration
	DelayMin        time.Duration
	DelayMax        time.Duration
	MaxPagesPerArea int
}

// NewScraper creates a scraper with its own cookie-less HTTP client
func NewScraper(opts Options) *Scraper {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxPagesPerArea == 0 {
		opts.MaxPagesPerArea = 20
	}
	return &Scraper{
		client:          &http.Client{Timeout: opts.RequestTimeout},
		userAgent:       opts.UserAgent,
		delayMin:        opts.DelayMin,
		delayMax:        opts.DelayMax,
		maxPagesPerArea: opts.MaxPagesPerArea,
	}
}

// ScrapeAll polls every enabled area and returns the combined batch of
// observed listings, in area order. Duplicates across overlapping areas are
// NOT removed here; batch deduplication is the tracker's job.
func (s *Scraper) ScrapeAll(ctx context.Context, configs map[string]*areas.AreaConfig) []database.ListingRecord {
	var batch []database.ListingRecord

	s.warmUp(ctx)

	first := true
	for _, cfg := range configs {
		if !cfg.IsEnabled() {
			slog.Debug("Area disabled, skipping", "area", cfg.Area.Name)
			continue
		}
		if !first {
			if err := s.delay(ctx); err != nil {
				return batch
			}
		}
		first = false

		records, err := s.scrapeArea(ctx, cfg)
		if err != nil {
			slog.Error("Failed to scrape area", "area", cfg.Area.Name, "error", err)
			continue
		}
		batch = append(batch, records...)
	}

	slog.Info("Scrape complete", "listings", len(batch))
	return batch
}

// scrapeArea fetches all result pages for one area
func (s *Scraper) scrapeArea(ctx context.Context, cfg *areas.AreaConfig) ([]database.ListingRecord, error) {
	slog.Info("Scraping area", "area", cfg.Area.Name, "identifier", cfg.Area.Identifier)

	var records []database.ListingRecord
	pageIndex := 0

	for {
		if pageIndex > 0 {
			if err := s.delay(ctx); err != nil {
				return records, err
			}
		}

		html, err := s.fetch(ctx, s.searchURL(cfg, pageIndex), baseURL+"/property-for-sale/")
		if err != nil {
			return records, fmt.Errorf("page at index %d: %w", pageIndex, err)
		}

		model := extractJSONModel(html)
		if model == nil {
			slog.Warn("No listing data in page, stopping area",
				"area", cfg.Area.Name, "index", pageIndex)
			break
		}
		if len(model.Properties) == 0 {
			break
		}

		if pageIndex == 0 {
			if total, err := model.ResultCount.Int64(); err == nil {
				slog.Info("Area result count", "area", cfg.Area.Name, "total", total)
			}
		}

		for _, raw := range model.Properties {
			if rec := parseProperty(raw, cfg); rec != nil {
				records = append(records, *rec)
			}
		}

		if model.Pagination.Next == nil {
			break
		}
		next, err := model.Pagination.Next.Int64()
		if err != nil || int(next) <= pageIndex {
			break
		}
		if int(next) >= s.maxPagesPerArea*pageSize {
			slog.Warn("Reached page cap for area",
				"area", cfg.Area.Name, "pages", s.maxPagesPerArea)
			break
		}
		pageIndex = int(next)
	}

	slog.Info("Area done", "area", cfg.Area.Name, "listings", len(records))
	return records, nil
}

// parseProperty converts one raw source property into a listing record,
// or nil when required fields are missing or the area filters reject it
func parseProperty(raw rawProperty, cfg *areas.AreaConfig) *database.ListingRecord {
	id := strings.TrimSpace(raw.ID.String())
	if id == "" {
		return nil
	}

	price, err := raw.Price.Amount.Int64()
	if err != nil || price <= 0 {
		return nil
	}

	tenure := parseTenure(raw.Tenure)
	if cfg.Filters.FilterFreehold && tenure == database.TenureLeasehold {
		return nil
	}

	propType := raw.PropertySubType
	if propType == "" {
		propType = raw.PropertyType
	}

	listingDate := raw.ListingUpdate.ListingUpdateDate
	if listingDate == "" {
		listingDate = raw.FirstVisibleDate
	}
	if i := strings.Index(listingDate, "T"); i >= 0 {
		listingDate = listingDate[:i]
	}

	propURL := raw.PropertyURL
	if propURL != "" && !strings.HasPrefix(propURL, "http") {
		propURL = baseURL + propURL
	}

	address := raw.DisplayAddress
	if address == "" {
		address = "Unknown"
	}

	return &database.ListingRecord{
		ListingID:    id,
		Address:      address,
		Price:        int(price),
		Bedrooms:     raw.Bedrooms,
		Bathrooms:    raw.Bathrooms,
		PropertyType: propType,
		Tenure:       tenure,
		Area:         cfg.Area.Name,
		ListingURL:   propURL,
		ListingDate:  listingDate,
		Latitude:     raw.Location.Latitude,
		Longitude:    raw.Location.Longitude,
	}
}

// parseTenure handles the source's two tenure encodings (object or string)
func parseTenure(raw []byte) string {
	if len(raw) == 0 {
		return database.TenureUnknown
	}

	var obj rawTenure
	if err := json.Unmarshal(raw, &obj); err == nil && obj.TenureType != "" {
		return database.NormalizeTenure(obj.TenureType)
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return database.NormalizeTenure(str)
	}

	return database.TenureUnknown
}

// searchURL builds the search results URL for one area and page index
func (s *Scraper) searchURL(cfg *areas.AreaConfig, index int) string {
	params := url.Values{}
	params.Set("locationIdentifier", cfg.Area.Identifier)
	params.Set("minBedrooms", fmt.Sprint(cfg.Filters.MinBedrooms))
	params.Set("maxBedrooms", fmt.Sprint(cfg.Filters.MaxBedrooms))
	params.Set("minPrice", fmt.Sprint(cfg.Filters.MinPrice))
	params.Set("maxPrice", fmt.Sprint(cfg.Filters.MaxPrice))
	params.Set("propertyTypes", strings.Join(cfg.Filters.PropertyTypes, ","))
	params.Set("dontShow", "newHome,sharedOwnership,retirement")
	params.Set("index", fmt.Sprint(index))
	return baseURL + searchPath + "?" + params.Encode()
}

// warmUp visits the homepage first; without it the source's bot detection
// often intercepts the first search request
func (s *Scraper) warmUp(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return
	}
	s.applyHeaders(req, "")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("Warm-up request failed, continuing anyway", "error", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	slog.Debug("Warm-up request done", "status", resp.StatusCode)

	sleepCtx(ctx, 2*time.Second+time.Duration(rand.Int63n(int64(2*time.Second))))
}

// fetch GETs a URL and returns the response body. A 429 triggers one long
// back-off retry; a 403 gives up immediately.
func (s *Scraper) fetch(ctx context.Context, rawURL, referer string) (string, error) {
	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to build request: %w", err)
		}
		s.applyHeaders(req, referer)

		resp, err := s.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			slog.Warn("Rate-limited by listing source, backing off",
				"attempt", attempt, "wait", rateLimitWait)
			if err := sleepCtx(ctx, rateLimitWait); err != nil {
				return "", err
			}
			continue
		}
		if resp.StatusCode == http.StatusForbidden {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return "", fmt.Errorf("blocked (403) fetching %s", rawURL)
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read response body: %w", err)
		}
		return string(body), nil
	}
	return "", fmt.Errorf("still rate-limited after retry: %s", rawURL)
}

// LookupLocation queries the source's typeahead API for a place name,
// returning identifier suggestions for area configuration files
func (s *Scraper) LookupLocation(ctx context.Context, query string) ([]LocationSuggestion, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("numberOfSuggestions", "5")
	params.Set("request_source", "WWW")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		typeaheadURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	s.applyHeaders(req, "")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("typeahead request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("typeahead returned status %d", resp.StatusCode)
	}

	var payload struct {
		TypeAheadLocations []LocationSuggestion `json:"typeAheadLocations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode typeahead response: %w", err)
	}

	return payload.TypeAheadLocations, nil
}

func (s *Scraper) applyHeaders(req *http.Request, referer string) {
	ua := s.userAgent
	if ua == "" {
		ua = userAgentPool[rand.Intn(len(userAgentPool))]
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if referer != "" {
		req.Header.Set("Referer", referer)
		req.Header.Set("Sec-Fetch-Site", "same-origin")
	}
}

// delay waits a randomized interval between requests, honoring cancellation
func (s *Scraper) delay(ctx context.Context) error {
	if s.delayMax <= s.delayMin {
		return sleepCtx(ctx, s.delayMin)
	}
	jitter := time.Duration(rand.Int63n(int64(s.delayMax - s.delayMin)))
	return sleepCtx(ctx, s.delayMin+jitter)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
