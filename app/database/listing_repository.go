package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ListingRepositoryImpl handles database operations for listings and their
// price ledgers
type ListingRepositoryImpl struct {
	db *DB
}

var _ ListingRepository = (*ListingRepositoryImpl)(nil)

// NewListingRepository creates a new listing repository
func NewListingRepository(db *DB) *ListingRepositoryImpl {
	return &ListingRepositoryImpl{db: db}
}

// Upsert inserts a new listing or updates an existing one, maintaining the
// append-only price ledger. The whole operation runs in one transaction:
// either every write lands or none do.
//
// A ledger row is appended only when the incoming price differs from the
// stored price, so re-observing an unchanged listing is a ledger no-op.
func (r *ListingRepositoryImpl) Upsert(rec ListingRecord) (UpsertResult, error) {
	var result UpsertResult

	if err := rec.Validate(); err != nil {
		return result, fmt.Errorf("invalid listing record: %w", err)
	}
	rec.Tenure = NormalizeTenure(rec.Tenure)

	now := formatTime(time.Now())

	tx, err := r.db.Begin()
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldPrice int
	err = tx.QueryRow(
		"SELECT price FROM listings WHERE listing_id = ?", rec.ListingID,
	).Scan(&oldPrice)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`
			INSERT INTO listings (
				listing_id, address, price, bedrooms, bathrooms,
				property_type, tenure, area, listing_url, listing_date,
				first_seen, last_seen, status,
				latitude, longitude, sq_footage
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?, ?, ?)
		`, rec.ListingID, rec.Address, rec.Price, rec.Bedrooms, rec.Bathrooms,
			rec.PropertyType, rec.Tenure, rec.Area, rec.ListingURL, rec.ListingDate,
			now, now, rec.Latitude, rec.Longitude, rec.SqFootage)
		if err != nil {
			return result, fmt.Errorf("failed to insert listing %s: %w", rec.ListingID, err)
		}

		_, err = tx.Exec(
			"INSERT INTO price_history (listing_id, price, recorded_at) VALUES (?, ?, ?)",
			rec.ListingID, rec.Price, now)
		if err != nil {
			return result, fmt.Errorf("failed to seed price history for %s: %w", rec.ListingID, err)
		}

		result.IsNew = true

	case err != nil:
		return result, fmt.Errorf("failed to look up listing %s: %w", rec.ListingID, err)

	default:
		if rec.Price != oldPrice {
			_, err = tx.Exec(
				"INSERT INTO price_history (listing_id, price, recorded_at) VALUES (?, ?, ?)",
				rec.ListingID, rec.Price, now)
			if err != nil {
				return result, fmt.Errorf("failed to append price history for %s: %w", rec.ListingID, err)
			}

			if rec.Price < oldPrice {
				result.PriceDrop = &PriceChange{OldPrice: oldPrice, NewPrice: rec.Price}
			} else {
				result.PriceRise = &PriceChange{OldPrice: oldPrice, NewPrice: rec.Price}
			}
		}

		// Enrichment columns keep their stored value when the incoming
		// record carries none; everything else is last-write-wins.
		_, err = tx.Exec(`
			UPDATE listings
			SET address       = ?,
			    price         = ?,
			    bedrooms      = ?,
			    bathrooms     = ?,
			    property_type = ?,
			    tenure        = ?,
			    area          = ?,
			    listing_url   = ?,
			    last_seen     = ?,
			    status        = 'active',
			    latitude      = COALESCE(?, latitude),
			    longitude     = COALESCE(?, longitude),
			    sq_footage    = COALESCE(?, sq_footage)
			WHERE listing_id = ?
		`, rec.Address, rec.Price, rec.Bedrooms, rec.Bathrooms,
			rec.PropertyType, rec.Tenure, rec.Area, rec.ListingURL, now,
			rec.Latitude, rec.Longitude, rec.SqFootage, rec.ListingID)
		if err != nil {
			return result, fmt.Errorf("failed to update listing %s: %w", rec.ListingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit upsert for %s: %w", rec.ListingID, err)
	}

	return result, nil
}

// MarkRemoved flips every active listing absent from seen to removed and
// returns pre-flip snapshots. The active-id read and the flip happen inside
// one transaction, and the flip itself is a single batched statement, so an
// interrupted sweep never leaves a partially-removed state.
func (r *ListingRepositoryImpl) MarkRemoved(seen map[string]struct{}) ([]RemovedListing, error) {
	now := time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT listing_id, address, price, bedrooms, bathrooms,
		       COALESCE(property_type, ''), tenure, COALESCE(area, ''),
		       COALESCE(listing_url, ''), COALESCE(listing_date, ''),
		       first_seen, last_seen, watchlist,
		       latitude, longitude, sq_footage, journey_mins
		FROM listings
		WHERE status = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read active listings: %w", err)
	}

	var removed []RemovedListing
	for rows.Next() {
		var l Listing
		var bedrooms, bathrooms, sqft, journey sql.NullInt64
		var lat, lng sql.NullFloat64
		var firstSeen, lastSeen string

		err := rows.Scan(&l.ListingID, &l.Address, &l.Price, &bedrooms, &bathrooms,
			&l.PropertyType, &l.Tenure, &l.Area, &l.ListingURL, &l.ListingDate,
			&firstSeen, &lastSeen, &l.Watchlist, &lat, &lng, &sqft, &journey)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan active listing: %w", err)
		}

		if _, ok := seen[l.ListingID]; ok {
			continue
		}

		l.Status = StatusActive
		applyNullables(&l, bedrooms, bathrooms, sqft, journey, lat, lng)

		// days_on_market is best-effort: removal reporting must not
		// fail on an unparseable timestamp.
		if first, err := parseTime(firstSeen); err == nil {
			l.FirstSeen = first
			days := int(now.Sub(first).Hours() / 24)
			l.DaysOnMarket = &days
		}
		if last, err := parseTime(lastSeen); err == nil {
			l.LastSeen = last
		}

		removed = append(removed, RemovedListing{Listing: l})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating active listings: %w", err)
	}
	rows.Close()

	if len(removed) > 0 {
		placeholders := make([]string, len(removed))
		args := make([]interface{}, 0, len(removed)+1)
		args = append(args, formatTime(now))
		for i, l := range removed {
			placeholders[i] = "?"
			args = append(args, l.ListingID)
		}

		_, err = tx.Exec(fmt.Sprintf(
			"UPDATE listings SET status = 'removed', last_seen = ? WHERE listing_id IN (%s)",
			strings.Join(placeholders, ",")), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to mark listings removed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit removal sweep: %w", err)
	}

	return removed, nil
}

// GetStaleListings returns active listings whose price still equals the first
// ledger entry and that have been on the market for at least minDays days,
// oldest first. Read-only.
func (r *ListingRepositoryImpl) GetStaleListings(minDays int) ([]Listing, error) {
	rows, err := r.db.Query(`
		SELECT l.listing_id, l.address, l.price, l.bedrooms, l.bathrooms,
		       COALESCE(l.property_type, ''), l.tenure, COALESCE(l.area, ''),
		       COALESCE(l.listing_url, ''), COALESCE(l.listing_date, ''),
		       l.first_seen, l.last_seen, l.status, l.watchlist,
		       l.latitude, l.longitude, l.sq_footage, l.journey_mins,
		       ph_first.price AS initial_price,
		       CAST(julianday('now') - julianday(l.first_seen) AS INTEGER) AS days_on_market
		FROM listings l
		LEFT JOIN (
			SELECT listing_id, price
			FROM price_history
			WHERE id IN (SELECT MIN(id) FROM price_history GROUP BY listing_id)
		) ph_first ON ph_first.listing_id = l.listing_id
		WHERE l.status = 'active'
		  AND l.price = COALESCE(ph_first.price, l.price)
		  AND CAST(julianday('now') - julianday(l.first_seen) AS INTEGER) >= ?
		ORDER BY l.first_seen ASC
	`, minDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale listings: %w", err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		var bedrooms, bathrooms, sqft, journey, initialPrice sql.NullInt64
		var lat, lng sql.NullFloat64
		var firstSeen, lastSeen string
		var days int

		err := rows.Scan(&l.ListingID, &l.Address, &l.Price, &bedrooms, &bathrooms,
			&l.PropertyType, &l.Tenure, &l.Area, &l.ListingURL, &l.ListingDate,
			&firstSeen, &lastSeen, &l.Status, &l.Watchlist,
			&lat, &lng, &sqft, &journey, &initialPrice, &days)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale listing: %w", err)
		}

		applyNullables(&l, bedrooms, bathrooms, sqft, journey, lat, lng)
		applyTimestamps(&l, firstSeen, lastSeen)
		if initialPrice.Valid {
			v := int(initialPrice.Int64)
			l.InitialPrice = &v
		}
		l.DaysOnMarket = &days

		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale listings: %w", err)
	}

	return listings, nil
}

// GetAllListings returns every listing augmented with its initial ledger
// price and ledger size. Active listings sort before removed ones, each
// group newest-first.
func (r *ListingRepositoryImpl) GetAllListings(includeRemoved bool) ([]Listing, error) {
	statusFilter := ""
	if !includeRemoved {
		statusFilter = "WHERE l.status = 'active'"
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT l.listing_id, l.address, l.price, l.bedrooms, l.bathrooms,
		       COALESCE(l.property_type, ''), l.tenure, COALESCE(l.area, ''),
		       COALESCE(l.listing_url, ''), COALESCE(l.listing_date, ''),
		       l.first_seen, l.last_seen, l.status, l.watchlist,
		       l.latitude, l.longitude, l.sq_footage, l.journey_mins,
		       ph_first.price AS initial_price,
		       COALESCE(ph_count.n, 0) AS price_history_count
		FROM listings l
		LEFT JOIN (
			SELECT listing_id, price
			FROM price_history
			WHERE id IN (SELECT MIN(id) FROM price_history GROUP BY listing_id)
		) ph_first ON ph_first.listing_id = l.listing_id
		LEFT JOIN (
			SELECT listing_id, COUNT(*) AS n
			FROM price_history
			GROUP BY listing_id
		) ph_count ON ph_count.listing_id = l.listing_id
		%s
		ORDER BY
			CASE l.status WHEN 'active' THEN 0 ELSE 1 END ASC,
			l.first_seen DESC
	`, statusFilter))
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	return scanListingRows(rows)
}

// GetListing returns one listing with its initial price, or nil if unknown
func (r *ListingRepositoryImpl) GetListing(listingID string) (*Listing, error) {
	rows, err := r.db.Query(`
		SELECT l.listing_id, l.address, l.price, l.bedrooms, l.bathrooms,
		       COALESCE(l.property_type, ''), l.tenure, COALESCE(l.area, ''),
		       COALESCE(l.listing_url, ''), COALESCE(l.listing_date, ''),
		       l.first_seen, l.last_seen, l.status, l.watchlist,
		       l.latitude, l.longitude, l.sq_footage, l.journey_mins,
		       ph_first.price AS initial_price,
		       COALESCE(ph_count.n, 0) AS price_history_count
		FROM listings l
		LEFT JOIN (
			SELECT listing_id, price
			FROM price_history
			WHERE id IN (SELECT MIN(id) FROM price_history GROUP BY listing_id)
		) ph_first ON ph_first.listing_id = l.listing_id
		LEFT JOIN (
			SELECT listing_id, COUNT(*) AS n
			FROM price_history
			GROUP BY listing_id
		) ph_count ON ph_count.listing_id = l.listing_id
		WHERE l.listing_id = ?
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query listing %s: %w", listingID, err)
	}
	defer rows.Close()

	listings, err := scanListingRows(rows)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}
	return &listings[0], nil
}

// GetPriceHistory returns the full price ledger for one listing, oldest first
func (r *ListingRepositoryImpl) GetPriceHistory(listingID string) ([]PricePoint, error) {
	rows, err := r.db.Query(`
		SELECT price, recorded_at
		FROM price_history
		WHERE listing_id = ?
		ORDER BY id ASC
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for %s: %w", listingID, err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		var recordedAt string
		if err := rows.Scan(&p.Price, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		if t, err := parseTime(recordedAt); err == nil {
			p.RecordedAt = t
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}

	return points, nil
}

// SetWatchlist adds or removes a listing from the watchlist. Returns false
// when the listing does not exist.
func (r *ListingRepositoryImpl) SetWatchlist(listingID string, on bool) (bool, error) {
	flag := 0
	if on {
		flag = 1
	}

	res, err := r.db.Exec(
		"UPDATE listings SET watchlist = ? WHERE listing_id = ?", flag, listingID)
	if err != nil {
		return false, fmt.Errorf("failed to update watchlist for %s: %w", listingID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// GetWatchlistListings returns all watchlisted listings, newest first
func (r *ListingRepositoryImpl) GetWatchlistListings() ([]Listing, error) {
	rows, err := r.db.Query(`
		SELECT l.listing_id, l.address, l.price, l.bedrooms, l.bathrooms,
		       COALESCE(l.property_type, ''), l.tenure, COALESCE(l.area, ''),
		       COALESCE(l.listing_url, ''), COALESCE(l.listing_date, ''),
		       l.first_seen, l.last_seen, l.status, l.watchlist,
		       l.latitude, l.longitude, l.sq_footage, l.journey_mins,
		       ph_first.price AS initial_price,
		       COALESCE(ph_count.n, 0) AS price_history_count
		FROM listings l
		LEFT JOIN (
			SELECT listing_id, price
			FROM price_history
			WHERE id IN (SELECT MIN(id) FROM price_history GROUP BY listing_id)
		) ph_first ON ph_first.listing_id = l.listing_id
		LEFT JOIN (
			SELECT listing_id, COUNT(*) AS n
			FROM price_history
			GROUP BY listing_id
		) ph_count ON ph_count.listing_id = l.listing_id
		WHERE l.watchlist = 1
		ORDER BY l.first_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	return scanListingRows(rows)
}

// GetListingsNeedingJourney returns active listings with coordinates but no
// journey time yet, newest first
func (r *ListingRepositoryImpl) GetListingsNeedingJourney(limit int) ([]Listing, error) {
	rows, err := r.db.Query(`
		SELECT l.listing_id, l.address, l.price, l.bedrooms, l.bathrooms,
		       COALESCE(l.property_type, ''), l.tenure, COALESCE(l.area, ''),
		       COALESCE(l.listing_url, ''), COALESCE(l.listing_date, ''),
		       l.first_seen, l.last_seen, l.status, l.watchlist,
		       l.latitude, l.longitude, l.sq_footage, l.journey_mins,
		       NULL AS initial_price,
		       0 AS price_history_count
		FROM listings l
		WHERE l.status = 'active'
		  AND l.latitude IS NOT NULL
		  AND l.longitude IS NOT NULL
		  AND l.journey_mins IS NULL
		ORDER BY l.first_seen DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings needing journey: %w", err)
	}
	defer rows.Close()

	return scanListingRows(rows)
}

// SetJourneyMins records the commute journey time for one listing
func (r *ListingRepositoryImpl) SetJourneyMins(listingID string, mins int) error {
	_, err := r.db.Exec(
		"UPDATE listings SET journey_mins = ? WHERE listing_id = ?", mins, listingID)
	if err != nil {
		return fmt.Errorf("failed to set journey time for %s: %w", listingID, err)
	}
	return nil
}

// SetSquareFootage records the floor area for one listing
func (r *ListingRepositoryImpl) SetSquareFootage(listingID string, sqft int) error {
	_, err := r.db.Exec(
		"UPDATE listings SET sq_footage = ? WHERE listing_id = ?", sqft, listingID)
	if err != nil {
		return fmt.Errorf("failed to set square footage for %s: %w", listingID, err)
	}
	return nil
}

// GetStats returns aggregate listing and ledger counts
func (r *ListingRepositoryImpl) GetStats() (StatsSnapshot, error) {
	var stats StatsSnapshot

	err := r.db.QueryRow(`
		SELECT
			SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'removed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN watchlist = 1 THEN 1 ELSE 0 END)
		FROM listings
	`).Scan(&nullInt{&stats.Active}, &nullInt{&stats.Removed}, &nullInt{&stats.Watchlist})
	if err != nil {
		return stats, fmt.Errorf("failed to get listing stats: %w", err)
	}

	// Every ledger row beyond a listing's first is a recorded price change.
	err = r.db.QueryRow(
		"SELECT COUNT(*) - COUNT(DISTINCT listing_id) FROM price_history",
	).Scan(&stats.PriceChanges)
	if err != nil {
		return stats, fmt.Errorf("failed to get price change count: %w", err)
	}

	return stats, nil
}

// GetLastObservedAt returns the most recent last_seen timestamp across all
// listings, or nil for an empty store
func (r *ListingRepositoryImpl) GetLastObservedAt() (*time.Time, error) {
	var raw sql.NullString
	err := r.db.QueryRow("SELECT MAX(last_seen) FROM listings").Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read last observation time: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}

	t, err := parseTime(raw.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last observation time %q: %w", raw.String, err)
	}
	return &t, nil
}

// nullInt scans a nullable aggregate into an int, treating NULL as zero
type nullInt struct {
	dest *int
}

func (n *nullInt) Scan(src interface{}) error {
	if src == nil {
		*n.dest = 0
		return nil
	}
	switch v := src.(type) {
	case int64:
		*n.dest = int(v)
		return nil
	default:
		return fmt.Errorf("unexpected aggregate type %T", src)
	}
}

func applyNullables(l *Listing, bedrooms, bathrooms, sqft, journey sql.NullInt64, lat, lng sql.NullFloat64) {
	if bedrooms.Valid {
		v := int(bedrooms.Int64)
		l.Bedrooms = &v
	}
	if bathrooms.Valid {
		v := int(bathrooms.Int64)
		l.Bathrooms = &v
	}
	if sqft.Valid {
		v := int(sqft.Int64)
		l.SqFootage = &v
	}
	if journey.Valid {
		v := int(journey.Int64)
		l.JourneyMins = &v
	}
	if lat.Valid {
		v := lat.Float64
		l.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		l.Longitude = &v
	}
}

func applyTimestamps(l *Listing, firstSeen, lastSeen string) {
	if t, err := parseTime(firstSeen); err == nil {
		l.FirstSeen = t
	}
	if t, err := parseTime(lastSeen); err == nil {
		l.LastSeen = t
	}
}

func scanListingRows(rows *sql.Rows) ([]Listing, error) {
	var listings []Listing
	for rows.Next() {
		var l Listing
		var bedrooms, bathrooms, sqft, journey, initialPrice sql.NullInt64
		var lat, lng sql.NullFloat64
		var firstSeen, lastSeen string

		err := rows.Scan(&l.ListingID, &l.Address, &l.Price, &bedrooms, &bathrooms,
			&l.PropertyType, &l.Tenure, &l.Area, &l.ListingURL, &l.ListingDate,
			&firstSeen, &lastSeen, &l.Status, &l.Watchlist,
			&lat, &lng, &sqft, &journey, &initialPrice, &l.PriceHistoryCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}

		applyNullables(&l, bedrooms, bathrooms, sqft, journey, lat, lng)
		applyTimestamps(&l, firstSeen, lastSeen)
		if initialPrice.Valid {
			v := int(initialPrice.Int64)
			l.InitialPrice = &v
		}

		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return listings, nil
}
