package tracker

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ashdean/property-comb/app/database"
)

func newTestRepo(t *testing.T) (*database.ListingRepositoryImpl, *database.DB) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return database.NewListingRepository(db), db
}

func record(id, area string, price int) database.ListingRecord {
	return database.ListingRecord{
		ListingID: id,
		Address:   id + " Example Road, London",
		Price:     price,
		Area:      area,
	}
}

func backdate(t *testing.T, db *database.DB, id string, days int) {
	t.Helper()

	past := time.Now().AddDate(0, 0, -days).UTC().Format("2006-01-02T15:04:05.000Z07:00")
	if _, err := db.Exec(
		"UPDATE listings SET first_seen = ? WHERE listing_id = ?", past, id); err != nil {
		t.Fatalf("failed to backdate listing %s: %v", id, err)
	}
}

func TestProcessNewListings(t *testing.T) {
	repo, _ := newTestRepo(t)
	tr := NewTracker(repo, 0, 0, 30)

	report, err := tr.Process([]database.ListingRecord{
		record("1", "leyton", 400000),
		record("2", "leyton", 500000),
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if report.TotalSeen != 2 {
		t.Errorf("expected 2 seen, got %d", report.TotalSeen)
	}
	if len(report.New) != 2 {
		t.Errorf("expected 2 new listings, got %d", len(report.New))
	}
	if len(report.Removed) != 0 {
		t.Errorf("expected no removals, got %d", len(report.Removed))
	}
	if !report.HasChanges() {
		t.Error("expected HasChanges for new listings")
	}
}

func TestProcessDedupLastWins(t *testing.T) {
	repo, _ := newTestRepo(t)
	tr := NewTracker(repo, 0, 0, 30)

	report, err := tr.Process([]database.ListingRecord{
		record("1", "leyton", 400000),
		record("1", "walthamstow", 410000),
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if report.TotalSeen != 1 {
		t.Errorf("expected 1 seen after dedup, got %d", report.TotalSeen)
	}
	if len(report.New) != 1 {
		t.Fatalf("expected 1 new listing, got %d", len(report.New))
	}
	if report.New[0].Area != "walthamstow" || report.New[0].Price != 410000 {
		t.Errorf("expected last record to win, got %+v", report.New[0])
	}

	listing, err := repo.GetListing("1")
	if err != nil {
		t.Fatalf("GetListing() error = %v", err)
	}
	if listing.Area != "walthamstow" {
		t.Errorf("expected stored area walthamstow, got %q", listing.Area)
	}
	// exactly one ledger entry: the duplicate never reached the store
	if listing.PriceHistoryCount != 1 {
		t.Errorf("expected 1 ledger entry, got %d", listing.PriceHistoryCount)
	}
}

func TestProcessPriceThresholds(t *testing.T) {
	repo, _ := newTestRepo(t)
	tr := NewTracker(repo, 5000, 5000, 30)

	if _, err := tr.Process([]database.ListingRecord{record("1", "leyton", 500000)}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// below threshold: recorded in the ledger but not reported
	report, err := tr.Process([]database.ListingRecord{record("1", "leyton", 497000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.PriceDrops) != 0 {
		t.Errorf("expected sub-threshold drop to be unreported, got %d", len(report.PriceDrops))
	}
	history, _ := repo.GetPriceHistory("1")
	if len(history) != 2 {
		t.Errorf("expected sub-threshold drop in ledger, got %d entries", len(history))
	}

	// at threshold: reported
	report, err = tr.Process([]database.ListingRecord{record("1", "leyton", 492000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.PriceDrops) != 1 {
		t.Fatalf("expected 1 reported drop, got %d", len(report.PriceDrops))
	}
	if report.PriceDrops[0].OldPrice != 497000 || report.PriceDrops[0].NewPrice != 492000 {
		t.Errorf("unexpected drop %+v", report.PriceDrops[0])
	}

	// rise above threshold
	report, err = tr.Process([]database.ListingRecord{record("1", "leyton", 510000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.PriceRises) != 1 {
		t.Fatalf("expected 1 reported rise, got %d", len(report.PriceRises))
	}
	if len(report.PriceDrops) != 0 {
		t.Error("expected no drops alongside a rise")
	}
}

func TestProcessRemovalSweep(t *testing.T) {
	repo, _ := newTestRepo(t)
	tr := NewTracker(repo, 0, 0, 30)

	if _, err := tr.Process([]database.ListingRecord{
		record("1", "leyton", 400000),
		record("2", "leyton", 500000),
	}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	report, err := tr.Process([]database.ListingRecord{record("1", "leyton", 400000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(report.Removed) != 1 {
		t.Fatalf("expected 1 removal, got %d", len(report.Removed))
	}
	if report.Removed[0].ListingID != "2" {
		t.Errorf("expected listing 2 removed, got %s", report.Removed[0].ListingID)
	}
}

func TestProcessEmptyBatchRemovesEverything(t *testing.T) {
	repo, _ := newTestRepo(t)
	tr := NewTracker(repo, 0, 0, 30)

	if _, err := tr.Process([]database.ListingRecord{
		record("1", "leyton", 400000),
		record("2", "leyton", 500000),
	}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	report, err := tr.Process(nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if report.TotalSeen != 0 {
		t.Errorf("expected 0 seen, got %d", report.TotalSeen)
	}
	if len(report.Removed) != 2 {
		t.Errorf("expected every listing removed, got %d", len(report.Removed))
	}
}

func TestProcessFailedUpsertStillCountsAsSeen(t *testing.T) {
	repo, _ := newTestRepo(t)
	tr := NewTracker(repo, 0, 0, 30)

	if _, err := tr.Process([]database.ListingRecord{record("1", "leyton", 400000)}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// invalid price makes the upsert fail, but listing 1 was observed,
	// so it must not be swept as removed
	bad := record("1", "leyton", 0)
	report, err := tr.Process([]database.ListingRecord{bad})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(report.Removed) != 0 {
		t.Errorf("expected no removals, got %d", len(report.Removed))
	}
	listing, _ := repo.GetListing("1")
	if listing.Status != database.StatusActive {
		t.Errorf("expected listing 1 to stay active, got %q", listing.Status)
	}
	if listing.Price != 400000 {
		t.Errorf("expected price untouched by failed upsert, got %d", listing.Price)
	}
}

func TestProcessStaleDetection(t *testing.T) {
	repo, db := newTestRepo(t)
	tr := NewTracker(repo, 0, 0, 30)

	if _, err := tr.Process([]database.ListingRecord{
		record("fresh", "leyton", 400000),
		record("borderline", "leyton", 450000),
		record("longstale", "leyton", 500000),
	}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	backdate(t, db, "borderline", 30)
	backdate(t, db, "longstale", 90)

	report, err := tr.Process([]database.ListingRecord{
		record("fresh", "leyton", 400000),
		record("borderline", "leyton", 450000),
		record("longstale", "leyton", 500000),
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(report.Stale) != 2 {
		ids := make([]string, 0, len(report.Stale))
		for _, l := range report.Stale {
			ids = append(ids, l.ListingID)
		}
		t.Fatalf("expected 2 stale listings, got %v", ids)
	}
	if report.Stale[0].ListingID != "longstale" {
		t.Errorf("expected oldest stale first, got %s", report.Stale[0].ListingID)
	}

	// only the listing that just crossed the threshold is newly stale
	if len(report.NewlyStale) != 1 {
		t.Fatalf("expected 1 newly stale listing, got %d", len(report.NewlyStale))
	}
	if report.NewlyStale[0].ListingID != "borderline" {
		t.Errorf("expected borderline newly stale, got %s", report.NewlyStale[0].ListingID)
	}
}

// TestProcessListingLifecycle walks one listing through every state a poll
// cycle can produce: new, unchanged, price drop, stale, removed, re-listed.
func TestProcessListingLifecycle(t *testing.T) {
	repo, db := newTestRepo(t)
	tr := NewTracker(repo, 0, 0, 30)

	// cycle 1: appears
	report, err := tr.Process([]database.ListingRecord{record("42", "leyton", 600000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.New) != 1 {
		t.Fatalf("expected new listing, got %+v", report)
	}

	// cycle 2: unchanged, nothing to report
	report, err = tr.Process([]database.ListingRecord{record("42", "leyton", 600000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if report.HasChanges() {
		t.Errorf("expected quiet cycle, got %+v", report)
	}

	// cycle 3: price cut
	report, err = tr.Process([]database.ListingRecord{record("42", "leyton", 575000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.PriceDrops) != 1 {
		t.Fatalf("expected price drop, got %+v", report)
	}

	// cycle 4: old enough to be stale, but the price cut keeps it out
	backdate(t, db, "42", 45)
	report, err = tr.Process([]database.ListingRecord{record("42", "leyton", 575000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.Stale) != 0 {
		t.Errorf("expected price-cut listing not stale, got %+v", report.Stale)
	}

	// cycle 5: disappears
	report, err = tr.Process(nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.Removed) != 1 || report.Removed[0].ListingID != "42" {
		t.Fatalf("expected listing removed, got %+v", report.Removed)
	}

	// cycle 6: comes back, with history intact
	report, err = tr.Process([]database.ListingRecord{record("42", "leyton", 575000)})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.New) != 0 {
		t.Error("expected re-listing not to count as new")
	}
	listing, err := repo.GetListing("42")
	if err != nil {
		t.Fatalf("GetListing() error = %v", err)
	}
	if listing.Status != database.StatusActive {
		t.Errorf("expected re-listed listing active, got %q", listing.Status)
	}
	if listing.PriceHistoryCount != 2 {
		t.Errorf("expected ledger preserved across removal, got %d entries", listing.PriceHistoryCount)
	}
	if listing.InitialPrice == nil || *listing.InitialPrice != 600000 {
		t.Errorf("expected initial price 600000 preserved, got %v", listing.InitialPrice)
	}
}

func TestHasChanges(t *testing.T) {
	empty := &ChangeReport{TotalSeen: 10}
	if empty.HasChanges() {
		t.Error("expected no changes for an all-quiet report")
	}

	withNew := &ChangeReport{New: []database.ListingRecord{record("1", "leyton", 1)}}
	if !withNew.HasChanges() {
		t.Error("expected changes when new listings present")
	}

	withRemoved := &ChangeReport{Removed: []database.RemovedListing{{}}}
	if !withRemoved.HasChanges() {
		t.Error("expected changes when removals present")
	}
}
