package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ashdean/property-comb/app/database"
)

// csvColumns is the fixed CSV snapshot column set
var csvColumns = []string{
	"listing_id", "address", "price", "initial_price",
	"bedrooms", "bathrooms", "property_type", "tenure", "area",
	"listing_url", "listing_date", "first_seen", "last_seen", "status",
	"latitude", "longitude", "sq_footage", "journey_mins",
}

// Exporter writes listing snapshots and reports
type Exporter struct {
	repo         database.ListingRepository
	exportDir    string
	extraCSVPath string
}

// NewExporter creates an exporter writing into exportDir; extraCSVPath, when
// set, receives a second copy of the CSV snapshot (e.g. a synced folder).
func NewExporter(repo database.ListingRepository, exportDir, extraCSVPath string) *Exporter {
	return &Exporter{
		repo:         repo,
		exportDir:    exportDir,
		extraCSVPath: extraCSVPath,
	}
}

// WriteCSV writes all listings (including removed) to properties.csv and
// returns the number of rows written. The file is written via a temp file
// and rename so readers never observe a partial snapshot.
func (e *Exporter) WriteCSV() (int, error) {
	listings, err := e.repo.GetAllListings(true)
	if err != nil {
		return 0, fmt.Errorf("failed to load listings for CSV export: %w", err)
	}

	path := filepath.Join(e.exportDir, "properties.csv")
	if err := writeCSVFile(path, listings); err != nil {
		return 0, err
	}

	if e.extraCSVPath != "" {
		if err := writeCSVFile(e.extraCSVPath, listings); err != nil {
			slog.Error("Failed to write extra CSV copy", "path", e.extraCSVPath, "error", err)
		}
	}

	slog.Info("CSV export complete", "path", path, "rows", len(listings))
	return len(listings), nil
}

func writeCSVFile(path string, listings []database.Listing) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".properties-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp CSV file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvColumns); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, l := range listings {
		if err := w.Write(csvRow(l)); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write CSV row for %s: %w", l.ListingID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp CSV file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move CSV into place: %w", err)
	}
	return nil
}

func csvRow(l database.Listing) []string {
	return []string{
		l.ListingID,
		l.Address,
		strconv.Itoa(l.Price),
		intPtrString(l.InitialPrice),
		intPtrString(l.Bedrooms),
		intPtrString(l.Bathrooms),
		l.PropertyType,
		l.Tenure,
		l.Area,
		l.ListingURL,
		l.ListingDate,
		timeString(l.FirstSeen),
		timeString(l.LastSeen),
		l.Status,
		floatPtrString(l.Latitude),
		floatPtrString(l.Longitude),
		intPtrString(l.SqFootage),
		intPtrString(l.JourneyMins),
	}
}

func intPtrString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatPtrString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
