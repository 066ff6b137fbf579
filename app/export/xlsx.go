package export

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ashdean/property-comb/app/database"
)

var xlsxHeader = []interface{}{
	"ID", "Address", "Price", "Initial Price", "Beds", "Baths",
	"Type", "Tenure", "Area", "Days On Market", "Price Changes",
	"Journey (mins)", "Sq Ft", "Status", "URL",
}

// WriteXLSX writes a formatted workbook with a listings sheet and a summary
// sheet, and returns the path of the written file.
func (e *Exporter) WriteXLSX() (string, error) {
	listings, err := e.repo.GetAllListings(true)
	if err != nil {
		return "", fmt.Errorf("failed to load listings for XLSX export: %w", err)
	}
	stats, err := e.repo.GetStats()
	if err != nil {
		return "", fmt.Errorf("failed to load stats for XLSX export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const listingsSheet = "Listings"
	if err := f.SetSheetName("Sheet1", listingsSheet); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}
	priceStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return "", fmt.Errorf("failed to create price style: %w", err)
	}

	if err := f.SetSheetRow(listingsSheet, "A1", &xlsxHeader); err != nil {
		return "", fmt.Errorf("failed to write header row: %w", err)
	}
	if err := f.SetCellStyle(listingsSheet, "A1", "O1", headerStyle); err != nil {
		return "", fmt.Errorf("failed to style header row: %w", err)
	}

	for i, l := range listings {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			l.ListingID, l.Address, l.Price, intPtrCell(l.InitialPrice),
			intPtrCell(l.Bedrooms), intPtrCell(l.Bathrooms),
			l.PropertyType, l.Tenure, l.Area,
			daysOnMarket(l), l.PriceHistoryCount - 1,
			intPtrCell(l.JourneyMins), intPtrCell(l.SqFootage),
			l.Status, l.ListingURL,
		}
		if err := f.SetSheetRow(listingsSheet, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write row for %s: %w", l.ListingID, err)
		}
	}
	if len(listings) > 0 {
		last := len(listings) + 1
		_ = f.SetCellStyle(listingsSheet, "C2", fmt.Sprintf("D%d", last), priceStyle)
	}
	_ = f.SetColWidth(listingsSheet, "B", "B", 40)
	_ = f.SetColWidth(listingsSheet, "O", "O", 60)
	_ = f.AutoFilter(listingsSheet, "A1:O1", nil)

	if err := writeSummarySheet(f, headerStyle, stats, listings); err != nil {
		return "", err
	}

	path := filepath.Join(e.exportDir, fmt.Sprintf("report-%s.xlsx", time.Now().Format("2006-01-02")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save XLSX report: %w", err)
	}

	slog.Info("XLSX report written", "path", path, "rows", len(listings))
	return path, nil
}

func writeSummarySheet(f *excelize.File, headerStyle int, stats database.StatsSnapshot, listings []database.Listing) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	var activeTotal, activeCount int
	for _, l := range listings {
		if l.Status == database.StatusActive {
			activeTotal += l.Price
			activeCount++
		}
	}
	avgPrice := 0
	if activeCount > 0 {
		avgPrice = activeTotal / activeCount
	}

	rows := [][]interface{}{
		{"Generated", time.Now().Format("2006-01-02 15:04")},
		{"Active listings", stats.Active},
		{"Removed listings", stats.Removed},
		{"Watchlisted", stats.Watchlist},
		{"Price changes recorded", stats.PriceChanges},
		{"Average active price", avgPrice},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	lastRow := len(rows)
	if err := f.SetCellStyle(sheet, "A1", fmt.Sprintf("A%d", lastRow), headerStyle); err != nil {
		return fmt.Errorf("failed to style summary sheet: %w", err)
	}
	_ = f.SetColWidth(sheet, "A", "A", 26)
	return nil
}

func intPtrCell(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func daysOnMarket(l database.Listing) interface{} {
	if l.FirstSeen.IsZero() {
		return ""
	}
	return int(time.Since(l.FirstSeen).Hours() / 24)
}
