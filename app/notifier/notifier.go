package notifier

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ashdean/property-comb/app/database"
	"github.com/ashdean/property-comb/app/tracker"
)

const (
	BackendNtfy = "ntfy"
	BackendNone = "none"
)

// Notifier sends grouped push notifications for a cycle's change report.
// Notification failures are logged and swallowed: a failed push must never
// fail a cycle.
type Notifier struct {
	backend string
	ntfyURL string
	client  *resty.Client
}

// NewNotifier creates a notifier for the configured backend
func NewNotifier(backend, ntfyURL string) *Notifier {
	return &Notifier{
		backend: backend,
		ntfyURL: ntfyURL,
		client:  resty.New().SetTimeout(10 * time.Second),
	}
}

// NotifyReport sends one notification per non-empty classification category
func (n *Notifier) NotifyReport(report *tracker.ChangeReport) {
	n.notifyNew(report.New)
	n.notifyPriceDrops(report.PriceDrops)
	n.notifyPriceRises(report.PriceRises)
	n.notifyRemoved(report.Removed)
	n.notifyNewlyStale(report.NewlyStale)
}

func (n *Notifier) notifyNew(listings []database.ListingRecord) {
	if len(listings) == 0 {
		return
	}

	var title, content string
	if len(listings) == 1 {
		l := listings[0]
		title = "New property listed"
		content = fmt.Sprintf("%s\n%s  ·  %s bed  ·  %s  ·  %s",
			l.Address, FormatPrice(l.Price), intOrQuestion(l.Bedrooms),
			l.PropertyType, l.Area)
	} else {
		minPrice, maxPrice := listings[0].Price, listings[0].Price
		areaSet := make(map[string]struct{})
		for _, l := range listings {
			if l.Price < minPrice {
				minPrice = l.Price
			}
			if l.Price > maxPrice {
				maxPrice = l.Price
			}
			if l.Area != "" {
				areaSet[l.Area] = struct{}{}
			}
		}
		areaNames := make([]string, 0, len(areaSet))
		for a := range areaSet {
			areaNames = append(areaNames, a)
		}
		sort.Strings(areaNames)

		title = fmt.Sprintf("%d new properties listed", len(listings))
		content = fmt.Sprintf("%s – %s\n%s",
			FormatPrice(minPrice), FormatPrice(maxPrice), strings.Join(areaNames, ", "))
	}

	if n.send(title, content) {
		slog.Info("Sent new-listing notification", "count", len(listings))
	}
}

func (n *Notifier) notifyPriceDrops(drops []tracker.PriceMovement) {
	if len(drops) == 0 {
		return
	}

	var title, content string
	if len(drops) == 1 {
		d := drops[0]
		title = "Price reduction"
		content = fmt.Sprintf("%s\n%s  →  %s   (↓ %s)",
			d.Record.Address, FormatPrice(d.OldPrice), FormatPrice(d.NewPrice),
			FormatPrice(d.OldPrice-d.NewPrice))
	} else {
		largest := 0
		for _, d := range drops {
			if r := d.OldPrice - d.NewPrice; r > largest {
				largest = r
			}
		}
		title = fmt.Sprintf("%d price reductions", len(drops))
		content = fmt.Sprintf("Largest drop: %s\nAcross %d properties",
			FormatPrice(largest), len(drops))
	}

	if n.send(title, content) {
		slog.Info("Sent price-drop notification", "count", len(drops))
	}
}

func (n *Notifier) notifyPriceRises(rises []tracker.PriceMovement) {
	if len(rises) == 0 {
		return
	}

	var title, content string
	if len(rises) == 1 {
		r := rises[0]
		title = "Price increase"
		content = fmt.Sprintf("%s\n%s  →  %s   (↑ %s)",
			r.Record.Address, FormatPrice(r.OldPrice), FormatPrice(r.NewPrice),
			FormatPrice(r.NewPrice-r.OldPrice))
	} else {
		largest := 0
		for _, r := range rises {
			if inc := r.NewPrice - r.OldPrice; inc > largest {
				largest = inc
			}
		}
		title = fmt.Sprintf("%d price increases", len(rises))
		content = fmt.Sprintf("Largest rise: %s\nAcross %d properties",
			FormatPrice(largest), len(rises))
	}

	if n.send(title, content) {
		slog.Info("Sent price-rise notification", "count", len(rises))
	}
}

func (n *Notifier) notifyRemoved(removed []database.RemovedListing) {
	if len(removed) == 0 {
		return
	}

	var title, content string
	if len(removed) == 1 {
		l := removed[0]
		title = "Property de-listed"
		dom := "?"
		if l.DaysOnMarket != nil {
			dom = fmt.Sprint(*l.DaysOnMarket)
		}
		content = fmt.Sprintf("%s\n%s  ·  %s days on market",
			l.Address, FormatPrice(l.Price), dom)
	} else {
		title = fmt.Sprintf("%d properties de-listed", len(removed))
		content = fmt.Sprintf("%d properties disappeared from search results", len(removed))
	}

	if n.send(title, content) {
		slog.Info("Sent removal notification", "count", len(removed))
	}
}

func (n *Notifier) notifyNewlyStale(stale []database.Listing) {
	if len(stale) == 0 {
		return
	}

	var title, content string
	if len(stale) == 1 {
		l := stale[0]
		dom := "?"
		if l.DaysOnMarket != nil {
			dom = fmt.Sprint(*l.DaysOnMarket)
		}
		title = "Stale listing"
		content = fmt.Sprintf("%s\n%s  ·  %s days on market  ·  no price change",
			l.Address, FormatPrice(l.Price), dom)
	} else {
		title = fmt.Sprintf("%d listings now stale", len(stale))
		content = fmt.Sprintf("%d properties with no price change", len(stale))
	}

	if n.send(title, content) {
		slog.Info("Sent stale-listing notification", "count", len(stale))
	}
}

// send dispatches via the configured backend; returns whether delivery
// succeeded
func (n *Notifier) send(title, content string) bool {
	switch n.backend {
	case BackendNtfy:
		return n.sendNtfy(title, content)
	default:
		slog.Debug("Notifications disabled", "title", title, "content", content)
		return false
	}
}

func (n *Notifier) sendNtfy(title, content string) bool {
	if n.ntfyURL == "" {
		slog.Warn("ntfy backend selected but no ntfy URL configured")
		return false
	}

	resp, err := n.client.R().
		SetHeader("Title", title).
		SetHeader("Priority", "high").
		SetHeader("Tags", "house").
		SetBody(content).
		Post(n.ntfyURL)
	if err != nil {
		slog.Error("ntfy notification failed", "url", n.ntfyURL, "error", err)
		return false
	}
	if resp.IsError() {
		slog.Error("ntfy notification rejected", "url", n.ntfyURL, "status", resp.StatusCode())
		return false
	}
	return true
}

func intOrQuestion(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprint(*v)
}
