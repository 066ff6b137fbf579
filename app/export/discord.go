package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ashdean/property-comb/app/database"
	"github.com/ashdean/property-comb/app/notifier"
	"github.com/ashdean/property-comb/app/tracker"
)

// DiscordReporter posts run summaries to a Discord webhook
type DiscordReporter struct {
	webhookURL string
	client     *resty.Client
}

func NewDiscordReporter(webhookURL string) *DiscordReporter {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(1)

	return &DiscordReporter{
		webhookURL: webhookURL,
		client:     client,
	}
}

func (d *DiscordReporter) Enabled() bool {
	return d.webhookURL != ""
}

// SendRunReport posts a summary embed for a completed poll cycle.
func (d *DiscordReporter) SendRunReport(ctx context.Context, report *tracker.ChangeReport, stats database.StatsSnapshot) error {
	if !d.Enabled() {
		return nil
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Seen **%d** listings, **%d** active in total", report.TotalSeen, stats.Active))
	if len(report.New) > 0 {
		lines = append(lines, fmt.Sprintf("New: **%d**", len(report.New)))
	}
	if len(report.PriceDrops) > 0 {
		lines = append(lines, fmt.Sprintf("Price drops: **%d**", len(report.PriceDrops)))
	}
	if len(report.PriceRises) > 0 {
		lines = append(lines, fmt.Sprintf("Price rises: **%d**", len(report.PriceRises)))
	}
	if len(report.Removed) > 0 {
		lines = append(lines, fmt.Sprintf("Removed: **%d**", len(report.Removed)))
	}
	if len(report.NewlyStale) > 0 {
		lines = append(lines, fmt.Sprintf("Newly stale: **%d**", len(report.NewlyStale)))
	}

	var fields []map[string]interface{}
	for i, m := range report.PriceDrops {
		if i >= 5 {
			fields = append(fields, map[string]interface{}{
				"name":  "…",
				"value": fmt.Sprintf("and %d more", len(report.PriceDrops)-5),
			})
			break
		}
		fields = append(fields, map[string]interface{}{
			"name": m.Record.Address,
			"value": fmt.Sprintf("%s → %s", notifier.FormatPrice(m.OldPrice),
				notifier.FormatPrice(m.NewPrice)),
		})
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{{
			"title":       "Property tracker run",
			"description": strings.Join(lines, "\n"),
			"color":       0x2E86C1,
			"fields":      fields,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}},
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to post Discord report: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode())
	}
	return nil
}
