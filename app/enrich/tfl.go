package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const tflBaseURL = "https://api.tfl.gov.uk/Journey/JourneyResults"

// Modes considered when planning the commute
const journeyModes = "tube,overground,elizabeth-line,national-rail"

// TfLClient fetches public-transport journey times from a listing's
// coordinates to a fixed commute destination via the TfL Unified API
type TfLClient struct {
	client      *resty.Client
	appKey      string
	destination string
	arriveTime  string // "HH:MM"
}

// NewTfLClient creates a journey-time client. destination is a "lat,lng"
// pair or station code understood by the TfL journey planner.
func NewTfLClient(appKey, destination, arriveTime string) *TfLClient {
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetRetryCount(1)

	return &TfLClient{
		client:      client,
		appKey:      appKey,
		destination: destination,
		arriveTime:  arriveTime,
	}
}

// Enabled reports whether enrichment is configured at all
func (c *TfLClient) Enabled() bool {
	return c.destination != ""
}

// GetJourneyMins returns the fastest journey time in minutes from the given
// coordinates, or nil when the API fails or finds no journey. Planning is
// pinned to the next Monday so timetable data stays consistent across runs.
func (c *TfLClient) GetJourneyMins(ctx context.Context, lat, lng float64) *int {
	url := fmt.Sprintf("%s/%f,%f/to/%s", tflBaseURL, lat, lng, c.destination)

	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("mode", journeyModes).
		SetQueryParam("timeIs", "Arriving").
		SetQueryParam("time", strings.ReplaceAll(c.arriveTime, ":", "")).
		SetQueryParam("date", nextMonday().Format("20060102"))
	if c.appKey != "" {
		req.SetQueryParam("app_key", c.appKey)
	}

	var payload struct {
		Journeys []struct {
			Duration int `json:"duration"`
		} `json:"journeys"`
	}
	resp, err := req.SetResult(&payload).Get(url)
	if err != nil {
		slog.Debug("TfL API error", "lat", lat, "lng", lng, "error", err)
		return nil
	}
	if resp.IsError() {
		slog.Debug("TfL API returned error status",
			"lat", lat, "lng", lng, "status", resp.StatusCode())
		return nil
	}
	if len(payload.Journeys) == 0 {
		return nil
	}

	best := payload.Journeys[0].Duration
	for _, j := range payload.Journeys[1:] {
		if j.Duration < best {
			best = j.Duration
		}
	}
	return &best
}

// nextMonday returns the date of the next Monday, never today
func nextMonday() time.Time {
	d := time.Now()
	daysAhead := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	return d.AddDate(0, 0, daysAhead)
}
