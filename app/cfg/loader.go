package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./properties.db" description:"Path to the SQLite database file"`
	AreasDir string `long:"areas-dir" env:"AREAS_DIR" default:"./areas" description:"Directory containing search area configuration files"`

	// Change detection thresholds
	PriceDropThreshold int `long:"price-drop-threshold" env:"PRICE_DROP_THRESHOLD" default:"0" description:"Minimum reduction in whole pounds before a drop is reported (0 = any)"`
	PriceRiseThreshold int `long:"price-rise-threshold" env:"PRICE_RISE_THRESHOLD" default:"0" description:"Minimum increase in whole pounds before a rise is reported (0 = any)"`
	StaleListingDays   int `long:"stale-days" env:"STALE_LISTING_DAYS" default:"60" description:"Days without a price change before an active listing is considered stale"`

	// Polling configuration
	PollInterval    int `long:"poll-interval" env:"POLL_INTERVAL" default:"120" description:"Minutes between poll cycles"`
	WorkerCount     int `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background task workers"`
	RequestDelayMin int `long:"request-delay-min" env:"REQUEST_DELAY_MIN" default:"4" description:"Minimum seconds between listing source requests"`
	RequestDelayMax int `long:"request-delay-max" env:"REQUEST_DELAY_MAX" default:"10" description:"Maximum seconds between listing source requests"`
	RequestTimeout  int `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"HTTP request timeout in seconds"`
	MaxPagesPerArea int `long:"max-pages-per-area" env:"MAX_PAGES_PER_AREA" default:"20" description:"Safety cap on result pages fetched per area"`

	// Notification configuration
	NotificationBackend string `long:"notification-backend" env:"NOTIFICATION_BACKEND" default:"ntfy" choice:"ntfy" choice:"none" description:"Push notification backend"`
	NtfyURL             string `long:"ntfy-url" env:"NTFY_URL" description:"ntfy topic URL for push notifications"`

	// Export configuration
	DiscordWebhookURL string `long:"discord-webhook-url" env:"DISCORD_WEBHOOK_URL" description:"Discord webhook URL for run reports (empty disables)"`
	ExportDir         string `long:"export-dir" env:"EXPORT_DIR" default:"." description:"Directory for CSV/XLSX export output"`
	ExtraCSVPath      string `long:"extra-csv-path" env:"EXTRA_CSV_PATH" description:"Optional second location for the CSV snapshot (e.g. a synced folder)"`

	// Journey enrichment configuration
	TfLAppKey       string `long:"tfl-app-key" env:"TFL_APP_KEY" description:"TfL Unified API application key (optional)"`
	CommuteDest     string `long:"commute-dest" env:"COMMUTE_DEST" description:"Journey planner destination (lat,lng or station code); empty disables enrichment"`
	TfLArriveTime   string `long:"tfl-arrive-time" env:"TFL_ARRIVE_TIME" default:"09:00" description:"Target weekday arrival time for journey planning"`
	EnrichMaxPerRun int    `long:"enrich-max-per-run" env:"ENRICH_MAX_PER_RUN" default:"20" description:"Maximum listings to enrich with journey times per cycle"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authenticated endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"Override User-Agent for listing source requests (empty picks from the built-in pool)"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/London)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// Optional .env file; system environment takes precedence either way.
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.RequestDelayMax < raw.RequestDelayMin {
		return nil, fmt.Errorf("request-delay-max (%d) must be >= request-delay-min (%d)",
			raw.RequestDelayMax, raw.RequestDelayMin)
	}
	if raw.StaleListingDays < 0 {
		return nil, fmt.Errorf("stale-days must be non-negative, got %d", raw.StaleListingDays)
	}
	if raw.PriceDropThreshold < 0 || raw.PriceRiseThreshold < 0 {
		return nil, fmt.Errorf("price thresholds must be non-negative")
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		AreasDir:            raw.AreasDir,
		PriceDropThreshold:  raw.PriceDropThreshold,
		PriceRiseThreshold:  raw.PriceRiseThreshold,
		StaleListingDays:    raw.StaleListingDays,
		PollInterval:        raw.PollInterval,
		WorkerCount:         raw.WorkerCount,
		RequestDelayMin:     raw.RequestDelayMin,
		RequestDelayMax:     raw.RequestDelayMax,
		RequestTimeout:      raw.RequestTimeout,
		MaxPagesPerArea:     raw.MaxPagesPerArea,
		NotificationBackend: raw.NotificationBackend,
		NtfyURL:             raw.NtfyURL,
		DiscordWebhookURL:   raw.DiscordWebhookURL,
		ExportDir:           raw.ExportDir,
		ExtraCSVPath:        raw.ExtraCSVPath,
		TfLAppKey:           raw.TfLAppKey,
		CommuteDest:         raw.CommuteDest,
		TfLArriveTime:       raw.TfLArriveTime,
		EnrichMaxPerRun:     raw.EnrichMaxPerRun,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
