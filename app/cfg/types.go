package cfg

type Cfg struct {
	// Storage configuration
	DBPath   string
	AreasDir string

	// Change detection thresholds
	PriceDropThreshold int
	PriceRiseThreshold int
	StaleListingDays   int

	// Polling configuration
	PollInterval    int // minutes
	WorkerCount     int
	RequestDelayMin int // seconds
	RequestDelayMax int // seconds
	RequestTimeout  int // seconds
	MaxPagesPerArea int

	// Notification configuration
	NotificationBackend string
	NtfyURL             string

	// Export configuration
	DiscordWebhookURL string
	ExportDir         string
	ExtraCSVPath      string

	// Journey enrichment configuration
	TfLAppKey       string
	CommuteDest     string
	TfLArriveTime   string
	EnrichMaxPerRun int

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
