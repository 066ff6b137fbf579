package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:             "./test.db",
		AreasDir:           "./areas",
		PriceDropThreshold: 5000,
		PriceRiseThreshold: 10000,
		StaleListingDays:   60,
		PollInterval:       120,
		WorkerCount:        2,
		Port:               "8080",
		APIAccessKey:       "test-key",
		NtfyURL:            "https://ntfy.example.com/houses",
		Timezone:           "UTC",
		Debug:              true,
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected db path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.AreasDir != "./areas" {
		t.Errorf("Expected areas dir './areas', got '%s'", cfg.AreasDir)
	}
	if cfg.PriceDropThreshold != 5000 {
		t.Errorf("Expected drop threshold 5000, got %d", cfg.PriceDropThreshold)
	}
	if cfg.PriceRiseThreshold != 10000 {
		t.Errorf("Expected rise threshold 10000, got %d", cfg.PriceRiseThreshold)
	}
	if cfg.StaleListingDays != 60 {
		t.Errorf("Expected stale days 60, got %d", cfg.StaleListingDays)
	}
	if cfg.PollInterval != 120 {
		t.Errorf("Expected poll interval 120, got %d", cfg.PollInterval)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.NtfyURL != "https://ntfy.example.com/houses" {
		t.Errorf("Expected ntfy URL to round-trip, got '%s'", cfg.NtfyURL)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}
