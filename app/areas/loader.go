package areas

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of search area configurations
type Loader struct {
	areasDir string
}

// NewLoader creates a new area configuration loader
func NewLoader(areasDir string) *Loader {
	return &Loader{areasDir: areasDir}
}

// LoadAll loads all YAML area files from the areas directory, keyed by file path
func (l *Loader) LoadAll() (map[string]*AreaConfig, error) {
	configs := make(map[string]*AreaConfig)

	if _, err := os.Stat(l.areasDir); os.IsNotExist(err) {
		return configs, nil
	}

	files, err := filepath.Glob(filepath.Join(l.areasDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.areasDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid area config %s: %w", file, err)
		}

		configs[file] = config
		slog.Debug("Loaded area configuration", "file", file, "area", config.Area.Name)
	}

	return configs, nil
}

// loadFile loads a single YAML area configuration file
func (l *Loader) loadFile(path string) (*AreaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config AreaConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.setDefaults(&config)

	return &config, nil
}

// setDefaults applies default search filters
func (l *Loader) setDefaults(config *AreaConfig) {
	if config.Filters.MinBedrooms == 0 {
		config.Filters.MinBedrooms = 1
	}
	if config.Filters.MaxBedrooms == 0 {
		config.Filters.MaxBedrooms = 10
	}
	if config.Filters.MaxPrice == 0 {
		config.Filters.MaxPrice = 10_000_000
	}
	if len(config.Filters.PropertyTypes) == 0 {
		config.Filters.PropertyTypes = []string{"detached", "semi-detached", "terraced"}
	}
}

// validate validates the area configuration
func (l *Loader) validate(config *AreaConfig) error {
	if config.Area.Name == "" {
		return fmt.Errorf("area name is required")
	}
	if config.Area.Identifier == "" {
		return fmt.Errorf("area identifier is required")
	}
	if config.Filters.MinBedrooms < 0 || config.Filters.MaxBedrooms < config.Filters.MinBedrooms {
		return fmt.Errorf("invalid bedroom range %d-%d",
			config.Filters.MinBedrooms, config.Filters.MaxBedrooms)
	}
	if config.Filters.MinPrice < 0 || config.Filters.MaxPrice < config.Filters.MinPrice {
		return fmt.Errorf("invalid price range %d-%d",
			config.Filters.MinPrice, config.Filters.MaxPrice)
	}
	return nil
}
