package areas

// AreaConfig represents one search scope: a named location identifier plus
// the search filters applied when polling it.
type AreaConfig struct {
	Area    AreaInfo      `yaml:"area"`
	Filters SearchFilters `yaml:"filters"`
}

// AreaInfo identifies a location on the listing source
type AreaInfo struct {
	Name       string `yaml:"name"`
	Identifier string `yaml:"identifier"`
	Enabled    *bool  `yaml:"enabled"`
}

// SearchFilters are passed through to the listing source's search URL
type SearchFilters struct {
	MinBedrooms    int      `yaml:"min_bedrooms"`
	MaxBedrooms    int      `yaml:"max_bedrooms"`
	MinPrice       int      `yaml:"min_price"`
	MaxPrice       int      `yaml:"max_price"`
	PropertyTypes  []string `yaml:"property_types"`
	FilterFreehold bool     `yaml:"filter_freehold"`
}

// IsEnabled reports whether the area should be polled; areas are enabled
// unless explicitly disabled.
func (c *AreaConfig) IsEnabled() bool {
	return c.Area.Enabled == nil || *c.Area.Enabled
}
