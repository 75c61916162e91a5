package model

// AppConfig holds user preferences and default cutting settings.
type AppConfig struct {
	// Defaults applied to new allocation runs
	DefaultKerfWidth   float64     `json:"default_kerf_width"`
	DefaultEndTrim     float64     `json:"default_end_trim"`
	DefaultMinOffcut   float64     `json:"default_min_offcut"`
	DefaultMaxPoolSize int         `json:"default_max_pool_size"`
	DefaultNoFitPolicy NoFitPolicy `json:"default_no_fit_policy"`

	// Application preferences
	RecentFiles       []string `json:"recent_files"`
	LastOpenDirectory string   `json:"last_open_directory"`
	LastSaveDirectory string   `json:"last_save_directory"`
}

// maxRecentFiles caps the recent files list.
const maxRecentFiles = 10

// DefaultAppConfig returns an AppConfig populated with the values from DefaultSettings().
func DefaultAppConfig() AppConfig {
	defaults := DefaultSettings()
	return AppConfig{
		DefaultKerfWidth:   defaults.KerfWidth,
		DefaultEndTrim:     defaults.EndTrim,
		DefaultMinOffcut:   defaults.MinOffcut,
		DefaultMaxPoolSize: defaults.MaxPoolSize,
		DefaultNoFitPolicy: defaults.NoFitPolicy,
		RecentFiles:        []string{},
	}
}

// ApplyToSettings copies the default values from AppConfig into a CutSettings struct.
func (c AppConfig) ApplyToSettings(s *CutSettings) {
	s.KerfWidth = c.DefaultKerfWidth
	s.EndTrim = c.DefaultEndTrim
	s.MinOffcut = c.DefaultMinOffcut
	s.MaxPoolSize = c.DefaultMaxPoolSize
	if c.DefaultNoFitPolicy != "" {
		s.NoFitPolicy = c.DefaultNoFitPolicy
	}
}

// AddRecentFile moves path to the front of the recent files list.
func (c *AppConfig) AddRecentFile(path string) {
	files := []string{path}
	for _, f := range c.RecentFiles {
		if f != path {
			files = append(files, f)
		}
	}
	if len(files) > maxRecentFiles {
		files = files[:maxRecentFiles]
	}
	c.RecentFiles = files
}
