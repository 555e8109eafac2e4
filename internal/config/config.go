// Package config loads and persists the komavi JSON configuration at
// ~/.komavi.json. Loading never fails hard: a broken file falls back to
// defaults and reports warnings through ConfigLoadResult.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const (
	defaultWidth  = 1000
	defaultHeight = 800
	minWidth      = 400
	minHeight     = 300
)

type Config struct {
	WindowWidth  int  `json:"window_width"`
	WindowHeight int  `json:"window_height"`
	Fullscreen   bool `json:"fullscreen"`

	KomgaURL      string `json:"komga_url"`
	KomgaUsername string `json:"komga_username"`
	KomgaPassword string `json:"komga_password"`
	KomgaAPIKey   string `json:"komga_api_key"`
	KomfURL       string `json:"komf_url"`
	KomfLibraryID string `json:"komf_library_id"`

	ImageFilter  string `json:"image_filter"`
	CacheSize    int    `json:"cache_size"`
	PreloadCount int    `json:"preload_count"`

	PagedLayout         string  `json:"paged_layout"`
	DoublePageOffset    bool    `json:"double_page_offset"`
	ScaleType           string  `json:"scale_type"`
	ReadingDirection    string  `json:"reading_direction"`
	ContinuousDirection string  `json:"continuous_direction"`
	StretchToFit        bool    `json:"stretch_to_fit"`
	AllowUpsample       bool    `json:"allow_upsample"`
	SidePaddingFraction float64 `json:"side_padding_fraction"`
	PageSpacing         int     `json:"page_spacing"`

	Keybindings map[string][]string `json:"keybindings"`
}

// ConfigLoadResult contains the result of loading configuration
type ConfigLoadResult struct {
	Config   Config
	HasError bool
	Warnings []string
	Status   string // "OK", "Default", "Warning", "Error"
}

func defaultConfig() Config {
	return Config{
		WindowWidth:         defaultWidth,
		WindowHeight:        defaultHeight,
		ImageFilter:         "bilinear",
		CacheSize:           16,
		PreloadCount:        4,
		PagedLayout:         "single",
		ScaleType:           "screen",
		ReadingDirection:    "ltr",
		ContinuousDirection: "top_to_bottom",
		StretchToFit:        true,
		SidePaddingFraction: 0.0,
		Keybindings:         GetDefaultKeybindings(),
	}
}

func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "komavi.json"
	}
	return filepath.Join(homeDir, ".komavi.json")
}

func Load() ConfigLoadResult {
	return LoadFromPath(DefaultPath())
}

func LoadFromPath(configPath string) ConfigLoadResult {
	config := defaultConfig()
	result := ConfigLoadResult{
		Config:   config,
		Warnings: []string{},
		Status:   "OK",
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		// Config file not found is not an error - use defaults
		result.Status = "Default"
		return result
	}

	if err := json.Unmarshal(data, &config); err != nil {
		log.Printf("Warning: Invalid config file %s, using defaults: %v", configPath, err)
		result.HasError = true
		result.Status = "Error"
		result.Warnings = append(result.Warnings, fmt.Sprintf("Invalid config file: %v", err))
		return result
	}

	// Validate minimum window size
	if config.WindowWidth < minWidth {
		config.WindowWidth = defaultWidth
	}
	if config.WindowHeight < minHeight {
		config.WindowHeight = defaultHeight
	}

	switch config.ImageFilter {
	case "", "bilinear", "nearest", "catmullrom":
	default:
		result.Status = "Warning"
		result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown image filter %q, using bilinear", config.ImageFilter))
		config.ImageFilter = "bilinear"
	}

	// Validate cache size (minimum 1, maximum 64)
	if config.CacheSize < 1 {
		config.CacheSize = 16
	} else if config.CacheSize > 64 {
		config.CacheSize = 64
	}

	// Validate preload count (minimum 0, maximum 16)
	if config.PreloadCount < 0 {
		config.PreloadCount = 4
	} else if config.PreloadCount > 16 {
		config.PreloadCount = 16
	}

	if config.PagedLayout != "single" && config.PagedLayout != "double" {
		config.PagedLayout = "single"
	}
	switch config.ScaleType {
	case "screen", "fit_width", "fit_height", "original":
	default:
		config.ScaleType = "screen"
	}
	if config.ReadingDirection != "ltr" && config.ReadingDirection != "rtl" {
		config.ReadingDirection = "ltr"
	}
	switch config.ContinuousDirection {
	case "top_to_bottom", "ltr", "rtl":
	default:
		config.ContinuousDirection = "top_to_bottom"
	}

	// Side padding is a fraction of the viewport per side; more than a
	// third leaves no room for the page.
	if config.SidePaddingFraction < 0 || config.SidePaddingFraction > 0.4 {
		config.SidePaddingFraction = 0.0
	}
	if config.PageSpacing < 0 || config.PageSpacing > 200 {
		config.PageSpacing = 0
	}

	// Validate keybindings - ensure defaults exist for missing actions
	if config.Keybindings == nil {
		config.Keybindings = GetDefaultKeybindings()
	} else {
		defaults := GetDefaultKeybindings()
		for action, defaultKeys := range defaults {
			if _, exists := config.Keybindings[action]; !exists {
				config.Keybindings[action] = defaultKeys
			}
		}

		if err := ValidateKeybindings(config.Keybindings); err != nil {
			log.Printf("Warning: Invalid keybindings detected, using defaults: %v", err)
			config.Keybindings = GetDefaultKeybindings()
			result.Status = "Warning"
			result.Warnings = append(result.Warnings, fmt.Sprintf("Keybinding errors: %v", err))
		}
	}

	result.Config = config
	return result
}

func Save(config Config) {
	SaveToPath(config, DefaultPath())
}

func SaveToPath(config Config, configPath string) {
	// Don't save if size is too small
	if config.WindowWidth < minWidth || config.WindowHeight < minHeight {
		log.Printf("Warning: Not saving config with invalid window size: %dx%d",
			config.WindowWidth, config.WindowHeight)
		return
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		log.Printf("Error: Failed to marshal config: %v", err)
		return
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		log.Printf("Error: Failed to save config to %s: %v", configPath, err)
	}
}
