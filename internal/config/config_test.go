package config

import (
	"os"
	"path/filepath"
	"testing"

	"komavi/internal/reader"
)

var _ reader.SettingsStore = (*Store)(nil)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "komavi.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	result := LoadFromPath(filepath.Join(t.TempDir(), "nope.json"))

	if result.Status != "Default" || result.HasError {
		t.Errorf("status = %q hasError = %v", result.Status, result.HasError)
	}
	c := result.Config
	if c.WindowWidth != defaultWidth || c.WindowHeight != defaultHeight {
		t.Errorf("window = %dx%d", c.WindowWidth, c.WindowHeight)
	}
	if c.PagedLayout != "single" || c.ScaleType != "screen" || c.ImageFilter != "bilinear" {
		t.Errorf("reader defaults = %+v", c)
	}
	if len(c.Keybindings) == 0 {
		t.Error("default keybindings missing")
	}
}

func TestLoadInvalidJSONFallsBack(t *testing.T) {
	path := writeConfigFile(t, "{not json")

	result := LoadFromPath(path)
	if result.Status != "Error" || !result.HasError || len(result.Warnings) == 0 {
		t.Errorf("result = %+v", result)
	}
	if result.Config.WindowWidth != defaultWidth {
		t.Error("broken file should leave defaults in place")
	}
}

func TestLoadValidation(t *testing.T) {
	path := writeConfigFile(t, `{
		"window_width": 10,
		"window_height": 5000,
		"image_filter": "lanczos",
		"cache_size": 1000,
		"preload_count": -1,
		"paged_layout": "triple",
		"scale_type": "fit_width",
		"reading_direction": "rtl",
		"continuous_direction": "sideways",
		"side_padding_fraction": 0.9,
		"page_spacing": -5
	}`)

	result := LoadFromPath(path)
	c := result.Config

	if c.WindowWidth != defaultWidth {
		t.Errorf("undersized width not reset: %d", c.WindowWidth)
	}
	if c.WindowHeight != 5000 {
		t.Errorf("valid height clobbered: %d", c.WindowHeight)
	}
	if c.ImageFilter != "bilinear" {
		t.Errorf("filter = %q", c.ImageFilter)
	}
	if result.Status != "Warning" {
		t.Errorf("unknown filter should produce a warning, status = %q", result.Status)
	}
	if c.CacheSize != 64 {
		t.Errorf("cache size = %d, want clamped to 64", c.CacheSize)
	}
	if c.PreloadCount != 4 {
		t.Errorf("preload count = %d, want default", c.PreloadCount)
	}
	if c.PagedLayout != "single" {
		t.Errorf("layout = %q", c.PagedLayout)
	}
	if c.ScaleType != "fit_width" {
		t.Errorf("valid scale type clobbered: %q", c.ScaleType)
	}
	if c.ReadingDirection != "rtl" {
		t.Errorf("valid direction clobbered: %q", c.ReadingDirection)
	}
	if c.ContinuousDirection != "top_to_bottom" {
		t.Errorf("continuous direction = %q", c.ContinuousDirection)
	}
	if c.SidePaddingFraction != 0.0 {
		t.Errorf("padding fraction = %v", c.SidePaddingFraction)
	}
	if c.PageSpacing != 0 {
		t.Errorf("page spacing = %d", c.PageSpacing)
	}
}

func TestLoadKeybindingMergeAndConflicts(t *testing.T) {
	// Partial table: missing actions get defaults merged in.
	path := writeConfigFile(t, `{"keybindings": {"next_page": ["KeyN"]}}`)
	result := LoadFromPath(path)
	c := result.Config
	if got := c.Keybindings["next_page"]; len(got) != 1 || got[0] != "KeyN" {
		t.Errorf("custom binding lost: %v", got)
	}
	if len(c.Keybindings["quit"]) == 0 {
		t.Error("missing actions should be filled from defaults")
	}

	// Conflicting table: rejected as a whole.
	path = writeConfigFile(t, `{"keybindings": {"next_page": ["KeyN"], "previous_page": ["KeyN"]}}`)
	result = LoadFromPath(path)
	if result.Status != "Warning" {
		t.Errorf("status = %q, want Warning for conflicting bindings", result.Status)
	}
	if got := result.Config.Keybindings["next_page"]; len(got) == 1 && got[0] == "KeyN" {
		t.Error("conflicting table should be replaced with defaults")
	}
}

func TestValidateKeybindings(t *testing.T) {
	tests := []struct {
		name     string
		bindings map[string][]string
		wantErr  bool
	}{
		{name: "valid", bindings: map[string][]string{"a": {"KeyA", "shift+KeyB"}}},
		{name: "unknown key", bindings: map[string][]string{"a": {"KeyÜ"}}, wantErr: true},
		{name: "unknown modifier", bindings: map[string][]string{"a": {"hyper+KeyA"}}, wantErr: true},
		{name: "conflict", bindings: map[string][]string{"a": {"KeyA"}, "b": {"KeyA"}}, wantErr: true},
		{name: "modifier distinguishes", bindings: map[string][]string{"a": {"KeyA"}, "b": {"shift+KeyA"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKeybindings(tt.bindings); (err != nil) != tt.wantErr {
				t.Errorf("ValidateKeybindings = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "komavi.json")
	c := defaultConfig()
	c.KomgaURL = "http://localhost:25600"
	c.PagedLayout = "double"

	SaveToPath(c, path)
	result := LoadFromPath(path)
	if result.Status != "OK" {
		t.Fatalf("reload status = %q (%v)", result.Status, result.Warnings)
	}
	if result.Config.KomgaURL != "http://localhost:25600" || result.Config.PagedLayout != "double" {
		t.Errorf("round trip lost fields: %+v", result.Config)
	}
}

func TestSaveRefusesBogusWindowSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "komavi.json")
	c := defaultConfig()
	c.WindowWidth = 1

	SaveToPath(c, path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("config with invalid window size should not be written")
	}
}

func TestStoreMapsReaderSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "komavi.json")
	c := defaultConfig()
	c.PagedLayout = "double"
	c.ScaleType = "original"
	c.ReadingDirection = "rtl"
	c.ContinuousDirection = "rtl"
	c.SidePaddingFraction = 0.2
	store := NewStore(path, c)

	settings, err := store.ReaderSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.PagedLayout != reader.DoublePages ||
		settings.ScaleType != reader.ScaleOriginal ||
		settings.PagedDirection != reader.RightToLeft ||
		settings.ContinuousDirection != reader.ContinuousRightToLeft ||
		settings.SidePaddingFraction != 0.2 {
		t.Errorf("mapped settings = %+v", settings)
	}

	settings.PagedLayout = reader.SinglePage
	settings.ScaleType = reader.ScaleFitHeight
	settings.PageSpacing = 12
	if err := store.SaveReaderSettings(settings); err != nil {
		t.Fatal(err)
	}

	// The write-back is visible both in memory and on disk.
	if got := store.Config(); got.PagedLayout != "single" || got.ScaleType != "fit_height" || got.PageSpacing != 12 {
		t.Errorf("in-memory config = %+v", got)
	}
	reloaded := LoadFromPath(path).Config
	if reloaded.ScaleType != "fit_height" || reloaded.PageSpacing != 12 {
		t.Errorf("persisted config = %+v", reloaded)
	}
}
