package config

import (
	"sync"

	"komavi/internal/reader"
)

// Store adapts the JSON config to the reader's SettingsStore: reader
// preferences are a slice of the full config, saved back into it.
type Store struct {
	path string

	mu     sync.Mutex
	config Config
}

func NewStore(path string, config Config) *Store {
	return &Store{path: path, config: config}
}

// Config returns the full current configuration.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// UpdateWindowSize records the window geometry for the next start.
func (s *Store) UpdateWindowSize(width, height int) {
	s.mu.Lock()
	s.config.WindowWidth = width
	s.config.WindowHeight = height
	config := s.config
	s.mu.Unlock()
	SaveToPath(config, s.path)
}

func (s *Store) ReaderSettings() (reader.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.config

	settings := reader.Settings{
		DoublePageOffset:    c.DoublePageOffset,
		StretchToFit:        c.StretchToFit,
		AllowUpsample:       c.AllowUpsample,
		SidePaddingFraction: c.SidePaddingFraction,
		PageSpacing:         c.PageSpacing,
	}
	if c.PagedLayout == "double" {
		settings.PagedLayout = reader.DoublePages
	}
	switch c.ScaleType {
	case "fit_width":
		settings.ScaleType = reader.ScaleFitWidth
	case "fit_height":
		settings.ScaleType = reader.ScaleFitHeight
	case "original":
		settings.ScaleType = reader.ScaleOriginal
	}
	if c.ReadingDirection == "rtl" {
		settings.PagedDirection = reader.RightToLeft
	}
	switch c.ContinuousDirection {
	case "ltr":
		settings.ContinuousDirection = reader.ContinuousLeftToRight
	case "rtl":
		settings.ContinuousDirection = reader.ContinuousRightToLeft
	}
	return settings, nil
}

func (s *Store) SaveReaderSettings(settings reader.Settings) error {
	s.mu.Lock()

	s.config.DoublePageOffset = settings.DoublePageOffset
	s.config.StretchToFit = settings.StretchToFit
	s.config.AllowUpsample = settings.AllowUpsample
	s.config.SidePaddingFraction = settings.SidePaddingFraction
	s.config.PageSpacing = settings.PageSpacing

	s.config.PagedLayout = "single"
	if settings.PagedLayout == reader.DoublePages {
		s.config.PagedLayout = "double"
	}
	switch settings.ScaleType {
	case reader.ScaleFitWidth:
		s.config.ScaleType = "fit_width"
	case reader.ScaleFitHeight:
		s.config.ScaleType = "fit_height"
	case reader.ScaleOriginal:
		s.config.ScaleType = "original"
	default:
		s.config.ScaleType = "screen"
	}
	s.config.ReadingDirection = "ltr"
	if settings.PagedDirection == reader.RightToLeft {
		s.config.ReadingDirection = "rtl"
	}
	switch settings.ContinuousDirection {
	case reader.ContinuousLeftToRight:
		s.config.ContinuousDirection = "ltr"
	case reader.ContinuousRightToLeft:
		s.config.ContinuousDirection = "rtl"
	default:
		s.config.ContinuousDirection = "top_to_bottom"
	}

	config := s.config
	s.mu.Unlock()

	SaveToPath(config, s.path)
	return nil
}
