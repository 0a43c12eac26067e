package app

import (
	"fmt"

	"snapcrop/internal/contour"
)

// Settings holds the editor configuration.
type Settings struct {
	// AllowOutsideImage lets selections extend past the displayed image.
	AllowOutsideImage bool

	// Snapper tunes magnetic lasso edge detection.
	Snapper contour.Params

	// FilterDownscale shrinks images by this factor before filtering.
	FilterDownscale int

	// SaveDir receives exports. Empty means the user's Pictures folder.
	SaveDir string

	// LastTool is the tool restored at startup.
	LastTool Tool
}

// DefaultSettings returns the default configuration.
func DefaultSettings() Settings {
	return Settings{
		AllowOutsideImage: true,
		Snapper:           contour.DefaultParams(),
		FilterDownscale:   2,
		LastTool:          ToolRectangle,
	}
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	if err := s.Snapper.Validate(); err != nil {
		return fmt.Errorf("snapper: %w", err)
	}
	if s.FilterDownscale < 1 {
		return fmt.Errorf("filter downscale must be at least 1, got %d", s.FilterDownscale)
	}
	if s.LastTool < ToolNone || s.LastTool > ToolBackgroundRemover {
		return fmt.Errorf("unknown tool %d", int(s.LastTool))
	}
	return nil
}
