// Package colorutil provides shared color utilities for selection overlays.
package colorutil

import (
	"image/color"
)

// Common overlay colors used throughout the application.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	LightGray = color.RGBA{R: 211, G: 211, B: 211, A: 255}
	Magenta   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue      = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Backdrop  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// HandleColor returns the fill used for a resize handle.
func HandleColor(active bool) color.RGBA {
	if active {
		return Blue
	}
	return Magenta
}

// WithAlpha returns c with its alpha replaced, premultiplying the channels.
func WithAlpha(c color.RGBA, alpha uint8) color.RGBA {
	scale := func(v uint8) uint8 {
		return uint8(uint16(v) * uint16(alpha) / 255)
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: alpha}
}
