package prefs

import (
	"log"

	"snapcrop/internal/app"
)

// Preference keys.
const (
	KeyAllowOutside    = "allowOutsideImage"
	KeyBlurSize        = "snapBlurSize"
	KeyCannyLow        = "snapCannyLow"
	KeyCannyHigh       = "snapCannyHigh"
	KeyDilateKernel    = "snapDilateKernel"
	KeyFilterDownscale = "filterDownscale"
	KeySaveDir         = "saveDirectory"
	KeyLastTool        = "lastTool"
	KeyLastDir         = "lastDirectory"
)

// Settings builds editor settings from the stored preferences, starting from
// app.DefaultSettings. Invalid stored values fall back to the defaults.
func (p *Prefs) Settings() app.Settings {
	def := app.DefaultSettings()
	s := def
	s.AllowOutsideImage = p.Bool(KeyAllowOutside, def.AllowOutsideImage)
	s.Snapper.BlurSize = p.Int(KeyBlurSize, def.Snapper.BlurSize)
	s.Snapper.CannyLow = float32(p.Float(KeyCannyLow, float64(def.Snapper.CannyLow)))
	s.Snapper.CannyHigh = float32(p.Float(KeyCannyHigh, float64(def.Snapper.CannyHigh)))
	s.Snapper.DilateKernel = p.Int(KeyDilateKernel, def.Snapper.DilateKernel)
	s.FilterDownscale = p.Int(KeyFilterDownscale, def.FilterDownscale)
	s.SaveDir = p.String(KeySaveDir, def.SaveDir)
	if t, err := app.ParseTool(p.String(KeyLastTool, def.LastTool.String())); err == nil {
		s.LastTool = t
	}

	if err := s.Validate(); err != nil {
		log.Printf("prefs: ignoring stored settings: %v", err)
		return def
	}
	return s
}

// SetSettings stores s.
func (p *Prefs) SetSettings(s app.Settings) {
	p.SetBool(KeyAllowOutside, s.AllowOutsideImage)
	p.SetInt(KeyBlurSize, s.Snapper.BlurSize)
	p.SetFloat(KeyCannyLow, float64(s.Snapper.CannyLow))
	p.SetFloat(KeyCannyHigh, float64(s.Snapper.CannyHigh))
	p.SetInt(KeyDilateKernel, s.Snapper.DilateKernel)
	p.SetInt(KeyFilterDownscale, s.FilterDownscale)
	p.SetString(KeySaveDir, s.SaveDir)
	p.SetString(KeyLastTool, s.LastTool.String())
}
