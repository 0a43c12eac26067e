package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// SelectionColor strokes selection outlines and handles.
var SelectionColor = color.NRGBA{R: 0x21, G: 0x96, B: 0xF3, A: 0xFF}

// Theme is the editor's fyne theme: the default theme with the selection
// colour as primary and larger touch targets for scroll bars.
type Theme struct{}

var _ fyne.Theme = (*Theme)(nil)

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return SelectionColor
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x21, G: 0x96, B: 0xF3, A: 0x60}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 16
	case theme.SizeNameInlineIcon:
		return 24
	default:
		return theme.DefaultTheme().Size(name)
	}
}
