package motion

import (
	"image"
	"log"

	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"
)

// Tool is a selection tool.
type Tool int

const (
	ToolNone Tool = iota
	ToolRectangle
	ToolCircle
	ToolLasso
	ToolMagneticLasso
)

func (t Tool) String() string {
	switch t {
	case ToolRectangle:
		return "rectangle"
	case ToolCircle:
		return "circle"
	case ToolLasso:
		return "lasso"
	case ToolMagneticLasso:
		return "magnetic"
	default:
		return "none"
	}
}

// Params carries what a new handler needs to know about the session.
type Params struct {
	Viewport selection.Viewport
	Canvas   geometry.Size
	Source   image.Image
	Options  Options
	// Finder snaps magnetic lasso paths. Nil disables snapping.
	Finder ContourFinder
	Logger *log.Logger
}

// New creates a fresh handler for tool. Rectangle and circle start with
// default geometry when the viewport is known; lassos start empty. Unknown
// tools get an EmptyHandler.
func New(tool Tool, p Params) Handler {
	switch tool {
	case ToolRectangle:
		return NewRectangleHandler(p.Viewport, p.Options)
	case ToolCircle:
		return NewCircleHandler(p.Viewport, p.Options)
	case ToolLasso:
		return NewLassoHandler(p.Viewport, p.Options)
	case ToolMagneticLasso:
		return NewMagneticLassoHandler(p.Viewport, p.Options, p.Canvas, p.Source, p.Finder, p.Logger)
	default:
		return NewEmptyHandler()
	}
}
