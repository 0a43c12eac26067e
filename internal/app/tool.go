package app

import (
	"fmt"
	"strings"

	"snapcrop/internal/motion"
)

// Tool is an editor mode. Selection tools map onto motion handlers; the
// filter and background remover tools act on the whole image.
type Tool int

const (
	ToolNone Tool = iota
	ToolRectangle
	ToolCircle
	ToolLasso
	ToolMagneticLasso
	ToolFilter
	ToolBackgroundRemover
)

var toolNames = []string{
	ToolNone:              "none",
	ToolRectangle:         "rectangle",
	ToolCircle:            "circle",
	ToolLasso:             "lasso",
	ToolMagneticLasso:     "magnetic",
	ToolFilter:            "filter",
	ToolBackgroundRemover: "background",
}

func (t Tool) String() string {
	if t >= 0 && int(t) < len(toolNames) {
		return toolNames[t]
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// Tools returns every tool in toolbar order.
func Tools() []Tool {
	out := make([]Tool, len(toolNames))
	for i := range out {
		out[i] = Tool(i)
	}
	return out
}

// ParseTool looks a tool up by name, ignoring case.
func ParseTool(name string) (Tool, error) {
	for i, n := range toolNames {
		if strings.EqualFold(n, name) {
			return Tool(i), nil
		}
	}
	return ToolNone, fmt.Errorf("unknown tool %q", name)
}

// WholeImage reports whether the tool exports the full image rather than
// a selection.
func (t Tool) WholeImage() bool {
	return t == ToolFilter || t == ToolBackgroundRemover
}

func (t Tool) motionTool() motion.Tool {
	switch t {
	case ToolRectangle:
		return motion.ToolRectangle
	case ToolCircle:
		return motion.ToolCircle
	case ToolLasso:
		return motion.ToolLasso
	case ToolMagneticLasso:
		return motion.ToolMagneticLasso
	default:
		return motion.ToolNone
	}
}
