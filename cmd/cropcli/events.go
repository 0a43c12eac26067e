package main

import (
	"fmt"
	"strconv"
	"strings"

	"snapcrop/internal/motion"
	"snapcrop/pkg/geometry"
)

// parseEvents reads a space-separated gesture script such as
// "d:30,60 m:100,100 u:100,100". Kinds are d(own), m(ove), u(p) and
// c(ancel); a cancel needs no coordinates.
func parseEvents(script string) ([]motion.Event, error) {
	var events []motion.Event
	for _, tok := range strings.Fields(script) {
		kindStr, coords, _ := strings.Cut(tok, ":")

		var kind motion.EventKind
		switch strings.ToLower(kindStr) {
		case "d", "down":
			kind = motion.EventDown
		case "m", "move":
			kind = motion.EventMove
		case "u", "up":
			kind = motion.EventUp
		case "c", "cancel":
			events = append(events, motion.Event{Kind: motion.EventCancel})
			continue
		default:
			return nil, fmt.Errorf("event %q: unknown kind %q", tok, kindStr)
		}

		x, y, err := parsePair(coords, ",")
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", tok, err)
		}
		events = append(events, motion.Event{Kind: kind, X: x, Y: y})
	}
	return events, nil
}

// parseSize reads "WxH".
func parseSize(s string) (geometry.Size, error) {
	w, h, err := parsePair(strings.ToLower(s), "x")
	if err != nil {
		return geometry.Size{}, fmt.Errorf("canvas %q: %w", s, err)
	}
	size := geometry.NewSize(w, h)
	if size.IsEmpty() {
		return geometry.Size{}, fmt.Errorf("canvas %q: width and height must be positive", s)
	}
	return size, nil
}

func parsePair(s, sep string) (float64, float64, error) {
	a, b, ok := strings.Cut(s, sep)
	if !ok {
		return 0, 0, fmt.Errorf("expected two values separated by %q", sep)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
