package domain

import (
	"github.com/cespare/xxhash/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// The hue band skips reds (errors) and the darkest blues (terminal background).
const (
	hueStart       = 40.0
	hueWidth       = 260.0
	colorSat       = 0.65
	colorLightness = 0.6
)

// UsernameColor maps a display name to a stable "#rrggbb" color.
func UsernameColor(name string) string {
	hue := hueStart + float64(xxhash.Sum64String(name)%uint64(hueWidth))
	return colorful.Hsl(hue, colorSat, colorLightness).Hex()
}
