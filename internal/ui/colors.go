package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Palette holds the preview colours.
type Palette struct {
	Wall       tcell.Color
	Floor      tcell.Color
	Remembered tcell.Color // Seen tiles outside the vision radius
	Anchor     tcell.Color
	Stairs     tcell.Color
	Status     tcell.Color
}

// DefaultPalette returns the preview's built-in colours.
func DefaultPalette() Palette {
	return Palette{
		Wall:       MustParseHexColor("#8A8A8A"),
		Floor:      MustParseHexColor("#4E4E4E"),
		Remembered: MustParseHexColor("#2E2E3A"),
		Anchor:     MustParseHexColor("#FFD75F"),
		Stairs:     MustParseHexColor("#5FD7FF"),
		Status:     MustParseHexColor("#FFFFFF"),
	}
}

// ParseHexColor converts a hex color string (e.g., "#FF0000" or "FF0000") to a tcell.Color.
func ParseHexColor(hex string) (tcell.Color, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color length: %s", hex)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color %s: %w", hex, err)
	}
	return tcell.NewHexColor(int32(v)), nil
}

// MustParseHexColor converts a hex color string to tcell.Color, panicking on error.
func MustParseHexColor(hex string) tcell.Color {
	color, err := ParseHexColor(hex)
	if err != nil {
		panic(err)
	}
	return color
}
