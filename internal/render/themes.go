package render

import (
	"fmt"
	"os"
)

// Glamour styles accepted by Options.Style
const (
	StyleDark    = "dark"
	StyleLight   = "light"
	StyleDracula = "dracula"
	StyleTokyo   = "tokyo-night"
	StylePink    = "pink"
	StyleNoTTY   = "notty"
	StyleASCII   = "ascii"
)

// StyleInfo describes a markdown style for display purposes.
type StyleInfo struct {
	Name        string
	Description string
}

// AvailableStyles lists the built-in glamour styles
func AvailableStyles() []StyleInfo {
	return []StyleInfo{
		{Name: StyleDark, Description: "Dark theme (default)"},
		{Name: StyleLight, Description: "Light theme for bright terminals"},
		{Name: StyleDracula, Description: "Dracula color scheme"},
		{Name: StyleTokyo, Description: "Tokyo Night color scheme"},
		{Name: StylePink, Description: "Pink accents"},
		{Name: StyleNoTTY, Description: "Plain text (no styling)"},
		{Name: StyleASCII, Description: "ASCII-only output"},
	}
}

// IsBuiltinStyle reports whether style names a glamour style rather than a file
func IsBuiltinStyle(style string) bool {
	for _, s := range AvailableStyles() {
		if s.Name == style {
			return true
		}
	}
	return false
}

// CheckStyle returns an error unless style is a built-in name or an existing
// JSON style file
func CheckStyle(style string) error {
	if IsBuiltinStyle(style) {
		return nil
	}
	info, err := os.Stat(style)
	if err != nil {
		return fmt.Errorf("unknown markdown style %q: not a built-in style or a readable file", style)
	}
	if info.IsDir() {
		return fmt.Errorf("markdown style %q is a directory", style)
	}
	return nil
}
