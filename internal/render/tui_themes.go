package render

import (
	"github.com/charmbracelet/lipgloss"
)

// TUITheme is the color scheme of the interactive view
type TUITheme struct {
	Name        string
	Description string

	// Base colors
	Background lipgloss.Color
	Card       lipgloss.Color // wave card background
	Border     lipgloss.Color

	// Accent colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	// Text colors
	Text     lipgloss.Color
	CardText lipgloss.Color
	TextDim  lipgloss.Color
}

// Built-in TUI themes
var (
	// OldLaceTheme renders waves on OldLace cards
	OldLaceTheme = TUITheme{
		Name:        "oldlace",
		Description: "OldLace - wave cards on warm paper (default)",

		Background: lipgloss.Color("#1f1d1a"),
		Card:       lipgloss.Color("#fdf5e6"),
		Border:     lipgloss.Color("#c9b99a"),

		Primary:   lipgloss.Color("#d0a85c"),
		Secondary: lipgloss.Color("#8fbf7f"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#e06c75"),

		Text:     lipgloss.Color("#f0e6d2"),
		CardText: lipgloss.Color("#3b3024"),
		TextDim:  lipgloss.Color("#8a7f6e"),
	}

	// TokyoNightTheme is a dark theme with blue accents
	TokyoNightTheme = TUITheme{
		Name:        "tokyonight",
		Description: "Tokyo Night - dark theme with blue accents",

		Background: lipgloss.Color("#1a1b26"),
		Card:       lipgloss.Color("#24283b"),
		Border:     lipgloss.Color("#414868"),

		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#f7768e"),

		Text:     lipgloss.Color("#c0caf5"),
		CardText: lipgloss.Color("#c0caf5"),
		TextDim:  lipgloss.Color("#565f89"),
	}

	// DraculaTheme is a dark theme with vibrant colors
	DraculaTheme = TUITheme{
		Name:        "dracula",
		Description: "Dracula - dark theme with vibrant colors",

		Background: lipgloss.Color("#282a36"),
		Card:       lipgloss.Color("#44475a"),
		Border:     lipgloss.Color("#6272a4"),

		Primary:   lipgloss.Color("#8be9fd"),
		Secondary: lipgloss.Color("#50fa7b"),
		Warning:   lipgloss.Color("#f1fa8c"),
		Error:     lipgloss.Color("#ff5555"),

		Text:     lipgloss.Color("#f8f8f2"),
		CardText: lipgloss.Color("#f8f8f2"),
		TextDim:  lipgloss.Color("#6272a4"),
	}
)

// GetTUIThemeByName returns a TUI theme by its name
func GetTUIThemeByName(name string) (TUITheme, bool) {
	for _, theme := range AvailableTUIThemes() {
		if theme.Name == name {
			return theme, true
		}
	}
	return TUITheme{}, false
}

// TUIThemeOrDefault returns the named theme, or OldLace when unknown
func TUIThemeOrDefault(name string) TUITheme {
	if theme, ok := GetTUIThemeByName(name); ok {
		return theme
	}
	return OldLaceTheme
}

// AvailableTUIThemes returns all TUI themes
func AvailableTUIThemes() []TUITheme {
	return []TUITheme{
		OldLaceTheme,
		TokyoNightTheme,
		DraculaTheme,
	}
}

// TUIThemeNames returns just the theme names for selection
func TUIThemeNames() []string {
	themes := AvailableTUIThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
