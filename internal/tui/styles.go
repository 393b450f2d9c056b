// Package tui provides the terminal user interface for waveportal.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/render"
)

// Color variables (updated from theme)
var (
	colorCard      lipgloss.Color
	colorBorder    lipgloss.Color
	colorPrimary   lipgloss.Color
	colorSecondary lipgloss.Color
	colorWarning   lipgloss.Color
	colorError     lipgloss.Color
	colorText      lipgloss.Color
	colorCardText  lipgloss.Color
	colorTextDim   lipgloss.Color
)

// Style variables (rebuilt when theme changes)
var (
	headerStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
	bioStyle      lipgloss.Style
	hintStyle     lipgloss.Style

	// Message input
	inputPanelStyle lipgloss.Style
	inputLabelStyle lipgloss.Style

	// Wave and connect controls
	buttonStyle    lipgloss.Style
	buttonKeyStyle lipgloss.Style

	// Wave cards
	recordsAreaStyle lipgloss.Style
	cardStyle        lipgloss.Style
	cardLabelStyle   lipgloss.Style

	loadingStyle lipgloss.Style

	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style

	noticeStyle lipgloss.Style
	errorStyle  lipgloss.Style

	// Network gate
	gateStyle      lipgloss.Style
	gateTitleStyle lipgloss.Style
)

func init() {
	SetTheme(render.OldLaceTheme.Name)
}

// SetTheme switches the TUI palette. Unknown names fall back to OldLace.
func SetTheme(name string) {
	theme := render.TUIThemeOrDefault(name)

	colorCard = theme.Card
	colorBorder = theme.Border
	colorPrimary = theme.Primary
	colorSecondary = theme.Secondary
	colorWarning = theme.Warning
	colorError = theme.Error
	colorText = theme.Text
	colorCardText = theme.CardText
	colorTextDim = theme.TextDim

	rebuildStyles()
}

func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	bioStyle = lipgloss.NewStyle().
		Foreground(colorText).
		Align(lipgloss.Center).
		MarginTop(1)

	hintStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		MarginTop(1)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	buttonStyle = lipgloss.NewStyle().
		Foreground(colorCardText).
		Background(colorCard).
		Bold(true).
		Padding(0, 2).
		MarginRight(2)

	buttonKeyStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	recordsAreaStyle = lipgloss.NewStyle().
		MarginTop(1)

	cardStyle = lipgloss.NewStyle().
		Foreground(colorCardText).
		Background(colorCard).
		Padding(0, 1).
		MarginTop(1)

	cardLabelStyle = lipgloss.NewStyle().
		Foreground(colorCardText).
		Background(colorCard).
		Bold(true)

	loadingStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		MarginTop(1)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	noticeStyle = lipgloss.NewStyle().
		Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true)

	gateStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorWarning).
		Padding(1, 3).
		Align(lipgloss.Center)

	gateTitleStyle = lipgloss.NewStyle().
		Foreground(colorWarning).
		Bold(true).
		MarginBottom(1)
}

// FormatError returns a styled error message with a hint when one applies
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	errStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(fmt.Sprintf("✗ %v", err)))

	if hint := apierrors.Hint(err); hint != "" {
		sb.WriteString(dimStyle.Render("\n  Hint: " + hint))
	}
	return sb.String()
}

// PrintError prints a styled error message to stderr.
func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, FormatError(err))
}
