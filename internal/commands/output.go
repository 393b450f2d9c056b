package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/models"
)

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	// Extract additional context from structured errors
	var callErr *apierrors.CallFailedError
	if errors.As(err, &callErr) && callErr.Method != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Method: %s", callErr.Method)))
	}

	var netErr *apierrors.WrongNetworkError
	if errors.As(err, &netErr) {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Network: %s (required: %s)",
			models.NetworkName(netErr.Current), models.NetworkName(netErr.Required))))
	}

	var txErr *apierrors.TransactionFailedError
	if errors.As(err, &txErr) && txErr.TxHash != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Transaction: %s", txErr.TxHash)))
	}

	if hint := apierrors.Hint(err); hint != "" {
		sb.WriteString(dimStyle.Render("\n  Hint: " + hint))
	}

	return sb.String()
}
