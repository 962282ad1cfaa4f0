package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

var (
	// fatih/color disables colors when the output is not a terminal
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// PrintSuccess prints a success message with a checkmark.
func PrintSuccess(w io.Writer, msg string) {
	_, _ = successColor.Fprintf(w, "✓ %s\n", msg)
}

// PrintWarning prints a warning message.
func PrintWarning(w io.Writer, msg string) {
	_, _ = warningColor.Fprintf(w, "⚠ %s\n", msg)
}

// PrintError prints an error. Unknown variables are listed one per line with their suggestions.
func PrintError(w io.Writer, err error) {
	var invalid *soep.InvalidVariableError
	if !errors.As(err, &invalid) {
		_, _ = errorColor.Fprintf(w, "✗ %v\n", err)
		return
	}

	_, _ = errorColor.Fprintf(w, "✗ %d unknown variable(s)\n", len(invalid.Names))
	for _, name := range invalid.Names {
		_, _ = labelColor.Fprintf(w, "  %s", name)
		sugs := invalid.Suggestions[name]
		if len(sugs) == 0 {
			fmt.Fprintln(w)
			continue
		}
		parts := make([]string, 0, len(sugs))
		for _, s := range sugs {
			parts = append(parts, fmt.Sprintf("%s (%s)", s.Name, s.Table))
		}
		_, _ = dimColor.Fprintf(w, ": did you mean %s?\n", strings.Join(parts, ", "))
	}
}

// formatYears formats survey years, or "-" for variables without survey year.
func formatYears(years []int) string {
	if years == nil {
		return "-"
	}
	if len(years) == 0 {
		return "none"
	}
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprint(y)
	}
	return strings.Join(parts, ",")
}
