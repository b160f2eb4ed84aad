// Package output provides styled terminal output helpers (success, error,
// warning, card formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/trail/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	linkStyles   = map[models.LinkType]lipgloss.Style{
		models.LinkRelated: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.LinkParent:  lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		models.LinkChild:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Subtle prints dimmed supporting text
func Subtle(format string, args ...interface{}) {
	fmt.Println(subtleStyle.Render(fmt.Sprintf(format, args...)))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatLink formats a typed card link with color
func FormatLink(l models.Link) string {
	style, ok := linkStyles[l.Type]
	if !ok {
		style = subtleStyle
	}
	label := l.Label
	if label == "" {
		label = l.TargetID
	}
	return fmt.Sprintf("%s %s", style.Render(fmt.Sprintf("[%s]", l.Type)), label)
}

// FormatCheck renders a completion marker
func FormatCheck(done bool) string {
	if done {
		return doneStyle.Render("[x]")
	}
	return subtleStyle.Render("[ ]")
}

// FormatCard formats a card one-liner: title, tags, link count
func FormatCard(c models.Card) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Title))
	if len(c.Tags) > 0 {
		b.WriteString(" " + tagStyle.Render("#"+strings.Join(c.Tags, " #")))
	}
	if n := len(c.Links); n > 0 {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  (%d links)", n)))
	}
	b.WriteString("\n  " + subtleStyle.Render(c.ID))
	return b.String()
}
