package output

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Card bodies and node notes are markdown; rendering wraps to the
// terminal so long reference notes stay readable.
const (
	maxBodyWidth = 100
	minBodyWidth = 20
)

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 80
}

// RenderMarkdown renders a markdown body for terminal display. Blank
// input renders to "" so callers can skip the trailing newline glamour
// would otherwise emit.
func RenderMarkdown(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	width := terminalWidth()
	if width > maxBodyWidth {
		width = maxBodyWidth
	}
	if width < minBodyWidth {
		width = minBodyWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(rendered, "\n"), nil
}
