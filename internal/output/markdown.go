package output

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	fallbackWidth  = 80
	minRenderWidth = 20
)

// Renderers are cached per wrap width: the watch TUI re-renders the open
// post on every resize and glamour renderer construction is not cheap.
// renderMu also serializes Render calls, which share renderer state.
var (
	renderMu  sync.Mutex
	renderers = make(map[int]*glamour.TermRenderer)
)

// TerminalWidth reports the stdout terminal width. When stdout is not a
// terminal it consults COLUMNS, then falls back.
func TerminalWidth(fallback int) int {
	if fallback <= 0 {
		fallback = fallbackWidth
	}

	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return fallback
}

// RenderMarkdown renders a post body as markdown sized to the terminal.
func RenderMarkdown(text string) (string, error) {
	return RenderMarkdownWithWidth(text, TerminalWidth(fallbackWidth))
}

// RenderMarkdownWithWidth renders a post body wrapped at the given width.
// Empty bodies render as empty without invoking the renderer.
func RenderMarkdownWithWidth(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if width < minRenderWidth {
		width = minRenderWidth
	}

	renderMu.Lock()
	defer renderMu.Unlock()

	r, ok := renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		renderers[width] = r
	}

	out, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
