// Package output provides styled terminal output helpers (success, error,
// post formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/myles/perch/internal/models"
)

var (
	// Styles
	authorStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	likedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	mineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
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
	fmt.Printf(format+"\n", args...)
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

// Error codes for structured JSON output
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeNotLoggedIn   = "not_logged_in"
	ErrCodeRequestFailed = "request_failed"
	ErrCodeCacheError    = "cache_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	fmt.Printf(`{"error":{"code":"%s","message":"%s"}}`, code, message)
	fmt.Println()
}

// LikeBadge formats a post's like count, filled heart when the viewer
// liked it.
func LikeBadge(p *models.Post) string {
	if p.LikedByMe {
		return likedStyle.Render(fmt.Sprintf("♥ %d", p.Likes))
	}
	return subtleStyle.Render(fmt.Sprintf("♡ %d", p.Likes))
}

// AttachmentBadge returns a marker for an attached media item, or "".
func AttachmentBadge(att *models.Attachment) string {
	if att == nil {
		return ""
	}
	return subtleStyle.Render(fmt.Sprintf("[%s]", att.Type))
}

// firstLine clips content to its first line, at most max runes.
func firstLine(content string, max int) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	runes := []rune(line)
	if len(runes) > max {
		return string(runes[:max-1]) + "…"
	}
	return line
}

// FormatPostShort formats a post as a single timeline line
func FormatPostShort(p *models.Post) string {
	var parts []string
	parts = append(parts, subtleStyle.Render(fmt.Sprintf("#%d", p.ID)))
	parts = append(parts, authorStyle.Render(p.Author))
	parts = append(parts, firstLine(p.Content, 60))

	if p.Attachment != nil {
		parts = append(parts, AttachmentBadge(p.Attachment))
	}
	parts = append(parts, LikeBadge(p))
	parts = append(parts, subtleStyle.Render(FormatTimeAgo(p.Published)))
	if p.Mine {
		parts = append(parts, mineStyle.Render("(you)"))
	}

	return strings.Join(parts, "  ")
}

// FormatPostHeader formats the metadata block above a post's content
func FormatPostHeader(p *models.Post) string {
	var sb strings.Builder

	sb.WriteString(authorStyle.Render(p.Author))
	if p.Mine {
		sb.WriteString(" " + mineStyle.Render("(you)"))
	}
	sb.WriteString("  " + subtleStyle.Render(fmt.Sprintf("#%d", p.ID)))
	sb.WriteString("\n")
	sb.WriteString(subtleStyle.Render(p.Published.Local().Format("2006-01-02 15:04")))
	sb.WriteString(subtleStyle.Render(fmt.Sprintf(" (%s)", FormatTimeAgo(p.Published))))
	sb.WriteString("  " + LikeBadge(p))

	return sb.String()
}

// FormatPostLong formats a post in full, content unrendered
func FormatPostLong(p *models.Post) string {
	var sb strings.Builder

	sb.WriteString(FormatPostHeader(p))
	sb.WriteString("\n\n")
	sb.WriteString(p.Content)
	sb.WriteString("\n")

	if p.Attachment != nil {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render(fmt.Sprintf("attachment (%s): %s", p.Attachment.Type, p.Attachment.URL)))
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatPendingAction describes the armed retryable action for status lines
func FormatPendingAction(a *models.PendingAction) string {
	if a == nil {
		return ""
	}
	return warningStyle.Render(fmt.Sprintf("pending retry: %s", a))
}

// timeAgoSteps are the relative buckets FormatTimeAgo walks, smallest first.
var timeAgoSteps = []struct {
	upTo time.Duration
	unit string
	div  time.Duration
}{
	{time.Hour, "m", time.Minute},
	{24 * time.Hour, "h", time.Hour},
	{7 * 24 * time.Hour, "d", 24 * time.Hour},
}

// FormatTimeAgo renders t relative to now; anything older than a week
// shows as a plain date.
func FormatTimeAgo(t time.Time) string {
	d := time.Since(t)
	if d < time.Minute {
		return "just now"
	}
	for _, s := range timeAgoSteps {
		if d < s.upTo {
			return fmt.Sprintf("%d%s ago", int(d/s.div), s.unit)
		}
	}
	return t.Format("2006-01-02")
}
