package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/myles/perch/internal/models"
	"github.com/myles/perch/internal/output"
)

const minListWidth = 20

// View implements tea.Model
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var body string
	switch m.mode {
	case modeDetail:
		body = m.renderDetail()
	case modeCompose:
		body = m.compose.Form.View()
	case modeConfirm:
		body = m.renderConfirm()
	default:
		body = m.renderList()
	}

	sections := []string{
		m.renderTitleBar(),
		body,
		m.renderStatusBar(),
		m.renderHelp(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar() string {
	title := titleBarStyle.Render(" perch ")
	info := subtleStyle.Render(fmt.Sprintf(" %d posts cached", len(m.posts)))
	return ansi.Truncate(title+info, m.width, "…")
}

func (m Model) renderList() string {
	height := m.listHeight()
	if height < 1 {
		height = 1
	}

	if m.err != nil {
		return statusErrorStyle.Render("error: "+m.err.Error()) + strings.Repeat("\n", height-1)
	}
	if len(m.posts) == 0 {
		lines := []string{subtleStyle.Render("No posts cached. Press g to refresh.")}
		for len(lines) < height {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}

	start := m.offset
	if start > len(m.posts)-1 {
		start = len(m.posts) - 1
	}
	end := start + height
	if end > len(m.posts) {
		end = len(m.posts)
	}

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(&m.posts[i], i == m.cursor))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(p *models.Post, selected bool) string {
	width := m.width
	if width < minListWidth {
		width = minListWidth
	}

	author := authorStyle.Render(p.Author)
	if p.Mine {
		author += mineStyle.Render(" (you)")
	}

	like := subtleStyle.Render(fmt.Sprintf("♡ %d", p.Likes))
	if p.LikedByMe {
		like = likedStyle.Render(fmt.Sprintf("♥ %d", p.Likes))
	}

	attach := ""
	if p.Attachment != nil {
		attach = subtleStyle.Render(fmt.Sprintf(" [%s]", p.Attachment.Type))
	}

	line := fmt.Sprintf("%s %s  %s%s  %s  %s",
		subtleStyle.Render(fmt.Sprintf("#%-4d", p.ID)),
		author,
		firstLine(p.Content),
		attach,
		like,
		timestampStyle.Render(output.FormatTimeAgo(p.Published)),
	)

	if selected {
		return selectedRowStyle.Render("> " + ansi.Truncate(line, width-2, "…"))
	}
	return "  " + ansi.Truncate(line, width-2, "…")
}

func firstLine(content string) string {
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return content[:i]
	}
	return content
}

func (m Model) renderDetail() string {
	p := m.postByID(m.detailID)
	if p == nil {
		return subtleStyle.Render("Post is gone from the cache.")
	}
	header := output.FormatPostHeader(p)
	return header + "\n" + m.detail.View()
}

// setDetailContent rebuilds the viewport content for the open post.
func (m *Model) setDetailContent() {
	p := m.postByID(m.detailID)
	if p == nil {
		m.detail.SetContent(subtleStyle.Render("Post is gone from the cache."))
		return
	}

	width := m.width - 2
	if width < minListWidth {
		width = minListWidth
	}

	body, err := output.RenderMarkdownWithWidth(p.Content, width)
	if err != nil {
		body = p.Content
	}
	if p.Attachment != nil {
		body += "\n" + subtleStyle.Render(fmt.Sprintf("attachment (%s): %s", p.Attachment.Type, p.Attachment.URL))
	}
	m.detail.SetContent(body)
}

func (m Model) renderConfirm() string {
	height := m.listHeight()
	if height < 1 {
		height = 1
	}
	prompt := confirmStyle.Render(fmt.Sprintf("Delete post #%d?\n\n[y] delete   [n] keep", m.confirmID))
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, prompt)
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.newCount > 0 {
		parts = append(parts, newPostsStyle.Render(fmt.Sprintf("%d new post(s), g to refresh", m.newCount)))
	}
	if m.pending != nil {
		parts = append(parts, pendingStyle.Render(fmt.Sprintf("pending retry: %s", m.pending)))
	}
	if m.status != "" {
		style := statusStyle
		if m.statusErr {
			style = statusErrorStyle
		}
		parts = append(parts, style.Render(m.status))
	}

	if len(parts) == 0 {
		return ""
	}
	return ansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}

func (m Model) renderHelp() string {
	var keys string
	switch m.mode {
	case modeDetail:
		keys = "↑/↓ scroll · l like · esc back"
	case modeCompose:
		keys = "tab next field · ctrl+s post · esc cancel"
	case modeConfirm:
		keys = "y delete · n keep"
	default:
		keys = "↑/↓ move · enter open · l like · d delete · n new · o older · g refresh · r retry · q quit"
	}
	return ansi.Truncate(helpStyle.Render(keys), m.width, "…")
}
