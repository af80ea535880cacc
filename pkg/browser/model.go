// Package browser is the interactive feed TUI behind 'perch watch': a
// timeline list with a detail view, compose form, and the same optimistic
// mutation semantics as the CLI commands.
package browser

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/myles/perch/internal/feed"
	"github.com/myles/perch/internal/models"
	"github.com/myles/perch/internal/store"
)

// listCap bounds how many cached posts the list keeps in memory.
const listCap = 200

// viewMode is which screen the browser is showing
type viewMode int

const (
	modeList viewMode = iota
	modeDetail
	modeCompose
	modeConfirm
)

// Model is the main Bubble Tea model for the feed browser
type Model struct {
	syn *feed.Synchronizer

	// Window dimensions
	width  int
	height int

	mode viewMode

	// List state
	posts  []models.Post
	cursor int
	offset int

	// Detail state
	detail   viewport.Model
	detailID int64

	// Compose state
	compose *composeState

	// Confirm state (delete)
	confirmID int64

	// Status bar
	pending   *models.PendingAction
	newCount  int
	status    string
	statusErr bool

	err error
}

// NewModel creates the browser model over an open synchronizer.
func NewModel(syn *feed.Synchronizer) Model {
	return Model{syn: syn}
}

// Messages

type postsLoadedMsg struct {
	posts   []models.Post
	pending *models.PendingAction
	err     error
}

// actionDoneMsg reports the outcome of a mutation or reload.
type actionDoneMsg struct {
	info string
	err  error
	hint string
}

// pollUpdateMsg wraps a background poll result.
type pollUpdateMsg feed.Update

type clearStatusMsg struct{}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.loadPosts()
}

// loadPosts returns a command that rereads the cached timeline and the
// pending slot.
func (m Model) loadPosts() tea.Cmd {
	syn := m.syn
	return func() tea.Msg {
		posts, err := syn.Store().ListPosts(store.ListPostsOptions{Limit: listCap})
		if err != nil {
			return postsLoadedMsg{err: err}
		}
		pending, err := syn.Pending()
		if err != nil {
			return postsLoadedMsg{posts: posts, err: err}
		}
		return postsLoadedMsg{posts: posts, pending: pending}
	}
}

func (m Model) doReact(id int64, like bool) tea.Cmd {
	syn := m.syn
	return func() tea.Msg {
		verb := "Liked"
		var err error
		if like {
			err = syn.React(id)
		} else {
			verb = "Unliked"
			err = syn.Unreact(id)
		}
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("%s #%d failed: %w", verb, id, err), hint: "saved locally, r to retry"}
		}
		return actionDoneMsg{info: fmt.Sprintf("%s #%d", verb, id)}
	}
}

func (m Model) doDelete(id int64) tea.Cmd {
	syn := m.syn
	return func() tea.Msg {
		if err := syn.Delete(id); err != nil {
			return actionDoneMsg{err: fmt.Errorf("delete #%d failed: %w", id, err), hint: "post restored, r to retry"}
		}
		return actionDoneMsg{info: fmt.Sprintf("Deleted #%d", id)}
	}
}

func (m Model) doSubmit(draft models.Draft) tea.Cmd {
	syn := m.syn
	return func() tea.Msg {
		post, err := syn.Submit(draft)
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("post failed: %w", err), hint: "draft kept, r to retry"}
		}
		return actionDoneMsg{info: fmt.Sprintf("Posted #%d", post.ID)}
	}
}

func (m Model) doRetry() tea.Cmd {
	syn := m.syn
	return func() tea.Msg {
		pending, err := syn.Pending()
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if err := syn.Retry(); err != nil {
			return actionDoneMsg{err: fmt.Errorf("retry failed: %w", err), hint: "still recorded"}
		}
		if pending == nil {
			return actionDoneMsg{info: "Nothing pending, reloaded feed"}
		}
		return actionDoneMsg{info: fmt.Sprintf("Replayed %s", pending)}
	}
}

func (m Model) doOlder() tea.Cmd {
	syn := m.syn
	return func() tea.Msg {
		n, err := syn.LoadNextPage()
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("load older failed: %w", err)}
		}
		if n == 0 {
			return actionDoneMsg{info: "No more posts"}
		}
		return actionDoneMsg{info: fmt.Sprintf("Loaded %d older post(s)", n)}
	}
}

func (m Model) doRefresh() tea.Cmd {
	syn := m.syn
	return func() tea.Msg {
		n, err := syn.Reload()
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("refresh failed: %w", err)}
		}
		return actionDoneMsg{info: fmt.Sprintf("Refreshed (%d posts)", n)}
	}
}

func clearStatusAfter() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = msg.Width
		m.detail.Height = m.detailHeight()
		if m.mode == modeDetail {
			m.setDetailContent()
		}
		return m, nil

	case postsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.posts = msg.posts
		m.pending = msg.pending
		m.clampCursor()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			if msg.hint != "" {
				m.status += " (" + msg.hint + ")"
			}
			m.statusErr = true
		} else {
			m.status = msg.info
			m.statusErr = false
		}
		return m, tea.Batch(m.loadPosts(), clearStatusAfter())

	case pollUpdateMsg:
		if msg.Err != nil {
			m.status = fmt.Sprintf("background poll failed: %v", msg.Err)
			m.statusErr = true
			return m, clearStatusAfter()
		}
		m.newCount += msg.Fresh
		return m, m.loadPosts()

	case clearStatusMsg:
		m.status = ""
		m.statusErr = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Forward remaining messages to the active component.
	switch m.mode {
	case modeDetail:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	case modeCompose:
		return m.updateCompose(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeCompose:
		return m.handleComposeKey(msg)
	case modeConfirm:
		return m.handleConfirmKey(msg)
	case modeDetail:
		return m.handleDetailKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil

	case "enter":
		if p := m.selected(); p != nil {
			m.mode = modeDetail
			m.detailID = p.ID
			m.detail = viewport.New(m.width, m.detailHeight())
			m.setDetailContent()
		}
		return m, nil

	case "l":
		if p := m.selected(); p != nil {
			return m, m.doReact(p.ID, !p.LikedByMe)
		}
		return m, nil

	case "d":
		if p := m.selected(); p != nil {
			if !p.Mine {
				m.status = fmt.Sprintf("post #%d is not yours", p.ID)
				m.statusErr = true
				return m, clearStatusAfter()
			}
			m.mode = modeConfirm
			m.confirmID = p.ID
		}
		return m, nil

	case "n":
		m.mode = modeCompose
		m.compose = newComposeState()
		return m, m.compose.Form.Init()

	case "o":
		return m, m.doOlder()

	case "g":
		m.newCount = 0
		return m, m.doRefresh()

	case "r":
		return m, m.doRetry()
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.mode = modeList
		return m, nil

	case "l":
		if p := m.postByID(m.detailID); p != nil {
			return m, m.doReact(p.ID, !p.LikedByMe)
		}
		return m, nil

	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		id := m.confirmID
		m.mode = modeList
		m.confirmID = 0
		return m, m.doDelete(id)

	case "n", "N", "esc", "q":
		m.mode = modeList
		m.confirmID = 0
		return m, nil

	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// handleComposeKey handles all key messages while the compose form is open
func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlS:
		return m.submitCompose()
	case tea.KeyEsc:
		m.mode = modeList
		m.compose = nil
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	return m.updateCompose(msg)
}

// updateCompose forwards a message to the huh form and submits when the
// form reports completion.
func (m Model) updateCompose(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.compose == nil {
		m.mode = modeList
		return m, nil
	}

	form, cmd := m.compose.Form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.compose.Form = f
	}

	if m.compose.Form.State == huh.StateCompleted {
		model, submitCmd := m.submitCompose()
		return model, tea.Batch(cmd, submitCmd)
	}
	if m.compose.Form.State == huh.StateAborted {
		m.mode = modeList
		m.compose = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) submitCompose() (tea.Model, tea.Cmd) {
	draft := m.compose.Draft()
	m.mode = modeList
	m.compose = nil

	if draft.Content == "" && draft.AttachPath == "" {
		m.status = "nothing to post"
		m.statusErr = true
		return m, clearStatusAfter()
	}
	return m, m.doSubmit(draft)
}

// Cursor helpers

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.clampOffset()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.posts) {
		m.cursor = len(m.posts) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// clampOffset keeps the cursor inside the visible window.
func (m *Model) clampOffset() {
	visible := m.listHeight()
	if visible <= 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) selected() *models.Post {
	if m.cursor < 0 || m.cursor >= len(m.posts) {
		return nil
	}
	return &m.posts[m.cursor]
}

func (m Model) postByID(id int64) *models.Post {
	for i := range m.posts {
		if m.posts[i].ID == id {
			return &m.posts[i]
		}
	}
	return nil
}

// listHeight is how many list rows fit under the chrome (title, status,
// help).
func (m Model) listHeight() int {
	return m.height - 3
}

func (m Model) detailHeight() int {
	// Title, post header, status, help.
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	return h
}
