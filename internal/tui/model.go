// Package tui is the terminal front end of casenote: a note editor with an
// enhancement panel driven by a suggestion session.
package tui

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/casenote/internal/enhance"
	clog "github.com/runger/casenote/internal/log"
	"github.com/runger/casenote/internal/surface"
)

const (
	// hintHideDelay is how long the enhance hint stays visible after the
	// editor loses focus.
	hintHideDelay = 100 * time.Millisecond

	// refocusDelay is the wait before the editor takes focus again after a
	// session closes.
	refocusDelay = 200 * time.Millisecond

	defaultWidth = 80
	charLimit    = 4000
)

// fetchDoneMsg is sent when a session fetch completes.
type fetchDoneMsg struct {
	result enhance.Result
}

// hintMsg hides the enhance hint if the timer is still current.
type hintMsg struct {
	id uint64 // Must match hintID to be accepted
}

// refocusMsg returns focus to the editor if the timer is still current.
type refocusMsg struct {
	id uint64 // Must match refocusID to be accepted
}

// Options configures a Model.
type Options struct {
	Title       string
	Label       string
	Placeholder string
	Width       int // Editor width; 0 follows the terminal
	Height      int
	Logger      *slog.Logger
}

// Model is the Bubble Tea model for the note editor.
type Model struct {
	surface *surface.Surface
	logger  *slog.Logger

	editor  textarea.Model
	spinner spinner.Model
	help    help.Model
	keys    KeyMap

	title      string
	label      string
	fixedWidth int
	width      int

	showHint  bool
	hintID    uint64
	refocusID uint64

	finished bool
	quitting bool
}

// NewModel creates a Model editing the text held by s.
func NewModel(s *surface.Surface, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	editor := textarea.New()
	editor.Placeholder = opts.Placeholder
	editor.ShowLineNumbers = false
	editor.CharLimit = charLimit
	editor.Prompt = "│ "
	height := opts.Height
	if height < 1 {
		height = 5
	}
	editor.SetHeight(height)
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	editor.SetWidth(width)
	editor.SetValue(s.Text())
	editor.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	return Model{
		surface:    s,
		logger:     logger,
		editor:     editor,
		spinner:    spin,
		help:       help.New(),
		keys:       DefaultKeyMap(),
		title:      opts.Title,
		label:      opts.Label,
		fixedWidth: opts.Width,
		width:      width,
		showHint:   true,
	}
}

// Text returns the note text.
func (m Model) Text() string {
	return m.surface.Text()
}

// Finished reports whether the user ended editing with the finish key
// rather than quitting.
func (m Model) Finished() bool {
	return m.finished
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		if m.fixedWidth <= 0 && msg.Width > 2 {
			m.editor.SetWidth(msg.Width - 2)
		}
		return m, nil

	case fetchDoneMsg:
		return m.handleFetchDone(msg)

	case hintMsg:
		if msg.id == m.hintID && !m.editor.Focused() {
			m.showHint = false
		}
		return m, nil

	case refocusMsg:
		return m.handleRefocus(msg)

	case spinner.TickMsg:
		// Let the spinner stop once nothing is loading.
		if st, ok := m.surface.Session(); !ok || st.Status != enhance.StatusFetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.surface.Locked() {
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.closeOpenSession()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Finish):
		m.finished = true
		m.closeOpenSession()
		return m, tea.Quit
	}

	if m.surface.Locked() {
		return m.handleSessionKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Enhance):
		return m.enhance()

	case key.Matches(msg, m.keys.Focus):
		if m.editor.Focused() {
			return m, m.blurEditor()
		}
		return m, m.focusEditor()
	}

	if !m.editor.Focused() {
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if err := m.surface.SetText(m.editor.Value()); err != nil {
		m.logger.Warn("editor out of sync with surface", "error", err)
	}
	return m, cmd
}

// handleSessionKey processes keys while a session is open. Rejected actions
// are no-ops; the matching affordance is already shown as disabled.
func (m Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.UseText):
		text, err := m.surface.UseText()
		if err != nil {
			clog.LogRejectedAction(m.logger, "use_text", err)
			return m, nil
		}
		m.editor.SetValue(text)
		return m, m.sessionClosed()

	case key.Matches(msg, m.keys.Discard):
		text, err := m.surface.Discard()
		if err != nil {
			clog.LogRejectedAction(m.logger, "discard", err)
			return m, nil
		}
		m.editor.SetValue(text)
		return m, m.sessionClosed()

	case key.Matches(msg, m.keys.TryAgain):
		fetch, err := m.surface.TryAgain()
		if err != nil {
			clog.LogRejectedAction(m.logger, "try_again", err)
			return m, nil
		}
		return m, tea.Batch(runFetch(fetch), m.spinner.Tick)

	case key.Matches(msg, m.keys.Previous):
		if err := m.surface.Previous(); err != nil && !errors.Is(err, enhance.ErrNoOp) {
			clog.LogRejectedAction(m.logger, "previous", err)
		}
		return m, nil

	case key.Matches(msg, m.keys.Next):
		if err := m.surface.Next(); err != nil && !errors.Is(err, enhance.ErrNoOp) {
			clog.LogRejectedAction(m.logger, "next", err)
		}
		return m, nil
	}

	return m, nil
}

// enhance opens a session on the editor text. Empty text leaves the
// affordance disabled and does nothing.
func (m Model) enhance() (tea.Model, tea.Cmd) {
	if strings.TrimSpace(m.editor.Value()) == "" {
		return m, nil
	}
	if err := m.surface.SetText(m.editor.Value()); err != nil {
		m.logger.Warn("editor out of sync with surface", "error", err)
		return m, nil
	}
	fetch, err := m.surface.Enhance()
	if err != nil {
		clog.LogRejectedAction(m.logger, "enhance", err)
		return m, nil
	}

	m.editor.Blur()
	m.showHint = false
	m.hintID++
	m.refocusID++
	return m, tea.Batch(runFetch(fetch), m.spinner.Tick)
}

func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) {
	if !m.surface.Deliver(msg.result) {
		return m, nil
	}
	if st, ok := m.surface.Session(); ok {
		m.logger.Debug("suggestion delivered",
			"session_id", st.SessionID,
			"status", st.Status.String(),
			"history_len", len(st.History),
		)
	}
	return m, nil
}

func (m Model) handleRefocus(msg refocusMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.refocusID || m.surface.Locked() {
		return m, nil
	}
	return m, m.focusEditor()
}

// sessionClosed schedules the editor to take focus back.
func (m *Model) sessionClosed() tea.Cmd {
	m.refocusID++
	id := m.refocusID
	return tea.Tick(refocusDelay, func(time.Time) tea.Msg {
		return refocusMsg{id: id}
	})
}

// closeOpenSession discards a session left open on exit so the surface holds
// the text the user had before enhancing.
func (m *Model) closeOpenSession() {
	if !m.surface.Locked() {
		return
	}
	if text, err := m.surface.Discard(); err == nil {
		m.editor.SetValue(text)
	}
}

func (m *Model) focusEditor() tea.Cmd {
	m.hintID++
	m.showHint = true
	return m.editor.Focus()
}

// blurEditor blurs the editor and starts the hint hide timer.
func (m *Model) blurEditor() tea.Cmd {
	m.editor.Blur()
	m.hintID++
	id := m.hintID
	return tea.Tick(hintHideDelay, func(time.Time) tea.Msg {
		return hintMsg{id: id}
	})
}

// runFetch runs a session fetch off the update loop.
func runFetch(fetch enhance.Fetch) tea.Cmd {
	return func() tea.Msg {
		return fetchDoneMsg{result: fetch()}
	}
}
