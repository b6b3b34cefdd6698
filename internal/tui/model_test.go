package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/casenote/internal/enhance"
	"github.com/runger/casenote/internal/surface"
)

// --- Scripted suggester ---

type scriptedSuggester struct {
	outcomes []enhance.Outcome
	calls    int
}

func (s *scriptedSuggester) Suggest(_ context.Context, _ string, _ []enhance.Identity) enhance.Outcome {
	s.calls++
	if len(s.outcomes) == 0 {
		return enhance.Outcome{Exhausted: true}
	}
	o := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return o
}

func hit(text string, id int) enhance.Outcome {
	return enhance.Outcome{Suggestion: &enhance.Suggestion{Text: text, ID: enhance.Identity(id)}}
}

func newTestModel(text string, outcomes ...enhance.Outcome) (Model, *scriptedSuggester) {
	sg := &scriptedSuggester{outcomes: outcomes}
	s := surface.New(enhance.New(sg), text)
	m := NewModel(s, Options{
		Title:       "Patient Case Description",
		Label:       "Enter patient case description:",
		Placeholder: "Type the patient's case description here...",
		Width:       60,
		Height:      5,
	})
	return m, sg
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	result, cmd := m.Update(msg)
	return result.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

var (
	keyEnhance  = tea.KeyMsg{Type: tea.KeyCtrlE}
	keyUseText  = tea.KeyMsg{Type: tea.KeyEnter}
	keyDiscard  = tea.KeyMsg{Type: tea.KeyEsc}
	keyTryAgain = tea.KeyMsg{Type: tea.KeyCtrlR}
	keyPrevious = tea.KeyMsg{Type: tea.KeyLeft}
	keyNext     = tea.KeyMsg{Type: tea.KeyRight}
	keyFocus    = tea.KeyMsg{Type: tea.KeyTab}
	keyFinish   = tea.KeyMsg{Type: tea.KeyCtrlD}
	keyQuit     = tea.KeyMsg{Type: tea.KeyCtrlC}
)

// runCmd executes a tea.Cmd synchronously and returns the resulting message.
func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

// fetchMsg runs a batch returned by an enhance or try-again key and returns
// its fetchDoneMsg without delivering it.
func fetchMsg(t *testing.T, cmd tea.Cmd) fetchDoneMsg {
	t.Helper()
	msg := runCmd(cmd)
	batch, ok := msg.(tea.BatchMsg)
	require.True(t, ok, "expected a batch, got %T", msg)
	for _, c := range batch {
		if done, ok := runCmd(c).(fetchDoneMsg); ok {
			return done
		}
	}
	t.Fatal("batch did not contain a fetch")
	return fetchDoneMsg{}
}

// deliver feeds a fetch result into the model.
func deliver(t *testing.T, m Model, msg fetchDoneMsg) Model {
	t.Helper()
	result, _ := m.Update(msg)
	return result.(Model)
}

// enhanceAndLoad presses the enhance key and delivers the opening fetch.
func enhanceAndLoad(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := press(t, m, keyEnhance)
	require.NotNil(t, cmd)
	return deliver(t, m, fetchMsg(t, cmd))
}

func session(t *testing.T, m Model) enhance.State {
	t.Helper()
	st, ok := m.surface.Session()
	require.True(t, ok, "expected an open session")
	return st
}

// --- Editing ---

func TestInitialState(t *testing.T) {
	m, _ := newTestModel("")
	assert.True(t, m.editor.Focused())
	assert.True(t, m.showHint)
	assert.False(t, m.surface.Locked())
	assert.NotNil(t, m.Init())
}

func TestTyping_UpdatesSurface(t *testing.T) {
	m, _ := newTestModel("")
	m = typeText(t, m, "Patient presents with cough")
	assert.Equal(t, "Patient presents with cough", m.Text())
}

func TestEnhance_EmptyTextIsNoOp(t *testing.T) {
	m, sg := newTestModel("   ")
	m, cmd := press(t, m, keyEnhance)
	assert.Nil(t, cmd)
	assert.False(t, m.surface.Locked())
	assert.Zero(t, sg.calls)
}

func TestEnhance_OpensSessionAndLoads(t *testing.T) {
	m, _ := newTestModel("Patient presents with cough", hit("Cough for three days.", 0))

	m, cmd := press(t, m, keyEnhance)
	require.NotNil(t, cmd)
	assert.True(t, m.surface.Locked())
	assert.False(t, m.editor.Focused())
	assert.False(t, m.showHint)
	assert.Equal(t, enhance.StatusFetching, session(t, m).Status)
	assert.Contains(t, m.View(), "Loading...")

	m = deliver(t, m, fetchMsg(t, cmd))
	assert.Equal(t, enhance.StatusReady, session(t, m).Status)

	view := m.View()
	assert.Contains(t, view, "Suggested Enhancement:")
	assert.Contains(t, view, "Cough for three days.")
	assert.Contains(t, view, "Use Text")
	assert.Contains(t, view, "Try Again")
	assert.NotContains(t, view, "of 1")
}

func TestSession_EditorLocked(t *testing.T) {
	m, _ := newTestModel("note", hit("A", 0))
	m = enhanceAndLoad(t, m)

	m = typeText(t, m, "xyz")
	assert.Equal(t, "note", m.Text())
	assert.Equal(t, "note", m.editor.Value())
}

// --- Closing a session ---

func TestUseText_ReplacesTextAndRefocuses(t *testing.T) {
	m, _ := newTestModel("Patient presents with cough", hit("A's text", 0))
	m = enhanceAndLoad(t, m)

	m, cmd := press(t, m, keyUseText)
	require.NotNil(t, cmd)
	assert.Equal(t, "A's text", m.Text())
	assert.Equal(t, "A's text", m.editor.Value())
	assert.False(t, m.surface.Locked())
	assert.False(t, m.editor.Focused())

	result, _ := m.Update(refocusMsg{id: m.refocusID})
	m = result.(Model)
	assert.True(t, m.editor.Focused())
	assert.True(t, m.showHint)
}

func TestDiscard_DuringFetchRestoresTextAndIgnoresLateResult(t *testing.T) {
	m, _ := newTestModel("Patient presents with cough", hit("A", 0))

	m, cmd := press(t, m, keyEnhance)
	m, _ = press(t, m, keyDiscard)
	assert.False(t, m.surface.Locked())
	assert.Equal(t, "Patient presents with cough", m.Text())

	m = deliver(t, m, fetchMsg(t, cmd))
	assert.False(t, m.surface.Locked())
	assert.Equal(t, "Patient presents with cough", m.Text())
	assert.NotContains(t, m.View(), "Suggested Enhancement:")
}

func TestDiscard_AfterSuggestionRestoresSource(t *testing.T) {
	m, _ := newTestModel("source", hit("A", 0))
	m = enhanceAndLoad(t, m)

	m, _ = press(t, m, keyDiscard)
	assert.Equal(t, "source", m.Text())
	assert.Equal(t, "source", m.editor.Value())
}

func TestRefocus_StaleTimerIgnored(t *testing.T) {
	m, _ := newTestModel("note", hit("A", 0), hit("B", 1))
	m = enhanceAndLoad(t, m)
	m, _ = press(t, m, keyDiscard)
	staleID := m.refocusID

	// A new session starts before the refocus timer fires.
	m = enhanceAndLoad(t, m)
	result, _ := m.Update(refocusMsg{id: staleID})
	m = result.(Model)
	assert.False(t, m.editor.Focused())
	assert.True(t, m.surface.Locked())
}

// --- Retry and navigation ---

func TestTryAgain_AppendsAndShowsCounter(t *testing.T) {
	m, sg := newTestModel("note", hit("A", 0), hit("B", 1))
	m = enhanceAndLoad(t, m)

	m, cmd := press(t, m, keyTryAgain)
	require.NotNil(t, cmd)
	assert.Equal(t, enhance.StatusFetching, session(t, m).Status)
	m = deliver(t, m, fetchMsg(t, cmd))

	st := session(t, m)
	assert.Len(t, st.History, 2)
	assert.Equal(t, 1, st.Cursor)
	assert.Contains(t, m.View(), "2 of 2")
	assert.Equal(t, 2, sg.calls)

	m, _ = press(t, m, keyPrevious)
	assert.Equal(t, 0, session(t, m).Cursor)
	assert.Contains(t, m.View(), "1 of 2")

	// Boundary is a no-op.
	m, _ = press(t, m, keyPrevious)
	assert.Equal(t, 0, session(t, m).Cursor)

	m, _ = press(t, m, keyNext)
	assert.Equal(t, 1, session(t, m).Cursor)
	assert.Equal(t, 2, sg.calls, "navigation must not fetch")
}

func TestTryAgain_UseTextAfterNavigation(t *testing.T) {
	m, _ := newTestModel("note", hit("A", 0), hit("B", 1))
	m = enhanceAndLoad(t, m)
	m, cmd := press(t, m, keyTryAgain)
	m = deliver(t, m, fetchMsg(t, cmd))
	m, _ = press(t, m, keyPrevious)

	m, _ = press(t, m, keyUseText)
	assert.Equal(t, "A", m.Text())
}

func TestTryAgain_RejectedWhileFetching(t *testing.T) {
	m, sg := newTestModel("note", hit("A", 0))
	m, _ = press(t, m, keyEnhance)

	m, cmd := press(t, m, keyTryAgain)
	assert.Nil(t, cmd)
	assert.Equal(t, enhance.StatusFetching, session(t, m).Status)
	assert.Zero(t, sg.calls)
}

func TestTryAgain_BudgetSpent(t *testing.T) {
	m, _ := newTestModel("note", hit("A", 0), hit("B", 1), hit("C", 2), hit("D", 3), hit("E", 4))
	m = enhanceAndLoad(t, m)
	for i := 0; i < enhance.DefaultMaxRetries; i++ {
		var cmd tea.Cmd
		m, cmd = press(t, m, keyTryAgain)
		require.NotNil(t, cmd)
		m = deliver(t, m, fetchMsg(t, cmd))
	}

	m, cmd := press(t, m, keyTryAgain)
	assert.Nil(t, cmd)
	st := session(t, m)
	assert.Equal(t, enhance.DefaultMaxRetries, st.RetriesUsed)
	assert.Len(t, st.History, 4)
	assert.False(t, m.surface.Controller().CanTryAgain())
}

func TestFailure_ShowsMessageAndAllowsRetry(t *testing.T) {
	m, _ := newTestModel("note",
		enhance.Outcome{Err: errors.New("there was a random error fetching the suggestion")},
		hit("A", 0),
	)
	m = enhanceAndLoad(t, m)

	assert.Equal(t, enhance.StatusFailed, session(t, m).Status)
	assert.Contains(t, m.View(), "there was a random error fetching the suggestion")

	// Use Text does nothing while failed.
	m, cmd := press(t, m, keyUseText)
	assert.Nil(t, cmd)
	assert.True(t, m.surface.Locked())

	m, cmd = press(t, m, keyTryAgain)
	require.NotNil(t, cmd)
	m = deliver(t, m, fetchMsg(t, cmd))
	st := session(t, m)
	assert.Equal(t, enhance.StatusReady, st.Status)
	assert.Zero(t, st.RetriesUsed)
}

func TestExhausted_ShowsNoMoreSuggestions(t *testing.T) {
	m, _ := newTestModel("note", hit("A", 0))
	m = enhanceAndLoad(t, m)
	m, cmd := press(t, m, keyTryAgain)
	m = deliver(t, m, fetchMsg(t, cmd))

	assert.Equal(t, enhance.StatusExhausted, session(t, m).Status)
	view := m.View()
	assert.Contains(t, view, "No more suggestions")
	assert.Contains(t, view, "A")

	m, _ = press(t, m, keyDiscard)
	assert.Equal(t, "note", m.Text())
}

// --- Hint and focus ---

func TestHint_HiddenAfterBlurDelay(t *testing.T) {
	m, _ := newTestModel("note")

	m, cmd := press(t, m, keyFocus)
	require.NotNil(t, cmd)
	assert.False(t, m.editor.Focused())
	assert.True(t, m.showHint, "hint stays until the timer fires")

	result, _ := m.Update(hintMsg{id: m.hintID})
	m = result.(Model)
	assert.False(t, m.showHint)
	assert.NotContains(t, m.View(), "Enhance")
}

func TestHint_StaleTimerIgnoredAfterRefocus(t *testing.T) {
	m, _ := newTestModel("note")

	m, _ = press(t, m, keyFocus)
	staleID := m.hintID
	m, _ = press(t, m, keyFocus)
	assert.True(t, m.editor.Focused())

	result, _ := m.Update(hintMsg{id: staleID})
	m = result.(Model)
	assert.True(t, m.showHint)
	assert.Contains(t, m.View(), "Enhance")
}

func TestHint_BlurredEditorIgnoresTyping(t *testing.T) {
	m, _ := newTestModel("note")
	m, _ = press(t, m, keyFocus)
	m = typeText(t, m, "more")
	assert.Equal(t, "note", m.Text())
}

// --- Exit ---

func TestFinish_DiscardsOpenSession(t *testing.T) {
	m, _ := newTestModel("source", hit("A", 0))
	m = enhanceAndLoad(t, m)

	m, cmd := press(t, m, keyFinish)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, runCmd(cmd))
	assert.True(t, m.Finished())
	assert.Equal(t, "source", m.Text())
	assert.False(t, m.surface.Locked())
	assert.Empty(t, m.View())
}

func TestQuit_NotFinished(t *testing.T) {
	m, _ := newTestModel("note")
	m, cmd := press(t, m, keyQuit)
	assert.IsType(t, tea.QuitMsg{}, runCmd(cmd))
	assert.False(t, m.Finished())
}

func TestWindowSize_ResizesHelp(t *testing.T) {
	m, _ := newTestModel("note")
	result, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = result.(Model)
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 100, m.help.Width)
}

func TestView_HelpReflectsSession(t *testing.T) {
	m, _ := newTestModel("note", hit("A", 0))
	assert.Contains(t, m.View(), "enhance")

	m = enhanceAndLoad(t, m)
	view := m.View()
	assert.Contains(t, view, "use text")
	assert.Contains(t, view, "discard")
	assert.False(t, strings.Contains(view, "previous"), "previous is disabled at the first suggestion")
}
