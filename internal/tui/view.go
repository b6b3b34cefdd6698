package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runger/casenote/internal/enhance"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	hintStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	betaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Background(lipgloss.Color("15")).Padding(0, 1)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	suggestStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	primaryStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	secondaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238")).Padding(0, 1)
	disabledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting || m.finished {
		return ""
	}

	var b strings.Builder

	if m.title != "" {
		b.WriteString(titleStyle.Render(TruncateLine(m.title, m.width)))
		b.WriteString("\n\n")
	}
	if m.label != "" {
		b.WriteString(labelStyle.Render(TruncateLine(m.label, m.width)))
		b.WriteRune('\n')
	}
	b.WriteString(m.editor.View())
	b.WriteRune('\n')

	if st, ok := m.surface.Session(); ok {
		b.WriteString(m.viewSession(st))
		b.WriteRune('\n')
	} else {
		b.WriteString(m.viewHint())
		b.WriteRune('\n')
	}

	b.WriteString(m.viewHelp())
	return b.String()
}

// viewHint renders the enhance affordance. It is blank, not removed, when
// hidden so the layout does not jump.
func (m Model) viewHint() string {
	if !m.showHint {
		return ""
	}
	if strings.TrimSpace(m.editor.Value()) == "" {
		return disabledStyle.Render("✨ Enhance") + " " + dimStyle.Render("Beta")
	}
	return hintStyle.Render("✨ Enhance") + " " + betaStyle.Render("Beta") + " " + dimStyle.Render("C-e")
}

// viewSession renders the suggestion box.
func (m Model) viewSession(st enhance.State) string {
	inner := m.boxWidth()
	var lines []string
	lines = append(lines, headerStyle.Render("Suggested Enhancement:"))

	switch st.Status {
	case enhance.StatusFetching:
		if prev, ok := m.surface.Controller().LastViewed(); ok {
			lines = append(lines, dimStyle.Width(inner).Render(CleanSuggestion(prev.Text)))
		}
		lines = append(lines, m.spinner.View()+" "+dimStyle.Render("Loading..."))

	case enhance.StatusReady:
		cur := st.History[st.Cursor]
		lines = append(lines, suggestStyle.Width(inner).Render(CleanSuggestion(cur.Text)))

	case enhance.StatusExhausted:
		if prev, ok := m.surface.Controller().LastViewed(); ok {
			lines = append(lines, dimStyle.Width(inner).Render(CleanSuggestion(prev.Text)))
		}
		lines = append(lines, dimStyle.Render("No more suggestions"))

	case enhance.StatusFailed:
		lines = append(lines, errorStyle.Width(inner).Render(CleanSuggestion(st.Message)))
	}

	lines = append(lines, "", m.viewButtons(st))
	if nav := m.viewNavigation(st); nav != "" {
		lines = append(lines, nav)
	}

	return boxStyle.Width(inner + 2).Render(strings.Join(lines, "\n"))
}

func (m Model) viewButtons(st enhance.State) string {
	canTry := m.surface.Controller().CanTryAgain()
	buttons := []string{
		button("Use Text", st.Status == enhance.StatusReady, primaryStyle),
		button("Discard", true, secondaryStyle),
		button("Try Again", canTry, secondaryStyle),
	}
	return strings.Join(buttons, " ")
}

// viewNavigation renders "← Previous  N of M  Next →" once there is more than
// one suggestion to move across.
func (m Model) viewNavigation(st enhance.State) string {
	if len(st.History) <= 1 {
		return ""
	}
	cursor := st.Cursor
	ready := st.Status == enhance.StatusReady
	if !ready {
		// Show where the user was; navigation itself is disabled.
		cursor = len(st.History) - 1
		if prev, ok := m.surface.Controller().LastViewed(); ok {
			for i, sg := range st.History {
				if sg.ID == prev.ID {
					cursor = i
				}
			}
		}
	}
	counter := fmt.Sprintf("%d of %d", cursor+1, len(st.History))
	return button("← Previous", ready && cursor > 0, secondaryStyle) +
		"  " + counter + "  " +
		button("Next →", ready && cursor < len(st.History)-1, secondaryStyle)
}

// viewHelp renders the key help line; actions the session would reject are
// left out.
func (m Model) viewHelp() string {
	k := m.keys
	st, open := m.surface.Session()
	if !open {
		k.Enhance.SetEnabled(strings.TrimSpace(m.editor.Value()) != "")
		return m.help.ShortHelpView(k.editorBindings())
	}
	ready := st.Status == enhance.StatusReady
	k.UseText.SetEnabled(ready)
	k.TryAgain.SetEnabled(m.surface.Controller().CanTryAgain())
	k.Previous.SetEnabled(ready && st.Cursor > 0)
	k.Next.SetEnabled(ready && st.Cursor < len(st.History)-1)
	return m.help.ShortHelpView(k.sessionBindings())
}

// boxWidth is the text width inside the suggestion box.
func (m Model) boxWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func button(label string, enabled bool, style lipgloss.Style) string {
	if !enabled {
		return disabledStyle.Render(label)
	}
	return style.Render(label)
}
