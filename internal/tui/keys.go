package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard bindings of the note editor.
type KeyMap struct {
	Enhance  key.Binding
	UseText  key.Binding
	Discard  key.Binding
	TryAgain key.Binding
	Previous key.Binding
	Next     key.Binding
	Focus    key.Binding
	Finish   key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Enhance: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "enhance"),
		),
		UseText: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "use text"),
		),
		Discard: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "discard"),
		),
		TryAgain: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "try again"),
		),
		Previous: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "focus"),
		),
		Finish: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "done"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// editorBindings are shown while no session is open.
func (k KeyMap) editorBindings() []key.Binding {
	return []key.Binding{k.Enhance, k.Focus, k.Finish, k.Quit}
}

// sessionBindings are shown while a session is open.
func (k KeyMap) sessionBindings() []key.Binding {
	return []key.Binding{k.UseText, k.Discard, k.TryAgain, k.Previous, k.Next, k.Quit}
}
