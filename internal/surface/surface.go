// Package surface holds the editable note text and coordinates it with an
// enhancement session: opening a session locks the text, and accepting or
// discarding splices the result back and unlocks it.
package surface

import (
	"errors"

	"github.com/runger/casenote/internal/enhance"
)

// ErrLocked is returned by direct edits while a session is open.
var ErrLocked = errors.New("surface: text is locked while a suggestion session is open")

// Surface is the text input side of a suggestion session. It is not safe for
// concurrent use; like the controller it lives on the caller's event loop.
type Surface struct {
	text       string
	controller *enhance.Controller
}

// New returns a surface holding text, driving sessions through c.
func New(c *enhance.Controller, text string) *Surface {
	return &Surface{text: text, controller: c}
}

// Text returns the current text.
func (s *Surface) Text() string {
	return s.text
}

// Locked reports whether direct editing is disabled.
func (s *Surface) Locked() bool {
	return s.controller.Active()
}

// SetText applies a direct edit.
func (s *Surface) SetText(text string) error {
	if s.Locked() {
		return ErrLocked
	}
	s.text = text
	return nil
}

// Reset replaces the text from outside the editor. An open session is
// discarded first, since its source text is no longer the active text.
func (s *Surface) Reset(text string) {
	if s.controller.Active() {
		_, _ = s.controller.Discard()
	}
	s.text = text
}

// Session returns a snapshot of the open session, if any.
func (s *Surface) Session() (enhance.State, bool) {
	return s.controller.State()
}

// Controller returns the session controller behind the surface.
func (s *Surface) Controller() *enhance.Controller {
	return s.controller
}

// Enhance opens a session on the current text. The returned fetch must be run
// and its result handed to Deliver.
func (s *Surface) Enhance() (enhance.Fetch, error) {
	return s.controller.Open(s.text)
}

// UseText accepts the suggestion under the cursor and makes it the text.
func (s *Surface) UseText() (string, error) {
	text, err := s.controller.Accept()
	if err != nil {
		return "", err
	}
	s.text = text
	return text, nil
}

// Discard closes the session and restores the text it was opened with.
func (s *Surface) Discard() (string, error) {
	text, err := s.controller.Discard()
	if err != nil {
		return "", err
	}
	s.text = text
	return text, nil
}

// TryAgain requests another suggestion.
func (s *Surface) TryAgain() (enhance.Fetch, error) {
	return s.controller.TryAgain()
}

// Previous moves to the previous suggestion.
func (s *Surface) Previous() error {
	return s.controller.Previous()
}

// Next moves to the next suggestion.
func (s *Surface) Next() error {
	return s.controller.Next()
}

// Deliver hands a fetch result to the controller. It reports whether the
// result was applied.
func (s *Surface) Deliver(r enhance.Result) bool {
	return s.controller.Deliver(r)
}
