package tui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/talc-dev/talc/internal/nav"
)

// mapKey translates a raw terminal key event into a navigation key for
// the current focus owner. Returns false when the event should pass
// through to the focused widget (e.g. typing into the search box).
func mapKey(ev *tcell.EventKey, focus nav.Focus, composing bool) (nav.Key, bool) {
	switch ev.Key() {
	case tcell.KeyTab:
		return nav.KeyTab, true
	case tcell.KeyEscape:
		return nav.KeyEsc, true
	case tcell.KeyEnter:
		// The composer's done-func owns Enter while composing.
		if composing {
			return 0, false
		}
		return nav.KeyEnter, true
	case tcell.KeyUp:
		if focus == nav.FocusList {
			return nav.KeyUp, true
		}
		return 0, false
	case tcell.KeyDown:
		if focus == nav.FocusList {
			return nav.KeyDown, true
		}
		return 0, false
	}

	// Printable runes belong to text inputs while one is focused.
	if ev.Key() != tcell.KeyRune || focus == nav.FocusSearch || composing {
		return 0, false
	}

	switch ev.Rune() {
	case '/':
		return nav.KeySearch, true
	case '[':
		return nav.KeyFolderPrev, true
	case ']':
		return nav.KeyFolderNext, true
	case 'a':
		if focus == nav.FocusList {
			return nav.KeyArchive, true
		}
	case 'q', 'Q':
		return nav.KeyQuit, true
	}
	return 0, false
}
