package tui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

const keyHints = "Tab:focus  Enter:open  Esc:back  /:search  [ ]:folder  a:archive  q:quit"

// StatusBar displays sync status, folder badge, key hints, and flash
// messages.
type StatusBar struct {
	*tview.TextView
	status string
	badge  string
	flash  *Flash
}

// NewStatusBar creates the status bar.
func NewStatusBar(theme *Theme, flash *Flash) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &StatusBar{TextView: tv, flash: flash}
}

// SetStatus updates the sync status display.
func (sb *StatusBar) SetStatus(status string) {
	sb.status = status
	sb.render()
}

// SetBadge updates the folder badge.
func (sb *StatusBar) SetBadge(badge string) {
	sb.badge = badge
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	clock := time.Now().Format("15:04")
	line := fmt.Sprintf(" [::b]talc[-:-:-] | %s | %s", sb.status, clock)
	if sb.badge != "" {
		line += fmt.Sprintf(" | [orange]%s[-]", sb.badge)
	}
	if msg := sb.flash.Get(); msg != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", msg)
	}
	line += " | [::d]" + keyHints + "[-:-:-]"

	_, _ = fmt.Fprint(sb, line)
}
