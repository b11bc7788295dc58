package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/talc-dev/talc/internal/view"
)

// MessagePanel displays the open conversation's messages plus a basic
// composer line.
type MessagePanel struct {
	*tview.Flex
	theme    *Theme
	messages *tview.TextView
	composer *tview.InputField
	onSend   func(text string)
}

// NewMessagePanel creates the message panel.
func NewMessagePanel(theme *Theme) *MessagePanel {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mp := &MessagePanel{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mp.onSend != nil {
			text := composer.GetText()
			if text != "" {
				mp.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mp
}

// SetOnSend sets the callback for composer submissions.
func (mp *MessagePanel) SetOnSend(fn func(text string)) {
	mp.onSend = fn
}

// Render redraws the panel from the model. A nil panel clears it.
func (mp *MessagePanel) Render(p *view.Panel) {
	mp.messages.Clear()
	if p == nil {
		mp.messages.SetTitle(" Messages ")
		return
	}
	mp.messages.SetTitle(fmt.Sprintf(" %s ", p.Title))
	for _, line := range p.Lines {
		_, _ = fmt.Fprintln(mp.messages, tview.Escape(line))
	}
	mp.messages.ScrollToEnd()
}

// Messages returns the text view for focus management.
func (mp *MessagePanel) Messages() *tview.TextView {
	return mp.messages
}

// Composer returns the input field for focus management.
func (mp *MessagePanel) Composer() *tview.InputField {
	return mp.composer
}
