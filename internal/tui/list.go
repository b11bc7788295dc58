package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/talc-dev/talc/internal/store"
	"github.com/talc-dev/talc/internal/view"
)

// ConversationList renders the visible conversation rows as a table.
// It draws whatever the render model says and owns no conversation
// state itself.
type ConversationList struct {
	*tview.Table
	theme *Theme
}

// NewConversationList creates the list table.
func NewConversationList(theme *Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{Table: table, theme: theme}
}

// Render redraws the table from the model.
func (cl *ConversationList) Render(m view.RenderModel) {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" TYPE", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	for i, r := range m.Rows {
		row := i + 1
		name := r.Title
		if r.Unread > 0 {
			name = fmt.Sprintf("(%d) %s", r.Unread, name)
		}
		if r.Pinned {
			name = "* " + name
		}
		if r.Archived && m.FolderBadge != "" {
			name += " " + m.FolderBadge
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(name)).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(r.Preview)).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(r.When).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(kindLabel(r.Kind)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	if m.SelectedRow >= 0 {
		cl.Select(m.SelectedRow+1, 0) // +1 for the header row
	}

	title := fmt.Sprintf(" Conversations (%d) ", len(m.Rows))
	if m.FolderBadge != "" {
		title = fmt.Sprintf(" Conversations %s (%d) ", m.FolderBadge, len(m.Rows))
	}
	if m.Query != "" {
		title = fmt.Sprintf(" Conversations (%d) filter: %s ", len(m.Rows), m.Query)
	}
	cl.SetTitle(title)
}

func kindLabel(k store.Kind) string {
	switch k {
	case store.KindGroup:
		return "GROUP"
	case store.KindChannel:
		return "CHANNEL"
	default:
		return "DM"
	}
}
