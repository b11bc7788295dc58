// Package view projects store and navigation state into a fully
// resolved, ready-to-draw render model. Project is a pure function so
// the rendering layer can diff identical models and skip redraws.
package view

import (
	"fmt"
	"time"

	"github.com/talc-dev/talc/internal/nav"
	"github.com/talc-dev/talc/internal/store"
	"github.com/talc-dev/talc/internal/textmetrics"
)

// Row is one visible conversation row.
type Row struct {
	ID       string
	Title    string
	Preview  string
	When     string
	Kind     store.Kind
	Unread   int
	Pinned   bool
	Archived bool
}

// Panel is the open conversation's message panel.
type Panel struct {
	ConvID string
	Title  string
	Lines  []string
}

// RenderModel is the complete description of what to draw.
type RenderModel struct {
	Rows        []Row
	SelectedRow int // index into Rows, -1 when empty
	Folder      store.Folder
	FolderBadge string
	Query       string
	Focus       nav.Focus
	Panel       *Panel
}

// Collect resolves ordered conversation IDs against the store, skipping
// IDs that no longer exist.
func Collect(st *store.Store, ids []string) []store.Conversation {
	out := make([]store.Conversation, 0, len(ids))
	for _, id := range ids {
		if c, ok := st.Get(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// Project builds the render model from the visible conversations (in
// display order), the navigation snapshot, and the panel width used for
// message truncation. now anchors relative timestamp formatting so the
// function stays pure: identical inputs always produce an identical
// model. It never mutates its inputs; a selection pointing at a
// conversation that is gone falls back to the first row.
func Project(convs []store.Conversation, n nav.Snapshot, panelWidth int, now time.Time) RenderModel {
	m := RenderModel{
		SelectedRow: -1,
		Folder:      n.Folder,
		Query:       n.Query,
		Focus:       n.Focus,
	}
	if n.Folder == store.FolderArchived {
		m.FolderBadge = "[Archive]"
	}

	m.Rows = make([]Row, 0, len(convs))
	for i, c := range convs {
		m.Rows = append(m.Rows, rowFor(c, now))
		if c.ID == n.SelectedID {
			m.SelectedRow = i
		}
	}
	if m.SelectedRow < 0 && len(m.Rows) > 0 {
		m.SelectedRow = 0
	}

	if n.PanelOpen && m.SelectedRow >= 0 {
		sel := convs[m.SelectedRow]
		m.Panel = panelFor(sel, panelWidth, now)
	}
	return m
}

func rowFor(c store.Conversation, now time.Time) Row {
	title := textmetrics.Sanitize(c.Name)
	if title == "" {
		title = c.ID
	}
	return Row{
		ID:       c.ID,
		Title:    title,
		Preview:  textmetrics.Sanitize(c.Preview),
		When:     formatTimestamp(c.LastActivity, now),
		Kind:     c.Kind,
		Unread:   c.Unread,
		Pinned:   c.Pinned,
		Archived: c.Folder == store.FolderArchived,
	}
}

func panelFor(c store.Conversation, width int, now time.Time) *Panel {
	p := &Panel{
		ConvID: c.ID,
		Title:  textmetrics.Sanitize(c.Name),
	}
	for _, msg := range c.Messages {
		sender := textmetrics.Sanitize(msg.Sender)
		if msg.FromMe {
			sender = "You"
		}
		header := fmt.Sprintf("%s  %s", sender, formatTimestamp(msg.SentAt, now))
		if msg.Edited {
			header += " (edited)"
		}
		p.Lines = append(p.Lines,
			textmetrics.Truncate(header, width),
			textmetrics.Truncate(textmetrics.Sanitize(msg.Body), width),
			"")
	}
	return p
}

func formatTimestamp(ms int64, now time.Time) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
