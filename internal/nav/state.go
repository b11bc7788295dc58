// Package nav owns keyboard focus, folder view, selection, and the
// live search query, and translates key events into store mutations
// and backend requests.
package nav

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/talc-dev/talc/internal/store"
)

// Focus identifies the widget that owns keyboard input.
type Focus string

const (
	FocusSearch Focus = "SEARCH"
	FocusList   Focus = "LIST"
	FocusPanel  Focus = "PANEL"
)

// validFocusTransitions defines allowed focus moves. Exactly one widget
// owns focus at a time; these transitions are the only way it changes.
var validFocusTransitions = map[Focus][]Focus{
	FocusSearch: {FocusList},
	FocusList:   {FocusSearch, FocusPanel},
	FocusPanel:  {FocusList, FocusSearch},
}

// State is the navigation/focus state. Loop-confined: read and written
// only from run-loop tasks. The selected conversation is held by ID, a
// weak reference resolved against the store on every read.
type State struct {
	Focus      Focus
	Folder     store.Folder
	SelectedID string
	Query      string
	PanelOpen  bool

	fetchToken  uuid.UUID
	fetchConv   string
	fetchActive bool
}

// NewState returns the initial navigation state: list focus, main
// folder, empty query, no selection.
func NewState() *State {
	return &State{
		Focus:  FocusList,
		Folder: store.FolderMain,
	}
}

// Transition attempts a focus change. Returns an error when the move is
// not in the transition table.
func (s *State) Transition(to Focus) error {
	if !slices.Contains(validFocusTransitions[s.Focus], to) {
		return fmt.Errorf("invalid focus transition from %s to %s", s.Focus, to)
	}
	s.Focus = to
	return nil
}

// BeginFetch records the in-flight message-window fetch. Any previous
// fetch becomes stale.
func (s *State) BeginFetch(token uuid.UUID, convID string) {
	s.fetchToken = token
	s.fetchConv = convID
	s.fetchActive = true
}

// EndFetch clears the in-flight fetch if the token still matches.
func (s *State) EndFetch(token uuid.UUID) {
	if s.fetchActive && s.fetchToken == token {
		s.fetchActive = false
	}
}

// CurrentFetch implements the reconciler's fetch gate.
func (s *State) CurrentFetch() (uuid.UUID, string, bool) {
	return s.fetchToken, s.fetchConv, s.fetchActive
}

// Snapshot is an immutable copy of the navigation state for the view
// projector.
type Snapshot struct {
	Focus      Focus
	Folder     store.Folder
	SelectedID string
	Query      string
	PanelOpen  bool
}

// Snapshot returns a projector-ready copy.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Focus:      s.Focus,
		Folder:     s.Folder,
		SelectedID: s.SelectedID,
		Query:      s.Query,
		PanelOpen:  s.PanelOpen,
	}
}
