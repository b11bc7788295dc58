package store

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// messageWindow bounds how many messages a conversation retains. When the
// window overflows, the oldest messages are evicted.
const messageWindow = 200

// Store is the authoritative in-memory model of conversations. It is
// confined to the run loop: all mutation and every listener callback
// happen on the loop goroutine, so no locking is needed and listeners
// never observe a partial update.
type Store struct {
	logger    *zap.Logger
	convs     map[string]*Conversation
	listeners []func()
	gen       uint64
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger: logger,
		convs:  make(map[string]*Conversation),
	}
}

// Subscribe registers a listener invoked synchronously after every
// successful mutation. Listeners must not mutate the store re-entrantly.
func (s *Store) Subscribe(fn func()) {
	s.listeners = append(s.listeners, fn)
}

// Generation increments on every mutation; consumers use it to detect
// staleness of derived views.
func (s *Store) Generation() uint64 {
	return s.gen
}

func (s *Store) notify() {
	s.gen++
	for _, fn := range s.listeners {
		fn()
	}
}

// UpsertConversation inserts or updates conversation metadata. Message
// windows of an existing conversation are preserved.
func (s *Store) UpsertConversation(c Conversation) {
	existing, ok := s.convs[c.ID]
	if !ok {
		nc := c
		nc.Placeholder = false
		s.convs[c.ID] = &nc
		s.notify()
		return
	}
	existing.Name = c.Name
	existing.Kind = c.Kind
	existing.Folder = c.Folder
	existing.Unread = c.Unread
	existing.Pinned = c.Pinned
	if c.Preview != "" {
		existing.Preview = c.Preview
	}
	if c.LastActivity > existing.LastActivity {
		existing.LastActivity = c.LastActivity
	}
	existing.Placeholder = false
	s.notify()
}

// UpsertMessage inserts a message at its chronological position, or
// replaces it in place when the ID already exists (edit semantics).
// Returns false without notifying when the stored message already has
// the same edit version (duplicate event, no-op).
func (s *Store) UpsertMessage(convID string, m Message) bool {
	c, _ := s.ensure(convID)

	for i := range c.Messages {
		if c.Messages[i].ID != m.ID {
			continue
		}
		if c.Messages[i].EditVersion == m.EditVersion {
			return false
		}
		// Edits replace content but keep the chronological slot.
		m.SentAt = c.Messages[i].SentAt
		m.Seq = c.Messages[i].Seq
		c.Messages[i] = m
		s.notify()
		return true
	}

	at := sort.Search(len(c.Messages), func(i int) bool {
		if c.Messages[i].SentAt != m.SentAt {
			return c.Messages[i].SentAt > m.SentAt
		}
		return c.Messages[i].Seq > m.Seq
	})
	c.Messages = append(c.Messages, Message{})
	copy(c.Messages[at+1:], c.Messages[at:])
	c.Messages[at] = m

	if len(c.Messages) > messageWindow {
		c.Messages = c.Messages[len(c.Messages)-messageWindow:]
	}
	if m.SentAt > c.LastActivity {
		c.LastActivity = m.SentAt
		c.Preview = m.Body
	}
	s.notify()
	return true
}

// SetUnread sets a conversation's unread counter. Negative counts clamp
// to zero.
func (s *Store) SetUnread(convID string, count int) {
	c, created := s.ensure(convID)
	if count < 0 {
		count = 0
	}
	if c.Unread == count && !created {
		return
	}
	c.Unread = count
	s.notify()
}

// MarkRead resets the unread counter, the open-conversation action.
func (s *Store) MarkRead(convID string) {
	s.SetUnread(convID, 0)
}

// SetFolder moves a conversation between folders.
func (s *Store) SetFolder(convID string, f Folder) {
	c, created := s.ensure(convID)
	if c.Folder == f && !created {
		return
	}
	c.Folder = f
	s.notify()
}

// SetPinned toggles the pinned flag.
func (s *Store) SetPinned(convID string, pinned bool) {
	c, created := s.ensure(convID)
	if c.Pinned == pinned && !created {
		return
	}
	c.Pinned = pinned
	s.notify()
}

// Remove deletes a conversation. Unknown IDs are ignored.
func (s *Store) Remove(convID string) {
	if _, ok := s.convs[convID]; !ok {
		return
	}
	delete(s.convs, convID)
	s.notify()
}

// Get returns a copy of the conversation, or false if unknown. The
// Messages slice is shared and must be treated as read-only.
func (s *Store) Get(id string) (Conversation, bool) {
	c, ok := s.convs[id]
	if !ok {
		return Conversation{}, false
	}
	return *c, true
}

// List returns the folder's conversations in default order: pinned
// first (stable among themselves by name), then last activity
// descending. Equal-activity ties break by conversation ID ascending
// so the order is deterministic.
func (s *Store) List(f Folder) []Conversation {
	var out []Conversation
	for _, c := range s.convs {
		if c.Folder == f {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if a.Pinned {
			if a.Name != b.Name {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			}
			return a.ID < b.ID
		}
		if a.LastActivity != b.LastActivity {
			return a.LastActivity > b.LastActivity
		}
		return a.ID < b.ID
	})
	return out
}

// ensure returns the conversation, creating a placeholder when the ID
// is unknown. Updates for not-yet-synced conversations must never be
// dropped; the reconciler fills in metadata later.
func (s *Store) ensure(id string) (*Conversation, bool) {
	if c, ok := s.convs[id]; ok {
		return c, false
	}
	s.logger.Debug("creating placeholder conversation", zap.String("conversation_id", id))
	c := &Conversation{
		ID:          id,
		Name:        id,
		Kind:        KindDirect,
		Folder:      FolderMain,
		Placeholder: true,
	}
	s.convs[id] = c
	return c, true
}
