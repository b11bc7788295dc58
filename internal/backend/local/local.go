// Package local provides an in-process, scripted implementation of the
// backend client. It backs demo mode and tests: requests answer from
// seeded state and server-side effects come back as push events, the
// same round trip a remote backend would produce.
package local

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talc-dev/talc/internal/backend"
	"go.uber.org/zap"
)

type conversation struct {
	snap backend.ConversationSnapshot
	msgs []backend.MessageSnapshot
}

// Client is a scripted backend.
type Client struct {
	mu     sync.Mutex
	convs  map[string]*conversation
	events chan backend.Event
	seq    int64
	logger *zap.Logger
}

var _ backend.Client = (*Client)(nil)

// New creates an empty local backend.
func New(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		convs:  make(map[string]*conversation),
		events: make(chan backend.Event, 256),
		logger: logger,
	}
}

// Seed loads conversations and their message history.
func (c *Client) Seed(snaps []backend.ConversationSnapshot, msgs map[string][]backend.MessageSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range snaps {
		c.convs[s.ID] = &conversation{snap: s, msgs: msgs[s.ID]}
		for _, m := range msgs[s.ID] {
			if m.Seq > c.seq {
				c.seq = m.Seq
			}
		}
	}
}

// Connect announces the push stream, mirroring a real session setup.
func (c *Client) Connect() {
	c.events <- backend.Connected{}
}

// Emit injects an arbitrary push event; scripting hook for tests.
func (c *Client) Emit(evt backend.Event) {
	c.events <- evt
}

// Events implements backend.Client.
func (c *Client) Events() <-chan backend.Event {
	return c.events
}

// FetchConversations implements backend.Client.
func (c *Client) FetchConversations(_ context.Context, cursor int64) ([]backend.ConversationSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []backend.ConversationSnapshot
	for _, conv := range c.convs {
		if cursor == 0 || conv.snap.LastActivity > cursor {
			out = append(out, conv.snap)
		}
	}
	return out, nil
}

// FetchMessages implements backend.Client.
func (c *Client) FetchMessages(_ context.Context, convID, beforeID string, limit int) ([]backend.MessageSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[convID]
	if !ok {
		return nil, &backend.TransientError{Cause: fmt.Errorf("unknown conversation %q", convID)}
	}
	end := len(conv.msgs)
	if beforeID != "" {
		for i, m := range conv.msgs {
			if m.ID == beforeID {
				end = i
				break
			}
		}
	}
	start := end - limit
	if limit <= 0 || start < 0 {
		start = 0
	}
	out := make([]backend.MessageSnapshot, end-start)
	copy(out, conv.msgs[start:end])
	return out, nil
}

// MarkRead implements backend.Client. The read state echoes back on the
// push stream.
func (c *Client) MarkRead(_ context.Context, convID string) error {
	c.mu.Lock()
	conv, ok := c.convs[convID]
	if ok {
		conv.snap.Unread = 0
	}
	c.mu.Unlock()
	if !ok {
		return &backend.TransientError{Cause: fmt.Errorf("unknown conversation %q", convID)}
	}
	c.events <- backend.ReadStateChanged{ConversationID: convID, Unread: 0}
	return nil
}

// SetArchived implements backend.Client.
func (c *Client) SetArchived(_ context.Context, convID string, archived bool) error {
	c.mu.Lock()
	conv, ok := c.convs[convID]
	if ok {
		conv.snap.Archived = archived
	}
	c.mu.Unlock()
	if !ok {
		return &backend.TransientError{Cause: fmt.Errorf("unknown conversation %q", convID)}
	}
	c.events <- backend.FolderChanged{ConversationID: convID, Archived: archived}
	return nil
}

// SendText implements backend.Client. The accepted message comes back
// as a MessageReceived push event.
func (c *Client) SendText(_ context.Context, convID, body string) error {
	c.mu.Lock()
	conv, ok := c.convs[convID]
	if !ok {
		c.mu.Unlock()
		return &backend.TransientError{Cause: fmt.Errorf("unknown conversation %q", convID)}
	}
	c.seq++
	msg := backend.MessageSnapshot{
		ID:     uuid.New().String(),
		Seq:    c.seq,
		Sender: "me",
		Body:   body,
		SentAt: time.Now().UnixMilli(),
		FromMe: true,
	}
	conv.msgs = append(conv.msgs, msg)
	conv.snap.LastActivity = msg.SentAt
	conv.snap.Preview = body
	c.mu.Unlock()
	c.events <- backend.MessageReceived{ConversationID: convID, Message: msg}
	return nil
}

// StartDemo emits scripted incoming messages round-robin across seeded
// conversations until the context ends.
func (c *Client) StartDemo(ctx context.Context, every time.Duration) {
	lines := []string{
		"hey, are you around?",
		"did you see the latest update?",
		"let's sync tomorrow morning",
		"👍 sounds good",
		"can you take a look when you get a chance?",
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				var ids []string
				for id := range c.convs {
					ids = append(ids, id)
				}
				if len(ids) == 0 {
					c.mu.Unlock()
					continue
				}
				sort.Strings(ids)
				id := ids[i%len(ids)]
				conv := c.convs[id]
				c.seq++
				msg := backend.MessageSnapshot{
					ID:     uuid.New().String(),
					Seq:    c.seq,
					Sender: conv.snap.Name,
					Body:   lines[i%len(lines)],
					SentAt: time.Now().UnixMilli(),
				}
				conv.msgs = append(conv.msgs, msg)
				conv.snap.LastActivity = msg.SentAt
				conv.snap.Preview = msg.Body
				conv.snap.Unread++
				unread := conv.snap.Unread
				c.mu.Unlock()
				i++
				c.events <- backend.MessageReceived{ConversationID: id, Message: msg}
				c.events <- backend.ReadStateChanged{ConversationID: id, Unread: unread}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close shuts the push stream.
func (c *Client) Close() {
	close(c.events)
}
