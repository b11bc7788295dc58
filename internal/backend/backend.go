// Package backend defines the boundary to the remote messaging service.
// Wire protocol, authentication, and session management live behind the
// Client interface; the rest of the client only sees snapshots and the
// push-event stream.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// ConversationSnapshot is the backend's view of one conversation.
type ConversationSnapshot struct {
	ID           string
	Name         string
	Kind         string // direct, group, channel
	Archived     bool
	Unread       int
	Pinned       bool
	LastActivity int64 // unix ms
	Preview      string
}

// MessageSnapshot is the backend's view of one message.
type MessageSnapshot struct {
	ID          string
	Seq         int64
	Sender      string
	Body        string
	SentAt      int64 // unix ms
	Edited      bool
	EditVersion int
	FromMe      bool
}

// Client is the messaging backend collaborator. Request methods suspend
// on the calling goroutine and must never be invoked from the run loop.
type Client interface {
	// FetchConversations returns conversations modified since the
	// cursor (unix ms), or all of them when cursor is zero.
	FetchConversations(ctx context.Context, cursor int64) ([]ConversationSnapshot, error)
	// FetchMessages returns up to limit messages before the given
	// message ID (most recent window when beforeID is empty).
	FetchMessages(ctx context.Context, convID, beforeID string, limit int) ([]MessageSnapshot, error)
	MarkRead(ctx context.Context, convID string) error
	SetArchived(ctx context.Context, convID string, archived bool) error
	SendText(ctx context.Context, convID, body string) error
	// Events returns the push-event stream. Closed on shutdown.
	Events() <-chan Event
}

// ErrFatalAuth indicates the session is no longer usable. The client
// freezes the current view read-only and stops issuing requests; the
// surrounding session layer decides what to do next.
var ErrFatalAuth = errors.New("backend: authentication is no longer valid")

// TransientError wraps a retryable network or timeout failure.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("backend: transient failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
