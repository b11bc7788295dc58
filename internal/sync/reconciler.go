// Package sync reconciles push events and fetch responses from the
// messaging backend into the conversation store.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/talc-dev/talc/internal/backend"
	"github.com/talc-dev/talc/internal/bus"
	"github.com/talc-dev/talc/internal/loop"
	"github.com/talc-dev/talc/internal/store"
	"go.uber.org/zap"
)

// Status describes the reconciler's connection state, published on the
// bus as sync.status.
type Status string

const (
	StatusLive      Status = "LIVE"
	StatusDegraded  Status = "DEGRADED"
	StatusResyncing Status = "RESYNCING"
)

// FetchGate reports the message-window fetch the user is currently
// waiting for. A fetch result whose token no longer matches is stale
// and must be discarded.
type FetchGate interface {
	CurrentFetch() (token uuid.UUID, convID string, ok bool)
}

// Reconciler drains the backend push stream and applies each event as
// exactly one store mutation on the run loop. Events are processed in
// arrival order; ordering inside a conversation is resolved by the
// store from (timestamp, sequence), not by arrival.
type Reconciler struct {
	st     *store.Store
	client backend.Client
	loop   *loop.Loop
	bus    *bus.Bus
	gate   FetchGate
	logger *zap.Logger
	cancel context.CancelFunc

	// Loop-confined. Touched only from tasks running on the loop.
	degraded bool
	frozen   bool
	cursor   int64
}

// NewReconciler creates a reconciler.
func NewReconciler(st *store.Store, client backend.Client, l *loop.Loop, b *bus.Bus, gate FetchGate, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		st:     st,
		client: client,
		loop:   l,
		bus:    b,
		gate:   gate,
		logger: logger,
	}
}

// Start begins draining the push stream. Each event is submitted to the
// run loop, preserving arrival order.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go func() {
		for {
			select {
			case evt, ok := <-r.client.Events():
				if !ok {
					return
				}
				r.loop.Submit(func() { r.apply(ctx, evt) })
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// apply dispatches one push event into a store mutation. Runs on the
// loop.
func (r *Reconciler) apply(ctx context.Context, evt backend.Event) {
	if r.frozen {
		return
	}

	switch e := evt.(type) {
	case backend.Connected:
		r.logger.Info("push stream connected")
		r.bus.PublishKind(bus.KindSyncStatus, StatusResyncing)
		go r.resync(ctx)
		return
	case backend.Disconnected:
		r.logger.Warn("push stream disconnected", zap.String("reason", e.Reason))
		r.degraded = true
		r.bus.PublishKind(bus.KindSyncStatus, StatusDegraded)
		return
	}

	// While degraded, live events are skipped; the reconnect delta
	// fetch covers them. The store keeps serving the last good view.
	if r.degraded {
		return
	}

	switch e := evt.(type) {
	case backend.MessageReceived:
		r.applyMessage(e.ConversationID, e.Message)
	case backend.MessageEdited:
		r.applyMessage(e.ConversationID, e.Message)
	case backend.ConversationUpdated:
		if e.Conversation.ID == "" {
			r.dropMalformed("conversation update without id")
			return
		}
		r.st.UpsertConversation(convFromSnapshot(e.Conversation))
		r.advanceCursor(e.Conversation.LastActivity)
	case backend.ReadStateChanged:
		if e.ConversationID == "" {
			r.dropMalformed("read-state change without conversation id")
			return
		}
		r.st.SetUnread(e.ConversationID, e.Unread)
	case backend.FolderChanged:
		if e.ConversationID == "" {
			r.dropMalformed("folder change without conversation id")
			return
		}
		r.st.SetFolder(e.ConversationID, folderFor(e.Archived))
	case backend.ConversationRemoved:
		if e.ConversationID == "" {
			r.dropMalformed("conversation removal without id")
			return
		}
		r.st.Remove(e.ConversationID)
	default:
		r.dropMalformed("unknown event shape")
	}
}

func (r *Reconciler) applyMessage(convID string, m backend.MessageSnapshot) {
	if convID == "" || m.ID == "" {
		r.dropMalformed("message event without ids")
		return
	}
	if !r.st.UpsertMessage(convID, msgFromSnapshot(m)) {
		r.logger.Debug("duplicate message event",
			zap.String("conversation_id", convID),
			zap.String("message_id", m.ID),
			zap.Int("edit_version", m.EditVersion))
		return
	}
	r.advanceCursor(m.SentAt)
}

// dropMalformed contains a bad event at the reconciler boundary. The
// loop keeps running; the next successful reconciliation self-heals.
func (r *Reconciler) dropMalformed(reason string) {
	r.logger.Warn("dropping malformed event", zap.String("reason", reason))
	r.bus.PublishKind(bus.KindSyncError, reason)
}

func (r *Reconciler) advanceCursor(ts int64) {
	if ts > r.cursor {
		r.cursor = ts
	}
}

// resync fetches the delta of conversations modified since the cursor
// and replays it before resuming the live stream. Runs off-loop and
// retries transient failures with exponential backoff.
func (r *Reconciler) resync(ctx context.Context) {
	var cursor int64
	done := make(chan struct{})
	r.loop.Submit(func() {
		cursor = r.cursor
		close(done)
	})
	select {
	case <-done:
	case <-ctx.Done():
		return
	}

	var snaps []backend.ConversationSnapshot
	op := func() error {
		var err error
		snaps, err = r.client.FetchConversations(ctx, cursor)
		if err != nil && !backend.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		r.loop.Submit(func() { r.fail(err) })
		return
	}

	r.loop.Submit(func() {
		r.ApplyConversations(snaps)
		r.degraded = false
		r.bus.PublishKind(bus.KindSyncStatus, StatusLive)
		r.logger.Info("resync complete", zap.Int("conversations", len(snaps)))
	})
}

// fail records a reconciliation failure. A fatal auth error freezes
// the view read-only; the session layer above this core owns recovery.
func (r *Reconciler) fail(err error) {
	r.logger.Error("reconciliation failed", zap.Error(err))
	if errors.Is(err, backend.ErrFatalAuth) {
		r.frozen = true
	}
	r.bus.PublishKind(bus.KindSyncError, err.Error())
}

// ApplyConversations applies a snapshot list as store upserts. Must run
// on the loop.
func (r *Reconciler) ApplyConversations(snaps []backend.ConversationSnapshot) {
	for _, s := range snaps {
		if s.ID == "" {
			r.dropMalformed("conversation snapshot without id")
			continue
		}
		r.st.UpsertConversation(convFromSnapshot(s))
		r.advanceCursor(s.LastActivity)
	}
}

// ApplyMessageWindow applies a fetched message window, unless the fetch
// token no longer matches the user's current navigation, in which case
// the result is stale and discarded. Must run on the loop.
func (r *Reconciler) ApplyMessageWindow(token uuid.UUID, convID string, msgs []backend.MessageSnapshot) {
	current, wantConv, ok := r.gate.CurrentFetch()
	if !ok || current != token || wantConv != convID {
		r.logger.Debug("discarding stale message fetch",
			zap.String("conversation_id", convID),
			zap.Int("messages", len(msgs)))
		return
	}
	for _, m := range msgs {
		if m.ID == "" {
			r.dropMalformed("message snapshot without id")
			continue
		}
		r.st.UpsertMessage(convID, msgFromSnapshot(m))
	}
}

// Frozen reports whether a fatal auth failure stopped reconciliation.
func (r *Reconciler) Frozen() bool { return r.frozen }

func convFromSnapshot(s backend.ConversationSnapshot) store.Conversation {
	return store.Conversation{
		ID:           s.ID,
		Name:         s.Name,
		Kind:         kindFor(s.Kind),
		Folder:       folderFor(s.Archived),
		Unread:       s.Unread,
		Pinned:       s.Pinned,
		LastActivity: s.LastActivity,
		Preview:      s.Preview,
	}
}

func msgFromSnapshot(m backend.MessageSnapshot) store.Message {
	return store.Message{
		ID:          m.ID,
		Seq:         m.Seq,
		Sender:      m.Sender,
		Body:        m.Body,
		SentAt:      m.SentAt,
		Edited:      m.Edited,
		EditVersion: m.EditVersion,
		FromMe:      m.FromMe,
	}
}

func folderFor(archived bool) store.Folder {
	if archived {
		return store.FolderArchived
	}
	return store.FolderMain
}

func kindFor(k string) store.Kind {
	switch store.Kind(k) {
	case store.KindGroup:
		return store.KindGroup
	case store.KindChannel:
		return store.KindChannel
	default:
		return store.KindDirect
	}
}

// InitialLoad performs the first conversation fetch at startup, off the
// loop, and applies it when it lands.
func (r *Reconciler) InitialLoad(ctx context.Context) {
	go func() {
		deadline, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		snaps, err := r.client.FetchConversations(deadline, 0)
		if err != nil {
			r.loop.Submit(func() { r.fail(err) })
			return
		}
		r.loop.Submit(func() {
			r.ApplyConversations(snaps)
			r.bus.PublishKind(bus.KindSyncStatus, StatusLive)
		})
	}()
}
