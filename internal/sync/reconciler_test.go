package sync

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/talc-dev/talc/internal/backend"
	"github.com/talc-dev/talc/internal/backend/local"
	"github.com/talc-dev/talc/internal/bus"
	"github.com/talc-dev/talc/internal/loop"
	"github.com/talc-dev/talc/internal/store"
)

// stubGate fixes the in-flight fetch for stale-discard tests.
type stubGate struct {
	token  uuid.UUID
	convID string
	active bool
}

func (g *stubGate) CurrentFetch() (uuid.UUID, string, bool) {
	return g.token, g.convID, g.active
}

type fixture struct {
	st     *store.Store
	client *local.Client
	loop   *loop.Loop
	bus    *bus.Bus
	gate   *stubGate
	rec    *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{
		st:     store.New(nil),
		client: local.New(nil),
		loop:   loop.New(),
		bus:    bus.New(),
		gate:   &stubGate{},
	}
	f.rec = NewReconciler(f.st, f.client, f.loop, f.bus, f.gate, nil)
	go f.loop.Run(ctx)
	f.rec.Start(ctx)
	t.Cleanup(f.rec.Stop)
	return f
}

// onLoop runs fn on the loop and waits for it.
func (f *fixture) onLoop(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	f.loop.Submit(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for loop task")
	}
}

// waitFor polls a loop-confined condition until it holds.
func (f *fixture) waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		f.onLoop(t, func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestMessageReceivedCreatesConversation(t *testing.T) {
	f := newFixture(t)

	f.client.Emit(backend.MessageReceived{
		ConversationID: "c1",
		Message:        backend.MessageSnapshot{ID: "m1", Body: "hello", SentAt: 100},
	})

	f.waitFor(t, "message applied", func() bool {
		c, ok := f.st.Get("c1")
		return ok && len(c.Messages) == 1 && c.Messages[0].Body == "hello"
	})
}

func TestEditedEventIsIdempotent(t *testing.T) {
	f := newFixture(t)

	f.client.Emit(backend.MessageReceived{
		ConversationID: "c1",
		Message:        backend.MessageSnapshot{ID: "m1", Body: "helo", SentAt: 100},
	})
	edit := backend.MessageEdited{
		ConversationID: "c1",
		Message:        backend.MessageSnapshot{ID: "m1", Body: "hello", SentAt: 100, Edited: true, EditVersion: 1},
	}
	f.client.Emit(edit)
	f.waitFor(t, "edit applied", func() bool {
		c, _ := f.st.Get("c1")
		return len(c.Messages) == 1 && c.Messages[0].Body == "hello"
	})

	var before store.Conversation
	f.onLoop(t, func() { before, _ = f.st.Get("c1") })

	// Applying the identical edit again must change nothing.
	f.client.Emit(edit)
	f.onLoop(t, func() {}) // drain the event through the loop

	var after store.Conversation
	f.onLoop(t, func() { after, _ = f.st.Get("c1") })
	if !reflect.DeepEqual(before, after) {
		t.Errorf("state changed on duplicate edit:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestMalformedEventDroppedLoopContinues(t *testing.T) {
	f := newFixture(t)
	errCh, unsub := f.bus.Subscribe(bus.KindSyncError, 10)
	defer unsub()

	f.client.Emit(backend.MessageReceived{ConversationID: "", Message: backend.MessageSnapshot{ID: ""}})

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for sync.error")
	}

	// Subsequent events still apply.
	f.client.Emit(backend.ReadStateChanged{ConversationID: "c1", Unread: 2})
	f.waitFor(t, "later event applied", func() bool {
		c, ok := f.st.Get("c1")
		return ok && c.Unread == 2
	})
}

func TestDisconnectEntersDegradedAndKeepsStore(t *testing.T) {
	f := newFixture(t)

	f.client.Emit(backend.MessageReceived{
		ConversationID: "c1",
		Message:        backend.MessageSnapshot{ID: "m1", Body: "hello", SentAt: 100},
	})
	f.waitFor(t, "message applied", func() bool {
		_, ok := f.st.Get("c1")
		return ok
	})

	f.client.Emit(backend.Disconnected{Reason: "network"})
	f.onLoop(t, func() {})

	// Live events are skipped while degraded; the store keeps serving.
	f.client.Emit(backend.ReadStateChanged{ConversationID: "c1", Unread: 9})
	f.onLoop(t, func() {})

	var c store.Conversation
	f.onLoop(t, func() { c, _ = f.st.Get("c1") })
	if c.Unread == 9 {
		t.Error("degraded reconciler applied a live event")
	}
	if len(c.Messages) != 1 {
		t.Error("store cleared on disconnect")
	}
}

func TestReconnectReplaysDelta(t *testing.T) {
	f := newFixture(t)
	statusCh, unsub := f.bus.Subscribe(bus.KindSyncStatus, 10)
	defer unsub()

	f.client.Seed([]backend.ConversationSnapshot{
		{ID: "c1", Name: "Alice", LastActivity: 500, Unread: 4},
	}, nil)

	f.client.Emit(backend.Disconnected{Reason: "network"})
	f.client.Emit(backend.Connected{})

	// Resync fetches the seeded snapshot and resumes live.
	deadline := time.After(2 * time.Second)
waitLive:
	for {
		select {
		case evt := <-statusCh:
			if evt.Payload == StatusLive {
				break waitLive
			}
		case <-deadline:
			t.Fatal("timeout waiting for live status")
		}
	}
	f.waitFor(t, "delta applied", func() bool {
		c, ok := f.st.Get("c1")
		return ok && c.Name == "Alice" && c.Unread == 4
	})

	// Live stream resumed.
	f.client.Emit(backend.ReadStateChanged{ConversationID: "c1", Unread: 0})
	f.waitFor(t, "live event applied", func() bool {
		c, _ := f.st.Get("c1")
		return c.Unread == 0
	})
}

func TestStaleFetchDiscarded(t *testing.T) {
	f := newFixture(t)

	// The user has since navigated to c2; a late window for c1 must not
	// touch the store.
	f.gate.token = uuid.New()
	f.gate.convID = "c2"
	f.gate.active = true

	staleToken := uuid.New()
	f.onLoop(t, func() {
		f.rec.ApplyMessageWindow(staleToken, "c1", []backend.MessageSnapshot{
			{ID: "m1", Body: "late", SentAt: 100},
		})
	})

	if _, ok := f.st.Get("c1"); ok {
		t.Error("stale fetch was applied")
	}
	if _, ok := f.st.Get("c2"); ok {
		t.Error("stale fetch touched another conversation")
	}
}

func TestMatchingFetchApplied(t *testing.T) {
	f := newFixture(t)

	token := uuid.New()
	f.gate.token = token
	f.gate.convID = "c1"
	f.gate.active = true

	f.onLoop(t, func() {
		f.rec.ApplyMessageWindow(token, "c1", []backend.MessageSnapshot{
			{ID: "m1", Body: "hi", SentAt: 100},
			{ID: "m2", Body: "there", SentAt: 200},
		})
	})

	c, ok := f.st.Get("c1")
	if !ok || len(c.Messages) != 2 {
		t.Fatalf("fetched window not applied: %+v", c)
	}
}

func TestFolderChangedMovesConversation(t *testing.T) {
	f := newFixture(t)

	f.client.Emit(backend.ConversationUpdated{
		Conversation: backend.ConversationSnapshot{ID: "c1", Name: "Alice", LastActivity: 100},
	})
	f.client.Emit(backend.FolderChanged{ConversationID: "c1", Archived: true})

	f.waitFor(t, "folder change applied", func() bool {
		c, ok := f.st.Get("c1")
		return ok && c.Folder == store.FolderArchived
	})
}
