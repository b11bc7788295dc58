package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("store.", 10)
	defer unsub()

	b.PublishKind(KindStoreChanged, nil)

	select {
	case evt := <-ch:
		if evt.Kind != KindStoreChanged {
			t.Errorf("got kind %q, want %q", evt.Kind, KindStoreChanged)
		}
		if evt.Timestamp.IsZero() {
			t.Error("PublishKind did not stamp a timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("sync.", 10)
	defer unsub()

	b.PublishKind(KindStoreChanged, nil)
	b.PublishKind(KindSyncStatus, "LIVE")

	select {
	case evt := <-ch:
		if evt.Kind != KindSyncStatus {
			t.Errorf("got kind %q, want %q", evt.Kind, KindSyncStatus)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// The store event must not have been delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("sync.", 10)
	unsub()

	b.PublishKind(KindSyncError, "boom")

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("store.", 1)
	defer unsub()

	b.PublishKind(KindStoreChanged, 1)
	// Buffer is full; this one is dropped rather than blocking the
	// publisher.
	b.PublishKind(KindStoreChanged, 2)

	evt := <-ch
	if evt.Payload != 1 {
		t.Errorf("got payload %v, want 1", evt.Payload)
	}
}

func TestEmptyNamespaceReceivesEverything(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.PublishKind(KindStoreChanged, nil)
	b.PublishKind(KindSyncStatus, nil)
	b.PublishKind(KindSyncError, nil)

	for i := 0; i < 3; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("received %d events, want 3", i)
		}
	}
}
