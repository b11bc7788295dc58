package local

import (
	"context"
	"testing"
	"time"

	"github.com/talc-dev/talc/internal/backend"
)

func seeded() *Client {
	c := New(nil)
	c.Seed([]backend.ConversationSnapshot{
		{ID: "c1", Name: "Alice", LastActivity: 300},
		{ID: "c2", Name: "Bob", LastActivity: 100},
	}, map[string][]backend.MessageSnapshot{
		"c1": {
			{ID: "m1", Seq: 1, Sender: "Alice", Body: "one", SentAt: 100},
			{ID: "m2", Seq: 2, Sender: "Alice", Body: "two", SentAt: 200},
			{ID: "m3", Seq: 3, Sender: "Alice", Body: "three", SentAt: 300},
		},
	})
	return c
}

func recvEvent(t *testing.T, c *Client) backend.Event {
	t.Helper()
	select {
	case evt := <-c.Events():
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for push event")
		return nil
	}
}

func TestFetchConversationsCursor(t *testing.T) {
	c := seeded()
	ctx := context.Background()

	all, err := c.FetchConversations(ctx, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("full fetch = %d convs, err %v", len(all), err)
	}

	delta, err := c.FetchConversations(ctx, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(delta) != 1 || delta[0].ID != "c1" {
		t.Errorf("delta fetch = %+v, want only c1", delta)
	}
}

func TestFetchMessagesWindowing(t *testing.T) {
	c := seeded()
	ctx := context.Background()

	msgs, err := c.FetchMessages(ctx, "c1", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m2" || msgs[1].ID != "m3" {
		t.Errorf("latest window = %+v, want [m2 m3]", msgs)
	}

	older, err := c.FetchMessages(ctx, "c1", "m2", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 1 || older[0].ID != "m1" {
		t.Errorf("before m2 = %+v, want [m1]", older)
	}
}

func TestFetchMessagesUnknownConversationIsTransient(t *testing.T) {
	c := seeded()
	_, err := c.FetchMessages(context.Background(), "nope", "", 10)
	if err == nil || !backend.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestSendTextEchoesPushEvent(t *testing.T) {
	c := seeded()
	if err := c.SendText(context.Background(), "c1", "hello"); err != nil {
		t.Fatal(err)
	}

	evt := recvEvent(t, c)
	mr, ok := evt.(backend.MessageReceived)
	if !ok {
		t.Fatalf("event = %T, want MessageReceived", evt)
	}
	if mr.ConversationID != "c1" || mr.Message.Body != "hello" || !mr.Message.FromMe {
		t.Errorf("echoed message = %+v", mr)
	}
	if mr.Message.Seq != 4 {
		t.Errorf("Seq = %d, want 4 (after seeded m3)", mr.Message.Seq)
	}

	// The sent message is part of later history fetches.
	msgs, err := c.FetchMessages(context.Background(), "c1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if msgs[len(msgs)-1].Body != "hello" {
		t.Errorf("history tail = %+v, want sent message", msgs[len(msgs)-1])
	}
}

func TestMarkReadEchoesReadState(t *testing.T) {
	c := New(nil)
	c.Seed([]backend.ConversationSnapshot{{ID: "c1", Name: "Alice", Unread: 3}}, nil)

	if err := c.MarkRead(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	evt := recvEvent(t, c)
	rs, ok := evt.(backend.ReadStateChanged)
	if !ok || rs.ConversationID != "c1" || rs.Unread != 0 {
		t.Errorf("event = %+v, want read state cleared for c1", evt)
	}
}

func TestSetArchivedEchoesFolderChange(t *testing.T) {
	c := seeded()
	if err := c.SetArchived(context.Background(), "c2", true); err != nil {
		t.Fatal(err)
	}
	evt := recvEvent(t, c)
	fc, ok := evt.(backend.FolderChanged)
	if !ok || fc.ConversationID != "c2" || !fc.Archived {
		t.Errorf("event = %+v, want c2 archived", evt)
	}
}
