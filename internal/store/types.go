package store

// Folder is a top-level conversation grouping.
type Folder string

const (
	FolderMain     Folder = "main"
	FolderArchived Folder = "archived"
)

// Kind classifies a conversation.
type Kind string

const (
	KindDirect  Kind = "direct"
	KindGroup   Kind = "group"
	KindChannel Kind = "channel"
)

// Conversation is a chat thread tracked by the client.
type Conversation struct {
	ID           string
	Name         string
	Kind         Kind
	Folder       Folder
	Unread       int
	LastActivity int64 // unix ms of the latest known activity
	Pinned       bool
	Preview      string
	Messages     []Message

	// Placeholder marks a conversation created implicitly by a message
	// or read-state update that arrived before its metadata. Resolved
	// by a later UpsertConversation.
	Placeholder bool
}

// Message is a single message inside a conversation's loaded window.
type Message struct {
	ID          string
	Seq         int64 // backend sequence, tie-break after SentAt
	Sender      string
	Body        string
	SentAt      int64 // unix ms
	Edited      bool
	EditVersion int
	FromMe      bool
}
