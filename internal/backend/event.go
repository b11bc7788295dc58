package backend

// Event is the closed set of push-event shapes emitted by the backend.
// The reconciler dispatches on the concrete type; anything else is
// treated as malformed and dropped.
type Event interface {
	isEvent()
}

// MessageReceived carries a newly observed message.
type MessageReceived struct {
	ConversationID string
	Message        MessageSnapshot
}

// MessageEdited carries an in-place edit of an existing message.
type MessageEdited struct {
	ConversationID string
	Message        MessageSnapshot
}

// ConversationUpdated carries refreshed conversation metadata.
type ConversationUpdated struct {
	Conversation ConversationSnapshot
}

// ReadStateChanged carries a new unread count for a conversation.
type ReadStateChanged struct {
	ConversationID string
	Unread         int
}

// FolderChanged carries an archive-state change for a conversation.
type FolderChanged struct {
	ConversationID string
	Archived       bool
}

// ConversationRemoved signals a conversation no longer exists upstream.
type ConversationRemoved struct {
	ConversationID string
}

// Connected signals the push stream is (re-)established.
type Connected struct{}

// Disconnected signals the push stream dropped.
type Disconnected struct {
	Reason string
}

func (MessageReceived) isEvent()     {}
func (MessageEdited) isEvent()       {}
func (ConversationUpdated) isEvent() {}
func (ReadStateChanged) isEvent()    {}
func (FolderChanged) isEvent()       {}
func (ConversationRemoved) isEvent() {}
func (Connected) isEvent()           {}
func (Disconnected) isEvent()        {}
