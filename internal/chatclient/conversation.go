package chatclient

import (
	"context"
	"sync"
)

type EntryState int

const (
	EntryPending EntryState = iota
	EntryConfirmed
	EntryFailed
)

func (s EntryState) String() string {
	switch s {
	case EntryPending:
		return "pending"
	case EntryConfirmed:
		return "confirmed"
	case EntryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	RoleUser  = "user"
	RoleModel = "model"
	// RoleError marks an entry that only exists locally to report a failure.
	RoleError = "error"

	FailedNotice = "Error. Try again."
)

type Entry struct {
	Role  string
	Text  string
	State EntryState
}

type Sender interface {
	SendMessage(ctx context.Context, sessionID, text string) (string, error)
}

// Conversation is the local view of one session. Outgoing messages are shown
// immediately as pending and are never removed: a failed send keeps the
// message, marks it failed and appends a visible error entry. Sends are
// serialised so every reply directly follows the message it answers.
type Conversation struct {
	sender    Sender
	sessionID string
	sending   sync.Mutex

	mu      sync.Mutex
	entries []Entry
}

func NewConversation(sender Sender, sessionID string, history []Turn) *Conversation {
	entries := make([]Entry, 0, len(history))
	for _, turn := range history {
		entries = append(entries, Entry{Role: turn.Role, Text: turn.Text, State: EntryConfirmed})
	}
	return &Conversation{
		sender:    sender,
		sessionID: sessionID,
		entries:   entries,
	}
}

func (c *Conversation) SessionID() string {
	return c.sessionID
}

func (c *Conversation) Send(ctx context.Context, text string) (string, error) {
	c.sending.Lock()
	defer c.sending.Unlock()

	c.mu.Lock()
	idx := len(c.entries)
	c.entries = append(c.entries, Entry{Role: RoleUser, Text: text, State: EntryPending})
	c.mu.Unlock()

	reply, err := c.sender.SendMessage(ctx, c.sessionID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.entries[idx].State = EntryFailed
		c.entries = append(c.entries, Entry{Role: RoleError, Text: FailedNotice, State: EntryConfirmed})
		return "", err
	}
	c.entries[idx].State = EntryConfirmed
	c.entries = append(c.entries, Entry{Role: RoleModel, Text: reply, State: EntryConfirmed})
	return reply, nil
}

// Entries returns a snapshot of the conversation in display order.
func (c *Conversation) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
