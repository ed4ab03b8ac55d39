package chatclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatedSender struct {
	release chan struct{}
	reply   string
	err     error
}

func (s *gatedSender) SendMessage(ctx context.Context, sessionID, text string) (string, error) {
	if s.release != nil {
		<-s.release
	}
	return s.reply, s.err
}

func TestConversationConfirmsOnSuccess(t *testing.T) {
	sender := &gatedSender{release: make(chan struct{}), reply: "Hi there"}
	conv := NewConversation(sender, "s1", []Turn{{Role: "system", Text: "Extracted document text:\nx"}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = conv.Send(context.Background(), "Hello")
	}()

	require.Eventually(t, func() bool { return len(conv.Entries()) == 2 }, time.Second, time.Millisecond)
	pending := conv.Entries()[1]
	assert.Equal(t, Entry{Role: RoleUser, Text: "Hello", State: EntryPending}, pending)

	close(sender.release)
	<-done

	entries := conv.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, EntryConfirmed, entries[1].State)
	assert.Equal(t, Entry{Role: RoleModel, Text: "Hi there", State: EntryConfirmed}, entries[2])
}

func TestConversationKeepsMessageOnFailure(t *testing.T) {
	sender := &gatedSender{err: errors.New("502")}
	conv := NewConversation(sender, "s1", nil)

	_, err := conv.Send(context.Background(), "Hello")
	require.Error(t, err)

	entries := conv.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Role: RoleUser, Text: "Hello", State: EntryFailed}, entries[0])
	assert.Equal(t, RoleError, entries[1].Role)
	assert.Equal(t, FailedNotice, entries[1].Text)
	assert.Equal(t, "failed", entries[0].State.String())
}

func TestEntriesIsSnapshot(t *testing.T) {
	conv := NewConversation(&gatedSender{reply: "ok"}, "s1", nil)
	snapshot := conv.Entries()
	_, err := conv.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
	assert.Len(t, conv.Entries(), 2)
}

type echoSender struct {
	mu       sync.Mutex
	inflight int
	peak     int
}

func (s *echoSender) SendMessage(ctx context.Context, sessionID, text string) (string, error) {
	s.mu.Lock()
	s.inflight++
	if s.inflight > s.peak {
		s.peak = s.inflight
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
	return "re: " + text, nil
}

func TestConversationOverlappingSendsStayPaired(t *testing.T) {
	sender := &echoSender{}
	conv := NewConversation(sender, "s1", nil)

	var wg sync.WaitGroup
	for _, text := range []string{"one", "two", "three", "four"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, err := conv.Send(context.Background(), text)
			assert.NoError(t, err)
		}(text)
	}
	wg.Wait()

	entries := conv.Entries()
	require.Len(t, entries, 8)
	for i := 0; i < len(entries); i += 2 {
		assert.Equal(t, RoleUser, entries[i].Role)
		assert.Equal(t, RoleModel, entries[i+1].Role)
		assert.Equal(t, "re: "+entries[i].Text, entries[i+1].Text)
	}
	assert.Equal(t, 1, sender.peak)
}
