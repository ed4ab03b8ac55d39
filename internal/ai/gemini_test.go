package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerate(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello"},{"text":" world"}]}}]}`)
	}))
	defer server.Close()

	client := NewGeminiClient(ChatConfig{BaseURL: server.URL, APIKey: "g-key"}, time.Second)
	reply, err := client.Generate(context.Background(), []ChatTurn{
		{Role: RoleSystem, Text: "Extracted document text:\nfoo"},
		{Role: RoleUser, Text: "summarise"},
		{Role: RoleModel, Text: "ok"},
		{Role: RoleUser, Text: "more"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", reply)

	assert.Nil(t, got.SystemInstruction)
	require.Len(t, got.Contents, 4)
	roles := make([]string, 0, len(got.Contents))
	for _, c := range got.Contents {
		roles = append(roles, c.Role)
	}
	assert.Equal(t, []string{"user", "user", "model", "user"}, roles)
	assert.Equal(t, "Extracted document text:\nfoo", got.Contents[0].Parts[0].Text)
}

func TestGeminiSystemPromptAndErrors(t *testing.T) {
	status := http.StatusServiceUnavailable
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"overloaded"}}`)
			return
		}
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer server.Close()

	client := NewGeminiClient(ChatConfig{BaseURL: server.URL, SystemPrompt: "you are helpful"}, time.Second)

	_, err := client.Generate(context.Background(), []ChatTurn{{Role: RoleUser, Text: "hi"}})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Temporary())
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "you are helpful", got.SystemInstruction.Parts[0].Text)

	status = http.StatusOK
	_, err = client.Generate(context.Background(), []ChatTurn{{Role: RoleUser, Text: "hi"}})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
