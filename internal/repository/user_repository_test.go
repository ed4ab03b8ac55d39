package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-chat/internal/model"
	"gopherai-chat/internal/repository"
	"gopherai-chat/internal/testutil"
)

func TestUserRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(testutil.NewDB(t))

	user := &model.User{ID: uuid.NewString(), Username: "gopher", Email: "gopher@example.com", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, user))

	byName, err := repo.GetByUsername(ctx, "gopher")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.GetByEmail(ctx, "gopher@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := &model.User{ID: uuid.NewString(), Username: "gopher", Email: "other@example.com", PasswordHash: "x"}
	assert.Error(t, repo.Create(ctx, dup))
}

func TestSessionEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSessionEventRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, &model.SessionEvent{SessionID: "s1", OwnerID: "alice", Type: model.EventSessionCreated}))
	require.NoError(t, repo.Create(ctx, &model.SessionEvent{SessionID: "s1", OwnerID: "alice", Type: model.EventTurnsAppended, Detail: "2 turns"}))

	require.NoError(t, repo.Create(ctx, &model.SessionEvent{SessionID: "s1", OwnerID: "bob", Type: model.EventSessionDeleted}))

	events, err := repo.ListBySessionAndOwner(ctx, "s1", "alice")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventSessionCreated, events[0].Type)
	assert.Equal(t, model.EventTurnsAppended, events[1].Type)

	events, err = repo.ListBySessionAndOwner(ctx, "s1", "carol")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
