package persist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarRepoLoadMissing(t *testing.T) {
	db := openTestDB(t)
	avatars := NewAvatarRepo(db)

	payload, tutorials, finished, err := avatars.Load(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Nil(t, tutorials)
	assert.Nil(t, finished)
}

func TestAvatarRepoSaveAndLoad(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	accounts := NewAccountRepo(db)
	avatars := NewAvatarRepo(db)

	id, err := accounts.Create(ctx, "wren", "password123", []byte(`{"name":"Wren"}`))
	require.NoError(t, err)

	done := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	err = avatars.Save(ctx, id, []byte(`{"name":"Wren","level":2}`),
		[]string{"movement", "inventory"},
		map[string]time.Time{"village.first_steps": done})
	require.NoError(t, err)

	payload, tutorials, finished, err := avatars.Load(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Wren","level":2}`, string(payload))
	assert.ElementsMatch(t, []string{"movement", "inventory"}, tutorials)
	require.Contains(t, finished, "village.first_steps")
	assert.True(t, finished["village.first_steps"].Equal(done))
}

func TestAvatarRepoJournalsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	accounts := NewAccountRepo(db)
	avatars := NewAvatarRepo(db)

	id, err := accounts.Create(ctx, "wren", "password123", []byte(`{}`))
	require.NoError(t, err)

	done := map[string]time.Time{"village.first_steps": time.Now().UTC()}
	for i := 0; i < 2; i++ {
		require.NoError(t, avatars.Save(ctx, id, []byte(`{}`), []string{"movement"}, done))
	}

	_, tutorials, finished, err := avatars.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, tutorials, 1)
	assert.Len(t, finished, 1)
}

func TestAvatarRepoResetTutorials(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	accounts := NewAccountRepo(db)
	avatars := NewAvatarRepo(db)

	id, err := accounts.Create(ctx, "wren", "password123", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, avatars.Save(ctx, id, []byte(`{}`), []string{"movement"}, nil))
	require.NoError(t, avatars.ResetTutorials(ctx, id))

	_, tutorials, _, err := avatars.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, tutorials)
}
