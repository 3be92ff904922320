package persist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/server/internal/world"
)

func TestStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	rec := &world.AvatarRecord{
		Name:     "Wren",
		Level:    1,
		Location: "village.square",
		Capacity: 10,
		Inventory: []world.ItemRecord{
			{Proto: "village.herb", Count: 2},
			{Proto: "village.iron_sword"},
		},
		Skills:      map[string]int{"village.herbalism": 2},
		TutorialsOn: true,
	}
	id, err := store.CreateAccount(ctx, "wren", "password123", rec)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	loaded, tutorials, finished, err := store.LoadAvatar(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
	assert.Empty(t, tutorials)
	assert.Empty(t, finished)

	rec.Level = 3
	rec.Inventory = rec.Inventory[:1]
	done := time.Date(2026, 8, 2, 18, 0, 0, 0, time.UTC)
	err = store.SaveAvatar(ctx, id, rec, []string{"movement"}, map[string]time.Time{"village.first_steps": done})
	require.NoError(t, err)

	loaded, tutorials, finished, err = store.LoadAvatar(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Level)
	assert.Len(t, loaded.Inventory, 1)
	assert.Equal(t, []string{"movement"}, tutorials)
	assert.True(t, finished["village.first_steps"].Equal(done))
}

func TestStoreLoadAvatarMissing(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)

	_, _, _, err := store.LoadAvatar(context.Background(), 7)
	assert.ErrorContains(t, err, "no avatar for account 7")
}
