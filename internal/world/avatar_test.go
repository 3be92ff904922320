package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/server/internal/script"
)

func stackableProto(stackLimit int) *Entity {
	p := NewEntity(KindItem)
	p.SetRef(script.AbsoluteRef("village", "herb"))
	p.Item().StackLimit = stackLimit
	return p
}

func TestAddItemMergesStacks(t *testing.T) {
	proto := stackableProto(3)
	av := NewEntity(KindAvatar)
	a := av.Avatar()

	require.True(t, a.AddItem(av, proto.Clone()))
	require.True(t, a.AddItem(av, proto.Clone()))
	require.Len(t, a.Inventory, 1, "same-prototype items merge into one stack")
	assert.Equal(t, 2, a.Inventory[0].Item().Count)

	// A full stack forces a second slot.
	require.True(t, a.AddItem(av, proto.Clone()))
	require.True(t, a.AddItem(av, proto.Clone()))
	assert.Len(t, a.Inventory, 2)
}

func TestAddItemRespectsCapacity(t *testing.T) {
	av := NewEntity(KindAvatar)
	a := av.Avatar()
	a.Capacity = 1

	first := NewEntity(KindItem)
	second := NewEntity(KindItem)
	require.True(t, a.AddItem(av, first))
	assert.False(t, a.AddItem(av, second))
	assert.Same(t, av, first.Container())
	assert.Nil(t, second.Container())
}

func TestRemoveItem(t *testing.T) {
	av := NewEntity(KindAvatar)
	a := av.Avatar()
	item := NewEntity(KindItem)

	require.True(t, a.AddItem(av, item))
	assert.True(t, a.RemoveItem(item))
	assert.False(t, a.RemoveItem(item))
	assert.Empty(t, a.Inventory)
	assert.Nil(t, item.Container())
}

func TestEnqueueDropsWhenDisconnected(t *testing.T) {
	a := NewAvatarFields()
	a.Enqueue(ShowText("lost"))
	assert.Empty(t, a.Updates)

	a.Session = &fakeSession{}
	a.Enqueue(ShowText("kept"))
	assert.Len(t, a.Updates, 1)

	drained := a.DrainUpdates()
	assert.Len(t, drained, 1)
	assert.Empty(t, a.Updates)
}

func TestMarkTutorialSeenJournals(t *testing.T) {
	a := NewAvatarFields()
	assert.True(t, a.MarkTutorialSeen("intro"))
	assert.False(t, a.MarkTutorialSeen("intro"))
	assert.Equal(t, []string{"intro"}, a.NewTutorials)
}

func TestCompleteQuestJournals(t *testing.T) {
	a := NewAvatarFields()
	ref := script.AbsoluteRef("village", "first_steps")
	a.ActiveQuests[ref] = &QuestState{Phase: "done"}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.CompleteQuest(ref, at)
	assert.NotContains(t, a.ActiveQuests, ref)
	assert.Equal(t, at, a.CompletedQuests[ref])
	assert.Equal(t, at, a.NewCompletions[ref])
}

func TestAvatarRecordRoundTrip(t *testing.T) {
	w := villageWorld(t, newFakeStore())

	in := &AvatarRecord{
		Name:     "Wren",
		Icon:     "hood",
		Level:    3,
		Race:     "village.elf",
		Location: "village.square",
		Capacity: 12,
		Inventory: []ItemRecord{
			{Proto: "village.herb", Count: 2},
			{Proto: "village.iron_sword"},
		},
		Equipped: map[string]ItemRecord{
			"main_hand": {Proto: "village.steel_sword"},
		},
		ActiveQuests: map[string]QuestStateRecord{
			"village.first_steps": {Phase: "start", Progress: 1},
		},
		Skills:      map[string]int{"village.herbalism": 2},
		TutorialsOn: true,
	}

	av, err := w.avatarFromRecord(7, in, []string{"intro"}, nil)
	require.NoError(t, err)
	a := av.Avatar()
	assert.Equal(t, int64(7), a.AccountID)
	assert.Equal(t, "Wren", av.Thing().Name)
	assert.Equal(t, 3, av.Creature().Level)
	assert.Equal(t, 12, a.Capacity)
	require.Len(t, a.Inventory, 2)
	assert.Equal(t, 2, a.Inventory[0].Item().Count)
	assert.Contains(t, a.TutorialsSeen, "intro")

	out := ToRecord(av)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Icon, out.Icon)
	assert.Equal(t, in.Level, out.Level)
	assert.Equal(t, in.Race, out.Race)
	assert.Equal(t, in.Location, out.Location)
	assert.Equal(t, in.Capacity, out.Capacity)
	assert.Equal(t, in.Inventory, out.Inventory)
	assert.Equal(t, in.Equipped, out.Equipped)
	assert.Equal(t, in.ActiveQuests, out.ActiveQuests)
	assert.Equal(t, in.Skills, out.Skills)
	assert.True(t, out.TutorialsOn)
}

func TestAvatarRecordDropsUnknownItems(t *testing.T) {
	w := villageWorld(t, newFakeStore())
	in := &AvatarRecord{
		Name:     "Wren",
		Level:    1,
		Location: "village.square",
		Inventory: []ItemRecord{
			{Proto: "village.no_such_item"},
			{Proto: "village.herb"},
		},
		TutorialsOn: true,
	}
	av, err := w.avatarFromRecord(1, in, nil, nil)
	require.NoError(t, err)
	require.Len(t, av.Avatar().Inventory, 1)
	assert.Equal(t, "herb", av.Avatar().Inventory[0].Name())
}
