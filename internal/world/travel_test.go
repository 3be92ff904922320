package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/server/internal/script"
)

func TestTravelBetweenTwinnedLocations(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")

	square := moduleEntity(t, w, "village", "square")
	gate := moduleEntity(t, w, "village", "gate")
	north := square.LocationFields().ExitIn(DirNorth)
	require.NotNil(t, north)

	require.True(t, w.Travel(av, north))
	assert.Same(t, gate, av.Location())
	assert.Equal(t, script.AbsoluteRef("village", "gate"), av.Avatar().LocationRef)
	assert.NotContains(t, square.LocationFields().Contents, av)
	assert.Contains(t, gate.LocationFields().Contents, av)

	// Back through the reciprocal exit.
	south := gate.LocationFields().ExitIn(DirSouth)
	require.NotNil(t, south)
	require.True(t, w.Travel(av, south))
	assert.Same(t, square, av.Location())
}

func TestTravelOneway(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")

	square := moduleEntity(t, w, "village", "square")
	cellar := moduleEntity(t, w, "village", "cellar")
	down := square.LocationFields().ExitIn(DirDown)
	require.NotNil(t, down)

	require.True(t, w.Travel(av, down))
	assert.Same(t, cellar, av.Location())
	assert.Nil(t, cellar.LocationFields().ExitIn(DirUp), "oneway exits have no way back")
}

func TestTravelVetoedByExitHandler(t *testing.T) {
	store := newFakeStore()
	files := map[string]string{
		"keep.ws": `
deflocation cell : builtins.location {
	name = "the cell"
	exits = [portal -> north to yard]

	allow exit_location(self, who, where, door) {
		return false
	}
}

deflocation yard : builtins.location {
	name = "the yard"
	exits = [portal -> south to cell]
}
`,
	}
	w := buildWorld(t, store, "keep\n", files)
	av, _ := enterTestAvatar(t, w, store, "Wren", "keep.cell")

	cell := moduleEntity(t, w, "keep", "cell")
	north := cell.LocationFields().ExitIn(DirNorth)
	require.NotNil(t, north)

	assert.False(t, w.Travel(av, north))
	assert.Same(t, cell, av.Location())
	assert.Equal(t, script.AbsoluteRef("keep", "cell"), av.Avatar().LocationRef)
}

func TestTravelCancelsPendingOffer(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")

	q := NewQuest(script.AbsoluteRef("village", "errand"))
	require.NoError(t, q.SetMember("name", script.String("Errand")))
	w.RegisterQuest(q)
	require.True(t, w.OfferQuest(av, q))
	require.NotNil(t, av.Avatar().Offer)

	square := moduleEntity(t, w, "village", "square")
	require.True(t, w.Travel(av, square.LocationFields().ExitIn(DirNorth)))
	assert.Nil(t, av.Avatar().Offer, "leaving declines a pending offer")
}

func TestTakeAndDrop(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	square := moduleEntity(t, w, "village", "square")
	herb := moduleEntity(t, w, "village", "herb").Clone()
	square.LocationFields().AddContent(square, herb)

	require.True(t, w.Take(av, herb))
	assert.GreaterOrEqual(t, a.FindInventory(herb), 0)
	assert.NotContains(t, square.LocationFields().Contents, herb)

	// Taking again fails: the item is no longer in the location.
	assert.False(t, w.Take(av, herb))

	require.True(t, w.Drop(av, herb))
	assert.Equal(t, -1, a.FindInventory(herb))
	assert.Contains(t, square.LocationFields().Contents, herb)
}

func TestTakeFailsWhenFull(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()
	a.Capacity = 0

	square := moduleEntity(t, w, "village", "square")
	sword := moduleEntity(t, w, "village", "iron_sword").Clone()
	square.LocationFields().AddContent(square, sword)

	assert.False(t, w.Take(av, sword))
	assert.Contains(t, square.LocationFields().Contents, sword,
		"a failed take leaves the item in place")

	var texts []string
	for _, u := range a.Updates {
		if u.Type == "showError" {
			texts = append(texts, u.Text)
		}
	}
	assert.Contains(t, texts, "You can't carry any more.")
}

func TestEquipSwapsSlot(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	iron := moduleEntity(t, w, "village", "iron_sword").Clone()
	steel := moduleEntity(t, w, "village", "steel_sword").Clone()
	require.True(t, a.AddItem(av, iron))
	require.True(t, a.AddItem(av, steel))

	require.True(t, w.EquipItem(av, iron))
	assert.Same(t, iron, a.Equipped["main_hand"])
	assert.Equal(t, -1, a.FindInventory(iron))

	// Equipping the other sword returns the first to the inventory.
	require.True(t, w.EquipItem(av, steel))
	assert.Same(t, steel, a.Equipped["main_hand"])
	assert.GreaterOrEqual(t, a.FindInventory(iron), 0)

	require.True(t, w.UnequipItem(av, steel))
	assert.NotContains(t, a.Equipped, "main_hand")
	assert.GreaterOrEqual(t, a.FindInventory(steel), 0)
}

func TestEquipRejectsPlainItems(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	herb := moduleEntity(t, w, "village", "herb").Clone()
	require.True(t, a.AddItem(av, herb))
	assert.False(t, w.EquipItem(av, herb))
}

func TestGiveToCreature(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	square := moduleEntity(t, w, "village", "square")
	mule := NewEntity(KindCreature)
	mule.Thing().Name = "mule"
	square.LocationFields().AddContent(square, mule)

	herb := moduleEntity(t, w, "village", "herb").Clone()
	require.True(t, a.AddItem(av, herb))

	require.True(t, w.Give(av, herb, mule))
	assert.Equal(t, -1, a.FindInventory(herb))
	assert.Same(t, mule, herb.Container())
}
