package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/server/internal/script"
)

func TestNewEntitySeedsCapabilities(t *testing.T) {
	sword := NewEntity(KindWeapon)
	require.NotNil(t, sword.Item())
	require.NotNil(t, sword.Equipment())
	require.NotNil(t, sword.Weapon())
	assert.Equal(t, "main_hand", sword.Equipment().Slot)
	assert.Equal(t, 1, sword.Item().Count)

	loc := NewEntity(KindLocation)
	require.NotNil(t, loc.LocationFields())
	assert.Nil(t, loc.Item())

	av := NewEntity(KindAvatar)
	require.NotNil(t, av.Avatar())
	require.NotNil(t, av.Creature())
	assert.Equal(t, 1, av.Creature().Level)
}

func TestClonePrototypeChain(t *testing.T) {
	root := NewEntity(KindItem)
	root.SetRef(script.AbsoluteRef("village", "herb"))

	c := root.Clone()
	assert.Same(t, root, c.Prototype(), "clone of a named entity delegates to it")

	// A clone has no ref of its own, so cloning it again shares the same
	// prototype instead of deepening the chain.
	cc := c.Clone()
	assert.Same(t, root, cc.Prototype())
}

func TestCloneCopiesTypedFields(t *testing.T) {
	root := NewEntity(KindItem)
	root.SetRef(script.AbsoluteRef("village", "herb"))
	root.Item().StackLimit = 5

	c := root.Clone()
	c.Item().Count = 3
	assert.Equal(t, 1, root.Item().Count)
	assert.Equal(t, 5, c.Item().StackLimit)
	assert.NotEqual(t, root.ID(), c.ID())
}

func TestClonePortalDropsTwin(t *testing.T) {
	p := NewEntity(KindPortal)
	p.SetRef(script.AbsoluteRef("village", "door"))
	p.Portal().Twin = NewEntity(KindPortal)

	c := p.Clone()
	assert.Nil(t, c.Portal().Twin)
}

func TestCloneLocationIsEmpty(t *testing.T) {
	loc := NewEntity(KindLocation)
	loc.SetRef(script.AbsoluteRef("village", "square"))
	loc.LocationFields().AddContent(loc, NewEntity(KindItem))
	loc.LocationFields().AddContent(loc, NewEntity(KindPortal))
	loc.LocationFields().Domain = "village"

	c := loc.Clone()
	assert.Empty(t, c.LocationFields().Contents)
	assert.Empty(t, c.LocationFields().Exits)
	assert.Equal(t, "village", c.LocationFields().Domain)
}

func TestIsaWalksPrototypes(t *testing.T) {
	root := NewEntity(KindItem)
	root.SetRef(script.AbsoluteRef("village", "herb"))
	c := root.Clone()

	assert.True(t, c.Isa(script.AbsoluteRef("village", "herb")))
	assert.False(t, c.Isa(script.AbsoluteRef("village", "mushroom")))
	assert.True(t, root.Isa(script.AbsoluteRef("village", "herb")))
}

func TestMemberAccessors(t *testing.T) {
	e := NewEntity(KindItem)
	require.NoError(t, e.SetMember("name", script.String("herb")))
	v, ok := e.GetMember("name")
	require.True(t, ok)
	assert.Equal(t, script.String("herb"), v)

	// Typed accessors validate their value kinds.
	assert.Error(t, e.SetMember("name", script.Number(7)))

	// count has no setter.
	err := e.SetMember("count", script.Number(2))
	assert.ErrorIs(t, err, script.ErrReadOnlyMember)

	// Unknown names fall into the dynamic member map.
	require.NoError(t, e.SetMember("glow", script.Bool(true)))
	v, ok = e.GetMember("glow")
	require.True(t, ok)
	assert.Equal(t, script.Bool(true), v)
}

func TestMembersDelegateToPrototype(t *testing.T) {
	root := NewEntity(KindItem)
	root.SetRef(script.AbsoluteRef("village", "herb"))
	require.NoError(t, root.SetMember("potency", script.Number(2)))

	c := root.Clone()
	v, ok := c.GetMember("potency")
	require.True(t, ok)
	assert.Equal(t, script.Number(2), v)

	// Writes land on the clone without touching the prototype.
	require.NoError(t, c.SetMember("potency", script.Number(5)))
	v, _ = root.GetMember("potency")
	assert.Equal(t, script.Number(2), v)
}

func TestBriefNameFallsBackToPrototype(t *testing.T) {
	root := NewEntity(KindItem)
	root.SetRef(script.AbsoluteRef("village", "herb"))
	root.Thing().Name = "sprig of herb"

	c := root.Clone()
	c.Thing().Name = ""
	article, noun := c.BriefName()
	assert.Equal(t, "a", article)
	assert.Equal(t, "sprig of herb", noun)
}

func TestLocationWalksContainers(t *testing.T) {
	loc := NewEntity(KindLocation)
	av := NewEntity(KindAvatar)
	item := NewEntity(KindItem)

	loc.LocationFields().AddContent(loc, av)
	av.Avatar().AddItem(av, item)

	assert.Same(t, loc, item.Location())
	assert.Same(t, loc, av.Location())
	assert.Same(t, loc, loc.Location())
}

func TestLocationContents(t *testing.T) {
	loc := NewEntity(KindLocation)
	item := NewEntity(KindItem)
	door := NewEntity(KindPortal)

	loc.LocationFields().AddContent(loc, item)
	loc.LocationFields().AddContent(loc, door)
	assert.Len(t, loc.LocationFields().Contents, 1)
	assert.Len(t, loc.LocationFields().Exits, 1)

	assert.True(t, loc.LocationFields().RemoveContent(item))
	assert.False(t, loc.LocationFields().RemoveContent(item))
	assert.Nil(t, item.Container())
}
