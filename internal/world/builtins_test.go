package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

func TestBuiltinsModuleBindsRoots(t *testing.T) {
	w := New(zap.NewNop(), newFakeStore())
	for _, name := range []string{"thing", "item", "weapon", "portal", "location", "creature", "avatar"} {
		v, ok := w.Builtins().Lookup(name)
		require.True(t, ok, "missing root %s", name)
		e, isEntity := v.(*Entity)
		require.True(t, isEntity)
		assert.Equal(t, script.AbsoluteRef("builtins", name), e.Ref())
	}
	_, ok := w.Builtins().Lookup("show")
	assert.True(t, ok, "natives bind alongside the roots")
}

func TestNativeLen(t *testing.T) {
	v, err := nativeLen([]script.Value{script.NewList(script.Number(1), script.Number(2))})
	require.NoError(t, err)
	assert.Equal(t, script.Number(2), v)

	v, err = nativeLen([]script.Value{script.String("herb")})
	require.NoError(t, err)
	assert.Equal(t, script.Number(4), v)

	_, err = nativeLen([]script.Value{script.Number(3)})
	assert.ErrorIs(t, err, script.ErrTypeMismatch)
}

func TestNativeRandomBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		v, err := nativeRandom([]script.Value{script.Range{Lo: 2, Hi: 4}})
		require.NoError(t, err)
		n := float64(v.(script.Number))
		assert.GreaterOrEqual(t, n, 2.0)
		assert.LessOrEqual(t, n, 4.0)
	}

	// An empty list yields nil rather than panicking.
	v, err := nativeRandom([]script.Value{script.NewList()})
	require.NoError(t, err)
	assert.Equal(t, script.Nil{}, v)

	v, err = nativeRandom([]script.Value{script.Number(0)})
	require.NoError(t, err)
	assert.Equal(t, script.Number(0), v)
}

func TestNativeSpawn(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	square := moduleEntity(t, w, "village", "square")
	herb := moduleEntity(t, w, "village", "herb")

	v, err := w.nativeSpawn([]script.Value{square, herb})
	require.NoError(t, err)
	spawned, ok := v.(*Entity)
	require.True(t, ok)
	assert.Same(t, herb, spawned.Prototype())
	assert.Contains(t, square.LocationFields().Contents, spawned)

	_, err = w.nativeSpawn([]script.Value{herb, herb})
	assert.ErrorIs(t, err, script.ErrTypeMismatch, "spawn target must be a location")
}

func TestNativeGiveItem(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	herb := moduleEntity(t, w, "village", "herb")

	v, err := w.nativeGiveItem([]script.Value{av, herb})
	require.NoError(t, err)
	assert.Equal(t, script.Bool(true), v)
	require.Len(t, av.Avatar().Inventory, 1)
	assert.Same(t, herb, av.Avatar().Inventory[0].Prototype())

	square := moduleEntity(t, w, "village", "square")
	_, err = w.nativeGiveItem([]script.Value{av, square})
	assert.ErrorIs(t, err, script.ErrTypeMismatch)
}

func TestNativeSayBroadcasts(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	speaker, _ := enterTestAvatar(t, w, store, "Wren", "")
	listener, _ := enterTestAvatar(t, w, store, "Moss", "")
	speaker.Avatar().Updates = nil
	listener.Avatar().Updates = nil

	_, err := w.nativeSay([]script.Value{speaker, script.String("Hello there.")})
	require.NoError(t, err)

	for _, a := range []*AvatarFields{speaker.Avatar(), listener.Avatar()} {
		require.Len(t, a.Updates, 1)
		assert.Equal(t, "showSay", a.Updates[0].Type)
		assert.Equal(t, "Wren", a.Updates[0].Speaker)
		assert.Equal(t, "Hello there.", a.Updates[0].Text)
	}
}

func TestNativeSleepSchedules(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	w.SetClock(func() time.Time { return now })

	v, err := w.nativeSleep([]script.Value{script.Number(2)})
	require.NoError(t, err)
	fut, ok := v.(*script.Future)
	require.True(t, ok)

	resumed := false
	fut.Run(func() { resumed = true })
	assert.False(t, resumed)

	now = base.Add(3 * time.Second)
	w.RunScheduled()
	assert.True(t, resumed)
}
