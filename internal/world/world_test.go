package world

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

// fakeStore keeps avatar records in memory.
type fakeStore struct {
	records   map[int64]*AvatarRecord
	tutorials map[int64][]string
	finished  map[int64]map[string]time.Time
	saves     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:   make(map[int64]*AvatarRecord),
		tutorials: make(map[int64][]string),
		finished:  make(map[int64]map[string]time.Time),
	}
}

func (s *fakeStore) CreateAccount(ctx context.Context, username, password string, avatar *AvatarRecord) (int64, error) {
	id := int64(len(s.records) + 1)
	s.records[id] = avatar
	return id, nil
}

func (s *fakeStore) Authenticate(ctx context.Context, username, password string) (int64, error) {
	return 0, nil
}

func (s *fakeStore) LoadAvatar(ctx context.Context, accountID int64) (*AvatarRecord, []string, map[string]time.Time, error) {
	rec, ok := s.records[accountID]
	if !ok {
		return nil, nil, nil, fmt.Errorf("no avatar for account %d", accountID)
	}
	return rec, s.tutorials[accountID], s.finished[accountID], nil
}

func (s *fakeStore) SaveAvatar(ctx context.Context, accountID int64, rec *AvatarRecord, newTutorials []string, newFinished map[string]time.Time) error {
	s.records[accountID] = rec
	s.tutorials[accountID] = append(s.tutorials[accountID], newTutorials...)
	for q, at := range newFinished {
		if s.finished[accountID] == nil {
			s.finished[accountID] = make(map[string]time.Time)
		}
		s.finished[accountID][q] = at
	}
	s.saves++
	return nil
}

func (s *fakeStore) ResetTutorials(ctx context.Context, accountID int64) error {
	s.tutorials[accountID] = nil
	return nil
}

// fakeSession records frames instead of writing to a socket.
type fakeSession struct {
	frames [][]byte
	closed bool
}

func (s *fakeSession) Send(frame []byte) { s.frames = append(s.frames, frame) }
func (s *fakeSession) Close()            { s.closed = true }

// buildWorld writes a MODULES manifest and script sources into a temp dir
// and loads them.
func buildWorld(t *testing.T, store Store, manifest string, files map[string]string) *World {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MODULES"), []byte(manifest), 0o644))
	for name, src := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	w := New(zap.NewNop(), store)
	require.NoError(t, w.LoadWorld(dir))
	return w
}

const villageSrc = `
deflocation square : builtins.location {
	name = "the square"
	exits = [portal -> north to gate, portal -> down oneway to cellar]
}

deflocation gate : builtins.location {
	name = "the gate"
	exits = [portal -> south to square]
}

deflocation cellar : builtins.location {
	name = "the cellar"
}

def herb : builtins.item {
	name = "herb"
	stack_limit = 5
}

def iron_sword : builtins.weapon {
	name = "iron sword"
}

def steel_sword : builtins.weapon {
	name = "steel sword"
}
`

func villageWorld(t *testing.T, store Store) *World {
	t.Helper()
	return buildWorld(t, store, "village\n", map[string]string{"village.ws": villageSrc})
}

func moduleEntity(t *testing.T, w *World, module, name string) *Entity {
	t.Helper()
	v, ok := w.Module(module).Lookup(name)
	require.True(t, ok, "no binding %s.%s", module, name)
	e, ok := v.(*Entity)
	require.True(t, ok)
	return e
}

func enterTestAvatar(t *testing.T, w *World, store *fakeStore, name, loc string) (*Entity, *fakeSession) {
	t.Helper()
	id, err := store.CreateAccount(context.Background(), name, "password123", w.NewAvatarRecord(name))
	require.NoError(t, err)
	if loc != "" {
		store.records[id].Location = loc
	}
	sess := &fakeSession{}
	av, err := w.EnterWorld(context.Background(), id, sess)
	require.NoError(t, err)
	return av, sess
}

func TestEnterWorldPlacesAvatar(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")

	square := moduleEntity(t, w, "village", "square")
	assert.Same(t, square, av.Location())
	assert.Equal(t, script.AbsoluteRef("village", "square"), av.Avatar().LocationRef)
	assert.Same(t, av, w.Resident(1))
}

func TestEnterWorldReconnectReusesAvatar(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, first := enterTestAvatar(t, w, store, "Wren", "")

	second := &fakeSession{}
	again, err := w.EnterWorld(context.Background(), 1, second)
	require.NoError(t, err)
	assert.Same(t, av, again)
	assert.True(t, first.closed, "stale session should be closed")
	assert.Equal(t, Session(second), av.Avatar().Session)
}

func TestDisconnectKeepsResident(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")

	w.Disconnect(context.Background(), 1)
	assert.Nil(t, av.Avatar().Session)
	assert.Same(t, av, w.Resident(1), "disconnect keeps the avatar resident")
	assert.Equal(t, 1, store.saves)
}

func TestRemoveResident(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, sess := enterTestAvatar(t, w, store, "Wren", "")
	square := moduleEntity(t, w, "village", "square")

	w.RemoveResident(context.Background(), 1)
	assert.Nil(t, w.Resident(1))
	assert.True(t, sess.closed)
	assert.NotContains(t, square.LocationFields().Contents, av)
}

func TestFlushUpdatesSendsOneFrame(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	_, sess := enterTestAvatar(t, w, store, "Wren", "")

	assert.Equal(t, 1, w.FlushUpdates())
	require.Len(t, sess.frames, 1)

	var frame struct {
		Updates []ClientUpdate `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(sess.frames[0], &frame))
	assert.NotEmpty(t, frame.Updates)
	assert.Equal(t, "setName", frame.Updates[0].Type)

	// Nothing pending on the second pass.
	assert.Equal(t, 0, w.FlushUpdates())
}

func TestNewAvatarRecordClonesTemplate(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	w.SetAvatarTemplate(&AvatarRecord{
		Level:       1,
		Capacity:    10,
		TutorialsOn: true,
		Inventory:   []ItemRecord{{Proto: "village.herb", Count: 2}},
		Skills:      map[string]int{"village.herbalism": 1},
	})

	rec := w.NewAvatarRecord("Wren")
	assert.Equal(t, "Wren", rec.Name)
	assert.Equal(t, "village.square", rec.Location)
	require.Len(t, rec.Inventory, 1)

	rec.Inventory[0].Count = 99
	rec.Skills["village.herbalism"] = 9
	other := w.NewAvatarRecord("Moss")
	assert.Equal(t, 2, other.Inventory[0].Count, "template must not alias per-account records")
	assert.Equal(t, 1, other.Skills["village.herbalism"])
}

func TestSaveResidentDrainsJournals(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	a.MarkTutorialSeen("village.square")
	done := script.AbsoluteRef("village", "first_steps")
	a.CompleteQuest(done, w.Now())

	require.NoError(t, w.SaveResident(context.Background(), 1))
	assert.Equal(t, []string{"village.square"}, store.tutorials[1])
	assert.Contains(t, store.finished[1], "village.first_steps")
	assert.Empty(t, a.NewTutorials)
	assert.Empty(t, a.NewCompletions)
}

func TestResetTutorials(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	w.ShowTutorialTo(av, "intro", "Welcome.")
	assert.Len(t, a.TutorialsSeen, 1)

	require.NoError(t, w.ResetTutorials(context.Background(), av))
	assert.Empty(t, a.TutorialsSeen)

	// The same tutorial plays again after a reset.
	a.Updates = nil
	w.ShowTutorialTo(av, "intro", "Welcome.")
	require.Len(t, a.Updates, 1)
	assert.Equal(t, "showTutorial", a.Updates[0].Type)
}

func TestScheduleRunsOnTick(t *testing.T) {
	store := newFakeStore()
	w := villageWorld(t, store)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	w.SetClock(func() time.Time { return now })

	fired := false
	w.Schedule(2, func() { fired = true })

	assert.Equal(t, 0, w.RunScheduled())
	now = base.Add(3 * time.Second)
	assert.Equal(t, 1, w.RunScheduled())
	assert.True(t, fired)
}
