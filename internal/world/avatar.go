package world

import (
	"time"

	"github.com/emberwake/server/internal/script"
)

// Session is the transport binding for a connected avatar. Implementations
// live outside the core; the core only pushes frames and asks for closure.
type Session interface {
	// Send delivers one serialized update batch. Implementations must not
	// block the tick loop.
	Send(frame []byte)
	Close()
}

// Offer is a pending proposal requiring the player's accept or decline.
// An avatar holds at most one.
type Offer interface {
	OfferText() string
	Accept(w *World, av *Entity)
	Decline(w *World, av *Entity)
}

// Activity is a multi-tick action in progress, such as gathering. An avatar
// holds at most one; starting a new one cancels the old.
type Activity interface {
	ActivityName() string
	Cancel(w *World, av *Entity)
}

// AvatarFields is the per-player state carried by an avatar entity. Session
// binding, the update buffer, and the tutorial/completion journals are
// runtime-only; everything else round-trips through the store.
type AvatarFields struct {
	AccountID int64

	Capacity  int
	Inventory []*Entity
	Equipped  map[string]*Entity

	ActiveQuests    map[script.Ref]*QuestState
	CompletedQuests map[script.Ref]time.Time
	Skills          map[script.Ref]int

	TutorialsOn   bool
	TutorialsSeen map[string]struct{}

	// Journals of changes since the last save; drained by saveAvatar.
	NewTutorials   []string
	NewCompletions map[script.Ref]time.Time

	Offer    Offer
	Activity Activity

	Session Session
	Updates []ClientUpdate

	// LocationRef is where the avatar re-enters the world, kept current as
	// the avatar moves.
	LocationRef script.Ref
}

const defaultCapacity = 16

func NewAvatarFields() *AvatarFields {
	return &AvatarFields{
		Capacity:        defaultCapacity,
		Equipped:        make(map[string]*Entity),
		ActiveQuests:    make(map[script.Ref]*QuestState),
		CompletedQuests: make(map[script.Ref]time.Time),
		Skills:          make(map[script.Ref]int),
		TutorialsOn:     true,
		TutorialsSeen:   make(map[string]struct{}),
		NewCompletions:  make(map[script.Ref]time.Time),
	}
}

// Enqueue appends an update to the pending buffer. Disconnected avatars
// accumulate nothing.
func (a *AvatarFields) Enqueue(u ClientUpdate) {
	if a.Session == nil {
		return
	}
	a.Updates = append(a.Updates, u)
}

// DrainUpdates returns and clears the pending buffer.
func (a *AvatarFields) DrainUpdates() []ClientUpdate {
	out := a.Updates
	a.Updates = nil
	return out
}

// FindInventory locates a carried item by entity identity.
func (a *AvatarFields) FindInventory(e *Entity) int {
	for i, it := range a.Inventory {
		if it == e {
			return i
		}
	}
	return -1
}

// AddItem places an item in the inventory, merging into an existing stack
// of the same prototype when the stack limit allows. Returns false when the
// inventory is full and nothing could be merged.
func (a *AvatarFields) AddItem(owner, item *Entity) bool {
	if item.item != nil && item.item.StackLimit > 1 {
		for _, held := range a.Inventory {
			if held.proto != item.proto || held.item == nil {
				continue
			}
			room := held.item.StackLimit - held.item.Count
			if room >= item.item.Count {
				held.item.Count += item.item.Count
				item.container = nil
				return true
			}
		}
	}
	if len(a.Inventory) >= a.Capacity {
		return false
	}
	a.Inventory = append(a.Inventory, item)
	item.container = owner
	return true
}

// RemoveItem detaches a carried item.
func (a *AvatarFields) RemoveItem(item *Entity) bool {
	i := a.FindInventory(item)
	if i < 0 {
		return false
	}
	a.Inventory = append(a.Inventory[:i], a.Inventory[i+1:]...)
	item.container = nil
	return true
}

// MarkTutorialSeen records a tutorial key, journaling it when new.
func (a *AvatarFields) MarkTutorialSeen(key string) bool {
	if _, ok := a.TutorialsSeen[key]; ok {
		return false
	}
	a.TutorialsSeen[key] = struct{}{}
	a.NewTutorials = append(a.NewTutorials, key)
	return true
}

// CompleteQuest moves a quest from active to completed and journals it.
func (a *AvatarFields) CompleteQuest(ref script.Ref, at time.Time) {
	delete(a.ActiveQuests, ref)
	a.CompletedQuests[ref] = at
	a.NewCompletions[ref] = at
}

// Persistence records. The JSON forms are the store payload contract.

type ItemRecord struct {
	Proto string `json:"proto"`
	Count int    `json:"count,omitempty"`
}

type QuestStateRecord struct {
	Phase    string `json:"phase"`
	Progress int    `json:"progress,omitempty"`
}

// AvatarRecord is the JSON-encoded persisted portion of an avatar. The
// tutorials and finished-quests journals are stored in side tables, not
// in this payload.
type AvatarRecord struct {
	Name         string                      `json:"name"`
	Icon         string                      `json:"icon,omitempty"`
	Level        int                         `json:"level"`
	Race         string                      `json:"race,omitempty"`
	Location     string                      `json:"location"`
	Capacity     int                         `json:"capacity,omitempty"`
	Inventory    []ItemRecord                `json:"inventory,omitempty"`
	Equipped     map[string]ItemRecord       `json:"equipped,omitempty"`
	ActiveQuests map[string]QuestStateRecord `json:"active_quests,omitempty"`
	Skills       map[string]int              `json:"skills,omitempty"`
	TutorialsOn  bool                        `json:"tutorials_on"`
}

// ToRecord extracts the persisted fields of an avatar entity.
func ToRecord(av *Entity) *AvatarRecord {
	a := av.avatar
	rec := &AvatarRecord{
		Level:       1,
		Capacity:    a.Capacity,
		Location:    a.LocationRef.String(),
		TutorialsOn: a.TutorialsOn,
	}
	if av.thing != nil {
		rec.Name = av.thing.Name
		rec.Icon = av.thing.Icon
	}
	if av.creature != nil {
		rec.Level = av.creature.Level
		if !av.creature.Race.IsZero() {
			rec.Race = av.creature.Race.String()
		}
	}
	for _, it := range a.Inventory {
		rec.Inventory = append(rec.Inventory, itemRecordOf(it))
	}
	if len(a.Equipped) > 0 {
		rec.Equipped = make(map[string]ItemRecord, len(a.Equipped))
		for slot, it := range a.Equipped {
			rec.Equipped[slot] = itemRecordOf(it)
		}
	}
	if len(a.ActiveQuests) > 0 {
		rec.ActiveQuests = make(map[string]QuestStateRecord, len(a.ActiveQuests))
		for ref, st := range a.ActiveQuests {
			rec.ActiveQuests[ref.String()] = QuestStateRecord{Phase: st.Phase, Progress: st.Progress}
		}
	}
	if len(a.Skills) > 0 {
		rec.Skills = make(map[string]int, len(a.Skills))
		for ref, rank := range a.Skills {
			rec.Skills[ref.String()] = rank
		}
	}
	return rec
}

func itemRecordOf(it *Entity) ItemRecord {
	rec := ItemRecord{}
	if it.proto != nil && !it.proto.ref.IsZero() {
		rec.Proto = it.proto.ref.String()
	} else if !it.ref.IsZero() {
		rec.Proto = it.ref.String()
	}
	if it.item != nil && it.item.Count > 1 {
		rec.Count = it.item.Count
	}
	return rec
}
