package world

import (
	"fmt"
	"sync/atomic"

	"github.com/emberwake/server/internal/script"
)

// entityIDCounter assigns process-unique entity IDs, starting above zero so
// an ID of 0 always means "absent".
var entityIDCounter atomic.Int64

// NextEntityID returns a fresh entity ID.
func NextEntityID() int64 {
	return entityIDCounter.Add(1)
}

type EntityKind int

const (
	KindThing EntityKind = iota
	KindItem
	KindEquipment
	KindWeapon
	KindPortal
	KindLocation
	KindCreature
	KindAvatar
	KindResourceNode
	KindFixture
)

func (k EntityKind) String() string {
	switch k {
	case KindThing:
		return "thing"
	case KindItem:
		return "item"
	case KindEquipment:
		return "equipment"
	case KindWeapon:
		return "weapon"
	case KindPortal:
		return "portal"
	case KindLocation:
		return "location"
	case KindCreature:
		return "creature"
	case KindAvatar:
		return "avatar"
	case KindResourceNode:
		return "resourceNode"
	case KindFixture:
		return "fixture"
	}
	return "?"
}

// EventKey identifies a handler table entry.
type EventKey struct {
	Phase script.EventPhase
	Event string
}

// Entity is a node in the prototype-based object graph. Subkinds are
// capability records on the one struct rather than an inheritance tree; the
// prototype chain models content-defined variation only.
type Entity struct {
	id       int64
	ref      script.Ref // zero unless defined at a module top level
	kind     EntityKind
	proto    *Entity
	members  map[string]script.Value
	handlers map[EventKey][]*script.ScriptFunction

	// container is the non-owning back-link to whatever holds this entity:
	// a location for things in the world, an avatar for carried items.
	container *Entity

	thing    *ThingFields
	item     *ItemFields
	equip    *EquipmentFields
	weapon   *WeaponFields
	portal   *PortalFields
	loc      *LocationFields
	creature *CreatureFields
	node     *ResourceFields
	avatar   *AvatarFields
}

// NewEntity creates a root entity of the given kind with fresh capability
// records. Content entities are normally created by cloning these roots.
func NewEntity(kind EntityKind) *Entity {
	e := &Entity{id: NextEntityID(), kind: kind}
	if kind != KindFixture {
		e.thing = &ThingFields{Article: "a"}
	}
	switch kind {
	case KindFixture:
		e.thing = &ThingFields{Article: "a"}
	case KindItem:
		e.item = &ItemFields{Count: 1, StackLimit: 1}
	case KindEquipment:
		e.item = &ItemFields{Count: 1, StackLimit: 1}
		e.equip = &EquipmentFields{}
	case KindWeapon:
		e.item = &ItemFields{Count: 1, StackLimit: 1}
		e.equip = &EquipmentFields{Slot: "main_hand"}
		e.weapon = &WeaponFields{}
	case KindPortal:
		e.portal = &PortalFields{}
	case KindLocation:
		e.loc = &LocationFields{}
	case KindCreature:
		e.creature = &CreatureFields{Level: 1}
	case KindAvatar:
		e.creature = &CreatureFields{Level: 1}
		e.avatar = NewAvatarFields()
	case KindResourceNode:
		e.node = &ResourceFields{}
	}
	return e
}

func (e *Entity) ID() int64            { return e.id }
func (e *Entity) Ref() script.Ref      { return e.ref }
func (e *Entity) EntityKind() EntityKind { return e.kind }
func (e *Entity) Prototype() *Entity   { return e.proto }
func (e *Entity) Container() *Entity   { return e.container }

// SetRef binds a module-level identity; used only by the world loader.
func (e *Entity) SetRef(ref script.Ref) { e.ref = ref }

func (e *Entity) SetContainer(c *Entity) { e.container = c }

// Location walks the container chain to the enclosing location.
func (e *Entity) Location() *Entity {
	for c := e; c != nil; c = c.container {
		if c.kind == KindLocation {
			return c
		}
	}
	return nil
}

// Kind implements script.Value.
func (e *Entity) Kind() script.Kind { return script.KindObject }

// Delegate implements script.Object: the prototype is the delegate.
func (e *Entity) Delegate() script.Object {
	if e.proto == nil {
		return nil
	}
	return e.proto
}

// Isa reports whether ref names this entity or any prototype above it.
func (e *Entity) Isa(ref script.Ref) bool {
	for n := e; n != nil; n = n.proto {
		if n.ref == ref {
			return true
		}
	}
	return false
}

// GetMember resolves a name against the typed accessors, then the dynamic
// members map, then the prototype chain.
func (e *Entity) GetMember(name string) (script.Value, bool) {
	if acc, ok := accessorsFor(e.kind)[name]; ok {
		return acc.get(e), true
	}
	if v, ok := e.members[name]; ok {
		return v, true
	}
	if e.proto != nil {
		return e.proto.GetMember(name)
	}
	return nil, false
}

// SetMember writes through a typed accessor when one exists (validating the
// value's type) and otherwise stores into the dynamic members map.
func (e *Entity) SetMember(name string, v script.Value) error {
	if acc, ok := accessorsFor(e.kind)[name]; ok {
		if acc.set == nil {
			return fmt.Errorf("%w: %s", script.ErrReadOnlyMember, name)
		}
		return acc.set(e, v)
	}
	if e.members == nil {
		e.members = make(map[string]script.Value)
	}
	e.members[name] = v
	return nil
}

// BriefName implements script.Named for prose interpolation.
func (e *Entity) BriefName() (article, noun string) {
	if e.thing != nil {
		name := e.thing.Name
		if name == "" && e.proto != nil {
			return e.proto.BriefName()
		}
		return e.thing.Article, name
	}
	if e.ref.Name != "" {
		return "", e.ref.Name
	}
	return "a", e.kind.String()
}

// Name returns the plain noun phrase.
func (e *Entity) Name() string {
	_, noun := e.BriefName()
	return noun
}

// Clone creates a new entity below self in the prototype chain: the clone's
// prototype is self when self has a module-level ref, otherwise self's own
// prototype. Typed fields copy by value; members and handlers are inherited
// by delegation, not copied.
func (e *Entity) Clone() *Entity {
	c := &Entity{
		id:   NextEntityID(),
		kind: e.kind,
	}
	if !e.ref.IsZero() {
		c.proto = e
	} else {
		c.proto = e.proto
	}
	c.copyFields(e)
	return c
}

func (e *Entity) copyFields(from *Entity) {
	if from.thing != nil {
		f := *from.thing
		e.thing = &f
	}
	if from.item != nil {
		f := *from.item
		e.item = &f
	}
	if from.equip != nil {
		f := *from.equip
		e.equip = &f
	}
	if from.weapon != nil {
		f := *from.weapon
		e.weapon = &f
	}
	if from.portal != nil {
		f := *from.portal
		f.Twin = nil // twins are per-instance links resolved at world load
		e.portal = &f
	}
	if from.loc != nil {
		e.loc = &LocationFields{
			Domain:   from.loc.Domain,
			Tutorial: from.loc.Tutorial,
		}
	}
	if from.creature != nil {
		f := *from.creature
		e.creature = &f
	}
	if from.node != nil {
		f := *from.node
		e.node = &f
	}
	if from.avatar != nil {
		e.avatar = NewAvatarFields()
	}
}

// AddHandler registers a compiled handler; handlers run in insertion order.
func (e *Entity) AddHandler(phase script.EventPhase, event string, fn *script.ScriptFunction) {
	if e.handlers == nil {
		e.handlers = make(map[EventKey][]*script.ScriptFunction)
	}
	key := EventKey{Phase: phase, Event: event}
	e.handlers[key] = append(e.handlers[key], fn)
}

// HandlersFor returns the handlers registered directly on this entity.
func (e *Entity) HandlersFor(phase script.EventPhase, event string) []*script.ScriptFunction {
	return e.handlers[EventKey{Phase: phase, Event: event}]
}

// Accessor records for the remaining subkinds.

func (e *Entity) Thing() *ThingFields         { return e.thing }
func (e *Entity) Item() *ItemFields           { return e.item }
func (e *Entity) Equipment() *EquipmentFields { return e.equip }
func (e *Entity) Weapon() *WeaponFields       { return e.weapon }
func (e *Entity) Portal() *PortalFields       { return e.portal }
func (e *Entity) LocationFields() *LocationFields { return e.loc }
func (e *Entity) Creature() *CreatureFields   { return e.creature }
func (e *Entity) Resource() *ResourceFields   { return e.node }
func (e *Entity) Avatar() *AvatarFields       { return e.avatar }
