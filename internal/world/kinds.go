package world

import (
	"github.com/emberwake/server/internal/script"
)

// Direction is a compass or spatial exit direction.
type Direction int

const (
	DirNone Direction = iota
	DirNorth
	DirSouth
	DirEast
	DirWest
	DirNortheast
	DirNorthwest
	DirSoutheast
	DirSouthwest
	DirUp
	DirDown
	DirIn
	DirOut
)

var directionNames = map[Direction]string{
	DirNorth: "north", DirSouth: "south", DirEast: "east", DirWest: "west",
	DirNortheast: "northeast", DirNorthwest: "northwest",
	DirSoutheast: "southeast", DirSouthwest: "southwest",
	DirUp: "up", DirDown: "down", DirIn: "in", DirOut: "out",
}

var directionsByName = map[string]Direction{}

// Short forms accepted on the command line alongside full names.
var directionAliases = map[string]Direction{
	"n": DirNorth, "s": DirSouth, "e": DirEast, "w": DirWest,
	"ne": DirNortheast, "nw": DirNorthwest, "se": DirSoutheast, "sw": DirSouthwest,
	"u": DirUp, "d": DirDown,
}

func init() {
	for d, n := range directionNames {
		directionsByName[n] = d
	}
}

func (d Direction) String() string {
	if n, ok := directionNames[d]; ok {
		return n
	}
	return "nowhere"
}

// ParseDirection resolves a full direction name.
func ParseDirection(s string) (Direction, bool) {
	d, ok := directionsByName[s]
	return d, ok
}

// ParseDirectionWord resolves a direction name or its short alias.
func ParseDirectionWord(s string) (Direction, bool) {
	if d, ok := directionsByName[s]; ok {
		return d, true
	}
	d, ok := directionAliases[s]
	return d, ok
}

// Opposite returns the reverse direction, used when twinning portals.
func (d Direction) Opposite() Direction {
	switch d {
	case DirNorth:
		return DirSouth
	case DirSouth:
		return DirNorth
	case DirEast:
		return DirWest
	case DirWest:
		return DirEast
	case DirNortheast:
		return DirSouthwest
	case DirSouthwest:
		return DirNortheast
	case DirNorthwest:
		return DirSoutheast
	case DirSoutheast:
		return DirNorthwest
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirIn:
		return DirOut
	case DirOut:
		return DirIn
	}
	return DirNone
}

// ThingFields carries the describable-object state shared by most kinds.
type ThingFields struct {
	Name        string
	Article     string // "a", "an", or "" for proper nouns
	Description string
	Icon        string
	Aliases     []string
}

// ItemFields marks an entity carryable and stackable.
type ItemFields struct {
	Count      int
	StackLimit int
}

// EquipmentFields marks an item wearable in a named slot.
type EquipmentFields struct {
	Slot    string
	Quality int
}

// WeaponFields extends equipment with combat attributes.
type WeaponFields struct {
	DamageType script.Symbol
	Power      float64
}

// PortalFields links a location to a destination. Twin is the matching
// portal on the far side, nil for oneway portals.
type PortalFields struct {
	Direction Direction
	Dest      script.Ref
	Oneway    bool
	Twin      *Entity
}

// LocationFields holds the spatial contents of a location. Exits are portal
// entities; Contents is everything else present.
type LocationFields struct {
	Contents []*Entity
	Exits    []*Entity
	Domain   string
	Tutorial string
}

// CreatureFields is the animate-entity record shared by NPCs and avatars.
type CreatureFields struct {
	Level int
	Race  script.Ref
}

// ResourceFields configures a gatherable node.
type ResourceFields struct {
	Yields        *script.List
	RequiredSkill script.Ref
	RequiredRank  int
	GatherTime    float64
}

// AddContent inserts an entity into the location and sets its back-link.
func (l *LocationFields) AddContent(loc, e *Entity) {
	if e.kind == KindPortal {
		l.Exits = append(l.Exits, e)
	} else {
		l.Contents = append(l.Contents, e)
	}
	e.container = loc
}

// RemoveContent detaches an entity from the location.
func (l *LocationFields) RemoveContent(e *Entity) bool {
	slot := &l.Contents
	if e.kind == KindPortal {
		slot = &l.Exits
	}
	for i, c := range *slot {
		if c == e {
			*slot = append((*slot)[:i], (*slot)[i+1:]...)
			e.container = nil
			return true
		}
	}
	return false
}

// ExitIn returns the portal leaving in the given direction, if any.
func (l *LocationFields) ExitIn(dir Direction) *Entity {
	for _, p := range l.Exits {
		if p.portal != nil && p.portal.Direction == dir {
			return p
		}
	}
	return nil
}
