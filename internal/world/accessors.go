package world

import (
	"fmt"

	"github.com/emberwake/server/internal/script"
)

// accessor is one typed member. A nil set marks the member read-only.
type accessor struct {
	get func(e *Entity) script.Value
	set func(e *Entity, v script.Value) error
}

func expectedKind(want string) error {
	return fmt.Errorf("%w: expected %s", script.ErrTypeMismatch, want)
}

func wantString(v script.Value) (string, error) {
	s, ok := v.(script.String)
	if !ok {
		return "", expectedKind("string")
	}
	return string(s), nil
}

func wantNumber(v script.Value) (float64, error) {
	n, ok := v.(script.Number)
	if !ok {
		return 0, expectedKind("number")
	}
	return float64(n), nil
}

func wantSymbol(v script.Value) (script.Symbol, error) {
	s, ok := v.(script.Symbol)
	if !ok {
		return "", expectedKind("symbol")
	}
	return s, nil
}

func wantRef(v script.Value) (script.Ref, error) {
	r, ok := v.(script.RefValue)
	if !ok {
		return script.Ref{}, expectedKind("reference")
	}
	return r.Ref, nil
}

var baseAccessors = map[string]accessor{
	"id": {get: func(e *Entity) script.Value {
		return script.Number(e.id)
	}},
	"kind": {get: func(e *Entity) script.Value {
		return script.Symbol(e.kind.String())
	}},
	"location": {get: func(e *Entity) script.Value {
		if l := e.Location(); l != nil {
			return l
		}
		return script.Nil{}
	}},
}

var thingAccessors = map[string]accessor{
	"name": {
		get: func(e *Entity) script.Value { return script.String(e.thing.Name) },
		set: func(e *Entity, v script.Value) error {
			s, err := wantString(v)
			if err != nil {
				return err
			}
			e.thing.Name = s
			return nil
		},
	},
	"article": {
		get: func(e *Entity) script.Value { return script.String(e.thing.Article) },
		set: func(e *Entity, v script.Value) error {
			s, err := wantString(v)
			if err != nil {
				return err
			}
			e.thing.Article = s
			return nil
		},
	},
	"description": {
		get: func(e *Entity) script.Value { return script.String(e.thing.Description) },
		set: func(e *Entity, v script.Value) error {
			s, err := wantString(v)
			if err != nil {
				return err
			}
			e.thing.Description = s
			return nil
		},
	},
	"icon": {
		get: func(e *Entity) script.Value { return script.String(e.thing.Icon) },
		set: func(e *Entity, v script.Value) error {
			s, err := wantString(v)
			if err != nil {
				return err
			}
			e.thing.Icon = s
			return nil
		},
	},
	"brief": {get: func(e *Entity) script.Value {
		return script.String(script.ToString(e, 'i'))
	}},
}

var itemAccessors = map[string]accessor{
	"count": {get: func(e *Entity) script.Value {
		return script.Number(e.item.Count)
	}},
	"stack_limit": {
		get: func(e *Entity) script.Value { return script.Number(e.item.StackLimit) },
		set: func(e *Entity, v script.Value) error {
			n, err := wantNumber(v)
			if err != nil {
				return err
			}
			if n < 1 {
				n = 1
			}
			e.item.StackLimit = int(n)
			return nil
		},
	},
}

var equipmentAccessors = map[string]accessor{
	"slot": {
		get: func(e *Entity) script.Value { return script.Symbol(e.equip.Slot) },
		set: func(e *Entity, v script.Value) error {
			s, err := wantSymbol(v)
			if err != nil {
				return err
			}
			e.equip.Slot = string(s)
			return nil
		},
	},
	"quality": {
		get: func(e *Entity) script.Value { return script.Number(e.equip.Quality) },
		set: func(e *Entity, v script.Value) error {
			n, err := wantNumber(v)
			if err != nil {
				return err
			}
			e.equip.Quality = int(n)
			return nil
		},
	},
}

var weaponAccessors = map[string]accessor{
	"damage_type": {
		get: func(e *Entity) script.Value { return e.weapon.DamageType },
		set: func(e *Entity, v script.Value) error {
			s, err := wantSymbol(v)
			if err != nil {
				return err
			}
			e.weapon.DamageType = s
			return nil
		},
	},
	"power": {
		get: func(e *Entity) script.Value { return script.Number(e.weapon.Power) },
		set: func(e *Entity, v script.Value) error {
			n, err := wantNumber(v)
			if err != nil {
				return err
			}
			e.weapon.Power = n
			return nil
		},
	},
}

var portalAccessors = map[string]accessor{
	"direction": {get: func(e *Entity) script.Value {
		return script.Symbol(e.portal.Direction.String())
	}},
	"dest": {get: func(e *Entity) script.Value {
		return script.RefValue{Ref: e.portal.Dest}
	}},
	"oneway": {get: func(e *Entity) script.Value {
		return script.Bool(e.portal.Oneway)
	}},
}

var locationAccessors = map[string]accessor{
	"contents": {
		get: func(e *Entity) script.Value {
			elems := make([]script.Value, len(e.loc.Contents))
			for i, c := range e.loc.Contents {
				elems[i] = c
			}
			return script.NewList(elems...)
		},
		set: func(e *Entity, v script.Value) error {
			l, ok := v.(*script.List)
			if !ok {
				return expectedKind("list")
			}
			for _, elem := range l.Elems {
				c, ok := elem.(*Entity)
				if !ok || c.kind == KindPortal {
					return expectedKind("list of entities")
				}
				e.loc.AddContent(e, c)
			}
			return nil
		},
	},
	"exits": {
		get: func(e *Entity) script.Value {
			elems := make([]script.Value, len(e.loc.Exits))
			for i, c := range e.loc.Exits {
				elems[i] = c
			}
			return script.NewList(elems...)
		},
		set: func(e *Entity, v script.Value) error {
			l, ok := v.(*script.List)
			if !ok {
				return expectedKind("list")
			}
			for _, elem := range l.Elems {
				p, ok := elem.(*Entity)
				if !ok || p.portal == nil {
					return expectedKind("list of portals")
				}
				e.loc.AddContent(e, p)
			}
			return nil
		},
	},
	"domain": {
		get: func(e *Entity) script.Value { return script.String(e.loc.Domain) },
		set: func(e *Entity, v script.Value) error {
			s, err := wantString(v)
			if err != nil {
				return err
			}
			e.loc.Domain = s
			return nil
		},
	},
	"tutorial": {
		get: func(e *Entity) script.Value { return script.String(e.loc.Tutorial) },
		set: func(e *Entity, v script.Value) error {
			s, err := wantString(v)
			if err != nil {
				return err
			}
			e.loc.Tutorial = s
			return nil
		},
	},
}

var creatureAccessors = map[string]accessor{
	"level": {
		get: func(e *Entity) script.Value { return script.Number(e.creature.Level) },
		set: func(e *Entity, v script.Value) error {
			n, err := wantNumber(v)
			if err != nil {
				return err
			}
			e.creature.Level = int(n)
			return nil
		},
	},
	"race": {
		get: func(e *Entity) script.Value {
			if e.creature.Race.IsZero() {
				return script.Nil{}
			}
			return script.RefValue{Ref: e.creature.Race}
		},
		set: func(e *Entity, v script.Value) error {
			r, err := wantRef(v)
			if err != nil {
				return err
			}
			e.creature.Race = r
			return nil
		},
	},
}

var resourceAccessors = map[string]accessor{
	"yields": {
		get: func(e *Entity) script.Value {
			if e.node.Yields == nil {
				return script.NewList()
			}
			return e.node.Yields
		},
		set: func(e *Entity, v script.Value) error {
			l, ok := v.(*script.List)
			if !ok {
				return expectedKind("list")
			}
			e.node.Yields = l
			return nil
		},
	},
	"required_skill": {
		get: func(e *Entity) script.Value {
			if e.node.RequiredSkill.IsZero() {
				return script.Nil{}
			}
			return script.RefValue{Ref: e.node.RequiredSkill}
		},
		set: func(e *Entity, v script.Value) error {
			r, err := wantRef(v)
			if err != nil {
				return err
			}
			e.node.RequiredSkill = r
			return nil
		},
	},
	"required_rank": {
		get: func(e *Entity) script.Value { return script.Number(e.node.RequiredRank) },
		set: func(e *Entity, v script.Value) error {
			n, err := wantNumber(v)
			if err != nil {
				return err
			}
			e.node.RequiredRank = int(n)
			return nil
		},
	},
	"gather_time": {
		get: func(e *Entity) script.Value { return script.Number(e.node.GatherTime) },
		set: func(e *Entity, v script.Value) error {
			n, err := wantNumber(v)
			if err != nil {
				return err
			}
			e.node.GatherTime = n
			return nil
		},
	},
}

var avatarAccessors = map[string]accessor{
	"capacity": {
		get: func(e *Entity) script.Value { return script.Number(e.avatar.Capacity) },
		set: func(e *Entity, v script.Value) error {
			n, err := wantNumber(v)
			if err != nil {
				return err
			}
			e.avatar.Capacity = int(n)
			return nil
		},
	},
	"inventory": {get: func(e *Entity) script.Value {
		elems := make([]script.Value, len(e.avatar.Inventory))
		for i, c := range e.avatar.Inventory {
			elems[i] = c
		}
		return script.NewList(elems...)
	}},
}

// kindAccessors is the merged accessor table per kind, assembled once.
var kindAccessors [KindFixture + 1]map[string]accessor

func init() {
	merge := func(tables ...map[string]accessor) map[string]accessor {
		out := make(map[string]accessor)
		for _, t := range tables {
			for k, v := range t {
				out[k] = v
			}
		}
		return out
	}
	kindAccessors[KindThing] = merge(baseAccessors, thingAccessors)
	kindAccessors[KindFixture] = merge(baseAccessors, thingAccessors)
	kindAccessors[KindItem] = merge(baseAccessors, thingAccessors, itemAccessors)
	kindAccessors[KindEquipment] = merge(baseAccessors, thingAccessors, itemAccessors, equipmentAccessors)
	kindAccessors[KindWeapon] = merge(baseAccessors, thingAccessors, itemAccessors, equipmentAccessors, weaponAccessors)
	kindAccessors[KindPortal] = merge(baseAccessors, portalAccessors)
	kindAccessors[KindLocation] = merge(baseAccessors, thingAccessors, locationAccessors)
	kindAccessors[KindCreature] = merge(baseAccessors, thingAccessors, creatureAccessors)
	kindAccessors[KindAvatar] = merge(baseAccessors, thingAccessors, creatureAccessors, avatarAccessors)
	kindAccessors[KindResourceNode] = merge(baseAccessors, thingAccessors, resourceAccessors)
}

func accessorsFor(k EntityKind) map[string]accessor {
	if int(k) < len(kindAccessors) && kindAccessors[k] != nil {
		return kindAccessors[k]
	}
	return baseAccessors
}
