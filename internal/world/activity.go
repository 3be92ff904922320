package world

import (
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

// GatherActivity is the multi-second harvest of a resource node. Completion
// arrives through the scheduler; the callback checks the activity is still
// the avatar's current one, which is how cancellation works.
type GatherActivity struct {
	node      *Entity
	cancelled bool
}

func (g *GatherActivity) ActivityName() string { return "gathering" }

func (g *GatherActivity) Cancel(w *World, av *Entity) {
	g.cancelled = true
	if a := av.avatar; a != nil {
		a.Enqueue(StopCast())
	}
}

// StartGather begins harvesting a node, replacing any pending offer or
// activity. Returns false when the node is not gatherable or the avatar
// lacks the required skill rank.
func (w *World) StartGather(av, node *Entity) bool {
	a := av.avatar
	if a == nil || node.node == nil {
		return false
	}
	nf := node.node
	if !nf.RequiredSkill.IsZero() && a.Skills[nf.RequiredSkill] < nf.RequiredRank {
		a.Enqueue(ShowError("You lack the skill to gather from " + script.ToString(node, 'd') + "."))
		return false
	}

	started := false
	ok := w.TriggerEvent("gather", av.Location(), []*Entity{av, node},
		[]script.Value{av, node}, func() {
			started = true
		})
	if !ok || !started {
		return false
	}

	w.CancelInteractions(av)
	act := &GatherActivity{node: node}
	a.Activity = act

	duration := nf.GatherTime
	if duration <= 0 {
		duration = 2
	}
	a.Enqueue(StartCast(duration))
	w.Schedule(duration, func() {
		w.finishGather(av, act)
	})
	return true
}

func (w *World) finishGather(av *Entity, act *GatherActivity) {
	a := av.avatar
	if a == nil || act.cancelled || a.Activity != act {
		return
	}
	a.Activity = nil
	a.Enqueue(StopCast())

	node := act.node
	yield := w.gatherYield(node)
	if yield == nil {
		a.Enqueue(ShowText("You come away with nothing."))
		return
	}
	item := yield.Clone()
	if !a.AddItem(av, item) {
		a.Enqueue(ShowError("You can't carry any more."))
		return
	}
	a.Enqueue(UpdateItem(ItemViewOf(item)))
	a.Enqueue(ShowText("You gather " + script.ToString(item, 'i') + "."))

	if nf := node.node; nf != nil && !nf.RequiredSkill.IsZero() {
		w.improveSkill(av, nf.RequiredSkill)
	}
	w.TriggerEvent("gathered", av.Location(), []*Entity{av, node},
		[]script.Value{av, node, item}, nil)
}

// gatherYield picks a random yield prototype from the node.
func (w *World) gatherYield(node *Entity) *Entity {
	nf := node.node
	if nf == nil || nf.Yields == nil || len(nf.Yields.Elems) == 0 {
		return nil
	}
	pickVal, err := nativeRandom([]script.Value{nf.Yields})
	if err != nil {
		return nil
	}
	switch t := pickVal.(type) {
	case *Entity:
		return t
	case script.RefValue:
		v, err := w.ResolveRef(t.Ref)
		if err != nil {
			w.log.Warn("yield ref unresolved", zap.String("ref", t.Ref.String()))
			return nil
		}
		if e, ok := v.(*Entity); ok {
			return e
		}
	}
	return nil
}

// improveSkill gives a rank point at a diminishing chance as rank grows.
func (w *World) improveSkill(av *Entity, skill script.Ref) {
	a := av.avatar
	rank := a.Skills[skill]
	roll, err := nativeRandom([]script.Value{script.Number(rank + 2)})
	if err != nil {
		return
	}
	if n, _ := script.AsInt(roll); n == 0 {
		w.AdjustSkill(av, skill, rank+1)
		a.Enqueue(ShowNotice("Your skill improves."))
	}
}
