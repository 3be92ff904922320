package world

import (
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

// Travel moves an avatar through a portal. The departure is subject to an
// exit_location allow phase; a veto leaves the avatar in place. Location
// change cancels any pending offer or activity.
func (w *World) Travel(av, portal *Entity) bool {
	if portal == nil || portal.portal == nil {
		return false
	}
	origin := av.Location()
	dest := w.lookupLocation(portal.portal.Dest)
	if dest == nil {
		w.log.Warn("portal with unresolved destination",
			zap.String("dest", portal.portal.Dest.String()))
		if av.avatar != nil {
			av.avatar.Enqueue(ShowError("You can't go that way."))
		}
		return false
	}

	moved := false
	w.TriggerEvent("exit_location", origin, []*Entity{av, portal},
		[]script.Value{av, origin, portal}, func() {
			w.CancelInteractions(av)
			if origin != nil && origin.loc != nil {
				origin.loc.RemoveContent(av)
			}
			moved = true
		})
	if !moved {
		return false
	}
	w.notifyNeighbors(av, origin, false)

	entry := portal.portal.Twin
	var entryArg script.Value = script.Nil{}
	if entry != nil {
		entryArg = entry
	}
	w.TriggerEvent("enter_location", dest, []*Entity{av},
		[]script.Value{av, dest, entryArg}, func() {
			dest.loc.AddContent(dest, av)
			if av.avatar != nil && !dest.ref.IsZero() {
				av.avatar.LocationRef = dest.ref
			}
		})
	w.notifyNeighbors(av, dest, true)

	if a := av.avatar; a != nil {
		a.Enqueue(ShowLocation(LocationViewOf(dest)))
		a.Enqueue(SetNeighbors(w.neighborViews(av, dest)))
		w.showLocationTutorial(av, dest)
	}
	travelTotal.Inc()
	return true
}

// Take moves an item from the avatar's location into its inventory under a
// take event. Returns false when vetoed or the inventory is full.
func (w *World) Take(av, item *Entity) bool {
	loc := av.Location()
	if loc == nil || item.Container() != loc {
		return false
	}
	a := av.avatar
	taken := false
	ok := w.TriggerEvent("take", loc, []*Entity{av, item},
		[]script.Value{av, item}, func() {
			if !loc.loc.RemoveContent(item) {
				return
			}
			if !a.AddItem(av, item) {
				loc.loc.AddContent(loc, item)
				a.Enqueue(ShowError("You can't carry any more."))
				return
			}
			taken = true
		})
	if !ok || !taken {
		return false
	}
	a.Enqueue(UpdateItem(ItemViewOf(item)))
	w.Broadcast(loc, av, RemoveNeighbor(item.ID()))
	return true
}

// Drop moves a carried item into the avatar's location under a drop event.
func (w *World) Drop(av, item *Entity) bool {
	loc := av.Location()
	a := av.avatar
	if loc == nil || a.FindInventory(item) < 0 {
		return false
	}
	dropped := false
	ok := w.TriggerEvent("drop", loc, []*Entity{av, item},
		[]script.Value{av, item}, func() {
			if !a.RemoveItem(item) {
				return
			}
			loc.loc.AddContent(loc, item)
			dropped = true
		})
	if !ok || !dropped {
		return false
	}
	a.Enqueue(RemoveItem(item.ID()))
	w.Broadcast(loc, av, UpdateNeighbor(NeighborViewOf(item)))
	return true
}

// Give transfers a carried item to another creature under a give event.
func (w *World) Give(av, item, recipient *Entity) bool {
	loc := av.Location()
	a := av.avatar
	if loc == nil || a.FindInventory(item) < 0 || recipient.creature == nil {
		return false
	}
	given := false
	ok := w.TriggerEvent("give", loc, []*Entity{av, recipient, item},
		[]script.Value{av, recipient, item}, func() {
			if !a.RemoveItem(item) {
				return
			}
			if r := recipient.avatar; r != nil {
				if !r.AddItem(recipient, item) {
					a.AddItem(av, item)
					a.Enqueue(ShowError(script.ToString(recipient, 'D') + " can't carry that."))
					return
				}
				r.Enqueue(UpdateItem(ItemViewOf(item)))
			} else {
				item.SetContainer(recipient)
			}
			given = true
		})
	if !ok || !given {
		return false
	}
	a.Enqueue(RemoveItem(item.ID()))
	return true
}

// EquipItem moves a carried equipment item to its slot, swapping out
// whatever was worn there.
func (w *World) EquipItem(av, item *Entity) bool {
	a := av.avatar
	if item.equip == nil {
		a.Enqueue(ShowError("You can't equip that."))
		return false
	}
	if a.FindInventory(item) < 0 {
		return false
	}
	slot := item.equip.Slot
	equipped := false
	ok := w.TriggerEvent("equip", av.Location(), []*Entity{av, item},
		[]script.Value{av, item}, func() {
			a.RemoveItem(item)
			if prev := a.Equipped[slot]; prev != nil {
				a.AddItem(av, prev)
				a.Enqueue(UpdateItem(ItemViewOf(prev)))
			}
			a.Equipped[slot] = item
			item.SetContainer(av)
			equipped = true
		})
	if !ok || !equipped {
		return false
	}
	a.Enqueue(RemoveItem(item.ID()))
	a.Enqueue(EquipUpdate(EquipmentViewOf(slot, item)))
	return true
}

// UnequipItem returns a worn item to the inventory.
func (w *World) UnequipItem(av, item *Entity) bool {
	a := av.avatar
	slot := ""
	for s, it := range a.Equipped {
		if it == item {
			slot = s
			break
		}
	}
	if slot == "" {
		return false
	}
	if !a.AddItem(av, item) {
		a.Enqueue(ShowError("You can't carry any more."))
		return false
	}
	delete(a.Equipped, slot)
	a.Enqueue(UnequipUpdate(slot))
	a.Enqueue(UpdateItem(ItemViewOf(item)))
	return true
}
