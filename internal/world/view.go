package world

import (
	"github.com/emberwake/server/internal/script"
)

// LocationViewOf builds the location panel for a location entity.
func LocationViewOf(loc *Entity) LocationView {
	v := LocationView{}
	if loc.thing != nil {
		v.Name = loc.thing.Name
		v.Description = loc.thing.Description
	}
	if loc.loc != nil {
		v.Domain = loc.loc.Domain
		for _, p := range loc.loc.Exits {
			if p.portal != nil {
				v.Exits = append(v.Exits, p.portal.Direction.String())
			}
		}
	}
	return v
}

// sendFullState pushes the complete UI picture to one avatar: identity,
// location, neighbors, inventory, equipment, skills, and quest journal.
func (w *World) sendFullState(av *Entity) {
	a := av.avatar

	a.Enqueue(SetName(av.thing.Name))
	if av.thing.Icon != "" {
		a.Enqueue(SetIcon(av.thing.Icon))
	}
	a.Enqueue(SetLevel(av.creature.Level))
	if race := w.Race(av.creature.Race); race != nil {
		a.Enqueue(SetRace(race.RaceName()))
	}

	loc := av.Location()
	if loc != nil {
		a.Enqueue(ShowLocation(LocationViewOf(loc)))
		a.Enqueue(SetNeighbors(w.neighborViews(av, loc)))
	}

	items := make([]ItemView, 0, len(a.Inventory))
	for _, it := range a.Inventory {
		items = append(items, ItemViewOf(it))
	}
	a.Enqueue(SetItems(items))

	eq := make([]EquipmentView, 0, len(a.Equipped))
	for slot, it := range a.Equipped {
		eq = append(eq, EquipmentViewOf(slot, it))
	}
	a.Enqueue(SetEquipment(eq))

	skills := make([]SkillView, 0, len(a.Skills))
	for ref, rank := range a.Skills {
		skills = append(skills, SkillView{Skill: ref.String(), Rank: rank})
	}
	a.Enqueue(SetSkills(skills))

	quests := make([]QuestView, 0, len(a.ActiveQuests))
	for ref, st := range a.ActiveQuests {
		qv := QuestView{Quest: ref.String(), Phase: st.Phase}
		if q := w.Quest(ref); q != nil {
			qv.Name = q.QuestName()
		}
		quests = append(quests, qv)
	}
	a.Enqueue(SetQuests(quests))
}

// neighborViews lists the co-located entities visible to the avatar.
func (w *World) neighborViews(av, loc *Entity) []NeighborView {
	if loc == nil || loc.loc == nil {
		return nil
	}
	views := make([]NeighborView, 0, len(loc.loc.Contents))
	for _, c := range loc.loc.Contents {
		if c == av {
			continue
		}
		views = append(views, NeighborViewOf(c))
	}
	return views
}

// notifyNeighbors tells every other avatar in the location that one entity
// arrived or left.
func (w *World) notifyNeighbors(subject, loc *Entity, arrived bool) {
	if loc == nil || loc.loc == nil {
		return
	}
	for _, c := range loc.loc.Contents {
		if c == subject || c.avatar == nil || c.avatar.Session == nil {
			continue
		}
		if arrived {
			c.avatar.Enqueue(UpdateNeighbor(NeighborViewOf(subject)))
		} else {
			c.avatar.Enqueue(RemoveNeighbor(subject.ID()))
		}
	}
}

// showLocationTutorial delivers the location's tutorial text once per
// avatar, honoring the tutorials toggle.
func (w *World) showLocationTutorial(av, loc *Entity) {
	a := av.avatar
	if a == nil || loc == nil || loc.loc == nil || loc.loc.Tutorial == "" {
		return
	}
	if !a.TutorialsOn {
		return
	}
	key := loc.ref.String()
	if key == "" {
		return
	}
	if a.MarkTutorialSeen(key) {
		a.Enqueue(ShowTutorial(key, loc.loc.Tutorial))
	}
}

// ShowTutorialTo delivers an arbitrary keyed tutorial once.
func (w *World) ShowTutorialTo(av *Entity, key, text string) {
	a := av.avatar
	if a == nil || !a.TutorialsOn {
		return
	}
	if a.MarkTutorialSeen(key) {
		a.Enqueue(ShowTutorial(key, text))
	}
}

// Broadcast delivers one update to every connected avatar in a location,
// optionally skipping one entity.
func (w *World) Broadcast(loc *Entity, skip *Entity, u ClientUpdate) {
	if loc == nil || loc.loc == nil {
		return
	}
	for _, c := range loc.loc.Contents {
		if c == skip || c.avatar == nil {
			continue
		}
		c.avatar.Enqueue(u)
	}
}

// DescribeTo renders a look at one entity for the avatar.
func (w *World) DescribeTo(av, target *Entity) {
	a := av.avatar
	if a == nil {
		return
	}
	if target.loc != nil {
		a.Enqueue(ShowLocation(LocationViewOf(target)))
		a.Enqueue(SetNeighbors(w.neighborViews(av, target)))
		return
	}
	desc := ""
	if target.thing != nil {
		desc = target.thing.Description
	}
	if desc == "" {
		desc = "You see nothing special about " + script.ToString(target, 'd') + "."
	}
	a.Enqueue(ShowText(desc))
}
