package command

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
	"github.com/emberwake/server/internal/world"
)

func (d *Dispatcher) registerBuiltins() {
	d.Register(&Command{
		Grammar: ParseGrammar("look|examine at:target with|using|through:tool"),
		Help:    "Look around, or look at something.",
		Run:     cmdLook,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("go|walk direction"),
		Help:    "Travel through an exit.",
		Run:     cmdGo,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("take|get item"),
		Help:    "Pick something up.",
		Run:     cmdTake,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("drop item"),
		Help:    "Put something down.",
		Run:     cmdDrop,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("put item in|into:container"),
		Help:    "Put something into a container.",
		Run:     cmdPut,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("give item to:recipient"),
		Help:    "Give something to someone.",
		Run:     cmdGive,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("inventory"),
		Help:    "List what you are carrying.",
		Run:     cmdInventory,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("equip|wear|wield item"),
		Help:    "Equip a carried item.",
		Run:     cmdEquip,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("unequip|unwield item"),
		Help:    "Return a worn item to your pack.",
		Run:     cmdUnequip,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("say *:text"),
		Help:    "Say something out loud.",
		Run:     cmdSay,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("talk|greet to:target"),
		Help:    "Talk to someone.",
		Run:     cmdTalk,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("gather|harvest node"),
		Help:    "Gather from a resource.",
		Run:     cmdGather,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("accept"),
		Help:    "Accept a pending offer.",
		Run:     cmdAccept,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("decline"),
		Help:    "Decline a pending offer.",
		Run:     cmdDecline,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("quests"),
		Help:    "Show your quest journal.",
		Run:     cmdQuests,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("skills"),
		Help:    "Show your skills.",
		Run:     cmdSkills,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("tutorial 1:setting"),
		Help:    "Turn tutorials on, off, or reset them.",
		Run:     cmdTutorial,
	})
	d.Register(&Command{
		Grammar: ParseGrammar("help"),
		Help:    "Show this list.",
		Run:     cmdHelp,
	})

	d.RegisterAlias("i", "inventory")
	d.RegisterAlias("l", "look")
	d.RegisterAlias("'", "say")
	for _, dir := range []string{
		"north", "south", "east", "west",
		"northeast", "northwest", "southeast", "southwest",
		"up", "down", "in", "out",
	} {
		d.RegisterAlias(dir, "go "+dir)
	}
	d.RegisterAlias("n", "go north")
	d.RegisterAlias("e", "go east")
	d.RegisterAlias("w", "go west")
	d.RegisterAlias("ne", "go northeast")
	d.RegisterAlias("nw", "go northwest")
	d.RegisterAlias("se", "go southeast")
	d.RegisterAlias("sw", "go southwest")
	d.RegisterAlias("u", "go up")
	d.RegisterAlias("d", "go down")
}

// findVisible matches a phrase against everything the actor can refer to.
func (d *Dispatcher) findVisible(actor *world.Entity, phrase []string) *world.Entity {
	res := world.MatchPhrase(phrase, world.VisibleTo(actor))
	return d.resolveMatch(actor, phrase, res, "You don't see anything like that here.")
}

// findCarried matches a phrase against the actor's inventory only.
func (d *Dispatcher) findCarried(actor *world.Entity, phrase []string) *world.Entity {
	res := world.MatchPhrase(phrase, actor.Avatar().Inventory)
	return d.resolveMatch(actor, phrase, res, "You aren't carrying anything like that.")
}

func (d *Dispatcher) resolveMatch(actor *world.Entity, phrase []string, res world.MatchResult, missing string) *world.Entity {
	switch len(res.Matches) {
	case 0:
		d.tell(actor, world.ShowError(missing))
		return nil
	case 1:
		return res.Matches[0]
	}
	names := make([]string, len(res.Matches))
	for i, m := range res.Matches {
		names[i] = script.ToString(m, 'd')
	}
	d.tell(actor, world.ShowError("Which do you mean, "+joinOr(names)+"?"))
	return nil
}

func cmdLook(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		loc := actor.Location()
		if loc == nil {
			d.tell(actor, world.ShowError("You are nowhere."))
			return
		}
		d.w.DescribeTo(actor, loc)
		return
	}
	target := d.findVisible(actor, args[0])
	if target == nil {
		return
	}
	d.w.DescribeTo(actor, target)
}

func cmdGo(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		d.tell(actor, world.ShowError("Go where?"))
		return
	}
	loc := actor.Location()
	if loc == nil || loc.LocationFields() == nil {
		d.tell(actor, world.ShowError("You are nowhere."))
		return
	}
	var portal *world.Entity
	if dir, ok := world.ParseDirectionWord(strings.ToLower(args[0][0])); ok && len(args[0]) == 1 {
		portal = loc.LocationFields().ExitIn(dir)
	}
	if portal == nil {
		res := world.MatchPhrase(args[0], loc.LocationFields().Exits)
		portal, _ = res.Unique()
	}
	if portal == nil {
		d.tell(actor, world.ShowError("You can't go that way."))
		return
	}
	d.w.Travel(actor, portal)
}

func cmdTake(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		d.tell(actor, world.ShowError("Take what?"))
		return
	}
	loc := actor.Location()
	if loc == nil {
		return
	}
	var candidates []*world.Entity
	for _, c := range loc.LocationFields().Contents {
		if c != actor {
			candidates = append(candidates, c)
		}
	}
	res := world.MatchPhrase(args[0], candidates)
	item := d.resolveMatch(actor, args[0], res, "You don't see anything like that here.")
	if item == nil {
		return
	}
	if item.Item() == nil {
		d.tell(actor, world.ShowError("You can't take "+script.ToString(item, 'd')+"."))
		return
	}
	d.w.Take(actor, item)
}

func cmdDrop(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		d.tell(actor, world.ShowError("Drop what?"))
		return
	}
	item := d.findCarried(actor, args[0])
	if item == nil {
		return
	}
	d.w.Drop(actor, item)
}

// cmdPut places a carried item into a visible container. Containers are
// entities whose "holds" member is a list.
func cmdPut(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil || args[1] == nil {
		d.tell(actor, world.ShowError("Put what where?"))
		return
	}
	item := d.findCarried(actor, args[0])
	if item == nil {
		return
	}
	container := d.findVisible(actor, args[1])
	if container == nil {
		return
	}
	holdsVal, ok := container.GetMember("holds")
	holds, isList := holdsVal.(*script.List)
	if !ok || !isList {
		d.tell(actor, world.ShowError("You can't put anything in "+script.ToString(container, 'd')+"."))
		return
	}
	loc := actor.Location()
	stored := false
	d.w.TriggerEvent("put", loc, []*world.Entity{actor, container, item},
		[]script.Value{actor, container, item}, func() {
			if !actor.Avatar().RemoveItem(item) {
				return
			}
			holds.Elems = append(holds.Elems, item)
			item.SetContainer(container)
			stored = true
		})
	if !stored {
		return
	}
	actor.Avatar().Enqueue(world.RemoveItem(item.ID()))
	actor.Avatar().Enqueue(world.ShowText(
		"You put " + script.ToString(item, 'd') + " in " + script.ToString(container, 'd') + "."))
}

func cmdGive(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil || args[1] == nil {
		d.tell(actor, world.ShowError("Give what to whom?"))
		return
	}
	item := d.findCarried(actor, args[0])
	if item == nil {
		return
	}
	recipient := d.findVisible(actor, args[1])
	if recipient == nil {
		return
	}
	if recipient.Creature() == nil {
		d.tell(actor, world.ShowError(script.ToString(recipient, 'D')+" can't take that."))
		return
	}
	d.w.Give(actor, item, recipient)
}

func cmdInventory(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	a := actor.Avatar()
	if len(a.Inventory) == 0 {
		d.tell(actor, world.ShowText("You aren't carrying anything."))
		return
	}
	lines := make([]string, len(a.Inventory))
	for i, it := range a.Inventory {
		line := script.ToString(it, 'I')
		if f := it.Item(); f != nil && f.Count > 1 {
			line += " (x" + script.FormatNumber(float64(f.Count)) + ")"
		}
		lines[i] = line
	}
	a.Enqueue(world.ShowList("You are carrying:", lines))
}

func cmdEquip(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		d.tell(actor, world.ShowError("Equip what?"))
		return
	}
	item := d.findCarried(actor, args[0])
	if item == nil {
		return
	}
	d.w.EquipItem(actor, item)
}

func cmdUnequip(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		d.tell(actor, world.ShowError("Unequip what?"))
		return
	}
	a := actor.Avatar()
	worn := make([]*world.Entity, 0, len(a.Equipped))
	for _, it := range a.Equipped {
		worn = append(worn, it)
	}
	res := world.MatchPhrase(args[0], worn)
	item := d.resolveMatch(actor, args[0], res, "You aren't wearing anything like that.")
	if item == nil {
		return
	}
	d.w.UnequipItem(actor, item)
}

func cmdSay(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		d.tell(actor, world.ShowError("Say what?"))
		return
	}
	text := args[0][0]
	loc := actor.Location()
	d.w.TriggerEvent("say", loc, []*world.Entity{actor},
		[]script.Value{actor, script.String(text)}, func() {
			d.w.Broadcast(loc, nil, world.ShowSay(script.ToString(actor, 'N'), text))
		})
}

func cmdTalk(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		d.tell(actor, world.ShowError("Talk to whom?"))
		return
	}
	target := d.findVisible(actor, args[0])
	if target == nil {
		return
	}
	if target.Creature() == nil {
		d.tell(actor, world.ShowError("You can't talk to "+script.ToString(target, 'd')+"."))
		return
	}
	if !hasTalkHandler(target) {
		d.tell(actor, world.ShowText(script.ToString(target, 'D')+" doesn't seem interested in talking."))
		return
	}
	d.w.TriggerEvent("talk", actor.Location(), []*world.Entity{target, actor},
		[]script.Value{actor}, nil)
}

func hasTalkHandler(e *world.Entity) bool {
	phases := []script.EventPhase{
		script.PhaseAllow, script.PhaseBefore, script.PhaseWhen, script.PhaseAfter,
	}
	for n := e; n != nil; n = n.Prototype() {
		for _, p := range phases {
			if len(n.HandlersFor(p, "talk")) > 0 {
				return true
			}
		}
	}
	return false
}

func cmdGather(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	if args[0] == nil {
		d.tell(actor, world.ShowError("Gather from what?"))
		return
	}
	target := d.findVisible(actor, args[0])
	if target == nil {
		return
	}
	if target.Resource() == nil {
		d.tell(actor, world.ShowError("You can't gather anything from "+script.ToString(target, 'd')+"."))
		return
	}
	d.w.StartGather(actor, target)
}

func cmdAccept(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	d.w.AcceptOffer(actor)
}

func cmdDecline(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	d.w.DeclineOffer(actor)
}

func cmdQuests(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	a := actor.Avatar()
	if len(a.ActiveQuests) == 0 {
		d.tell(actor, world.ShowText("Your journal is empty."))
		return
	}
	var lines []string
	for ref, st := range a.ActiveQuests {
		name := ref.Name
		if q := d.w.Quest(ref); q != nil {
			name = q.QuestName()
		}
		lines = append(lines, name+" ("+st.Phase+")")
	}
	a.Enqueue(world.ShowList("Your quests:", lines))
}

func cmdSkills(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	a := actor.Avatar()
	if len(a.Skills) == 0 {
		d.tell(actor, world.ShowText("You have no skills yet."))
		return
	}
	var lines []string
	for ref, rank := range a.Skills {
		lines = append(lines, ref.Name+" "+script.FormatNumber(float64(rank)))
	}
	a.Enqueue(world.ShowList("Your skills:", lines))
}

func cmdTutorial(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	a := actor.Avatar()
	setting := ""
	if args[0] != nil {
		setting = strings.ToLower(args[0][0])
	}
	switch setting {
	case "on":
		a.TutorialsOn = true
		d.tell(actor, world.ShowNotice("Tutorials are on."))
	case "off":
		a.TutorialsOn = false
		d.tell(actor, world.ShowNotice("Tutorials are off."))
	case "reset":
		if err := d.w.ResetTutorials(context.Background(), actor); err != nil {
			d.log.Error("tutorial reset failed", zap.Error(err))
			d.tell(actor, world.ShowError("Something went wrong."))
			return
		}
		d.tell(actor, world.ShowNotice("Tutorials reset."))
	default:
		state := "off"
		if a.TutorialsOn {
			state = "on"
		}
		d.tell(actor, world.ShowText("Tutorials are "+state+". Use tutorial on, off, or reset."))
	}
}

func cmdHelp(d *Dispatcher, actor *world.Entity, verb string, args [][]string) {
	lines := make([]string, 0, len(d.commands))
	for _, c := range d.commands {
		lines = append(lines, strings.Join(c.Grammar.Verbs, ", ")+" - "+c.Help)
	}
	d.tell(actor, world.ShowList("Commands:", lines))
}
