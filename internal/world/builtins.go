package world

import (
	"fmt"
	"math/rand"

	"github.com/emberwake/server/internal/script"
)

// newBuiltinsModule assembles the reserved builtins module: one root
// prototype per entity subkind plus the native function set available to
// every script.
func (w *World) newBuiltinsModule() *Module {
	m := NewModule("builtins")

	roots := []struct {
		name string
		kind EntityKind
	}{
		{"thing", KindThing},
		{"item", KindItem},
		{"equipment", KindEquipment},
		{"weapon", KindWeapon},
		{"portal", KindPortal},
		{"location", KindLocation},
		{"creature", KindCreature},
		{"avatar", KindAvatar},
		{"resource_node", KindResourceNode},
		{"fixture", KindFixture},
	}
	for _, r := range roots {
		e := NewEntity(r.kind)
		e.ref = script.AbsoluteRef("builtins", r.name)
		m.Bind(r.name, e)
	}

	for _, fn := range w.nativeFunctions() {
		m.Bind(fn.Name, fn)
	}
	return m
}

func (w *World) nativeFunctions() []*script.NativeFunction {
	return []*script.NativeFunction{
		{Name: "show", Fn: w.nativeShow},
		{Name: "show_notice", Fn: w.nativeShowNotice},
		{Name: "show_error", Fn: w.nativeShowError},
		{Name: "say", Fn: w.nativeSay},
		{Name: "tell", Fn: w.nativeTell},
		{Name: "tutorial", Fn: w.nativeTutorial},
		{Name: "sleep", Fn: w.nativeSleep},
		{Name: "len", Fn: nativeLen},
		{Name: "random", Fn: nativeRandom},
		{Name: "spawn", Fn: w.nativeSpawn},
		{Name: "travel", Fn: w.nativeTravel},
		{Name: "offer_quest", Fn: w.nativeOfferQuest},
		{Name: "advance_quest", Fn: w.nativeAdvanceQuest},
		{Name: "complete_quest", Fn: w.nativeCompleteQuest},
		{Name: "quest_phase", Fn: w.nativeQuestPhase},
		{Name: "give_item", Fn: w.nativeGiveItem},
		{Name: "adjust_skill", Fn: w.nativeAdjustSkill},
	}
}

func argEntity(args []script.Value, i int, what string) (*Entity, error) {
	if i < len(args) {
		if e, ok := args[i].(*Entity); ok {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be an entity", script.ErrTypeMismatch, what)
}

func argAvatar(args []script.Value, i int) (*Entity, error) {
	e, err := argEntity(args, i, "avatar")
	if err != nil {
		return nil, err
	}
	if e.avatar == nil {
		return nil, fmt.Errorf("%w: expected an avatar", script.ErrTypeMismatch)
	}
	return e, nil
}

func argString(args []script.Value, i int, what string) (string, error) {
	if i < len(args) {
		if s, ok := args[i].(script.String); ok {
			return string(s), nil
		}
	}
	return "", fmt.Errorf("%w: %s must be a string", script.ErrTypeMismatch, what)
}

// argQuest accepts a quest object or a quest ref.
func (w *World) argQuest(args []script.Value, i int) (*Quest, error) {
	if i < len(args) {
		switch t := args[i].(type) {
		case *Quest:
			return t, nil
		case script.RefValue:
			if q := w.Quest(t.Ref); q != nil {
				return q, nil
			}
			return nil, fmt.Errorf("%w: %s", script.ErrUndefinedReference, t.Ref)
		}
	}
	return nil, fmt.Errorf("%w: expected a quest", script.ErrTypeMismatch)
}

func (w *World) nativeShow(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	text, err := argString(args, 1, "text")
	if err != nil {
		return nil, err
	}
	av.avatar.Enqueue(ShowText(text))
	return nil, nil
}

func (w *World) nativeShowNotice(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	text, err := argString(args, 1, "text")
	if err != nil {
		return nil, err
	}
	av.avatar.Enqueue(ShowNotice(text))
	return nil, nil
}

func (w *World) nativeShowError(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	text, err := argString(args, 1, "text")
	if err != nil {
		return nil, err
	}
	av.avatar.Enqueue(ShowError(text))
	return nil, nil
}

// say broadcasts speech from an entity to everyone in its location,
// including the speaker.
func (w *World) nativeSay(args []script.Value) (script.Value, error) {
	speaker, err := argEntity(args, 0, "speaker")
	if err != nil {
		return nil, err
	}
	text, err := argString(args, 1, "text")
	if err != nil {
		return nil, err
	}
	name := script.ToString(speaker, 'D')
	w.Broadcast(speaker.Location(), nil, ShowSay(name, text))
	return nil, nil
}

// tell delivers speech from an entity to a single avatar.
func (w *World) nativeTell(args []script.Value) (script.Value, error) {
	speaker, err := argEntity(args, 0, "speaker")
	if err != nil {
		return nil, err
	}
	av, err := argAvatar(args, 1)
	if err != nil {
		return nil, err
	}
	text, err := argString(args, 2, "text")
	if err != nil {
		return nil, err
	}
	av.avatar.Enqueue(ShowSay(script.ToString(speaker, 'D'), text))
	return nil, nil
}

func (w *World) nativeTutorial(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	key, err := argString(args, 1, "key")
	if err != nil {
		return nil, err
	}
	text, err := argString(args, 2, "text")
	if err != nil {
		return nil, err
	}
	w.ShowTutorialTo(av, key, text)
	return nil, nil
}

// sleep yields a future that fires after the given number of seconds.
func (w *World) nativeSleep(args []script.Value) (script.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("%w: sleep needs a duration", script.ErrTypeMismatch)
	}
	secs, err := script.AsNumber(args[0])
	if err != nil {
		return nil, err
	}
	return &script.Future{Run: func(resume func()) {
		w.Schedule(secs, resume)
	}}, nil
}

func nativeLen(args []script.Value) (script.Value, error) {
	if len(args) < 1 {
		return script.Number(0), nil
	}
	switch t := args[0].(type) {
	case *script.List:
		return script.Number(len(t.Elems)), nil
	case script.String:
		return script.Number(len(t)), nil
	case script.Range:
		return script.Number(t.Hi - t.Lo + 1), nil
	}
	return nil, fmt.Errorf("%w: len expects a list, string, or range", script.ErrTypeMismatch)
}

// random(range) or random(list) picks uniformly; random(n) picks in [0, n).
func nativeRandom(args []script.Value) (script.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("%w: random needs an argument", script.ErrTypeMismatch)
	}
	switch t := args[0].(type) {
	case script.Range:
		if t.Hi < t.Lo {
			return script.Number(t.Lo), nil
		}
		return script.Number(t.Lo + rand.Intn(t.Hi-t.Lo+1)), nil
	case *script.List:
		if len(t.Elems) == 0 {
			return script.Nil{}, nil
		}
		return t.Elems[rand.Intn(len(t.Elems))], nil
	case script.Number:
		n := int(t)
		if n <= 0 {
			return script.Number(0), nil
		}
		return script.Number(rand.Intn(n)), nil
	}
	return nil, fmt.Errorf("%w: random expects a range, list, or number", script.ErrTypeMismatch)
}

// spawn clones a prototype into a location.
func (w *World) nativeSpawn(args []script.Value) (script.Value, error) {
	loc, err := argEntity(args, 0, "location")
	if err != nil {
		return nil, err
	}
	if loc.loc == nil {
		return nil, fmt.Errorf("%w: spawn target must be a location", script.ErrTypeMismatch)
	}
	proto, err := argEntity(args, 1, "prototype")
	if err != nil {
		return nil, err
	}
	spawned := proto.Clone()
	loc.loc.AddContent(loc, spawned)
	w.Broadcast(loc, nil, UpdateNeighbor(NeighborViewOf(spawned)))
	return spawned, nil
}

func (w *World) nativeTravel(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	portal, err := argEntity(args, 1, "portal")
	if err != nil {
		return nil, err
	}
	return script.Bool(w.Travel(av, portal)), nil
}

func (w *World) nativeOfferQuest(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	q, err := w.argQuest(args, 1)
	if err != nil {
		return nil, err
	}
	return script.Bool(w.OfferQuest(av, q)), nil
}

// advance_quest(avatar, quest) steps to the next phase; a third symbol
// argument names an explicit phase.
func (w *World) nativeAdvanceQuest(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	q, err := w.argQuest(args, 1)
	if err != nil {
		return nil, err
	}
	phase := ""
	if len(args) > 2 {
		sym, ok := args[2].(script.Symbol)
		if !ok {
			return nil, fmt.Errorf("%w: phase must be a symbol", script.ErrTypeMismatch)
		}
		phase = string(sym)
	}
	return script.Bool(w.AdvanceQuest(av, q.ref, phase)), nil
}

func (w *World) nativeCompleteQuest(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	q, err := w.argQuest(args, 1)
	if err != nil {
		return nil, err
	}
	return script.Bool(w.CompleteQuestFor(av, q.ref)), nil
}

// quest_phase(avatar, quest) returns the active phase symbol or nil.
func (w *World) nativeQuestPhase(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	q, err := w.argQuest(args, 1)
	if err != nil {
		return nil, err
	}
	if st, ok := av.avatar.ActiveQuests[q.ref]; ok {
		return script.Symbol(st.Phase), nil
	}
	return script.Nil{}, nil
}

// give_item(avatar, item) places a fresh clone of an item prototype in the
// avatar's inventory.
func (w *World) nativeGiveItem(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	proto, err := argEntity(args, 1, "item")
	if err != nil {
		return nil, err
	}
	if proto.item == nil {
		return nil, fmt.Errorf("%w: give_item expects an item", script.ErrTypeMismatch)
	}
	item := proto.Clone()
	if !av.avatar.AddItem(av, item) {
		av.avatar.Enqueue(ShowError("You can't carry any more."))
		return script.Bool(false), nil
	}
	av.avatar.Enqueue(UpdateItem(ItemViewOf(item)))
	return script.Bool(true), nil
}

func (w *World) nativeAdjustSkill(args []script.Value) (script.Value, error) {
	av, err := argAvatar(args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return nil, fmt.Errorf("%w: adjust_skill needs a skill and rank", script.ErrTypeMismatch)
	}
	ref, ok := args[1].(script.RefValue)
	if !ok {
		return nil, fmt.Errorf("%w: skill must be a reference", script.ErrTypeMismatch)
	}
	rank, err := script.AsInt(args[2])
	if err != nil {
		return nil, err
	}
	w.AdjustSkill(av, ref.Ref, rank)
	return nil, nil
}
