package world

import (
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

// TriggerEvent runs the four-phase event protocol over a location-scoped
// observer set. The observer set is participants, then the location, its
// contents, and its exits, de-duplicated in that order. If any observer's
// allow handler answers false the event is vetoed, body never runs, and no
// later phase fires.
func (w *World) TriggerEvent(name string, location *Entity, participants []*Entity, args []script.Value, body func()) bool {
	observers := observerSet(location, participants)
	eventsTotal.WithLabelValues(name).Inc()

	for _, obs := range observers {
		resp := w.RespondTo(obs, script.PhaseAllow, name, args)
		if b, ok := resp.(script.Bool); ok && !bool(b) {
			return false
		}
	}
	for _, obs := range observers {
		w.RespondTo(obs, script.PhaseBefore, name, args)
	}
	if body != nil {
		body()
	}
	for _, p := range participants {
		w.RespondTo(p, script.PhaseWhen, name, args)
	}
	for _, obs := range observers {
		w.RespondTo(obs, script.PhaseAfter, name, args)
	}
	return true
}

func observerSet(location *Entity, participants []*Entity) []*Entity {
	var out []*Entity
	seen := make(map[*Entity]struct{})
	add := func(e *Entity) {
		if e == nil {
			return
		}
		if _, dup := seen[e]; dup {
			return
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for _, p := range participants {
		add(p)
	}
	add(location)
	if location != nil && location.loc != nil {
		for _, c := range location.loc.Contents {
			add(c)
		}
		for _, x := range location.loc.Exits {
			add(x)
		}
	}
	return out
}

// RespondTo offers the event to one observer: the observer is prepended to
// the arguments and the handler chain is walked from the observer up its
// prototype links. The first matching handler that returns a value ends the
// chain; fallthrough moves on; a handler that suspends on await (or errors)
// yields nil.
func (w *World) RespondTo(obs *Entity, phase script.EventPhase, name string, args []script.Value) script.Value {
	full := make([]script.Value, 0, len(args)+1)
	full = append(full, obs)
	full = append(full, args...)

	for node := obs; node != nil; node = node.proto {
		for _, fn := range node.HandlersFor(phase, name) {
			if !w.handlerMatches(fn, full) {
				continue
			}
			res, err := w.vm.Call(fn, full, nil)
			if err != nil {
				w.log.Warn("handler failed",
					zap.String("event", name),
					zap.String("handler", fn.Name),
					zap.Error(err))
				return script.Nil{}
			}
			switch res.Kind {
			case script.ResultValue:
				return res.Value
			case script.ResultAwait:
				return script.Nil{}
			case script.ResultFallthrough:
				continue
			}
		}
	}
	return script.Nil{}
}

// handlerMatches tests the parameter constraints against the full argument
// list (observer first). Arity must match exactly.
func (w *World) handlerMatches(fn *script.ScriptFunction, args []script.Value) bool {
	if len(fn.Params) != len(args) {
		return false
	}
	for i, p := range fn.Params {
		if !w.constraintMatches(p.Constraint, args[i], args[0]) {
			return false
		}
	}
	return true
}

func (w *World) constraintMatches(c script.Constraint, arg, observer script.Value) bool {
	switch c.Kind {
	case script.ConstraintNone:
		return true

	case script.ConstraintSelf:
		return script.Equal(arg, observer)

	case script.ConstraintPrototype:
		if e, ok := arg.(*Entity); ok {
			return e.Isa(c.Ref)
		}
		if q, ok := arg.(*Quest); ok {
			return q.ref == c.Ref
		}
		return false

	case script.ConstraintQuest:
		av, ok := arg.(*Entity)
		if !ok || av.avatar == nil {
			return false
		}
		return w.questPhaseMatches(av, c.Ref, c.Phase)

	case script.ConstraintRace:
		e, ok := arg.(*Entity)
		if !ok || e.creature == nil {
			return false
		}
		return e.creature.Race == c.Ref

	case script.ConstraintEquipped:
		e, ok := arg.(*Entity)
		if !ok || e.avatar == nil {
			return false
		}
		for _, item := range e.avatar.Equipped {
			if item.Isa(c.Ref) {
				return true
			}
		}
		return false
	}
	return false
}

// questPhaseMatches implements the quest-phase constraint vocabulary. The
// reserved phase names describe the avatar's relationship to the quest;
// any other name matches the avatar's current active phase.
func (w *World) questPhaseMatches(av *Entity, ref script.Ref, phase string) bool {
	a := av.avatar
	switch phase {
	case "available":
		q := w.Quest(ref)
		return q != nil && w.QuestAvailable(av, q)
	case "offered":
		offer, ok := a.Offer.(*QuestOffer)
		return ok && offer.Quest.ref == ref
	case "incomplete":
		_, active := a.ActiveQuests[ref]
		return active
	case "complete":
		_, done := a.CompletedQuests[ref]
		return done
	default:
		st, active := a.ActiveQuests[ref]
		return active && st.Phase == phase
	}
}

// QuestAvailable reports whether the avatar may accept the quest: not
// already active or completed, and at or above the quest's level gate.
func (w *World) QuestAvailable(av *Entity, q *Quest) bool {
	a := av.avatar
	if a == nil {
		return false
	}
	if _, active := a.ActiveQuests[q.ref]; active {
		return false
	}
	if _, done := a.CompletedQuests[q.ref]; done {
		return false
	}
	level := 1
	if av.creature != nil {
		level = av.creature.Level
	}
	return level >= q.MinLevel()
}
