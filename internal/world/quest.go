package world

import (
	"github.com/emberwake/server/internal/script"
)

// Quest is a module-defined quest with an ordered list of phases. Quests are
// script objects so handlers can read their members, but they are not
// entities and never appear in a location.
type Quest struct {
	ref     script.Ref
	name    string
	phases  []*QuestPhase
	members map[string]script.Value
}

// QuestPhase is one named stage of a quest with its own members.
type QuestPhase struct {
	name    string
	members map[string]script.Value
}

func NewQuest(ref script.Ref) *Quest {
	return &Quest{ref: ref, members: make(map[string]script.Value)}
}

func (q *Quest) Ref() script.Ref       { return q.ref }
func (q *Quest) QuestName() string     { return q.name }
func (q *Quest) Phases() []*QuestPhase { return q.phases }

func (q *Quest) AddPhase(name string) *QuestPhase {
	p := &QuestPhase{name: name, members: make(map[string]script.Value)}
	q.phases = append(q.phases, p)
	return p
}

// Phase returns the named phase, or nil.
func (q *Quest) Phase(name string) *QuestPhase {
	for _, p := range q.phases {
		if p.name == name {
			return p
		}
	}
	return nil
}

// PhaseAfter returns the phase following the named one, or nil when the
// named phase is last or unknown.
func (q *Quest) PhaseAfter(name string) *QuestPhase {
	for i, p := range q.phases {
		if p.name == name && i+1 < len(q.phases) {
			return q.phases[i+1]
		}
	}
	return nil
}

func (q *Quest) Kind() script.Kind       { return script.KindObject }
func (q *Quest) Delegate() script.Object { return nil }

func (q *Quest) GetMember(name string) (script.Value, bool) {
	switch name {
	case "name":
		return script.String(q.name), true
	case "ref":
		return script.RefValue{Ref: q.ref}, true
	}
	v, ok := q.members[name]
	return v, ok
}

func (q *Quest) SetMember(name string, v script.Value) error {
	if name == "name" {
		s, err := wantString(v)
		if err != nil {
			return err
		}
		q.name = s
		return nil
	}
	q.members[name] = v
	return nil
}

// BriefName lets quests appear in prose by their display name.
func (q *Quest) BriefName() (article, noun string) {
	if q.name != "" {
		return "", q.name
	}
	return "", q.ref.Name
}

// MinLevel reads the optional level gate member, defaulting to 1.
func (q *Quest) MinLevel() int {
	if v, ok := q.members["min_level"]; ok {
		if n, err := script.AsInt(v); err == nil {
			return n
		}
	}
	return 1
}

func (p *QuestPhase) PhaseName() string       { return p.name }
func (p *QuestPhase) Kind() script.Kind       { return script.KindObject }
func (p *QuestPhase) Delegate() script.Object { return nil }

func (p *QuestPhase) GetMember(name string) (script.Value, bool) {
	if name == "name" {
		return script.Symbol(p.name), true
	}
	v, ok := p.members[name]
	return v, ok
}

func (p *QuestPhase) SetMember(name string, v script.Value) error {
	p.members[name] = v
	return nil
}

// QuestState is an avatar's progress in one active quest.
type QuestState struct {
	Phase    string
	Progress int
}

// QuestOffer is a pending quest proposal awaiting accept or decline.
type QuestOffer struct {
	Quest *Quest
}

func (o *QuestOffer) OfferText() string {
	return "Accept the quest \"" + o.Quest.QuestName() + "\"?"
}

// Accept moves the quest into the avatar's active set at the first phase.
func (o *QuestOffer) Accept(w *World, av *Entity) {
	a := av.Avatar()
	a.Offer = nil
	phase := "start"
	if len(o.Quest.phases) > 0 {
		phase = o.Quest.phases[0].name
	}
	a.ActiveQuests[o.Quest.ref] = &QuestState{Phase: phase}
	a.Enqueue(ShowNotice("Quest accepted: " + o.Quest.QuestName() + "."))
	a.Enqueue(UpdateQuest(QuestView{
		Quest: o.Quest.ref.String(),
		Name:  o.Quest.QuestName(),
		Phase: phase,
	}))
}

// Decline clears the offer without side effects.
func (o *QuestOffer) Decline(w *World, av *Entity) {
	a := av.Avatar()
	a.Offer = nil
	a.Enqueue(ShowNotice("Quest declined: " + o.Quest.QuestName() + "."))
}

// Race is a playable or NPC race definition.
type Race struct {
	ref     script.Ref
	name    string
	members map[string]script.Value
}

func NewRace(ref script.Ref) *Race {
	return &Race{ref: ref, members: make(map[string]script.Value)}
}

func (r *Race) Ref() script.Ref  { return r.ref }
func (r *Race) RaceName() string { return r.name }

func (r *Race) Kind() script.Kind       { return script.KindObject }
func (r *Race) Delegate() script.Object { return nil }

func (r *Race) GetMember(name string) (script.Value, bool) {
	switch name {
	case "name":
		return script.String(r.name), true
	case "ref":
		return script.RefValue{Ref: r.ref}, true
	}
	v, ok := r.members[name]
	return v, ok
}

func (r *Race) SetMember(name string, v script.Value) error {
	if name == "name" {
		s, err := wantString(v)
		if err != nil {
			return err
		}
		r.name = s
		return nil
	}
	r.members[name] = v
	return nil
}

func (r *Race) BriefName() (article, noun string) {
	if r.name != "" {
		return "", r.name
	}
	return "", r.ref.Name
}
