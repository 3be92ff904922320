package world

import (
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

// OfferQuest presents a quest to the avatar, replacing any pending offer
// and cancelling any activity. The client receives the offer text with
// accept/decline links.
func (w *World) OfferQuest(av *Entity, q *Quest) bool {
	a := av.avatar
	if a == nil || !w.QuestAvailable(av, q) {
		return false
	}
	w.CancelInteractions(av)
	offer := &QuestOffer{Quest: q}
	a.Offer = offer
	a.Enqueue(ShowLinks(offer.OfferText(), []Link{
		{Text: "Accept", Command: "accept"},
		{Text: "Decline", Command: "decline"},
	}))
	return true
}

// AcceptOffer resolves the pending offer positively.
func (w *World) AcceptOffer(av *Entity) bool {
	a := av.avatar
	offer := a.Offer
	if offer == nil {
		a.Enqueue(ShowError("You have nothing to accept."))
		return false
	}
	offer.Accept(w, av)
	return true
}

// DeclineOffer resolves the pending offer negatively.
func (w *World) DeclineOffer(av *Entity) bool {
	a := av.avatar
	offer := a.Offer
	if offer == nil {
		a.Enqueue(ShowError("You have nothing to decline."))
		return false
	}
	offer.Decline(w, av)
	return true
}

// AdvanceQuest moves an active quest to the named phase, or to the next
// phase when phase is empty. Advancing past the final phase completes the
// quest.
func (w *World) AdvanceQuest(av *Entity, ref script.Ref, phase string) bool {
	a := av.avatar
	st, active := a.ActiveQuests[ref]
	if !active {
		return false
	}
	q := w.Quest(ref)
	if q == nil {
		w.log.Warn("active quest missing definition", zap.String("quest", ref.String()))
		return false
	}
	var next *QuestPhase
	if phase == "" {
		next = q.PhaseAfter(st.Phase)
		if next == nil {
			return w.CompleteQuestFor(av, ref)
		}
	} else {
		next = q.Phase(phase)
		if next == nil {
			w.log.Warn("quest phase not defined",
				zap.String("quest", ref.String()), zap.String("phase", phase))
			return false
		}
	}
	st.Phase = next.name
	st.Progress = 0
	a.Enqueue(UpdateQuest(QuestView{Quest: ref.String(), Name: q.QuestName(), Phase: st.Phase}))
	return true
}

// CompleteQuestFor finishes an active quest, journaling the completion and
// dispatching a complete_quest event at the avatar's location.
func (w *World) CompleteQuestFor(av *Entity, ref script.Ref) bool {
	a := av.avatar
	if _, active := a.ActiveQuests[ref]; !active {
		return false
	}
	q := w.Quest(ref)
	name := ref.Name
	if q != nil {
		name = q.QuestName()
	}
	w.TriggerEvent("complete_quest", av.Location(), []*Entity{av},
		[]script.Value{av, questArg(q, ref)}, func() {
			a.CompleteQuest(ref, w.now())
		})
	a.Enqueue(RemoveQuest(ref.String()))
	a.Enqueue(ShowNotice("Quest complete: " + name + "."))
	questsCompletedTotal.Inc()
	return true
}

func questArg(q *Quest, ref script.Ref) script.Value {
	if q != nil {
		return q
	}
	return script.RefValue{Ref: ref}
}

// AdjustSkill raises (or sets) a skill rank and pushes the journal row.
func (w *World) AdjustSkill(av *Entity, ref script.Ref, rank int) {
	a := av.avatar
	if rank <= 0 {
		delete(a.Skills, ref)
		a.Enqueue(RemoveSkill(ref.String()))
		return
	}
	a.Skills[ref] = rank
	a.Enqueue(UpdateSkill(SkillView{Skill: ref.String(), Rank: rank}))
}
