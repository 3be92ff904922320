package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/server/internal/script"
)

func TestOfferAcceptLifecycle(t *testing.T) {
	store := newFakeStore()
	w := questWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")

	ref := script.AbsoluteRef("village", "first_steps")
	q := w.Quest(ref)
	require.NotNil(t, q)

	require.True(t, w.OfferQuest(av, q))
	assert.False(t, w.OfferQuest(av, q), "an offered quest is no longer available")

	require.True(t, w.AcceptOffer(av))
	st := av.Avatar().ActiveQuests[ref]
	require.NotNil(t, st)
	assert.Equal(t, "start", st.Phase, "accepting starts at the first phase")
	assert.Nil(t, av.Avatar().Offer)
}

func TestOfferDecline(t *testing.T) {
	store := newFakeStore()
	w := questWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")

	ref := script.AbsoluteRef("village", "first_steps")
	q := w.Quest(ref)
	require.True(t, w.OfferQuest(av, q))
	require.True(t, w.DeclineOffer(av))

	assert.NotContains(t, av.Avatar().ActiveQuests, ref)
	assert.False(t, w.AcceptOffer(av), "nothing left to accept")
}

func TestAdvanceQuestThroughPhases(t *testing.T) {
	store := newFakeStore()
	w := questWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	ref := script.AbsoluteRef("village", "first_steps")
	assert.False(t, w.AdvanceQuest(av, ref, ""), "inactive quests cannot advance")

	a.ActiveQuests[ref] = &QuestState{Phase: "start", Progress: 2}
	require.True(t, w.AdvanceQuest(av, ref, ""))
	assert.Equal(t, "done", a.ActiveQuests[ref].Phase)
	assert.Equal(t, 0, a.ActiveQuests[ref].Progress, "a phase change resets progress")

	// Advancing past the last phase completes the quest.
	require.True(t, w.AdvanceQuest(av, ref, ""))
	assert.NotContains(t, a.ActiveQuests, ref)
	assert.Contains(t, a.CompletedQuests, ref)
}

func TestAdvanceQuestToNamedPhase(t *testing.T) {
	store := newFakeStore()
	w := questWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	ref := script.AbsoluteRef("village", "first_steps")
	a.ActiveQuests[ref] = &QuestState{Phase: "start"}

	assert.False(t, w.AdvanceQuest(av, ref, "no_such_phase"))
	assert.Equal(t, "start", a.ActiveQuests[ref].Phase)

	require.True(t, w.AdvanceQuest(av, ref, "done"))
	assert.Equal(t, "done", a.ActiveQuests[ref].Phase)
}

func TestCompleteQuestForRequiresActive(t *testing.T) {
	store := newFakeStore()
	w := questWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")

	ref := script.AbsoluteRef("village", "first_steps")
	assert.False(t, w.CompleteQuestFor(av, ref))

	av.Avatar().ActiveQuests[ref] = &QuestState{Phase: "done"}
	require.True(t, w.CompleteQuestFor(av, ref))
	assert.Contains(t, av.Avatar().NewCompletions, ref)
}

func TestAdjustSkill(t *testing.T) {
	store := newFakeStore()
	w := questWorld(t, store)
	av, _ := enterTestAvatar(t, w, store, "Wren", "")
	a := av.Avatar()

	skill := script.AbsoluteRef("village", "herbalism")
	w.AdjustSkill(av, skill, 2)
	assert.Equal(t, 2, a.Skills[skill])

	w.AdjustSkill(av, skill, 0)
	assert.NotContains(t, a.Skills, skill)
}
