package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwake/server/internal/script"
)

func memberString(t *testing.T, e *Entity, name string) string {
	t.Helper()
	v, ok := e.GetMember(name)
	require.True(t, ok, "member %s missing", name)
	s, ok := v.(script.String)
	require.True(t, ok, "member %s is not a string", name)
	return string(s)
}

func TestTriggerEventPhases(t *testing.T) {
	files := map[string]string{
		"hall.ws": `
deflocation hall : builtins.location {
	name = "the hall"
	log = ""

	before rumble(self, who) { self.log = self.log + "B" }
	when rumble(self, who) { self.log = self.log + "W" }
	after rumble(self, who) { self.log = self.log + "A" }
}

def witness : builtins.creature {
	name = "witness"
	log = ""
	when rumble(self, who) { self.log = self.log + "W" }
}
`,
	}
	w := buildWorld(t, newFakeStore(), "hall\n", files)
	hall := moduleEntity(t, w, "hall", "hall")
	witness := moduleEntity(t, w, "hall", "witness")

	bodyRan := false
	ok := w.TriggerEvent("rumble", hall, []*Entity{witness},
		[]script.Value{witness}, func() { bodyRan = true })

	assert.True(t, ok)
	assert.True(t, bodyRan)
	// The location observes before and after but is not a participant, so
	// its when handler never fires.
	assert.Equal(t, "BA", memberString(t, hall, "log"))
	assert.Equal(t, "W", memberString(t, witness, "log"))
}

func TestTriggerEventVeto(t *testing.T) {
	files := map[string]string{
		"hall.ws": `
deflocation hall : builtins.location {
	name = "the hall"
	log = ""

	after rumble(self, who) { self.log = self.log + "A" }
}

def warden : builtins.creature {
	name = "warden"

	allow rumble(self, who) { return false }
}
`,
	}
	w := buildWorld(t, newFakeStore(), "hall\n", files)
	hall := moduleEntity(t, w, "hall", "hall")
	warden := moduleEntity(t, w, "hall", "warden").Clone()
	hall.LocationFields().AddContent(hall, warden)

	actor := NewEntity(KindCreature)
	bodyRan := false
	ok := w.TriggerEvent("rumble", hall, nil,
		[]script.Value{actor}, func() { bodyRan = true })

	assert.False(t, ok)
	assert.False(t, bodyRan, "a veto must stop the body")
	assert.Equal(t, "", memberString(t, hall, "log"), "no later phase runs after a veto")
}

func TestRespondToFallsThroughToPrototype(t *testing.T) {
	files := map[string]string{
		"bells.ws": `
def chime : builtins.thing {
	name = "chime"

	when ring(self, who) { self.note = "base" }
}

def silver_chime : chime {
	name = "silver chime"

	when ring(self, who) {
		self.tone = "silver"
		fallthrough
	}
}
`,
	}
	w := buildWorld(t, newFakeStore(), "bells\n", files)
	silver := moduleEntity(t, w, "bells", "silver_chime")
	someone := NewEntity(KindCreature)

	w.RespondTo(silver, script.PhaseWhen, "ring", []script.Value{someone})
	assert.Equal(t, "silver", memberString(t, silver, "tone"))
	assert.Equal(t, "base", memberString(t, silver, "note"),
		"fallthrough continues up the prototype chain")
}

func TestRespondToArityMustMatch(t *testing.T) {
	files := map[string]string{
		"bells.ws": `
def chime : builtins.thing {
	name = "chime"

	when ring(self, who) { self.note = "rung" }
}
`,
	}
	w := buildWorld(t, newFakeStore(), "bells\n", files)
	chime := moduleEntity(t, w, "bells", "chime")

	// Two extra args make three with the observer; the two-param handler
	// is skipped.
	w.RespondTo(chime, script.PhaseWhen, "ring",
		[]script.Value{NewEntity(KindCreature), script.Number(1)})
	_, ok := chime.GetMember("note")
	assert.False(t, ok)
}

func questWorld(t *testing.T, store Store) *World {
	t.Helper()
	files := map[string]string{
		"village.ws": villageSrc + `
defquest first_steps {
	name = "First Steps"

	phase start {
		goal = "Speak to the guide."
	}
	phase done {
		goal = "Return."
	}
}

def guide : builtins.creature {
	name = "guide"
	article = ""

	when talk(self, who : .quest(first_steps, offered)) {
		self.result = "offered"
	}
	when talk(self, who : .quest(first_steps, available)) {
		self.result = "available"
	}
	when talk(self, who : .quest(first_steps, start)) {
		self.result = "started"
	}
	when talk(self, who : .quest(first_steps, complete)) {
		self.result = "complete"
	}
	when talk(self, who) {
		self.result = "anyone"
	}
}
`,
	}
	return buildWorld(t, store, "village\n", files)
}

func TestQuestConstraintSelectsHandler(t *testing.T) {
	w := questWorld(t, newFakeStore())
	guide := moduleEntity(t, w, "village", "guide")
	ref := script.AbsoluteRef("village", "first_steps")

	av, err := w.avatarFromRecord(1, &AvatarRecord{
		Name: "Wren", Level: 1, Location: "village.square", TutorialsOn: true,
	}, nil, nil)
	require.NoError(t, err)

	talk := func() string {
		w.RespondTo(guide, script.PhaseWhen, "talk", []script.Value{av})
		return memberString(t, guide, "result")
	}

	assert.Equal(t, "available", talk())

	av.Avatar().ActiveQuests[ref] = &QuestState{Phase: "start"}
	assert.Equal(t, "started", talk())

	av.Avatar().ActiveQuests[ref].Phase = "done"
	assert.Equal(t, "anyone", talk(), "an active quest is no longer available")

	av.Avatar().CompleteQuest(ref, w.Now())
	assert.Equal(t, "complete", talk())
}

func TestOfferedConstraint(t *testing.T) {
	w := questWorld(t, newFakeStore())
	guide := moduleEntity(t, w, "village", "guide")
	q := w.Quest(script.AbsoluteRef("village", "first_steps"))
	require.NotNil(t, q)

	av, err := w.avatarFromRecord(1, &AvatarRecord{
		Name: "Wren", Level: 1, Location: "village.square", TutorialsOn: true,
	}, nil, nil)
	require.NoError(t, err)

	talk := func() string {
		w.RespondTo(guide, script.PhaseWhen, "talk", []script.Value{av})
		return memberString(t, guide, "result")
	}

	require.True(t, w.OfferQuest(av, q))
	assert.Equal(t, "offered", talk())

	// Declining clears the offer, so the constraint falls through.
	require.True(t, w.DeclineOffer(av))
	assert.Equal(t, "available", talk())
}

func TestRaceConstraint(t *testing.T) {
	files := map[string]string{
		"village.ws": villageSrc + `
defrace elf {
	name = "Elf"
}

def sentry : builtins.creature {
	name = "sentry"

	when hail(self, who : .race(elf)) { self.result = "kin" }
	when hail(self, who) { self.result = "stranger" }
}
`,
	}
	w := buildWorld(t, newFakeStore(), "village\n", files)
	sentry := moduleEntity(t, w, "village", "sentry")

	av, err := w.avatarFromRecord(1, &AvatarRecord{
		Name: "Wren", Level: 1, Location: "village.square",
		Race: "village.elf", TutorialsOn: true,
	}, nil, nil)
	require.NoError(t, err)

	w.RespondTo(sentry, script.PhaseWhen, "hail", []script.Value{av})
	assert.Equal(t, "kin", memberString(t, sentry, "result"))

	human, err := w.avatarFromRecord(2, &AvatarRecord{
		Name: "Moss", Level: 1, Location: "village.square", TutorialsOn: true,
	}, nil, nil)
	require.NoError(t, err)
	w.RespondTo(sentry, script.PhaseWhen, "hail", []script.Value{human})
	assert.Equal(t, "stranger", memberString(t, sentry, "result"))
}

func TestEquippedConstraint(t *testing.T) {
	files := map[string]string{
		"village.ws": villageSrc + `
def doorman : builtins.creature {
	name = "doorman"

	when hail(self, who : .equipped(iron_sword)) { self.result = "armed" }
	when hail(self, who) { self.result = "unarmed" }
}
`,
	}
	w := buildWorld(t, newFakeStore(), "village\n", files)
	doorman := moduleEntity(t, w, "village", "doorman")
	sword := moduleEntity(t, w, "village", "iron_sword")

	av, err := w.avatarFromRecord(1, &AvatarRecord{
		Name: "Wren", Level: 1, Location: "village.square", TutorialsOn: true,
	}, nil, nil)
	require.NoError(t, err)

	w.RespondTo(doorman, script.PhaseWhen, "hail", []script.Value{av})
	assert.Equal(t, "unarmed", memberString(t, doorman, "result"))

	av.Avatar().Equipped["main_hand"] = sword.Clone()
	w.RespondTo(doorman, script.PhaseWhen, "hail", []script.Value{av})
	assert.Equal(t, "armed", memberString(t, doorman, "result"))
}

func TestQuestAvailableHonorsLevelGate(t *testing.T) {
	w := questWorld(t, newFakeStore())
	q := w.Quest(script.AbsoluteRef("village", "first_steps"))
	require.NotNil(t, q)
	require.NoError(t, q.SetMember("min_level", script.Number(3)))

	av, err := w.avatarFromRecord(1, &AvatarRecord{
		Name: "Wren", Level: 2, Location: "village.square", TutorialsOn: true,
	}, nil, nil)
	require.NoError(t, err)

	assert.False(t, w.QuestAvailable(av, q))
	av.Creature().Level = 3
	assert.True(t, w.QuestAvailable(av, q))
}
