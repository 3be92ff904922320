package world

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

func TestParseManifest(t *testing.T) {
	in := `
# world content
core
zones/
	village
	forest.ws
extra
`
	paths, err := ParseManifest(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"core.ws",
		"zones/village.ws",
		"zones/forest.ws",
		"extra.ws",
	}, paths)
}

func TestParseManifestDirResetsOnUnindented(t *testing.T) {
	in := "zones/\n\tvillage\nplain\n"
	paths, err := ParseManifest(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"zones/village.ws", "plain.ws"}, paths)
}

func TestLoadWorldMissingManifest(t *testing.T) {
	w := New(zap.NewNop(), newFakeStore())
	assert.Error(t, w.LoadWorld(t.TempDir()))
}

func TestLoadWorldReportsAuthoringErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MODULES"), []byte("broken\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.ws"),
		[]byte("def thing : no_such_proto {\n\tname = \"thing\"\n}\n"), 0o644))

	w := New(zap.NewNop(), newFakeStore())
	err := w.LoadWorld(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "errors")
}

func TestLoadWorldBindsDefinitions(t *testing.T) {
	w := villageWorld(t, newFakeStore())

	m := w.Module("village")
	require.NotNil(t, m)
	assert.Equal(t, []string{"village"}, w.ModuleNames())

	herb := moduleEntity(t, w, "village", "herb")
	assert.Equal(t, "herb", herb.Thing().Name)
	assert.Equal(t, 5, herb.Item().StackLimit)
	assert.Equal(t, script.AbsoluteRef("village", "herb"), herb.Ref())

	// deflocation feeds the startable set in definition order.
	starts := w.Startable()
	require.Len(t, starts, 3)
	assert.Equal(t, "square", starts[0].Ref().Name)
}

func TestLoadWorldDefaultsStartLocation(t *testing.T) {
	w := villageWorld(t, newFakeStore())
	assert.Equal(t, script.AbsoluteRef("village", "square"), w.startLoc)
}

func TestLoadWorldTwinsPortals(t *testing.T) {
	w := villageWorld(t, newFakeStore())
	square := moduleEntity(t, w, "village", "square")
	gate := moduleEntity(t, w, "village", "gate")

	north := square.LocationFields().ExitIn(DirNorth)
	require.NotNil(t, north)
	south := gate.LocationFields().ExitIn(DirSouth)
	require.NotNil(t, south)

	assert.Same(t, south, north.Portal().Twin)
	assert.Same(t, north, south.Portal().Twin)
	assert.Equal(t, script.AbsoluteRef("village", "gate"), north.Portal().Dest)

	down := square.LocationFields().ExitIn(DirDown)
	require.NotNil(t, down)
	assert.True(t, down.Portal().Oneway)
	assert.Nil(t, down.Portal().Twin, "oneway portals are never twinned")
}

func TestLoadWorldExtend(t *testing.T) {
	files := map[string]string{
		"village.ws": villageSrc,
		"extras.ws": `
extend village.herb {
	potency = 2
}
`,
	}
	w := buildWorld(t, newFakeStore(), "village\nextras\n", files)
	herb := moduleEntity(t, w, "village", "herb")
	v, ok := herb.GetMember("potency")
	require.True(t, ok)
	assert.Equal(t, script.Number(2), v)
}

func TestLoadWorldRegistersQuests(t *testing.T) {
	files := map[string]string{
		"village.ws": villageSrc + `
defquest first_steps {
	name = "First Steps"
	min_level = 2

	phase start {
		goal = "Speak to the guide."
	}
	phase done {
		goal = "Return."
	}
}
`,
	}
	w := buildWorld(t, newFakeStore(), "village\n", files)

	q := w.Quest(script.AbsoluteRef("village", "first_steps"))
	require.NotNil(t, q)
	assert.Equal(t, "First Steps", q.QuestName())
	assert.Equal(t, 2, q.MinLevel())
	require.Len(t, q.Phases(), 2)
	assert.Equal(t, "start", q.Phases()[0].PhaseName())
	assert.NotNil(t, q.PhaseAfter("start"))
	assert.Nil(t, q.PhaseAfter("done"))
}

func TestLoadWorldModuleFunctions(t *testing.T) {
	files := map[string]string{
		"village.ws": villageSrc + `
func greeting(who) {
	return "Well met, {who:D}."
}

def greeter : builtins.creature {
	name = "greeter"
	line = greeting
}
`,
	}
	w := buildWorld(t, newFakeStore(), "village\n", files)
	m := w.Module("village")
	v, ok := m.Lookup("greeting")
	require.True(t, ok)
	_, isFn := v.(*script.ScriptFunction)
	assert.True(t, isFn)
}
