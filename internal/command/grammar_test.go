package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrammarShapes(t *testing.T) {
	g := ParseGrammar("look|examine at:target with|using|through:tool")
	assert.Equal(t, []string{"look", "examine"}, g.Verbs)
	require.Len(t, g.Clauses, 2)
	assert.Equal(t, ClausePhrase, g.Clauses[0].Kind)
	assert.Equal(t, []string{"at"}, g.Clauses[0].Preps)
	assert.Equal(t, "target", g.Clauses[0].Name)
	assert.Equal(t, []string{"with", "using", "through"}, g.Clauses[1].Preps)

	g = ParseGrammar("say *:text")
	require.Len(t, g.Clauses, 1)
	assert.Equal(t, ClauseRest, g.Clauses[0].Kind)

	g = ParseGrammar("tutorial 1:setting")
	require.Len(t, g.Clauses, 1)
	assert.Equal(t, ClauseWord, g.Clauses[0].Kind)

	g = ParseGrammar("go|walk direction")
	require.Len(t, g.Clauses, 1)
	assert.Equal(t, ClausePhrase, g.Clauses[0].Kind)
	assert.Empty(t, g.Clauses[0].Preps)

	g = ParseGrammar("inventory")
	assert.Empty(t, g.Clauses)
}

func TestBindPhrases(t *testing.T) {
	g := ParseGrammar("look at:target with|using:tool")

	args := g.Bind([]string{"at", "red", "door", "with", "key"})
	assert.Equal(t, [][]string{{"red", "door"}, {"key"}}, args)

	// The first phrase may drop its preposition.
	args = g.Bind([]string{"red", "door"})
	assert.Equal(t, [][]string{{"red", "door"}, nil}, args)

	// A later clause's preposition ends the first phrase.
	args = g.Bind([]string{"door", "using", "brass", "key"})
	assert.Equal(t, [][]string{{"door"}, {"brass", "key"}}, args)

	// The tool clause can appear alone.
	args = g.Bind([]string{"with", "torch"})
	assert.Equal(t, [][]string{nil, {"torch"}}, args)

	args = g.Bind(nil)
	assert.Equal(t, [][]string{nil, nil}, args)
}

func TestBindRestJoinsLine(t *testing.T) {
	g := ParseGrammar("say *:text")
	args := g.Bind([]string{"hello", "to", "all", "of", "you"})
	assert.Equal(t, [][]string{{"hello to all of you"}}, args)
}

func TestBindWordTakesOneToken(t *testing.T) {
	g := ParseGrammar("tutorial 1:setting")
	args := g.Bind([]string{"off", "extra"})
	assert.Equal(t, [][]string{{"off"}}, args)
}

func TestBindPrepositionsAreCaseInsensitive(t *testing.T) {
	g := ParseGrammar("give item to:recipient")
	args := g.Bind([]string{"herb", "TO", "the", "guide"})
	assert.Equal(t, [][]string{{"herb"}, {"the", "guide"}}, args)
}

func TestJoinOr(t *testing.T) {
	assert.Equal(t, "", joinOr(nil))
	assert.Equal(t, "go", joinOr([]string{"go"}))
	assert.Equal(t, "go or get", joinOr([]string{"go", "get"}))
	assert.Equal(t, "gather, get or go", joinOr([]string{"gather", "get", "go"}))
}
