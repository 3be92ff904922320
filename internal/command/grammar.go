package command

import (
	"strings"
)

// ClauseKind distinguishes the three clause shapes a grammar may declare.
type ClauseKind int

const (
	// ClausePhrase consumes a prepositional phrase of one or more tokens.
	ClausePhrase ClauseKind = iota
	// ClauseWord consumes exactly one token.
	ClauseWord
	// ClauseRest consumes the remainder of the input as one string.
	ClauseRest
)

// Clause is one slot in a command grammar.
type Clause struct {
	Kind  ClauseKind
	Preps []string
	Name  string
}

// Grammar is a verb list plus the ordered clauses that bind the rest of the
// input. Built from a compact spec string, e.g.
//
//	"look|l at:target with|using|through:tool"
//	"say *:text"
//	"tutorial 1:setting"
type Grammar struct {
	Verbs   []string
	Clauses []Clause
}

// ParseGrammar builds a grammar from its spec string. The first field is
// the |-separated verb list; each further field is a clause: "1:name" for a
// single word, "*:name" for rest-of-line, "prep|prep:name" or a bare name
// for a phrase.
func ParseGrammar(spec string) Grammar {
	fields := strings.Fields(spec)
	g := Grammar{}
	if len(fields) == 0 {
		return g
	}
	g.Verbs = strings.Split(fields[0], "|")
	for _, f := range fields[1:] {
		colon := strings.LastIndexByte(f, ':')
		if colon < 0 {
			g.Clauses = append(g.Clauses, Clause{Kind: ClausePhrase, Name: f})
			continue
		}
		head, name := f[:colon], f[colon+1:]
		switch head {
		case "1":
			g.Clauses = append(g.Clauses, Clause{Kind: ClauseWord, Name: name})
		case "*":
			g.Clauses = append(g.Clauses, Clause{Kind: ClauseRest, Name: name})
		case "":
			g.Clauses = append(g.Clauses, Clause{Kind: ClausePhrase, Name: name})
		default:
			g.Clauses = append(g.Clauses, Clause{
				Kind:  ClausePhrase,
				Preps: strings.Split(head, "|"),
				Name:  name,
			})
		}
	}
	return g
}

// Bind parses the tokens after the verb into one value per clause. A phrase
// binds to its token list, a word or rest clause to a single-element list;
// an absent clause binds nil. The first phrase clause may appear without
// its preposition; any phrase ends at a token that introduces a later
// clause.
func (g Grammar) Bind(tokens []string) [][]string {
	out := make([][]string, len(g.Clauses))
	firstPhrase := -1
	for i, c := range g.Clauses {
		if c.Kind == ClausePhrase {
			firstPhrase = i
			break
		}
	}

	i := 0
	for ci, c := range g.Clauses {
		if i >= len(tokens) {
			break
		}
		switch c.Kind {
		case ClauseWord:
			out[ci] = []string{tokens[i]}
			i++
		case ClauseRest:
			out[ci] = []string{strings.Join(tokens[i:], " ")}
			i = len(tokens)
		case ClausePhrase:
			if g.laterPrep(ci, tokens[i]) {
				continue
			}
			if hasWord(c.Preps, tokens[i]) {
				i++
			} else if len(c.Preps) > 0 && ci != firstPhrase {
				continue
			}
			start := i
			for i < len(tokens) && !g.laterPrep(ci, tokens[i]) {
				i++
			}
			if i > start {
				out[ci] = tokens[start:i]
			}
		}
	}
	return out
}

// laterPrep reports whether the token introduces a clause after index ci.
func (g Grammar) laterPrep(ci int, token string) bool {
	for _, c := range g.Clauses[ci+1:] {
		if hasWord(c.Preps, token) {
			return true
		}
	}
	return false
}

func hasWord(words []string, w string) bool {
	for _, x := range words {
		if strings.EqualFold(x, w) {
			return true
		}
	}
	return false
}
