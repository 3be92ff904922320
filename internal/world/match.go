package world

import (
	"strings"
)

// MatchQuality ranks how well a noun phrase fits an entity. Exact beats
// prefix; a phrase only matches when every word matches some name word.
type MatchQuality int

const (
	MatchNone MatchQuality = iota
	MatchPrefix
	MatchExact
)

// MatchResult is the outcome of matching a phrase against candidates.
type MatchResult struct {
	Quality MatchQuality
	Matches []*Entity
}

// Unique reports a single unambiguous best match.
func (r MatchResult) Unique() (*Entity, bool) {
	if len(r.Matches) == 1 {
		return r.Matches[0], true
	}
	return nil, false
}

// MatchPhrase ranks each candidate against the phrase and keeps the best
// quality tier. Leading articles in the phrase are ignored.
func MatchPhrase(phrase []string, candidates []*Entity) MatchResult {
	words := stripArticles(phrase)
	result := MatchResult{Quality: MatchNone}
	if len(words) == 0 {
		return result
	}
	for _, c := range candidates {
		q := matchEntity(words, c)
		if q == MatchNone || q < result.Quality {
			continue
		}
		if q > result.Quality {
			result.Quality = q
			result.Matches = result.Matches[:0]
		}
		result.Matches = append(result.Matches, c)
	}
	return result
}

func stripArticles(phrase []string) []string {
	out := make([]string, 0, len(phrase))
	for _, w := range phrase {
		lw := strings.ToLower(w)
		if lw == "a" || lw == "an" || lw == "the" {
			continue
		}
		out = append(out, lw)
	}
	return out
}

// matchEntity checks every phrase word against the entity's name words and
// aliases. The weakest word match bounds the overall quality.
func matchEntity(words []string, e *Entity) MatchQuality {
	targets := nameWords(e)
	if len(targets) == 0 {
		return MatchNone
	}
	quality := MatchExact
	for _, w := range words {
		q := matchWord(w, targets)
		if q == MatchNone {
			return MatchNone
		}
		if q < quality {
			quality = q
		}
	}
	return quality
}

func matchWord(w string, targets []string) MatchQuality {
	best := MatchNone
	for _, t := range targets {
		if t == w {
			return MatchExact
		}
		if strings.HasPrefix(t, w) {
			best = MatchPrefix
		}
	}
	return best
}

// nameWords collects the matchable vocabulary for an entity: its name words,
// its aliases, and for portals the direction name.
func nameWords(e *Entity) []string {
	var out []string
	if e.thing != nil {
		for _, w := range strings.Fields(strings.ToLower(e.thing.Name)) {
			out = append(out, w)
		}
		for _, a := range e.thing.Aliases {
			out = append(out, strings.ToLower(a))
		}
	}
	if e.portal != nil {
		out = append(out, e.portal.Direction.String())
	}
	return out
}

// VisibleTo returns the entities the avatar can currently refer to: its
// location's contents and exits, then its own inventory. The avatar itself
// is excluded.
func VisibleTo(av *Entity) []*Entity {
	var out []*Entity
	if loc := av.Location(); loc != nil && loc.loc != nil {
		for _, c := range loc.loc.Contents {
			if c != av {
				out = append(out, c)
			}
		}
		out = append(out, loc.loc.Exits...)
	}
	if av.avatar != nil {
		out = append(out, av.avatar.Inventory...)
	}
	return out
}
