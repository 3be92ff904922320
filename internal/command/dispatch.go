package command

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/emberwake/server/internal/world"
)

// MaxInputLen is the silent-drop threshold for player input.
const MaxInputLen = 1000

// maxAliasDepth bounds alias recursion.
const maxAliasDepth = 4

var commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "emberwake",
	Subsystem: "command",
	Name:      "dispatched_total",
	Help:      "Commands dispatched, by resolved verb.",
}, []string{"verb"})

// Handler runs a resolved command. args has one entry per grammar clause;
// nil marks an absent clause.
type Handler func(d *Dispatcher, actor *world.Entity, verb string, args [][]string)

// Command is a registered verb with its grammar and handler.
type Command struct {
	Grammar Grammar
	Help    string
	Run     Handler
}

type action struct {
	cmd   *Command
	alias string
}

// Dispatcher maps player input lines to command handlers. Verb selection is
// by unique prefix over a sorted verb table.
type Dispatcher struct {
	w   *world.World
	log *zap.Logger

	verbs   []string
	actions map[string]action

	commands []*Command
}

func NewDispatcher(w *world.World) *Dispatcher {
	d := &Dispatcher{
		w:       w,
		log:     w.Logger().Named("command"),
		actions: make(map[string]action),
	}
	d.registerBuiltins()
	sort.Strings(d.verbs)
	return d
}

// Register adds a command under every verb in its grammar.
func (d *Dispatcher) Register(cmd *Command) {
	d.commands = append(d.commands, cmd)
	for _, v := range cmd.Grammar.Verbs {
		d.addVerb(v, action{cmd: cmd})
	}
}

// RegisterAlias maps a verb to a fixed replacement input; dispatch recurses
// on the replacement with the rest of the input appended.
func (d *Dispatcher) RegisterAlias(verb, replacement string) {
	d.addVerb(verb, action{alias: replacement})
}

func (d *Dispatcher) addVerb(verb string, a action) {
	verb = strings.ToLower(verb)
	if _, dup := d.actions[verb]; dup {
		d.log.Warn("duplicate verb registration", zap.String("verb", verb))
		return
	}
	d.actions[verb] = a
	d.verbs = append(d.verbs, verb)
}

// Dispatch handles one input line from an avatar. Over-long input is
// silently dropped.
func (d *Dispatcher) Dispatch(actor *world.Entity, input string) {
	if len(input) > MaxInputLen {
		return
	}
	d.dispatch(actor, input, 0)
}

func (d *Dispatcher) dispatch(actor *world.Entity, input string, depth int) {
	if depth > maxAliasDepth {
		d.log.Warn("alias recursion too deep", zap.String("input", input))
		return
	}
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return
	}
	candidate := strings.ToLower(tokens[0])

	verb, ok := d.selectVerb(actor, candidate)
	if !ok {
		return
	}
	a := d.actions[verb]
	if a.alias != "" {
		rest := strings.Join(tokens[1:], " ")
		replacement := a.alias
		if rest != "" {
			replacement += " " + rest
		}
		d.dispatch(actor, replacement, depth+1)
		return
	}
	commandsTotal.WithLabelValues(verb).Inc()
	args := a.cmd.Grammar.Bind(tokens[1:])
	a.cmd.Run(d, actor, verb, args)
}

// selectVerb resolves a candidate token to a registered verb: exact match
// first, then a unique prefix. Ambiguity and unknown verbs are reported to
// the player.
func (d *Dispatcher) selectVerb(actor *world.Entity, candidate string) (string, bool) {
	i := sort.SearchStrings(d.verbs, candidate)
	if i < len(d.verbs) && d.verbs[i] == candidate {
		return candidate, true
	}
	var matches []string
	for ; i < len(d.verbs) && strings.HasPrefix(d.verbs[i], candidate); i++ {
		matches = append(matches, d.verbs[i])
	}
	switch len(matches) {
	case 1:
		return matches[0], true
	case 0:
		d.tell(actor, world.ShowError("Unknown command \""+candidate+"\"."))
		return "", false
	default:
		d.tell(actor, world.ShowError(
			"Ambiguous command \""+candidate+"\". Did you mean "+joinOr(matches)+"?"))
		return "", false
	}
}

func joinOr(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	}
	return strings.Join(words[:len(words)-1], ", ") + " or " + words[len(words)-1]
}

func (d *Dispatcher) tell(actor *world.Entity, u world.ClientUpdate) {
	if a := actor.Avatar(); a != nil {
		a.Enqueue(u)
	}
}
