package world

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

// ScriptExt is the wyrdscript source extension.
const ScriptExt = ".ws"

// ParseManifest reads a MODULES manifest. Non-comment lines either name a
// directory (trailing slash) or a module file; indented entries belong to
// the most recently named directory, non-indented entries reset it.
func ParseManifest(r io.Reader) ([]string, error) {
	var paths []string
	dir := ""
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, "/") {
			dir = strings.TrimSuffix(line, "/")
			continue
		}
		indented := raw != line && (raw[0] == ' ' || raw[0] == '\t')
		if !indented {
			dir = ""
		}
		if filepath.Ext(line) == "" {
			line += ScriptExt
		}
		if dir != "" && indented {
			line = dir + "/" + line
		}
		paths = append(paths, line)
	}
	return paths, sc.Err()
}

// parsedModule pairs a module tree with the set of names it declares, known
// before any evaluation so forward references within the module resolve.
type parsedModule struct {
	path     string
	ast      *script.ModuleAST
	declared map[string]struct{}
}

func declaredNames(ast *script.ModuleAST) map[string]struct{} {
	names := make(map[string]struct{})
	for _, d := range ast.Entities {
		names[d.Name] = struct{}{}
	}
	for _, d := range ast.Quests {
		names[d.Name] = struct{}{}
	}
	for _, d := range ast.Races {
		names[d.Name] = struct{}{}
	}
	for _, d := range ast.Funcs {
		names[d.Name] = struct{}{}
	}
	return names
}

type loader struct {
	w      *World
	log    *zap.Logger
	errors int
}

func (ld *loader) errorf(path, format string, args ...any) {
	ld.errors++
	ld.log.Error("load error",
		zap.String("file", path),
		zap.String("detail", fmt.Sprintf(format, args...)))
}

// LoadWorld reads the MODULES manifest under dir, parses and evaluates every
// module, then twins portals. Loading is best-effort: authoring errors are
// logged and counted, and the load fails only at the end.
func (w *World) LoadWorld(dir string) error {
	f, err := os.Open(filepath.Join(dir, "MODULES"))
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	paths, err := ParseManifest(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	ld := &loader{w: w, log: w.log.Named("loader")}

	var parsed []*parsedModule
	for _, p := range paths {
		src, err := os.ReadFile(filepath.Join(dir, p))
		if err != nil {
			ld.errorf(p, "%v", err)
			continue
		}
		name := moduleNameOf(p)
		parser := script.NewParser(string(src))
		ast, ok := parser.Parse(name)
		if !ok {
			for _, pe := range parser.Errors() {
				ld.errorf(p, "%s", pe.Error())
			}
		}
		parsed = append(parsed, &parsedModule{path: p, ast: ast, declared: declaredNames(ast)})
	}

	for _, pm := range parsed {
		ld.evalModule(pm)
	}
	ld.twinPortals()

	if w.startLoc.IsZero() && len(w.startable) > 0 {
		w.startLoc = w.startable[0].ref
	}
	ld.log.Info("world loaded",
		zap.Int("modules", len(parsed)),
		zap.Int("startable", len(w.startable)),
		zap.Int("errors", ld.errors))
	if ld.errors > 0 {
		return fmt.Errorf("world load failed with %d errors", ld.errors)
	}
	return nil
}

func moduleNameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// evalModule evaluates one module's definitions: functions first so entity
// initializers can call them, then races, quests, entities, and extensions.
func (ld *loader) evalModule(pm *parsedModule) {
	m := NewModule(pm.ast.Name)
	ld.w.AddModule(m)

	for _, d := range pm.ast.Funcs {
		fn, err := script.CompileFunction(m.name+"."+d.Name, d.Params, d.Body)
		if err != nil {
			ld.errorf(pm.path, "func %s: %v", d.Name, err)
			continue
		}
		ld.rewriteFunction(fn, pm)
		m.Bind(d.Name, fn)
	}
	for _, d := range pm.ast.Races {
		ld.evalRace(m, pm, d)
	}
	for _, d := range pm.ast.Quests {
		ld.evalQuest(m, pm, d)
	}
	for _, d := range pm.ast.Entities {
		ld.evalEntity(m, pm, d)
	}
	for _, d := range pm.ast.Extends {
		ld.evalExtend(m, pm, d)
	}
}

// resolveProto finds an entity prototype: relative names prefer the current
// module, then builtins.
func (ld *loader) resolveProto(m *Module, pm *parsedModule, ref script.Ref) (*Entity, error) {
	var v script.Value
	var ok bool
	if ref.IsAbsolute() {
		var err error
		v, err = ld.w.ResolveRef(ref)
		if err != nil {
			return nil, err
		}
		ok = true
	} else {
		if v, ok = m.Lookup(ref.Name); !ok {
			v, ok = ld.w.builtins.Lookup(ref.Name)
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", script.ErrUndefinedReference, ref)
	}
	e, isEntity := v.(*Entity)
	if !isEntity {
		return nil, fmt.Errorf("%w: prototype %s is not an entity", script.ErrTypeMismatch, ref)
	}
	return e, nil
}

func (ld *loader) evalEntity(m *Module, pm *parsedModule, d *script.EntityDef) {
	proto, err := ld.resolveProto(m, pm, d.Proto)
	if err != nil {
		ld.errorf(pm.path, "def %s: %v", d.Name, err)
		return
	}
	e := proto.Clone()
	e.ref = script.AbsoluteRef(m.name, d.Name)

	ld.runInitializers(m, pm, d.Name, d.Members, e)
	ld.attachHandlers(m, pm, d.Name, d.Handlers, e)
	ld.attachMethods(m, pm, d.Name, d.Methods, e)
	ld.normalizeEntityRefs(e, pm, m.name)

	m.Bind(d.Name, e)
	if d.Startable {
		if e.loc == nil {
			ld.errorf(pm.path, "deflocation %s: prototype is not a location", d.Name)
		} else {
			ld.w.AddStartable(e)
		}
	}
}

func (ld *loader) evalExtend(m *Module, pm *parsedModule, d *script.ExtendDef) {
	target := d.Target
	if !target.IsAbsolute() {
		target = script.AbsoluteRef(m.name, target.Name)
	}
	v, err := ld.w.ResolveRef(target)
	if err != nil {
		ld.errorf(pm.path, "extend %s: %v", d.Target, err)
		return
	}
	e, ok := v.(*Entity)
	if !ok {
		ld.errorf(pm.path, "extend %s: not an entity", d.Target)
		return
	}
	ld.runInitializers(m, pm, target.Name, d.Members, e)
	ld.attachHandlers(m, pm, target.Name, d.Handlers, e)
	ld.attachMethods(m, pm, target.Name, d.Methods, e)
	ld.normalizeEntityRefs(e, pm, m.name)
}

func (ld *loader) evalQuest(m *Module, pm *parsedModule, d *script.QuestDef) {
	q := NewQuest(script.AbsoluteRef(m.name, d.Name))
	ld.runObjectInitializers(m, pm, d.Name, d.Members, q, []script.Object{m, q})
	for _, pd := range d.Phases {
		p := q.AddPhase(pd.Name)
		ld.runObjectInitializers(m, pm, d.Name+"."+pd.Name, pd.Members, p, []script.Object{m, q, p})
	}
	m.Bind(d.Name, q)
	ld.w.RegisterQuest(q)
}

func (ld *loader) evalRace(m *Module, pm *parsedModule, d *script.RaceDef) {
	r := NewRace(script.AbsoluteRef(m.name, d.Name))
	ld.runObjectInitializers(m, pm, d.Name, d.Members, r, []script.Object{m, r})
	m.Bind(d.Name, r)
	ld.w.RegisterRace(r)
}

// runInitializers evaluates entity member initializers against the scope
// stack [entity, module].
func (ld *loader) runInitializers(m *Module, pm *parsedModule, name string, members []script.MemberInit, e *Entity) {
	ld.runObjectInitializers(m, pm, name, members, e, []script.Object{m, e})
}

func (ld *loader) runObjectInitializers(m *Module, pm *parsedModule, name string, members []script.MemberInit, target script.Object, scope []script.Object) {
	if len(members) == 0 {
		return
	}
	init, err := script.CompileInitializer(m.name+"."+name, members)
	if err != nil {
		ld.errorf(pm.path, "%s: %v", name, err)
		return
	}
	ld.w.PushScope(scope...)
	_, err = ld.w.vm.Call(init, []script.Value{target}, nil)
	ld.w.PopScope(len(scope))
	if err != nil {
		ld.errorf(pm.path, "%s: %v", name, err)
	}
}

func (ld *loader) attachHandlers(m *Module, pm *parsedModule, name string, decls []script.HandlerDecl, e *Entity) {
	for _, h := range decls {
		fn, err := script.CompileFunction(m.name+"."+name+"."+h.Event, h.Params, h.Body)
		if err != nil {
			ld.errorf(pm.path, "%s %s on %s: %v", h.Phase, h.Event, name, err)
			continue
		}
		ld.rewriteFunction(fn, pm)
		e.AddHandler(h.Phase, h.Event, fn)
	}
}

func (ld *loader) attachMethods(m *Module, pm *parsedModule, name string, decls []script.MethodDecl, e *Entity) {
	for _, md := range decls {
		fn, err := script.CompileFunction(m.name+"."+name+"."+md.Name, md.Params, md.Body)
		if err != nil {
			ld.errorf(pm.path, "func %s on %s: %v", md.Name, name, err)
			continue
		}
		ld.rewriteFunction(fn, pm)
		if err := e.SetMember(md.Name, fn); err != nil {
			ld.errorf(pm.path, "func %s on %s: %v", md.Name, name, err)
		}
	}
}

// rewriteFunction fixes up relative refs in a compiled function: names the
// module declares become absolute to the module, names the builtins module
// binds become absolute to builtins, and anything else stays relative for
// late binding. Parameter-constraint refs follow the same rule.
func (ld *loader) rewriteFunction(fn *script.ScriptFunction, pm *parsedModule) {
	for i, c := range fn.Chunk.Constants {
		rv, ok := c.(script.RefValue)
		if !ok || rv.Ref.IsAbsolute() {
			continue
		}
		fn.Chunk.Constants[i] = script.RefValue{Ref: ld.resolveName(pm, rv.Ref.Name)}
	}
	for i := range fn.Params {
		ref := fn.Params[i].Constraint.Ref
		if ref.IsZero() || ref.IsAbsolute() {
			continue
		}
		fn.Params[i].Constraint.Ref = ld.resolveName(pm, ref.Name)
	}
}

func (ld *loader) resolveName(pm *parsedModule, name string) script.Ref {
	if _, ok := pm.declared[name]; ok {
		return script.AbsoluteRef(pm.ast.Name, name)
	}
	if _, ok := ld.w.builtins.Lookup(name); ok {
		return script.AbsoluteRef("builtins", name)
	}
	return script.RelativeRef(name)
}

// normalizeEntityRefs resolves relative refs that initializer evaluation
// left in typed fields and members, since no module scope exists once the
// load finishes.
func (ld *loader) normalizeEntityRefs(e *Entity, pm *parsedModule, modName string) {
	fix := func(ref script.Ref) script.Ref {
		if ref.IsZero() || ref.IsAbsolute() {
			return ref
		}
		return ld.resolveName(pm, ref.Name)
	}
	for _, p := range entityExits(e) {
		if p.portal != nil {
			p.portal.Dest = fix(p.portal.Dest)
		}
	}
	if e.creature != nil {
		e.creature.Race = fix(e.creature.Race)
	}
	if e.node != nil {
		e.node.RequiredSkill = fix(e.node.RequiredSkill)
		if e.node.Yields != nil {
			fixList(e.node.Yields, fix)
		}
	}
	for name, v := range e.members {
		switch t := v.(type) {
		case script.RefValue:
			e.members[name] = script.RefValue{Ref: fix(t.Ref)}
		case *script.List:
			fixList(t, fix)
		}
	}
}

func fixList(l *script.List, fix func(script.Ref) script.Ref) {
	for i, v := range l.Elems {
		if rv, ok := v.(script.RefValue); ok {
			l.Elems[i] = script.RefValue{Ref: fix(rv.Ref)}
		}
	}
}

func entityExits(e *Entity) []*Entity {
	if e.loc == nil {
		return nil
	}
	return e.loc.Exits
}

// twinPortals cross-links reciprocal exits after all modules have loaded.
// A twin is the destination's exit in the opposite direction whose own
// destination refers back. Mismatches are logged, not fatal.
func (ld *loader) twinPortals() {
	for _, origin := range ld.w.startable {
		if origin.loc == nil {
			continue
		}
		for _, p := range origin.loc.Exits {
			pf := p.portal
			if pf == nil || pf.Twin != nil || pf.Oneway {
				continue
			}
			dest := ld.w.lookupLocation(pf.Dest)
			if dest == nil {
				ld.log.Warn("portal destination unresolved",
					zap.String("origin", origin.ref.String()),
					zap.String("direction", pf.Direction.String()),
					zap.String("dest", pf.Dest.String()))
				continue
			}
			q := dest.loc.ExitIn(pf.Direction.Opposite())
			if q == nil {
				ld.log.Warn("no reciprocal exit for portal",
					zap.String("origin", origin.ref.String()),
					zap.String("dest", dest.ref.String()),
					zap.String("direction", pf.Direction.String()))
				continue
			}
			back := ld.w.lookupLocation(q.portal.Dest)
			if back != origin {
				ld.log.Warn("reciprocal exit points elsewhere",
					zap.String("origin", origin.ref.String()),
					zap.String("dest", dest.ref.String()),
					zap.String("back", q.portal.Dest.String()))
				continue
			}
			pf.Twin = q
			q.portal.Twin = p
		}
	}
}
