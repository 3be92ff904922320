package world

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/emberwake/server/internal/script"
)

// Store is the persistence boundary. Implementations may run on their own
// threads; the world only calls them from the tick loop.
type Store interface {
	CreateAccount(ctx context.Context, username, password string, avatar *AvatarRecord) (int64, error)
	Authenticate(ctx context.Context, username, password string) (int64, error)
	LoadAvatar(ctx context.Context, accountID int64) (*AvatarRecord, []string, map[string]time.Time, error)
	SaveAvatar(ctx context.Context, accountID int64, rec *AvatarRecord, newTutorials []string, newFinished map[string]time.Time) error
	ResetTutorials(ctx context.Context, accountID int64) error
}

// World owns the loaded module table, the entity graph, avatar residency,
// and the scheduler. All mutation happens on the tick loop; there are no
// locks on the graph.
type World struct {
	log   *zap.Logger
	vm    *script.VM
	store Store

	builtins    *Module
	modules     map[string]*Module
	moduleOrder []string

	quests map[script.Ref]*Quest
	races  map[script.Ref]*Race

	startable []*Entity
	residents map[int64]*Entity

	sched *Scheduler
	now   func() time.Time

	startLoc       script.Ref
	avatarTemplate *AvatarRecord

	// scopeStack is the transient lookup context for member initializers
	// evaluated during world load.
	scopeStack []script.Object
}

func New(log *zap.Logger, store Store) *World {
	w := &World{
		log:       log,
		store:     store,
		modules:   make(map[string]*Module),
		quests:    make(map[script.Ref]*Quest),
		races:     make(map[script.Ref]*Race),
		residents: make(map[int64]*Entity),
		sched:     NewScheduler(),
		now:       time.Now,
	}
	w.vm = script.NewVM(w, log.Named("vm"))
	w.builtins = w.newBuiltinsModule()
	return w
}

func (w *World) Logger() *zap.Logger { return w.log }
func (w *World) VM() *script.VM      { return w.vm }
func (w *World) Builtins() *Module   { return w.builtins }

// SetClock overrides the time source, for tests.
func (w *World) SetClock(now func() time.Time) { w.now = now }

func (w *World) Now() time.Time { return w.now() }

// SetStartLocation names where new avatars enter the world.
func (w *World) SetStartLocation(ref script.Ref) { w.startLoc = ref }

func (w *World) AddModule(m *Module) {
	if _, dup := w.modules[m.name]; !dup {
		w.moduleOrder = append(w.moduleOrder, m.name)
	}
	w.modules[m.name] = m
}

func (w *World) Module(name string) *Module { return w.modules[name] }

// ModuleNames returns loaded module names in load order.
func (w *World) ModuleNames() []string { return w.moduleOrder }

func (w *World) RegisterQuest(q *Quest) { w.quests[q.ref] = q }
func (w *World) Quest(ref script.Ref) *Quest {
	return w.quests[ref]
}

func (w *World) RegisterRace(r *Race) { w.races[r.ref] = r }
func (w *World) Race(ref script.Ref) *Race {
	return w.races[ref]
}

func (w *World) AddStartable(e *Entity) { w.startable = append(w.startable, e) }

// Startable returns the deflocation set, in definition order.
func (w *World) Startable() []*Entity { return w.startable }

// PushScope installs an initializer lookup context; must be paired with
// PopScope. Only the loader uses this.
func (w *World) PushScope(objs ...script.Object) {
	w.scopeStack = append(w.scopeStack, objs...)
}

func (w *World) PopScope(n int) {
	w.scopeStack = w.scopeStack[:len(w.scopeStack)-n]
}

// ResolveRef implements script.Host. Absolute refs resolve through the
// module table (with "builtins" reserved). Relative refs consult the
// transient scope stack, then builtins, then module names themselves.
func (w *World) ResolveRef(ref script.Ref) (script.Value, error) {
	if ref.IsAbsolute() {
		var m *Module
		if ref.Module == "builtins" {
			m = w.builtins
		} else {
			m = w.modules[ref.Module]
		}
		if m == nil {
			return nil, fmt.Errorf("%w: %s", script.ErrUndefinedReference, ref)
		}
		if v, ok := m.Lookup(ref.Name); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %s", script.ErrUndefinedReference, ref)
	}
	for i := len(w.scopeStack) - 1; i >= 0; i-- {
		if v, ok := w.scopeStack[i].GetMember(ref.Name); ok {
			return v, nil
		}
	}
	if v, ok := w.builtins.Lookup(ref.Name); ok {
		return v, nil
	}
	if m, ok := w.modules[ref.Name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", script.ErrUndefinedReference, ref)
}

// MakePortal implements script.Host for the exit construction expression.
func (w *World) MakePortal(proto script.Value, direction script.Symbol, dest script.Ref, oneway bool) (script.Value, error) {
	pe, ok := proto.(*Entity)
	if !ok || pe.portal == nil {
		return nil, fmt.Errorf("%w: exit prototype must be a portal", script.ErrTypeMismatch)
	}
	dir, ok := ParseDirection(string(direction))
	if !ok {
		return nil, fmt.Errorf("%w: unknown direction %q", script.ErrTypeMismatch, string(direction))
	}
	p := pe.Clone()
	p.portal.Direction = dir
	p.portal.Dest = dest
	p.portal.Oneway = oneway
	return p, nil
}

// CloneValue implements script.Host for the clone intrinsic.
func (w *World) CloneValue(v script.Value) (script.Value, error) {
	e, ok := v.(*Entity)
	if !ok {
		return nil, fmt.Errorf("%w: clone expects an entity", script.ErrTypeMismatch)
	}
	return e.Clone(), nil
}

// SetCount implements script.Host for the stack intrinsic.
func (w *World) SetCount(item script.Value, count int) (script.Value, error) {
	e, ok := item.(*Entity)
	if !ok || e.item == nil {
		return nil, fmt.Errorf("%w: stack expects an item", script.ErrTypeMismatch)
	}
	if count < 1 {
		count = 1
	}
	e.item.Count = count
	return e, nil
}

// Schedule queues fn to run after the given number of seconds on the tick
// loop.
func (w *World) Schedule(seconds float64, fn func()) {
	w.sched.After(w.now(), time.Duration(seconds*float64(time.Second)), fn)
}

// RunScheduled fires the due delayed callbacks.
func (w *World) RunScheduled() int {
	return w.sched.RunDue(w.now())
}

// StartWorld delivers start_world to every startable entity.
func (w *World) StartWorld() {
	for _, e := range w.startable {
		w.RespondTo(e, script.PhaseWhen, "start_world", nil)
	}
}

// StopWorld delivers stop_world to every startable entity.
func (w *World) StopWorld() {
	for _, e := range w.startable {
		w.RespondTo(e, script.PhaseWhen, "stop_world", nil)
	}
}

// Resident returns the in-world avatar for an account, or nil.
func (w *World) Resident(accountID int64) *Entity {
	return w.residents[accountID]
}

// Residents iterates over all resident avatars.
func (w *World) Residents(fn func(accountID int64, av *Entity)) {
	for id, av := range w.residents {
		fn(id, av)
	}
}

// EnterWorld binds a session to the account's avatar. A resident avatar is
// reused (reconnect): the full UI state is re-sent but no entry event
// triggers. Otherwise the avatar loads from the store and enters its
// location under enter_location.
func (w *World) EnterWorld(ctx context.Context, accountID int64, sess Session) (*Entity, error) {
	if av := w.residents[accountID]; av != nil {
		if old := av.avatar.Session; old != nil && old != sess {
			old.Close()
		}
		av.avatar.Session = sess
		w.sendFullState(av)
		w.log.Info("avatar reconnected", zap.Int64("account", accountID))
		return av, nil
	}

	rec, tutorials, finished, err := w.store.LoadAvatar(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load avatar: %w", err)
	}
	av, err := w.avatarFromRecord(accountID, rec, tutorials, finished)
	if err != nil {
		return nil, err
	}
	av.avatar.Session = sess
	w.residents[accountID] = av
	ResidentsGauge.Set(float64(len(w.residents)))

	loc := w.locationFor(av.avatar.LocationRef)
	if loc == nil {
		return nil, fmt.Errorf("%w: no start location", script.ErrUndefinedReference)
	}
	w.TriggerEvent("enter_location", loc, []*Entity{av},
		[]script.Value{av, loc}, func() {
			loc.loc.AddContent(loc, av)
			av.avatar.LocationRef = loc.ref
		})
	w.notifyNeighbors(av, loc, true)
	w.sendFullState(av)
	w.showLocationTutorial(av, loc)
	w.log.Info("avatar entered world", zap.Int64("account", accountID))
	return av, nil
}

// Disconnect unbinds the session and saves. The avatar stays resident for a
// later reconnect; its pending offer is declined and its activity cancelled.
func (w *World) Disconnect(ctx context.Context, accountID int64) {
	av := w.residents[accountID]
	if av == nil {
		return
	}
	w.CancelInteractions(av)
	av.avatar.Session = nil
	av.avatar.Updates = nil
	if err := w.SaveResident(ctx, accountID); err != nil {
		w.log.Error("save on disconnect failed", zap.Int64("account", accountID), zap.Error(err))
	}
	w.log.Info("avatar disconnected", zap.Int64("account", accountID))
}

// RemoveResident takes the avatar out of the world entirely (logout or
// shutdown), triggering exit_location and dropping residency.
func (w *World) RemoveResident(ctx context.Context, accountID int64) {
	av := w.residents[accountID]
	if av == nil {
		return
	}
	w.CancelInteractions(av)
	if loc := av.Location(); loc != nil {
		w.TriggerEvent("exit_location", loc, []*Entity{av},
			[]script.Value{av, loc, script.Nil{}}, func() {
				loc.loc.RemoveContent(av)
			})
		w.notifyNeighbors(av, loc, false)
	}
	if err := w.SaveResident(ctx, accountID); err != nil {
		w.log.Error("save on logout failed", zap.Int64("account", accountID), zap.Error(err))
	}
	if sess := av.avatar.Session; sess != nil {
		sess.Close()
	}
	delete(w.residents, accountID)
	ResidentsGauge.Set(float64(len(w.residents)))
}

// CancelInteractions declines any pending offer and cancels any activity.
func (w *World) CancelInteractions(av *Entity) {
	a := av.avatar
	if a == nil {
		return
	}
	if offer := a.Offer; offer != nil {
		a.Offer = nil
		offer.Decline(w, av)
	}
	if act := a.Activity; act != nil {
		a.Activity = nil
		act.Cancel(w, av)
	}
}

// SaveResident writes the avatar's persisted state and drains its journals.
func (w *World) SaveResident(ctx context.Context, accountID int64) error {
	av := w.residents[accountID]
	if av == nil {
		return nil
	}
	a := av.avatar
	rec := ToRecord(av)
	finished := make(map[string]time.Time, len(a.NewCompletions))
	for ref, at := range a.NewCompletions {
		finished[ref.String()] = at
	}
	if err := w.store.SaveAvatar(ctx, accountID, rec, a.NewTutorials, finished); err != nil {
		return err
	}
	a.NewTutorials = nil
	a.NewCompletions = make(map[script.Ref]time.Time)
	return nil
}

// SaveAllResidents persists every resident avatar; used by autosave and
// shutdown.
func (w *World) SaveAllResidents(ctx context.Context) {
	for id := range w.residents {
		if err := w.SaveResident(ctx, id); err != nil {
			w.log.Error("autosave failed", zap.Int64("account", id), zap.Error(err))
		}
	}
}

// ResetTutorials clears the avatar's seen-tutorials set, both in memory and
// in the store, so tutorials replay.
func (w *World) ResetTutorials(ctx context.Context, av *Entity) error {
	a := av.avatar
	if a == nil {
		return nil
	}
	a.TutorialsSeen = make(map[string]struct{})
	a.NewTutorials = nil
	a.TutorialsOn = true
	return w.store.ResetTutorials(ctx, a.AccountID)
}

// FlushUpdates serializes and sends each resident's pending update buffer
// as one frame. Returns the number of frames sent.
func (w *World) FlushUpdates() int {
	sent := 0
	for id, av := range w.residents {
		a := av.avatar
		if len(a.Updates) == 0 || a.Session == nil {
			continue
		}
		batch := a.DrainUpdates()
		payload, err := EncodeBatch(batch)
		if err != nil {
			w.log.Error("encode updates failed", zap.Int64("account", id), zap.Error(err))
			continue
		}
		a.Session.Send(payload)
		sent++
	}
	if sent > 0 {
		updateFramesTotal.Add(float64(sent))
	}
	return sent
}

// locationFor resolves a location ref, falling back to the start location.
func (w *World) locationFor(ref script.Ref) *Entity {
	if loc := w.lookupLocation(ref); loc != nil {
		return loc
	}
	return w.lookupLocation(w.startLoc)
}

func (w *World) lookupLocation(ref script.Ref) *Entity {
	if ref.IsZero() {
		return nil
	}
	v, err := w.ResolveRef(ref)
	if err != nil {
		return nil
	}
	if e, ok := v.(*Entity); ok && e.loc != nil {
		return e
	}
	return nil
}

// avatarFromRecord rebuilds an avatar entity from its persisted form.
func (w *World) avatarFromRecord(accountID int64, rec *AvatarRecord, tutorials []string, finished map[string]time.Time) (*Entity, error) {
	protoVal, err := w.ResolveRef(script.AbsoluteRef("builtins", "avatar"))
	if err != nil {
		return nil, err
	}
	av := protoVal.(*Entity).Clone()
	a := av.avatar
	a.AccountID = accountID

	av.thing.Name = rec.Name
	av.thing.Article = ""
	av.thing.Icon = rec.Icon
	av.creature.Level = rec.Level
	if av.creature.Level < 1 {
		av.creature.Level = 1
	}
	if rec.Race != "" {
		av.creature.Race = script.ParseRef(rec.Race)
	}
	if rec.Capacity > 0 {
		a.Capacity = rec.Capacity
	}
	a.TutorialsOn = rec.TutorialsOn
	a.LocationRef = script.ParseRef(rec.Location)

	for _, ir := range rec.Inventory {
		if item := w.itemFromRecord(ir); item != nil {
			a.Inventory = append(a.Inventory, item)
			item.container = av
		}
	}
	for slot, ir := range rec.Equipped {
		if item := w.itemFromRecord(ir); item != nil {
			a.Equipped[slot] = item
			item.container = av
		}
	}
	for refStr, st := range rec.ActiveQuests {
		a.ActiveQuests[script.ParseRef(refStr)] = &QuestState{Phase: st.Phase, Progress: st.Progress}
	}
	for refStr, rank := range rec.Skills {
		a.Skills[script.ParseRef(refStr)] = rank
	}
	for _, key := range tutorials {
		a.TutorialsSeen[key] = struct{}{}
	}
	for refStr, at := range finished {
		a.CompletedQuests[script.ParseRef(refStr)] = at
	}
	return av, nil
}

func (w *World) itemFromRecord(ir ItemRecord) *Entity {
	v, err := w.ResolveRef(script.ParseRef(ir.Proto))
	if err != nil {
		w.log.Warn("dropping item with unknown prototype", zap.String("proto", ir.Proto))
		return nil
	}
	proto, ok := v.(*Entity)
	if !ok || proto.item == nil {
		w.log.Warn("dropping item with non-item prototype", zap.String("proto", ir.Proto))
		return nil
	}
	item := proto.Clone()
	if ir.Count > 1 {
		item.item.Count = ir.Count
	}
	return item
}

// SetAvatarTemplate installs the tuning-derived defaults applied to newly
// created avatars. Name and location are filled per account.
func (w *World) SetAvatarTemplate(rec *AvatarRecord) {
	w.avatarTemplate = rec
}

// NewAvatarRecord builds the initial persisted avatar for account creation.
func (w *World) NewAvatarRecord(name string) *AvatarRecord {
	rec := &AvatarRecord{
		Level:       1,
		TutorialsOn: true,
	}
	if t := w.avatarTemplate; t != nil {
		clone := *t
		clone.Inventory = append([]ItemRecord(nil), t.Inventory...)
		if t.Skills != nil {
			clone.Skills = make(map[string]int, len(t.Skills))
			for k, v := range t.Skills {
				clone.Skills[k] = v
			}
		}
		rec = &clone
	}
	rec.Name = name
	if rec.Location == "" {
		rec.Location = w.startLoc.String()
	}
	return rec
}
