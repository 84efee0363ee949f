package kanren

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var varIDCounter uint32

// LogicalVar is a single binding cell. Every LogicalVar is registered in
// its owning Environment's variable map under its VarID; Values and trail
// entries refer to it by *LogicalVar pointer, and rollback writes the
// previous binding straight back through that pointer.
type LogicalVar struct {
	ID         VarID
	binding    *Value
	Waiters    []*Suspension
	UseCount   uint32
	IsConsumed bool
	AllowReuse bool
}

// Binding returns the variable's current value and whether it is bound.
// Does not chase further than one hop; callers wanting the fully
// dereferenced value should call Deref on the result.
func (lv *LogicalVar) Binding() (*Value, bool) {
	if lv.binding == nil {
		return nil, false
	}
	return lv.binding, true
}

// Environment is an ordered collection of LogicalVar records plus an
// optional parent link (§4.C). Lookup walks parents; Bind always mutates
// the current environment, matching the spec's "insert or update in the
// current environment, never a parent" rule.
type Environment struct {
	mu       sync.Mutex
	vars     map[VarID]*LogicalVar
	parent   *Environment
	Trail    *LinearTrail
	Store    *ConstraintStore
	Registry *Registry
	Symbols  *SymbolTable
	log      *zap.SugaredLogger
}

// NewEnvironment creates a root environment with its own trail. A nil
// logger is replaced with zap.NewNop() so callers never need a nil check.
func NewEnvironment(symbols *SymbolTable, registry *Registry, log *zap.SugaredLogger) *Environment {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	env := &Environment{
		vars:     make(map[VarID]*LogicalVar),
		Trail:    NewLinearTrail(),
		Registry: registry,
		Symbols:  symbols,
		log:      log,
	}
	env.Store = NewConstraintStore(env)
	return env
}

// Child creates a nested environment whose Lookup falls through to parent
// for ids it does not itself hold. The child gets its own trail so
// backtracking within it never disturbs the parent's bindings.
func (env *Environment) Child() *Environment {
	child := &Environment{
		vars:     make(map[VarID]*LogicalVar),
		parent:   env,
		Trail:    NewLinearTrail(),
		Registry: env.Registry,
		Symbols:  env.Symbols,
		log:      env.log,
	}
	child.Store = NewConstraintStore(child)
	return child
}

// FreshVar allocates a new unbound logical variable scoped to env.
func (env *Environment) FreshVar(debugName string) *LogicalVar {
	id := VarID(atomic.AddUint32(&varIDCounter, 1))
	lv := &LogicalVar{ID: id, AllowReuse: false}
	env.mu.Lock()
	env.vars[id] = lv
	env.mu.Unlock()
	return lv
}

// declareVar inserts a fresh, unbound record for an id that was minted
// elsewhere (e.g. a renamed clause's VarTerm) rather than through
// FreshVar, so it becomes addressable via Lookup/Bind in this
// environment.
func (env *Environment) declareVar(id VarID) *LogicalVar {
	env.mu.Lock()
	defer env.mu.Unlock()
	lv, ok := env.vars[id]
	if !ok {
		lv = &LogicalVar{ID: id}
		env.vars[id] = lv
	}
	return lv
}

// Lookup walks env and its parent chain for the record with the given id.
func (env *Environment) Lookup(id VarID) (*LogicalVar, bool) {
	for e := env; e != nil; e = e.parent {
		e.mu.Lock()
		lv, ok := e.vars[id]
		e.mu.Unlock()
		if ok {
			return lv, true
		}
	}
	return nil, false
}

// Bind sets var id's binding to value in the current environment (never a
// parent), trailing the mutation so backtracking can undo it, then wakes
// every waiter attached to the variable (§4.C, §4.F).
//
// If the variable does not yet exist in this environment, a fresh record
// is inserted first — matching the "insert a fresh record" branch of
// bind(env, var_id, value) in §4.C.
func (env *Environment) Bind(id VarID, value *Value) {
	env.mu.Lock()
	lv, ok := env.vars[id]
	if !ok {
		lv = &LogicalVar{ID: id}
		env.vars[id] = lv
	}
	env.mu.Unlock()

	env.Trail.recordBinding(lv, lv.binding)
	lv.binding = value
	env.log.Debugw("bind", "var", id, "value", value)

	waiters := lv.Waiters
	lv.Waiters = nil
	env.resumeWaiters(waiters, id)
	env.Store.notifyBound(id, value)
}

// resumeWaiters re-checks every suspension that was waiting on id and
// either fires it (all its dependencies are now bound) or re-queues it on
// the new frontier of still-unbound variables (§4.F "resume").
func (env *Environment) resumeWaiters(waiters []*Suspension, boundVar VarID) {
	for _, s := range waiters {
		if !s.Active {
			continue
		}
		resumeSuspension(env, s)
	}
}

// attachWaiter prepends susp to var id's waiter list — add_suspension
// always prepends, so suspensions fire in LIFO order of attachment
// (§5 ordering guarantee (b)).
func (env *Environment) attachWaiter(id VarID, susp *Suspension) {
	lv, ok := env.Lookup(id)
	if !ok {
		lv = &LogicalVar{ID: id}
		env.mu.Lock()
		env.vars[id] = lv
		env.mu.Unlock()
	}
	lv.Waiters = append([]*Suspension{susp}, lv.Waiters...)
}

// Free releases this environment's own variable records and trail.
// Parent environments are never freed transitively (§4.C).
func (env *Environment) Free() {
	env.mu.Lock()
	env.vars = nil
	env.mu.Unlock()
	env.Trail = nil
}

// Checkpoint/Rollback/Commit delegate to the environment's trail; they are
// exposed here because callers (the resolver, choice points) always think
// in terms of "checkpoint this environment," not "checkpoint this trail."
func (env *Environment) Checkpoint() Checkpoint   { return env.Trail.checkpoint() }
func (env *Environment) Rollback(cp Checkpoint)   { env.Trail.rollback(env, cp) }
func (env *Environment) Commit(cp Checkpoint)     { env.Trail.commit(cp) }

// Logger exposes the environment's structured logger to collaborating
// components (resolver, constraint store) without threading it through
// every call signature.
func (env *Environment) Logger() *zap.SugaredLogger { return env.log }
