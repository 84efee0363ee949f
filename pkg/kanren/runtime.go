package kanren

import (
	"context"

	"go.uber.org/zap"
)

// Version identifies this runtime's implementation of the core-runtime
// contract, bumped whenever the wire-level semantics of Term/Value change.
const Version = "0.1.0"

// Runtime wires a SymbolTable, a built-in/foreign Registry, a root
// Environment, a KnowledgeBase, and a Resolver into the single object a
// caller constructs to run queries (§4 overview, "init_runtime").
type Runtime struct {
	Symbols  *SymbolTable
	Registry *Registry
	Env      *Environment
	KB       *KnowledgeBase
	Resolver *Resolver
	cfg      *RuntimeConfig
}

// NewRuntime builds a fresh runtime, applying opts over
// DefaultRuntimeConfig, registering the standard narrowing built-ins
// (length/reverse/append) and the foreign self-test functions
// (increment/double/add5/negate), and constructing an empty knowledge
// base ready for facts and rules.
func NewRuntime(opts ...Option) *Runtime {
	cfg := DefaultRuntimeConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	symbols := NewSymbolTable()
	registry := NewRegistry()
	RegisterBuiltins(registry)
	RegisterSelfTestForeigns(registry)

	env := NewEnvironment(symbols, registry, log)
	env.Store.epsilon = cfg.ConstraintEpsilon
	env.Trail.Strict = cfg.StrictLinearity

	kb := NewKnowledgeBase()
	resolver := NewResolver(kb, cfg, log)

	return &Runtime{
		Symbols:  symbols,
		Registry: registry,
		Env:      env,
		KB:       kb,
		Resolver: resolver,
		cfg:      cfg,
	}
}

// Cleanup releases the runtime's root environment. Call it once the
// runtime is no longer needed; it is not required for correctness (Go's
// GC reclaims everything a Runtime holds once it is unreachable) but
// mirrors the §4 "cleanup_runtime" lifecycle call for callers porting
// code written against an explicit init/cleanup pair.
func (rt *Runtime) Cleanup() {
	rt.Env.Free()
}

// Query proves goal against the runtime's knowledge base, collecting
// every distinct solution (deduplicated via termsEqual on the grounded
// form of goal) into a SolutionSet.
func (rt *Runtime) Query(ctx context.Context, goal Term) (*SolutionSet, error) {
	solutions := &SolutionSet{}
	err := rt.Resolver.Resolve(ctx, rt.Env, goal, func() bool {
		solutions.Add(groundedCopy(goal, rt.Env))
		return true // keep searching for every solution
	})
	return solutions, err
}

// QueryFirst proves goal and stops at the first solution, returning
// whether one was found.
func (rt *Runtime) QueryFirst(ctx context.Context, goal Term) (bool, Term, error) {
	var found bool
	var solution Term
	err := rt.Resolver.Resolve(ctx, rt.Env, goal, func() bool {
		found = true
		solution = groundedCopy(goal, rt.Env)
		return false // stop after the first
	})
	return found, solution, err
}
