package kanren

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Resolver drives SLD-style resolution of goals against a KnowledgeBase,
// plus the forward-chaining pass that fires linear-logic production rules
// (§4.H). It is the one component that ties Unify, the trail, the
// constraint store, and the knowledge base together into the search the
// rest of the package exists to support.
type Resolver struct {
	kb  *KnowledgeBase
	cfg *RuntimeConfig
	log *zap.SugaredLogger
}

func NewResolver(kb *KnowledgeBase, cfg *RuntimeConfig, log *zap.SugaredLogger) *Resolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{kb: kb, cfg: cfg, log: log}
}

// SolutionSet accumulates distinct solutions and dedups via structural
// comparison on the underlying Term representation, so two resolution
// paths that happen to produce the same bindings count once (§4.H
// "Solution set").
type SolutionSet struct {
	items []Term
}

func (s *SolutionSet) Add(t Term) bool {
	for _, existing := range s.items {
		if termsEqual(existing, t) {
			return false
		}
	}
	s.items = append(s.items, t)
	return true
}

func (s *SolutionSet) Items() []Term { return s.items }

// goalStack tracks which functor/arity keys are currently being resolved,
// so resolution can prune a branch once it recurs past MaxRecursiveDepth
// identical goal patterns deep (§4.H "Termination").
type goalStack []string

func (gs goalStack) count(key string) int {
	n := 0
	for _, k := range gs {
		if k == key {
			n++
		}
	}
	return n
}

// Resolve attempts to prove goal, calling onSolution once per distinct
// successful resolution path. onSolution returning false requests early
// termination of the whole search (e.g. the caller only wanted the first
// solution). Resolve restores the environment to its pre-call state
// before returning, since every branch it explores rolls back its own
// checkpoint on the way out (§4.H, §4.I).
func (r *Resolver) Resolve(ctx context.Context, env *Environment, goal Term, onSolution func() bool) error {
	_, err := r.resolveConjunction(ctx, env, []Term{goal}, nil, onSolution)
	return err
}

// ResolveDisjunctive proves the disjunction of alternatives: each
// alternative goal list is tried in turn, and the search only moves to
// the next alternative once the current one is exhausted.
func (r *Resolver) ResolveDisjunctive(ctx context.Context, env *Environment, alternatives [][]Term, onSolution func() bool) error {
	for _, alt := range alternatives {
		stop, err := r.resolveConjunction(ctx, env, alt, nil, onSolution)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// resolveConjunction proves goals left to right. Each goal is tried
// against every live resource and every matching rule; on a match the
// remainder of goals (plus, for a rule, its body) is resolved
// recursively before the next alternative is tried on backtracking. The
// returned bool is true iff onSolution asked the whole search to stop;
// callers propagate it upward immediately without trying further
// alternatives at their own level.
func (r *Resolver) resolveConjunction(ctx context.Context, env *Environment, goals []Term, stack goalStack, onSolution func() bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(goals) == 0 {
		keepGoing := onSolution()
		return !keepGoing, nil
	}

	goal := goals[0]
	rest := goals[1:]
	functor, arity, ok := goalShape(goal)
	if !ok {
		return false, fmt.Errorf("kanren: resolve: goal is not callable: %w", ErrTypeMismatch)
	}
	key := bucketKey(functor, arity)

	if stack.count(key) > r.cfg.MaxRecursiveDepth {
		r.log.Debugw("recursion limit pruned", "goal", key, "depth", r.cfg.MaxRecursiveDepth)
		return false, nil
	}
	nextStack := append(append(goalStack{}, stack...), key)

	for _, res := range r.kb.candidates(functor, arity) {
		cp := NewChoicePoint(env, r.kb, nil, nil)
		if matched, _ := r.unifyGoalWithTerm(env, goal, res.Fact); matched {
			r.kb.markConsumed(res)
			stop, err := r.resolveConjunction(ctx, env, rest, nextStack, onSolution)
			if err != nil {
				r.rollbackChoice(env, cp)
				return false, err
			}
			if stop {
				r.rollbackChoice(env, cp)
				return true, nil
			}
		}
		r.rollbackChoice(env, cp)
	}

	for _, rule := range r.kb.rulesFor(functor, arity) {
		cp := NewChoicePoint(env, r.kb, nil, nil)
		renamed := renameRule(rule, env)
		if matched, _ := r.unifyGoalWithTerm(env, goal, renamed.Head); matched {
			var stop bool
			var err error
			if renamed.IsProduction() {
				fingerprint := fmt.Sprintf("%s@%p", key, renamed.Head)
				if r.kb.hasApplied(fingerprint) {
					r.rollbackChoice(env, cp)
					continue
				}
				fired := false
				stop, err = r.resolveConjunction(ctx, env, renamed.Body, nextStack, func() bool {
					// A production fires at most once per rule application:
					// the first way the body is discharged asserts it, then
					// resolution proceeds into rest WITHOUT undoing the
					// assertion, leaving it visible to any later goal in
					// this conjunction that unifies with it.
					if !fired {
						fired = true
						r.kb.markApplied(fingerprint)
						r.kb.AddLinearFactTrailed(groundedCopy(renamed.Production, env), env.Trail)
					}
					restStop, restErr := r.resolveConjunction(ctx, env, rest, nextStack, onSolution)
					if restErr != nil {
						err = restErr
						return false
					}
					return !restStop
				})
			} else {
				bodyGoals := append(append([]Term{}, renamed.Body...), rest...)
				stop, err = r.resolveConjunction(ctx, env, bodyGoals, nextStack, onSolution)
			}
			if err != nil {
				r.rollbackChoice(env, cp)
				return false, err
			}
			if stop {
				r.rollbackChoice(env, cp)
				return true, nil
			}
		}
		r.rollbackChoice(env, cp)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
	}

	if cerr := env.Store.TakeError(); cerr != nil {
		return false, cerr
	}
	return false, nil
}

// rollbackChoice undoes everything recorded since cp was opened: both the
// trail (variable bindings and trailed KB insertions) and the KB's
// consumption snapshot, mirroring Backtrack's rollback phase. Backtrack
// itself additionally walks cp.Alternatives, which resolveConjunction's
// own for-loops already enumerate, so the two call sites here only need
// the undo half of the choice point.
func (r *Resolver) rollbackChoice(env *Environment, cp *ChoicePoint) {
	env.Rollback(cp.Trail)
	r.kb.restoreSnapshot(cp.ConsumeSnapshot)
}

// unifyGoalWithTerm converts fact/head and goal into Values and unifies
// them. Variables are looked up by their own ids: a fact's variables are
// not renamed here, and rule heads arrive already renamed by renameRule.
func (r *Resolver) unifyGoalWithTerm(env *Environment, goal, fact Term) (bool, *Value) {
	rename := make(map[VarID]VarID)
	goalVal := termToValue(goal, env, rename)
	factVal := termToValue(fact, env, rename)
	return Unify(goalVal, factVal, env), factVal
}

// renameRule produces a fresh copy of rule with every VarTerm replaced by
// a newly allocated VarID, consistently across head and body, so each
// resolution attempt gets its own variables (§4.H "clause renaming").
func renameRule(rule *Rule, env *Environment) *Rule {
	rename := make(map[VarID]VarID)
	head := renameTerm(rule.Head, rename, env)
	body := make([]Term, len(rule.Body))
	for i, g := range rule.Body {
		body[i] = renameTerm(g, rename, env)
	}
	var production Term
	if rule.Production != nil {
		production = renameTerm(rule.Production, rename, env)
	}
	return &Rule{Head: head, Body: body, Production: production, IsRecursive: rule.IsRecursive}
}

func renameTerm(t Term, rename map[VarID]VarID, env *Environment) Term {
	switch v := t.(type) {
	case VarTerm:
		if nid, ok := rename[v.ID]; ok {
			return VarTerm{ID: nid}
		}
		fresh := env.FreshVar("")
		rename[v.ID] = fresh.ID
		return VarTerm{ID: fresh.ID}
	case CompoundTerm:
		args := make([]Term, len(v.Args))
		for i, a := range v.Args {
			args[i] = renameTerm(a, rename, env)
		}
		return CompoundTerm{Functor: v.Functor, Args: args, Tag: v.Tag}
	default:
		return t
	}
}

// termToValue converts a Term into its runtime Value form, consulting
// rename so repeated occurrences of the same VarID within one goal/fact
// map to the same LogicalVar.
func termToValue(t Term, env *Environment, rename map[VarID]VarID) *Value {
	switch v := t.(type) {
	case AtomTerm:
		return &Value{Kind: VAtom, Atom: v.Symbol, Tag: v.Tag}
	case IntegerTerm:
		return NewInteger(v.Value)
	case VarTerm:
		id, ok := rename[v.ID]
		if !ok {
			id = v.ID
		}
		lv, found := env.Lookup(id)
		if !found {
			lv = env.declareVar(id)
		}
		return &Value{Kind: VLogicalVar, Var: lv}
	case CompoundTerm:
		args := make([]*Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = termToValue(a, env, rename)
		}
		return &Value{Kind: VCompound, Functor: v.Functor, Args: args, Tag: v.Tag}
	default:
		return NewAtomValue(0)
	}
}

func goalShape(t Term) (SymbolID, int, bool) {
	switch v := t.(type) {
	case CompoundTerm:
		return v.Functor, len(v.Args), true
	case AtomTerm:
		return v.Symbol, 0, true
	default:
		return 0, 0, false
	}
}

// ForwardChain repeatedly fires every production rule whose body is
// fully satisfiable against currently live resources, consuming the
// resources each firing matches, until a full pass derives nothing new
// (§4.H forward chaining over linear-logic "production" rules). It is
// the batch counterpart to resolveConjunction's on-demand production-rule
// firing during ordinary goal resolution.
func (r *Resolver) ForwardChain(ctx context.Context, env *Environment) error {
	var errs *multierror.Error
	for {
		progressed := false
		for _, rule := range r.kb.rules {
			if !rule.IsProduction() {
				continue
			}
			renamed := renameRule(rule, env)
			cp := env.Checkpoint()
			fired := false
			var consumed consumeSnapshot
			_, err := r.resolveConjunction(ctx, env, renamed.Body, nil, func() bool {
				fired = true
				// Remember which resources this firing matched.
				consumed = r.kb.consumeSnapshot()
				return false // one successful binding is enough to assert the production
			})
			if err != nil {
				errs = multierror.Append(errs, err)
				env.Rollback(cp)
				continue
			}
			if fired && termIsGround(renamed.Production, env) {
				fingerprint := fmt.Sprintf("fwd@%s", renderGroundTerm(renamed.Production, env))
				if !r.kb.hasApplied(fingerprint) {
					r.kb.markApplied(fingerprint)
					r.kb.AddLinearFact(groundedCopy(renamed.Production, env))
					r.kb.restoreSnapshot(consumed)
					progressed = true
				}
			}
			env.Rollback(cp)
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs = multierror.Append(errs, ctxErr)
				return errs.ErrorOrNil()
			}
		}
		if !progressed {
			return errs.ErrorOrNil()
		}
	}
}

func termIsGround(t Term, env *Environment) bool {
	switch v := t.(type) {
	case VarTerm:
		lv, ok := env.Lookup(v.ID)
		if !ok {
			return false
		}
		_, bound := lv.Binding()
		return bound
	case CompoundTerm:
		for _, a := range v.Args {
			if !termIsGround(a, env) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// groundedCopy walks t, replacing every bound VarTerm with the literal
// Term form of its current binding, so a rule head derived under
// rename-per-attempt variables can be asserted as a standalone fact once
// resolveConjunction's checkpoint is rolled back.
func groundedCopy(t Term, env *Environment) Term {
	switch v := t.(type) {
	case VarTerm:
		lv, ok := env.Lookup(v.ID)
		if !ok {
			return t
		}
		bound, ok := lv.Binding()
		if !ok {
			return t
		}
		return valueToTerm(bound)
	case CompoundTerm:
		args := make([]Term, len(v.Args))
		for i, a := range v.Args {
			args[i] = groundedCopy(a, env)
		}
		return CompoundTerm{Functor: v.Functor, Args: args, Tag: v.Tag}
	default:
		return t
	}
}

func valueToTerm(v *Value) Term {
	v = Deref(v)
	switch v.Kind {
	case VAtom:
		return AtomTerm{Symbol: v.Atom, Tag: v.Tag}
	case VInteger:
		return IntegerTerm{Value: v.Integer}
	case VCompound:
		args := make([]Term, len(v.Args))
		for i, a := range v.Args {
			args[i] = valueToTerm(a)
		}
		return CompoundTerm{Functor: v.Functor, Args: args, Tag: v.Tag}
	default:
		return AtomTerm{}
	}
}

func renderGroundTerm(t Term, env *Environment) string {
	return groundedCopy(t, env).String()
}
