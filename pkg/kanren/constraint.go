package kanren

import (
	"fmt"
	"math"
	"sync"
)

// Strength ranks how strongly a constraint must hold, following the
// classic Weak/Medium/Strong/Required hierarchy (§4.G): a Required
// constraint that cannot be satisfied is a hard failure, weaker
// constraints may be dropped by the solver when they conflict with a
// stronger one.
type Strength int

const (
	Weak Strength = iota
	Medium
	Strong
	Required
)

// ConstraintKind enumerates the constraint variants §4.G names.
type ConstraintKind int

const (
	ConstraintEqual ConstraintKind = iota
	ConstraintLEQ
	ConstraintGEQ
	ConstraintUnify
	ConstraintFunction
	ConstraintArithmetic
)

// Constraint is one entry in a ConstraintStore. Linear constraints
// (Equal/LEQ/GEQ) relate a variable to a linear combination of other
// variables plus a constant; Function constraints relate a result
// variable to an invertible closed-form function of its arguments;
// Arithmetic constraints are pending two-variable relations awaiting a
// side to become ground so the resolution table in §4.G can fire.
type Constraint struct {
	Kind     ConstraintKind
	Strength Strength

	// Linear constraint fields: sum(Coeffs[i] * Vars[i]) Kind Constant.
	Vars     []VarID
	Coeffs   []float64
	Constant float64

	// Function constraint fields: Result = Fn(Args...), with Inverse
	// available when the function is invertible in every argument
	// position (§4.G "invertible closed forms").
	Result  VarID
	Args    []VarID
	Fn      func(args []float64) (float64, error)
	Inverse func(result float64, knownArgs map[int]float64, solveFor int) (float64, error)

	// Arithmetic constraint fields: a pending binary relation between two
	// variables that cannot yet be evaluated because neither side is
	// ground.
	Op    ConstraintKind
	Left  VarID
	Right VarID
}

// shadowValue is the constraint store's numeric view of a variable,
// independent of (but kept consistent with) any Value binding the same
// VarID carries in the Environment — the two stores can disagree only
// transiently, between a numeric solve and the Unify that publishes it.
type shadowValue struct {
	known bool
	value float64
}

// ConstraintStore holds the arithmetic and function constraints attached
// to an Environment plus the shadow numeric value of every constrained
// variable (§4.G). It is guarded by its own mutex rather than reusing the
// Environment's, mirroring the teacher lineage's convention of giving
// each cooperating subsystem (trail, store, registry) an independent
// lock rather than one coarse lock for the whole runtime.
type ConstraintStore struct {
	mu          sync.Mutex
	env         *Environment
	shadows     map[VarID]shadowValue
	constraints []*Constraint
	pending     []*Constraint
	epsilon     float64

	// lastErr records a Required-constraint violation discovered
	// asynchronously inside notifyBound, where no caller is positioned to
	// receive a normal error return. TakeError lets the resolver collect
	// it after driving any goal that might have triggered a binding.
	lastErr error
}

// TakeError returns and clears the most recent asynchronously discovered
// constraint violation, if any.
func (cs *ConstraintStore) TakeError() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	err := cs.lastErr
	cs.lastErr = nil
	return err
}

func NewConstraintStore(env *Environment) *ConstraintStore {
	eps := 1e-6
	return &ConstraintStore{
		env:     env,
		shadows: make(map[VarID]shadowValue),
		epsilon: eps,
	}
}

// AddLinear registers a linear constraint (Equal/LEQ/GEQ) at the given
// strength (§4.G "add_arithmetic"). If every variable is already shadow-
// bound, the constraint is checked immediately; a Required violation is
// reported, weaker violations are simply dropped (never retried).
func (cs *ConstraintStore) AddLinear(kind ConstraintKind, vars []VarID, coeffs []float64, constant float64, strength Strength) error {
	c := &Constraint{Kind: kind, Strength: strength, Vars: vars, Coeffs: coeffs, Constant: constant}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.constraints = append(cs.constraints, c)
	return cs.tryEvaluateLinear(c)
}

// AddFunctionConstraint registers Result = fn(Args...) with an optional
// inverse for narrowing any single unknown argument when Result and the
// remaining arguments are known (§4.G "add_function_constraint").
func (cs *ConstraintStore) AddFunctionConstraint(result VarID, args []VarID, fn func([]float64) (float64, error), inverse func(float64, map[int]float64, int) (float64, error), strength Strength) error {
	c := &Constraint{Kind: ConstraintFunction, Strength: strength, Result: result, Args: args, Fn: fn, Inverse: inverse}
	cs.mu.Lock()
	cs.constraints = append(cs.constraints, c)
	bindVar, bindVal, err := cs.tryEvaluateFunction(c)
	cs.mu.Unlock()
	if err != nil {
		return err
	}
	if bindVar != 0 {
		cs.applyBind(bindVar, bindVal)
	}
	return nil
}

// AddPendingArithmetic registers a binary relation between two variables
// that cannot be resolved yet because neither side is ground (§4.G
// "add_pending_arithmetic"). It is re-tried every time either side's
// shadow value becomes known, via notifyBound.
func (cs *ConstraintStore) AddPendingArithmetic(op ConstraintKind, left, right VarID, strength Strength) {
	c := &Constraint{Kind: ConstraintArithmetic, Strength: strength, Op: op, Left: left, Right: right}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.pending = append(cs.pending, c)
}

// notifyBound is called by Environment.Bind every time a variable
// acquires a binding. If the bound value is numeric, it updates the
// shadow table and re-evaluates every constraint that mentions id —
// §4.G's resolution table:
//
//	both sides ground   -> check now, fail if Required and violated
//	one side ground      -> solve for the other via Inverse, if present
//	neither side ground   -> remains pending
//
// A function constraint's forward/inverse branch narrows another
// variable by calling env.Bind, which itself calls back into notifyBound
// — so the actual Bind call must happen only after cs.mu is released,
// never while still holding it (Go's sync.Mutex is not re-entrant and the
// same goroutine would deadlock on itself). Every constraint evaluation
// below therefore returns the bind it wants performed rather than
// performing it, and this function applies the accumulated binds after
// unlocking.
func (cs *ConstraintStore) notifyBound(id VarID, value *Value) {
	v := Deref(value)
	var num float64
	switch v.Kind {
	case VInteger:
		num = float64(v.Integer)
	case VFloat:
		num = v.Float
	default:
		return
	}

	cs.mu.Lock()
	cs.shadows[id] = shadowValue{known: true, value: num}

	var binds []pendingBind
	for _, c := range cs.constraints {
		bindVar, bindVal, err := cs.reevaluate(c)
		if err != nil && cs.lastErr == nil {
			cs.lastErr = err
		}
		if bindVar != 0 {
			binds = append(binds, pendingBind{bindVar, bindVal})
		}
	}
	remaining := cs.pending[:0]
	for _, c := range cs.pending {
		if !cs.reevaluatePending(c) {
			remaining = append(remaining, c)
		}
	}
	cs.pending = remaining
	cs.mu.Unlock()

	for _, b := range binds {
		cs.applyBind(b.varID, b.val)
	}
}

// pendingBind names a variable a constraint evaluation wants narrowed,
// deferred until after the store's lock is released.
type pendingBind struct {
	varID VarID
	val   *Value
}

// applyBind performs the deferred Bind for a constraint-narrowed
// variable, skipping it if the variable was already bound by the time
// the lock was released (e.g. by a concurrent unification).
func (cs *ConstraintStore) applyBind(id VarID, val *Value) {
	lv, ok := cs.env.Lookup(id)
	if !ok {
		return
	}
	if _, bound := lv.Binding(); bound {
		return
	}
	cs.env.Bind(id, val)
}

func (cs *ConstraintStore) reevaluate(c *Constraint) (VarID, *Value, error) {
	switch c.Kind {
	case ConstraintEqual, ConstraintLEQ, ConstraintGEQ:
		return 0, nil, cs.tryEvaluateLinear(c)
	case ConstraintFunction:
		return cs.tryEvaluateFunction(c)
	}
	return 0, nil, nil
}

// reevaluatePending attempts to resolve a pending arithmetic constraint
// now that some variable has become known; returns true if it resolved
// (successfully or by hard failure) and should be dropped from pending.
func (cs *ConstraintStore) reevaluatePending(c *Constraint) bool {
	ls, lok := cs.shadows[c.Left]
	rs, rok := cs.shadows[c.Right]
	if !lok || !rok {
		return false
	}
	ok := cs.checkRelation(c.Op, ls.value, rs.value)
	if !ok && c.Strength == Required {
		cs.lastErr = fmt.Errorf("kanren: constraint: %w", ErrConstraintUnsat)
	}
	return true
}

func (cs *ConstraintStore) tryEvaluateLinear(c *Constraint) error {
	sum := c.Constant * -1
	allKnown := true
	for i, vid := range c.Vars {
		sv, ok := cs.shadows[vid]
		if !ok {
			allKnown = false
			break
		}
		sum += c.Coeffs[i] * sv.value
	}
	if !allKnown {
		return nil
	}
	ok := cs.checkLinear(c.Kind, sum)
	if !ok && c.Strength == Required {
		return fmt.Errorf("kanren: linear constraint violated: %w", ErrConstraintUnsat)
	}
	return nil
}

func (cs *ConstraintStore) checkLinear(kind ConstraintKind, sum float64) bool {
	switch kind {
	case ConstraintEqual:
		return math.Abs(sum) <= cs.epsilon
	case ConstraintLEQ:
		return sum <= cs.epsilon
	case ConstraintGEQ:
		return sum >= -cs.epsilon
	default:
		return true
	}
}

func (cs *ConstraintStore) checkRelation(op ConstraintKind, l, r float64) bool {
	switch op {
	case ConstraintEqual:
		return math.Abs(l-r) <= cs.epsilon
	case ConstraintLEQ:
		return l <= r+cs.epsilon
	case ConstraintGEQ:
		return l >= r-cs.epsilon
	default:
		return true
	}
}

// tryEvaluateFunction implements the "one side ground -> solve via
// Inverse" branch of the resolution table. If Result and every Arg are
// known, it checks the equation holds; if Result and all but one Arg are
// known and Inverse is set, it solves for the missing argument; otherwise
// it leaves the constraint pending. It never calls env.Bind itself — see
// notifyBound's doc comment — instead returning the (variable, value) the
// caller should bind once cs.mu is released, or a zero VarID if nothing
// needs binding.
func (cs *ConstraintStore) tryEvaluateFunction(c *Constraint) (VarID, *Value, error) {
	resultKnown, _ := cs.shadows[c.Result]
	known := make(map[int]float64)
	missing := -1
	for i, vid := range c.Args {
		if sv, ok := cs.shadows[vid]; ok {
			known[i] = sv.value
		} else {
			if missing != -1 {
				return 0, nil, nil // more than one unknown argument, stays pending
			}
			missing = i
		}
	}

	if missing == -1 && resultKnown.known {
		args := make([]float64, len(c.Args))
		for i := range c.Args {
			args[i] = known[i]
		}
		computed, err := c.Fn(args)
		if err != nil {
			return 0, nil, err
		}
		if math.Abs(computed-resultKnown.value) > cs.epsilon && c.Strength == Required {
			return 0, nil, fmt.Errorf("kanren: function constraint violated: %w", ErrConstraintUnsat)
		}
		return 0, nil, nil
	}

	if missing != -1 && resultKnown.known && c.Inverse != nil {
		solved, err := c.Inverse(resultKnown.value, known, missing)
		if err != nil {
			return 0, nil, err
		}
		cs.shadows[c.Args[missing]] = shadowValue{known: true, value: solved}
		return c.Args[missing], NewFloat(solved), nil
	}

	if missing == -1 && !resultKnown.known {
		args := make([]float64, len(c.Args))
		for i := range c.Args {
			args[i] = known[i]
		}
		computed, err := c.Fn(args)
		if err != nil {
			return 0, nil, err
		}
		cs.shadows[c.Result] = shadowValue{known: true, value: computed}
		return c.Result, NewFloat(computed), nil
	}
	return 0, nil, nil
}
