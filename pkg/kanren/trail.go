package kanren

import (
	"fmt"
	"sync"
)

// Checkpoint is an opaque marker returned by checkpoint() and consumed by
// rollback/commit. It is simply a trail length (§4.D design note: "a
// trail entry is (var_id, previous_binding); this also makes checkpoints
// trivial").
type Checkpoint int

// trailOp distinguishes what a TrailEntry undoes on rollback.
type trailOp int

const (
	opBinding trailOp = iota
	opConsumption
	opInsertion
)

// TrailEntry journals one reversible effect: a variable binding (with its
// previous value restored on rollback), a linear consumption (flipped back
// to unconsumed on rollback), or a fresh KB insertion (popped back off on
// rollback). Timestamp is the entry's position in the trail and is
// strictly increasing by construction — the slice index already satisfies
// "entry i.timestamp < entry i+1.timestamp" so no separate counter is
// needed.
type TrailEntry struct {
	Op     trailOp
	Active bool

	// opBinding fields.
	Var      *LogicalVar
	PrevBind *Value

	// opConsumption fields.
	Value *Value

	// opInsertion fields: the KB a fresh linear resource was prepended to,
	// under which bucket key, and the resource node itself.
	KB        *KnowledgeBase
	BucketKey string
	Resource  *LinearResource
}

// LinearTrail is the append-only journal of reversible effects described
// in §4.D, plus a stack of checkpoint positions. A fresh trail starts with
// no entries and no open checkpoints.
type LinearTrail struct {
	mu          sync.Mutex
	entries     []TrailEntry
	checkpoints []int

	// Strict resolves the "linearity enforcement strictness" open
	// question in favor of mode (a) when set: RecordConsumption rejects a
	// second consumption of an already-consumed value instead of merely
	// counting it. Set from RuntimeConfig.StrictLinearity at runtime
	// construction time; false (mode (b), lenient) by default.
	Strict bool
}

func NewLinearTrail() *LinearTrail {
	return &LinearTrail{}
}

// recordBinding appends a binding-undo entry. Called by Environment.Bind;
// not part of the public trail API because a binding is only ever
// produced by the environment that owns the variable.
func (t *LinearTrail) recordBinding(v *LogicalVar, prev *Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, TrailEntry{Op: opBinding, Active: true, Var: v, PrevBind: prev})
}

// RecordConsumption appends a consumption entry and marks value consumed,
// per §4.D's public contract. op is free-form metadata (e.g. the kind of
// consuming operation) kept only for diagnostics. In strict mode, a
// second consumption of an already-consumed value is rejected with
// ErrLinearViolation rather than merely incrementing ConsumptionCount.
func (t *LinearTrail) RecordConsumption(value *Value, op string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Strict && value.IsConsumed {
		return fmt.Errorf("kanren: consume %s: %w", op, ErrLinearViolation)
	}
	t.entries = append(t.entries, TrailEntry{Op: opConsumption, Active: true, Value: value})
	value.IsConsumed = true
	value.ConsumptionCount++
	return nil
}

// recordInsertion appends an insertion-undo entry for a linear resource
// just prepended to kb's bucket key — called by
// KnowledgeBase.AddLinearFactTrailed so a production fired mid-conjunction
// (§4.H) can be undone by ordinary backtracking, unlike the untracked
// mutation AddLinearFact performs for facts asserted before resolution
// begins.
func (t *LinearTrail) recordInsertion(kb *KnowledgeBase, key string, r *LinearResource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, TrailEntry{Op: opInsertion, Active: true, KB: kb, BucketKey: key, Resource: r})
}

// checkpoint returns the current trail length and pushes it onto the
// checkpoint stack.
func (t *LinearTrail) checkpoint() Checkpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := Checkpoint(len(t.entries))
	t.checkpoints = append(t.checkpoints, int(cp))
	return cp
}

// rollback undoes every active entry at index >= cp, in reverse order,
// then truncates the trail to length cp. env is needed to restore variable
// bindings in place (the entry only remembers the previous *Value, not
// which environment installed the new one — but since a LogicalVar is
// always looked up through its owning environment, the pointer on the
// entry is enough: we write straight back into lv.binding).
//
// Rollback is idempotent for entries already marked inactive, and must
// target the topmost checkpoint — callers that violate stack discipline
// (rolling back a non-topmost checkpoint) get undefined trail length, so
// the resolver and choice-point machinery always roll back innermost
// checkpoints first.
func (t *LinearTrail) rollback(env *Environment, cp Checkpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.entries) - 1; i >= int(cp); i-- {
		e := &t.entries[i]
		if !e.Active {
			continue
		}
		switch e.Op {
		case opBinding:
			e.Var.binding = e.PrevBind
		case opConsumption:
			e.Value.IsConsumed = false
			if e.Value.ConsumptionCount > 0 {
				e.Value.ConsumptionCount--
			}
		case opInsertion:
			e.KB.removeHead(e.BucketKey, e.Resource)
		}
		e.Active = false
	}
	t.entries = t.entries[:cp]
	t.popCheckpointAtOrAbove(cp)
}

// commit finalizes all entries below cp (their effects are permanent) and
// pops the checkpoint. "Finalizing" a consumption entry in this
// implementation means nothing beyond popping the checkpoint marker: Go's
// garbage collector reclaims consumed values once nothing references them,
// so there is no explicit free step the way a manually-managed-memory
// original would need.
func (t *LinearTrail) commit(cp Checkpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.popCheckpointAtOrAbove(cp)
}

func (t *LinearTrail) popCheckpointAtOrAbove(cp Checkpoint) {
	for len(t.checkpoints) > 0 && t.checkpoints[len(t.checkpoints)-1] >= int(cp) {
		t.checkpoints = t.checkpoints[:len(t.checkpoints)-1]
	}
}

// Len reports the current trail length, mostly useful in tests asserting
// rollback restored the exact pre-checkpoint length.
func (t *LinearTrail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
