package kanren

import "github.com/google/uuid"

// ChoicePoint bundles everything backtracking needs to undo in lockstep:
// the trail's own checkpoint, a snapshot of which linear resources were
// consumed, and a link to the parent choice point so backtrack can walk
// the whole stack back to the root (§4.I). Alternatives holds the
// not-yet-tried continuations recorded when the choice point was created;
// resolveConjunction's recursive walk is the primary consumer of
// backtracking in this package, but ChoicePoint exists as a first-class
// value so the concurrency layer and any future iterative resolver can
// save and restore search state without depending on Go's call stack.
type ChoicePoint struct {
	ID              string
	Trail           Checkpoint
	ConsumeSnapshot consumeSnapshot
	Alternatives    []func(env *Environment) bool
	Parent          *ChoicePoint
}

// NewChoicePoint captures env's current trail position and the knowledge
// base's current consumption state, pairing them with the still-untried
// alternatives for this goal.
func NewChoicePoint(env *Environment, kb *KnowledgeBase, alternatives []func(env *Environment) bool, parent *ChoicePoint) *ChoicePoint {
	return &ChoicePoint{
		ID:              uuid.NewString(),
		Trail:           env.Checkpoint(),
		ConsumeSnapshot: kb.consumeSnapshot(),
		Alternatives:    alternatives,
		Parent:          parent,
	}
}

// Backtrack undoes every trail entry and consumption flip made since cp
// was created, then tries cp's next untried alternative. It returns the
// alternative's result and whether any alternative remained to try; when
// no alternative remains, the caller should continue backtracking into
// cp.Parent (§4.I "backtrack").
func Backtrack(env *Environment, kb *KnowledgeBase, cp *ChoicePoint) (succeeded bool, exhausted bool) {
	env.Rollback(cp.Trail)
	kb.restoreSnapshot(cp.ConsumeSnapshot)

	for len(cp.Alternatives) > 0 {
		next := cp.Alternatives[0]
		cp.Alternatives = cp.Alternatives[1:]
		if next(env) {
			return true, false
		}
		env.Rollback(cp.Trail)
		kb.restoreSnapshot(cp.ConsumeSnapshot)
	}
	return false, true
}

// Commit discards cp's remaining alternatives and its KB consumption
// snapshot — once a caller has what it needs from this branch and has no
// intention of backtracking into it (§4.I "commit"). The trail checkpoint
// in cp.Trail is left as it is.
func Commit(cp *ChoicePoint) {
	cp.Alternatives = nil
	cp.ConsumeSnapshot = nil
}
