package kanren

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMatchesPersistentFact(t *testing.T) {
	rt := NewRuntime()
	defer rt.Cleanup()

	parent := rt.Symbols.Intern("parent")
	alice := rt.Symbols.Intern("alice")
	bob := rt.Symbols.Intern("bob")
	rt.KB.AddPersistentFact(NewCompoundTerm(parent, NewAtomTerm(alice), NewAtomTerm(bob)))

	goal := NewCompoundTerm(parent, NewAtomTerm(alice), NewAtomTerm(bob))
	found, _, err := rt.QueryFirst(context.Background(), goal)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestResolveFailsOnNoMatchingFact(t *testing.T) {
	rt := NewRuntime()
	defer rt.Cleanup()

	parent := rt.Symbols.Intern("parent")
	alice := rt.Symbols.Intern("alice")
	bob := rt.Symbols.Intern("bob")
	rt.KB.AddPersistentFact(NewCompoundTerm(parent, NewAtomTerm(alice), NewAtomTerm(bob)))

	goal := NewCompoundTerm(parent, NewAtomTerm(bob), NewAtomTerm(alice))
	found, _, err := rt.QueryFirst(context.Background(), goal)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecursiveAncestorRule(t *testing.T) {
	rt := NewRuntime()
	defer rt.Cleanup()

	alice := rt.Symbols.Intern("alice")
	bob := rt.Symbols.Intern("bob")
	carol := rt.Symbols.Intern("carol")
	parent := rt.Symbols.Intern("parent")
	ancestor := rt.Symbols.Intern("ancestor")

	rt.KB.AddPersistentFact(NewCompoundTerm(parent, NewAtomTerm(alice), NewAtomTerm(bob)))
	rt.KB.AddPersistentFact(NewCompoundTerm(parent, NewAtomTerm(bob), NewAtomTerm(carol)))

	x := NewVarTerm(VarID(100001))
	y := NewVarTerm(VarID(100002))
	z := NewVarTerm(VarID(100003))

	rt.KB.AddRule(NewCompoundTerm(ancestor, x, y), []Term{NewCompoundTerm(parent, x, y)}, nil)
	rt.KB.AddRule(NewCompoundTerm(ancestor, x, y), []Term{
		NewCompoundTerm(parent, x, z),
		NewCompoundTerm(ancestor, z, y),
	}, nil)

	found, _, err := rt.QueryFirst(context.Background(), NewCompoundTerm(ancestor, NewAtomTerm(alice), NewAtomTerm(carol)))
	require.NoError(t, err)
	assert.True(t, found)

	found, _, err = rt.QueryFirst(context.Background(), NewCompoundTerm(ancestor, NewAtomTerm(carol), NewAtomTerm(alice)))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestQueryEnumeratesEveryDistinctSolution(t *testing.T) {
	rt := NewRuntime()
	defer rt.Cleanup()

	likes := rt.Symbols.Intern("likes")
	alice := rt.Symbols.Intern("alice")
	tea := rt.Symbols.Intern("tea")
	coffee := rt.Symbols.Intern("coffee")
	rt.KB.AddPersistentFact(NewCompoundTerm(likes, NewAtomTerm(alice), NewAtomTerm(tea)))
	rt.KB.AddPersistentFact(NewCompoundTerm(likes, NewAtomTerm(alice), NewAtomTerm(coffee)))

	what := NewVarTerm(VarID(200001))
	goal := NewCompoundTerm(likes, NewAtomTerm(alice), what)

	solutions, err := rt.Query(context.Background(), goal)
	require.NoError(t, err)
	assert.Len(t, solutions.Items(), 2)
}

func TestRecursionDepthPruningTerminates(t *testing.T) {
	rt := NewRuntime(WithMaxRecursionDepth(4))
	defer rt.Cleanup()

	loop := rt.Symbols.Intern("loop")
	x := NewVarTerm(VarID(300001))
	// loop(X) :- loop(X). — infinite without pruning.
	rt.KB.AddRule(NewCompoundTerm(loop, x), []Term{NewCompoundTerm(loop, x)}, nil)

	found, _, err := rt.QueryFirst(context.Background(), NewCompoundTerm(loop, NewIntegerTerm(1)))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestForwardChainFiresProductionRuleOnce(t *testing.T) {
	rt := NewRuntime()
	defer rt.Cleanup()

	have := rt.Symbols.Intern("have")
	made := rt.Symbols.Intern("made")
	bread := rt.Symbols.Intern("bread")
	cheese := rt.Symbols.Intern("cheese")
	sandwich := rt.Symbols.Intern("sandwich")

	rt.KB.AddLinearFact(NewCompoundTerm(have, NewAtomTerm(bread)))
	rt.KB.AddLinearFact(NewCompoundTerm(have, NewAtomTerm(cheese)))
	rt.KB.AddRule(NewCompoundTerm(made, NewAtomTerm(sandwich)), []Term{
		NewCompoundTerm(have, NewAtomTerm(bread)),
		NewCompoundTerm(have, NewAtomTerm(cheese)),
	}, NewCompoundTerm(made, NewAtomTerm(sandwich)))

	require.NoError(t, rt.Resolver.ForwardChain(context.Background(), rt.Env))

	found, _, err := rt.QueryFirst(context.Background(), NewCompoundTerm(made, NewAtomTerm(sandwich)))
	require.NoError(t, err)
	assert.True(t, found)

	// The ingredients were consumed firing the production rule.
	assert.Empty(t, rt.KB.candidates(have, 1))
}

func TestForwardChainDoesNotRefireWithoutFreshIngredients(t *testing.T) {
	rt := NewRuntime()
	defer rt.Cleanup()

	have := rt.Symbols.Intern("have")
	made := rt.Symbols.Intern("made")
	bread := rt.Symbols.Intern("bread")
	sandwich := rt.Symbols.Intern("sandwich")

	rt.KB.AddLinearFact(NewCompoundTerm(have, NewAtomTerm(bread)))
	rt.KB.AddRule(NewCompoundTerm(made, NewAtomTerm(sandwich)), []Term{
		NewCompoundTerm(have, NewAtomTerm(bread)),
	}, NewCompoundTerm(made, NewAtomTerm(sandwich)))

	require.NoError(t, rt.Resolver.ForwardChain(context.Background(), rt.Env))
	require.NoError(t, rt.Resolver.ForwardChain(context.Background(), rt.Env))

	solutions, err := rt.Query(context.Background(), NewCompoundTerm(made, NewAtomTerm(sandwich)))
	require.NoError(t, err)
	assert.Len(t, solutions.Items(), 1, "the same consequence must not be re-derived on a second forward chain pass")
}

// TestProductionFiresMidConjunctionWithoutSeparateForwardChain exercises
// spec's worked forward-chaining scenario directly through resolveConjunction
// rather than through the separate batch ForwardChain pass: once a
// production rule's body is discharged while proving the first goal of a
// conjunction, the produced resource must be visible to (and consumable
// by) the second goal in that same conjunction.
func TestProductionFiresMidConjunctionWithoutSeparateForwardChain(t *testing.T) {
	rt := NewRuntime()
	defer rt.Cleanup()

	have := rt.Symbols.Intern("have")
	made := rt.Symbols.Intern("made")
	ate := rt.Symbols.Intern("ate")
	bread := rt.Symbols.Intern("bread")
	cheese := rt.Symbols.Intern("cheese")
	sandwich := rt.Symbols.Intern("sandwich")

	rt.KB.AddLinearFact(NewCompoundTerm(have, NewAtomTerm(bread)))
	rt.KB.AddLinearFact(NewCompoundTerm(have, NewAtomTerm(cheese)))

	// have(bread), have(cheese) ⊸ made(sandwich).
	rt.KB.AddRule(
		NewCompoundTerm(made, NewAtomTerm(sandwich)),
		[]Term{
			NewCompoundTerm(have, NewAtomTerm(bread)),
			NewCompoundTerm(have, NewAtomTerm(cheese)),
		},
		NewCompoundTerm(made, NewAtomTerm(sandwich)),
	)
	// ate(sandwich) :- made(sandwich).
	rt.KB.AddRule(
		NewCompoundTerm(ate, NewAtomTerm(sandwich)),
		[]Term{NewCompoundTerm(made, NewAtomTerm(sandwich))},
		nil,
	)

	goals := []Term{
		NewCompoundTerm(made, NewAtomTerm(sandwich)),
		NewCompoundTerm(ate, NewAtomTerm(sandwich)),
	}
	found := false
	_, err := rt.Resolver.resolveConjunction(context.Background(), rt.Env, goals, nil, func() bool {
		found = true
		return false
	})
	require.NoError(t, err)
	assert.True(t, found, "a production asserted while discharging the first goal must be consumable by the second goal in the same conjunction")
}

// TestFailedResolutionRestoresConsumedResource covers the choice-point
// wiring in resolveConjunction's candidate loop: a resource consumed while
// pursuing a goal that ultimately fails further down the conjunction must
// be restored, not left dangling as permanently consumed.
func TestFailedResolutionRestoresConsumedResource(t *testing.T) {
	rt := NewRuntime()
	defer rt.Cleanup()

	have := rt.Symbols.Intern("have")
	bread := rt.Symbols.Intern("bread")
	impossible := rt.Symbols.Intern("impossible")
	rt.KB.AddLinearFact(NewCompoundTerm(have, NewAtomTerm(bread)))

	goals := []Term{
		NewCompoundTerm(have, NewAtomTerm(bread)),
		NewCompoundTerm(impossible),
	}
	stop, err := rt.Resolver.resolveConjunction(context.Background(), rt.Env, goals, nil, func() bool { return false })
	require.NoError(t, err)
	assert.False(t, stop)

	assert.Len(t, rt.KB.candidates(have, 1), 1,
		"a resource consumed while proving a goal that fails downstream must be restored")
}
