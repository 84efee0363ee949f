package kanren

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshVarAllocatesUniqueIDs(t *testing.T) {
	env := newTestEnv()
	a := env.FreshVar("a")
	b := env.FreshVar("b")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBindThenLookup(t *testing.T) {
	env := newTestEnv()
	v := env.FreshVar("x")
	env.Bind(v.ID, NewInteger(5))
	lv, ok := env.Lookup(v.ID)
	require.True(t, ok)
	bound, ok := lv.Binding()
	require.True(t, ok)
	assert.Equal(t, int64(5), bound.Integer)
}

func TestChildLookupFallsThroughToParent(t *testing.T) {
	parent := newTestEnv()
	v := parent.FreshVar("x")
	parent.Bind(v.ID, NewInteger(1))

	child := parent.Child()
	lv, ok := child.Lookup(v.ID)
	require.True(t, ok)
	bound, _ := lv.Binding()
	assert.Equal(t, int64(1), bound.Integer)
}

func TestChildRollbackDoesNotAffectParent(t *testing.T) {
	parent := newTestEnv()
	parentVar := parent.FreshVar("p")
	parent.Bind(parentVar.ID, NewInteger(1))

	child := parent.Child()
	childVar := child.FreshVar("c")
	cp := child.Checkpoint()
	child.Bind(childVar.ID, NewInteger(2))
	child.Rollback(cp)

	_, bound := childVar.Binding()
	assert.False(t, bound)
	parentBound, ok := parentVar.Binding()
	require.True(t, ok)
	assert.Equal(t, int64(1), parentBound.Integer)
}

func TestDeclareVarIsIdempotent(t *testing.T) {
	env := newTestEnv()
	lv1 := env.declareVar(VarID(500))
	lv2 := env.declareVar(VarID(500))
	assert.Same(t, lv1, lv2)
}

func TestBindWakesSuspensionOnDependentVariable(t *testing.T) {
	env := newTestEnv()
	v := env.FreshVar("x")
	fired := false

	susp := newSuspension(SuspUnification, []VarID{v.ID}, func(env *Environment) bool {
		fired = true
		return true
	})
	addSuspension(env, susp)

	env.Bind(v.ID, NewInteger(1))
	assert.True(t, fired)
	assert.False(t, susp.Active)
}

func TestSuspensionReattachesUntilAllDependenciesBound(t *testing.T) {
	env := newTestEnv()
	a := env.FreshVar("a")
	b := env.FreshVar("b")
	fireCount := 0

	susp := newSuspension(SuspUnification, []VarID{a.ID, b.ID}, func(env *Environment) bool {
		fireCount++
		return true
	})
	addSuspension(env, susp)

	env.Bind(a.ID, NewInteger(1))
	assert.Equal(t, 0, fireCount, "must not fire until every dependency is bound")

	env.Bind(b.ID, NewInteger(2))
	assert.Equal(t, 1, fireCount)
}
