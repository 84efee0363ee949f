package kanren

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLengthOnGroundList(t *testing.T) {
	env := newTestEnv()
	r := NewRegistry()
	RegisterBuiltins(r)
	env.Registry = r

	list := NewList(NewInteger(1), NewInteger(2), NewInteger(3))
	n := &Value{Kind: VLogicalVar, Var: env.FreshVar("n")}
	require.NoError(t, NarrowCall(env, "length", []*Value{list}, n))
	assert.Equal(t, int64(3), Deref(n).Integer)
}

func TestBuiltinLengthSuspendsOnUnboundList(t *testing.T) {
	env := newTestEnv()
	r := NewRegistry()
	RegisterBuiltins(r)
	env.Registry = r

	listVar := env.FreshVar("list")
	n := &Value{Kind: VLogicalVar, Var: env.FreshVar("n")}
	require.NoError(t, NarrowCall(env, "length", []*Value{{Kind: VLogicalVar, Var: listVar}}, n))
	_, bound := n.Var.Binding()
	assert.False(t, bound, "length must suspend rather than reduce against an unbound list")

	env.Bind(listVar.ID, NewList(NewInteger(1), NewInteger(2)))
	assert.Equal(t, int64(2), Deref(n).Integer)
}

func TestBuiltinReverse(t *testing.T) {
	env := newTestEnv()
	r := NewRegistry()
	RegisterBuiltins(r)
	env.Registry = r

	list := NewList(NewInteger(1), NewInteger(2), NewInteger(3))
	rev := &Value{Kind: VLogicalVar, Var: env.FreshVar("rev")}
	require.NoError(t, NarrowCall(env, "reverse", []*Value{list}, rev))
	got := Deref(rev)
	require.Equal(t, 3, got.List.Length)
	assert.Equal(t, int64(3), got.List.Elements[0].Integer)
	assert.Equal(t, int64(1), got.List.Elements[2].Integer)
}

func TestBuiltinAppendBothGround(t *testing.T) {
	env := newTestEnv()
	r := NewRegistry()
	RegisterBuiltins(r)
	env.Registry = r

	xs := NewList(NewInteger(1), NewInteger(2))
	ys := NewList(NewInteger(3))
	zs := &Value{Kind: VLogicalVar, Var: env.FreshVar("zs")}
	require.NoError(t, NarrowCall(env, "append", []*Value{xs, ys}, zs))
	got := Deref(zs)
	require.Equal(t, 3, got.List.Length)
	assert.Equal(t, int64(3), got.List.Elements[2].Integer)
}

func TestAppendGoalEnumeratesSplitsOfGroundZs(t *testing.T) {
	env := newTestEnv()
	xs := &Value{Kind: VLogicalVar, Var: env.FreshVar("xs")}
	ys := NewList(NewInteger(3), NewInteger(4))
	zs := NewList(NewInteger(1), NewInteger(2), NewInteger(3), NewInteger(4))

	solved := appendRelation(env, xs, ys, zs)
	require.True(t, solved)
	got := Deref(xs)
	require.Equal(t, 2, got.List.Length)
	assert.Equal(t, int64(1), got.List.Elements[0].Integer)
	assert.Equal(t, int64(2), got.List.Elements[1].Integer)
}

func TestAppendGoalFailsWhenNoSplitMatches(t *testing.T) {
	env := newTestEnv()
	xs := &Value{Kind: VLogicalVar, Var: env.FreshVar("xs")}
	ys := NewList(NewInteger(99))
	zs := NewList(NewInteger(1), NewInteger(2))

	solved := appendRelation(env, xs, ys, zs)
	assert.False(t, solved)
}

func TestAppendGoalReportsNoAlternativesWhenNeitherSideGround(t *testing.T) {
	env := newTestEnv()
	xs := &Value{Kind: VLogicalVar, Var: env.FreshVar("xs")}
	ys := &Value{Kind: VLogicalVar, Var: env.FreshVar("ys")}
	zs := &Value{Kind: VLogicalVar, Var: env.FreshVar("zs")}

	alts := AppendGoal(env, xs, ys, zs)
	assert.Empty(t, alts)
}
