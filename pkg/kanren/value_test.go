package kanren

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestEnv() *Environment {
	return NewEnvironment(NewSymbolTable(), NewRegistry(), zap.NewNop().Sugar())
}

func TestIsGroundScalars(t *testing.T) {
	assert.True(t, IsGround(NewInteger(1)))
	assert.True(t, IsGround(NewFloat(1.5)))
	assert.True(t, IsGround(NewString("x")))
	assert.True(t, IsGround(NewAtomValue(1)))
}

func TestIsGroundUnboundVar(t *testing.T) {
	env := newTestEnv()
	v := &Value{Kind: VLogicalVar, Var: env.FreshVar("x")}
	assert.False(t, IsGround(v))
	env.Bind(v.Var.ID, NewInteger(5))
	assert.True(t, IsGround(v))
}

func TestIsGroundList(t *testing.T) {
	env := newTestEnv()
	bound := &Value{Kind: VLogicalVar, Var: env.FreshVar("x")}
	list := NewList(NewInteger(1), bound)
	assert.False(t, IsGround(list))
	env.Bind(bound.Var.ID, NewInteger(2))
	assert.True(t, IsGround(list))
}

func TestDerefChasesBindingChain(t *testing.T) {
	env := newTestEnv()
	v := &Value{Kind: VLogicalVar, Var: env.FreshVar("x")}
	assert.Equal(t, v, Deref(v))
	env.Bind(v.Var.ID, NewInteger(42))
	got := Deref(v)
	assert.Equal(t, VInteger, got.Kind)
	assert.Equal(t, int64(42), got.Integer)
}

func TestDeepCopyProducesIndependentFreshVars(t *testing.T) {
	env := newTestEnv()
	orig := &Value{Kind: VLogicalVar, Var: env.FreshVar("x")}
	env.Bind(orig.Var.ID, NewInteger(3))

	dup := DeepCopy(orig, env)
	assert.NotEqual(t, orig.Var.ID, dup.Var.ID)
	dupBound := Deref(dup)
	assert.Equal(t, int64(3), dupBound.Integer)
}

func TestDeepCopyList(t *testing.T) {
	env := newTestEnv()
	list := NewList(NewInteger(1), NewInteger(2))
	dup := DeepCopy(list, env)
	assert.Equal(t, 2, dup.List.Length)
	assert.NotSame(t, list.List, dup.List)
}

func TestApplyFunctionPartialThenFull(t *testing.T) {
	env := newTestEnv()
	called := false
	fn := NewFunctionValue("add", 2, func(env *Environment, args []*Value) (*Value, bool, error) {
		called = true
		return NewInteger(args[0].Integer + args[1].Integer), true, nil
	})

	partial, err := ApplyFunction(env, fn, []*Value{NewInteger(1)})
	assert.NoError(t, err)
	assert.Equal(t, VPartialApp, partial.Kind)
	assert.False(t, called)

	result, err := ApplyFunction(env, partial, []*Value{NewInteger(2)})
	assert.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, int64(3), Deref(result).Integer)
}

func TestApplyFunctionOverApplicationRejected(t *testing.T) {
	env := newTestEnv()
	fn := NewFunctionValue("unary", 1, func(env *Environment, args []*Value) (*Value, bool, error) {
		return args[0], true, nil
	})
	_, err := ApplyFunction(env, fn, []*Value{NewInteger(1), NewInteger(2)})
	assert.ErrorIs(t, err, ErrArityMismatch)
}
