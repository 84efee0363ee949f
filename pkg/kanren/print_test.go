package kanren

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintTermRendersAtomsAndCompounds(t *testing.T) {
	st := NewSymbolTable()
	parent := st.Intern("parent")
	alice := st.Intern("alice")
	bob := st.Intern("bob")

	term := NewCompoundTerm(parent, NewAtomTerm(alice), NewAtomTerm(bob))
	assert.Equal(t, "parent(alice, bob)", PrintTerm(term, st))
}

func TestPrintTermRendersVarAndInteger(t *testing.T) {
	st := NewSymbolTable()
	assert.Equal(t, "_G7", PrintTerm(NewVarTerm(VarID(7)), st))
	assert.Equal(t, "42", PrintTerm(NewIntegerTerm(42), st))
}

func TestPrintValueRendersListAndConsumedAnnotation(t *testing.T) {
	st := NewSymbolTable()
	list := NewList(NewInteger(1), NewInteger(2))
	assert.Equal(t, "[1, 2]", PrintValue(list, st))

	v := NewInteger(5)
	v.IsConsumed = true
	v.ConsumptionCount = 1
	assert.Equal(t, "5 [consumed x1]", PrintValue(v, st))
}

func TestPrintValueRendersUnboundVariablePlaceholder(t *testing.T) {
	env := newTestEnv()
	v := &Value{Kind: VLogicalVar, Var: env.FreshVar("x")}
	assert.Contains(t, PrintValue(v, env.Symbols), "_G")
}

func TestPrintValueRendersRecord(t *testing.T) {
	st := NewSymbolTable()
	name := st.Intern("name")
	record := NewRecord(RecordField{Name: name, Value: NewString("alice")})
	assert.Equal(t, `{name: "alice"}`, PrintValue(record, st))
}
