// Package main demonstrates the core runtime: unification, the linear
// knowledge base and resolver, suspension-driven narrowing, and the
// arithmetic/function constraint store.
package main

import (
	"context"
	"fmt"

	"linkanren/pkg/kanren"
)

func main() {
	fmt.Println("=== kanren core runtime examples ===")
	fmt.Println()

	ancestorExample()
	membershipOverUnionExample()
	lengthReverseAppendExample()
	functionConstraintExample()
	productionRuleExample()
}

// ancestorExample builds a small parent/2 knowledge base and derives
// ancestor/2 via a recursive rule.
func ancestorExample() {
	fmt.Println("1. Ancestor via persistent parent facts:")

	rt := kanren.NewRuntime()
	defer rt.Cleanup()

	alice := rt.Symbols.Intern("alice")
	bob := rt.Symbols.Intern("bob")
	carol := rt.Symbols.Intern("carol")
	parent := rt.Symbols.Intern("parent")
	ancestor := rt.Symbols.Intern("ancestor")

	rt.KB.AddPersistentFact(kanren.NewCompoundTerm(parent,
		kanren.NewAtomTerm(alice), kanren.NewAtomTerm(bob)))
	rt.KB.AddPersistentFact(kanren.NewCompoundTerm(parent,
		kanren.NewAtomTerm(bob), kanren.NewAtomTerm(carol)))

	x := kanren.NewVarTerm(kanren.VarID(1001))
	y := kanren.NewVarTerm(kanren.VarID(1002))
	z := kanren.NewVarTerm(kanren.VarID(1003))

	// ancestor(X, Y) :- parent(X, Y).
	rt.KB.AddRule(
		kanren.NewCompoundTerm(ancestor, x, y),
		[]kanren.Term{kanren.NewCompoundTerm(parent, x, y)},
		nil,
	)
	// ancestor(X, Y) :- parent(X, Z), ancestor(Z, Y).
	rt.KB.AddRule(
		kanren.NewCompoundTerm(ancestor, x, y),
		[]kanren.Term{
			kanren.NewCompoundTerm(parent, x, z),
			kanren.NewCompoundTerm(ancestor, z, y),
		},
		nil,
	)

	query := kanren.NewCompoundTerm(ancestor, kanren.NewAtomTerm(alice), kanren.NewAtomTerm(carol))
	found, _, err := rt.QueryFirst(context.Background(), query)
	if err != nil {
		fmt.Printf("   error: %v\n", err)
		return
	}
	fmt.Printf("   ancestor(alice, carol)? => %v\n\n", found)
}

// membershipOverUnionExample shows a goal matching against a resource
// whose type tag is reached only through a union mapping, not a direct
// tag match.
func membershipOverUnionExample() {
	fmt.Println("2. Membership over a union type hierarchy:")

	rt := kanren.NewRuntime()
	defer rt.Cleanup()

	mammal := rt.Symbols.Intern("mammal")
	reptile := rt.Symbols.Intern("reptile")
	animal := rt.Symbols.Intern("animal")
	rt.KB.AddUnionMapping(animal, mammal, reptile)

	dog := rt.Symbols.Intern("dog")
	isA := rt.Symbols.Intern("is_a")
	rt.KB.AddPersistentFact(kanren.NewTypedCompoundTerm(isA,
		kanren.TypeID{Base: mammal}, kanren.NewAtomTerm(dog)))

	goalTag := kanren.TypeID{Base: animal}
	resourceTag := kanren.TypeID{Base: mammal}
	fmt.Printf("   animal-tagged goal compatible with mammal-tagged fact? => %v\n\n",
		rt.KB.TagCompatible(goalTag, resourceTag))
}

// lengthReverseAppendExample narrows length/2 and reverse/2 built-ins
// and drives the relational append/3 goal over an unbound prefix.
func lengthReverseAppendExample() {
	fmt.Println("3. length, reverse, and relational append:")

	rt := kanren.NewRuntime()
	defer rt.Cleanup()

	list := kanren.NewList(kanren.NewInteger(1), kanren.NewInteger(2), kanren.NewInteger(3))

	n := &kanren.Value{Kind: kanren.VLogicalVar, Var: rt.Env.FreshVar("n")}
	if err := kanren.NarrowCall(rt.Env, "length", []*kanren.Value{list}, n); err != nil {
		fmt.Printf("   length error: %v\n", err)
	}
	fmt.Printf("   length([1,2,3]) => %s\n", kanren.PrintValue(n, rt.Symbols))

	rev := &kanren.Value{Kind: kanren.VLogicalVar, Var: rt.Env.FreshVar("rev")}
	if err := kanren.NarrowCall(rt.Env, "reverse", []*kanren.Value{list}, rev); err != nil {
		fmt.Printf("   reverse error: %v\n", err)
	}
	fmt.Printf("   reverse([1,2,3]) => %s\n", kanren.PrintValue(rev, rt.Symbols))

	xs := &kanren.Value{Kind: kanren.VLogicalVar, Var: rt.Env.FreshVar("xs")}
	ys := kanren.NewList(kanren.NewInteger(3), kanren.NewInteger(4))
	zs := kanren.NewList(kanren.NewInteger(1), kanren.NewInteger(2), kanren.NewInteger(3), kanren.NewInteger(4))
	ok := kanren.AppendGoal(rt.Env, xs, ys, zs)
	solved := false
	for _, alt := range ok {
		cp := rt.Env.Checkpoint()
		if alt(rt.Env) {
			solved = true
			break
		}
		rt.Env.Rollback(cp)
	}
	fmt.Printf("   append(Xs, [3,4], [1,2,3,4]) => Xs = %s (solved=%v)\n\n",
		kanren.PrintValue(xs, rt.Symbols), solved)
}

// functionConstraintExample relates celsius and fahrenheit through an
// invertible function constraint, then solves for fahrenheit from a
// known celsius value.
func functionConstraintExample() {
	fmt.Println("4. Function constraint (celsius <-> fahrenheit):")

	rt := kanren.NewRuntime()
	defer rt.Cleanup()

	celsius := rt.Env.FreshVar("celsius")
	fahrenheit := rt.Env.FreshVar("fahrenheit")

	err := rt.Env.Store.AddFunctionConstraint(
		fahrenheit.ID, []kanren.VarID{celsius.ID},
		func(args []float64) (float64, error) { return args[0]*9/5 + 32, nil },
		func(result float64, known map[int]float64, solveFor int) (float64, error) {
			return (result - 32) * 5 / 9, nil
		},
		kanren.Required,
	)
	if err != nil {
		fmt.Printf("   constraint error: %v\n", err)
		return
	}

	rt.Env.Bind(celsius.ID, kanren.NewFloat(100))
	bound, _ := fahrenheit.Binding()
	fmt.Printf("   celsius=100 => fahrenheit=%s\n\n", kanren.PrintValue(bound, rt.Symbols))
}

// productionRuleExample fires a linear-logic production rule that
// consumes two ingredient resources to derive a meal, then forward
// chains to completion.
func productionRuleExample() {
	fmt.Println("5. Linear-logic production rule (forward chaining):")

	rt := kanren.NewRuntime()
	defer rt.Cleanup()

	bread := rt.Symbols.Intern("bread")
	cheese := rt.Symbols.Intern("cheese")
	sandwich := rt.Symbols.Intern("sandwich")
	have := rt.Symbols.Intern("have")
	made := rt.Symbols.Intern("made")

	rt.KB.AddLinearFact(kanren.NewCompoundTerm(have, kanren.NewAtomTerm(bread)))
	rt.KB.AddLinearFact(kanren.NewCompoundTerm(have, kanren.NewAtomTerm(cheese)))

	// have(bread), have(cheese) ⊸ made(sandwich).
	rt.KB.AddRule(
		kanren.NewCompoundTerm(made, kanren.NewAtomTerm(sandwich)),
		[]kanren.Term{
			kanren.NewCompoundTerm(have, kanren.NewAtomTerm(bread)),
			kanren.NewCompoundTerm(have, kanren.NewAtomTerm(cheese)),
		},
		kanren.NewCompoundTerm(made, kanren.NewAtomTerm(sandwich)),
	)

	if err := rt.Resolver.ForwardChain(context.Background(), rt.Env); err != nil {
		fmt.Printf("   forward chain error: %v\n", err)
		return
	}

	found, _, err := rt.QueryFirst(context.Background(), kanren.NewCompoundTerm(made, kanren.NewAtomTerm(sandwich)))
	if err != nil {
		fmt.Printf("   query error: %v\n", err)
		return
	}
	fmt.Printf("   made(sandwich) derived by forward chaining => %v\n", found)
}
