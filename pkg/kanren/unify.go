package kanren

// Unify implements §4.E: dereference both sides, then structural match.
// Bindings are made through env.Bind (so they are trailed and wake
// waiters); a caller that wants to try-and-possibly-discard a unification
// must wrap the call in env.Checkpoint()/env.Rollback(cp) itself — Unify
// does not roll back its own partial work on failure (§4.E "Failures do
// not themselves roll back trail entries").
func Unify(v1, v2 *Value, env *Environment) bool {
	v1 = Deref(v1)
	v2 = Deref(v2)

	// Rule 1: same unbound variable.
	if v1.Kind == VLogicalVar && v2.Kind == VLogicalVar && v1.Var.ID == v2.Var.ID {
		return true
	}

	// Rule 2: either side an unbound variable.
	if v1.Kind == VLogicalVar {
		return bindVar(v1.Var, v2, env)
	}
	if v2.Kind == VLogicalVar {
		return bindVar(v2.Var, v1, env)
	}

	if v1.Kind != v2.Kind {
		return false
	}

	switch v1.Kind {
	case VInteger:
		return v1.Integer == v2.Integer
	case VFloat:
		return v1.Float == v2.Float
	case VString:
		return v1.Str == v2.Str
	case VAtom:
		return v1.Atom == v2.Atom
	case VList:
		return unifyLists(v1.List, v2.List, env)
	case VRecord:
		return unifyRecords(v1.Record, v2.Record, env)
	case VCompound:
		return unifyCompounds(v1, v2, env)
	default:
		return false
	}
}

// unifyCompounds implements §4.E rule 6: functor ids match, arities
// match, types are compatible, and arguments unify pairwise.
func unifyCompounds(a, b *Value, env *Environment) bool {
	if a.Functor != b.Functor || len(a.Args) != len(b.Args) {
		return false
	}
	if !a.Tag.Compatible(b.Tag) {
		return false
	}
	for i := range a.Args {
		if !Unify(a.Args[i], b.Args[i], env) {
			return false
		}
	}
	return true
}

// bindVar runs the occurs check, and on pass binds through env.Bind so
// the binding is trailed and waiters fire.
func bindVar(v *LogicalVar, value *Value, env *Environment) bool {
	if value.Kind == VLogicalVar && value.Var.ID == v.ID {
		return true
	}
	if occursIn(v.ID, value) {
		return false
	}
	env.Bind(v.ID, value)
	return true
}

// occursIn is the occurs check (§3, §4.E, §8 "Occurs law"): true iff id
// syntactically appears, transitively through bound variables, inside v.
func occursIn(id VarID, v *Value) bool {
	v = Deref(v)
	switch v.Kind {
	case VLogicalVar:
		return v.Var.ID == id
	case VList:
		for _, e := range v.List.Elements {
			if occursIn(id, e) {
				return true
			}
		}
		return false
	case VRecord:
		for _, f := range v.Record.Fields {
			if occursIn(id, f.Value) {
				return true
			}
		}
		return false
	case VFunction, VPartialApp:
		for _, a := range v.Func.PartialArgs {
			if occursIn(id, a) {
				return true
			}
		}
		return false
	case VCompound:
		for _, a := range v.Args {
			if occursIn(id, a) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func unifyLists(a, b *ListValue, env *Environment) bool {
	if a.Length != b.Length {
		return false
	}
	for i := 0; i < a.Length; i++ {
		if !Unify(a.Elements[i], b.Elements[i], env) {
			return false
		}
	}
	return true
}

// unifyRecords succeeds iff every field present in one record is present
// in the other with a unifiable value, and neither side has an extra
// field (§4.E rule 5).
func unifyRecords(a, b *RecordValue, env *Environment) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for _, fa := range a.Fields {
		fb, ok := b.Get(fa.Name)
		if !ok {
			return false
		}
		if !Unify(fa.Value, fb, env) {
			return false
		}
	}
	return true
}

// CanUnify performs the same walk as Unify without binding anything —
// used by the resolver for look-ahead (§4.E "can_unify"). It runs inside
// its own disposable checkpoint so any speculative bindings it does make
// (to check deeper structure) are rolled back before returning.
func CanUnify(v1, v2 *Value, env *Environment) bool {
	cp := env.Checkpoint()
	ok := Unify(v1, v2, env)
	env.Rollback(cp)
	return ok
}
