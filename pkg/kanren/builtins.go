package kanren

// RegisterBuiltins installs the built-ins that §4.F requires to exist:
// length/2, reverse/2, and append/3, named by their full relational
// arity (input arguments plus the result position). NarrowCall's own
// calling convention separates the result into its own out-parameter,
// so each is registered here under its *input* arity — one less than
// the relational arity the name advertises — and each is written as a
// BuiltinFunc that reports ok=false (rather than erroring) when it
// cannot yet reduce, letting NarrowCall's suspension machinery take
// over transparently.
func RegisterBuiltins(r *Registry) {
	r.RegisterBuiltin("length", 1, builtinLength)
	r.RegisterBuiltin("reverse", 1, builtinReverse)
	r.RegisterBuiltin("append", 2, builtinAppend)
}

// builtinLength unifies n with the ground length of list once list is
// ground (§4.F). It does not require every *element* to be ground — only
// the list's own shape (its length) needs to be known — but we follow the
// spec's stated contract ("once list is ground") conservatively and wait
// for full groundness, matching how length/2 is worked in the §8 example.
func builtinLength(env *Environment, args []*Value) (*Value, bool, error) {
	list := Deref(args[0])
	if list.Kind != VList || !IsGround(list) {
		return nil, false, nil
	}
	return NewInteger(int64(list.List.Length)), true, nil
}

// builtinReverse unifies r with element-reversed list.
func builtinReverse(env *Environment, args []*Value) (*Value, bool, error) {
	list := Deref(args[0])
	if list.Kind != VList || !IsGround(list) {
		return nil, false, nil
	}
	n := list.List.Length
	rev := make([]*Value, n)
	for i, e := range list.List.Elements {
		rev[n-1-i] = e
	}
	return NewList(rev...), true, nil
}

// builtinAppend is the classic relational append: succeeds with
// xs=[], ys=zs; or xs=[h|t], zs=[h|r], append(t, ys, r). When xs is
// non-ground this built-in cannot itself enumerate the multiple solutions
// the spec describes (a single BuiltinFunc call only ever returns one
// candidate). While xs is not ground it reports ok=false, so NarrowCall
// suspends on xs; it does not fall back to AppendGoal below, which
// exposes append as a separate multi-solution goal.
func builtinAppend(env *Environment, args []*Value) (*Value, bool, error) {
	xs := Deref(args[0])
	if xs.Kind != VList {
		return nil, false, nil
	}
	ys := Deref(args[1])
	if !IsGround(xs) {
		return nil, false, nil
	}
	elems := make([]*Value, 0, xs.List.Length)
	elems = append(elems, xs.List.Elements...)
	if ys.Kind == VList && IsGround(ys) {
		elems = append(elems, ys.List.Elements...)
		return NewList(elems...), true, nil
	}
	// xs is ground but ys is not: zs = xs ++ ys is still a ground prefix
	// plus the unresolved tail — not representable as a single ground
	// list, so this call cannot reduce yet.
	return nil, false, nil
}

// AppendGoal relates xs, ys, zs as a resolver goal with relational
// append semantics, including enumeration when xs is unbound (§4.F,
// §8 scenario 6). It is exposed separately from the narrowing built-in
// above because narrowing produces exactly one value per call, while
// relational append is inherently a backtracking search over how zs
// splits into a prefix and suffix.
//
// ListValue is a dense array rather than a cons-cell chain (§4.B), so
// there is no way to represent "[H|T]" with T left an open, still-unbound
// tail the way a cons-pair implementation would. Enumeration therefore
// works by splitting whichever side is already ground — zs (the usual
// case: "what Xs, given Ys and the concatenation Zs") or, failing that,
// xs — into every possible split point, rather than by recursing one
// cons cell at a time. One of xs or zs being ground is required for
// AppendGoal to produce any alternatives at all; with neither side ground
// there is no finite list of candidate splits to enumerate, so it
// reports none.
func AppendGoal(env *Environment, xs, ys, zs *Value) []func(*Environment) bool {
	zsList := Deref(zs)
	if zsList.Kind == VList && IsGround(zsList) {
		return splitAlternatives(xs, ys, zsList)
	}
	xsList := Deref(xs)
	if xsList.Kind == VList && IsGround(xsList) {
		return []func(*Environment) bool{
			func(env *Environment) bool {
				ysList := Deref(ys)
				if ysList.Kind != VList || !IsGround(ysList) {
					return false
				}
				elems := make([]*Value, 0, xsList.List.Length+ysList.List.Length)
				elems = append(elems, xsList.List.Elements...)
				elems = append(elems, ysList.List.Elements...)
				return Unify(zs, NewList(elems...), env)
			},
		}
	}
	return nil
}

// splitAlternatives builds one alternative per way of splitting the
// ground zsList into a length-i prefix (bound to xs) and the matching
// suffix (bound to ys), for i from 0 through len(zsList) inclusive.
func splitAlternatives(xs, ys, zsList *Value) []func(*Environment) bool {
	n := zsList.List.Length
	alts := make([]func(*Environment) bool, 0, n+1)
	for i := 0; i <= n; i++ {
		i := i
		alts = append(alts, func(env *Environment) bool {
			prefix := NewList(zsList.List.Elements[:i]...)
			suffix := NewList(zsList.List.Elements[i:]...)
			return Unify(xs, prefix, env) && Unify(ys, suffix, env)
		})
	}
	return alts
}

// appendRelation drives AppendGoal's alternatives in order and keeps the
// bindings of the first one that succeeds, rolling back each one that
// fails. The resolver does not call it or AppendGoal.
func appendRelation(env *Environment, xs, ys, zs *Value) bool {
	for _, alt := range AppendGoal(env, xs, ys, zs) {
		cp := env.Checkpoint()
		if alt(env) {
			return true
		}
		env.Rollback(cp)
	}
	return false
}
