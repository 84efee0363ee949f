package kanren

import (
	"fmt"
	"sync/atomic"
)

// ValueKind enumerates the richer runtime Value variants (§3 "Value").
// Value is distinct from Term: Term is the pure syntactic object the
// knowledge base matches against, Value is what expressions evaluate to
// and what the linear trail journals consumption against.
type ValueKind int

const (
	VInteger ValueKind = iota
	VFloat
	VString
	VAtom
	VList
	VRecord
	VLogicalVar
	VFunction
	VPartialApp
	VSuspension
	VCompound
)

var funcNameCounter uint64

// Value is the runtime object every expression reduces to. Every Value
// carries linearity bookkeeping directly on the struct (IsConsumed,
// ConsumptionCount) so the trail (§4.D) can flip a single field rather
// than maintain a side table keyed by pointer identity.
type Value struct {
	Kind ValueKind

	Integer int64
	Float   float64
	Str     string
	Atom    SymbolID

	List *ListValue

	Record *RecordValue

	Var *LogicalVar

	Func *FunctionValue

	Susp *Suspension

	// VCompound fields: a functor id plus ordered arguments, the runtime
	// counterpart of CompoundTerm used when a knowledge-base Term is
	// instantiated into a Value for matching and narrowing.
	Functor SymbolID
	Args    []*Value
	Tag     TypeID

	IsConsumed       bool
	ConsumptionCount uint32
}

// ListValue is a dense array with independent length and capacity, so
// prepend/append/reverse can allocate fresh backing storage without
// aliasing the original list's elements (§4.B).
type ListValue struct {
	Elements []*Value
	Length   int
	Capacity int
}

// RecordValue is an ordered set of named fields. Two records unify iff
// every field present in one is present in the other with a unifiable
// value and neither side has an extra field (§4.E rule 5).
type RecordValue struct {
	Fields []RecordField
}

type RecordField struct {
	Name  SymbolID
	Value *Value
}

func (r *RecordValue) Get(name SymbolID) (*Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// FunctionValue represents a named function, a partial application of it
// (same layout, fewer applied args than arity), or — when Impl is nil and
// AppliedCount equals Arity — a fully-applied call pending narrowing.
type FunctionValue struct {
	Name         string
	Arity        int
	AppliedCount int
	PartialArgs  []*Value
	Impl         BuiltinFunc
}

// BuiltinFunc is the narrowing-time implementation of a built-in or
// foreign-registered function. It returns the reduced value, or ok=false
// if it cannot yet reduce (not enough arguments are ground) — the caller
// is then responsible for suspending (§4.F).
type BuiltinFunc func(env *Environment, args []*Value) (result *Value, ok bool, err error)

// NewInteger, NewFloat, NewString, NewAtomValue construct
// fresh, unconsumed values. Every create_* constructor in §4.B returns a
// value with IsConsumed=false and ConsumptionCount=0.
func NewInteger(v int64) *Value   { return &Value{Kind: VInteger, Integer: v} }
func NewFloat(v float64) *Value   { return &Value{Kind: VFloat, Float: v} }
func NewString(v string) *Value   { return &Value{Kind: VString, Str: v} }
func NewAtomValue(s SymbolID) *Value { return &Value{Kind: VAtom, Atom: s} }

// NewCompound builds a compound value for the given functor and args,
// the runtime shape matched by unification rule 6 (§4.E).
func NewCompound(functor SymbolID, args ...*Value) *Value {
	buf := make([]*Value, len(args))
	copy(buf, args)
	return &Value{Kind: VCompound, Functor: functor, Args: buf}
}

func NewTypedCompound(functor SymbolID, tag TypeID, args ...*Value) *Value {
	v := NewCompound(functor, args...)
	v.Tag = tag
	return v
}

// NewList builds a list value owning the given elements. The slice is not
// aliased further by the caller; ListValue is responsible for its own
// storage from this point on.
func NewList(elements ...*Value) *Value {
	cap := len(elements)
	buf := make([]*Value, len(elements), cap)
	copy(buf, elements)
	return &Value{Kind: VList, List: &ListValue{Elements: buf, Length: len(buf), Capacity: cap}}
}

// NewRecord builds a record value from the given fields, in field order.
func NewRecord(fields ...RecordField) *Value {
	buf := make([]RecordField, len(fields))
	copy(buf, fields)
	return &Value{Kind: VRecord, Record: &RecordValue{Fields: buf}}
}

// NewFunctionValue registers a callable with the given arity; Impl may be
// nil for functions resolved purely through narrowing (built-ins or
// foreign dispatch look them up by name instead).
func NewFunctionValue(name string, arity int, impl BuiltinFunc) *Value {
	return &Value{Kind: VFunction, Func: &FunctionValue{Name: name, Arity: arity, Impl: impl}}
}

// IsGround reports whether v contains no unbound LogicalVar anywhere in
// its structure (§4.B). Dereferencing does not mutate; IsGround walks
// through bound variables but never writes a binding.
func IsGround(v *Value) bool {
	switch v.Kind {
	case VLogicalVar:
		bound, ok := v.Var.Binding()
		if !ok {
			return false
		}
		return IsGround(bound)
	case VList:
		for _, e := range v.List.Elements {
			if !IsGround(e) {
				return false
			}
		}
		return true
	case VRecord:
		for _, f := range v.Record.Fields {
			if !IsGround(f.Value) {
				return false
			}
		}
		return true
	case VFunction, VPartialApp:
		for _, a := range v.Func.PartialArgs {
			if !IsGround(a) {
				return false
			}
		}
		return true
	case VCompound:
		for _, a := range v.Args {
			if !IsGround(a) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Deref chases variable bindings (never mutating the trail) to the first
// non-variable value, or to the unbound variable itself if the chain
// terminates there (§4.B "deref").
func Deref(v *Value) *Value {
	for v.Kind == VLogicalVar {
		bound, ok := v.Var.Binding()
		if !ok {
			return v
		}
		v = bound
	}
	return v
}

// DeepCopy produces an unconsumed structural copy of v. LogicalVars get
// freshly allocated ids (via env) so the copy is independent of the
// original, carrying over AllowReuse. DeepCopy backs the public
// copy_for_sharing boundary operation between linear and non-linear
// contexts (§5); rule renaming uses renameRule in resolver.go instead.
func DeepCopy(v *Value, env *Environment) *Value {
	switch v.Kind {
	case VInteger:
		return NewInteger(v.Integer)
	case VFloat:
		return NewFloat(v.Float)
	case VString:
		return NewString(v.Str)
	case VAtom:
		return NewAtomValue(v.Atom)
	case VList:
		elems := make([]*Value, len(v.List.Elements))
		for i, e := range v.List.Elements {
			elems[i] = DeepCopy(e, env)
		}
		return &Value{Kind: VList, List: &ListValue{Elements: elems, Length: len(elems), Capacity: len(elems)}}
	case VRecord:
		fields := make([]RecordField, len(v.Record.Fields))
		for i, f := range v.Record.Fields {
			fields[i] = RecordField{Name: f.Name, Value: DeepCopy(f.Value, env)}
		}
		return &Value{Kind: VRecord, Record: &RecordValue{Fields: fields}}
	case VLogicalVar:
		fresh := env.FreshVar("")
		fresh.AllowReuse = v.Var.AllowReuse
		if bound, ok := v.Var.Binding(); ok {
			copied := DeepCopy(bound, env)
			env.Bind(fresh.ID, copied)
		}
		return &Value{Kind: VLogicalVar, Var: fresh}
	case VFunction, VPartialApp:
		args := make([]*Value, len(v.Func.PartialArgs))
		for i, a := range v.Func.PartialArgs {
			args[i] = DeepCopy(a, env)
		}
		return &Value{Kind: v.Kind, Func: &FunctionValue{
			Name: v.Func.Name, Arity: v.Func.Arity, AppliedCount: v.Func.AppliedCount,
			PartialArgs: args, Impl: v.Func.Impl,
		}}
	case VCompound:
		args := make([]*Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = DeepCopy(a, env)
		}
		return &Value{Kind: VCompound, Functor: v.Functor, Args: args, Tag: v.Tag}
	default:
		return v
	}
}

// CopyForSharing is the semantic alias for DeepCopy used at the boundary
// between a linear knowledge base and a non-linear (e.g. concurrency-layer)
// context (§4.B, §5).
func CopyForSharing(v *Value, env *Environment) *Value { return DeepCopy(v, env) }

// ErrArityMismatch and friends are declared in errors.go.

// ApplyFunction either partially applies, fully applies, or rejects an
// over-application (§4.B). A full application reduces through fn's own
// Impl (suspending on unbound arguments, as NarrowCall does) or, when
// Impl is nil, through NarrowCall by fn's name.
func ApplyFunction(env *Environment, fn *Value, args []*Value) (*Value, error) {
	if fn.Kind != VFunction && fn.Kind != VPartialApp {
		return nil, fmt.Errorf("kanren: ApplyFunction: value is not callable: %w", ErrTypeMismatch)
	}
	total := fn.Func.AppliedCount + len(args)
	if total > fn.Func.Arity {
		return nil, fmt.Errorf("kanren: ApplyFunction %s: %d args exceeds arity %d: %w",
			fn.Func.Name, total, fn.Func.Arity, ErrArityMismatch)
	}
	combined := make([]*Value, 0, total)
	combined = append(combined, fn.Func.PartialArgs...)
	combined = append(combined, args...)

	if total < fn.Func.Arity {
		return &Value{Kind: VPartialApp, Func: &FunctionValue{
			Name: fn.Func.Name, Arity: fn.Func.Arity, AppliedCount: total,
			PartialArgs: combined, Impl: fn.Func.Impl,
		}}, nil
	}

	resultVar := env.FreshVar("")
	result := &Value{Kind: VLogicalVar, Var: resultVar}
	impl := fn.Func.Impl
	if impl == nil {
		if err := NarrowCall(env, fn.Func.Name, combined, result); err != nil {
			return nil, err
		}
		return result, nil
	}
	res, ok, err := impl(env, derefArgs(combined))
	if err != nil {
		return nil, err
	}
	if !ok {
		addSuspension(env, newSuspension(SuspNarrowing, frontierOf(combined), func(env *Environment) bool {
			res, ok, err := impl(env, derefArgs(combined))
			return err == nil && ok && Unify(result, res, env)
		}))
	} else if !Unify(result, res, env) {
		return nil, fmt.Errorf("kanren: ApplyFunction %s: result %w", fn.Func.Name, ErrUnification)
	}
	return result, nil
}

func nextFuncSeq() uint64 { return atomic.AddUint64(&funcNameCounter, 1) }
