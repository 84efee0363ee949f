package kanren

import (
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Kind enumerates the fixed small set of marshalable value shapes a
// foreign call may accept or return (§4.J). There is deliberately no
// "interface{}"/pointer-to-arbitrary-Go-value escape hatch: foreign calls
// are dispatched through this fixed signature set, never dynamic FFI.
type Kind int

const (
	Void Kind = iota
	Int
	Long
	Double
	String
	Pointer
)

// ForeignEntry registers one foreign function: its name, declared return
// kind, declared parameter kinds, whether invoking it consumes its
// arguments under the linear trail, and the Go closure that performs the
// actual call once arguments have been marshaled (§4.J).
type ForeignEntry struct {
	Name          string
	ReturnKind    Kind
	ParamKinds    []Kind
	ConsumesArgs  bool
	Implementation func(args []*Value) (*Value, error)
}

// RegisterForeign adds entry to the registry's foreign table.
func (r *Registry) RegisterForeign(entry *ForeignEntry) {
	r.foreign[entry.Name] = entry
	r.cache.Remove(entry.Name)
}

// foreignCalls deduplicates concurrent identical foreign calls — the same
// name with the same marshaled arguments racing in from two suspensions
// resumed on the same binding event collapse to a single Implementation
// invocation, following the pack's pattern of guarding an expensive,
// side-effect-free lookup with x/sync/singleflight.
var foreignCalls singleflight.Group

// Call implements §4.J's six-step contract: look up entry, reject on
// arity mismatch, marshal each argument against its declared Kind, record
// consumption when ConsumesArgs is set, invoke Implementation, and
// marshal the return value back into a Value.
func Call(env *Environment, name string, args []*Value, trail *LinearTrail) (*Value, error) {
	entry, ok := env.Registry.foreign[name]
	if !ok {
		return nil, fmt.Errorf("kanren: foreign call %s: %w", name, ErrUnknownForeignFunction)
	}
	if len(args) != len(entry.ParamKinds) {
		return nil, fmt.Errorf("kanren: foreign call %s: expected %d args, got %d: %w",
			name, len(entry.ParamKinds), len(args), ErrArityMismatch)
	}

	marshaled := make([]*Value, len(args))
	for i, a := range args {
		mv, err := marshalKind(entry.ParamKinds[i], Deref(a))
		if err != nil {
			return nil, fmt.Errorf("kanren: foreign call %s arg %d: %w", name, i, err)
		}
		marshaled[i] = mv
	}

	if entry.ConsumesArgs {
		for _, mv := range marshaled {
			if cerr := trail.RecordConsumption(mv, name); cerr != nil {
				return nil, cerr
			}
		}
	}

	key := name + "/" + fingerprint(marshaled)
	resultAny, err, _ := foreignCalls.Do(key, func() (interface{}, error) {
		return entry.Implementation(marshaled)
	})
	if err != nil {
		return nil, fmt.Errorf("kanren: foreign call %s: %w", name, err)
	}
	result := resultAny.(*Value)
	return marshalReturn(entry.ReturnKind, result)
}

// marshalKind checks that v's runtime Kind matches the foreign parameter's
// declared Kind, returning it unchanged on success. Pointer parameters
// accept any Value verbatim (the foreign implementation is trusted to
// interpret it), matching §4.J's "fixed signature set" rather than a
// general serialization format.
func marshalKind(k Kind, v *Value) (*Value, error) {
	switch k {
	case Int, Long:
		if v.Kind != VInteger {
			return nil, fmt.Errorf("expected integer: %w", ErrTypeMismatch)
		}
	case Double:
		if v.Kind != VFloat {
			return nil, fmt.Errorf("expected float: %w", ErrTypeMismatch)
		}
	case String:
		if v.Kind != VString {
			return nil, fmt.Errorf("expected string: %w", ErrTypeMismatch)
		}
	case Pointer, Void:
		// Accepted as-is.
	}
	return v, nil
}

func marshalReturn(k Kind, v *Value) (*Value, error) {
	if k == Void {
		return NewAtomValue(0), nil
	}
	return v, nil
}

// fingerprint produces a cheap, order-sensitive dedup key for singleflight
// from a slice of already-marshaled ground values. It is not a general
// hash of arbitrary Values — only the kinds foreign calls accept.
func fingerprint(vs []*Value) string {
	s := ""
	for _, v := range vs {
		switch v.Kind {
		case VInteger:
			s += fmt.Sprintf("i%d,", v.Integer)
		case VFloat:
			s += fmt.Sprintf("f%v,", v.Float)
		case VString:
			s += fmt.Sprintf("s%s,", v.Str)
		case VAtom:
			s += fmt.Sprintf("a%d,", v.Atom)
		default:
			s += fmt.Sprintf("p%p,", v)
		}
	}
	return s
}

// foreignAsCallable bridges a ForeignEntry into the same *Value shape a
// built-in occupies, so Registry.lookupCallable and NarrowCall can treat
// built-ins and foreign functions identically once looked up.
func foreignAsCallable(fe *ForeignEntry) *Value {
	impl := func(env *Environment, args []*Value) (*Value, bool, error) {
		for _, a := range args {
			if !IsGround(a) {
				return nil, false, nil
			}
		}
		res, err := Call(env, fe.Name, args, env.Trail)
		if err != nil {
			return nil, false, err
		}
		return res, true, nil
	}
	return NewFunctionValue(fe.Name, len(fe.ParamKinds), impl)
}

// RegisterSelfTestForeigns installs the small foreign-function self-test
// registry the supplemented examples exercise: increment, double, add5,
// negate. Each is registered both as a foreign entry (demonstrating the
// §4.J marshaling path) and implicitly reachable through NarrowCall via
// foreignAsCallable, so the same name resolves identically whether called
// as a built-in or dispatched as foreign.
func RegisterSelfTestForeigns(r *Registry) {
	reg := func(name string, fn func(int64) int64) {
		r.RegisterForeign(&ForeignEntry{
			Name:         name,
			ReturnKind:   Long,
			ParamKinds:   []Kind{Long},
			ConsumesArgs: false,
			Implementation: func(args []*Value) (*Value, error) {
				return NewInteger(fn(args[0].Integer)), nil
			},
		})
	}
	reg("increment", func(n int64) int64 { return n + 1 })
	reg("double", func(n int64) int64 { return n * 2 })
	reg("add5", func(n int64) int64 { return n + 5 })
	reg("negate", func(n int64) int64 { return -n })
}
