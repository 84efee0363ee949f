// Package kanren implements the core runtime of a functional-logic
// programming system: unification over tagged terms, a logical-variable
// store with suspensions, a linear-resource trail for backtracking, a
// linear knowledge base with an SLD-style resolver, and an auxiliary
// arithmetic/function constraint store.
//
// The runtime is an embeddable library, not a daemon: callers construct
// terms, populate a KnowledgeBase, and submit queries through a Resolver.
// There is no surface syntax and no persisted state — facts disappear with
// their KnowledgeBase instance.
package kanren

import (
	"fmt"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// SymbolID identifies an interned atom or functor name. VarID identifies a
// logical variable. Both are process-unique, dense, and never reused —
// interning is append-only so concurrent readers never need to synchronize
// against a shrinking table (see §5 of the design: "append-only ids").
type SymbolID uint32
type VarID uint32

// TypeID tags a term with an optional base family plus a "distinct" flag.
// Two type ids are compatible iff they are equal, or both non-distinct and
// share the same base. The zero TypeID means "untyped" and is compatible
// with everything.
type TypeID struct {
	Base     SymbolID
	Distinct bool
}

// Untyped is the zero TypeID: compatible with any other type.
var Untyped = TypeID{}

// Compatible reports whether two type tags may unify against each other.
func (t TypeID) Compatible(other TypeID) bool {
	if t == Untyped || other == Untyped {
		return true
	}
	if t == other {
		return true
	}
	return !t.Distinct && !other.Distinct && t.Base == other.Base
}

// SymbolTable interns strings into dense integer ids. It is process-wide
// but addressable: tests construct their own table so interning never
// leaks between independent runtimes. Reads (Name) and writes (Intern)
// take the same mutex; Intern holds it only long enough to extend the
// radix index and the reverse slice.
//
// The forward index (string -> id) is kept in a persistent radix tree from
// hashicorp/go-immutable-radix so that copy_for_sharing (§5) can hand a
// task a snapshot of the symbol table's string index without copying the
// whole table: Snapshot returns the current *iradix.Tree root, an O(1)
// operation, and the caller walks it lock-free.
type SymbolTable struct {
	mu      sync.Mutex
	forward *iradix.Tree[SymbolID]
	names   []string
}

// NewSymbolTable creates an empty, isolated symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		forward: iradix.New[SymbolID](),
		names:   nil,
	}
}

// Intern returns the id for name, allocating a fresh one if name has never
// been seen by this table. Interning is idempotent: interning the same
// string twice returns the same id.
func (t *SymbolTable) Intern(name string) SymbolID {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.forward.Get([]byte(name)); ok {
		return id
	}
	id := SymbolID(len(t.names))
	t.names = append(t.names, name)
	newForward, _, _ := t.forward.Insert([]byte(name), id)
	t.forward = newForward
	return id
}

// Name returns the string a symbol id was interned from. Panics on an
// out-of-range id: a valid id can only come from this table's own Intern,
// so an out-of-range id is a caller bug, not a runtime condition.
func (t *SymbolTable) Name(id SymbolID) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.names) {
		panic(fmt.Sprintf("kanren: symbol id %d out of range (table has %d symbols)", id, len(t.names)))
	}
	return t.names[id]
}

// Lookup returns the id for name without interning it, for callers that
// need to distinguish "not seen yet" from "seen."
func (t *SymbolTable) Lookup(name string) (SymbolID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.forward.Get([]byte(name))
}

// Snapshot returns the current persistent radix root, usable as a
// lock-free read-only index by a task that received it through
// copy_for_sharing rather than through this table directly.
func (t *SymbolTable) Snapshot() *iradix.Tree[SymbolID] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.forward
}

// Term is the pure syntactic object the knowledge base matches against: it
// carries no consumption state (that lives on Value, §4.B) and no waiter
// lists (those live on LogicalVar, §4.C). Term is the read side of the
// runtime — built by callers, matched by the unifier and the resolver.
type Term interface {
	// Kind identifies which Term variant this is.
	Kind() TermKind
	// Type returns the term's optional type tag.
	Type() TypeID
	// String renders the term for diagnostics; see print.go for the
	// symbol-aware renderer used in examples and test failure output.
	String() string
}

// TermKind enumerates the Term variants from §3.
type TermKind int

const (
	KindAtom TermKind = iota
	KindVar
	KindInteger
	KindCompound
)

// AtomTerm is an interned symbolic constant; equality is integer
// comparison against its SymbolID.
type AtomTerm struct {
	Symbol SymbolID
	Tag    TypeID
}

func NewAtomTerm(sym SymbolID) AtomTerm             { return AtomTerm{Symbol: sym} }
func NewTypedAtomTerm(sym SymbolID, t TypeID) AtomTerm { return AtomTerm{Symbol: sym, Tag: t} }

func (a AtomTerm) Kind() TermKind { return KindAtom }
func (a AtomTerm) Type() TypeID   { return a.Tag }
func (a AtomTerm) String() string { return fmt.Sprintf("atom#%d", a.Symbol) }

// VarTerm references a logical variable by id; the actual binding lives in
// an Environment (§4.C), not on the term itself.
type VarTerm struct {
	ID VarID
}

func NewVarTerm(id VarID) VarTerm { return VarTerm{ID: id} }

func (v VarTerm) Kind() TermKind { return KindVar }
func (v VarTerm) Type() TypeID   { return Untyped }
func (v VarTerm) String() string { return fmt.Sprintf("_G%d", v.ID) }

// IntegerTerm is a ground 64-bit integer constant.
type IntegerTerm struct {
	Value int64
}

func NewIntegerTerm(v int64) IntegerTerm { return IntegerTerm{Value: v} }

func (i IntegerTerm) Kind() TermKind { return KindInteger }
func (i IntegerTerm) Type() TypeID   { return Untyped }
func (i IntegerTerm) String() string { return fmt.Sprintf("%d", i.Value) }

// CompoundTerm is f(t1, ..., tn): a functor id plus an ordered argument
// list. Two compounds unify only if functor ids, arities, and type tags
// are all compatible (§4.E rule 6).
type CompoundTerm struct {
	Functor SymbolID
	Args    []Term
	Tag     TypeID
}

func NewCompoundTerm(functor SymbolID, args ...Term) CompoundTerm {
	return CompoundTerm{Functor: functor, Args: args}
}

func NewTypedCompoundTerm(functor SymbolID, tag TypeID, args ...Term) CompoundTerm {
	return CompoundTerm{Functor: functor, Args: args, Tag: tag}
}

func (c CompoundTerm) Kind() TermKind { return KindCompound }
func (c CompoundTerm) Type() TypeID   { return c.Tag }
func (c CompoundTerm) String() string {
	s := fmt.Sprintf("functor#%d(", c.Functor)
	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

// termsEqual is strict structural equality (not unification), used by
// solution deduplication (§4.H "Enhanced solutions"). Recursion-depth
// pruning does not use it; it compares functor/arity keys instead.
func termsEqual(a, b Term) bool {
	switch x := a.(type) {
	case AtomTerm:
		y, ok := b.(AtomTerm)
		return ok && x.Symbol == y.Symbol
	case VarTerm:
		y, ok := b.(VarTerm)
		return ok && x.ID == y.ID
	case IntegerTerm:
		y, ok := b.(IntegerTerm)
		return ok && x.Value == y.Value
	case CompoundTerm:
		y, ok := b.(CompoundTerm)
		if !ok || x.Functor != y.Functor || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !termsEqual(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
