package kanren

import (
	"fmt"
	"sync"
)

// LinearResource wraps one asserted fact together with its linear
// bookkeeping (§4.H). A linear resource can be consumed by resolution at
// most once; a persistent fact (Persistent=true) is never marked consumed
// and can satisfy any number of goals. Next threads resources of the same
// functor/arity together so the resolver can walk just the relevant
// bucket instead of the whole knowledge base.
type LinearResource struct {
	Fact       Term
	Consumed   bool
	Persistent bool
	Next       *LinearResource
}

// Rule is a Horn clause (Head :- Body) or, when Production is non-nil, a
// linear-logic production rule: firing it asserts Production — which need
// not have the same shape as Head — as a fresh linear resource, rather
// than merely reading the resources its body matched against (§4.H).
// IsRecursive flags rules whose body can re-invoke the same head
// functor/arity. The resolver's recursion-depth pruning does not read
// it; that pruning counts functor/arity keys on its own goal stack.
type Rule struct {
	Head        Term
	Body        []Term
	Production  Term
	IsRecursive bool
}

// IsProduction reports whether firing this rule asserts a production term
// into the KB rather than merely proving its head via its body.
func (r *Rule) IsProduction() bool { return r.Production != nil }

// KnowledgeBase holds every asserted fact and rule plus the type/union
// mappings §4.H needs to resolve a goal against a hierarchy of
// compatible type tags rather than exact matches alone.
type KnowledgeBase struct {
	mu sync.RWMutex

	// resources buckets linear and persistent facts by "functor/arity"
	// key, each bucket a singly linked list via LinearResource.Next.
	resources map[string]*LinearResource

	rules []*Rule

	// typeMappings records that a given TypeID base is a subtype of
	// another (add_type_mapping); unionMappings records that a symbol
	// names the union of several base types (add_union_mapping) — both
	// consulted when matching a goal's tag against a resource's tag.
	typeMappings  map[SymbolID][]SymbolID
	unionMappings map[SymbolID][]SymbolID

	// appliedRules records the fingerprint string of every production
	// firing so far (it is never cleared), so forward chaining over
	// production rules terminates instead of re-deriving the same
	// consequence forever (§4.H "applied_rules_bitmap").
	appliedRules map[string]bool
}

func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		resources:     make(map[string]*LinearResource),
		typeMappings:  make(map[SymbolID][]SymbolID),
		unionMappings: make(map[SymbolID][]SymbolID),
		appliedRules:  make(map[string]bool),
	}
}

func bucketKey(functor SymbolID, arity int) string {
	return fmt.Sprintf("%d/%d", functor, arity)
}

// AddLinearFact asserts fact as a one-time-consumable resource.
func (kb *KnowledgeBase) AddLinearFact(fact Term) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.prepend(fact, false)
}

// AddPersistentFact asserts fact as a resource that resolution may match
// any number of times without ever marking it consumed.
func (kb *KnowledgeBase) AddPersistentFact(fact Term) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.prepend(fact, true)
}

func (kb *KnowledgeBase) prepend(fact Term, persistent bool) {
	key := resourceKey(fact)
	kb.resources[key] = &LinearResource{Fact: fact, Persistent: persistent, Next: kb.resources[key]}
}

// AddLinearFactTrailed asserts fact as a one-time-consumable resource and
// journals the insertion on trail, so that if the caller's branch is
// later backtracked out of, the insertion is undone along with everything
// else the branch did. This is what resolveConjunction uses when a
// production fires mid-conjunction (§4.H): the assertion must be visible
// to the remaining goals in the same pass, but still reversible — unlike
// AddLinearFact, which is for facts asserted before resolution begins and
// never needs undoing.
func (kb *KnowledgeBase) AddLinearFactTrailed(fact Term, trail *LinearTrail) *LinearResource {
	kb.mu.Lock()
	key := resourceKey(fact)
	r := &LinearResource{Fact: fact, Next: kb.resources[key]}
	kb.resources[key] = r
	kb.mu.Unlock()
	trail.recordInsertion(kb, key, r)
	return r
}

// removeHead undoes a trailed insertion. Insertions are undone in the
// reverse order they were made (the trail's strict LIFO rollback
// discipline), so the resource being undone is always still at the head
// of its bucket when this runs; the guard is a defensive no-op otherwise.
func (kb *KnowledgeBase) removeHead(key string, r *LinearResource) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.resources[key] == r {
		kb.resources[key] = r.Next
	}
}

func resourceKey(t Term) string {
	switch v := t.(type) {
	case CompoundTerm:
		return bucketKey(v.Functor, len(v.Args))
	case AtomTerm:
		return bucketKey(v.Symbol, 0)
	default:
		return "?"
	}
}

// AddRule installs a Horn clause, or, when production is non-nil, a
// linear-logic production rule whose firing asserts production (which may
// differ in shape from head) instead of merely proving head via body.
func (kb *KnowledgeBase) AddRule(head Term, body []Term, production Term) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.rules = append(kb.rules, &Rule{
		Head:        head,
		Body:        body,
		Production:  production,
		IsRecursive: bodyMentions(body, resourceKey(head)),
	})
}

func bodyMentions(body []Term, key string) bool {
	for _, g := range body {
		if resourceKey(g) == key {
			return true
		}
	}
	return false
}

// AddTypeMapping records that subtype is compatible with base for the
// purposes of resource/goal tag matching (§4.H).
func (kb *KnowledgeBase) AddTypeMapping(base, subtype SymbolID) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.typeMappings[base] = append(kb.typeMappings[base], subtype)
}

// AddUnionMapping records that union is the union of the given members.
func (kb *KnowledgeBase) AddUnionMapping(union SymbolID, members ...SymbolID) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.unionMappings[union] = append(kb.unionMappings[union], members...)
}

// TagCompatible reports whether goalTag is satisfied by resourceTag,
// walking both the direct type-mapping table and any union the goal's
// base symbol names.
func (kb *KnowledgeBase) TagCompatible(goalTag, resourceTag TypeID) bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	if goalTag.Compatible(resourceTag) {
		return true
	}
	for _, sub := range kb.typeMappings[goalTag.Base] {
		if sub == resourceTag.Base {
			return true
		}
	}
	for _, member := range kb.unionMappings[goalTag.Base] {
		if member == resourceTag.Base {
			return true
		}
	}
	return false
}

// candidates returns every live (unconsumed, or persistent) resource
// matching functor/arity, in reverse assertion order: the most recently
// added resource comes first, following the prepend-based bucket layout.
func (kb *KnowledgeBase) candidates(functor SymbolID, arity int) []*LinearResource {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	var out []*LinearResource
	for r := kb.resources[bucketKey(functor, arity)]; r != nil; r = r.Next {
		if r.Persistent || !r.Consumed {
			out = append(out, r)
		}
	}
	return out
}

func (kb *KnowledgeBase) rulesFor(functor SymbolID, arity int) []*Rule {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	var out []*Rule
	for _, r := range kb.rules {
		if resourceKey(r.Head) == bucketKey(functor, arity) {
			out = append(out, r)
		}
	}
	return out
}

// consumeSnapshot and restoreSnapshot let a ChoicePoint capture and roll
// back exactly which linear resources were marked Consumed, independent
// of the trail (which does not journal a resource's Consumed flag) — §4.I
// "KB consumption snapshot".
type consumeSnapshot map[*LinearResource]bool

func (kb *KnowledgeBase) consumeSnapshot() consumeSnapshot {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	snap := make(consumeSnapshot)
	for _, head := range kb.resources {
		for r := head; r != nil; r = r.Next {
			snap[r] = r.Consumed
		}
	}
	return snap
}

func (kb *KnowledgeBase) restoreSnapshot(snap consumeSnapshot) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	for r, was := range snap {
		r.Consumed = was
	}
}

// markConsumed flips a linear resource's Consumed flag; a no-op for
// persistent resources, matching §4.H's "persistent facts are never
// marked consumed".
func (kb *KnowledgeBase) markConsumed(r *LinearResource) {
	if r.Persistent {
		return
	}
	kb.mu.Lock()
	r.Consumed = true
	kb.mu.Unlock()
}

func (kb *KnowledgeBase) hasApplied(fingerprint string) bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.appliedRules[fingerprint]
}

func (kb *KnowledgeBase) markApplied(fingerprint string) {
	kb.mu.Lock()
	kb.appliedRules[fingerprint] = true
	kb.mu.Unlock()
}
