package kanren

import "errors"

// Error kinds from §7. Every fallible operation returns one of these
// (possibly wrapped with fmt.Errorf("component: detail: %w", ErrX)) or
// succeeds; callers match with errors.Is.
var (
	// ErrUnification is a structural mismatch during unification;
	// recovered locally by the resolver (§7 "local semantic").
	ErrUnification = errors.New("unification failure")

	// ErrOccurs means binding a variable would create a cyclic term.
	ErrOccurs = errors.New("occurs check failure")

	// ErrArityMismatch: wrong argument count at a function or foreign
	// call boundary. Surfaced to the caller, never retried.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrTypeMismatch: an impossible conversion at a function boundary.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnknownFunction: narrowing found no built-in or foreign
	// registration for the called name.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnknownForeignFunction: foreign dispatch found no registry
	// entry for the called name.
	ErrUnknownForeignFunction = errors.New("unknown foreign function")

	// ErrLinearViolation: a value not marked AllowReuse was consumed more
	// than once. Non-fatal in lenient mode (the default); promoted to a
	// hard failure only when RuntimeConfig.StrictLinearity is set.
	ErrLinearViolation = errors.New("linear resource consumed more than once")

	// ErrConstraintUnsat: a Required constraint cannot hold.
	ErrConstraintUnsat = errors.New("constraint unsatisfiable")

	// ErrDivisionByZero: an arithmetic constraint divided by zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrTimeoutExceeded: a deadline passed. No function in this module
	// returns it; the concurrency layer reports deadlines as the
	// context's own error.
	ErrTimeoutExceeded = errors.New("timeout exceeded")

	// ErrRecursionLimitExceeded: the resolver pruned a subgoal whose
	// pattern already appears too many times in the ancestor stack.
	// Treated as a local failure for backtracking purposes.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
)
