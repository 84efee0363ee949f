package kanren

import "go.uber.org/zap"

// RuntimeConfig holds the handful of knobs the spec leaves to the
// implementer (§9 Open Questions) plus the ambient logging hook. It is
// built through functional options, following the teacher lineage's own
// options-struct convention (SolverConfig / DynamicConfig in the retrieval
// pack's constraint-solving files) rather than a bare struct literal, so
// new knobs can be added without breaking existing call sites.
type RuntimeConfig struct {
	// MaxRecursiveDepth bounds how many times a goal's functor/arity key
	// may recur in the ancestor stack before the resolver prunes it
	// (§4.H "Termination").
	MaxRecursiveDepth int

	// StrictLinearity resolves the "Linearity enforcement strictness"
	// open question (§9) in favor of mode (a): a second consumption of a
	// value without AllowReuse returns ErrLinearViolation instead of
	// merely incrementing ConsumptionCount. Default false (lenient mode
	// (b), matching the spec's primary description).
	StrictLinearity bool

	// ConstraintEpsilon is the tolerance within which Required
	// constraints must hold (§3 "default 1e-6").
	ConstraintEpsilon float64

	// WorkerPoolSize records a worker-pool size for the concurrency layer
	// (§6 concurrency layer). Neither NewRuntime nor the concurrency
	// package reads it; concurrency.NewBundle takes its size as an
	// argument.
	WorkerPoolSize int

	log *zap.SugaredLogger
}

// DefaultRuntimeConfig matches the spec's stated defaults: lenient
// linearity, ε=1e-6, and a conservative recursion cap.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MaxRecursiveDepth: 64,
		StrictLinearity:   false,
		ConstraintEpsilon: 1e-6,
		WorkerPoolSize:    0,
	}
}

// Option configures a RuntimeConfig during NewRuntime.
type Option func(*RuntimeConfig)

func WithMaxRecursionDepth(n int) Option {
	return func(c *RuntimeConfig) { c.MaxRecursiveDepth = n }
}

func WithStrictLinearity(strict bool) Option {
	return func(c *RuntimeConfig) { c.StrictLinearity = strict }
}

func WithConstraintEpsilon(eps float64) Option {
	return func(c *RuntimeConfig) { c.ConstraintEpsilon = eps }
}

func WithWorkerPoolSize(n int) Option {
	return func(c *RuntimeConfig) { c.WorkerPoolSize = n }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *RuntimeConfig) { c.log = log }
}
