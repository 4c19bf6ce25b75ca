package compiler

import (
	"io"
	"log/slog"

	"github.com/roach88/wodrun/internal/behaviors"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/runtime"
)

// JIT compiles statement groups on demand by strategy precedence.
type JIT struct {
	strategies []Strategy
	logger     *slog.Logger
}

var _ runtime.Compiler = (*JIT)(nil)

// Option configures a JIT.
type Option func(*JIT)

// WithStrategies replaces the strategy list. Order is precedence.
func WithStrategies(s ...Strategy) Option {
	return func(j *JIT) {
		j.strategies = append([]Strategy(nil), s...)
	}
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(j *JIT) {
		j.logger = l
	}
}

// New returns a JIT using DefaultStrategies unless overridden.
func New(opts ...Option) *JIT {
	j := &JIT{
		strategies: DefaultStrategies(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Strategies returns the strategies in precedence order.
func (j *JIT) Strategies() []Strategy {
	return j.strategies
}

// Match returns the first strategy that accepts statements, or nil.
func (j *JIT) Match(statements []*ir.Statement) Strategy {
	if len(statements) == 0 {
		return nil
	}
	for _, s := range j.strategies {
		if s.Match(statements) {
			return s
		}
	}
	return nil
}

// Compile builds a block for statements with the first matching strategy.
// Returns nil when statements is empty or no strategy matches.
func (j *JIT) Compile(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	s := j.Match(statements)
	if s == nil {
		j.logger.Debug("no strategy matched", "statements", len(statements))
		return nil
	}
	b := s.Build(ctx, statements)
	j.logger.Debug("compiled block",
		"strategy", s.Name(),
		"block", b.Key,
		"kind", b.Kind,
		"label", b.Label,
		"ids", b.SourceIDs,
	)
	return b
}

// Root builds the workout block whose children are the script's top-level
// statements.
func (j *JIT) Root(ctx *runtime.ExecutionContext) *runtime.Block {
	script := ctx.Script()
	if script == nil || script.Len() == 0 {
		return nil
	}
	b := runtime.NewBlock(ctx.NewKey(), runtime.KindRoot, "Workout", nil,
		behaviors.HistoryRecord{},
		behaviors.Display{},
		behaviors.NewStopwatch(ir.SpanWork),
		behaviors.ChildRunner{},
		behaviors.Completion{},
		behaviors.DefaultButtons(),
	)
	b.ChildGroups = GroupChildren(script, script.Roots())
	return b
}
