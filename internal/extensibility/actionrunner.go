package extensibility

import (
	"context"
	"log/slog"
	"time"

	"github.com/comalice/hfsm"
)

// LoggingState wraps a State and logs its lifecycle calls. Enter and exit are
// logged at debug; each update is logged at the configured update level, which
// defaults to a level below debug so per-tick noise is off unless asked for.
type LoggingState struct {
	inner       hfsm.State
	logger      *slog.Logger
	updateLevel slog.Level
}

var _ hfsm.State = (*LoggingState)(nil)

// LoggingOption configures a LoggingState.
type LoggingOption func(*LoggingState)

// WithUpdateLevel sets the level used for Update records.
func WithUpdateLevel(level slog.Level) LoggingOption {
	return func(s *LoggingState) { s.updateLevel = level }
}

// NewLoggingState decorates inner. A nil logger uses slog.Default().
func NewLoggingState(inner hfsm.State, logger *slog.Logger, opts ...LoggingOption) *LoggingState {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LoggingState{
		inner:       inner,
		logger:      logger.With("state", hfsm.NameOf(inner)),
		updateLevel: slog.LevelDebug - 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name reports the wrapped state's name so paths and diagnostics are unchanged.
func (s *LoggingState) Name() string {
	return hfsm.NameOf(s.inner)
}

// Unwrap returns the decorated state.
func (s *LoggingState) Unwrap() hfsm.State {
	return s.inner
}

// CurrentPath forwards to a composite inner state so nested paths render
// through the decorator.
func (s *LoggingState) CurrentPath() string {
	if p, ok := s.inner.(interface{ CurrentPath() string }); ok {
		return p.CurrentPath()
	}
	return hfsm.NameOf(s.inner)
}

func (s *LoggingState) OnEnter() {
	s.logger.Debug("enter")
	s.inner.OnEnter()
}

func (s *LoggingState) Update() {
	ctx := context.Background()
	if !s.logger.Enabled(ctx, s.updateLevel) {
		s.inner.Update()
		return
	}
	start := time.Now()
	s.inner.Update()
	s.logger.Log(ctx, s.updateLevel, "update", "elapsed", time.Since(start))
}

func (s *LoggingState) OnExit() {
	s.inner.OnExit()
	s.logger.Debug("exit")
}
