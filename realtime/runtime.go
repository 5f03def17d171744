package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/hfsm"
)

var (
	// ErrInputQueueFull means more inputs were sent in one tick than
	// Config.MaxInputsPerTick allows.
	ErrInputQueueFull = errors.New("input queue full")
	// ErrAlreadyStarted means Start was called on a running runtime.
	ErrAlreadyStarted = errors.New("runtime already started")
	// ErrNotStarted means Stop was called before Start.
	ErrNotStarted = errors.New("runtime not started")
)

// Config configures the tick runtime.
type Config struct {
	TickRate         time.Duration // Fixed tick rate (default 16.667ms, 60 FPS)
	MaxInputsPerTick int           // Input queue capacity (default 1000)
	// Logger receives start, stop and recovered-panic records. Defaults to
	// slog.Default().
	Logger *slog.Logger
	// OnTick, when set, runs on the tick goroutine after every Update.
	OnTick func(tick uint64)
}

// Runtime drives a root state at a fixed rate.
type Runtime struct {
	id       string
	root     hfsm.State
	tickRate time.Duration
	logger   *slog.Logger
	onTick   func(uint64)

	mu          sync.Mutex
	batch       []Input
	sequenceNum uint64
	tickNum     uint64
	running     bool

	tickCancel context.CancelFunc
	stopped    chan struct{}
}

// NewRuntime creates a runtime for root. root is not entered until Start or
// Enter.
func NewRuntime(root hfsm.State, cfg Config) *Runtime {
	if cfg.MaxInputsPerTick <= 0 {
		cfg.MaxInputsPerTick = 1000
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 16667 * time.Microsecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	id := uuid.NewString()
	return &Runtime{
		id:       id,
		root:     root,
		tickRate: cfg.TickRate,
		logger:   cfg.Logger.With("run_id", id, "root", hfsm.NameOf(root)),
		onTick:   cfg.OnTick,
		batch:    make([]Input, 0, cfg.MaxInputsPerTick),
	}
}

// ID returns the run id attached to every log record of this runtime.
func (rt *Runtime) ID() string {
	return rt.id
}

// TickRate returns the configured tick interval.
func (rt *Runtime) TickRate() time.Duration {
	return rt.tickRate
}

// Start enters the root state and begins ticking on a new goroutine. The loop
// ends when ctx is cancelled or Stop is called; the root is exited on the same
// goroutine before it returns.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	if rt.running {
		rt.mu.Unlock()
		return ErrAlreadyStarted
	}
	if rt.tickCancel != nil {
		// the previous loop ended on its own context
		rt.tickCancel()
	}
	rt.running = true
	tickCtx, cancel := context.WithCancel(ctx)
	rt.tickCancel = cancel
	rt.stopped = make(chan struct{})
	stopped := rt.stopped
	rt.mu.Unlock()

	go rt.tickLoop(tickCtx, stopped)
	return nil
}

// Stop cancels the tick loop and waits for the root state to be exited. A
// loop that already ended because its context was cancelled is not an error.
func (rt *Runtime) Stop() error {
	rt.mu.Lock()
	if rt.tickCancel == nil {
		rt.mu.Unlock()
		return ErrNotStarted
	}
	cancel, stopped := rt.tickCancel, rt.stopped
	rt.tickCancel = nil
	rt.mu.Unlock()

	cancel()
	<-stopped
	return nil
}

// Done returns a channel closed once the current tick loop has exited. It is
// nil before the first Start.
func (rt *Runtime) Done() <-chan struct{} {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stopped
}

func (rt *Runtime) tickLoop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	defer func() {
		rt.mu.Lock()
		rt.running = false
		rt.mu.Unlock()
	}()

	ticker := time.NewTicker(rt.tickRate)
	defer ticker.Stop()

	rt.logger.Info("runtime started", "tick_rate", rt.tickRate)
	rt.guard("enter", rt.root.OnEnter)

	for {
		select {
		case <-ctx.Done():
			rt.guard("exit", rt.root.OnExit)
			rt.logger.Info("runtime stopped", "ticks", rt.TickNumber())
			return
		case <-ticker.C:
			rt.guard("tick", rt.processTick)
		}
	}
}

// guard runs fn and logs a recovered panic instead of tearing the loop down.
func (rt *Runtime) guard(phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("recovered panic", "phase", phase, "tick", rt.TickNumber(), "panic", r)
		}
	}()
	fn()
}

// Enter enters the root state synchronously. Use it with Step instead of
// Start.
func (rt *Runtime) Enter() {
	rt.root.OnEnter()
}

// Exit exits the root state synchronously.
func (rt *Runtime) Exit() {
	rt.root.OnExit()
}

// Step runs one tick on the calling goroutine. It must not be used while the
// runtime is started.
func (rt *Runtime) Step() {
	rt.processTick()
}

// Send queues fn to run at the next tick boundary, before the root update.
// It is safe for concurrent use.
func (rt *Runtime) Send(fn func()) error {
	return rt.SendWithPriority(fn, 0)
}

// SendWithPriority queues fn ahead of inputs with a lower priority.
func (rt *Runtime) SendWithPriority(fn func(), priority int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if len(rt.batch) >= cap(rt.batch) {
		return ErrInputQueueFull
	}
	rt.batch = append(rt.batch, Input{
		Apply:       fn,
		SequenceNum: rt.sequenceNum,
		Priority:    priority,
	})
	rt.sequenceNum++
	return nil
}

// TickNumber returns the number of completed ticks.
func (rt *Runtime) TickNumber() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.tickNum
}
