// Package chart loads machine trees from YAML and compiles them into
// *hfsm.StateMachine values.
//
//	version: "1"
//	machine:
//	  name: player
//	  entrance:
//	    - {to: ground, when: always}
//	  states:
//	    - name: ground
//	      machine:
//	        name: ground
//	        entrance: [{to: idle}]
//	        states: [{name: idle}, {name: walk}]
//	        transitions:
//	          - {from: idle, to: walk, when: moving}
//	          - {from: walk, to: idle, when: "!moving"}
//	  transitions: []
//
// Leaf states bind by name to behaviors registered with WithState. Guards are
// either registered with WithGuard or written as expressions over the chart's
// Blackboard; see the extensibility package for the expression syntax.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/internal/extensibility"
	"github.com/comalice/hfsm/internal/primitives"
)

// Configuration types, decoded from YAML.
type (
	Config        = primitives.ChartConfig
	MachineConfig = primitives.MachineConfig
	StateConfig   = primitives.StateConfig
	EdgeConfig    = primitives.EdgeConfig
)

var (
	// ErrUnknownLeaf means a leaf state names a behavior that was not registered.
	ErrUnknownLeaf = errors.New("unknown leaf behavior")
	// ErrEmptyChart means the document held no chart.
	ErrEmptyChart = errors.New("empty chart")

	// ErrBadGuard and ErrUnknownGuard are returned for guards that fail to
	// compile.
	ErrBadGuard     = extensibility.ErrBadGuard
	ErrUnknownGuard = extensibility.ErrUnknownGuard
)

// Parse decodes and validates a YAML chart. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyChart
		}
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chart: %w", err)
	}
	return &cfg, nil
}

// Load reads and parses the chart file at path.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is provided by the caller.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Version returns the declared version of cfg or a content hash.
func Version(cfg *Config) string {
	return primitives.ComputeVersion(cfg)
}

// Option configures Compile.
type Option func(*compiler)

// WithState registers the behavior bound to leaf states named name.
func WithState(name string, s hfsm.State) Option {
	return func(c *compiler) { c.leaves[name] = s }
}

// WithLeafFactory supplies behaviors for leaves that were not registered.
// The factory receives the dot-separated path and the behavior name.
func WithLeafFactory(fn func(path, leaf string) hfsm.State) Option {
	return func(c *compiler) { c.factory = fn }
}

// WithGuard registers a named guard. Named guards shadow blackboard keys.
func WithGuard(name string, p hfsm.Predicate) Option {
	return func(c *compiler) { c.guards.RegisterGuard(name, p) }
}

// WithBlackboard sets the blackboard that guard expressions read. By default
// Compile creates a fresh one, available as Chart.Blackboard.
func WithBlackboard(bb *hfsm.Blackboard) Option {
	return func(c *compiler) {
		if bb != nil {
			c.bb = bb
		}
	}
}

// WithSink routes the diagnostics of every compiled machine to sink.
func WithSink(sink hfsm.Sink) Option {
	return func(c *compiler) { c.sink = sink }
}

// WithTrace wraps every state in a logging decorator writing to logger.
func WithTrace(logger *slog.Logger) Option {
	return func(c *compiler) { c.trace = logger }
}

// Chart is a compiled machine tree.
type Chart struct {
	Root       *hfsm.StateMachine
	Version    string
	Blackboard *hfsm.Blackboard

	machines map[string]*hfsm.StateMachine
	states   map[string]hfsm.State
}

// Machine returns the machine at a dot-separated state path; "" is the root.
func (c *Chart) Machine(path string) (*hfsm.StateMachine, bool) {
	m, ok := c.machines[path]
	return m, ok
}

// Lookup returns the state at a dot-separated path such as "ground.idle".
func (c *Chart) Lookup(path string) (hfsm.State, bool) {
	s, ok := c.states[path]
	return s, ok
}

type compiler struct {
	leaves  map[string]hfsm.State
	factory func(path, leaf string) hfsm.State
	guards  *extensibility.GuardRegistry
	bb      *hfsm.Blackboard
	sink    hfsm.Sink
	trace   *slog.Logger

	eval  extensibility.GuardEvaluator
	chart *Chart
}

// Compile builds the machine tree described by cfg.
func Compile(cfg *Config, opts ...Option) (*Chart, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chart: %w", err)
	}

	c := &compiler{
		leaves: make(map[string]hfsm.State),
		guards: extensibility.NewGuardRegistry(),
		bb:     hfsm.NewBlackboard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.eval = extensibility.NewChainEvaluator(c.guards, extensibility.NewExpressionGuardEvaluator(c.bb))
	c.chart = &Chart{
		Version:    primitives.ComputeVersion(cfg),
		Blackboard: c.bb,
		machines:   make(map[string]*hfsm.StateMachine),
		states:     make(map[string]hfsm.State),
	}

	root, err := c.machine(cfg.Machine, "")
	if err != nil {
		return nil, err
	}
	c.chart.Root = root
	return c.chart, nil
}

// LoadFile loads and compiles the chart at path.
func LoadFile(path string, opts ...Option) (*Chart, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(cfg, opts...)
}

func (c *compiler) machine(mc *MachineConfig, path string) (*hfsm.StateMachine, error) {
	var mopts []hfsm.Option
	if c.sink != nil {
		mopts = append(mopts, hfsm.WithSink(c.sink))
	}
	b := hfsm.NewMachineBuilder(mc.Name, mopts...)

	// identity of the unwrapped behaviors
	seen := make(map[hfsm.State]string, len(mc.States))
	for _, sc := range mc.States {
		statePath := join(path, sc.Name)
		s, err := c.state(sc, statePath)
		if err != nil {
			return nil, err
		}
		if !reflect.TypeOf(s).Comparable() {
			return nil, fmt.Errorf("machine %s: state %s: %w", mc.Name, sc.Name, hfsm.ErrIncomparableState)
		}
		if prev, ok := seen[s]; ok {
			return nil, fmt.Errorf("machine %s: state %s: behavior instance already used by %s: %w", mc.Name, sc.Name, prev, hfsm.ErrDuplicateState)
		}
		seen[s] = sc.Name
		if c.trace != nil {
			s = extensibility.NewLoggingState(s, c.trace.With("path", statePath))
		}
		c.chart.states[statePath] = s
		b.State(sc.Name, s)
	}

	for i, e := range mc.Entrance {
		p, err := c.eval.Compile(e.When)
		if err != nil {
			return nil, fmt.Errorf("machine %s: entrance %d: %w", mc.Name, i, err)
		}
		b.Entrance(e.To, p)
	}
	for i, e := range mc.Transitions {
		p, err := c.eval.Compile(e.When)
		if err != nil {
			return nil, fmt.Errorf("machine %s: transition %d %s -> %s: %w", mc.Name, i, e.From, e.To, err)
		}
		b.On(e.From, e.To, p)
	}

	m, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.chart.machines[path] = m
	return m, nil
}

func (c *compiler) state(sc *StateConfig, path string) (hfsm.State, error) {
	if sc.IsComposite() {
		return c.machine(sc.Machine, path)
	}
	leaf := sc.Behavior()
	if s, ok := c.leaves[leaf]; ok && s != nil {
		return s, nil
	}
	if c.factory != nil {
		if s := c.factory(path, leaf); s != nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("state %s: %w %q", path, ErrUnknownLeaf, leaf)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
