// Package extensibility provides pluggable pieces used when machines are wired
// from declarative charts: guard evaluators that compile guard strings into
// predicates, and a logging decorator for states.
package extensibility

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/comalice/hfsm"
)

var (
	// ErrBadGuard means a guard expression could not be parsed.
	ErrBadGuard = errors.New("invalid guard expression")
	// ErrUnknownGuard means no evaluator recognised a guard name.
	ErrUnknownGuard = errors.New("unknown guard")
)

// GuardEvaluator turns a guard string into a predicate. Compilation happens
// once, when a chart is loaded, so evaluation stays cheap on the tick path.
type GuardEvaluator interface {
	Compile(guard string) (hfsm.Predicate, error)
}

// GuardRegistry resolves guards registered by name.
type GuardRegistry struct {
	mu     sync.RWMutex
	guards map[string]hfsm.Predicate
}

// NewGuardRegistry creates an empty registry.
func NewGuardRegistry() *GuardRegistry {
	return &GuardRegistry{guards: make(map[string]hfsm.Predicate)}
}

// RegisterGuard binds name to p, replacing any earlier binding.
func (r *GuardRegistry) RegisterGuard(name string, p hfsm.Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards[name] = p
}

// Compile returns the guard registered under name.
func (r *GuardRegistry) Compile(name string) (hfsm.Predicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.guards[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("guard %q: %w", name, ErrUnknownGuard)
	}
	if p == nil {
		return hfsm.Always, nil
	}
	return p, nil
}

// ExpressionGuardEvaluator compiles simple expressions read against a
// Blackboard:
//
//	""  always  never       constant guards
//	grounded  !grounded     bool flags
//	speed > 2.5             numeric comparison (== != > < >= <=)
//	mode == "air"           string comparison, quotes optional
//	mode != "a&&b"          operators inside quotes are part of the value
//	a && !b || c            && binds tighter than ||; no parentheses
//
// Comparisons against a missing key are false.
type ExpressionGuardEvaluator struct {
	bb *hfsm.Blackboard
}

// NewExpressionGuardEvaluator creates an evaluator reading bb.
func NewExpressionGuardEvaluator(bb *hfsm.Blackboard) *ExpressionGuardEvaluator {
	return &ExpressionGuardEvaluator{bb: bb}
}

// Compile parses expr.
func (e *ExpressionGuardEvaluator) Compile(expr string) (hfsm.Predicate, error) {
	if _, open := scanUnquoted(expr, ""); open {
		return nil, fmt.Errorf("guard %q: %w: unterminated quote", expr, ErrBadGuard)
	}
	p, err := e.compileOr(expr)
	if err != nil {
		return nil, fmt.Errorf("guard %q: %w", expr, err)
	}
	return p, nil
}

func (e *ExpressionGuardEvaluator) compileOr(expr string) (hfsm.Predicate, error) {
	parts := splitUnquoted(expr, "||")
	if len(parts) == 1 {
		return e.compileAnd(parts[0])
	}
	ps := make([]hfsm.Predicate, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return nil, fmt.Errorf("%w: empty operand of ||", ErrBadGuard)
		}
		p, err := e.compileAnd(part)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return hfsm.Any(ps...), nil
}

func (e *ExpressionGuardEvaluator) compileAnd(expr string) (hfsm.Predicate, error) {
	parts := splitUnquoted(expr, "&&")
	if len(parts) == 1 {
		return e.compileTerm(parts[0])
	}
	ps := make([]hfsm.Predicate, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return nil, fmt.Errorf("%w: empty operand of &&", ErrBadGuard)
		}
		p, err := e.compileTerm(part)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return hfsm.All(ps...), nil
}

var comparisonOps = []string{"==", "!=", ">=", "<=", ">", "<"}

func (e *ExpressionGuardEvaluator) compileTerm(term string) (hfsm.Predicate, error) {
	term = strings.TrimSpace(term)
	switch term {
	case "", "always", "true":
		return hfsm.Always, nil
	case "never", "false":
		return hfsm.Never, nil
	}

	for _, op := range comparisonOps {
		i, _ := scanUnquoted(term, op)
		if i < 0 {
			continue
		}
		key := strings.TrimSpace(term[:i])
		lit := strings.TrimSpace(term[i+len(op):])
		if err := validateKey(key); err != nil {
			return nil, err
		}
		if lit == "" {
			return nil, fmt.Errorf("%w: missing value after %q", ErrBadGuard, op)
		}
		return e.comparison(key, op, lit)
	}

	if strings.HasPrefix(term, "!") {
		key := strings.TrimSpace(term[1:])
		if err := validateKey(key); err != nil {
			return nil, err
		}
		return hfsm.Not(e.bb.Flag(key)), nil
	}
	if err := validateKey(term); err != nil {
		return nil, err
	}
	return e.bb.Flag(term), nil
}

func (e *ExpressionGuardEvaluator) comparison(key, op, lit string) (hfsm.Predicate, error) {
	bb := e.bb

	switch lit {
	case "true", "false":
		want := lit == "true"
		if op != "==" && op != "!=" {
			return nil, fmt.Errorf("%w: operator %s on bool", ErrBadGuard, op)
		}
		return func() bool {
			v, ok := bb.Get(key)
			b, isBool := v.(bool)
			if !ok || !isBool {
				return false
			}
			return (b == want) == (op == "==")
		}, nil
	}

	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		cmp := numericOp(op)
		return func() bool {
			v, ok := bb.Float(key)
			return ok && cmp(v, f)
		}, nil
	}

	s := strings.Trim(lit, `"'`)
	if op != "==" && op != "!=" {
		return nil, fmt.Errorf("%w: operator %s on string", ErrBadGuard, op)
	}
	return func() bool {
		v, ok := bb.Get(key)
		str, isString := v.(string)
		if !ok || !isString {
			return false
		}
		return (str == s) == (op == "==")
	}, nil
}

func numericOp(op string) func(a, b float64) bool {
	switch op {
	case "==":
		return func(a, b float64) bool { return a == b }
	case "!=":
		return func(a, b float64) bool { return a != b }
	case ">=":
		return func(a, b float64) bool { return a >= b }
	case "<=":
		return func(a, b float64) bool { return a <= b }
	case ">":
		return func(a, b float64) bool { return a > b }
	default:
		return func(a, b float64) bool { return a < b }
	}
}

// scanUnquoted returns the index of the first sub outside single or double
// quotes, or -1. open reports whether s ends inside a quote. An empty sub
// only scans.
func scanUnquoted(s, sub string) (i int, open bool) {
	var quote byte
	for i = 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case sub != "" && strings.HasPrefix(s[i:], sub):
			return i, false
		}
	}
	return -1, quote != 0
}

func splitUnquoted(s, sep string) []string {
	var parts []string
	for {
		i, _ := scanUnquoted(s, sep)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+len(sep):]
	}
}

// validateKey accepts letters, digits, underscores, hyphens and dots.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrBadGuard)
	}
	for _, r := range key {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.') {
			return fmt.Errorf("%w: invalid character '%c' in key %q", ErrBadGuard, r, key)
		}
	}
	return nil
}

// ChainEvaluator tries evaluators in order. A guard unknown to one evaluator
// falls through to the next; any other error stops the chain.
type ChainEvaluator struct {
	evaluators []GuardEvaluator
}

// NewChainEvaluator chains evaluators, skipping nils.
func NewChainEvaluator(evaluators ...GuardEvaluator) *ChainEvaluator {
	c := &ChainEvaluator{}
	for _, e := range evaluators {
		if e != nil {
			c.evaluators = append(c.evaluators, e)
		}
	}
	return c
}

// Compile returns the first successful compilation.
func (c *ChainEvaluator) Compile(guard string) (hfsm.Predicate, error) {
	for _, e := range c.evaluators {
		p, err := e.Compile(guard)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrUnknownGuard) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("guard %q: %w", guard, ErrUnknownGuard)
}
