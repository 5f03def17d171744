// Package builder provides function-backed leaf states for wiring machines
// without declaring a type per behavior.
package builder

import "github.com/comalice/hfsm"

// Leaf is a State whose hooks are plain functions. Nil hooks do nothing.
type Leaf struct {
	name     string
	onEnter  func()
	onUpdate func()
	onExit   func()
}

var _ hfsm.State = (*Leaf)(nil)

// Option configures a Leaf.
type Option func(*Leaf)

// New creates a leaf state called name.
func New(name string, opts ...Option) *Leaf {
	l := &Leaf{name: name}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnEnter sets the hook run when the leaf is entered.
func OnEnter(fn func()) Option {
	return func(l *Leaf) { l.onEnter = fn }
}

// OnUpdate sets the hook run once per tick while the leaf is active.
func OnUpdate(fn func()) Option {
	return func(l *Leaf) { l.onUpdate = fn }
}

// OnExit sets the hook run when the leaf is exited.
func OnExit(fn func()) Option {
	return func(l *Leaf) { l.onExit = fn }
}

func (l *Leaf) Name() string { return l.name }

func (l *Leaf) OnEnter() {
	if l.onEnter != nil {
		l.onEnter()
	}
}

func (l *Leaf) Update() {
	if l.onUpdate != nil {
		l.onUpdate()
	}
}

func (l *Leaf) OnExit() {
	if l.onExit != nil {
		l.onExit()
	}
}
