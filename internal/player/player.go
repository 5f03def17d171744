// Package player wires the platformer controller used by the demo programs:
// a ground machine (idle, walk, sprint) and an air machine (fall, grapple)
// nested in a player machine that switches on the grounded flag.
package player

import (
	_ "embed"
	"math"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/builder"
	"github.com/comalice/hfsm/chart"
)

// Blackboard keys read by the controller's guards.
const (
	KeyMoving   = "moving"
	KeySprint   = "sprint"
	KeyGrounded = "grounded"
	KeyGrapple  = "grapple"
	KeyDir      = "dir" // -1 left, +1 right
)

// Movement per tick.
const (
	WalkSpeed   = 0.25
	SprintSpeed = 0.6
	FallSpeed   = 0.2
	ClimbSpeed  = 0.3
	MaxHeight   = 6.0
)

// DefaultChart is the controller as a chart file; New builds the same tree
// in code.
//
//go:embed player.yaml
var DefaultChart []byte

// Body is the simulated character the leaf behaviors move.
type Body struct {
	X      float64
	Height float64
	Pose   string
}

// Behaviors returns the leaf behaviors keyed by leaf name.
func Behaviors(body *Body, bb *hfsm.Blackboard) map[string]hfsm.State {
	dir := func() float64 {
		d, ok := bb.Float(KeyDir)
		if !ok || d == 0 {
			return 0
		}
		return math.Copysign(1, d)
	}
	pose := func(name string) builder.Option {
		return builder.OnEnter(func() { body.Pose = name })
	}

	return map[string]hfsm.State{
		"idle": builder.New("idle", pose("idle")),
		"walk": builder.New("walk", pose("walk"),
			builder.OnUpdate(func() { body.X += dir() * WalkSpeed })),
		"sprint": builder.New("sprint", pose("sprint"),
			builder.OnUpdate(func() { body.X += dir() * SprintSpeed })),
		"fall": builder.New("fall", pose("fall"),
			builder.OnUpdate(func() { body.Height = math.Max(body.Height-FallSpeed, 0) })),
		"grapple": builder.New("grapple", pose("grapple"),
			builder.OnUpdate(func() { body.Height = math.Min(body.Height+ClimbSpeed, MaxHeight) })),
	}
}

// New builds the controller in code. opts apply to every machine.
func New(body *Body, bb *hfsm.Blackboard, opts ...hfsm.Option) (*hfsm.StateMachine, error) {
	leaves := Behaviors(body, bb)

	moving := bb.Flag(KeyMoving)
	sprint := bb.Flag(KeySprint)
	toIdle := hfsm.Not(moving)
	toWalk := hfsm.All(moving, hfsm.Not(sprint))
	toSprint := hfsm.All(moving, sprint)

	ground, err := hfsm.NewMachineBuilder("ground", opts...).
		State("idle", leaves["idle"]).
		State("walk", leaves["walk"]).
		State("sprint", leaves["sprint"]).
		Entrance("idle", toIdle).
		Entrance("walk", toWalk).
		Entrance("sprint", toSprint).
		On("idle", "sprint", toSprint).
		On("idle", "walk", toWalk).
		On("walk", "idle", toIdle).
		On("walk", "sprint", sprint).
		On("sprint", "idle", toIdle).
		On("sprint", "walk", hfsm.Not(sprint)).
		Build()
	if err != nil {
		return nil, err
	}

	grapple := bb.Flag(KeyGrapple)
	air, err := hfsm.NewMachineBuilder("air", opts...).
		State("fall", leaves["fall"]).
		State("grapple", leaves["grapple"]).
		Entrance("grapple", grapple).
		Entrance("fall", hfsm.Always).
		On("fall", "grapple", grapple).
		On("grapple", "fall", hfsm.Not(grapple)).
		Build()
	if err != nil {
		return nil, err
	}

	grounded := bb.Flag(KeyGrounded)
	return hfsm.NewMachineBuilder("player", opts...).
		State("ground", ground).
		State("air", air).
		Entrance("ground", hfsm.Always).
		On("ground", "air", hfsm.Not(grounded)).
		On("air", "ground", grounded).
		Build()
}

// FromChart compiles cfg with the controller's leaf behaviors. A nil cfg uses
// DefaultChart.
func FromChart(cfg *chart.Config, body *Body, bb *hfsm.Blackboard, opts ...chart.Option) (*chart.Chart, error) {
	if cfg == nil {
		var err error
		if cfg, err = chart.Parse(DefaultChart); err != nil {
			return nil, err
		}
	}
	all := []chart.Option{chart.WithBlackboard(bb)}
	for name, s := range Behaviors(body, bb) {
		all = append(all, chart.WithState(name, s))
	}
	return chart.Compile(cfg, append(all, opts...)...)
}
