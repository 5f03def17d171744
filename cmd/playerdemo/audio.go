package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/comalice/hfsm"
)

// cues plays short tones when the controller changes state. It is an
// hfsm.Sink so it sees every fired transition.
type cues struct {
	sampleRate beep.SampleRate
	ready      bool
}

func newCues() *cues {
	return &cues{sampleRate: beep.SampleRate(44100)}
}

func (c *cues) init() error {
	if err := speaker.Init(c.sampleRate, c.sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	c.ready = true
	return nil
}

func (c *cues) close() {
	if c.ready {
		speaker.Close()
	}
}

func (c *cues) tone(freq float64, d time.Duration) {
	if !c.ready {
		return
	}
	sine, err := generators.SineTone(c.sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(c.sampleRate.N(d), sine))
}

func (c *cues) Report(d hfsm.Diagnostic) {
	if d.Kind != hfsm.TransitionFired {
		return
	}
	switch d.To {
	case "grapple":
		c.tone(880, 60*time.Millisecond)
	case "ground":
		c.tone(220, 80*time.Millisecond)
	case "sprint":
		c.tone(440, 30*time.Millisecond)
	}
}
