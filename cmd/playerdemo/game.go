package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/internal/player"
	"github.com/comalice/hfsm/realtime"
)

// holdTicks keeps the player moving between terminal key repeats.
const holdTicks = 8

var glyphs = map[string]rune{
	"idle":    'o',
	"walk":    '>',
	"sprint":  '»',
	"fall":    'v',
	"grapple": '^',
}

type game struct {
	screen tcell.Screen
	rt     *realtime.Runtime
	root   *hfsm.StateMachine
	bb     *hfsm.Blackboard
	body   *player.Body
	logger *slog.Logger

	// tick goroutine only
	hold int
}

func newGame(root *hfsm.StateMachine, bb *hfsm.Blackboard, body *player.Body, cfg realtime.Config) (*game, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	g := &game{
		screen: screen,
		root:   root,
		bb:     bb,
		body:   body,
		logger: cfg.Logger,
	}
	cfg.OnTick = g.tick
	g.rt = realtime.NewRuntime(root, cfg)
	return g, nil
}

func (g *game) run(ctx context.Context) error {
	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go pollEvents(g.screen, events, done)

	if err := g.rt.Start(ctx); err != nil {
		return err
	}
	defer g.rt.Stop()

	for {
		select {
		case <-g.rt.Done():
			return nil
		case ev := <-events:
			if !g.handleInput(ev) {
				return nil
			}
		}
	}
}

// pollEvents forwards screen events until the screen is finalized or done
// is closed.
func pollEvents(screen tcell.Screen, events chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

func (g *game) cleanup() {
	g.screen.Fini()
}

func (g *game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft:
			g.move(-1)
		case tcell.KeyRight:
			g.move(1)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 'h', 'a':
				g.move(-1)
			case 'l', 'd':
				g.move(1)
			case 'r':
				g.toggle(player.KeySprint)
			case 'g':
				g.toggle(player.KeyGrounded)
			case ' ':
				g.toggle(player.KeyGrapple)
			}
		}
	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

func (g *game) move(dir float64) {
	g.send(func() {
		g.bb.Set(player.KeyDir, dir)
		g.bb.Set(player.KeyMoving, true)
		g.hold = holdTicks
	})
}

func (g *game) toggle(key string) {
	g.send(func() { g.bb.Set(key, !g.bb.Bool(key)) })
}

func (g *game) send(fn func()) {
	if err := g.rt.Send(fn); err != nil {
		g.logger.Warn("input dropped", "error", err)
	}
}

// tick runs on the runtime goroutine after every Update.
func (g *game) tick(n uint64) {
	if g.hold > 0 {
		g.hold--
		if g.hold == 0 {
			g.bb.Set(player.KeyMoving, false)
		}
	}
	g.draw(n)
}

func (g *game) draw(n uint64) {
	g.screen.Clear()
	width, height := g.screen.Size()
	if width < 10 || height < 8 {
		g.screen.Show()
		return
	}

	floor := height - 4
	ground := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	for x := 0; x < width; x++ {
		g.screen.SetContent(x, floor, '─', nil, ground)
	}

	x := int(math.Floor(g.body.X)) % width
	if x < 0 {
		x += width
	}
	y := floor - 1 - int(math.Round(g.body.Height))
	glyph, ok := glyphs[g.body.Pose]
	if !ok {
		glyph = '?'
	}
	if glyph == '>' {
		if d, _ := g.bb.Float(player.KeyDir); d < 0 {
			glyph = '<'
		}
	}
	g.screen.SetContent(x, y, glyph, nil, tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true))

	status := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	g.drawText(0, 0, g.root.CurrentPath(), status.Bold(true))
	g.drawText(0, 1, fmt.Sprintf("tick %d  grounded=%t sprint=%t grapple=%t",
		n, g.bb.Bool(player.KeyGrounded), g.bb.Bool(player.KeySprint), g.bb.Bool(player.KeyGrapple)), status)
	g.drawText(0, height-2, "←/→ h/l move  r sprint  g grounded  space grapple  q quit",
		tcell.StyleDefault.Foreground(tcell.ColorGray))

	g.screen.Show()
}

func (g *game) drawText(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		g.screen.SetContent(x+i, y, r, nil, style)
	}
}
