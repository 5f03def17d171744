// Command playerdemo runs the platformer controller in a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/chart"
	"github.com/comalice/hfsm/internal/player"
	"github.com/comalice/hfsm/internal/production"
	"github.com/comalice/hfsm/realtime"
)

func main() {
	var (
		chartFile   = flag.String("chart", "", "Path to a YAML chart (default: controller wired in code)")
		dot         = flag.Bool("dot", false, "Print the machine as Graphviz DOT and exit")
		metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9090")
		logFile     = flag.String("log", "", "Write logs to this file")
		verbose     = flag.Bool("verbose", false, "Log at debug level and trace every state")
		tickRate    = flag.Duration("tick", 16667*time.Microsecond, "Tick interval")
		mute        = flag.Bool("mute", false, "Disable audio cues")
	)
	flag.Parse()

	logger, closeLog, err := newLogger(*logFile, *verbose)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer closeLog()

	sinks := []hfsm.Sink{production.NewSlogSink(logger)}

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		sinks = append(sinks, production.NewPrometheusSink(reg))
		srv := serveMetrics(*metricsAddr, reg, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	audio := newCues()
	if !*mute && !*dot {
		if err := audio.init(); err != nil {
			// Non-fatal, the demo runs without sound
			logger.Warn("audio initialization failed", "error", err)
		}
	}
	defer audio.close()
	sinks = append(sinks, audio)

	sink := hfsm.NewMultiSink(sinks...)
	body := &player.Body{}
	bb := hfsm.NewBlackboard()
	bb.Set(player.KeyGrounded, true)

	root, err := buildRoot(*chartFile, body, bb, sink, logger, *verbose)
	if err != nil {
		log.Fatalf("Failed to build controller: %v", err)
	}

	if *dot {
		root.OnEnter()
		fmt.Print((&production.DefaultVisualizer{}).ExportDOT(root))
		root.OnExit()
		return
	}

	g, err := newGame(root, bb, body, realtime.Config{TickRate: *tickRate, Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer g.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := g.run(ctx); err != nil {
		logger.Error("run failed", "error", err)
	}
}

func newLogger(path string, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if path == "" {
		// The terminal belongs to the screen.
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}

func buildRoot(path string, body *player.Body, bb *hfsm.Blackboard, sink hfsm.Sink, logger *slog.Logger, trace bool) (*hfsm.StateMachine, error) {
	if path == "" {
		return player.New(body, bb, hfsm.WithSink(sink))
	}

	cfg, err := chart.Load(path)
	if err != nil {
		return nil, err
	}
	opts := []chart.Option{chart.WithSink(sink)}
	if trace {
		opts = append(opts, chart.WithTrace(logger))
	}
	c, err := player.FromChart(cfg, body, bb, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("chart loaded", "path", path, "version", c.Version)
	return c.Root, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}
