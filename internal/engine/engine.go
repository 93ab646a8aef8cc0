// Package engine wires the feed, the task loop, and the chart store together.
package engine

import (
	"context"
	"time"

	"github.com/grovetools/chartview/config"
	"github.com/grovetools/chartview/errors"
	"github.com/grovetools/chartview/pkg/chart"
	"github.com/grovetools/chartview/pkg/feed"
	"github.com/grovetools/chartview/pkg/loop"
	"github.com/sirupsen/logrus"
)

// Direction is a pan direction.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// ParseDirection validates a pan direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Left, Right:
		return Direction(s), nil
	}
	return "", errors.InvalidInput("direction", s)
}

// Options configures an Engine.
type Options struct {
	Feed        feed.Config
	PanStep     float64
	PanInterval time.Duration
	// Clock drives backoff and pan timers. Nil means the real clock.
	Clock loop.Clock
}

// OptionsFromConfig maps the loaded configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Feed: feed.Config{
			URL:          cfg.Feed.URL,
			WrapperField: cfg.Feed.WrapperField,
			Floor:        cfg.Feed.BackoffFloor.D(),
			Ceiling:      cfg.Feed.BackoffCeiling.D(),
			ReadTimeout:  cfg.Feed.ReadTimeout.D(),
		},
		PanStep:     cfg.Viewer.PanStep,
		PanInterval: cfg.Viewer.PanInterval.D(),
	}
}

// Engine owns the store and feed and serializes every mutation on one loop.
type Engine struct {
	store  *chart.Store
	loop   *loop.Loop
	feed   *feed.Feed
	logger *logrus.Entry

	panStep     float64
	panInterval time.Duration
	// pan is only touched on the loop goroutine.
	pan *loop.Task
}

// New creates a new Engine instance.
func New(opts Options, logger *logrus.Entry) *Engine {
	if opts.PanStep <= 0 {
		opts.PanStep = config.DefaultPanStep
	}
	if opts.PanInterval <= 0 {
		opts.PanInterval = config.DefaultPanInterval.D()
	}
	if opts.Feed.Logger == nil {
		opts.Feed.Logger = logger.WithField("component", "feed")
	}

	e := &Engine{
		store:       chart.NewStore(),
		loop:        loop.New(opts.Clock),
		logger:      logger,
		panStep:     opts.PanStep,
		panInterval: opts.PanInterval,
	}
	e.feed = feed.New(opts.Feed, e.loop, e.ingest)
	return e
}

// ingest runs on the loop for every decoded message.
func (e *Engine) ingest(msg interface{}) {
	names, err := e.store.Ingest(msg)
	if err != nil {
		e.logger.WithError(err).WithField("code", errors.GetCode(err)).Warn("Rejected payload")
		return
	}
	e.logger.WithField("variables", len(names)).Debug("Dataset updated")
}

// Start runs the loop and the feed and blocks until ctx is canceled.
func (e *Engine) Start(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.loop.Run(ctx)
	}()

	e.feed.Start()
	<-ctx.Done()
	e.feed.Stop()
	<-done
}

// Store returns the engine's chart store.
func (e *Engine) Store() *chart.Store { return e.store }

// Feed returns the engine's data feed.
func (e *Engine) Feed() *feed.Feed { return e.feed }

// Ingest applies a producer payload on the loop.
func (e *Engine) Ingest(ctx context.Context, raw interface{}) ([]string, error) {
	var names []string
	var ingestErr error
	if err := e.loop.Do(ctx, func() { names, ingestErr = e.store.Ingest(raw) }); err != nil {
		return nil, err
	}
	return names, ingestErr
}

// SetVariable selects a variable on the loop.
func (e *Engine) SetVariable(ctx context.Context, name string) error {
	var setErr error
	if err := e.loop.Do(ctx, func() { setErr = e.store.SetVariable(name) }); err != nil {
		return err
	}
	return setErr
}

// SetChartKind changes the chart kind on the loop.
func (e *Engine) SetChartKind(ctx context.Context, kind chart.Kind) error {
	var setErr error
	if err := e.loop.Do(ctx, func() { setErr = e.store.SetChartKind(kind) }); err != nil {
		return err
	}
	return setErr
}

// SetZoom changes the zoom factor on the loop.
func (e *Engine) SetZoom(ctx context.Context, factor float64) (chart.ViewState, error) {
	var st chart.ViewState
	err := e.loop.Do(ctx, func() { st = e.store.SetZoom(factor) })
	return st, err
}

// PanBy moves the window on the loop.
func (e *Engine) PanBy(ctx context.Context, delta float64) (chart.ViewState, error) {
	var st chart.ViewState
	err := e.loop.Do(ctx, func() { st = e.store.PanBy(delta) })
	return st, err
}

// StartPan begins press-and-hold panning: the window moves one step per
// interval until StopPan. A running pan is replaced.
func (e *Engine) StartPan(ctx context.Context, dir Direction) error {
	if _, err := ParseDirection(string(dir)); err != nil {
		return err
	}
	step := e.panStep
	if dir == Left {
		step = -step
	}

	return e.loop.Do(ctx, func() {
		if e.pan != nil {
			e.pan.Cancel()
		}
		e.pan = e.loop.Every(e.panInterval, func() { e.store.PanBy(step) })
		e.logger.WithField("direction", dir).Debug("Pan started")
	})
}

// StopPan ends press-and-hold panning. No further step is applied once it
// returns.
func (e *Engine) StopPan(ctx context.Context) error {
	return e.loop.Do(ctx, func() {
		if e.pan != nil {
			e.pan.Cancel()
			e.pan = nil
			e.logger.Debug("Pan stopped")
		}
	})
}

// Panning reports whether a press-and-hold pan is active.
func (e *Engine) Panning(ctx context.Context) (bool, error) {
	var active bool
	err := e.loop.Do(ctx, func() { active = e.pan != nil && e.pan.Active() })
	return active, err
}
