// Package engine owns the village simulation and the loop that drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/hearthvale/internal/clock"
)

// PeriodsPerDay is the number of ticks in one game day.
const PeriodsPerDay = 4

// Engine drives a Simulation forward in real time, one period per tick.
// All access to the simulation from other goroutines goes through Do.
type Engine struct {
	Sim      *Simulation
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval

	// Callbacks run on the engine goroutine after each tick.
	OnPeriod func(s *Simulation, roll clock.Rollover)
	OnDay    func(s *Simulation)
	OnSeason func(s *Simulation)

	ops   chan func()
	ticks uint64

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewEngine creates an engine for sim with default settings.
func NewEngine(sim *Simulation) *Engine {
	interval := time.Second
	if d, err := sim.Options.Interval(); err == nil {
		interval = d
	}
	return &Engine{
		Sim:      sim,
		Speed:    1.0,
		Interval: interval,
		ops:      make(chan func()),
	}
}

// Run starts the loop and blocks until Stop is called.
func (e *Engine) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	_ = e.Start(ctx)
}

// Stop ends a loop started with Run.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Start runs the loop until ctx is done.
func (e *Engine) Start(ctx context.Context) error {
	slog.Info("simulation engine started", "day", e.Sim.Clock.Day, "speed", e.Speed, "interval", e.Interval)

	timer := time.NewTimer(e.delay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "ticks", e.ticks, "day", e.Sim.Clock.Day)
			return nil
		case fn := <-e.ops:
			fn()
		case <-timer.C:
			if e.Speed > 0 {
				e.Step()
			}
			timer.Reset(e.delay())
		}
	}
}

// delay is the time to the next tick, adjusted for speed. A paused engine
// checks back briefly.
func (e *Engine) delay() time.Duration {
	if e.Speed <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(float64(e.Interval) / e.Speed)
}

// Step advances the simulation by one period and fires the callbacks.
// Only call it from the engine goroutine or before Start.
func (e *Engine) Step() {
	e.ticks++
	roll := e.Sim.TickPeriod()
	if e.OnPeriod != nil {
		e.OnPeriod(e.Sim, roll)
	}
	if roll.NewDay && e.OnDay != nil {
		e.OnDay(e.Sim)
	}
	if roll.NewSeason && e.OnSeason != nil {
		e.OnSeason(e.Sim)
	}
}

// Ticks is the number of periods this engine has stepped.
func (e *Engine) Ticks() uint64 { return e.ticks }

// Do runs fn on the engine goroutine and waits for it. It fails if ctx
// ends first.
func (e *Engine) Do(ctx context.Context, fn func(s *Simulation)) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn(e.Sim)
	}
	select {
	case e.ops <- op:
	case <-ctx.Done():
		return fmt.Errorf("engine busy: %w", ctx.Err())
	}
	<-done
	return nil
}

// SimTime renders the simulation's calendar position.
func SimTime(s *Simulation) string {
	return s.Clock.Label()
}
