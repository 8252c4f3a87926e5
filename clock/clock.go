// Package clock drives a starter simulation with fixed-size ticks on top of
// the event engine. Each tick applies the feeding schedule, steps the
// fermentation model, and publishes the resulting snapshot to hooks.
package clock

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/levainlab/levain/sim"
	"github.com/levainlab/levain/starter"
)

// RunState is the lifecycle state of a Clock.
type RunState int

// The clock lifecycle: Idle → Running ⇄ Paused → Stopped. Stopped is
// terminal.
const (
	Idle RunState = iota
	Running
	Paused
	Stopped
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("runstate(%d)", int(s))
	}
}

// HookPosStateUpdate is invoked after every completed tick with the new
// snapshot as the Item and a TickInfo as the Detail.
var HookPosStateUpdate = &sim.HookPos{Name: "StateUpdate"}

// TickInfo describes what happened in one tick.
type TickInfo struct {
	EngineTime sim.VTimeInSec
	Fed        bool
	Rejected   bool
}

// Config carries everything a Clock needs to drive a run.
type Config struct {
	// StepSize is the engine time between two ticks, in seconds.
	StepSize sim.VTimeInSec

	// TimeScale multiplies StepSize into the dt handed to the model, so a
	// run can be accelerated or slowed without touching the model's
	// mathematics. Zero means 1.
	TimeScale float64

	// EndTime stops the clock once the engine reaches it. Zero runs until
	// Stop is called.
	EndTime sim.VTimeInSec

	Initial starter.State
	Params  starter.Params
	Policy  starter.FeedPolicy
	Seed    int64
	Ambient AmbientSchedule

	// WarnLog receives recoverable step warnings. Nil discards them.
	WarnLog *log.Logger
}

// Clock owns the starter state. Nothing else mutates it: the model and the
// feeding scheduler only return replacement values that the clock swaps in
// after a completed tick. Control transitions and snapshot reads may come
// from other goroutines, such as the monitoring server, so the lifecycle
// state and the snapshot are guarded by a lock.
type Clock struct {
	sim.HookableBase

	name      string
	engine    sim.Engine
	scheduler *sim.TickScheduler

	model   *starter.Model
	feeder  *starter.Scheduler
	ambient AmbientSchedule

	stepSize  sim.VTimeInSec
	timeScale float64
	endTime   sim.VTimeInSec
	seed      int64
	params    starter.Params
	warnLog   *log.Logger

	stateLock sync.Mutex
	state     starter.State
	runState  RunState

	divergenceCount int
}

// New creates a Clock. It returns starter.ErrInvalidConfiguration if the
// configuration cannot start a run.
func New(name string, engine sim.Engine, cfg Config) (*Clock, error) {
	if cfg.StepSize <= 0 {
		return nil, fmt.Errorf("%w: step size must be positive, got %v",
			starter.ErrInvalidConfiguration, cfg.StepSize)
	}

	if cfg.TimeScale < 0 {
		return nil, fmt.Errorf("%w: time scale must be positive, got %v",
			starter.ErrInvalidConfiguration, cfg.TimeScale)
	}

	if !cfg.Initial.Finite() {
		return nil, fmt.Errorf("%w: initial state holds non-finite values",
			starter.ErrInvalidConfiguration)
	}

	model, err := starter.NewModel(cfg.Params, starter.NewNoiseSource(cfg.Seed))
	if err != nil {
		return nil, err
	}

	feeder, err := starter.NewScheduler(cfg.Policy)
	if err != nil {
		return nil, err
	}

	timeScale := cfg.TimeScale
	if timeScale == 0 {
		timeScale = 1
	}

	ambient := cfg.Ambient
	if ambient == nil {
		ambient = ConstantAmbient(25)
	}

	c := &Clock{
		name:      name,
		engine:    engine,
		model:     model,
		feeder:    feeder,
		ambient:   ambient,
		stepSize:  cfg.StepSize,
		timeScale: timeScale,
		endTime:   cfg.EndTime,
		seed:      cfg.Seed,
		params:    cfg.Params,
		warnLog:   cfg.WarnLog,
		state:     starter.NewState(cfg.Initial),
		runState:  Idle,
	}
	c.scheduler = sim.NewTickScheduler(c, engine, cfg.StepSize)

	return c, nil
}

// Name returns the clock's name.
func (c *Clock) Name() string {
	return c.name
}

// RunState returns the lifecycle state.
func (c *Clock) RunState() RunState {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	return c.runState
}

// Snapshot returns the last fully computed starter state. The value is safe
// to keep; the clock never mutates a published snapshot.
func (c *Clock) Snapshot() starter.State {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	return c.state
}

// Seed returns the noise seed the run was created with.
func (c *Clock) Seed() int64 {
	return c.seed
}

// Policy returns the active feeding policy.
func (c *Clock) Policy() starter.FeedPolicy {
	return c.feeder.Policy()
}

// TimeScale returns the dt multiplier.
func (c *Clock) TimeScale() float64 {
	return c.timeScale
}

// DivergenceCount returns how many steps were rejected for producing
// non-finite values.
func (c *Clock) DivergenceCount() int {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	return c.divergenceCount
}

// Start moves the clock from Idle to Running, publishes the initial
// snapshot, and schedules the first tick.
func (c *Clock) Start() error {
	c.stateLock.Lock()

	if c.runState != Idle {
		state := c.runState
		c.stateLock.Unlock()
		return fmt.Errorf("cannot start a %s clock", state)
	}

	c.runState = Running
	snapshot := c.state

	c.stateLock.Unlock()

	c.publish(snapshot, TickInfo{EngineTime: c.engine.CurrentTime()})
	c.scheduler.TickLater()

	return nil
}

// Pause suspends ticking without mutating the starter state.
func (c *Clock) Pause() error {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	if c.runState != Running {
		return fmt.Errorf("cannot pause a %s clock", c.runState)
	}

	c.runState = Paused

	return nil
}

// Resume continues a paused clock.
func (c *Clock) Resume() error {
	c.stateLock.Lock()

	if c.runState != Paused {
		state := c.runState
		c.stateLock.Unlock()
		return fmt.Errorf("cannot resume a %s clock", state)
	}

	c.runState = Running

	c.stateLock.Unlock()

	c.scheduler.TickLater()

	return nil
}

// Stop terminates the clock. A stopped clock accepts no further ticks or
// transitions. Stopping twice is a no-op.
func (c *Clock) Stop() {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	c.runState = Stopped
}

// Handle processes one tick: feeding check, model step, snapshot
// publication. Ticks arriving while the clock is not Running are dropped,
// which also ends the tick chain.
func (c *Clock) Handle(e sim.Event) error {
	c.stateLock.Lock()

	if c.runState != Running {
		c.stateLock.Unlock()
		return nil
	}

	now := e.Time()
	dt := float64(c.stepSize) * c.timeScale

	next, fed := c.feeder.MaybeFeed(c.state)

	info := TickInfo{EngineTime: now, Fed: fed}

	next, err := c.model.Step(next, dt, c.ambient.TemperatureAt(next.TimeElapsed))
	if err != nil {
		if !errors.Is(err, starter.ErrNumericDivergence) {
			c.stateLock.Unlock()
			return err
		}

		// The step was rejected; next is the last good state and the run
		// continues from it.
		c.divergenceCount++
		info.Rejected = true
		if c.warnLog != nil {
			c.warnLog.Printf("%.1f, %s: %v", now, c.name, err)
		}
	}

	c.state = next

	reschedule := true
	if c.endTime > 0 && now >= c.endTime {
		c.runState = Stopped
		reschedule = false
	}

	// Hooks may call back into the clock, so they run outside the lock.
	c.stateLock.Unlock()

	c.publish(next, info)

	if reschedule {
		c.scheduler.TickLater()
	}

	return nil
}

func (c *Clock) publish(s starter.State, info TickInfo) {
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosStateUpdate,
		Item:   s,
		Detail: info,
	})
}
