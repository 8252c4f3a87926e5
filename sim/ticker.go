package sim

import (
	"sync"
)

// TickEvent is a generic event that a component can use to update its
// status at a regular period.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent.
func MakeTickEvent(handler Handler, time VTimeInSec) TickEvent {
	evt := TickEvent{}
	evt.ID = GetIDGenerator().Generate()
	evt.handler = handler
	evt.time = time

	return evt
}

// TickScheduler can help schedule tick events at a fixed period.
type TickScheduler struct {
	lock    sync.Mutex
	handler Handler
	Engine  Engine
	Period  VTimeInSec

	nextTickTime VTimeInSec
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	period VTimeInSec,
) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine
	ticker.Period = period
	ticker.nextTickTime = -1 // This will make sure the first tick is scheduled

	return ticker
}

// TickNow schedules a tick event at the current time.
func (t *TickScheduler) TickNow() {
	t.lock.Lock()
	now := t.Engine.CurrentTime()

	if t.nextTickTime >= now {
		t.lock.Unlock()
		return
	}

	t.nextTickTime = now
	tick := MakeTickEvent(t.handler, t.nextTickTime)
	t.Engine.Schedule(tick)
	t.lock.Unlock()
}

// TickLater schedules a tick event one period after the current time.
func (t *TickScheduler) TickLater() {
	t.lock.Lock()
	time := t.Engine.CurrentTime() + t.Period

	if t.nextTickTime >= time {
		t.lock.Unlock()
		return
	}

	t.nextTickTime = time
	tick := MakeTickEvent(t.handler, t.nextTickTime)
	t.Engine.Schedule(tick)
	t.lock.Unlock()
}
