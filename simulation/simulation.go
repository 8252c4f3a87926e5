package simulation

import (
	"fmt"
	"io"
	"strings"

	"github.com/levainlab/levain/clock"
	"github.com/levainlab/levain/datarecording"
	"github.com/levainlab/levain/monitoring"
	"github.com/levainlab/levain/sim"
	"github.com/levainlab/levain/stateful"
)

// A Simulation owns the engine, the recorder, and the monitor, and keeps
// track of every clock that runs on them.
type Simulation struct {
	id string

	engine   sim.Engine
	recorder *datarecording.SQLiteWriter
	monitor  *monitoring.Monitor

	clocks         []*clock.Clock
	clockNameIndex map[string]int

	holderList []stateful.Holder
	holders    map[string]int

	codec stateful.JSONCodec
}

// ID returns the unique identifier of this simulation run.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the event engine driving the simulation.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// DataRecorder returns the data recorder used in the simulation.
func (s *Simulation) DataRecorder() *datarecording.SQLiteWriter {
	return s.recorder
}

// Monitor returns the monitor used in the simulation, or nil when
// monitoring is disabled.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// RegisterClock registers a clock with the simulation. The clock's
// snapshots are recorded into a table named after the clock, the clock
// becomes visible to the monitor, and its state joins the save file.
func (s *Simulation) RegisterClock(c *clock.Clock) {
	name := c.Name()
	if _, exists := s.clockNameIndex[name]; exists {
		panic("clock " + name + " already registered")
	}

	s.clocks = append(s.clocks, c)
	s.clockNameIndex[name] = len(s.clocks) - 1

	c.AcceptHook(datarecording.NewSnapshotLogger(s.recorder, tableName(name)))

	if s.monitor != nil {
		s.monitor.RegisterClock(c)
	}

	s.registerHolder(c)
}

func tableName(clockName string) string {
	return strings.ReplaceAll(clockName, ".", "_") + "_snapshots"
}

func (s *Simulation) registerHolder(h stateful.Holder) {
	name := h.Name()
	if _, exists := s.holders[name]; exists {
		panic("state holder " + name + " already registered")
	}

	s.holderList = append(s.holderList, h)
	s.holders[name] = len(s.holderList) - 1
}

// ClockByName returns the clock with the given name.
func (s *Simulation) ClockByName(name string) *clock.Clock {
	index, exists := s.clockNameIndex[name]
	if !exists {
		return nil
	}

	return s.clocks[index]
}

// Clocks returns all registered clocks.
func (s *Simulation) Clocks() []*clock.Clock {
	return s.clocks
}

// Save writes the checkpoint of every registered state holder to w.
func (s *Simulation) Save(w io.Writer) error {
	data := make(map[string]any, len(s.holderList))

	for _, h := range s.holderList {
		checkpoint, err := h.Checkpoint()
		if err != nil {
			return fmt.Errorf("checkpointing %s: %w", h.Name(), err)
		}

		data[h.Name()] = checkpoint
	}

	return s.codec.Encode(w, data)
}

// Load restores every registered state holder from a save file written by
// Save. Every holder must find its section in the file.
func (s *Simulation) Load(r io.Reader) error {
	data, err := s.codec.Decode(r)
	if err != nil {
		return err
	}

	for _, h := range s.holderList {
		section, ok := data[h.Name()].(map[string]any)
		if !ok {
			return fmt.Errorf("save file has no section for %s", h.Name())
		}

		if err := h.Restore(section); err != nil {
			return fmt.Errorf("restoring %s: %w", h.Name(), err)
		}
	}

	return nil
}

// Terminate runs the engine's end-of-simulation handlers, then flushes and
// closes the recorder.
func (s *Simulation) Terminate() {
	s.engine.Finished()
	s.recorder.Flush()
	s.recorder.DB.Close()
}
