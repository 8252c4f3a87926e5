package datarecording

import (
	"github.com/levainlab/levain/clock"
	"github.com/levainlab/levain/sim"
	"github.com/levainlab/levain/starter"
)

// SnapshotEntry is one recorded starter snapshot, flattened into scalar
// columns.
type SnapshotEntry struct {
	Step       int
	EngineTime float64
	Fed        bool
	Rejected   bool

	TimeElapsed          float64
	TimeSinceLastFeeding float64
	Hydration            float64
	Temperature          float64
	FlourMass            float64
	YeastPopulation      float64
	BacteriaPopulation   float64
	NutrientLevel        float64
	GasVolume            float64
	GlutenStrength       float64
	SaltRatio            float64
	EthanolLevel         float64
}

// SnapshotLogger is a hook that records every published starter snapshot
// into a DataRecorder table.
type SnapshotLogger struct {
	recorder DataRecorder
	table    string
	step     int
}

// NewSnapshotLogger creates a SnapshotLogger and its backing table.
func NewSnapshotLogger(recorder DataRecorder, table string) *SnapshotLogger {
	recorder.CreateTable(table, SnapshotEntry{})

	return &SnapshotLogger{
		recorder: recorder,
		table:    table,
	}
}

// Func records the snapshot carried by a state-update hook invocation.
func (l *SnapshotLogger) Func(ctx sim.HookCtx) {
	if ctx.Pos != clock.HookPosStateUpdate {
		return
	}

	s := ctx.Item.(starter.State)
	info := ctx.Detail.(clock.TickInfo)

	entry := SnapshotEntry{
		Step:       l.step,
		EngineTime: float64(info.EngineTime),
		Fed:        info.Fed,
		Rejected:   info.Rejected,

		TimeElapsed:          s.TimeElapsed,
		TimeSinceLastFeeding: s.TimeSinceLastFeeding,
		Hydration:            s.Hydration,
		Temperature:          s.Temperature,
		FlourMass:            s.FlourMass,
		YeastPopulation:      s.YeastPopulation,
		BacteriaPopulation:   s.BacteriaPopulation,
		NutrientLevel:        s.NutrientLevel,
		GasVolume:            s.GasVolume,
		GlutenStrength:       s.GlutenStrength,
		SaltRatio:            s.SaltRatio,
		EthanolLevel:         s.EthanolLevel,
	}

	l.recorder.InsertData(l.table, entry)
	l.step++
}
