package clock

import (
	"encoding/json"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/levainlab/levain/sim"
	"github.com/levainlab/levain/starter"
)

// snapshotCollector records every published snapshot.
type snapshotCollector struct {
	snapshots []starter.State
	infos     []TickInfo
}

func (c *snapshotCollector) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosStateUpdate {
		return
	}

	c.snapshots = append(c.snapshots, ctx.Item.(starter.State))
	c.infos = append(c.infos, ctx.Detail.(TickInfo))
}

// pauseAfter pauses the clock once a number of snapshots were published.
type pauseAfter struct {
	clock *Clock
	count int
	seen  int
}

func (p *pauseAfter) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosStateUpdate {
		return
	}

	p.seen++
	if p.seen == p.count {
		_ = p.clock.Pause()
	}
}

func testConfig() Config {
	return Config{
		StepSize: 60,
		EndTime:  3600,
		Initial: starter.State{
			Hydration:          1.0,
			FlourMass:          1.0,
			YeastPopulation:    0.5,
			BacteriaPopulation: 0.5,
			NutrientLevel:      10,
			GlutenStrength:     0.2,
		},
		Params: starter.DefaultParams(),
		Policy: starter.FeedPolicy{
			Interval:       1800,
			FlourMass:      1,
			WaterMass:      1,
			NutrientAmount: 5,
		},
		Seed:    42,
		Ambient: ConstantAmbient(26),
	}
}

var _ = Describe("Clock", func() {
	var (
		engine    *sim.SerialEngine
		collector *snapshotCollector
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		collector = &snapshotCollector{}
	})

	newClock := func(cfg Config) *Clock {
		c, err := New("Clock", engine, cfg)
		Expect(err).ToNot(HaveOccurred())
		c.AcceptHook(collector)
		return c
	}

	It("should reject a non-positive step size", func() {
		cfg := testConfig()
		cfg.StepSize = 0

		_, err := New("Clock", engine, cfg)
		Expect(err).To(MatchError(starter.ErrInvalidConfiguration))
	})

	It("should reject a non-finite initial state", func() {
		cfg := testConfig()
		cfg.Initial.YeastPopulation = math.NaN()

		_, err := New("Clock", engine, cfg)
		Expect(err).To(MatchError(starter.ErrInvalidConfiguration))
	})

	It("should reject an invalid feeding policy", func() {
		cfg := testConfig()
		cfg.Policy.Interval = -1

		_, err := New("Clock", engine, cfg)
		Expect(err).To(MatchError(starter.ErrInvalidConfiguration))
	})

	It("should start idle", func() {
		c := newClock(testConfig())
		Expect(c.RunState()).To(Equal(Idle))
	})

	It("should tick from start to the end time", func() {
		c := newClock(testConfig())

		Expect(c.Start()).To(Succeed())
		Expect(c.RunState()).To(Equal(Running))

		Expect(engine.Run()).To(Succeed())

		// One initial snapshot plus 3600/60 ticks.
		Expect(collector.snapshots).To(HaveLen(61))
		Expect(c.RunState()).To(Equal(Stopped))

		final := c.Snapshot()
		Expect(final.TimeElapsed).To(BeNumerically("~", 3600, 1e-9))
	})

	It("should scale dt without touching the step size", func() {
		cfg := testConfig()
		cfg.TimeScale = 4

		c := newClock(cfg)
		Expect(c.Start()).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		// Engine time ran to 3600, starter time four times as far.
		Expect(engine.CurrentTime()).To(Equal(sim.VTimeInSec(3600)))
		Expect(c.Snapshot().TimeElapsed).To(
			BeNumerically("~", 4*3600, 1e-6))
	})

	It("should apply feedings on schedule", func() {
		c := newClock(testConfig())
		Expect(c.Start()).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		fedTicks := 0
		for _, info := range collector.infos {
			if info.Fed {
				fedTicks++
			}
		}

		// Fed on the first tick where TimeSinceLastFeeding reached
		// 1800s; the second feeding falls beyond the end time.
		Expect(fedTicks).To(Equal(1))
	})

	It("should pause without mutating state and resume cleanly", func() {
		c := newClock(testConfig())
		c.AcceptHook(&pauseAfter{clock: c, count: 11})

		Expect(c.Start()).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(c.RunState()).To(Equal(Paused))
		pausedAt := c.Snapshot()
		Expect(pausedAt.TimeElapsed).To(BeNumerically("~", 600, 1e-9))

		Expect(c.Resume()).To(Succeed())
		Expect(c.Snapshot()).To(Equal(pausedAt))

		Expect(engine.Run()).To(Succeed())
		Expect(c.RunState()).To(Equal(Stopped))

		// The tick that arrived while paused was dropped and carried no
		// starter time.
		Expect(c.Snapshot().TimeElapsed).To(
			BeNumerically("~", 3540, 1e-9))
	})

	It("should treat Stopped as terminal", func() {
		c := newClock(testConfig())

		c.Stop()

		Expect(c.RunState()).To(Equal(Stopped))
		Expect(c.Start()).ToNot(Succeed())
		Expect(c.Pause()).ToNot(Succeed())
		Expect(c.Resume()).ToNot(Succeed())
	})

	It("should not pause an idle clock", func() {
		c := newClock(testConfig())
		Expect(c.Pause()).ToNot(Succeed())
	})

	It("should replay identical trajectories for identical seeds", func() {
		c1 := newClock(testConfig())
		Expect(c1.Start()).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		otherEngine := sim.NewSerialEngine()
		otherCollector := &snapshotCollector{}
		c2, err := New("Clock", otherEngine, testConfig())
		Expect(err).ToNot(HaveOccurred())
		c2.AcceptHook(otherCollector)
		Expect(c2.Start()).To(Succeed())
		Expect(otherEngine.Run()).To(Succeed())

		Expect(collector.snapshots).To(Equal(otherCollector.snapshots))
	})

	It("should keep the last good state when a step diverges", func() {
		cfg := testConfig()
		cfg.Ambient = nanAmbient{}
		cfg.Policy.Interval = math.Inf(1)

		c := newClock(cfg)
		Expect(c.Start()).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(c.DivergenceCount()).To(Equal(60))
		Expect(c.Snapshot().TimeElapsed).To(BeZero())

		rejected := 0
		for _, info := range collector.infos {
			if info.Rejected {
				rejected++
			}
		}
		Expect(rejected).To(Equal(60))
	})

	It("should take control transitions from another goroutine", func() {
		cfg := testConfig()
		cfg.EndTime = 0

		c := newClock(cfg)
		Expect(c.Start()).To(Succeed())

		done := make(chan error)
		go func() {
			done <- engine.Run()
		}()

		// Drive the clock the way the monitoring server does, from a
		// goroutine that is not the engine's.
		for i := 0; i < 100; i++ {
			if c.Pause() == nil {
				Expect(c.Snapshot().Finite()).To(BeTrue())
				Expect(c.Resume()).To(Succeed())
			}
		}
		c.Stop()

		Expect(<-done).To(Succeed())
		Expect(c.RunState()).To(Equal(Stopped))
	})

	It("should round-trip its checkpoint", func() {
		c := newClock(testConfig())
		Expect(c.Start()).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		data, err := c.Checkpoint()
		Expect(err).ToNot(HaveOccurred())

		restored, err := New("Clock", sim.NewSerialEngine(), testConfig())
		Expect(err).ToNot(HaveOccurred())
		Expect(restored.Restore(data)).To(Succeed())

		Expect(restored.Snapshot()).To(Equal(c.Snapshot()))
		Expect(restored.Seed()).To(Equal(c.Seed()))
		Expect(restored.Policy()).To(Equal(c.Policy()))
		Expect(restored.TimeScale()).To(Equal(c.TimeScale()))
	})

	It("should keep a large seed exact through JSON encoding", func() {
		cfg := testConfig()
		cfg.Seed = (1 << 62) + 3

		c := newClock(cfg)

		data, err := c.Checkpoint()
		Expect(err).ToNot(HaveOccurred())

		encoded, err := json.Marshal(data)
		Expect(err).ToNot(HaveOccurred())

		decoded := map[string]any{}
		Expect(json.Unmarshal(encoded, &decoded)).To(Succeed())

		restored, err := New("Clock", sim.NewSerialEngine(), testConfig())
		Expect(err).ToNot(HaveOccurred())
		Expect(restored.Restore(decoded)).To(Succeed())

		Expect(restored.Seed()).To(Equal(cfg.Seed))
	})
})

type nanAmbient struct{}

func (nanAmbient) TemperatureAt(_ float64) float64 {
	return math.NaN()
}
