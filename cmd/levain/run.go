package main

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/levainlab/levain/clock"
	"github.com/levainlab/levain/monitoring"
	"github.com/levainlab/levain/sim"
	"github.com/levainlab/levain/simulation"
	"github.com/levainlab/levain/starter"
)

var runFlags struct {
	seed      int64
	step      float64
	hours     float64
	timeScale float64

	hydration float64
	flour     float64
	salt      float64
	yeast     float64
	bacteria  float64
	nutrient  float64

	temperature float64
	dailySwing  float64

	feedEvery    float64
	feedFlour    float64
	feedWater    float64
	feedNutrient float64

	output      string
	saveFile    string
	loadFile    string
	noMonitor   bool
	monitorPort int
	openBrowser bool
	logEvents   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a starter fermentation from scratch or from a save file.",
	RunE:  runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.Int64Var(&runFlags.seed, "seed", 0,
		"noise seed; identical seeds replay identical runs")
	f.Float64Var(&runFlags.step, "step", 60,
		"seconds of starter time per simulation step")
	f.Float64Var(&runFlags.hours, "hours", 24,
		"how many hours of engine time to simulate")
	f.Float64Var(&runFlags.timeScale, "time-scale", 1,
		"starter seconds per engine second")

	f.Float64Var(&runFlags.hydration, "hydration", 1.0,
		"initial water to flour ratio")
	f.Float64Var(&runFlags.flour, "flour", 1.0, "initial flour mass")
	f.Float64Var(&runFlags.salt, "salt", 0, "salt to flour ratio")
	f.Float64Var(&runFlags.yeast, "yeast", 0.5, "initial yeast population")
	f.Float64Var(&runFlags.bacteria, "bacteria", 0.5,
		"initial bacteria population")
	f.Float64Var(&runFlags.nutrient, "nutrient", 10, "initial nutrient level")

	f.Float64Var(&runFlags.temperature, "temperature", 25,
		"mean ambient temperature in Celsius")
	f.Float64Var(&runFlags.dailySwing, "daily-swing", 0,
		"amplitude of the daily ambient temperature cycle")

	f.Float64Var(&runFlags.feedEvery, "feed-every", 12,
		"hours between feedings; 0 disables feeding")
	f.Float64Var(&runFlags.feedFlour, "feed-flour", 1.0,
		"flour mass added per feeding")
	f.Float64Var(&runFlags.feedWater, "feed-water", 1.0,
		"water mass added per feeding")
	f.Float64Var(&runFlags.feedNutrient, "feed-nutrient", 10,
		"nutrient added per feeding")

	f.StringVar(&runFlags.output, "output", "",
		"database file name, without the .sqlite3 suffix")
	f.StringVar(&runFlags.saveFile, "save", "",
		"write a checkpoint to this file when the run finishes")
	f.StringVar(&runFlags.loadFile, "load", "",
		"restore the starter from a checkpoint before running")
	f.BoolVar(&runFlags.noMonitor, "no-monitor", false,
		"disable the monitoring server")
	f.IntVar(&runFlags.monitorPort, "monitor-port", 0,
		"port for the monitoring server; 0 picks a random port")
	f.BoolVar(&runFlags.openBrowser, "open-browser", false,
		"open the monitor in the default browser")
	f.BoolVar(&runFlags.logEvents, "log-events", false,
		"print every processed event to stderr")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	applyEnvDefaults(cmd)

	s := buildSimulation()
	defer s.Terminate()

	if runFlags.logEvents {
		s.Engine().AcceptHook(sim.NewEventLogger(
			log.New(os.Stderr, "", 0)))
	}

	c, err := clock.New("Starter", s.Engine(), clockConfig())
	if err != nil {
		return err
	}

	s.RegisterClock(c)

	if runFlags.loadFile != "" {
		if err := loadCheckpoint(s); err != nil {
			return err
		}
	}

	trackProgress(s, c)

	if err := c.Start(); err != nil {
		return err
	}

	if err := s.Engine().Run(); err != nil {
		return err
	}

	final := c.Snapshot()
	fmt.Printf("Simulated %.1f hours of starter time.\n",
		final.TimeElapsed/3600)
	fmt.Printf("Yeast %.3f, bacteria %.3f, gas %.2f, gluten %.2f.\n",
		final.YeastPopulation, final.BacteriaPopulation,
		final.GasVolume, final.GlutenStrength)

	if n := c.DivergenceCount(); n > 0 {
		fmt.Printf("Rejected %d diverged steps.\n", n)
	}

	if runFlags.saveFile != "" {
		if err := saveCheckpoint(s); err != nil {
			return err
		}
	}

	return nil
}

func applyEnvDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("seed") {
		runFlags.seed = envInt64("LEVAIN_SEED", runFlags.seed)
	}

	if !cmd.Flags().Changed("output") {
		runFlags.output = envString("LEVAIN_OUTPUT", runFlags.output)
	}

	if !cmd.Flags().Changed("monitor-port") {
		runFlags.monitorPort = int(envInt64(
			"LEVAIN_MONITOR_PORT", int64(runFlags.monitorPort)))
	}
}

func buildSimulation() *simulation.Simulation {
	b := simulation.MakeBuilder()

	if runFlags.noMonitor {
		b = b.WithoutMonitoring()
	} else {
		if runFlags.monitorPort > 0 {
			b = b.WithMonitorPort(runFlags.monitorPort)
		}
		if runFlags.openBrowser {
			b = b.WithBrowserLaunch()
		}
	}

	if runFlags.output != "" {
		b = b.WithOutputFileName(runFlags.output)
	}

	return b.Build()
}

func clockConfig() clock.Config {
	interval := runFlags.feedEvery * 3600
	if interval <= 0 {
		interval = math.Inf(1)
	}

	var ambient clock.AmbientSchedule = clock.ConstantAmbient(
		runFlags.temperature)
	if runFlags.dailySwing > 0 {
		ambient = clock.DailyCycleAmbient{
			Mean:  runFlags.temperature,
			Swing: runFlags.dailySwing,
		}
	}

	return clock.Config{
		StepSize:  sim.VTimeInSec(runFlags.step),
		TimeScale: runFlags.timeScale,
		EndTime:   sim.VTimeInSec(runFlags.hours * 3600),
		Initial: starter.State{
			Hydration:          runFlags.hydration,
			FlourMass:          runFlags.flour,
			SaltRatio:          runFlags.salt,
			YeastPopulation:    runFlags.yeast,
			BacteriaPopulation: runFlags.bacteria,
			NutrientLevel:      runFlags.nutrient,
			GlutenStrength:     0.2,
			Temperature:        runFlags.temperature,
		},
		Params: starter.DefaultParams(),
		Policy: starter.FeedPolicy{
			Interval:       interval,
			FlourMass:      runFlags.feedFlour,
			WaterMass:      runFlags.feedWater,
			NutrientAmount: runFlags.feedNutrient,
		},
		Seed:    runFlags.seed,
		Ambient: ambient,
		WarnLog: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func trackProgress(s *simulation.Simulation, c *clock.Clock) {
	if s.Monitor() == nil {
		return
	}

	totalTicks := uint64(runFlags.hours * 3600 / runFlags.step)
	bar := s.Monitor().CreateProgressBar("ticks", totalTicks)

	c.AcceptHook(progressHook{bar})
}

type progressHook struct {
	bar *monitoring.ProgressBar
}

func (h progressHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != clock.HookPosStateUpdate {
		return
	}

	h.bar.IncrementFinished(1)
}

func saveCheckpoint(s *simulation.Simulation) error {
	file, err := os.Create(runFlags.saveFile)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := s.Save(file); err != nil {
		return err
	}

	fmt.Printf("Checkpoint written to %s.\n", runFlags.saveFile)

	return nil
}

func loadCheckpoint(s *simulation.Simulation) error {
	file, err := os.Open(runFlags.loadFile)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := s.Load(file); err != nil {
		return err
	}

	fmt.Printf("Restored starter state from %s.\n", runFlags.loadFile)

	return nil
}
