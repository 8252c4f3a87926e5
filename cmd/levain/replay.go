package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/levainlab/levain/datarecording"
)

var replayFlags struct {
	table  string
	limit  int
	offset int
}

var replayCmd = &cobra.Command{
	Use:   "replay [database file]",
	Short: "Print the snapshots recorded in a run database as CSV.",
	Args:  cobra.ExactArgs(1),
	RunE:  replayRun,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	f := replayCmd.Flags()
	f.StringVar(&replayFlags.table, "table", "Starter_snapshots",
		"snapshot table to read")
	f.IntVar(&replayFlags.limit, "limit", 0,
		"maximum number of snapshots to print; 0 prints all")
	f.IntVar(&replayFlags.offset, "offset", 0,
		"number of snapshots to skip")
}

func replayRun(_ *cobra.Command, args []string) error {
	reader := datarecording.NewReader(args[0])
	defer reader.Close()

	reader.MapTable(replayFlags.table, datarecording.SnapshotEntry{})

	results, total, err := reader.Query(
		context.Background(),
		replayFlags.table,
		datarecording.QueryParams{
			OrderBy: "Step",
			Limit:   replayFlags.limit,
			Offset:  replayFlags.offset,
		})
	if err != nil {
		return err
	}

	if err := writeSnapshotCSV(os.Stdout, results); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%d snapshots in %s.\n", total, args[0])

	return nil
}

func writeSnapshotCSV(out io.Writer, results []any) error {
	w := csv.NewWriter(out)

	err := w.Write([]string{
		"step", "engine_time", "fed", "rejected",
		"time_elapsed", "time_since_last_feeding",
		"hydration", "temperature", "flour_mass",
		"yeast", "bacteria", "nutrient", "gas", "gluten",
		"salt_ratio", "ethanol",
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		e := r.(*datarecording.SnapshotEntry)

		err = w.Write([]string{
			strconv.Itoa(e.Step),
			formatFloat(e.EngineTime),
			strconv.FormatBool(e.Fed),
			strconv.FormatBool(e.Rejected),
			formatFloat(e.TimeElapsed),
			formatFloat(e.TimeSinceLastFeeding),
			formatFloat(e.Hydration),
			formatFloat(e.Temperature),
			formatFloat(e.FlourMass),
			formatFloat(e.YeastPopulation),
			formatFloat(e.BacteriaPopulation),
			formatFloat(e.NutrientLevel),
			formatFloat(e.GasVolume),
			formatFloat(e.GlutenStrength),
			formatFloat(e.SaltRatio),
			formatFloat(e.EthanolLevel),
		})
		if err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
