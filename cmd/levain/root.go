package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "levain",
	Short: "Levain simulates the fermentation of a sourdough starter.",
	Long: `Levain simulates the fermentation of a sourdough starter. It ` +
		`models yeast and bacteria populations, nutrient consumption, gas ` +
		`production, and gluten development, and records every simulated ` +
		`snapshot into a SQLite database.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

// envInt64 reads an int64 from the environment, falling back to def when the
// variable is unset or malformed.
func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}

	return n
}

// envString reads a string from the environment with a default.
func envString(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	return v
}
