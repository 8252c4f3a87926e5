// Levain is a command-line sourdough starter simulator.
package main

import (
	"github.com/joho/godotenv"
	"github.com/tebeka/atexit"
)

func main() {
	// A .env file can preset LEVAIN_* defaults. Missing files are fine.
	_ = godotenv.Load()

	Execute()

	// Exit through atexit so that recorder buffers get flushed.
	atexit.Exit(0)
}
