// Package main provides the entry point for SMARC.
// SMARC is a tile-based SoC simulator with a cycle-accurate RV32IM core.
//
// For the full CLI, use: go run ./cmd/smarc
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("SMARC - RV32IM Tile SoC Simulator")
	fmt.Println("")
	fmt.Println("Usage: smarc [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -prog       Path to flat binary (.bin) to load")
	fmt.Println("  -steps      Cycles to auto-run; <=0 enters the debugger")
	fmt.Println("  -latency    Memory latency in cycles for the timed port")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/smarc' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/smarc' instead.")
	}
}
