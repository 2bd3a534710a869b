// Package main provides the entry point for coresim.
// coresim is a cycle-level simulator of a core's load-store unit and
// instruction prefetcher built on Akita.
//
// For the full CLI, use: go run ./cmd/coresim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("coresim - core memory interface simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: coresim [command] [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run <workload.json>   Run a workload of loads, stores and fetches")
	fmt.Println("  fetch <program.elf>   Stream an ELF image through the prefetcher")
	fmt.Println("  config                Print the effective configuration")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/coresim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/coresim' instead.")
	}
}
