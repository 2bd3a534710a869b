package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/coresim/emu"
	"github.com/sarchlab/coresim/loader"
	"github.com/sarchlab/coresim/timing/core"
)

var (
	fetchWords    int
	fetchPopEvery uint64
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <program.elf>",
	Short: "Stream an ELF image through the prefetcher from its entry point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prog, err := loader.Load(args[0])
		if err != nil {
			return fmt.Errorf("error loading program: %w", err)
		}

		out := cmd.OutOrStdout()
		if verbose {
			fmt.Fprintf(out, "Loaded: %s\n", args[0])
			fmt.Fprintf(out, "Entry point: 0x%08X\n", prog.EntryPoint)
			fmt.Fprintf(out, "Segments: %d\n", len(prog.Segments))
		}

		memory := emu.NewMemory()
		prog.LoadInto(memory)

		s, err := newSimulation(memory)
		if err != nil {
			return err
		}

		s.core.SetWorkload(core.Workload{Fetch: core.FetchPlan{
			Enable:   true,
			Boot:     prog.EntryPoint,
			PopEvery: fetchPopEvery,
			Limit:    fetchWords,
		}})
		runErr := s.run()

		for _, e := range s.core.Delivered() {
			fmt.Fprintf(out, "0x%08x: 0x%08x\n", e.Addr, e.Data)
		}
		printStats(out, args[0], s.core)

		return runErr
	},
}

func init() {
	fetchCmd.Flags().IntVarP(&fetchWords, "words", "n", 16, "number of words to deliver")
	fetchCmd.Flags().Uint64Var(&fetchPopEvery, "pop-every", 1,
		"cycles between two words taken by the consumer")
	rootCmd.AddCommand(fetchCmd)
}
