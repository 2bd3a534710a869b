package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/coresim/emu"
	"github.com/sarchlab/coresim/loader"
	"github.com/sarchlab/coresim/timing/core"
)

var runImage string

var runCmd = &cobra.Command{
	Use:   "run <workload.json>",
	Short: "Run a JSON workload of loads, stores and fetches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := core.LoadWorkload(args[0])
		if err != nil {
			return err
		}

		memory := emu.NewMemory()
		if runImage != "" {
			prog, err := loader.Load(runImage)
			if err != nil {
				return fmt.Errorf("error loading image: %w", err)
			}
			prog.LoadInto(memory)
		}

		s, err := newSimulation(memory)
		if err != nil {
			return err
		}

		s.core.SetWorkload(*w)
		runErr := s.run()

		out := cmd.OutOrStdout()
		if verbose {
			printResults(out, s.core.Results())
		}
		printStats(out, args[0], s.core)

		return runErr
	},
}

func init() {
	runCmd.Flags().StringVar(&runImage, "image", "", "preload memory from an ELF image")
	rootCmd.AddCommand(runCmd)
}
