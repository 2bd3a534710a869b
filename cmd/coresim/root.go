package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/coresim/emu"
	"github.com/sarchlab/coresim/timing/config"
	"github.com/sarchlab/coresim/timing/core"
	"github.com/sarchlab/coresim/trace"
)

var (
	configPath string
	verbose    bool
	cpuProfile string
	traceCSV   string
	traceDB    string
)

var rootCmd = &cobra.Command{
	Use:   "coresim",
	Short: "Cycle-level simulator of a core's load-store unit and prefetcher.",
	Long: `coresim drives the load-store unit and the instruction prefetcher ` +
		`of a small in-order core against configurable memory buses and ` +
		`reports timing and bus statistics.`,
	SilenceUsage:       true,
	PersistentPreRunE:  startProfile,
	PersistentPostRunE: stopProfile,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a configuration JSON file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to file")
	flags.StringVar(&traceCSV, "trace-csv", "", "record bus transactions to a CSV file")
	flags.StringVar(&traceDB, "trace-db", "", "record bus transactions to a SQLite database")
}

// Execute runs the root command and exits through atexit so that trace
// writers are flushed.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

var profileFile *os.File

func startProfile(cmd *cobra.Command, _ []string) error {
	if cpuProfile == "" {
		return nil
	}

	f, err := os.Create(cpuProfile)
	if err != nil {
		return fmt.Errorf("error creating CPU profile: %w", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("error starting CPU profile: %w", err)
	}

	profileFile = f
	atexit.Register(func() { _ = stopProfile(cmd, nil) })

	return nil
}

func stopProfile(_ *cobra.Command, _ []string) error {
	if profileFile == nil {
		return nil
	}

	pprof.StopCPUProfile()
	err := profileFile.Close()
	profileFile = nil

	return err
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return cfg, nil
}

// simulation is a core together with the tracers attached to it.
type simulation struct {
	core    *core.Core
	tracers []*trace.BusTracer
	closers []func() error
}

func newSimulation(memory *emu.Memory) (*simulation, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	c, err := core.NewCore("Core", sim.NewSerialEngine(), cfg, memory)
	if err != nil {
		return nil, err
	}

	s := &simulation{core: c}

	if traceCSV != "" {
		w := trace.NewCSVWriter(traceCSV)
		if err := s.attach(w, w.Close); err != nil {
			return nil, err
		}
	}

	if traceDB != "" {
		w := trace.NewSQLiteWriter(traceDB)
		if err := s.attach(w, w.Close); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *simulation) attach(w trace.Writer, closer func() error) error {
	if err := w.Init(); err != nil {
		return err
	}

	t := trace.NewBusTracer(w)
	s.core.AcceptHook(t)
	s.tracers = append(s.tracers, t)
	s.closers = append(s.closers, closer)

	return nil
}

// run runs the core to completion and closes the trace writers.
func (s *simulation) run() error {
	runErr := s.core.Run()

	for _, t := range s.tracers {
		if err := t.Flush(); err != nil && runErr == nil {
			runErr = fmt.Errorf("trace: %w", err)
		}
	}

	for _, closer := range s.closers {
		if err := closer(); err != nil && runErr == nil {
			runErr = fmt.Errorf("trace: %w", err)
		}
	}

	return runErr
}
