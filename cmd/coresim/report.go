package main

import (
	"fmt"
	"io"

	"github.com/sarchlab/coresim/timing/core"
)

func printResults(w io.Writer, results []core.Result) {
	fmt.Fprintf(w, "Accesses:\n")
	for _, r := range results {
		kind := "LD"
		value := r.RData
		if r.Access.Write {
			kind = "ST"
			value = r.Access.WData
		}

		suffix := ""
		if r.Err {
			suffix = " error"
		}

		fmt.Fprintf(w, "  %s %-8s 0x%08x = 0x%08x  grant %d valid %d%s\n",
			kind, r.Access.Type, r.Access.Addr, value, r.Granted, r.Done, suffix)
	}
	fmt.Fprintf(w, "\n")
}

func printStats(w io.Writer, name string, c *core.Core) {
	stats := c.Stats()

	cycles := stats.Cycles
	if cycles == 0 {
		cycles = 1
	}

	fmt.Fprintf(w, "Workload: %s\n", name)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Data bus:\n")
	fmt.Fprintf(w, "  Loads:          %d\n", stats.Loads)
	fmt.Fprintf(w, "  Stores:         %d\n", stats.Stores)
	fmt.Fprintf(w, "  Transactions:   %d\n", stats.DataTransactions)
	fmt.Fprintf(w, "  Split accesses: %d\n", stats.SplitAccesses)
	fmt.Fprintf(w, "  Errors:         %d\n", stats.DataErrors)
	fmt.Fprintf(w, "  Utilization:    %5.1f%%\n",
		100.0*float64(stats.DataTransactions)/float64(cycles))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Instruction bus:\n")
	fmt.Fprintf(w, "  Transactions:   %d\n", stats.FetchTransactions)
	fmt.Fprintf(w, "  Fetched:        %d\n", stats.Fetched)
	fmt.Fprintf(w, "  Delivered:      %d\n", stats.Delivered)
	fmt.Fprintf(w, "  Discarded:      %d\n", stats.Discarded)
	fmt.Fprintf(w, "  Redirects:      %d\n", stats.Redirects)
	fmt.Fprintf(w, "  Errors:         %d\n", stats.FetchErrors)

	if cc := c.DataSlave().Cache(); cc != nil {
		cs := cc.Stats()
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "Data cache: %d hits, %d misses, %d evictions\n",
			cs.Hits, cs.Misses, cs.Evictions)
	}
}
