package core

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/sarchlab/coresim/timing/lsu"
)

// Redirect schedules a control-flow change for the prefetcher.
type Redirect struct {
	Cycle uint64 `json:"cycle"`
	Addr  uint32 `json:"addr"`
}

// FetchPlan describes how the instruction side of the core is driven.
type FetchPlan struct {
	// Enable lets the prefetcher start fetches.
	Enable bool `json:"enable"`

	// Boot is the address of the first fetch.
	Boot uint32 `json:"boot"`

	// Redirects are applied at the start of their cycle. When two share a
	// cycle the later one in the list wins.
	Redirects []Redirect `json:"redirects,omitempty"`

	// PopEvery makes the consumer take one word from the queue every
	// PopEvery cycles. 0 never pops.
	PopEvery uint64 `json:"pop_every"`

	// Limit ends the instruction side after this many delivered words.
	// 0 runs until the cycle limit.
	Limit int `json:"limit,omitempty"`
}

// Workload is what a Core executes: a program of loads and stores for the
// load-store unit and a fetch plan for the prefetcher.
type Workload struct {
	Ops   []lsu.Access `json:"ops,omitempty"`
	Fetch FetchPlan    `json:"fetch"`
}

// LoadWorkload reads a Workload from a JSON file.
func LoadWorkload(path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workload file: %w", err)
	}

	w := &Workload{}
	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("failed to parse workload: %w", err)
	}

	return w, nil
}

// normalized returns a copy with redirects in cycle order.
func (w Workload) normalized() Workload {
	w.Ops = slices.Clone(w.Ops)
	w.Fetch.Redirects = slices.Clone(w.Fetch.Redirects)
	slices.SortStableFunc(w.Fetch.Redirects, func(a, b Redirect) int {
		switch {
		case a.Cycle < b.Cycle:
			return -1
		case a.Cycle > b.Cycle:
			return 1
		}
		return 0
	})

	return w
}

// Result is the outcome of one load or store.
type Result struct {
	Access lsu.Access

	// RData is the realigned load value. Zero for stores.
	RData uint32

	// Err is set if any transaction of the access was answered with an
	// error.
	Err bool

	// Granted is the cycle of the final grant; Done the cycle of the valid.
	Granted uint64
	Done    uint64
}
