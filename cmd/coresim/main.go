// Package main provides the entry point for coresim.
// coresim is a cycle-level model of a small in-order core's memory
// interface: the load-store unit and the instruction prefetcher, each on its
// own request/grant/valid bus, built on Akita.
package main

func main() {
	Execute()
}
