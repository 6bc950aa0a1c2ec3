// Command cachesim replays a memory-access trace against a cache hierarchy
// and prints the hit, miss and traffic statistics of every cache.
package main

import "github.com/sarchlab/cachesim/cmd/cachesim/cmd"

func main() {
	cmd.Execute()
}
