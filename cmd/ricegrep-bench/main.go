// Command ricegrep-bench runs the benchmark harness against an existing
// ricegrep index: suite mode replays a ground-truth query set and scores
// precision/recall, load mode hammers the engine with concurrent synthetic
// queries to measure latency under load.
package main

import (
	"os"

	"github.com/moabualruz/ricegrep/cmd/ricegrep-bench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
