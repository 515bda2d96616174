package main

import (
	"math/rand/v2"
	"os"
	"time"

	"tollsim/internal/sim"
)

// newWriters sets up the snapshot writer stack based on flags and env vars.
// It returns the writer and a cleanup function to close any resources.
func newWriters(printOnly bool, logFile string) (sim.SnapshotWriter, func(), error) {
	cleanup := func() {}

	writer, err := baseWriter(printOnly)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" {
		return writer, cleanup, nil
	}

	fw, err := sim.NewFileWriter(logFile)
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { fw.Close() }
	return sim.NewMultiWriter(writer, fw), cleanup, nil
}

// baseWriter chooses the underlying writer based on printOnly and env vars.
func baseWriter(printOnly bool) (sim.SnapshotWriter, error) {
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if printOnly || endpoint == "" {
		return &sim.StdoutWriter{}, nil
	}
	return sim.NewGreptimeDBWriter(endpoint, "public")
}

// seedOrNow resolves the seed flag, substituting the current time for zero.
func seedOrNow(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

// newSeedSource builds a rand source from the resolved seed.
func newSeedSource(seed uint64) rand.Source {
	s := seedOrNow(seed)
	return rand.NewPCG(s, s)
}
