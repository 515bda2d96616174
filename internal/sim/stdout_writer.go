// Writer implementation printing snapshots to STDOUT
package sim

import (
	"encoding/json"
	"fmt"

	"tollsim/internal/traffic"
)

// StdoutWriter prints snapshots to STDOUT as JSON lines.
type StdoutWriter struct{}

// Write outputs a single snapshot.
func (w *StdoutWriter) Write(snap traffic.Snapshot) error {
	data, _ := json.Marshal(snap)
	fmt.Println(string(data))
	return nil
}

// WriteBatch outputs multiple snapshots.
func (w *StdoutWriter) WriteBatch(snaps []traffic.Snapshot) error {
	for _, s := range snaps {
		_ = w.Write(s)
	}
	return nil
}
