package sim

import "tollsim/internal/traffic"

// MultiWriter fans out snapshots to multiple writers.
type MultiWriter struct {
	writers []SnapshotWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(writers ...SnapshotWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write sends a snapshot to all writers.
func (mw *MultiWriter) Write(snap traffic.Snapshot) error {
	for _, w := range mw.writers {
		if err := w.Write(snap); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple snapshots to all writers, using batch mode where
// supported.
func (mw *MultiWriter) WriteBatch(snaps []traffic.Snapshot) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchSnapshotWriter); ok {
			if err := bw.WriteBatch(snaps); err != nil {
				return err
			}
			continue
		}
		for _, s := range snaps {
			if err := w.Write(s); err != nil {
				return err
			}
		}
	}
	return nil
}
