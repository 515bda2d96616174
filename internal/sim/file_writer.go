package sim

import (
	"encoding/json"
	"os"

	"tollsim/internal/traffic"
)

// FileWriter appends snapshots to a JSONL file.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates a FileWriter truncating any existing file at path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write logs a single snapshot.
func (f *FileWriter) Write(snap traffic.Snapshot) error {
	return f.enc.Encode(snap)
}

// WriteBatch logs multiple snapshots.
func (f *FileWriter) WriteBatch(snaps []traffic.Snapshot) error {
	for _, s := range snaps {
		if err := f.Write(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	return f.file.Close()
}
