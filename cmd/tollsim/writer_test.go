package main

import (
	"path/filepath"
	"testing"

	"tollsim/internal/sim"
)

func TestBaseWriter_PrintOnly(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "greptimedb:4001")
	w, err := baseWriter(true)
	if err != nil {
		t.Fatalf("baseWriter returned error: %v", err)
	}
	if _, ok := w.(*sim.StdoutWriter); !ok {
		t.Errorf("print-only writer is %T, want *sim.StdoutWriter", w)
	}
}

func TestBaseWriter_NoEndpoint(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, err := baseWriter(false)
	if err != nil {
		t.Fatalf("baseWriter returned error: %v", err)
	}
	if _, ok := w.(*sim.StdoutWriter); !ok {
		t.Errorf("writer without endpoint is %T, want *sim.StdoutWriter", w)
	}
}

func TestNewWriters_WithLogFile(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	path := filepath.Join(t.TempDir(), "run.jsonl")
	w, cleanup, err := newWriters(true, path)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Errorf("writer with log file is %T, want *sim.MultiWriter", w)
	}
}

func TestNewWriters_WithoutLogFile(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, cleanup, err := newWriters(true, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*sim.StdoutWriter); !ok {
		t.Errorf("writer without log file is %T, want *sim.StdoutWriter", w)
	}
}

func TestSeedOrNow(t *testing.T) {
	if got := seedOrNow(42); got != 42 {
		t.Errorf("seedOrNow(42) = %d, want 42", got)
	}
	if got := seedOrNow(0); got == 0 {
		t.Errorf("seedOrNow(0) must substitute a nonzero seed")
	}
}
