package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBenchConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunBenchMultipleListeners(t *testing.T) {
	// Every listener registration must carry a distinct identity, or the
	// second add on a node is rejected as a duplicate.
	path := writeBenchConfig(t, `
name: bench
nodes:
  - name: root
  - name: leaf
edges:
  attach:
    - {from: root, to: leaf}
bench:
  rounds: 10
  listeners: 4
`)
	if err := runBench(path, 0, 0, false); err != nil {
		t.Fatalf("bench with 4 listeners failed: %v", err)
	}
}

func TestRunBenchAsync(t *testing.T) {
	path := writeBenchConfig(t, `
nodes:
  - name: root
bench:
  rounds: 5
  listeners: 2
`)
	if err := runBench(path, 0, 0, true); err != nil {
		t.Fatalf("async bench failed: %v", err)
	}
}

func TestRunBenchEmptyTopology(t *testing.T) {
	path := writeBenchConfig(t, "name: empty\n")
	if err := runBench(path, 0, 0, false); err == nil {
		t.Error("expected error for a topology with no nodes")
	}
}
