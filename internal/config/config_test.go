package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

const sampleConfig = `
name: pipeline
nodes:
  - name: source
    kind: value
  - name: stage
  - name: sink
    policy: keep
    reversed: true
edges:
  attach:
    - {from: source, to: stage}
  listen:
    - {from: sink, to: stage}
serve:
  port: 9090
bench:
  rounds: 500
  interval: 250ms
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "pipeline" {
		t.Errorf("name = %q, want pipeline", cfg.Name)
	}
	if len(cfg.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(cfg.Nodes))
	}
	if cfg.Nodes[0].Kind != "value" {
		t.Errorf("source kind = %q, want value", cfg.Nodes[0].Kind)
	}
	if cfg.Nodes[1].Kind != "plain" || cfg.Nodes[1].Policy != "rethrow" {
		t.Errorf("stage defaults not applied: %+v", cfg.Nodes[1])
	}
	if cfg.Serve.Port != 9090 || cfg.Serve.Host != DefaultHost {
		t.Errorf("serve = %+v", cfg.Serve)
	}
	if cfg.Bench.Rounds != 500 || cfg.Bench.Listeners != DefaultBenchListeners {
		t.Errorf("bench = %+v", cfg.Bench)
	}
	if time.Duration(cfg.Bench.Interval) != 250*time.Millisecond {
		t.Errorf("interval = %v, want 250ms", cfg.Bench.Interval)
	}
	if cfg.ServeAddress() != "localhost:9090" {
		t.Errorf("address = %q", cfg.ServeAddress())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		yaml   string
		errSub string
	}{
		{"duplicate node", "nodes: [{name: a}, {name: a}]", "duplicate node"},
		{"unknown kind", "nodes: [{name: a, kind: fancy}]", "unknown kind"},
		{"unknown policy", "nodes: [{name: a, policy: explode}]", "unknown policy"},
		{"empty name", "nodes: [{name: \"\"}]", "empty name"},
		{"unknown edge node", "nodes: [{name: a}]\nedges: {attach: [{from: a, to: b}]}", "unknown node"},
		{"self edge", "nodes: [{name: a}]\nedges: {listen: [{from: a, to: a}]}", "to itself"},
		{"bad port", "serve: {port: 99999}", "out of range"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.errSub) {
				t.Errorf("error = %v, want substring %q", err, tc.errSub)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Serve.Port = 7070
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := LoadFile(cfg.Path())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Serve.Port != 7070 {
		t.Errorf("port = %d, want 7070", reloaded.Serve.Port)
	}
}

func TestBuildGraph(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	g, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer g.Dispose()

	if got := g.Names(); len(got) != 3 || got[0] != "source" {
		t.Fatalf("names = %v", got)
	}

	source, stage, sink := g.Node("source"), g.Node("stage"), g.Node("sink")
	if !source.HasAttached(stage) {
		t.Error("attach edge not wired")
	}
	if !sink.IsListeningTo(stage) {
		t.Error("listen edge not wired")
	}

	// A round on source cascades into stage; the forwarding listener
	// planted by the listen edge runs before stage's own listener.
	var order []string
	stage.AddListener(beacon.On(func() { order = append(order, "stage") }))
	sink.AddListener(beacon.On(func() { order = append(order, "sink") }))
	if err := source.Notify(); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(order) != 2 || order[0] != "sink" || order[1] != "stage" {
		t.Errorf("order = %v", order)
	}
}

func TestBuildRejectsCycle(t *testing.T) {
	yaml := `
nodes: [{name: a}, {name: b}]
edges:
  attach:
    - {from: a, to: b}
    - {from: b, to: a}
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := cfg.Build(); err == nil {
		t.Error("expected cycle error")
	}
}
