// Package config loads the beacon.yaml topology file: the named nodes
// of a notification graph, the attach and listen edges between them,
// and the server and bench settings the CLI runs with.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "beacon.yaml"

	// DefaultPort is the default serve port.
	DefaultPort = 8080

	// DefaultHost is the default serve host.
	DefaultHost = "localhost"

	// DefaultBenchRounds is the default number of bench rounds.
	DefaultBenchRounds = 100000

	// DefaultBenchListeners is the default listener count per node.
	DefaultBenchListeners = 8
)

// Config represents the complete beacon.yaml configuration.
type Config struct {
	// Name is the topology name, used in logs and metrics labels.
	Name string `yaml:"name,omitempty"`

	// Nodes are the named notifiers of the graph.
	Nodes []NodeConfig `yaml:"nodes,omitempty"`

	// Edges are the directed connections between nodes.
	Edges EdgesConfig `yaml:"edges,omitempty"`

	// Serve contains HTTP server settings for the serve command.
	Serve ServeConfig `yaml:"serve,omitempty"`

	// Bench contains settings for the bench command.
	Bench BenchConfig `yaml:"bench,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// NodeConfig declares one notifier.
type NodeConfig struct {
	// Name identifies the node. Must be unique.
	Name string `yaml:"name"`

	// Kind is "plain" (default) or "value".
	Kind string `yaml:"kind,omitempty"`

	// Policy is the error policy: "rethrow" (default), "remove" or "keep".
	Policy string `yaml:"policy,omitempty"`

	// Reversed flips the notification order of the node's registry.
	Reversed bool `yaml:"reversed,omitempty"`
}

// EdgesConfig declares the graph's directed connections.
type EdgesConfig struct {
	// Attach lists cascade edges: notifying From also notifies To.
	Attach []EdgeConfig `yaml:"attach,omitempty"`

	// Listen lists forwarding edges: From re-broadcasts rounds of To.
	Listen []EdgeConfig `yaml:"listen,omitempty"`
}

// EdgeConfig is one directed edge.
type EdgeConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ServeConfig contains HTTP server settings.
type ServeConfig struct {
	// Host is the host to bind to.
	Host string `yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `yaml:"port,omitempty"`

	// Metrics enables the Prometheus /metrics endpoint.
	Metrics bool `yaml:"metrics,omitempty"`
}

// BenchConfig contains bench command settings.
type BenchConfig struct {
	// Rounds is the number of notification rounds to drive.
	Rounds int `yaml:"rounds,omitempty"`

	// Listeners is the number of extra listeners added to each node.
	Listeners int `yaml:"listeners,omitempty"`

	// Async drives rounds through the async queue instead of inline.
	Async bool `yaml:"async,omitempty"`

	// Interval, when set, paces rounds (e.g. "10ms").
	Interval Duration `yaml:"interval,omitempty"`
}

// Duration is a time.Duration that round-trips through YAML as a string
// like "250ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Serve: ServeConfig{
			Host:    DefaultHost,
			Port:    DefaultPort,
			Metrics: true,
		},
		Bench: BenchConfig{
			Rounds:    DefaultBenchRounds,
			Listeners: DefaultBenchListeners,
		},
	}
}

// Load reads beacon.yaml from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %s found in %s", ConfigFileName, filepath.Dir(path))
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}
	if c.Bench.Rounds == 0 {
		c.Bench.Rounds = DefaultBenchRounds
	}
	if c.Bench.Listeners == 0 {
		c.Bench.Listeners = DefaultBenchListeners
	}
	for i := range c.Nodes {
		if c.Nodes[i].Kind == "" {
			c.Nodes[i].Kind = "plain"
		}
		if c.Nodes[i].Policy == "" {
			c.Nodes[i].Policy = "rethrow"
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port %d out of range", c.Serve.Port)
	}
	if c.Bench.Rounds < 0 {
		return fmt.Errorf("bench.rounds must not be negative")
	}

	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node with empty name")
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate node %q", n.Name)
		}
		seen[n.Name] = true
		switch n.Kind {
		case "plain", "value":
		default:
			return fmt.Errorf("node %q: unknown kind %q", n.Name, n.Kind)
		}
		switch n.Policy {
		case "rethrow", "remove", "keep":
		default:
			return fmt.Errorf("node %q: unknown policy %q", n.Name, n.Policy)
		}
	}

	check := func(kind string, edges []EdgeConfig) error {
		for _, e := range edges {
			if !seen[e.From] {
				return fmt.Errorf("%s edge references unknown node %q", kind, e.From)
			}
			if !seen[e.To] {
				return fmt.Errorf("%s edge references unknown node %q", kind, e.To)
			}
			if e.From == e.To {
				return fmt.Errorf("%s edge from %q to itself", kind, e.From)
			}
		}
		return nil
	}
	if err := check("attach", c.Edges.Attach); err != nil {
		return err
	}
	return check("listen", c.Edges.Listen)
}

// ServeAddress returns the address string for the serve command.
func (c *Config) ServeAddress() string {
	return fmt.Sprintf("%s:%d", c.Serve.Host, c.Serve.Port)
}
