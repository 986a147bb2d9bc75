package config

import (
	"fmt"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// Graph is a live notifier topology built from a Config.
type Graph struct {
	nodes map[string]*beacon.Notifier
	order []string
}

// Node returns the named notifier, or nil when absent.
func (g *Graph) Node(name string) *beacon.Notifier {
	return g.nodes[name]
}

// Names returns node names in declaration order.
func (g *Graph) Names() []string {
	return g.order
}

// Dispose tears down every node in the graph.
func (g *Graph) Dispose() {
	for _, name := range g.order {
		g.nodes[name].Dispose()
	}
}

// Build instantiates the configured nodes and wires their edges.
func (c *Config) Build() (*Graph, error) {
	g := &Graph{nodes: make(map[string]*beacon.Notifier, len(c.Nodes))}

	for _, nc := range c.Nodes {
		var opts []beacon.Option
		if nc.Reversed {
			opts = append(opts, beacon.WithReversed())
		}
		switch nc.Policy {
		case "remove":
			opts = append(opts, beacon.WithErrorPolicy(beacon.RemoveOnError))
		case "keep":
			opts = append(opts, beacon.WithErrorPolicy(beacon.KeepOnError))
		}

		var n *beacon.Notifier
		if nc.Kind == "value" {
			n = &beacon.NewValue[any](opts...).Notifier
		} else {
			n = beacon.New(opts...)
		}
		g.nodes[nc.Name] = n
		g.order = append(g.order, nc.Name)
	}

	for _, e := range c.Edges.Attach {
		if err := g.nodes[e.From].Attach(g.nodes[e.To]); err != nil {
			return nil, fmt.Errorf("attach %s -> %s: %w", e.From, e.To, err)
		}
	}
	for _, e := range c.Edges.Listen {
		if err := g.nodes[e.From].StartListeningTo(g.nodes[e.To]); err != nil {
			return nil, fmt.Errorf("listen %s -> %s: %w", e.From, e.To, err)
		}
	}

	return g, nil
}
