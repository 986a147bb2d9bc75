package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/beacon-dev/beacon/internal/config"
	"github.com/beacon-dev/beacon/pkg/beacon"
)

func benchCmd() *cobra.Command {
	var (
		configPath string
		rounds     int
		listeners  int
		async      bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure notification throughput of a topology",
		Long: `Build the graph declared in beacon.yaml, add listeners to every
node, and drive rounds through the first node, reporting how many
listener invocations per second the graph sustains.

Examples:
  beacon bench
  beacon bench --rounds=1000000 --listeners=32
  beacon bench --async`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(configPath, rounds, listeners, async)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to beacon.yaml (default ./beacon.yaml)")
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 0, "Rounds to drive (default from beacon.yaml)")
	cmd.Flags().IntVarP(&listeners, "listeners", "l", 0, "Listeners per node (default from beacon.yaml)")
	cmd.Flags().BoolVar(&async, "async", false, "Drive rounds through the async queue")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(wd)
}

func runBench(configPath string, rounds, listeners int, async bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if rounds > 0 {
		cfg.Bench.Rounds = rounds
	}
	if listeners > 0 {
		cfg.Bench.Listeners = listeners
	}
	if async {
		cfg.Bench.Async = true
	}
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("topology declares no nodes")
	}

	g, err := cfg.Build()
	if err != nil {
		return err
	}
	defer g.Dispose()

	// One counter per listener: each closure captures its own counter, so
	// the registrations carry distinct identities and the totals can be
	// summed without contention on a single counter.
	counters := make([]atomic.Uint64, len(cfg.Nodes)*cfg.Bench.Listeners)
	next := 0
	for _, name := range g.Names() {
		n := g.Node(name)
		for i := 0; i < cfg.Bench.Listeners; i++ {
			c := &counters[next]
			next++
			if _, err := n.AddListener(beacon.On(func() {
				c.Add(1)
			})); err != nil {
				return fmt.Errorf("add listener to %s: %w", name, err)
			}
		}
	}

	root := g.Node(g.Names()[0])
	fmt.Printf("driving %d rounds through %q (%d nodes, %d listeners each)\n",
		cfg.Bench.Rounds, g.Names()[0], len(cfg.Nodes), cfg.Bench.Listeners)

	start := time.Now()
	if cfg.Bench.Async {
		var last <-chan error
		for i := 0; i < cfg.Bench.Rounds; i++ {
			last = root.NotifyAsync()
		}
		if last != nil {
			if err := <-last; err != nil {
				return err
			}
		}
	} else {
		for i := 0; i < cfg.Bench.Rounds; i++ {
			if err := root.Notify(); err != nil {
				return err
			}
			if cfg.Bench.Interval > 0 {
				time.Sleep(time.Duration(cfg.Bench.Interval))
			}
		}
	}
	elapsed := time.Since(start)

	var total uint64
	for i := range counters {
		total += counters[i].Load()
	}
	fmt.Printf("rounds:      %d\n", cfg.Bench.Rounds)
	fmt.Printf("invocations: %d\n", total)
	fmt.Printf("elapsed:     %s\n", elapsed.Round(time.Millisecond))
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Printf("throughput:  %.0f invocations/s\n", float64(total)/secs)
	}
	return nil
}
