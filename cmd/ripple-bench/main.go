// Command ripple-bench builds reactive graphs and measures propagation
// throughput. With --metrics-addr it also exposes the engine's Prometheus
// metrics while the benchmark runs.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ripple-ui/ripple/pkg/instrument"
	"github.com/ripple-ui/ripple/pkg/ripple"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := benchCmd()
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func benchCmd() *cobra.Command {
	var (
		signals     int
		layers      int
		emits       int
		listeners   int
		useBatch    bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "ripple-bench",
		Short: "Benchmark reactive value propagation",
		Long: `ripple-bench builds a layered graph of reactive signals and derived
values, subscribes listeners to the final layer, and measures how fast
emits propagate through the hot graph.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if signals < 1 || layers < 0 || emits < 1 || listeners < 1 {
				return fmt.Errorf("invalid graph shape: signals=%d layers=%d emits=%d listeners=%d",
					signals, layers, emits, listeners)
			}
			if metricsAddr != "" {
				ripple.SetObserver(instrument.NewMetrics())
				go serveMetrics(metricsAddr)
			}
			runBench(signals, layers, emits, listeners, useBatch)
			return nil
		},
	}

	cmd.Flags().IntVar(&signals, "signals", 64, "number of source signals")
	cmd.Flags().IntVar(&layers, "layers", 4, "number of derived layers")
	cmd.Flags().IntVar(&emits, "emits", 100000, "number of emits to drive")
	cmd.Flags().IntVar(&listeners, "listeners", 4, "listeners on the final layer")
	cmd.Flags().BoolVar(&useBatch, "batch", false, "group emits into batches of the signal count")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ripple-bench %s (%s)\n", version, commit)
		},
	}
}

// runBench wires sources -> derived layers -> listeners and drives emits
// through the hot graph.
func runBench(signals, layers, emits, listeners int, useBatch bool) {
	sources := make([]*ripple.Reactive[int], signals)
	for i := range sources {
		sources[i] = ripple.NewReactive(0)
	}

	prev := make([]ripple.Readable[int], signals)
	for i, s := range sources {
		prev[i] = s
	}
	for l := 0; l < layers; l++ {
		next := make([]ripple.Readable[int], signals)
		for i := 0; i < signals; i++ {
			left, right := prev[i], prev[(i+1)%signals]
			next[i] = ripple.NewDerived(func() int {
				return left.Get() + right.Get()
			})
		}
		prev = next
	}

	var fired atomic.Int64
	for i := 0; i < listeners; i++ {
		for _, node := range prev {
			if d, ok := node.(*ripple.Derived[int]); ok {
				d.Subscribe(func(int) { fired.Add(1) })
			} else if s, ok := node.(*ripple.Reactive[int]); ok {
				s.Subscribe(func(int) { fired.Add(1) })
			}
		}
	}

	slog.Info("graph ready",
		"signals", signals, "layers", layers, "listeners", listeners)

	start := time.Now()
	if useBatch {
		for i := 0; i < emits; i += signals {
			base := i
			ripple.Batch(func() {
				for j := 0; j < signals && base+j < emits; j++ {
					sources[j].Emit(base + j + 1)
				}
			})
		}
	} else {
		for i := 0; i < emits; i++ {
			sources[i%signals].Emit(i + 1)
		}
	}
	elapsed := time.Since(start)

	slog.Info("bench complete",
		"emits", emits,
		"elapsed", elapsed,
		"emits_per_sec", fmt.Sprintf("%.0f", float64(emits)/elapsed.Seconds()),
		"listener_firings", fired.Load())
}

// serveMetrics mounts the Prometheus handler and blocks.
func serveMetrics(addr string) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("metrics server stopped", "err", err)
	}
}
