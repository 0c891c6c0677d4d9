// Command redist-bench measures the virtual-time cost of the three
// redistribution patterns over simulated switched networks of varying
// size.
package main

import (
	"os"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flowtools/redist/comm"
	"github.com/flowtools/redist/router"
	"github.com/flowtools/redist/simulator"
)

var (
	rankCounts []int
	elems      int
	latency    float64
	rate       float64
	patterns   []string
)

var rootCmd = &cobra.Command{
	Use:   "redist-bench",
	Short: "Benchmark distribute/gather/scatter over simulated networks",
	RunE:  run,
}

func init() {
	rootCmd.Flags().IntSliceVar(&rankCounts, "ranks", []int{2, 4, 8, 16}, "group sizes to benchmark")
	rootCmd.Flags().IntVar(&elems, "elems", 4096, "elements per pairwise payload")
	rootCmd.Flags().Float64Var(&latency, "latency", 0.1, "per-message network latency in virtual seconds")
	rootCmd.Flags().Float64Var(&rate, "rate", 1e6, "per-node link rate in bytes per virtual second")
	rootCmd.Flags().StringSliceVar(&patterns, "patterns",
		[]string{"distribute", "gather", "scatter"}, "patterns to benchmark")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type result struct {
	pattern     string
	ranks       int
	virtualTime float64
}

func run(cmd *cobra.Command, args []string) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()
	log = log.With(zap.String("run", xid.New().String()))

	// Every configuration gets its own event loop, so they can run
	// concurrently in real time without sharing virtual clocks.
	results := make([]result, len(rankCounts)*len(patterns))
	var g errgroup.Group
	for i, numRanks := range rankCounts {
		for j, pattern := range patterns {
			idx := i*len(patterns) + j
			numRanks, pattern := numRanks, pattern
			g.Go(func() error {
				vt, err := benchPattern(router.Pattern(pattern), numRanks)
				if err != nil {
					return err
				}
				results[idx] = result{pattern: pattern, ranks: numRanks, virtualTime: vt}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		log.Info("pattern complete",
			zap.String("pattern", res.pattern),
			zap.Int("ranks", res.ranks),
			zap.Int("elems", elems),
			zap.Float64("virtualSeconds", res.virtualTime))
	}
	return nil
}

// benchPattern runs one pattern once across the whole group and reports
// the virtual time the exchange took.
func benchPattern(pattern router.Pattern, numRanks int) (float64, error) {
	loop := simulator.NewEventLoop()
	nodes := make([]*simulator.Node, numRanks)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	switcher := simulator.NewGreedyDropSwitcher(numRanks, rate)
	network := simulator.NewSwitcherNetwork(switcher, nodes, latency)

	comm.Spawn(loop, network, nodes, func(c *comm.Comm) {
		rt := router.New(c)
		rank := c.Rank()

		switch pattern {
		case router.PatternDistribute:
			// All-pairs irregular exchange.
			var dests []int
			var bufs [][]float64
			for r := 0; r < numRanks; r++ {
				if r == rank {
					continue
				}
				dests = append(dests, r)
				bufs = append(bufs, make([]float64, elems))
			}
			_, _, err := router.Distribute(rt, dests, router.PerDest(bufs), 0)
			essentials.Must(err)
		case router.PatternGather:
			// Ragged per-rank buffers into rank 0.
			_, _, err := router.Gather(rt, make([]float64, (rank+1)*elems), 0)
			essentials.Must(err)
		case router.PatternScatter:
			var buf []float64
			if rank == 0 {
				buf = make([]float64, numRanks*elems)
			}
			_, err := router.Scatter(rt, buf, nil, 0)
			essentials.Must(err)
		default:
			essentials.Die("unknown pattern:", string(pattern))
		}
	})

	if err := loop.Run(); err != nil {
		return 0, err
	}
	return loop.Time(), nil
}
