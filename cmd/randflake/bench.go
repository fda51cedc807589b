package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		duration  time.Duration
		batchSize int
	)

	cmd := &cobra.Command{
		Use:     "bench",
		Aliases: []string{"b"},
		Short:   "Measure generation throughput",
		Example: `  randflake bench --duration 5s
  randflake bench --duration 2s --batch 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batchSize < 1 {
				return fmt.Errorf("--batch must be at least 1, got %d", batchSize)
			}
			ctx := cmd.Context()
			gen, closeStore, err := a.generator(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running benchmarks (duration: %v, machine: %d)\n\n", duration, gen.MachineID())

			fmt.Fprintf(out, "1. Single ID generation:\n")
			count := 0
			start := time.Now()
			for deadline := start.Add(duration); time.Now().Before(deadline); count++ {
				if _, err := gen.GenerateIDContext(ctx); err != nil {
					return err
				}
			}
			report(out, count, time.Since(start))

			fmt.Fprintf(out, "2. Batch generation (batch size: %d):\n", batchSize)
			count = 0
			start = time.Now()
			for deadline := start.Add(duration); time.Now().Before(deadline); {
				ids, err := gen.GenerateBatch(ctx, batchSize)
				count += len(ids)
				if err != nil {
					return err
				}
			}
			report(out, count, time.Since(start))

			m := gen.GetMetrics()
			fmt.Fprintf(out, "Exhausted milliseconds: %d, waited: %v\n",
				m.SequenceExhausted, time.Duration(m.WaitTimeUs)*time.Microsecond)
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 3*time.Second, "duration of each benchmark")
	cmd.Flags().IntVar(&batchSize, "batch", 100, "batch size for the batch benchmark")
	return cmd
}

func report(out io.Writer, count int, elapsed time.Duration) {
	if count == 0 {
		fmt.Fprintf(out, "   no IDs generated in %v\n\n", elapsed)
		return
	}
	fmt.Fprintf(out, "   Generated: %d IDs in %v\n", count, elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "   Rate:      %.0f IDs/sec (%.0f ns/op)\n\n",
		float64(count)/elapsed.Seconds(), float64(elapsed.Nanoseconds())/float64(count))
}
