package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics and training logs are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics and logs are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for the phases of a training run
type TimingStats struct {
	TotalTime        time.Duration
	DataLoadingTime  time.Duration
	ModelInitTime    time.Duration
	ShuffleTime      time.Duration
	ErrorEvalTime    time.Duration
	ForwardPassTime  time.Duration
	BackwardPassTime time.Duration
	UpdateTime       time.Duration
}

// Add accumulates other into s.
func (s *TimingStats) Add(other TimingStats) {
	s.TotalTime += other.TotalTime
	s.DataLoadingTime += other.DataLoadingTime
	s.ModelInitTime += other.ModelInitTime
	s.ShuffleTime += other.ShuffleTime
	s.ErrorEvalTime += other.ErrorEvalTime
	s.ForwardPassTime += other.ForwardPassTime
	s.BackwardPassTime += other.BackwardPassTime
	s.UpdateTime += other.UpdateTime
}

// PrintTimingStats prints detailed timing statistics; steps is the number
// of per-example updates performed.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, steps int) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total training time: %v\n", stats.TotalTime)
	fmt.Fprintf(Output, "Steps completed: %d\n", steps)
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Data loading: %v (%.1f%%)\n", stats.DataLoadingTime, percentOf(stats.DataLoadingTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Model initialization: %v (%.1f%%)\n", stats.ModelInitTime, percentOf(stats.ModelInitTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Shuffling: %v (%.1f%%)\n", stats.ShuffleTime, percentOf(stats.ShuffleTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Error evaluation: %v (%.1f%%)\n", stats.ErrorEvalTime, percentOf(stats.ErrorEvalTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Forward pass: %v (%.1f%%)\n", stats.ForwardPassTime, percentOf(stats.ForwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Backward pass: %v (%.1f%%)\n", stats.BackwardPassTime, percentOf(stats.BackwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Weight updates: %v (%.1f%%)\n", stats.UpdateTime, percentOf(stats.UpdateTime, stats.TotalTime))
	if steps > 0 {
		fmt.Fprintln(Output, "\nPerformance metrics:")
		fmt.Fprintf(Output, "  Average forward pass time: %.3fµs\n", DurationUS(stats.ForwardPassTime)/float64(steps))
		fmt.Fprintf(Output, "  Average backward pass time: %.3fµs\n", DurationUS(stats.BackwardPassTime)/float64(steps))
		fmt.Fprintf(Output, "  Average update time: %.3fµs\n", DurationUS(stats.UpdateTime)/float64(steps))
	}
}

func percentOf(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
