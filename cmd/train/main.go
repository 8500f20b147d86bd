// mrs-train: trains the rating network on a CSV of feature rows
//
// Usage:
//
//	mrs-train --data=ratings.csv --epochs=30 --lr=3.0
//	mrs-train --config=train.yaml --seed=7
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/exp/rand"

	"mrs/convert"
	"mrs/m"
	"mrs/utils"
)

var (
	configFile   = flag.String("config", "", "YAML config file")
	dataFile     = flag.String("data", "", "Training CSV (features then rating)")
	testFile     = flag.String("test", "", "Optional test CSV")
	holdOut      = flag.Float64("holdout", 0, "Fraction of the training data kept for testing when --test is empty")
	layers       = flag.String("layers", "", "Layer sizes, e.g. 19,30,15,5")
	activator    = flag.String("activator", "", "Hidden layer activator: sigmoid, tanh, relu")
	epochs       = flag.Int("epochs", 0, "Number of training epochs")
	learningRate = flag.Float64("lr", 0, "Learning rate")
	rateScaling  = flag.String("rate-scaling", "", "Learning rate scaling: dataset or none")
	seed         = flag.Uint64("seed", 0, "Random seed")
	verbose      = flag.Bool("verbose", true, "Verbose output")
	debug        = flag.Bool("debug", false, "Log every epoch")
	standardize  = flag.Bool("standardize", false, "Standardize features with the training set mean and standard deviation")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if cfg.TrainPath == "" {
		fmt.Fprintln(os.Stderr, "Error: no training data, set --data or train_path")
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*utils.Config, error) {
	cfg := utils.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = utils.Load(*configFile); err != nil {
			return nil, err
		}
	}

	o := utils.Overrides{
		Activator:    *activator,
		Epochs:       *epochs,
		LearningRate: *learningRate,
		RateScaling:  *rateScaling,
		Seed:         *seed,
		TrainPath:    *dataFile,
		TestPath:     *testFile,
		HoldOut:      *holdOut,
		Standardize:  *standardize,
	}
	if *layers != "" {
		sizes, err := utils.ParseLayerSizes(*layers)
		if err != nil {
			return nil, fmt.Errorf("parsing --layers: %w", err)
		}
		o.LayerSizes = sizes
	}
	cfg.ApplyOverrides(o)

	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *utils.Config) error {
	stats := &utils.TimingStats{}
	totalStart := time.Now()

	if utils.Verbose {
		fmt.Fprintf(utils.Output, "\nConfiguration:\n")
		fmt.Fprintf(utils.Output, "  Layers:        %v\n", cfg.LayerSizes)
		fmt.Fprintf(utils.Output, "  Activator:     %s\n", cfg.Activator)
		fmt.Fprintf(utils.Output, "  Epochs:        %d\n", cfg.Epochs)
		fmt.Fprintf(utils.Output, "  Learning Rate: %.4f (%s scaling)\n", cfg.LearningRate, cfg.RateScaling)
		fmt.Fprintf(utils.Output, "  Seed:          %d\n", cfg.Seed)
		fmt.Fprintf(utils.Output, "  Standardize:   %t\n", cfg.Standardize)
		fmt.Fprintln(utils.Output)
	}

	start := time.Now()
	train, test, err := loadData(cfg)
	if err != nil {
		return err
	}
	stats.DataLoadingTime = time.Since(start)

	start = time.Now()
	net := m.NewNetwork(networkConfig(cfg))
	stats.ModelInitTime = time.Since(start)

	report, err := net.Train(train, cfg.Epochs, cfg.LearningRate)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}
	stats.Add(report.Timing)
	stats.TotalTime = time.Since(totalStart)

	fmt.Fprintf(utils.Output, "Best training RMSE: %.6f over %d epochs\n", report.BestRMSE, len(report.Epochs))
	if len(test) > 0 {
		rmse, err := net.Evaluate(test)
		if err != nil {
			return fmt.Errorf("evaluating test set: %w", err)
		}
		fmt.Fprintf(utils.Output, "Test RMSE: %.6f on %d examples\n", rmse, len(test))
	}

	utils.PrintTimingStats(stats, cfg.Epochs*len(train))
	return nil
}

func loadData(cfg *utils.Config) (m.Lines, m.Lines, error) {
	inputNum := cfg.LayerSizes[0]
	train, err := readLines(cfg.TrainPath, inputNum)
	if err != nil {
		return nil, nil, err
	}

	if cfg.TestPath != "" {
		test, err := readLines(cfg.TestPath, inputNum)
		if err != nil {
			return nil, nil, err
		}
		return standardizeSets(cfg, train, test)
	}

	if cfg.HoldOut > 0 {
		m.Shuffle(train, rand.New(rand.NewSource(cfg.Seed)))
		keep := len(train) - int(float64(len(train))*cfg.HoldOut)
		kept, held := m.Split(train, keep)
		return standardizeSets(cfg, kept, held)
	}

	return standardizeSets(cfg, train, nil)
}

// standardizeSets rescales every feature column of both sets with the mean and
// standard deviation of train, so the test set never leaks into the stats.
func standardizeSets(cfg *utils.Config, train, test m.Lines) (m.Lines, m.Lines, error) {
	if !cfg.Standardize {
		return train, test, nil
	}
	mean := m.CalculateMean(train)
	std := m.CalculateStdDev(train)
	return m.NormalizeLines(train, std, mean), m.NormalizeLines(test, std, mean), nil
}

func readLines(path string, inputNum int) (m.Lines, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening data: %w", err)
	}
	defer f.Close()

	lines, err := m.GetLines(f, inputNum, convert.Ratings)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

func networkConfig(cfg *utils.Config) m.Config {
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(utils.Output, &slog.HandlerOptions{Level: level}))
	if !utils.Verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	scaling := m.ScaleByDatasetSize
	if cfg.RateScaling == utils.RateScalingNone {
		scaling = m.ScalePerExample
	}

	return m.Config{
		LayerSizes:  cfg.LayerSizes,
		Activator:   m.ActivatorLookup[cfg.Activator],
		Source:      rand.NewSource(cfg.Seed),
		Decoder:     convert.Ratings,
		RateScaling: scaling,
		Logger:      logger,
	}
}
