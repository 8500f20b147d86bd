package utils

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mrs/convert"
)

// RateScaling names how the learning rate is scaled per example update.
const (
	// RateScalingDataset divides the learning rate by the training set size.
	RateScalingDataset = "dataset"
	// RateScalingNone applies the learning rate as given.
	RateScalingNone = "none"
)

// Config holds training configuration
type Config struct {
	LayerSizes   []int   `yaml:"layer_sizes"`
	Activator    string  `yaml:"activator"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	RateScaling  string  `yaml:"rate_scaling"`
	Seed         uint64  `yaml:"seed"`
	TrainPath    string  `yaml:"train_path"`
	TestPath     string  `yaml:"test_path"`
	// HoldOut is the fraction of the training file kept back for testing
	// when TestPath is empty.
	HoldOut float64 `yaml:"hold_out"`
	// Standardize rescales features with the training set mean and
	// standard deviation before training.
	Standardize bool `yaml:"standardize"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	LayerSizes   []int
	Activator    string
	Epochs       int
	LearningRate float64
	RateScaling  string
	Seed         uint64
	TrainPath    string
	TestPath     string
	HoldOut      float64
	Standardize  bool
}

// DefaultConfig returns the configuration of the rating network.
func DefaultConfig() *Config {
	return &Config{
		LayerSizes:   []int{19, 30, 15, 5},
		Activator:    "sigmoid",
		Epochs:       30,
		LearningRate: 3.0,
		RateScaling:  RateScalingDataset,
		Seed:         42,
	}
}

// Load reads a YAML config on top of DefaultConfig and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if len(o.LayerSizes) > 0 {
		c.LayerSizes = append([]int(nil), o.LayerSizes...)
	}
	if o.Activator != "" {
		c.Activator = o.Activator
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.RateScaling != "" {
		c.RateScaling = o.RateScaling
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.TrainPath != "" {
		c.TrainPath = o.TrainPath
	}
	if o.TestPath != "" {
		c.TestPath = o.TestPath
	}
	if o.HoldOut > 0 {
		c.HoldOut = o.HoldOut
	}
	if o.Standardize {
		c.Standardize = true
	}
}

// ParseLayerSizes parses a comma or space separated layer table such as
// "19,30,15,5".
func ParseLayerSizes(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	sizes := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i+1, err)
		}
		sizes[i] = n
	}
	return sizes, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.New("config is nil")
	}

	if len(config.LayerSizes) < 2 {
		return fmt.Errorf("layer_sizes must have at least 2 layers (input and output), got %d", len(config.LayerSizes))
	}
	for i, n := range config.LayerSizes {
		if n <= 0 {
			return fmt.Errorf("layer %d width must be > 0 (got %d)", i+1, n)
		}
	}
	if out := config.LayerSizes[len(config.LayerSizes)-1]; out != convert.Width {
		return fmt.Errorf("output layer width must be %d to hold a rating distribution (got %d)", convert.Width, out)
	}

	switch config.Activator {
	case "sigmoid", "tanh", "relu":
	default:
		return fmt.Errorf("unknown activator %q", config.Activator)
	}

	if config.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", config.Epochs)
	}

	if config.LearningRate <= 0 || math.IsInf(config.LearningRate, 0) || math.IsNaN(config.LearningRate) {
		return fmt.Errorf("learning_rate must be a positive number (got %v)", config.LearningRate)
	}

	switch config.RateScaling {
	case RateScalingDataset, RateScalingNone:
	default:
		return fmt.Errorf("rate_scaling must be %q or %q (got %q)", RateScalingDataset, RateScalingNone, config.RateScaling)
	}

	if config.HoldOut < 0 || config.HoldOut >= 1 {
		return fmt.Errorf("hold_out must be in [0, 1) (got %v)", config.HoldOut)
	}

	return nil
}
