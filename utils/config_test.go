package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
layer_sizes: [19, 20, 5]
activator: tanh
epochs: 12
learning_rate: 0.5
rate_scaling: none
seed: 7
train_path: data/train.csv
hold_out: 0.2
standardize: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	want := &Config{
		LayerSizes:   []int{19, 20, 5},
		Activator:    "tanh",
		Epochs:       12,
		LearningRate: 0.5,
		RateScaling:  RateScalingNone,
		Seed:         7,
		TrainPath:    "data/train.csv",
		HoldOut:      0.2,
		Standardize:  true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "epochs: 3\n"))
	require.NoError(t, err)

	want := DefaultConfig()
	want.Epochs = 3
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "epochs: [1, 2\n"))
	require.ErrorContains(t, err, "parse config")

	_, err = Load(writeConfig(t, "epochs: 0\n"))
	require.ErrorContains(t, err, "epochs must be > 0")
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides(Overrides{
		LayerSizes: []int{2, 1},
		Epochs:      4,
		TrainPath:   "x.csv",
		Standardize: true,
	})

	want := DefaultConfig()
	want.LayerSizes = []int{2, 1}
	want.Epochs = 4
	want.TrainPath = "x.csv"
	want.Standardize = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLayerSizes(t *testing.T) {
	sizes, err := ParseLayerSizes("19,30, 15 5")
	require.NoError(t, err)
	require.Equal(t, []int{19, 30, 15, 5}, sizes)

	_, err = ParseLayerSizes("19,x")
	require.ErrorContains(t, err, "layer 2")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"one layer", func(c *Config) { c.LayerSizes = []int{19} }, false},
		{"zero width", func(c *Config) { c.LayerSizes = []int{19, 0, 5} }, false},
		{"output width", func(c *Config) { c.LayerSizes = []int{19, 30, 3} }, false},
		{"single output", func(c *Config) { c.LayerSizes = []int{19, 1} }, false},
		{"two layers", func(c *Config) { c.LayerSizes = []int{19, 5} }, true},
		{"activator", func(c *Config) { c.Activator = "softmax" }, false},
		{"epochs", func(c *Config) { c.Epochs = 0 }, false},
		{"learning rate", func(c *Config) { c.LearningRate = 0 }, false},
		{"rate scaling", func(c *Config) { c.RateScaling = "batch" }, false},
		{"hold out", func(c *Config) { c.HoldOut = 1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
	require.Error(t, ValidateConfig(nil))
}
