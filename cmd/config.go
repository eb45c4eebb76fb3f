package cmd

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// RunConfig mirrors the run command's flag surface so a run can be driven
// from a YAML file instead of (or alongside) flags.
type RunConfig struct {
	MachineAmount uint32  `yaml:"machine_amount"`
	TaskAmount    uint32  `yaml:"task_amount"`
	ModelFile     string  `yaml:"model"`
	RoutesFile    string  `yaml:"routes"`
	Seed          int64   `yaml:"seed"`
	Horizon       float64 `yaml:"horizon"`
	Lookahead     float64 `yaml:"lookahead"`
	LogLevel      string  `yaml:"log"`
	OutDir        string  `yaml:"out_dir"`
}

// loadRunConfig parses a YAML config file with strict field checking, so a
// typo'd key is a load error rather than a silently ignored flag.
func loadRunConfig(path string) RunConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Fatalf("Failed to read config file: %v", err)
	}

	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		logrus.Fatalf("Failed to parse config YAML: %v", err)
	}
	return cfg
}

// applyRunConfig overlays any non-zero fields from cfg onto the package's
// flag-bound variables. It runs inside the run command, after cobra has
// parsed the flags, so a non-zero config value replaces the flag's value
// (explicit or default); a zero or empty config value leaves the flag as is.
func applyRunConfig(cfg RunConfig) {
	if cfg.MachineAmount != 0 {
		machineAmount = cfg.MachineAmount
	}
	if cfg.TaskAmount != 0 {
		taskAmount = cfg.TaskAmount
	}
	if cfg.ModelFile != "" {
		modelFile = cfg.ModelFile
	}
	if cfg.RoutesFile != "" {
		routesFile = cfg.RoutesFile
	}
	if cfg.Seed != 0 {
		seed = cfg.Seed
	}
	if cfg.Horizon != 0 {
		horizon = cfg.Horizon
	}
	if cfg.Lookahead != 0 {
		lookahead = cfg.Lookahead
	}
	if cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
	}
	if cfg.OutDir != "" {
		outDir = cfg.OutDir
	}
}
