package sched

import (
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	TickMS         int    `yaml:"tick_ms"`         // 5 (by default)
	SliceTicks     int    `yaml:"slice_ticks"`     // 5 (by default)
	PriorityLevels int    `yaml:"priority_levels"` // 4 (by default), level 0 is highest
	MaxTasks       int    `yaml:"max_tasks"`       // 64 (by default), includes the idle task
	RunTicks       int64  `yaml:"run_ticks"`       // simulation length, 0 = run until all workloads exit
	ReapEvery      int64  `yaml:"reap_every"`      // ticks between zombie reclamation passes
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	TraceCSV       string `yaml:"trace_csv"` // CSV trace output path, empty disables
	TraceDB        string `yaml:"trace_db"`  // SQLite trace output path, empty disables

	Workloads []WorkloadConfig `yaml:"workloads"`
}

// WorkloadConfig describes one simulated task for the CLI runner.
type WorkloadConfig struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"` // busy | sleepy | yielder
	Priority   int    `yaml:"priority"`
	BusyTicks  int    `yaml:"busy_ticks"`
	SleepTicks int    `yaml:"sleep_ticks"`
	Cycles     int    `yaml:"cycles"`
}

// If the config file is not found, we use default values
func defaultConfig() Config {
	return Config{
		TickMS:         5,
		SliceTicks:     5,
		PriorityLevels: 4,
		MaxTasks:       64,
		ReapEvery:      16,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)

	// sanity clamps
	if cfg.TickMS <= 0 {
		cfg.TickMS = 5
	}
	if cfg.SliceTicks <= 0 {
		cfg.SliceTicks = 5
	}
	if cfg.PriorityLevels < 1 {
		cfg.PriorityLevels = 4
	}
	if cfg.PriorityLevels > 64 {
		cfg.PriorityLevels = 64 // one bitmap word
	}
	if cfg.MaxTasks < 2 {
		cfg.MaxTasks = 64
	}
	if cfg.ReapEvery < 1 {
		cfg.ReapEvery = 16
	}

	return cfg
}
