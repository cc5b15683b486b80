// Package config handles loading and managing bcaengine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bcaengine/bcaengine/pkg/bca"
	"github.com/bcaengine/bcaengine/pkg/discount"
	"github.com/bcaengine/bcaengine/pkg/effects"
	"github.com/bcaengine/bcaengine/pkg/social"
)

// Config is the top-level configuration for bcaengine.
type Config struct {
	Baseline     string            `yaml:"baseline"`
	BaseScenario string            `yaml:"base_scenario"` // scrubbed when combining runs
	Categories   social.Categories `yaml:"categories"`
	Discounting  DiscountingConfig `yaml:"discounting"`
	Reports      ReportsConfig     `yaml:"reports"`
	Effects      effects.Params    `yaml:"effects"`
	OffCycle     OffCycleConfig    `yaml:"off_cycle"`
	Storage      StorageConfig     `yaml:"storage"`
	RunLog       RunLogConfig      `yaml:"runlog"`
	Logging      LoggingConfig     `yaml:"logging"`
}

// DiscountingConfig controls discounting.
type DiscountingConfig struct {
	CostsStart   string    `yaml:"costs_start"` // start-year or end-year
	DiscountYear int       `yaml:"discount_year"`
	SocialRates  []float64 `yaml:"social_rates"`
}

// ReportsConfig controls which report rows and metrics are processed.
type ReportsConfig struct {
	SummaryStartYear int      `yaml:"summary_start_year"`
	ModelYears       []int    `yaml:"model_years"` // first and last, inclusive
	CostsExclude     []string `yaml:"costs_metrics_to_exclude"`
	EffectsExclude   []string `yaml:"effects_metrics_to_exclude"`
}

// OffCycleConfig prices off-cycle credits in the compliance report.
type OffCycleConfig struct {
	CostPerCredit float64 `yaml:"cost_per_credit"` // $ per credit
}

// StorageConfig selects the blob backend for run tables.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // local, s3 or gcs
	LocalDir string `yaml:"local_dir"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// RunLogConfig selects the run log database.
type RunLogConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with the settings of the 2021 light-duty analysis.
func DefaultConfig() *Config {
	opts := bca.DefaultOptions()
	return &Config{
		Baseline:     opts.Baseline,
		BaseScenario: "1 Mpg Standards",
		Categories:   opts.Categories,
		Discounting: DiscountingConfig{
			CostsStart:   string(opts.Timing),
			DiscountYear: opts.DiscountYear,
			SocialRates:  opts.SocialRates,
		},
		Reports: ReportsConfig{
			SummaryStartYear: opts.SummaryStartYear,
			ModelYears:       opts.ModelYears,
			CostsExclude:     opts.CostsExclude,
			EffectsExclude:   opts.EffectsExclude,
		},
		Effects: opts.Effects,
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "./runs",
		},
		RunLog: RunLogConfig{
			Driver: "sqlite3",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Baseline == "" {
		return fmt.Errorf("baseline scenario is required")
	}
	if _, err := discount.ParseTiming(c.Discounting.CostsStart); err != nil {
		return err
	}
	if len(c.Discounting.SocialRates) == 0 {
		return fmt.Errorf("discounting.social_rates must list at least one rate")
	}
	if n := len(c.Reports.ModelYears); n != 0 && n != 2 {
		return fmt.Errorf("reports.model_years must be [first, last], got %d values", n)
	}
	if c.OffCycle.CostPerCredit < 0 {
		return fmt.Errorf("off_cycle.cost_per_credit must not be negative")
	}
	switch c.Storage.Backend {
	case "local", "s3", "gcs":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.RunLog.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unknown runlog driver %q", c.RunLog.Driver)
	}
	return nil
}

// Options converts the configuration into pipeline options.
func (c *Config) Options() bca.Options {
	return bca.Options{
		Baseline:         c.Baseline,
		Categories:       c.Categories,
		DiscountYear:     c.Discounting.DiscountYear,
		Timing:           discount.Timing(c.Discounting.CostsStart),
		SocialRates:      c.Discounting.SocialRates,
		SummaryStartYear: c.Reports.SummaryStartYear,
		ModelYears:       c.Reports.ModelYears,
		CostsExclude:     c.Reports.CostsExclude,
		EffectsExclude:   c.Reports.EffectsExclude,
		Effects:          c.Effects,

		OffCycleCostPerCredit: c.OffCycle.CostPerCredit,
	}
}

// FindConfigFile looks for .bcaengine/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".bcaengine", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CacheDir returns the cache directory for a project directory.
// Uses ~/.cache/bcaengine/<project-slug>/ to avoid polluting the project.
func CacheDir(projectPath string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "bcaengine", projectSlug(projectPath))
}

// RunLogPath returns the default SQLite run log for a project directory.
func RunLogPath(projectPath string) string {
	return filepath.Join(CacheDir(projectPath), "runs.db")
}

// projectSlug creates a filesystem-safe identifier from a project path.
// Uses the last two path components (e.g., "user_analysis" from "/home/user/analysis").
func projectSlug(projectPath string) string {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		abs = projectPath
	}
	dir := filepath.Base(filepath.Dir(abs))
	base := filepath.Base(abs)
	return dir + "_" + base
}
