package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bcaengine/bcaengine/internal/logging"
	"github.com/bcaengine/bcaengine/internal/platform"
	"github.com/bcaengine/bcaengine/internal/runlog"
	"github.com/bcaengine/bcaengine/pkg/config"
)

// setup loads the config named by --config, or the one discovered from the
// working directory, and initializes logging.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path := flagString(cmd, "config")
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.FindConfigFile(wd)
		}
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, zerolog.Nop(), err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config %s: %w", firstNonEmpty(path, "defaults"), err)
	}

	log := logging.Init(firstNonEmpty(flagString(cmd, "log-level"), cfg.Logging.Level))
	if path != "" {
		log.Debug().Str("path", path).Msg("config loaded")
	}
	return cfg, log, nil
}

// openRunLog opens the configured run log. An empty SQLite DSN uses the
// per-project cache directory.
func openRunLog(cfg *config.Config) (*runlog.Store, error) {
	dsn := cfg.RunLog.DSN
	if cfg.RunLog.Driver == platform.DriverSQLite && dsn == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dsn = config.RunLogPath(wd)
	}
	if cfg.RunLog.Driver == platform.DriverSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating run log directory: %w", err)
		}
	}
	return runlog.Open(cfg.RunLog.Driver, dsn)
}

// flagString reads a string flag, including inherited persistent flags.
// Missing flags read as "".
func flagString(cmd *cobra.Command, name string) string {
	f := cmd.Flag(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
