// Command residency runs the residency matching server and its batch jobs.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meur/residency/internal/allocation"
	"github.com/meur/residency/internal/config"
	"github.com/meur/residency/internal/logging"
	"github.com/meur/residency/internal/storage"
)

var (
	// configPath points at an optional YAML config file
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "residency",
	Short: "Residency matching server",
	Long: `residency serves the ranking boards and runs interview allocation and final matching.

Configuration comes from defaults, an optional YAML file, .env and RESIDENCY_* environment
variables, in increasing order of precedence.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "residency.yaml", "config file (optional)")
}

// setup loads configuration and builds the logger shared by every command
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

// openStore opens the configured database, creating the sqlite directory if needed
func openStore(cfg *config.Config) (*storage.Store, error) {
	if cfg.Database.Driver == storage.DriverSQLite {
		path, _, _ := strings.Cut(cfg.Database.DSN, "?")
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	return storage.New(cfg.Database.Driver, cfg.Database.DSN)
}

func limits(cfg *config.Config) allocation.Limits {
	return allocation.Limits{
		InterviewsPerStudent: cfg.Allocation.InterviewsPerStudent,
		InterviewsPerCompany: cfg.Allocation.InterviewsPerCompany,
		PositionsPerCompany:  cfg.Allocation.PositionsPerCompany,
	}
}
