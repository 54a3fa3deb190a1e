package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clarvo-ai/modelgen/internal/config"
	"github.com/clarvo-ai/modelgen/internal/logging"
)

var (
	cfgFile     string
	logLevel    string
	databaseURL string
	version     = "dev"
	commit      = "none"
	date        = "unknown"

	// Populated by PersistentPreRunE for every subcommand.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "modelgen",
	Short: "modelgen: Go model generator for PostgreSQL schemas",
	Long: `modelgen reflects a live PostgreSQL schema (tables, columns, foreign keys,
enum types, composite keys and join tables) and writes GORM model structs with
inferred relationships.

Running without a subcommand regenerates the models.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runGenerate,
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads .env and the config file, applies flag overrides and installs
// the logger.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}

	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if databaseURL != "" {
		c.Source.URL = databaseURL
	}

	level := c.Logging.Level
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	l, err := logging.Setup(level, c.Logging.Directory)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	slog.SetDefault(l)

	cfg, logger = c, l
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./modelgen.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (default: $DATABASE_URL)")
	addGenerateFlags(rootCmd)
}
