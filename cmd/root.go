package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/viewdef/internal/catalog"
	"github.com/agentic-research/viewdef/internal/config"
	"github.com/agentic-research/viewdef/internal/logger"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	noColor    bool

	cfg      *config.Config
	log      = zerolog.Nop()
	cat      *catalog.Catalog
	closeLog = func() error { return nil }
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default .viewdef.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

var rootCmd = &cobra.Command{
	Use:           "viewdef",
	Short:         "Validate, inspect and store structured view definitions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		cfg = loaded

		l, closeFn, err := logger.New(cfg.LoggerConfig())
		if err != nil {
			return err
		}
		log, closeLog = l, closeFn

		if cfg.Catalog.Path != "" {
			cat, err = catalog.Load(cfg.Catalog.Path)
		} else {
			cat, err = catalog.Default()
		}
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		log.Debug().Str("config", configPath).Str("store", cfg.Store.Driver).Msg("configured")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
