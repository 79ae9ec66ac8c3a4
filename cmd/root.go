package cmd

import (
	"fmt"
	"os"

	"github.com/bjornbryggman/eu4-modding-tools/internal/config"
	"github.com/bjornbryggman/eu4-modding-tools/internal/logging"
	"github.com/bjornbryggman/eu4-modding-tools/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "eu4tools",
	Short:         "Import EU4 map data, generate province art and patch game files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// API keys live in .env; a missing file is fine.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}

		if !cmd.Flags().Changed("data-dir") {
			dataDir = cfg.Data.Dir
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		b := logging.New().Level(level).Console(cfg.Log.Format == "console")
		if cfg.Log.File != "" {
			b = b.FromPath(cfg.Log.File)
		}
		logger, err = b.Make()
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logger.Debug().Str("config", configPath).Msg(cfg.String())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			return logger.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "Directory holding the database and downloads")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func openStore() (*store.Store, error) {
	return store.Open(dataDir, cfg.Data.Driver, cfg.Data.File)
}

func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
