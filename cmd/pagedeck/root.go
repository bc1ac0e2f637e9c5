package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/pagedeck/internal/config"
	logpkg "github.com/local/pagedeck/internal/logger"
	"github.com/local/pagedeck/internal/metrics"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	envFile  string
	logLevel string

	cfg cfgpkg.Config
)

var rootCmd = &cobra.Command{
	Use:   "pagedeck",
	Short: "Reorder, prune and export pages of PDF documents",
	Long: `pagedeck loads PDF documents into an editing session, renders a
thumbnail per page and exports the edited documents.

  pagedeck serve     run the HTTP API
  pagedeck export    edit and export documents in one shot`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		cfg = cfgpkg.FromEnv()
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := logpkg.Init(logpkg.FromConfig(cfg)); err != nil {
			return err
		}
		metrics.Init()
		log.Debug().Str("version", Version).Str("command", cmd.Name()).Msg("starting")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logpkg.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(serveCmd, exportCmd)
}
