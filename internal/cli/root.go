// Package cli implements the ecoseed command tree.
package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/ecoseed/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ecoseed",
	Short: "Eco-Seed reward points ledger",
	Long: `ecoseed keeps an append-only log of Eco-Seed postings per member and
serves it over HTTP. The administrative commands operate on the same store
the server uses.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to a TOML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, configError(err)
	}
	return cfg, nil
}

func configError(err error) error {
	type multi interface{ Unwrap() []error }
	m, ok := err.(multi)
	if !ok {
		return err
	}
	msg := "configuration validation failed:"
	for _, e := range m.Unwrap() {
		msg += "\n- " + e.Error()
	}
	return errors.New(msg)
}

// newLogger builds the process logger from cfg.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := cfg.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
