package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/seantiz/podfree/internal/config"
	"github.com/seantiz/podfree/internal/engine"
	"github.com/seantiz/podfree/internal/jobs"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(strings.TrimSpace(*c.configFlag))
	})
	return c.config, c.configErr
}

// logger writes structured logs to w at the configured level.
func (c *commandContext) logger(w io.Writer) *slog.Logger {
	return config.NewLogger(w, c.config.LogLevel)
}

// newEngine builds an engine with a fresh registry from the loaded config.
func (c *commandContext) newEngine(logger *slog.Logger) *engine.Engine {
	cfg := c.config
	return engine.New(jobs.NewRegistry(logger), engine.Config{
		FFmpeg:     cfg.FFmpeg,
		FFprobe:    cfg.FFprobe,
		Python:     cfg.Python,
		ScriptsDir: cfg.ScriptsDir,
	}, logger)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "podfree",
		Short:         "Podcast media job engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newSegmentsCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))

	return rootCmd
}
