package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arhamfareed106/Social-Network-Platform/internal/config"
	"github.com/arhamfareed106/Social-Network-Platform/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Room-scoped real-time chat server",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (default ./config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newTokenCmd(opts),
		newRoomsCmd(opts),
	)
	return cmd
}

// load resolves configuration and a logger shared by every subcommand.
func (o *rootOptions) load(overrides config.Config) (*config.Config, *zerolog.Logger, error) {
	bootstrap := log.NewWithWriter(os.Stderr, o.logLevel)

	cfg, path, err := config.Load(bootstrap, o.configPath)
	if err != nil {
		return nil, nil, err
	}
	overrides.LogLevel = firstNonEmpty(o.logLevel, overrides.LogLevel)
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config_path", path).Msg("configuration loaded")
	return &cfg, logger, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
