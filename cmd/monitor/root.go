package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bjaus/monitor"
)

type rootOptions struct {
	configPath string
	verbosity  int
}

// NewRootCmd builds the monitor command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Chat bot event dispatcher",
		Long: `monitor routes chat messages to the built-in responders.

Use the console subcommand to talk to the bot from a terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (toml or yaml)")
	cmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	cmd.AddCommand(newConsoleCmd(opts))
	return cmd
}

// loadConfig reads the configuration and builds the logger it asks for.
func (o *rootOptions) loadConfig(stderr io.Writer) (monitor.Config, zerolog.Logger, error) {
	cfg, err := monitor.LoadConfig(o.configPath)
	if err != nil {
		return monitor.Config{}, zerolog.Nop(), err
	}
	return cfg, newLogger(stderr, cfg.LogLevel, o.verbosity), nil
}

// newLogger writes human readable logs to w. Each -v lowers the level one
// step below info; without -v the configured level applies.
func newLogger(w io.Writer, configured string, verbosity int) zerolog.Logger {
	level, err := zerolog.ParseLevel(configured)
	if err != nil || configured == "" {
		level = zerolog.WarnLevel
	}
	switch {
	case verbosity == 1:
		level = zerolog.InfoLevel
	case verbosity == 2:
		level = zerolog.DebugLevel
	case verbosity >= 3:
		level = zerolog.TraceLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		log = log.With().Caller().Logger()
	}
	return log
}
