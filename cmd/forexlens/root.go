package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ForexLens/internal/config"
	"ForexLens/internal/notifier"
)

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		cfg     *config.Config
	)
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}

	root := &cobra.Command{
		Use:           "forexlens",
		Short:         "Forex and crypto market analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			setupLogging(c.Log.Level)
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the report and monitor jobs on their cron schedules",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDaemon(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "analyze",
			Short: "Run one batch report and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cfg)
				if err != nil {
					return err
				}
				defer a.Close()
				run, err := a.sched.RunReport(cmd.Context())
				if err != nil {
					return err
				}
				log.Info().Str("run_id", run.ID).Int("pairs", len(run.Analyses)).Msg("report written")
				return nil
			},
		},
		&cobra.Command{
			Use:   "monitor",
			Short: "Run one realtime monitor tick and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cfg)
				if err != nil {
					return err
				}
				defer a.Close()
				tick, err := a.sched.RunMonitor(cmd.Context())
				if err != nil {
					return err
				}
				if len(tick.Arbitrage) == 0 {
					fmt.Println(notifier.PlainText(notifier.FormatRollups(tick.Rollups)))
					return nil
				}
				fmt.Println(notifier.PlainText(notifier.FormatMonitorAlert(tick.At, tick.Arbitrage, tick.Rollups)))
				return nil
			},
		},
	)
	return root
}

// setupLogging writes human-readable logs to a terminal and JSON otherwise.
func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
