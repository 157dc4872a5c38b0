package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ThreatIngest/internal/config"
	"ThreatIngest/internal/infrastructure/scheduler"
	"ThreatIngest/internal/logging"
)

type cliState struct {
	configPath string
	app        *Application
	stdout     io.Writer
	opts       []Option
}

// NewRootCommand builds the threatingest CLI. opts are passed to every Application.
func NewRootCommand(opts ...Option) *cobra.Command {
	state := &cliState{stdout: os.Stdout, opts: opts}

	root := &cobra.Command{
		Use:           "threatingest",
		Short:         "Normalize security records and deliver them to Splunk, Postgres, Redis or files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&state.configPath, "config", "", "YAML config file (default $THREATINGEST_CONFIG)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text, json, pretty")
	pf.String("metrics-file", "", "write prometheus metrics to this textfile after the run")
	pf.String("splunk-host", "", "Splunk host")
	pf.Int("splunk-port", 0, "Splunk management port")
	pf.String("username", "", "Splunk username")
	pf.String("password", "", "Splunk password")
	pf.Bool("insecure", false, "skip TLS verification of the Splunk management port")

	root.AddCommand(newImportCommand(state), newFetchNewsCommand(state))
	return root
}

func newImportCommand(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the sample data files into the configured sink",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := state.app.Import(cmd.Context())
			return err
		},
	}

	f := cmd.Flags()
	f.String("index", "", "target Splunk index")
	f.String("data-dir", "", "directory holding the sample files")
	f.StringSlice("file", nil, "sample file to import (repeatable)")
	f.String("sink", "", "sink kind: splunk, postgres, redis, jsonl")
	f.String("target", "", "destination name (index, table, stream or file)")
	f.String("encoding", "", "payload encoding: raw, normalized")
	f.Int("concurrency", 0, "records delivered in parallel")
	return cmd
}

func newFetchNewsCommand(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch-news",
		Short: "Scrape security news and export them as JSON",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schedule, _ := cmd.Flags().GetBool("schedule"); schedule {
				return state.app.ScheduleNews(cmd.Context())
			}
			_, err := state.app.FetchNews(cmd.Context())
			return err
		},
	}

	f := cmd.Flags()
	f.String("type", "", "news type (category name), e.g. security")
	f.Int("limit", 0, "maximum number of articles")
	f.StringP("output", "o", "", `artifact path, "-" for stdout`)
	f.String("layout", "", "artifact layout: full, compact")
	f.String("sink", "", "also deliver articles to: splunk, postgres, redis, jsonl")
	f.String("target", "", "destination name for delivered articles")
	f.Bool("schedule", false, "keep running and export on the cron expression")
	f.String("cron", "", "cron expression used with --schedule")
	return cmd
}

// prepare loads config, applies flags that were set explicitly and validates.
func (s *cliState) prepare(cmd *cobra.Command) error {
	cfg := config.LoadFrom(s.configPath)
	applyFlags(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if schedule, _ := cmd.Flags().GetBool("schedule"); schedule {
		if err := scheduler.Validate(cfg.Scheduler.CronExpression); err != nil {
			return err
		}
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	opts := append([]Option{WithStdout(s.stdout)}, s.opts...)
	s.app = New(cfg, logger, opts...)
	logger.Debug("configuration loaded", "command", cmd.Name(), "run_id", s.app.RunID())
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	str := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetInt(name)
		}
	}

	str("log-level", &cfg.Logging.Level)
	str("log-format", &cfg.Logging.Format)
	str("metrics-file", &cfg.Metrics.File)
	str("splunk-host", &cfg.Splunk.Host)
	num("splunk-port", &cfg.Splunk.Port)
	str("username", &cfg.Splunk.Username)
	str("password", &cfg.Splunk.Password)
	if cmd.Flags().Changed("insecure") {
		cfg.Splunk.InsecureSkipVerify, _ = cmd.Flags().GetBool("insecure")
	}

	switch cmd.Name() {
	case "import":
		str("index", &cfg.Splunk.Index)
		str("data-dir", &cfg.Import.DataDir)
		if cmd.Flags().Changed("file") {
			cfg.Import.Files, _ = cmd.Flags().GetStringSlice("file")
		}
		str("sink", &cfg.Import.Sink)
		str("target", &cfg.Import.Target)
		str("encoding", &cfg.Import.Encoding)
		num("concurrency", &cfg.Import.Concurrency)
	case "fetch-news":
		str("type", &cfg.News.Type)
		num("limit", &cfg.News.Limit)
		str("output", &cfg.News.Output)
		str("layout", &cfg.News.Layout)
		str("sink", &cfg.News.Sink)
		str("target", &cfg.News.Target)
		str("cron", &cfg.Scheduler.CronExpression)
	}
}

// Execute runs the root command and returns the process exit code.
func Execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); IsFatal(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
