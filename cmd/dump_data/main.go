package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lungsurv/config"
	"lungsurv/db"
	"lungsurv/logging"
	"lungsurv/pipeline"
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("load failed")

type options struct {
	configPath string
	table      string
	driver     string
	dsn        string
	database   string
	encoding   string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "dump-data [csv-path]",
		Short:         "Load a preprocessed CSV export into a relational table",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			job := jobFromConfig(cfg.Loader, opts)
			if len(args) == 1 {
				job.Source = args[0]
			}
			ing := pipeline.NewIngester(db.Open, out, logger)
			if _, err := ing.Run(cmd.Context(), job); err != nil {
				fmt.Fprintln(out, pipeline.Describe(job, err))
				logger.Debug("load failed", zap.Error(err))
				return errReported
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.Path(), "config file")
	flags.StringVar(&opts.table, "table", "", "destination table")
	flags.StringVar(&opts.driver, "driver", "", "database driver (mysql or sqlite3)")
	flags.StringVar(&opts.dsn, "dsn", "", "full connection string, overrides host and credentials")
	flags.StringVar(&opts.database, "database", "", "database name, or file path for sqlite3")
	flags.StringVar(&opts.encoding, "encoding", "", "csv character encoding")

	root.AddCommand(newWatchCmd(opts, out))
	return root
}

func newWatchCmd(opts *options, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Load every CSV written into a directory until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := pipeline.NewWatcher(pipeline.NewIngester(db.Open, out, logger), logger)
			return w.Watch(ctx, args[0], jobFromConfig(cfg.Loader, opts))
		},
	}
}

func setup(opts *options) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// jobFromConfig applies command-line overrides on top of the loader config.
func jobFromConfig(lc config.LoaderConfig, opts *options) pipeline.Job {
	job := pipeline.Job{
		Source:      lc.CSVPath,
		Encoding:    lc.Encoding,
		Table:       lc.Table,
		PreviewRows: lc.PreviewRows,
		Target: db.Target{
			Driver:   lc.Driver,
			DSN:      lc.DSN,
			Host:     lc.Host,
			Port:     lc.Port,
			Database: lc.Database,
			User:     lc.User,
			Password: lc.Password,
		},
	}
	if opts.table != "" {
		job.Table = opts.table
	}
	if opts.driver != "" {
		job.Target.Driver = opts.driver
	}
	if opts.dsn != "" {
		job.Target.DSN = opts.dsn
	}
	if opts.database != "" {
		job.Target.Database = opts.database
	}
	if opts.encoding != "" {
		job.Encoding = opts.encoding
	}
	return job
}

