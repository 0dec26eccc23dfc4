// Command importer loads products from a delimited file into PostgreSQL.
//
// Usage:
//
//	importer [-test] [-format text|json|html] <file | s3://bucket/key>
//
// With -test no database connection is made; each kept row is printed
// instead of stored. The run summary is written to stdout, logs to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JonMunkholm/productimport/internal/config"
	"github.com/JonMunkholm/productimport/internal/importer"
	"github.com/JonMunkholm/productimport/internal/logging"
	"github.com/JonMunkholm/productimport/internal/source"
	"github.com/JonMunkholm/productimport/internal/store"
	"github.com/JonMunkholm/productimport/internal/web"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envLoaded := godotenv.Overload() == nil

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, envLoaded)
	stop()
	os.Exit(code)
}

type options struct {
	location string
	dryRun   bool
	format   string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.dryRun, "test", false, "validate and print rows without storing them")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "alias for -test")
	fs.StringVar(&opts.format, "format", "", "summary format: text, json or html (overrides IMPORT_REPORT_FORMAT)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: importer [-test] [-format text|json|html] <file | s3://bucket/key>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("exactly one input file is required")
	}
	opts.location = fs.Arg(0)
	return opts, nil
}

// run executes one import and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, envLoaded bool) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "importer: %v\n", err)
		return exitFatal
	}

	logging.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if envLoaded {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	formatSetting := cfg.Import.ReportFormat
	if opts.format != "" {
		formatSetting = opts.format
	}
	format, err := importer.ParseReportFormat(formatSetting)
	if err != nil {
		fmt.Fprintf(stderr, "importer: %v\n", err)
		return exitUsage
	}

	mode := importer.ModeCommit
	if opts.dryRun {
		mode = importer.ModeDryRun
	}

	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithFields(ctx, "source", opts.location, "mode", mode.String())
	logger.Debug("configuration loaded", "config", cfg.String())

	metrics := importer.NewMetrics()
	runnerOpts := []importer.Option{
		importer.WithOutput(stdout),
		importer.WithMetrics(metrics),
		importer.WithCreateTimeout(cfg.Import.CreateTimeout),
	}
	serverOpts := []web.Option{web.WithRunID(runID)}

	if mode == importer.ModeCommit {
		if err := cfg.RequireDatabase(); err != nil {
			logger.Error("cannot commit without a database", "error", err)
			return exitFatal
		}
	}

	rows, err := source.Open(ctx, opts.location, source.Options{
		Delimiter:   cfg.Import.Delimiter,
		MaxFileSize: cfg.Import.MaxFileSize,
		S3: source.S3Options{
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		},
	})
	if err != nil {
		logger.Error("failed to open source", "error", err)
		return exitFatal
	}
	defer rows.Close()

	var creator importer.Creator
	if mode == importer.ModeCommit {
		// An unreachable database is not fatal: each create fails on its own
		// and the run still ends with a summary.
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			logger.Error("invalid database configuration", "error", err)
			return exitFatal
		}
		defer pool.Close()
		creator = store.New(pool)
		serverOpts = append(serverOpts, web.WithDatabase(pool))
	}

	if cfg.Metrics.Addr != "" {
		server := web.NewServer(metrics.Registry, serverOpts...)
		if _, err := server.Start(cfg.Metrics.Addr); err != nil {
			logger.Error("failed to start metrics server", "addr", cfg.Metrics.Addr, "error", err)
			return exitFatal
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	logger.Info("import started", "columns", len(rows.Header()))

	runner := importer.NewRunner(creator, mode, runnerOpts...)
	summary, err := runner.Run(ctx, rows)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("import interrupted", "processed", summary.Total())
		} else {
			logger.Error("import aborted", "processed", summary.Total(), "error", err)
		}
		return exitFatal
	}
	summary.Source = opts.location

	if err := importer.WriteReport(ctx, stdout, format, summary); err != nil {
		logger.Error("failed to write report", "error", err)
		return exitFatal
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	return exitOK
}
