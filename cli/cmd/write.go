package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/tally/cli/config"
	"github.com/pithecene-io/tally/cli/render"
	"github.com/pithecene-io/tally/instrumented"
	"github.com/pithecene-io/tally/iox"
	"github.com/pithecene-io/tally/log"
	"github.com/pithecene-io/tally/metrics"
	"github.com/pithecene-io/tally/reporter"
	"github.com/pithecene-io/tally/state"
	"github.com/pithecene-io/tally/types"
)

// Exit codes for write.
const (
	exitWriteFailure = 1
	exitConfigError  = 2
	exitInputError   = 3
)

// maxLineSize bounds one JSON line of input.
const maxLineSize = 16 * 1024 * 1024

// WriteCommand returns the write command.
func WriteCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "JSON lines file to read records from (- for stdin)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to tally.yaml",
		},
		&cli.StringFlag{
			Name:  "sink",
			Usage: "Writer to send records to: memory, frames, or lode",
			Value: sinkMemory,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file for the frames sink",
		},
		&cli.BoolFlag{
			Name:  "instrumented-sink",
			Usage: "Use a self-instrumented sink (lode only)",
		},
		&cli.StringFlag{
			Name:  "lode-source",
			Usage: "Lode partition source",
			Value: "tally",
		},
		&cli.StringFlag{
			Name:  "lode-category",
			Usage: "Lode partition category",
			Value: "default",
		},
		// Writer state flags
		&cli.StringFlag{
			Name:  "job-name",
			Usage: "Job name, added to metric tags",
		},
		&cli.StringFlag{
			Name:  "job-id",
			Usage: "Job ID, added to metric tags",
		},
		&cli.StringFlag{
			Name:  "task-id",
			Usage: "Task ID, added to metric tags",
		},
		&cli.StringFlag{
			Name:  "metrics-context",
			Usage: "Metric context name",
		},
		&cli.StringSliceFlag{
			Name:  "tag",
			Usage: "Extra metric tag as key=value (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "no-metrics",
			Usage: "Disable instrumentation",
		},
		// Reporting flags
		&cli.StringFlag{
			Name:  "report",
			Usage: "Publish the metric report: redis or webhook",
		},
		&cli.StringFlag{
			Name:  "report-url",
			Usage: "Reporter URL (redis://host:port or http(s)://...)",
		},
		&cli.StringFlag{
			Name:  "report-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.DurationFlag{
			Name:  "report-interval",
			Usage: "Report periodically while writing (0 = final report only)",
		},
		&cli.StringFlag{
			Name:  "prom-file",
			Usage: "Write metrics in Prometheus text format to this file",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log at debug level",
		},
	}
	flags = append(flags, lodeFlags()...)

	return &cli.Command{
		Name:   "write",
		Usage:  "Write JSON line records through an instrumented writer",
		Flags:  withOutputFlags(flags...),
		Action: writeAction,
	}
}

// stringOr returns the flag value when set, else fallback when non-empty,
// else the flag default.
func stringOr(c *cli.Context, name, fallback string) string {
	if c.IsSet(name) || fallback == "" {
		return c.String(name)
	}
	return fallback
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// resolveState merges config state with flag overrides.
func resolveState(c *cli.Context, cfg *config.Config) (*state.State, error) {
	st, err := cfg.WriterState()
	if err != nil {
		return nil, err
	}

	overrides := map[string]string{
		"job-name":        state.KeyJobName,
		"job-id":          state.KeyJobID,
		"task-id":         state.KeyTaskID,
		"metrics-context": state.KeyMetricsContextName,
	}
	for flag, key := range overrides {
		if c.IsSet(flag) {
			st.Set(key, c.String(flag))
		}
	}
	if c.Bool("no-metrics") {
		st.Set(state.KeyMetricsEnabled, "false")
	}
	for _, tag := range c.StringSlice("tag") {
		k, v, ok := strings.Cut(tag, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --tag %q (format: key=value)", tag)
		}
		st.Set(state.KeyMetricsTagPrefix+k, v)
	}
	return st, nil
}

func resolveSinkChoice(c *cli.Context, cfg *config.Config) sinkChoice {
	sc, lc := cfg.Sink, cfg.Sink.Lode
	return sinkChoice{
		kind:         stringOr(c, "sink", sc.Type),
		output:       stringOr(c, "output", sc.Output),
		instrumented: c.Bool("instrumented-sink") || sc.Instrumented,
		lode: lodeChoice{
			dataset:       stringOr(c, "lode-dataset", lc.Dataset),
			source:        stringOr(c, "lode-source", lc.Source),
			category:      stringOr(c, "lode-category", lc.Category),
			day:           lc.Day,
			backend:       stringOr(c, "lode-backend", orDefault(lc.Backend, "fs")),
			path:          stringOr(c, "lode-path", lc.Path),
			region:        stringOr(c, "lode-s3-region", lc.Region),
			endpoint:      stringOr(c, "lode-s3-endpoint", lc.Endpoint),
			pathStyle:     c.Bool("lode-s3-path-style") || lc.S3PathStyle,
			commitTimeout: lc.CommitTimeout.Duration,
		},
	}
}

func resolveReportChoice(c *cli.Context, cfg *config.Config) reportChoice {
	rc := cfg.Reporter
	interval := rc.Interval.Duration
	if c.IsSet("report-interval") {
		interval = c.Duration("report-interval")
	}
	return reportChoice{
		kind:     stringOr(c, "report", rc.Type),
		url:      stringOr(c, "report-url", rc.URL),
		channel:  stringOr(c, "report-channel", rc.Channel),
		headers:  rc.Headers,
		timeout:  rc.Timeout.Duration,
		retries:  rc.Retries,
		interval: interval,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func writeAction(c *cli.Context) (err error) {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	st, err := resolveState(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	choice := resolveSinkChoice(c, cfg)
	if err := validateSinkChoice(choice); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	reportCfg := resolveReportChoice(c, cfg)
	if err := validateReportChoice(reportCfg); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	level := zapcore.InfoLevel
	if c.Bool("verbose") {
		level = zapcore.DebugLevel
	}
	logger := log.NewLoggerWithWriter(log.Identity{
		Writer: st.GetString(state.KeyMetricsContextName, instrumented.DefaultContextName),
		JobID:  st.GetString(state.KeyJobID, ""),
		TaskID: st.GetString(state.KeyTaskID, ""),
	}, c.App.ErrWriter, level)
	defer iox.DiscardErr(logger.Sync)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	opts := []instrumented.Option{
		instrumented.WithLogger(logger),
		instrumented.WithRegistry(registry),
		instrumented.WithRecordSize(recordSizer(choice.kind)),
	}

	sink, err := buildSink(ctx, choice, st, opts...)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open %s sink: %v", choice.kind, err), exitWriteFailure)
	}
	d := instrumented.NewDecorator(sink, st, opts...)
	defer iox.JoinErr(&err, d.Cleanup)

	rep, err := buildReporter(reportCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create reporter: %v", err), exitConfigError)
	}
	var scheduled *reporter.Scheduled
	if rep != nil {
		defer iox.DiscardClose(rep)
		scheduled = reporter.NewScheduled(rep, registry, reportCfg.interval, logger)
		if reportCfg.interval > 0 {
			if err := scheduled.Start(ctx); err != nil {
				return err
			}
		}
	}

	writeErr := writeRecords(ctx, c, d)
	if writeErr == nil {
		if cerr := d.Commit(); cerr != nil {
			writeErr = cli.Exit(fmt.Sprintf("commit failed: %v", cerr), exitWriteFailure)
		}
	}

	if scheduled != nil {
		if rerr := scheduled.Stop(context.WithoutCancel(ctx)); rerr != nil {
			logger.Warn("final metric report failed", map[string]any{"error": rerr.Error()})
		}
	}
	if path := c.String("prom-file"); path != "" {
		if perr := writePromFile(path, registry); perr != nil {
			logger.Warn("prometheus export failed", map[string]any{"error": perr.Error()})
		}
	}
	if writeErr != nil {
		return writeErr
	}

	bytes, err := d.BytesWritten()
	if err != nil {
		logger.Warn("bytes written unavailable", map[string]any{"error": err.Error()})
	}
	logger.Info("write complete", map[string]any{
		"sink":    choice.kind,
		"records": d.RecordsWritten(),
	})

	return r.Render(WriteResult{
		Sink:             choice.kind,
		Records:          d.RecordsWritten(),
		Bytes:            bytes,
		SinkInstrumented: d.IsEmbeddedInstrumented(),
		Metrics:          d.MetricContext().Snapshot(),
	})
}

// writeRecords streams JSON lines from --input into w.
func writeRecords(ctx context.Context, c *cli.Context, w interface{ Write(types.Record) error }) error {
	in, closeIn, err := openInput(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInputError)
	}
	defer closeIn()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return cli.Exit("interrupted", exitWriteFailure)
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec types.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return cli.Exit(fmt.Sprintf("input line %d: invalid JSON object: %v", line, err), exitInputError)
		}
		if err := w.Write(rec); err != nil {
			return cli.Exit(fmt.Sprintf("write failed at input line %d: %v", line, err), exitWriteFailure)
		}
	}
	if err := scanner.Err(); err != nil {
		return cli.Exit(fmt.Sprintf("read input: %v", err), exitInputError)
	}
	return nil
}

func openInput(c *cli.Context) (io.Reader, func(), error) {
	path := c.String("input")
	if path == "-" {
		return c.App.Reader, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("input file not found: %s", path)
		}
		return nil, nil, fmt.Errorf("cannot open input %q: %w", path, err)
	}
	return f, func() { iox.DiscardClose(f) }, nil
}
