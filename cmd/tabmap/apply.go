package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/user/tabmap"
	"github.com/user/tabmap/pkg/engine"
)

var (
	outputPath string
	schedule   string
)

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVarP(&mappingPath, "mapping", "m", "mapping.yaml", "mapping document")
	applyCmd.Flags().StringVarP(&sourcePath, "source", "s", "", "source workbook")
	applyCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output workbook (.xlsx), local path, ftp:// URL or s3://bucket/key")
	applyCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression; repeat the run on this schedule until interrupted")
	applyCmd.Flags().String("metrics-textfile", "", "write prometheus metrics to this file after each run")
	applyCmd.MarkFlagRequired("source")
	applyCmd.MarkFlagRequired("output")
	bindFlag("metrics.textfile", applyCmd.Flags().Lookup("metrics-textfile"))
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Transform the source workbook and write the output workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadSpec()
		if err != nil {
			return err
		}
		e := newEngine()
		run := func(ctx context.Context) error {
			report, err := e.Apply(ctx, spec, outputPath)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			if werr := writeMetrics(); werr != nil {
				logger.Warn("Failed to write metrics", "path", cfg.Metrics.Textfile, "error", werr)
			}
			return err
		}

		if schedule == "" {
			return run(cmd.Context())
		}
		return runScheduled(cmd.Context(), schedule, run)
	},
}

// runScheduled runs fn on every tick of spec until ctx is done. Failed runs
// are logged and do not stop the schedule.
func runScheduled(ctx context.Context, spec string, fn func(context.Context) error) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	c := newScheduler()
	if _, err := c.AddFunc(spec, func() {
		if err := fn(ctx); err != nil {
			logger.Error("Scheduled run failed", "schedule", spec, "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule run: %w", err)
	}
	c.Start()
	logger.Info("Waiting for scheduled runs", "schedule", spec)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// newScheduler returns a cron whose jobs skip a tick while the previous run
// of the same job is still going.
func newScheduler() *cron.Cron {
	return cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
}

// cronLogger adapts the CLI logger to cron.Logger.
type cronLogger struct {
	l tabmap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Info("Scheduler: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("Scheduler: "+msg, append(keysAndValues, "error", err)...)
}

func printReport(w io.Writer, report *engine.Report) {
	for _, s := range report.Sheets {
		fmt.Fprintf(w, "%s: read %d, written %d, dropped %d", s.Sheet, s.RowsRead, s.RowsWritten, s.RowsDropped)
		if s.Err != nil {
			fmt.Fprintf(w, ", error: %v", s.Err)
		}
		fmt.Fprintln(w)
	}
	if report.OutputPath != "" {
		fmt.Fprintf(w, "Wrote %s\n", report.OutputPath)
	}
}

func writeMetrics() error {
	if cfg.Metrics.Textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(cfg.Metrics.Textfile, prometheus.DefaultGatherer)
}
