package cmd

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/hitcall/packages/bench"
	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	benchRequestsFlag  int
	benchMethodFlag    string
	benchFormFlag      bool
	benchMultipartFlag bool
	benchPartFlags     []string
	benchThresholdFlag string
	benchJSONFlag      bool
	benchWatchFlag     bool
)

var benchCmd = &cobra.Command{
	Use:   "bench <url> [items...]",
	Short: "Fire a batch of calls and summarize latency and outcomes",
	Long: `Fire a batch of calls at one endpoint through the asynchronous dispatcher
and print latency percentiles, throughput and the failure codes seen.

Items are the same as for get and post.

Thresholds:
  p50<100ms, p95<200ms, p99<500ms, max<1s, errors<1%, rps>50

With --watch the config file is watched and the batch runs again with the
new settings each time it changes.

Examples:
  hitcall bench https://api.example.com/health -n 500
  hitcall bench https://api.example.com/users -X POST name=lisi -n 200 --threshold "p95<200ms,errors<1%"
  hitcall bench https://api.example.com/health --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: benchCommand,
}

func init() {
	flags := benchCmd.Flags()
	flags.IntVarP(&benchRequestsFlag, "requests", "n", 100, "Number of calls to fire")
	flags.StringVarP(&benchMethodFlag, "method", "X", "GET", "GET or POST")
	flags.BoolVarP(&benchFormFlag, "form", "f", false, "Send fields as application/x-www-form-urlencoded")
	flags.BoolVarP(&benchMultipartFlag, "multipart", "m", false, "Send fields as multipart/form-data")
	flags.StringArrayVar(&benchPartFlags, "part", nil, "Multipart part written before the fields (repeatable)")
	flags.StringVar(&benchThresholdFlag, "threshold", "", "Pass/fail thresholds, comma separated")
	flags.BoolVar(&benchJSONFlag, "json", false, "Print the summary as JSON")
	flags.BoolVarP(&benchWatchFlag, "watch", "w", false, "Re-run whenever the config file changes")
	rootCmd.AddCommand(benchCmd)
}

func benchCommand(cmd *cobra.Command, args []string) error {
	if benchRequestsFlag < 1 {
		return newUsageError("--requests must be at least 1")
	}
	thresholds, err := bench.ParseThresholds(benchThresholdFlag)
	if err != nil {
		return newUsageError("invalid --threshold: %s", err)
	}
	kind, err := bodyKind(benchFormFlag, benchMultipartFlag)
	if err != nil {
		return err
	}

	watchPath := ""
	if benchWatchFlag {
		var ok bool
		watchPath, ok = configFlag, configFlag != ""
		if !ok {
			watchPath, ok = config.FindConfigFile(".")
		}
		if !ok {
			return newUsageError("--watch needs a config file")
		}
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	spec, err := newRequestSpec(benchMethodFlag, kind, args, benchPartFlags, s.resolver)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	runner := bench.NewRunner(s.clientOptions(s.cfg)...)
	reporter := bench.NewReporter(
		bench.WithWriter(cmd.OutOrStdout()),
		bench.WithNoColor(s.cfg.GetNoColor()),
	)

	run := func() error {
		if !benchJSONFlag {
			reporter.Header(version, spec.method, spec.url, benchRequestsFlag)
		}
		summary, err := runner.Run(ctx, benchRequestsFlag, spec.build)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}

		var results []bench.ThresholdResult
		if thresholds.HasThresholds() {
			results = thresholds.Evaluate(summary)
		}
		if benchJSONFlag {
			if err := reporter.JSONSummary(summary, results); err != nil {
				return err
			}
		} else {
			reporter.Summary(summary, results)
		}
		if !bench.AllPassed(results) {
			return withExitCode(ExitCallFailure, nil)
		}
		return nil
	}

	if !benchWatchFlag {
		return run()
	}
	return s.watchBench(ctx, watchPath, runner, run)
}

// watchBench runs the batch, then again on every config change, until ctx
// is cancelled. Flags given on the command line keep overriding the file.
func (s *session) watchBench(ctx context.Context, path string, runner *bench.Runner, run func() error) error {
	reloaded := make(chan *config.Config, 1)
	go func() {
		err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
			if err != nil {
				s.logger.WithError(err).Warn("config reload failed")
				return
			}
			// keep only the latest reload
			for {
				select {
				case reloaded <- cfg:
					return
				default:
				}
				select {
				case <-reloaded:
				default:
				}
			}
		})
		if err != nil {
			s.logger.WithError(err).Error("watching config failed")
		}
	}()

	w := s.cmd.OutOrStdout()
	for {
		if err := run(); err != nil {
			var ee *exitError
			if !errors.As(err, &ee) || ee.err != nil {
				s.out.FormatError(err)
			}
		}
		fmt.Fprintf(w, "\nWatching %s for changes (Ctrl+C to stop)...\n", path)

		select {
		case <-ctx.Done():
			return nil
		case cfg := <-reloaded:
			cfg = cfg.Merge(flagOverrides(s.cmd))
			runner.Reconfigure(s.clientOptions(cfg)...)
			runner.Metrics().Reset()
			s.logger.Info("config reloaded")
		}
	}
}
