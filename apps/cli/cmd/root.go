package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
	"github.com/abdul-hamid-achik/hitcall/packages/core/env"
	"github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/abdul-hamid-achik/hitcall/packages/journal"
	"github.com/abdul-hamid-achik/hitcall/packages/output"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	journalFlag  string
	verboseFlag  bool
	noColorFlag  bool
	insecureFlag bool
	timeoutFlag  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "hitcall",
	Short: "Call JSON envelope APIs from the terminal.",
	Long: `hitcall sends GET and POST requests to APIs that answer with a
{"code", "message", "data"} envelope, and prints the data of a successful
call or the code and message of a failed one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(rootCmd.ErrOrStderr(), err))
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Config file (default: hitcall.config.json or .hitcall.yaml in the current directory)")
	flags.StringVar(&journalFlag, "journal", "", "SQLite file to record calls in")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Print call lines and debug logs")
	flags.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	flags.BoolVarP(&insecureFlag, "insecure", "k", false, "Skip TLS certificate verification")
	flags.DurationVar(&timeoutFlag, "timeout", 0, "Request timeout (e.g. 10s)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newUsageError("%s", err)
	})

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}
	return cfg.Merge(flagOverrides(cmd)), nil
}

// flagOverrides returns the settings given on the command line.
func flagOverrides(cmd *cobra.Command) *config.Config {
	flags := cmd.Flags()
	override := &config.Config{Journal: journalFlag}
	if flags.Changed("verbose") {
		override.Verbose = config.BoolPtr(verboseFlag)
	}
	if flags.Changed("no-color") {
		override.NoColor = config.BoolPtr(noColorFlag)
	}
	if insecureFlag {
		override.ValidateSSL = config.BoolPtr(false)
	}
	if timeoutFlag > 0 {
		override.Timeout = int(timeoutFlag.Milliseconds())
	}
	return override
}

// configDir is where relative paths of the config file are resolved.
func configDir() string {
	if configFlag != "" {
		return filepath.Dir(configFlag)
	}
	return "."
}

// session is the state one command invocation shares: the configured client,
// installed as the default, and the formatter it prints with.
type session struct {
	cmd      *cobra.Command
	cfg      *config.Config
	logger   *log.Logger
	client   *http.Client
	journal  *journal.Journal
	resolver *env.Resolver
	out      *output.ConsoleFormatter
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}

	level := log.WarnLevel
	if cfg.GetVerbose() {
		level = log.DebugLevel
	}
	s := &session{
		cmd:    cmd,
		cfg:    cfg,
		logger: &log.Logger{Handler: cli.New(cmd.ErrOrStderr()), Level: level},
		out: output.NewConsoleFormatter(
			output.WithWriter(cmd.OutOrStdout()),
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
		),
	}

	s.resolver = env.NewResolver()
	s.resolver.SetWarnFunc(s.logger.Warnf)
	envFile := cfg.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(configDir(), envFile)
	}
	if err := s.resolver.LoadFile(envFile); err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}

	if cfg.Journal != "" {
		s.journal, err = journal.Open(cfg.Journal, journal.WithLogger(s.logger))
		if err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
	}

	s.client = http.NewClient(s.clientOptions(cfg)...)
	http.InitClient(s.client)
	return s, nil
}

// clientOptions returns the options for a client built from cfg, logging and
// recording the way the session does.
func (s *session) clientOptions(cfg *config.Config) []http.ClientOption {
	opts := cfg.ClientOptions()
	opts = append(opts, http.WithLogger(s.logger))
	if s.journal != nil {
		opts = append(opts, http.WithRecorder(s.journal))
	}
	return opts
}

func (s *session) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}
