package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"bsub/internal/apperrors"
	"bsub/internal/config"
	"bsub/internal/health"
	"bsub/internal/logging"
	"bsub/internal/lsf"
	"bsub/internal/observability"
	"bsub/pkg/backoff"
)

const version = "0.3.0"

type globalFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string
}

type cli struct {
	runner lsf.Runner

	cfg      *config.Config
	defaults lsf.Options
	logger   *slog.Logger
	client   *lsf.Client
	server   *http.Server
}

// newCLI creates the command tree. A nil runner executes commands through
// the configured shell.
func newCLI(runner lsf.Runner) *cli {
	return &cli{runner: runner}
}

func (c *cli) rootCmd() *cobra.Command {
	flags := &globalFlags{}

	command := &cobra.Command{
		Use:          "bsub",
		Short:        "Submit, chain, wait for and terminate LSF jobs",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd, flags)
		},
	}

	command.AddCommand(
		c.submitCmd(),
		c.thenCmd(),
		c.waitCmd(),
		c.killCmd(),
		c.jobsCmd(),
		c.checkCmd(),
	)

	command.CompletionOptions.HiddenDefaultCmd = true
	command.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.Validation("flags", err.Error())
	})

	pf := command.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to YAML config (default $BSUB_CONFIG)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	return command
}

// setup loads configuration and builds the scheduler client.
func (c *cli) setup(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return apperrors.Validation("config", err.Error())
	}

	pf := cmd.Flags()
	override(pf, "log-level", &cfg.LogLevel, flags.logLevel)
	override(pf, "log-format", &cfg.LogFormat, flags.logFormat)
	override(pf, "metrics-addr", &cfg.MetricsAddr, flags.metricsAddr)

	c.cfg = cfg
	c.logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

	c.defaults, err = lsf.OptionsFrom(cfg.Defaults)
	if err != nil {
		return apperrors.Validation("defaults", err.Error())
	}

	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		metrics, err = c.serveMetrics(cmd.Context(), cfg.MetricsAddr)
		if err != nil {
			return err
		}
	}

	c.client = lsf.NewClient(lsf.Config{
		Shell:     cfg.Shell,
		SubmitBin: cfg.SubmitBin,
		ListBin:   cfg.ListBin,
		KillBin:   cfg.KillBin,
		Backoff: backoff.Config{
			Initial: cfg.Poll.Initial,
			Step:    cfg.Poll.Step,
			Max:     cfg.Poll.Max,
		},
		PollMode: lsf.PollMode(cfg.Poll.Mode),
		Runner:   c.runner,
		Logger:   c.logger,
		Metrics:  metrics,
	})
	return nil
}

// usageArgs reports positional argument errors as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return apperrors.Validation("args", err.Error())
		}
		return nil
	}
}

func override(fs *pflag.FlagSet, name string, dst *string, value string) {
	if fs.Changed(name) {
		*dst = value
	}
}

// serveMetrics starts the metrics endpoint in the background.
func (c *cli) serveMetrics(ctx context.Context, addr string) (*observability.Metrics, error) {
	metrics, handler, err := observability.NewMetrics(ctx)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", handler)
	c.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		c.logger.Info("Starting metrics server", "addr", addr)
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Metrics server failed", "error", err)
		}
	}()

	return metrics, nil
}

// close stops the metrics server, if any.
func (c *cli) close() {
	if c.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.logger.Error("Metrics server shutdown error", "error", err)
	}
}

// jobFlags are shared by submit and then.
type jobFlags struct {
	script  string
	options []string
	flags   []string
	verbose bool
}

func (f *jobFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.script, "script", "", "Script fed to the scheduler when no command is given")
	fs.StringArrayVarP(&f.options, "option", "O", nil, "Scheduler option as key=value (repeatable)")
	fs.StringArrayVar(&f.flags, "flag", nil, "Scheduler option without an argument, e.g. K (repeatable)")
	fs.BoolVar(&f.verbose, "verbose", false, "Log the full submission command")
}

func (f *jobFlags) parse() (lsf.Options, error) {
	return parseOptions(f.options, f.flags)
}

// parseOptions turns key=value pairs and bare flag names into Options.
func parseOptions(pairs, flags []string) (lsf.Options, error) {
	opts := make(lsf.Options, len(pairs)+len(flags))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimLeft(strings.TrimSpace(k), "-")
		if !ok || k == "" {
			return nil, apperrors.Validation("option", fmt.Sprintf("option %q is not key=value", p))
		}
		opts[k] = lsf.ParseValue(v)
	}
	for _, f := range flags {
		k := strings.TrimLeft(strings.TrimSpace(f), "-")
		if k == "" {
			return nil, apperrors.Validation("flag", "empty flag name")
		}
		opts[k] = lsf.Flag()
	}
	return opts, nil
}

func (c *cli) submitCmd() *cobra.Command {
	jf := &jobFlags{}
	var jobCap int

	command := &cobra.Command{
		Use:     "submit [flags] NAME [-- COMMAND...]",
		Short:   "Submit a job and print its id",
		Example: "  bsub submit -O q=short -O R='rusage[mem=1000]' align -- bwa mem ref.fa reads.fq",
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := jf.parse()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("cap") {
				jobCap = c.cfg.JobCap
			}

			job := lsf.NewJob(args[0],
				lsf.WithLogDir(c.cfg.LogDir),
				lsf.WithScript(jf.script),
				lsf.WithOptions(c.defaults.Merge(opts)),
				lsf.WithVerbose(jf.verbose || c.cfg.Verbose),
			)

			input := strings.Join(args[1:], " ")
			if err := c.client.Submit(cmd.Context(), job, input, lsf.SubmitOptions{JobCap: jobCap}); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), job.ID)
			return nil
		},
	}

	jf.register(command.Flags())
	command.Flags().IntVar(&jobCap, "cap", 0, "Wait until fewer than N jobs are unfinished before submitting (default from config)")

	return command
}

func (c *cli) thenCmd() *cobra.Command {
	jf := &jobFlags{}

	command := &cobra.Command{
		Use:     "then [flags] JOBID NAME [-- COMMAND...]",
		Short:   "Submit a job that starts once JOBID is done",
		Example: "  bsub then 4242 merge -- samtools merge out.bam *.bam",
		Args:    usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := jf.parse()
			if err != nil {
				return err
			}

			prev := lsf.NewJob(args[1],
				lsf.WithLogDir(c.cfg.LogDir),
				lsf.WithScript(jf.script),
				lsf.WithOptions(c.defaults),
				lsf.WithVerbose(jf.verbose || c.cfg.Verbose),
			)
			prev.ID = args[0]

			next, err := c.client.Then(cmd.Context(), prev, strings.Join(args[2:], " "), lsf.ThenOptions{
				Name:    args[1],
				Options: opts,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), next.ID)
			return nil
		},
	}

	jf.register(command.Flags())

	return command
}

func (c *cli) waitCmd() *cobra.Command {
	var (
		timeout time.Duration
		mode    string
	)

	command := &cobra.Command{
		Use:     "wait [flags] JOBID...",
		Short:   "Block until every job has finished",
		Example: "  bsub wait --timeout 2h 4242 4243",
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.client.Wait(cmd.Context(), args, lsf.WaitOptions{
				Timeout: timeout,
				Mode:    lsf.PollMode(mode),
			})
		},
	}

	command.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	command.Flags().StringVar(&mode, "mode", "", "Completion check: history (bjobs -a) or running (bjobs)")

	return command
}

func (c *cli) killCmd() *cobra.Command {
	command := &cobra.Command{
		Use:     "kill [flags] TARGET...",
		Short:   "Terminate jobs by id or name",
		Example: "  bsub kill 4242 4243 align",
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.client.Kill(cmd.Context(), args...)
		},
	}

	return command
}

func (c *cli) jobsCmd() *cobra.Command {
	var all bool

	command := &cobra.Command{
		Use:   "jobs [flags]",
		Short: "List your jobs",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := c.client.Jobs(cmd.Context(), all)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "JOBID\tUSER\tSTAT\tQUEUE\tNAME\t\n")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", r.ID, r.User, r.Status, r.Queue, r.Name)
			}
			return w.Flush()
		},
	}

	command.Flags().BoolVarP(&all, "all", "a", false, "Include recently finished jobs")

	return command
}

func (c *cli) checkCmd() *cobra.Command {
	var asJSON bool

	command := &cobra.Command{
		Use:   "check [flags]",
		Short: "Check that the scheduler commands are available",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := health.NewChecker().
				Require("shell", health.Command(c.cfg.Shell)).
				Require("submit", health.Command(c.cfg.SubmitBin)).
				Require("list", health.Command(c.cfg.ListBin)).
				Require("kill", health.Command(c.cfg.KillBin)).
				Prefer("log_dir", health.WritableDir(c.cfg.LogDir)).
				Readiness(cmd.Context())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\t\n")
				for _, r := range resp.Checks {
					fmt.Fprintf(w, "%s\t%s\t%s\t\n", r.Name, r.Status, r.Message)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			if resp.Status == health.StatusUnhealthy {
				return errors.New("scheduler commands are not available")
			}
			return nil
		},
	}

	command.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return command
}
