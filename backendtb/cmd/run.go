package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/backendtb/backend"
	"github.com/sarchlab/backendtb/config"
	"github.com/sarchlab/backendtb/datarecording"
	"github.com/sarchlab/backendtb/harness"
	"github.com/sarchlab/backendtb/monitoring"
	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/trace"
	"github.com/sarchlab/backendtb/uop"
)

// Exit codes of the run command.
const (
	exitOK             = 0
	exitFault          = 1
	exitBudgetExceeded = 2
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reset the backend, drive a program and run until it halts.",
	Long: "`run` resets the backend, drives the program given by --program " +
		"(a built-in name or a YAML file) and steps until the backend halts " +
		"or --budget steps have passed. Settings not given as flags come " +
		"from BACKENDTB_* environment variables or the preset of the mode.",
	Run: func(cmd *cobra.Command, _ []string) {
		cfg, opts, err := buildConfig(cmd)
		if err != nil {
			log.Printf("Error: %v", err)
			atexit.Exit(exitFault)
		}

		res, err := runWith(cfg, opts, cmd.OutOrStdout())
		atexit.Exit(exitCode(cfg, res, err))
	},
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// runOptions are the settings of a single invocation that are not part of
// the run configuration.
type runOptions struct {
	openBrowser bool
	paused      bool
	keepMonitor bool
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.String("mode", "scalar", "Backend variant, scalar or queue")
	f.Int("reset-width", 0, "Steps the reset line is held (default from the mode preset)")
	f.Int("budget", 0, "Maximum run loop steps (default from the mode preset)")
	f.Int("settle", uop.DefaultSettleLatency, "Steps each program entry is held")
	f.Int("queue-depth", 0, "Queue-slot backend buffer depth")
	f.String("program", "", "Built-in program name or YAML program file")
	f.String("trace", trace.DefaultVCDFile, "Trace file path")
	f.String("trace-format", "vcd", "Comma separated trace formats: vcd, csv, sqlite, none")
	f.String("timescale", timing.DefaultTimescale.String(), "Trace timescale, e.g. 1ps or 10ns")
	f.Bool("strict", false, "Exit with code 2 when the budget runs out")
	f.Bool("quiet", false, "Do not print writebacks")
	f.String("record-db", "", "Record writebacks and phases into this SQLite database")
	f.Bool("monitor", false, "Serve the run state over HTTP")
	f.Int("monitor-port", 0, "Port of the monitoring server, 0 picks a free one")
	f.Bool("open-monitor", false, "Open the monitoring page in a browser")
	f.Bool("paused", false, "Start paused until continued from the monitor")
	f.Bool("keep-monitor", false, "Keep serving the monitor after the run until interrupted")
}

// buildConfig layers the mode preset, the environment and the changed flags.
func buildConfig(cmd *cobra.Command) (config.Config, runOptions, error) {
	var opts runOptions

	envFile, _ := cmd.Flags().GetString("env-file")

	var err error
	if envFile != "" {
		err = config.LoadDotEnv(envFile)
	} else {
		err = config.LoadDotEnv()
	}

	if err != nil {
		return config.Config{}, opts, err
	}

	mode, err := config.ModeFromEnv(os.LookupEnv, uop.ModeScalarPort)
	if err != nil {
		return config.Config{}, opts, err
	}

	f := cmd.Flags()
	if f.Changed("mode") {
		s, _ := f.GetString("mode")

		mode, err = uop.ParseMode(s)
		if err != nil {
			return config.Config{}, opts, err
		}
	}

	cfg := config.Preset(mode)
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, opts, err
	}

	ints := map[string]*int{
		"reset-width": &cfg.ResetWidth,
		"budget":      &cfg.Budget,
		"settle":      &cfg.SettleLatency,
		"queue-depth": &cfg.QueueDepth,
	}
	for name, dst := range ints {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}

	strs := map[string]*string{
		"program":   &cfg.Program,
		"trace":     &cfg.TracePath,
		"record-db": &cfg.RecordDB,
	}
	for name, dst := range strs {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}

	for name, dst := range map[string]*bool{"strict": &cfg.Strict, "quiet": &cfg.Quiet} {
		if f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}

	if f.Changed("trace-format") {
		s, _ := f.GetString("trace-format")

		cfg.TraceFormats, err = trace.ParseFormats(s)
		if err != nil {
			return cfg, opts, err
		}
	}

	if f.Changed("timescale") {
		s, _ := f.GetString("timescale")

		cfg.Timescale, err = timing.ParseTimescale(s)
		if err != nil {
			return cfg, opts, err
		}
	}

	monitor, _ := f.GetBool("monitor")
	if f.Changed("monitor-port") {
		cfg.MonitorPort, _ = f.GetInt("monitor-port")
	} else if monitor && cfg.MonitorPort < 0 {
		cfg.MonitorPort = 0
	}

	opts.openBrowser, _ = f.GetBool("open-monitor")
	opts.paused, _ = f.GetBool("paused")
	opts.keepMonitor, _ = f.GetBool("keep-monitor")

	return cfg, opts, cfg.Validate()
}

// runWith builds the backend and the harness described by cfg and performs
// one run. Writebacks are printed to out.
func runWith(
	cfg config.Config,
	opts runOptions,
	out io.Writer,
) (harness.Result, error) {
	p, err := cfg.LoadProgram()
	if err != nil {
		return harness.Result{}, err
	}

	model := backend.MakeBuilder().
		WithMode(cfg.Mode).
		WithQueueDepth(cfg.QueueDepth).
		Build("backend")

	encoder, err := uop.NewEncoder(cfg.Mode, cfg.SettleLatency)
	if err != nil {
		return harness.Result{}, err
	}

	sink := trace.NewSink(model, cfg.TracePath, cfg.Timescale, cfg.TraceFormats...)

	b := harness.MakeBuilder().
		WithUnit(model).
		WithEncoder(encoder).
		WithSink(sink, cfg.TracePath).
		WithResetWidth(cfg.ResetWidth).
		WithBudget(cfg.Budget).
		WithProgram(p.Entries...)

	if !cfg.Quiet {
		b = b.WithHook(harness.NewWritebackPrinter(out))
	}

	var execRecorder *datarecording.ExecRecorder

	if cfg.RecordDB != "" {
		writer := datarecording.NewSQLiteWriter(cfg.RecordDB)
		if err := writer.Init(); err != nil {
			return harness.Result{}, err
		}
		defer writer.Close()

		execRecorder = datarecording.NewExecRecorder(writer)
		execRecorder.Start()
		execRecorder.Set("Mode", cfg.Mode.String())
		execRecorder.Set("Program", p.Name)

		b = b.WithHook(harness.NewObservationRecorder(writer))
	}

	h := b.Build("Harness")

	if cfg.MonitorPort >= 0 {
		stop, err := startMonitor(h, model, cfg.MonitorPort, opts)
		if err != nil {
			return harness.Result{}, err
		}
		defer stop()
	}

	res, err := h.Run()

	if execRecorder != nil {
		execRecorder.Set("Outcome", outcomeText(res, err))
		execRecorder.Set("Steps", fmt.Sprint(res.Steps))
		execRecorder.End()
	}

	if err != nil {
		log.Printf("Error: run of %s failed at time %d: %v", p.Name, res.EndTime, err)
		return res, err
	}

	fmt.Fprintf(out, "Program %s %s after %d steps (%d in the run loop).\n",
		p.Name, res.Outcome, res.Steps, res.RunSteps)

	if res.Outcome == harness.OutcomeBudgetExhausted {
		log.Printf("Warning: budget of %d steps ran out before the backend halted",
			cfg.Budget)
	}

	return res, nil
}

func startMonitor(
	h *harness.Harness,
	model *backend.Model,
	port int,
	opts runOptions,
) (func(), error) {
	m := monitoring.NewMonitor().WithPortNumber(port)
	m.RegisterHarness(h, model)

	if opts.paused {
		m.Pause()
	}

	url, err := m.StartServer()
	if err != nil {
		return nil, err
	}

	if opts.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("Warning: cannot open %s: %v", url, err)
		}
	}

	return func() {
		if opts.keepMonitor {
			fmt.Fprintf(os.Stderr, "Run done, still serving %s. Press Ctrl+C to quit.\n", url)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			<-ctx.Done()
			cancel()
		}

		if err := m.StopServer(); err != nil {
			log.Printf("Warning: %v", errors.Wrap(err, "stopping monitor"))
		}
	}, nil
}

func outcomeText(res harness.Result, err error) string {
	if err != nil {
		return "fault: " + err.Error()
	}

	return res.Outcome.String()
}

// exitCode maps a run to the process exit code. Running out of budget is
// only an error in strict mode.
func exitCode(cfg config.Config, res harness.Result, err error) int {
	switch {
	case err != nil:
		return exitFault
	case res.Outcome == harness.OutcomeBudgetExhausted && cfg.Strict:
		return exitBudgetExceeded
	default:
		return exitOK
	}
}
