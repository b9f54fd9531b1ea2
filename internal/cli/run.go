package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/surgekit/surgekit/internal/client"
	"github.com/surgekit/surgekit/internal/config"
	"github.com/surgekit/surgekit/internal/loadgen"
	"github.com/surgekit/surgekit/internal/output"
	"github.com/surgekit/surgekit/internal/report"
	"github.com/surgekit/surgekit/internal/scenario"
)

var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one benchmark scenario against a target",
		Long: `Run a single benchmark scenario until its duration elapses and print
the resulting statistics.

Examples:
  surgekit run --test rest-read --base-url https://localhost:8443 \
    --auth admin:admin --insecure

  surgekit run --test ws --duration 60 --vus 100 --config bench.yaml`,
		RunE: runBenchmark,
	}

	cmd.Flags().String("test", "", "test identifier (see 'surgekit list')")
	cmd.Flags().Int("duration", 0, "load phase duration in seconds")
	cmd.Flags().Int("vus", 0, "number of virtual users")
	cmd.Flags().String("base-url", "", "target base address")
	cmd.Flags().String("auth", "", "basic-auth credentials as user:pass")
	cmd.Flags().String("config", "", "optional YAML config file")
	cmd.Flags().Bool("insecure", false, "skip TLS certificate verification (benchmark targets only)")
	cmd.Flags().Bool("no-report", false, "do not persist the summary to the target")
	cmd.Flags().Bool("json", false, "print the summary as JSON")
	cmd.Flags().Bool("quiet", false, "suppress progress output")
	cmd.Flags().Bool("no-color", false, "disable colored output")
	return cmd
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, def, err := resolveRunConfig(cmd)
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")
	noReport, _ := cmd.Flags().GetBool("no-report")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []client.Option{}
	if cfg.Username != "" || cfg.Password != "" {
		opts = append(opts, client.WithBasicAuth(cfg.Username, cfg.Password))
	}
	if cfg.Insecure {
		opts = append(opts, client.WithInsecureTLS())
	}
	c := client.New(cfg.BaseURL, opts...)
	defer c.CloseIdleConnections()

	printer := output.NewPrinter(cmd.OutOrStdout(), noColor)
	if !quiet && !jsonOut {
		printer.Header(def.Name, cfg)
	}

	env := &scenario.Env{Client: c, Config: cfg}
	if def.Setup != nil {
		if !quiet && !jsonOut {
			fmt.Fprintln(cmd.OutOrStdout(), "Setup: seeding test data...")
		}
		// A failed precondition makes every downstream measurement
		// meaningless, so setup errors abort before any load starts.
		if err := def.Setup(ctx, env); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
	}

	sched := loadgen.NewScheduler(cfg, c)

	progressDone := make(chan struct{})
	if !quiet && !jsonOut {
		go showProgress(ctx, printer, sched.Metrics(), cfg.Duration, progressDone)
	} else {
		close(progressDone)
	}

	var agg *loadgen.Aggregator
	var elapsed time.Duration
	if def.Stream != nil {
		dial, publish := def.Stream(env)
		agg, elapsed = sched.RunStream(ctx, dial, publish)
	} else {
		agg, elapsed = sched.Run(ctx, def.Workload)
	}
	<-progressDone

	summary := loadgen.Summarize(agg.Snapshot(), elapsed)

	if jsonOut {
		if err := printer.JSON(summary); err != nil {
			return err
		}
	} else {
		printer.Summary(cfg.TestID, summary)
	}

	if !noReport {
		report.New(c).Report(ctx, cfg.TestID, summary)
	}
	return nil
}

// resolveRunConfig merges flags, the optional config file and the
// scenario defaults into a validated RunConfig. Precedence: flags win
// over the file, the file wins over defaults.
func resolveRunConfig(cmd *cobra.Command) (*loadgen.RunConfig, *scenario.Definition, error) {
	testID, _ := cmd.Flags().GetString("test")
	if testID == "" {
		return nil, nil, fmt.Errorf("--test is required (see 'surgekit list')")
	}
	def, ok := scenario.Lookup(testID)
	if !ok {
		return nil, nil, fmt.Errorf("unknown test %q (see 'surgekit list')", testID)
	}

	var file *config.File
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if file, err = config.Load(path); err != nil {
			return nil, nil, err
		}
	}

	duration := scenario.DefaultDuration
	vus := scenario.DefaultVUs
	baseURL := ""
	auth := ""
	insecure := false

	if file != nil {
		baseURL = file.BaseURL
		auth = file.Auth
		insecure = file.Insecure
		if o, ok := file.Tests[testID]; ok {
			if o.Duration > 0 {
				duration = time.Duration(o.Duration) * time.Second
			}
			if o.VUs > 0 {
				vus = o.VUs
			}
		}
	}

	if cmd.Flags().Changed("duration") {
		secs, _ := cmd.Flags().GetInt("duration")
		if secs < 0 {
			return nil, nil, fmt.Errorf("duration must be >= 0, got %d", secs)
		}
		duration = time.Duration(secs) * time.Second
	}
	if cmd.Flags().Changed("vus") {
		vus, _ = cmd.Flags().GetInt("vus")
	}
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		baseURL = v
	}
	if v, _ := cmd.Flags().GetString("auth"); v != "" {
		auth = v
	}
	if v, _ := cmd.Flags().GetBool("insecure"); v {
		insecure = true
	}

	user, pass, err := loadgen.SplitAuth(auth)
	if err != nil {
		return nil, nil, err
	}

	cfg := &loadgen.RunConfig{
		TestID:   testID,
		VUs:      vus,
		Duration: duration,
		BaseURL:  baseURL,
		Username: user,
		Password: pass,
		Insecure: insecure,
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, def, nil
}

// showProgress prints one live status line per second until the run's
// nominal end.
func showProgress(ctx context.Context, printer *output.Printer, agg *loadgen.Aggregator, total time.Duration, done chan<- struct{}) {
	defer close(done)

	start := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		// Check before blocking so zero and sub-tick durations exit
		// without waiting out a full ticker interval.
		if time.Since(start) >= total {
			printer.ProgressDone()
			return
		}
		select {
		case <-ctx.Done():
			printer.ProgressDone()
			return
		case <-ticker.C:
			printer.Progress(agg.Live(), time.Since(start), total)
		}
	}
}
