package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/gopkg"
	"github.com/teranos/genpipe/history"
	"github.com/teranos/genpipe/internal/sysmem"
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/middleware"
	"github.com/teranos/genpipe/output"
	"github.com/teranos/genpipe/pipeline"
	"github.com/teranos/genpipe/version"
	"github.com/teranos/genpipe/watch"
)

// RunCmd runs the configured targets against the configured packages.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run targets against Go packages",
	Long: `Run every selected target against every package matched by the patterns.

Flags override the configuration file for this run only.

Exit codes:
  0    no errors
  1    the run reported errors
  2    a generator faulted, or the configuration is invalid
  3    --check found stale or missing files
  130  the run was interrupted

Examples:
  genpipe run                              # All targets, all packages
  genpipe run -t typescript -p ./api/...   # One target, one subtree
  genpipe run --check                      # CI: verify generated files
  genpipe run --s3                         # Upload artifacts to S3/MinIO
  genpipe run --watch                      # Rerun on source changes`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

// runOptions holds the flags that are not plain config overrides.
type runOptions struct {
	check     bool
	watch     bool
	noHistory bool
	json      bool
	skip      []string

	// trace logs every middleware step of every invocation (-vvv)
	trace bool
}

var runFlags runOptions

func init() {
	addRunFlags(RunCmd, &runFlags)
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	f := cmd.Flags()
	f.StringP("dir", "d", "", "Module directory packages are resolved from")
	f.StringSliceP("packages", "p", nil, "Package patterns (default ./...)")
	f.StringSliceP("targets", "t", nil, "Targets to run (default: all registered)")
	f.Bool("sequential", false, "Run one (package, target) pair at a time")
	f.Bool("include-generated", false, "Also run against generated packages")
	f.StringP("output", "o", "", "Output directory")
	f.Bool("s3", false, "Upload artifacts to the configured S3 bucket")
	f.Int("max-workers", 0, "Maximum concurrent invocations (0 = unbounded)")
	f.Duration("timeout", 0, "Per-invocation timeout (0 = none)")
	f.Bool("fail-fast", false, "Abort the run on the first generator fault")

	f.BoolVar(&opts.check, "check", false, "Compare artifacts with the output directory instead of writing")
	f.BoolVar(&opts.watch, "watch", false, "Rerun whenever Go sources change")
	f.BoolVar(&opts.noHistory, "no-history", false, "Do not record this run")
	f.BoolVar(&opts.json, "json", false, "Print the run summary as JSON")
	f.StringSliceVar(&opts.skip, "skip", nil, "Package patterns to skip (e.g. example.com/mod/internal/...)")
}

func runRun(cmd *cobra.Command, args []string) error {
	loaded, err := am.Load()
	if err != nil {
		return exitWith(output.ExitFault, errors.Wrap(err, "failed to load config"))
	}

	// The loaded config is cached; flags apply to a copy.
	cfg := *loaded
	applyRunFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return exitWith(output.ExitFault, errors.Wrap(err, "configuration validation failed"))
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	opts := runFlags
	verbosity, _ := cmd.Flags().GetCount("verbose")
	opts.trace = logger.ShouldLogTrace(verbosity)

	r, err := newRunner(&cfg, opts, cmd.OutOrStdout(), logger.ComponentLogger("run"))
	if err != nil {
		return exitWith(output.ExitFault, err)
	}
	defer r.Close()

	code, err := r.runOnce(ctx)
	if !runFlags.watch || errors.IsCancelled(err) {
		return exitWith(code, err)
	}
	if err != nil {
		r.log.Warnw("Initial run failed, watching anyway", logger.FieldError, err)
	}
	return exitWith(r.watch(ctx))
}

// applyRunFlags copies explicitly set flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *am.Config) {
	f := cmd.Flags()
	p := &cfg.Pipeline

	if f.Changed("dir") {
		p.Dir, _ = f.GetString("dir")
	}
	if f.Changed("packages") {
		p.Packages, _ = f.GetStringSlice("packages")
	}
	if f.Changed("targets") {
		p.Targets, _ = f.GetStringSlice("targets")
	}
	if f.Changed("sequential") {
		sequential, _ := f.GetBool("sequential")
		p.Concurrent = !sequential
	}
	if f.Changed("include-generated") {
		p.IncludeGenerated, _ = f.GetBool("include-generated")
	}
	if f.Changed("max-workers") {
		p.MaxWorkers, _ = f.GetInt("max-workers")
	}
	if f.Changed("timeout") {
		d, _ := f.GetDuration("timeout")
		p.TimeoutSeconds = int(math.Ceil(d.Seconds()))
	}
	if f.Changed("fail-fast") {
		p.FailFast, _ = f.GetBool("fail-fast")
	}
	if f.Changed("output") {
		cfg.Output.Dir, _ = f.GetString("output")
	}
	if f.Changed("s3") {
		cfg.Output.S3.Enabled, _ = f.GetBool("s3")
	}
}

// runner owns everything that outlives a single pipeline run: the target
// registry, the artifact sink and the history store.
type runner struct {
	cfg    *am.Config
	opts   runOptions
	out    io.Writer
	log    *zap.SugaredLogger
	reg    *pipeline.Registry
	writer output.ArtifactWriter
	store  *history.Store // nil when history is off
}

func newRunner(cfg *am.Config, opts runOptions, out io.Writer, log *zap.SugaredLogger) (*runner, error) {
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	r := &runner{cfg: cfg, opts: opts, out: out, log: log, reg: reg}

	if recommended, warning := sysmem.Check(cfg.Pipeline.MaxWorkers); warning != "" {
		log.Warnw(warning, logger.FieldWorkers, recommended)
	}

	if !opts.check {
		if cfg.Output.S3.Enabled {
			if r.writer, err = output.NewS3Writer(cfg.Output.S3, log.Named("s3")); err != nil {
				return nil, err
			}
		} else {
			r.writer = output.NewWriter(cfg.Output.Dir, log.Named("output"))
		}
	}

	if cfg.History.Enabled && !opts.noHistory {
		store, err := history.OpenStore(cfg.History.Path, nil)
		if err != nil {
			// A broken history database must not block generation
			log.Warnw("Run history disabled", logger.FieldPath, cfg.History.Path, logger.FieldError, err)
		} else {
			r.store = store
		}
	}
	return r, nil
}

func (r *runner) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// build assembles a fresh pipeline. Each run gets its own DI container so
// per-invocation scopes do not accumulate.
func (r *runner) build() (*pipeline.Pipeline, error) {
	p := r.cfg.Pipeline

	container, err := r.container()
	if err != nil {
		return nil, err
	}

	steps := []pipeline.Step{}
	add := func(name string, step pipeline.Step) {
		if r.opts.trace {
			step = middleware.Traced(name, step)
		}
		steps = append(steps, step)
	}

	if !p.FailFast {
		add("recover", middleware.Recover())
	}
	add("logging", middleware.Logging(r.log))
	if len(r.opts.skip) > 0 {
		add("skip", middleware.SkipUnits(r.opts.skip...))
	}
	if p.TimeoutSeconds > 0 {
		add("timeout", middleware.Timeout(time.Duration(p.TimeoutSeconds)*time.Second))
	}
	if p.RatePerSecond > 0 {
		add("ratelimit", middleware.RateLimit(middleware.NewLimiter(p.RatePerSecond)))
	}
	add("annotate", middleware.AnnotateErrors())
	add("inject", middleware.Inject(container))

	return pipeline.NewBuilder().
		WithLogger(r.log).
		WithOptions(pipeline.Options{
			Concurrent:       p.Concurrent,
			IncludeGenerated: p.IncludeGenerated,
			MaxWorkers:       p.MaxWorkers,
		}).
		ResolveUnits(gopkg.Resolver(p.Dir, p.Packages...)).
		AddRegistered(r.reg, p.Targets...).
		Use(steps...).
		Build()
}

// container provides run-wide values to target constructors.
func (r *runner) container() (*dig.Container, error) {
	c := dig.New()
	cfg := r.cfg
	if err := c.Provide(func() *am.Config { return cfg }); err != nil {
		return nil, errors.Wrap(err, "provide config")
	}
	if err := c.Provide(version.Get); err != nil {
		return nil, errors.Wrap(err, "provide version")
	}
	return c, nil
}

// runOnce builds and runs the pipeline, records it, and writes or checks
// its artifacts.
func (r *runner) runOnce(ctx context.Context) (int, error) {
	p, err := r.build()
	if err != nil {
		return output.ExitFault, err
	}

	report, runErr := p.Run(ctx)
	r.record(ctx, report, runErr)

	if r.opts.check {
		return r.check(report, runErr)
	}

	code, err := output.WriteAndReturn(ctx, r.writer, report, runErr)
	if err != nil {
		return code, err
	}
	if err := r.printReport(report, runErr, code); err != nil {
		return output.ExitFault, err
	}
	return code, runErr
}

func (r *runner) record(ctx context.Context, report *pipeline.Report, runErr error) {
	if r.store == nil {
		return
	}
	rec, err := r.store.RecordReport(context.WithoutCancel(ctx), report, runErr)
	if err != nil {
		r.log.Warnw("Failed to record run", logger.FieldError, err)
		return
	}
	r.log.Debugw("Run recorded", logger.FieldRunID, rec.ID)
}

// check compares the report with the output directory. Errors in the
// report take precedence over stale files.
func (r *runner) check(report *pipeline.Report, runErr error) (int, error) {
	if runErr != nil || report == nil || !report.Success() {
		code := output.ExitCode(report, runErr)
		if err := r.printReport(report, runErr, code); err != nil {
			return output.ExitFault, err
		}
		return code, runErr
	}

	result, err := output.Check(report, r.cfg.Output.Dir)
	if err != nil {
		return output.ExitFault, err
	}

	code := output.ExitSuccess
	if !result.UpToDate {
		code = output.ExitStale
	}

	if r.opts.json {
		return code, writeJSON(r.out, checkSummary{
			RunID:    report.RunID(),
			UpToDate: result.UpToDate,
			Stale:    result.Stale,
			Missing:  result.Missing,
			ExitCode: code,
		})
	}

	for _, path := range result.Stale {
		fmt.Fprintf(r.out, "%s %s\n", pterm.Yellow("stale:  "), path)
	}
	for _, path := range result.Missing {
		fmt.Fprintf(r.out, "%s %s\n", pterm.Yellow("missing:"), path)
	}
	if result.UpToDate {
		fmt.Fprintf(r.out, "%s %d generated files are up to date\n", pterm.Green("✓"), len(report.Artifacts()))
	} else {
		fmt.Fprintf(r.out, "%s run 'genpipe run' to regenerate\n", pterm.Red("✗"))
	}
	return code, nil
}

// watch reruns the pipeline on source changes until ctx is done.
func (r *runner) watch(ctx context.Context) (int, error) {
	ignore := []string{r.cfg.Output.Dir}
	if r.store != nil {
		ignore = append(ignore, filepath.Dir(r.cfg.History.Path))
	}

	w, err := watch.New(watch.Config{
		Roots:    []string{r.cfg.Pipeline.Dir},
		Ignore:   ignore,
		Debounce: time.Duration(r.cfg.Watch.DebounceMS) * time.Millisecond,
	}, func(ctx context.Context) error {
		_, err := r.runOnce(ctx)
		return err
	}, r.log.Named("watch"))
	if err != nil {
		return output.ExitFault, err
	}

	r.log.Infow("Watching for changes", logger.FieldPath, r.cfg.Pipeline.Dir)
	if err := w.Run(ctx); err != nil {
		return output.ExitFault, err
	}
	return output.ExitSuccess, nil
}

// runSummary is the --json rendering of a run.
type runSummary struct {
	RunID      string   `json:"run_id,omitempty"`
	Status     string   `json:"status"`
	DurationMS int64    `json:"duration_ms"`
	Units      int      `json:"units"`
	Artifacts  []string `json:"artifacts"`
	Errors     []string `json:"errors"`
	Incomplete int      `json:"incomplete"`
	Fault      string   `json:"fault,omitempty"`
	ExitCode   int      `json:"exit_code"`
}

type checkSummary struct {
	RunID    string   `json:"run_id"`
	UpToDate bool     `json:"up_to_date"`
	Stale    []string `json:"stale"`
	Missing  []string `json:"missing"`
	ExitCode int      `json:"exit_code"`
}

func summarize(report *pipeline.Report, runErr error, code int) runSummary {
	s := runSummary{Status: history.StatusFaulted, Artifacts: []string{}, Errors: []string{}, ExitCode: code}
	if runErr != nil {
		s.Fault = runErr.Error()
	}
	if report == nil {
		return s
	}

	s.RunID = report.RunID()
	s.Status = string(report.Status())
	s.DurationMS = report.Duration().Milliseconds()
	s.Units = len(report.Units())
	s.Incomplete = len(report.Incomplete())
	for _, sf := range report.Artifacts() {
		if p, err := output.ArtifactPath(sf); err == nil {
			s.Artifacts = append(s.Artifacts, p)
		}
	}
	for _, e := range report.Errors() {
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", e.Unit.Name(), e.ErrorRecord))
	}
	return s
}

func (r *runner) printReport(report *pipeline.Report, runErr error, code int) error {
	if r.opts.json {
		return writeJSON(r.out, summarize(report, runErr, code))
	}
	if report == nil {
		// The fault itself is printed by main
		return nil
	}

	for _, e := range report.Errors() {
		fmt.Fprintf(r.out, "%s %s: %s\n", pterm.Red("error:"), e.Unit.Name(), e.ErrorRecord)
	}

	summary := fmt.Sprintf("%d artifacts from %d packages in %s",
		len(report.Artifacts()), len(report.Units()), report.Duration().Round(time.Millisecond))
	switch report.Status() {
	case pipeline.StatusSucceeded:
		fmt.Fprintf(r.out, "%s %s\n", pterm.Green("✓"), summary)
	case pipeline.StatusIncomplete:
		fmt.Fprintf(r.out, "%s %s, %d pairs did not run\n", pterm.Yellow("!"), summary, len(report.Incomplete()))
	default:
		fmt.Fprintf(r.out, "%s %s, %d errors\n", pterm.Red("✗"), summary, len(report.Errors()))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
