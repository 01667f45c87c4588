package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/rgbweaver/internal/config"
	xglog "github.com/ManuGH/rgbweaver/internal/log"
	"github.com/ManuGH/rgbweaver/internal/metrics"
	"github.com/ManuGH/rgbweaver/internal/output"
	"github.com/ManuGH/rgbweaver/internal/pipeline"
	"github.com/ManuGH/rgbweaver/internal/platform/binary"
	"github.com/ManuGH/rgbweaver/internal/telemetry"
	"github.com/ManuGH/rgbweaver/internal/version"
)

const telemetryShutdownTimeout = 5 * time.Second

type rootOptions struct {
	configPath  string
	metricsFile string

	minZoom     int
	maxZoom     int
	tileJSON    bool
	workers     int
	format      string
	baseVal     float64
	interval    float64
	roundDigits int
	scheme      string

	name        string
	description string
	attribution string
	baseURL     string

	force     bool
	verbose   bool
	quiet     bool
	skipStats bool
	noDedup   bool
}

// cli holds the state shared by the root command and its subcommands.
type cli struct {
	deps   deps
	stdout io.Writer
	stderr io.Writer
	opts   rootOptions
	cfg    config.Config
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	c := &cli{deps: d, stdout: stdout, stderr: stderr}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	c.report(err)
	return exitCode(err)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rgbweaver INPUT_DEM OUTPUT",
		Short: "Generate terrain RGB tiles from a DEM",
		Long: `Generate terrain RGB raster tiles from a DEM.

OUTPUT selects the format: a path ending in .mbtiles or .pmtiles produces a
single archive, any path without an extension produces a tile directory with
an optional tiles.json.`,
		Example: `  rgbweaver dem.tif terrain.pmtiles --min-z 8 --max-z 14
  rgbweaver dem.tif terrain.mbtiles --min-z 8 --max-z 14
  rgbweaver dem.tif tiles --min-z 8 --max-z 14 --base-url https://tiles.example.com/
  rgbweaver dem.tif tiles --min-z 10 --max-z 16 --format webp -j 8`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              exactArgs(2),
		PersistentPreRunE: c.setup,
		RunE:              c.run,
	}
	root.SetVersionTemplate(version.String() + "\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&c.opts.configPath, "config", "", "path to config file (YAML)")
	pf.BoolVarP(&c.opts.verbose, "verbose", "v", false, "verbose output with detailed logs")
	pf.BoolVarP(&c.opts.quiet, "quiet", "q", false, "show only errors and warnings")

	f := root.Flags()
	f.IntVar(&c.opts.minZoom, "min-z", pipeline.DefaultMinZoom, "minimum zoom level (0-22)")
	f.IntVar(&c.opts.maxZoom, "max-z", pipeline.DefaultMaxZoom, "maximum zoom level (0-22)")
	f.BoolVar(&c.opts.tileJSON, "tilejson", true, "write tiles.json for directory outputs")
	f.IntVarP(&c.opts.workers, "workers", "j", pipeline.DefaultWorkers, "number of encoding processes")
	f.StringVar(&c.opts.format, "format", pipeline.DefaultFormat, "tile image format (png|webp)")
	f.Float64VarP(&c.opts.baseVal, "base-val", "b", pipeline.DefaultBaseVal, "elevation encoding base value")
	f.Float64VarP(&c.opts.interval, "interval", "i", pipeline.DefaultInterval, "elevation encoding interval")
	f.IntVarP(&c.opts.roundDigits, "round-digits", "r", pipeline.DefaultRoundDigits, "digits of elevation precision to zero")
	f.StringVar(&c.opts.scheme, "scheme", pipeline.DefaultScheme, "tile scheme for directory outputs (xyz|tms|zyx|wms)")
	f.StringVar(&c.opts.name, "name", "", "tileset name (default: DEM file name)")
	f.StringVar(&c.opts.description, "description", "", "tileset description")
	f.StringVar(&c.opts.attribution, "attribution", "", "attribution string")
	f.StringVar(&c.opts.baseURL, "base-url", "", "base URL for tile URLs in tiles.json")
	f.BoolVarP(&c.opts.force, "force", "f", false, "overwrite existing output")
	f.BoolVar(&c.opts.skipStats, "skip-stats", false, "do not compute DEM elevation statistics")
	f.BoolVar(&c.opts.noDedup, "no-deduplication", false, "disable tile deduplication in PMTiles conversion")
	f.StringVar(&c.opts.metricsFile, "metrics-file", "", "write a Prometheus textfile with run metrics")

	root.AddCommand(c.checkCmd(), c.versionCmd())
	return root
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// setup loads configuration and configures logging for every command.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.opts.verbose && c.opts.quiet {
		return usageError{errors.New("--verbose and --quiet cannot be used together")}
	}
	cfg, err := config.NewLoader(c.opts.configPath, version.Version).Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := cfg.Log.Level
	switch {
	case c.opts.verbose:
		level = "debug"
	case c.opts.quiet:
		level = "warn"
	}
	xglog.Configure(xglog.Config{
		Level:   level,
		Output:  c.stderr,
		Service: "rgbweaver",
		Version: version.Version,
		Pretty:  cfg.Log.Pretty,
	})

	if f := cmd.Flags().Lookup("metrics-file"); f != nil && !f.Changed && cfg.MetricsFile != "" {
		c.opts.metricsFile = cfg.MetricsFile
	}
	return nil
}

// request merges explicit flags over configured defaults.
func (c *cli) request(cmd *cobra.Command, input, out string) pipeline.Request {
	d := c.cfg.Defaults
	changed := cmd.Flags().Changed

	o := pipeline.DefaultOptions()
	o.Workers = pick(changed("workers"), c.opts.workers, d.Workers)
	o.Format = pick(changed("format"), c.opts.format, d.Format)
	o.BaseVal = pick(changed("base-val"), c.opts.baseVal, d.BaseVal)
	o.Interval = pick(changed("interval"), c.opts.interval, d.Interval)
	o.RoundDigits = pick(changed("round-digits"), c.opts.roundDigits, d.RoundDigits)
	o.Scheme = pick(changed("scheme"), c.opts.scheme, d.Scheme)
	o.TileJSON = pick(changed("tilejson"), c.opts.tileJSON, d.TileJSON)
	o.Name = c.opts.name
	o.Description = c.opts.description
	o.Attribution = c.opts.attribution
	o.BaseURL = c.opts.baseURL
	o.Force = c.opts.force
	o.Verbose = c.opts.verbose
	o.SkipStats = c.opts.skipStats
	o.MaxInputBytes = c.cfg.MaxInputBytes
	o.Deduplication = c.cfg.PMTiles.Deduplication && !c.opts.noDedup
	o.ConvertTmpDir = c.cfg.PMTiles.TmpDir

	return pipeline.Request{
		Input:   input,
		Output:  out,
		MinZoom: pick(changed("min-z"), c.opts.minZoom, d.MinZoom),
		MaxZoom: pick(changed("max-z"), c.opts.maxZoom, d.MaxZoom),
		Options: o,
	}
}

func pick[T any](useFlag bool, flagVal, cfgVal T) T {
	if useFlag {
		return flagVal
	}
	return cfgVal
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := xglog.WithComponent("cli")
	req := c.request(cmd, args[0], args[1])

	if spec, err := output.Resolve(req.Output, req.Options.TileJSON); err == nil {
		if err := c.preflight(spec.Kind); err != nil {
			return err
		}
		if !c.opts.quiet {
			fmt.Fprintln(c.stdout, "Starting rgbweaver pipeline")
			fmt.Fprintf(c.stdout, "Input: %s\n", req.Input)
			fmt.Fprintf(c.stdout, "Output: %s (%s)\n", req.Output, spec.Kind)
			fmt.Fprintf(c.stdout, "Zoom range: %d-%d (%d levels)\n", req.MinZoom, req.MaxZoom, req.ZoomLevels())
		}
	}

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        c.cfg.Telemetry.Enabled,
		ServiceName:    "rgbweaver",
		ServiceVersion: version.Version,
		ExporterType:   c.cfg.Telemetry.Exporter,
		Endpoint:       c.cfg.Telemetry.Endpoint,
		SamplingRate:   c.cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("tracing unavailable, continuing without it")
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(sctx); err != nil {
				logger.Warn().Err(err).Msg("tracer shutdown failed")
			}
		}()
	}

	orch := &pipeline.Orchestrator{
		Executor:    c.deps.executor(c.opts.verbose),
		Extractor:   c.deps.extractor(),
		Converter:   c.deps.converters(c.cfg),
		Tools:       pipeline.Tools{Rio: c.cfg.Tools.Rio, MBUtil: c.cfg.Tools.MBUtil},
		TempParent:  c.cfg.TempDir,
		Inspect:     c.deps.inspect,
		LogicalCPUs: c.deps.logicalCPUs(ctx),
	}
	res, runErr := orch.Run(ctx, req)

	if c.opts.metricsFile != "" {
		if err := metrics.WriteTextfile(c.opts.metricsFile); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldPath, c.opts.metricsFile).Msg("metrics file not written")
		}
	}
	if runErr != nil {
		return runErr
	}
	if !c.opts.quiet {
		printSummary(c.stdout, res, c.opts.verbose)
	}
	return nil
}

// preflight checks that the tools the output kind needs are on PATH.
func (c *cli) preflight(kind output.Kind) error {
	need := []string{c.cfg.Tools.Rio}
	if kind.IsDirectory() {
		need = append(need, c.cfg.Tools.MBUtil)
	}
	for _, tool := range need {
		if _, err := c.deps.lookPath(tool); err != nil {
			return fmt.Errorf("required tool %q not found: %w", tool, err)
		}
	}
	return nil
}

func (c *cli) report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, pipeline.ErrCanceled) {
		if !c.opts.quiet {
			fmt.Fprintln(c.stderr, "Operation cancelled by user")
		}
		return
	}
	fmt.Fprintf(c.stderr, "Error: %v\n", err)

	var ue usageError
	switch {
	case errors.As(err, &ue):
		fmt.Fprintln(c.stderr, "Run 'rgbweaver --help' for usage.")
	case errors.Is(err, binary.ErrUnsupportedPlatform), errors.Is(err, binary.ErrBinaryMissing):
		table := c.deps.converters(c.cfg)
		fmt.Fprintln(c.stderr, "\nSupported formats on this platform:")
		for _, k := range output.Supported(func() bool { return table.Available(runtime.GOOS, runtime.GOARCH) }) {
			fmt.Fprintf(c.stderr, "  %s: %s\n", k, k.Description())
		}
	case !c.opts.quiet && !c.opts.verbose:
		fmt.Fprintln(c.stderr, "Use --verbose for detailed error information")
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  exactArgs(0),
		// Printing the version must work even with a broken config file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(c.stdout, version.String())
			return nil
		},
	}
}
