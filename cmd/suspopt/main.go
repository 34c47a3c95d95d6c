package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/suspopt/internal/config"
	"github.com/san-kum/suspopt/internal/experiment"
	"github.com/san-kum/suspopt/internal/objective"
	"github.com/san-kum/suspopt/internal/observability"
	"github.com/san-kum/suspopt/internal/physics"
	"github.com/san-kum/suspopt/internal/storage"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	// scenario overrides
	speed      float64
	rampHeight float64
	rampAngle  float64
	duration   float64
	samples    int

	// search overrides
	gridPoints int
	maxEvals   int
	maxIters   int
	workers    int

	// parameter vector for evaluate and simulate
	k1 float64
	c1 float64
	k2 float64

	sweepPoints int
	saveRun     bool
	asJSON      bool
	plot        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "suspopt",
		Short:         "quarter-car suspension tuning",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".suspopt", "run data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "start from a named preset")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	pf.Float64Var(&speed, "speed", config.DefaultSpeed, "vehicle speed (m/s)")
	pf.Float64Var(&rampHeight, "ramp-height", config.DefaultRampHeight, "ramp height (m)")
	pf.Float64Var(&rampAngle, "ramp-angle", config.DefaultRampAngleDeg, "ramp angle (degrees)")
	pf.Float64Var(&duration, "time", config.DefaultDuration, "simulated duration (s)")
	pf.IntVar(&samples, "samples", config.DefaultSamples, "number of sample times")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "search for the best (k1, c1, k2)",
		Args:  cobra.NoArgs,
		RunE:  runOptimize,
	}
	optimizeCmd.Flags().IntVar(&gridPoints, "grid", 0, "coarse sweep points per axis before the simplex (0 = off)")
	optimizeCmd.Flags().IntVar(&maxEvals, "max-evals", 0, "objective evaluation budget")
	optimizeCmd.Flags().IntVar(&maxIters, "max-iters", 0, "simplex iteration budget")
	optimizeCmd.Flags().IntVar(&workers, "workers", 0, "concurrent evaluations in the sweep")
	optimizeCmd.Flags().BoolVar(&saveRun, "save", false, "store the run under the data directory")
	optimizeCmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "score one parameter vector",
		Args:  cobra.NoArgs,
		RunE:  runEvaluate,
	}
	addParamFlags(evaluateCmd)
	evaluateCmd.Flags().BoolVar(&asJSON, "json", false, "print the score as JSON")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "replay one parameter vector over the ramp",
		Args:  cobra.NoArgs,
		RunE:  runSimulate,
	}
	addParamFlags(simulateCmd)
	simulateCmd.Flags().BoolVar(&asJSON, "json", false, "print the trajectory as JSON")
	simulateCmd.Flags().BoolVar(&plot, "plot", false, "plot body position against the road")

	boundsCmd := &cobra.Command{
		Use:   "bounds",
		Short: "show stiffness bounds and ramp timing",
		Args:  cobra.NoArgs,
		RunE:  runBounds,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid sweep over the bounds",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "points per axis")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent evaluations")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	rootCmd.AddCommand(optimizeCmd, evaluateCmd, simulateCmd, boundsCmd, sweepCmd, presetsCmd, runsCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&k1, "k1", 0, "suspension stiffness (N/m, default lower bound)")
	cmd.Flags().Float64Var(&c1, "c1", config.DefaultDamping, "suspension damping (N·s/m)")
	cmd.Flags().Float64Var(&k2, "k2", 0, "tire stiffness (N/m, default lower bound)")
}

// loadConfig layers the preset, then the config file, then any flag the
// user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("speed") {
		cfg.Road.Speed = speed
	}
	if flags.Changed("ramp-height") {
		cfg.Road.RampHeight = rampHeight
	}
	if flags.Changed("ramp-angle") {
		cfg.Road.RampAngle = rampAngle
	}
	if flags.Changed("time") {
		cfg.Simulation.Duration = duration
	}
	if flags.Changed("samples") {
		cfg.Simulation.Samples = samples
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("grid") {
		cfg.Search.GridPoints = gridPoints
	}
	if flags.Changed("max-evals") {
		cfg.Search.MaxEvaluations = maxEvals
	}
	if flags.Changed("max-iters") {
		cfg.Search.MaxIterations = maxIters
	}
	if flags.Changed("workers") {
		cfg.Search.Workers = workers
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*config.Config, *experiment.Experiment, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := observability.NewLogger(cfg.Logging)
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, exp, logger, nil
}

// paramsFromFlags falls back to the experiment's initial guess for every
// parameter flag left unset.
func paramsFromFlags(cmd *cobra.Command, exp *experiment.Experiment) physics.Params {
	p := exp.InitialGuess()
	if cmd.Flags().Changed("k1") {
		p.K1 = k1
	}
	if cmd.Flags().Changed("c1") {
		p.C1 = c1
	}
	if cmd.Flags().Changed("k2") {
		p.K2 = k2
	}
	return p
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, exp, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if asJSON {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printResult(os.Stdout, exp, res, elapsed)
	}

	if !saveRun {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	traj, err := exp.Objective().Trajectory(res.Params)
	if err != nil {
		logger.Warn("winning parameters do not replay, saving without trajectory", zap.Error(err))
		traj = nil
	}
	label := preset
	if label == "" {
		label = "run"
	}
	runID, err := st.Save(label, cfg, res, traj)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "run id: %s\n", runID)
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	_, exp, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p := paramsFromFlags(cmd, exp)
	score := exp.Objective().Breakdown(p)
	if asJSON {
		return printJSON(struct {
			Params physics.Params  `json:"params"`
			Score  objective.Score `json:"score"`
		}{p, score})
	}

	fmt.Println(titleStyle.Render("evaluation"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "params\t%s\n", p)
	printScore(w, exp, score)
	return w.Flush()
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, exp, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p := paramsFromFlags(cmd, exp)
	traj, err := exp.Objective().Trajectory(p)
	if err != nil {
		return fmt.Errorf("simulate %s: %w", p, err)
	}

	switch {
	case asJSON:
		return printJSON(traj)
	case plot:
		fmt.Println(titleStyle.Render("trajectory"))
		fmt.Println(plotTrajectory(traj.Road, traj.States, fmt.Sprintf("body (x1) vs road, %s", p)))
		return nil
	}

	car := physics.NewQuarterCar(cfg.Constants(), p, exp.Ramp())
	fmt.Println(titleStyle.Render("trajectory"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "t\troad\tx1\tv1\tx2\tv2\taccel\tenergy\t")
	for i, t := range traj.Times {
		x := traj.States[i]
		accel := "-"
		if i < len(traj.BodyAccel) {
			accel = fmt.Sprintf("%.3f", traj.BodyAccel[i])
		}
		fmt.Fprintf(w, "%.4f\t%.5f\t%.5f\t%.4f\t%.5f\t%.4f\t%s\t%.3f\t\n",
			t, traj.Road[i], x[0], x[1], x[2], x[3], accel, car.Energy(x, t))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	printScore(w, exp, traj.Score)
	return w.Flush()
}

func runBounds(cmd *cobra.Command, args []string) error {
	cfg, exp, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	limits := exp.Limits()
	ramp := exp.Ramp()

	fmt.Println(titleStyle.Render("bounds"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "k1 (suspension)\t%s\tN/m\n", limits.Suspension)
	fmt.Fprintf(w, "k2 (tire)\t%s\tN/m\n", limits.Tire)
	fmt.Fprintf(w, "ramp time\t%.6f\ts\n", ramp.TraversalTime)
	fmt.Fprintf(w, "window\t%.3f\ts\n", cfg.Simulation.Duration)
	fmt.Fprintf(w, "comfort limit\t%.3f\tm/s²\n", exp.Objective().AccelLimit())
	if cfg.Simulation.Duration < ramp.TraversalTime {
		fmt.Fprintf(w, "%s\tthe window ends before the ramp is crossed\t\n", warnStyle.Render("note"))
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	_, exp, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	best, v, err := exp.Sweep(ctx, sweepPoints)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Println(titleStyle.Render("sweep"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "points\t%d\n", sweepPoints*sweepPoints*sweepPoints)
	fmt.Fprintf(w, "elapsed\t%v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "best\t%s\n", best)
	fmt.Fprintf(w, "score\t%s\n", valueStyle.Render(fmt.Sprintf("%.6g", v)))
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tK1\tC1\tK2\tSCORE\tSTATUS")
	for _, run := range runs {
		res := run.Result
		if res == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.6g\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			res.Params.K1, res.Params.C1, res.Params.K2,
			res.Score.Total,
			res.Status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	_, road, states, err := st.LoadTrajectory(runID)
	if errors.Is(err, storage.ErrNoTrajectory) {
		return fmt.Errorf("run %s has no trajectory to plot", runID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	if meta.Result != nil {
		fmt.Printf("params: %s\n", meta.Result.Params)
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return fmt.Errorf("run %s config: %w", runID, err)
	}
	fmt.Printf("scenario: %.1f m/s over a %.4f m ramp at %.0f°, %.2f s window\n",
		cfg.Road.Speed, cfg.Road.RampHeight, cfg.Road.RampAngle, cfg.Simulation.Duration)
	fmt.Printf("samples: %d\n\n", len(states))
	fmt.Println(plotTrajectory(road, states, "body (x1) vs road"))
	return nil
}
