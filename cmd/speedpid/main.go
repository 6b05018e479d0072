package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/san-kum/speedpid/internal/analysis"
	"github.com/san-kum/speedpid/internal/automation"
	"github.com/san-kum/speedpid/internal/config"
	"github.com/san-kum/speedpid/internal/control"
	"github.com/san-kum/speedpid/internal/dynamo"
	"github.com/san-kum/speedpid/internal/experiment"
	"github.com/san-kum/speedpid/internal/export"
	"github.com/san-kum/speedpid/internal/logging"
	"github.com/san-kum/speedpid/internal/metrics"
	"github.com/san-kum/speedpid/internal/optim"
	"github.com/san-kum/speedpid/internal/storage"
	"github.com/san-kum/speedpid/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir    string
	logLevel   string
	logJSON    bool
	configFile string

	dt            float64
	duration      float64
	seed          int64
	integrator    string
	kp            float64
	ki            float64
	kd            float64
	constantSpeed float64
	policy        string
	invert        bool
	setpoint      float64

	outFile string

	trials     int
	metricName string
	kpRange    []float64
	kiRange    []float64
	kdRange    []float64
	workers    int
	top        int
	rate       float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "speedpid",
		Short:         "closed-loop speed controller for a ground vehicle",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logJSON)
			if err != nil {
				return err
			}
			logging.SetLogger(l)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".speedpid", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a closed-loop simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addTuningFlags(runCmd)
	runCmd.Flags().Float64Var(&dt, "dt", 0.01, "plant timestep")
	runCmd.Flags().Float64Var(&duration, "time", 20.0, "duration")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "pose feed random seed")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4)")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "drive the vehicle interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addTuningFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a tracking chart as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.svg)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "tracking error frequency analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&rate, "rate", 10, "resampling rate (Hz)")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search PID gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	tuneCmd.Flags().Float64SliceVar(&kpRange, "kp", []float64{0.5, 1, 2, 4}, "kp values")
	tuneCmd.Flags().Float64SliceVar(&kiRange, "ki", []float64{0, 0.25, 0.5, 1}, "ki values")
	tuneCmd.Flags().Float64SliceVar(&kdRange, "kd", []float64{0}, "kd values")
	tuneCmd.Flags().StringVar(&metricName, "metric", "tracking_rms", "metric to minimize")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")
	tuneCmd.Flags().IntVar(&top, "top", 5, "candidates to print")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "repeat a run over pose feed seeds",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addTuningFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().StringVar(&metricName, "metric", "tracking_rms", "metric to summarize")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted scenario and save every step",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportJSONCmd, exportSVGCmd, analyzeCmd,
		tuneCmd, monteCarloCmd, scenarioCmd, presetsCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.L().Error("speedpid failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		_ = logging.L().Sync()
		os.Exit(1)
	}
	_ = logging.L().Sync()
}

func addTuningFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", 0, "integral gain")
	cmd.Flags().Float64Var(&kd, "kd", 0, "derivative gain")
	cmd.Flags().Float64Var(&constantSpeed, "speed", 1.0, "speed commanded by the quantized policy")
	cmd.Flags().StringVar(&policy, "policy", "quantized", "setpoint policy (quantized, proportional)")
	cmd.Flags().BoolVar(&invert, "invert", false, "invert the direction of measured speed")
	cmd.Flags().Float64Var(&setpoint, "setpoint", 1.0, "constant setpoint, replaces the schedule")
}

// resolveConfig layers, lowest first: defaults, the preset, the config
// file, and explicitly set flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	name := "custom"
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		name = args[0]
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("kp") {
		cfg.PID.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.PID.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.PID.Kd = kd
	}
	if flags.Changed("speed") {
		cfg.ConstantSpeed = constantSpeed
	}
	if flags.Changed("policy") {
		cfg.SetpointPolicy = policy
	}
	if flags.Changed("invert") {
		cfg.InvertDirection = invert
	}
	if flags.Changed("setpoint") {
		cfg.Schedule = []config.SetpointStep{{At: 0, Value: setpoint}}
	}
	if flags.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if flags.Changed("seed") {
		cfg.Feed.Seed = seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, name, nil
}

func runInfo(name string, cfg *config.Config) storage.RunInfo {
	return storage.RunInfo{
		Preset:        name,
		Seed:          cfg.Feed.Seed,
		Dt:            cfg.Sim.Dt,
		Duration:      cfg.Sim.Duration,
		Integrator:    cfg.Sim.Integrator,
		Policy:        cfg.SetpointPolicy,
		ConstantSpeed: cfg.ConstantSpeed,
		PID:           cfg.PID,
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	log := logging.L().With(zap.String("preset", name))
	log.Info("running simulation",
		zap.Float64("duration", cfg.Sim.Duration),
		zap.Float64("dt", cfg.Sim.Dt),
		zap.String("integrator", cfg.Sim.Integrator))
	start := time.Now()

	result, err := experiment.Run(cmd.Context(), cfg, metrics.Default())
	if err != nil {
		return fmt.Errorf("simulation %s: %w", name, err)
	}
	elapsed := time.Since(start)

	runID, err := st.Save(runInfo(name, cfg), result)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	log.Info("run saved", zap.String("run_id", runID), zap.Duration("elapsed", elapsed))

	summary := metrics.Summarize(result.Samples)
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("pose samples: %d (%d dropped)\n", len(result.Samples), summary.Dropped)
	fmt.Println("\nmetrics:")
	for _, k := range slices.Sorted(maps.Keys(result.Metrics)) {
		fmt.Printf("  %s: %.6f\n", k, result.Metrics[k])
	}
	fmt.Println("\ntracking error:")
	fmt.Printf("  mean: %.6f  std: %.6f  median: %.6f  max: %.6f\n",
		summary.Mean, summary.StdDev, summary.Median, summary.MaxAbs)

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return viz.RunLive(cmd.Context(), cfg, name)
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
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tPOLICY\tGAINS\tRMS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%s\t%s\t%.4f\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Policy,
			formatGains(run.PID),
			run.Metrics["tracking_rms"],
		)
	}

	return w.Flush()
}

func formatGains(p control.Params) string {
	return fmt.Sprintf("%g/%g/%g", p.Kp, p.Ki, p.Kd)
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("gains: %s\n", formatGains(meta.PID))
	fmt.Printf("samples: %d\n\n", len(samples))

	fmt.Println(viz.PlotTracking(samples, 80, 12))
	fmt.Println()

	run := &dynamo.Result{Samples: samples}
	measured := run.Series(func(s dynamo.Sample) float64 { return s.Measured })
	output := run.Series(func(s dynamo.Sample) float64 { return s.Output })
	fmt.Println(viz.Plot(measured, "estimated speed", 80, 8))
	fmt.Println()
	fmt.Println(viz.Plot(output, "controller output", 80, 8))

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if outFile == "" {
		return st.ExportJSON(os.Stdout, args[0])
	}
	if err := st.ExportJSONFile(outFile, args[0]); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func writeConfig(cmd *cobra.Command, args []string) error {
	path := "speedpid.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	samples, err := storage.New(dataDir).LoadSamples(runID)
	if err != nil {
		return err
	}
	svg := export.SamplesToSVG(samples, 800, 300, export.TrackingSeries)
	if svg == "" {
		return fmt.Errorf("no data to export")
	}
	path := outFile
	if path == "" {
		path = runID + ".svg"
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	spec, err := analysis.ErrorSpectrum(samples, rate)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", runID, err)
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("gains: %s\n\n", formatGains(meta.PID))

	fmt.Println(viz.Plot(spec.Power[:max(len(spec.Power)/2, 2)], "tracking error spectrum", 80, 12))
	fmt.Println()

	freq, power := spec.Dominant()
	fmt.Printf("dominant frequency: %.3f hz (power %.3f)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	g := optim.NewGridSearch(kpRange, kiRange, kdRange)
	g.Metric = metricName
	g.Workers = workers

	cands, err := g.Search(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fmt.Printf("tuning %s on %s, %d candidates\n\n", name, metricName, len(cands))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tKP\tKI\tKD\tSCORE\tFINAL ERR")
	for i, c := range cands[:min(max(top, 1), len(cands))] {
		if c.Err != nil {
			fmt.Fprintf(w, "%d\t%g\t%g\t%g\tfailed: %v\t\n", i+1, c.Kp, c.Ki, c.Kd, c.Err)
			continue
		}
		fmt.Fprintf(w, "%d\t%g\t%g\t%g\t%.6f\t%.6f\n", i+1, c.Kp, c.Ki, c.Kd, c.Score, c.Metrics["final_error"])
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	res, err := automation.RunMonteCarlo(cmd.Context(), automation.MonteCarloConfig{
		Base:      cfg,
		NumTrials: trials,
		Seed:      cfg.Feed.Seed,
	}, metricName)
	if err != nil {
		return err
	}

	fmt.Printf("monte carlo: %s, %d trials\n", name, len(res.Trials))
	fmt.Printf("%s: mean %.6f  std %.6f  worst %.6f\n", res.Metric, res.Mean, res.StdDev, res.Worst)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	results, runErr := automation.RunScenario(cmd.Context(), sc)
	for _, r := range results {
		runID, err := st.Save(runInfo(r.Name, r.Config), r.Result)
		if err != nil {
			return fmt.Errorf("save %s: %w", r.Name, err)
		}
		fmt.Printf("%s: %s (rms %.6f)\n", r.Name, runID, r.Result.Metrics["tracking_rms"])
	}
	return runErr
}
