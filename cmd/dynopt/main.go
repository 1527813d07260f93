package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/actions"
	"github.com/san-kum/dynopt/internal/automation"
	"github.com/san-kum/dynopt/internal/config"
	"github.com/san-kum/dynopt/internal/dynamo"
	"github.com/san-kum/dynopt/internal/experiment"
	"github.com/san-kum/dynopt/internal/optim"
	"github.com/san-kum/dynopt/internal/storage"
	"github.com/san-kum/dynopt/internal/tui"
	"github.com/san-kum/dynopt/internal/viz"
)

var (
	dataDir  string
	logLevel string
	logFile  string

	configFile string
	horizon    int
	seed       int64
	plot       bool
	jsonOut    bool

	tolerance float64

	nx, nu int

	randomSeed int64

	sweepParam           string
	sweepMin, sweepMax   float64
	sweepSteps           int
	searchMin, searchMax float64
	searchSteps          int

	trials              int
	perturbation, bound float64
	monteCarloSeed      int64

	logger = slog.New(slog.DiscardHandler)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, viz.Fail.Render("error:"), err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var closeLog func() error

	rootCmd := &cobra.Command{
		Use:           "dynopt",
		Short:         "optimal-control model toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, closer, err := newLogger(logLevel, logFile, os.Stderr)
			if err != nil {
				return err
			}
			logger, closeLog = l, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dynopt", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "roll out a problem and store the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProblem,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().IntVar(&horizon, "horizon", config.DefaultHorizon, "number of running nodes")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot the state trajectory")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the run as JSON instead of storing it")

	checkCmd := &cobra.Command{
		Use:   "check [preset]",
		Short: "compare analytic derivatives with finite differences",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkDerivatives,
	}
	checkCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	checkCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	checkCmd.Flags().Float64Var(&tolerance, "tol", 1e-4, "maximum accepted deviation")

	randomCmd := &cobra.Command{
		Use:   "random",
		Short: "draw a random LQR model and validate it",
		Args:  cobra.NoArgs,
		RunE:  randomLQR,
	}
	randomCmd.Flags().IntVar(&nx, "nx", config.DefaultNX, "state dimension")
	randomCmd.Flags().IntVar(&nu, "nu", config.DefaultNU, "control dimension")
	randomCmd.Flags().Int64Var(&randomSeed, "seed", time.Now().UnixNano(), "random seed")

	compareCmd := &cobra.Command{
		Use:   "compare [preset]",
		Short: "run a preset under every integrator",
		Args:  cobra.ExactArgs(1),
		RunE:  compareIntegrators,
	}

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

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a run node by node",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of presets",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "sweep dt, horizon or seed over a range",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "dt", "parameter to sweep (dt, horizon, seed)")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.01, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.2, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "perturb the initial state and count stable rollouts",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	monteCarloCmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturbation, "perturbation", 0.1, "maximum initial state offset per component")
	monteCarloCmd.Flags().Float64Var(&bound, "bound", 1e6, "largest final state norm counted as stable")
	monteCarloCmd.Flags().Int64Var(&monteCarloSeed, "seed", 0, "random seed")

	searchCmd := &cobra.Command{
		Use:   "search [preset]",
		Short: "grid search the constant control with the lowest total cost",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().Float64Var(&searchMin, "min", -1, "lower bound per control component")
	searchCmd.Flags().Float64Var(&searchMax, "max", 1, "upper bound per control component")
	searchCmd.Flags().IntVar(&searchSteps, "steps", 9, "grid points per control component")

	rootCmd.AddCommand(runCmd, checkCmd, randomCmd, compareCmd, listCmd, plotCmd, viewCmd, exportCmd, presetsCmd,
		scenarioCmd, sweepCmd, monteCarloCmd, searchCmd)
	return rootCmd
}

// loadConfig resolves the preset argument, then the config file, then the
// explicitly set flags, each overriding the previous one.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg = config.Lookup(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.Names())
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
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	return cfg, cfg.Validate()
}

func setupExperiment(cfg *config.Config) (*experiment.Experiment, error) {
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return nil, err
	}
	return exp, nil
}

func runProblem(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := setupExperiment(cfg)
	if err != nil {
		return err
	}

	logger.Debug("running", "model", exp.Model(), "horizon", cfg.Horizon)
	start := time.Now()
	report, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	meta := storage.NewMetadata(cfg, report.Result, report.Metrics)
	if jsonOut {
		return storage.ExportJSON(os.Stdout, meta, report.Result)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(meta, report.Result)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%v", exp.Model())))
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("nodes: %d\n", len(report.Result.States))
	fmt.Printf("total cost: %s\n", viz.MetricValue.Render(fmt.Sprintf("%.6g", report.Result.Total)))
	fmt.Println("\nmetrics:")
	fmt.Print(viz.Metrics(report.Metrics))

	if plot {
		fmt.Println()
		traj := &storage.Trajectory{}
		for _, x := range report.Result.States {
			traj.States = append(traj.States, mat.Col(nil, 0, x))
		}
		printTrajectory(cfg.Model, traj)
	}
	return nil
}

func checkDerivatives(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := setupExperiment(cfg)
	if err != nil {
		return err
	}
	devs, err := exp.Check()
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%v", exp.Model())))
	failed := 0
	for _, d := range devs {
		fmt.Println(viz.Check(d.Name, d.Value, tolerance))
		if !(d.Value <= tolerance) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d derivatives deviate by more than %g", failed, tolerance)
	}
	return nil
}

func randomLQR(cmd *cobra.Command, args []string) error {
	m, err := actions.RandomLQR(rand.New(rand.NewSource(randomSeed)), nx, nu)
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render(m.String()))
	fmt.Printf("seed: %d\n\n", randomSeed)
	for _, item := range []struct {
		name string
		m    mat.Matrix
	}{
		{"A", m.A()}, {"B", m.B()}, {"Q", m.Q()}, {"R", m.R()}, {"N", m.N()},
		{"f", m.F()}, {"q", m.QVec()}, {"r", m.RVec()},
	} {
		fmt.Printf("%s =\n%v\n\n", item.name, mat.Formatted(item.m, mat.Prefix(""), mat.Squeeze()))
	}

	if err := dynamo.CheckPSD("[Q, N; Nᵀ, R]", dynamo.StackHessian(m.Q(), m.R(), m.N())); err != nil {
		fmt.Println(viz.Fail.Render("cost Hessian is not positive semi-definite"))
		return err
	}
	fmt.Println(viz.Pass.Render("cost Hessian is positive semi-definite"))
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	base := config.Lookup(args[0])
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.Names())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tCONTROL\tNU\tTOTAL COST\tFINAL |x|\tTIME")
	for _, integ := range config.Integrators {
		cfg := base.Clone()
		cfg.Integrator = integ
		if integ == "none" {
			cfg.Control = "zero"
		}
		exp, err := setupExperiment(cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", integ, err)
		}
		start := time.Now()
		report, err := exp.Run(cmd.Context())
		if err != nil {
			if errors.Is(err, dynamo.ErrUnstable) {
				fmt.Fprintf(w, "%s\t%s\t%d\tdiverged\t-\t-\n", integ, cfg.Control, exp.Model().NU())
				continue
			}
			return fmt.Errorf("%s: %w", integ, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.6g\t%.6g\t%v\n",
			integ, cfg.Control, exp.Model().NU(),
			report.Result.Total, report.Metrics["final_state_norm"], time.Since(start))
	}
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
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tHORIZON\tDT\tINTEG\tCTRL\tCOST")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%s\t%s\t%.6g\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Horizon,
			run.Dt,
			run.Integrator,
			run.Control,
			run.TotalCost,
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

	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(traj.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(viz.Panel.Render(fmt.Sprintf("run: %s\nmodel: %s/%s/%s\nnodes: %d\ntotal cost: %.6g",
		meta.ID, meta.Model, meta.Integrator, meta.Control, len(traj.States), meta.TotalCost)))
	fmt.Println()

	series := make([][]float64, 0, len(traj.States[0]))
	for i := range traj.States[0] {
		series = append(series, traj.Column(i))
	}
	fmt.Println(viz.PlotMany(series, "all states"))
	fmt.Println()
	printTrajectory(meta.Model, traj)

	if len(traj.Costs) > 0 {
		fmt.Println(viz.Plot(traj.Costs, "cost per node"))
	}
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	return tui.Run(*meta, traj)
}

func printTrajectory(model string, traj *storage.Trajectory) {
	n := min(len(traj.States[0]), viz.MaxPlots)
	for i := 0; i < n; i++ {
		fmt.Println(viz.Plot(traj.Column(i), viz.StateCaption(model, i)))
		fmt.Println()
	}
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.Names()
	if len(args) > 0 {
		names = nil
		for _, p := range config.ListPresets(args[0]) {
			names = append(names, args[0]+"/"+p)
		}
	}
	if len(names) == 0 {
		fmt.Println("no presets found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tMODEL\tINTEG\tCTRL\tHORIZON\tDT")
	for _, name := range names {
		cfg := config.Lookup(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%g\n", name, cfg.Model, cfg.Integrator, cfg.Control, cfg.Horizon, cfg.Dt)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render(scenario.Name))
	if scenario.Description != "" {
		fmt.Println(viz.Subtle.Render(scenario.Description))
	}

	results, err := automation.RunScenario(cmd.Context(), scenario, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPRESET\tINTEG\tCTRL\tTOTAL COST\tFINAL |x|\tRUN ID")
	for i, r := range results {
		runID := "-"
		if r.Step.Save {
			runID, err = st.Save(storage.NewMetadata(r.Config, r.Report.Result, r.Report.Metrics), r.Report.Result)
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.6g\t%.6g\t%s\n",
			i+1, r.Step.Preset, r.Config.Integrator, r.Config.Control,
			r.Report.Result.Total, r.Report.Metrics["final_state_norm"], runID)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	sweep := &automation.ParameterSweep{
		Preset:    args[0],
		ParamName: sweepParam,
		Values:    optim.Linspace(sweepMin, sweepMax, sweepSteps),
	}
	results, err := automation.RunSweep(cmd.Context(), sweep, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTOTAL COST\tFINAL |x|\n", sweepParam)
	costs := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Diverged {
			fmt.Fprintf(w, "%g\tdiverged\t-\n", r.ParamValue)
			continue
		}
		costs = append(costs, r.TotalCost)
		fmt.Fprintf(w, "%g\t%.6g\t%.6g\n", r.ParamValue, r.TotalCost, r.FinalStateNorm)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(costs) > 1 {
		fmt.Println()
		fmt.Println(viz.Plot(costs, "total cost over "+sweepParam))
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	mc := &automation.MonteCarloConfig{
		Preset:       args[0],
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         monteCarloSeed,
		Bound:        bound,
	}
	results, err := automation.RunMonteCarlo(cmd.Context(), mc, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Println(viz.Title.Render(fmt.Sprintf("monte carlo: %s", args[0])))
	fmt.Print(viz.Metrics(map[string]float64{
		"trials":   float64(len(results)),
		"stable":   float64(stable),
		"unstable": float64(unstable),
	}))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	base := config.Lookup(args[0])
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.Names())
	}

	names := optim.ControlNames(base)
	ranges := make([][]float64, len(names))
	for i := range ranges {
		ranges[i] = optim.Linspace(searchMin, searchMax, searchSteps)
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	start := time.Now()
	best, cost, err := gs.Search(cmd.Context(), optim.ConstantControl(base, experiment.NewRegistry()))
	if err != nil {
		return err
	}
	logger.Debug("search finished", "preset", args[0], "elapsed", time.Since(start))

	fmt.Println(viz.Title.Render(fmt.Sprintf("best constant control: %s", args[0])))
	fmt.Print(viz.Metrics(best))
	fmt.Printf("total cost: %s\n", viz.MetricValue.Render(fmt.Sprintf("%.6g", cost)))
	return nil
}
