package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jihwankim/pssakit/pkg/config"
	"github.com/jihwankim/pssakit/pkg/emergency"
	"github.com/jihwankim/pssakit/pkg/kernel"
	"github.com/jihwankim/pssakit/pkg/kinetics"
	"github.com/jihwankim/pssakit/pkg/modelfile"
	"github.com/jihwankim/pssakit/pkg/modelfile/validate"
	"github.com/jihwankim/pssakit/pkg/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Run a batch of stochastic simulation trials",
	Long:  `Loads a reaction network model and runs a batch of trials under one method.`,
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().String("model", "", "path to the model YAML file (overrides config.model.path)")
	runCmd.Flags().String("method", "", "sampling method: dm, pdm, pssacr (overrides config.simulation.method)")
	runCmd.Flags().Int("trials", 0, "number of trials to run (overrides config.simulation.trials)")
	runCmd.Flags().Int64("seed", 0, "base RNG seed (overrides config.simulation.seed)")
	runCmd.Flags().Int("concurrency", 0, "number of trials to run concurrently (overrides config.simulation.concurrency)")
	runCmd.Flags().String("format", "", "progress output format: text, json, tui (overrides config.reporting.formats[0])")
	runCmd.Flags().StringArray("set", []string{}, "override model values (e.g., --set species.A.initial=50)")
	runCmd.Flags().Bool("dry-run", false, "validate the model without executing trials")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyRunFlagOverrides(cmd, cfg)

	logLevel := report.LogLevel(cfg.Framework.LogLevel)
	if verbose {
		logLevel = report.LogLevelDebug
	}
	logger := report.NewLogger(report.LoggerConfig{
		Level:  logLevel,
		Format: report.LogFormat(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})
	logger.Info("pssakit starting", "version", version)

	modelPath, _ := cmd.Flags().GetString("model")
	if modelPath == "" {
		modelPath = cfg.Model.Path
	}

	logger.Info("parsing model", "file", modelPath)
	p := modelfile.New()
	doc, err := p.ParseFile(modelPath)
	if err != nil {
		return fmt.Errorf("failed to parse model: %w", err)
	}

	setFlags, _ := cmd.Flags().GetStringArray("set")
	if len(setFlags) > 0 {
		overrides := parseSetFlags(setFlags)
		if err := modelfile.ApplyOverrides(doc, overrides); err != nil {
			return fmt.Errorf("failed to apply overrides: %w", err)
		}
		logger.Debug("applied overrides", "count", len(overrides))
	}

	net, modelGrid, err := doc.ToNetwork()
	if err != nil {
		return fmt.Errorf("failed to build network from model: %w", err)
	}
	grid, err := resolveGrid(cfg, modelGrid)
	if err != nil {
		return err
	}

	method, err := kinetics.ParseMethod(cfg.Simulation.Method)
	if err != nil {
		return err
	}
	initialPopulation, err := kinetics.ParseInitialPopulationStrategy(cfg.Simulation.InitialPopulation)
	if err != nil {
		return err
	}

	logger.Info("validating model")
	v := validate.New()
	if verr := v.Validate(doc, grid, method, cfg.Simulation.TimeStep, cfg.Simulation.TimeEnd); verr != nil {
		return fmt.Errorf("model validation failed:\n%s", v.GetReport())
	}
	if v.HasWarnings() {
		logger.Warn("model has warnings")
		for _, w := range v.Warnings {
			logger.Warn("  " + w)
		}
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		fmt.Println("model is valid (dry-run mode)")
		return nil
	}

	storage, err := report.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	outputFormat, _ := cmd.Flags().GetString("format")
	if outputFormat == "" && len(cfg.Reporting.Formats) > 0 {
		outputFormat = cfg.Reporting.Formats[0]
	}
	progress := report.NewProgressReporter(report.OutputFormat(outputFormat), logger)

	ctl := emergency.New(emergency.Config{StopFile: cfg.Emergency.StopFile, EnableSignalHandlers: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctl.OnStop(func(ev emergency.StopEvent) {
		logger.Warn("emergency stop triggered", "reason", ev.Reason, "batch_id", ev.Progress.BatchID, "trial", ev.Progress.Trial, "trials", ev.Progress.Trials)
		cancel()
	})
	ctl.Start(ctx)

	r := &kernel.Runner{
		Network:   net,
		Grid:      grid,
		ModelName: modelPath,
		Logger:    logger,
		Storage:   storage,
		Emergency: ctl,
		Cfg: kernel.Config{
			TimeStart:         secondsToDuration(cfg.Simulation.TimeStart),
			TimeStep:          secondsToDuration(cfg.Simulation.TimeStep),
			TimeEnd:           secondsToDuration(cfg.Simulation.TimeEnd),
			SamplesTotal:      cfg.Simulation.SamplesTotal,
			Method:            method,
			InitialPopulation: initialPopulation,
			Trials:            cfg.Simulation.Trials,
			Seed:              cfg.Simulation.Seed,
			Concurrency:       cfg.Simulation.Concurrency,
			OnProgress: func(done, total int, pct float64) {
				progress.ReportState(report.LiveBatchState{
					ModelName:   modelPath,
					Method:      method.String(),
					TrialsTotal: total,
					TrialsDone:  done,
				})
			},
		},
	}

	logger.Info("starting trial batch", "model", modelPath, "method", method.String(), "trials", cfg.Simulation.Trials)

	var batch *report.BatchReport
	if cfg.Simulation.Concurrency > 1 {
		batch, err = r.RunTrialsConcurrent(ctx, cfg.Simulation.Concurrency)
	} else {
		batch, err = r.RunTrials(ctx)
	}
	if err != nil {
		return fmt.Errorf("trial batch failed: %w", err)
	}

	progress.ReportBatchCompleted(batch)

	if batch.Failed > 0 {
		return fmt.Errorf("%d of %d trials failed", batch.Failed, batch.Trials)
	}

	logger.Info("trial batch completed successfully")
	return nil
}

func applyRunFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if method, _ := cmd.Flags().GetString("method"); method != "" {
		cfg.Simulation.Method = method
	}
	if trials, _ := cmd.Flags().GetInt("trials"); trials > 0 {
		cfg.Simulation.Trials = trials
	}
	if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
		cfg.Simulation.Seed = seed
	}
	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		cfg.Simulation.Concurrency = concurrency
	}
}
