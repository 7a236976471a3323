package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jihwankim/pssakit/pkg/kernel"
	"github.com/jihwankim/pssakit/pkg/kinetics"
	"github.com/jihwankim/pssakit/pkg/modelfile"
	"github.com/jihwankim/pssakit/pkg/report"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Args:  cobra.NoArgs,
	Short: "Run the same model under multiple methods and compare agreement",
	Long: `Runs one model under several sampling methods and reports whether
their final-time mean total populations (summed over species and
subvolumes, averaged over trials) agree pairwise within a relative
tolerance. Earlier time points and variances are not compared.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().String("model", "", "path to the model YAML file (overrides config.model.path)")
	sweepCmd.Flags().String("methods", "dm,pdm,pssacr", "comma-separated methods to compare")
	sweepCmd.Flags().Int("trials", 0, "number of trials per method (overrides config.simulation.trials)")
	sweepCmd.Flags().Float64("tolerance", 0.1, "relative tolerance for mean-population agreement")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	modelPath, _ := cmd.Flags().GetString("model")
	if modelPath == "" {
		modelPath = cfg.Model.Path
	}
	if trials, _ := cmd.Flags().GetInt("trials"); trials > 0 {
		cfg.Simulation.Trials = trials
	}

	logger := report.NewLogger(report.LoggerConfig{
		Level:  report.LogLevel(cfg.Framework.LogLevel),
		Format: report.LogFormat(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})

	doc, err := modelfile.New().ParseFile(modelPath)
	if err != nil {
		return fmt.Errorf("failed to parse model: %w", err)
	}
	net, modelGrid, err := doc.ToNetwork()
	if err != nil {
		return fmt.Errorf("failed to build network from model: %w", err)
	}
	grid, err := resolveGrid(cfg, modelGrid)
	if err != nil {
		return err
	}
	initialPopulation, err := kinetics.ParseInitialPopulationStrategy(cfg.Simulation.InitialPopulation)
	if err != nil {
		return err
	}

	methodsFlag, _ := cmd.Flags().GetString("methods")
	methodNames := strings.Split(methodsFlag, ",")

	batches := make(map[string]*report.BatchReport, len(methodNames))
	for _, name := range methodNames {
		name = strings.TrimSpace(name)
		method, err := kinetics.ParseMethod(name)
		if err != nil {
			return err
		}

		r := &kernel.Runner{
			Network:   net,
			Grid:      grid,
			ModelName: modelPath,
			Logger:    logger,
			Cfg: kernel.Config{
				TimeStart:         secondsToDuration(cfg.Simulation.TimeStart),
				TimeStep:          secondsToDuration(cfg.Simulation.TimeStep),
				TimeEnd:           secondsToDuration(cfg.Simulation.TimeEnd),
				SamplesTotal:      cfg.Simulation.SamplesTotal,
				Method:            method,
				InitialPopulation: initialPopulation,
				Trials:            cfg.Simulation.Trials,
				Seed:              cfg.Simulation.Seed,
			},
		}

		logger.Info("running sweep leg", "method", name, "trials", cfg.Simulation.Trials)
		batch, err := r.RunTrials(context.Background())
		if err != nil {
			return fmt.Errorf("method %s failed: %w", name, err)
		}
		batches[name] = batch
	}

	tolerance, _ := cmd.Flags().GetFloat64("tolerance")
	return reportSweepAgreement(batches, tolerance)
}

// reportSweepAgreement computes each method's final-time mean total
// population across trials and checks pairwise relative agreement.
func reportSweepAgreement(batches map[string]*report.BatchReport, tolerance float64) error {
	means := make(map[string]float64, len(batches))
	for name, batch := range batches {
		means[name] = finalMeanPopulation(batch)
	}

	fmt.Println("sweep agreement:")
	names := make([]string, 0, len(means))
	for name := range means {
		names = append(names, name)
	}
	for _, name := range names {
		fmt.Printf("  %-8s final mean population: %.3f\n", name, means[name])
	}

	var maxDiff float64
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := means[names[i]], means[names[j]]
			denom := math.Max(math.Abs(a), math.Abs(b))
			var rel float64
			if denom > 0 {
				rel = math.Abs(a-b) / denom
			}
			if rel > maxDiff {
				maxDiff = rel
			}
			if rel > tolerance {
				fmt.Printf("  WARNING: %s and %s disagree by %.1f%% (tolerance %.1f%%)\n", names[i], names[j], rel*100, tolerance*100)
			}
		}
	}

	if maxDiff > tolerance {
		return fmt.Errorf("methods disagree by up to %.1f%%, exceeding tolerance %.1f%%", maxDiff*100, tolerance*100)
	}
	fmt.Println("all methods agree within tolerance")
	return nil
}

// finalMeanPopulation averages total population (summed across species and
// subvolumes) over every trial's last recorded time point.
func finalMeanPopulation(batch *report.BatchReport) float64 {
	lastByTrial := make(map[int]report.TimePointRecord)
	for _, tp := range batch.TimePoints {
		if existing, ok := lastByTrial[tp.Trial]; !ok || tp.Time >= existing.Time {
			lastByTrial[tp.Trial] = tp
		}
	}
	if len(lastByTrial) == 0 {
		return 0
	}

	var total float64
	for _, tp := range lastByTrial {
		for _, subvolume := range tp.Population {
			for _, pop := range subvolume {
				total += float64(pop)
			}
		}
	}
	return total / float64(len(lastByTrial))
}
