package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OutputFormat selects how progress events are rendered.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatTUI  OutputFormat = "tui"
)

// LiveBatchState is a snapshot of an in-progress batch, suitable for
// repeated ReportState calls as trials complete.
type LiveBatchState struct {
	BatchID        string
	ModelName      string
	Method         string
	StartTime      time.Time
	Elapsed        time.Duration
	TrialsTotal    int
	TrialsDone     int
	TrialsFailed   int
	LatestMetrics  map[string]float64
}

// ProgressReporter streams trial batch progress to stdout in one of three
// formats.
type ProgressReporter struct {
	format OutputFormat
	logger *Logger
}

// NewProgressReporter creates a ProgressReporter.
func NewProgressReporter(format OutputFormat, logger *Logger) *ProgressReporter {
	return &ProgressReporter{format: format, logger: logger}
}

// ReportState reports the current batch state.
func (pr *ProgressReporter) ReportState(state LiveBatchState) {
	switch pr.format {
	case FormatJSON:
		pr.reportJSON(state)
	case FormatTUI:
		pr.reportTUI(state)
	default:
		pr.reportText(state)
	}
}

// ReportTrialStarted reports that a trial began.
func (pr *ProgressReporter) ReportTrialStarted(trial int) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{
			"event":     "trial_started",
			"trial":     trial,
			"timestamp": time.Now(),
		})
		fmt.Println(string(data))
	case FormatTUI:
		pr.clearLine()
		fmt.Printf("▶ Trial %d starting\n", trial)
	default:
		fmt.Printf("[TRIAL] %d started\n", trial)
	}
}

// ReportTrialCompleted reports that a trial finished, successfully or not.
func (pr *ProgressReporter) ReportTrialCompleted(result TrialResult) {
	status := "✅ done"
	if result.Status == StatusFailed {
		status = "❌ failed"
	}

	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{
			"event":     "trial_completed",
			"result":    result,
			"timestamp": time.Now(),
		})
		fmt.Println(string(data))
	case FormatTUI:
		pr.clearLine()
		fmt.Printf("%s Trial %d (%s)\n", status, result.Trial, result.Duration)
		if result.Error != "" {
			fmt.Printf("   %s\n", result.Error)
		}
	default:
		fmt.Printf("[TRIAL] %d %s: %s\n", result.Trial, status, result.Duration)
	}
}

// ReportBatchCompleted reports the final batch report.
func (pr *ProgressReporter) ReportBatchCompleted(report *BatchReport) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{
			"event":     "batch_completed",
			"report":    report,
			"timestamp": time.Now(),
		})
		fmt.Println(string(data))
	case FormatTUI:
		pr.clearLine()
		pr.printBatchSummaryTUI(report)
	default:
		pr.printBatchSummaryText(report)
	}
}

func (pr *ProgressReporter) reportText(state LiveBatchState) {
	fmt.Printf("[%s] %s | %d/%d trials | Elapsed: %s\n",
		time.Now().Format("15:04:05"),
		state.ModelName,
		state.TrialsDone, state.TrialsTotal,
		state.Elapsed.Round(time.Second),
	)
	if state.TrialsFailed > 0 {
		fmt.Printf("  Failed: %d\n", state.TrialsFailed)
	}
	if len(state.LatestMetrics) > 0 {
		fmt.Printf("  Metrics: ")
		for name, value := range state.LatestMetrics {
			fmt.Printf("%s=%.2f ", name, value)
		}
		fmt.Println()
	}
}

func (pr *ProgressReporter) reportJSON(state LiveBatchState) {
	data, err := json.Marshal(state)
	if err != nil {
		pr.logger.Error("failed to marshal state", "error", err)
		return
	}
	fmt.Println(string(data))
}

func (pr *ProgressReporter) reportTUI(state LiveBatchState) {
	pr.clearScreen()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("   Model: %s (%s)\n", state.ModelName, state.Method)
	fmt.Printf("   Batch: %s\n", state.BatchID)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Printf("📊 Trials: %d/%d (failed: %d)\n", state.TrialsDone, state.TrialsTotal, state.TrialsFailed)
	fmt.Printf("⏱️  Elapsed: %s\n", state.Elapsed.Round(time.Second))
	fmt.Println()

	if len(state.LatestMetrics) > 0 {
		fmt.Printf("📈 Latest Metrics:\n")
		for name, value := range state.LatestMetrics {
			fmt.Printf("   • %s: %.2f\n", name, value)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("─", 80))
}

func (pr *ProgressReporter) printBatchSummaryTUI(report *BatchReport) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("   BATCH SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	statusIcon := "✅"
	if report.Failed > 0 {
		statusIcon = "⚠️"
	}
	if report.Passed == 0 && report.Failed > 0 {
		statusIcon = "❌"
	}

	fmt.Printf("%s Model: %s (%s)\n", statusIcon, report.ModelName, report.Method)
	fmt.Printf("   Batch ID: %s\n", report.BatchID)
	fmt.Printf("   Duration: %s\n", report.Duration)
	fmt.Printf("   Trials: %d passed, %d failed (of %d)\n", report.Passed, report.Failed, report.Trials)
	fmt.Println()

	if report.Failed > 0 {
		fmt.Printf("❌ Failed trials:\n")
		for _, r := range report.Results {
			if r.Status == StatusFailed {
				fmt.Printf("   • trial %d: %s\n", r.Trial, r.Error)
			}
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 80))
}

func (pr *ProgressReporter) printBatchSummaryText(report *BatchReport) {
	status := "PASSED"
	if report.Failed > 0 {
		status = "COMPLETED WITH FAILURES"
	}

	fmt.Printf("\n[BATCH SUMMARY] %s\n", status)
	fmt.Printf("  Model: %s (%s)\n", report.ModelName, report.Method)
	fmt.Printf("  Batch ID: %s\n", report.BatchID)
	fmt.Printf("  Duration: %s\n", report.Duration)
	fmt.Printf("  Trials: %d/%d passed\n", report.Passed, report.Trials)
	if report.Failed > 0 {
		fmt.Printf("  Failed: %d\n", report.Failed)
	}
	fmt.Println()
}

func (pr *ProgressReporter) clearScreen() {
	fmt.Print("\033[2J\033[H")
}

func (pr *ProgressReporter) clearLine() {
	fmt.Print("\033[K")
}
