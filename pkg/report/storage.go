package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Storage persists BatchReports as one JSON file per batch, pruning to the
// most recent keepLastN.
type Storage struct {
	outputDir string
	keepLastN int
	logger    *Logger
}

// NewStorage creates output dir (if needed) and returns a Storage over it.
func NewStorage(outputDir string, keepLastN int, logger *Logger) (*Storage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Storage{outputDir: outputDir, keepLastN: keepLastN, logger: logger}, nil
}

// SaveReport writes report to disk and prunes old reports if keepLastN > 0.
func (s *Storage) SaveReport(report *BatchReport) (string, error) {
	timestamp := report.StartTime.Format("20060102-150405")
	filename := fmt.Sprintf("batch-%s-%s.json", timestamp, report.BatchID)
	path := filepath.Join(s.outputDir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	s.logger.Info("Batch report saved", "path", path)

	if s.keepLastN > 0 {
		if err := s.cleanupOldReports(); err != nil {
			s.logger.Warn("Failed to cleanup old reports", "error", err)
		}
	}

	return path, nil
}

// LoadReport reads a BatchReport back from path.
func (s *Storage) LoadReport(path string) (*BatchReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	var report BatchReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// ReportSummary is a lightweight index entry over a stored BatchReport.
type ReportSummary struct {
	BatchID   string    `json:"batch_id"`
	ModelName string    `json:"model_name"`
	StartTime time.Time `json:"start_time"`
	Duration  string    `json:"duration"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Filepath  string    `json:"filepath"`
}

// ListReports returns every stored report's summary, newest first.
func (s *Storage) ListReports() ([]ReportSummary, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	summaries := make([]ReportSummary, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.outputDir, entry.Name())
		report, err := s.LoadReport(path)
		if err != nil {
			s.logger.Warn("Failed to load report", "path", path, "error", err)
			continue
		}
		summaries = append(summaries, ReportSummary{
			BatchID:   report.BatchID,
			ModelName: report.ModelName,
			StartTime: report.StartTime,
			Duration:  report.Duration,
			Passed:    report.Passed,
			Failed:    report.Failed,
			Filepath:  path,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})

	return summaries, nil
}

// FindReportByBatchID locates and loads a report by its BatchID.
func (s *Storage) FindReportByBatchID(batchID string) (*BatchReport, error) {
	summaries, err := s.ListReports()
	if err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		if summary.BatchID == batchID {
			return s.LoadReport(summary.Filepath)
		}
	}
	return nil, fmt.Errorf("report not found for batch ID: %s", batchID)
}

func (s *Storage) cleanupOldReports() error {
	summaries, err := s.ListReports()
	if err != nil {
		return err
	}
	if len(summaries) <= s.keepLastN {
		return nil
	}
	for _, summary := range summaries[s.keepLastN:] {
		if err := os.Remove(summary.Filepath); err != nil {
			s.logger.Warn("Failed to delete old report", "path", summary.Filepath, "error", err)
		} else {
			s.logger.Debug("Deleted old report", "path", summary.Filepath)
		}
	}
	return nil
}

// GetOutputDir returns the configured output directory.
func (s *Storage) GetOutputDir() string { return s.outputDir }
