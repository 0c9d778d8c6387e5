// Package reporter turns reconciliation outcomes into files and reports.
//
// The Exporter writes the result workbook (matched records, records found on
// one side only, and the balance difference) together with a raw workbook
// of the primary source. The ReportGenerator renders a run summary for the
// terminal or as JSON, optionally listing the unmatched records.
//
// Example usage:
//
//	exporter, err := reporter.NewExporter(reporter.DefaultExportConfig())
//	paths, err := exporter.Export(outcome, primary, latest, time.Now())
//
//	generator, err := reporter.NewReportGenerator(nil)
//	err = generator.GenerateReport(reporter.NewSummary(id, mode, outcome, paths, latest), outcome, os.Stdout)
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"statement-reconciler/internal/matcher"
	"statement-reconciler/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeUnmatched bool `json:"include_unmatched"`
	IncludeWarnings  bool `json:"include_warnings"`

	// MaxItems caps each unmatched listing in console output; 0 lists all
	MaxItems int `json:"max_items"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:           FormatConsole,
		IncludeUnmatched: false,
		IncludeWarnings:  true,
		MaxItems:         20,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative, got %d", c.MaxItems)
	}
	return nil
}

// ReportGenerator renders run summaries
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes the summary, and the unmatched records of outcome
// when configured, to writer. outcome may be nil.
func (rg *ReportGenerator) GenerateReport(summary *Summary, outcome *matcher.Outcome, writer io.Writer) error {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(summary, outcome, writer)
	case FormatJSON:
		return rg.generateJSONReport(summary, outcome, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(summary *Summary, outcome *matcher.Outcome, writer io.Writer) error {
	if _, err := io.WriteString(writer, summary.Text()); err != nil {
		return err
	}

	if rg.config.IncludeWarnings && len(summary.Warnings) > 0 {
		fmt.Fprintf(writer, "\nWarnings:\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(writer, "  - %s\n", w)
		}
	}

	if rg.config.IncludeUnmatched && outcome != nil {
		if len(outcome.OnlyInA) > 0 {
			fmt.Fprintf(writer, "\n=== ONLY IN %s ===\n", strings.ToUpper(summary.LabelA))
			records := make([]models.TransactionRecord, len(outcome.OnlyInA))
			for i, m := range outcome.OnlyInA {
				records[i] = m.Record
			}
			rg.printRecordList(records, writer)
		}
		if outcome.OnlyInB.Len() > 0 {
			fmt.Fprintf(writer, "\n=== ONLY IN %s ===\n", strings.ToUpper(summary.LabelB))
			rg.printRecordList(outcome.OnlyInB.Records(), writer)
		}
	}

	fmt.Fprintf(writer, "\nRun %s finished in %v\n", summary.RunID, summary.Duration)
	return nil
}

func (rg *ReportGenerator) generateJSONReport(summary *Summary, outcome *matcher.Outcome, writer io.Writer) error {
	output := map[string]interface{}{
		"summary": summary,
	}

	if rg.config.IncludeUnmatched && outcome != nil {
		onlyA := make([]models.TransactionRecord, len(outcome.OnlyInA))
		for i, m := range outcome.OnlyInA {
			onlyA[i] = m.Record
		}
		output["only_in_a"] = onlyA
		output["only_in_b"] = outcome.OnlyInB.Records()
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(output)
}

func (rg *ReportGenerator) printRecordList(records []models.TransactionRecord, writer io.Writer) {
	fmt.Fprintf(writer, "%-12s %-40s %15s\n", "Date", "Description", "Amount")
	fmt.Fprintf(writer, "%s\n", strings.Repeat("-", 69))

	limit := len(records)
	if rg.config.MaxItems > 0 && limit > rg.config.MaxItems {
		limit = rg.config.MaxItems
	}

	for _, r := range records[:limit] {
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.Format("2006-01-02")
		}
		fmt.Fprintf(writer, "%-12s %-40s %15s\n", date, truncateString(r.Description, 40), r.Amount.StringFixed(2))
	}

	if limit < len(records) {
		fmt.Fprintf(writer, "... and %d more\n", len(records)-limit)
	}
}

func truncateString(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
