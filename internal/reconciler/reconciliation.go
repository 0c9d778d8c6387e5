// Package reconciler runs the reconciliation pipeline end to end.
//
// A run loads source A (a folder of statement documents or a first
// spreadsheet) and source B (a spreadsheet), narrows both to an optional date
// range, matches A against B, and exports the outcome. Progress is reported
// as (message, percent) pairs, either through a callback with Service.Run or
// through a bounded channel with Service.Start.
//
// Example usage:
//
//	service, err := reconciler.NewService(reconciler.DefaultConfig(), parsers.NewPDFExtractor())
//	run := service.Start(ctx, &reconciler.Request{
//		Mode:        reconciler.ModePDFExcel,
//		DocumentDir: "statements",
//		PrimaryFile: "ledger.xlsx",
//		OutputDir:   "results",
//	})
//	for update := range run.Updates() {
//		fmt.Println(update.Percent, update.Message)
//	}
//	result, err := run.Wait()
package reconciler

import (
	"fmt"
	"strings"
	"time"

	"statement-reconciler/internal/matcher"
	"statement-reconciler/internal/parsers"
	"statement-reconciler/internal/reporter"
	"statement-reconciler/pkg/errors"
)

// Mode selects which kinds of sources are reconciled
type Mode string

const (
	ModePDFExcel   Mode = "pdf-excel"
	ModeExcelExcel Mode = "excel-excel"
)

// ParseMode parses a mode name, accepting underscores for hyphens
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")) {
	case ModePDFExcel:
		return ModePDFExcel, nil
	case ModeExcelExcel:
		return ModeExcelExcel, nil
	}
	return "", fmt.Errorf("unknown mode %q, expected %s or %s", s, ModePDFExcel, ModeExcelExcel)
}

// SourceLabels names the sources of each mode in outcomes and exports
type SourceLabels struct {
	Documents   string `json:"documents" mapstructure:"documents"`
	Sheet       string `json:"sheet" mapstructure:"sheet"`
	FirstSheet  string `json:"first_sheet" mapstructure:"first_sheet"`
	SecondSheet string `json:"second_sheet" mapstructure:"second_sheet"`
}

// DefaultSourceLabels returns the standard source names
func DefaultSourceLabels() SourceLabels {
	return SourceLabels{
		Documents:   "PDF Statements",
		Sheet:       "Excel File",
		FirstSheet:  "First Excel File",
		SecondSheet: "Second Excel File",
	}
}

// For returns the A and B labels of mode
func (l SourceLabels) For(mode Mode) matcher.Labels {
	if mode == ModeExcelExcel {
		return matcher.Labels{A: l.FirstSheet, B: l.SecondSheet}
	}
	return matcher.Labels{A: l.Documents, B: l.Sheet}
}

// Config holds configuration for the reconciliation service
type Config struct {
	Labels    SourceLabels
	Loader    *parsers.LoaderConfig
	Documents *parsers.DocumentConfig
	Matching  *matcher.MatchingConfig
	Export    *reporter.ExportConfig

	// ProgressBuffer is the capacity of a run's update channel
	ProgressBuffer int
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Labels:         DefaultSourceLabels(),
		Loader:         parsers.DefaultLoaderConfig(),
		Documents:      parsers.DefaultDocumentConfig(),
		Matching:       matcher.DefaultMatchingConfig(),
		Export:         reporter.DefaultExportConfig(),
		ProgressBuffer: 64,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ProgressBuffer <= 0 {
		return fmt.Errorf("progress buffer must be positive, got %d", c.ProgressBuffer)
	}

	for _, mode := range []Mode{ModePDFExcel, ModeExcelExcel} {
		labels := c.Labels.For(mode)
		if strings.TrimSpace(labels.A) == "" || strings.TrimSpace(labels.B) == "" {
			return fmt.Errorf("source labels for %s cannot be empty", mode)
		}
		if reporter.SheetName(fmt.Sprintf("In %s Only", labels.A)) == reporter.SheetName(fmt.Sprintf("In %s Only", labels.B)) {
			return fmt.Errorf("source labels for %s must differ, got %q and %q", mode, labels.A, labels.B)
		}
	}

	if c.Loader != nil {
		if err := c.Loader.Validate(); err != nil {
			return fmt.Errorf("loader: %w", err)
		}
	}
	if c.Documents != nil {
		if err := c.Documents.Validate(); err != nil {
			return fmt.Errorf("documents: %w", err)
		}
	}
	if c.Matching != nil {
		if err := c.Matching.Validate(); err != nil {
			return fmt.Errorf("matching: %w", err)
		}
	}
	if c.Export != nil {
		if err := c.Export.Validate(); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

// Request describes one reconciliation run. In pdf-excel mode PrimaryFile is
// the spreadsheet reconciled against DocumentDir; in excel-excel mode it is
// the first spreadsheet and SecondaryFile the second.
type Request struct {
	Mode          Mode      `json:"mode"`
	DocumentDir   string    `json:"document_dir,omitempty"`
	PrimaryFile   string    `json:"primary_file"`
	SecondaryFile string    `json:"secondary_file,omitempty"`
	OutputDir     string    `json:"output_dir"`
	DateRange     DateRange `json:"date_range"`
}

// Validate validates the reconciliation request
func (r *Request) Validate() error {
	switch r.Mode {
	case ModePDFExcel:
		if strings.TrimSpace(r.DocumentDir) == "" {
			return errors.ValidationError(errors.CodeMissingField, "document_dir", r.DocumentDir,
				fmt.Errorf("a folder of statement documents is required")).
				WithSuggestion("Select the folder holding the PDF statements")
		}
		if strings.TrimSpace(r.PrimaryFile) == "" {
			return errors.ValidationError(errors.CodeMissingField, "primary_file", r.PrimaryFile,
				fmt.Errorf("an Excel transactions file is required")).
				WithSuggestion("Select the spreadsheet to reconcile the statements against")
		}
	case ModeExcelExcel:
		if strings.TrimSpace(r.PrimaryFile) == "" {
			return errors.ValidationError(errors.CodeMissingField, "primary_file", r.PrimaryFile,
				fmt.Errorf("the first Excel file is required"))
		}
		if strings.TrimSpace(r.SecondaryFile) == "" {
			return errors.ValidationError(errors.CodeMissingField, "secondary_file", r.SecondaryFile,
				fmt.Errorf("the second Excel file is required"))
		}
	default:
		return errors.ValidationError(errors.CodeOutOfRange, "mode", r.Mode,
			fmt.Errorf("unknown mode %q", r.Mode)).
			WithSuggestion(fmt.Sprintf("Use %s or %s", ModePDFExcel, ModeExcelExcel))
	}

	if strings.TrimSpace(r.OutputDir) == "" {
		return errors.ValidationError(errors.CodeMissingField, "output_dir", r.OutputDir,
			fmt.Errorf("an output folder is required"))
	}

	if err := r.DateRange.Validate(); err != nil {
		return errors.ValidationError(errors.CodeInvalidDateRange, "date_range", r.DateRange.String(), err)
	}
	return nil
}

// Result is the outcome of a completed run
type Result struct {
	RunID      string               `json:"run_id"`
	Request    Request              `json:"request"`
	Outcome    *matcher.Outcome     `json:"-"`
	LatestDate time.Time            `json:"latest_date"`
	Paths      reporter.ExportPaths `json:"paths"`
	Summary    *reporter.Summary    `json:"summary"`
	Warnings   []string             `json:"warnings,omitempty"`
	Duration   time.Duration        `json:"duration"`
}
