package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"statement-reconciler/internal/matcher"
	"statement-reconciler/internal/models"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// Sheet and column names of the result workbook.
const (
	SheetMatched  = "Matched Transactions"
	SheetBalance  = "Balance Differences"
	ColumnMatched = "Matched Amount"
	ColumnScore   = "Match Score"

	balanceDescription = "Balance Difference"
	balanceDateLayout  = "02 Jan 2006"
	cellDateLayout     = "2006-01-02"

	// maxSheetName is the longest sheet name a workbook accepts
	maxSheetName = 31
)

// ExportConfig controls where and how result workbooks are written
type ExportConfig struct {
	OutputDir       string `json:"output_dir"`
	ResultPrefix    string `json:"result_prefix"`
	RawPrefix       string `json:"raw_prefix"`
	TimestampLayout string `json:"timestamp_layout"`
}

// DefaultExportConfig returns the default export configuration
func DefaultExportConfig() *ExportConfig {
	return &ExportConfig{
		OutputDir:       "reconciliation_results",
		ResultPrefix:    "Reconciliation_Result",
		RawPrefix:       "Source1_Transactions",
		TimestampLayout: "20060102_150405",
	}
}

// Validate validates the export configuration
func (c *ExportConfig) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.ResultPrefix == "" || c.RawPrefix == "" {
		return fmt.Errorf("file prefixes cannot be empty")
	}
	if c.ResultPrefix == c.RawPrefix {
		return fmt.Errorf("result and raw prefixes must differ, both are %q", c.ResultPrefix)
	}
	if c.TimestampLayout == "" {
		return fmt.Errorf("timestamp layout is required")
	}
	return nil
}

// ExportPaths are the files written by one export
type ExportPaths struct {
	Result string `json:"result"`
	Raw    string `json:"raw"`
}

// Exporter writes reconciliation outcomes to xlsx workbooks
type Exporter struct {
	config *ExportConfig
	logger logger.Logger
}

// NewExporter creates an exporter with the given configuration
func NewExporter(config *ExportConfig) (*Exporter, error) {
	if config == nil {
		config = DefaultExportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "export", config, err)
	}

	return &Exporter{
		config: config,
		logger: logger.WithComponent(logger.ComponentExporter),
	}, nil
}

// FileNames returns the result and raw file paths for a run at now. Two runs
// within the same second get the same names and the later one overwrites.
func (e *Exporter) FileNames(now time.Time) ExportPaths {
	stamp := now.Format(e.config.TimestampLayout)
	return ExportPaths{
		Result: filepath.Join(e.config.OutputDir, fmt.Sprintf("%s_%s.xlsx", e.config.ResultPrefix, stamp)),
		Raw:    filepath.Join(e.config.OutputDir, fmt.Sprintf("%s_%s.xlsx", e.config.RawPrefix, stamp)),
	}
}

// SheetNames returns the four result sheet names in workbook order
func SheetNames(labels matcher.Labels) []string {
	return []string{
		SheetMatched,
		SheetName(fmt.Sprintf("In %s Only", labels.B)),
		SheetName(fmt.Sprintf("In %s Only", labels.A)),
		SheetBalance,
	}
}

// SheetName makes name acceptable as a worksheet name: characters a
// workbook forbids are replaced and the result is cut to 31 characters.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)

	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}

// Export writes the result workbook and the raw primary workbook into the
// output directory, creating it when missing.
func (e *Exporter) Export(outcome *matcher.Outcome, primary models.TransactionSet, latestDate, now time.Time) (ExportPaths, error) {
	if outcome == nil {
		return ExportPaths{}, errors.ExportError(errors.CodeWriteFailed, e.config.OutputDir,
			fmt.Errorf("nothing to export"))
	}

	if err := os.MkdirAll(e.config.OutputDir, 0o755); err != nil {
		return ExportPaths{}, errors.ExportError(errors.CodeOutputDir, e.config.OutputDir, err)
	}

	paths := e.FileNames(now)
	if err := logger.TimedOperation("write_result", e.logger, func() error {
		return e.writeResult(paths.Result, outcome, latestDate)
	}); err != nil {
		return ExportPaths{}, err
	}
	if err := logger.TimedOperation("write_raw", e.logger, func() error {
		return e.writeRaw(paths.Raw, primary)
	}); err != nil {
		return ExportPaths{}, err
	}

	e.logger.WithFields(logger.Fields{
		"result": paths.Result,
		"raw":    paths.Raw,
	}).Info("Results exported")
	return paths, nil
}

func (e *Exporter) writeResult(path string, outcome *matcher.Outcome, latestDate time.Time) error {
	names := SheetNames(outcome.Labels)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return errors.ExportError(errors.CodeWriteFailed, path,
				fmt.Errorf("duplicate sheet name %q, source labels must differ", name))
		}
		seen[name] = true
	}

	f := excelize.NewFile()
	defer f.Close()

	matchedHeader := []interface{}{models.ColumnDate, models.ColumnDescription, models.ColumnAmount, ColumnMatched, ColumnScore}
	plainHeader := []interface{}{models.ColumnDate, models.ColumnDescription, models.ColumnAmount}

	matched := [][]interface{}{matchedHeader}
	for _, m := range outcome.Matched {
		matched = append(matched, matchedRow(m))
	}

	onlyB := [][]interface{}{plainHeader}
	for _, r := range outcome.OnlyInB.Records() {
		onlyB = append(onlyB, recordRow(r))
	}

	onlyA := [][]interface{}{matchedHeader}
	for _, m := range outcome.OnlyInA {
		onlyA = append(onlyA, matchedRow(m))
	}

	balance := [][]interface{}{
		{"Date", "Description", models.ColumnAmount},
		{latestDate.Format(balanceDateLayout), balanceDescription, outcome.BalanceDifference.InexactFloat64()},
	}

	sheets := [][][]interface{}{matched, onlyB, onlyA, balance}
	for i, name := range names {
		if err := writeSheet(f, i, name, sheets[i]); err != nil {
			return errors.ExportError(errors.CodeWriteFailed, path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.ExportError(errors.CodeWriteFailed, path, err)
	}
	return nil
}

func (e *Exporter) writeRaw(path string, primary models.TransactionSet) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{{models.ColumnDate, models.ColumnDescription, models.ColumnAmount}}
	for _, r := range primary.Records() {
		rows = append(rows, recordRow(r))
	}

	if err := writeSheet(f, 0, "Sheet1", rows); err != nil {
		return errors.ExportError(errors.CodeWriteFailed, path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return errors.ExportError(errors.CodeWriteFailed, path, err)
	}
	return nil
}

// writeSheet fills the sheet at position index, renaming the default first
// sheet or appending a new one.
func writeSheet(f *excelize.File, index int, name string, rows [][]interface{}) error {
	if index == 0 {
		if first := f.GetSheetName(0); first != name {
			if err := f.SetSheetName(first, name); err != nil {
				return err
			}
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func recordRow(r models.TransactionRecord) []interface{} {
	return []interface{}{cellDate(r.Date), r.Description, r.Amount.InexactFloat64()}
}

func matchedRow(m matcher.MatchedRecord) []interface{} {
	return append(recordRow(m.Record), m.MatchedAmount, m.Score)
}

func cellDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(cellDateLayout)
}
