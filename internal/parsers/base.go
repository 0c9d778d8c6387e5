// Package parsers turns statement documents and spreadsheets into normalized
// transaction sets.
//
// Two source shapes are supported:
//   - DocumentParser: a folder of PDF bank statements. Each page is split
//     into lines and every line is offered to an ordered grammar of line
//     rules. Day-month dates are completed with a year inferred per document.
//   - TabularLoader: a single spreadsheet (.xlsx, .xls or .csv). Header names
//     are mapped onto the canonical columns through an alias table.
//
// A tabular source is loaded in one of two roles. The primary role fails
// when a canonical column cannot be resolved. The lenient role fills
// unresolved columns with placeholders and carries on.
//
// Example usage:
//
//	loader, err := NewTabularLoader(DefaultLoaderConfig())
//	result, err := loader.Load(ctx, "ledger.xlsx", RolePrimary)
//
//	parser, err := NewDocumentParser(DefaultDocumentConfig(), NewPDFExtractor())
//	docs, err := parser.ParseFolder(ctx, "statements/", nil)
package parsers

import (
	"fmt"
	"os"
	"strings"

	"statement-reconciler/pkg/errors"
)

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	Files         int `json:"files,omitempty"`
	FilesFailed   int `json:"files_failed,omitempty"`
	Lines         int `json:"lines,omitempty"`
	LinesMatched  int `json:"lines_matched,omitempty"`
	Rows          int `json:"rows,omitempty"`
	RowsSkipped   int `json:"rows_skipped,omitempty"`
	RowsDefaulted int `json:"rows_defaulted,omitempty"`
	DatesMissing  int `json:"dates_missing,omitempty"`
	Records       int `json:"records"`

	collector *errors.ParseErrorCollector
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{collector: errors.NewParseErrorCollector(100)}
}

// AddError records a parse problem and reports whether parsing can continue
func (ps *ParseStats) AddError(err *errors.EnhancedParseError) bool {
	return ps.collector.Add(err)
}

// Errors returns the recorded parse problems
func (ps *ParseStats) Errors() []*errors.EnhancedParseError {
	return ps.collector.GetErrors()
}

// HasErrors returns true if there were any parsing errors
func (ps *ParseStats) HasErrors() bool {
	return ps.collector.HasErrors()
}

// Problems tallies the recorded parse problems by code. Dropped counts the
// problems past the collector cap.
func (ps *ParseStats) Problems() (summary *errors.ErrorSummary, dropped int) {
	return ps.collector.GetSummary(), ps.collector.Dropped()
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	if ps.Files > 0 {
		return fmt.Sprintf("Parsed %d files (%d failed), %d lines, %d records",
			ps.Files, ps.FilesFailed, ps.Lines, ps.Records)
	}
	return fmt.Sprintf("Parsed %d rows, %d records (%d skipped, %d defaulted)",
		ps.Rows, ps.Records, ps.RowsSkipped, ps.RowsDefaulted)
}

// GetSampleErrors returns a sample of the parsing errors for logging/debugging
func (ps *ParseStats) GetSampleErrors(maxSamples int) []string {
	errs := ps.Errors()
	limit := len(errs)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, errs[i].Error())
	}
	return samples
}

// HeaderIndex maps trimmed header names to their column positions. When a
// name repeats, the first column wins.
type HeaderIndex struct {
	Headers []string
	byName  map[string]int
}

// NewHeaderIndex builds an index over a raw header row
func NewHeaderIndex(headers []string) *HeaderIndex {
	idx := &HeaderIndex{
		Headers: cleanHeaders(headers),
		byName:  make(map[string]int, len(headers)),
	}
	for i, header := range idx.Headers {
		if header == "" {
			continue
		}
		if _, exists := idx.byName[header]; !exists {
			idx.byName[header] = i
		}
	}
	return idx
}

// GetColumnIndex returns the index of a column by exact name, or -1
func (h *HeaderIndex) GetColumnIndex(name string) int {
	if index, exists := h.byName[name]; exists {
		return index
	}
	return -1
}

// cleanHeaders removes surrounding whitespace and a leading byte order mark
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, "\ufeff")
		}
		cleaned[i] = strings.TrimSpace(header)
	}
	return cleaned
}

// fieldValue returns the trimmed cell at index, or "" when the row is short
func fieldValue(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// isEmptyRecord checks if all fields in a record are empty or whitespace
func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// openFile opens path for reading and maps os errors onto file error codes
func openFile(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, classifyFileError(path, err)
	}
	return file, nil
}

func classifyFileError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return errors.FileError(errors.CodeFileNotFound, path, err)
	case os.IsPermission(err):
		return errors.FileError(errors.CodeFilePermission, path, err)
	default:
		return errors.FileError(errors.CodeDirectoryError, path, err)
	}
}
