package parsers

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"statement-reconciler/internal/models"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// Role controls how a tabular source treats columns it cannot resolve
type Role int

const (
	// RolePrimary fails when a canonical column cannot be resolved
	RolePrimary Role = iota
	// RoleLenient fills unresolved columns with placeholders
	RoleLenient
)

func (r Role) String() string {
	if r == RoleLenient {
		return "lenient"
	}
	return "primary"
}

// ResolvedColumn records which source header fed a canonical column. Header
// is empty and Index is -1 when the column was defaulted.
type ResolvedColumn struct {
	Canonical string `json:"canonical"`
	Header    string `json:"header,omitempty"`
	Index     int    `json:"index"`
	Aliased   bool   `json:"aliased,omitempty"`
}

// TabularResult is the outcome of loading one spreadsheet
type TabularResult struct {
	File     string
	Role     Role
	Set      models.TransactionSet
	Columns  []ResolvedColumn
	Missing  []string
	Headers  []string
	Stats    *ParseStats
	Warnings []string
}

// LatestDate returns the newest record date, or now when no record has one
func (r *TabularResult) LatestDate(now time.Time) time.Time {
	if latest, ok := r.Set.LatestDate(); ok {
		return latest
	}
	return now
}

// TabularLoader reads spreadsheets into the canonical schema
type TabularLoader struct {
	config *LoaderConfig
	logger logger.Logger
}

// NewTabularLoader creates a new loader with the given configuration
func NewTabularLoader(config *LoaderConfig) (*TabularLoader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "loader", config, err)
	}

	return &TabularLoader{
		config: config,
		logger: logger.WithComponent(logger.ComponentLoader),
	}, nil
}

// Load reads the first sheet of path and normalizes it for role
func (l *TabularLoader) Load(ctx context.Context, path string, role Role) (*TabularResult, error) {
	opLogger := logger.NewOperationLogger("load_sheet", l.logger).
		WithField("file", filepath.Base(path)).
		WithField("role", role.String())
	opLogger.Step("reading sheet")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := readSheet(path, l.config.Delimiter)
	if err != nil {
		opLogger.Error(err, "Failed to read sheet")
		return nil, err
	}

	result, err := l.Normalize(ctx, path, rows, role)
	if err != nil {
		opLogger.Error(err, "Failed to normalize sheet")
		return nil, err
	}

	if result.Stats.HasErrors() {
		problems, dropped := result.Stats.Problems()
		opLogger.WithField("problems", problems.Error()).
			WithField("by_code", problems.ByCode).
			WithField("dropped", dropped).
			WithField("samples", result.Stats.GetSampleErrors(3)).
			Warning("Sheet has unreadable cells")
	}

	opLogger.WithField("records", result.Set.Len()).
		WithField("rows_skipped", result.Stats.RowsSkipped).
		Success("Sheet loaded")
	return result, nil
}

// Normalize converts raw rows (header first) into a transaction set
func (l *TabularLoader) Normalize(ctx context.Context, file string, rows [][]string, role Role) (*TabularResult, error) {
	start := 0
	for start < len(rows) && isEmptyRecord(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, errors.ParseError(errors.CodeEmptySheet, file, 0, "", "", nil)
	}

	header := NewHeaderIndex(rows[start])
	columns, missing := l.ResolveColumns(header)

	result := &TabularResult{
		File:    file,
		Role:    role,
		Columns: columns,
		Missing: missing,
		Headers: header.Headers,
		Stats:   NewParseStats(),
	}

	if len(missing) > 0 {
		if role == RolePrimary {
			return nil, errors.MissingColumnError(file, missing, header.Headers)
		}
		warning := fmt.Sprintf("Columns not found in %s, using placeholders: %v", filepath.Base(file), missing)
		result.Warnings = append(result.Warnings, warning)
		l.logger.WithFields(logger.Fields{
			"file":    filepath.Base(file),
			"missing": missing,
		}).Warn("Defaulting unresolved columns")
	}

	dateCol, descCol, amountCol := columnIndex(columns, models.ColumnDate), columnIndex(columns, models.ColumnDescription), columnIndex(columns, models.ColumnAmount)

	records := make([]models.TransactionRecord, 0, len(rows)-start-1)
	for i := start + 1; i < len(rows); i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row := rows[i]
		line := i + 1
		if l.config.SkipEmptyRows && isEmptyRecord(row) {
			continue
		}
		result.Stats.Rows++

		record, ok := l.convertRow(file, line, row, dateCol, descCol, amountCol, role, result)
		if !ok {
			result.Stats.RowsSkipped++
			continue
		}
		records = append(records, record)
	}

	result.Set = models.NewTransactionSet(records)
	result.Stats.Records = result.Set.Len()
	return result, nil
}

func (l *TabularLoader) convertRow(file string, line int, row []string, dateCol, descCol, amountCol int, role Role, result *TabularResult) (models.TransactionRecord, bool) {
	defaulted := false

	description := l.config.Placeholder
	if descCol >= 0 {
		description = fieldValue(row, descCol)
	} else {
		defaulted = true
	}

	var date time.Time
	if dateCol >= 0 {
		raw := fieldValue(row, dateCol)
		parsed, err := parseDateCell(raw, l.config.DateLayouts)
		if err != nil {
			result.Stats.DatesMissing++
			result.Stats.AddError(errors.NewEnhancedParseError(errors.CodeInvalidDate,
				&errors.ParseContext{File: file, Row: line, Column: columnHeader(result.Columns, models.ColumnDate), Value: raw, Expected: "a date"},
				fmt.Sprintf("unreadable date %q", raw), err))
		} else {
			date = parsed
		}
	} else {
		defaulted = true
	}

	amount := decimal.Zero
	if amountCol >= 0 {
		raw := fieldValue(row, amountCol)
		parsed, err := models.ParseDecimalFromString(raw)
		if err != nil {
			result.Stats.AddError(errors.NewEnhancedParseError(errors.CodeInvalidAmount,
				&errors.ParseContext{File: file, Row: line, Column: columnHeader(result.Columns, models.ColumnAmount), Value: raw, Expected: "a number"},
				fmt.Sprintf("unreadable amount %q", raw), err))
			if role == RolePrimary {
				l.logger.WithFields(logger.Fields{"file": filepath.Base(file), "row": line, "value": raw}).
					Debug("Skipping row with unreadable amount")
				return models.TransactionRecord{}, false
			}
			defaulted = true
		} else {
			amount = parsed
		}
	} else {
		defaulted = true
	}

	if defaulted {
		result.Stats.RowsDefaulted++
	}
	return models.NewTransactionRecord(date, description, amount), true
}

// ResolveColumns maps each canonical column to a header. A canonical name
// present in the header is used as is; otherwise the aliases are tried in
// order. Columns still unresolved are listed in missing.
func (l *TabularLoader) ResolveColumns(header *HeaderIndex) (columns []ResolvedColumn, missing []string) {
	columns = make([]ResolvedColumn, 0, len(models.CanonicalColumns))
	for _, canonical := range models.CanonicalColumns {
		resolved := ResolvedColumn{Canonical: canonical, Index: -1}

		if idx := header.GetColumnIndex(canonical); idx >= 0 {
			resolved.Header = canonical
			resolved.Index = idx
		} else {
			for _, alias := range l.config.AliasesFor(canonical) {
				if idx := header.GetColumnIndex(alias); idx >= 0 {
					resolved.Header = alias
					resolved.Index = idx
					resolved.Aliased = true
					break
				}
			}
		}

		if resolved.Index < 0 {
			missing = append(missing, canonical)
		}
		columns = append(columns, resolved)
	}
	return columns, missing
}

func columnIndex(columns []ResolvedColumn, canonical string) int {
	for _, column := range columns {
		if column.Canonical == canonical {
			return column.Index
		}
	}
	return -1
}

func columnHeader(columns []ResolvedColumn, canonical string) string {
	for _, column := range columns {
		if column.Canonical == canonical {
			return column.Header
		}
	}
	return ""
}
