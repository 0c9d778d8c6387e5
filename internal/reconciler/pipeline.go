package reconciler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"statement-reconciler/internal/matcher"
	"statement-reconciler/internal/models"
	"statement-reconciler/internal/parsers"
	"statement-reconciler/internal/reporter"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// Progress checkpoints of a run. Document parsing reports between 0 and 50.
const (
	PercentExtract    = 10
	PercentLoadFirst  = 30
	PercentLoadSecond = 60
	PercentReconcile  = 70
	PercentBalance    = 80
	PercentSave       = 90
	PercentDone       = 100
)

// Service runs reconciliations with a fixed configuration
type Service struct {
	config    *Config
	documents *parsers.DocumentParser
	loader    *parsers.TabularLoader
	engine    *matcher.MatchingEngine
	logger    logger.Logger
	now       func() time.Time
}

// NewService creates a service that reads statement documents through extractor
func NewService(config *Config, extractor parsers.TextExtractor) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Export == nil {
		config.Export = reporter.DefaultExportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err).
			WithSuggestion("Check the labels and limits in the configuration file")
	}

	documents, err := parsers.NewDocumentParser(config.Documents, extractor)
	if err != nil {
		return nil, err
	}
	loader, err := parsers.NewTabularLoader(config.Loader)
	if err != nil {
		return nil, err
	}
	engine, err := matcher.NewMatchingEngine(config.Matching)
	if err != nil {
		return nil, err
	}
	if _, err := reporter.NewExporter(config.Export); err != nil {
		return nil, err
	}

	return &Service{
		config:    config,
		documents: documents,
		loader:    loader,
		engine:    engine,
		logger:    logger.WithComponent(logger.ComponentReconciler),
		now:       time.Now,
	}, nil
}

// WithClock replaces the clock used for export names and date fallbacks
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.documents.WithClock(now)
	return s
}

// Run performs a full reconciliation synchronously, reporting progress to
// notify. Any failure is reported once as a final 100% message and returned.
func (s *Service) Run(ctx context.Context, req *Request, notify parsers.NotifyFunc) (*Result, error) {
	if notify == nil {
		notify = func(string, int) {}
	}

	runID := uuid.NewString()
	opLogger := logger.NewOperationLogger("reconcile", s.logger.WithRun(runID))

	result, err := s.run(ctx, runID, req, notify, opLogger)
	if err != nil {
		opLogger.Error(err, "Reconciliation failed")
		notify(fmt.Sprintf("Error during reconciliation: %v", err), PercentDone)
		return nil, err
	}

	notify(reporter.CompletedMessage, PercentDone)
	opLogger.WithField("matched", result.Summary.Matched).
		WithField("balance", result.Summary.BalanceDifference.StringFixed(2)).
		Success("Reconciliation completed")
	return result, nil
}

func (s *Service) run(ctx context.Context, runID string, req *Request, notify parsers.NotifyFunc, opLogger *logger.OperationLogger) (*Result, error) {
	if req == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "request", nil, fmt.Errorf("request is required"))
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := s.now()
	labels := s.config.Labels.For(req.Mode)
	var warnings []string

	var (
		a, b   models.TransactionSet
		latest time.Time
	)

	switch req.Mode {
	case ModePDFExcel:
		opLogger.Step("parsing statements")
		notify("Extracting transactions from PDF statements...", PercentExtract)
		docs, err := s.documents.ParseFolder(ctx, req.DocumentDir, notify)
		if err != nil {
			return nil, err
		}
		for _, report := range docs.Documents {
			if report.Err != nil {
				warnings = append(warnings, fmt.Sprintf("Error processing %s: %v", filepath.Base(report.File), report.Err))
			}
		}
		if !docs.LatestFound {
			warnings = append(warnings, "No transactions found or error in parsing dates. Using current date.")
		}
		a, latest = docs.Set, docs.LatestDate

		opLogger.Step("loading spreadsheet")
		notify("Loading Excel transactions...", PercentLoadSecond)
		sheet, err := s.loader.Load(ctx, req.PrimaryFile, parsers.RolePrimary)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, sheet.Warnings...)
		b = sheet.Set

	case ModeExcelExcel:
		opLogger.Step("loading first spreadsheet")
		notify("Loading first Excel file...", PercentLoadFirst)
		first, err := s.loader.Load(ctx, req.PrimaryFile, parsers.RolePrimary)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, first.Warnings...)
		a, latest = first.Set, first.LatestDate(models.CalendarDate(s.now()))

		opLogger.Step("loading second spreadsheet")
		notify("Loading second Excel file...", PercentLoadSecond)
		second, err := s.loader.Load(ctx, req.SecondaryFile, parsers.RoleLenient)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, second.Warnings...)
		b = second.Set
	}

	if !req.DateRange.IsZero() {
		loadedA, loadedB := a.Len(), b.Len()
		a, b = req.DateRange.Apply(a), req.DateRange.Apply(b)
		s.logger.WithRun(runID).WithFields(logger.Fields{
			"range":    req.DateRange.String(),
			"a_before": loadedA,
			"a_after":  a.Len(),
			"b_before": loadedB,
			"b_after":  b.Len(),
		}).Info("Date range applied")
	}

	opLogger.Step("matching")
	notify("Reconciling transactions...", PercentReconcile)
	outcome, err := s.engine.Reconcile(ctx, a, b, labels)
	if err != nil {
		return nil, err
	}

	notify("Calculating balance differences...", PercentBalance)

	opLogger.Step("exporting")
	notify("Saving results...", PercentSave)
	exportConfig := *s.config.Export
	exportConfig.OutputDir = req.OutputDir
	exporter, err := reporter.NewExporter(&exportConfig)
	if err != nil {
		return nil, err
	}
	paths, err := exporter.Export(outcome, a, latest, s.now())
	if err != nil {
		return nil, err
	}

	summary := reporter.NewSummary(runID, string(req.Mode), outcome, paths, latest)
	summary.Warnings = warnings
	summary.Duration = s.now().Sub(start)
	summary.CompletedAt = s.now()

	return &Result{
		RunID:      runID,
		Request:    *req,
		Outcome:    outcome,
		LatestDate: latest,
		Paths:      paths,
		Summary:    summary,
		Warnings:   warnings,
		Duration:   summary.Duration,
	}, nil
}
