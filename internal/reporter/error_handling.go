package reporter

import (
	"fmt"
	"io"
	"os"

	"statement-reconciler/internal/matcher"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and a console fallback
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report configuration values")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent(logger.ComponentReporter),
	}, nil
}

// GenerateReportSafely validates its inputs and generates the report. When a
// non-console format fails, the console format is tried before giving up.
func (srg *SafeReportGenerator) GenerateReportSafely(summary *Summary, outcome *matcher.Outcome, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if summary == nil {
		return errors.ValidationError(errors.CodeMissingField, "summary", nil, nil).
			WithSuggestion("Run a reconciliation before generating its report")
	}
	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil).
			WithSuggestion("Provide a valid output writer")
	}

	err := srg.GenerateReport(summary, outcome, writer)
	if err == nil {
		return nil
	}

	srg.logger.WithError(err).Warn("Report generation failed, attempting fallback")
	if srg.config.Format == FormatConsole {
		return srg.wrapGenerationError(err)
	}

	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole
	fallback := &ReportGenerator{config: &fallbackConfig}

	if fallbackErr := fallback.GenerateReport(summary, outcome, writer); fallbackErr != nil {
		srg.logger.WithError(fallbackErr).Error("Fallback report generation failed")
		return srg.wrapGenerationError(err)
	}

	srg.logger.WithField("fallback_format", FormatConsole).Warn("Report generated with fallback format")
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	return errors.Wrap(err, errors.CategoryExport, errors.CodeWriteFailed,
		fmt.Sprintf("failed to generate %s report", srg.config.Format)).
		WithSuggestion("Try a different output format or check the output destination")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		return w.Name()
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", writer)
	}
}
