package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"statement-reconciler/internal/matcher"
	"statement-reconciler/internal/parsers"
	"statement-reconciler/internal/reconciler"
	"statement-reconciler/internal/reporter"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// Keys shared by flags, environment variables and config files.
const (
	KeyMode           = "mode"
	KeyPDFDir         = "pdf-dir"
	KeyExcel          = "excel"
	KeySecondExcel    = "second-excel"
	KeyOutputDir      = "output-dir"
	KeyStartDate      = "start-date"
	KeyEndDate        = "end-date"
	KeyThreshold      = "threshold"
	KeyConsumption    = "consumption"
	KeySign           = "sign"
	KeyWorkers        = "workers"
	KeyFormat         = "format"
	KeyProgress       = "progress"
	KeyShowUnmatched  = "show-unmatched"
	KeyPlaceholder    = "placeholder"
	KeyLabels         = "labels"
	KeyAliases        = "aliases"
	KeyProgressBuffer = "progress-buffer"
	KeyLogLevel       = "log-level"
	KeyLogFormat      = "log-format"
	KeyVerbose        = "verbose"
)

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMode, string(reconciler.ModePDFExcel))
	v.SetDefault(KeyOutputDir, reporter.DefaultExportConfig().OutputDir)
	v.SetDefault(KeyThreshold, matcher.DefaultThreshold)
	v.SetDefault(KeyConsumption, matcher.ConsumeIdentity.String())
	v.SetDefault(KeySign, matcher.SignSigned.String())
	v.SetDefault(KeyWorkers, parsers.DefaultDocumentConfig().Workers)
	v.SetDefault(KeyFormat, string(reporter.FormatConsole))
	v.SetDefault(KeyPlaceholder, parsers.DefaultLoaderConfig().Placeholder)
	v.SetDefault(KeyProgressBuffer, reconciler.DefaultConfig().ProgressBuffer)
	v.SetDefault(KeyLogLevel, string(logger.WarnLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
}

// CreateLoaderConfig creates a spreadsheet loader configuration. Aliases
// replace the alias list of the canonical column they are keyed by.
func CreateLoaderConfig(placeholder string, aliases map[string][]string) (*parsers.LoaderConfig, error) {
	config := parsers.DefaultLoaderConfig()
	if placeholder != "" {
		config.Placeholder = placeholder
	}

	for canonical, names := range aliases {
		found := false
		for i := range config.Columns {
			if strings.EqualFold(config.Columns[i].Canonical, canonical) {
				config.Columns[i].Aliases = append([]string(nil), names...)
				found = true
			}
		}
		if !found {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyAliases+"."+canonical, names,
				fmt.Errorf("unknown column %q", canonical)).
				WithSuggestion("Alias keys must be Transaction Date, Transaction Details or Amount")
		}
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "loader", nil, err)
	}
	return config, nil
}

// CreateDocumentConfig creates a statement document configuration
func CreateDocumentConfig(workers int) (*parsers.DocumentConfig, error) {
	config := parsers.DefaultDocumentConfig()
	if workers != 0 {
		config.Workers = workers
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyWorkers, workers, err)
	}
	return config, nil
}

// CreateMatchingConfig creates a matching configuration from CLI values
func CreateMatchingConfig(threshold int, consumption, sign string) (*matcher.MatchingConfig, error) {
	config := matcher.DefaultMatchingConfig()
	config.Threshold = threshold

	if consumption != "" {
		policy, err := matcher.ParseConsumptionPolicy(consumption)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyConsumption, consumption, err).
				WithSuggestion("Use identity or amount-text")
		}
		config.Consumption = policy
	}

	if sign != "" {
		policy, err := matcher.ParseSignPolicy(sign)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeySign, sign, err).
				WithSuggestion("Use signed or absolute")
		}
		config.Sign = policy
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyThreshold, threshold, err).
			WithSuggestion("The threshold is a score between 0 and 100")
	}
	return config, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, showUnmatched bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(format))
	config.IncludeUnmatched = showUnmatched

	if config.Format == reporter.FormatJSON {
		config.MaxItems = 0
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyFormat, format, err).
			WithSuggestion("Valid formats: console, json")
	}
	return config, nil
}

// CreateLoggerConfig creates the logger configuration. Verbose raises the
// level to debug.
func CreateLoggerConfig(level, format string, verbose bool) (*logger.Config, error) {
	config := logger.DefaultConfig()
	if level != "" {
		config.Level = logger.Level(strings.ToLower(level))
	}
	if format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}
	if verbose {
		config.Level = logger.DebugLevel
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyLogLevel, level, err)
	}
	return config, nil
}

// CreateReconcilerConfig builds the service configuration from v
func CreateReconcilerConfig(v *viper.Viper) (*reconciler.Config, error) {
	loader, err := CreateLoaderConfig(v.GetString(KeyPlaceholder), v.GetStringMapStringSlice(KeyAliases))
	if err != nil {
		return nil, err
	}
	documents, err := CreateDocumentConfig(v.GetInt(KeyWorkers))
	if err != nil {
		return nil, err
	}
	matching, err := CreateMatchingConfig(v.GetInt(KeyThreshold), v.GetString(KeyConsumption), v.GetString(KeySign))
	if err != nil {
		return nil, err
	}

	config := reconciler.DefaultConfig()
	config.Loader = loader
	config.Documents = documents
	config.Matching = matching

	if v.IsSet(KeyLabels) {
		if err := v.UnmarshalKey(KeyLabels, &config.Labels); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyLabels, nil, err)
		}
	}
	if v.IsSet(KeyProgressBuffer) {
		config.ProgressBuffer = v.GetInt(KeyProgressBuffer)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err)
	}
	return config, nil
}

// CreateRequest builds a run request from v. Date bounds that cannot be
// parsed leave the range open and come back as warnings.
func CreateRequest(v *viper.Viper) (*reconciler.Request, []string, error) {
	mode, err := reconciler.ParseMode(v.GetString(KeyMode))
	if err != nil {
		return nil, nil, errors.ValidationError(errors.CodeOutOfRange, KeyMode, v.GetString(KeyMode), err)
	}

	dateRange, warnings := reconciler.ParseDateRange(v.GetString(KeyStartDate), v.GetString(KeyEndDate))

	request := &reconciler.Request{
		Mode:          mode,
		DocumentDir:   v.GetString(KeyPDFDir),
		PrimaryFile:   v.GetString(KeyExcel),
		SecondaryFile: v.GetString(KeySecondExcel),
		OutputDir:     v.GetString(KeyOutputDir),
		DateRange:     dateRange,
	}
	if err := request.Validate(); err != nil {
		return nil, warnings, err
	}
	return request, warnings, nil
}
