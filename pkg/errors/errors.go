// Package errors defines the categorized errors raised by a reconciliation
// run. Each error carries a code, a user facing message with a suggestion,
// and the stack captured where it was created.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the pipeline stage that raised them
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryExport         ErrorCategory = "export"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category
type ErrorCode string

const (
	CodeFileNotFound     ErrorCode = "file_not_found"
	CodeFilePermission   ErrorCode = "file_permission"
	CodeDirectoryError   ErrorCode = "directory_error"
	CodeUnsupportedInput ErrorCode = "unsupported_input"

	CodeInvalidFormat      ErrorCode = "invalid_format"
	CodeMissingColumn      ErrorCode = "missing_column"
	CodeUnreadableDocument ErrorCode = "unreadable_document"
	CodeEmptySheet         ErrorCode = "empty_sheet"

	CodeInvalidAmount    ErrorCode = "invalid_amount"
	CodeInvalidDate      ErrorCode = "invalid_date"
	CodeInvalidDateRange ErrorCode = "invalid_date_range"
	CodeMissingField     ErrorCode = "missing_field"
	CodeOutOfRange       ErrorCode = "out_of_range"

	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	CodeMatchingFailed ErrorCode = "matching_failed"

	CodeWriteFailed ErrorCode = "write_failed"
	CodeOutputDir   ErrorCode = "output_dir"

	CodeUnexpectedError ErrorCode = "unexpected_error"
	CodeWorkerPanic     ErrorCode = "worker_panic"
)

// exit status per category; anything unlisted exits with 1
var exitCodes = map[ErrorCategory]int{
	CategoryFile:           2,
	CategoryParse:          3,
	CategoryValidation:     3,
	CategoryConfiguration:  4,
	CategoryReconciliation: 5,
	CategoryInternal:       5,
	CategoryExport:         6,
}

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error returns the message followed by the suggestion, if any. The cause
// is left out; callers reach it through Unwrap.
func (e *ReconcilerError) Error() string {
	if e.Suggestion == "" {
		return e.Message
	}
	return e.Message + " (suggestion: " + e.Suggestion + ")"
}

func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the category to the process exit status
func (e *ReconcilerError) GetExitCode() int {
	if code, ok := exitCodes[e.Category]; ok {
		return code
	}
	return 1
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a ReconcilerError without a cause
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap attaches category, code and message to err. A nil err yields nil.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

func build(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// detail holds whatever a catalog message needs to describe a failure.
// subject is the path, field, setting or operation involved.
type detail struct {
	subject string
	value   interface{}
	row     int
	column  string
}

type entry struct {
	category   ErrorCategory
	message    func(d detail) string
	suggestion string
}

var catalog = map[ErrorCode]entry{
	CodeFileNotFound: {CategoryFile, func(d detail) string {
		return fmt.Sprintf("file not found: %s", d.subject)
	}, "check if the file path is correct and the file exists"},
	CodeFilePermission: {CategoryFile, func(d detail) string {
		return fmt.Sprintf("permission denied accessing file: %s", d.subject)
	}, "check file permissions and ensure you have read access"},
	CodeDirectoryError: {CategoryFile, func(d detail) string {
		return fmt.Sprintf("directory error: %s", d.subject)
	}, "ensure the directory exists and is accessible"},
	CodeUnsupportedInput: {CategoryFile, func(d detail) string {
		return fmt.Sprintf("unsupported input file type: %s", d.subject)
	}, "use a .xlsx, .xls or .csv spreadsheet"},

	CodeInvalidFormat: {CategoryParse, func(d detail) string {
		return fmt.Sprintf("invalid format in %s at row %d, column '%s': '%v'", d.subject, d.row, d.column, d.value)
	}, "check the data format and ensure it matches the expected structure"},
	CodeMissingColumn: {CategoryParse, func(d detail) string {
		return fmt.Sprintf("missing required column '%s' in %s", d.column, d.subject)
	}, "verify the file has all required columns with correct headers"},
	CodeUnreadableDocument: {CategoryParse, func(d detail) string {
		return fmt.Sprintf("could not read text from document %s", d.subject)
	}, "the document may be scanned or use unsupported font encodings"},
	CodeEmptySheet: {CategoryParse, func(d detail) string {
		return fmt.Sprintf("no header row found in %s", d.subject)
	}, "make sure the first sheet contains a header row followed by transactions"},

	CodeInvalidAmount: {CategoryValidation, func(d detail) string {
		return fmt.Sprintf("invalid amount in field '%s': %v", d.subject, d.value)
	}, "ensure amounts are valid decimal numbers (e.g., '12.34')"},
	CodeInvalidDate: {CategoryValidation, func(d detail) string {
		return fmt.Sprintf("invalid date in field '%s': %v", d.subject, d.value)
	}, "use date format DD/MM/YYYY or YYYY-MM-DD"},
	CodeInvalidDateRange: {CategoryValidation, func(d detail) string {
		return fmt.Sprintf("invalid date range in field '%s': %v", d.subject, d.value)
	}, "make sure the start date is not after the end date"},
	CodeMissingField: {CategoryValidation, func(d detail) string {
		return fmt.Sprintf("required field '%s' is missing or empty", d.subject)
	}, "provide a value for this required field"},
	CodeOutOfRange: {CategoryValidation, func(d detail) string {
		return fmt.Sprintf("value out of range in field '%s': %v", d.subject, d.value)
	}, "ensure the value is within the acceptable range"},

	CodeInvalidConfig: {CategoryConfiguration, func(d detail) string {
		return fmt.Sprintf("invalid configuration for '%s': %v", d.subject, d.value)
	}, "check the configuration documentation for valid values"},
	CodeMissingConfig: {CategoryConfiguration, func(d detail) string {
		return fmt.Sprintf("missing required configuration: %s", d.subject)
	}, "provide this configuration setting or use a config file"},

	CodeMatchingFailed: {CategoryReconciliation, func(d detail) string {
		return fmt.Sprintf("matching failed during %s", d.subject)
	}, "check the amount columns of both sources"},

	CodeOutputDir: {CategoryExport, func(d detail) string {
		return fmt.Sprintf("cannot prepare output directory: %s", d.subject)
	}, "choose a writable output folder"},
	CodeWriteFailed: {CategoryExport, func(d detail) string {
		return fmt.Sprintf("failed to write %s", d.subject)
	}, "close the file if it is open in a spreadsheet program and retry"},

	CodeUnexpectedError: {CategoryInternal, func(d detail) string {
		return fmt.Sprintf("unexpected error during %s", d.subject)
	}, "this is likely a bug, please report it with the error details"},
	CodeWorkerPanic: {CategoryInternal, func(d detail) string {
		return fmt.Sprintf("reconciliation worker crashed during %s", d.subject)
	}, "this is likely a bug, please report it with the input files if possible"},
}

// used when a code is unknown or belongs to another category
var fallback = map[ErrorCategory]entry{
	CategoryFile: {CategoryFile, func(d detail) string {
		return fmt.Sprintf("file error: %s", d.subject)
	}, "check the file and try again"},
	CategoryParse: {CategoryParse, func(d detail) string {
		return fmt.Sprintf("parse error in %s at row %d", d.subject, d.row)
	}, "check the file format and data integrity"},
	CategoryValidation: {CategoryValidation, func(d detail) string {
		return fmt.Sprintf("validation error in field '%s': %v", d.subject, d.value)
	}, "check the field value and format"},
	CategoryConfiguration: {CategoryConfiguration, func(d detail) string {
		return fmt.Sprintf("configuration error: %s", d.subject)
	}, "check your configuration and try again"},
	CategoryReconciliation: {CategoryReconciliation, func(d detail) string {
		return fmt.Sprintf("reconciliation error during %s", d.subject)
	}, "review the data and configuration"},
	CategoryExport: {CategoryExport, func(d detail) string {
		return fmt.Sprintf("export error: %s", d.subject)
	}, "check the output folder and try again"},
	CategoryInternal: {CategoryInternal, func(d detail) string {
		return fmt.Sprintf("internal error during %s", d.subject)
	}, "try again or contact support if the problem persists"},
}

func describe(category ErrorCategory, code ErrorCode, d detail, cause error) *ReconcilerError {
	e, ok := catalog[code]
	if !ok || e.category != category {
		e = fallback[category]
	}
	return build(cause, category, code, e.message(d)).WithSuggestion(e.suggestion)
}

// FileError reports a problem reaching an input path
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	return describe(CategoryFile, code, detail{subject: path}, err).
		WithContext("file_path", path)
}

// ParseError reports a cell or document the loaders could not read
func ParseError(code ErrorCode, file string, row int, column string, value string, err error) *ReconcilerError {
	return describe(CategoryParse, code, detail{subject: file, row: row, column: column, value: value}, err).
		WithContext("file", file).
		WithContext("row", row).
		WithContext("column", column).
		WithContext("value", value)
}

// ValidationError reports a rejected option or request field
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	return describe(CategoryValidation, code, detail{subject: field, value: value}, err).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError reports an invalid component configuration
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	return describe(CategoryConfiguration, code, detail{subject: setting, value: value}, err).
		WithContext("setting", setting).
		WithContext("value", value)
}

func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	return describe(CategoryReconciliation, code, detail{subject: operation}, err).
		WithContext("operation", operation)
}

// ExportError reports a failure writing result artifacts
func ExportError(code ErrorCode, path string, err error) *ReconcilerError {
	return describe(CategoryExport, code, detail{subject: path}, err).
		WithContext("path", path)
}

func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	return describe(CategoryInternal, code, detail{subject: operation}, err).
		WithContext("operation", operation)
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded returns err unchanged when it already carries a
// ReconcilerError and wraps it otherwise
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return Wrap(err, category, code, message)
}
