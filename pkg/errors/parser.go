package errors

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseContext locates a problem inside an input file. Row is one based;
// zero means the problem is not tied to a row.
type ParseContext struct {
	File     string `json:"file"`
	Row      int    `json:"row,omitempty"`
	Column   string `json:"column,omitempty"`
	Value    string `json:"value,omitempty"`
	Expected string `json:"expected,omitempty"`
}

// location renders "at <base>[:row][ column '<name>']"
func (c *ParseContext) location() string {
	if c == nil || c.File == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("at ")
	b.WriteString(filepath.Base(c.File))
	if c.Row > 0 {
		fmt.Fprintf(&b, ":%d", c.Row)
	}
	if c.Column != "" {
		fmt.Fprintf(&b, " column '%s'", c.Column)
	}
	return b.String()
}

// EnhancedParseError is a parse failure with its location. Recoverable
// errors let the loader skip the offending row or document and continue.
type EnhancedParseError struct {
	*ReconcilerError
	Context     *ParseContext `json:"context"`
	Recoverable bool          `json:"recoverable"`
	Missing     []string      `json:"missing,omitempty"`
}

func (e *EnhancedParseError) Error() string {
	if loc := e.Context.location(); loc != "" {
		return e.ReconcilerError.Error() + " " + loc
	}
	return e.ReconcilerError.Error()
}

// Unwrap exposes the embedded ReconcilerError to errors.As
func (e *EnhancedParseError) Unwrap() error {
	return e.ReconcilerError
}

// NewEnhancedParseError creates a recoverable parse error
func NewEnhancedParseError(code ErrorCode, context *ParseContext, message string, cause error) *EnhancedParseError {
	base := build(cause, CategoryParse, code, message)
	if context != nil {
		base.WithContext("file", context.File).
			WithContext("row", context.Row).
			WithContext("column", context.Column)
		if context.Value != "" {
			base.WithContext("value", context.Value)
		}
	}
	return &EnhancedParseError{
		ReconcilerError: base,
		Context:         context,
		Recoverable:     true,
	}
}

func (e *EnhancedParseError) WithSuggestion(suggestion string) *EnhancedParseError {
	e.ReconcilerError.WithSuggestion(suggestion)
	return e
}

// MissingColumnError reports canonical columns that no header or alias
// resolved. It is never recoverable.
func MissingColumnError(file string, missing []string, available []string) *EnhancedParseError {
	wanted := strings.Join(missing, ", ")
	err := NewEnhancedParseError(CodeMissingColumn,
		&ParseContext{File: file, Row: 1, Expected: "columns for " + wanted},
		fmt.Sprintf("Required columns not found in %s: %s", filepath.Base(file), wanted), nil).
		WithSuggestion("File should have columns for date, description, and amount")

	err.ReconcilerError.WithContext("available_columns", available)
	err.Missing = append([]string(nil), missing...)
	err.Recoverable = false
	return err
}

// DocumentFailure wraps the failure of one statement document. The run
// continues without it.
func DocumentFailure(file string, cause error) *EnhancedParseError {
	return NewEnhancedParseError(CodeUnreadableDocument, &ParseContext{File: file},
		fmt.Sprintf("Error processing %s: %v", filepath.Base(file), cause), cause).
		WithSuggestion("check that the document is a text-based PDF statement")
}

// ParseErrorCollector keeps up to a fixed number of parse errors
type ParseErrorCollector struct {
	errors    []*EnhancedParseError
	maxErrors int
	dropped   int
}

// NewParseErrorCollector creates a collector; maxErrors of zero keeps all
func NewParseErrorCollector(maxErrors int) *ParseErrorCollector {
	return &ParseErrorCollector{maxErrors: maxErrors}
}

// Add records err and reports whether processing can continue
func (c *ParseErrorCollector) Add(err *EnhancedParseError) bool {
	if err == nil {
		return true
	}
	if c.maxErrors > 0 && len(c.errors) >= c.maxErrors {
		c.dropped++
	} else {
		c.errors = append(c.errors, err)
	}
	return err.Recoverable
}

func (c *ParseErrorCollector) HasErrors() bool {
	return len(c.errors) > 0
}

// GetErrors returns the kept errors in the order they were added
func (c *ParseErrorCollector) GetErrors() []*EnhancedParseError {
	return c.errors
}

// Dropped is the number of errors discarded after the cap was reached
func (c *ParseErrorCollector) Dropped() int {
	return c.dropped
}

// GetSummary tallies the kept errors
func (c *ParseErrorCollector) GetSummary() *ErrorSummary {
	base := make([]*ReconcilerError, len(c.errors))
	for i, err := range c.errors {
		base[i] = err.ReconcilerError
	}
	return NewErrorSummary(base)
}
