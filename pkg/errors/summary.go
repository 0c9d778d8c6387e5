package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorSummary counts a batch of errors by category and code
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*ReconcilerError    `json:"errors"`
}

// NewErrorSummary tallies errs; nil entries are ignored
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     make([]*ReconcilerError, 0, len(errs)),
	}
	for _, err := range errs {
		if err == nil {
			continue
		}
		summary.Errors = append(summary.Errors, err)
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}
	summary.Total = len(summary.Errors)
	return summary
}

// Error describes the batch: the single error itself, or counts per category
func (es *ErrorSummary) Error() string {
	switch es.Total {
	case 0:
		return "no errors"
	case 1:
		return es.Errors[0].Error()
	}

	categories := make([]string, 0, len(es.ByCategory))
	for category := range es.ByCategory {
		categories = append(categories, string(category))
	}
	sort.Strings(categories)

	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred (", es.Total)
	for i, category := range categories {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %d", category, es.ByCategory[ErrorCategory(category)])
	}
	b.WriteString(")")
	return b.String()
}

func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the highest exit code among the errors, 0 when empty
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}
	exit := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > exit {
			exit = code
		}
	}
	return exit
}
