package parsers

import (
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// YearSource records where a statement year came from
type YearSource string

const (
	YearFromFilename      YearSource = "filename"
	YearFromStatementDate YearSource = "statement-date"
	YearFromPageText      YearSource = "page-text"
	YearFromClock         YearSource = "clock"
)

// YearInference is the year applied to every day-month token of a document
type YearInference struct {
	Year   int
	Source YearSource
}

var (
	fourDigits        = regexp.MustCompile(`(\d{4})`)
	statementDateLine = regexp.MustCompile(`Statement Date\s+(\d{1,2} \p{L}+ (\d{4}))`)
)

// InferYear resolves the statement year: a four-digit run in the file name,
// then the "Statement Date" line of the first page, then any four-digit run on
// that page, then the year of now.
func InferYear(filename, firstPage string, now time.Time) YearInference {
	if m := fourDigits.FindStringSubmatch(filepath.Base(filename)); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil {
			return YearInference{Year: year, Source: YearFromFilename}
		}
	}

	if firstPage != "" {
		if m := statementDateLine.FindStringSubmatch(firstPage); m != nil {
			if year, err := strconv.Atoi(m[2]); err == nil {
				return YearInference{Year: year, Source: YearFromStatementDate}
			}
		}
		if m := fourDigits.FindStringSubmatch(firstPage); m != nil {
			if year, err := strconv.Atoi(m[1]); err == nil {
				return YearInference{Year: year, Source: YearFromPageText}
			}
		}
	}

	return YearInference{Year: now.Year(), Source: YearFromClock}
}
