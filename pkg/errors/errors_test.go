package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNewAndWrap(t *testing.T) {
	diskFull := errors.New("disk full")

	cases := map[string]struct {
		err      *ReconcilerError
		cause    error
		wantExit int
	}{
		"fresh parse error": {
			err:      New(CategoryParse, CodeMissingColumn, "missing column"),
			wantExit: 3,
		},
		"wrapped export error": {
			err:      Wrap(diskFull, CategoryExport, CodeWriteFailed, "write failed"),
			cause:    diskFull,
			wantExit: 6,
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if got := c.err.GetExitCode(); got != c.wantExit {
				t.Errorf("GetExitCode() = %d, want %d", got, c.wantExit)
			}
			if c.err.Error() != c.err.Message {
				t.Errorf("Error() = %q, want the bare message %q", c.err.Error(), c.err.Message)
			}
			if c.cause != nil && !errors.Is(c.err, c.cause) {
				t.Errorf("errors.Is(%v, cause) = false", c.err)
			}
			if len(c.err.StackTrace) == 0 {
				t.Error("expected a captured stack trace")
			}
		})
	}

	if Wrap(nil, CategoryFile, CodeFileNotFound, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestErrorStringCarriesSuggestion(t *testing.T) {
	err := New(CategoryValidation, CodeOutOfRange, "threshold too high").
		WithContext("field", "threshold").
		WithSuggestion("use a value between 0 and 100")

	if err.Context["field"] != "threshold" {
		t.Errorf("field context = %v", err.Context["field"])
	}
	if want := "threshold too high (suggestion: use a value between 0 and 100)"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/test/ledger.xlsx", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Context["file_path"] != "/test/ledger.xlsx" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeInvalidFormat, "ledger.csv", 10, "Amount", "12.3.4", nil)

		if err.Category != CategoryParse {
			t.Errorf("expected parse category, got %s", err.Category)
		}
		if err.Context["row"] != 10 {
			t.Errorf("expected row context, got %v", err.Context["row"])
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeInvalidDateRange, "start-date", "02/01/2024 > 01/01/2024", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "start-date" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
	})

	t.Run("ExportError", func(t *testing.T) {
		err := ExportError(CodeOutputDir, "/readonly/out", errors.New("read-only file system"))

		if err.Category != CategoryExport {
			t.Errorf("expected export category, got %s", err.Category)
		}
		if err.Context["path"] != "/readonly/out" {
			t.Errorf("expected path context, got %v", err.Context["path"])
		}
	})
}

func TestMissingColumnError(t *testing.T) {
	err := MissingColumnError("/data/ledger.xlsx",
		[]string{"Transaction Date", "Amount"},
		[]string{"Payee", "Memo"})

	if err.Recoverable {
		t.Error("missing columns must not be recoverable")
	}
	if len(err.Missing) != 2 {
		t.Fatalf("expected 2 missing columns, got %d", len(err.Missing))
	}
	for _, want := range []string{"Transaction Date", "Amount", "ledger.xlsx"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error %q to mention %q", err.Error(), want)
		}
	}

	base, ok := AsReconcilerError(err)
	if !ok {
		t.Fatal("expected AsReconcilerError to find the embedded error")
	}
	if base.Code != CodeMissingColumn {
		t.Errorf("expected missing column code, got %s", base.Code)
	}
}

func TestDocumentFailure(t *testing.T) {
	cause := errors.New("malformed xref table")
	err := DocumentFailure("/statements/march.pdf", cause)

	if !err.Recoverable {
		t.Error("document failures should be recoverable")
	}
	if !strings.HasPrefix(err.Message, "Error processing march.pdf") {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("expected document failure to wrap its cause")
	}
}

func TestParseErrorCollector(t *testing.T) {
	collector := NewParseErrorCollector(2)

	if !collector.Add(DocumentFailure("a.pdf", errors.New("bad"))) {
		t.Error("recoverable error should allow processing to continue")
	}
	collector.Add(DocumentFailure("b.pdf", errors.New("bad")))
	collector.Add(DocumentFailure("c.pdf", errors.New("bad")))

	if got := len(collector.GetErrors()); got != 2 {
		t.Errorf("expected collector to cap at 2 errors, got %d", got)
	}
	if collector.Add(MissingColumnError("x.csv", []string{"Amount"}, nil)) {
		t.Error("unrecoverable error should stop processing")
	}

	summary := collector.GetSummary()
	if !summary.HasCode(CodeUnreadableDocument) {
		t.Error("expected summary to contain unreadable document code")
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		New(CategoryFile, CodeFileNotFound, "error 1"),
		New(CategoryFile, CodeFilePermission, "error 2"),
		New(CategoryParse, CodeInvalidFormat, "error 3"),
		New(CategoryValidation, CodeInvalidAmount, "error 4"),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 4 {
		t.Errorf("expected total 4, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryFile] != 2 {
		t.Errorf("expected 2 file errors, got %d", summary.ByCategory[CategoryFile])
	}
	if !summary.HasCategory(CategoryParse) {
		t.Error("expected to have parse category")
	}
	if summary.HasCategory(CategoryExport) {
		t.Error("expected not to have export category")
	}

	want := "4 errors occurred (file: 2, parse: 1, validation: 1)"
	if summary.Error() != want {
		t.Errorf("expected %q, got %q", want, summary.Error())
	}
	if summary.GetExitCode() != 3 {
		t.Errorf("expected exit code 3, got %d", summary.GetExitCode())
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary(nil)

	if summary.Total != 0 {
		t.Errorf("expected total 0, got %d", summary.Total)
	}
	if summary.Error() != "no errors" {
		t.Errorf("expected 'no errors', got '%s'", summary.Error())
	}
	if summary.GetExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", summary.GetExitCode())
	}
}

func TestAsReconcilerError(t *testing.T) {
	reconcilerErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if extracted, ok := AsReconcilerError(reconcilerErr); !ok || extracted != reconcilerErr {
		t.Error("expected AsReconcilerError to extract ReconcilerError")
	}
	if _, ok := AsReconcilerError(genericErr); ok {
		t.Error("expected AsReconcilerError to return false for generic error")
	}
	if _, ok := AsReconcilerError(nil); ok {
		t.Error("expected AsReconcilerError to return false for nil")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	reconcilerErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if result := WrapIfNeeded(reconcilerErr, CategoryParse, CodeInvalidFormat, "wrapped"); result != reconcilerErr {
		t.Error("expected WrapIfNeeded to return original ReconcilerError")
	}

	result := WrapIfNeeded(genericErr, CategoryInternal, CodeUnexpectedError, "wrapped")
	if result.Cause != genericErr {
		t.Error("expected WrapIfNeeded to wrap generic error")
	}
	if result.Category != CategoryInternal {
		t.Error("expected wrapped error to have correct category")
	}

	if WrapIfNeeded(nil, CategoryParse, CodeInvalidFormat, "wrapped") != nil {
		t.Error("expected WrapIfNeeded to return nil for nil input")
	}
}

func TestExitCodes(t *testing.T) {
	want := map[ErrorCategory]int{
		CategoryFile:           2,
		CategoryParse:          3,
		CategoryValidation:     3,
		CategoryConfiguration:  4,
		CategoryReconciliation: 5,
		CategoryInternal:       5,
		CategoryExport:         6,
		"unknown":              1,
	}
	for category, code := range want {
		if got := New(category, "any", "msg").GetExitCode(); got != code {
			t.Errorf("exit code for %s = %d, want %d", category, got, code)
		}
	}
}

func TestCatalogMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *ReconcilerError
		want string
	}{
		{
			name: "missing field",
			err:  ValidationError(CodeMissingField, "pdf-dir", nil, nil),
			want: "required field 'pdf-dir' is missing or empty",
		},
		{
			name: "directory",
			err:  FileError(CodeDirectoryError, "/statements", nil),
			want: "directory error: /statements",
		},
		{
			name: "threshold",
			err:  ConfigurationError(CodeInvalidConfig, "threshold", 150, nil),
			want: "invalid configuration for 'threshold': 150",
		},
		{
			name: "missing column",
			err:  ParseError(CodeMissingColumn, "ledger.csv", 1, "Amount", "", nil),
			want: "missing required column 'Amount' in ledger.csv",
		},
		{
			name: "code from another category falls back",
			err:  ParseError(CodeInvalidAmount, "ledger.csv", 7, "Amount", "abc", nil),
			want: "parse error in ledger.csv at row 7",
		},
		{
			name: "unknown code falls back",
			err:  ExportError("mystery", "out.xlsx", nil),
			want: "export error: out.xlsx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Message != tt.want {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.want)
			}
			if tt.err.Suggestion == "" {
				t.Error("expected a suggestion")
			}
		})
	}
}

func TestEnhancedParseErrorLocation(t *testing.T) {
	err := NewEnhancedParseError(CodeInvalidDate,
		&ParseContext{File: "/data/bank.csv", Row: 4, Column: "Transaction Date", Value: "31/02"},
		"unreadable date", nil)

	if got := err.Error(); got != "unreadable date at bank.csv:4 column 'Transaction Date'" {
		t.Errorf("Error() = %q", got)
	}
	if err.ReconcilerError.Context["value"] != "31/02" {
		t.Errorf("value context = %v", err.ReconcilerError.Context["value"])
	}

	bare := NewEnhancedParseError(CodeInvalidDate, nil, "unreadable date", nil)
	if bare.Error() != "unreadable date" {
		t.Errorf("Error() without context = %q", bare.Error())
	}
}

func TestParseErrorCollectorDropped(t *testing.T) {
	collector := NewParseErrorCollector(1)
	for _, file := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		collector.Add(DocumentFailure(file, errors.New("bad")))
	}
	if collector.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", collector.Dropped())
	}

	unlimited := NewParseErrorCollector(0)
	for i := 0; i < 150; i++ {
		unlimited.Add(DocumentFailure("x.pdf", errors.New("bad")))
	}
	if len(unlimited.GetErrors()) != 150 || unlimited.Dropped() != 0 {
		t.Errorf("unlimited collector kept %d, dropped %d", len(unlimited.GetErrors()), unlimited.Dropped())
	}
}
