package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"statement-reconciler/internal/matcher"
	"statement-reconciler/internal/parsers"
	"statement-reconciler/pkg/errors"
)

// fakeExtractor serves page text keyed by file base name
type fakeExtractor struct {
	pages map[string][]string
}

func (f *fakeExtractor) ExtractPages(ctx context.Context, path string) ([]string, error) {
	pages, ok := f.pages[filepath.Base(path)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return pages, nil
}

type progressLog struct {
	mu      sync.Mutex
	updates []ProgressUpdate
}

func (p *progressLog) notify(message string, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, ProgressUpdate{Message: message, Percent: percent})
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

var fixedNow = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, config *Config, pages map[string][]string) *Service {
	t.Helper()
	service, err := NewService(config, &fakeExtractor{pages: pages})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return service.WithClock(func() time.Time { return fixedNow })
}

// statementScenario writes one statement and a ledger sheet holding the
// salary and the coffee purchase with its sign flipped.
func statementScenario(t *testing.T) (*Request, map[string][]string) {
	t.Helper()
	root := t.TempDir()
	docs := filepath.Join(root, "statements")
	if err := os.Mkdir(docs, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(docs, "statement_2024.pdf"), "")

	ledger := writeFile(t, filepath.Join(root, "ledger.csv"),
		"Transaction Date,Transaction Details,Amount\n"+
			"2024-01-06,Payroll,2000.00\n"+
			"2024-01-05,Cafe,4.50\n")

	pages := map[string][]string{
		"statement_2024.pdf": {"Everyday Account\n05 Jan COFFEE SHOP 4.50\n06 Jan SALARY 2000.00 Cr"},
	}

	return &Request{
		Mode:        ModePDFExcel,
		DocumentDir: docs,
		PrimaryFile: ledger,
		OutputDir:   filepath.Join(root, "out"),
	}, pages
}

func TestService_Run_StatementScenario(t *testing.T) {
	tests := []struct {
		name        string
		sign        matcher.SignPolicy
		wantMatched []string
		wantOnlyA   []string
		wantOnlyB   []string
	}{
		{
			name:        "signed",
			sign:        matcher.SignSigned,
			wantMatched: []string{"SALARY"},
			wantOnlyA:   []string{"COFFEE"},
			wantOnlyB:   []string{"Cafe"},
		},
		{
			name:        "absolute",
			sign:        matcher.SignAbsolute,
			wantMatched: []string{"COFFEE", "SALARY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, pages := statementScenario(t)
			config := DefaultConfig()
			config.Matching.Sign = tt.sign
			service := newTestService(t, config, pages)

			result, err := service.Run(context.Background(), req, nil)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			var matched, onlyA, onlyB []string
			for _, m := range result.Outcome.Matched {
				matched = append(matched, m.Record.Description)
				if m.Score < matcher.DefaultThreshold {
					t.Errorf("%s matched with score %d", m.Record.Description, m.Score)
				}
			}
			for _, m := range result.Outcome.OnlyInA {
				onlyA = append(onlyA, m.Record.Description)
			}
			for _, r := range result.Outcome.OnlyInB.Records() {
				onlyB = append(onlyB, r.Description)
			}

			if !reflect.DeepEqual(matched, tt.wantMatched) {
				t.Errorf("matched = %v, want %v", matched, tt.wantMatched)
			}
			if !reflect.DeepEqual(onlyA, tt.wantOnlyA) {
				t.Errorf("only in A = %v, want %v", onlyA, tt.wantOnlyA)
			}
			if !reflect.DeepEqual(onlyB, tt.wantOnlyB) {
				t.Errorf("only in B = %v, want %v", onlyB, tt.wantOnlyB)
			}

			if want := decimal.RequireFromString("9.00"); !result.Summary.BalanceDifference.Equal(want) {
				t.Errorf("balance = %s, want %s", result.Summary.BalanceDifference, want)
			}
			if !result.LatestDate.Equal(day(2024, 1, 6)) {
				t.Errorf("latest date = %v, want 2024-01-06", result.LatestDate)
			}
			if result.Summary.LabelA != "PDF Statements" || result.Summary.LabelB != "Excel File" {
				t.Errorf("labels = %q / %q", result.Summary.LabelA, result.Summary.LabelB)
			}
			if result.RunID == "" || result.Summary.RunID != result.RunID {
				t.Errorf("run id = %q, summary run id = %q", result.RunID, result.Summary.RunID)
			}

			for _, path := range []string{result.Paths.Result, result.Paths.Raw} {
				if _, err := os.Stat(path); err != nil {
					t.Errorf("export %s missing: %v", path, err)
				}
			}
			if want := filepath.Join(req.OutputDir, "Reconciliation_Result_20240201_100000.xlsx"); result.Paths.Result != want {
				t.Errorf("result path = %s, want %s", result.Paths.Result, want)
			}
		})
	}
}

func TestService_Run_Progress(t *testing.T) {
	req, pages := statementScenario(t)
	service := newTestService(t, nil, pages)

	progress := &progressLog{}
	if _, err := service.Run(context.Background(), req, progress.notify); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []ProgressUpdate{
		{"Extracting transactions from PDF statements...", 10},
		{"Processing statement_2024.pdf...", 0},
		{"Loading Excel transactions...", 60},
		{"Reconciling transactions...", 70},
		{"Calculating balance differences...", 80},
		{"Saving results...", 90},
		{"Reconciliation completed successfully!", 100},
	}
	if !reflect.DeepEqual(progress.updates, want) {
		t.Errorf("progress =\n%v\nwant\n%v", progress.updates, want)
	}
}

func TestService_Run_SpreadsheetPair(t *testing.T) {
	root := t.TempDir()
	first := writeFile(t, filepath.Join(root, "first.csv"),
		"Date,Details,Value\n"+
			"03/01/2024,Rent,-1200.00\n"+
			"10/01/2024,Refund,35.10\n"+
			"20/01/2024,Groceries,-82.45\n")
	second := writeFile(t, filepath.Join(root, "second.csv"),
		"Amount\n"+
			"-82.45\n"+
			"-1200.00\n"+
			"not a number\n")

	service := newTestService(t, nil, nil)
	progress := &progressLog{}

	req := &Request{
		Mode:          ModeExcelExcel,
		PrimaryFile:   first,
		SecondaryFile: second,
		OutputDir:     filepath.Join(root, "out"),
		DateRange:     DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 15)},
	}
	result, err := service.Run(context.Background(), req, progress.notify)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := result.Summary; got.LabelA != "First Excel File" || got.LabelB != "Second Excel File" {
		t.Errorf("labels = %q / %q", got.LabelA, got.LabelB)
	}

	// the lenient sheet has no dates, so the range removes all of it
	if result.Outcome.CountA != 2 || result.Outcome.CountB != 0 {
		t.Errorf("counts = %d / %d, want 2 / 0", result.Outcome.CountA, result.Outcome.CountB)
	}
	if !result.LatestDate.Equal(day(2024, 1, 20)) {
		t.Errorf("latest date = %v, want the newest first-file date before filtering", result.LatestDate)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "Columns not found") {
		t.Errorf("warnings = %v, want a placeholder warning", result.Warnings)
	}

	percents := make([]int, 0, len(progress.updates))
	for _, u := range progress.updates {
		percents = append(percents, u.Percent)
	}
	if want := []int{30, 60, 70, 80, 90, 100}; !reflect.DeepEqual(percents, want) {
		t.Errorf("percents = %v, want %v", percents, want)
	}
}

func TestService_Run_SpreadsheetPairWithoutRange(t *testing.T) {
	root := t.TempDir()
	first := writeFile(t, filepath.Join(root, "first.csv"),
		"Transaction Date,Transaction Details,Amount\n"+
			"2024-01-03,Rent,-1200.00\n"+
			"2024-01-20,Groceries,-82.45\n")
	second := writeFile(t, filepath.Join(root, "second.csv"),
		"Value\n-82.45\n-1200.00\n15.00\n")

	service := newTestService(t, nil, nil)
	result, err := service.Run(context.Background(), &Request{
		Mode:          ModeExcelExcel,
		PrimaryFile:   first,
		SecondaryFile: second,
		OutputDir:     filepath.Join(root, "out"),
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Summary.Matched != 2 || result.Summary.OnlyInA != 0 || result.Summary.OnlyInB != 1 {
		t.Errorf("summary = %d matched, %d only A, %d only B", result.Summary.Matched, result.Summary.OnlyInA, result.Summary.OnlyInB)
	}
	sumA := decimal.RequireFromString("-1282.45")
	sumB := decimal.RequireFromString("-1267.45")
	if !result.Summary.BalanceDifference.Equal(sumB.Sub(sumA)) {
		t.Errorf("balance = %s, want %s", result.Summary.BalanceDifference, sumB.Sub(sumA))
	}
	if got := result.Outcome.OnlyInB.At(0).Description; got != "Unknown" {
		t.Errorf("placeholder description = %q, want Unknown", got)
	}
}

func TestService_Run_Errors(t *testing.T) {
	root := t.TempDir()
	noAmount := writeFile(t, filepath.Join(root, "no_amount.csv"), "Date,Details\n2024-01-01,Rent\n")
	good := writeFile(t, filepath.Join(root, "good.csv"), "Transaction Date,Transaction Details,Amount\n2024-01-01,Rent,-10\n")

	tests := []struct {
		name         string
		req          *Request
		wantCategory errors.ErrorCategory
		wantCode     errors.ErrorCode
	}{
		{
			name:         "primary sheet missing a column",
			req:          &Request{Mode: ModeExcelExcel, PrimaryFile: noAmount, SecondaryFile: good, OutputDir: root},
			wantCategory: errors.CategoryParse,
			wantCode:     errors.CodeMissingColumn,
		},
		{
			name:         "missing second file",
			req:          &Request{Mode: ModeExcelExcel, PrimaryFile: good, SecondaryFile: filepath.Join(root, "absent.csv"), OutputDir: root},
			wantCategory: errors.CategoryFile,
			wantCode:     errors.CodeFileNotFound,
		},
		{
			name:         "missing statement folder",
			req:          &Request{Mode: ModePDFExcel, DocumentDir: filepath.Join(root, "absent"), PrimaryFile: good, OutputDir: root},
			wantCategory: errors.CategoryFile,
			wantCode:     errors.CodeFileNotFound,
		},
		{
			name:         "no output folder",
			req:          &Request{Mode: ModeExcelExcel, PrimaryFile: good, SecondaryFile: good},
			wantCategory: errors.CategoryValidation,
			wantCode:     errors.CodeMissingField,
		},
		{
			name:         "unknown mode",
			req:          &Request{Mode: "csv-csv", PrimaryFile: good, OutputDir: root},
			wantCategory: errors.CategoryValidation,
			wantCode:     errors.CodeOutOfRange,
		},
		{
			name: "inverted range",
			req: &Request{Mode: ModeExcelExcel, PrimaryFile: good, SecondaryFile: good, OutputDir: root,
				DateRange: DateRange{Start: day(2024, 2, 1), End: day(2024, 1, 1)}},
			wantCategory: errors.CategoryValidation,
			wantCode:     errors.CodeInvalidDateRange,
		},
	}

	service := newTestService(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress := &progressLog{}
			result, err := service.Run(context.Background(), tt.req, progress.notify)
			if err == nil {
				t.Fatalf("Run() returned %v, want an error", result)
			}

			rerr, ok := errors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("error %T is not a ReconcilerError: %v", err, err)
			}
			if rerr.Category != tt.wantCategory || rerr.Code != tt.wantCode {
				t.Errorf("error = %s/%s, want %s/%s", rerr.Category, rerr.Code, tt.wantCategory, tt.wantCode)
			}

			last := progress.updates[len(progress.updates)-1]
			if last.Percent != 100 || !strings.HasPrefix(last.Message, "Error during reconciliation: ") {
				t.Errorf("last update = %+v", last)
			}
		})
	}
}

func TestService_Run_DocumentFailureIsNotFatal(t *testing.T) {
	req, pages := statementScenario(t)
	writeFile(t, filepath.Join(req.DocumentDir, "unreadable.pdf"), "")
	service := newTestService(t, nil, pages)

	result, err := service.Run(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Outcome.CountA != 2 {
		t.Errorf("records from A = %d, want 2", result.Outcome.CountA)
	}

	found := false
	for _, w := range result.Warnings {
		if strings.HasPrefix(w, "Error processing unreadable.pdf") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want one for unreadable.pdf", result.Warnings)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero buffer", func(c *Config) { c.ProgressBuffer = 0 }, true},
		{"empty label", func(c *Config) { c.Labels.Sheet = " " }, true},
		{"same labels", func(c *Config) { c.Labels.SecondSheet = c.Labels.FirstSheet }, true},
		{"bad threshold", func(c *Config) { c.Matching.Threshold = 101 }, true},
		{"bad workers", func(c *Config) { c.Documents.Workers = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{
		"pdf-excel":    ModePDFExcel,
		"PDF_EXCEL":    ModePDFExcel,
		" excel-excel": ModeExcelExcel,
	} {
		got, err := ParseMode(input)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseMode("pdf-pdf"); err == nil {
		t.Error("ParseMode(pdf-pdf) should fail")
	}
}

func TestSourceLabels_For(t *testing.T) {
	labels := DefaultSourceLabels()
	if got := labels.For(ModePDFExcel); got != (matcher.Labels{A: "PDF Statements", B: "Excel File"}) {
		t.Errorf("pdf-excel labels = %+v", got)
	}
	if got := labels.For(ModeExcelExcel); got != (matcher.Labels{A: "First Excel File", B: "Second Excel File"}) {
		t.Errorf("excel-excel labels = %+v", got)
	}
}

var _ parsers.TextExtractor = (*fakeExtractor)(nil)
