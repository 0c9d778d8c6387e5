package parsers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"statement-reconciler/internal/models"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// PercentUnchanged marks a progress message that does not move the bar
const PercentUnchanged = -1

// NotifyFunc receives progress messages while a folder is parsed
type NotifyFunc func(message string, percent int)

// DocumentReport describes the outcome of one statement document
type DocumentReport struct {
	File         string     `json:"file"`
	Year         int        `json:"year"`
	YearSource   YearSource `json:"year_source"`
	Pages        int        `json:"pages"`
	Lines        int        `json:"lines"`
	Transactions int        `json:"transactions"`
	Err          error      `json:"-"`
}

// DocumentResult is the outcome of parsing a statement folder
type DocumentResult struct {
	Set         models.TransactionSet
	LatestDate  time.Time
	LatestFound bool
	Documents   []DocumentReport
	Stats       *ParseStats
}

// DocumentParser extracts transactions from a folder of statement documents
type DocumentParser struct {
	config    *DocumentConfig
	extractor TextExtractor
	grammar   *Grammar
	logger    logger.Logger
	now       func() time.Time
}

// NewDocumentParser creates a parser that reads page text through extractor
func NewDocumentParser(config *DocumentConfig, extractor TextExtractor) (*DocumentParser, error) {
	if config == nil {
		config = DefaultDocumentConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "documents", config, err)
	}
	if extractor == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "documents.extractor", nil,
			fmt.Errorf("a text extractor is required"))
	}

	grammar, err := NewGrammar(config.Rules)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "documents.rules", nil, err)
	}

	return &DocumentParser{
		config:    config,
		extractor: extractor,
		grammar:   grammar,
		logger:    logger.WithComponent(logger.ComponentDocuments),
		now:       time.Now,
	}, nil
}

// WithClock replaces the clock used for year fallback and the latest date
func (p *DocumentParser) WithClock(now func() time.Time) *DocumentParser {
	p.now = now
	return p
}

// ListDocuments returns the statement files of dir in name order
func (p *DocumentParser) ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, classifyFileError(dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !p.config.matchesExtension(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ParseFolder parses every statement in dir. A document that fails is
// reported through notify and skipped; the folder itself failing to list is
// the only fatal error besides cancellation. Records keep file order.
func (p *DocumentParser) ParseFolder(ctx context.Context, dir string, notify NotifyFunc) (*DocumentResult, error) {
	if notify == nil {
		notify = func(string, int) {}
	}

	files, err := p.ListDocuments(dir)
	if err != nil {
		return nil, err
	}

	opLogger := logger.NewOperationLogger("parse_folder", p.logger).
		WithField("dir", dir).
		WithField("documents", len(files))
	opLogger.Step("parsing documents")

	total := len(files)
	reports := make([]DocumentReport, total)
	perFile := make([][]models.TransactionRecord, total)

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		i, path := i, path

		// Go blocks while all workers are busy, so each file is announced
		// in folder order just before it starts.
		mu.Lock()
		notify(fmt.Sprintf("Processing %s...", filepath.Base(path)), i*50/total)
		mu.Unlock()

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			report, records := p.ParseDocument(gctx, path)
			if report.Err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				notify(fmt.Sprintf("Error processing %s: %v", filepath.Base(path), report.Err), PercentUnchanged)
				mu.Unlock()
			}

			reports[i] = report
			perFile[i] = records
			return nil
		})
	}

	if err = g.Wait(); err == nil {
		err = ctx.Err()
	}
	if err != nil {
		opLogger.Error(err, "Document parsing cancelled")
		return nil, err
	}

	stats := NewParseStats()
	stats.Files = total
	var all []models.TransactionRecord
	for i, report := range reports {
		stats.Lines += report.Lines
		stats.LinesMatched += report.Transactions
		if report.Err != nil {
			stats.FilesFailed++
			stats.AddError(errors.DocumentFailure(report.File, report.Err))
		}
		all = append(all, perFile[i]...)
	}

	result := &DocumentResult{
		Set:       models.NewTransactionSet(all),
		Documents: reports,
		Stats:     stats,
	}
	stats.Records = result.Set.Len()

	result.LatestDate, result.LatestFound = result.Set.LatestDate()
	if !result.LatestFound {
		result.LatestDate = models.CalendarDate(p.now())
		notify("No transactions found or error in parsing dates. Using current date.", PercentUnchanged)
	}

	if stats.HasErrors() {
		problems, _ := stats.Problems()
		opLogger.WithField("problems", problems.Error()).
			Warning("Some documents were skipped")
	}

	opLogger.WithField("records", stats.Records).
		WithField("failed", stats.FilesFailed).
		Success("Documents parsed")
	return result, nil
}

// ParseDocument extracts and parses a single document. Failures are carried
// in the report rather than returned.
func (p *DocumentParser) ParseDocument(ctx context.Context, path string) (DocumentReport, []models.TransactionRecord) {
	report := DocumentReport{File: path}

	pages, err := p.extractor.ExtractPages(ctx, path)
	if err != nil {
		report.Err = err
		p.logger.WithError(err).WithField("file", filepath.Base(path)).Warn("Failed to extract document text")
		return report, nil
	}

	records, inference, lines := p.ParsePages(path, pages)
	report.Year = inference.Year
	report.YearSource = inference.Source
	report.Pages = len(pages)
	report.Lines = lines
	report.Transactions = len(records)

	p.logger.WithFields(logger.Fields{
		"file":         filepath.Base(path),
		"year":         inference.Year,
		"year_source":  inference.Source,
		"transactions": len(records),
	}).Debug("Parsed document")

	return report, records
}

// ParsePages applies the line grammar to already extracted page text
func (p *DocumentParser) ParsePages(path string, pages []string) ([]models.TransactionRecord, YearInference, int) {
	firstPage := ""
	if len(pages) > 0 {
		firstPage = pages[0]
	}
	inference := InferYear(path, firstPage, p.now())

	var (
		records []models.TransactionRecord
		lines   int
	)
	for _, page := range pages {
		if page == "" {
			continue
		}
		for _, line := range strings.Split(page, "\n") {
			lines++
			record, ok := p.parseLine(line, inference.Year)
			if ok {
				records = append(records, record)
			}
		}
	}
	return records, inference, lines
}

func (p *DocumentParser) parseLine(line string, year int) (models.TransactionRecord, bool) {
	match, ok := p.grammar.Match(line)
	if !ok {
		return models.TransactionRecord{}, false
	}

	date, err := time.Parse("2 Jan 2006", fmt.Sprintf("%s %d", match.DayMonth, year))
	if err != nil {
		p.logger.WithField("line", line).Debug("Skipping line with invalid date")
		return models.TransactionRecord{}, false
	}

	amount, err := match.SignedAmount()
	if err != nil {
		p.logger.WithField("line", line).Debug("Skipping line with invalid amount")
		return models.TransactionRecord{}, false
	}

	return models.NewTransactionRecord(date, match.Description, amount), true
}
