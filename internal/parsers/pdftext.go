package parsers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor turns a document into one text string per page. Pages that
// hold no text are returned as empty strings so page positions are kept.
type TextExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// PDFExtractor reads page text with the ledongthuc/pdf reader
type PDFExtractor struct {
	// WordGap is the horizontal distance, in points, above which two text
	// runs on the same row are separated by a space.
	WordGap float64
}

// NewPDFExtractor creates an extractor with the default word gap
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{WordGap: 3}
}

// ExtractPages implements TextExtractor
func (e *PDFExtractor) ExtractPages(ctx context.Context, path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF reader crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text := e.pageByRow(page)
		if text == "" {
			text = pagePlainText(page)
		}
		pages = append(pages, text)
	}

	return pages, nil
}

func (e *PDFExtractor) pageByRow(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if line := joinRow(row.Content, e.WordGap); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func pagePlainText(page pdf.Page) string {
	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		font := page.Font(name)
		fonts[name] = &font
	}
	text, err := page.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// joinRow orders the runs of a row left to right and inserts a single space
// wherever the gap between consecutive runs exceeds gap.
func joinRow(runs []pdf.Text, gap float64) string {
	items := make([]pdf.Text, 0, len(runs))
	for _, run := range runs {
		if run.S != "" {
			items = append(items, run)
		}
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].X < items[b].X })

	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			prev := items[i-1]
			if item.X-(prev.X+prev.W) > gap && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(item.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(item.S)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
