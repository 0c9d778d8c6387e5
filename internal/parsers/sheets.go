package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"statement-reconciler/internal/models"
	"statement-reconciler/pkg/errors"
)

// SheetFormat identifies the container of a tabular source
type SheetFormat string

const (
	FormatXLSX SheetFormat = "xlsx"
	FormatXLS  SheetFormat = "xls"
	FormatCSV  SheetFormat = "csv"
)

// DetectSheetFormat picks the reader from the file extension
func DetectSheetFormat(path string) (SheetFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	default:
		return "", errors.FileError(errors.CodeUnsupportedInput, path, nil)
	}
}

// readSheet returns every row of the first sheet as strings, header first
func readSheet(path string, delimiter rune) ([][]string, error) {
	format, err := DetectSheetFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return readXLSX(path)
	case FormatXLS:
		return readXLS(path)
	default:
		return readCSV(path, delimiter)
	}
}

func readXLSX(path string) ([][]string, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", "", err).
			WithSuggestion("the file could not be opened as an .xlsx workbook")
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError(errors.CodeEmptySheet, path, 0, "", "", nil)
	}

	rows, err := workbook.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", "", err)
	}
	return rows, nil
}

func readXLS(path string) ([][]string, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	workbook, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", "", err).
			WithSuggestion("the file could not be opened as an .xls workbook")
	}
	if workbook.NumSheets() == 0 {
		return nil, errors.ParseError(errors.CodeEmptySheet, path, 0, "", "", nil)
	}

	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, errors.ParseError(errors.CodeEmptySheet, path, 0, "", "", nil)
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(path string, delimiter rune) ([][]string, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			if pe, ok := err.(*csv.ParseError); ok {
				line = pe.Line
			}
			return nil, errors.ParseError(errors.CodeInvalidFormat, path, line, "", "", err).
				WithSuggestion("check the file format and ensure it's a valid CSV")
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// Serial numbers outside this window are not treated as spreadsheet dates.
const (
	minDateSerial = 1
	maxDateSerial = 2958465
)

// parseDateCell reads a cell as a calendar date. Text is tried against the
// configured layouts, plain numbers are read as spreadsheet date serials.
func parseDateCell(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if t, err := models.ParseTimeWithFormats(value, layouts); err == nil {
		return t, nil
	}

	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial < minDateSerial || serial > maxDateSerial {
		return time.Time{}, fmt.Errorf("unrecognized date %q", value)
	}

	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date serial %q: %w", value, err)
	}
	return models.CalendarDate(t), nil
}
