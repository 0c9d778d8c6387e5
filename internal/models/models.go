package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names every source is normalized into.
const (
	ColumnDate        = "Transaction Date"
	ColumnDescription = "Transaction Details"
	ColumnAmount      = "Amount"
)

// CanonicalColumns lists the canonical schema in output order.
var CanonicalColumns = []string{ColumnDate, ColumnDescription, ColumnAmount}

// TransactionRecord is a single normalized transaction. Negative amounts are
// debits (money out), positive amounts are credits (money in).
type TransactionRecord struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewTransactionRecord creates a record with the date truncated to a calendar day.
func NewTransactionRecord(date time.Time, description string, amount decimal.Decimal) TransactionRecord {
	return TransactionRecord{
		Date:        CalendarDate(date),
		Description: description,
		Amount:      amount,
	}
}

// AmountText renders the amount the way the similarity matcher compares it.
func (r TransactionRecord) AmountText() string {
	return AmountText(r.Amount)
}

// String returns a string representation of the record
func (r TransactionRecord) String() string {
	return fmt.Sprintf("TransactionRecord{Date: %s, Description: %q, Amount: %s}",
		r.Date.Format("2006-01-02"), r.Description, r.Amount.StringFixed(2))
}

// MarshalJSON emits the date as a calendar date and the amount as a string
func (r TransactionRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
	}{
		Date:        r.Date.Format("2006-01-02"),
		Description: r.Description,
		Amount:      r.Amount.String(),
	})
}

// Equals reports whether two records carry the same date, description and amount.
func (r TransactionRecord) Equals(other TransactionRecord) bool {
	return r.Date.Equal(other.Date) &&
		r.Description == other.Description &&
		r.Amount.Equal(other.Amount)
}

// AmountText renders a decimal as its shortest exact form with at least one
// fractional digit, so 2000.00 becomes "2000.0" and -4.50 becomes "-4.5".
func AmountText(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// CalendarDate strips the time of day and zone, keeping the wall-clock date.
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDecimalFromString parses a decimal from string, stripping currency
// symbols, thousands separators and accounting-style parentheses.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	for _, symbol := range []string{"$", "£", "€", ",", " ", " "} {
		s = strings.ReplaceAll(s, symbol, "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}

// DefaultDateLayouts is the ordered list tried by ParseTimeWithFormats.
// Slash dates are read day-first.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"2006/01/02",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseTimeWithFormats tries each layout in order and returns the first
// successful parse truncated to a calendar date. A nil layouts slice uses
// DefaultDateLayouts.
func ParseTimeWithFormats(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}
	if layouts == nil {
		layouts = DefaultDateLayouts
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return CalendarDate(t), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}
