package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSet is an ordered, read-only sequence of records. Order is the
// extraction or row order of the source. Duplicates are allowed.
type TransactionSet struct {
	records []TransactionRecord
}

// NewTransactionSet copies records into a new set.
func NewTransactionSet(records []TransactionRecord) TransactionSet {
	return TransactionSet{records: append([]TransactionRecord(nil), records...)}
}

// Len returns the number of records.
func (s TransactionSet) Len() int {
	return len(s.records)
}

// At returns the record at index i.
func (s TransactionSet) At(i int) TransactionRecord {
	return s.records[i]
}

// Records returns a copy of the records in order.
func (s TransactionSet) Records() []TransactionRecord {
	return append([]TransactionRecord(nil), s.records...)
}

// Total sums every amount exactly.
func (s TransactionSet) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.records {
		total = total.Add(r.Amount)
	}
	return total
}

// LatestDate returns the most recent non-zero date. ok is false when no
// record carries a date.
func (s TransactionSet) LatestDate() (latest time.Time, ok bool) {
	for _, r := range s.records {
		if r.Date.IsZero() {
			continue
		}
		if !ok || r.Date.After(latest) {
			latest = r.Date
			ok = true
		}
	}
	return latest, ok
}

// Filter returns a new set holding the records keep accepts.
func (s TransactionSet) Filter(keep func(TransactionRecord) bool) TransactionSet {
	out := make([]TransactionRecord, 0, len(s.records))
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return TransactionSet{records: out}
}

// Equal reports whether both sets hold equal records in the same order.
func (s TransactionSet) Equal(other TransactionSet) bool {
	if len(s.records) != len(other.records) {
		return false
	}
	for i := range s.records {
		if !s.records[i].Equals(other.records[i]) {
			return false
		}
	}
	return true
}
