package reconciler

import (
	"fmt"
	"strings"
	"time"

	"statement-reconciler/internal/models"
)

// InvalidDateWarning is reported when a range bound cannot be parsed
const InvalidDateWarning = "Invalid date format. Using all available dates."

// DateRangeLayouts are the accepted formats of a range bound, in order
var DateRangeLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02"}

// DateRange is an inclusive calendar-day range. A zero bound is open.
type DateRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// ParseDateRange parses the start and end bounds. Empty bounds stay open; a
// bound that fails to parse is also left open and reported once as a warning.
func ParseDateRange(start, end string) (DateRange, []string) {
	var (
		r       DateRange
		invalid bool
	)

	if s := strings.TrimSpace(start); s != "" {
		t, err := models.ParseTimeWithFormats(s, DateRangeLayouts)
		if err != nil {
			invalid = true
		} else {
			r.Start = models.CalendarDate(t)
		}
	}

	if e := strings.TrimSpace(end); e != "" {
		t, err := models.ParseTimeWithFormats(e, DateRangeLayouts)
		if err != nil {
			invalid = true
		} else {
			r.End = models.CalendarDate(t)
		}
	}

	if invalid {
		return r, []string{InvalidDateWarning}
	}
	return r, nil
}

// IsZero reports whether both bounds are open
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Validate reports a range whose start is after its end
func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return fmt.Errorf("start date %s is after end date %s",
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	return nil
}

// Contains reports whether t falls inside the range. A zero t is only
// contained by a fully open range.
func (r DateRange) Contains(t time.Time) bool {
	if r.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	d := models.CalendarDate(t)
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// Apply returns the records of set inside the range, keeping their order
func (r DateRange) Apply(set models.TransactionSet) models.TransactionSet {
	if r.IsZero() {
		return set
	}
	return set.Filter(func(rec models.TransactionRecord) bool {
		return r.Contains(rec.Date)
	})
}

// String returns a readable form of the range
func (r DateRange) String() string {
	bound := func(t time.Time) string {
		if t.IsZero() {
			return "*"
		}
		return t.Format("2006-01-02")
	}
	return fmt.Sprintf("[%s, %s]", bound(r.Start), bound(r.End))
}
