package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"statement-reconciler/internal/matcher"
)

// CompletedMessage opens the summary of a successful run
const CompletedMessage = "Reconciliation completed successfully!"

// Summary is the user-facing digest of one reconciliation run
type Summary struct {
	RunID             string          `json:"run_id"`
	Mode              string          `json:"mode"`
	LabelA            string          `json:"label_a"`
	LabelB            string          `json:"label_b"`
	CountA            int             `json:"count_a"`
	CountB            int             `json:"count_b"`
	Matched           int             `json:"matched"`
	OnlyInA           int             `json:"only_in_a"`
	OnlyInB           int             `json:"only_in_b"`
	TotalA            decimal.Decimal `json:"total_a"`
	TotalB            decimal.Decimal `json:"total_b"`
	BalanceDifference decimal.Decimal `json:"balance_difference"`
	LatestDate        time.Time       `json:"latest_date"`
	Paths             ExportPaths     `json:"paths"`
	Warnings          []string        `json:"warnings,omitempty"`
	Duration          time.Duration   `json:"duration"`
	CompletedAt       time.Time       `json:"completed_at"`
}

// NewSummary digests an outcome and the files it was exported to
func NewSummary(runID, mode string, outcome *matcher.Outcome, paths ExportPaths, latestDate time.Time) *Summary {
	return &Summary{
		RunID:             runID,
		Mode:              mode,
		LabelA:            outcome.Labels.A,
		LabelB:            outcome.Labels.B,
		CountA:            outcome.CountA,
		CountB:            outcome.CountB,
		Matched:           len(outcome.Matched),
		OnlyInA:           len(outcome.OnlyInA),
		OnlyInB:           outcome.OnlyInB.Len(),
		TotalA:            outcome.TotalA,
		TotalB:            outcome.TotalB,
		BalanceDifference: outcome.BalanceDifference,
		LatestDate:        latestDate,
		Paths:             paths,
	}
}

// Text renders the summary block shown when a run completes
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", CompletedMessage)
	fmt.Fprintf(&b, "Total transactions from %s: %d\n", s.LabelA, s.CountA)
	fmt.Fprintf(&b, "Total transactions from %s: %d\n", s.LabelB, s.CountB)
	fmt.Fprintf(&b, "Matched transactions: %d\n", s.Matched)
	fmt.Fprintf(&b, "Only in %s: %d\n", s.LabelA, s.OnlyInA)
	fmt.Fprintf(&b, "Only in %s: %d\n\n", s.LabelB, s.OnlyInB)
	fmt.Fprintf(&b, "Total amount in %s: %s\n", s.LabelA, s.TotalA.StringFixed(2))
	fmt.Fprintf(&b, "Total amount in %s: %s\n", s.LabelB, s.TotalB.StringFixed(2))
	fmt.Fprintf(&b, "Balance difference: %s\n\n", s.BalanceDifference.StringFixed(2))
	fmt.Fprintf(&b, "Results saved to:\n- %s\n- %s\n", s.Paths.Result, s.Paths.Raw)
	return b.String()
}
