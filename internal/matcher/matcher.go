package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"statement-reconciler/internal/models"
	"statement-reconciler/pkg/errors"
	"statement-reconciler/pkg/logger"
)

// NoMatch is the matched-amount text of an A record that found no partner
const NoMatch = "No Match"

// Labels names the two sources in outcomes and exports
type Labels struct {
	A string `json:"a"`
	B string `json:"b"`
}

// MatchedRecord is an A record with the result of its search. Position is
// the record's place in A; CounterpartIndex is the position of the matched B
// record, or -1.
type MatchedRecord struct {
	Position         int                       `json:"position"`
	Record           models.TransactionRecord  `json:"record"`
	MatchedAmount    string                    `json:"matched_amount"`
	Score            int                       `json:"score"`
	CounterpartIndex int                       `json:"counterpart_index"`
	Counterpart      *models.TransactionRecord `json:"counterpart,omitempty"`
}

// IsMatched reports whether the record found a partner
func (m MatchedRecord) IsMatched() bool {
	return m.CounterpartIndex >= 0
}

// Outcome is the result of reconciling source A against source B
type Outcome struct {
	Matched           []MatchedRecord
	OnlyInA           []MatchedRecord
	OnlyInB           models.TransactionSet
	BalanceDifference decimal.Decimal
	Labels            Labels
	TotalA            decimal.Decimal
	TotalB            decimal.Decimal
	CountA            int
	CountB            int
	Config            MatchingConfig
	Duration          time.Duration
}

// MatchingEngine scores and pairs transaction records
type MatchingEngine struct {
	Config *MatchingConfig
	logger logger.Logger
}

// NewMatchingEngine creates a new matching engine with the specified configuration
func NewMatchingEngine(config *MatchingConfig) (*MatchingEngine, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", config.String(), err)
	}

	return &MatchingEngine{
		Config: config.Clone(),
		logger: logger.WithComponent(logger.ComponentMatcher),
	}, nil
}

// Reconcile matches every record of a against b. A records keep their order
// in both Matched and OnlyInA, and OnlyInB keeps the order of b.
func (me *MatchingEngine) Reconcile(ctx context.Context, a, b models.TransactionSet, labels Labels) (*Outcome, error) {
	start := time.Now()
	index := NewAmountIndex(b, me.Config.Sign)

	me.logger.WithFields(logger.Fields{
		"records_a":      a.Len(),
		"records_b":      b.Len(),
		"unique_amounts": index.GetIndexStats().UniqueAmounts,
		"consumption":    me.Config.Consumption.String(),
		"sign":           me.Config.Sign.String(),
		"threshold":      me.Config.Threshold,
	}).Debug("Starting reconciliation")

	claimed := make([]bool, b.Len())
	claimedText := make(map[string]bool)
	available := func(j int) bool {
		if me.Config.Consumption == ConsumeIdentity {
			return !claimed[j]
		}
		return true
	}

	outcome := &Outcome{
		Labels: labels,
		TotalA: a.Total(),
		TotalB: b.Total(),
		CountA: a.Len(),
		CountB: b.Len(),
		Config: *me.Config,
	}

	for i := 0; i < a.Len(); i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.ReconciliationError(errors.CodeMatchingFailed, "reconcile", err)
			}
		}

		record := a.At(i)
		best, score := me.bestCandidate(comparisonText(record, me.Config.Sign), index, available)

		if best >= 0 && score >= me.Config.Threshold {
			counterpart := b.At(best)
			outcome.Matched = append(outcome.Matched, MatchedRecord{
				Position:         i,
				Record:           record,
				MatchedAmount:    counterpart.AmountText(),
				Score:            score,
				CounterpartIndex: best,
				Counterpart:      &counterpart,
			})
			claimed[best] = true
			claimedText[index.Texts[best]] = true
			continue
		}

		outcome.OnlyInA = append(outcome.OnlyInA, MatchedRecord{
			Position:         i,
			Record:           record,
			MatchedAmount:    NoMatch,
			Score:            0,
			CounterpartIndex: -1,
		})
	}

	outcome.OnlyInB = me.unclaimed(b, index, claimed, claimedText)
	outcome.BalanceDifference = outcome.TotalB.Sub(outcome.TotalA)
	outcome.Duration = time.Since(start)

	me.logger.WithFields(logger.Fields{
		"matched":   len(outcome.Matched),
		"only_in_a": len(outcome.OnlyInA),
		"only_in_b": outcome.OnlyInB.Len(),
		"balance":   outcome.BalanceDifference.String(),
		"duration":  outcome.Duration.String(),
	}).Info("Reconciliation finished")

	return outcome, nil
}

// bestCandidate returns the position and score of the best available B
// record for text, or -1 when none is available. The earliest position wins
// a tie.
func (me *MatchingEngine) bestCandidate(text string, index *AmountIndex, available func(int) bool) (int, int) {
	if me.Config.ExactFastPath && 2*len([]rune(text)) < exactOnlyLength {
		for _, j := range index.Lookup(text) {
			if available(j) {
				return j, 100
			}
		}
	}

	best, bestScore := -1, -1
	for j, candidate := range index.Texts {
		if !available(j) {
			continue
		}
		if score := Ratio(text, candidate); score > bestScore {
			best, bestScore = j, score
			if score == 100 {
				break
			}
		}
	}
	return best, bestScore
}

func (me *MatchingEngine) unclaimed(b models.TransactionSet, index *AmountIndex, claimed []bool, claimedText map[string]bool) models.TransactionSet {
	keep := make([]models.TransactionRecord, 0, b.Len())
	for j := 0; j < b.Len(); j++ {
		switch me.Config.Consumption {
		case ConsumeAmountText:
			if claimedText[index.Texts[j]] {
				continue
			}
		default:
			if claimed[j] {
				continue
			}
		}
		keep = append(keep, b.At(j))
	}
	return models.NewTransactionSet(keep)
}

// Records returns every A record in its original order, matched or not
func (o *Outcome) Records() []MatchedRecord {
	all := make([]MatchedRecord, 0, len(o.Matched)+len(o.OnlyInA))
	i, j := 0, 0
	for i < len(o.Matched) || j < len(o.OnlyInA) {
		if j >= len(o.OnlyInA) || (i < len(o.Matched) && o.Matched[i].Position < o.OnlyInA[j].Position) {
			all = append(all, o.Matched[i])
			i++
			continue
		}
		all = append(all, o.OnlyInA[j])
		j++
	}
	return all
}

// String returns a short description of the outcome
func (o *Outcome) String() string {
	return fmt.Sprintf("Outcome{Matched: %d, Only in %s: %d, Only in %s: %d, Balance: %s}",
		len(o.Matched), o.Labels.A, len(o.OnlyInA), o.Labels.B, o.OnlyInB.Len(), o.BalanceDifference.StringFixed(2))
}
