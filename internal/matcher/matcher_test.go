package matcher

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"statement-reconciler/internal/models"
)

func record(day int, description, amount string) models.TransactionRecord {
	return models.NewTransactionRecord(
		time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		description,
		decimal.RequireFromString(amount),
	)
}

func amounts(values ...string) models.TransactionSet {
	records := make([]models.TransactionRecord, len(values))
	for i, v := range values {
		records[i] = record(1, "row", v)
	}
	return models.NewTransactionSet(records)
}

func newEngine(t *testing.T, mutate func(c *MatchingConfig)) *MatchingEngine {
	t.Helper()
	config := DefaultMatchingConfig()
	if mutate != nil {
		mutate(config)
	}
	engine, err := NewMatchingEngine(config)
	if err != nil {
		t.Fatalf("NewMatchingEngine() error = %v", err)
	}
	return engine
}

func reconcile(t *testing.T, engine *MatchingEngine, a, b models.TransactionSet) *Outcome {
	t.Helper()
	outcome, err := engine.Reconcile(context.Background(), a, b, Labels{A: "PDF Statements", B: "Excel File"})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	return outcome
}

func statementScenario() (models.TransactionSet, models.TransactionSet) {
	a := models.NewTransactionSet([]models.TransactionRecord{
		record(5, "COFFEE", "-4.50"),
		record(6, "SALARY", "2000.00"),
	})
	b := models.NewTransactionSet([]models.TransactionRecord{
		record(5, "COFFEE SHOP", "4.50"),
		record(6, "SALARY", "2000.00"),
	})
	return a, b
}

func TestReconcile_SignedScenario(t *testing.T) {
	a, b := statementScenario()
	outcome := reconcile(t, newEngine(t, nil), a, b)

	if len(outcome.Matched) != 1 || outcome.Matched[0].Record.Description != "SALARY" {
		t.Fatalf("Matched = %+v, want only SALARY", outcome.Matched)
	}
	salary := outcome.Matched[0]
	if salary.MatchedAmount != "2000.0" || salary.Score != 100 || salary.CounterpartIndex != 1 {
		t.Errorf("SALARY match = %+v", salary)
	}

	if len(outcome.OnlyInA) != 1 {
		t.Fatalf("OnlyInA = %+v, want COFFEE", outcome.OnlyInA)
	}
	coffee := outcome.OnlyInA[0]
	if coffee.MatchedAmount != NoMatch || coffee.Score != 0 || coffee.IsMatched() {
		t.Errorf("COFFEE = %+v, want No Match with score 0", coffee)
	}

	if outcome.OnlyInB.Len() != 1 || outcome.OnlyInB.At(0).AmountText() != "4.5" {
		t.Errorf("OnlyInB = %v, want [4.50]", outcome.OnlyInB.Records())
	}
	if !outcome.BalanceDifference.Equal(decimal.RequireFromString("9.00")) {
		t.Errorf("BalanceDifference = %s, want 9.00", outcome.BalanceDifference)
	}
}

func TestReconcile_AbsoluteScenario(t *testing.T) {
	a, b := statementScenario()
	outcome := reconcile(t, newEngine(t, func(c *MatchingConfig) { c.Sign = SignAbsolute }), a, b)

	if len(outcome.Matched) != 2 || len(outcome.OnlyInA) != 0 {
		t.Fatalf("Matched = %d, OnlyInA = %d, want 2 and 0", len(outcome.Matched), len(outcome.OnlyInA))
	}
	if got := outcome.Matched[0].MatchedAmount; got != "4.5" {
		t.Errorf("COFFEE matched amount = %q, want the counterpart's own text 4.5", got)
	}
	if outcome.OnlyInB.Len() != 0 {
		t.Errorf("OnlyInB = %v, want empty", outcome.OnlyInB.Records())
	}
	if !outcome.BalanceDifference.Equal(decimal.RequireFromString("9.00")) {
		t.Errorf("BalanceDifference = %s, want 9.00", outcome.BalanceDifference)
	}
}

func TestReconcile_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name        string
		a, b        string
		wantMatched bool
		wantScore   int
	}{
		{"score 90 is accepted", "1234567.89", "1234567.88", true, 90},
		{"score 89 is rejected", "123456.78", "123456.79", false, 0},
		{"trailing zero", "100.05", "100.5", true, 91},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := reconcile(t, newEngine(t, nil), amounts(tt.a), amounts(tt.b))
			matched := len(outcome.Matched) == 1
			if matched != tt.wantMatched {
				t.Fatalf("matched = %v, want %v", matched, tt.wantMatched)
			}
			got := outcome.Records()[0].Score
			if got != tt.wantScore {
				t.Errorf("Score = %d, want %d", got, tt.wantScore)
			}
		})
	}
}

func TestReconcile_TieGoesToEarliest(t *testing.T) {
	engine := newEngine(t, func(c *MatchingConfig) { c.Threshold = 70 })

	outcome := reconcile(t, engine, amounts("10.5"), amounts("10.4", "10.6"))
	if len(outcome.Matched) != 1 || outcome.Matched[0].CounterpartIndex != 0 {
		t.Errorf("Matched = %+v, want the first of two equal scores", outcome.Matched)
	}

	outcome = reconcile(t, engine, amounts("100.0"), amounts("250.0", "100.01"))
	if len(outcome.Matched) != 1 || outcome.Matched[0].CounterpartIndex != 1 {
		t.Errorf("Matched = %+v, want the higher score to win", outcome.Matched)
	}
}

func TestReconcile_ConsumptionPolicies(t *testing.T) {
	tests := []struct {
		name         string
		policy       ConsumptionPolicy
		a, b         models.TransactionSet
		wantMatched  int
		wantOnlyInA  int
		wantOnlyInB  int
		wantBIndexes []int
	}{
		{"identity, more A than B", ConsumeIdentity, amounts("10.00", "10.00"), amounts("10.00"), 1, 1, 0, []int{0}},
		{"amount-text, more A than B", ConsumeAmountText, amounts("10.00", "10.00"), amounts("10.00"), 2, 0, 0, []int{0, 0}},
		{"identity, more B than A", ConsumeIdentity, amounts("10.00"), amounts("10.00", "10.00"), 1, 0, 1, []int{0}},
		{"amount-text, more B than A", ConsumeAmountText, amounts("10.00"), amounts("10.00", "10.00"), 1, 0, 0, []int{0}},
		{"identity, duplicates pair up", ConsumeIdentity, amounts("10.00", "10.00"), amounts("10.00", "10.00", "7.00"), 2, 0, 1, []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := reconcile(t, newEngine(t, func(c *MatchingConfig) { c.Consumption = tt.policy }), tt.a, tt.b)

			if len(outcome.Matched) != tt.wantMatched || len(outcome.OnlyInA) != tt.wantOnlyInA || outcome.OnlyInB.Len() != tt.wantOnlyInB {
				t.Fatalf("matched/onlyA/onlyB = %d/%d/%d, want %d/%d/%d",
					len(outcome.Matched), len(outcome.OnlyInA), outcome.OnlyInB.Len(),
					tt.wantMatched, tt.wantOnlyInA, tt.wantOnlyInB)
			}
			for i, want := range tt.wantBIndexes {
				if got := outcome.Matched[i].CounterpartIndex; got != want {
					t.Errorf("Matched[%d].CounterpartIndex = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestReconcile_EmptyB(t *testing.T) {
	outcome := reconcile(t, newEngine(t, nil), amounts("1.00", "2.50"), models.NewTransactionSet(nil))

	if len(outcome.OnlyInA) != 2 || len(outcome.Matched) != 0 || outcome.OnlyInB.Len() != 0 {
		t.Errorf("outcome = %s", outcome)
	}
	if !outcome.BalanceDifference.Equal(decimal.RequireFromString("-3.50")) {
		t.Errorf("BalanceDifference = %s, want -3.50", outcome.BalanceDifference)
	}
}

func randomSet(rng *rand.Rand, n int) models.TransactionSet {
	records := make([]models.TransactionRecord, n)
	for i := range records {
		cents := rng.Int63n(200000) - 100000
		if rng.Intn(4) == 0 {
			cents = int64(rng.Intn(5)) * 1000
		}
		records[i] = record(1+rng.Intn(28), "random", decimal.New(cents, -2).String())
	}
	return models.NewTransactionSet(records)
}

func TestReconcile_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 25; round++ {
		a := randomSet(rng, rng.Intn(30))
		b := randomSet(rng, rng.Intn(30))

		for _, policy := range []ConsumptionPolicy{ConsumeIdentity, ConsumeAmountText} {
			fast := reconcile(t, newEngine(t, func(c *MatchingConfig) { c.Consumption = policy }), a, b)
			slow := reconcile(t, newEngine(t, func(c *MatchingConfig) {
				c.Consumption = policy
				c.ExactFastPath = false
			}), a, b)

			if !fast.BalanceDifference.Equal(b.Total().Sub(a.Total())) {
				t.Fatalf("round %d: balance %s != ΣB − ΣA", round, fast.BalanceDifference)
			}

			records := fast.Records()
			if len(records) != a.Len() {
				t.Fatalf("round %d: partition covers %d of %d records", round, len(records), a.Len())
			}
			for i, r := range records {
				if r.Position != i || !r.Record.Equals(a.At(i)) {
					t.Fatalf("round %d: record %d out of place", round, i)
				}
				if r.IsMatched() != (r.Score >= DefaultThreshold) {
					t.Fatalf("round %d: record %d matched=%v with score %d", round, i, r.IsMatched(), r.Score)
				}
			}

			if len(fast.Matched) != len(slow.Matched) {
				t.Fatalf("round %d: fast path changed the outcome", round)
			}
			for i := range fast.Matched {
				if fast.Matched[i].CounterpartIndex != slow.Matched[i].CounterpartIndex {
					t.Fatalf("round %d: fast path picked a different counterpart", round)
				}
			}

			if policy == ConsumeIdentity && len(fast.Matched)+fast.OnlyInB.Len() != b.Len() {
				t.Fatalf("round %d: identity policy lost B records", round)
			}
		}
	}
}

func TestReconcile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t, nil).Reconcile(ctx, amounts("1.00"), amounts("1.00"), Labels{})
	if err == nil {
		t.Error("Reconcile() should fail on a cancelled context")
	}
}

func TestMatchingConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *MatchingConfig)
		wantErr bool
	}{
		{"default", func(c *MatchingConfig) {}, false},
		{"threshold 0", func(c *MatchingConfig) { c.Threshold = 0 }, false},
		{"threshold 101", func(c *MatchingConfig) { c.Threshold = 101 }, true},
		{"negative threshold", func(c *MatchingConfig) { c.Threshold = -1 }, true},
		{"bad consumption", func(c *MatchingConfig) { c.Consumption = 7 }, true},
		{"bad sign", func(c *MatchingConfig) { c.Sign = 7 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMatchingConfig()
			tt.mutate(config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewMatchingEngine(&MatchingConfig{Threshold: 200}); err == nil {
		t.Error("NewMatchingEngine() should reject an invalid config")
	}
}

func TestParsePolicies(t *testing.T) {
	if p, err := ParseConsumptionPolicy("amount-text"); err != nil || p != ConsumeAmountText {
		t.Errorf("ParseConsumptionPolicy(amount-text) = %v, %v", p, err)
	}
	if p, err := ParseConsumptionPolicy(""); err != nil || p != ConsumeIdentity {
		t.Errorf("ParseConsumptionPolicy(\"\") = %v, %v", p, err)
	}
	if _, err := ParseConsumptionPolicy("greedy"); err == nil {
		t.Error("ParseConsumptionPolicy(greedy) should fail")
	}
	if p, err := ParseSignPolicy("Absolute"); err != nil || p != SignAbsolute {
		t.Errorf("ParseSignPolicy(Absolute) = %v, %v", p, err)
	}
	if _, err := ParseSignPolicy("magnitude"); err == nil {
		t.Error("ParseSignPolicy(magnitude) should fail")
	}
}

func TestAmountIndex(t *testing.T) {
	set := amounts("10.00", "-4.50", "10.0", "4.50", "7")

	signed := NewAmountIndex(set, SignSigned)
	if got := signed.Lookup("10.0"); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("Lookup(10.0) = %v, want [0 2]", got)
	}
	if got := signed.Lookup("7.0"); len(got) != 1 || got[0] != 4 {
		t.Errorf("Lookup(7.0) = %v, want [4]", got)
	}

	absolute := NewAmountIndex(set, SignAbsolute)
	if got := absolute.Lookup("4.5"); len(got) != 2 {
		t.Errorf("absolute Lookup(4.5) = %v, want two positions", got)
	}

	stats := absolute.GetIndexStats()
	if stats.TotalRecords != 5 || stats.UniqueAmounts != 3 || stats.DuplicateRecords != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
