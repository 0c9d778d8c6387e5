// Package matcher pairs two transaction sets that share no common key.
//
// Every record of source A is compared against the records of source B by
// the textual similarity of their amounts. The best scoring B record wins,
// ties going to the earliest B record, and the pair is accepted when the
// score reaches the configured threshold. Whatever is left over on either
// side is reported as only-in-A or only-in-B, and the balance difference is
// the exact sum of B minus the sum of A.
//
// Two policies shape the matching:
//   - ConsumptionPolicy decides whether a B record can be claimed by more
//     than one A record.
//   - SignPolicy decides whether the sign of an amount takes part in the
//     comparison.
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.Sign = matcher.SignAbsolute
//
//	engine, err := matcher.NewMatchingEngine(config)
//	outcome, err := engine.Reconcile(ctx, a, b, matcher.Labels{A: "PDF Statements", B: "Excel File"})
package matcher

import (
	"fmt"
	"strings"
)

// DefaultThreshold is the minimum similarity score for a match
const DefaultThreshold = 90

// ConsumptionPolicy controls how often a B record may be matched
type ConsumptionPolicy int

const (
	// ConsumeIdentity lets each B record be matched at most once. Only
	// unclaimed B records are candidates and the unclaimed ones are
	// reported as only-in-B.
	ConsumeIdentity ConsumptionPolicy = iota

	// ConsumeAmountText keeps every B record a candidate. A B record is
	// only-in-B when no match was made against its amount text, so
	// duplicates of a matched amount are all considered reconciled.
	ConsumeAmountText
)

// String returns the string representation of ConsumptionPolicy
func (p ConsumptionPolicy) String() string {
	switch p {
	case ConsumeIdentity:
		return "identity"
	case ConsumeAmountText:
		return "amount-text"
	default:
		return "unknown"
	}
}

// ParseConsumptionPolicy converts a policy name into a ConsumptionPolicy
func ParseConsumptionPolicy(s string) (ConsumptionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "identity":
		return ConsumeIdentity, nil
	case "amount-text", "amount_text", "text":
		return ConsumeAmountText, nil
	default:
		return ConsumeIdentity, fmt.Errorf("unknown consumption policy %q (expected identity or amount-text)", s)
	}
}

// SignPolicy controls whether the amount sign takes part in the comparison
type SignPolicy int

const (
	// SignSigned compares the signed amount text, so a debit never matches
	// the equal credit.
	SignSigned SignPolicy = iota

	// SignAbsolute compares the amount text of the absolute values.
	SignAbsolute
)

// String returns the string representation of SignPolicy
func (p SignPolicy) String() string {
	switch p {
	case SignSigned:
		return "signed"
	case SignAbsolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// ParseSignPolicy converts a policy name into a SignPolicy
func ParseSignPolicy(s string) (SignPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "signed":
		return SignSigned, nil
	case "absolute", "abs":
		return SignAbsolute, nil
	default:
		return SignSigned, fmt.Errorf("unknown sign policy %q (expected signed or absolute)", s)
	}
}

// MatchingConfig holds the matching parameters
type MatchingConfig struct {
	// Threshold is the minimum score, 0 to 100, for a pair to be matched
	Threshold int `json:"threshold"`

	Consumption ConsumptionPolicy `json:"consumption"`
	Sign        SignPolicy        `json:"sign"`

	// ExactFastPath looks up identical amount texts through the index before
	// scoring every candidate.
	ExactFastPath bool `json:"exact_fast_path"`
}

// DefaultMatchingConfig returns a configuration with standard defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		Threshold:     DefaultThreshold,
		Consumption:   ConsumeIdentity,
		Sign:          SignSigned,
		ExactFastPath: true,
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.Threshold < 0 || mc.Threshold > 100 {
		return fmt.Errorf("threshold must be between 0 and 100: %d", mc.Threshold)
	}
	if mc.Consumption != ConsumeIdentity && mc.Consumption != ConsumeAmountText {
		return fmt.Errorf("invalid consumption policy: %d", mc.Consumption)
	}
	if mc.Sign != SignSigned && mc.Sign != SignAbsolute {
		return fmt.Errorf("invalid sign policy: %d", mc.Sign)
	}
	return nil
}

// Clone creates a copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}
	clone := *mc
	return &clone
}

// String returns a string representation of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Threshold: %d, Consumption: %s, Sign: %s}",
		mc.Threshold, mc.Consumption, mc.Sign)
}
