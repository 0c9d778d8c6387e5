package parsers

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// LineRule is one transaction-line pattern. Group indexes point into the
// pattern's submatches; a zero index means the rule has no such group.
type LineRule struct {
	Name             string
	Priority         int
	Pattern          *regexp.Regexp
	DateGroup        int
	DescriptionGroup int
	ReferenceGroup   int
	AmountGroup      int
	CreditGroup      int
}

// LineMatch is the raw capture of a statement line that a rule accepted
type LineMatch struct {
	Rule        string
	DayMonth    string
	Description string
	Reference   string
	AmountText  string
	Credit      bool
}

// SignedAmount strips thousands separators and applies the credit marker:
// credits are positive, everything else is a debit.
func (m LineMatch) SignedAmount() (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(m.AmountText, ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", m.AmountText, err)
	}
	if m.Credit {
		return d.Abs(), nil
	}
	return d.Abs().Neg(), nil
}

// DefaultLineRules returns the built-in statement line grammar. The rule with
// a reference column is tried first. Month and description classes accept
// any Unicode letter.
func DefaultLineRules() []LineRule {
	return []LineRule{
		{
			Name:             "date-description-reference-amount",
			Priority:         10,
			Pattern:          regexp.MustCompile(`(\d{1,2} \p{L}{3})\s+([\p{L}\p{N}_\s'\-#]+)\s+([A-Za-z0-9@.]+)?\s+([0-9,.]+)\s*(Cr)?`),
			DateGroup:        1,
			DescriptionGroup: 2,
			ReferenceGroup:   3,
			AmountGroup:      4,
			CreditGroup:      5,
		},
		{
			Name:             "date-description-amount",
			Priority:         20,
			Pattern:          regexp.MustCompile(`(\d{1,2} \p{L}{3})\s+([\p{L}\p{N}_\s'\-#]+)\s+([0-9,.]+)\s*(Cr)?`),
			DateGroup:        1,
			DescriptionGroup: 2,
			AmountGroup:      3,
			CreditGroup:      4,
		},
	}
}

// Grammar applies line rules in ascending priority; the first rule that
// matches a line wins.
type Grammar struct {
	rules []LineRule
}

// NewGrammar validates rules and orders them by priority
func NewGrammar(rules []LineRule) (*Grammar, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("grammar needs at least one rule")
	}

	ordered := append([]LineRule(nil), rules...)
	for _, rule := range ordered {
		if err := rule.validate(); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	return &Grammar{rules: ordered}, nil
}

func (r LineRule) validate() error {
	if r.Pattern == nil {
		return fmt.Errorf("rule %q has no pattern", r.Name)
	}
	groups := r.Pattern.NumSubexp()
	for name, idx := range map[string]int{
		"date":        r.DateGroup,
		"description": r.DescriptionGroup,
		"reference":   r.ReferenceGroup,
		"amount":      r.AmountGroup,
		"credit":      r.CreditGroup,
	} {
		if idx < 0 || idx > groups {
			return fmt.Errorf("rule %q: %s group %d out of range (pattern has %d)", r.Name, name, idx, groups)
		}
	}
	if r.DateGroup == 0 || r.DescriptionGroup == 0 || r.AmountGroup == 0 {
		return fmt.Errorf("rule %q must capture date, description and amount", r.Name)
	}
	return nil
}

// Rules returns the rules in evaluation order
func (g *Grammar) Rules() []LineRule {
	return append([]LineRule(nil), g.rules...)
}

// Match runs the rules against a single line
func (g *Grammar) Match(line string) (LineMatch, bool) {
	for _, rule := range g.rules {
		sub := rule.Pattern.FindStringSubmatch(line)
		if sub == nil {
			continue
		}
		group := func(i int) string {
			if i == 0 || i >= len(sub) {
				return ""
			}
			return sub[i]
		}
		return LineMatch{
			Rule:        rule.Name,
			DayMonth:    group(rule.DateGroup),
			Description: strings.TrimSpace(group(rule.DescriptionGroup)),
			Reference:   group(rule.ReferenceGroup),
			AmountText:  group(rule.AmountGroup),
			Credit:      group(rule.CreditGroup) != "",
		}, true
	}
	return LineMatch{}, false
}
