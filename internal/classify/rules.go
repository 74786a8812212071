package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const (
	// AcceptanceThreshold is the confidence below which the fallback is consulted.
	AcceptanceThreshold = 0.8

	ruleConfidenceFund    = 0.8
	ruleConfidencePerson  = 0.6
	ruleConfidenceFlagged = 0.7
)

// DefaultFundTokens are legal-entity suffixes and investment-vehicle words.
// Multi-word tokens match as whole-word phrases.
var DefaultFundTokens = []string{
	"LP",
	"LLP",
	"LLC",
	"CORP",
	"CORPORATION",
	"INC",
	"INCORPORATED",
	"LIMITED",
	"LTD",
	"PLC",
	"FUND",
	"CAPITAL",
	"PARTNERS",
	"ADVISORS",
	"ADVISERS",
	"INVESTMENT",
	"INVESTORS",
	"ASSET MANAGEMENT",
	"MANAGEMENT LP",
	"HOLDINGS",
	"TRUST",
	"FOUNDATION",
}

// vehicleWords match any word they start, so FUND hits FUNDS and FUNDING and
// TRUST hits TRUSTEE. Legal suffixes and extra tokens match whole words only.
var vehicleWords = map[string]bool{
	"FUND":       true,
	"CAPITAL":    true,
	"PARTNERS":   true,
	"INVESTMENT": true,
	"HOLDINGS":   true,
	"TRUST":      true,
	"FOUNDATION": true,
}

type fundToken struct {
	words  []string
	prefix bool
}

// RuleClassifier is the lexical classifier that is always present.
type RuleClassifier struct {
	tokens []fundToken
	raw    []string
}

// NewRuleClassifier builds a rule classifier over the default tokens plus extra.
func NewRuleClassifier(extra ...string) *RuleClassifier {
	rc := &RuleClassifier{}
	seen := make(map[string]bool)
	for i, tok := range append(append([]string{}, DefaultFundTokens...), extra...) {
		words := nameWords(tok)
		if len(words) == 0 {
			continue
		}
		joined := strings.Join(words, " ")
		if seen[joined] {
			continue
		}
		seen[joined] = true
		rc.tokens = append(rc.tokens, fundToken{
			words:  words,
			prefix: i < len(DefaultFundTokens) && len(words) == 1 && vehicleWords[joined],
		})
		rc.raw = append(rc.raw, joined)
	}
	return rc
}

// Tokens returns the normalized token list.
func (rc *RuleClassifier) Tokens() []string {
	out := make([]string, len(rc.raw))
	copy(out, rc.raw)
	return out
}

// Classify never fails; the context is unused.
func (rc *RuleClassifier) Classify(_ context.Context, in Input) (Classification, error) {
	return rc.classify(in), nil
}

func (rc *RuleClassifier) classify(in Input) Classification {
	words := nameWords(in.Name)
	var hits []string
	for i, tok := range rc.tokens {
		if tok.matches(words) {
			hits = append(hits, rc.raw[i])
		}
	}

	c := Classification{
		PartyKey: in.PartyKey(),
		PartyCIK: in.CIK,
		Source:   SourceRules,
	}
	switch {
	case len(hits) > 0:
		sort.Strings(hits)
		c.EntityType = EntityFund
		c.IsFundLike = true
		c.Confidence = ruleConfidenceFund
		c.Rationale = fmt.Sprintf("Matched fund token(s): %s", strings.Join(hits, ", "))
	case in.Flags.IsOfficer || in.Flags.IsDirector:
		c.EntityType = EntityPerson
		c.Confidence = ruleConfidenceFlagged
		c.Rationale = "Flagged as officer/director"
	case strings.TrimSpace(in.Title) != "":
		c.EntityType = EntityPerson
		c.Confidence = ruleConfidencePerson
		c.Rationale = "Officer title present"
	default:
		c.EntityType = EntityPerson
		c.Confidence = ruleConfidencePerson
		c.Rationale = "Defaulted to person; no fund markers detected"
	}
	return c
}

// nameWords uppercases, drops dots (L.P. -> LP) and splits on anything that is
// not a letter or digit.
func nameWords(s string) []string {
	s = strings.ToUpper(strings.ReplaceAll(s, ".", ""))
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (t fundToken) matches(words []string) bool {
	if !t.prefix {
		return containsPhrase(words, t.words)
	}
	for _, w := range words {
		if strings.HasPrefix(w, t.words[0]) {
			return true
		}
	}
	return false
}

func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(words); i++ {
		for j := range phrase {
			if words[i+j] != phrase[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

var _ Classifier = (*RuleClassifier)(nil)
