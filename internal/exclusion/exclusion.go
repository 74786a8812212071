// Package exclusion applies the user-curated denylist of party-name patterns.
package exclusion

import (
	"strings"
	"time"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

// Rule is one row of the insider_exclusions table.
type Rule struct {
	ID        int64
	Pattern   string
	Reason    string
	Active    bool
	CreatedAt time.Time
}

// IsExcluded reports whether any active rule's pattern is a case-insensitive
// substring of the normalized party name.
func IsExcluded(partyName string, rules []Rule) bool {
	return Compile(rules).Match(partyName) != nil
}

// Filter is an immutable, pre-normalized view of the active rules.
type Filter struct {
	patterns []compiled
}

type compiled struct {
	needle string
	rule   Rule
}

// Compile keeps the active rules with non-blank patterns, in input order.
func Compile(rules []Rule) *Filter {
	f := &Filter{patterns: make([]compiled, 0, len(rules))}
	for _, r := range rules {
		if !r.Active {
			continue
		}
		needle := insider.NormalizeName(r.Pattern)
		if needle == "" {
			continue
		}
		f.patterns = append(f.patterns, compiled{needle: needle, rule: r})
	}
	return f
}

// Len returns the number of active patterns.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.patterns)
}

// Match returns the first active rule matching partyName, or nil.
func (f *Filter) Match(partyName string) *Rule {
	if f == nil || len(f.patterns) == 0 {
		return nil
	}
	name := insider.NormalizeName(partyName)
	if name == "" {
		return nil
	}
	for i := range f.patterns {
		if strings.Contains(name, f.patterns[i].needle) {
			rule := f.patterns[i].rule
			return &rule
		}
	}
	return nil
}
