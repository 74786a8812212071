// Package roles maps officer titles and relationship flags to conviction weights.
package roles

import (
	"strings"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

const (
	// OfficerWeight applies to officers whose title matches nothing more specific.
	OfficerWeight = 1
	// DirectorWeight applies to directors whose title matches nothing more specific.
	DirectorWeight = 1
	// KeyOfficerWeight is the minimum weight counted as a key officer.
	KeyOfficerWeight = 3
)

// Role labels rendered in key_roles.
const (
	LabelCFO = "CFO"
	LabelGC  = "GC"
	LabelCEO = "CEO"
	LabelCOO = "COO"
	LabelCMO = "CMO"
	LabelCCO = "CCO"
	LabelCPM = "CPM"
)

// Rule is one (title substring, weight) pair. Label is empty for roles that
// are not reported in key_roles.
type Rule struct {
	Pattern string
	Weight  int
	Label   string
}

// table is evaluated in full; the result is the maximum matching weight.
var table = []Rule{
	{Pattern: "CFO", Weight: 4, Label: LabelCFO},
	{Pattern: "CHIEF FINANCIAL OFFICER", Weight: 4, Label: LabelCFO},
	{Pattern: "GENERAL COUNSEL", Weight: 4, Label: LabelGC},
	{Pattern: "CHIEF LEGAL OFFICER", Weight: 4, Label: LabelGC},
	{Pattern: "COO", Weight: 3, Label: LabelCOO},
	{Pattern: "CHIEF OPERATING OFFICER", Weight: 3, Label: LabelCOO},
	{Pattern: "VP", Weight: 3},
	{Pattern: "VICE PRESIDENT", Weight: 3},
	{Pattern: "SVP", Weight: 3},
	{Pattern: "EVP", Weight: 3},
	{Pattern: "SENIOR VICE PRESIDENT", Weight: 3},
	{Pattern: "EXECUTIVE VICE PRESIDENT", Weight: 3},
	{Pattern: "CMO", Weight: 3, Label: LabelCMO},
	{Pattern: "CHIEF MARKETING OFFICER", Weight: 3, Label: LabelCMO},
	{Pattern: "CHIEF COMPLIANCE OFFICER", Weight: 3, Label: LabelCCO},
	{Pattern: "CHIEF PORTFOLIO MANAGER", Weight: 3, Label: LabelCPM},
	{Pattern: "CEO", Weight: 2, Label: LabelCEO},
	{Pattern: "CHIEF EXECUTIVE OFFICER", Weight: 2, Label: LabelCEO},
	{Pattern: "PRESIDENT", Weight: 2},
	{Pattern: "OFFICER", Weight: OfficerWeight},
	{Pattern: "DIRECTOR", Weight: DirectorWeight},
}

// labelOrder fixes the display order of key_roles.
var labelOrder = []string{LabelCFO, LabelGC, LabelCEO, LabelCOO, LabelCMO, LabelCCO, LabelCPM}

// Table returns a copy of the ordered role table.
func Table() []Rule {
	out := make([]Rule, len(table))
	copy(out, table)
	return out
}

// WeightFor returns the role weight for a person. An empty title is treated as absent.
func WeightFor(officerTitle string, isDirector, isOfficer bool) int {
	title := strings.ToUpper(officerTitle)
	best := 0
	if title != "" {
		for _, r := range table {
			if r.Weight > best && strings.Contains(title, r.Pattern) {
				best = r.Weight
			}
		}
	}
	if best > 0 {
		return best
	}
	switch {
	case isOfficer:
		return OfficerWeight
	case isDirector:
		return DirectorWeight
	default:
		return 0
	}
}

// LabelsFor returns the key-role labels detected in a title, in display order.
func LabelsFor(officerTitle string) []string {
	title := strings.ToUpper(officerTitle)
	if title == "" {
		return nil
	}
	found := make(map[string]bool)
	for _, r := range table {
		if r.Label != "" && strings.Contains(title, r.Pattern) {
			found[r.Label] = true
		}
	}
	return ordered(found)
}

func ordered(found map[string]bool) []string {
	if len(found) == 0 {
		return nil
	}
	out := make([]string, 0, len(found))
	for _, label := range labelOrder {
		if found[label] {
			out = append(out, label)
		}
	}
	return out
}

// Person is one natural-person participant as seen by the scorer.
type Person struct {
	Key   string
	Title string
	Flags insider.Flags
}

// Summary is the per-campaign role aggregation.
type Summary struct {
	RoleScore      int
	NumKeyOfficers int
	KeyRoles       []string
	HasCFO         bool
	HasGC          bool
	HasCEO         bool
}

// Aggregate scores the distinct people of a campaign. A person appearing more
// than once counts once, with their best weight, so the result does not depend
// on input order.
func Aggregate(people []Person) Summary {
	weights := make(map[string]int, len(people))
	found := make(map[string]bool)
	for _, p := range people {
		w := WeightFor(p.Title, p.Flags.IsDirector, p.Flags.IsOfficer)
		if prev, ok := weights[p.Key]; !ok || w > prev {
			weights[p.Key] = w
		}
		for _, label := range LabelsFor(p.Title) {
			found[label] = true
		}
	}

	var s Summary
	for _, w := range weights {
		s.RoleScore += w
		if w >= KeyOfficerWeight {
			s.NumKeyOfficers++
		}
	}
	s.KeyRoles = ordered(found)
	s.HasCFO = found[LabelCFO]
	s.HasGC = found[LabelGC]
	s.HasCEO = found[LabelCEO]
	return s
}
