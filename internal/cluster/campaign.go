package cluster

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

// Purchase is a transaction annotated with the party's disposition.
type Purchase struct {
	insider.Transaction
	// FundLike comes from the entity classifier.
	FundLike bool
	// Excluded is set when an exclusion rule matched; it overrides FundLike.
	Excluded   bool
	EntityType string
}

// ConvictionBearing reports whether the party counts among People.
func (p Purchase) ConvictionBearing() bool {
	return !p.Excluded && !p.FundLike
}

// Participant is one distinct party within a campaign.
type Participant struct {
	Key          string
	Name         string
	CIK          string
	Relationship string
	Title        string
	Flags        insider.Flags
	EntityType   string
	FundLike     bool
	Excluded     bool
	Trades       int
	Shares       decimal.Decimal
	Value        decimal.Decimal
	RoleWeight   int
}

// Label renders the participant for display, e.g. "DOE JANE (Officer, CFO)".
func (p Participant) Label() string {
	rel := strings.TrimSpace(p.Relationship)
	title := strings.TrimSpace(p.Title)

	var descriptor string
	switch {
	case strings.EqualFold(rel, "officer") && title != "":
		descriptor = "Officer, " + title
	case strings.EqualFold(rel, "officer"):
		descriptor = "Officer"
	case rel != "" && title != "":
		descriptor = rel + ", " + title
	case rel != "":
		descriptor = rel
	default:
		descriptor = title
	}

	name := p.Name
	if name == "" {
		name = p.Key
	}
	if descriptor == "" {
		return name
	}
	return name + " (" + descriptor + ")"
}

// Campaign is a merged window of purchases in one ticker.
type Campaign struct {
	Ticker      string
	IssuerName  string
	WindowStart time.Time
	WindowEnd   time.Time

	Transactions []Purchase
	People       []Participant
	Funds        []Participant

	NumTrades   int
	NumPeople   int
	NumInsiders int
	NumFunds    int
	TotalShares decimal.Decimal
	TotalValue  decimal.Decimal

	RoleScore      int
	NumKeyOfficers int
	KeyRoles       []string
	HasCFO         bool
	HasGC          bool
	HasCEO         bool

	ClusterScore float64
}

// FundRatio is funds / max(all insiders, 1).
func (c Campaign) FundRatio() float64 {
	all := c.NumInsiders
	if all < 1 {
		all = 1
	}
	return float64(c.NumFunds) / float64(all)
}

// SpanDays is the inclusive calendar length of the window.
func (c Campaign) SpanDays() int {
	return insider.DaysBetween(c.WindowStart, c.WindowEnd) + 1
}

// PeopleLabels returns display labels of the People, highest value first.
func (c Campaign) PeopleLabels() []string {
	return labels(c.People)
}

// FundLabels returns display labels of the Funds, highest value first.
func (c Campaign) FundLabels() []string {
	return labels(c.Funds)
}

func labels(ps []Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Label())
	}
	return out
}
