// Package cluster merges per-ticker insider purchases into campaigns.
package cluster

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
	"github.com/yourdesigncoza/get-insider-db/internal/roles"
)

// Build groups purchases into campaigns. A purchase joins the open window when
// its date is at most WindowDays after the window's current end, so a steady
// chain of trades can span more than WindowDays in total.
//
// The result is sorted by ticker, then window start. Parameters are validated
// before any purchase is looked at.
func Build(purchases []Purchase, p Params) ([]Campaign, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	asOf := p.AsOf
	if asOf.IsZero() {
		asOf = latestDate(purchases)
	}
	asOf = insider.DateOnly(asOf)
	horizon := asOf.AddDate(0, 0, -p.LookbackDays)
	minTrade := decimal.NewFromFloat(p.MinTradeValue)
	minTotal := decimal.NewFromFloat(p.MinTotalValue)

	byTicker := make(map[string][]Purchase)
	for _, pur := range purchases {
		ticker := strings.ToUpper(strings.TrimSpace(pur.Ticker))
		if ticker == "" || ticker == "NONE" {
			continue
		}
		day := insider.DateOnly(pur.TransactionDate)
		if day.Before(horizon) || day.After(asOf) {
			continue
		}
		if pur.TotalValue().LessThan(minTrade) {
			continue
		}
		pur.Ticker = ticker
		pur.TransactionDate = day
		byTicker[ticker] = append(byTicker[ticker], pur)
	}

	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var out []Campaign
	for _, ticker := range tickers {
		for _, window := range chain(byTicker[ticker], p.WindowDays) {
			c := aggregate(ticker, window)
			if c.NumPeople < p.MinInsiders {
				continue
			}
			if c.TotalValue.LessThan(minTotal) {
				continue
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func latestDate(purchases []Purchase) time.Time {
	var latest time.Time
	for _, p := range purchases {
		if p.TransactionDate.After(latest) {
			latest = p.TransactionDate
		}
	}
	return latest
}

// chain sorts one ticker's purchases and splits them into windows.
func chain(txs []Purchase, windowDays int) [][]Purchase {
	sort.SliceStable(txs, func(i, j int) bool {
		return lessPurchase(txs[i], txs[j])
	})

	var windows [][]Purchase
	var current []Purchase
	var end time.Time
	for _, tx := range txs {
		if len(current) > 0 && insider.DaysBetween(end, tx.TransactionDate) > windowDays {
			windows = append(windows, current)
			current = nil
		}
		current = append(current, tx)
		end = tx.TransactionDate
	}
	if len(current) > 0 {
		windows = append(windows, current)
	}
	return windows
}

func lessPurchase(a, b Purchase) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.Before(b.TransactionDate)
	}
	if a.PartyKey != b.PartyKey {
		return a.PartyKey < b.PartyKey
	}
	if a.OfficerTitle != b.OfficerTitle {
		return a.OfficerTitle < b.OfficerTitle
	}
	if c := a.Shares.Cmp(b.Shares); c != 0 {
		return c < 0
	}
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	return a.TransactionCode < b.TransactionCode
}

// aggregate folds a sorted window into a campaign.
func aggregate(ticker string, txs []Purchase) Campaign {
	c := Campaign{
		Ticker:       ticker,
		WindowStart:  txs[0].TransactionDate,
		WindowEnd:    txs[len(txs)-1].TransactionDate,
		Transactions: txs,
		NumTrades:    len(txs),
		TotalShares:  decimal.Zero,
		TotalValue:   decimal.Zero,
	}

	byKey := make(map[string]*Participant)
	var order []string
	for _, tx := range txs {
		if c.IssuerName == "" {
			c.IssuerName = tx.IssuerName
		}
		value := tx.TotalValue()
		c.TotalShares = c.TotalShares.Add(tx.Shares)
		c.TotalValue = c.TotalValue.Add(value)

		key := tx.PartyKey
		if key == "" {
			key = insider.NormalizeName(tx.PartyName)
		}
		p, ok := byKey[key]
		if !ok {
			p = &Participant{Key: key, Shares: decimal.Zero, Value: decimal.Zero}
			byKey[key] = p
			order = append(order, key)
		}
		if p.Name == "" {
			p.Name = tx.PartyName
		}
		if p.CIK == "" {
			p.CIK = tx.PartyCIK
		}
		// Sorted by date, so later values are more recent.
		if tx.Relationship != "" {
			p.Relationship = tx.Relationship
		}
		if tx.OfficerTitle != "" {
			p.Title = tx.OfficerTitle
		}
		if tx.EntityType != "" {
			p.EntityType = tx.EntityType
		}
		p.Flags = p.Flags.Merge(tx.Flags)
		p.FundLike = p.FundLike || tx.FundLike
		p.Excluded = p.Excluded || tx.Excluded
		p.Trades++
		p.Shares = p.Shares.Add(tx.Shares)
		p.Value = p.Value.Add(value)
	}

	persons := make([]roles.Person, 0, len(order))
	for _, key := range order {
		p := byKey[key]
		if p.Excluded || p.FundLike {
			c.Funds = append(c.Funds, *p)
			continue
		}
		p.RoleWeight = roles.WeightFor(p.Title, p.Flags.IsDirector, p.Flags.IsOfficer)
		c.People = append(c.People, *p)
		persons = append(persons, roles.Person{Key: p.Key, Title: p.Title, Flags: p.Flags})
	}
	sortParticipants(c.People)
	sortParticipants(c.Funds)

	c.NumPeople = len(c.People)
	c.NumFunds = len(c.Funds)
	c.NumInsiders = len(order)

	summary := roles.Aggregate(persons)
	c.RoleScore = summary.RoleScore
	c.NumKeyOfficers = summary.NumKeyOfficers
	c.KeyRoles = summary.KeyRoles
	c.HasCFO = summary.HasCFO
	c.HasGC = summary.HasGC
	c.HasCEO = summary.HasCEO
	return c
}

func sortParticipants(ps []Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		if c := ps[i].Value.Cmp(ps[j].Value); c != 0 {
			return c > 0
		}
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].Key < ps[j].Key
	})
}
