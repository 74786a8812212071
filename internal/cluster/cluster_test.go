package cluster

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

func day(s string) time.Time {
	t, err := time.Parse(insider.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func pur(ticker, name, date string, shares, price int64) Purchase {
	return Purchase{Transaction: insider.Transaction{
		Ticker:          ticker,
		PartyKey:        insider.NormalizeName(name),
		PartyName:       name,
		TransactionCode: "P",
		TransactionDate: day(date),
		Shares:          decimal.NewFromInt(shares),
		Price:           decimal.NewFromInt(price),
	}}
}

func officer(p Purchase, title string) Purchase {
	p.Relationship = "Officer"
	p.OfficerTitle = title
	p.Flags.IsOfficer = true
	return p
}

func baseParams() Params {
	return Params{WindowDays: 10, LookbackDays: 365, MinInsiders: 1, AsOf: day("2025-06-30")}
}

func TestBuildChainsFromWindowEnd(t *testing.T) {
	purchases := []Purchase{
		pur("ABC", "A", "2025-03-01", 100, 10),
		pur("ABC", "B", "2025-03-08", 100, 10),
		pur("ABC", "C", "2025-03-15", 100, 10),
		pur("ABC", "D", "2025-03-25", 100, 10),
		pur("ABC", "E", "2025-04-05", 100, 10),
	}

	got, err := Build(purchases, baseParams())
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, day("2025-03-01"), first.WindowStart)
	assert.Equal(t, day("2025-03-25"), first.WindowEnd)
	assert.Equal(t, 4, first.NumTrades)
	assert.Greater(t, first.SpanDays(), 10)

	assert.Equal(t, day("2025-04-05"), got[1].WindowStart)
	assert.Equal(t, 1, got[1].NumTrades)
}

func TestBuildWindowProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tickers := []string{"AAA", "BBB", "CCC"}
	var purchases []Purchase
	start := day("2025-01-01")
	for i := 0; i < 300; i++ {
		d := start.AddDate(0, 0, rng.Intn(170))
		p := pur(tickers[rng.Intn(len(tickers))], string(rune('A'+rng.Intn(20))), d.Format(insider.DateLayout), int64(1+rng.Intn(500)), int64(1+rng.Intn(50)))
		purchases = append(purchases, p)
	}
	params := baseParams()
	params.WindowDays = 5

	got, err := Build(purchases, params)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	lastEnd := map[string]time.Time{}
	for _, c := range got {
		assert.False(t, c.WindowEnd.Before(c.WindowStart))
		for i := 1; i < len(c.Transactions); i++ {
			gap := insider.DaysBetween(c.Transactions[i-1].TransactionDate, c.Transactions[i].TransactionDate)
			assert.GreaterOrEqual(t, gap, 0)
			assert.LessOrEqual(t, gap, params.WindowDays)
		}
		if prev, ok := lastEnd[c.Ticker]; ok {
			assert.True(t, prev.Before(c.WindowStart), "%s campaigns overlap", c.Ticker)
			assert.Greater(t, insider.DaysBetween(prev, c.WindowStart), params.WindowDays)
		}
		lastEnd[c.Ticker] = c.WindowEnd
	}
}

func TestBuildIdenticalDatesShareCampaign(t *testing.T) {
	purchases := []Purchase{
		pur("XYZ", "A", "2025-05-05", 10, 5),
		pur("XYZ", "B", "2025-05-05", 10, 5),
		pur("XYZ", "C", "2025-05-05", 10, 5),
	}
	params := baseParams()
	params.WindowDays = 1

	got, err := Build(purchases, params)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].NumPeople)
	assert.Equal(t, got[0].WindowStart, got[0].WindowEnd)
}

func TestBuildSingleTransactionNeedsLowMinimum(t *testing.T) {
	purchases := []Purchase{pur("ONE", "A", "2025-05-05", 10, 5)}

	params := baseParams()
	params.MinInsiders = 2
	got, err := Build(purchases, params)
	require.NoError(t, err)
	assert.Empty(t, got)

	params.MinInsiders = 1
	got, err = Build(purchases, params)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBuildDeterministicUnderShuffle(t *testing.T) {
	purchases := []Purchase{
		officer(pur("ABC", "Doe Jane", "2025-03-01", 100, 10), "CFO"),
		officer(pur("ABC", "Doe Jane", "2025-03-03", 50, 11), "Chief Financial Officer"),
		officer(pur("ABC", "Roe Rich", "2025-03-02", 300, 10), "EVP"),
		pur("ABC", "Acme Capital LP", "2025-03-04", 1000, 10),
		pur("DEF", "Smith Al", "2025-03-01", 10, 1),
		pur("DEF", "Jones Bo", "2025-03-01", 10, 1),
	}
	purchases[3].FundLike = true

	params := baseParams()
	params.MinInsiders = 2
	want, err := Build(append([]Purchase(nil), purchases...), params)
	require.NoError(t, err)
	require.Len(t, want, 2)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]Purchase(nil), purchases...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Build(shuffled, params)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	abc := want[0]
	assert.Equal(t, "ABC", abc.Ticker)
	assert.Equal(t, 7, abc.RoleScore)
	assert.Equal(t, 2, abc.NumKeyOfficers)
	assert.Equal(t, []string{"CFO"}, abc.KeyRoles)
	assert.True(t, abc.HasCFO)
	assert.Equal(t, "DEF", want[1].Ticker)
}

func TestBuildMinTradeValueAppliesBeforeWindowing(t *testing.T) {
	purchases := []Purchase{
		pur("ABC", "A", "2025-03-01", 100, 10),
		pur("ABC", "B", "2025-03-09", 1, 1),
		pur("ABC", "C", "2025-03-17", 100, 10),
	}

	params := baseParams()
	got, err := Build(purchases, params)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].NumTrades)

	params.MinTradeValue = 100
	got, err = Build(purchases, params)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].NumTrades)
	assert.Equal(t, 1, got[1].NumTrades)
}

func TestBuildFundsCountTowardTotals(t *testing.T) {
	excluded := pur("ABC", "RA Capital Management LP", "2025-03-02", 1000, 20)
	excluded.Excluded = true
	fund := pur("ABC", "Orbimed Advisors", "2025-03-03", 500, 20)
	fund.FundLike = true
	purchases := []Purchase{
		officer(pur("ABC", "Doe Jane", "2025-03-01", 100, 20), "Chief Executive Officer"),
		excluded,
		fund,
	}

	got, err := Build(purchases, baseParams())
	require.NoError(t, err)
	require.Len(t, got, 1)
	c := got[0]

	assert.Equal(t, 1, c.NumPeople)
	assert.Equal(t, 2, c.NumFunds)
	assert.Equal(t, 3, c.NumInsiders)
	assert.True(t, c.TotalValue.Equal(decimal.NewFromInt(32000)), c.TotalValue.String())
	assert.True(t, c.TotalShares.Equal(decimal.NewFromInt(1600)))
	assert.Equal(t, 2, c.RoleScore)
	assert.InDelta(t, 2.0/3.0, c.FundRatio(), 1e-9)
	assert.Equal(t, []string{"RA Capital Management LP", "Orbimed Advisors"}, c.FundLabels())
	assert.Equal(t, []string{"Doe Jane (Officer, Chief Executive Officer)"}, c.PeopleLabels())

	params := baseParams()
	params.MinInsiders = 2
	got, err = Build(purchases, params)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildMinTotalValue(t *testing.T) {
	purchases := []Purchase{
		pur("ABC", "A", "2025-03-01", 10, 10),
		pur("ABC", "B", "2025-03-02", 10, 10),
	}
	params := baseParams()
	params.MinTotalValue = 200
	got, err := Build(purchases, params)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	params.MinTotalValue = 200.01
	got, err = Build(purchases, params)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildLookbackHorizon(t *testing.T) {
	purchases := []Purchase{
		pur("ABC", "Old", "2025-04-30", 10, 10),
		pur("ABC", "Edge", "2025-05-31", 10, 10),
		pur("ABC", "In", "2025-06-20", 10, 10),
		pur("ABC", "Future", "2025-07-01", 10, 10),
		pur("", "NoTicker", "2025-06-20", 10, 10),
		pur("none", "Unlisted", "2025-06-20", 10, 10),
	}
	params := baseParams()
	params.LookbackDays = 30
	params.WindowDays = 30

	got, err := Build(purchases, params)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day("2025-05-31"), got[0].WindowStart)
	assert.Equal(t, day("2025-06-20"), got[0].WindowEnd)
	assert.Equal(t, 2, got[0].NumTrades)
}

func TestBuildAsOfDefaultsToLatestDate(t *testing.T) {
	purchases := []Purchase{
		pur("ABC", "A", "2024-01-01", 10, 10),
		pur("ABC", "B", "2024-03-01", 10, 10),
	}
	params := Params{WindowDays: 10, LookbackDays: 30, MinInsiders: 1}

	got, err := Build(purchases, params)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day("2024-03-01"), got[0].WindowStart)
}

func TestBuildInvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Params)
		param string
	}{
		{name: "zero window", mod: func(p *Params) { p.WindowDays = 0 }, param: "window_days"},
		{name: "negative lookback", mod: func(p *Params) { p.LookbackDays = -1 }, param: "lookback_days"},
		{name: "negative min insiders", mod: func(p *Params) { p.MinInsiders = -2 }, param: "min_insiders"},
		{name: "negative trade value", mod: func(p *Params) { p.MinTradeValue = -1 }, param: "min_trade_value"},
		{name: "infinite total value", mod: func(p *Params) { p.MinTotalValue = math.Inf(1) }, param: "min_total_value"},
		{name: "infinite trade value", mod: func(p *Params) { p.MinTradeValue = math.Inf(1) }, param: "min_trade_value"},
		{name: "NaN total value", mod: func(p *Params) { p.MinTotalValue = math.NaN() }, param: "min_total_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := baseParams()
			tt.mod(&params)
			_, err := Build([]Purchase{pur("ABC", "A", "2025-03-01", 1, 1)}, params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParams))
			var pe *ParamError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.param, pe.Param)
		})
	}
}

func TestParticipantLabel(t *testing.T) {
	tests := []struct {
		p    Participant
		want string
	}{
		{Participant{Name: "DOE JANE", Relationship: "officer", Title: "CFO"}, "DOE JANE (Officer, CFO)"},
		{Participant{Name: "DOE JANE", Relationship: "Officer"}, "DOE JANE (Officer)"},
		{Participant{Name: "DOE JANE", Relationship: "Director", Title: "Chair"}, "DOE JANE (Director, Chair)"},
		{Participant{Name: "DOE JANE", Relationship: "Director"}, "DOE JANE (Director)"},
		{Participant{Name: "DOE JANE", Title: "Chair"}, "DOE JANE (Chair)"},
		{Participant{Key: "DOE JANE"}, "DOE JANE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.p.Label())
	}
}
