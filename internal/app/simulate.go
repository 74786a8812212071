package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
	"github.com/yourdesigncoza/get-insider-db/internal/pipeline"
	"github.com/yourdesigncoza/get-insider-db/internal/ranking"
	"github.com/yourdesigncoza/get-insider-db/internal/roles"
	"github.com/yourdesigncoza/get-insider-db/internal/service"
)

// SimulateAlert pushes a synthetic campaign through the alert path.
func (a *App) SimulateAlert(ctx context.Context, ticker string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is disabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	asOf := insider.DateOnly(time.Now().UTC())
	campaign := syntheticCampaign(ticker, asOf, a.Config.Ranking.Weights())
	if campaign.ClusterScore < a.Config.Alerting.MinClusterScore {
		campaign.ClusterScore = a.Config.Alerting.MinClusterScore
	}

	scanner := &staticScanner{result: pipeline.Result{
		RunID:     "simulated",
		AsOf:      asOf,
		Campaigns: []cluster.Campaign{campaign},
	}}

	svc := service.New(a.Config, nil, scanner, pipeline.Options{}, nil, notifier, a.Logger)
	return svc.ProcessBucket(ctx, time.Now().UTC())
}

func syntheticCampaign(ticker string, asOf time.Time, w ranking.Weights) cluster.Campaign {
	if ticker == "" {
		ticker = "TEST"
	}
	people := []cluster.Participant{
		{Key: "DOE JANE", Name: "Doe Jane", Relationship: "Officer", Title: "Chief Financial Officer", Flags: insider.Flags{IsOfficer: true}, Trades: 1, Value: decimal.NewFromInt(250000)},
		{Key: "ROE RICHARD", Name: "Roe Richard", Relationship: "Officer", Title: "General Counsel", Flags: insider.Flags{IsOfficer: true}, Trades: 1, Value: decimal.NewFromInt(120000)},
		{Key: "POE ALAN", Name: "Poe Alan", Relationship: "Director", Flags: insider.Flags{IsDirector: true}, Trades: 1, Value: decimal.NewFromInt(80000)},
	}

	members := make([]roles.Person, 0, len(people))
	total := decimal.Zero
	for i := range people {
		people[i].RoleWeight = roles.WeightFor(people[i].Title, people[i].Flags.IsDirector, people[i].Flags.IsOfficer)
		members = append(members, roles.Person{Key: people[i].Key, Title: people[i].Title, Flags: people[i].Flags})
		total = total.Add(people[i].Value)
	}
	summary := roles.Aggregate(members)

	c := cluster.Campaign{
		Ticker:         ticker,
		IssuerName:     "Simulated Issuer Inc",
		WindowStart:    asOf.AddDate(0, 0, -4),
		WindowEnd:      asOf,
		People:         people,
		NumTrades:      len(people),
		NumPeople:      len(people),
		NumInsiders:    len(people),
		TotalValue:     total,
		RoleScore:      summary.RoleScore,
		NumKeyOfficers: summary.NumKeyOfficers,
		KeyRoles:       summary.KeyRoles,
		HasCFO:         summary.HasCFO,
		HasGC:          summary.HasGC,
		HasCEO:         summary.HasCEO,
	}
	c.ClusterScore = ranking.Score(w, c)
	return c
}

type staticScanner struct {
	result pipeline.Result
}

func (s *staticScanner) Run(context.Context, pipeline.Options) (pipeline.Result, error) {
	return s.result, nil
}

var _ service.Scanner = (*staticScanner)(nil)
